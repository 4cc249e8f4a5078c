package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/search/dto"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/logger"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const (
	IndexChallenges    = "challenges"
	IndexProblems      = "problems"
	IndexAnnouncements = "announcements"
)

var ErrSearchDisabled = fmt.Errorf("search is not configured: %w", apperror.ErrUnavailable)

// keyspace turns free-form document keys (challenge names, problem titles)
// into ids meilisearch accepts.
var keyspace = uuid.MustParse("6f1c8a52-3c1e-4d6b-9a57-2f0e5b7d1c44")

// DocumentID is the search id of a document key.
func DocumentID(key string) string {
	return uuid.NewSHA1(keyspace, []byte(key)).String()
}

type SearchService interface {
	IndexChallenge(ctx context.Context, challenge entity.Challenge) error
	IndexProblem(ctx context.Context, problem entity.Problem) error
	IndexAnnouncement(ctx context.Context, announcement entity.Announcement) error
	// Delete removes the document stored under key from index.
	Delete(ctx context.Context, index, key string) error
	Search(ctx context.Context, query dto.SearchQuery) (*dto.SearchResponse, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) SearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	sortable := []string{"timestamp"}
	if _, err := s.client.Index(IndexAnnouncements).UpdateSortableAttributes(&sortable); err != nil {
		logger.Warn("search: announcements sortable attributes: %v", err)
	}

	filterable := []any{"severity"}
	if _, err := s.client.Index(IndexProblems).UpdateFilterableAttributes(&filterable); err != nil {
		logger.Warn("search: problems filterable attributes: %v", err)
	}

	logger.Info("search: meilisearch indexes initialized")
}

type challengeDoc struct {
	ID          string   `json:"id"`
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Languages   []string `json:"languages"`
	Amount      int      `json:"amount"`
}

type problemDoc struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type announcementDoc struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	From      string `json:"from"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// cleanText strips markup so only readable words get indexed.
func (s *meiliSearchService) cleanText(content string) string {
	content = strings.NewReplacer("</p>", " ", "<br>", " ", "</div>", " ", "\n", " ").Replace(content)
	text := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(text), " ")
}

func (s *meiliSearchService) add(index string, docs any) error {
	task, err := s.client.Index(index).AddDocuments(docs, strPtr("id"))
	if err != nil {
		return fmt.Errorf("index into %s: %w", index, err)
	}
	logger.Info("search: queued %s update, task id %d", index, task.TaskUID)
	return nil
}

func (s *meiliSearchService) IndexChallenge(_ context.Context, c entity.Challenge) error {
	return s.add(IndexChallenges, []challengeDoc{{
		ID:          DocumentID(c.ID),
		Key:         c.ID,
		Name:        c.Name,
		Description: s.cleanText(c.Description),
		Languages:   c.Languages,
		Amount:      c.Amount,
	}})
}

func (s *meiliSearchService) IndexProblem(_ context.Context, p entity.Problem) error {
	return s.add(IndexProblems, []problemDoc{{
		ID:          DocumentID(p.Title),
		Title:       p.Title,
		Description: s.cleanText(p.Description),
		Severity:    string(p.Severity),
	}})
}

func (s *meiliSearchService) IndexAnnouncement(_ context.Context, a entity.Announcement) error {
	return s.add(IndexAnnouncements, []announcementDoc{{
		ID:        DocumentID(a.ID),
		Key:       a.ID,
		From:      a.From,
		Content:   s.cleanText(a.Content),
		Timestamp: a.Timestamp,
	}})
}

func (s *meiliSearchService) Delete(_ context.Context, index, key string) error {
	if _, err := s.client.Index(index).DeleteDocument(DocumentID(key)); err != nil {
		return fmt.Errorf("delete from %s: %w", index, err)
	}
	return nil
}

func (s *meiliSearchService) Search(_ context.Context, query dto.SearchQuery) (*dto.SearchResponse, error) {
	limit := int64(query.Limit)
	if limit <= 0 {
		limit = 10
	}
	req := &meilisearch.SearchRequest{Limit: limit}

	out := &dto.SearchResponse{
		Challenges:    []dto.ChallengeHit{},
		Problems:      []dto.ProblemHit{},
		Announcements: []dto.AnnouncementHit{},
	}

	var challenges []challengeDoc
	if err := s.searchInto(IndexChallenges, query.Q, req, &challenges); err != nil {
		return nil, err
	}
	for _, c := range challenges {
		out.Challenges = append(out.Challenges, dto.ChallengeHit{ID: c.Key, Name: c.Name, Description: c.Description, Amount: c.Amount})
	}

	var problems []problemDoc
	if err := s.searchInto(IndexProblems, query.Q, req, &problems); err != nil {
		return nil, err
	}
	for _, p := range problems {
		out.Problems = append(out.Problems, dto.ProblemHit{ID: p.Title, Title: p.Title, Description: p.Description, Severity: p.Severity})
	}

	var announcements []announcementDoc
	if err := s.searchInto(IndexAnnouncements, query.Q, req, &announcements); err != nil {
		return nil, err
	}
	for _, a := range announcements {
		out.Announcements = append(out.Announcements, dto.AnnouncementHit{ID: a.Key, From: a.From, Content: a.Content, Timestamp: a.Timestamp})
	}

	return out, nil
}

func (s *meiliSearchService) searchInto(index, q string, req *meilisearch.SearchRequest, hits any) error {
	raw, err := s.client.Index(index).SearchRaw(q, req)
	if err != nil {
		return fmt.Errorf("search %s: %w: %v", index, apperror.ErrUnavailable, err)
	}
	var body struct {
		Hits json.RawMessage `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &body); err != nil {
		return fmt.Errorf("decode %s hits: %w", index, err)
	}
	if len(body.Hits) == 0 {
		return nil
	}
	return json.Unmarshal(body.Hits, hits)
}

func strPtr(s string) *string {
	return &s
}

type noopSearchService struct{}

// NewNoopSearchService is used when no meilisearch host is configured.
// Indexing is skipped and queries report that search is unavailable.
func NewNoopSearchService() SearchService {
	return noopSearchService{}
}

func (noopSearchService) IndexChallenge(context.Context, entity.Challenge) error       { return nil }
func (noopSearchService) IndexProblem(context.Context, entity.Problem) error           { return nil }
func (noopSearchService) IndexAnnouncement(context.Context, entity.Announcement) error { return nil }
func (noopSearchService) Delete(context.Context, string, string) error                 { return nil }

func (noopSearchService) Search(context.Context, dto.SearchQuery) (*dto.SearchResponse, error) {
	return nil, ErrSearchDisabled
}
