package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/challenge/dto"
	"anoa.com/clubportal/internal/modules/challenge/repository"
	ledgerService "anoa.com/clubportal/internal/modules/ledger/service"
	searchService "anoa.com/clubportal/internal/modules/search/service"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/clubdate"
	"anoa.com/clubportal/pkg/judge"
	"anoa.com/clubportal/pkg/logger"
)

var (
	ErrChallengeNotFound = repository.ErrChallengeNotFound
	ErrNameRequired      = fmt.Errorf("challenge name is required: %w", apperror.ErrInvalidInput)
	ErrNoLanguages       = fmt.Errorf("at least one supported language is required: %w", apperror.ErrInvalidInput)
	ErrNegativeAmount    = fmt.Errorf("amount must not be negative: %w", apperror.ErrInvalidInput)
)

type ChallengeService interface {
	ListChallenges(ctx context.Context) ([]entity.Challenge, error)
	CreateChallenge(ctx context.Context, input dto.ChallengeInput) (entity.Challenge, error)
	// ReplaceChallenge writes the edited challenge and, when the name changed,
	// removes the document under the old key.
	ReplaceChallenge(ctx context.Context, fromID string, input dto.ChallengeInput) (entity.Challenge, error)
	DeleteChallenge(ctx context.Context, id string) error

	Progress(ctx context.Context, uid, challengeID string) (entity.ChallengeProgress, error)
	OpenWorkspace(ctx context.Context, uid, challengeID string) (*dto.WorkspaceResponse, error)
	SetCode(ctx context.Context, uid, challengeID, lang, code string) (*dto.WorkspaceResponse, error)
	SwitchLanguage(ctx context.Context, uid, challengeID, lang string) (*dto.WorkspaceResponse, error)
	Save(ctx context.Context, uid, challengeID string) (*dto.SaveResponse, error)
	Submit(ctx context.Context, uid, challengeID string) (*dto.SubmitResponse, error)

	// EvictIdle drops workspaces untouched since now-idle. Unsaved edits
	// in them are lost, like closing the editor tab.
	EvictIdle(idle time.Duration) int
	// DeleteProgress removes every progress record of uid.
	DeleteProgress(ctx context.Context, uid string) error
}

type challengeService struct {
	challenges repository.ChallengeRepository
	progress   repository.ProgressRepository
	ledger     ledgerService.LedgerService
	judge      judge.Client
	lock       SubmitLock
	search     searchService.SearchService
	clock      clubdate.Clock

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewChallengeService(
	challenges repository.ChallengeRepository,
	progress repository.ProgressRepository,
	ledger ledgerService.LedgerService,
	judgeClient judge.Client,
	lock SubmitLock,
	search searchService.SearchService,
	clock clubdate.Clock,
) ChallengeService {
	return &challengeService{
		challenges: challenges,
		progress:   progress,
		ledger:     ledger,
		judge:      judgeClient,
		lock:       lock,
		search:     search,
		clock:      clock,
		workspaces: make(map[string]*Workspace),
	}
}

func validateChallenge(c entity.Challenge) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if len(c.Languages) == 0 {
		return ErrNoLanguages
	}
	for _, lang := range c.Languages {
		if !entity.IsSupportedLanguage(lang) {
			return fmt.Errorf("unsupported language %q: %w", lang, apperror.ErrInvalidInput)
		}
	}
	if c.Amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (s *challengeService) ListChallenges(ctx context.Context) ([]entity.Challenge, error) {
	return s.challenges.FindAll(ctx)
}

func (s *challengeService) CreateChallenge(ctx context.Context, input dto.ChallengeInput) (entity.Challenge, error) {
	challenge := input.Challenge()
	if err := validateChallenge(challenge); err != nil {
		return entity.Challenge{}, err
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return entity.Challenge{}, err
	}

	s.index(ctx, challenge)
	return challenge, nil
}

func (s *challengeService) ReplaceChallenge(ctx context.Context, fromID string, input dto.ChallengeInput) (entity.Challenge, error) {
	challenge := input.Challenge()
	if err := validateChallenge(challenge); err != nil {
		return entity.Challenge{}, err
	}
	if _, err := s.challenges.FindByID(ctx, fromID); err != nil {
		return entity.Challenge{}, err
	}

	if challenge.ID == fromID {
		if err := s.challenges.Save(ctx, challenge); err != nil {
			return entity.Challenge{}, err
		}
		s.index(ctx, challenge)
		return challenge, nil
	}

	// new key first; a failure here leaves the old challenge untouched
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return entity.Challenge{}, err
	}
	if err := s.challenges.Delete(ctx, fromID); err != nil {
		return entity.Challenge{}, fmt.Errorf("remove renamed challenge %s: %w", fromID, err)
	}

	s.unindex(ctx, fromID)
	s.index(ctx, challenge)
	return challenge, nil
}

func (s *challengeService) DeleteChallenge(ctx context.Context, id string) error {
	if _, err := s.challenges.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.challenges.Delete(ctx, id); err != nil {
		return err
	}
	s.unindex(ctx, id)
	return nil
}

func (s *challengeService) index(ctx context.Context, c entity.Challenge) {
	if err := s.search.IndexChallenge(ctx, c); err != nil {
		logger.Warn("challenge: failed to index %q: %v", c.ID, err)
	}
}

func (s *challengeService) unindex(ctx context.Context, id string) {
	if err := s.search.Delete(ctx, searchService.IndexChallenges, id); err != nil {
		logger.Warn("challenge: failed to remove %q from search: %v", id, err)
	}
}

func (s *challengeService) Progress(ctx context.Context, uid, challengeID string) (entity.ChallengeProgress, error) {
	return s.progress.GetOrCreate(ctx, uid, challengeID)
}

// workspace returns the open workspace or opens one from the persisted
// progress record.
func (s *challengeService) workspace(ctx context.Context, uid, challengeID string) (*Workspace, error) {
	key := entity.ProgressPath(uid, challengeID)

	s.mu.Lock()
	ws, ok := s.workspaces[key]
	s.mu.Unlock()
	if ok {
		ws.touch(s.clock.Now())
		return ws, nil
	}

	challenge, err := s.challenges.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	progress, err := s.progress.GetOrCreate(ctx, uid, challengeID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have opened it while we were reading
	if existing, ok := s.workspaces[key]; ok {
		existing.touch(s.clock.Now())
		return existing, nil
	}
	ws = newWorkspace(uid, challenge, progress, s.clock.Now())
	s.workspaces[key] = ws
	return ws, nil
}

func (s *challengeService) OpenWorkspace(ctx context.Context, uid, challengeID string) (*dto.WorkspaceResponse, error) {
	ws, err := s.workspace(ctx, uid, challengeID)
	if err != nil {
		return nil, err
	}
	return ws.view(), nil
}

func (s *challengeService) SetCode(ctx context.Context, uid, challengeID, lang, code string) (*dto.WorkspaceResponse, error) {
	ws, err := s.workspace(ctx, uid, challengeID)
	if err != nil {
		return nil, err
	}
	if err := ws.SetCode(lang, code); err != nil {
		return nil, err
	}
	return ws.view(), nil
}

func (s *challengeService) SwitchLanguage(ctx context.Context, uid, challengeID, lang string) (*dto.WorkspaceResponse, error) {
	ws, err := s.workspace(ctx, uid, challengeID)
	if err != nil {
		return nil, err
	}
	if err := ws.SwitchLanguage(lang); err != nil {
		return nil, err
	}
	return ws.view(), nil
}

func (s *challengeService) Save(ctx context.Context, uid, challengeID string) (*dto.SaveResponse, error) {
	ws, err := s.workspace(ctx, uid, challengeID)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	buffers := ws.buffers()
	ws.mu.Unlock()

	saved, progress, err := s.progress.SaveCode(ctx, uid, challengeID, buffers)
	if err != nil {
		return nil, err
	}
	ws.setStatus(progress.Status)

	return &dto.SaveResponse{Saved: saved, Status: progress.Status}, nil
}

func (s *challengeService) Submit(ctx context.Context, uid, challengeID string) (*dto.SubmitResponse, error) {
	ws, err := s.workspace(ctx, uid, challengeID)
	if err != nil {
		return nil, err
	}

	// the catalogue may have changed since the workspace was opened
	challenge, err := s.challenges.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	sub, err := ws.begin(challenge)
	if err != nil {
		return nil, err
	}

	release, ok, err := s.lock.Acquire(ctx, entity.ProgressPath(uid, challengeID))
	if err != nil {
		ws.finish(nil, "")
		return nil, err
	}
	if !ok {
		ws.finish(nil, "")
		return nil, ErrSubmissionInFlight
	}
	defer release()

	resp, err := s.judge.Submit(ctx, judge.Request{
		Code:     sub.source,
		Language: sub.language,
		Input:    challenge.TestCases.Inputs,
		Output:   challenge.TestCases.Outputs,
	})
	if err != nil {
		ws.finish(nil, "")
		logger.Warn("challenge: judge failed for %s on %q: %v", uid, challengeID, err)
		if errors.Is(err, judge.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", judge.ErrUnavailable, err)
	}

	results := make([]entity.TestResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, entity.TestResult{Success: r.Success, Test: r.Test, Output: r.Output})
	}

	out, err := s.settle(ctx, uid, challenge, sub, results)
	if err != nil {
		ws.finish(results, "")
		return nil, err
	}
	ws.finish(results, out.Status)
	return out, nil
}

// settle persists the submitted code and, on an all-pass run, completes the
// challenge. Only the caller whose transition moves the status awards.
func (s *challengeService) settle(ctx context.Context, uid string, challenge entity.Challenge, sub submission, results []entity.TestResult) (*dto.SubmitResponse, error) {
	saved, progress, err := s.progress.SaveCode(ctx, uid, challenge.ID, sub.buffers)
	if err != nil {
		return nil, err
	}

	out := &dto.SubmitResponse{
		Results:   results,
		Passed:    entity.AllPassed(results),
		Status:    progress.Status,
		CodeSaved: saved,
	}
	if !out.Passed || progress.Complete() {
		return out, nil
	}

	moved, err := s.progress.Transition(ctx, uid, challenge.ID, entity.StatusInProgress, entity.StatusComplete)
	if err != nil {
		return nil, err
	}
	out.Status = entity.StatusComplete
	if !moved {
		return out, nil
	}

	if challenge.Amount != 0 {
		if _, err := s.ledger.AppendPoints(ctx, uid, challenge.Name, challenge.Amount); err != nil {
			logger.Error("challenge: award for %s on %q failed, reopening: %v", uid, challenge.ID, err)
			if _, revertErr := s.progress.Transition(ctx, uid, challenge.ID, entity.StatusComplete, entity.StatusInProgress); revertErr != nil {
				logger.Error("challenge: reopening %q for %s failed: %v", challenge.ID, uid, revertErr)
			}
			return nil, err
		}
		out.Awarded = challenge.Amount
	}

	logger.Success("challenge: %s completed %q", uid, challenge.ID)
	return out, nil
}

func (s *challengeService) EvictIdle(idle time.Duration) int {
	cutoff := s.clock.Now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, ws := range s.workspaces {
		if ws.idleSince(cutoff) {
			delete(s.workspaces, key)
			evicted++
		}
	}
	return evicted
}

func (s *challengeService) DeleteProgress(ctx context.Context, uid string) error {
	prefix := entity.UserPath(uid) + "/"

	s.mu.Lock()
	for key := range s.workspaces {
		if strings.HasPrefix(key, prefix) {
			delete(s.workspaces, key)
		}
	}
	s.mu.Unlock()

	return s.progress.DeleteAll(ctx, uid)
}
