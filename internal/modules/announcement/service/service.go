package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/announcement/dto"
	"anoa.com/clubportal/internal/modules/announcement/repository"
	searchService "anoa.com/clubportal/internal/modules/search/service"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/clubdate"
	commonDto "anoa.com/clubportal/pkg/dto"
	"anoa.com/clubportal/pkg/logger"
	"anoa.com/clubportal/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

const imageFolder = "club_announcements"

var (
	ErrAnnouncementNotFound = repository.ErrAnnouncementNotFound
	ErrEmptyContent         = fmt.Errorf("announcement content is required: %w", apperror.ErrInvalidInput)
	ErrImagesDisabled       = fmt.Errorf("image uploads are not configured: %w", apperror.ErrUnavailable)
)

type AnnouncementService interface {
	AddAnnouncement(ctx context.Context, authorUID string, input dto.AnnouncementInput, image *commonDto.UploadFile) (*dto.AnnouncementResponse, error)
	UpdateAnnouncement(ctx context.Context, id string, input dto.AnnouncementInput) (*dto.AnnouncementResponse, error)
	DeleteAnnouncement(ctx context.Context, id string) error
	// List pages through the snapshot's announcements, which are already
	// newest first and capped.
	List(announcements []entity.Announcement, query dto.ListQuery) *dto.AnnouncementListResponse
}

type announcementService struct {
	repo      repository.AnnouncementRepository
	users     userRepo.UserRepository
	images    storage.ImageStorage
	search    searchService.SearchService
	clock     clubdate.Clock
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewAnnouncementService accepts a nil images storage; posts with an image
// then fail with ErrImagesDisabled.
func NewAnnouncementService(
	repo repository.AnnouncementRepository,
	users userRepo.UserRepository,
	images storage.ImageStorage,
	search searchService.SearchService,
	clock clubdate.Clock,
) AnnouncementService {
	return &announcementService{
		repo:   repo,
		users:  users,
		images: images,
		search: search,
		clock:  clock,
		markdown: goldmark.New(
			goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// render turns markdown into HTML safe to inject into the page.
func (s *announcementService) render(content string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(content), &buf); err != nil {
		return s.sanitizer.Sanitize(content)
	}
	return string(s.sanitizer.SanitizeBytes(buf.Bytes()))
}

func (s *announcementService) toResponse(a entity.Announcement) dto.AnnouncementResponse {
	return dto.AnnouncementResponse{
		ID:           a.ID,
		From:         a.From,
		FromPhotoURL: a.FromPhotoURL,
		Content:      a.Content,
		HTML:         s.render(a.Content),
		ImageURL:     a.ImageURL,
		Date:         a.Date,
		Timestamp:    a.Timestamp,
	}
}

func (s *announcementService) AddAnnouncement(ctx context.Context, authorUID string, input dto.AnnouncementInput, image *commonDto.UploadFile) (*dto.AnnouncementResponse, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	author, err := s.users.FindByID(ctx, authorUID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	announcement := entity.Announcement{
		ID:           uuid.NewString(),
		From:         author.Name,
		FromPhotoURL: author.PhotoURL,
		Content:      content,
		Date:         clubdate.Display(now),
		Timestamp:    now.UnixMilli(),
	}

	if image != nil {
		if s.images == nil {
			return nil, ErrImagesDisabled
		}
		url, err := s.images.UploadImage(ctx, image.Reader, imageFolder, image.FileName)
		if err != nil {
			return nil, fmt.Errorf("upload announcement image: %w", err)
		}
		announcement.ImageURL = url
	}

	if err := s.repo.Create(ctx, announcement); err != nil {
		s.dropImage(ctx, announcement.ImageURL)
		return nil, err
	}

	s.index(ctx, announcement)
	res := s.toResponse(announcement)
	return &res, nil
}

func (s *announcementService) UpdateAnnouncement(ctx context.Context, id string, input dto.AnnouncementInput) (*dto.AnnouncementResponse, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	announcement, err := s.repo.UpdateContent(ctx, id, content)
	if err != nil {
		return nil, err
	}

	s.index(ctx, announcement)
	res := s.toResponse(announcement)
	return &res, nil
}

func (s *announcementService) DeleteAnnouncement(ctx context.Context, id string) error {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.dropImage(ctx, announcement.ImageURL)
	if err := s.search.Delete(ctx, searchService.IndexAnnouncements, id); err != nil {
		logger.Warn("announcement: failed to remove %s from search: %v", id, err)
	}
	return nil
}

func (s *announcementService) List(announcements []entity.Announcement, query dto.ListQuery) *dto.AnnouncementListResponse {
	page, meta := commonDto.Paginate(announcements, query.PageQuery, 10)

	data := make([]dto.AnnouncementResponse, 0, len(page))
	for _, a := range page {
		data = append(data, s.toResponse(a))
	}
	return &dto.AnnouncementListResponse{Data: data, Pagination: meta}
}

func (s *announcementService) index(ctx context.Context, a entity.Announcement) {
	if err := s.search.IndexAnnouncement(ctx, a); err != nil {
		logger.Warn("announcement: failed to index %s: %v", a.ID, err)
	}
}

func (s *announcementService) dropImage(ctx context.Context, url string) {
	if url == "" || s.images == nil {
		return
	}
	if err := s.images.DeleteImage(ctx, url); err != nil {
		logger.Warn("announcement: failed to delete image %s: %v", url, err)
	}
}
