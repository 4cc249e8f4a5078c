package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/announcement/dto"
	announcementRepo "anoa.com/clubportal/internal/modules/announcement/repository"
	announcementService "anoa.com/clubportal/internal/modules/announcement/service"
	searchService "anoa.com/clubportal/internal/modules/search/service"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/clubdate"
	commonDto "anoa.com/clubportal/pkg/dto"
	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/docstore/docstoretest"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.May, 1, 18, 0, 0, 0, time.UTC)

type memoryImages struct {
	mu        sync.Mutex
	uploaded  []string
	deleted   []string
	uploadErr error
}

func (m *memoryImages) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + fileName
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *memoryImages) DeleteImage(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

func newService(t *testing.T, images *memoryImages) (announcementService.AnnouncementService, docstore.Store) {
	t.Helper()
	store, _ := docstoretest.New(t)
	require.NoError(t, store.Set(context.Background(), entity.UserPath("admin"), entity.NewUser(entity.Profile{
		UID: "admin", Name: "Ana", PhotoURL: "https://photos/ana.png",
	})))

	svc := announcementService.NewAnnouncementService(
		announcementRepo.NewAnnouncementRepository(store),
		userRepo.NewUserRepository(store),
		images,
		searchService.NewNoopSearchService(),
		clubdate.FixedClock(now),
	)
	return svc, store
}

func TestAddAnnouncementRendersSafeMarkdown(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &memoryImages{})

	res, err := svc.AddAnnouncement(ctx, "admin", dto.AnnouncementInput{
		Content: "**Meeting** moved\n<script>alert(1)</script>",
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.ID, 36)
	require.Equal(t, "Ana", res.From)
	require.Equal(t, "https://photos/ana.png", res.FromPhotoURL)
	require.Equal(t, "5/1/2024", res.Date)
	require.Equal(t, now.UnixMilli(), res.Timestamp)
	require.Contains(t, res.HTML, "<strong>Meeting</strong>")
	require.NotContains(t, res.HTML, "<script>")

	_, err = svc.AddAnnouncement(ctx, "admin", dto.AnnouncementInput{Content: "   "}, nil)
	require.ErrorIs(t, err, announcementService.ErrEmptyContent)

	_, err = svc.AddAnnouncement(ctx, "ghost", dto.AnnouncementInput{Content: "hi"}, nil)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAnnouncementImageLifecycle(t *testing.T) {
	ctx := context.Background()
	images := &memoryImages{}
	svc, _ := newService(t, images)

	res, err := svc.AddAnnouncement(ctx, "admin", dto.AnnouncementInput{Content: "poster"}, &commonDto.UploadFile{
		Reader:   strings.NewReader("png-bytes"),
		FileName: "poster.png",
	})
	require.NoError(t, err)
	require.Equal(t, images.uploaded[0], res.ImageURL)

	updated, err := svc.UpdateAnnouncement(ctx, res.ID, dto.AnnouncementInput{Content: "new poster"})
	require.NoError(t, err)
	require.Equal(t, "new poster", updated.Content)
	require.Equal(t, res.ImageURL, updated.ImageURL)

	require.NoError(t, svc.DeleteAnnouncement(ctx, res.ID))
	require.Equal(t, []string{res.ImageURL}, images.deleted)
	require.ErrorIs(t, svc.DeleteAnnouncement(ctx, res.ID), announcementService.ErrAnnouncementNotFound)

	_, err = svc.UpdateAnnouncement(ctx, res.ID, dto.AnnouncementInput{Content: "x"})
	require.ErrorIs(t, err, announcementService.ErrAnnouncementNotFound)
}

func TestFailedUploadWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, &memoryImages{uploadErr: errors.New("quota")})

	_, err := svc.AddAnnouncement(ctx, "admin", dto.AnnouncementInput{Content: "poster"}, &commonDto.UploadFile{
		Reader:   strings.NewReader("x"),
		FileName: "poster.png",
	})
	require.Error(t, err)

	docs, err := store.List(ctx, entity.AnnouncementsCollection)
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestImagesDisabled(t *testing.T) {
	ctx := context.Background()
	store, _ := docstoretest.New(t)
	require.NoError(t, store.Set(ctx, entity.UserPath("admin"), entity.NewUser(entity.Profile{UID: "admin", Name: "Ana"})))
	svc := announcementService.NewAnnouncementService(
		announcementRepo.NewAnnouncementRepository(store),
		userRepo.NewUserRepository(store),
		nil,
		searchService.NewNoopSearchService(),
		clubdate.FixedClock(now),
	)

	_, err := svc.AddAnnouncement(ctx, "admin", dto.AnnouncementInput{Content: "x"}, &commonDto.UploadFile{
		Reader:   strings.NewReader("x"),
		FileName: "a.png",
	})
	require.ErrorIs(t, err, announcementService.ErrImagesDisabled)
}

func TestListPaginates(t *testing.T) {
	svc, _ := newService(t, &memoryImages{})
	var all []entity.Announcement
	for i := 0; i < 25; i++ {
		all = append(all, entity.Announcement{ID: string(rune('a' + i)), Content: "x"})
	}

	res := svc.List(all, dto.ListQuery{PageQuery: commonDto.PageQuery{Page: 3}})
	require.Len(t, res.Data, 5)
	require.Equal(t, 3, res.Pagination.TotalPages)
	require.Equal(t, 25, res.Pagination.TotalItems)
	require.Equal(t, "u", res.Data[0].ID)
}
