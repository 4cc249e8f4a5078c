package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/docstore"
)

var ErrAnnouncementNotFound = fmt.Errorf("announcement %w", apperror.ErrNotFound)

type AnnouncementRepository interface {
	FindByID(ctx context.Context, id string) (entity.Announcement, error)
	Create(ctx context.Context, announcement entity.Announcement) error
	// UpdateContent edits only the content field.
	UpdateContent(ctx context.Context, id, content string) (entity.Announcement, error)
	Delete(ctx context.Context, id string) error
}

type announcementRepository struct {
	store docstore.Store
}

func NewAnnouncementRepository(store docstore.Store) AnnouncementRepository {
	return &announcementRepository{store: store}
}

func (r *announcementRepository) FindByID(ctx context.Context, id string) (entity.Announcement, error) {
	var a entity.Announcement
	if _, err := r.store.Get(ctx, entity.AnnouncementPath(id), &a); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return entity.Announcement{}, ErrAnnouncementNotFound
		}
		return entity.Announcement{}, err
	}
	return a, nil
}

func (r *announcementRepository) Create(ctx context.Context, a entity.Announcement) error {
	_, err := r.store.CompareAndSet(ctx, entity.AnnouncementPath(a.ID), 0, a)
	return err
}

func (r *announcementRepository) UpdateContent(ctx context.Context, id, content string) (entity.Announcement, error) {
	if err := r.store.Update(ctx, entity.AnnouncementPath(id), map[string]any{"content": content}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return entity.Announcement{}, ErrAnnouncementNotFound
		}
		return entity.Announcement{}, err
	}
	return r.FindByID(ctx, id)
}

func (r *announcementRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, entity.AnnouncementPath(id))
}
