package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/docstore"
)

var ErrRequestNotFound = fmt.Errorf("admin request %w", apperror.ErrNotFound)

type AdminRepository interface {
	AdminIDs(ctx context.Context) (entity.AdminIDs, error)
	// AddAdminID appends uid to admins/admins unless present.
	AddAdminID(ctx context.Context, uid string) (added bool, err error)
	RemoveAdminID(ctx context.Context, uid string) (removed bool, err error)

	FindProfile(ctx context.Context, uid string) (entity.AdminProfile, error)
	SaveProfile(ctx context.Context, profile entity.AdminProfile) error
	DeleteProfile(ctx context.Context, uid string) error

	FindRequest(ctx context.Context, uid string) (entity.AdminProfile, error)
	SaveRequest(ctx context.Context, profile entity.AdminProfile) error
	DeleteRequest(ctx context.Context, uid string) error

	// Transaction runs fn against a repository whose writes commit together.
	Transaction(ctx context.Context, fn func(tx AdminRepository) error) error
}

type adminRepository struct {
	store docstore.Store
}

func NewAdminRepository(store docstore.Store) AdminRepository {
	return &adminRepository{store: store}
}

func (r *adminRepository) AdminIDs(ctx context.Context) (entity.AdminIDs, error) {
	var ids entity.AdminIDs
	if _, err := r.store.Get(ctx, entity.AdminIDsPath, &ids); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return entity.AdminIDs{}, err
	}
	return ids, nil
}

func (r *adminRepository) AddAdminID(ctx context.Context, uid string) (bool, error) {
	added := false
	_, err := docstore.Mutate(ctx, r.store, entity.AdminIDsPath, func(ids *entity.AdminIDs, _ bool) (docstore.Action, error) {
		added = false
		if ids.Contains(uid) {
			return docstore.Keep, nil
		}
		ids.IDs = append(ids.IDs, uid)
		added = true
		return docstore.Write, nil
	})
	return added, err
}

func (r *adminRepository) RemoveAdminID(ctx context.Context, uid string) (bool, error) {
	removed := false
	_, err := docstore.Mutate(ctx, r.store, entity.AdminIDsPath, func(ids *entity.AdminIDs, exists bool) (docstore.Action, error) {
		removed = false
		if !exists || !ids.Contains(uid) {
			return docstore.Keep, nil
		}
		kept := make([]string, 0, len(ids.IDs))
		for _, id := range ids.IDs {
			if id != uid {
				kept = append(kept, id)
			}
		}
		ids.IDs = kept
		removed = true
		return docstore.Write, nil
	})
	return removed, err
}

func (r *adminRepository) FindProfile(ctx context.Context, uid string) (entity.AdminProfile, error) {
	var profile entity.AdminProfile
	if _, err := r.store.Get(ctx, entity.AdminProfilePath(uid), &profile); err != nil {
		return entity.AdminProfile{}, err
	}
	return profile, nil
}

func (r *adminRepository) SaveProfile(ctx context.Context, profile entity.AdminProfile) error {
	return r.store.Set(ctx, entity.AdminProfilePath(profile.UID), profile)
}

func (r *adminRepository) DeleteProfile(ctx context.Context, uid string) error {
	return r.store.Delete(ctx, entity.AdminProfilePath(uid))
}

func (r *adminRepository) FindRequest(ctx context.Context, uid string) (entity.AdminProfile, error) {
	var profile entity.AdminProfile
	if _, err := r.store.Get(ctx, entity.AdminRequestPath(uid), &profile); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return entity.AdminProfile{}, ErrRequestNotFound
		}
		return entity.AdminProfile{}, err
	}
	return profile, nil
}

func (r *adminRepository) SaveRequest(ctx context.Context, profile entity.AdminProfile) error {
	return r.store.Set(ctx, entity.AdminRequestPath(profile.UID), profile)
}

func (r *adminRepository) DeleteRequest(ctx context.Context, uid string) error {
	return r.store.Delete(ctx, entity.AdminRequestPath(uid))
}

func (r *adminRepository) Transaction(ctx context.Context, fn func(tx AdminRepository) error) error {
	return r.store.RunInTransaction(ctx, func(tx docstore.Store) error {
		return fn(&adminRepository{store: tx})
	})
}
