package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/docstore"
)

var ErrUserNotFound = fmt.Errorf("user %w", apperror.ErrNotFound)

type UserRepository interface {
	FindByID(ctx context.Context, uid string) (entity.User, error)
	// GetOrCreate returns users/{uid}, writing the default document on first use.
	GetOrCreate(ctx context.Context, profile entity.Profile) (entity.User, bool, error)
	// MutateUser runs fn against a fresh copy of the user inside a conditional
	// write; fn returns false to leave the document unchanged.
	MutateUser(ctx context.Context, uid string, fn func(user *entity.User) (bool, error)) (entity.User, error)
	Delete(ctx context.Context, uid string) error
}

type userRepository struct {
	store docstore.Store
}

func NewUserRepository(store docstore.Store) UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) FindByID(ctx context.Context, uid string) (entity.User, error) {
	var user entity.User
	if _, err := r.store.Get(ctx, entity.UserPath(uid), &user); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return entity.User{}, ErrUserNotFound
		}
		return entity.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetOrCreate(ctx context.Context, profile entity.Profile) (entity.User, bool, error) {
	return docstore.GetOrCreate(ctx, r.store, entity.UserPath(profile.UID), entity.NewUser(profile))
}

func (r *userRepository) MutateUser(ctx context.Context, uid string, fn func(user *entity.User) (bool, error)) (entity.User, error) {
	return docstore.Mutate(ctx, r.store, entity.UserPath(uid), func(user *entity.User, exists bool) (docstore.Action, error) {
		if !exists {
			return docstore.Keep, ErrUserNotFound
		}
		changed, err := fn(user)
		if err != nil || !changed {
			return docstore.Keep, err
		}
		return docstore.Write, nil
	})
}

func (r *userRepository) Delete(ctx context.Context, uid string) error {
	return r.store.Delete(ctx, entity.UserPath(uid))
}
