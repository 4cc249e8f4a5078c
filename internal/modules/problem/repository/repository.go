package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/docstore"
)

var (
	ErrProblemNotFound = fmt.Errorf("problem %w", apperror.ErrNotFound)
	ErrProblemExists   = fmt.Errorf("a problem with this title already exists: %w", apperror.ErrConflict)
)

// ProblemRepository keys problems by title.
type ProblemRepository interface {
	FindByTitle(ctx context.Context, title string) (entity.Problem, error)
	Create(ctx context.Context, problem entity.Problem) error
	Save(ctx context.Context, problem entity.Problem) error
	Delete(ctx context.Context, title string) error
}

type problemRepository struct {
	store docstore.Store
}

func NewProblemRepository(store docstore.Store) ProblemRepository {
	return &problemRepository{store: store}
}

func (r *problemRepository) FindByTitle(ctx context.Context, title string) (entity.Problem, error) {
	var problem entity.Problem
	if _, err := r.store.Get(ctx, entity.ProblemPath(title), &problem); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return entity.Problem{}, ErrProblemNotFound
		}
		return entity.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) Create(ctx context.Context, problem entity.Problem) error {
	_, err := r.store.CompareAndSet(ctx, entity.ProblemPath(problem.Title), 0, problem)
	if errors.Is(err, docstore.ErrConflict) {
		return ErrProblemExists
	}
	return err
}

func (r *problemRepository) Save(ctx context.Context, problem entity.Problem) error {
	return r.store.Set(ctx, entity.ProblemPath(problem.Title), problem)
}

func (r *problemRepository) Delete(ctx context.Context, title string) error {
	return r.store.Delete(ctx, entity.ProblemPath(title))
}
