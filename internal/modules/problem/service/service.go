package service

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/problem/dto"
	"anoa.com/clubportal/internal/modules/problem/repository"
	searchService "anoa.com/clubportal/internal/modules/search/service"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/logger"
)

var (
	ErrProblemNotFound = repository.ErrProblemNotFound
	ErrTitleRequired   = fmt.Errorf("problem title is required: %w", apperror.ErrInvalidInput)
	ErrBadSeverity     = fmt.Errorf("severity must be low, medium or high: %w", apperror.ErrInvalidInput)
)

type ProblemService interface {
	AddProblem(ctx context.Context, input dto.ProblemInput) (entity.Problem, error)
	// ReplaceProblem rewrites the problem and moves it when the title changed.
	ReplaceProblem(ctx context.Context, fromTitle string, input dto.ProblemInput) (entity.Problem, error)
	DeleteProblem(ctx context.Context, title string) error
	// List filters the snapshot's problems by severity when one is given.
	List(problems []entity.Problem, severity string) []entity.Problem
}

type problemService struct {
	repo   repository.ProblemRepository
	search searchService.SearchService
}

func NewProblemService(repo repository.ProblemRepository, search searchService.SearchService) ProblemService {
	return &problemService{repo: repo, search: search}
}

func validate(p entity.Problem) error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrTitleRequired
	}
	if !p.Severity.Valid() {
		return ErrBadSeverity
	}
	return nil
}

func (s *problemService) AddProblem(ctx context.Context, input dto.ProblemInput) (entity.Problem, error) {
	problem := input.Problem()
	if err := validate(problem); err != nil {
		return entity.Problem{}, err
	}
	if err := s.repo.Create(ctx, problem); err != nil {
		return entity.Problem{}, err
	}

	s.index(ctx, problem)
	return problem, nil
}

func (s *problemService) ReplaceProblem(ctx context.Context, fromTitle string, input dto.ProblemInput) (entity.Problem, error) {
	problem := input.Problem()
	if err := validate(problem); err != nil {
		return entity.Problem{}, err
	}
	if _, err := s.repo.FindByTitle(ctx, fromTitle); err != nil {
		return entity.Problem{}, err
	}

	if problem.Title == fromTitle {
		if err := s.repo.Save(ctx, problem); err != nil {
			return entity.Problem{}, err
		}
		s.index(ctx, problem)
		return problem, nil
	}

	if err := s.repo.Create(ctx, problem); err != nil {
		return entity.Problem{}, err
	}
	if err := s.repo.Delete(ctx, fromTitle); err != nil {
		return entity.Problem{}, fmt.Errorf("remove renamed problem %q: %w", fromTitle, err)
	}

	s.unindex(ctx, fromTitle)
	s.index(ctx, problem)
	return problem, nil
}

func (s *problemService) DeleteProblem(ctx context.Context, title string) error {
	if _, err := s.repo.FindByTitle(ctx, title); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, title); err != nil {
		return err
	}
	s.unindex(ctx, title)
	return nil
}

func (s *problemService) List(problems []entity.Problem, severity string) []entity.Problem {
	out := make([]entity.Problem, 0, len(problems))
	for _, p := range problems {
		if severity == "" || string(p.Severity) == severity {
			out = append(out, p)
		}
	}
	return out
}

func (s *problemService) index(ctx context.Context, p entity.Problem) {
	if err := s.search.IndexProblem(ctx, p); err != nil {
		logger.Warn("problem: failed to index %q: %v", p.Title, err)
	}
}

func (s *problemService) unindex(ctx context.Context, title string) {
	if err := s.search.Delete(ctx, searchService.IndexProblems, title); err != nil {
		logger.Warn("problem: failed to remove %q from search: %v", title, err)
	}
}
