package service_test

import (
	"context"
	"sync"
	"testing"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/problem/dto"
	problemRepo "anoa.com/clubportal/internal/modules/problem/repository"
	problemService "anoa.com/clubportal/internal/modules/problem/service"
	searchDto "anoa.com/clubportal/internal/modules/search/dto"
	searchService "anoa.com/clubportal/internal/modules/search/service"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/docstore/docstoretest"
	"github.com/stretchr/testify/require"
)

// indexSpy remembers what is currently indexed.
type indexSpy struct {
	mu      sync.Mutex
	indexed map[string]bool
}

func (s *indexSpy) IndexChallenge(context.Context, entity.Challenge) error       { return nil }
func (s *indexSpy) IndexAnnouncement(context.Context, entity.Announcement) error { return nil }

func (s *indexSpy) IndexProblem(_ context.Context, p entity.Problem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed[p.Title] = true
	return nil
}

func (s *indexSpy) Delete(_ context.Context, index, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index == searchService.IndexProblems {
		delete(s.indexed, key)
	}
	return nil
}

func (s *indexSpy) Search(context.Context, searchDto.SearchQuery) (*searchDto.SearchResponse, error) {
	return &searchDto.SearchResponse{}, nil
}

func TestProblemLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := docstoretest.New(t)
	repo := problemRepo.NewProblemRepository(store)
	spy := &indexSpy{indexed: map[string]bool{}}
	svc := problemService.NewProblemService(repo, spy)

	_, err := svc.AddProblem(ctx, dto.ProblemInput{Title: "Broken projector", Severity: "high"})
	require.NoError(t, err)

	_, err = svc.AddProblem(ctx, dto.ProblemInput{Title: "Broken projector", Severity: "low"})
	require.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.AddProblem(ctx, dto.ProblemInput{Title: "x", Severity: "urgent"})
	require.ErrorIs(t, err, problemService.ErrBadSeverity)

	moved, err := svc.ReplaceProblem(ctx, "Broken projector", dto.ProblemInput{
		Title:       "Projector / room 2",
		Description: "no signal",
		Severity:    "medium",
	})
	require.NoError(t, err)
	require.Equal(t, entity.SeverityMedium, moved.Severity)

	_, err = repo.FindByTitle(ctx, "Broken projector")
	require.ErrorIs(t, err, problemRepo.ErrProblemNotFound)
	got, err := repo.FindByTitle(ctx, "Projector / room 2")
	require.NoError(t, err)
	require.Equal(t, "no signal", got.Description)
	require.Equal(t, map[string]bool{"Projector / room 2": true}, spy.indexed)

	require.NoError(t, svc.DeleteProblem(ctx, "Projector / room 2"))
	require.ErrorIs(t, svc.DeleteProblem(ctx, "Projector / room 2"), apperror.ErrNotFound)
	require.Empty(t, spy.indexed)
}

func TestListFiltersBySeverity(t *testing.T) {
	svc := problemService.NewProblemService(nil, searchService.NewNoopSearchService())
	problems := []entity.Problem{
		{Title: "a", Severity: entity.SeverityLow},
		{Title: "b", Severity: entity.SeverityHigh},
	}

	require.Len(t, svc.List(problems, ""), 2)
	high := svc.List(problems, "high")
	require.Len(t, high, 1)
	require.Equal(t, "b", high[0].Title)
}
