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
	ErrChallengeNotFound = fmt.Errorf("challenge %w", apperror.ErrNotFound)
	ErrChallengeExists   = fmt.Errorf("challenge already exists: %w", apperror.ErrConflict)
)

type ChallengeRepository interface {
	FindByID(ctx context.Context, id string) (entity.Challenge, error)
	FindAll(ctx context.Context) ([]entity.Challenge, error)
	// Create fails with ErrChallengeExists when the key is taken.
	Create(ctx context.Context, challenge entity.Challenge) error
	Save(ctx context.Context, challenge entity.Challenge) error
	Delete(ctx context.Context, id string) error
}

// ProgressRepository owns users/{uid}/challenges/{id}.
type ProgressRepository interface {
	// GetOrCreate is the single place a progress record is initialised.
	GetOrCreate(ctx context.Context, uid, challengeID string) (entity.ChallengeProgress, error)
	// SaveCode persists code while the record is still in progress.
	SaveCode(ctx context.Context, uid, challengeID string, code map[string]string) (saved bool, progress entity.ChallengeProgress, err error)
	// Transition moves status from -> to. moved is false when the persisted
	// status was not from, so only one caller can win a transition.
	Transition(ctx context.Context, uid, challengeID string, from, to entity.ChallengeStatus) (moved bool, err error)
	DeleteAll(ctx context.Context, uid string) error
}

type challengeRepository struct {
	store docstore.Store
}

func NewChallengeRepository(store docstore.Store) ChallengeRepository {
	return &challengeRepository{store: store}
}

func (r *challengeRepository) FindByID(ctx context.Context, id string) (entity.Challenge, error) {
	var challenge entity.Challenge
	if _, err := r.store.Get(ctx, entity.ChallengePath(id), &challenge); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return entity.Challenge{}, ErrChallengeNotFound
		}
		return entity.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) FindAll(ctx context.Context) ([]entity.Challenge, error) {
	docs, err := r.store.List(ctx, entity.ChallengesCollection)
	if err != nil {
		return nil, err
	}
	challenges := make([]entity.Challenge, 0, len(docs))
	for _, doc := range docs {
		var c entity.Challenge
		if err := doc.Decode(&c); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

func (r *challengeRepository) Create(ctx context.Context, challenge entity.Challenge) error {
	_, err := r.store.CompareAndSet(ctx, entity.ChallengePath(challenge.ID), 0, challenge)
	if errors.Is(err, docstore.ErrConflict) {
		return ErrChallengeExists
	}
	return err
}

func (r *challengeRepository) Save(ctx context.Context, challenge entity.Challenge) error {
	return r.store.Set(ctx, entity.ChallengePath(challenge.ID), challenge)
}

func (r *challengeRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, entity.ChallengePath(id))
}

type progressRepository struct {
	store docstore.Store
}

func NewProgressRepository(store docstore.Store) ProgressRepository {
	return &progressRepository{store: store}
}

func (r *progressRepository) GetOrCreate(ctx context.Context, uid, challengeID string) (entity.ChallengeProgress, error) {
	progress, _, err := docstore.GetOrCreate(ctx, r.store, entity.ProgressPath(uid, challengeID), entity.NewChallengeProgress(challengeID))
	return progress, err
}

func (r *progressRepository) SaveCode(ctx context.Context, uid, challengeID string, code map[string]string) (bool, entity.ChallengeProgress, error) {
	saved := false
	progress, err := docstore.Mutate(ctx, r.store, entity.ProgressPath(uid, challengeID), func(p *entity.ChallengeProgress, exists bool) (docstore.Action, error) {
		saved = false
		if !exists {
			*p = entity.NewChallengeProgress(challengeID)
		}
		if p.Complete() {
			return docstore.Keep, nil
		}
		if p.Code == nil {
			p.Code = make(map[string]string, len(code))
		}
		for lang, src := range code {
			p.Code[lang] = src
		}
		saved = true
		return docstore.Write, nil
	})
	return saved, progress, err
}

func (r *progressRepository) Transition(ctx context.Context, uid, challengeID string, from, to entity.ChallengeStatus) (bool, error) {
	moved := false
	_, err := docstore.Mutate(ctx, r.store, entity.ProgressPath(uid, challengeID), func(p *entity.ChallengeProgress, exists bool) (docstore.Action, error) {
		moved = false
		if !exists || p.Status != from {
			return docstore.Keep, nil
		}
		p.Status = to
		moved = true
		return docstore.Write, nil
	})
	return moved, err
}

func (r *progressRepository) DeleteAll(ctx context.Context, uid string) error {
	collection := entity.UserPath(uid) + "/challenges"
	docs, err := r.store.List(ctx, collection)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := r.store.Delete(ctx, doc.Path); err != nil {
			return err
		}
	}
	return nil
}
