package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/ledger/dto"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/clubdate"
	"anoa.com/clubportal/pkg/logger"
)

var (
	ErrUserNotFound = userRepo.ErrUserNotFound
	ErrZeroAmount   = fmt.Errorf("amount must not be zero: %w", apperror.ErrInvalidInput)
	ErrNotAdmin     = fmt.Errorf("admin access required: %w", apperror.ErrForbidden)
)

// Guard inspects the freshly read history and reports whether the new
// entry may be appended.
type Guard func(history []entity.PointEntry) bool

type LedgerService interface {
	// AppendPoints prepends one entry to the user's history.
	AppendPoints(ctx context.Context, uid, reason string, amount int) (entity.PointEntry, error)
	// AppendPointsOnce is AppendPoints with guard evaluated inside the same
	// conditional write. applied is false when the guard refused.
	AppendPointsOnce(ctx context.Context, uid, reason string, amount int, guard Guard) (entry entity.PointEntry, applied bool, err error)
	// AppendEntryOnce appends a prepared entry. A zero timestamp or empty
	// display date is filled from the clock.
	AppendEntryOnce(ctx context.Context, uid string, entry entity.PointEntry, guard Guard) (entity.PointEntry, bool, error)
	// GrantPoints is a signed manual adjustment made by an admin.
	GrantPoints(ctx context.Context, admins entity.AdminSet, actorUID, uid string, input dto.GrantPointsInput) (entity.PointEntry, error)
	Points(ctx context.Context, uid string) (*dto.PointsResponse, error)
	Leaderboard(users []entity.User, limit int) []dto.LeaderboardEntry
}

type ledgerService struct {
	users userRepo.UserRepository
	clock clubdate.Clock
}

func NewLedgerService(users userRepo.UserRepository, clock clubdate.Clock) LedgerService {
	return &ledgerService{users: users, clock: clock}
}

func (s *ledgerService) stamp(entry entity.PointEntry) entity.PointEntry {
	now := s.clock.Now()
	if entry.TimestampMs == 0 {
		entry.TimestampMs = now.UnixMilli()
	}
	if entry.DisplayDate == "" {
		entry.DisplayDate = clubdate.Display(now)
	}
	return entry
}

func (s *ledgerService) AppendPoints(ctx context.Context, uid, reason string, amount int) (entity.PointEntry, error) {
	entry, _, err := s.AppendPointsOnce(ctx, uid, reason, amount, nil)
	return entry, err
}

func (s *ledgerService) AppendPointsOnce(ctx context.Context, uid, reason string, amount int, guard Guard) (entity.PointEntry, bool, error) {
	return s.AppendEntryOnce(ctx, uid, entity.PointEntry{Amount: amount, Reason: reason}, guard)
}

func (s *ledgerService) AppendEntryOnce(ctx context.Context, uid string, entry entity.PointEntry, guard Guard) (entity.PointEntry, bool, error) {
	entry = s.stamp(entry)
	applied := false

	_, err := s.users.MutateUser(ctx, uid, func(user *entity.User) (bool, error) {
		// reset on every attempt; a retried write starts from a fresh read
		applied = false
		if guard != nil && !guard(user.History) {
			return false, nil
		}
		history := make([]entity.PointEntry, 0, len(user.History)+1)
		history = append(history, entry)
		user.History = append(history, user.History...)
		applied = true
		return true, nil
	})
	if err != nil {
		logger.Error("ledger: append %d (%s) for %s failed: %v", entry.Amount, entry.Reason, uid, err)
		return entity.PointEntry{}, false, err
	}

	if applied {
		logger.Success("ledger: %s %+d (%s)", uid, entry.Amount, entry.Reason)
	}
	return entry, applied, nil
}

func (s *ledgerService) GrantPoints(ctx context.Context, admins entity.AdminSet, actorUID, uid string, input dto.GrantPointsInput) (entity.PointEntry, error) {
	if !admins.Contains(actorUID) {
		return entity.PointEntry{}, ErrNotAdmin
	}
	if input.Amount == 0 {
		return entity.PointEntry{}, ErrZeroAmount
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = entity.ReasonFromAdmin
	}
	return s.AppendPoints(ctx, uid, reason, input.Amount)
}

func (s *ledgerService) Points(ctx context.Context, uid string) (*dto.PointsResponse, error) {
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	points := user.Points()
	history := user.History
	if history == nil {
		history = []entity.PointEntry{}
	}
	return &dto.PointsResponse{
		UID:     user.UID,
		Points:  points,
		History: history,
		Status:  GetRankStatus(points, WeeklyPoints(user.History, s.clock.Now())),
	}, nil
}

// Leaderboard ranks users by total points, ties broken by name. A limit of 0
// returns everyone.
func (s *ledgerService) Leaderboard(users []entity.User, limit int) []dto.LeaderboardEntry {
	now := s.clock.Now()

	entries := make([]dto.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		points := u.Points()
		entries = append(entries, dto.LeaderboardEntry{
			Profile: u.Profile(),
			Points:  points,
			Status:  GetRankStatus(points, WeeklyPoints(u.History, now)),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Profile.Name < entries[j].Profile.Name
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
