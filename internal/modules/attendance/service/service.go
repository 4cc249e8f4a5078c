package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anoa.com/clubportal/internal/entity"
	attendanceRepo "anoa.com/clubportal/internal/modules/attendance/repository"
	"anoa.com/clubportal/internal/modules/attendance/dto"
	ledgerService "anoa.com/clubportal/internal/modules/ledger/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/clubdate"
	"anoa.com/clubportal/pkg/logger"
)

var ErrBadDateKey = fmt.Errorf("date must look like 5-1-2024: %w", apperror.ErrInvalidInput)

type AttendanceService interface {
	// RequestAttendance queues the member for today's meeting.
	RequestAttendance(ctx context.Context, uid string) (dto.Outcome, error)
	// ApproveAttendance awards the bonus, logs the member and clears the
	// request, in that order.
	ApproveAttendance(ctx context.Context, dateKey, uid string) (dto.Outcome, error)
	RejectAttendance(ctx context.Context, dateKey, uid string) (dto.Outcome, error)
	// MarkPresent awards today's bonus directly, without a request.
	MarkPresent(ctx context.Context, uid string) (dto.Outcome, error)
	// PendingRequests is the snapshot's queue minus optimistically settled entries.
	PendingRequests(view *liveService.View) entity.AttendanceMap
	// PruneStale deletes pending days older than retention. It never awards.
	PruneStale(ctx context.Context, retention time.Duration) (int, error)
}

type attendanceService struct {
	repo    attendanceRepo.AttendanceRepository
	users   userRepo.UserRepository
	ledger  ledgerService.LedgerService
	live    liveService.Synchronizer
	overlay *liveService.Overlay
	clock   clubdate.Clock
	bonus   int
}

func NewAttendanceService(
	repo attendanceRepo.AttendanceRepository,
	users userRepo.UserRepository,
	ledger ledgerService.LedgerService,
	live liveService.Synchronizer,
	clock clubdate.Clock,
	bonus int,
) AttendanceService {
	if bonus <= 0 {
		bonus = entity.DefaultAttendanceBonus
	}
	return &attendanceService{
		repo:    repo,
		users:   users,
		ledger:  ledger,
		live:    live,
		overlay: liveService.NewOverlay(),
		clock:   clock,
		bonus:   bonus,
	}
}

// CheckAlreadyMarked reports whether history holds the attendance award for
// the day shown as displayDate. Older entries used a lowercase reason, so the
// comparison ignores case.
func CheckAlreadyMarked(history []entity.PointEntry, displayDate string) bool {
	for _, entry := range history {
		if entry.DisplayDate == displayDate && strings.EqualFold(entry.Reason, entity.ReasonAttendance) {
			return true
		}
	}
	return false
}

func (s *attendanceService) RequestAttendance(ctx context.Context, uid string) (dto.Outcome, error) {
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return "", err
	}

	today := s.clock.Today()
	// the ledger wins over the queue
	if CheckAlreadyMarked(user.History, clubdate.KeyToDisplay(today)) {
		return dto.OutcomeAlreadyMarked, nil
	}

	added, err := s.repo.AddPending(ctx, today, user.Profile())
	if err != nil {
		logger.Error("attendance: request for %s on %s failed: %v", uid, today, err)
		return "", err
	}
	if !added {
		return dto.OutcomeAlreadyPending, nil
	}

	logger.Info("attendance: %s requested attendance for %s", uid, today)
	return dto.OutcomeRequested, nil
}

func (s *attendanceService) ApproveAttendance(ctx context.Context, dateKey, uid string) (dto.Outcome, error) {
	if err := s.validateKey(dateKey); err != nil {
		return "", err
	}

	day, err := s.repo.FindPending(ctx, dateKey)
	if err != nil {
		return "", err
	}
	member, ok := day[uid]
	if !ok {
		return dto.OutcomeNotPending, nil
	}

	key := overlayKey(dateKey, uid)
	s.overlay.Hide(key, s.live.Current().Version(liveService.TopicAttendance))

	outcome, err := s.settle(ctx, dateKey, member)
	if err != nil {
		s.overlay.Restore(key)
		return "", err
	}

	// a failed cleanup only leaves a stale request; the ledger guard keeps it harmless
	if _, err := s.repo.RemovePending(ctx, dateKey, uid); err != nil {
		logger.Warn("attendance: awarded %s for %s but could not clear the request: %v", uid, dateKey, err)
	}
	return outcome, nil
}

// settle awards the bonus for dateKey once and records the member in the log.
func (s *attendanceService) settle(ctx context.Context, dateKey string, member entity.AttendanceUser) (dto.Outcome, error) {
	displayDate := clubdate.KeyToDisplay(dateKey)
	entry := entity.PointEntry{
		Amount:      s.bonus,
		Reason:      entity.ReasonAttendance,
		DisplayDate: displayDate,
	}

	_, applied, err := s.ledger.AppendEntryOnce(ctx, member.UID, entry, func(history []entity.PointEntry) bool {
		return !CheckAlreadyMarked(history, displayDate)
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.LogAttendance(ctx, dateKey, member); err != nil {
		logger.Warn("attendance: could not log %s for %s: %v", member.UID, dateKey, err)
	}

	if !applied {
		return dto.OutcomeAlreadyMarked, nil
	}
	logger.Success("attendance: %s present on %s", member.UID, dateKey)
	return dto.OutcomeApproved, nil
}

func (s *attendanceService) RejectAttendance(ctx context.Context, dateKey, uid string) (dto.Outcome, error) {
	if err := s.validateKey(dateKey); err != nil {
		return "", err
	}

	key := overlayKey(dateKey, uid)
	s.overlay.Hide(key, s.live.Current().Version(liveService.TopicAttendance))

	removed, err := s.repo.RemovePending(ctx, dateKey, uid)
	if err != nil {
		s.overlay.Restore(key)
		return "", err
	}
	if !removed {
		return dto.OutcomeNotPending, nil
	}

	logger.Info("attendance: rejected %s for %s", uid, dateKey)
	return dto.OutcomeRejected, nil
}

func (s *attendanceService) MarkPresent(ctx context.Context, uid string) (dto.Outcome, error) {
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return "", err
	}

	today := s.clock.Today()
	outcome, err := s.settle(ctx, today, user.Profile())
	if err != nil {
		return "", err
	}

	// a same-day request is settled by this award
	if _, err := s.repo.RemovePending(ctx, today, uid); err != nil {
		logger.Warn("attendance: could not clear today's request for %s: %v", uid, err)
	}
	return outcome, nil
}

func (s *attendanceService) PendingRequests(view *liveService.View) entity.AttendanceMap {
	version := view.Version(liveService.TopicAttendance)

	pending := make(entity.AttendanceMap, len(view.Attendance))
	for dateKey, day := range view.Attendance {
		visible := make(entity.AttendanceDay, len(day))
		for uid, member := range day {
			if s.overlay.Hidden(overlayKey(dateKey, uid), version) {
				continue
			}
			visible[uid] = member
		}
		if len(visible) > 0 {
			pending[dateKey] = visible
		}
	}
	return pending
}

func (s *attendanceService) PruneStale(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}

	keys, err := s.repo.ListPendingDays(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.clock.Now().Add(-retention)
	pruned := 0
	for _, key := range keys {
		day, err := clubdate.Parse(key, s.clock.Location())
		if err != nil {
			logger.Warn("attendance: skipping pending day with bad key %q", key)
			continue
		}
		// the whole day must be past the cutoff
		if !day.AddDate(0, 0, 1).Before(cutoff) {
			continue
		}
		if err := s.repo.DeletePendingDay(ctx, key); err != nil {
			return pruned, err
		}
		pruned++
	}

	if pruned > 0 {
		logger.Info("attendance: pruned %d stale pending day(s)", pruned)
	}
	return pruned, nil
}

func (s *attendanceService) validateKey(dateKey string) error {
	if _, err := clubdate.Parse(dateKey, s.clock.Location()); err != nil {
		return ErrBadDateKey
	}
	return nil
}

func overlayKey(dateKey, uid string) string {
	return dateKey + "/" + uid
}
