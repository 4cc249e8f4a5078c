package service_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"anoa.com/clubportal/internal/entity"
	attendanceRepo "anoa.com/clubportal/internal/modules/attendance/repository"
	"anoa.com/clubportal/internal/modules/attendance/dto"
	attendanceService "anoa.com/clubportal/internal/modules/attendance/service"
	ledgerService "anoa.com/clubportal/internal/modules/ledger/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	"anoa.com/clubportal/pkg/clubdate"
	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/docstore/docstoretest"
	"github.com/stretchr/testify/require"
)

var may1 = time.Date(2024, time.May, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	store   docstore.Store
	users   userRepo.UserRepository
	repo    attendanceRepo.AttendanceRepository
	live    liveService.Synchronizer
	service attendanceService.AttendanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, _ := docstoretest.New(t)
	clock := clubdate.FixedClock(may1)
	users := userRepo.NewUserRepository(store)
	repo := attendanceRepo.NewAttendanceRepository(store)
	live := liveService.NewSynchronizer(store, liveService.NewLocalBroker())
	ledger := ledgerService.NewLedgerService(users, clock)

	return &fixture{
		store:   store,
		users:   users,
		repo:    repo,
		live:    live,
		service: attendanceService.NewAttendanceService(repo, users, ledger, live, clock, 0),
	}
}

func (f *fixture) addUser(t *testing.T, uid string, history ...entity.PointEntry) {
	t.Helper()
	user := entity.NewUser(entity.Profile{UID: uid, Name: uid})
	if len(history) > 0 {
		user.History = history
	}
	require.NoError(t, f.store.Set(context.Background(), entity.UserPath(uid), user))
}

func (f *fixture) history(t *testing.T, uid string) []entity.PointEntry {
	t.Helper()
	user, err := f.users.FindByID(context.Background(), uid)
	require.NoError(t, err)
	return user.History
}

func TestRequestThenApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1")

	outcome, err := f.service.RequestAttendance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeRequested, outcome)

	day, err := f.repo.FindPending(ctx, "5-1-2024")
	require.NoError(t, err)
	require.Contains(t, day, "u1")

	outcome, err = f.service.ApproveAttendance(ctx, "5-1-2024", "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeApproved, outcome)

	history := f.history(t, "u1")
	require.Len(t, history, 1)
	require.Equal(t, 50, history[0].Amount)
	require.Equal(t, "Attending meeting", history[0].Reason)
	require.Equal(t, "5/1/2024", history[0].DisplayDate)

	// the emptied day document is gone, not left as a placeholder
	_, err = f.store.Get(ctx, entity.AttendanceRequestPath("5-1-2024"), nil)
	require.ErrorIs(t, err, docstore.ErrNotFound)

	logged, err := f.repo.FindLog(ctx, "5-1-2024")
	require.NoError(t, err)
	require.Equal(t, "u1", logged["u1"].UID)
}

func TestDuplicateRequestKeepsOneEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1")

	_, err := f.service.RequestAttendance(ctx, "u1")
	require.NoError(t, err)
	outcome, err := f.service.RequestAttendance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeAlreadyPending, outcome)

	day, err := f.repo.FindPending(ctx, "5-1-2024")
	require.NoError(t, err)
	require.Len(t, day, 1)
}

func TestRequestBlockedByLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// legacy lowercase reason still counts as today's award
	f.addUser(t, "u1", entity.PointEntry{Amount: 50, Reason: "attending meeting", DisplayDate: "5/1/2024"})

	outcome, err := f.service.RequestAttendance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeAlreadyMarked, outcome)

	day, err := f.repo.FindPending(ctx, "5-1-2024")
	require.NoError(t, err)
	require.Empty(t, day)
}

func TestRequestUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.RequestAttendance(context.Background(), "ghost")
	require.ErrorIs(t, err, userRepo.ErrUserNotFound)
}

func TestRejectLeavesLedgerAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1")
	f.addUser(t, "u2")
	_, err := f.service.RequestAttendance(ctx, "u1")
	require.NoError(t, err)
	_, err = f.service.RequestAttendance(ctx, "u2")
	require.NoError(t, err)

	outcome, err := f.service.RejectAttendance(ctx, "5-1-2024", "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeRejected, outcome)
	require.Empty(t, f.history(t, "u1"))

	day, err := f.repo.FindPending(ctx, "5-1-2024")
	require.NoError(t, err)
	require.Equal(t, []string{"u2"}, keys(day))

	outcome, err = f.service.RejectAttendance(ctx, "5-1-2024", "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeNotPending, outcome)
}

func TestApproveTwiceAwardsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1")
	_, err := f.service.RequestAttendance(ctx, "u1")
	require.NoError(t, err)

	_, err = f.service.ApproveAttendance(ctx, "5-1-2024", "u1")
	require.NoError(t, err)
	outcome, err := f.service.ApproveAttendance(ctx, "5-1-2024", "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeNotPending, outcome)

	// a stale request resurfacing for an awarded day is cleared without a second award
	_, err = f.repo.AddPending(ctx, "5-1-2024", entity.AttendanceUser{UID: "u1"})
	require.NoError(t, err)
	outcome, err = f.service.ApproveAttendance(ctx, "5-1-2024", "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeAlreadyMarked, outcome)

	require.Len(t, f.history(t, "u1"), 1)
	day, err := f.repo.FindPending(ctx, "5-1-2024")
	require.NoError(t, err)
	require.Empty(t, day)
}

func TestApproveEarlierDayUsesThatDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1")
	_, err := f.repo.AddPending(ctx, "4-30-2024", entity.AttendanceUser{UID: "u1"})
	require.NoError(t, err)

	outcome, err := f.service.ApproveAttendance(ctx, "4-30-2024", "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeApproved, outcome)

	history := f.history(t, "u1")
	require.Equal(t, "4/30/2024", history[0].DisplayDate)
	require.Equal(t, may1.UnixMilli(), history[0].TimestampMs)

	// today's request is still allowed
	outcome, err = f.service.RequestAttendance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeRequested, outcome)
}

func TestApproveRejectsBadDateKey(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ApproveAttendance(context.Background(), "2024-05-01", "u1")
	require.ErrorIs(t, err, attendanceService.ErrBadDateKey)
}

func TestMarkPresent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1")
	_, err := f.service.RequestAttendance(ctx, "u1")
	require.NoError(t, err)

	outcome, err := f.service.MarkPresent(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeApproved, outcome)

	outcome, err = f.service.MarkPresent(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, dto.OutcomeAlreadyMarked, outcome)

	require.Len(t, f.history(t, "u1"), 1)
	day, err := f.repo.FindPending(ctx, "5-1-2024")
	require.NoError(t, err)
	require.Empty(t, day)
}

func TestPendingRequestsOverlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1")
	f.addUser(t, "u2")
	for _, uid := range []string{"u1", "u2"} {
		_, err := f.service.RequestAttendance(ctx, uid)
		require.NoError(t, err)
	}
	// u3 has a request but no user document, so approving it fails
	_, err := f.repo.AddPending(ctx, "5-1-2024", entity.AttendanceUser{UID: "u3"})
	require.NoError(t, err)
	require.NoError(t, f.live.Refresh(ctx, liveService.TopicAttendance))

	stale := f.live.Current()
	require.Len(t, f.service.PendingRequests(stale)["5-1-2024"], 3)

	_, err = f.service.RejectAttendance(ctx, "5-1-2024", "u1")
	require.NoError(t, err)
	_, err = f.service.ApproveAttendance(ctx, "5-1-2024", "u3")
	require.ErrorIs(t, err, userRepo.ErrUserNotFound)

	// u1 is hidden before the snapshot catches up; the failed u3 approval was reverted
	require.Equal(t, []string{"u2", "u3"}, keys(f.service.PendingRequests(stale)["5-1-2024"]))

	require.NoError(t, f.live.Refresh(ctx, liveService.TopicAttendance))
	require.Equal(t, []string{"u2", "u3"}, keys(f.service.PendingRequests(f.live.Current())["5-1-2024"]))
}

func TestPruneStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, key := range []string{"4-1-2024", "4-29-2024", "5-1-2024"} {
		_, err := f.repo.AddPending(ctx, key, entity.AttendanceUser{UID: "u1"})
		require.NoError(t, err)
	}

	pruned, err := f.service.PruneStale(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, pruned)

	pruned, err = f.service.PruneStale(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, pruned)

	days, err := f.repo.ListPendingDays(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"4-29-2024", "5-1-2024"}, days)

	// pruning never touches the ledger
	users, err := f.store.List(ctx, entity.UsersCollection)
	require.NoError(t, err)
	require.Empty(t, users)
}

func keys(day entity.AttendanceDay) []string {
	out := make([]string, 0, len(day))
	for uid := range day {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}
