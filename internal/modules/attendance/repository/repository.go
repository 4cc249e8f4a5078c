package repository

import (
	"context"
	"errors"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/pkg/docstore"
)

type AttendanceRepository interface {
	FindPending(ctx context.Context, dateKey string) (entity.AttendanceDay, error)
	// AddPending records member for dateKey. added is false when a pending
	// entry already existed.
	AddPending(ctx context.Context, dateKey string, member entity.AttendanceUser) (added bool, err error)
	// RemovePending drops uid from the day and deletes the day document once
	// it is empty.
	RemovePending(ctx context.Context, dateKey, uid string) (removed bool, err error)
	ListPendingDays(ctx context.Context) ([]string, error)
	DeletePendingDay(ctx context.Context, dateKey string) error

	LogAttendance(ctx context.Context, dateKey string, member entity.AttendanceUser) error
	FindLog(ctx context.Context, dateKey string) (entity.AttendanceDay, error)
}

type attendanceRepository struct {
	store docstore.Store
}

func NewAttendanceRepository(store docstore.Store) AttendanceRepository {
	return &attendanceRepository{store: store}
}

func (r *attendanceRepository) FindPending(ctx context.Context, dateKey string) (entity.AttendanceDay, error) {
	return r.findDay(ctx, entity.AttendanceRequestPath(dateKey))
}

func (r *attendanceRepository) FindLog(ctx context.Context, dateKey string) (entity.AttendanceDay, error) {
	return r.findDay(ctx, entity.AttendanceLogPath(dateKey))
}

func (r *attendanceRepository) findDay(ctx context.Context, path string) (entity.AttendanceDay, error) {
	day := entity.AttendanceDay{}
	if _, err := r.store.Get(ctx, path, &day); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	return day, nil
}

func (r *attendanceRepository) AddPending(ctx context.Context, dateKey string, member entity.AttendanceUser) (bool, error) {
	return r.addMember(ctx, entity.AttendanceRequestPath(dateKey), member)
}

func (r *attendanceRepository) LogAttendance(ctx context.Context, dateKey string, member entity.AttendanceUser) error {
	_, err := r.addMember(ctx, entity.AttendanceLogPath(dateKey), member)
	return err
}

func (r *attendanceRepository) addMember(ctx context.Context, path string, member entity.AttendanceUser) (bool, error) {
	added := false
	_, err := docstore.Mutate(ctx, r.store, path, func(day *entity.AttendanceDay, _ bool) (docstore.Action, error) {
		added = false
		if *day == nil {
			*day = entity.AttendanceDay{}
		}
		if _, ok := (*day)[member.UID]; ok {
			return docstore.Keep, nil
		}
		(*day)[member.UID] = member
		added = true
		return docstore.Write, nil
	})
	return added, err
}

func (r *attendanceRepository) RemovePending(ctx context.Context, dateKey, uid string) (bool, error) {
	removed := false
	_, err := docstore.Mutate(ctx, r.store, entity.AttendanceRequestPath(dateKey), func(day *entity.AttendanceDay, exists bool) (docstore.Action, error) {
		removed = false
		if !exists {
			return docstore.Keep, nil
		}
		if _, ok := (*day)[uid]; !ok {
			return docstore.Keep, nil
		}
		delete(*day, uid)
		removed = true
		if len(*day) == 0 {
			return docstore.Remove, nil
		}
		return docstore.Write, nil
	})
	return removed, err
}

func (r *attendanceRepository) ListPendingDays(ctx context.Context) ([]string, error) {
	docs, err := r.store.List(ctx, entity.AttendanceRequestsCollection)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		keys = append(keys, doc.ID())
	}
	return keys, nil
}

func (r *attendanceRepository) DeletePendingDay(ctx context.Context, dateKey string) error {
	return r.store.Delete(ctx, entity.AttendanceRequestPath(dateKey))
}
