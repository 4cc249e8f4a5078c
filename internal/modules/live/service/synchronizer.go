package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/logger"
)

// Update is delivered to subscribers after a topic was republished.
type Update struct {
	Topic   Topic
	Version uint64
	View    *View
}

type Synchronizer interface {
	// Current returns the latest published snapshot. Never nil.
	Current() *View
	// Subscribe delivers updates with latest-wins semantics: a slow reader
	// may miss intermediate updates but always receives the newest one.
	Subscribe() (<-chan Update, func())
	// Refresh reloads a single topic from the store and publishes it.
	Refresh(ctx context.Context, topic Topic) error
	// Resync reloads every topic.
	Resync(ctx context.Context) error
	// Run consumes broker changes until ctx is done.
	Run(ctx context.Context) error
}

type synchronizer struct {
	store  docstore.Store
	broker Broker

	current atomic.Pointer[View]
	// reload serializes reload+swap so versions stay monotonic and an older
	// read never overwrites a newer one.
	reload sync.Mutex

	subsMu sync.Mutex
	nextID int
	subs   map[int]chan Update
}

func NewSynchronizer(store docstore.Store, broker Broker) Synchronizer {
	s := &synchronizer{
		store:  store,
		broker: broker,
		subs:   make(map[int]chan Update),
	}
	s.current.Store(emptyView())
	return s
}

func (s *synchronizer) Current() *View {
	return s.current.Load()
}

func (s *synchronizer) Subscribe() (<-chan Update, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Update, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *synchronizer) Refresh(ctx context.Context, topic Topic) error {
	s.reload.Lock()
	defer s.reload.Unlock()

	apply, err := s.load(ctx, topic)
	if err != nil {
		return fmt.Errorf("reload %s: %w", topic, err)
	}

	next := s.current.Load().with(topic, apply)
	s.current.Store(next)
	s.publish(Update{Topic: topic, Version: next.Version(topic), View: next})
	return nil
}

func (s *synchronizer) Resync(ctx context.Context) error {
	var errs []error
	for _, topic := range AllTopics {
		if err := s.Refresh(ctx, topic); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *synchronizer) Run(ctx context.Context) error {
	changes, cancel, err := s.broker.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to changes: %w", err)
	}
	defer cancel()

	// Subscribed first so nothing committed during the initial load is lost.
	if err := s.Resync(ctx); err != nil {
		logger.Error("live: initial resync: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			topic, ok := TopicFor(change)
			if !ok {
				continue
			}
			if err := s.Refresh(ctx, topic); err != nil {
				logger.Error("live: %v", err)
			}
		}
	}
}

func (s *synchronizer) publish(u Update) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
			// drop the stale update the reader has not taken yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}

func (s *synchronizer) load(ctx context.Context, topic Topic) (func(*View), error) {
	switch topic {
	case TopicUsers:
		users, err := listAs[entity.User](ctx, s.store, entity.UsersCollection)
		if err != nil {
			return nil, err
		}
		return func(v *View) { v.Users = users }, nil

	case TopicChallenges:
		challenges, err := listAs[entity.Challenge](ctx, s.store, entity.ChallengesCollection)
		if err != nil {
			return nil, err
		}
		return func(v *View) { v.Challenges = challenges }, nil

	case TopicAdminIDs:
		var ids entity.AdminIDs
		if _, err := s.store.Get(ctx, entity.AdminIDsPath, &ids); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return nil, err
		}
		list := append([]string{}, ids.IDs...)
		return func(v *View) {
			v.AdminIDList = list
			v.AdminIDs = entity.NewAdminSet(list)
		}, nil

	case TopicAdmins:
		admins, err := listAs[entity.AdminProfile](ctx, s.store, entity.AdminProfilesCollection)
		if err != nil {
			return nil, err
		}
		return func(v *View) { v.Admins = admins }, nil

	case TopicAdminRequests:
		requests, err := listAs[entity.AdminProfile](ctx, s.store, entity.AdminRequestsCollection)
		if err != nil {
			return nil, err
		}
		return func(v *View) { v.AdminRequests = requests }, nil

	case TopicAttendance:
		docs, err := s.store.List(ctx, entity.AttendanceRequestsCollection)
		if err != nil {
			return nil, err
		}
		pending := make(entity.AttendanceMap, len(docs))
		for _, doc := range docs {
			var day entity.AttendanceDay
			if err := doc.Decode(&day); err != nil {
				return nil, err
			}
			if len(day) > 0 {
				pending[doc.ID()] = day
			}
		}
		return func(v *View) { v.Attendance = pending }, nil

	case TopicProblems:
		problems, err := listAs[entity.Problem](ctx, s.store, entity.ProblemsCollection)
		if err != nil {
			return nil, err
		}
		return func(v *View) { v.Problems = problems }, nil

	case TopicAnnouncements:
		items, err := listAs[entity.Announcement](ctx, s.store, entity.AnnouncementsCollection)
		if err != nil {
			return nil, err
		}
		items = sortAnnouncements(items)
		return func(v *View) { v.Announcements = items }, nil
	}
	return nil, fmt.Errorf("unknown topic %q", topic)
}

func listAs[T any](ctx context.Context, store docstore.Store, collection string) ([]T, error) {
	docs, err := store.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := doc.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
