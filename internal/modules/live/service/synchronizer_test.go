package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"anoa.com/clubportal/internal/entity"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/docstore/docstoretest"
	"github.com/stretchr/testify/require"
)

func TestTopicFor(t *testing.T) {
	cases := []struct {
		path  string
		topic liveService.Topic
		ok    bool
	}{
		{entity.UserPath("u1"), liveService.TopicUsers, true},
		{entity.ProgressPath("u1", "c1"), "", false},
		{entity.ChallengePath("c1"), liveService.TopicChallenges, true},
		{entity.AdminIDsPath, liveService.TopicAdminIDs, true},
		{"admins/other", "", false},
		{entity.AdminProfilePath("u1"), liveService.TopicAdmins, true},
		{entity.AdminRequestPath("u1"), liveService.TopicAdminRequests, true},
		{entity.AttendanceRequestPath("5-1-2024"), liveService.TopicAttendance, true},
		{entity.AttendanceLogPath("5-1-2024"), "", false},
		{entity.ProblemPath("Broken oven"), liveService.TopicProblems, true},
		{entity.AnnouncementPath("a1"), liveService.TopicAnnouncements, true},
	}
	for _, tc := range cases {
		collection, _, err := docstore.Split(tc.path)
		require.NoError(t, err)
		topic, ok := liveService.TopicFor(docstore.Change{Collection: collection, Path: tc.path, Op: docstore.OpSet})
		require.Equal(t, tc.ok, ok, tc.path)
		require.Equal(t, tc.topic, topic, tc.path)
	}
}

func TestRefreshPublishesNextVersion(t *testing.T) {
	ctx := context.Background()
	store, _ := docstoretest.New(t)
	sync := liveService.NewSynchronizer(store, liveService.NewLocalBroker())

	before := sync.Current()
	require.Empty(t, before.Users)
	require.Zero(t, before.Version(liveService.TopicUsers))

	updates, unsubscribe := sync.Subscribe()
	defer unsubscribe()

	require.NoError(t, store.Set(ctx, entity.UserPath("u1"), entity.NewUser(entity.Profile{UID: "u1", Name: "Ana"})))
	require.NoError(t, sync.Refresh(ctx, liveService.TopicUsers))

	view := sync.Current()
	require.Len(t, view.Users, 1)
	require.Equal(t, uint64(1), view.Version(liveService.TopicUsers))
	require.Zero(t, view.Version(liveService.TopicChallenges))

	// the previous snapshot is left untouched
	require.Empty(t, before.Users)

	update := <-updates
	require.Equal(t, liveService.TopicUsers, update.Topic)
	require.Equal(t, uint64(1), update.Version)
	require.Same(t, view, update.View)
}

func TestSubscriberKeepsOnlyLatestUpdate(t *testing.T) {
	ctx := context.Background()
	store, _ := docstoretest.New(t)
	sync := liveService.NewSynchronizer(store, liveService.NewLocalBroker())

	updates, unsubscribe := sync.Subscribe()
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		require.NoError(t, sync.Refresh(ctx, liveService.TopicProblems))
	}

	update := <-updates
	require.Equal(t, uint64(3), update.Version)
	select {
	case extra := <-updates:
		t.Fatalf("unexpected extra update %+v", extra)
	default:
	}
}

func TestAttendanceTopicSkipsEmptyDays(t *testing.T) {
	ctx := context.Background()
	store, _ := docstoretest.New(t)
	sync := liveService.NewSynchronizer(store, liveService.NewLocalBroker())

	ana := entity.AttendanceUser{UID: "u1", Name: "Ana"}
	require.NoError(t, store.Set(ctx, entity.AttendanceRequestPath("5-1-2024"), entity.AttendanceDay{"u1": ana}))
	require.NoError(t, store.Set(ctx, entity.AttendanceRequestPath("5-2-2024"), entity.AttendanceDay{}))
	require.NoError(t, sync.Refresh(ctx, liveService.TopicAttendance))

	require.Equal(t, entity.AttendanceMap{"5-1-2024": {"u1": ana}}, sync.Current().Attendance)
}

func TestAnnouncementsNewestFirstAndCapped(t *testing.T) {
	ctx := context.Background()
	store, _ := docstoretest.New(t)
	sync := liveService.NewSynchronizer(store, liveService.NewLocalBroker())

	for i := 0; i < liveService.MaxAnnouncements+5; i++ {
		a := entity.Announcement{ID: fmt.Sprintf("a%03d", i), Timestamp: int64(i)}
		require.NoError(t, store.Set(ctx, entity.AnnouncementPath(a.ID), a))
	}
	require.NoError(t, sync.Refresh(ctx, liveService.TopicAnnouncements))

	items := sync.Current().Announcements
	require.Len(t, items, liveService.MaxAnnouncements)
	require.Equal(t, int64(liveService.MaxAnnouncements+4), items[0].Timestamp)
	require.Greater(t, items[0].Timestamp, items[1].Timestamp)
}

func TestRunFollowsCommittedChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := liveService.NewLocalBroker()
	store := docstoretest.NewWithNotifier(t, broker)
	sync := liveService.NewSynchronizer(store, broker)

	done := make(chan error, 1)
	go func() { done <- sync.Run(ctx) }()

	// initial resync publishes every topic once
	require.Eventually(t, func() bool {
		return sync.Current().Version(liveService.TopicAnnouncements) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Set(ctx, entity.AdminIDsPath, entity.AdminIDs{IDs: []string{"u1"}}))
	require.Eventually(t, func() bool {
		return sync.Current().AdminIDs.Contains("u1")
	}, 2*time.Second, 10*time.Millisecond)

	// progress writes belong to no topic and leave every version alone
	usersVersion := sync.Current().Version(liveService.TopicUsers)
	require.NoError(t, store.Set(ctx, entity.ProgressPath("u1", "c1"), entity.NewChallengeProgress("c1")))
	require.NoError(t, store.Set(ctx, entity.ChallengePath("c1"), entity.Challenge{ID: "c1", Name: "c1"}))
	require.Eventually(t, func() bool {
		_, ok := sync.Current().Challenge("c1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, usersVersion, sync.Current().Version(liveService.TopicUsers))

	cancel()
	require.NoError(t, <-done)
}

func TestFramesHideAdminTopicsFromMembers(t *testing.T) {
	ctx := context.Background()
	store, _ := docstoretest.New(t)
	sync := liveService.NewSynchronizer(store, liveService.NewLocalBroker())

	require.NoError(t, store.Set(ctx, entity.AdminIDsPath, entity.AdminIDs{IDs: []string{"boss"}}))
	require.NoError(t, sync.Resync(ctx))
	view := sync.Current()

	topicsOf := func(uid string) []string {
		var topics []string
		for _, f := range liveService.Frames(view, uid, nil) {
			topics = append(topics, f.Topic)
		}
		return topics
	}

	require.NotContains(t, topicsOf("u1"), string(liveService.TopicAdminRequests))
	require.NotContains(t, topicsOf("u1"), string(liveService.TopicAttendance))
	require.Contains(t, topicsOf("boss"), string(liveService.TopicAdminRequests))
	require.Len(t, topicsOf("boss"), len(liveService.AllTopics))

	sent := make(map[liveService.Topic]uint64)
	require.Len(t, liveService.Frames(view, "boss", sent), len(liveService.AllTopics))
	require.Empty(t, liveService.Frames(view, "boss", sent))
}

func TestOverlay(t *testing.T) {
	o := liveService.NewOverlay()

	o.Hide("u1", 3)
	require.True(t, o.Hidden("u1", 3))
	require.False(t, o.Hidden("u2", 3))

	// a newer authoritative snapshot drops the hide
	require.False(t, o.Hidden("u1", 4))
	require.False(t, o.Hidden("u1", 3))

	o.Hide("u2", 5)
	o.Restore("u2")
	require.False(t, o.Hidden("u2", 5))
}

func TestLocalBrokerFansOut(t *testing.T) {
	ctx := context.Background()
	broker := liveService.NewLocalBroker()

	a, cancelA, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	b, cancelB, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	defer cancelB()

	change := docstore.Change{Collection: "users", Path: "users/u1", Op: docstore.OpSet}
	broker.Notify(ctx, change)
	require.Equal(t, change, <-a)
	require.Equal(t, change, <-b)

	cancelA()
	_, open := <-a
	require.False(t, open)
	broker.Notify(ctx, change)
	require.Equal(t, change, <-b)
}
