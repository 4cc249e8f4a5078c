package service

import (
	"sort"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/pkg/docstore"
)

type Topic string

const (
	TopicUsers         Topic = "users"
	TopicChallenges    Topic = "challenges"
	TopicAdminIDs      Topic = "admin_ids"
	TopicAdmins        Topic = "admins"
	TopicAdminRequests Topic = "admin_requests"
	TopicAttendance    Topic = "attendance_requests"
	TopicProblems      Topic = "problems"
	TopicAnnouncements Topic = "announcements"
)

// AllTopics is the resync order. Admin ids go first so permission checks
// see the newest set before anything else is republished.
var AllTopics = []Topic{
	TopicAdminIDs,
	TopicUsers,
	TopicChallenges,
	TopicAdmins,
	TopicAdminRequests,
	TopicAttendance,
	TopicProblems,
	TopicAnnouncements,
}

// AdminOnly reports whether a topic is only streamed to admins.
func (t Topic) AdminOnly() bool {
	return t == TopicAdminRequests || t == TopicAttendance
}

// MaxAnnouncements caps the announcements topic, newest first.
const MaxAnnouncements = 80

// TopicFor maps a committed change to the topic that must be reloaded.
// Challenge progress documents belong to no topic.
func TopicFor(change docstore.Change) (Topic, bool) {
	switch change.Collection {
	case entity.UsersCollection:
		return TopicUsers, true
	case entity.ChallengesCollection:
		return TopicChallenges, true
	case entity.AdminIDsCollection:
		if change.Path == entity.AdminIDsPath {
			return TopicAdminIDs, true
		}
	case entity.AdminProfilesCollection:
		return TopicAdmins, true
	case entity.AdminRequestsCollection:
		return TopicAdminRequests, true
	case entity.AttendanceRequestsCollection:
		return TopicAttendance, true
	case entity.ProblemsCollection:
		return TopicProblems, true
	case entity.AnnouncementsCollection:
		return TopicAnnouncements, true
	}
	return "", false
}

// View is an immutable snapshot of every topic. A new View is built for
// each reload and swapped in whole; readers must not modify it.
type View struct {
	versions map[Topic]uint64

	Users         []entity.User
	Challenges    []entity.Challenge
	AdminIDs      entity.AdminSet
	AdminIDList   []string
	Admins        []entity.AdminProfile
	AdminRequests []entity.AdminProfile
	Attendance    entity.AttendanceMap
	Problems      []entity.Problem
	Announcements []entity.Announcement
}

func emptyView() *View {
	return &View{
		versions:      make(map[Topic]uint64, len(AllTopics)),
		Users:         []entity.User{},
		Challenges:    []entity.Challenge{},
		AdminIDs:      entity.NewAdminSet(nil),
		AdminIDList:   []string{},
		Admins:        []entity.AdminProfile{},
		AdminRequests: []entity.AdminProfile{},
		Attendance:    entity.AttendanceMap{},
		Problems:      []entity.Problem{},
		Announcements: []entity.Announcement{},
	}
}

// Version is the number of snapshots published for topic, 0 before the first.
func (v *View) Version(topic Topic) uint64 {
	return v.versions[topic]
}

// Data returns the published value of topic.
func (v *View) Data(topic Topic) any {
	switch topic {
	case TopicUsers:
		return v.Users
	case TopicChallenges:
		return v.Challenges
	case TopicAdminIDs:
		return v.AdminIDList
	case TopicAdmins:
		return v.Admins
	case TopicAdminRequests:
		return v.AdminRequests
	case TopicAttendance:
		return v.Attendance
	case TopicProblems:
		return v.Problems
	case TopicAnnouncements:
		return v.Announcements
	}
	return nil
}

// User finds a member in the users topic.
func (v *View) User(uid string) (entity.User, bool) {
	for _, u := range v.Users {
		if u.UID == uid {
			return u, true
		}
	}
	return entity.User{}, false
}

func (v *View) Challenge(id string) (entity.Challenge, bool) {
	for _, c := range v.Challenges {
		if c.ID == id {
			return c, true
		}
	}
	return entity.Challenge{}, false
}

// with returns a copy of v carrying the next version of topic. The payload
// fields are copied by reference; apply replaces the one that changed.
func (v *View) with(topic Topic, apply func(next *View)) *View {
	next := *v
	next.versions = make(map[Topic]uint64, len(v.versions)+1)
	for t, n := range v.versions {
		next.versions[t] = n
	}
	next.versions[topic] = v.versions[topic] + 1
	apply(&next)
	return &next
}

func sortAnnouncements(items []entity.Announcement) []entity.Announcement {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
	if len(items) > MaxAnnouncements {
		items = items[:MaxAnnouncements]
	}
	return items
}
