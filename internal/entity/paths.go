package entity

import "anoa.com/clubportal/pkg/docstore"

// Collections and documents of the club store.
const (
	UsersCollection              = "users"
	ChallengesCollection         = "challenges"
	ProblemsCollection           = "problems"
	AnnouncementsCollection      = "announcements"
	AdminIDsPath                 = "admins/admins"
	AdminIDsCollection           = "admins"
	AdminProfilesCollection      = "admins/admins/admins"
	AdminRequestsCollection      = "admins/requests/requests"
	AttendanceRequestsCollection = "attendance_requests"
	AttendanceLogCollection      = "attendance_log"
)

func UserPath(uid string) string {
	return docstore.Join(UsersCollection, uid)
}

func ProgressPath(uid, challengeID string) string {
	return docstore.Join(UsersCollection, uid, "challenges", challengeID)
}

func ChallengePath(id string) string {
	return docstore.Join(ChallengesCollection, id)
}

func ProblemPath(title string) string {
	return docstore.Join(ProblemsCollection, title)
}

func AnnouncementPath(id string) string {
	return docstore.Join(AnnouncementsCollection, id)
}

func AdminProfilePath(uid string) string {
	return AdminProfilesCollection + "/" + docstore.Join(uid)
}

func AdminRequestPath(uid string) string {
	return AdminRequestsCollection + "/" + docstore.Join(uid)
}

func AttendanceRequestPath(dateKey string) string {
	return docstore.Join(AttendanceRequestsCollection, dateKey)
}

func AttendanceLogPath(dateKey string) string {
	return docstore.Join(AttendanceLogCollection, dateKey)
}
