package entity

// Profile is the identity part of a member, shared by users, admin requests,
// admin profiles and attendance requests.
type Profile struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl"`
}

type (
	AdminProfile   = Profile
	AttendanceUser = Profile
)

// User is the document at users/{uid}. The score is always derived from
// History; nothing else stores a total.
type User struct {
	UID      string       `json:"uid"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	PhotoURL string       `json:"photoUrl"`
	History  []PointEntry `json:"history"`
}

func (u User) Profile() Profile {
	return Profile{
		UID:      u.UID,
		Name:     u.Name,
		Email:    u.Email,
		PhotoURL: u.PhotoURL,
	}
}

// Points sums the history.
func (u User) Points() int {
	total := 0
	for _, entry := range u.History {
		total += entry.Amount
	}
	return total
}

// NewUser is the default document written on first sign-in.
func NewUser(p Profile) User {
	return User{
		UID:      p.UID,
		Name:     p.Name,
		Email:    p.Email,
		PhotoURL: p.PhotoURL,
		History:  []PointEntry{},
	}
}
