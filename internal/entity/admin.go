package entity

// AdminIDs is the body of admins/admins, the authority for who is an admin.
type AdminIDs struct {
	IDs []string `json:"ids"`
}

func (a AdminIDs) Contains(uid string) bool {
	for _, id := range a.IDs {
		if id == uid {
			return true
		}
	}
	return false
}

// AdminSet is a read-only view of the admin ids handed to checks that need
// to know whether someone is an admin.
type AdminSet struct {
	ids map[string]struct{}
}

func NewAdminSet(ids []string) AdminSet {
	set := AdminSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	return set
}

func (s AdminSet) Contains(uid string) bool {
	if uid == "" {
		return false
	}
	_, ok := s.ids[uid]
	return ok
}
