package dto

import "anoa.com/clubportal/internal/entity"

type Outcome string

const (
	OutcomeRequested    Outcome = "requested"
	OutcomeAlreadyAdmin Outcome = "already_admin"
	OutcomeApproved     Outcome = "approved"
	OutcomeRejected     Outcome = "rejected"
	OutcomeRemoved      Outcome = "removed"
	OutcomeNotAdmin     Outcome = "not_admin"
)

type OutcomeResponse struct {
	Outcome Outcome `json:"outcome"`
	UID     string  `json:"uid"`
}

// AdminsResponse lists the current admins next to the authoritative id set.
type AdminsResponse struct {
	IDs    []string              `json:"ids"`
	Admins []entity.AdminProfile `json:"admins"`
}
