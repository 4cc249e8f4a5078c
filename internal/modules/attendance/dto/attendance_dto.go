package dto

// Outcome names what an attendance call did. Duplicate actions are
// reported, not failed.
type Outcome string

const (
	OutcomeRequested      Outcome = "requested"
	OutcomeAlreadyPending Outcome = "already_pending"
	OutcomeAlreadyMarked  Outcome = "already_marked"
	OutcomeApproved       Outcome = "approved"
	OutcomeRejected       Outcome = "rejected"
	OutcomeNotPending     Outcome = "not_pending"
)

type OutcomeResponse struct {
	Outcome Outcome `json:"outcome"`
	Date    string  `json:"date"`
	UID     string  `json:"uid"`
}

// DateParam is bound from /:date and must be a club date key.
type DateParam struct {
	Date string `uri:"date" binding:"required"`
	UID  string `uri:"uid" binding:"required"`
}
