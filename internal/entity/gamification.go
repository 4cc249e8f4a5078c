package entity

const (
	ReasonAttendance = "Attending meeting"
	ReasonFromAdmin  = "From admin"

	DefaultAttendanceBonus = 50
)

// PointEntry is one immutable line of a user's ledger. Positive amounts are
// credits, negative amounts debits.
type PointEntry struct {
	Amount      int    `json:"amount"`
	Reason      string `json:"reason"`
	TimestampMs int64  `json:"timestamp"`
	DisplayDate string `json:"date"`
}
