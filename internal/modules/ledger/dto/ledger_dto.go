package dto

import "anoa.com/clubportal/internal/entity"

// GrantPointsInput is the admin "manage points" form.
type GrantPointsInput struct {
	Amount int    `json:"amount" binding:"ne=0"`
	Reason string `json:"reason" binding:"omitempty,max=120"`
}

type LeaderboardQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// RankStatus is the member's standing derived from the ledger.
type RankStatus struct {
	RankName      string  `json:"rank_name"`
	NextRank      string  `json:"next_rank"`
	CurrentPoints int     `json:"current_points"`
	TargetPoints  int     `json:"target_points"`
	Progress      float64 `json:"progress"`
	WeeklyPoints  int     `json:"weekly_points"`
	WeeklyLabel   string  `json:"weekly_label"`
}

type LeaderboardEntry struct {
	Position int            `json:"position"`
	Profile  entity.Profile `json:"profile"`
	Points   int            `json:"points"`
	Status   RankStatus     `json:"status"`
}

type PointsResponse struct {
	UID     string              `json:"uid"`
	Points  int                 `json:"points"`
	History []entity.PointEntry `json:"history"`
	Status  RankStatus          `json:"status"`
}
