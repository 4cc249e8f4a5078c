package service

import (
	"math"
	"time"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/ledger/dto"
)

type rankTier struct {
	name      string
	minPoints int
}

// Ranks follow the all-time total, so a negative entry such as an admin
// deduction can drop someone to a lower tier.
var rankTiers = []rankTier{
	{"Newcomer", 0},
	{"Member", 100},
	{"Regular", 300},
	{"Contributor", 800},
	{"Veteran", 2000},
	{"Legend", 5000},
}

// Weekly activity thresholds over the last 7 days of history.
const (
	WeeklyOnFire   = 200
	WeeklyTrending = 100
	WeeklyActive   = 50
)

const week = 7 * 24 * time.Hour

// WeeklyPoints sums entries newer than a week before now.
func WeeklyPoints(history []entity.PointEntry, now time.Time) int {
	since := now.Add(-week).UnixMilli()
	total := 0
	for _, entry := range history {
		if entry.TimestampMs >= since {
			total += entry.Amount
		}
	}
	return total
}

// GetRankStatus places a total on the tier ladder and labels weekly activity.
func GetRankStatus(allTimePoints, weeklyPoints int) dto.RankStatus {
	status := dto.RankStatus{
		CurrentPoints: allTimePoints,
		WeeklyPoints:  weeklyPoints,
	}

	tier := 0
	for i, t := range rankTiers {
		if allTimePoints >= t.minPoints {
			tier = i
		}
	}
	status.RankName = rankTiers[tier].name

	if tier == len(rankTiers)-1 {
		status.NextRank = "Max Level"
		status.TargetPoints = rankTiers[tier].minPoints
		status.Progress = 100
	} else {
		next := rankTiers[tier+1]
		status.NextRank = next.name
		status.TargetPoints = next.minPoints
		if allTimePoints > 0 {
			status.Progress = float64(allTimePoints) / float64(next.minPoints) * 100
		}
	}

	switch {
	case weeklyPoints >= WeeklyOnFire:
		status.WeeklyLabel = "On Fire"
	case weeklyPoints >= WeeklyTrending:
		status.WeeklyLabel = "Trending"
	case weeklyPoints >= WeeklyActive:
		status.WeeklyLabel = "Active"
	}

	// Round progress to 2 decimal places
	status.Progress = math.Round(status.Progress*100) / 100
	return status
}
