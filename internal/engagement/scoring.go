package engagement

import (
	"sort"
	"time"
)

// ActiveWindow is how recent LastActivity must be for a user to count as active.
const ActiveWindow = 7 * 24 * time.Hour

// Weights maps channel name to its score multiplier.
type Weights map[string]float64

// DefaultWeights ranks faith highest and daily-checkins lowest.
func DefaultWeights() Weights {
	return Weights{
		"faith":          3.0,
		"wealth":         2.5,
		"health":         2.0,
		"daily-checkins": 1.5,
	}
}

// Of returns the channel's weight, 1.0 for channels without one.
func (w Weights) Of(channel string) float64 {
	if v, ok := w[channel]; ok {
		return v
	}
	return 1.0
}

// ChannelScore is one channel's share of a user's total.
type ChannelScore struct {
	Responses int     `json:"responses"`
	Checkins  int     `json:"checkins"`
	Score     float64 `json:"score"`
}

// LeaderboardEntry is a derived per-user ranking row.
type LeaderboardEntry struct {
	UserID       string                  `json:"user_id"`
	TotalScore   float64                 `json:"total_score"`
	Channels     map[string]ChannelScore `json:"channels"`
	LastActivity time.Time               `json:"last_activity"`
}

// ChannelStats aggregates one channel's records.
type ChannelStats struct {
	Channel        string `json:"channel"`
	TotalUsers     int    `json:"total_users"`
	ActiveUsers    int    `json:"active_users"`
	TotalCheckins  int    `json:"total_checkins"`
	TotalResponses int    `json:"total_responses"`
}

// Score is the weighted value of one record: responses count double.
func Score(r Record, weight float64) float64 {
	return float64(r.ResponseCount*2+r.CheckCount) * weight
}

// ComputeLeaderboard ranks users by total weighted score, descending. Users
// with equal scores keep the order in which they first appear in entries.
// limit <= 0 returns everyone.
func ComputeLeaderboard(entries []Entry, weights Weights, limit int) []LeaderboardEntry {
	idx := make(map[string]int)
	var board []LeaderboardEntry
	for _, e := range entries {
		i, ok := idx[e.UserID]
		if !ok {
			i = len(board)
			idx[e.UserID] = i
			board = append(board, LeaderboardEntry{UserID: e.UserID, Channels: make(map[string]ChannelScore)})
		}
		s := Score(e.Record, weights.Of(e.Channel))
		row := &board[i]
		row.Channels[e.Channel] = ChannelScore{Responses: e.ResponseCount, Checkins: e.CheckCount, Score: s}
		row.TotalScore += s
		if e.LastActivity.After(row.LastActivity) {
			row.LastActivity = e.LastActivity
		}
	}

	sort.SliceStable(board, func(i, j int) bool { return board[i].TotalScore > board[j].TotalScore })
	if limit > 0 && len(board) > limit {
		board = board[:limit]
	}
	return board
}

// ComputeChannelStats aggregates entries per channel in first-seen order.
func ComputeChannelStats(entries []Entry, now time.Time) []ChannelStats {
	idx := make(map[string]int)
	var stats []ChannelStats
	for _, e := range entries {
		i, ok := idx[e.Channel]
		if !ok {
			i = len(stats)
			idx[e.Channel] = i
			stats = append(stats, ChannelStats{Channel: e.Channel})
		}
		s := &stats[i]
		s.TotalUsers++
		s.TotalCheckins += e.CheckCount
		s.TotalResponses += e.ResponseCount
		if !e.LastActivity.IsZero() && now.Sub(e.LastActivity) < ActiveWindow {
			s.ActiveUsers++
		}
	}
	return stats
}
