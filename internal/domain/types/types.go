// Package types contains common types used across the application
package types

// Entry represents a single ranked leaderboard row.
type Entry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// RankPage is one page of the leaderboard. NextCursor is present iff
// more results exist beyond this page.
type RankPage struct {
	Entries    []Entry `json:"entries"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// Standing is a single user's leaderboard row plus their streak fields.
type Standing struct {
	Entry
	CurrentStreak int `json:"current_streak"`
	MaxStreak     int `json:"max_streak"`
}
