package model

import "time"

// Match is the undirected pairing created when both directions of a LikeEdge
// exist for the same pair and group. UserAID < UserBID always.
type Match struct {
	ID            int64      `json:"id"`
	UserAID       int64      `json:"user_a_id"`
	UserBID       int64      `json:"user_b_id"`
	GroupID       int64      `json:"group_id"`
	ChatChannelID string     `json:"chat_channel_id"`
	Active        bool       `json:"active"`
	MatchedAt     time.Time  `json:"matched_at"`
	DissolvedAt   *time.Time `json:"dissolved_at,omitempty"`
}

func (m Match) Contains(userID int64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

func (m Match) Other(userID int64) int64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}
