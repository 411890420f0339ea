package model

import "time"

// LikeEdge is a one-directional like from one user to another, scoped to a
// group. At most one active edge exists per (from, to, group).
type LikeEdge struct {
	ID              int64     `json:"id"`
	FromUserID      int64     `json:"from_user_id"`
	ToUserID        int64     `json:"to_user_id"`
	GroupID         int64     `json:"group_id"`
	IsSuper         bool      `json:"is_super"`
	ConsumedByMatch bool      `json:"consumed_by_match"`
	CorrelationID   string    `json:"correlation_id"`
	CreatedAt       time.Time `json:"created_at"`
}
