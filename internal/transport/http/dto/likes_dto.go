package dto

import "time"

type SendLikeRequest struct {
	ToUserID      int64  `json:"to_user_id"`
	GroupID       int64  `json:"group_id"`
	IsSuper       bool   `json:"is_super"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type LikeResponse struct {
	ID            int64     `json:"id"`
	FromUserID    int64     `json:"from_user_id"`
	ToUserID      int64     `json:"to_user_id"`
	GroupID       int64     `json:"group_id"`
	IsSuper       bool      `json:"is_super"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type MatchResponse struct {
	ID            int64     `json:"id"`
	UserAID       int64     `json:"user_a_id"`
	UserBID       int64     `json:"user_b_id"`
	GroupID       int64     `json:"group_id"`
	ChatChannelID string    `json:"chat_channel_id"`
	MatchedAt     time.Time `json:"matched_at"`
}

type SendLikeResponse struct {
	IsMatch bool           `json:"is_match"`
	Like    LikeResponse   `json:"like"`
	Match   *MatchResponse `json:"match,omitempty"`
}

type CancelLikeResponse struct {
	OK bool `json:"ok"`
}
