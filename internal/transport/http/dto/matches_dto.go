package dto

import "time"

type MatchItemResponse struct {
	MatchID       int64     `json:"match_id"`
	TargetUserID  int64     `json:"target_user_id"`
	Nickname      string    `json:"nickname"`
	ChatChannelID string    `json:"chat_channel_id"`
	MatchedAt     time.Time `json:"matched_at"`
}

type MatchesListResponse struct {
	Matches []MatchItemResponse `json:"matches"`
}

type UnmatchRequest struct {
	MatchID int64 `json:"match_id"`
}

type MismatchRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

type MatchActionResponse struct {
	OK bool `json:"ok"`
}
