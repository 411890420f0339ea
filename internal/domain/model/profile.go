package model

import "time"

// Profile carries everything another user could potentially see. What is
// actually exposed for a given viewer is decided by rules.VisibleFields.
type Profile struct {
	UserID     int64     `json:"user_id"`
	Nickname   string    `json:"nickname"`
	Pseudonym  string    `json:"pseudonym"`
	Age        int       `json:"age"`
	GroupID    int64     `json:"group_id"`
	City       string    `json:"city"`
	PhoneE164  string    `json:"phone_e164"`
	SharePhone bool      `json:"share_phone"`
	ShareCity  bool      `json:"share_city"`
	UpdatedAt  time.Time `json:"updated_at"`
}
