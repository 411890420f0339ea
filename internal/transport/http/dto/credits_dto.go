package dto

import "time"

type CreditsResponse struct {
	FreeLikeAvailable bool       `json:"free_like_available"`
	PurchasedCredits  int        `json:"purchased_credits"`
	UnlimitedUntil    *time.Time `json:"unlimited_until,omitempty"`
	ResetsAt          time.Time  `json:"resets_at"`
}
