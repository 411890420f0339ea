package model

import "time"

// CreditBalance is a user's like allowance. The free daily like is tracked by
// the day key it was last consumed on: it is available again as soon as the
// local day rolls over, without a write.
type CreditBalance struct {
	UserID           int64      `json:"user_id"`
	PurchasedCredits int        `json:"purchased_credits"`
	FreeLikeDay      string     `json:"free_like_day,omitempty"`
	UnlimitedUntil   *time.Time `json:"unlimited_until,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (b CreditBalance) FreeLikeAvailable(dayKey string) bool {
	return b.FreeLikeDay != dayKey
}

func (b CreditBalance) Unlimited(at time.Time) bool {
	return b.UnlimitedUntil != nil && b.UnlimitedUntil.After(at)
}
