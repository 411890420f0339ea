package model

import "time"

const (
	EventMatchCreated   = "match_created"
	EventMatchDissolved = "match_dissolved"
	EventCreditsGranted = "credits_granted"
)

type DomainEvent struct {
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurred_at"`
	Props      map[string]any `json:"props"`
}
