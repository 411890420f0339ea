package dto

type VisibleProfileResponse struct {
	UserID    int64  `json:"user_id"`
	Pseudonym string `json:"pseudonym"`
	AgeBucket string `json:"age_bucket"`
	GroupID   int64  `json:"group_id"`
	Nickname  string `json:"nickname,omitempty"`
	City      string `json:"city,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type ProfileViewResponse struct {
	Profile      VisibleProfileResponse `json:"profile"`
	Relationship string                 `json:"relationship"`
}
