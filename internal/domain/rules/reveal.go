package rules

import (
	"fmt"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	"github.com/b0ho/glimpse-backend/internal/domain/model"
)

type Field string

const (
	FieldPseudonym Field = "pseudonym"
	FieldAgeBucket Field = "age_bucket"
	FieldGroup     Field = "group"
	FieldNickname  Field = "nickname"
	FieldCity      Field = "city"
	FieldPhone     Field = "phone"
)

type FieldSet map[Field]bool

// VisibleFields decides which profile fields a viewer may see given the
// relationship state. It is total: any unrecognized state falls through to
// the anonymized set, never the open one.
func VisibleFields(state enums.RelationshipState) FieldSet {
	switch state {
	case enums.RelationshipMatched:
		return FieldSet{
			FieldPseudonym: true,
			FieldAgeBucket: true,
			FieldGroup:     true,
			FieldNickname:  true,
			FieldCity:      true,
			FieldPhone:     true,
		}
	default:
		// NONE, LIKED, UNMATCHED and anything unknown stay anonymized.
		return FieldSet{
			FieldPseudonym: true,
			FieldAgeBucket: true,
			FieldGroup:     true,
		}
	}
}

// VisibleProfile is the projection of a profile through a field set. Fields
// gated on the subject's own opt-in (phone, city) require both the field set
// and the opt-in flag.
type VisibleProfile struct {
	UserID    int64  `json:"user_id"`
	Pseudonym string `json:"pseudonym"`
	AgeBucket string `json:"age_bucket"`
	GroupID   int64  `json:"group_id"`
	Nickname  string `json:"nickname,omitempty"`
	City      string `json:"city,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func ApplyVisibility(p model.Profile, fields FieldSet) VisibleProfile {
	out := VisibleProfile{UserID: p.UserID}
	if fields[FieldPseudonym] {
		out.Pseudonym = p.Pseudonym
	}
	if fields[FieldAgeBucket] {
		out.AgeBucket = AgeBucket(p.Age)
	}
	if fields[FieldGroup] {
		out.GroupID = p.GroupID
	}
	if fields[FieldNickname] {
		out.Nickname = p.Nickname
	}
	if fields[FieldCity] && p.ShareCity {
		out.City = p.City
	}
	if fields[FieldPhone] && p.SharePhone {
		out.Phone = p.PhoneE164
	}
	return out
}

// AgeBucket collapses an exact age into a coarse five-year range so that
// pre-match views never expose the exact value.
func AgeBucket(age int) string {
	if age < 18 {
		return ""
	}
	lo := age - (age-18)%5
	if lo >= 48 {
		return "48+"
	}
	return fmt.Sprintf("%d-%d", lo, lo+4)
}
