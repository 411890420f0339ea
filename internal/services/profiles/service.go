package profiles

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	"github.com/b0ho/glimpse-backend/internal/domain/model"
	"github.com/b0ho/glimpse-backend/internal/domain/rules"
	"github.com/b0ho/glimpse-backend/internal/pkg/cryptox"
	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrProfileNotFound = errors.New("profile not found")
)

type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
}

type RelationshipResolver interface {
	RelationshipState(ctx context.Context, viewerID, subjectID, groupID int64) (enums.RelationshipState, error)
}

type Service struct {
	store         ProfileStore
	relationships RelationshipResolver
	serverSecret  []byte
}

type Dependencies struct {
	Store         ProfileStore
	Relationships RelationshipResolver
	// ServerSecret opens the at-rest envelope around the phone column. Empty
	// means the column is stored in the clear (tests, local dev).
	ServerSecret string
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store:         deps.Store,
		relationships: deps.Relationships,
		serverSecret:  []byte(deps.ServerSecret),
	}
}

// GetVisibleProfile returns the subject's profile filtered through the reveal
// policy for the given viewer. Viewing yourself returns the matched-level
// view.
func (s *Service) GetVisibleProfile(ctx context.Context, viewerID, subjectID int64) (rules.VisibleProfile, enums.RelationshipState, error) {
	if viewerID <= 0 || subjectID <= 0 {
		return rules.VisibleProfile{}, enums.RelationshipNone, ErrValidation
	}
	if s.store == nil || s.relationships == nil {
		return rules.VisibleProfile{}, enums.RelationshipNone, fmt.Errorf("profile dependencies are not configured")
	}

	record, err := s.store.GetProfile(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return rules.VisibleProfile{}, enums.RelationshipNone, ErrProfileNotFound
		}
		return rules.VisibleProfile{}, enums.RelationshipNone, fmt.Errorf("load profile: %w", err)
	}
	profile := profileToModel(record)
	if err := s.openPhone(&profile); err != nil {
		return rules.VisibleProfile{}, enums.RelationshipNone, err
	}

	if viewerID == subjectID {
		own := rules.ApplyVisibility(profile, rules.VisibleFields(enums.RelationshipMatched))
		return own, enums.RelationshipNone, nil
	}

	state, err := s.relationships.RelationshipState(ctx, viewerID, subjectID, record.GroupID)
	if err != nil {
		return rules.VisibleProfile{}, enums.RelationshipNone, err
	}

	return rules.ApplyVisibility(profile, rules.VisibleFields(state)), state, nil
}

// openPhone decrypts the at-rest phone envelope in place. A tag mismatch is
// an integrity violation and propagates; it is never downgraded to an empty
// phone.
func (s *Service) openPhone(profile *model.Profile) error {
	if len(s.serverSecret) == 0 || profile.PhoneE164 == "" {
		return nil
	}

	key := sha256.Sum256(s.serverSecret)
	aad := []byte(strconv.FormatInt(profile.UserID, 10))
	plaintext, err := cryptox.Decrypt(profile.PhoneE164, key[:], aad)
	if err != nil {
		return fmt.Errorf("open phone envelope for user %d: %w", profile.UserID, err)
	}
	profile.PhoneE164 = string(plaintext)
	return nil
}

// SealPhone produces the at-rest envelope written to the phone column. The
// user ID is bound in as AAD so a sealed value cannot be replayed onto
// another row.
func (s *Service) SealPhone(userID int64, phone string) (string, error) {
	if len(s.serverSecret) == 0 {
		return phone, nil
	}
	key := sha256.Sum256(s.serverSecret)
	aad := []byte(strconv.FormatInt(userID, 10))
	return cryptox.Encrypt([]byte(phone), key[:], aad)
}

func profileToModel(record pgrepo.ProfileRecord) model.Profile {
	return model.Profile{
		UserID:     record.UserID,
		Nickname:   record.Nickname,
		Pseudonym:  record.Pseudonym,
		Age:        record.Age,
		GroupID:    record.GroupID,
		City:       record.City,
		PhoneE164:  record.PhoneE164,
		SharePhone: record.SharePhone,
		ShareCity:  record.ShareCity,
		UpdatedAt:  record.UpdatedAt,
	}
}
