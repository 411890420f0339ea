package enums

// RejectionReason is the business outcome of a like attempt that was not
// accepted. Rejections are part of the normal return contract and are never
// surfaced as errors.
type RejectionReason string

const (
	RejectionNone              RejectionReason = ""
	RejectionSelfLikeForbidden RejectionReason = "SELF_LIKE_FORBIDDEN"
	RejectionCooldownActive    RejectionReason = "COOLDOWN_ACTIVE"
	RejectionAlreadyLiked      RejectionReason = "ALREADY_LIKED"
	RejectionPremiumRequired   RejectionReason = "PREMIUM_REQUIRED"
	RejectionNoCredits         RejectionReason = "NO_CREDITS"
)
