package enums

// RelationshipState describes the directed view from one user onto another.
// LIKED means the viewer has an active like towards the subject that has not
// been reciprocated.
type RelationshipState string

const (
	RelationshipNone      RelationshipState = "NONE"
	RelationshipLiked     RelationshipState = "LIKED"
	RelationshipMatched   RelationshipState = "MATCHED"
	RelationshipUnmatched RelationshipState = "UNMATCHED"
)
