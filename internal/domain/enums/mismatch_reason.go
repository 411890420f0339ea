package enums

type MismatchReason string

const (
	MismatchReasonNotInterested MismatchReason = "not_interested"
	MismatchReasonWrongPerson   MismatchReason = "wrong_person"
	MismatchReasonFake          MismatchReason = "fake"
	MismatchReasonAbusive       MismatchReason = "abusive"
	MismatchReasonOther         MismatchReason = "other"
)
