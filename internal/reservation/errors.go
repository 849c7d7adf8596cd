package reservation

import "fmt"

// Code is one of the admission failure reasons from spec.md §4.5/§7,
// or a lifecycle/validation reason raised outside the five checks.
type Code string

const (
	CodeTreatmentNotFound Code = "TREATMENT_NOT_FOUND"
	CodeStoreClosed       Code = "STORE_CLOSED"
	CodeNoTimeslot        Code = "NO_TIMESLOT"
	CodeTreatmentCapacity Code = "TREATMENT_CAPACITY"
	CodeStaffConflict     Code = "STAFF_CONFLICT"
	CodeResourceCapacity  Code = "RESOURCE_CAPACITY"
	CodeDailyLimit        Code = "DAILY_LIMIT"
	CodeStoreCapacity     Code = "STORE_CAPACITY"
	CodeTooFarInAdvance   Code = "TOO_FAR_IN_ADVANCE"
	CodeInvalidStaff      Code = "INVALID_STAFF"

	// Lifecycle-guard reasons, reported the same way but outside the
	// five admission checks.
	CodeNotModifiable  Code = "NOT_MODIFIABLE"
	CodeNotCancellable Code = "NOT_CANCELLABLE"
	CodeInvalidStatus  Code = "INVALID_STATUS_TRANSITION"
)

// Error is a typed admission/lifecycle failure. Handlers map it to a
// single CONFLICT_ERROR carrying Code as the most specific sub-reason,
// per spec.md §7's propagation rule.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
