package core

import (
	"errors"
	"fmt"
)

// Reason codes attached to guard failures.
const (
	ReasonRequired          = "required"
	ReasonInvalidAmount     = "invalid_amount"
	ReasonNegativeAmount    = "negative_amount"
	ReasonUnknownMonth      = "unknown_month"
	ReasonInvalidCourseType = "invalid_course_type"
	ReasonInvalidYear       = "invalid_year"
	ReasonUnknownStudent    = "unknown_student"
	ReasonHasPayments       = "has_payments"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrReferential = errors.New("referential integrity violation")
	ErrStorage     = errors.New("storage failure")

	// ErrStaleSnapshot marks a write that was stored while the listing that
	// follows it failed. Retrying the write would duplicate it.
	ErrStaleSnapshot = errors.New("write saved, snapshot not refreshed")
)

// ValidationError reports a candidate record rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ReferentialError reports a delete blocked by dependent records.
type ReferentialError struct {
	StudentID string
	Payments  int
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("student %s still has %d payment(s)", e.StudentID, e.Payments)
}

func (e *ReferentialError) Is(target error) bool { return target == ErrReferential }

// Reason returns the reason code for the blocked delete.
func (e *ReferentialError) Reason() string { return ReasonHasPayments }

// StorageError wraps a failed gateway call.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// RefreshError reports a stored write whose follow-up snapshot could not be
// fetched. ID is the record written.
type RefreshError struct {
	Op  string
	ID  string
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s %s saved, refresh failed: %v", e.Op, e.ID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool { return target == ErrStaleSnapshot }

// ReasonOf extracts the reason code of a guard failure, or "" for other errors.
func ReasonOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var re *ReferentialError
	if errors.As(err, &re) {
		return re.Reason()
	}
	return ""
}
