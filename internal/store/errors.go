package store

import "errors"

var (
	// ErrHeadConflict means the parent version lost the race on the
	// is_current flip; the caller should re-read the head and retry once.
	ErrHeadConflict = errors.New("asset head conflict")
	// ErrDuplicateSubmission means another request already inserted a version
	// with the same idempotency key.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)
