package util

import "errors"

// Sentinel errors for the exam core. Callers branch with errors.Is; the
// controllers map each kind to an HTTP status, so messages are for humans
// only and never parsed.
var (
	ErrExamNotFound    = errors.New("exam not found")
	ErrAttemptNotFound = errors.New("exam attempt not found")
	ErrQueryNotFound   = errors.New("result query not found")
	ErrExamUnpublished = errors.New("exam is not published")

	// ErrDuplicateAttempt surfaces the one-attempt-per-(student, exam)
	// uniqueness violation; the losing submit of a race sees this, never a
	// silent overwrite.
	ErrDuplicateAttempt = errors.New("exam already submitted")

	ErrNotOwner  = errors.New("caller does not own this exam")
	ErrForbidden = errors.New("caller may not access this record")

	// ErrNoReferenceSolutions: nothing eligible to evaluate (no question of
	// the attempt carries a teacher solution).
	ErrNoReferenceSolutions = errors.New("no reference solutions available for evaluation")

	// ErrEvaluatorFailure wraps evaluator process/transport errors, explicit
	// failure flags and malformed output alike.
	ErrEvaluatorFailure = errors.New("evaluator failed")

	ErrNotEvaluated = errors.New("attempt has not been evaluated")

	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
