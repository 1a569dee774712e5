package domain

import "fmt"

// NotFoundError indicates a referenced principal, resource, or role is absent.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError indicates a duplicate entity or share-list membership clash.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ValidationError indicates invalid input, such as an unrecognized share
// level for a resource type.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// EvaluationError indicates the policy evaluator could not reach any
// decision. It is distinct from an ordinary "denied" result and must never
// collapse into an implicit allow or deny.
type EvaluationError struct {
	Message string
	Cause   error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EvaluationError) Unwrap() error { return e.Cause }

// LoadError indicates a collaborator could not be reached during a reload
// phase. Failures in the policy/role/user/group phases surface it and leave
// the previous graph intact.
type LoadError struct {
	Phase   string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load phase %s: %s: %v", e.Phase, e.Message, e.Cause)
	}
	return fmt.Sprintf("load phase %s: %s", e.Phase, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrEvaluation creates an EvaluationError wrapping cause.
func ErrEvaluation(cause error, format string, args ...interface{}) *EvaluationError {
	return &EvaluationError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrLoad creates a LoadError for the named phase wrapping cause.
func ErrLoad(phase string, cause error, format string, args ...interface{}) *LoadError {
	return &LoadError{Phase: phase, Message: fmt.Sprintf(format, args...), Cause: cause}
}
