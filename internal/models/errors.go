package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrNoCandidates      = errors.New("no caregivers available")
	ErrDuplicateRecord   = errors.New("duplicate record")
	ErrNotFound          = errors.New("not found")
)

// TransitionError names the rejected change and the legal alternatives
type TransitionError struct {
	From    string
	To      string
	Allowed []string
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("invalid transition from %s to %s (allowed: %s)", e.From, e.To, allowed)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ValidationError lists every problem found, for re-prompting
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError from problems
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}
