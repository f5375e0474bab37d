package utils

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAuth            = errors.New("strava authorization required")
	ErrUpstream        = errors.New("upstream request failed")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// ValidationError names the offending field of a rejected request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UpstreamError is a non-2xx, non-401 answer from an external API.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream responded %s", e.Status)
	}
	return fmt.Sprintf("upstream responded %s: %s", e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}
