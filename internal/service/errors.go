package service

import "errors"

var (
	// ErrValidation marks bad caller input (HTTP 400).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing evaluation, result or storage object (HTTP 404).
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state machine violation (HTTP 409).
	ErrConflict = errors.New("conflict")
	// ErrMismatch marks a confirm-upload filename that does not match the
	// one recorded when the upload URL was issued (HTTP 409).
	ErrMismatch = errors.New("filename mismatch")
	// ErrExternalService marks a storage/queue/LLM call that failed after
	// retries (HTTP 500, provider detail logged but not returned).
	ErrExternalService = errors.New("external service failure")
	// ErrStorageFailure marks a database failure.
	ErrStorageFailure = errors.New("storage failure")
	// ErrNoAnalyses is returned when an aggregation matches zero results.
	ErrNoAnalyses = errors.New("no analyses found")
)
