package gateway

import "errors"

var (
	// ErrInvalidFile marks a rejected MIME type, extension or size.
	ErrInvalidFile = errors.New("invalid file")
	// ErrBucketUnconfigured is returned when no backing bucket is set.
	ErrBucketUnconfigured = errors.New("storage bucket not configured")
	// ErrObjectNotFound marks a missing storage object.
	ErrObjectNotFound = errors.New("storage object not found")
	// ErrEmptyTranscription marks a transcription call that produced no text.
	ErrEmptyTranscription = errors.New("empty transcription")
	// ErrNoJSON is returned when the model response contains no JSON object.
	ErrNoJSON = errors.New("no JSON object in model response")
	// ErrMalformedScore is returned when the parsed JSON is missing or
	// malforms the required criteria fields.
	ErrMalformedScore = errors.New("malformed scoring response")
)
