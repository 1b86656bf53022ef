package service

// AudioStatus is the display status of an evaluation's audio pipeline,
// derived purely from the two persisted booleans. It is never stored.
type AudioStatus string

const (
	StatusPending    AudioStatus = "pending"
	StatusProcessing AudioStatus = "processing"
	StatusCompleted  AudioStatus = "completed"
)

// DeriveAudioStatus maps (sent, treated) to the display status.
// (false, true) cannot be produced by any transition; it is reported as
// completed rather than invented as a fourth state.
func DeriveAudioStatus(sent, treated bool) AudioStatus {
	switch {
	case treated:
		return StatusCompleted
	case sent:
		return StatusProcessing
	default:
		return StatusPending
	}
}
