package log

const (
	// Identity
	FieldChannel  = "channel"
	FieldUsername = "username"
	FieldViewID   = "view_id"

	// Realtime channel
	FieldState   = "state"
	FieldAttempt = "attempt"
	FieldFrame   = "frame_type"

	// Playback
	FieldStreamKey = "stream_key"
	FieldPlayURL   = "play_url"
)
