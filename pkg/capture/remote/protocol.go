package remote

import "github.com/mediasmith/captor/pkg/capture"

// Message is the JSON control frame exchanged with the widget over the
// WebSocket. Media chunks travel as separate binary frames and are not part
// of this envelope.
type Message struct {
	// Type discriminates the message. See the Msg* constants.
	Type string `json:"type"`

	// RequestID correlates an acquire request with its reply.
	RequestID string `json:"request_id,omitempty"`

	// StreamID identifies a stream for acquired/ended/release messages.
	StreamID string `json:"stream_id,omitempty"`

	// RecorderID identifies a recorder for recorder control messages.
	RecorderID string `json:"recorder_id,omitempty"`

	// Constraints carries the capture request for MsgAcquire.
	Constraints *Constraints `json:"constraints,omitempty"`

	// Tracks lists the stream's tracks in MsgAcquired.
	Tracks []TrackInfo `json:"tracks,omitempty"`

	// TrackIDs lists the tracks a recorder should consume (MsgRecorder).
	TrackIDs []string `json:"track_ids,omitempty"`

	// Reason is the normalized denial reason in MsgDenied.
	Reason string `json:"reason,omitempty"`

	// MimeType is the requested (MsgRecorder) or actual
	// (MsgRecorderReady) recording mime type.
	MimeType string `json:"mime_type,omitempty"`

	// AudioBPS and VideoBPS are the recorder bit-rate targets.
	AudioBPS int `json:"audio_bps,omitempty"`
	VideoBPS int `json:"video_bps,omitempty"`

	// IntervalMS is the chunk emission period for MsgStart.
	IntervalMS int `json:"interval_ms,omitempty"`

	// Supported lists encodable mime types in MsgHello.
	Supported []string `json:"supported,omitempty"`
}

// Control frame types sent by the adapter (server → widget).
const (
	// MsgAcquire asks the widget to request device access.
	MsgAcquire = "acquire"

	// MsgRecorder asks the widget to build a recorder over the listed
	// tracks.
	MsgRecorder = "recorder"

	// MsgStart, MsgPause, MsgResume, MsgStop control the recorder.
	MsgStart  = "start"
	MsgPause  = "pause"
	MsgResume = "resume"
	MsgStop   = "stop"

	// MsgRelease asks the widget to stop a stream or single track.
	MsgRelease = "release"
)

// Control frame types sent by the widget (widget → server).
const (
	// MsgHello announces the widget and its supported codecs.
	MsgHello = "hello"

	// MsgAcquired answers MsgAcquire with a live stream.
	MsgAcquired = "acquired"

	// MsgDenied answers MsgAcquire with a normalized failure reason.
	MsgDenied = "denied"

	// MsgRecorderReady acknowledges MsgRecorder with the actual mime
	// type the platform selected.
	MsgRecorderReady = "recorder_ready"

	// MsgEnded reports that a stream ended externally (e.g. the user
	// cancelled a screen share from browser chrome).
	MsgEnded = "ended"

	// MsgStopped confirms a recorder fully stopped after all buffered
	// chunks were flushed.
	MsgStopped = "stopped"
)

// Constraints is the wire form of [capture.Constraints].
type Constraints struct {
	Audio            bool `json:"audio,omitempty"`
	Video            bool `json:"video,omitempty"`
	Display          bool `json:"display,omitempty"`
	SystemAudio      bool `json:"system_audio,omitempty"`
	Width            int  `json:"width,omitempty"`
	Height           int  `json:"height,omitempty"`
	DimensionsAreMax bool `json:"dimensions_are_max,omitempty"`
	FrameRate        int  `json:"frame_rate,omitempty"`
}

// wireConstraints converts c to its wire form.
func wireConstraints(c capture.Constraints) *Constraints {
	return &Constraints{
		Audio:            c.Audio,
		Video:            c.Video,
		Display:          c.Display,
		SystemAudio:      c.SystemAudio,
		Width:            c.Width,
		Height:           c.Height,
		DimensionsAreMax: c.DimensionsAreMax,
		FrameRate:        c.FrameRate,
	}
}

// TrackInfo describes one track of an acquired stream.
type TrackInfo struct {
	// ID is the widget-side track identifier.
	ID string `json:"id"`

	// Kind is "audio" or "video".
	Kind string `json:"kind"`
}
