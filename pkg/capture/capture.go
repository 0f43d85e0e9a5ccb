// Package capture defines the interfaces and types for media capture device
// connectivity within Captor.
//
// The three primary abstractions are:
//
//   - [Device] — requests access to a capture source and returns a [Stream].
//   - [Stream] — a live set of stoppable [Track] values from one source.
//   - [Recorder] — encodes a [Stream] and emits periodic [Chunk] fragments.
//
// Implementations of these interfaces are provided by adapter packages
// (e.g., capture/remote for a browser widget bridged over WebSocket,
// capture/mock for tests). The interfaces are intentionally narrow to keep
// the session controller decoupled from how media is actually produced —
// Captor never encodes or decodes media itself.
//
// This package lives under pkg/ because external code (alternative device
// adapters) is expected to implement [Device], [Stream], and [Recorder].
package capture

import (
	"context"
	"time"
)

// Kind identifies which capture source a session records from.
type Kind int

const (
	// KindAudio records from a microphone only.
	KindAudio Kind = iota

	// KindVideo records camera video plus microphone audio.
	KindVideo

	// KindScreen records a shared display surface plus microphone audio.
	KindScreen
)

// String returns the human-readable name of the capture kind.
func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindScreen:
		return "screen"
	default:
		return "unknown"
	}
}

// TrackKind classifies a single [Track] within a [Stream].
type TrackKind int

const (
	// TrackAudio is an audio track.
	TrackAudio TrackKind = iota

	// TrackVideo is a video track.
	TrackVideo
)

// String returns the human-readable name of the track kind.
func (t TrackKind) String() string {
	switch t {
	case TrackAudio:
		return "audio"
	case TrackVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Chunk is one fragment of encoded media data delivered periodically while a
// [Recorder] is running. Chunks must be kept in delivery order — they are
// slices of a single encoded stream and reordering corrupts the payload.
type Chunk struct {
	// Data is the encoded fragment. Ownership passes to the receiver.
	Data []byte

	// Timestamp marks when this fragment was produced, relative to the
	// start of the recording.
	Timestamp time.Duration
}

// Size returns the fragment size in bytes.
func (c Chunk) Size() int { return len(c.Data) }

// Constraints describes the capture request handed to [Device.Acquire].
// It is produced by the settings resolver and is immutable once built.
type Constraints struct {
	// Audio requests an audio (microphone) track.
	Audio bool

	// Video requests a camera video track.
	Video bool

	// Display requests a display-surface (screen share) video track
	// instead of a camera.
	Display bool

	// SystemAudio requests that audio played by the system be captured
	// alongside a display surface. Only meaningful when Display is set.
	SystemAudio bool

	// Width and Height are the requested video dimensions in pixels.
	// Zero means no preference.
	Width  int
	Height int

	// DimensionsAreMax marks Width/Height as upper bounds rather than
	// ideal values. Display capture uses upper bounds because some
	// platforms reject ideal constraints for screen surfaces.
	DimensionsAreMax bool

	// FrameRate is the ideal frame rate in frames per second.
	// Zero means no preference.
	FrameRate int
}

// Track is a single stoppable media track within a [Stream].
//
// Implementations must be safe for concurrent use.
type Track interface {
	// ID is the adapter-specific unique identifier for this track.
	ID() string

	// Kind reports whether the track carries audio or video.
	Kind() TrackKind

	// Stop irrevocably ends the track and releases its source.
	// Stopping an already-stopped track is a no-op.
	Stop()
}

// Stream represents an acquired capture source as a set of live tracks.
//
// A Stream is obtained from [Device.Acquire] and remains valid until
// [Stream.Stop] is called or the source ends externally (for example, the
// platform revokes a screen share). Implementations must be safe for
// concurrent use.
type Stream interface {
	// Tracks returns all tracks on the stream, audio and video.
	Tracks() []Track

	// OnEnded registers cb to be invoked once when the stream ends for a
	// reason other than [Stream.Stop] — typically the user or platform
	// revoking the source out-of-band. Only one callback may be
	// registered at a time; subsequent calls replace the previous one.
	OnEnded(cb func())

	// Stop stops every track on the stream and releases the source.
	// Safe to call more than once.
	Stop()
}

// RecorderOptions selects the encoding parameters for [Device.NewRecorder].
type RecorderOptions struct {
	// MimeType is the selected container/codec identifier. Empty means
	// the adapter's default codec.
	MimeType string

	// AudioBitsPerSecond is the target audio bit rate. Zero for default.
	AudioBitsPerSecond int

	// VideoBitsPerSecond is the target video bit rate. Zero for default.
	VideoBitsPerSecond int
}

// Recorder encodes a [Stream] and delivers the result as periodic chunks.
//
// Chunk callbacks are delivered in capture order on an internal goroutine;
// receivers must not block. After [Recorder.Stop] the adapter flushes any
// buffered data as final chunk callbacks and then invokes the stop callback
// exactly once — the stop callback is the signal that every chunk has been
// delivered and the payload may be assembled.
//
// Implementations must be safe for concurrent use.
type Recorder interface {
	// Start begins encoding, emitting a chunk roughly every interval.
	Start(interval time.Duration) error

	// Pause suspends chunk production without ending the recording.
	Pause() error

	// Resume continues a paused recording.
	Resume() error

	// Stop ends the recording. Remaining buffered data is flushed via the
	// chunk callback before the stop callback fires.
	Stop() error

	// OnChunk registers cb for data delivery. Only one callback may be
	// registered at a time; subsequent calls replace the previous one.
	OnChunk(cb func(Chunk))

	// OnStop registers cb to be invoked once all chunks from a stopped
	// recording have been delivered.
	OnStop(cb func())

	// MimeType returns the mime type the recorder is actually producing,
	// which may differ from the requested one when the adapter fell back
	// to its default codec.
	MimeType() string
}

// Device is the entry point for a capture source provider.
// Implementations wrap a concrete capture subsystem (a remote browser
// widget, a test double, …) behind a uniform permissioned-acquire API.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// Acquire requests access to a capture source matching the given
	// constraints. The supplied ctx governs the lifetime of the request
	// only; once acquired, the Stream remains live until stopped.
	//
	// Returns [ErrPermissionDenied] if access was refused,
	// [ErrNotFound] if no matching source exists, or another error for
	// adapter-specific failures.
	Acquire(ctx context.Context, c Constraints) (Stream, error)

	// NewRecorder creates a recorder over the given stream. The stream
	// must have been produced by (or composed from streams of) this
	// device.
	NewRecorder(s Stream, opts RecorderOptions) (Recorder, error)

	// Supports reports whether the capture subsystem can encode the
	// given mime type identifier.
	Supports(mimeType string) bool
}
