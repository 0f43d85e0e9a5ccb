// Package mock provides in-memory mock implementations of the
// [capture.Device], [capture.Stream], [capture.Track], and
// [capture.Recorder] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	stream := mock.NewStream(mock.NewTrack("a1", capture.TrackAudio))
//	rec := &mock.Recorder{}
//	dev := &mock.Device{AcquireResult: stream, NewRecorderResult: rec}
//	// drive the session, then simulate data arriving:
//	rec.EmitChunk(capture.Chunk{Data: []byte{1, 2, 3}})
//	rec.EmitStop()
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/mediasmith/captor/pkg/capture"
)

// ─── Track ────────────────────────────────────────────────────────────────────

// Track is a mock implementation of [capture.Track].
type Track struct {
	mu sync.Mutex

	// IDResult is returned by [Track.ID].
	IDResult string

	// KindResult is returned by [Track.Kind].
	KindResult capture.TrackKind

	// CallCountStop records how many times Stop was called.
	CallCountStop int
}

// NewTrack creates a mock track with the given id and kind.
func NewTrack(id string, kind capture.TrackKind) *Track {
	return &Track{IDResult: id, KindResult: kind}
}

// ID implements [capture.Track].
func (t *Track) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.IDResult
}

// Kind implements [capture.Track].
func (t *Track) Kind() capture.TrackKind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.KindResult
}

// Stop implements [capture.Track].
func (t *Track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountStop++
}

// Stopped reports whether Stop has been called at least once.
func (t *Track) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.CallCountStop > 0
}

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is a mock implementation of [capture.Stream].
type Stream struct {
	mu sync.Mutex

	// TracksResult is returned by [Stream.Tracks].
	TracksResult []capture.Track

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// RecordedEndedCallback holds the callback registered via OnEnded.
	RecordedEndedCallback func()
}

// NewStream creates a mock stream carrying the given tracks.
func NewStream(tracks ...capture.Track) *Stream {
	return &Stream{TracksResult: tracks}
}

// Tracks implements [capture.Stream].
func (s *Stream) Tracks() []capture.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capture.Track, len(s.TracksResult))
	copy(out, s.TracksResult)
	return out
}

// OnEnded implements [capture.Stream]. To simulate an external stop in
// tests, call [Stream.EmitEnded].
func (s *Stream) OnEnded(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RecordedEndedCallback = cb
}

// Stop implements [capture.Stream]. All tracks are stopped.
func (s *Stream) Stop() {
	s.mu.Lock()
	s.CallCountStop++
	tracks := s.TracksResult
	s.mu.Unlock()
	for _, t := range tracks {
		t.Stop()
	}
}

// Stopped reports whether Stop has been called at least once.
func (s *Stream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountStop > 0
}

// EmitEnded invokes the registered ended callback, simulating the platform
// revoking the source (e.g. a cancelled screen share).
func (s *Stream) EmitEnded() {
	s.mu.Lock()
	cb := s.RecordedEndedCallback
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// ─── Recorder ─────────────────────────────────────────────────────────────────

// Recorder is a mock implementation of [capture.Recorder].
// Set the exported Result/Error fields before use; inspect the Call* fields
// after. Use [Recorder.EmitChunk] and [Recorder.EmitStop] to simulate the
// capture subsystem delivering data.
type Recorder struct {
	mu sync.Mutex

	// StartError is returned by [Recorder.Start].
	StartError error

	// PauseError is returned by [Recorder.Pause].
	PauseError error

	// ResumeError is returned by [Recorder.Resume].
	ResumeError error

	// StopError is returned by [Recorder.Stop].
	StopError error

	// MimeTypeResult is returned by [Recorder.MimeType].
	MimeTypeResult string

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountPause records how many times Pause was called.
	CallCountPause int

	// CallCountResume records how many times Resume was called.
	CallCountResume int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// StartInterval records the interval passed to the last Start call.
	StartInterval time.Duration

	chunkCb func(capture.Chunk)
	stopCb  func()
}

// Start implements [capture.Recorder].
func (r *Recorder) Start(interval time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountStart++
	r.StartInterval = interval
	return r.StartError
}

// Pause implements [capture.Recorder].
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountPause++
	return r.PauseError
}

// Resume implements [capture.Recorder].
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountResume++
	return r.ResumeError
}

// Stop implements [capture.Recorder]. It does NOT emit the stop callback —
// tests control flush ordering explicitly via [Recorder.EmitStop].
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountStop++
	return r.StopError
}

// OnChunk implements [capture.Recorder].
func (r *Recorder) OnChunk(cb func(capture.Chunk)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkCb = cb
}

// OnStop implements [capture.Recorder].
func (r *Recorder) OnStop(cb func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCb = cb
}

// MimeType implements [capture.Recorder].
func (r *Recorder) MimeType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.MimeTypeResult
}

// EmitChunk delivers a chunk to the registered chunk callback.
func (r *Recorder) EmitChunk(c capture.Chunk) {
	r.mu.Lock()
	cb := r.chunkCb
	r.mu.Unlock()
	if cb != nil {
		cb(c)
	}
}

// EmitStop invokes the registered stop callback, simulating the capture
// subsystem confirming that the recording fully stopped and all chunks
// were delivered.
func (r *Recorder) EmitStop() {
	r.mu.Lock()
	cb := r.stopCb
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// ─── Device ───────────────────────────────────────────────────────────────────

// AcquireCall records the arguments of a single [Device.Acquire] invocation.
type AcquireCall struct {
	// Constraints is the constraint set passed to Acquire.
	Constraints capture.Constraints
}

// Device is a mock implementation of [capture.Device].
type Device struct {
	mu sync.Mutex

	// AcquireResult is returned by [Device.Acquire] when AcquireError is nil.
	AcquireResult capture.Stream

	// AcquireError is returned by [Device.Acquire].
	AcquireError error

	// AcquireResults, when non-empty, overrides AcquireResult: each call
	// to Acquire consumes the next entry. Useful for screen capture
	// tests where display and microphone are acquired separately.
	AcquireResults []capture.Stream

	// NewRecorderResult is returned by [Device.NewRecorder].
	NewRecorderResult capture.Recorder

	// NewRecorderError is returned by [Device.NewRecorder].
	NewRecorderError error

	// SupportedTypes lists mime types for which Supports returns true.
	// A nil map means every type is supported.
	SupportedTypes map[string]bool

	// AcquireCalls records the arguments of every Acquire invocation.
	AcquireCalls []AcquireCall

	// RecorderOptions records the options of every NewRecorder invocation.
	RecorderOptions []capture.RecorderOptions
}

// Acquire implements [capture.Device].
func (d *Device) Acquire(_ context.Context, c capture.Constraints) (capture.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.AcquireCalls = append(d.AcquireCalls, AcquireCall{Constraints: c})
	if d.AcquireError != nil {
		return nil, d.AcquireError
	}
	if len(d.AcquireResults) > 0 {
		s := d.AcquireResults[0]
		d.AcquireResults = d.AcquireResults[1:]
		return s, nil
	}
	return d.AcquireResult, nil
}

// NewRecorder implements [capture.Device].
func (d *Device) NewRecorder(_ capture.Stream, opts capture.RecorderOptions) (capture.Recorder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.RecorderOptions = append(d.RecorderOptions, opts)
	if d.NewRecorderError != nil {
		return nil, d.NewRecorderError
	}
	return d.NewRecorderResult, nil
}

// Supports implements [capture.Device].
func (d *Device) Supports(mimeType string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SupportedTypes == nil {
		return true
	}
	return d.SupportedTypes[mimeType]
}
