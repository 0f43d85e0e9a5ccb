// Package session implements the recording-session lifecycle: a state
// machine that owns one capture device handle, one countdown timer, and one
// chunk buffer, enforces the duration and size limits during capture, and
// hands the finalized payload to the upload pipeline.
//
// The state machine guarantees two invariants for every reachable state
// sequence:
//
//   - the device handle is held iff the state is Starting, Capturing, or
//     Paused;
//   - the accumulated byte count always equals the sum of appended chunk
//     sizes, and the finalized payload preserves chunk arrival order.
//
// All exported methods are safe for concurrent use; capture, timer, and
// upload callbacks may interleave arbitrarily but only ever mutate the one
// owning session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/mediasmith/captor/internal/observe"
	"github.com/mediasmith/captor/internal/settings"
	"github.com/mediasmith/captor/internal/upload"
	"github.com/mediasmith/captor/pkg/capture"
)

// defaultChunkInterval is how often the recorder is asked to emit a chunk.
const defaultChunkInterval = time.Second

// State is the lifecycle state of a [Session].
type State int

const (
	// StateNew is the initial state: no device held, nothing recorded.
	StateNew State = iota

	// StateStarting means the device is acquired and previewing but the
	// recording has not begun. Video and screen kinds only — audio goes
	// straight to capturing.
	StateStarting

	// StateCapturing means chunks are being produced and the countdown
	// timer is running.
	StateCapturing

	// StatePaused means capture and countdown are frozen, resumable.
	StatePaused

	// StateFinalizing means capture was stopped and the session is
	// waiting for the device to confirm full stop before the payload is
	// assembled.
	StateFinalizing

	// StateRecorded is the terminal success state: the payload is
	// assembled and available as a playable preview.
	StateRecorded

	// StateFailed is the terminal error state: a device or permission
	// problem ended the attempt. A fresh attempt may be started.
	StateFailed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateCapturing:
		return "capturing"
	case StatePaused:
		return "paused"
	case StateFinalizing:
		return "finalizing"
	case StateRecorded:
		return "recorded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// engaged reports whether the state holds the capture device.
func (s State) engaged() bool {
	return s == StateStarting || s == StateCapturing || s == StatePaused
}

// NoticeKind classifies a one-shot notification surfaced to the
// presentation layer.
type NoticeKind int

const (
	// NoticeSizeLimit means capture was auto-stopped at the upload size
	// limit. Not a failure — the recording up to the limit is kept.
	NoticeSizeLimit NoticeKind = iota

	// NoticeCaptureFailed means a device or permission problem ended the
	// attempt.
	NoticeCaptureFailed

	// NoticeUploadFailed means the finalized payload could not be stored.
	NoticeUploadFailed
)

// String returns the wire name of the notice kind.
func (k NoticeKind) String() string {
	switch k {
	case NoticeSizeLimit:
		return "size_limit"
	case NoticeCaptureFailed:
		return "capture_failed"
	case NoticeUploadFailed:
		return "upload_failed"
	default:
		return "unknown"
	}
}

// Notice is a one-shot user-facing notification.
type Notice struct {
	// Kind classifies the notification.
	Kind NoticeKind

	// Reason is the normalized failure reason for [NoticeCaptureFailed].
	Reason capture.FailureReason

	// Upload carries the classified result for [NoticeUploadFailed].
	Upload *upload.Result
}

// Listener receives presentation-facing events from a session. All fields
// are optional. Callbacks are invoked outside the session lock but must not
// block; they may call back into the session.
type Listener struct {
	// OnState is invoked after every state transition.
	OnState func(State)

	// OnTick is invoked on every countdown tick with elapsed and
	// remaining time.
	OnTick func(elapsed, remaining time.Duration)

	// OnUploadProgress is invoked with the sent fraction in [0,1] while
	// the upload runs.
	OnUploadProgress func(fraction float64)

	// OnNotice is invoked for one-shot notifications.
	OnNotice func(Notice)

	// OnUploadDone is invoked once with the classified result when an
	// upload attempt terminates, whatever its outcome.
	OnUploadDone func(upload.Result)
}

// Uploader transfers a finalized payload. Implemented by [upload.Pipeline].
type Uploader interface {
	Upload(ctx context.Context, req upload.Request, progress func(float64)) upload.Result
}

// Config holds the immutable collaborators and limits for one [Session].
type Config struct {
	// Name identifies the session within its widget (e.g. "recorder-1").
	Name string

	// Device is the capture subsystem adapter. Required.
	Device capture.Device

	// Settings is the resolved capture configuration. Required.
	Settings settings.Settings

	// Destination identifies the upload target and carries the size
	// limit (MaxUploadBytes, −1 unbounded).
	Destination upload.Destination

	// MaxDuration is the capture duration limit. Required (> 0).
	MaxDuration time.Duration

	// TickPeriod overrides the countdown tick period. Defaults to 100ms.
	TickPeriod time.Duration

	// ChunkInterval is how often the recorder emits a chunk. Defaults to
	// one second.
	ChunkInterval time.Duration

	// Uploader stores finalized payloads. When nil the session stops at
	// StateRecorded without uploading.
	Uploader Uploader

	// NotifyDataChanged is invoked once per chunk arrival so an external
	// change tracker learns that unsaved data exists. Optional; the
	// caller resolves any preview-context exclusion before injecting.
	NotifyDataChanged func()

	// Listener receives presentation-facing events.
	Listener Listener

	// Metrics overrides the metrics instance. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Session is the principal entity: one capture attempt lifecycle.
type Session struct {
	name    string
	device  capture.Device
	setting settings.Settings
	dest    upload.Destination
	limit   time.Duration
	chunkIv time.Duration
	upl     Uploader
	changed func()
	lis     Listener
	met     *observe.Metrics

	timer  *Timer
	buffer *Buffer

	mu           sync.Mutex
	state        State
	attemptID    string
	stream       capture.Stream
	recorder     capture.Recorder
	sizeAlerted  bool
	stopping     bool
	reason       capture.FailureReason
	payload      Payload
	hasPayload   bool
	uploadResult *upload.Result
	uploadCancel context.CancelFunc
	capturedAt   time.Time
	watchers     []func(*Session, State)
}

// New creates a [Session] in [StateNew].
func New(cfg Config) (*Session, error) {
	if cfg.Device == nil {
		return nil, fmt.Errorf("session: device is required")
	}
	if cfg.MaxDuration <= 0 {
		return nil, fmt.Errorf("session: max duration is required")
	}
	chunkIv := cfg.ChunkInterval
	if chunkIv <= 0 {
		chunkIv = defaultChunkInterval
	}
	met := cfg.Metrics
	if met == nil {
		met = observe.DefaultMetrics()
	}

	s := &Session{
		name:    cfg.Name,
		device:  cfg.Device,
		setting: cfg.Settings,
		dest:    cfg.Destination,
		limit:   cfg.MaxDuration,
		chunkIv: chunkIv,
		upl:     cfg.Uploader,
		changed: cfg.NotifyDataChanged,
		lis:     cfg.Listener,
		met:     met,
		buffer:  NewBuffer(),
		state:   StateNew,
	}
	s.timer = NewTimer(TimerConfig{
		TickPeriod: cfg.TickPeriod,
		OnTick:     s.handleTick,
		OnExpire:   s.handleExpiry,
	})
	return s, nil
}

// ─── Accessors ────────────────────────────────────────────────────────────────

// Name returns the session's identifier within its widget.
func (s *Session) Name() string { return s.name }

// Kind returns the capture kind the session records.
func (s *Session) Kind() capture.Kind { return s.setting.Kind }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AttemptID returns the identifier of the current capture attempt, or ""
// before the first attempt.
func (s *Session) AttemptID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptID
}

// Bytes returns the cumulative size of the current attempt's chunks.
func (s *Session) Bytes() int64 { return s.buffer.Bytes() }

// Remaining returns the time left before the duration limit.
func (s *Session) Remaining() time.Duration { return s.timer.Remaining() }

// HoldsDevice reports whether the session currently owns a device handle.
func (s *Session) HoldsDevice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// FailureReason returns the normalized reason after [StateFailed].
func (s *Session) FailureReason() capture.FailureReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Payload returns the finalized payload after [StateRecorded].
func (s *Session) Payload() (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload, s.hasPayload
}

// UploadResult returns the classified upload outcome once the upload has
// terminated, or nil before that.
func (s *Session) UploadResult() *upload.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadResult
}

// AddStateWatcher registers a callback invoked after every state
// transition, in addition to the configured listener. Used by the group
// coordinator. Watchers are invoked outside the session lock.
func (s *Session) AddStateWatcher(cb func(*Session, State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, cb)
}

// ─── Lifecycle operations ─────────────────────────────────────────────────────

// Start begins a new capture attempt: it requests device access with the
// resolved constraints and, for audio, immediately begins recording. Video
// and screen sessions stay in [StateStarting] with a live preview until
// [Session.ConfirmStart].
//
// Valid from [StateNew], [StateRecorded] (record again), and [StateFailed]
// (retry). The prior attempt's payload and device handle are discarded.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state.engaged() || s.state == StateFinalizing {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("session %s: start not allowed in state %s", s.name, st)
	}

	// Discard the prior attempt.
	if s.uploadCancel != nil {
		s.uploadCancel()
		s.uploadCancel = nil
	}
	s.attemptID = uuid.NewString()
	s.hasPayload = false
	s.payload = Payload{}
	s.uploadResult = nil
	s.reason = ""
	s.sizeAlerted = false
	s.stopping = false
	attemptID := s.attemptID
	s.setStateLocked(StateStarting)
	s.mu.Unlock()
	s.notifyState(StateStarting)

	stream, err := s.acquire(ctx)
	if err != nil {
		reason := capture.ReasonForError(err)
		s.met.CaptureFailures.Add(ctx, 1,
			metric.WithAttributes(observe.Attr("reason", string(reason))))
		slog.Warn("device acquisition failed",
			"session", s.name, "attempt", attemptID, "kind", s.setting.Kind.String(), "reason", string(reason), "err", err)

		s.mu.Lock()
		s.reason = reason
		s.setStateLocked(StateFailed)
		s.mu.Unlock()
		s.notifyState(StateFailed)
		s.notify(Notice{Kind: NoticeCaptureFailed, Reason: reason})
		return fmt.Errorf("session %s: acquire device: %w", s.name, err)
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
	s.met.ActiveSessions.Add(ctx, 1)
	stream.OnEnded(s.handleStreamEnded)

	slog.Info("device acquired",
		"session", s.name, "attempt", attemptID, "kind", s.setting.Kind.String())

	// Audio has no preview stage: recording begins immediately.
	if s.setting.Kind == capture.KindAudio {
		return s.ConfirmStart()
	}
	return nil
}

// acquire requests the capture stream for the session's kind. Screen
// capture acquires the display surface and a microphone separately and
// composes them, discarding any display audio.
func (s *Session) acquire(ctx context.Context) (capture.Stream, error) {
	if s.setting.Kind != capture.KindScreen {
		return s.device.Acquire(ctx, s.setting.Constraints)
	}

	display, err := s.device.Acquire(ctx, s.setting.Constraints)
	if err != nil {
		return nil, err
	}
	mic, err := s.device.Acquire(ctx, s.setting.MicConstraints())
	if err != nil {
		display.Stop()
		return nil, err
	}
	return capture.Compose(display, mic), nil
}

// ConfirmStart begins recording on an acquired stream: it selects the
// codec, resets the chunk buffer, creates and starts the recorder, and arms
// the countdown timer. Valid from [StateStarting].
func (s *Session) ConfirmStart() error {
	s.mu.Lock()
	if s.state != StateStarting {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("session %s: confirm start not allowed in state %s", s.name, st)
	}
	stream := s.stream
	s.mu.Unlock()

	mimeType := s.setting.PickCodec(s.device)
	rec, err := s.device.NewRecorder(stream, s.setting.RecorderOptions(mimeType))
	if err == nil {
		rec.OnChunk(s.handleChunk)
		rec.OnStop(s.handleRecorderStop)
		err = rec.Start(s.chunkIv)
	}
	if err != nil {
		reason := capture.ReasonForError(err)
		s.met.CaptureFailures.Add(context.Background(), 1,
			metric.WithAttributes(observe.Attr("reason", string(reason))))
		slog.Warn("recorder start failed", "session", s.name, "err", err)

		s.mu.Lock()
		s.releaseStreamLocked()
		s.reason = reason
		s.setStateLocked(StateFailed)
		s.mu.Unlock()
		s.notifyState(StateFailed)
		s.notify(Notice{Kind: NoticeCaptureFailed, Reason: reason})
		return fmt.Errorf("session %s: start recorder: %w", s.name, err)
	}

	s.buffer.Reset()

	s.mu.Lock()
	if s.state != StateStarting {
		// The source ended while the recorder was being set up.
		st := s.state
		s.mu.Unlock()
		_ = rec.Stop()
		return fmt.Errorf("session %s: source ended before capture began (state %s)", s.name, st)
	}
	s.recorder = rec
	s.capturedAt = time.Now()
	s.setStateLocked(StateCapturing)
	s.mu.Unlock()
	s.timer.Start(s.limit)
	s.notifyState(StateCapturing)

	slog.Info("capture started",
		"session", s.name, "kind", s.setting.Kind.String(), "mime_type", mimeType, "limit", s.limit)
	return nil
}

// Pause freezes the countdown and suspends chunk production. No data is
// discarded. Valid from [StateCapturing].
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StateCapturing {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("session %s: pause not allowed in state %s", s.name, st)
	}
	rec := s.recorder
	s.setStateLocked(StatePaused)
	s.mu.Unlock()

	s.timer.Pause()
	if err := rec.Pause(); err != nil {
		slog.Warn("recorder pause error", "session", s.name, "err", err)
	}
	s.notifyState(StatePaused)
	return nil
}

// Resume re-arms the countdown from the preserved remaining time and
// resumes chunk production. Valid from [StatePaused].
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("session %s: resume not allowed in state %s", s.name, st)
	}
	rec := s.recorder
	s.setStateLocked(StateCapturing)
	s.mu.Unlock()

	s.timer.Resume()
	if err := rec.Resume(); err != nil {
		slog.Warn("recorder resume error", "session", s.name, "err", err)
	}
	s.notifyState(StateCapturing)
	return nil
}

// Stop ends the current capture: the countdown is cancelled, the recorder
// is asked to stop and flush, and the device is released. The session moves
// to [StateFinalizing] until the recorder confirms full stop. Valid from
// [StateCapturing] and [StatePaused].
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateCapturing && s.state != StatePaused {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("session %s: stop not allowed in state %s", s.name, st)
	}
	stopRec := s.stopCaptureLocked()
	s.mu.Unlock()
	s.notifyState(StateFinalizing)
	if stopRec != nil {
		stopRec()
	}
	return nil
}

// Close tears the session down: any running capture is stopped, the device
// released, and an in-flight upload aborted. The session is left in a
// terminal state and should not be reused.
func (s *Session) Close() {
	s.mu.Lock()
	if s.uploadCancel != nil {
		s.uploadCancel()
		s.uploadCancel = nil
	}
	if s.state.engaged() {
		s.timer.Stop()
		rec := s.recorder
		s.releaseStreamLocked()
		s.recorder = nil
		s.setStateLocked(StateFailed)
		s.mu.Unlock()
		if rec != nil {
			_ = rec.Stop()
		}
		s.notifyState(StateFailed)
		return
	}
	s.mu.Unlock()
}

// ─── Internal transitions ─────────────────────────────────────────────────────

// stopCaptureLocked performs the common stop action: cancel the countdown,
// release the device, enter StateFinalizing. Guarded so that the duration
// expiry and the size limit cannot both stop the same attempt. Must be
// called with s.mu held. Returns the recorder stop to issue after
// unlocking — the stop can be a network write and must not block every
// session accessor behind the lock.
func (s *Session) stopCaptureLocked() func() {
	if s.stopping {
		return nil
	}
	s.stopping = true

	s.timer.Stop()
	rec := s.recorder
	s.releaseStreamLocked()
	s.setStateLocked(StateFinalizing)

	if rec == nil {
		return nil
	}
	return func() {
		if err := rec.Stop(); err != nil {
			slog.Warn("recorder stop error", "session", s.name, "err", err)
		}
	}
}

// releaseStreamLocked stops all stream tracks and clears the device
// handle. Must be called with s.mu held.
func (s *Session) releaseStreamLocked() {
	if s.stream == nil {
		return
	}
	s.stream.Stop()
	s.stream = nil
	s.met.ActiveSessions.Add(context.Background(), -1)
}

// handleChunk is the recorder data callback. Chunks arrive in capture
// order and are appended in that order; a trailing flush may still arrive
// while finalizing.
func (s *Session) handleChunk(c capture.Chunk) {
	s.mu.Lock()
	if s.state != StateCapturing && s.state != StatePaused && s.state != StateFinalizing {
		s.mu.Unlock()
		return
	}
	total := s.buffer.Append(c)

	kindAttr := metric.WithAttributes(observe.Attr("kind", s.setting.Kind.String()))
	s.met.ChunksAppended.Add(context.Background(), 1, kindAttr)
	s.met.BytesCaptured.Add(context.Background(), int64(c.Size()), kindAttr)

	// Enforce the size limit at arrival time so the capture stops
	// promptly instead of accumulating unusable excess. Fires at most
	// once per attempt even when several chunks cross the threshold in
	// the same tick window.
	limitHit := s.state == StateCapturing &&
		s.dest.Bounded() && total >= s.dest.MaxUploadBytes && !s.sizeAlerted
	var stopRec func()
	if limitHit {
		s.sizeAlerted = true
		s.met.SizeLimitStops.Add(context.Background(), 1)
		stopRec = s.stopCaptureLocked()
	}
	s.mu.Unlock()

	if s.changed != nil {
		s.changed()
	}
	if limitHit {
		slog.Info("size limit reached, capture auto-stopped",
			"session", s.name, "bytes", total, "limit", s.dest.MaxUploadBytes)
		s.notifyState(StateFinalizing)
		s.notify(Notice{Kind: NoticeSizeLimit})
		if stopRec != nil {
			stopRec()
		}
	}
}

// handleTick forwards countdown progress to the listener.
func (s *Session) handleTick(elapsed, remaining time.Duration) {
	if s.lis.OnTick != nil {
		s.lis.OnTick(elapsed, remaining)
	}
}

// handleExpiry is the countdown expiry callback: the duration limit was
// reached and capture auto-stops.
func (s *Session) handleExpiry() {
	s.mu.Lock()
	if s.state != StateCapturing && s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	stopRec := s.stopCaptureLocked()
	s.mu.Unlock()

	slog.Info("duration limit reached, capture auto-stopped", "session", s.name, "limit", s.limit)
	s.notifyState(StateFinalizing)
	if stopRec != nil {
		stopRec()
	}
}

// handleStreamEnded is the stream's external-stop callback (e.g. the
// platform revoked a screen share). If capture was already confirmed it is
// treated as a user stop; during the preview stage the session reverts to
// StateNew.
func (s *Session) handleStreamEnded() {
	s.mu.Lock()
	switch s.state {
	case StateStarting:
		s.releaseStreamLocked()
		s.setStateLocked(StateNew)
		s.mu.Unlock()
		slog.Info("source ended before capture confirmed", "session", s.name)
		s.notifyState(StateNew)
	case StateCapturing, StatePaused:
		stopRec := s.stopCaptureLocked()
		s.mu.Unlock()
		slog.Info("source ended externally, capture stopped", "session", s.name)
		s.notifyState(StateFinalizing)
		if stopRec != nil {
			stopRec()
		}
	default:
		s.mu.Unlock()
	}
}

// handleRecorderStop fires once the recorder has confirmed full stop and
// every chunk has been delivered. Only now is the payload assembled — any
// earlier and the last fragment could be missing.
func (s *Session) handleRecorderStop() {
	s.mu.Lock()
	if s.state != StateFinalizing {
		s.mu.Unlock()
		return
	}
	mimeType := ""
	if s.recorder != nil {
		mimeType = s.recorder.MimeType()
	}
	s.payload = s.buffer.Finalize(mimeType)
	s.hasPayload = true
	s.recorder = nil
	payloadBytes := len(s.payload.Data)
	captured := time.Since(s.capturedAt)
	s.setStateLocked(StateRecorded)
	runUpload := s.startUploadLocked()
	s.mu.Unlock()

	s.met.CaptureDuration.Record(context.Background(), captured.Seconds())
	slog.Info("capture finalized",
		"session", s.name, "bytes", payloadBytes, "mime_type", mimeType, "captured", captured)

	s.notifyState(StateRecorded)
	if runUpload != nil {
		go runUpload()
	}
}

// startUploadLocked prepares the upload of the finalized payload. Returns
// the closure to run on its own goroutine, or nil when no uploader is
// configured. Must be called with s.mu held.
func (s *Session) startUploadLocked() func() {
	if s.upl == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.uploadCancel = cancel

	req := upload.Request{
		Source:      upload.BytesSource{Data: s.payload.Data, MimeType: s.payload.MimeType},
		Filename:    s.filenameLocked(),
		Destination: s.dest,
	}
	attemptID := s.attemptID

	return func() {
		start := time.Now()
		res := s.upl.Upload(ctx, req, s.lis.OnUploadProgress)
		cancel()

		s.mu.Lock()
		// A new attempt may have started while the upload ran; its
		// results belong to the old attempt and are discarded.
		stale := s.attemptID != attemptID
		if !stale {
			s.uploadResult = &res
			s.uploadCancel = nil
		}
		s.mu.Unlock()
		if stale {
			return
		}

		s.met.RecordUpload(context.Background(), res.Outcome.String(), time.Since(start).Seconds())
		if res.Success() {
			slog.Info("upload complete",
				"session", s.name, "attempt", attemptID, "bytes", res.BytesTotal, "took", time.Since(start))
		} else {
			slog.Warn("upload failed",
				"session", s.name, "attempt", attemptID, "result", res.String(), "err", res.Err)
			s.notify(Notice{Kind: NoticeUploadFailed, Upload: &res})
		}
		if s.lis.OnUploadDone != nil {
			s.lis.OnUploadDone(res)
		}
	}
}

// filenameLocked derives the destination filename for the current attempt.
// Must be called with s.mu held.
func (s *Session) filenameLocked() string {
	ext := settings.ContainerExt(s.payload.MimeType)
	return fmt.Sprintf("%s-%s.%s", s.setting.Kind.String(), s.attemptID, ext)
}

// setStateLocked records a transition. Must be called with s.mu held; the
// caller invokes notifyState after unlocking.
func (s *Session) setStateLocked(st State) {
	s.state = st
}

// notifyState invokes the listener and all watchers for a transition.
func (s *Session) notifyState(st State) {
	if s.lis.OnState != nil {
		s.lis.OnState(st)
	}
	s.mu.Lock()
	watchers := make([]func(*Session, State), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()
	for _, w := range watchers {
		w(s, st)
	}
}

// notify invokes the listener's notice callback.
func (s *Session) notify(n Notice) {
	if s.lis.OnNotice != nil {
		s.lis.OnNotice(n)
	}
}
