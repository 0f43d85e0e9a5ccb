package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mediasmith/captor/internal/settings"
	"github.com/mediasmith/captor/internal/upload"
	"github.com/mediasmith/captor/pkg/capture"
	"github.com/mediasmith/captor/pkg/capture/mock"
)

// testQuality is a fixed quality profile for session tests.
var testQuality = settings.Quality{
	AudioBitRate: 128_000,
	VideoBitRate: 2_500_000,
	Width:        640,
	Height:       480,
}

// recordingListener collects all listener events for assertions.
type recordingListener struct {
	mu      sync.Mutex
	states  []State
	notices []Notice
	uploads []upload.Result
}

func (l *recordingListener) listener() Listener {
	return Listener{
		OnState: func(st State) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.states = append(l.states, st)
		},
		OnNotice: func(n Notice) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.notices = append(l.notices, n)
		},
		OnUploadDone: func(res upload.Result) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.uploads = append(l.uploads, res)
		},
	}
}

func (l *recordingListener) noticeCount(kind NoticeKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, notice := range l.notices {
		if notice.Kind == kind {
			n++
		}
	}
	return n
}

// fakeUploader implements Uploader and records every request.
type fakeUploader struct {
	mu     sync.Mutex
	reqs   []upload.Request
	result upload.Result
}

func (f *fakeUploader) Upload(_ context.Context, req upload.Request, progress func(float64)) upload.Result {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if progress != nil {
		progress(1)
	}
	return f.result
}

func (f *fakeUploader) requests() []upload.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]upload.Request, len(f.reqs))
	copy(out, f.reqs)
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// newAudioFixture builds an audio session wired to mocks.
func newAudioFixture(t *testing.T, mutate func(*Config)) (*Session, *mock.Device, *mock.Recorder, *recordingListener) {
	t.Helper()

	rec := &mock.Recorder{MimeTypeResult: "audio/webm;codecs=opus"}
	stream := mock.NewStream(mock.NewTrack("a1", capture.TrackAudio))
	dev := &mock.Device{AcquireResult: stream, NewRecorderResult: rec}
	lis := &recordingListener{}

	cfg := Config{
		Name:        "recorder-1",
		Device:      dev,
		Settings:    settings.Resolve(capture.KindAudio, testQuality),
		Destination: upload.Destination{DraftItemID: 7, MaxUploadBytes: -1},
		MaxDuration: time.Minute,
		Listener:    lis.listener(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	sess, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sess, dev, rec, lis
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{MaxDuration: time.Minute}); err == nil {
		t.Error("expected error for missing device")
	}
	if _, err := New(Config{Device: &mock.Device{}}); err == nil {
		t.Error("expected error for missing max duration")
	}
}

func TestAudioStartBeginsCapturingImmediately(t *testing.T) {
	sess, dev, rec, _ := newAudioFixture(t, nil)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := sess.State(); got != StateCapturing {
		t.Errorf("state = %s, want %s", got, StateCapturing)
	}
	if rec.CallCountStart != 1 {
		t.Errorf("recorder starts = %d, want 1", rec.CallCountStart)
	}
	if rec.StartInterval != defaultChunkInterval {
		t.Errorf("chunk interval = %v, want %v", rec.StartInterval, defaultChunkInterval)
	}
	if len(dev.AcquireCalls) != 1 {
		t.Fatalf("acquire calls = %d, want 1", len(dev.AcquireCalls))
	}
	if c := dev.AcquireCalls[0].Constraints; !c.Audio || c.Video {
		t.Errorf("acquire constraints = %+v, want audio only", c)
	}
	if sess.AttemptID() == "" {
		t.Error("attempt id should be assigned after Start")
	}
	if !sess.HoldsDevice() {
		t.Error("session should hold the device while capturing")
	}
}

func TestVideoStartWaitsForConfirm(t *testing.T) {
	rec := &mock.Recorder{MimeTypeResult: "video/webm;codecs=vp9,opus"}
	stream := mock.NewStream(
		mock.NewTrack("v1", capture.TrackVideo),
		mock.NewTrack("a1", capture.TrackAudio),
	)
	dev := &mock.Device{AcquireResult: stream, NewRecorderResult: rec}

	sess, err := New(Config{
		Name:        "recorder-1",
		Device:      dev,
		Settings:    settings.Resolve(capture.KindVideo, testQuality),
		Destination: upload.Destination{MaxUploadBytes: -1},
		MaxDuration: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := sess.State(); got != StateStarting {
		t.Fatalf("state after Start = %s, want %s", got, StateStarting)
	}
	if rec.CallCountStart != 0 {
		t.Errorf("recorder should not start during preview, starts = %d", rec.CallCountStart)
	}

	if err := sess.ConfirmStart(); err != nil {
		t.Fatalf("ConfirmStart: %v", err)
	}
	if got := sess.State(); got != StateCapturing {
		t.Errorf("state after ConfirmStart = %s, want %s", got, StateCapturing)
	}
	if rec.CallCountStart != 1 {
		t.Errorf("recorder starts = %d, want 1", rec.CallCountStart)
	}
}

func TestPayloadPreservesChunkOrder(t *testing.T) {
	sess, _, rec, _ := newAudioFixture(t, nil)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitChunk(capture.Chunk{Data: []byte{1, 2}})
	rec.EmitChunk(capture.Chunk{Data: []byte{3}})
	rec.EmitChunk(capture.Chunk{Data: []byte{4, 5, 6}})

	if got := sess.Bytes(); got != 6 {
		t.Errorf("bytes = %d, want 6", got)
	}

	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := sess.State(); got != StateFinalizing {
		t.Fatalf("state after Stop = %s, want %s", got, StateFinalizing)
	}

	// A trailing flush arrives while finalizing and must be kept.
	rec.EmitChunk(capture.Chunk{Data: []byte{7}})
	rec.EmitStop()

	if got := sess.State(); got != StateRecorded {
		t.Fatalf("state after flush = %s, want %s", got, StateRecorded)
	}
	payload, ok := sess.Payload()
	if !ok {
		t.Fatal("payload should exist after StateRecorded")
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7}
	if string(payload.Data) != string(want) {
		t.Errorf("payload = %v, want %v", payload.Data, want)
	}
	if payload.MimeType != "audio/webm;codecs=opus" {
		t.Errorf("payload mime type = %q", payload.MimeType)
	}
}

func TestSizeLimitStopsOnceAcrossChunkBurst(t *testing.T) {
	sess, _, rec, lis := newAudioFixture(t, func(cfg *Config) {
		cfg.Destination.MaxUploadBytes = 1000
	})

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	chunk := capture.Chunk{Data: make([]byte, 400)}
	rec.EmitChunk(chunk)
	rec.EmitChunk(chunk)
	if got := sess.State(); got != StateCapturing {
		t.Fatalf("state below limit = %s, want %s", got, StateCapturing)
	}

	// The third chunk crosses the limit, the fourth arrives in the same
	// burst. Only one auto-stop and one notification may result.
	rec.EmitChunk(chunk)
	rec.EmitChunk(chunk)

	if got := sess.State(); got != StateFinalizing {
		t.Fatalf("state after limit = %s, want %s", got, StateFinalizing)
	}
	if rec.CallCountStop != 1 {
		t.Errorf("recorder stops = %d, want 1", rec.CallCountStop)
	}
	if got := lis.noticeCount(NoticeSizeLimit); got != 1 {
		t.Errorf("size limit notices = %d, want 1", got)
	}

	rec.EmitStop()
	payload, ok := sess.Payload()
	if !ok {
		t.Fatal("payload should exist")
	}
	// Data captured up to and around the threshold is kept, not discarded.
	if len(payload.Data) != 1600 {
		t.Errorf("payload size = %d, want 1600", len(payload.Data))
	}
}

func TestDurationLimitAutoStops(t *testing.T) {
	sess, _, rec, _ := newAudioFixture(t, func(cfg *Config) {
		cfg.MaxDuration = 30 * time.Millisecond
		cfg.TickPeriod = 5 * time.Millisecond
	})

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return sess.State() == StateFinalizing }, "auto-stop at duration limit")

	if rec.CallCountStop != 1 {
		t.Errorf("recorder stops = %d, want 1", rec.CallCountStop)
	}

	rec.EmitStop()
	if got := sess.State(); got != StateRecorded {
		t.Errorf("state = %s, want %s", got, StateRecorded)
	}
}

func TestPauseResumeKeepsData(t *testing.T) {
	sess, _, rec, _ := newAudioFixture(t, nil)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitChunk(capture.Chunk{Data: []byte{1, 2, 3}})

	if err := sess.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got := sess.State(); got != StatePaused {
		t.Errorf("state = %s, want %s", got, StatePaused)
	}
	if rec.CallCountPause != 1 {
		t.Errorf("recorder pauses = %d, want 1", rec.CallCountPause)
	}

	// An in-flight chunk delivered around the pause boundary is kept.
	rec.EmitChunk(capture.Chunk{Data: []byte{4}})

	if err := sess.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got := sess.State(); got != StateCapturing {
		t.Errorf("state = %s, want %s", got, StateCapturing)
	}
	if rec.CallCountResume != 1 {
		t.Errorf("recorder resumes = %d, want 1", rec.CallCountResume)
	}
	if got := sess.Bytes(); got != 4 {
		t.Errorf("bytes = %d, want 4", got)
	}
}

func TestOperationsRejectedInWrongState(t *testing.T) {
	sess, _, _, _ := newAudioFixture(t, nil)

	if err := sess.Pause(); err == nil {
		t.Error("Pause should fail in StateNew")
	}
	if err := sess.Resume(); err == nil {
		t.Error("Resume should fail in StateNew")
	}
	if err := sess.Stop(); err == nil {
		t.Error("Stop should fail in StateNew")
	}
	if err := sess.ConfirmStart(); err == nil {
		t.Error("ConfirmStart should fail in StateNew")
	}

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sess.Start(context.Background()); err == nil {
		t.Error("Start should fail while capturing")
	}
}

func TestStopReleasesDevice(t *testing.T) {
	sess, dev, rec, _ := newAudioFixture(t, nil)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	stream := dev.AcquireResult.(*mock.Stream)
	if stream.Stopped() {
		t.Fatal("stream should be live while capturing")
	}

	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stream.Stopped() {
		t.Error("stream should be stopped after Stop")
	}
	if sess.HoldsDevice() {
		t.Error("session should not hold the device after Stop")
	}
	rec.EmitStop()
	if sess.HoldsDevice() {
		t.Error("session should not hold the device in StateRecorded")
	}
}

func TestAcquireFailureEntersFailedAndAllowsRetry(t *testing.T) {
	sess, dev, _, lis := newAudioFixture(t, nil)
	dev.AcquireError = capture.ErrPermissionDenied

	if err := sess.Start(context.Background()); err == nil {
		t.Fatal("Start should fail when acquisition is denied")
	}
	if got := sess.State(); got != StateFailed {
		t.Errorf("state = %s, want %s", got, StateFailed)
	}
	if got := sess.FailureReason(); got != capture.ReasonPermission {
		t.Errorf("failure reason = %q, want %q", got, capture.ReasonPermission)
	}
	if got := lis.noticeCount(NoticeCaptureFailed); got != 1 {
		t.Errorf("capture failed notices = %d, want 1", got)
	}

	// Retry succeeds once the device grants access.
	dev.AcquireError = nil
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("retry Start: %v", err)
	}
	if got := sess.State(); got != StateCapturing {
		t.Errorf("state after retry = %s, want %s", got, StateCapturing)
	}
	if got := sess.FailureReason(); got != "" {
		t.Errorf("failure reason should be cleared on retry, got %q", got)
	}
}

func TestScreenComposesDisplayAndMicrophone(t *testing.T) {
	displayAudio := mock.NewTrack("da", capture.TrackAudio)
	display := mock.NewStream(mock.NewTrack("dv", capture.TrackVideo), displayAudio)
	micTrack := mock.NewTrack("ma", capture.TrackAudio)
	micStream := mock.NewStream(micTrack)

	rec := &mock.Recorder{MimeTypeResult: "video/webm;codecs=vp8,opus"}
	dev := &mock.Device{
		AcquireResults:    []capture.Stream{display, micStream},
		NewRecorderResult: rec,
	}

	sess, err := New(Config{
		Name:        "recorder-1",
		Device:      dev,
		Settings:    settings.Resolve(capture.KindScreen, testQuality),
		Destination: upload.Destination{MaxUploadBytes: -1},
		MaxDuration: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := sess.State(); got != StateStarting {
		t.Fatalf("state = %s, want %s", got, StateStarting)
	}

	if len(dev.AcquireCalls) != 2 {
		t.Fatalf("acquire calls = %d, want 2 (display, then microphone)", len(dev.AcquireCalls))
	}
	if c := dev.AcquireCalls[0].Constraints; !c.Display {
		t.Errorf("first acquire should request the display, got %+v", c)
	}
	if c := dev.AcquireCalls[1].Constraints; !c.Audio || c.Display {
		t.Errorf("second acquire should request the microphone, got %+v", c)
	}
	if !displayAudio.Stopped() {
		t.Error("display audio track should be stopped, only mic audio is recorded")
	}
	if micTrack.Stopped() {
		t.Error("microphone track should stay live")
	}

	if err := sess.ConfirmStart(); err != nil {
		t.Fatalf("ConfirmStart: %v", err)
	}
	if got := sess.State(); got != StateCapturing {
		t.Errorf("state = %s, want %s", got, StateCapturing)
	}
}

func TestStreamEndedDuringPreviewRevertsToNew(t *testing.T) {
	stream := mock.NewStream(mock.NewTrack("v1", capture.TrackVideo))
	dev := &mock.Device{AcquireResult: stream, NewRecorderResult: &mock.Recorder{}}

	sess, err := New(Config{
		Name:        "recorder-1",
		Device:      dev,
		Settings:    settings.Resolve(capture.KindVideo, testQuality),
		Destination: upload.Destination{MaxUploadBytes: -1},
		MaxDuration: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	stream.EmitEnded()

	if got := sess.State(); got != StateNew {
		t.Errorf("state = %s, want %s", got, StateNew)
	}
	if sess.HoldsDevice() {
		t.Error("device should be released when the source ends during preview")
	}
}

func TestStreamEndedWhileCapturingStops(t *testing.T) {
	sess, dev, rec, _ := newAudioFixture(t, nil)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dev.AcquireResult.(*mock.Stream).EmitEnded()

	if got := sess.State(); got != StateFinalizing {
		t.Fatalf("state = %s, want %s", got, StateFinalizing)
	}
	rec.EmitStop()
	if got := sess.State(); got != StateRecorded {
		t.Errorf("state = %s, want %s", got, StateRecorded)
	}
}

func TestUploadRunsAfterRecorded(t *testing.T) {
	upl := &fakeUploader{result: upload.Result{Outcome: upload.OutcomeSuccess, BytesTotal: 3}}
	sess, _, rec, lis := newAudioFixture(t, func(cfg *Config) {
		cfg.Uploader = upl
	})

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitChunk(capture.Chunk{Data: []byte{1, 2, 3}})
	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	rec.EmitStop()

	waitFor(t, func() bool { return sess.UploadResult() != nil }, "upload result")

	if got := sess.UploadResult().Outcome; got != upload.OutcomeSuccess {
		t.Errorf("upload outcome = %s, want %s", got, upload.OutcomeSuccess)
	}

	reqs := upl.requests()
	if len(reqs) != 1 {
		t.Fatalf("upload requests = %d, want 1", len(reqs))
	}
	wantName := fmt.Sprintf("audio-%s.webm", sess.AttemptID())
	if reqs[0].Filename != wantName {
		t.Errorf("filename = %q, want %q", reqs[0].Filename, wantName)
	}
	if reqs[0].Destination.DraftItemID != 7 {
		t.Errorf("draft item id = %d, want 7", reqs[0].Destination.DraftItemID)
	}

	lis.mu.Lock()
	uploads := len(lis.uploads)
	lis.mu.Unlock()
	if uploads != 1 {
		t.Errorf("upload done callbacks = %d, want 1", uploads)
	}
	if got := lis.noticeCount(NoticeUploadFailed); got != 0 {
		t.Errorf("upload failed notices = %d, want 0", got)
	}
}

func TestUploadFailureNotifies(t *testing.T) {
	upl := &fakeUploader{result: upload.Result{
		Outcome:    upload.OutcomeTransportError,
		HTTPStatus: 404,
		Err:        fmt.Errorf("gone"),
	}}
	sess, _, rec, lis := newAudioFixture(t, func(cfg *Config) {
		cfg.Uploader = upl
	})

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitChunk(capture.Chunk{Data: []byte{1}})
	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	rec.EmitStop()

	waitFor(t, func() bool { return lis.noticeCount(NoticeUploadFailed) == 1 }, "upload failed notice")

	if got := sess.State(); got != StateRecorded {
		t.Errorf("state = %s, want %s (upload failure is not a capture failure)", got, StateRecorded)
	}
}

func TestRestartDiscardsPriorAttempt(t *testing.T) {
	sess, _, rec, _ := newAudioFixture(t, nil)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := sess.AttemptID()
	rec.EmitChunk(capture.Chunk{Data: []byte{1, 2}})
	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	rec.EmitStop()

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if sess.AttemptID() == first {
		t.Error("restart should assign a fresh attempt id")
	}
	if _, ok := sess.Payload(); ok {
		t.Error("prior payload should be discarded on restart")
	}
	if got := sess.Bytes(); got != 0 {
		t.Errorf("bytes after restart = %d, want 0", got)
	}
}

func TestRestartConcurrentWithFinalize(t *testing.T) {
	sess, _, rec, _ := newAudioFixture(t, nil)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := sess.AttemptID()
	rec.EmitChunk(capture.Chunk{Data: []byte{1, 2, 3}})
	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Re-record becomes legal the instant Recorded is entered; drive the
	// restart concurrently with the finalize path.
	go rec.EmitStop()
	waitFor(t, func() bool {
		return sess.Start(context.Background()) == nil
	}, "restart to be accepted")

	if sess.AttemptID() == first {
		t.Error("restart should assign a fresh attempt id")
	}
	if got := sess.State(); got != StateCapturing {
		t.Errorf("state = %s, want %s", got, StateCapturing)
	}
}

// blockingStopRecorder stalls Stop until released, standing in for a
// remote recorder behind an unresponsive connection.
type blockingStopRecorder struct {
	mock.Recorder
	release chan struct{}
}

func (r *blockingStopRecorder) Stop() error {
	<-r.release
	return r.Recorder.Stop()
}

func TestStopWithStalledRecorderKeepsSessionResponsive(t *testing.T) {
	rec := &blockingStopRecorder{
		Recorder: mock.Recorder{MimeTypeResult: "audio/webm;codecs=opus"},
		release:  make(chan struct{}),
	}
	stream := mock.NewStream(mock.NewTrack("a1", capture.TrackAudio))
	sess, _, _, _ := newAudioFixture(t, func(cfg *Config) {
		cfg.Device = &mock.Device{AcquireResult: stream, NewRecorderResult: rec}
	})

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stopDone := make(chan error, 1)
	go func() { stopDone <- sess.Stop() }()

	// The stalled recorder stop must not wedge the session accessors.
	waitFor(t, func() bool { return sess.State() == StateFinalizing }, "finalizing state")
	if got := sess.Bytes(); got != 0 {
		t.Errorf("bytes = %d, want 0", got)
	}
	if sess.HoldsDevice() {
		t.Error("device should be released while the recorder stop is pending")
	}

	close(rec.release)
	if err := <-stopDone; err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.CallCountStop != 1 {
		t.Errorf("recorder stops = %d, want 1", rec.CallCountStop)
	}
}

func TestNotifyDataChangedFiresPerChunk(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	sess, _, rec, _ := newAudioFixture(t, func(cfg *Config) {
		cfg.NotifyDataChanged = func() {
			mu.Lock()
			calls++
			mu.Unlock()
		}
	})

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.EmitChunk(capture.Chunk{Data: []byte{1}})
	rec.EmitChunk(capture.Chunk{Data: []byte{2}})

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("change notifications = %d, want 2", calls)
	}
}

func TestCloseAbortsCapture(t *testing.T) {
	sess, dev, rec, _ := newAudioFixture(t, nil)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sess.Close()

	if got := sess.State(); got != StateFailed {
		t.Errorf("state = %s, want %s", got, StateFailed)
	}
	if !dev.AcquireResult.(*mock.Stream).Stopped() {
		t.Error("stream should be released on Close")
	}
	if rec.CallCountStop != 1 {
		t.Errorf("recorder stops = %d, want 1", rec.CallCountStop)
	}
}

func TestStateStrings(t *testing.T) {
	for st, want := range map[State]string{
		StateNew:        "new",
		StateStarting:   "starting",
		StateCapturing:  "capturing",
		StatePaused:     "paused",
		StateFinalizing: "finalizing",
		StateRecorded:   "recorded",
		StateFailed:     "failed",
	} {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
	if !strings.Contains(State(99).String(), "unknown") {
		t.Errorf("out-of-range state should stringify as unknown, got %q", State(99).String())
	}
}
