package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mediasmith/captor/internal/settings"
	"github.com/mediasmith/captor/internal/upload"
	"github.com/mediasmith/captor/pkg/capture"
	"github.com/mediasmith/captor/pkg/capture/mock"
)

// newGroupSession builds an audio session with its own mocks for group
// tests, returning the session and its recorder.
func newGroupSession(t *testing.T, name string) (*Session, *mock.Recorder) {
	t.Helper()
	rec := &mock.Recorder{MimeTypeResult: "audio/webm;codecs=opus"}
	dev := &mock.Device{
		AcquireResult:     mock.NewStream(mock.NewTrack("a1", capture.TrackAudio)),
		NewRecorderResult: rec,
	}
	sess, err := New(Config{
		Name:        name,
		Device:      dev,
		Settings:    settings.Resolve(capture.KindAudio, testQuality),
		Destination: upload.Destination{MaxUploadBytes: -1},
		MaxDuration: time.Minute,
	})
	if err != nil {
		t.Fatalf("New(%s): %v", name, err)
	}
	return sess, rec
}

func TestGroupDisablesSiblingsWhileEngaged(t *testing.T) {
	g := NewGroup(nil)
	s1, rec1 := newGroupSession(t, "recorder-1")
	s2, _ := newGroupSession(t, "recorder-2")
	g.Add(s1)
	g.Add(s2)

	if !g.ControlsEnabled(s1) || !g.ControlsEnabled(s2) {
		t.Fatal("all controls should be enabled while idle")
	}

	if err := s1.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !g.ControlsEnabled(s1) {
		t.Error("the engaged session keeps its controls")
	}
	if g.ControlsEnabled(s2) {
		t.Error("sibling controls should be disabled while recorder-1 is engaged")
	}

	// Paused still holds the device, so siblings stay disabled.
	if err := s1.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if g.ControlsEnabled(s2) {
		t.Error("sibling controls should stay disabled while recorder-1 is paused")
	}

	if err := s1.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := s1.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	rec1.EmitStop()

	if !g.ControlsEnabled(s2) {
		t.Error("sibling controls should be re-enabled after recorder-1 finished")
	}
}

func TestGroupIsAnyRecorded(t *testing.T) {
	g := NewGroup(nil)
	s1, rec1 := newGroupSession(t, "recorder-1")
	s2, _ := newGroupSession(t, "recorder-2")
	g.Add(s1)
	g.Add(s2)

	if g.IsAnyRecorded() {
		t.Fatal("nothing recorded yet")
	}

	if err := s1.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec1.EmitChunk(capture.Chunk{Data: []byte{1}})
	if err := s1.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if g.IsAnyRecorded() {
		t.Error("finalizing is not recorded yet")
	}
	rec1.EmitStop()

	if !g.IsAnyRecorded() {
		t.Error("one finished recording should satisfy IsAnyRecorded")
	}
}

func TestGroupOnChangeFires(t *testing.T) {
	var mu sync.Mutex
	changes := 0
	g := NewGroup(func() {
		mu.Lock()
		changes++
		mu.Unlock()
	})
	s1, _ := newGroupSession(t, "recorder-1")
	g.Add(s1)

	if err := s1.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// Audio transitions through Starting and Capturing on Start.
	if changes < 2 {
		t.Errorf("change callbacks = %d, want >= 2", changes)
	}
}

func TestGroupSessionsSnapshot(t *testing.T) {
	g := NewGroup(nil)
	s1, _ := newGroupSession(t, "recorder-1")
	s2, _ := newGroupSession(t, "recorder-2")
	g.Add(s1)
	g.Add(s2)

	got := g.Sessions()
	if len(got) != 2 || got[0] != s1 || got[1] != s2 {
		t.Errorf("sessions snapshot = %v", got)
	}
}
