package capture

import "sync"

// composedStream combines the video tracks of one stream with the audio
// tracks of another into a single [Stream]. See [Compose].
type composedStream struct {
	mu      sync.Mutex
	tracks  []Track
	sources []Stream
	ended   func()
	stopped bool
}

// Compose builds a stream carrying the video tracks of display and the
// audio tracks of mic. Any audio track present on display is stopped and
// discarded immediately — screen-share sources do not guarantee usable
// audio, and keeping them would duplicate system audio alongside the
// separately acquired microphone.
//
// Stopping the composed stream stops both source streams. The composed
// stream's OnEnded callback fires when the display source ends externally
// (e.g. the platform revokes the screen share).
func Compose(display, mic Stream) Stream {
	cs := &composedStream{sources: []Stream{display, mic}}

	for _, t := range display.Tracks() {
		if t.Kind() == TrackVideo {
			cs.tracks = append(cs.tracks, t)
		} else {
			t.Stop()
		}
	}
	for _, t := range mic.Tracks() {
		if t.Kind() == TrackAudio {
			cs.tracks = append(cs.tracks, t)
		}
	}

	display.OnEnded(func() {
		cs.mu.Lock()
		cb := cs.ended
		cs.mu.Unlock()
		if cb != nil {
			cb()
		}
	})

	return cs
}

// Tracks implements [Stream].
func (cs *composedStream) Tracks() []Track {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]Track, len(cs.tracks))
	copy(out, cs.tracks)
	return out
}

// OnEnded implements [Stream]. The callback fires when the display source
// ends externally.
func (cs *composedStream) OnEnded(cb func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.ended = cb
}

// Stop implements [Stream]. Both source streams are stopped.
func (cs *composedStream) Stop() {
	cs.mu.Lock()
	if cs.stopped {
		cs.mu.Unlock()
		return
	}
	cs.stopped = true
	sources := cs.sources
	cs.mu.Unlock()

	for _, s := range sources {
		s.Stop()
	}
}
