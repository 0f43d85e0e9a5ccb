// Package remote implements the [capture.Device] interface over a single
// WebSocket connection to a browser widget. The widget performs the actual
// device access and encoding; this adapter relays acquire requests and
// recorder control frames to it and turns the widget's replies and binary
// chunk frames back into the [capture] contract.
//
// Wire format: JSON control frames as text messages (see [Message]) and raw
// encoded media fragments as binary messages. One recorder is active per
// connection at a time — the session group's mutual disablement guarantees
// this — so binary frames always belong to the current recorder.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/mediasmith/captor/pkg/capture"
)

// Device bridges one widget connection to the [capture.Device] interface.
//
// Create it with [NewDevice] after the WebSocket handshake, then call
// [Device.Run] on its own goroutine to pump inbound frames. All exported
// methods are safe for concurrent use.
type Device struct {
	conn *websocket.Conn

	mu        sync.Mutex
	supported map[string]bool
	pending   map[string]chan acquireReply
	streams   map[string]*remoteStream
	recorder  *remoteRecorder
	nextID    int
	closed    bool

	// helloCh is closed once the widget's hello frame arrives.
	helloCh   chan struct{}
	helloOnce sync.Once
}

// acquireReply is the widget's answer to one acquire request.
type acquireReply struct {
	stream *remoteStream
	err    error
}

// NewDevice wraps an established widget connection.
func NewDevice(conn *websocket.Conn) *Device {
	return &Device{
		conn:      conn,
		supported: map[string]bool{},
		pending:   map[string]chan acquireReply{},
		streams:   map[string]*remoteStream{},
		helloCh:   make(chan struct{}),
	}
}

// WaitReady blocks until the widget's hello frame announces its supported
// codecs, or ctx expires.
func (d *Device) WaitReady(ctx context.Context) error {
	select {
	case <-d.helloCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("remote: widget hello: %w", ctx.Err())
	}
}

// Run pumps inbound frames until the connection or ctx ends. It owns all
// dispatch: acquire replies, stream-ended events, recorder chunks and stop
// confirmations. Returns nil on a clean close.
func (d *Device) Run(ctx context.Context) error {
	defer d.failPending(fmt.Errorf("remote: connection closed"))

	for {
		typ, data, err := d.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("remote: read: %w", err)
		}

		if typ == websocket.MessageBinary {
			d.dispatchChunk(data)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("remote: malformed control frame", "err", err)
			continue
		}
		d.dispatch(&msg)
	}
}

// dispatch routes one widget control frame.
func (d *Device) dispatch(msg *Message) {
	switch msg.Type {
	case MsgHello:
		d.mu.Lock()
		for _, m := range msg.Supported {
			d.supported[m] = true
		}
		d.mu.Unlock()
		d.helloOnce.Do(func() { close(d.helloCh) })

	case MsgAcquired:
		st := &remoteStream{d: d, id: msg.StreamID}
		for _, t := range msg.Tracks {
			kind := capture.TrackAudio
			if t.Kind == "video" {
				kind = capture.TrackVideo
			}
			st.tracks = append(st.tracks, &remoteTrack{d: d, id: t.ID, kind: kind})
		}
		d.mu.Lock()
		d.streams[st.id] = st
		ch := d.pending[msg.RequestID]
		delete(d.pending, msg.RequestID)
		d.mu.Unlock()
		if ch != nil {
			ch <- acquireReply{stream: st}
		}

	case MsgDenied:
		var err error
		switch capture.FailureReason(msg.Reason) {
		case capture.ReasonPermission:
			err = capture.ErrPermissionDenied
		case capture.ReasonNotFound:
			err = capture.ErrNotFound
		default:
			err = fmt.Errorf("capture: device request failed (%s)", msg.Reason)
		}
		d.mu.Lock()
		ch := d.pending[msg.RequestID]
		delete(d.pending, msg.RequestID)
		d.mu.Unlock()
		if ch != nil {
			ch <- acquireReply{err: err}
		}

	case MsgEnded:
		d.mu.Lock()
		st := d.streams[msg.StreamID]
		delete(d.streams, msg.StreamID)
		d.mu.Unlock()
		if st != nil {
			st.emitEnded()
		}

	case MsgRecorderReady:
		d.mu.Lock()
		rec := d.recorder
		d.mu.Unlock()
		if rec != nil && rec.id == msg.RecorderID {
			rec.setMimeType(msg.MimeType)
		}

	case MsgStopped:
		d.mu.Lock()
		rec := d.recorder
		if rec != nil && rec.id == msg.RecorderID {
			d.recorder = nil
		} else {
			rec = nil
		}
		d.mu.Unlock()
		if rec != nil {
			rec.emitStop()
		}

	default:
		slog.Debug("remote: unknown control frame", "type", msg.Type)
	}
}

// dispatchChunk hands a binary frame to the active recorder.
func (d *Device) dispatchChunk(data []byte) {
	d.mu.Lock()
	rec := d.recorder
	d.mu.Unlock()
	if rec == nil {
		return
	}
	rec.emitChunk(capture.Chunk{
		Data:      data,
		Timestamp: rec.since(),
	})
}

// Acquire implements [capture.Device]. The request is forwarded to the
// widget, which prompts the platform's permission flow; the call suspends
// until the widget replies or ctx expires.
func (d *Device) Acquire(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	reqID := d.newID("req")
	ch := make(chan acquireReply, 1)
	d.mu.Lock()
	d.pending[reqID] = ch
	d.mu.Unlock()

	err := d.writeJSON(ctx, Message{
		Type:        MsgAcquire,
		RequestID:   reqID,
		Constraints: wireConstraints(c),
	})
	if err != nil {
		d.mu.Lock()
		delete(d.pending, reqID)
		d.mu.Unlock()
		return nil, err
	}

	select {
	case reply := <-ch:
		if reply.err != nil {
			return nil, reply.err
		}
		return reply.stream, nil
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.pending, reqID)
		d.mu.Unlock()
		return nil, fmt.Errorf("remote: acquire: %w", ctx.Err())
	}
}

// NewRecorder implements [capture.Device]. The recorder consumes the given
// stream's tracks, which may come from a composed stream spanning two
// acquisitions.
func (d *Device) NewRecorder(s capture.Stream, opts capture.RecorderOptions) (capture.Recorder, error) {
	tracks := s.Tracks()
	trackIDs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		trackIDs = append(trackIDs, t.ID())
	}

	rec := &remoteRecorder{
		d:    d,
		id:   d.newID("rec"),
		mime: opts.MimeType,
	}

	d.mu.Lock()
	if d.recorder != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("remote: a recorder is already active on this connection")
	}
	d.recorder = rec
	d.mu.Unlock()

	err := d.writeJSON(context.Background(), Message{
		Type:       MsgRecorder,
		RecorderID: rec.id,
		TrackIDs:   trackIDs,
		MimeType:   opts.MimeType,
		AudioBPS:   opts.AudioBitsPerSecond,
		VideoBPS:   opts.VideoBitsPerSecond,
	})
	if err != nil {
		d.mu.Lock()
		d.recorder = nil
		d.mu.Unlock()
		return nil, err
	}
	return rec, nil
}

// Supports implements [capture.Device] from the codec list the widget
// announced in its hello frame.
func (d *Device) Supports(mimeType string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.supported[mimeType]
}

// Close tears the connection down.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return d.conn.Close(websocket.StatusNormalClosure, "device closed")
}

// failPending rejects all outstanding acquire requests.
func (d *Device) failPending(err error) {
	d.mu.Lock()
	pending := d.pending
	d.pending = map[string]chan acquireReply{}
	d.mu.Unlock()
	for _, ch := range pending {
		ch <- acquireReply{err: err}
	}
}

// newID produces a connection-unique identifier with the given prefix.
func (d *Device) newID(prefix string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return prefix + "-" + strconv.Itoa(d.nextID)
}

// writeJSON marshals msg and writes it as a text WebSocket message.
func (d *Device) writeJSON(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("remote: marshal: %w", err)
	}
	if err := d.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("remote: write %s: %w", msg.Type, err)
	}
	return nil
}

// ─── Stream and track ─────────────────────────────────────────────────────────

// remoteTrack is one widget-side media track.
type remoteTrack struct {
	d    *Device
	id   string
	kind capture.TrackKind

	mu      sync.Mutex
	stopped bool
}

// ID implements [capture.Track].
func (t *remoteTrack) ID() string { return t.id }

// Kind implements [capture.Track].
func (t *remoteTrack) Kind() capture.TrackKind { return t.kind }

// Stop implements [capture.Track]: the widget is asked to stop the track's
// source.
func (t *remoteTrack) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	if err := t.d.writeJSON(context.Background(), Message{Type: MsgRelease, TrackIDs: []string{t.id}}); err != nil {
		slog.Debug("remote: track release", "track", t.id, "err", err)
	}
}

// remoteStream is one widget-side acquired stream.
type remoteStream struct {
	d  *Device
	id string

	mu      sync.Mutex
	tracks  []capture.Track
	ended   func()
	stopped bool
}

// Tracks implements [capture.Stream].
func (s *remoteStream) Tracks() []capture.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capture.Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// OnEnded implements [capture.Stream].
func (s *remoteStream) OnEnded(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = cb
}

// Stop implements [capture.Stream].
func (s *remoteStream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	tracks := s.tracks
	s.mu.Unlock()

	for _, t := range tracks {
		t.Stop()
	}
	if err := s.d.writeJSON(context.Background(), Message{Type: MsgRelease, StreamID: s.id}); err != nil {
		slog.Debug("remote: stream release", "stream", s.id, "err", err)
	}
}

// emitEnded fires the external-stop callback unless the stream was stopped
// locally.
func (s *remoteStream) emitEnded() {
	s.mu.Lock()
	cb := s.ended
	stopped := s.stopped
	s.mu.Unlock()
	if cb != nil && !stopped {
		cb()
	}
}

// ─── Recorder ─────────────────────────────────────────────────────────────────

// remoteRecorder is the widget-side recorder handle.
type remoteRecorder struct {
	d  *Device
	id string

	mu        sync.Mutex
	mime      string
	chunkCb   func(capture.Chunk)
	stopCb    func()
	startedAt time.Time
}

// Start implements [capture.Recorder].
func (r *remoteRecorder) Start(interval time.Duration) error {
	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()
	return r.d.writeJSON(context.Background(), Message{
		Type:       MsgStart,
		RecorderID: r.id,
		IntervalMS: int(interval / time.Millisecond),
	})
}

// Pause implements [capture.Recorder].
func (r *remoteRecorder) Pause() error {
	return r.d.writeJSON(context.Background(), Message{Type: MsgPause, RecorderID: r.id})
}

// Resume implements [capture.Recorder].
func (r *remoteRecorder) Resume() error {
	return r.d.writeJSON(context.Background(), Message{Type: MsgResume, RecorderID: r.id})
}

// Stop implements [capture.Recorder]. The widget flushes buffered chunks
// and confirms with a stopped frame, which triggers the stop callback.
func (r *remoteRecorder) Stop() error {
	return r.d.writeJSON(context.Background(), Message{Type: MsgStop, RecorderID: r.id})
}

// OnChunk implements [capture.Recorder].
func (r *remoteRecorder) OnChunk(cb func(capture.Chunk)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkCb = cb
}

// OnStop implements [capture.Recorder].
func (r *remoteRecorder) OnStop(cb func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCb = cb
}

// MimeType implements [capture.Recorder].
func (r *remoteRecorder) MimeType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mime
}

// since reports elapsed recording time for chunk timestamps. Zero until
// Start has run; the read loop may dispatch a frame before that.
func (r *remoteRecorder) since() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startedAt.IsZero() {
		return 0
	}
	return time.Since(r.startedAt)
}

func (r *remoteRecorder) setMimeType(m string) {
	if m == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mime = m
}

func (r *remoteRecorder) emitChunk(c capture.Chunk) {
	r.mu.Lock()
	cb := r.chunkCb
	r.mu.Unlock()
	if cb != nil {
		cb(c)
	}
}

func (r *remoteRecorder) emitStop() {
	r.mu.Lock()
	cb := r.stopCb
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}
