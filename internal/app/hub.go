package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mediasmith/captor/internal/config"
	"github.com/mediasmith/captor/internal/journal"
	"github.com/mediasmith/captor/internal/session"
	"github.com/mediasmith/captor/internal/settings"
	"github.com/mediasmith/captor/internal/upload"
	"github.com/mediasmith/captor/pkg/capture"
	"github.com/mediasmith/captor/pkg/capture/remote"
)

// helloTimeout bounds the wait for the widget's codec announcement after
// the WebSocket handshake.
const helloTimeout = 10 * time.Second

// slot names one recorder the widget wants to drive.
type slot struct {
	name string
	kind capture.Kind
}

// widget is one connected browser widget: its device bridge plus the
// session group the widget's recorders map onto.
type widget struct {
	id       string
	device   *remote.Device
	group    *session.Group
	sessions map[string]*session.Session
	ui       map[string]*uiState
	order    []string
}

// uiState accumulates the presentation-facing events of one session for
// the polled status snapshot.
type uiState struct {
	mu       sync.Mutex
	lastNote string
	progress float64
}

func (u *uiState) notice(n session.Notice) {
	u.mu.Lock()
	u.lastNote = n.Kind.String()
	u.mu.Unlock()
}

func (u *uiState) uploadProgress(fraction float64) {
	u.mu.Lock()
	u.progress = fraction
	u.mu.Unlock()
}

func (u *uiState) reset() {
	u.mu.Lock()
	u.lastNote = ""
	u.progress = 0
	u.mu.Unlock()
}

func (u *uiState) snapshot() (note string, progress float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastNote, u.progress
}

// hub tracks connected widgets and serves the session control API.
type hub struct {
	cfg      *config.Config
	uploader session.Uploader
	journal  *journal.Journal

	mu      sync.Mutex
	widgets map[string]*widget
}

func newHub(cfg *config.Config, uploader session.Uploader, j *journal.Journal) *hub {
	return &hub{
		cfg:      cfg,
		uploader: uploader,
		journal:  j,
		widgets:  map[string]*widget{},
	}
}

// ─── Widget connection ────────────────────────────────────────────────────────

// handleWidget upgrades the request to a WebSocket and hosts the widget's
// sessions for the lifetime of the connection. The query string names the
// recorder slots ("slots=recorder-1:audio,recorder-2:screen") and the draft
// item the finished payloads upload into ("itemid=42").
func (h *hub) handleWidget(w http.ResponseWriter, r *http.Request) {
	slots, itemID, err := parseWidgetQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("widget handshake failed", "err", err)
		return
	}

	dev := remote.NewDevice(conn)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- dev.Run(ctx) }()

	readyCtx, readyCancel := context.WithTimeout(ctx, helloTimeout)
	err = dev.WaitReady(readyCtx)
	readyCancel()
	if err != nil {
		slog.Warn("widget never announced its codecs", "err", err)
		conn.Close(websocket.StatusPolicyViolation, "hello timeout")
		return
	}

	wg, err := h.register(dev, slots, itemID)
	if err != nil {
		slog.Error("widget session setup failed", "err", err)
		conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}
	slog.Info("widget connected", "widget", wg.id, "sessions", len(wg.sessions), "itemid", itemID)

	err = <-runErr
	h.unregister(wg)
	if err != nil {
		slog.Warn("widget connection ended with error", "widget", wg.id, "err", err)
	} else {
		slog.Info("widget disconnected", "widget", wg.id)
	}
}

// register builds one session per slot and adds the widget to the hub.
func (h *hub) register(dev *remote.Device, slots []slot, itemID int64) (*widget, error) {
	wg := &widget{
		id:       uuid.NewString(),
		device:   dev,
		sessions: map[string]*session.Session{},
		ui:       map[string]*uiState{},
	}
	wg.group = session.NewGroup(nil)

	quality := settings.Quality{
		AudioBitRate: h.cfg.Media.AudioBitRate,
		VideoBitRate: h.cfg.Media.VideoBitRate,
		Width:        h.cfg.Media.Width,
		Height:       h.cfg.Media.Height,
	}
	dest := upload.Destination{
		RepositoryID:   h.cfg.Upload.RepositoryID,
		DraftItemID:    itemID,
		ContextID:      h.cfg.Upload.ContextID,
		MaxUploadBytes: h.cfg.Limits.MaxUploadBytes,
	}

	for _, sl := range slots {
		al := &attemptLog{hub: h}
		ui := &uiState{}
		sess, err := session.New(session.Config{
			Name:          sl.name,
			Device:        dev,
			Settings:      settings.Resolve(sl.kind, quality),
			Destination:   dest,
			MaxDuration:   time.Duration(h.cfg.Limits.MaxDurationSeconds) * time.Second,
			ChunkInterval: time.Duration(h.cfg.Media.ChunkIntervalMS) * time.Millisecond,
			Uploader:      h.uploader,
			Listener: session.Listener{
				OnNotice:         ui.notice,
				OnUploadProgress: ui.uploadProgress,
				OnUploadDone:     al.uploadDone,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("create session %q: %w", sl.name, err)
		}
		al.sess = sess
		sess.AddStateWatcher(al.stateChanged)

		wg.sessions[sl.name] = sess
		wg.ui[sl.name] = ui
		wg.order = append(wg.order, sl.name)
		wg.group.Add(sess)
	}

	h.mu.Lock()
	h.widgets[wg.id] = wg
	h.mu.Unlock()
	return wg, nil
}

// unregister releases the widget's sessions and forgets it.
func (h *hub) unregister(wg *widget) {
	h.mu.Lock()
	delete(h.widgets, wg.id)
	h.mu.Unlock()
	for _, sess := range wg.sessions {
		sess.Close()
	}
}

// closeAll tears down every connected widget. Called during shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	widgets := make([]*widget, 0, len(h.widgets))
	for _, wg := range h.widgets {
		widgets = append(widgets, wg)
	}
	h.widgets = map[string]*widget{}
	h.mu.Unlock()

	for _, wg := range widgets {
		for _, sess := range wg.sessions {
			sess.Close()
		}
		if err := wg.device.Close(); err != nil {
			slog.Debug("widget close", "widget", wg.id, "err", err)
		}
	}
}

func (h *hub) lookup(widgetID string) *widget {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.widgets[widgetID]
}

// ─── Control API ──────────────────────────────────────────────────────────────

// sessionStatus is the JSON shape of one session in a widget snapshot.
type sessionStatus struct {
	Name            string  `json:"name"`
	Kind            string  `json:"kind"`
	State           string  `json:"state"`
	AttemptID       string  `json:"attempt_id,omitempty"`
	Bytes           int64   `json:"bytes"`
	RemainingMS     int64   `json:"remaining_ms"`
	ControlsEnabled bool    `json:"controls_enabled"`
	FailureReason   string  `json:"failure_reason,omitempty"`
	UploadOutcome   string  `json:"upload_outcome,omitempty"`
	UploadProgress  float64 `json:"upload_progress"`
	Notice          string  `json:"notice,omitempty"`
}

// widgetStatus is the JSON snapshot of a widget's session group.
type widgetStatus struct {
	Widget      string          `json:"widget"`
	AnyRecorded bool            `json:"any_recorded"`
	Sessions    []sessionStatus `json:"sessions"`
}

// handleWidgetState serves a point-in-time snapshot of the widget's
// sessions. The widget UI polls this to render states and countdowns.
func (h *hub) handleWidgetState(w http.ResponseWriter, r *http.Request) {
	wg := h.lookup(r.PathValue("widget"))
	if wg == nil {
		http.Error(w, `{"error":"unknown widget"}`, http.StatusNotFound)
		return
	}

	status := widgetStatus{
		Widget:      wg.id,
		AnyRecorded: wg.group.IsAnyRecorded(),
	}
	for _, name := range wg.order {
		sess := wg.sessions[name]
		st := sessionStatus{
			Name:            sess.Name(),
			Kind:            sess.Kind().String(),
			State:           sess.State().String(),
			AttemptID:       sess.AttemptID(),
			Bytes:           sess.Bytes(),
			RemainingMS:     sess.Remaining().Milliseconds(),
			ControlsEnabled: wg.group.ControlsEnabled(sess),
			FailureReason:   string(sess.FailureReason()),
		}
		if res := sess.UploadResult(); res != nil {
			st.UploadOutcome = res.Outcome.String()
		}
		if ui := wg.ui[name]; ui != nil {
			st.Notice, st.UploadProgress = ui.snapshot()
		}
		status.Sessions = append(status.Sessions, st)
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSessionAction performs one user intent on a session: start,
// again, confirm, pause, resume, or stop.
func (h *hub) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	wg := h.lookup(r.PathValue("widget"))
	if wg == nil {
		http.Error(w, `{"error":"unknown widget"}`, http.StatusNotFound)
		return
	}
	sess, ok := wg.sessions[r.PathValue("session")]
	if !ok {
		http.Error(w, `{"error":"unknown session"}`, http.StatusNotFound)
		return
	}

	var err error
	switch action := r.PathValue("action"); action {
	// "again" is the widget's re-record button; starting from Recorded
	// discards the prior attempt.
	case "start", "again":
		if !wg.group.ControlsEnabled(sess) {
			http.Error(w, `{"error":"another recorder is busy"}`, http.StatusConflict)
			return
		}
		if ui := wg.ui[sess.Name()]; ui != nil {
			ui.reset()
		}
		err = sess.Start(r.Context())
	case "confirm":
		err = sess.ConfirmStart()
	case "pause":
		err = sess.Pause()
	case "resume":
		err = sess.Resume()
	case "stop":
		err = sess.Stop()
	default:
		http.Error(w, `{"error":"unknown action"}`, http.StatusBadRequest)
		return
	}

	if err != nil {
		slog.Warn("session action rejected",
			"widget", wg.id, "session", sess.Name(), "action", r.PathValue("action"), "err", err)
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": sess.State().String()})
}

// ─── Attempt journaling ───────────────────────────────────────────────────────

// attemptLog records one session's attempt history into the journal.
type attemptLog struct {
	hub  *hub
	sess *session.Session

	mu      sync.Mutex
	started time.Time
}

// stateChanged writes a journal row when an attempt reaches a terminal
// state.
func (al *attemptLog) stateChanged(s *session.Session, st session.State) {
	if al.hub.journal == nil {
		return
	}
	switch st {
	case session.StateStarting:
		al.mu.Lock()
		al.started = time.Now()
		al.mu.Unlock()
	case session.StateRecorded, session.StateFailed:
		al.mu.Lock()
		started := al.started
		al.mu.Unlock()
		al.record(journal.Attempt{
			ID:         s.AttemptID(),
			Session:    s.Name(),
			Kind:       s.Kind().String(),
			StartedAt:  started,
			FinishedAt: time.Now(),
			Bytes:      s.Bytes(),
			State:      st.String(),
			Detail:     string(s.FailureReason()),
		})
	}
}

// uploadDone updates the attempt's journal row with the upload outcome.
func (al *attemptLog) uploadDone(res upload.Result) {
	if al.hub.journal == nil {
		return
	}
	al.mu.Lock()
	started := al.started
	al.mu.Unlock()
	al.record(journal.Attempt{
		ID:            al.sess.AttemptID(),
		Session:       al.sess.Name(),
		Kind:          al.sess.Kind().String(),
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Bytes:         al.sess.Bytes(),
		State:         al.sess.State().String(),
		UploadOutcome: res.Outcome.String(),
		Detail:        res.ErrorCode,
	})
}

func (al *attemptLog) record(a journal.Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := al.hub.journal.Record(ctx, a); err != nil {
		slog.Warn("journal write failed", "attempt", a.ID, "err", err)
	}
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// parseWidgetQuery extracts the recorder slots and draft item id from the
// widget connection request.
func parseWidgetQuery(r *http.Request) ([]slot, int64, error) {
	itemID, err := strconv.ParseInt(r.URL.Query().Get("itemid"), 10, 64)
	if err != nil || itemID <= 0 {
		return nil, 0, fmt.Errorf("itemid query parameter must be a positive integer")
	}

	raw := r.URL.Query().Get("slots")
	if raw == "" {
		return nil, 0, fmt.Errorf("slots query parameter is required")
	}

	var slots []slot
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		name, kindName, ok := strings.Cut(part, ":")
		if !ok || name == "" {
			return nil, 0, fmt.Errorf("malformed slot %q, want name:kind", part)
		}
		if seen[name] {
			return nil, 0, fmt.Errorf("duplicate slot name %q", name)
		}
		seen[name] = true

		kind, err := parseKind(kindName)
		if err != nil {
			return nil, 0, err
		}
		slots = append(slots, slot{name: name, kind: kind})
	}
	return slots, itemID, nil
}

func parseKind(s string) (capture.Kind, error) {
	switch s {
	case "audio":
		return capture.KindAudio, nil
	case "video":
		return capture.KindVideo, nil
	case "screen":
		return capture.KindScreen, nil
	default:
		return 0, fmt.Errorf("unknown capture kind %q", s)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "err", err)
	}
}
