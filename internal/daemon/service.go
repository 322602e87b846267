// Package daemon provides the long-running local service: a JSON API over
// the tracker, a server-sent event stream of changes and a scheduled
// day rollover.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/theirongolddev/hydrate/internal/logger"
	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/quantity"
)

// Event types.
const (
	EventSnapshot = "snapshot"
	EventIntake   = "intake"
	EventGoal     = "goal"
	EventUnit     = "unit"
	EventPreset   = "preset"
	EventReset    = "reset"
	EventRollover = "rollover"
)

var errAmountRequired = errors.New("amount is required")

// DefaultRolloverCron fires at local midnight (seconds field first).
const DefaultRolloverCron = "0 0 0 * * *"

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	RolloverCron string
	EventsBuffer int
	Location     *time.Location
}

// HistorySource supplies per-day totals, newest first.
type HistorySource interface {
	History(limit int) ([]model.DayTotal, error)
}

// Event is emitted whenever the tracker state changes.
type Event struct {
	ID        int64             `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	DeltaML   float64           `json:"delta_ml,omitempty"`
	Snapshot  progress.Snapshot `json:"snapshot"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time         `json:"started_at"`
	Addr            string            `json:"addr"`
	RolloverCron    string            `json:"rollover_cron"`
	NextRollover    time.Time         `json:"next_rollover,omitzero"`
	LastRollover    time.Time         `json:"last_rollover,omitzero"`
	Today           progress.Snapshot `json:"today"`
	LastError       string            `json:"last_error,omitempty"`
	EventCount      int               `json:"event_count"`
	SubscriberCount int               `json:"subscriber_count"`
}

// Result is returned by every mutating endpoint.
type Result struct {
	Snapshot  progress.Snapshot `json:"snapshot"`
	SaveError string            `json:"save_error,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

type amountBody struct {
	Amount string `json:"amount"`
}

type goalBody struct {
	Goal string `json:"goal"`
}

type unitBody struct {
	Unit string `json:"unit"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	tracker *progress.Tracker
	history HistorySource
	cron    *cron.Cron
	cronID  cron.EntryID
	now     func() time.Time

	mu           sync.RWMutex
	startedAt    time.Time
	lastRollover time.Time
	lastError    string
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service over tr. history may be nil. The rollover
// schedule is validated here so a bad cron spec fails before anything binds.
func New(cfg Config, tr *progress.Tracker, history HistorySource) (*Service, error) {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.RolloverCron == "" {
		cfg.RolloverCron = DefaultRolloverCron
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	s := &Service{
		cfg:       cfg,
		tracker:   tr,
		history:   history,
		now:       time.Now,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location)),
	}

	id, err := s.cron.AddFunc(cfg.RolloverCron, func() { s.rollover() })
	if err != nil {
		return nil, fmt.Errorf("register rollover schedule %q: %w", cfg.RolloverCron, err)
	}
	s.cronID = id
	return s, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("GET /v1/history", s.handleHistory)

	mux.HandleFunc("POST /v1/add", s.handleDelta(progress.Add))
	mux.HandleFunc("POST /v1/subtract", s.handleDelta(progress.Subtract))
	mux.HandleFunc("POST /v1/preset/{n}", s.handlePreset)
	mux.HandleFunc("PUT /v1/preset/{n}", s.handleSetPreset)
	mux.HandleFunc("POST /v1/goal", s.handleGoal)
	mux.HandleFunc("PUT /v1/goal", s.handleGoal)
	mux.HandleFunc("POST /v1/unit", s.handleUnit)
	mux.HandleFunc("PUT /v1/unit", s.handleUnit)
	mux.HandleFunc("POST /v1/reset", s.handleReset)
	return mux
}

// Run serves the API and the rollover schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Catch up on a day that ended while nothing was running.
	s.rollover()
	s.publish(EventSnapshot, 0)

	s.cron.Start()
	logger.Info("daemon started", "addr", s.cfg.Addr, "rollover", s.cfg.RolloverCron)

	select {
	case <-ctx.Done():
		<-s.cron.Stop().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("daemon stopping")
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		<-s.cron.Stop().Done()
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// rollover picks up writes from other processes, then resets the tracker
// when the day changed and publishes it.
func (s *Service) rollover() {
	s.tracker.Refresh()
	if !s.tracker.CheckRollover() {
		return
	}
	s.mu.Lock()
	s.lastRollover = s.now()
	s.mu.Unlock()
	s.noteSaveError()
	s.publish(EventRollover, 0)
}

// noteSaveError records the tracker's last write failure for /v1/status.
func (s *Service) noteSaveError() string {
	msg := ""
	if err := s.tracker.LastSaveError(); err != nil {
		msg = err.Error()
		logger.Error("tracker save failed", "err", err)
	}
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
	return msg
}

func (s *Service) publish(typ string, deltaML float64) {
	s.publishEvent(Event{
		Type:      typ,
		Timestamp: s.now(),
		DeltaML:   deltaML,
		Snapshot:  s.tracker.Snapshot(),
	})
}

// publishEvent numbers ev when it has no ID yet and stores it.
func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == 0 {
		s.nextEventID++
		ev.ID = s.nextEventID
	}
	s.appendLocked(ev)
}

// appendLocked stores ev in the ring and fans it out. Slow subscribers miss
// events rather than block. Callers hold s.mu.
func (s *Service) appendLocked(ev Event) {
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Service) snapshotStatus() Status {
	today := s.tracker.Snapshot()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		Addr:            s.cfg.Addr,
		RolloverCron:    s.cfg.RolloverCron,
		LastRollover:    s.lastRollover,
		Today:           today,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if e := s.cron.Entry(s.cronID); e.Valid() {
		st.NextRollover = e.Next
	}
	return st
}

// ─── Handlers ───────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// mutated publishes typ and answers with the new state.
func (s *Service) mutated(w http.ResponseWriter, typ string, deltaML float64) {
	saveErr := s.noteSaveError()
	s.publish(typ, deltaML)
	writeJSON(w, http.StatusOK, Result{Snapshot: s.tracker.Snapshot(), SaveError: saveErr})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.rollover()
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("history is not available without a database"))
		return
	}
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("days must be a positive integer, got %q", v))
			return
		}
		days = n
	}
	totals, err := s.history.History(days)
	if err != nil {
		logger.Error("loading history", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if totals == nil {
		totals = []model.DayTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Service) handleDelta(sign progress.Sign) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body amountBody
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(body.Amount) == "" {
			writeError(w, http.StatusUnprocessableEntity, errAmountRequired)
			return
		}
		s.rollover()

		before := s.tracker.Snapshot().AccumulatedML
		if err := s.tracker.ApplyDelta(body.Amount, sign); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.mutated(w, EventIntake, s.tracker.Snapshot().AccumulatedML-before)
	}
}

func presetSlot(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 || n > progress.NumPresets {
		return 0, progress.ErrPresetSlot
	}
	return n, nil
}

func (s *Service) handlePreset(w http.ResponseWriter, r *http.Request) {
	n, err := presetSlot(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.rollover()

	before := s.tracker.Snapshot().AccumulatedML
	if err := s.tracker.ApplyPresetSlot(n); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.mutated(w, EventIntake, s.tracker.Snapshot().AccumulatedML-before)
}

func (s *Service) handleSetPreset(w http.ResponseWriter, r *http.Request) {
	n, err := presetSlot(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var body amountBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.rollover()
	if err := s.tracker.SetPreset(n, body.Amount); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.mutated(w, EventPreset, 0)
}

func (s *Service) handleGoal(w http.ResponseWriter, r *http.Request) {
	var body goalBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.rollover()
	if err := s.tracker.SetGoal(body.Goal); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.mutated(w, EventGoal, 0)
}

func (s *Service) handleUnit(w http.ResponseWriter, r *http.Request) {
	var body unitBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := quantity.ParseUnit(body.Unit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.rollover()
	s.tracker.SetUnit(u)
	s.mutated(w, EventUnit, 0)
}

func (s *Service) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.rollover()
	before := s.tracker.Snapshot().AccumulatedML
	s.tracker.ResetToday()
	s.mutated(w, EventReset, -before)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current state immediately.
	writeSSE(w, Event{
		Type:      EventSnapshot,
		Timestamp: s.now(),
		Snapshot:  s.tracker.Snapshot(),
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
