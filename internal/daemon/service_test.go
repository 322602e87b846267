package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/quantity"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

type stubHistory struct {
	days []model.DayTotal
	err  error
	last int
}

func (h *stubHistory) History(limit int) ([]model.DayTotal, error) {
	h.last = limit
	return h.days, h.err
}

func newTestService(t *testing.T, clock *fakeClock, hist HistorySource) *Service {
	t.Helper()
	tr := progress.Load(progress.NewMemoryGateway(nil),
		progress.WithClock(clock.now),
		progress.WithLocation(time.UTC))
	s, err := New(Config{EventsBuffer: 50, Location: time.UTC}, tr, hist)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.now = clock.now
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNewRejectsBadCron(t *testing.T) {
	tr := progress.Load(progress.NewMemoryGateway(nil))
	if _, err := New(Config{RolloverCron: "every night"}, tr, nil); err == nil {
		t.Fatal("New with invalid cron spec should fail")
	}
}

func TestAddAndSubtract(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/v1/add", `{"amount":"750ml"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body)
	}
	res := decode[Result](t, rec)
	if res.Snapshot.AccumulatedML != 750 {
		t.Errorf("accumulated = %v, want 750", res.Snapshot.AccumulatedML)
	}
	if res.Snapshot.Level != "750ml" {
		t.Errorf("level = %q, want 750ml", res.Snapshot.Level)
	}

	rec = do(t, h, http.MethodPost, "/v1/subtract", `{"amount":"250"}`)
	res = decode[Result](t, rec)
	if res.Snapshot.AccumulatedML != 500 {
		t.Errorf("accumulated after subtract = %v, want 500", res.Snapshot.AccumulatedML)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 {
		t.Fatalf("events = %d, want 2", len(s.events))
	}
	if s.events[0].DeltaML != 750 || s.events[1].DeltaML != -250 {
		t.Errorf("deltas = %v, %v, want 750, -250", s.events[0].DeltaML, s.events[1].DeltaML)
	}
	if s.events[0].ID >= s.events[1].ID {
		t.Errorf("event IDs not increasing: %d, %d", s.events[0].ID, s.events[1].ID)
	}
}

func TestBadInput(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)
	h := s.Handler()

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unparsable amount", http.MethodPost, "/v1/add", `{"amount":"a lot"}`, http.StatusUnprocessableEntity},
		{"empty amount", http.MethodPost, "/v1/add", `{"amount":"  "}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/v1/add", `{"amount":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/add", `{"ml":250}`, http.StatusBadRequest},
		{"zero goal", http.MethodPut, "/v1/goal", `{"goal":"0"}`, http.StatusUnprocessableEntity},
		{"unknown unit", http.MethodPut, "/v1/unit", `{"unit":"cups"}`, http.StatusUnprocessableEntity},
		{"preset slot", http.MethodPost, "/v1/preset/4", ``, http.StatusNotFound},
		{"negative preset", http.MethodPut, "/v1/preset/1", `{"amount":"-5"}`, http.StatusUnprocessableEntity},
		{"wrong method", http.MethodGet, "/v1/add", ``, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			if tt.want == http.StatusUnprocessableEntity {
				if body := decode[errorBody](t, rec); body.Error == "" {
					t.Error("error body is empty")
				}
			}
		})
	}

	if got := s.tracker.Snapshot(); got.AccumulatedML != 0 || got.GoalML != progress.DefaultGoal {
		t.Errorf("state changed by rejected requests: %+v", got)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 0 {
		t.Errorf("rejected requests published %d events", len(s.events))
	}
}

func TestGoalUnitPresetAndReset(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)
	h := s.Handler()

	if rec := do(t, h, http.MethodPut, "/v1/unit", `{"unit":"oz"}`); rec.Code != http.StatusOK {
		t.Fatalf("unit status = %d", rec.Code)
	}
	rec := do(t, h, http.MethodPut, "/v1/goal", `{"goal":"64"}`)
	res := decode[Result](t, rec)
	if want := 64 * quantity.OunceFactor; math.Abs(res.Snapshot.GoalML-want) > 1e-9 {
		t.Errorf("goal = %v, want %v", res.Snapshot.GoalML, want)
	}

	if rec := do(t, h, http.MethodPut, "/v1/preset/2", `{"amount":"16"}`); rec.Code != http.StatusOK {
		t.Fatalf("set preset status = %d", rec.Code)
	}
	res = decode[Result](t, do(t, h, http.MethodPost, "/v1/preset/2", ``))
	if want := 16 * quantity.OunceFactor; math.Abs(res.Snapshot.AccumulatedML-want) > 1e-9 {
		t.Errorf("accumulated = %v, want %v", res.Snapshot.AccumulatedML, want)
	}

	res = decode[Result](t, do(t, h, http.MethodPost, "/v1/reset", ``))
	if res.Snapshot.AccumulatedML != 0 {
		t.Errorf("accumulated after reset = %v, want 0", res.Snapshot.AccumulatedML)
	}

	events := decode[[]Event](t, do(t, h, http.MethodGet, "/v1/events", ``))
	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	want := []string{EventUnit, EventGoal, EventPreset, EventIntake, EventReset}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("event types = %v, want %v", types, want)
	}
}

func TestMutationRollsOverFirst(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)
	h := s.Handler()

	do(t, h, http.MethodPost, "/v1/add", `{"amount":"2L"}`)
	clock.t = clock.t.Add(4 * time.Hour)

	res := decode[Result](t, do(t, h, http.MethodPost, "/v1/add", `{"amount":"250ml"}`))
	if res.Snapshot.AccumulatedML != 250 {
		t.Errorf("accumulated = %v, want 250 (yesterday dropped)", res.Snapshot.AccumulatedML)
	}

	st := decode[Status](t, do(t, h, http.MethodGet, "/v1/status", ``))
	if !st.LastRollover.Equal(clock.t) {
		t.Errorf("last rollover = %v, want %v", st.LastRollover, clock.t)
	}
}

func TestRolloverPublishesOnce(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)

	s.rollover()
	clock.t = clock.t.Add(3 * time.Hour)
	s.rollover()
	s.rollover()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 1 || s.events[0].Type != EventRollover {
		t.Fatalf("events = %+v, want a single rollover", s.events)
	}
}

func TestStatus(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)
	h := s.Handler()
	do(t, h, http.MethodPost, "/v1/preset/3", ``)

	st := decode[Status](t, do(t, h, http.MethodGet, "/v1/status", ``))
	if st.Today.AccumulatedML != 500 {
		t.Errorf("today = %v, want 500", st.Today.AccumulatedML)
	}
	if st.EventCount != 1 || st.RolloverCron != DefaultRolloverCron || st.Addr != "127.0.0.1:8787" {
		t.Errorf("status = %+v", st)
	}
	if st.LastError != "" {
		t.Errorf("last error = %q", st.LastError)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}

	s := newTestService(t, clock, nil)
	if rec := do(t, s.Handler(), http.MethodGet, "/v1/history", ``); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("history without a source = %d, want 503", rec.Code)
	}

	hist := &stubHistory{days: []model.DayTotal{{Date: "2024-01-01", TotalML: 1000, GoalML: 3000}}}
	s = newTestService(t, clock, hist)
	h := s.Handler()

	days := decode[[]model.DayTotal](t, do(t, h, http.MethodGet, "/v1/history?days=14", ``))
	if len(days) != 1 || hist.last != 14 {
		t.Errorf("days = %v, limit = %d", days, hist.last)
	}
	if rec := do(t, h, http.MethodGet, "/v1/history?days=abc", ``); rec.Code != http.StatusBadRequest {
		t.Errorf("bad days = %d, want 400", rec.Code)
	}

	hist.err = errors.New("locked")
	if rec := do(t, h, http.MethodGet, "/v1/history", ``); rec.Code != http.StatusInternalServerError {
		t.Errorf("history error = %d, want 500", rec.Code)
	}
	if hist.last != 7 {
		t.Errorf("default limit = %d, want 7", hist.last)
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)
	s.cfg.EventsBuffer = 2

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestStreamSendsSnapshotThenEvents(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	readEvent := func() string {
		t.Helper()
		for sc.Scan() {
			if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
				return name
			}
		}
		t.Fatalf("stream ended: %v", sc.Err())
		return ""
	}

	if got := readEvent(); got != EventSnapshot {
		t.Fatalf("first event = %q, want snapshot", got)
	}

	// The subscriber is registered before the first write, so this is seen.
	rec := do(t, s.Handler(), http.MethodPost, "/v1/add", `{"amount":"1L"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}
	if got := readEvent(); got != EventIntake {
		t.Errorf("second event = %q, want intake", got)
	}
}

func TestPublishNumbersEvents(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock, nil)

	s.publish(EventIntake, 250)
	s.publish(EventReset, 0)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	for i, ev := range s.events {
		if ev.ID != int64(i+1) {
			t.Errorf("events[%d].ID = %d, want %d", i, ev.ID, i+1)
		}
	}
	if s.events[0].DeltaML != 250 || s.events[0].Type != EventIntake {
		t.Errorf("events[0] = %+v", s.events[0])
	}
}
