// Package progress implements the daily hydration state machine: the running
// total, the goal, the display unit and the calendar-day rollover.
package progress

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/hydrate/internal/logger"
	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/quantity"
)

var (
	// ErrNonPositiveGoal is returned when a goal parses to zero or less.
	ErrNonPositiveGoal = errors.New("goal must be greater than zero")
	// ErrPresetSlot is returned for a preset index outside 1..NumPresets.
	ErrPresetSlot = fmt.Errorf("preset slot must be between 1 and %d", NumPresets)
	// ErrNonPositivePreset is returned when a preset amount is zero or less.
	ErrNonPositivePreset = errors.New("preset amount must be greater than zero")
)

// Sign selects whether ApplyDelta adds or subtracts.
type Sign int

const (
	Add      Sign = 1
	Subtract Sign = -1
)

// Gateway is the key-value persistence the tracker reads from and writes to.
type Gateway interface {
	Load(key string) (value string, ok bool, err error)
	Save(key, value string) error
}

// Updater is implemented by gateways that other processes may write to at
// the same time. Update runs fn with exclusive access to the stored values;
// writes made through kv are committed together when fn returns nil and
// discarded otherwise.
type Updater interface {
	Update(fn func(kv Gateway) error) error
}

// Recorder receives intake entries and day totals for history. Failures are
// logged and never affect the tracker.
type Recorder interface {
	RecordIntake(in model.Intake) error
	RecordDay(day model.DayTotal) error
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) RecordIntake(model.Intake) error { return nil }
func (NoopRecorder) RecordDay(model.DayTotal) error  { return nil }

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone used to decide calendar days.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithRecorder attaches a history recorder.
func WithRecorder(r Recorder) Option {
	return func(t *Tracker) {
		if r != nil {
			t.rec = r
		}
	}
}

// WithDefaults overrides the values used when nothing is stored yet.
func WithDefaults(d Defaults) Option {
	return func(t *Tracker) { t.defaults = d }
}

// Tracker holds today's hydration state. All methods are safe for
// concurrent use.
type Tracker struct {
	mu sync.Mutex

	gw       Gateway
	rec      Recorder
	now      func() time.Time
	loc      *time.Location
	defaults Defaults

	accumulated float64
	goal        float64
	unit        quantity.Unit
	lastActive  time.Time
	amountToAdd string
	presets     [NumPresets]string

	unsaved     map[string]bool // keys whose last write failed
	lastSaveErr error
}

// Snapshot is a read-only copy of the tracker state with display strings
// already formatted in the preferred unit.
type Snapshot struct {
	AccumulatedML float64            `json:"accumulated_ml" yaml:"accumulated_ml"`
	GoalML        float64            `json:"goal_ml" yaml:"goal_ml"`
	Unit          quantity.Unit      `json:"unit" yaml:"unit"`
	Progress      float64            `json:"progress" yaml:"progress"`
	LastActive    time.Time          `json:"last_active" yaml:"last_active"`
	AmountToAdd   string             `json:"amount_to_add" yaml:"amount_to_add"`
	Presets       [NumPresets]string `json:"presets" yaml:"presets"`

	Level       string `json:"level" yaml:"level"`
	Goal        string `json:"goal" yaml:"goal"`
	Remaining   string `json:"remaining" yaml:"remaining"`
	Placeholder string `json:"placeholder" yaml:"placeholder"`
}

// Load builds a tracker from whatever the gateway holds. Missing or
// unreadable values fall back to defaults with a warning; Load itself
// never fails.
func Load(gw Gateway, opts ...Option) *Tracker {
	t := &Tracker{
		gw:       gw,
		rec:      NoopRecorder{},
		now:      time.Now,
		loc:      time.Local,
		defaults: DefaultDefaults(),
		unsaved:  make(map[string]bool),
	}
	for _, o := range opts {
		o(t)
	}
	if t.defaults.Goal <= 0 {
		t.defaults.Goal = DefaultGoal
	}
	if !t.defaults.Unit.Valid() {
		t.defaults.Unit = quantity.Liters
	}

	t.load()
	return t
}

func (t *Tracker) load() {
	t.unit = t.defaults.Unit
	t.goal = t.defaults.Goal
	t.presets = t.defaults.Presets

	if t.readState(t.gw) {
		t.persist(KeyGoal, formatML(t.goal))
	}
	if t.lastActive.IsZero() {
		t.lastActive = t.now()
		t.persist(KeyLastActiveDate, formatUnix(t.lastActive))
	}
}

// readState copies the stored values into t. Keys that are missing,
// unreadable or whose last write failed keep their current value. It
// reports whether the goal was stored in the older free-text form.
func (t *Tracker) readState(kv Gateway) (legacyGoal bool) {
	read := func(key string) (string, bool) {
		if t.unsaved[key] {
			return "", false
		}
		v, ok, err := kv.Load(key)
		if err != nil {
			logger.Warn("reading stored value", "key", key, "err", err)
			return "", false
		}
		return v, ok
	}

	if raw, ok := read(KeyUnit); ok {
		if u, err := quantity.ParseUnit(raw); err == nil {
			t.unit = u
		} else if u := quantity.Unit(raw); u.Valid() {
			t.unit = u
		} else {
			logger.Warn("ignoring stored unit", "value", raw)
		}
	}

	if raw, ok := read(KeyCurrentLevel); ok {
		if v, err := parseFinite(raw); err == nil {
			t.accumulated = v
		} else {
			logger.Warn("ignoring stored level", "value", raw, "err", err)
		}
	}

	if raw, ok := read(KeyGoal); ok {
		t.goal, legacyGoal = t.parseGoal(raw)
	}

	if raw, ok := read(KeyAmountToAdd); ok {
		t.amountToAdd = raw
	}

	for i := range t.presets {
		if raw, ok := read(PresetKey(i + 1)); ok && strings.TrimSpace(raw) != "" {
			t.presets[i] = raw
		}
	}

	if raw, ok := read(KeyLastActiveDate); ok {
		if secs, err := parseFinite(raw); err == nil {
			whole, frac := math.Modf(secs)
			t.lastActive = time.Unix(int64(whole), int64(frac*1e9))
		} else {
			logger.Warn("ignoring stored last active date", "value", raw, "err", err)
		}
	}
	return legacyGoal
}

// parseGoal accepts the canonical decimal form and older free-text goals
// such as "3L", reporting the latter so Load can rewrite them.
func (t *Tracker) parseGoal(raw string) (float64, bool) {
	if v, err := parseFinite(raw); err == nil {
		if v > 0 {
			return v, false
		}
		logger.Warn("ignoring non-positive stored goal", "value", raw)
		return t.defaults.Goal, false
	}

	q, err := quantity.Parse(raw, t.unit)
	if err != nil || q.ML() <= 0 {
		logger.Warn("ignoring stored goal", "value", raw, "err", err)
		return t.defaults.Goal, false
	}
	logger.Info("migrating stored goal", "from", raw, "ml", q.ML())
	return q.ML(), true
}

// persist writes one key outside of a mutation. A failure is logged and
// remembered but the in-memory state is kept.
func (t *Tracker) persist(key, value string) {
	if err := t.gw.Save(key, value); err != nil {
		logger.Error("saving value", "key", key, "err", err)
		t.lastSaveErr = fmt.Errorf("saving %s: %w", key, err)
	}
}

// writer collects the writes of one mutation.
type writer struct {
	kv   Gateway // nil when the gateway could not be opened
	keys []string
	err  error
}

func (w *writer) save(key, value string) {
	w.keys = append(w.keys, key)
	if w.kv == nil || w.err != nil {
		return
	}
	if err := w.kv.Save(key, value); err != nil {
		w.err = fmt.Errorf("saving %s: %w", key, err)
	}
}

// update re-reads the stored values and then runs fn, so a change made by
// another process sharing the gateway is built upon rather than overwritten.
// An error from fn is returned and its writes are discarded. A failed write
// is logged and remembered while fn's changes stay in memory. Callers hold
// t.mu.
func (t *Tracker) update(fn func(w *writer) error) error {
	t.lastSaveErr = nil

	var w *writer
	var fnErr error
	run := func(kv Gateway) error {
		t.readState(kv)
		w = &writer{kv: kv}
		if fnErr = fn(w); fnErr != nil {
			return fnErr
		}
		return w.err
	}

	var err error
	if u, ok := t.gw.(Updater); ok {
		err = u.Update(run)
	} else {
		err = run(t.gw)
	}
	if fnErr != nil {
		return fnErr
	}
	if w == nil {
		// Update failed before fn ran.
		w = &writer{}
		if fnErr = fn(w); fnErr != nil {
			return fnErr
		}
	}

	for _, k := range w.keys {
		if err != nil {
			t.unsaved[k] = true
		} else {
			delete(t.unsaved, k)
		}
	}
	if err != nil {
		logger.Error("saving state", "keys", w.keys, "err", err)
		t.lastSaveErr = err
	}
	return nil
}

// Refresh re-reads the stored values, picking up changes made by other
// processes sharing the gateway.
func (t *Tracker) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readState(t.gw)
}

// Progress returns accumulated/goal. It is not clamped; values above 1 mean
// the goal was exceeded and negative values are possible.
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress()
}

func (t *Tracker) progress() float64 {
	goal := t.goal
	if goal <= 0 {
		goal = DefaultGoal
	}
	return t.accumulated / goal
}

// ApplyDelta parses raw in the preferred unit and adds (or subtracts) it.
// Empty input does nothing. A parse error leaves the state unchanged.
func (t *Tracker) ApplyDelta(raw string, sign Sign) error {
	return t.apply(raw, sign, model.KindManual)
}

// ApplyPreset adds the amount described by raw.
func (t *Tracker) ApplyPreset(raw string) error {
	return t.apply(raw, Add, model.KindPreset)
}

// ApplyPresetSlot adds the stored preset i (1-based).
func (t *Tracker) ApplyPresetSlot(i int) error {
	if i < 1 || i > NumPresets {
		return ErrPresetSlot
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(func() string { return t.presets[i-1] }, Add, model.KindPreset)
}

func (t *Tracker) apply(raw string, sign Sign, kind model.IntakeKind) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(func() string { return raw }, sign, kind)
}

// applyLocked reads the amount after the stored values are refreshed, so a
// preset changed elsewhere is applied in its current form.
func (t *Tracker) applyLocked(amount func() string, sign Sign, kind model.IntakeKind) error {
	var delta float64
	err := t.update(func(w *writer) error {
		raw := amount()
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		q, err := quantity.Parse(raw, t.unit)
		if err != nil {
			return err
		}
		delta = float64(sign) * q.ML()
		t.accumulated += delta
		w.save(KeyCurrentLevel, formatML(t.accumulated))
		return nil
	})
	if err != nil || delta == 0 {
		return err
	}

	t.recordIntake(model.Intake{
		ID:       uuid.New().String(),
		At:       t.now(),
		Day:      model.DayKey(t.lastActive.In(t.loc)),
		AmountML: delta,
		Kind:     kind,
	})
	t.recordDay()
	return nil
}

// SetGoal parses raw in the preferred unit and replaces the goal. Unparsable
// or non-positive input is rejected and the goal is left as it was.
func (t *Tracker) SetGoal(raw string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.update(func(w *writer) error {
		q, err := quantity.Parse(raw, t.unit)
		if err != nil {
			return err
		}
		if q.ML() <= 0 {
			return ErrNonPositiveGoal
		}
		t.goal = q.ML()
		w.save(KeyGoal, formatML(t.goal))
		return nil
	})
	if err != nil {
		return err
	}
	t.recordDay()
	return nil
}

// SetUnit changes only the display and input unit.
func (t *Tracker) SetUnit(u quantity.Unit) {
	if !u.Valid() {
		logger.Warn("ignoring unknown unit", "unit", u)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_ = t.update(func(w *writer) error {
		t.unit = u
		w.save(KeyUnit, string(u))
		return nil
	})
}

// SetAmountToAdd stores the entry field text as typed.
func (t *Tracker) SetAmountToAdd(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if text == t.amountToAdd {
		return
	}
	_ = t.update(func(w *writer) error {
		t.amountToAdd = text
		w.save(KeyAmountToAdd, text)
		return nil
	})
}

// SetPreset replaces preset i (1-based). The text must parse to a positive
// amount in the preferred unit; it is stored as typed.
func (t *Tracker) SetPreset(i int, raw string) error {
	if i < 1 || i > NumPresets {
		return ErrPresetSlot
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.update(func(w *writer) error {
		q, err := quantity.Parse(raw, t.unit)
		if err != nil {
			return err
		}
		if q.ML() <= 0 {
			return ErrNonPositivePreset
		}
		t.presets[i-1] = strings.TrimSpace(raw)
		w.save(PresetKey(i), t.presets[i-1])
		return nil
	})
}

// ResetToday sets the running total back to zero.
func (t *Tracker) ResetToday() {
	t.mu.Lock()
	defer t.mu.Unlock()

	var prev float64
	_ = t.update(func(w *writer) error {
		prev = t.accumulated
		t.accumulated = 0
		w.save(KeyCurrentLevel, formatML(0))
		return nil
	})

	t.recordIntake(model.Intake{
		ID:       uuid.New().String(),
		At:       t.now(),
		Day:      model.DayKey(t.lastActive.In(t.loc)),
		AmountML: -prev,
		Kind:     model.KindReset,
	})
	t.recordDay()
}

// CheckRollover resets the total when the calendar day (in the tracker's
// location) differs from the last active day. It reports whether a reset
// happened; calling it again on the same day does nothing, and neither does
// a rollover another process already made.
func (t *Tracker) CheckRollover() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if sameDay(now.In(t.loc), t.lastActive.In(t.loc)) {
		return false
	}

	reset := false
	_ = t.update(func(w *writer) error {
		if sameDay(now.In(t.loc), t.lastActive.In(t.loc)) {
			return nil
		}
		logger.Info("new day, resetting total",
			"previous", model.DayKey(t.lastActive.In(t.loc)),
			"total_ml", t.accumulated)

		reset = true
		t.accumulated = 0
		t.lastActive = now
		w.save(KeyCurrentLevel, formatML(0))
		w.save(KeyLastActiveDate, formatUnix(now))
		return nil
	})
	return reset
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.goal - t.accumulated
	if remaining < 0 {
		remaining = 0
	}

	return Snapshot{
		AccumulatedML: t.accumulated,
		GoalML:        t.goal,
		Unit:          t.unit,
		Progress:      t.progress(),
		LastActive:    t.lastActive,
		AmountToAdd:   t.amountToAdd,
		Presets:       t.presets,
		Level:         quantity.Format(quantity.Quantity(t.accumulated), t.unit),
		Goal:          quantity.Format(quantity.Quantity(t.goal), t.unit),
		Remaining:     quantity.Format(quantity.Quantity(remaining), t.unit),
		Placeholder:   t.unit.Placeholder(),
	}
}

// Today returns the current day key in the tracker's time zone.
func (t *Tracker) Today() string {
	return model.DayKey(t.now().In(t.loc))
}

// Unit returns the preferred unit.
func (t *Tracker) Unit() quantity.Unit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unit
}

// LastSaveError returns the error from the most recent mutation's writes,
// or nil if they all succeeded.
func (t *Tracker) LastSaveError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSaveErr
}

func (t *Tracker) recordIntake(in model.Intake) {
	if err := t.rec.RecordIntake(in); err != nil {
		logger.Warn("recording intake", "err", err)
	}
}

// recordDay upserts the running total of the day the tracker is in.
func (t *Tracker) recordDay() {
	day := model.DayTotal{
		Date:    model.DayKey(t.lastActive.In(t.loc)),
		TotalML: t.accumulated,
		GoalML:  t.goal,
	}
	if err := t.rec.RecordDay(day); err != nil {
		logger.Warn("recording day total", "date", day.Date, "err", err)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func formatML(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
