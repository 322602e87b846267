package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/quantity"
	"github.com/theirongolddev/hydrate/internal/tui/theme"
)

// SetupValues holds the answers of the first-run form.
type SetupValues struct {
	Unit    string
	Goal    string
	Presets [progress.NumPresets]string
	Theme   string
}

// SetupValuesFrom seeds the form from cfg so re-running setup starts from
// the current answers.
func SetupValuesFrom(cfg config.Config) *SetupValues {
	v := &SetupValues{
		Unit:  cfg.Defaults.Unit,
		Goal:  cfg.Defaults.Goal,
		Theme: cfg.Appearance.Theme,
	}
	if u, err := quantity.ParseUnit(v.Unit); err == nil {
		v.Unit = u.Suffix()
	} else {
		v.Unit = quantity.Liters.Suffix()
	}
	d := progress.DefaultDefaults()
	for i := range v.Presets {
		v.Presets[i] = d.Presets[i]
		if i < len(cfg.Defaults.Presets) {
			v.Presets[i] = cfg.Defaults.Presets[i]
		}
	}
	if _, ok := theme.Lookup(v.Theme); !ok {
		v.Theme = theme.FlexokiDark.Name
	}
	return v
}

func (v *SetupValues) unit() quantity.Unit {
	u, err := quantity.ParseUnit(v.Unit)
	if err != nil {
		return quantity.Liters
	}
	return u
}

// validateAmount accepts anything that parses to a positive amount.
func validateAmount(raw string, unit quantity.Unit) error {
	q, err := quantity.Parse(raw, unit)
	if err != nil {
		return errors.New("enter an amount like " + unit.Placeholder())
	}
	if q.ML() <= 0 {
		return errors.New("amount must be more than zero")
	}
	return nil
}

// NewSetupForm builds the first-run wizard bound to v.
func NewSetupForm(v *SetupValues) *huh.Form {
	unitOpts := make([]huh.Option[string], 0, len(quantity.Units))
	for _, u := range quantity.Units {
		unitOpts = append(unitOpts, huh.NewOption(fmt.Sprintf("%s (%s)", u, u.Suffix()), u.Suffix()))
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	presetInputs := make([]huh.Field, 0, progress.NumPresets)
	for i := range v.Presets {
		presetInputs = append(presetInputs, huh.NewInput().
			Title(fmt.Sprintf("Preset %d", i+1)).
			Validate(func(s string) error { return validateAmount(s, v.unit()) }).
			Value(&v.Presets[i]))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to hydrate").
				Description("A few questions to set up your daily goal.\nRun `hydrate setup` anytime to change them."),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Unit").
				Description("Used for display and for numbers typed without a suffix.").
				Options(unitOpts...).
				Value(&v.Unit),
			huh.NewInput().
				Title("Daily goal").
				DescriptionFunc(func() string {
					return "e.g. " + v.unit().Placeholder() + " or 3L"
				}, &v.Unit).
				Validate(func(s string) error { return validateAmount(s, v.unit()) }).
				Value(&v.Goal),
		),
		huh.NewGroup(presetInputs...).
			Title("Quick-add presets"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.Theme),
		),
	).WithTheme(huh.ThemeCharm())
}

// Apply copies the answers into cfg and, when tr is not nil, into the
// tracker. It does not save cfg.
func (v *SetupValues) Apply(cfg *config.Config, tr *progress.Tracker) error {
	u := v.unit()
	cfg.Defaults.Unit = u.Suffix()
	cfg.Defaults.Goal = strings.TrimSpace(v.Goal)
	cfg.Defaults.Presets = make([]string, 0, len(v.Presets))
	for _, p := range v.Presets {
		cfg.Defaults.Presets = append(cfg.Defaults.Presets, strings.TrimSpace(p))
	}
	cfg.Appearance.Theme = v.Theme
	theme.SetActive(v.Theme)

	if tr == nil {
		return nil
	}

	// Unit first so the goal and presets parse in the chosen unit.
	tr.SetUnit(u)
	var errs []error
	if err := tr.SetGoal(v.Goal); err != nil {
		errs = append(errs, fmt.Errorf("goal: %w", err))
	}
	for i, p := range v.Presets {
		if err := tr.SetPreset(i+1, p); err != nil {
			errs = append(errs, fmt.Errorf("preset %d: %w", i+1, err))
		}
	}
	if err := tr.LastSaveError(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
