package progress

import (
	"fmt"

	"github.com/theirongolddev/hydrate/internal/quantity"
)

// Persisted keys. Values are plain strings; numbers are decimal milliliters
// and the last active date is Unix seconds.
const (
	KeyCurrentLevel   = "current_level"
	KeyAmountToAdd    = "amount_to_add"
	KeyGoal           = "goal"
	KeyUnit           = "unit"
	KeyLastActiveDate = "last_active_date"
)

// NumPresets is the number of quick-add slots.
const NumPresets = 3

// PresetKey returns the key of preset slot i (1-based).
func PresetKey(i int) string {
	return fmt.Sprintf("preset_%d", i)
}

// AllKeys lists every key the tracker reads and writes.
func AllKeys() []string {
	keys := []string{KeyCurrentLevel, KeyAmountToAdd, KeyGoal, KeyUnit, KeyLastActiveDate}
	for i := 1; i <= NumPresets; i++ {
		keys = append(keys, PresetKey(i))
	}
	return keys
}

// DefaultGoal is used when no valid goal is stored, in milliliters.
const DefaultGoal = 3000.0

// Defaults are the values a fresh tracker starts from.
type Defaults struct {
	Goal    float64
	Unit    quantity.Unit
	Presets [NumPresets]string
}

// DefaultDefaults returns the built-in starting values.
func DefaultDefaults() Defaults {
	return Defaults{
		Goal:    DefaultGoal,
		Unit:    quantity.Liters,
		Presets: [NumPresets]string{"150ml", "250ml", "500ml"},
	}
}
