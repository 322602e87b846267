package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/hydrate/internal/progress"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [amount]",
	Short: "Add water to today's total",
	Long:  "Add an amount such as 250ml, 0.5L or 12oz. Without an argument the last amount is reused.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runDelta(args, progress.Add)
	},
}

var subCmd = &cobra.Command{
	Use:     "sub [amount]",
	Aliases: []string{"subtract"},
	Short:   "Take water off today's total",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runDelta(args, progress.Subtract)
	},
}

var presetCmd = &cobra.Command{
	Use:   "preset <1-3>",
	Short: "Add one of the preset amounts",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreset,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the preset amounts",
	Args:  cobra.NoArgs,
	RunE:  runPresetList,
}

var presetSetCmd = &cobra.Command{
	Use:   "set <1-3> <amount>",
	Short: "Change a preset amount",
	Args:  cobra.ExactArgs(2),
	RunE:  runPresetSet,
}

func init() {
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetSetCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(subCmd)
	rootCmd.AddCommand(presetCmd)
}

var errNoAmount = errors.New("no amount given and none saved (try: hydrate add 250ml)")

func runDelta(args []string, sign progress.Sign) error {
	s := openSession()
	defer s.Close()

	raw, err := s.delta(args, sign)
	if err != nil {
		return err
	}

	verb := "Added"
	if sign == progress.Subtract {
		verb = "Removed"
	}
	fmt.Printf("  %s %s  ·  %s\n", verb, strings.TrimSpace(raw), summaryLine(s.tracker.Snapshot()))
	s.saveWarning()
	return nil
}

// delta applies the argument, or the saved amount when there is none, and
// remembers a given argument for next time. It returns the text applied.
func (s *session) delta(args []string, sign progress.Sign) (string, error) {
	raw := s.tracker.Snapshot().AmountToAdd
	if len(args) == 1 {
		raw = args[0]
	}
	if strings.TrimSpace(raw) == "" {
		return "", errNoAmount
	}

	if err := s.tracker.ApplyDelta(raw, sign); err != nil {
		return "", err
	}
	s.noteSave()
	if len(args) == 1 {
		s.tracker.SetAmountToAdd(raw)
	}
	return raw, nil
}

func parseSlot(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > progress.NumPresets {
		return 0, progress.ErrPresetSlot
	}
	return n, nil
}

func runPreset(_ *cobra.Command, args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}

	s := openSession()
	defer s.Close()

	preset := s.tracker.Snapshot().Presets[slot-1]
	if err := s.tracker.ApplyPresetSlot(slot); err != nil {
		return fmt.Errorf("preset %d (%q): %w", slot, preset, err)
	}
	fmt.Printf("  Added %s  ·  %s\n", preset, summaryLine(s.tracker.Snapshot()))
	s.saveWarning()
	return nil
}

func runPresetList(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	for i, p := range s.tracker.Snapshot().Presets {
		fmt.Printf("  %d  %s\n", i+1, p)
	}
	return nil
}

func runPresetSet(_ *cobra.Command, args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}

	s := openSession()
	defer s.Close()

	if err := s.tracker.SetPreset(slot, args[1]); err != nil {
		return err
	}
	fmt.Printf("  Preset %d set to %s\n", slot, s.tracker.Snapshot().Presets[slot-1])
	s.saveWarning()
	return nil
}
