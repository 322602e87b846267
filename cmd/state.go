package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/theirongolddev/hydrate/internal/progress"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Back up or restore the tracker values",
}

var stateExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the stored tracker values as YAML (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStateExport,
}

var stateImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the stored tracker values from a YAML export",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateImport,
}

func init() {
	stateCmd.AddCommand(stateExportCmd)
	stateCmd.AddCommand(stateImportCmd)
	rootCmd.AddCommand(stateCmd)
}

func runStateExport(_ *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()
	if s.store == nil {
		return errNoDatabase
	}

	values, err := s.store.All()
	if err != nil {
		return fmt.Errorf("reading stored values: %w", err)
	}

	var w io.Writer = os.Stdout
	if len(args) == 1 {
		f, err := os.OpenFile(args[0], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeYAML(w, trackerValues(values))
}

func runStateImport(_ *cobra.Command, args []string) error {
	//nolint:gosec // import path is given by the local user
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}
	values, err := decodeState(data)
	if err != nil {
		return err
	}

	s := openSession()
	defer s.Close()
	if s.store == nil {
		return errNoDatabase
	}

	if err := s.store.SaveAll(values); err != nil {
		return fmt.Errorf("saving imported values: %w", err)
	}
	fmt.Printf("  Imported %d values from %s\n", len(values), args[0])
	return nil
}

// decodeState reads an export, keeping only keys the tracker knows.
func decodeState(data []byte) (map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	values := trackerValues(raw)
	if len(values) == 0 {
		return nil, fmt.Errorf("import file has none of the keys %v", progress.AllKeys())
	}
	return values, nil
}

func trackerValues(in map[string]string) map[string]string {
	keys := progress.AllKeys()
	out := make(map[string]string, len(keys))
	for k, v := range in {
		if slices.Contains(keys, k) {
			out[k] = v
		}
	}
	return out
}
