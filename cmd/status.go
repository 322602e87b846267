package cmd

import (
	"fmt"

	"github.com/theirongolddev/hydrate/internal/cli"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's progress",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	fmt.Println()
	fmt.Print(cli.RenderStatus(s.tracker.Snapshot(), 30))
	fmt.Println()
	s.saveWarning()
	return nil
}
