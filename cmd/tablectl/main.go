// Command tablectl provisions the publication table and inspects stored
// records.
package main

import (
	"fmt"
	"os"

	"publication-backend/infrastructure/config"
	"publication-backend/infrastructure/di"

	"github.com/spf13/cobra"
)

var (
	// cfg is loaded from the environment before every command
	cfg *config.Config

	// container is built lazily by the commands that read records
	container *di.Container
	cleanup   = func() {}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tablectl",
	Short: "tablectl manages the publication table",
	Long: `tablectl creates the publication table with its secondary indexes and
reads resources and tickets through the same repository the API uses.
Configuration comes from the environment (STORE_BACKEND, TABLE_NAME, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cleanup()
	},
}

func init() {
	rootCmd.AddCommand(createTableCmd)
	rootCmd.AddCommand(getResourceCmd)
	rootCmd.AddCommand(listTicketsCmd)
}

// initContainer wires the application for the read commands
func initContainer(cmd *cobra.Command) error {
	built, release, err := di.InitializeContainer(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("initialize container: %w", err)
	}
	container, cleanup = built, release
	return nil
}
