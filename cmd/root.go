package cmd

import (
	"fmt"
	"os"

	"protein-updater/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configDir is where the optional .env file is read from.
var configDir string

// RootCmd is the protein-updater command.
var RootCmd = &cobra.Command{
	Use:   "protein-updater",
	Short: "Protein record reconciliation service",
	Long: `Protein Updater keeps local protein records in line with their canonical
UniProt entries: it merges duplicates, moves feature ranges onto updated
sequences, repairs transcript parents and removes orphaned records.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory holding the .env file")
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	err := RootCmd.Execute()
	if err == nil {
		return
	}

	// The configured logger may be what failed, so errors go to a console logger
	l, logErr := logger.New(&logger.Config{Level: "error", Format: "console"})
	if logErr != nil {
		fmt.Fprintln(os.Stderr, err)
	} else {
		l.Error("Command failed", zap.Error(err))
		_ = l.Sync()
	}
	os.Exit(1)
}
