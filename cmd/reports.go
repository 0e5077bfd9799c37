package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"protein-updater/core/uniprot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	removeRun  string
	yesConfirm bool
)

// reportsCmd manages archived pass reports.
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage archived reconciliation reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, rt, err := openArchive()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		runs, err := archive.Runs(context.Background())
		if err != nil {
			return err
		}
		for _, run := range runs {
			fmt.Println(run)
		}
		rt.logger.Info("Archived runs", zap.Int("count", len(runs)))
		return nil
	},
}

var reportsRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete every report of an archived run",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, rt, err := openArchive()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		if !confirmDestructiveAction() {
			rt.logger.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}

		n, err := archive.Remove(context.Background(), removeRun)
		if err != nil {
			return err
		}
		rt.logger.Info("Removed archived run", zap.String("run", removeRun), zap.Int("objects", n))
		return nil
	},
}

func init() {
	reportsRemoveCmd.Flags().StringVar(&removeRun, "run", "", "Run id to remove")
	reportsRemoveCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	_ = reportsRemoveCmd.MarkFlagRequired("run")

	reportsCmd.AddCommand(reportsListCmd, reportsRemoveCmd)
	RootCmd.AddCommand(reportsCmd)
}

func openArchive() (*uniprot.Archive, *runtime, error) {
	rt, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}
	client, err := rt.storage()
	if err != nil {
		return nil, nil, err
	}
	return uniprot.NewArchive(client, rt.cfg.Storage.Bucket, rt.cfg.Uniprot), rt, nil
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		return true
	}

	fmt.Print("Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
