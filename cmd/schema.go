package cmd

import (
	"fmt"

	"protein-updater/core/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// schemaCmd groups the record schema commands.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect or create the record database schema",
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the database tables with the expected record schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		db, err := rt.database()
		if err != nil {
			return err
		}
		issues, err := database.CheckSchema(db)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			rt.logger.Warn("Schema mismatch", zap.String("table", issue.Table), zap.String("issue", issue.String()))
		}
		if len(issues) > 0 {
			return fmt.Errorf("%d tables do not match the record schema, run 'schema migrate'", len(issues))
		}
		rt.logger.Info("Schema is up to date")
		return nil
	},
}

var schemaMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or extend the record tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		db, err := rt.database()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		rt.logger.Info("Schema migrated", zap.Int("tables", len(database.Models())))
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaCheckCmd, schemaMigrateCmd)
	RootCmd.AddCommand(schemaCmd)
}
