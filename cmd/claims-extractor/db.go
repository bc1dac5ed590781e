package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/repository"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Job store maintenance",
}

var dbHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the job store is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.Store.DSN == "" {
			return fmt.Errorf("DB_URL is required")
		}
		db, err := repository.Open(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.HealthCheck(ctx, cfg.Store.DialTimeout); err != nil {
			return fmt.Errorf("db health: FAIL (%w)", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "db health: OK (%s)\n", cfg.Store.Driver)
		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the extract_job table and indexes if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), true)
		if err != nil {
			return err
		}
		st.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "migrate: OK")
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbHealthCmd, dbMigrateCmd)
}
