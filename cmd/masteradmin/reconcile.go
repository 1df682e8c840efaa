// cmd/masteradmin/reconcile.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	reconcileTimeout time.Duration
	reconcileMigrate bool
	reconcileReport  bool
)

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileTimeout, "timeout", 0, "Maximum time to run the merge (defaults to the configured reconcile timeout)")
	reconcileCmd.Flags().BoolVar(&reconcileMigrate, "migrate", false, "Create the remote tables first (database mode)")
	reconcileCmd.Flags().BoolVar(&reconcileReport, "report", false, "Print the resulting analytics as JSON")
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge the local store with the remote store once and exit",
	Long: `reconcile runs a single bootstrap merge: local and remote collections are
merged per kind, the result is written to the local store, and records the
remote is missing are written back to it before the command exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		timeout := reconcileTimeout
		if timeout <= 0 {
			timeout = cfg.Sync.ReconcileTimeout
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, err := newApp(ctx, cfg, logger, reconcileMigrate)
		if err != nil {
			return err
		}
		defer a.Close()

		start := time.Now()
		if err := a.engine.Bootstrap(ctx); err != nil {
			return fmt.Errorf("reconciling: %w", err)
		}
		a.engine.Wait()

		stats := a.engine.Analytics(ctx)
		logger.Info("reconciliation finished",
			"backend", a.engine.Backend(),
			"duration", time.Since(start),
			"companies", stats.TotalCompanies,
			"users", stats.TotalUsers,
			"access_codes", stats.TotalAccessCodes,
		)

		if reconcileReport {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		return nil
	},
}
