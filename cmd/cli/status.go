package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/db"
	"github.com/sevigo/runner-warden/internal/logger"
	"github.com/sevigo/runner-warden/internal/storage"
)

var (
	outputJSON  bool
	statusLimit int
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the most recent jobs recorded in the runner-warden ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cfg.Database.Enabled() {
			return errors.New("no database configured (database.host), the job ledger is disabled")
		}

		log := logger.NewLogger(cfg.Logging, os.Stderr)
		dbConn, cleanup, err := db.NewDatabase(ctx, &cfg.Database, log)
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := storage.NewStore(dbConn.DB).ListJobs(ctx, statusLimit)
		if err != nil {
			return fmt.Errorf("failed to retrieve jobs: %w", err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(records)
		}

		if len(records) == 0 {
			fmt.Println("No jobs have been recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB\tREPOSITORY\tUNIT\tPROFILE\tSTATE\tUPDATED\tREASON")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.JobID,
				rec.Repository,
				orDash(rec.UnitID),
				orDash(rec.Profile),
				stateColor(rec.State).Sprint(rec.State),
				rec.UpdatedAt.Format(time.RFC822),
				rec.Reason,
			)
		}
		return w.Flush()
	},
}

func stateColor(state string) *color.Color {
	switch core.UnitState(state) {
	case core.UnitCompleted:
		return successColor
	case core.UnitRunning:
		return warnColor
	case core.UnitFailed, core.UnitTimedOut, core.UnitRejected:
		return errorColor
	default:
		return dimColor
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "Output jobs as JSON")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Maximum number of jobs to show")
	rootCmd.AddCommand(statusCmd)
}
