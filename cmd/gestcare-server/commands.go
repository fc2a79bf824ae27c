package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gestcare/gestcare/internal/config"
	"github.com/gestcare/gestcare/internal/domain/gestation"
	"github.com/gestcare/gestcare/internal/platform/db"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatuses(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, db.Migrations()))
}

func printStatuses(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the active exam protocol as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			return c.Encode(cmd.OutOrStdout())
		},
	}
}

// resolveFlags are the raw dating inputs of the resolve command. Empty
// strings and negative numbers mean "not supplied".
type resolveFlags struct {
	ref             string
	lmp             string
	dueDate         string
	ultrasoundDate  string
	ultrasoundWeeks float64
	weeks           float64
}

type resolveOutput struct {
	Profile      gestation.PregnancyProfile `json:"profile"`
	FormattedAge string                     `json:"formatted_age"`
	BabySize     gestation.BabySize         `json:"baby_size"`
	Problems     []gestation.Problem        `json:"problems,omitempty"`
}

func resolveCmd() *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a gestational age from dating inputs and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.OutOrStdout(), f, time.Now())
		},
	}
	cmd.Flags().StringVar(&f.ref, "ref", "", "Reference date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.lmp, "lmp", "", "Last menstrual period YYYY-MM-DD")
	cmd.Flags().StringVar(&f.dueDate, "due-date", "", "Estimated due date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.ultrasoundDate, "ultrasound-date", "", "First ultrasound date YYYY-MM-DD")
	cmd.Flags().Float64Var(&f.ultrasoundWeeks, "ultrasound-weeks", -1, "Gestational age reported by the first ultrasound")
	cmd.Flags().Float64Var(&f.weeks, "weeks", -1, "Gestational age in weeks")
	return cmd
}

func parseDateFlag(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func runResolve(w io.Writer, f resolveFlags, now time.Time) error {
	ref := now
	if f.ref != "" {
		r, err := parseDateFlag("ref", f.ref)
		if err != nil {
			return err
		}
		ref = *r
	}

	var in gestation.ProfileInput
	var err error
	if in.LastMenstrualPeriod, err = parseDateFlag("lmp", f.lmp); err != nil {
		return err
	}
	if in.DueDate, err = parseDateFlag("due-date", f.dueDate); err != nil {
		return err
	}
	if in.FirstUltrasoundDate, err = parseDateFlag("ultrasound-date", f.ultrasoundDate); err != nil {
		return err
	}
	if f.ultrasoundWeeks >= 0 {
		v := f.ultrasoundWeeks
		in.FirstUltrasoundGestationalAge = &v
	}
	if f.weeks >= 0 {
		v := f.weeks
		in.GestationalAge = &v
	}

	out := resolveOutput{}
	var ve *gestation.ValidationError
	if err := gestation.ValidateProfile(in, ref, gestation.DefaultTolerances()); errors.As(err, &ve) {
		out.Problems = ve.Problems
	}

	out.Profile = gestation.Resolve(in, ref)
	out.FormattedAge = gestation.FormatGestationalAge(out.Profile.GestationalAge)
	out.BabySize = gestation.BabySizeForAge(out.Profile.GestationalAge)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
