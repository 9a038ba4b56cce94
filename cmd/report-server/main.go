package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/healthreport/internal/config"
	"github.com/ehr/healthreport/internal/layout"
	"github.com/ehr/healthreport/internal/platform/db"
	"github.com/ehr/healthreport/internal/platform/pdf"
	"github.com/ehr/healthreport/internal/report"
	"github.com/ehr/healthreport/internal/score"
	"github.com/ehr/healthreport/migrations"
)

const creator = "healthreport"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "report-server",
		Short:        "Health report layout service",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(renderCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the report API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if lvl, err := cfg.Level(); err == nil {
		logger = logger.Level(lvl)
	}
	return logger
}

func reportOptions(cfg *config.Config) report.Options {
	opts := report.DefaultOptions()
	opts.Geometry = cfg.Geometry()
	opts.Title = cfg.ReportTitle
	opts.Attribution = cfg.ReportAttribution
	return opts
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a snapshot file (JSON or YAML) to PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			kind, _ := cmd.Flags().GetString("kind")
			recordID, _ := cmd.Flags().GetString("record-id")
			if input == "" {
				return fmt.Errorf("--input is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Geometry().Validate(); err != nil {
				return err
			}

			data, err := loadSnapshot(input)
			if err != nil {
				return err
			}
			doc, err := buildDocument(reportOptions(cfg), data, kind, recordID)
			if err != nil {
				return err
			}

			content, err := pdf.NewRenderer(creator).Render(doc)
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(input, extension(input)) + ".pdf"
			}
			if err := os.WriteFile(output, content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d page(s) to %s\n", doc.PageCount(), output)
			return nil
		},
	}
	cmd.Flags().StringP("input", "i", "", "Snapshot file (.json, .yaml or .yml)")
	cmd.Flags().StringP("output", "o", "", "Output PDF path (defaults to the input name with .pdf)")
	cmd.Flags().String("kind", "main", "Document kind: main, records or record")
	cmd.Flags().String("record-id", "", "Medical record id when --kind=record")
	return cmd
}

func buildDocument(opts report.Options, data *report.Data, kind, recordID string) (*layout.Document, error) {
	switch kind {
	case "main", "":
		return report.NewBuilder(opts).BuildMainReport(data)
	case "records":
		return report.NewRecordBuilder(opts).BuildCombinedRecords(data.MedicalRecords, data.Patient.Name)
	case "record":
		for _, rec := range data.MedicalRecords {
			if rec.ID == recordID {
				return report.NewRecordBuilder(opts).BuildSingleRecord(rec, data.Patient.Name)
			}
		}
		return nil, fmt.Errorf("medical record %q not found in snapshot", recordID)
	}
	return nil, fmt.Errorf("unknown kind %q (want main, records or record)", kind)
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Print the health score breakdown of a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			if input == "" {
				return fmt.Errorf("--input is required")
			}
			data, err := loadSnapshot(input)
			if err != nil {
				return err
			}
			printScore(cmd, score.Compute(data.ScoreInputs(), time.Now()))
			return nil
		},
	}
	cmd.Flags().StringP("input", "i", "", "Snapshot file (.json, .yaml or .yml)")
	return cmd
}

func printScore(cmd *cobra.Command, r score.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-12s %8s %8s\n", "FACTOR", "POINTS", "SAMPLES")
	for _, f := range r.Factors {
		fmt.Fprintf(out, "%-12s %8.1f %8d\n", f.Name, f.Points, f.Samples)
	}
	fmt.Fprintf(out, "Score: %s / 10 (%s)\n", r, layout.ScoreLabel(r.Value))
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the snapshot source schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
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
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd, statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.HasDatabase() {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrations.FS))
}

func printStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
