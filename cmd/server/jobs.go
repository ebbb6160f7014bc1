package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"globalnews_translator/internal/app/worker"
	"globalnews_translator/internal/domain/model"
	"globalnews_translator/internal/platform/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Pipeline.Store != "postgres" {
				return errors.New("migrate needs the postgres store")
			}
			if dir == "" {
				dir = cfg.Database.MigrationsDir
			}
			db, err := database.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db, dir); err != nil {
				return err
			}
			log.Info("migrations applied", zap.String("dir", dir))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (defaults to DB_MIGRATIONS_DIR)")
	return cmd
}

func newEnqueueCmd() *cobra.Command {
	var (
		languages []string
		priority  string
		modelName string
	)
	cmd := &cobra.Command{
		Use:   "enqueue ARTICLE_ID",
		Short: "Queue one translation job for an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePriority(priority)
			if err != nil {
				return err
			}
			var override *model.ConfigOverride
			if modelName != "" {
				override = &model.ConfigOverride{Model: &modelName}
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ids, err := a.jobService().CreateTranslationJobs(cmd.Context(), args[0], languages, p, override)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"job_ids": ids})
		},
	}
	cmd.Flags().StringSliceVarP(&languages, "lang", "l", nil, "Target language codes (repeatable or comma separated)")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(model.PriorityNormal), "urgent, high, normal or low")
	cmd.Flags().StringVar(&modelName, "model", "", "Override the gateway model for this job")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func newBulkCmd() *cobra.Command {
	var (
		languages []string
		urgency   string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Queue jobs for every untranslated breaking or high urgency article",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ids, err := a.jobService().CreateBulkTranslationJobs(cmd.Context(), model.UrgencyTag(urgency), languages, limit)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"job_ids": ids, "count": len(ids)})
		},
	}
	cmd.Flags().StringSliceVarP(&languages, "lang", "l", nil, "Target language codes")
	cmd.Flags().StringVarP(&urgency, "urgency", "u", string(model.UrgencyBreaking), "breaking or high")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum articles to schedule (0 for the default)")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

// offlinePool stands in for the worker pool when metrics are read from the CLI,
// where no workers run in this process.
type offlinePool struct{ capacity int }

func (p offlinePool) Busy() int { return 0 }
func (p offlinePool) Capacity() int { return p.capacity }
func (p offlinePool) Running() bool { return false }

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print a queue metrics snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			reporter := worker.NewMetricsReporter(a.jobs, a.results, offlinePool{cfg.Pipeline.Concurrency}, cfg.Pipeline.MetricsWindowDays)
			m, err := reporter.QueueMetrics(cmd.Context())
			if err != nil {
				return err
			}
			// Workers live in the serve process; the store knows what they hold.
			processing, err := a.jobs.CountJobs(cmd.Context(), model.JobStatusProcessing, time.Time{})
			if err != nil {
				return fmt.Errorf("count processing jobs: %w", err)
			}
			m.Processing = processing
			return printJSON(m)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
