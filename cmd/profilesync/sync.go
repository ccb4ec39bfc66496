package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"profilesync/pkg/auth"
	"profilesync/pkg/logger"
	"profilesync/pkg/server"
	"profilesync/pkg/ui"
)

var (
	batchSize   int
	metricsAddr string
	notify      bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scrape every PENDING queue item and reconcile it into the profiles worksheet",
	Long: `Run one sync cycle over the queue worksheet.

Each PENDING username is scraped and collected into batches. A full batch is
reconciled into the profiles worksheet in one snapshot read plus one write per
inserted or changed row, then every item in it is marked COMPLETED or FAILED.

Interrupting with Ctrl-C lets in-flight spreadsheet calls finish; the batch
being collected is discarded and its items stay PENDING for the next run.`,
	Example: `  # Sync with the configured spreadsheet
  profilesync sync

  # Sync into a local workbook with bigger batches and a metrics endpoint
  profilesync sync --backend sqlite --db ./profiles.db --batch-size 10 --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().IntVar(&batchSize, "batch-size", 0, "queue items per reconcile batch")
	syncCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address while syncing")
	syncCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"batch-size":   batchSize,
		"metrics-addr": metricsAddr,
	})
	if err != nil {
		return err
	}
	l := logger.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if creds, err := auth.NewManager(); err != nil {
		l.WithError(err).Warn("Credential store unavailable")
	} else {
		applyStoredCredentials(&cfg.Site, creds, l)
	}

	wb, err := openWorkbook(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer wb.close()

	if cfg.Metrics.Addr != "" {
		srv := server.New(cfg.Metrics.Addr, l)
		go func() {
			if err := srv.Start(); err != nil {
				l.WithError(err).Error("Observability server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	engine, err := newEngine(ctx, cfg, wb, l)
	if err != nil {
		return err
	}

	logger.LogComponentStart("syncer", map[string]interface{}{
		"backend":    cfg.Table.Backend,
		"batch_size": cfg.Sync.BatchSize,
	})
	summary, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	reason := "completed"
	if summary.Interrupted {
		reason = "interrupted"
	}
	logger.LogComponentStop("syncer", reason)

	ui.PrintSummary(ui.Output, summary)
	if notify || cfg.Sync.Notify {
		n := ui.NewNotifier()
		if summary.Interrupted || len(summary.Uncommitted) > 0 {
			n.SendError("profilesync", ui.SummaryLine(summary))
		} else {
			n.SendSuccess("profilesync", ui.SummaryLine(summary))
		}
	}
	return nil
}
