package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"alembic/internal/config"
	"alembic/internal/model"
	"alembic/internal/optimizer"
	"alembic/internal/stats"
	"alembic/internal/storage"
	"alembic/internal/telemetry"
)

const metricsShutdownTimeout = 5 * time.Second

func newOptimizeCmd(a *app) *cobra.Command {
	var (
		runID        string
		seed         int64
		generations  int
		metricsAddr  string
		artifactsDir string
	)
	cmd := &cobra.Command{
		Use:   "optimize <run.yaml>",
		Short: "Run the optimizer described by a run document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.LoadRun(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				doc.Seed = seed
			}
			if cmd.Flags().Changed("generations") {
				doc.Generations = generations
			}
			if err := doc.Validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = a.env.MetricsAddr
			}
			if !cmd.Flags().Changed("artifacts-dir") {
				artifactsDir = a.env.ArtifactsDir
			}
			if runID == "" {
				runID = uuid.NewString()
			}
			return a.optimize(cmd.Context(), runID, doc, metricsAddr, artifactsDir)
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "explicit run id (default: random uuid)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override the document seed")
	cmd.Flags().IntVar(&generations, "generations", 0, "override the document generation count (0 runs until interrupted)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides ALEMBIC_METRICS_ADDR)")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "directory for run artifacts (overrides ALEMBIC_ARTIFACTS_DIR)")
	return cmd
}

func (a *app) optimize(ctx context.Context, runID string, doc config.RunDocument, metricsAddr, artifactsDir string) error {
	base, err := a.loadGrimoire(ctx, doc.BaseGrimoire)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewMetrics(reg, runID)
	if err != nil {
		return err
	}
	recorder := stats.NewRecorder()
	logger := a.logger.With("run", runID)

	cfg := doc.ToOptimizer()
	opt, err := optimizer.New(base, cfg,
		optimizer.WithLogger(logger),
		optimizer.WithObserver(telemetry.Observers{recorder, metrics}),
	)
	if err != nil {
		return err
	}

	run := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		Grimoire:        doc.BaseGrimoire,
		Config:          cfg,
		Status:          model.RunRunning,
		StartedAt:       time.Now().UTC(),
	}
	if err := a.store.SaveRun(ctx, run); err != nil {
		return err
	}

	emit := func(ctx context.Context, snapshot optimizer.Snapshot) error {
		metrics.ObserveSnapshot()
		return a.store.SaveSnapshot(ctx, model.SnapshotRecord{
			VersionedRecord: storage.CurrentVersion(),
			RunID:           runID,
			Snapshot:        snapshot,
		})
	}

	runErr := runWithSignals(ctx, opt, emit, reg, metricsAddr, logger)

	// The outcome is recorded even when ctx was cancelled.
	ctx = context.WithoutCancel(ctx)
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Generation = opt.Generation()
	run.Status = runStatus(cfg, run.Generation, runErr)
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := a.store.SaveRun(ctx, run); err != nil {
		return errors.Join(runErr, err)
	}

	front, err := opt.Snapshot()
	if err != nil {
		return errors.Join(runErr, err)
	}
	if err := a.store.SaveSnapshot(ctx, model.SnapshotRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           runID,
		Snapshot:        front,
	}); err != nil {
		return errors.Join(runErr, err)
	}

	artifacts := stats.RunArtifacts{Run: run, History: recorder.History(), Front: front}
	runDir, err := stats.WriteRunArtifacts(artifactsDir, artifacts)
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("write artifacts: %w", err))
	}
	if err := stats.AppendRunIndex(artifactsDir, stats.IndexEntry(artifacts)); err != nil {
		return errors.Join(runErr, fmt.Errorf("update run index: %w", err))
	}

	fmt.Fprintf(a.stdout, "run_id=%s status=%s generations=%s elapsed=%s artifacts=%s\n",
		run.ID,
		run.Status,
		humanize.Comma(int64(run.Generation)),
		finished.Sub(run.StartedAt).Round(time.Millisecond),
		runDir,
	)
	if best, ok := front.Best(); ok {
		fmt.Fprintf(a.stdout, "best constraint=%g fitness=%v genome=%s\n",
			best.Constraint, best.Fitness, stats.FormatGenome(front, best.Genome))
	}
	return runErr
}

// runWithSignals runs the optimizer next to a signal watcher and, when addr is
// set, a metrics server. SIGINT/SIGTERM stop the optimizer after the
// generation in progress.
func runWithSignals(ctx context.Context, opt *optimizer.Optimizer, emit optimizer.EmitFunc, reg *prometheus.Registry, addr string, logger *slog.Logger) error {
	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return opt.Run(gctx, emit)
	})
	g.Go(func() error {
		select {
		case <-sigCtx.Done():
			logger.Info("stop requested")
			opt.Stop()
		case <-done:
		}
		return nil
	})

	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: telemetry.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-done:
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func runStatus(cfg optimizer.Config, generation int, err error) model.RunStatus {
	switch {
	case err == nil && cfg.Generations > 0 && generation >= cfg.Generations:
		return model.RunCompleted
	case err == nil, errors.Is(err, context.Canceled):
		return model.RunStopped
	default:
		return model.RunFailed
	}
}
