package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"alembic/internal/model"
	"alembic/internal/stats"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and delete stored runs",
	}
	cmd.AddCommand(newRunsListCmd(a), newRunsDeleteCmd(a))
	return cmd
}

func newRunsListCmd(a *app) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			runs, err := a.store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) > limit {
				runs = runs[len(runs)-limit:]
			}
			if jsonOut {
				if runs == nil {
					runs = []model.RunRecord{}
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "no runs found")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(a.stdout, "run_id=%s status=%s grimoire=%s character=%s seed=%d generation=%s started=%s effects=%s\n",
					run.ID,
					run.Status,
					run.Grimoire,
					run.Config.Character,
					run.Config.Seed,
					humanize.Comma(int64(run.Generation)),
					humanize.Time(run.StartedAt),
					strings.Join(run.Config.Effects, ";"),
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs as JSON")
	return cmd
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, ok, err := a.store.GetRun(ctx, args[0]); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("run not found: %s", args[0])
			}
			if err := a.store.DeleteRun(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "deleted run_id=%s\n", args[0])
			return nil
		},
	}
}

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		generation int
		format     string
		list       bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot <run-id>",
		Short: "Print a stored population snapshot (latest by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runID := args[0]

			if list {
				generations, err := a.store.ListSnapshotGenerations(ctx, runID)
				if err != nil {
					return err
				}
				for _, gen := range generations {
					fmt.Fprintln(a.stdout, gen)
				}
				return nil
			}

			var (
				record model.SnapshotRecord
				ok     bool
				err    error
			)
			if cmd.Flags().Changed("generation") {
				record, ok, err = a.store.GetSnapshot(ctx, runID, generation)
			} else {
				record, ok, err = a.store.LatestSnapshot(ctx, runID)
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no snapshot for run %s", runID)
			}

			switch format {
			case "json":
				return stats.WriteSnapshotJSON(a.stdout, record.Snapshot)
			case "csv":
				return stats.WriteSnapshotCSV(a.stdout, record.Snapshot)
			default:
				return fmt.Errorf("unsupported format %q (want json|csv)", format)
			}
		},
	}
	cmd.Flags().IntVar(&generation, "generation", 0, "snapshot generation")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|csv")
	cmd.Flags().BoolVar(&list, "list", false, "list stored snapshot generations")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		outDir       string
		artifactsDir string
	)
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Copy a run's artifacts into an export directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("artifacts-dir") {
				artifactsDir = a.env.ArtifactsDir
			}
			dst, err := stats.ExportRunArtifacts(artifactsDir, args[0], outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "exported run_id=%s to=%s\n", args[0], dst)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "exports", "export directory")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "directory holding run artifacts (overrides ALEMBIC_ARTIFACTS_DIR)")
	return cmd
}
