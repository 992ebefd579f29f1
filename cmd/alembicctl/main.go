package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"alembic/internal/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes one command line. A nil environ reads the process environment.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, environ map[string]string) error {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a, environ)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCmd(a *app, environ map[string]string) *cobra.Command {
	root := &cobra.Command{
		Use:           "alembicctl",
		Short:         "Search potion recipes with a multi-objective genetic optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var (
				env config.Env
				err error
			)
			if environ == nil {
				env, err = config.LoadEnv()
			} else {
				env, err = config.LoadEnvFrom(environ)
			}
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("store") {
				env.Store = a.storeKind
			}
			if cmd.Flags().Changed("db-path") {
				env.DBPath = a.dbPath
			}
			return a.setup(cmd.Context(), env)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.storeKind, "store", "sqlite", "store backend: memory|sqlite (overrides ALEMBIC_STORE)")
	root.PersistentFlags().StringVar(&a.dbPath, "db-path", "alembic.db", "sqlite database path (overrides ALEMBIC_DB_PATH)")

	root.AddCommand(
		newInitCmd(a),
		newGrimoireCmd(a),
		newOptimizeCmd(a),
		newRunsCmd(a),
		newSnapshotCmd(a),
		newExportCmd(a),
	)
	return root
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the store schema",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(a.stdout, "initialized store=%s\n", a.env.Store)
			return nil
		},
	}
}
