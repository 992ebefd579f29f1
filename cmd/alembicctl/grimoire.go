package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"alembic/internal/model"
	"alembic/internal/potion"
	"alembic/internal/storage"
)

func newGrimoireCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grimoire",
		Short: "Manage stored grimoires",
	}
	cmd.AddCommand(newGrimoireApplyCmd(a), newGrimoireShowCmd(a), newGrimoireListCmd(a))
	return cmd
}

func newGrimoireApplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <name> <script.yaml>",
		Short: "Append an update script to a grimoire, creating it if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, path := args[0], args[1]

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var script potion.Script
			if err := yaml.Unmarshal(data, &script); err != nil {
				return fmt.Errorf("decode script %s: %w", path, err)
			}

			record, ok, err := a.store.GetGrimoire(ctx, name)
			if err != nil {
				return err
			}
			if !ok {
				record = model.GrimoireRecord{Name: name}
			}
			combined := append(append(potion.Script(nil), record.Script...), script...).Collapse()
			g, err := combined.Apply(potion.NewGrimoire())
			if err != nil {
				return err
			}

			record.VersionedRecord = storage.CurrentVersion()
			record.Script = combined
			record.UpdatedAt = time.Now().UTC()
			if err := a.store.SaveGrimoire(ctx, record); err != nil {
				return err
			}
			a.logger.Info("grimoire updated", "name", name, "commands", len(script))

			fmt.Fprintf(a.stdout, "grimoire=%s commands=%s skills=%d ingredients=%d characters=%d\n",
				name,
				humanize.Comma(int64(len(combined))),
				len(g.Skills),
				len(g.Ingredients),
				len(g.Characters),
			)
			return nil
		},
	}
}

func newGrimoireShowCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		script  bool
	)
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a grimoire, or the script that builds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var value any
			if script {
				record, ok, err := a.store.GetGrimoire(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("grimoire not found: %s", args[0])
				}
				value = record.Script
			} else {
				g, err := a.loadGrimoire(ctx, args[0])
				if err != nil {
					return err
				}
				value = g
			}

			if jsonOut {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(value)
			}
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(value); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of YAML")
	cmd.Flags().BoolVar(&script, "script", false, "print the stored update script")
	return cmd
}

func newGrimoireListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored grimoire names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := a.store.ListGrimoires(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(a.stdout, "no grimoires found")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
}
