package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/greengliwice/trees-backend/internal/bootstrap"
	"github.com/greengliwice/trees-backend/internal/dicts"
	"github.com/greengliwice/trees-backend/internal/userhash"
)

// opener builds the AWS-backed collaborators lazily, so commands that work on
// local files never need credentials.
type opener func(ctx context.Context) (*bootstrap.Deps, error)

var formats = []string{"yaml", "json"}

func newRootCommand(open opener) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:          "treesctl",
		Short:        "Operate the trees backend",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			for _, f := range formats {
				if f == format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", format, formats)
		},
	}
	cmd.PersistentFlags().StringVar(&format, "format", "yaml", "output format (yaml|json)")

	cmd.AddCommand(newInitTablesCommand(open))
	cmd.AddCommand(newSeedDictsCommand(open))
	cmd.AddCommand(newHashUsersCommand(open, &format))
	return cmd
}

func newInitTablesCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "init-tables",
		Short: "Create the Trees, Leaderboard and Dicts tables when missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := open(ctx)
			if err != nil {
				return err
			}
			steps := []struct {
				table  string
				ensure func(context.Context) (bool, error)
			}{
				{d.Trees.Table, d.Trees.EnsureTable},
				{d.Board.Table, d.Board.EnsureTable},
				{d.Dicts.Table, d.Dicts.EnsureTable},
			}
			for _, s := range steps {
				created, err := s.ensure(ctx)
				if err != nil {
					return err
				}
				state := "exists"
				if created {
					state = "created"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.table, state)
			}
			return nil
		},
	}
}

func newSeedDictsCommand(open opener) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed-dicts",
		Short: "Create and seed the Dicts table",
		Long: `Creates the Dicts table and writes the embedded seed when the table is new.
With --force the seed is written again; ids are stable so entries are
overwritten in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := open(ctx)
			if err != nil {
				return err
			}
			items := dicts.MustSeed()

			seeded, err := d.Dicts.EnsureSeeded(ctx, items)
			if err != nil {
				return err
			}
			if !seeded && force {
				if err := d.Dicts.Seed(ctx, items); err != nil {
					return err
				}
				seeded = true
			}
			if seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d entries into %s\n", len(items), d.Dicts.Table)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, nothing written\n", d.Dicts.Table)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rewrite the seed into an existing table")
	return cmd
}

func newHashUsersCommand(open opener, format *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "hash-users",
		Short: "Print tree counts per user with ids replaced by their public hash",
		Long: `Reads a YAML list of {userId, addedTrees} from --file, or counts the trees
in the Trees table when no file is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var users []userhash.UserTrees
			if file != "" {
				doc, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if err := yaml.Unmarshal(doc, &users); err != nil {
					return fmt.Errorf("parse %s: %w", file, err)
				}
			} else {
				d, err := open(cmd.Context())
				if err != nil {
					return err
				}
				trees, err := d.Trees.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				users = userhash.Count(trees)
			}
			return encode(cmd.OutOrStdout(), *format, userhash.Anonymize(users))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with userId/addedTrees pairs")
	return cmd
}

func encode(w io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
