package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Dosada05/checked/config"
	"github.com/Dosada05/checked/db"
	"github.com/Dosada05/checked/migrations"
)

var (
	infoColor = color.New(color.FgCyan)
	okColor   = color.New(color.FgGreen)
	headColor = color.New(color.FgYellow, color.Bold)
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		newUpgradeCommand(),
		newDowngradeCommand(),
		newCurrentCommand(),
		newHistoryCommand(),
		newStampCommand(),
		newRevisionCommand(),
	)
	return cmd
}

// withMigrator opens the configured database and hands a migrator to fn.
func withMigrator(fn func(*migrations.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	conn, err := db.Connect(cfg.DatabasePath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	migrator, err := migrations.New(conn, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if err != nil {
		return err
	}
	return fn(migrator)
}

func targetArg(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}

func printSteps(out io.Writer, steps []migrations.Step) {
	for _, step := range steps {
		infoColor.Fprintln(out, step.String())
	}
}

func newUpgradeCommand() *cobra.Command {
	var sqlOnly bool
	cmd := &cobra.Command{
		Use:   "upgrade [revision]",
		Short: "Upgrade to a later revision (default head)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := targetArg(args, "head")
			out := cmd.OutOrStdout()
			if sqlOnly {
				return withMigrator(func(m *migrations.Migrator) error {
					script, err := m.Render(cmd.Context(), "", target)
					if err != nil {
						return err
					}
					fmt.Fprint(out, script)
					return nil
				})
			}
			return withMigrator(func(m *migrations.Migrator) error {
				steps, err := m.Upgrade(cmd.Context(), target)
				printSteps(out, steps)
				if err != nil {
					return err
				}
				if len(steps) == 0 {
					if target == "head" {
						okColor.Fprintf(out, "Database is already at head (%s).\n", m.Head())
					} else {
						okColor.Fprintln(out, "Database is already at the requested revision.")
					}
					return nil
				}
				okColor.Fprintf(out, "Upgraded %d revision(s).\n", len(steps))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&sqlOnly, "sql", false, "print the SQL script instead of applying it")
	return cmd
}

func newDowngradeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "downgrade <revision>",
		Short: "Revert to an earlier revision (base, -1, or a revision id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withMigrator(func(m *migrations.Migrator) error {
				steps, err := m.Downgrade(cmd.Context(), args[0])
				printSteps(out, steps)
				if err != nil {
					return err
				}
				okColor.Fprintf(out, "Downgraded %d revision(s).\n", len(steps))
				return nil
			})
		},
	}
}

func newCurrentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the revision the database is at",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return withMigrator(func(m *migrations.Migrator) error {
				rev, err := m.Current(cmd.Context())
				if err != nil {
					return err
				}
				if rev == "" {
					fmt.Fprintln(out, migrations.Base)
					return nil
				}
				fmt.Fprint(out, rev)
				if rev == m.Head() {
					headColor.Fprint(out, " (head)")
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List revisions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return withMigrator(func(m *migrations.Migrator) error {
				history := m.History()
				head := m.Head()
				for _, mig := range history {
					down := mig.DownRevision
					if down == "" {
						down = "<base>"
					}
					fmt.Fprintf(out, "%s -> %s", down, mig.Revision)
					if mig.Revision == head {
						headColor.Fprint(out, " (head)")
					}
					fmt.Fprintf(out, ", %s\n", mig.Message)
				}
				return nil
			})
		},
	}
}

func newStampCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stamp <revision>",
		Short: "Record a revision as applied without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withMigrator(func(m *migrations.Migrator) error {
				if err := m.Stamp(cmd.Context(), args[0]); err != nil {
					return err
				}
				okColor.Fprintf(out, "Stamped database at %s.\n", args[0])
				return nil
			})
		},
	}
}

func newRevisionCommand() *cobra.Command {
	var (
		message      string
		autogenerate bool
		dir          string
	)
	cmd := &cobra.Command{
		Use:   "revision",
		Short: "Create a new empty migration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := migrations.Revision(dir, message, autogenerate, time.Now())
			if err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Generated %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "revision message")
	cmd.Flags().BoolVar(&autogenerate, "autogenerate", false, "diff models against the database (unsupported)")
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding migration sources")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
