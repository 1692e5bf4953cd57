package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taiga-metrics-service/internal/metrics/adapters/parquetexport"
	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/usecase"
	"taiga-metrics-service/internal/platform/database"
)

func newSnapshotCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Build and inspect metric snapshots",
		Long: `Manage the snapshots the API serves.

Subcommands:
  build  - Force a rebuild for one or more projects
  show   - Print the metrics of a project
  list   - List stored snapshots
  status - Show snapshot backend statistics
  clear  - Drop one project's snapshot, or all of them`,
	}
	cmd.AddCommand(
		newSnapshotBuildCmd(rt),
		newSnapshotShowCmd(rt),
		newSnapshotListCmd(rt),
		newSnapshotStatusCmd(rt),
		newSnapshotClearCmd(rt),
	)
	return cmd
}

func newSnapshotBuildCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "build PROJECT...",
		Short:   "Rebuild snapshots, ignoring the cache",
		Example: "  metricsctl snapshot build alpha beta",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.Metrics.RefreshAll(cmd.Context(), args)
			if err != nil {
				return err
			}
			for _, slug := range out.Refreshed {
				_, _ = fmt.Fprintf(rt.out, "%s %s\n", highColor.Sprint("rebuilt"), slug)
			}
			for slug, msg := range out.Failed {
				_, _ = fmt.Fprintf(rt.out, "%s %s: %s\n", lowColor.Sprint("failed"), slug, msg)
			}
			if len(out.Failed) > 0 {
				return fmt.Errorf("%d of %d snapshots failed", len(out.Failed), len(out.Failed)+len(out.Refreshed))
			}
			return nil
		},
	}
}

func newSnapshotShowCmd(rt *runtime) *cobra.Command {
	var (
		refresh  bool
		students bool
	)
	cmd := &cobra.Command{
		Use:   "show PROJECT",
		Short: "Print the metrics of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Metrics.Execute(cmd.Context(), usecase.GetMetricsInput{
				ProjectSlug: args[0],
				Source:      domain.ProviderInternal,
				Refresh:     refresh,
			})
			if err != nil {
				return err
			}
			if err := printMetrics(rt.out, res.Snapshot); err != nil {
				return err
			}
			if students {
				return printStudents(rt.out, res.Snapshot)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "rebuild even when a fresh snapshot is cached")
	cmd.Flags().BoolVar(&students, "students", false, "also print per-student metrics")
	return cmd
}

func newSnapshotListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := rt.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			ttl := time.Duration(rt.cfg.TTLMinutes) * time.Minute
			return printSnapshotList(rt.out, infos, ttl, time.Now())
		},
	}
}

func newSnapshotStatusCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Display snapshot backend statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := rt.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printStoreStatus(rt.out, st)
		},
	}
}

func newSnapshotClearCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [PROJECT]",
		Short: "Drop one project's snapshot, or every snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a, err := rt.openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()

				deleted, err := a.Metrics.Invalidate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !deleted {
					_, _ = fmt.Fprintf(rt.out, "No snapshot stored for %s.\n", args[0])
					return nil
				}
				_, _ = fmt.Fprintf(rt.out, "Snapshot for %s cleared.\n", args[0])
				return nil
			}

			store, err := rt.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.out, "%d snapshots cleared.\n", n)
			return nil
		},
	}
}

func newSprintCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sprint PROJECT",
		Short: "Show the sprint metrics would be scoped to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			project, err := a.Projects.ProjectBySlug(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			sprint, err := a.Sprints.ActiveSprint(cmd.Context(), project.ID)
			if err != nil {
				return err
			}
			if sprint == nil {
				_, _ = fmt.Fprintf(rt.out, "%s has no active sprint; metrics cover the whole project.\n", project.Name)
				return nil
			}
			_, _ = fmt.Fprintf(rt.out, "%s: %s (id %d)\n", project.Name, highColor.Sprint(sprint.Name), sprint.ID)
			return nil
		},
	}
}

func newMigrateCmd(rt *runtime) *cobra.Command {
	var (
		schema string
		target int
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Long: `Apply the embedded schema migrations.

Schemas:
  snapshots - metrics_snapshots on the configured snapshot backend
  config    - projects_metrics_config in the taiga database

--target -1 migrates to the latest version, 0 rolls everything back.`,
		Example: "  metricsctl migrate --schema config\n  metricsctl migrate --schema snapshots --target 0",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch database.MigrationSet(schema) {
			case database.SnapshotSchema:
				store, err := rt.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close()
				return database.Migrate(store.DB(), store.Backend(), database.SnapshotSchema, target, rt.out)

			case database.ConfigSchema:
				if err := rt.loadConfig(); err != nil {
					return err
				}
				if err := rt.cfg.RequireDatabase(); err != nil {
					return err
				}
				db, err := database.OpenTaiga(cmd.Context(), rt.cfg.DatabaseDSN, rt.cfg.Pool)
				if err != nil {
					return err
				}
				defer db.Close()
				return database.Migrate(db, database.Postgres, database.ConfigSchema, target, rt.out)

			default:
				return fmt.Errorf("unknown schema %q (want snapshots or config)", schema)
			}
		},
	}
	cmd.Flags().StringVar(&schema, "schema", string(database.SnapshotSchema), "schema to migrate: snapshots | config")
	cmd.Flags().IntVar(&target, "target", -1, "target version (-1 latest, 0 rollback all)")
	return cmd
}

func newExportCmd(rt *runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export PROJECT",
		Short: "Export historical series to a Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = args[0] + "-historical.parquet"
			}

			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Metrics.Execute(cmd.Context(), usecase.GetMetricsInput{
				ProjectSlug: args[0],
				Source:      domain.ProviderInternal,
			})
			if err != nil {
				if errors.Is(err, domain.ErrProjectNotFound) {
					return fmt.Errorf("project %q: %w", args[0], err)
				}
				return err
			}

			n, err := parquetexport.WriteFile(output, res.Project.Slug, res.Snapshot)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.out, "Wrote %d points to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default PROJECT-historical.parquet)")
	return cmd
}
