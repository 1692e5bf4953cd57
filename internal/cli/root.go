// Package cli implements metricsctl, the operator command for snapshots,
// migrations and exports.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"taiga-metrics-service/internal/app"
	"taiga-metrics-service/internal/config"
	"taiga-metrics-service/internal/metrics/adapters/snapshotstore"
)

// All linker flags will be set at build time.
var (
	version = "dev"
	commit  = "none"
)

type runtime struct {
	configFile string
	cfg        *config.Config
	out        io.Writer
	errOut     io.Writer
}

func (r *runtime) loadConfig() error {
	v := config.New(r.configFile)
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	r.cfg = cfg
	return nil
}

// openApp builds the full service graph. Callers must Close it.
func (r *runtime) openApp(ctx context.Context) (*app.App, error) {
	if err := r.loadConfig(); err != nil {
		return nil, err
	}
	return app.New(ctx, r.cfg, app.NewLogger(r.cfg, r.errOut))
}

// openStore only touches the snapshot backend.
func (r *runtime) openStore(ctx context.Context) (*snapshotstore.Store, error) {
	if err := r.loadConfig(); err != nil {
		return nil, err
	}
	return snapshotstore.Open(ctx, r.cfg.SnapshotBackend, r.cfg.SnapshotDSN, r.cfg.Pool)
}

// NewRootCmd assembles every subcommand writing to out.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	rt := &runtime{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "metricsctl",
		Short:         "Manage taiga metrics snapshots",
		Long:          `metricsctl builds, inspects and exports the metric snapshots served by the taiga metrics service.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&rt.configFile, "config", "", "config file (default is ./taiga-metrics.yaml or $HOME/taiga-metrics.yaml)")

	root.AddCommand(
		newSnapshotCmd(rt),
		newSprintCmd(rt),
		newMigrateCmd(rt),
		newExportCmd(rt),
	)
	return root
}

// Execute runs metricsctl with the process arguments.
func Execute() {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
