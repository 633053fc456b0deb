package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fieldfleet/app"
	"github.com/kilianp07/fieldfleet/config"
	"github.com/kilianp07/fieldfleet/infra/input"
	"github.com/kilianp07/fieldfleet/infra/logger"
	"github.com/kilianp07/fieldfleet/infra/metrics"
)

type runFunc func(svc *app.Service, ctx context.Context, in app.Inputs, now time.Time) (*app.Plan, error)

type runFlags struct {
	now          string
	out          string
	format       string
	predictions  string
	serveMetrics bool
}

func newRunCmd(use, short string, run runFunc) *cobra.Command {
	var f runFlags
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, f, run)
		},
	}
	c.Flags().StringVar(&f.now, "now", "", "reference time (RFC3339 or YYYY-MM-DD), defaults to the current time")
	c.Flags().StringVarP(&f.out, "out", "o", "", "output path, overrides output.path")
	c.Flags().StringVar(&f.format, "format", "", "output format (json or csv), overrides output.format")
	c.Flags().StringVar(&f.predictions, "predictions", "", "replay a saved forecast (plan or prediction list JSON) instead of fitting readings")
	c.Flags().BoolVar(&f.serveMetrics, "serve-metrics", false, "keep serving /metrics after the run until interrupted")
	return c
}

func init() {
	rootCmd.AddCommand(
		newRunCmd("plan", "Run prediction, scheduling and allocation", (*app.Service).Run),
		newRunCmd("predict", "Forecast unit readiness only", (*app.Service).Predict),
		newRunCmd("allocate", "Forecast and allocate machines without clustering", (*app.Service).Allocate),
	)
}

func parseNow(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	return input.ParseTime(s)
}

func execute(cmd *cobra.Command, f runFlags, run runFunc) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.out != "" {
		cfg.Output.Path = f.out
	}
	if f.format != "" {
		cfg.Output.Format = f.format
	}
	if f.predictions != "" {
		cfg.Inputs.Predictions = f.predictions
	}
	if err := cfg.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	log := logger.New("cli")

	now, err := parseNow(f.now)
	if err != nil {
		return fmt.Errorf("--now: %w", err)
	}
	in, err := app.LoadInputs(cfg.Inputs)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}

	var opts []app.Option
	if engine := in.Engine(); engine != nil {
		log.Infof("replaying %d predictions from %s", len(in.Predictions), cfg.Inputs.Predictions)
		opts = append(opts, app.WithEngine(engine))
	}
	svc, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	plan, err := run(svc, ctx, in, now)
	if err != nil {
		return err
	}
	if err := app.WritePlan(plan, cfg.Output, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	if f.serveMetrics && cfg.Metrics.HasSink("prometheus") {
		log.Infof("serving metrics on %s", cfg.Metrics.ListenAddr)
		return metrics.StartPromServer(ctx, cfg.Metrics.ListenAddr)
	}
	return nil
}
