package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/spf13/cobra"
)

const shutdownGrace = time.Second

var errPipelineFailed = errors.New("pipeline did not complete")

type runOptions struct {
	interactive bool
	step        time.Duration
	flaky       int
	fail        bool
	workers     int
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the deployment pipeline",
		Long: `Starts the pipeline and sends START. Jobs advance it on their own; with
--interactive the next event is picked from a menu instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick events from a menu")
	cmd.Flags().DurationVar(&opts.step, "step", 200*time.Millisecond, "how long each job takes")
	cmd.Flags().IntVar(&opts.flaky, "flaky", 1, "number of test runs that ask for a retry")
	cmd.Flags().BoolVar(&opts.fail, "fail", false, "make the deploy job fail")
	cmd.Flags().IntVar(&opts.workers, "workers", 2, "size of the job worker pool")

	return cmd
}

func runPipeline(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	settings, err := root.settings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := pond.NewPool(opts.workers)
	defer pool.StopAndWait()

	dep := &deployment{step: opts.step, flaky: opts.flaky, failLast: opts.fail}

	m, err := fsm.New(pipelineConfig(dep),
		fsm.WithSettings(settings),
		fsm.WithPool(pool),
		fsm.WithLogger(root.log))
	if err != nil {
		return err
	}

	m.OnAny(printer(cmd.OutOrStdout()))

	if err := m.Start(); err != nil {
		return err
	}

	if opts.interactive {
		driver := cli.NewDriver()
		driver.Out = cmd.OutOrStdout()

		if err := driver.Run(m); err != nil {
			_ = m.Stop()

			return err
		}
	} else {
		if err := m.Transition("START"); err != nil {
			return err
		}

		select {
		case <-m.Done():
		case <-ctx.Done():
			root.log.Info("interrupted, stopping pipeline")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.JobTimeout+shutdownGrace)
	defer cancel()

	if err := m.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if state := m.StateName(); state != "done" {
		return fmt.Errorf("%w: stopped in %q", errPipelineFailed, state)
	}

	return nil
}
