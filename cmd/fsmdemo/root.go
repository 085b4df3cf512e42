package main

import (
	"fmt"
	"log/slog"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	settingsPath string
	log          *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "fsmdemo",
		Short:         "Run and inspect an example state machine",
		Long:          `Runs a small deployment pipeline on the state machine engine, and renders, validates or dumps machine definitions.`,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.ConfigureLogging("fsmdemo", logger.WithOutput(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			opts.log = log

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "",
		"YAML file with engine settings (jobTimeout, stopOnError); FSM_* variables override it")

	cmd.AddCommand(
		newRunCmd(opts),
		newDescribeCmd(),
		newMermaidCmd(),
		newValidateCmd(),
	)

	return cmd
}

// settings layers the defaults, the settings file and the environment.
func (o *rootOptions) settings() (fsm.Settings, error) {
	settings := fsm.DefaultSettings()

	if o.settingsPath != "" {
		loaded, err := fsm.LoadSettingsFile(o.settingsPath)
		if err != nil {
			return fsm.Settings{}, err
		}

		settings = loaded
	}

	settings, err := settings.FromEnv(nil)
	if err != nil {
		return fsm.Settings{}, fmt.Errorf("reading FSM_ environment: %w", err)
	}

	return settings, nil
}
