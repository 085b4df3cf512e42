package main

import (
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/validator"
	"github.com/amp-labs/amp-fsm/visualizer"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errInvalidDefinition = errors.New("definition is invalid")

// definition is the described pipeline, or the YAML file named by args.
func definition(args []string) (fsm.Definition, error) {
	if len(args) == 0 {
		return pipelineConfig(&deployment{}).Describe(), nil
	}

	return fsm.LoadDefinition(args[0])
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the pipeline definition as YAML",
		Long:  `Prints the pipeline's states, events and candidates. The output can be fed back to mermaid and validate.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeYAML(cmd, pipelineConfig(&deployment{}).Describe())
		},
	}
}

func newMermaidCmd() *cobra.Command {
	opts := visualizer.DefaultOptions()

	var plain bool

	cmd := &cobra.Command{
		Use:   "mermaid [definition.yaml]",
		Short: "Render a definition as a Mermaid state diagram",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := definition(args)
			if err != nil {
				return err
			}

			if plain {
				opts = opts.WithShowActions(false).WithShowGuards(false).WithShowEmits(false)
			}

			out, err := visualizer.GenerateMermaidWithOptions(def, opts)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err
		},
	}

	cmd.Flags().StringVar(&opts.Direction, "direction", opts.Direction, "diagram direction (TB or LR)")
	cmd.Flags().StringSliceVar(&opts.HighlightPath, "highlight", nil, "states to highlight")
	cmd.Flags().BoolVar(&plain, "plain", false, "only states and transitions")

	return cmd
}

func newValidateCmd() *cobra.Command {
	var strict, fix bool

	cmd := &cobra.Command{
		Use:   "validate [definition.yaml]",
		Short: "Check a definition for unreachable states and other problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := definition(args)
			if err != nil {
				return err
			}

			var result validator.ValidationResult
			if strict {
				result = validator.ValidateWithRulesStrict(def, validator.DefaultRules())
			} else {
				result = validator.Validate(def)
			}

			fmt.Fprint(cmd.OutOrStdout(), result.String())

			if fix {
				applied, err := validator.ApplyFixes(&def, result)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "\n# %d fix(es) applied\n", applied)

				return writeYAML(cmd, def)
			}

			if !result.Valid {
				return errInvalidDefinition
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	cmd.Flags().BoolVar(&fix, "fix", false, "apply the suggested fixes and print the fixed definition")

	return cmd
}

func writeYAML(cmd *cobra.Command, def fsm.Definition) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2) //nolint:mnd

	if err := enc.Encode(def); err != nil {
		return fmt.Errorf("encoding definition: %w", err)
	}

	return enc.Close()
}
