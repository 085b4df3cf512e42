// Package visualizer renders machine definitions as Mermaid state diagrams.
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Visualizer errors.
var (
	ErrNoInitialState    = errors.New("definition must have an initial state")
	ErrInvalidDirection  = errors.New("direction must be TB, TD, BT, LR or RL")
	ErrUnknownInitialRef = errors.New("initial state is not defined")
)

var directions = map[string]bool{"TB": true, "TD": true, "BT": true, "LR": true, "RL": true}

// GenerateMermaid renders def with the default options.
func GenerateMermaid(def fsm.Definition) (string, error) {
	return GenerateMermaidWithOptions(def, DefaultOptions())
}

// GenerateMermaidFromFile loads a YAML definition and renders it.
func GenerateMermaidFromFile(path string, opts Options) (string, error) {
	def, err := fsm.LoadDefinition(path)
	if err != nil {
		return "", fmt.Errorf("failed to load definition: %w", err)
	}

	return GenerateMermaidWithOptions(def, opts)
}

// GenerateMermaidWithOptions renders def. States appear in the order of
// def.States, which Describe and LoadDefinition keep in natural order.
func GenerateMermaidWithOptions(def fsm.Definition, opts Options) (string, error) {
	if def.Initial == "" {
		return "", ErrNoInitialState
	}

	if _, ok := def.State(def.Initial); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownInitialRef, def.Initial)
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TB"
	}

	if !directions[direction] {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	highlighted := make(map[string]bool, len(opts.HighlightPath))
	for _, state := range opts.HighlightPath {
		highlighted[state] = true
	}

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", def.Initial)

	for _, state := range def.States {
		if opts.ShowActions {
			if details := describeState(state); details != "" {
				fmt.Fprintf(&sb, "    %s: %s\\n%s\n", state.Name, state.Name, details)
			}
		}

		switch {
		case highlighted[state.Name]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", state.Name)
		case state.Terminal:
			fmt.Fprintf(&sb, "    class %s terminalState\n", state.Name)
		case state.Job != "":
			fmt.Fprintf(&sb, "    class %s jobState\n", state.Name)
		}

		for _, event := range state.On {
			for _, candidate := range event.Candidates {
				target, label := candidate.Target, event.Event
				if target == "" {
					target = state.Name
					label += " (in place)"
				}

				if opts.ShowGuards && candidate.Guarded {
					label += " [guarded]"
				}

				fmt.Fprintf(&sb, "    %s --> %s: %s\n", state.Name, target, label)
			}
		}

		if opts.ShowEmits && len(state.Emit) > 0 {
			events := make([]string, len(state.Emit))
			for i, emit := range state.Emit {
				events[i] = emit.Event
			}

			fmt.Fprintf(&sb, "    note right of %s: emits %s\n", state.Name, strings.Join(events, ", "))
		}

		if state.Terminal {
			fmt.Fprintf(&sb, "    %s --> [*]\n", state.Name)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef jobState fill:#e1f5ff,stroke:#01579b,stroke-width:2px\n")
	sb.WriteString("    classDef terminalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")
	sb.WriteString("```\n")

	return sb.String(), nil
}

func describeState(state fsm.StateDefinition) string {
	var parts []string

	if state.Job != "" {
		parts = append(parts, "job "+state.Job)
	}

	if state.EntryActions > 0 {
		parts = append(parts, fmt.Sprintf("entry x%d", state.EntryActions))
	}

	if state.ExitActions > 0 {
		parts = append(parts, fmt.Sprintf("exit x%d", state.ExitActions))
	}

	if len(parts) == 0 {
		return ""
	}

	return "[" + strings.Join(parts, ", ") + "]"
}
