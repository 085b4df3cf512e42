//nolint:lll // Long validation messages
package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule checks a definition for one kind of problem.
type Rule interface {
	Name() string
	Severity() Severity
	Check(def fsm.Definition) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&unreachableStateRule{},
		&emitWithoutHandlerRule{},
		&emitCycleRule{},
		&shadowedCandidateRule{},
		&noTerminalStateRule{},
		&namingConventionRule{},
	}
}

// unreachableStateRule finds states no chain of transitions leads to.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string       { return "UnreachableState" }
func (r *unreachableStateRule) Severity() Severity { return SeverityError }

func (r *unreachableStateRule) Check(def fsm.Definition) RuleResult {
	var errs []ValidationError

	reachable := reachableStates(def)

	for _, state := range def.States {
		if reachable[state.Name] {
			continue
		}

		errs = append(errs, ValidationError{
			Code:     "UNREACHABLE_STATE",
			Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", state.Name, def.Initial),
			Location: Location{State: state.Name},
			Fix:      RemoveState(state.Name),
		})
	}

	return RuleResult{Errors: errs}
}

// emitWithoutHandlerRule finds emitted events the emitting state does not
// accept. Emitting one always raises an error at runtime.
type emitWithoutHandlerRule struct{}

func (r *emitWithoutHandlerRule) Name() string       { return "EmitWithoutHandler" }
func (r *emitWithoutHandlerRule) Severity() Severity { return SeverityError }

func (r *emitWithoutHandlerRule) Check(def fsm.Definition) RuleResult {
	var errs []ValidationError

	for _, state := range def.States {
		accepted := make(map[string]bool, len(state.On))
		for _, event := range state.On {
			accepted[event.Event] = true
		}

		for _, emit := range state.Emit {
			if accepted[emit.Event] {
				continue
			}

			errs = append(errs, ValidationError{
				Code:     "EMIT_WITHOUT_HANDLER",
				Message:  fmt.Sprintf("State '%s' emits '%s' but has no transition for it", state.Name, emit.Event),
				Location: Location{State: state.Name, Event: emit.Event},
				Fix:      RemoveEmit(state.Name, emit.Event),
			})
		}
	}

	return RuleResult{Errors: errs}
}

// emitCycleRule finds states without a job that emit into each other. Such a
// cycle never waits for anything, and the machine cuts it off with a runtime
// error. A cycle that depends on guards or later candidates is only a warning.
type emitCycleRule struct{}

func (r *emitCycleRule) Name() string       { return "EmitCycleWithoutJob" }
func (r *emitCycleRule) Severity() Severity { return SeverityError }

func (r *emitCycleRule) Check(def fsm.Definition) RuleResult {
	var result RuleResult

	order := make(map[string]int, len(def.States))
	for i, state := range def.States {
		order[state.Name] = i
	}

	for i, state := range def.States {
		// Cycles through an earlier state were reported from there.
		search := emitCycleSearch{def: def, order: order, first: i, visited: map[string]bool{state.Name: true}}

		steps, certain, found := search.walk(state.Name, state.Name, true)
		if !found {
			continue
		}

		message := fmt.Sprintf("States without a job emit in a cycle: %s%s", state.Name, strings.Join(steps, ""))
		location := Location{State: state.Name}

		if certain {
			result.Errors = append(result.Errors, ValidationError{
				Code:     "EMIT_CYCLE_WITHOUT_JOB",
				Message:  message,
				Location: location,
			})
		} else {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Code:     "EMIT_CYCLE_WITHOUT_JOB",
				Message:  message + " unless a guard breaks it",
				Location: location,
			})
		}
	}

	return result
}

type emitEdge struct {
	event   string
	target  string
	certain bool
}

// emitEdges lists where the emits of a state without a job can lead. Edges the
// machine always takes come first.
func emitEdges(state fsm.StateDefinition) []emitEdge {
	if state.Job != "" {
		return nil
	}

	var certain, possible []emitEdge

	for i, emit := range state.Emit {
		for _, event := range state.On {
			if event.Event != emit.Event {
				continue
			}

			for j, candidate := range event.Candidates {
				if candidate.Target == "" {
					continue
				}

				edge := emitEdge{event: emit.Event, target: candidate.Target}
				if i == 0 && j == 0 && !emit.Guarded && !candidate.Guarded {
					edge.certain = true
					certain = append(certain, edge)
				} else {
					possible = append(possible, edge)
				}
			}
		}
	}

	return append(certain, possible...)
}

type emitCycleSearch struct {
	def     fsm.Definition
	order   map[string]int
	first   int
	visited map[string]bool
}

func (s *emitCycleSearch) walk(start, current string, certain bool) ([]string, bool, bool) {
	state, ok := s.def.State(current)
	if !ok {
		return nil, false, false
	}

	for _, edge := range emitEdges(state) {
		idx, known := s.order[edge.target]
		if !known || idx < s.first {
			continue
		}

		step := fmt.Sprintf(" --%s--> %s", edge.event, edge.target)

		if edge.target == start {
			return []string{step}, certain && edge.certain, true
		}

		if s.visited[edge.target] {
			continue
		}

		s.visited[edge.target] = true

		if steps, sure, found := s.walk(start, edge.target, certain && edge.certain); found {
			return append([]string{step}, steps...), sure, true
		}
	}

	return nil, false, false
}

// shadowedCandidateRule warns about candidates listed after an unguarded one.
// The first passing candidate wins, so they are never chosen.
type shadowedCandidateRule struct{}

func (r *shadowedCandidateRule) Name() string       { return "ShadowedCandidate" }
func (r *shadowedCandidateRule) Severity() Severity { return SeverityWarning }

func (r *shadowedCandidateRule) Check(def fsm.Definition) RuleResult {
	var warnings []ValidationWarning

	for _, state := range def.States {
		for _, event := range state.On {
			for i, candidate := range event.Candidates {
				if candidate.Guarded || i == len(event.Candidates)-1 {
					continue
				}

				warnings = append(warnings, ValidationWarning{
					Code: "SHADOWED_CANDIDATE",
					Message: fmt.Sprintf("Event '%s' in state '%s' has %d candidate(s) after unguarded candidate %d that can never be chosen",
						event.Event, state.Name, len(event.Candidates)-i-1, i),
					Location: Location{State: state.Name, Event: event.Event},
					Fix:      RemoveShadowedCandidates(state.Name, event.Event),
				})

				break
			}
		}

		for i, emit := range state.Emit {
			if emit.Guarded || i == len(state.Emit)-1 {
				continue
			}

			warnings = append(warnings, ValidationWarning{
				Code: "SHADOWED_CANDIDATE",
				Message: fmt.Sprintf("State '%s' has %d emit candidate(s) after unguarded emit '%s' that can never be chosen",
					state.Name, len(state.Emit)-i-1, emit.Event),
				Location: Location{State: state.Name, Event: emit.Event},
			})

			break
		}
	}

	return RuleResult{Warnings: warnings}
}

// noTerminalStateRule warns when no terminal state is reachable, so the
// machine only ever ends by being stopped.
type noTerminalStateRule struct{}

func (r *noTerminalStateRule) Name() string       { return "NoTerminalState" }
func (r *noTerminalStateRule) Severity() Severity { return SeverityWarning }

func (r *noTerminalStateRule) Check(def fsm.Definition) RuleResult {
	reachable := reachableStates(def)

	for _, state := range def.States {
		if state.Terminal && reachable[state.Name] {
			return RuleResult{}
		}
	}

	return RuleResult{Warnings: []ValidationWarning{{
		Code:    "NO_TERMINAL_STATE",
		Message: fmt.Sprintf("No terminal state is reachable from '%s'; the machine only ends when stopped", def.Initial),
	}}}
}

// namingConventionRule warns about state names that are not snake_case.
type namingConventionRule struct{}

func (r *namingConventionRule) Name() string       { return "NamingConvention" }
func (r *namingConventionRule) Severity() Severity { return SeverityWarning }

func (r *namingConventionRule) Check(def fsm.Definition) RuleResult {
	var warnings []ValidationWarning

	for _, state := range def.States {
		if isSnakeCase(state.Name) {
			continue
		}

		suggested := toSnakeCase(state.Name)

		warnings = append(warnings, ValidationWarning{
			Code:     "NAMING_CONVENTION",
			Message:  fmt.Sprintf("State '%s' should use snake_case naming (suggested: '%s')", state.Name, suggested),
			Location: Location{State: state.Name},
			Fix:      RenameState(state.Name, suggested),
		})
	}

	return RuleResult{Warnings: warnings}
}

func reachableStates(def fsm.Definition) map[string]bool {
	reachable := map[string]bool{def.Initial: true}
	queue := []string{def.Initial}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		state, ok := def.State(current)
		if !ok {
			continue
		}

		for _, event := range state.On {
			for _, candidate := range event.Candidates {
				if candidate.Target == "" || reachable[candidate.Target] {
					continue
				}

				reachable[candidate.Target] = true
				queue = append(queue, candidate.Target)
			}
		}
	}

	return reachable
}

func isSnakeCase(s string) bool {
	return s == toSnakeCase(s)
}

func toSnakeCase(s string) string {
	var sb strings.Builder

	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				sb.WriteRune('_')
			}

			sb.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == ' ':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
