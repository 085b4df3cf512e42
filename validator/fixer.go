package validator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/amp-fsm/fsm"
)

var (
	// ErrStateNotFound is returned when a fix refers to a state that does not exist.
	ErrStateNotFound = errors.New("state not found")
	// ErrStateAlreadyExists is returned when renaming to an existing state name.
	ErrStateAlreadyExists = errors.New("state already exists")
	// ErrEventNotFound is returned when a fix refers to an event the state does not have.
	ErrEventNotFound = errors.New("event not found")
)

// Fix is an automatic correction of a definition.
type Fix struct {
	Description string
	Apply       func(def *fsm.Definition) error
}

// RemoveState removes a state and every candidate targeting it.
func RemoveState(name string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove state '%s'", name),
		Apply: func(def *fsm.Definition) error {
			idx := stateIndex(def, name)
			if idx < 0 {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, name)
			}

			def.States = slices.Delete(def.States, idx, idx+1)

			for i := range def.States {
				state := &def.States[i]

				for j := range state.On {
					state.On[j].Candidates = slices.DeleteFunc(state.On[j].Candidates, func(c fsm.CandidateDefinition) bool {
						return c.Target == name
					})
				}

				state.On = slices.DeleteFunc(state.On, func(e fsm.EventDefinition) bool {
					return len(e.Candidates) == 0
				})
			}

			return nil
		},
	}
}

// RemoveEmit removes every emit candidate for event from a state.
func RemoveEmit(stateName, event string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove emit '%s' from state '%s'", event, stateName),
		Apply: func(def *fsm.Definition) error {
			idx := stateIndex(def, stateName)
			if idx < 0 {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, stateName)
			}

			state := &def.States[idx]
			before := len(state.Emit)

			state.Emit = slices.DeleteFunc(state.Emit, func(e fsm.EmitDefinition) bool {
				return e.Event == event
			})

			if len(state.Emit) == before {
				return fmt.Errorf("%w: '%s' in state '%s'", ErrEventNotFound, event, stateName)
			}

			return nil
		},
	}
}

// RemoveShadowedCandidates drops every candidate after the first unguarded one.
func RemoveShadowedCandidates(stateName, event string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable candidates for '%s' in state '%s'", event, stateName),
		Apply: func(def *fsm.Definition) error {
			idx := stateIndex(def, stateName)
			if idx < 0 {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, stateName)
			}

			state := &def.States[idx]

			for i := range state.On {
				if state.On[i].Event != event {
					continue
				}

				candidates := state.On[i].Candidates
				for j, c := range candidates {
					if !c.Guarded {
						state.On[i].Candidates = candidates[:j+1]

						break
					}
				}

				return nil
			}

			return fmt.Errorf("%w: '%s' in state '%s'", ErrEventNotFound, event, stateName)
		},
	}
}

// RenameState renames a state everywhere it is referenced.
func RenameState(oldName, newName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Rename state from '%s' to '%s'", oldName, newName),
		Apply: func(def *fsm.Definition) error {
			if stateIndex(def, newName) >= 0 {
				return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, newName)
			}

			idx := stateIndex(def, oldName)
			if idx < 0 {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, oldName)
			}

			def.States[idx].Name = newName

			if def.Initial == oldName {
				def.Initial = newName
			}

			for i := range def.States {
				for j := range def.States[i].On {
					for k := range def.States[i].On[j].Candidates {
						if def.States[i].On[j].Candidates[k].Target == oldName {
							def.States[i].On[j].Candidates[k].Target = newName
						}
					}
				}
			}

			return nil
		},
	}
}

// ApplyFixes applies the fix of every error and warning in result, in order,
// and returns how many were applied. It stops at the first fix that fails.
func ApplyFixes(def *fsm.Definition, result ValidationResult) (int, error) {
	fixes := make([]*Fix, 0, len(result.Errors)+len(result.Warnings))

	for _, err := range result.Errors {
		fixes = append(fixes, err.Fix)
	}

	for _, warn := range result.Warnings {
		fixes = append(fixes, warn.Fix)
	}

	applied := 0

	for _, fix := range fixes {
		if fix == nil || fix.Apply == nil {
			continue
		}

		if err := fix.Apply(def); err != nil {
			return applied, fmt.Errorf("applying fix %q: %w", fix.Description, err)
		}

		applied++
	}

	return applied, nil
}

func stateIndex(def *fsm.Definition, name string) int {
	return slices.IndexFunc(def.States, func(s fsm.StateDefinition) bool {
		return s.Name == name
	})
}
