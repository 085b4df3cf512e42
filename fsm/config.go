package fsm

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"facette.io/natsort"
	"gopkg.in/yaml.v3"
)

// Guard decides whether a candidate may be taken. A nil guard always passes.
type Guard[C any] func(ctx C, state string) bool

// Action runs synchronously for its side effects.
type Action[C any] func(ctx C, state string)

// Transition is one candidate for an event. An empty Target handles the
// event without leaving the current state.
type Transition[C any] struct {
	Target  string
	Actions []Action[C]
	Guard   Guard[C]
}

// Emit synthesizes Event once the state's job has completed and Guard passes.
type Emit[C any] struct {
	Event string
	Guard Guard[C]
}

// State describes one node of the machine. A state without On accepts no
// external events and is terminal.
type State[C any] struct {
	Entry []Action[C]
	Exit  []Action[C]
	Job   *Job[C]
	On    map[string][]Transition[C]
	Emit  []Emit[C]
}

// Terminal reports whether the state accepts no events.
func (s State[C]) Terminal() bool {
	return len(s.On) == 0
}

// Config is the full description of a machine.
type Config[C any] struct {
	// Name labels logs, metrics and spans. Optional.
	Name    string
	Initial string
	Context C
	States  map[string]State[C]
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the structure of the configuration. Every problem found is
// reported; each one wraps ErrInvalidConfig.
func (c Config[C]) Validate() error {
	if len(c.States) == 0 {
		return invalid("at least one state is required")
	}

	var errs []error

	if c.Initial == "" {
		errs = append(errs, invalid("initial state is required"))
	} else if _, ok := c.States[c.Initial]; !ok {
		errs = append(errs, invalid("initial state %q does not exist", c.Initial))
	}

	for _, name := range sortedKeys(c.States) {
		errs = append(errs, c.validateState(name, c.States[name])...)
	}

	return errors.Join(errs...)
}

func (c Config[C]) validateState(name string, state State[C]) []error {
	var errs []error

	if name == "" {
		errs = append(errs, invalid("state name is required"))
	}

	if state.On != nil && len(state.On) == 0 {
		errs = append(errs, invalid("state %q declares an empty event map", name))
	}

	for _, event := range sortedKeys(state.On) {
		candidates := state.On[event]
		if len(candidates) == 0 {
			errs = append(errs, invalid("state %q has no candidates for event %q", name, event))
		}

		for i, candidate := range candidates {
			if candidate.Target == "" {
				continue
			}

			if _, ok := c.States[candidate.Target]; !ok {
				errs = append(errs, invalid("state %q event %q candidate %d targets unknown state %q",
					name, event, i, candidate.Target))
			}
		}
	}

	if state.Emit != nil && len(state.Emit) == 0 {
		errs = append(errs, invalid("state %q declares an empty emit list", name))
	}

	for i, emit := range state.Emit {
		if emit.Event == "" {
			errs = append(errs, invalid("state %q emit candidate %d has no event", name, i))
		}
	}

	if state.Job != nil {
		if state.Job.Run == nil {
			errs = append(errs, invalid("state %q job has no function", name))
		}

		if !state.Job.Mode.valid() {
			errs = append(errs, invalid("state %q job has unknown completion mode %d", name, state.Job.Mode))
		}
	}

	return errs
}

// Definition is a plain data view of a machine graph. States and events are in
// natural order.
type Definition struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Initial string            `json:"initial"        yaml:"initial"`
	States  []StateDefinition `json:"states"         yaml:"states"`
}

// State looks up a state by name.
func (d Definition) State(name string) (StateDefinition, bool) {
	for _, s := range d.States {
		if s.Name == name {
			return s, true
		}
	}

	return StateDefinition{}, false
}

type StateDefinition struct {
	Name         string            `json:"name"                   yaml:"name"`
	EntryActions int               `json:"entryActions,omitempty" yaml:"entryActions,omitempty"`
	ExitActions  int               `json:"exitActions,omitempty"  yaml:"exitActions,omitempty"`
	Job          string            `json:"job,omitempty"          yaml:"job,omitempty"`
	Terminal     bool              `json:"terminal,omitempty"     yaml:"terminal,omitempty"`
	On           []EventDefinition `json:"on,omitempty"           yaml:"on,omitempty"`
	Emit         []EmitDefinition  `json:"emit,omitempty"         yaml:"emit,omitempty"`
}

// Events returns the names of the events the state accepts.
func (s StateDefinition) Events() []string {
	events := make([]string, 0, len(s.On))
	for _, e := range s.On {
		events = append(events, e.Event)
	}

	return events
}

type EventDefinition struct {
	Event      string                `json:"event"      yaml:"event"`
	Candidates []CandidateDefinition `json:"candidates" yaml:"candidates"`
}

type CandidateDefinition struct {
	Target  string `json:"target,omitempty"  yaml:"target,omitempty"`
	Guarded bool   `json:"guarded,omitempty" yaml:"guarded,omitempty"`
	Actions int    `json:"actions,omitempty" yaml:"actions,omitempty"`
}

type EmitDefinition struct {
	Event   string `json:"event"             yaml:"event"`
	Guarded bool   `json:"guarded,omitempty" yaml:"guarded,omitempty"`
}

// Describe returns the Definition of the configuration.
func (c Config[C]) Describe() Definition {
	def := Definition{
		Name:    c.Name,
		Initial: c.Initial,
		States:  make([]StateDefinition, 0, len(c.States)),
	}

	for _, name := range sortedKeys(c.States) {
		state := c.States[name]

		sd := StateDefinition{
			Name:         name,
			EntryActions: len(state.Entry),
			ExitActions:  len(state.Exit),
			Terminal:     state.Terminal(),
		}

		if state.Job != nil {
			sd.Job = state.Job.Mode.String()
		}

		for _, event := range sortedKeys(state.On) {
			ed := EventDefinition{Event: event}

			for _, candidate := range state.On[event] {
				ed.Candidates = append(ed.Candidates, CandidateDefinition{
					Target:  candidate.Target,
					Guarded: candidate.Guard != nil,
					Actions: len(candidate.Actions),
				})
			}

			sd.On = append(sd.On, ed)
		}

		for _, emit := range state.Emit {
			sd.Emit = append(sd.Emit, EmitDefinition{
				Event:   emit.Event,
				Guarded: emit.Guard != nil,
			})
		}

		def.States = append(def.States, sd)
	}

	return def
}

// ParseDefinition reads a YAML definition, such as one written from Describe.
// States are put in natural order.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parsing definition: %w", err)
	}

	slices.SortStableFunc(def.States, func(a, b StateDefinition) int {
		switch {
		case a.Name == b.Name:
			return 0
		case natsort.Compare(a.Name, b.Name):
			return -1
		default:
			return 1
		}
	})

	return def, nil
}

// LoadDefinition reads a YAML definition file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return Definition{}, fmt.Errorf("reading definition file: %w", err)
	}

	return ParseDefinition(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	natsort.Sort(keys)

	return keys
}
