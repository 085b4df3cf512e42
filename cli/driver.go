// Package cli drives a state machine from the terminal.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/amp-labs/amp-fsm/fsm"
)

const (
	choiceRefresh = "[Refresh]"
	choiceStop    = "[Stop]"
)

// Machine is the part of *fsm.Machine the driver needs.
type Machine interface {
	StateName() string
	Status() fsm.Status
	Events() []string
	Transition(event string) error
	Stop() error
	Done() <-chan struct{}
}

// Driver lets a user send events to a running machine by picking them from a
// menu. The menu is rebuilt after every choice because jobs may have moved the
// machine in the meantime.
type Driver struct {
	Out     io.Writer
	Select  Selector
	Confirm Confirmer
}

// NewDriver returns a Driver bound to the process terminal.
func NewDriver() *Driver {
	return &Driver{
		Out:     os.Stdout,
		Select:  PromptSelect(os.Stdin, os.Stdout),
		Confirm: PromptConfirm(os.Stdin, os.Stdout),
	}
}

// Run loops until the machine stops or the user stops it. Machine errors are
// printed, not returned: they are contained by the machine itself.
func (d *Driver) Run(m Machine) error {
	for {
		select {
		case <-m.Done():
			fmt.Fprint(d.Out, BannerAutoWidth(fmt.Sprintf("Stopped in %q", m.StateName()), AlignCenter))

			return nil
		default:
		}

		events := m.Events()
		items := append(append([]string{}, events...), choiceRefresh, choiceStop)

		idx, err := d.Select(fmt.Sprintf("State %q, send event", m.StateName()), items)
		if err != nil {
			return fmt.Errorf("selecting event: %w", err)
		}

		if idx < 0 || idx >= len(items) {
			return fmt.Errorf("%w: %d", errInvalidChoice, idx)
		}

		switch items[idx] {
		case choiceRefresh:
			continue
		case choiceStop:
			stop, err := d.Confirm("Stop the machine")
			if err != nil {
				return fmt.Errorf("confirming stop: %w", err)
			}

			if stop {
				if err := m.Stop(); err != nil && !errors.Is(err, fsm.ErrAlreadyStopped) {
					return err
				}
			}
		default:
			if err := m.Transition(items[idx]); err != nil {
				fmt.Fprintf(d.Out, "error: %v\n", err)
			}
		}

		fmt.Fprint(d.Out, DividerAutoWidth())
	}
}

var errInvalidChoice = errors.New("invalid choice")
