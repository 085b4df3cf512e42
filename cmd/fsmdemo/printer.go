package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/fatih/color"
)

var (
	transitionStyle = color.New(color.FgCyan)
	errorStyle      = color.New(color.FgRed)
	successStyle    = color.New(color.FgGreen)
	warningStyle    = color.New(color.FgYellow)
	faintStyle      = color.New(color.Faint)
)

// printer writes one line per notification. Notifications arrive from job
// goroutines as well as the caller's, so writes are serialized.
func printer(out io.Writer) fsm.Listener[*deployment] {
	var mu sync.Mutex

	return func(n fsm.Notification[*deployment]) {
		mu.Lock()
		defer mu.Unlock()

		switch n.Kind {
		case fsm.KindTransition:
			transitionStyle.Fprintf(out, "%-10s %s --%s--> %s\n", n.Kind, n.Transition.From, n.Transition.Event, n.Transition.To)
		case fsm.KindError:
			errorStyle.Fprintf(out, "%-10s [%s] %s\n", n.Kind, n.Err.Code, n.Err.Message)
		case fsm.KindFinish:
			successStyle.Fprintf(out, "%-10s %s\n", n.Kind, n.State)
		case fsm.KindStop:
			warningStyle.Fprintf(out, "%-10s %s\n", n.Kind, n.State)
		case fsm.KindStart, fsm.KindEntry, fsm.KindJob, fsm.KindPending, fsm.KindExit:
			faintStyle.Fprintf(out, "%-10s %s\n", n.Kind, n.State)
		default:
			fmt.Fprintf(out, "%-10s %s\n", n.Kind, n.State)
		}
	}
}
