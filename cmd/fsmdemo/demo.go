package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
)

var errDeployFailed = errors.New("deployment rejected by target")

// deployment is the context shared by every state of the pipeline.
type deployment struct {
	mu sync.Mutex

	step     time.Duration
	flaky    int
	failLast bool
	attempts int
}

func (d *deployment) attempt() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts++

	return d.attempts
}

func needsRetry(d *deployment, _ string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.attempts <= d.flaky
}

func (d *deployment) wait(ctx context.Context) error {
	timer := time.NewTimer(d.step)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func pipelineConfig(dep *deployment) fsm.Config[*deployment] {
	cancel := fsm.Transition[*deployment]{Target: "cancelled"}

	return fsm.Config[*deployment]{
		Name:    "deployment",
		Initial: "idle",
		Context: dep,
		States: map[string]fsm.State[*deployment]{
			"idle": {
				On: map[string][]fsm.Transition[*deployment]{
					"START": {{Target: "building"}},
				},
			},
			"building": {
				Job: fsm.JobFunc(func(ctx context.Context, d *deployment) error {
					return d.wait(ctx)
				}),
				Emit: []fsm.Emit[*deployment]{{Event: "BUILT"}},
				On: map[string][]fsm.Transition[*deployment]{
					"BUILT":  {{Target: "testing"}},
					"CANCEL": {cancel},
				},
			},
			"testing": {
				Entry: []fsm.Action[*deployment]{func(d *deployment, _ string) { d.attempt() }},
				Job: fsm.SignalJob(func(ctx context.Context, d *deployment, sig *fsm.Signal) error {
					go func() {
						if err := d.wait(ctx); err != nil {
							sig.Fail(err)

							return
						}

						sig.Done()
					}()

					return nil
				}),
				Emit: []fsm.Emit[*deployment]{
					{Event: "RETRY", Guard: needsRetry},
					{Event: "PASSED"},
				},
				On: map[string][]fsm.Transition[*deployment]{
					"RETRY":  {{Target: "testing"}},
					"PASSED": {{Target: "deploying"}},
					"CANCEL": {cancel},
				},
			},
			"deploying": {
				Job: fsm.JobFunc(func(ctx context.Context, d *deployment) error {
					if err := d.wait(ctx); err != nil {
						return err
					}

					if d.failLast {
						return errDeployFailed
					}

					return nil
				}),
				Emit: []fsm.Emit[*deployment]{{Event: "DEPLOYED"}},
				On: map[string][]fsm.Transition[*deployment]{
					"DEPLOYED": {{Target: "done"}},
					"ROLLBACK": {cancel},
				},
			},
			"done":      {},
			"cancelled": {},
		},
	}
}
