package visualizer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct{}

func orderDefinition() fsm.Definition {
	paid := func(*order, string) bool { return true }
	log := func(*order, string) {}

	cfg := fsm.Config[*order]{
		Name:    "order",
		Initial: "cart",
		States: map[string]fsm.State[*order]{
			"cart": {
				Exit: []fsm.Action[*order]{log},
				On: map[string][]fsm.Transition[*order]{
					"CHECKOUT": {{Target: "paying", Guard: paid}, {Target: "cart"}},
					"TOUCH":    {{}},
				},
			},
			"paying": {
				Entry: []fsm.Action[*order]{log, log},
				Job:   fsm.JobFunc(func(context.Context, *order) error { return nil }),
				Emit:  []fsm.Emit[*order]{{Event: "PAID"}},
				On:    map[string][]fsm.Transition[*order]{"PAID": {{Target: "shipped"}}},
			},
			"shipped": {},
		},
	}

	return cfg.Describe()
}

func TestGenerateMermaid(t *testing.T) {
	t.Parallel()

	out, err := GenerateMermaid(orderDefinition())
	require.NoError(t, err)

	for _, want := range []string{
		"```mermaid\nstateDiagram-v2\n    direction TB\n",
		"[*] --> cart",
		"cart --> paying: CHECKOUT [guarded]",
		"cart --> cart: CHECKOUT\n",
		"cart --> cart: TOUCH (in place)",
		"cart: cart\\n[exit x1]",
		"paying: paying\\n[job on_return, entry x2]",
		"class paying jobState",
		"note right of paying: emits PAID",
		"paying --> shipped: PAID",
		"class shipped terminalState",
		"shipped --> [*]",
		"classDef highlighted",
	} {
		assert.Contains(t, out, want)
	}

	assert.Less(t, strings.Index(out, "cart --> paying"), strings.Index(out, "paying --> shipped"))
}

func TestGenerateMermaidWithOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions().
		WithDirection("LR").
		WithShowActions(false).
		WithShowGuards(false).
		WithShowEmits(false).
		WithHighlightPath([]string{"cart", "shipped"})

	out, err := GenerateMermaidWithOptions(orderDefinition(), opts)
	require.NoError(t, err)

	assert.Contains(t, out, "direction LR")
	assert.Contains(t, out, "class cart highlighted")
	assert.Contains(t, out, "class shipped highlighted")
	assert.Contains(t, out, "cart --> paying: CHECKOUT\n")
	assert.NotContains(t, out, "[guarded]")
	assert.NotContains(t, out, "note right of")
	assert.NotContains(t, out, "[job")
}

func TestGenerateMermaid_Errors(t *testing.T) {
	t.Parallel()

	_, err := GenerateMermaid(fsm.Definition{})
	require.ErrorIs(t, err, ErrNoInitialState)

	_, err = GenerateMermaid(fsm.Definition{Initial: "ghost"})
	require.ErrorIs(t, err, ErrUnknownInitialRef)

	_, err = GenerateMermaidWithOptions(orderDefinition(), DefaultOptions().WithDirection("UP"))
	require.ErrorIs(t, err, ErrInvalidDirection)
}

func TestGenerateMermaidFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "def.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
initial: idle
states:
  - name: idle
    on:
      - event: GO
        candidates:
          - target: done
  - name: done
    terminal: true
`), 0o600))

	out, err := GenerateMermaidFromFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out, "idle --> done: GO")

	_, err = GenerateMermaidFromFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultOptions())
	require.ErrorIs(t, err, os.ErrNotExist)
}
