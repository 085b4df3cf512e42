package visualizer

// Options configures the diagram.
type Options struct {
	// ShowActions annotates states with their job mode and action counts.
	ShowActions bool

	// ShowGuards marks guarded transitions in edge labels.
	ShowGuards bool

	// ShowEmits adds a note listing the events a state emits.
	ShowEmits bool

	// Direction controls diagram flow: "TB" (top-bottom) or "LR" (left-right).
	Direction string

	// HighlightPath highlights these states.
	HighlightPath []string
}

// DefaultOptions returns the options used by GenerateMermaid.
func DefaultOptions() Options {
	return Options{
		ShowActions: true,
		ShowGuards:  true,
		ShowEmits:   true,
		Direction:   "TB",
	}
}

func (o Options) WithShowActions(show bool) Options {
	o.ShowActions = show

	return o
}

func (o Options) WithShowGuards(show bool) Options {
	o.ShowGuards = show

	return o
}

func (o Options) WithShowEmits(show bool) Options {
	o.ShowEmits = show

	return o
}

func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}
