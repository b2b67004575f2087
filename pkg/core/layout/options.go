package layout

// Default energy model parameters. Attraction exponent 1 with repulsion
// exponent 0 is the LinLog model.
const (
	DefaultAttractionExponent = 1.0
	DefaultRepulsionExponent  = 0.0
	DefaultGravity            = 0.05
	DefaultTheta              = 0.05
)

// Options configures a [Minimizer].
type Options struct {
	// AttractionExponent is the exponent of the edge length term.
	// It must be greater than RepulsionExponent.
	AttractionExponent float64

	// RepulsionExponent is the exponent of the pairwise distance term.
	// 0 selects the logarithmic repulsion of the LinLog model.
	RepulsionExponent float64

	// Gravity pulls every node toward the barycenter, which keeps
	// disconnected components from drifting apart indefinitely.
	Gravity float64

	// Theta is the Barnes-Hut opening threshold: a cell of width s at
	// distance d is treated as one body when s/d < Theta. 0 is exact.
	Theta float64

	// Workers selects the update scheme. 0 and 1 move nodes one at a time
	// against a continuously updated tree. Larger values compute all moves
	// of an iteration concurrently against a frozen tree and apply them
	// together. Negative values select the concurrent scheme with
	// GOMAXPROCS workers.
	Workers int
}

// Parallel reports whether o selects the concurrent update scheme. All
// worker counts of that scheme produce identical layouts.
func (o Options) Parallel() bool {
	return o.Workers > 1 || o.Workers < 0
}

// DefaultOptions returns the LinLog defaults with sequential updates.
func DefaultOptions() Options {
	return Options{
		AttractionExponent: DefaultAttractionExponent,
		RepulsionExponent:  DefaultRepulsionExponent,
		Gravity:            DefaultGravity,
		Theta:              DefaultTheta,
	}
}
