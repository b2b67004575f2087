package cache

// LayoutKeyOpts are the options that change the result of a layout run.
// Runtime-only settings such as the logger are excluded. Parallel runs
// give the same result for every worker count but differ from sequential
// runs, so only that distinction is part of the key.
type LayoutKeyOpts struct {
	Iterations         int     `json:"iterations"`
	Theta              float64 `json:"theta"`
	AttractionExponent float64 `json:"attraction_exponent"`
	RepulsionExponent  float64 `json:"repulsion_exponent"`
	Gravity            float64 `json:"gravity"`
	Dimensions         int     `json:"dimensions"`
	Seed               uint64  `json:"seed"`
	MultiLevel         bool    `json:"multi_level"`
	IgnoreLoops        bool    `json:"ignore_loops"`
	Parallel           bool    `json:"parallel"`
}

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey returns the key for a layout of the graph with the given
	// content hash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// DefaultKeyer produces keys of the form "layout:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey hashes the graph hash together with opts.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// PrefixKeyer prepends a fixed prefix to every key of an inner keyer, which
// lets several deployments share one Redis or Mongo instance.
type PrefixKeyer struct {
	inner  Keyer
	prefix string
}

// NewPrefixKeyer wraps inner. A nil inner uses [DefaultKeyer].
func NewPrefixKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &PrefixKeyer{inner: inner, prefix: prefix}
}

// LayoutKey returns the prefixed inner key.
func (k *PrefixKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(graphHash, opts)
}
