package core

// ExecConfig holds the resolved execution options for a single query.
//
// The zero value is not meaningful; build one with NewExecConfig so the
// defaults (pooled execution, results fetched) apply.
type ExecConfig struct {
	// InPool selects execution on a pooled connection. When false, the
	// engine dials a dedicated connection for this query and closes it
	// afterwards. Ignored while a transaction is active in the context.
	InPool bool
	// FetchResults selects whether result rows are retrieved. When
	// false, Execute returns nil rows.
	FetchResults bool
}

// ExecOption customizes a single Execute call.
type ExecOption func(*ExecConfig)

// NewExecConfig resolves the given options over the defaults.
func NewExecConfig(opts ...ExecOption) ExecConfig {
	cfg := ExecConfig{InPool: true, FetchResults: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Options re-expresses the config as the option list producing it.
func (c ExecConfig) Options() []ExecOption {
	var opts []ExecOption
	if !c.InPool {
		opts = append(opts, OutsidePool())
	}
	if !c.FetchResults {
		opts = append(opts, WithoutResults())
	}
	return opts
}

// WithoutResults skips result retrieval; Execute returns nil rows.
func WithoutResults() ExecOption {
	return func(c *ExecConfig) { c.FetchResults = false }
}

// OutsidePool executes on a dedicated, non-pooled connection.
func OutsidePool() ExecOption {
	return func(c *ExecConfig) { c.InPool = false }
}
