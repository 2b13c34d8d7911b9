package metadata

import (
	"context"
	"fmt"
	"time"

	"genretag/internal/logger"
)

// Chain tries genre providers in priority order and returns the first
// non-empty result. Errors and panics from a provider count as "no result".
type Chain struct {
	providers []Provider
	timeout   time.Duration
	logger    *logger.Logger
}

// NewChain creates a Chain over providers. A positive timeout bounds each
// provider call.
func NewChain(providers []Provider, timeout time.Duration, log *logger.Logger) *Chain {
	ps := make([]Provider, len(providers))
	copy(ps, providers)
	return &Chain{providers: ps, timeout: timeout, logger: log}
}

// Names returns the provider names in priority order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve returns the first genre found for key and the name of the
// provider that found it. Both are empty when every provider came up dry.
func (c *Chain) Resolve(ctx context.Context, key TrackKey) (genre, source string) {
	for _, p := range c.providers {
		if ctx.Err() != nil {
			return "", ""
		}

		g, err := c.lookup(ctx, p, key)
		if err != nil {
			c.logger.Debug("[%s] No result for %s: %v", p.Name(), key, err)
			continue
		}
		if g != "" {
			c.logger.Info("  Genre found via %s: %s", p.Name(), g)
			return g, p.Name()
		}
	}
	return "", ""
}

func (c *Chain) lookup(ctx context.Context, p Provider, key TrackKey) (genre string, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			genre = ""
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()

	return p.Lookup(ctx, key)
}
