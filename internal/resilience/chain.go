package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrExhausted is returned when every entry in a [Chain] fails or has an
// open breaker.
var ErrExhausted = errors.New("resilience: all backends failed")

// ChainConfig configures the per-entry breaker created for each backend in a
// [Chain].
type ChainConfig struct {
	Breaker BreakerConfig
}

// chainEntry pairs a backend value with its dedicated breaker.
type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain wraps a primary and zero or more fallback instances of the same
// backend type. When the primary fails (or its breaker is open), the next
// healthy fallback is tried in registration order.
//
// Chain is safe for concurrent use after construction; Add must not race
// with Execute.
type Chain[T any] struct {
	entries []chainEntry[T]
	cfg     ChainConfig
}

// NewChain creates a [Chain] with primary as the first entry. Additional
// fallbacks are registered via [Chain.Add].
func NewChain[T any](primary T, primaryName string, cfg ChainConfig) *Chain[T] {
	c := &Chain[T]{cfg: cfg}
	c.Add(primaryName, primary)
	return c
}

// Add appends a fallback backend. Fallbacks are tried in the order they are
// added, after the primary.
func (c *Chain[T]) Add(name string, backend T) {
	bCfg := c.cfg.Breaker
	bCfg.Name = name
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   backend,
		breaker: NewBreaker(bCfg),
	})
}

// Execute tries fn against each entry in order until one succeeds. Entries
// with an open breaker are skipped. Returns [ErrExhausted] wrapped with the
// last error when every entry fails.
func (c *Chain[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(c, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry in the chain until one
// succeeds, returning the result value. A package-level function because Go
// does not support method-level type parameters.
func ExecuteWithResult[T, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range c.entries {
		entry := &c.entries[i]
		var result R
		err := entry.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrOpen) {
			slog.Debug("skipping backend, circuit open", "backend", entry.name)
		} else {
			slog.Warn("backend failed, trying next", "backend", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}
