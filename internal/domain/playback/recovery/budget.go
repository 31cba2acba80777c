// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recovery

import "time"

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Budget bounds consecutive recovery attempts and spaces them with a linear
// backoff (attempt × base). It is not safe for concurrent use.
type Budget struct {
	max      int
	base     time.Duration
	attempts int
}

// NewBudget returns a budget of maxAttempts attempts. maxAttempts <= 0 selects
// DefaultMaxAttempts; a negative base is treated as zero.
func NewBudget(maxAttempts int, base time.Duration) *Budget {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if base < 0 {
		base = 0
	}
	return &Budget{max: maxAttempts, base: base}
}

// Next consumes one attempt. It returns the 1-based attempt number and the
// delay before acting, or ok=false once the budget is exhausted.
func (b *Budget) Next() (attempt int, delay time.Duration, ok bool) {
	if b.attempts >= b.max {
		return b.attempts, 0, false
	}
	b.attempts++
	return b.attempts, time.Duration(b.attempts) * b.base, true
}

// Reset restores the full budget.
func (b *Budget) Reset() { b.attempts = 0 }

// Attempts returns the number of attempts consumed since the last reset.
func (b *Budget) Attempts() int { return b.attempts }

// Max returns the configured number of attempts.
func (b *Budget) Max() int { return b.max }
