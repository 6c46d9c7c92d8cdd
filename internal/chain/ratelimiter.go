package chain

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// rateLimiter wraps a token bucket rate limiter for one provider.
type rateLimiter struct {
	limiter *rate.Limiter
	name    string
}

func newRateLimiter(name string, rps int) *rateLimiter {
	slog.Debug("chain client rate limiter created", "provider", name, "rps", rps)
	return &rateLimiter{
		// Burst(1) spreads requests evenly across the second rather than
		// letting them arrive in a clump that a provider might reject.
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		name:    name,
	}
}

func (rl *rateLimiter) wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		slog.Warn("chain client rate limiter wait cancelled", "provider", rl.name, "error", err)
		return err
	}
	return nil
}
