package worker

import (
	"math"
	"math/rand/v2"
	"time"

	"tourdesk/internal/config"
)

// RetryPolicy spaces out attempts at a sync task that the spreadsheet keeps
// rejecting. Delays grow by Multiplier from InitialDelay up to MaxDelay, and
// Jitter shaves a random fraction off each delay so tasks that failed
// together do not retry together.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64

	// random returns a value in [0, 1); nil uses math/rand.
	random func() float64
}

// RetryPolicyFromConfig maps the sync section of the config file.
func RetryPolicyFromConfig(cfg config.SyncConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Jitter:       cfg.Jitter,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 2 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = time.Minute
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	p.Jitter = math.Min(math.Max(p.Jitter, 0), 1)
	return p
}

// Exhausted reports whether a task that has failed attempt times should be
// dead-lettered instead of retried.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Backoff returns the wait before the retry that follows failed attempt
// number attempt (1-based). The result lies in [d*(1-Jitter), d] where d is
// the capped exponential delay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := math.Min(
		float64(p.InitialDelay)*math.Pow(p.Multiplier, float64(attempt-1)),
		float64(p.MaxDelay),
	)
	if p.Jitter > 0 {
		random := p.random
		if random == nil {
			random = rand.Float64
		}
		delay -= delay * p.Jitter * random()
	}
	if delay < float64(time.Millisecond) {
		return time.Millisecond
	}
	return time.Duration(delay)
}
