package resilience

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// NewBreaker opens after maxFailures consecutive failures and probes again
// after timeout. onChange may be nil.
func NewBreaker(name string, maxFailures int, timeout time.Duration, log *zap.Logger, onChange func(name string, to gobreaker.State)) *gobreaker.CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
			if onChange != nil {
				onChange(name, to)
			}
		},
	}
	return gobreaker.NewCircuitBreaker(st)
}

// IsOpen reports whether err came from a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
