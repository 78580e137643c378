package clients

import (
	"errors"
	"net/http"
	"time"

	"go-space/internal/domain"
	"go-space/internal/logging"
	"go-space/internal/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Breaker guards one provider with a circuit breaker.
// Client errors (4xx, including 429) do not count as failures: the provider is up.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[[]byte]
	name string
}

// NewBreaker creates a breaker that opens after 5 consecutive failures
// and probes again after 30 seconds.
func NewBreaker(name string) *Breaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &Breaker{cb: cb, name: name}
}

// Execute runs fn through the breaker
func (b *Breaker) Execute(fn func() ([]byte, error)) ([]byte, error) {
	body, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &domain.UpstreamError{
			Provider: b.name,
			Status:   http.StatusServiceUnavailable,
			Body:     "circuit open, provider temporarily unavailable",
			Err:      err,
		}
	}
	return body, err
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var up *domain.UpstreamError
	if errors.As(err, &up) && up.Status >= 400 && up.Status < 500 {
		return true
	}
	return false
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
