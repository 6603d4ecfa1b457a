package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"storefront/internal/metrics"
	"storefront/internal/usecase"
)

type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// 開いている間は ErrProviderUnavailable を即返す
type BreakerProvider struct {
	next    usecase.CheckoutProvider
	breaker *gobreaker.CircuitBreaker[any]
}

func NewBreakerProvider(next usecase.CheckoutProvider, cfg BreakerConfig, log *zap.Logger) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		// 呼び出し側のキャンセルはプロバイダ障害に数えない
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerProvider{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (p *BreakerProvider) CreateSession(ctx context.Context, in usecase.CheckoutSessionInput) (usecase.CheckoutSession, error) {
	res, err := p.breaker.Execute(func() (any, error) {
		return p.next.CreateSession(ctx, in)
	})
	if err != nil {
		return usecase.CheckoutSession{}, mapBreakerErr(err)
	}
	return res.(usecase.CheckoutSession), nil
}

func (p *BreakerProvider) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	res, err := p.breaker.Execute(func() (any, error) {
		return p.next.SessionPaid(ctx, sessionID)
	})
	if err != nil {
		return false, mapBreakerErr(err)
	}
	return res.(bool), nil
}

func (p *BreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrap(usecase.ErrProviderUnavailable, err.Error())
	}
	return err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
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
