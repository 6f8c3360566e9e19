package resilience

import (
	"context"

	"go.uber.org/zap"

	"notekeeper/pkg/logger"
)

// Guard объединяет Circuit Breaker и повторы для одной зависимости.
type Guard struct {
	name           string
	circuitBreaker *CircuitBreaker
	retry          *Retry
}

// NewGuard создает обертку отказоустойчивости для зависимости name.
func NewGuard(name string, cb CircuitBreakerConfig, retry RetryConfig) *Guard {
	return &Guard{
		name:           name,
		circuitBreaker: NewCircuitBreaker(name, cb, nil),
		retry:          NewRetry(name, retry),
	}
}

// NewDefaultGuard создает обертку с настройками по умолчанию.
func NewDefaultGuard(name string) *Guard {
	return NewGuard(name, DefaultCircuitBreakerConfig(), DefaultRetryConfig())
}

// Execute выполняет operation через Circuit Breaker с повторами.
// Серия повторов считается одним запросом для Circuit Breaker.
func (g *Guard) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	logger.Log(ctx).Debug(ctx, "executing guarded operation",
		zap.String("dependency", g.name), zap.String("operation", operation))

	return g.circuitBreaker.Execute(ctx, func() error {
		return g.retry.Execute(ctx, func() error { return fn(ctx) })
	})
}

// State возвращает состояние Circuit Breaker зависимости.
func (g *Guard) State() CircuitState {
	return g.circuitBreaker.State()
}
