package scheduler

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy описывает ограниченный экспоненциальный повтор операции.
// Политика вынесена в явный объект, чтобы путь отката при исчерпании
// попыток (отмена попытки теста) тестировался отдельно от самого повтора.
type RetryPolicy struct {
	// MaxAttempts общее количество попыток, включая первую
	MaxAttempts int
	// BaseDelay задержка перед второй попыткой
	BaseDelay time.Duration
	// MaxDelay потолок задержки между попытками
	MaxDelay time.Duration
}

// DefaultRetryPolicy возвращает политику по умолчанию: 3 попытки,
// задержки 4s -> 8s с потолком 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// delayFor возвращает задержку перед попыткой attempt (нумерация с 1,
// перед первой попыткой задержки нет)
func (p RetryPolicy) delayFor(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := p.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do выполняет операцию с повторами по политике. Возвращает nil после
// первого успеха либо последнюю ошибку после исчерпания попыток.
// Отмена контекста прерывает ожидание между попытками.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := p.delayFor(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}
