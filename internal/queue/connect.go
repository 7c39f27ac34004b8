package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds connection attempts during startup while RabbitMQ may still be booting
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy retries for roughly three minutes
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  10,
	InitialDelay: 2 * time.Second,
	MaxDelay:     30 * time.Second,
}

// delay returns the exponential backoff before attempt+1
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.InitialDelay * time.Duration(1<<uint(attempt))
	if d <= 0 || d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// ConnectRabbitMQ dials RabbitMQ with exponential backoff
func ConnectRabbitMQ(ctx context.Context, amqpURL string, policy RetryPolicy, logger *zap.Logger) (*RabbitMQQueue, error) {
	return connectWithRetry(ctx, policy, logger, func() (*RabbitMQQueue, error) {
		return NewRabbitMQQueue(amqpURL, logger)
	})
}

func connectWithRetry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, dial func() (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		conn, err := dial()
		if err == nil {
			logger.Info("connected_to_rabbitmq", zap.Int("attempt", attempt+1))
			return conn, nil
		}
		lastErr = err
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.delay(attempt)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", policy.MaxAttempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", policy.MaxAttempts, lastErr)
}
