package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/benvon/toptag/internal/telemetry"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the default queue name
	DefaultQueueName = "toptag_jobs"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "toptag_jobs_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "toptag"
	// DefaultDelayedExchangeName is the default delayed exchange name (requires plugin)
	DefaultDelayedExchangeName = "toptag_delayed"

	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
)

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn                *amqp.Connection
	mu                  sync.Mutex // guards channel
	channel             *amqp.Channel
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
	logger              *zap.Logger
}

// NewRabbitMQQueue connects to RabbitMQ and declares the job topology
func NewRabbitMQQueue(amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queue := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
		logger:              logger,
	}

	if err := queue.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return queue, nil
}

// setup configures exchanges and queues
func (q *RabbitMQQueue) setup() error {
	// Delayed exchange requires the rabbitmq_delayed_message_exchange plugin
	err := q.channel.ExchangeDeclare(
		q.delayedExchangeName,
		"x-delayed-message",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	)
	if err != nil {
		// A failed declare closes the channel
		if q.channel.IsClosed() {
			newCh, openErr := q.conn.Channel()
			if openErr != nil {
				return fmt.Errorf("failed to reopen channel after delayed exchange error: %w", openErr)
			}
			q.channel = newCh
		}
		q.logger.Warn("delayed_exchange_unavailable", zap.Error(err))
	}

	err = q.channel.ExchangeDeclare(
		q.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		q.dlqName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	if err := q.channel.QueueBind(q.dlqName, dlqRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		q.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    q.exchangeName,
			"x-dead-letter-routing-key": dlqRoutingKey,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := q.channel.QueueBind(q.queueName, jobsRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	// ignored when the plugin is not installed
	_ = q.channel.QueueBind(q.queueName, jobsRoutingKey, q.delayedExchangeName, false, nil)

	return nil
}

// Enqueue adds a job to the queue
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	if job.Trace == nil {
		job.Trace = telemetry.InjectMap(ctx)
	}
	publishing, exchange, err := q.buildPublishing(job, time.Now())
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.channel.PublishWithContext(ctx, exchange, jobsRoutingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	q.logger.Debug("job_enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("exchange", exchange),
	)
	return nil
}

// buildPublishing encodes job and chooses the delayed exchange when NotBefore is in the future
func (q *RabbitMQQueue) buildPublishing(job *Job, now time.Time) (amqp.Publishing, string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, "", fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
		Type:         string(job.Type),
	}

	if job.NotAfter != nil {
		if ttl := job.NotAfter.Sub(now); ttl > 0 {
			publishing.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
		}
	}

	exchange := q.exchangeName
	if job.NotBefore != nil {
		if delay := job.NotBefore.Sub(now); delay > 0 {
			exchange = q.delayedExchangeName
			publishing.Headers = amqp.Table{"x-delay": delay.Milliseconds()}
		}
	}
	return publishing, exchange, nil
}

// Consume returns a channel of messages from the queue using async delivery
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	// dedicated channel for consuming
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		q.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() { _ = consumeCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- errors.New("delivery channel closed")
					return
				}

				var job Job
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					// undecodable messages go to the DLQ
					_ = delivery.Nack(false, false)
					q.logger.Warn("job_decode_failed",
						zap.String("message_id", delivery.MessageId),
						zap.Error(err),
					)
					continue
				}

				if job.IsExpired() {
					_ = delivery.Nack(false, false)
					continue
				}
				if !job.ShouldProcess() {
					_ = delivery.Nack(false, true)
					continue
				}

				msg := &Message{
					Job:         &job,
					DeliveryTag: delivery.DeliveryTag,
					Channel:     consumeCh,
				}

				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// PurgeOlderThan drops DLQ messages published more than retention ago. Messages are inspected
// in queue order and the scan stops at the first message young enough to keep.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	purged := 0
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}

		delivery, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			return purged, nil
		}

		if !delivery.Timestamp.IsZero() && delivery.Timestamp.After(cutoff) {
			if err := delivery.Nack(false, true); err != nil {
				return purged, fmt.Errorf("failed to requeue DLQ message: %w", err)
			}
			return purged, nil
		}

		if err := delivery.Ack(false); err != nil {
			return purged, fmt.Errorf("failed to drop DLQ message: %w", err)
		}
		purged++
	}
}

// HealthCheck verifies the queue connection is healthy
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.channel == nil || q.channel.IsClosed() {
		return errors.New("rabbitmq channel closed")
	}
	if _, err := q.channel.QueueDeclarePassive(q.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue check failed: %w", err)
	}
	return nil
}

// Close closes the queue connection
func (q *RabbitMQQueue) Close() error {
	var err error
	q.mu.Lock()
	if q.channel != nil {
		err = q.channel.Close()
	}
	q.mu.Unlock()
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
