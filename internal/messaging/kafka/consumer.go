package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// MessageHandler обрабатывает одно сообщение. Ошибка запускает повтор.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// DeadLetterPublisher принимает сообщения, исчерпавшие попытки обработки.
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, letter DeadLetter) error
}

// ConsumerConfig описывает подписку consumer group.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	Handler MessageHandler
	// DeadLetters может быть nil: тогда сообщение остаётся непомеченным и будет перечитано.
	DeadLetters DeadLetterPublisher
	MaxRetries  int
	RetryDelay  time.Duration
	Logger      *log.Entry
}

// Consumer читает topics через consumer group, повторяет обработку и откладывает
// неудачные сообщения в DLQ.
type Consumer struct {
	group       sarama.ConsumerGroup
	topics      []string
	handler     MessageHandler
	deadLetters DeadLetterPublisher
	maxRetries  int
	retryDelay  time.Duration
	logger      *log.Entry
	wg          sync.WaitGroup
}

// NewConsumer подключается к брокерам и создаёт consumer group.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if cfg.Handler == nil {
		return nil, errors.New("kafka consumer requires a handler")
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	// Оповещения актуальны только для живых сессий, историю не перечитываем.
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return newConsumer(group, cfg), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig) *Consumer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = log.WithField("component", "kafka-consumer")
	}
	return &Consumer{
		group:       group,
		topics:      cfg.Topics,
		handler:     cfg.Handler,
		deadLetters: cfg.DeadLetters,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger,
	}
}

// Start запускает чтение в фоне и возвращается сразу.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		for {
			// Consume возвращается при каждом rebalance.
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает group и дожидается фоновых горутин.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup реализует sarama.ConsumerGroupHandler.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup реализует sarama.ConsumerGroupHandler.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim обрабатывает сообщения одной партиции до закрытия канала или сессии.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			logger := c.logger.WithFields(log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			})
			logger.Debug("received message")

			if err := c.process(session.Context(), message); err != nil {
				logger.WithError(err).Error("message processing failed after all retries")
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// process повторяет обработку с паузой retryDelay. Уже сделанные попытки берутся
// из заголовка x-retry-count. После последней попытки сообщение уходит в DLQ.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	previous := retryCount(message)
	attempts := max(1, c.maxRetries-previous)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = c.handler(ctx, message); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		c.logger.WithError(err).WithFields(log.Fields{
			"topic":       message.Topic,
			"retry_count": previous + attempt,
			"max_retries": c.maxRetries,
		}).Warn("message processing failed, will retry")

		if err := sleepCtx(ctx, c.retryDelay); err != nil {
			return err
		}
	}

	if c.deadLetters == nil {
		return err
	}
	letter := newDeadLetter(message, err, previous+attempts)
	if dlqErr := c.deadLetters.PublishDeadLetter(ctx, letter); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %w", dlqErr)
	}
	c.logger.WithFields(log.Fields{
		"topic":       message.Topic,
		"retry_count": letter.RetryCount,
	}).Warn("message sent to DLQ after max retries")
	return nil
}

func newDeadLetter(message *sarama.ConsumerMessage, cause error, retries int) DeadLetter {
	return DeadLetter{
		OriginalTopic:     message.Topic,
		OriginalPartition: message.Partition,
		OriginalOffset:    message.Offset,
		OriginalKey:       string(message.Key),
		OriginalValue:     string(message.Value),
		Error:             cause.Error(),
		RetryCount:        retries,
		FailedAt:          time.Now().UTC(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryCount читает заголовок x-retry-count; отсутствие или мусор означают 0.
func retryCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if header == nil || string(header.Key) != HeaderRetryCount {
			continue
		}
		if count, err := strconv.Atoi(string(header.Value)); err == nil && count > 0 {
			return count
		}
	}
	return 0
}

// ParseOrderEvent разбирает OrderEvent из тела сообщения.
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	return &event, nil
}

// ParseSnapshotChangedEvent разбирает SnapshotChangedEvent из тела сообщения.
func ParseSnapshotChangedEvent(message *sarama.ConsumerMessage) (*SnapshotChangedEvent, error) {
	var event SnapshotChangedEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot event: %w", err)
	}
	return &event, nil
}
