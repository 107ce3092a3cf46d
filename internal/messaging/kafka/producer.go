package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Producer представляет Kafka producer для публикации событий
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   log.WithField("component", "kafka-producer"),
	}, nil
}

// PublishEvent сериализует событие в JSON и отправляет его в topic.
func (p *Producer) PublishEvent(topic string, key string, event any) error {
	return p.publish(topic, key, event, nil)
}

// PublishDeadLetter откладывает необработанное сообщение в DLQ. Заголовки повторяют
// поля DeadLetter, чтобы сообщение можно было отфильтровать без разбора тела.
func (p *Producer) PublishDeadLetter(ctx context.Context, letter DeadLetter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(letter.RetryCount))},
		{Key: []byte(HeaderOriginalTopic), Value: []byte(letter.OriginalTopic)},
		{Key: []byte(HeaderErrorMessage), Value: []byte(letter.Error)},
		{Key: []byte(HeaderFailedAt), Value: []byte(letter.FailedAt.Format(time.RFC3339))},
	}
	return p.publish(TopicDeadLetterQueue, letter.OriginalKey, letter, headers)
}

func (p *Producer) publish(topic, key string, payload any, headers []sarama.RecordHeader) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(data),
		Headers:   headers,
		Timestamp: time.Now(),
	}

	fields := log.Fields{"topic": topic, "key": key}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	fields["partition"] = partition
	fields["offset"] = offset
	p.logger.WithFields(fields).Debug("message sent to kafka")
	return nil
}

// PublishOrderEvent отправляет запись истории заказа. Ключ сообщения: id заказа,
// чтобы события одного заказа попадали в одну партицию.
func (p *Producer) PublishOrderEvent(ctx context.Context, userID string, event domain.TimelineEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.PublishEvent(TopicOrderEvents, event.OrderID, NewOrderEvent(userID, event))
}

// NotifySnapshotChanged рассылает оповещение об изменении данных пользователя.
func (p *Producer) NotifySnapshotChanged(ctx context.Context, userID, originID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.PublishEvent(TopicUserEvents, userID, NewSnapshotChangedEvent(userID, originID))
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

var (
	_ domain.OrderEventPublisher = (*Producer)(nil)
	_ domain.ChangeNotifier      = (*Producer)(nil)
	_ DeadLetterPublisher        = (*Producer)(nil)
)
