package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const syncGroupPrefix = "storefront-sync-"

// splitBrokers разбирает список брокеров через запятую.
func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// startSnapshotConsumer подписывает экземпляр на оповещения об изменении данных пользователей.
// У каждого экземпляра своя consumer group: оповещение должны получить все.
func startSnapshotConsumer(ctx context.Context, brokers string, dlq *kafka.Producer, reloader kafka.SnapshotReloader, logger *log.Entry) (*kafka.Consumer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	cfg := kafka.ConsumerConfig{
		Brokers: brokerList,
		GroupID: syncGroupPrefix + uuid.NewString(),
		Topics:  []string{kafka.TopicUserEvents},
		Handler: kafka.NewSnapshotReloadHandler(reloader, logger.WithField("component", "kafka-sync")),
		Logger:  logger.WithField("component", "kafka-consumer"),
	}
	if dlq != nil {
		cfg.DeadLetters = dlq
	}
	consumer, err := kafka.NewConsumer(cfg)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, cross-instance sync disabled")
		return nil, err
	}
	if err := consumer.Start(ctx); err != nil {
		return nil, err
	}
	logger.WithField("group_id", cfg.GroupID).Info("snapshot sync consumer started")
	return consumer, nil
}

// closeKafka закрывает consumer и producer, если они созданы.
func closeKafka(consumer *kafka.Consumer, producer *kafka.Producer, logger *log.Entry) {
	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop kafka consumer")
		}
	}
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
