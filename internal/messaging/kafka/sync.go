package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// SnapshotReloader перечитывает данные пользователя в открытых сессиях.
type SnapshotReloader interface {
	Reload(ctx context.Context, userID, originID string) bool
}

// NewSnapshotReloadHandler возвращает обработчик оповещений topic'а пользователей.
// Битые сообщения пропускаются, чтобы не блокировать партицию.
func NewSnapshotReloadHandler(reloader SnapshotReloader, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.New().WithField("component", "kafka-sync")
	}
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		event, err := ParseSnapshotChangedEvent(message)
		if err != nil || event.UserID == "" {
			logger.WithField("offset", message.Offset).Warn("skipping malformed snapshot event")
			return nil
		}
		if event.EventType != EventTypeSnapshotChanged {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reload %s: %w", event.UserID, err)
		}
		if reloader.Reload(ctx, event.UserID, event.OriginID) {
			logger.WithField("user_id", event.UserID).Debug("session reloaded from broadcast")
		}
		return nil
	}
}
