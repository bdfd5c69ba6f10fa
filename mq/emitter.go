package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"convene/db"
	"convene/models"
	"convene/rdx"

	"github.com/google/uuid"
)

const notificationChannel = "notification-events"

// Emitter publishes meeting-lifecycle notifications to Redis. It
// satisfies scheduler.Notifier: delivery is fire-and-forget, failures are
// logged here and never reach the engine's caller.
type Emitter struct{}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) Notify(ctx context.Context, userID, title, message string) {
	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(n)
	if err != nil {
		log.Printf("[mq] marshal notification: %v", err)
		return
	}

	if err := rdx.Conn.Publish(context.Background(), notificationChannel, data).Err(); err != nil {
		log.Printf("[mq] publish notification for %s: %v", userID, err)
	}
}

// StartNotificationWorker drains the channel and persists notifications so
// the bell feed survives restarts. Runs for the life of the process.
func StartNotificationWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, notificationChannel)
	ch := sub.Channel()

	log.Println("[NotificationWorker] Listening for notification events...")

	for msg := range ch {
		var n models.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			log.Printf("[NotificationWorker] Failed to parse event: %v", err)
			continue
		}
		if _, err := db.NotificationsCollection.InsertOne(ctx, n); err != nil {
			log.Printf("[NotificationWorker] InsertOne error: %v", err)
		}
	}
}
