package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"dramclub/internal/dto"
	"dramclub/internal/model"
	"dramclub/internal/rabbit"
)

// Queue hands notifications to the broker for the consumer worker to send.
type Queue struct {
	pub rabbit.Publisher
	log *zerolog.Logger
}

func NewQueue(pub rabbit.Publisher, log *zerolog.Logger) *Queue {
	return &Queue{pub: pub, log: log}
}

func (q *Queue) Notify(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(dto.NotificationMessage{Notification: n, Attempt: 1})
	if err != nil {
		return fmt.Errorf("%w: encode notification: %v", model.ErrNotificationFailure, err)
	}
	if err := q.pub.Publish(ctx, body, 0); err != nil {
		return fmt.Errorf("%w: %v", model.ErrNotificationFailure, err)
	}
	q.log.Debug().Str("registration_id", n.RegistrationID).Str("kind", string(n.Kind)).Msg("notification queued")
	return nil
}

type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// Direct sends in the caller's goroutine. Used when the broker is disabled.
type Direct struct {
	sender Sender
}

func NewDirect(sender Sender) *Direct {
	return &Direct{sender: sender}
}

func (d *Direct) Notify(ctx context.Context, n model.Notification) error {
	return d.sender.Send(ctx, n)
}
