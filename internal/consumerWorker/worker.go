package consumerWorker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"dramclub/internal/dto"
	"dramclub/internal/notifier"
	"dramclub/internal/rabbit"
)

type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Reader consumes queued notifications and mails them. A failed send is
// republished with a delay until MaxAttempts is reached.
type Reader struct {
	consumer  rabbit.Consumer
	publisher rabbit.Publisher
	sender    notifier.Sender
	opts      Options
	log       *zerolog.Logger
	done      chan struct{}
	cancel    context.CancelFunc
}

func NewReader(consumer rabbit.Consumer, publisher rabbit.Publisher, sender notifier.Sender, opts Options, log *zerolog.Logger) *Reader {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Reader{
		consumer:  consumer,
		publisher: publisher,
		sender:    sender,
		opts:      opts,
		log:       log,
		done:      make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.log.Info().Msg("notification reader started")

	go func() {
		defer close(r.done)

		if err := r.consumer.Consume(cctx, func(body []byte) error { return r.Handle(cctx, body) }); err != nil {
			r.log.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		r.log.Info().Msg("notification reader stopped")
	}()
}

// Handle processes one delivery. It returns an error only for payloads that
// can never succeed; send failures are retried through the delayed exchange.
func (r *Reader) Handle(ctx context.Context, body []byte) error {
	var msg dto.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		r.log.Error().Err(err).Str("body", string(body)).Msg("failed to unmarshal notification")
		return err
	}

	logger := r.log.With().
		Str("registration_id", msg.Notification.RegistrationID).
		Str("kind", string(msg.Notification.Kind)).
		Int("attempt", msg.Attempt).
		Logger()

	err := r.sender.Send(ctx, msg.Notification)
	if err == nil {
		return nil
	}

	if msg.Attempt >= r.opts.MaxAttempts {
		logger.Error().Err(err).Msg("giving up on notification")
		return nil
	}

	msg.Attempt++
	retry, mErr := json.Marshal(msg)
	if mErr != nil {
		return mErr
	}
	delay := r.opts.RetryDelay * time.Duration(msg.Attempt-1)
	if pErr := r.publisher.Publish(ctx, retry, delay); pErr != nil {
		logger.Error().Err(pErr).Msg("failed to schedule notification retry")
		return pErr
	}
	logger.Warn().Err(err).Dur("delay", delay).Msg("notification send failed, retry scheduled")
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
