package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dramclub/internal/clock"
	"dramclub/internal/model"
)

type CatalogStore interface {
	TxRunner
	GetEventForUpdate(ctx context.Context, id string) (*model.Event, error)
	ListTicketCounts(ctx context.Context, eventID string) ([]int, error)
	CreateEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	GetEventAvailability(ctx context.Context, id string) (*model.EventAvailability, error)
	ListEventAvailability(ctx context.Context, from *time.Time) ([]model.EventAvailability, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

type Catalog struct {
	store CatalogStore
	clock clock.Clock
	log   *zerolog.Logger
}

func NewCatalog(store CatalogStore, clk clock.Clock, log *zerolog.Logger) *Catalog {
	return &Catalog{store: store, clock: clk, log: log}
}

type EventInput struct {
	Title         string
	Description   string
	Date          time.Time
	StartTime     string
	Price         int
	MaxSeats      int
	FeaturedImage string
}

func (in EventInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return model.InvalidInput("title is required")
	}
	if in.Date.IsZero() {
		return model.InvalidInput("date is required")
	}
	if in.StartTime != "" {
		if _, err := time.Parse("15:04", in.StartTime); err != nil {
			return model.InvalidInput("start time must be HH:MM")
		}
	}
	if in.Price < 0 {
		return model.InvalidInput("price must not be negative")
	}
	if in.MaxSeats < 1 {
		return model.InvalidInput("max seats must be at least 1")
	}
	return nil
}

func (in EventInput) apply(e *model.Event) {
	e.Title = strings.TrimSpace(in.Title)
	e.Description = strings.TrimSpace(in.Description)
	y, m, d := in.Date.Date()
	e.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	e.StartTime = in.StartTime
	e.Price = in.Price
	e.MaxSeats = in.MaxSeats
	e.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
}

// ListUpcoming returns events dated today or later with their seat counts.
func (c *Catalog) ListUpcoming(ctx context.Context) ([]model.EventAvailability, error) {
	today := clock.Today(c.clock)
	events, err := c.store.ListEventAvailability(ctx, &today)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i] = withAvailability(events[i])
	}
	return events, nil
}

func (c *Catalog) ListAll(ctx context.Context, actor model.Actor) ([]model.EventAvailability, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	events, err := c.store.ListEventAvailability(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i] = withAvailability(events[i])
	}
	return events, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*model.EventAvailability, error) {
	ev, err := c.store.GetEventAvailability(ctx, id)
	if err != nil {
		return nil, err
	}
	out := withAvailability(*ev)
	return &out, nil
}

type EventDetails struct {
	model.EventAvailability
	Registrations []model.Registration `json:"registrations"`
}

// GetDetails is the admin view of an event with its registrations.
func (c *Catalog) GetDetails(ctx context.Context, actor model.Actor, id string) (*EventDetails, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	ev, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	regs, err := c.store.ListRegistrationsByEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EventDetails{EventAvailability: *ev, Registrations: regs}, nil
}

func (c *Catalog) Create(ctx context.Context, actor model.Actor, in EventInput) (*model.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	e := &model.Event{ID: uuid.NewString(), CreatedBy: actor.UserID}
	in.apply(e)
	if err := c.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	c.log.Info().Str("event_id", e.ID).Str("actor", actor.UserID).Msg("event created")
	return e, nil
}

func (c *Catalog) Update(ctx context.Context, actor model.Actor, id string, in EventInput) (*model.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	// Registrations take the same row lock, so seats cannot be sold between
	// the check and the update.
	var e *model.Event
	err := c.store.WithTx(ctx, func(txCtx context.Context) error {
		locked, err := c.store.GetEventForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		counts, err := c.store.ListTicketCounts(txCtx, id)
		if err != nil {
			return err
		}
		taken := 0
		for _, n := range counts {
			taken += n
		}
		if in.MaxSeats < taken {
			return model.InvalidInput("max seats cannot drop below the %d tickets already registered", taken)
		}
		in.apply(locked)
		e = locked
		return c.store.UpdateEvent(txCtx, e)
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("event_id", e.ID).Str("actor", actor.UserID).Msg("event updated")
	return e, nil
}

func (c *Catalog) Delete(ctx context.Context, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := c.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	c.log.Info().Str("event_id", id).Str("actor", actor.UserID).Msg("event deleted")
	return nil
}
