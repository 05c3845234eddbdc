package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dramclub/internal/model"
)

var errEventNotFound = model.NotFound("event")

const eventColumns = `id, title, COALESCE(description, ''), date, start_time, price, max_seats,
	COALESCE(featured_image, ''), COALESCE(created_by::text, ''), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, extra ...any) (*model.Event, error) {
	var e model.Event
	dest := []any{&e.ID, &e.Title, &e.Description, &e.Date, &e.StartTime, &e.Price, &e.MaxSeats,
		&e.FeaturedImage, &e.CreatedBy, &e.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) error {
	query := `
		INSERT INTO events (id, title, description, date, start_time, price, max_seats, featured_image, created_by)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, '')::uuid)
		RETURNING created_at
	`
	err := r.q(ctx).QueryRowContext(ctx, query,
		e.ID, e.Title, e.Description, e.Date, e.StartTime, e.Price, e.MaxSeats, e.FeaturedImage, e.CreatedBy,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *repository) UpdateEvent(ctx context.Context, e *model.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = NULLIF($3, ''), date = $4, start_time = $5,
		    price = $6, max_seats = $7, featured_image = NULLIF($8, '')
		WHERE id = $1
	`
	err := r.execAffecting(ctx, errEventNotFound, query,
		e.ID, e.Title, e.Description, e.Date, e.StartTime, e.Price, e.MaxSeats, e.FeaturedImage,
	)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return err
}

func (r *repository) DeleteEvent(ctx context.Context, id string) error {
	err := r.execAffecting(ctx, errEventNotFound, `DELETE FROM events WHERE id = $1`, id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return err
}

func (r *repository) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	return r.getEvent(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

// GetEventForUpdate locks the event row until the surrounding transaction ends,
// serializing seat accounting for that event.
func (r *repository) GetEventForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return r.getEvent(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) getEvent(ctx context.Context, query, id string) (*model.Event, error) {
	e, err := scanEvent(r.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, errEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

const availabilityQuery = `
	SELECT ` + eventColumns + `,
	       COALESCE((SELECT SUM(ticket_count) FROM registrations r WHERE r.event_id = events.id), 0),
	       (SELECT COUNT(*) FROM registrations r WHERE r.event_id = events.id)
	FROM events
`

func (r *repository) GetEventAvailability(ctx context.Context, id string) (*model.EventAvailability, error) {
	var taken, count int
	e, err := scanEvent(r.q(ctx).QueryRowContext(ctx, availabilityQuery+` WHERE id = $1`, id), &taken, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, errEventNotFound
		}
		return nil, fmt.Errorf("failed to get event availability: %w", err)
	}
	return &model.EventAvailability{Event: *e, TicketsTaken: taken, RegisteredCount: count}, nil
}

// ListEventAvailability lists events dated on or after from (all events when
// from is nil), soonest first.
func (r *repository) ListEventAvailability(ctx context.Context, from *time.Time) ([]model.EventAvailability, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if from != nil {
		rows, err = r.q(ctx).QueryContext(ctx, availabilityQuery+` WHERE date >= $1 ORDER BY date ASC`, *from)
	} else {
		rows, err = r.q(ctx).QueryContext(ctx, availabilityQuery+` ORDER BY date DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.EventAvailability
	for rows.Next() {
		var taken, count int
		e, err := scanEvent(rows, &taken, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, model.EventAvailability{Event: *e, TicketsTaken: taken, RegisteredCount: count})
	}
	return events, rows.Err()
}
