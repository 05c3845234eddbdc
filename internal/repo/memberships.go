package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dramclub/internal/model"
)

var errMembershipNotFound = model.NotFound("membership")

const membershipColumns = `id, full_name, email, COALESCE(phone, ''), start_date, end_date, events_used,
	friend_used, payment_status, COALESCE(payment_method, ''), created_at`

func scanMembership(row rowScanner) (*model.Membership, error) {
	var m model.Membership
	if err := row.Scan(
		&m.ID,
		&m.FullName,
		&m.Email,
		&m.Phone,
		&m.StartDate,
		&m.EndDate,
		&m.EventsUsed,
		&m.FriendUsed,
		&m.PaymentStatus,
		&m.PaymentMethod,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMembership maps the unique email index to ErrDuplicateMembership so
// concurrent purchases cannot both succeed.
func (r *repository) InsertMembership(ctx context.Context, m *model.Membership) error {
	query := `
		INSERT INTO memberships (id, full_name, email, phone, start_date, end_date, events_used, friend_used,
		                         payment_status, payment_method)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := r.q(ctx).QueryRowContext(ctx, query,
		m.ID, m.FullName, m.Email, m.Phone, m.StartDate, m.EndDate, m.EventsUsed, m.FriendUsed,
		m.PaymentStatus, m.PaymentMethod,
	).Scan(&m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateMembership
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *repository) GetMembershipByID(ctx context.Context, id string) (*model.Membership, error) {
	return r.getMembership(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id)
}

func (r *repository) GetMembershipForUpdate(ctx context.Context, id string) (*model.Membership, error) {
	return r.getMembership(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) getMembership(ctx context.Context, query, id string) (*model.Membership, error) {
	m, err := scanMembership(r.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, errMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// FindMembershipByEmail returns any membership for email regardless of status
// or date range, or nil when there is none.
func (r *repository) FindMembershipByEmail(ctx context.Context, email string) (*model.Membership, error) {
	m, err := scanMembership(r.q(ctx).QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE lower(email) = lower($1) ORDER BY end_date DESC LIMIT 1`,
		email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return m, nil
}

// FindActiveMembership returns the paid, unexpired membership for email that
// still has free events left, latest end date first, or nil.
func (r *repository) FindActiveMembership(ctx context.Context, email string, today time.Time, freeEvents int) (*model.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE lower(email) = lower($1)
		  AND payment_status = 'paid'
		  AND end_date >= $2
		  AND events_used < $3
		ORDER BY end_date DESC
		LIMIT 1
	`
	m, err := scanMembership(r.q(ctx).QueryRowContext(ctx, query, email, today, freeEvents))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active membership: %w", err)
	}
	return m, nil
}

// IncrementEventsUsed consumes one free event only while events_used is below
// limit. A guard miss on an existing row reports ErrBenefitExhausted.
func (r *repository) IncrementEventsUsed(ctx context.Context, id string, limit int) error {
	err := r.execAffecting(ctx, errGuardMiss,
		`UPDATE memberships SET events_used = events_used + 1 WHERE id = $1 AND events_used < $2`, id, limit)
	if errors.Is(err, errGuardMiss) {
		return r.guardMiss(ctx, id, model.ErrBenefitExhausted)
	}
	if err != nil {
		return fmt.Errorf("failed to increment events used: %w", err)
	}
	return nil
}

// MarkFriendUsed flips friend_used from false to true exactly once.
func (r *repository) MarkFriendUsed(ctx context.Context, id string) error {
	err := r.execAffecting(ctx, errGuardMiss,
		`UPDATE memberships SET friend_used = TRUE WHERE id = $1 AND friend_used = FALSE`, id)
	if errors.Is(err, errGuardMiss) {
		return r.guardMiss(ctx, id, model.ErrFriendBenefitUnavailable)
	}
	if err != nil {
		return fmt.Errorf("failed to mark friend used: %w", err)
	}
	return nil
}

var errGuardMiss = errors.New("conditional update matched no rows")

func (r *repository) guardMiss(ctx context.Context, id string, exhausted error) error {
	if _, err := r.GetMembershipByID(ctx, id); err != nil {
		return err
	}
	return exhausted
}

func (r *repository) ListMemberships(ctx context.Context) ([]model.Membership, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `SELECT `+membershipColumns+` FROM memberships ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	defer rows.Close()

	var out []model.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *repository) UpdateMembershipPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	err := r.execAffecting(ctx, errMembershipNotFound,
		`UPDATE memberships SET payment_status = $2 WHERE id = $1`, id, status)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to update membership payment status: %w", err)
	}
	return err
}

func (r *repository) DeleteMembership(ctx context.Context, id string) error {
	err := r.execAffecting(ctx, errMembershipNotFound, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return err
}
