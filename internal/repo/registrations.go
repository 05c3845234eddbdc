package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dramclub/internal/model"
)

var errRegistrationNotFound = model.NotFound("registration")

const registrationColumns = `id, event_id, full_name, email, phone, ticket_count, payment_status,
	payment_method, membership_id, is_free_with_membership, brought_friend, payment_code, created_at`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg          model.Registration
		membershipID sql.NullString
		paymentCode  sql.NullString
	)
	if err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.FullName,
		&reg.Email,
		&reg.Phone,
		&reg.TicketCount,
		&reg.PaymentStatus,
		&reg.PaymentMethod,
		&membershipID,
		&reg.IsFreeWithMembership,
		&reg.BroughtFriend,
		&paymentCode,
		&reg.CreatedAt,
	); err != nil {
		return nil, err
	}
	reg.MembershipID = stringPtr(membershipID)
	reg.PaymentCode = stringPtr(paymentCode)
	return &reg, nil
}

// InsertRegistration relies on the (event_id, email) unique index as the
// atomic duplicate backstop.
func (r *repository) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	query := `
		INSERT INTO registrations (id, event_id, full_name, email, phone, ticket_count, payment_status,
		                           payment_method, membership_id, is_free_with_membership, brought_friend, payment_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`
	err := r.q(ctx).QueryRowContext(ctx, query,
		reg.ID, reg.EventID, reg.FullName, reg.Email, reg.Phone, reg.TicketCount, reg.PaymentStatus,
		reg.PaymentMethod, nullString(reg.MembershipID), reg.IsFreeWithMembership, reg.BroughtFriend,
		nullString(reg.PaymentCode),
	).Scan(&reg.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateRegistration
		}
		if isCapacityViolation(err) {
			return fmt.Errorf("%w: capacity trigger rejected insert", model.ErrSeatsUnavailable)
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	return r.getRegistration(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
}

// GetRegistrationForUpdate locks the row until the surrounding transaction ends.
func (r *repository) GetRegistrationForUpdate(ctx context.Context, id string) (*model.Registration, error) {
	return r.getRegistration(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) getRegistration(ctx context.Context, query, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, errRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *repository) RegistrationExists(ctx context.Context, eventID, email string) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND lower(email) = lower($2))`,
		eventID, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	return exists, nil
}

func (r *repository) ListTicketCounts(ctx context.Context, eventID string) ([]int, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `SELECT ticket_count FROM registrations WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket counts: %w", err)
	}
	defer rows.Close()

	var counts []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan ticket count: %w", err)
		}
		counts = append(counts, n)
	}
	return counts, rows.Err()
}

func (r *repository) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.q(ctx).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *repository) UpdateRegistrationPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	err := r.execAffecting(ctx, errRegistrationNotFound,
		`UPDATE registrations SET payment_status = $2 WHERE id = $1`, id, status)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to update registration payment status: %w", err)
	}
	return err
}

func (r *repository) DeleteRegistration(ctx context.Context, id string) error {
	err := r.execAffecting(ctx, errRegistrationNotFound, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return err
}
