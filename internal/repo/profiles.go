package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dramclub/internal/model"
)

var errProfileNotFound = model.NotFound("profile")

const profileColumns = `id, email, COALESCE(full_name, ''), COALESCE(phone, ''), role, COALESCE(password_hash, ''), created_at`

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Role, &p.PasswordHash, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) InsertProfile(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name, phone, role, password_hash)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''))
		RETURNING created_at
	`
	err := r.q(ctx).QueryRowContext(ctx, query, p.ID, p.Email, p.FullName, p.Phone, p.Role, p.PasswordHash).
		Scan(&p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.InvalidInput("a user with email %s already exists", p.Email)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *repository) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.getProfile(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *repository) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.getProfile(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email)
}

func (r *repository) getProfile(ctx context.Context, query, arg string) (*model.Profile, error) {
	p, err := scanProfile(r.q(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, errProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r *repository) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) UpdateProfileRole(ctx context.Context, id string, role model.Role) error {
	err := r.execAffecting(ctx, errProfileNotFound, `UPDATE profiles SET role = $2 WHERE id = $1`, id, role)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to update profile role: %w", err)
	}
	return err
}
