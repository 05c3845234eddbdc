package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"dramclub/internal/model"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetEventForUpdate(ctx context.Context, id string) (*model.Event, error)
	GetEventAvailability(ctx context.Context, id string) (*model.EventAvailability, error)
	ListEventAvailability(ctx context.Context, from *time.Time) ([]model.EventAvailability, error)

	InsertRegistration(ctx context.Context, reg *model.Registration) error
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)
	GetRegistrationForUpdate(ctx context.Context, id string) (*model.Registration, error)
	RegistrationExists(ctx context.Context, eventID, email string) (bool, error)
	ListTicketCounts(ctx context.Context, eventID string) ([]int, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	UpdateRegistrationPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error
	DeleteRegistration(ctx context.Context, id string) error

	InsertMembership(ctx context.Context, m *model.Membership) error
	GetMembershipByID(ctx context.Context, id string) (*model.Membership, error)
	GetMembershipForUpdate(ctx context.Context, id string) (*model.Membership, error)
	FindMembershipByEmail(ctx context.Context, email string) (*model.Membership, error)
	FindActiveMembership(ctx context.Context, email string, today time.Time, freeEvents int) (*model.Membership, error)
	IncrementEventsUsed(ctx context.Context, id string, limit int) error
	MarkFriendUsed(ctx context.Context, id string) error
	ListMemberships(ctx context.Context) ([]model.Membership, error)
	UpdateMembershipPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error
	DeleteMembership(ctx context.Context, id string) error

	InsertProfile(ctx context.Context, p *model.Profile) error
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	UpdateProfileRole(ctx context.Context, id string, role model.Role) error

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.up.sql", false)
}

func (r *repository) MigrateDown(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.down.sql", true)
}

func (r *repository) runMigrations(dir, pattern string, reverse bool) error {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.Master.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Str("dir", dir).Str("pattern", pattern).Int("files", len(files)).Msg("migrations executed")
	return nil
}

type txKey struct{}

// WithTx runs fn inside a transaction carried by the context. Nested calls
// reuse the outer transaction.
func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.Master
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isCapacityViolation matches the check_violation raised by the
// registrations_capacity trigger, which carries no constraint name.
func isCapacityViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514" && pqErr.Constraint == ""
}

func isInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

// execAffecting runs stmt and reports notFound when no row matched.
func (r *repository) execAffecting(ctx context.Context, notFound error, stmt string, args ...any) error {
	res, err := r.q(ctx).ExecContext(ctx, stmt, args...)
	if err != nil {
		if isInvalidText(err) {
			return notFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
