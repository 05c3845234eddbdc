package repo_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dramclub/internal/model"
	"dramclub/internal/repo"
	"dramclub/internal/testutil"
)

func newRepo(t *testing.T) repo.Repository {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zerolog.Nop()

	r, err := repo.NewRepository(db, &log)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	dir := testutil.MigrationsDir(t)
	// Start from an empty schema so every run sees the same state.
	if err := r.MigrateDown(dir); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if err := r.MigrateUp(dir); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	t.Cleanup(func() {
		if err := r.MigrateDown(dir); err != nil {
			t.Errorf("migrate down: %v", err)
		}
	})
	return r
}

func insertEvent(t *testing.T, r repo.Repository, maxSeats int) *model.Event {
	t.Helper()
	e := &model.Event{
		ID:        uuid.NewString(),
		Title:     "Wine night",
		Date:      time.Date(2030, 3, 14, 0, 0, 0, 0, time.UTC),
		StartTime: "19:30",
		Price:     45,
		MaxSeats:  maxSeats,
	}
	if err := r.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func newRegistration(eventID, email string, tickets int) *model.Registration {
	return &model.Registration{
		ID:            uuid.NewString(),
		EventID:       eventID,
		FullName:      "Guest",
		Email:         email,
		Phone:         "555-0100",
		TicketCount:   tickets,
		PaymentStatus: model.PaymentPending,
		PaymentMethod: model.PaymentStripe,
	}
}

func TestRepository_Registrations(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	t.Run("duplicate email per event is rejected case insensitively", func(t *testing.T) {
		e := insertEvent(t, r, 10)
		if err := r.InsertRegistration(ctx, newRegistration(e.ID, "dup@example.com", 1)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		err := r.InsertRegistration(ctx, newRegistration(e.ID, "DUP@example.com", 1))
		if !errors.Is(err, model.ErrDuplicateRegistration) {
			t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
		}
		exists, err := r.RegistrationExists(ctx, e.ID, "Dup@Example.com")
		if err != nil || !exists {
			t.Fatalf("expected registration to exist, got %v (%v)", exists, err)
		}
	})

	t.Run("capacity trigger blocks overbooking", func(t *testing.T) {
		e := insertEvent(t, r, 3)
		if err := r.InsertRegistration(ctx, newRegistration(e.ID, "a@example.com", 2)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		err := r.InsertRegistration(ctx, newRegistration(e.ID, "b@example.com", 2))
		if !errors.Is(err, model.ErrSeatsUnavailable) {
			t.Fatalf("expected ErrSeatsUnavailable, got %v", err)
		}

		av, err := r.GetEventAvailability(ctx, e.ID)
		if err != nil {
			t.Fatalf("availability: %v", err)
		}
		if av.TicketsTaken != 2 || av.RegisteredCount != 1 {
			t.Fatalf("expected 2 tickets in 1 registration, got %d in %d", av.TicketsTaken, av.RegisteredCount)
		}
		counts, err := r.ListTicketCounts(ctx, e.ID)
		if err != nil || len(counts) != 1 || counts[0] != 2 {
			t.Fatalf("expected [2], got %v (%v)", counts, err)
		}
	})

	t.Run("concurrent inserts under the event lock never exceed seats", func(t *testing.T) {
		e := insertEvent(t, r, 4)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := r.WithTx(ctx, func(ctx context.Context) error {
					if _, err := r.GetEventForUpdate(ctx, e.ID); err != nil {
						return err
					}
					return r.InsertRegistration(ctx, newRegistration(e.ID, fmt.Sprintf("c%d@example.com", i), 1))
				})
				if err == nil {
					mu.Lock()
					success++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		if success != 4 {
			t.Fatalf("expected 4 successful inserts, got %d", success)
		}
	})

	t.Run("payment status update and not found", func(t *testing.T) {
		e := insertEvent(t, r, 5)
		reg := newRegistration(e.ID, "pay@example.com", 1)
		if err := r.InsertRegistration(ctx, reg); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := r.UpdateRegistrationPaymentStatus(ctx, reg.ID, model.PaymentPaid); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err := r.GetRegistrationByID(ctx, reg.ID)
		if err != nil || got.PaymentStatus != model.PaymentPaid {
			t.Fatalf("expected paid registration, got %+v (%v)", got, err)
		}
		if err := r.UpdateRegistrationPaymentStatus(ctx, uuid.NewString(), model.PaymentPaid); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := r.GetRegistrationByID(ctx, "not-a-uuid"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
		}
	})

	t.Run("deleting an event cascades", func(t *testing.T) {
		e := insertEvent(t, r, 5)
		reg := newRegistration(e.ID, "gone@example.com", 1)
		if err := r.InsertRegistration(ctx, reg); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := r.DeleteEvent(ctx, e.ID); err != nil {
			t.Fatalf("delete event: %v", err)
		}
		if _, err := r.GetRegistrationByID(ctx, reg.ID); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRepository_Memberships(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	today := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	m := &model.Membership{
		ID:            uuid.NewString(),
		FullName:      "Member",
		Email:         "member@example.com",
		StartDate:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		PaymentStatus: model.PaymentPending,
		PaymentMethod: model.PaymentPayPal,
	}
	if err := r.InsertMembership(ctx, m); err != nil {
		t.Fatalf("insert membership: %v", err)
	}

	dup := *m
	dup.ID = uuid.NewString()
	dup.Email = "MEMBER@example.com"
	if err := r.InsertMembership(ctx, &dup); !errors.Is(err, model.ErrDuplicateMembership) {
		t.Fatalf("expected ErrDuplicateMembership, got %v", err)
	}

	active, err := r.FindActiveMembership(ctx, "member@example.com", today, 1)
	if err != nil || active != nil {
		t.Fatalf("expected pending membership to be inactive, got %+v (%v)", active, err)
	}
	if err := r.UpdateMembershipPaymentStatus(ctx, m.ID, model.PaymentPaid); err != nil {
		t.Fatalf("update status: %v", err)
	}
	active, err = r.FindActiveMembership(ctx, "Member@Example.com", today, 1)
	if err != nil || active == nil || active.ID != m.ID {
		t.Fatalf("expected active membership, got %+v (%v)", active, err)
	}

	if err := r.IncrementEventsUsed(ctx, m.ID, 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := r.IncrementEventsUsed(ctx, m.ID, 1); !errors.Is(err, model.ErrBenefitExhausted) {
		t.Fatalf("expected ErrBenefitExhausted, got %v", err)
	}
	if err := r.MarkFriendUsed(ctx, m.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := r.MarkFriendUsed(ctx, m.ID); !errors.Is(err, model.ErrFriendBenefitUnavailable) {
		t.Fatalf("expected ErrFriendBenefitUnavailable, got %v", err)
	}
	if err := r.IncrementEventsUsed(ctx, uuid.NewString(), 1); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := r.FindMembershipByEmail(ctx, "member@example.com")
	if err != nil || got == nil {
		t.Fatalf("expected membership, got %v", err)
	}
	if got.EventsUsed != 1 || !got.FriendUsed {
		t.Fatalf("expected events_used 1 and friend used, got %+v", got)
	}
	if active, _ := r.FindActiveMembership(ctx, "member@example.com", today, 1); active != nil {
		t.Fatalf("expected exhausted membership to be inactive")
	}
}

func TestRepository_WithTxRollsBack(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	e := insertEvent(t, r, 5)
	errAbort := errors.New("abort")

	err := r.WithTx(ctx, func(ctx context.Context) error {
		if err := r.InsertRegistration(ctx, newRegistration(e.ID, "tx@example.com", 1)); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}
	exists, err := r.RegistrationExists(ctx, e.ID, "tx@example.com")
	if err != nil || exists {
		t.Fatalf("expected rolled back insert, got exists=%v (%v)", exists, err)
	}
}

func TestRepository_Profiles(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	p := &model.Profile{ID: uuid.NewString(), Email: "admin@example.com", Role: model.RoleAdmin, PasswordHash: "hash"}
	if err := r.InsertProfile(ctx, p); err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	again := &model.Profile{ID: uuid.NewString(), Email: "ADMIN@example.com", Role: model.RoleMember}
	if err := r.InsertProfile(ctx, again); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := r.UpdateProfileRole(ctx, p.ID, model.RoleMember); err != nil {
		t.Fatalf("update role: %v", err)
	}
	got, err := r.GetProfileByEmail(ctx, "Admin@Example.com")
	if err != nil || got.Role != model.RoleMember {
		t.Fatalf("expected member role, got %+v (%v)", got, err)
	}
	if _, err := r.GetProfileByID(ctx, uuid.NewString()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_MembershipLockRollsBack(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	m := &model.Membership{
		ID:            uuid.NewString(),
		FullName:      "Member",
		Email:         "locked@example.com",
		StartDate:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		PaymentStatus: model.PaymentPaid,
		PaymentMethod: model.PaymentPayPal,
	}
	if err := r.InsertMembership(ctx, m); err != nil {
		t.Fatalf("insert membership: %v", err)
	}

	errAbort := errors.New("abort")
	err := r.WithTx(ctx, func(ctx context.Context) error {
		locked, err := r.GetMembershipForUpdate(ctx, m.ID)
		if err != nil {
			return err
		}
		if err := r.IncrementEventsUsed(ctx, locked.ID, 1); err != nil {
			return err
		}
		if err := r.MarkFriendUsed(ctx, locked.ID); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}

	got, err := r.GetMembershipByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	if got.EventsUsed != 0 || got.FriendUsed {
		t.Fatalf("expected rolled back benefits, got events_used=%d friend_used=%v", got.EventsUsed, got.FriendUsed)
	}
	if _, err := r.GetMembershipForUpdate(ctx, uuid.NewString()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
