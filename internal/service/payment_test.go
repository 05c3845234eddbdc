package service

import (
	"context"
	"errors"
	"testing"

	"dramclub/internal/model"
)

func TestPaymentWorkflow_Registration(t *testing.T) {
	t.Parallel()

	admin := model.Actor{UserID: "admin-1", Role: model.RoleAdmin}

	setup := func(t *testing.T) (*fixture, *model.Registration) {
		t.Helper()
		f := newFixture(testSettings())
		f.addEvent("ev-1", 10, 40)
		reg, err := f.registrar.Register(context.Background(), registerInput("ev-1", "a@example.com", 2))
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		f.notifier.sent = nil
		return f, reg
	}

	t.Run("pending to paid notifies once", func(t *testing.T) {
		f, reg := setup(t)
		ctx := context.Background()

		got, err := f.payments.SetRegistrationPaymentStatus(ctx, admin, reg.ID, model.PaymentPaid)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.PaymentStatus != model.PaymentPaid {
			t.Fatalf("expected paid, got %s", got.PaymentStatus)
		}
		calls := f.notifier.calls()
		if len(calls) != 1 || calls[0].Kind != model.NotifyPaymentConfirmed || calls[0].To != "a@example.com" {
			t.Fatalf("expected one payment confirmation, got %+v", calls)
		}

		// Setting the same status again is a no-op.
		if _, err := f.payments.SetRegistrationPaymentStatus(ctx, admin, reg.ID, model.PaymentPaid); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(f.notifier.calls()) != 1 {
			t.Fatalf("expected no second notification")
		}
		if f.store.Registrations[reg.ID].PaymentStatus != model.PaymentPaid {
			t.Fatalf("expected status to stay paid")
		}
	})

	t.Run("paid back to pending sends nothing", func(t *testing.T) {
		f, reg := setup(t)
		ctx := context.Background()
		if _, err := f.payments.SetRegistrationPaymentStatus(ctx, admin, reg.ID, model.PaymentPaid); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		f.notifier.sent = nil

		got, err := f.payments.SetRegistrationPaymentStatus(ctx, admin, reg.ID, model.PaymentPending)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.PaymentStatus != model.PaymentPending {
			t.Fatalf("expected pending, got %s", got.PaymentStatus)
		}
		if len(f.notifier.calls()) != 0 {
			t.Fatalf("expected no notification")
		}
	})

	t.Run("dispatch failure keeps the new status", func(t *testing.T) {
		f, reg := setup(t)
		f.notifier.err = errBoom

		got, err := f.payments.SetRegistrationPaymentStatus(context.Background(), admin, reg.ID, model.PaymentPaid)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.PaymentStatus != model.PaymentPaid || f.store.Registrations[reg.ID].PaymentStatus != model.PaymentPaid {
			t.Fatalf("expected committed paid status")
		}
		if len(f.notifier.calls()) != 1 {
			t.Fatalf("expected exactly one dispatch attempt, got %d", len(f.notifier.calls()))
		}
	})

	t.Run("rejects non admin", func(t *testing.T) {
		f, reg := setup(t)
		member := model.Actor{UserID: "u-1", Role: model.RoleMember}

		_, err := f.payments.SetRegistrationPaymentStatus(context.Background(), member, reg.ID, model.PaymentPaid)
		if !errors.Is(err, model.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if f.store.Registrations[reg.ID].PaymentStatus != model.PaymentPending {
			t.Fatalf("expected status unchanged")
		}
	})

	t.Run("rejects unknown status and missing registration", func(t *testing.T) {
		f, reg := setup(t)
		ctx := context.Background()

		if _, err := f.payments.SetRegistrationPaymentStatus(ctx, admin, reg.ID, "refunded"); !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := f.payments.SetRegistrationPaymentStatus(ctx, admin, "ghost", model.PaymentPaid); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPaymentWorkflow_Membership(t *testing.T) {
	t.Parallel()

	admin := model.Actor{UserID: "admin-1", Role: model.RoleAdmin}
	f := newFixture(testSettings())
	f.addMembership("m-1", "member@example.com", model.PaymentPending, 0, false)
	ctx := context.Background()

	m, err := f.payments.SetMembershipPaymentStatus(ctx, admin, "m-1", model.PaymentPaid)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.PaymentStatus != model.PaymentPaid {
		t.Fatalf("expected paid, got %s", m.PaymentStatus)
	}
	if _, err := f.payments.SetMembershipPaymentStatus(ctx, admin, "m-1", model.PaymentPaid); err != nil {
		t.Fatalf("expected idempotent update, got %v", err)
	}
	if len(f.notifier.calls()) != 0 {
		t.Fatalf("expected no membership notification")
	}

	// A paid membership now grants the free event.
	check, err := f.ledger.Check(ctx, "member@example.com")
	if err != nil || !check.HasMembership {
		t.Fatalf("expected active membership, got %+v (%v)", check, err)
	}

	if _, err := f.payments.SetMembershipPaymentStatus(ctx, model.Actor{}, "m-1", model.PaymentPending); !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.payments.SetMembershipPaymentStatus(ctx, admin, "ghost", model.PaymentPaid); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
