package service

import (
	"context"

	"github.com/rs/zerolog"

	"dramclub/internal/model"
)

type PaymentStore interface {
	TxRunner
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetRegistrationForUpdate(ctx context.Context, id string) (*model.Registration, error)
	UpdateRegistrationPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error
	GetMembershipForUpdate(ctx context.Context, id string) (*model.Membership, error)
	UpdateMembershipPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error
}

// PaymentWorkflow moves registrations and memberships between pending and
// paid on behalf of an admin.
type PaymentWorkflow struct {
	store    PaymentStore
	notifier Notifier
	log      *zerolog.Logger
}

func NewPaymentWorkflow(store PaymentStore, notifier Notifier, log *zerolog.Logger) *PaymentWorkflow {
	return &PaymentWorkflow{store: store, notifier: notifier, log: log}
}

// SetRegistrationPaymentStatus applies status under a row lock. Setting the
// current status again changes nothing and sends nothing; a confirmation is
// sent once per pending to paid transition.
func (w *PaymentWorkflow) SetRegistrationPaymentStatus(ctx context.Context, actor model.Actor, id string, status model.PaymentStatus) (*model.Registration, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, model.InvalidInput("payment status %q is not supported", status)
	}

	var (
		reg     *model.Registration
		changed bool
	)
	err := w.store.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		reg, err = w.store.GetRegistrationForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if reg.PaymentStatus == status {
			return nil
		}
		if err := w.store.UpdateRegistrationPaymentStatus(txCtx, id, status); err != nil {
			return err
		}
		reg.PaymentStatus = status
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return reg, nil
	}
	w.log.Info().
		Str("registration_id", reg.ID).
		Str("payment_status", string(status)).
		Str("actor", actor.UserID).
		Msg("registration payment status updated")

	if status == model.PaymentPaid {
		w.notifyPaid(ctx, reg)
	}
	return reg, nil
}

func (w *PaymentWorkflow) notifyPaid(ctx context.Context, reg *model.Registration) {
	if w.notifier == nil {
		return
	}
	event, err := w.store.GetEventByID(ctx, reg.EventID)
	if err != nil {
		w.log.Warn().Err(err).Str("registration_id", reg.ID).Msg("failed to load event for payment notification")
		return
	}
	n := registrationNotification(reg, event)
	n.Kind = model.NotifyPaymentConfirmed
	if err := w.notifier.Notify(ctx, n); err != nil {
		w.log.Warn().Err(err).Str("registration_id", reg.ID).Msg("failed to dispatch payment confirmation")
	}
}

// SetMembershipPaymentStatus has the same rules as the registration variant.
// TODO: send a membership payment confirmation once a membership mail exists.
func (w *PaymentWorkflow) SetMembershipPaymentStatus(ctx context.Context, actor model.Actor, id string, status model.PaymentStatus) (*model.Membership, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, model.InvalidInput("payment status %q is not supported", status)
	}

	var m *model.Membership
	err := w.store.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		m, err = w.store.GetMembershipForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if m.PaymentStatus == status {
			return nil
		}
		if err := w.store.UpdateMembershipPaymentStatus(txCtx, id, status); err != nil {
			return err
		}
		m.PaymentStatus = status
		w.log.Info().
			Str("membership_id", id).
			Str("payment_status", string(status)).
			Str("actor", actor.UserID).
			Msg("membership payment status updated")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
