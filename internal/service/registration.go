package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dramclub/internal/model"
)

type RegistrationStore interface {
	TxRunner
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetEventForUpdate(ctx context.Context, id string) (*model.Event, error)
	ListTicketCounts(ctx context.Context, eventID string) ([]int, error)
	RegistrationExists(ctx context.Context, eventID, email string) (bool, error)
	InsertRegistration(ctx context.Context, reg *model.Registration) error
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	DeleteRegistration(ctx context.Context, id string) error
}

// Registrar applies the registration rules: seat accounting, membership
// benefits, duplicate prevention and payment method branching.
type Registrar struct {
	store    RegistrationStore
	ledger   *Ledger
	notifier Notifier
	settings Settings
	log      *zerolog.Logger
}

func NewRegistrar(store RegistrationStore, ledger *Ledger, notifier Notifier, settings Settings, log *zerolog.Logger) *Registrar {
	return &Registrar{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		settings: settings,
		log:      log,
	}
}

type RegisterInput struct {
	EventID       string
	FullName      string
	Email         string
	Phone         string
	TicketCount   int
	PaymentMethod model.PaymentMethod
	PaymentCode   string
	BroughtFriend bool
}

func (r *Registrar) Register(ctx context.Context, in RegisterInput) (*model.Registration, error) {
	if in.TicketCount < 1 || in.TicketCount > 2 {
		return nil, model.InvalidInput("Ticket count must be 1 or 2")
	}
	if !r.settings.methodAllowed(in.PaymentMethod) {
		return nil, model.InvalidInput("payment method %q is not supported", in.PaymentMethod)
	}
	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if email == "" || fullName == "" {
		return nil, model.InvalidInput("full name and email are required")
	}

	isTestPayment := r.settings.isBypass(in.PaymentCode)

	// A lookup outside the transaction only rejects early. The entitlement
	// is locked and spent below.
	membership, err := r.ledger.LookupActive(ctx, email)
	if err != nil {
		return nil, err
	}
	if in.BroughtFriend && (membership == nil || membership.FriendUsed) {
		return nil, model.ErrFriendBenefitUnavailable
	}

	event, err := r.store.GetEventByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	reg := &model.Registration{
		ID:            uuid.NewString(),
		EventID:       event.ID,
		FullName:      fullName,
		Email:         email,
		Phone:         strings.TrimSpace(in.Phone),
		TicketCount:   in.TicketCount,
		PaymentMethod: in.PaymentMethod,
		BroughtFriend: in.BroughtFriend,
	}
	if code := strings.TrimSpace(in.PaymentCode); code != "" {
		reg.PaymentCode = &code
	}

	// The event row lock serializes the seat check and the insert against
	// concurrent registrations for the same event. The membership row lock
	// does the same for registrations of one member across events.
	err = r.store.WithTx(ctx, func(txCtx context.Context) error {
		locked, err := r.store.GetEventForUpdate(txCtx, event.ID)
		if err != nil {
			return err
		}
		counts, err := r.store.ListTicketCounts(txCtx, event.ID)
		if err != nil {
			return err
		}
		if err := CheckSeats(locked.MaxSeats, counts, in.TicketCount); err != nil {
			return err
		}
		exists, err := r.store.RegistrationExists(txCtx, event.ID, email)
		if err != nil {
			return err
		}
		if exists {
			return model.ErrDuplicateRegistration
		}

		isFree := false
		if membership != nil {
			isFree, err = r.ledger.Reserve(txCtx, membership.ID, in.BroughtFriend)
			if err != nil {
				return err
			}
		}
		reg.IsFreeWithMembership = isFree
		if isFree {
			id := membership.ID
			reg.MembershipID = &id
		}
		reg.PaymentStatus = model.PaymentPending
		if isFree || isTestPayment {
			reg.PaymentStatus = model.PaymentPaid
		}
		return r.store.InsertRegistration(txCtx, reg)
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("registration_id", reg.ID).
		Str("event_id", reg.EventID).
		Str("payment_status", string(reg.PaymentStatus)).
		Bool("free_with_membership", reg.IsFreeWithMembership).
		Msg("registration created")

	r.dispatch(ctx, registrationNotification(reg, event))
	return reg, nil
}

func (r *Registrar) dispatch(ctx context.Context, n model.Notification) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, n); err != nil {
		r.log.Warn().Err(err).
			Str("registration_id", n.RegistrationID).
			Str("kind", string(n.Kind)).
			Msg("failed to dispatch notification")
	}
}

func registrationNotification(reg *model.Registration, event *model.Event) model.Notification {
	total := event.Price * reg.TicketCount
	if reg.IsFreeWithMembership {
		total = 0
	}
	return model.Notification{
		Kind:           model.NotifyRegistrationConfirmed,
		To:             reg.Email,
		AttendeeName:   reg.FullName,
		RegistrationID: reg.ID,
		EventTitle:     event.Title,
		EventDate:      event.Date,
		EventTime:      event.StartTime,
		TicketCount:    reg.TicketCount,
		TotalAmount:    total,
		PaymentStatus:  reg.PaymentStatus,
		PaymentMethod:  reg.PaymentMethod,
		Memo:           EventMemo(event.ID, reg.ID),
		FreeMembership: reg.IsFreeWithMembership,
		BroughtFriend:  reg.BroughtFriend,
	}
}

type Receipt struct {
	Registration *model.Registration `json:"registration"`
	EventTitle   string              `json:"event_title"`
	EventDate    time.Time           `json:"event_date"`
	TotalAmount  int                 `json:"total_amount"`
	Memo         string              `json:"memo"`
}

// Receipt is public so the success page can show payment instructions.
func (r *Registrar) Receipt(ctx context.Context, id string) (*Receipt, error) {
	reg, err := r.store.GetRegistrationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := r.store.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	n := registrationNotification(reg, event)
	return &Receipt{
		Registration: reg,
		EventTitle:   event.Title,
		EventDate:    event.Date,
		TotalAmount:  n.TotalAmount,
		Memo:         n.Memo,
	}, nil
}

func (r *Registrar) ListByEvent(ctx context.Context, actor model.Actor, eventID string) ([]model.Registration, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return r.store.ListRegistrationsByEvent(ctx, eventID)
}

func (r *Registrar) Delete(ctx context.Context, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := r.store.DeleteRegistration(ctx, id); err != nil {
		return err
	}
	r.log.Info().Str("registration_id", id).Str("actor", actor.UserID).Msg("registration deleted")
	return nil
}
