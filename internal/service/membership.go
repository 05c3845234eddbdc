package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dramclub/internal/clock"
	"dramclub/internal/model"
)

type MembershipStore interface {
	InsertMembership(ctx context.Context, m *model.Membership) error
	GetMembershipByID(ctx context.Context, id string) (*model.Membership, error)
	GetMembershipForUpdate(ctx context.Context, id string) (*model.Membership, error)
	FindMembershipByEmail(ctx context.Context, email string) (*model.Membership, error)
	FindActiveMembership(ctx context.Context, email string, today time.Time, freeEvents int) (*model.Membership, error)
	IncrementEventsUsed(ctx context.Context, id string, limit int) error
	MarkFriendUsed(ctx context.Context, id string) error
	ListMemberships(ctx context.Context) ([]model.Membership, error)
	DeleteMembership(ctx context.Context, id string) error
}

// Ledger tracks the yearly membership entitlement: a number of free events
// and a single free friend seat.
type Ledger struct {
	store    MembershipStore
	clock    clock.Clock
	settings Settings
	log      *zerolog.Logger
}

func NewLedger(store MembershipStore, clk clock.Clock, settings Settings, log *zerolog.Logger) *Ledger {
	return &Ledger{store: store, clock: clk, settings: settings, log: log}
}

// LookupActive returns the paid, unexpired membership for email with a free
// event left, or nil.
func (l *Ledger) LookupActive(ctx context.Context, email string) (*model.Membership, error) {
	return l.store.FindActiveMembership(ctx, normalizeEmail(email), clock.Today(l.clock), l.settings.freeEvents())
}

// Reserve spends one free event, and the friend seat when friend is set,
// under a row lock. ctx must carry the caller's transaction. It reports false
// when the membership no longer grants a free event.
func (l *Ledger) Reserve(ctx context.Context, membershipID string, friend bool) (bool, error) {
	m, err := l.store.GetMembershipForUpdate(ctx, membershipID)
	if err != nil {
		return false, err
	}
	limit := l.settings.freeEvents()
	if m.PaymentStatus != model.PaymentPaid || m.Expired(clock.Today(l.clock)) || m.EventsUsed >= limit {
		if friend {
			return false, model.ErrFriendBenefitUnavailable
		}
		return false, nil
	}
	if friend && m.FriendUsed {
		return false, model.ErrFriendBenefitUnavailable
	}

	if err := l.store.IncrementEventsUsed(ctx, m.ID, limit); err != nil {
		return false, err
	}
	if friend {
		if err := l.store.MarkFriendUsed(ctx, m.ID); err != nil {
			return false, err
		}
	}
	return true, nil
}

type PurchaseInput struct {
	FullName      string
	Email         string
	Phone         string
	PaymentMethod model.PaymentMethod
	PaymentCode   string
}

type Purchase struct {
	Membership *model.Membership `json:"membership"`
	Amount     int               `json:"amount"`
	Memo       string            `json:"memo"`
}

// Create sells a membership for the current calendar year. Any earlier
// membership for the same email, expired or not, blocks the purchase.
func (l *Ledger) Create(ctx context.Context, in PurchaseInput) (*Purchase, error) {
	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" || email == "" {
		return nil, model.InvalidInput("full name and email are required")
	}
	if !l.settings.methodAllowed(in.PaymentMethod) {
		return nil, model.InvalidInput("payment method %q is not supported", in.PaymentMethod)
	}

	today := clock.Today(l.clock)
	existing, err := l.store.FindMembershipByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &model.DuplicateMembershipError{EndDate: existing.EndDate, Expired: existing.Expired(today)}
	}

	start, end := clock.YearWindow(today)
	status := model.PaymentPending
	if l.settings.isBypass(in.PaymentCode) {
		status = model.PaymentPaid
	}

	m := &model.Membership{
		ID:            uuid.NewString(),
		FullName:      fullName,
		Email:         email,
		Phone:         strings.TrimSpace(in.Phone),
		StartDate:     start,
		EndDate:       end,
		EventsUsed:    0,
		FriendUsed:    false,
		PaymentStatus: status,
		PaymentMethod: in.PaymentMethod,
	}
	if err := l.store.InsertMembership(ctx, m); err != nil {
		// Lost a race against a concurrent purchase for the same email.
		if errors.Is(err, model.ErrDuplicateMembership) {
			return nil, &model.DuplicateMembershipError{EndDate: end}
		}
		return nil, err
	}

	l.log.Info().
		Str("membership_id", m.ID).
		Str("email", m.Email).
		Str("payment_status", string(m.PaymentStatus)).
		Msg("membership created")

	return &Purchase{Membership: m, Amount: l.settings.MembershipPrice, Memo: MembershipMemo(m.ID)}, nil
}

type MembershipCheck struct {
	HasMembership   bool `json:"has_membership"`
	EventsRemaining int  `json:"events_remaining"`
	FriendUsed      bool `json:"friend_used"`
}

func (l *Ledger) Check(ctx context.Context, email string) (MembershipCheck, error) {
	if normalizeEmail(email) == "" {
		return MembershipCheck{}, nil
	}
	m, err := l.LookupActive(ctx, email)
	if err != nil {
		return MembershipCheck{}, err
	}
	if m == nil {
		return MembershipCheck{}, nil
	}
	return MembershipCheck{
		HasMembership:   true,
		EventsRemaining: l.settings.freeEvents() - m.EventsUsed,
		FriendUsed:      m.FriendUsed,
	}, nil
}

// Receipt backs the purchase success page: the membership and what is owed.
func (l *Ledger) Receipt(ctx context.Context, id string) (*Purchase, error) {
	m, err := l.store.GetMembershipByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Purchase{Membership: m, Amount: l.settings.MembershipPrice, Memo: MembershipMemo(m.ID)}, nil
}

func (l *Ledger) List(ctx context.Context, actor model.Actor) ([]model.Membership, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return l.store.ListMemberships(ctx)
}

func (l *Ledger) Delete(ctx context.Context, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := l.store.DeleteMembership(ctx, id); err != nil {
		return err
	}
	l.log.Info().Str("membership_id", id).Str("actor", actor.UserID).Msg("membership deleted")
	return nil
}
