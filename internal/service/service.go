package service

import (
	"context"
	"slices"
	"strings"

	"dramclub/internal/model"
)

// Notifier delivers a notification request. Callers treat failures as
// best-effort: they are logged and never undo the triggering write.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Settings are the club rules fed into the engine from configuration.
type Settings struct {
	PaymentMethods []model.PaymentMethod
	// BypassCode marks a registration or membership paid on submission.
	// Empty disables the bypass.
	BypassCode              string
	FreeEventsPerMembership int
	MembershipPrice         int
}

func DefaultSettings() Settings {
	return Settings{
		PaymentMethods:          []model.PaymentMethod{model.PaymentStripe, model.PaymentPayPal},
		FreeEventsPerMembership: 1,
		MembershipPrice:         100,
	}
}

func (s Settings) methodAllowed(m model.PaymentMethod) bool {
	return slices.Contains(s.PaymentMethods, m)
}

func (s Settings) isBypass(code string) bool {
	return s.BypassCode != "" && code == s.BypassCode
}

func (s Settings) freeEvents() int {
	if s.FreeEventsPerMembership < 1 {
		return 1
	}
	return s.FreeEventsPerMembership
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requireAdmin(actor model.Actor) error {
	if !actor.IsAdmin() {
		return model.ErrUnauthorized
	}
	return nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// EventMemo is the reference a registrant puts on a manual payment.
func EventMemo(eventID, registrationID string) string {
	return "EVENT-" + shortID(eventID) + "-" + shortID(registrationID)
}

func MembershipMemo(membershipID string) string {
	return "MEMBERSHIP-" + shortID(membershipID)
}
