package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput             = errors.New("invalid input")
	ErrNotFound                 = errors.New("not found")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrSeatsUnavailable         = errors.New("seats unavailable")
	ErrDuplicateRegistration    = errors.New("duplicate registration")
	ErrDuplicateMembership      = errors.New("duplicate membership")
	ErrFriendBenefitUnavailable = errors.New("friend benefit unavailable")
	ErrBenefitExhausted         = errors.New("membership free events exhausted")
	ErrNotificationFailure      = errors.New("notification failure")
)

// InvalidInput wraps ErrInvalidInput with a human readable reason.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the missing entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

type SeatsUnavailableError struct {
	Remaining int
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("Not enough seats available. Only %d seat(s) remaining.", e.Remaining)
}

func (e *SeatsUnavailableError) Is(target error) bool {
	return target == ErrSeatsUnavailable
}

type DuplicateMembershipError struct {
	EndDate time.Time
	Expired bool
}

func (e *DuplicateMembershipError) Error() string {
	end := e.EndDate.Format("01/02/2006")
	if e.Expired {
		return fmt.Sprintf("You already purchased a membership that expired on %s. Please contact support to renew your membership.", end)
	}
	return fmt.Sprintf("You already have an active membership that expires on %s. You cannot purchase another membership.", end)
}

func (e *DuplicateMembershipError) Is(target error) bool {
	return target == ErrDuplicateMembership
}
