package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"dramclub/internal/model"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		code   string
		ok     bool
	}{
		{"invalid input", model.InvalidInput("bad"), http.StatusBadRequest, FieldIncorrect, true},
		{"not found", model.NotFound("event"), http.StatusNotFound, NotFound, true},
		{"unauthorized", model.ErrUnauthorized, http.StatusForbidden, Forbidden, true},
		{"seats", &model.SeatsUnavailableError{Remaining: 1}, http.StatusConflict, SeatsUnavailable, true},
		{"seats from trigger", fmt.Errorf("%w: trigger", model.ErrSeatsUnavailable), http.StatusConflict, SeatsUnavailable, true},
		{"duplicate registration", model.ErrDuplicateRegistration, http.StatusConflict, RegistrationDuplicate, true},
		{"duplicate membership", &model.DuplicateMembershipError{}, http.StatusConflict, MembershipDuplicate, true},
		{"friend", model.ErrFriendBenefitUnavailable, http.StatusConflict, FriendBenefitUnavailable, true},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, ServiceUnavailable, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, ok := StatusFor(tc.err)
			if status != tc.status || code != tc.code || ok != tc.ok {
				t.Fatalf("expected (%d, %s, %v), got (%d, %s, %v)", tc.status, tc.code, tc.ok, status, code, ok)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	if got := describe(&model.SeatsUnavailableError{Remaining: 1}); got != "Not enough seats available. Only 1 seat(s) remaining." {
		t.Fatalf("unexpected description %q", got)
	}
	if got := describe(fmt.Errorf("%w: trigger", model.ErrSeatsUnavailable)); got != "Not enough seats available" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := describe(model.ErrDuplicateRegistration); got != "You have already registered for this event" {
		t.Fatalf("unexpected description %q", got)
	}
}
