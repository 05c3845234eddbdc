package service

import (
	"errors"
	"testing"

	"dramclub/internal/model"
)

func TestCheckSeats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		maxSeats  int
		counts    []int
		requested int
		remaining int
		ok        bool
	}{
		{"empty event", 1, nil, 1, 0, true},
		{"exact fit", 4, []int{1, 2}, 1, 0, true},
		{"one short", 4, []int{2, 1}, 2, 1, false},
		{"full", 3, []int{2, 1}, 1, 0, false},
		{"already over capacity", 2, []int{2, 2}, 1, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckSeats(tc.maxSeats, tc.counts, tc.requested)
			if tc.ok {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var seats *model.SeatsUnavailableError
			if !errors.As(err, &seats) {
				t.Fatalf("expected SeatsUnavailableError, got %v", err)
			}
			if seats.Remaining != tc.remaining {
				t.Fatalf("expected %d remaining, got %d", tc.remaining, seats.Remaining)
			}
			if !errors.Is(err, model.ErrSeatsUnavailable) {
				t.Fatalf("expected errors.Is ErrSeatsUnavailable")
			}
		})
	}
}

func TestAvailableSeats(t *testing.T) {
	t.Parallel()

	if got := AvailableSeats(10, []int{1, 2, 2}); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	ev := withAvailability(model.EventAvailability{Event: model.Event{MaxSeats: 3}, TicketsTaken: 4})
	if ev.AvailableSeats != 0 {
		t.Fatalf("expected availability floored at 0, got %d", ev.AvailableSeats)
	}
}

func TestMemos(t *testing.T) {
	t.Parallel()

	got := EventMemo("3f2a9c1d-aaaa-bbbb-cccc-000000000000", "b7e4d2a0-1111-2222-3333-444444444444")
	if got != "EVENT-3F2A9C1D-B7E4D2A0" {
		t.Fatalf("unexpected event memo %q", got)
	}
	if got := MembershipMemo("0c1d2e3f-0000-0000-0000-000000000000"); got != "MEMBERSHIP-0C1D2E3F" {
		t.Fatalf("unexpected membership memo %q", got)
	}
}
