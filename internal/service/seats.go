package service

import "dramclub/internal/model"

func sumTickets(counts []int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// AvailableSeats is max_seats minus every ticket already registered.
func AvailableSeats(maxSeats int, counts []int) int {
	return maxSeats - sumTickets(counts)
}

// CheckSeats reports a SeatsUnavailableError when requested does not fit.
func CheckSeats(maxSeats int, counts []int, requested int) error {
	available := AvailableSeats(maxSeats, counts)
	if available < requested {
		if available < 0 {
			available = 0
		}
		return &model.SeatsUnavailableError{Remaining: available}
	}
	return nil
}

func withAvailability(ev model.EventAvailability) model.EventAvailability {
	ev.AvailableSeats = ev.MaxSeats - ev.TicketsTaken
	if ev.AvailableSeats < 0 {
		ev.AvailableSeats = 0
	}
	return ev
}
