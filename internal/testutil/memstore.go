package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"dramclub/internal/model"
)

// MemStore is an in-memory repository with the same error contract as the
// Postgres one. WithTx serializes callers the way the event row lock does.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	Events        map[string]model.Event
	Registrations map[string]model.Registration
	Memberships   map[string]model.Membership
	Profiles      map[string]model.Profile

	seq int
	// FailIncrement makes IncrementEventsUsed return the given error.
	FailIncrement error
}

func NewMemStore() *MemStore {
	return &MemStore{
		Events:        map[string]model.Event{},
		Registrations: map[string]model.Registration{},
		Memberships:   map[string]model.Membership{},
		Profiles:      map[string]model.Profile{},
	}
}

func (s *MemStore) now() time.Time {
	s.seq++
	return time.Date(2025, 1, 1, 0, 0, s.seq, 0, time.UTC)
}

func (s *MemStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

func (s *MemStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.CreatedAt = s.now()
	s.Events[e.ID] = *e
	return nil
}

func (s *MemStore) UpdateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Events[e.ID]; !ok {
		return model.NotFound("event")
	}
	s.Events[e.ID] = *e
	return nil
}

func (s *MemStore) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Events[id]; !ok {
		return model.NotFound("event")
	}
	delete(s.Events, id)
	for rid, r := range s.Registrations {
		if r.EventID == id {
			delete(s.Registrations, rid)
		}
	}
	return nil
}

func (s *MemStore) GetEventByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Events[id]
	if !ok {
		return nil, model.NotFound("event")
	}
	return &e, nil
}

func (s *MemStore) GetEventForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return s.GetEventByID(ctx, id)
}

func (s *MemStore) availability(e model.Event) model.EventAvailability {
	ev := model.EventAvailability{Event: e}
	for _, r := range s.Registrations {
		if r.EventID == e.ID {
			ev.TicketsTaken += r.TicketCount
			ev.RegisteredCount++
		}
	}
	return ev
}

func (s *MemStore) GetEventAvailability(_ context.Context, id string) (*model.EventAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Events[id]
	if !ok {
		return nil, model.NotFound("event")
	}
	ev := s.availability(e)
	return &ev, nil
}

func (s *MemStore) ListEventAvailability(_ context.Context, from *time.Time) ([]model.EventAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EventAvailability
	for _, e := range s.Events {
		if from != nil && e.Date.Before(*from) {
			continue
		}
		out = append(out, s.availability(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemStore) InsertRegistration(_ context.Context, reg *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Registrations {
		if r.EventID == reg.EventID && strings.EqualFold(r.Email, reg.Email) {
			return model.ErrDuplicateRegistration
		}
	}
	reg.CreatedAt = s.now()
	s.Registrations[reg.ID] = *reg
	return nil
}

func (s *MemStore) GetRegistrationByID(_ context.Context, id string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.Registrations[id]
	if !ok {
		return nil, model.NotFound("registration")
	}
	return &r, nil
}

func (s *MemStore) GetRegistrationForUpdate(ctx context.Context, id string) (*model.Registration, error) {
	return s.GetRegistrationByID(ctx, id)
}

func (s *MemStore) RegistrationExists(_ context.Context, eventID, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Registrations {
		if r.EventID == eventID && strings.EqualFold(r.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) ListTicketCounts(_ context.Context, eventID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, r := range s.Registrations {
		if r.EventID == eventID {
			out = append(out, r.TicketCount)
		}
	}
	return out, nil
}

func (s *MemStore) ListRegistrationsByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Registration
	for _, r := range s.Registrations {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) UpdateRegistrationPaymentStatus(_ context.Context, id string, status model.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.Registrations[id]
	if !ok {
		return model.NotFound("registration")
	}
	r.PaymentStatus = status
	s.Registrations[id] = r
	return nil
}

func (s *MemStore) DeleteRegistration(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Registrations[id]; !ok {
		return model.NotFound("registration")
	}
	delete(s.Registrations, id)
	return nil
}

func (s *MemStore) InsertMembership(_ context.Context, m *model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Memberships {
		if strings.EqualFold(existing.Email, m.Email) {
			return model.ErrDuplicateMembership
		}
	}
	m.CreatedAt = s.now()
	s.Memberships[m.ID] = *m
	return nil
}

func (s *MemStore) GetMembershipByID(_ context.Context, id string) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Memberships[id]
	if !ok {
		return nil, model.NotFound("membership")
	}
	return &m, nil
}

func (s *MemStore) GetMembershipForUpdate(ctx context.Context, id string) (*model.Membership, error) {
	return s.GetMembershipByID(ctx, id)
}

func (s *MemStore) FindMembershipByEmail(_ context.Context, email string) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.Memberships {
		if strings.EqualFold(m.Email, email) {
			return &m, nil
		}
	}
	return nil, nil
}

func (s *MemStore) FindActiveMembership(_ context.Context, email string, today time.Time, freeEvents int) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *model.Membership
	for _, m := range s.Memberships {
		if !strings.EqualFold(m.Email, email) || m.PaymentStatus != model.PaymentPaid ||
			m.EndDate.Before(today) || m.EventsUsed >= freeEvents {
			continue
		}
		if best == nil || m.EndDate.After(best.EndDate) {
			m := m
			best = &m
		}
	}
	return best, nil
}

func (s *MemStore) IncrementEventsUsed(_ context.Context, id string, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailIncrement != nil {
		return s.FailIncrement
	}
	m, ok := s.Memberships[id]
	if !ok {
		return model.NotFound("membership")
	}
	if m.EventsUsed >= limit {
		return model.ErrBenefitExhausted
	}
	m.EventsUsed++
	s.Memberships[id] = m
	return nil
}

func (s *MemStore) MarkFriendUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Memberships[id]
	if !ok {
		return model.NotFound("membership")
	}
	if m.FriendUsed {
		return model.ErrFriendBenefitUnavailable
	}
	m.FriendUsed = true
	s.Memberships[id] = m
	return nil
}

func (s *MemStore) ListMemberships(_ context.Context) ([]model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Membership
	for _, m := range s.Memberships {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemStore) UpdateMembershipPaymentStatus(_ context.Context, id string, status model.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Memberships[id]
	if !ok {
		return model.NotFound("membership")
	}
	m.PaymentStatus = status
	s.Memberships[id] = m
	return nil
}

func (s *MemStore) DeleteMembership(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Memberships[id]; !ok {
		return model.NotFound("membership")
	}
	delete(s.Memberships, id)
	return nil
}

func (s *MemStore) InsertProfile(_ context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Profiles {
		if strings.EqualFold(existing.Email, p.Email) {
			return model.InvalidInput("a user with email %s already exists", p.Email)
		}
	}
	p.CreatedAt = s.now()
	s.Profiles[p.ID] = *p
	return nil
}

func (s *MemStore) GetProfileByID(_ context.Context, id string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Profiles[id]
	if !ok {
		return nil, model.NotFound("profile")
	}
	return &p, nil
}

func (s *MemStore) GetProfileByEmail(_ context.Context, email string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, model.NotFound("profile")
}

func (s *MemStore) ListProfiles(_ context.Context) ([]model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Profile
	for _, p := range s.Profiles {
		out = append(out, p)
	}
	return out, nil
}

func (s *MemStore) UpdateProfileRole(_ context.Context, id string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Profiles[id]
	if !ok {
		return model.NotFound("profile")
	}
	p.Role = role
	s.Profiles[id] = p
	return nil
}
