package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"raffle/internal/models"
)

// MemoryStore keeps draws and members in process memory.
// The mutex protects the maps only; it does not make a service-level
// check-then-write atomic.
type MemoryStore struct {
	mu      sync.RWMutex
	draws   map[string]*models.RaffleDraw // Key: draw ID
	byName  map[string]string             // Key: draw name, value: draw ID
	members map[string][]*models.Member   // Key: draw ID, in entry order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		draws:   make(map[string]*models.RaffleDraw),
		byName:  make(map[string]string),
		members: make(map[string][]*models.Member),
	}
}

// DrawByName returns a copy of the named draw, or nil if absent.
func (s *MemoryStore) DrawByName(_ context.Context, name string) (*models.RaffleDraw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, nil
	}
	return s.snapshot(id), nil
}

func (s *MemoryStore) CreateDraw(_ context.Context, draw *models.RaffleDraw) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[draw.Name]; exists {
		return duplicateDraw(draw.Name)
	}
	stored := *draw
	stored.Members = nil
	s.draws[draw.ID] = &stored
	s.byName[draw.Name] = draw.ID
	return nil
}

func (s *MemoryStore) MemberExists(_ context.Context, drawID, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := models.EmailKey(email)
	for _, m := range s.members[drawID] {
		if models.EmailKey(m.Email) == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateMember(ctx context.Context, member *models.Member) error {
	return s.CreateMembers(ctx, []*models.Member{member})
}

func (s *MemoryStore) CreateMembers(_ context.Context, members []*models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range members {
		if _, ok := s.draws[m.DrawID]; !ok {
			return missingDraw(m.DrawID)
		}
	}
	for _, m := range members {
		stored := *m
		s.members[m.DrawID] = append(s.members[m.DrawID], &stored)
	}
	return nil
}

func (s *MemoryStore) CloseDraw(_ context.Context, drawID, winnerID string, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draw, ok := s.draws[drawID]
	if !ok {
		return missingDraw(drawID)
	}
	winner := winnerID
	closed := closedAt
	draw.Status = models.StatusClosed
	draw.ClosedAt = &closed
	draw.WinnerMemberID = &winner
	return nil
}

// ClosedDraws returns the winners of closed draws, oldest closing first,
// ties broken by draw ID.
func (s *MemoryStore) ClosedDraws(_ context.Context) ([]models.Winner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var closed []*models.RaffleDraw
	for _, d := range s.draws {
		if d.IsClosed() && d.WinnerMemberID != nil {
			closed = append(closed, d)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		if !closed[i].ClosedAt.Equal(*closed[j].ClosedAt) {
			return closed[i].ClosedAt.Before(*closed[j].ClosedAt)
		}
		return closed[i].ID < closed[j].ID
	})

	winners := make([]models.Winner, 0, len(closed))
	for _, d := range closed {
		for _, m := range s.members[d.ID] {
			if m.ID == *d.WinnerMemberID {
				winners = append(winners, models.Winner{
					MemberID:  m.ID,
					DrawID:    d.ID,
					Name:      m.Name,
					Email:     m.Email,
					CreatedAt: m.CreatedAt,
				})
				break
			}
		}
	}
	return winners, nil
}

// snapshot copies a draw and its members so callers cannot mutate the store.
func (s *MemoryStore) snapshot(id string) *models.RaffleDraw {
	d := *s.draws[id]
	d.Members = make([]*models.Member, 0, len(s.members[id]))
	for _, m := range s.members[id] {
		member := *m
		d.Members = append(d.Members, &member)
	}
	return &d
}
