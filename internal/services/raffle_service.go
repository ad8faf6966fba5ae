package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raffle/internal/models"

	"github.com/google/uuid"
)

// Store is the persistence boundary the raffle service depends on.
type Store interface {
	// DrawByName returns the draw with its members in entry order,
	// or nil and no error when no draw has that exact name.
	DrawByName(ctx context.Context, name string) (*models.RaffleDraw, error)
	CreateDraw(ctx context.Context, draw *models.RaffleDraw) error
	// MemberExists compares emails case-insensitively.
	MemberExists(ctx context.Context, drawID, email string) (bool, error)
	CreateMember(ctx context.Context, member *models.Member) error
	// CreateMembers persists the whole batch or nothing.
	CreateMembers(ctx context.Context, members []*models.Member) error
	CloseDraw(ctx context.Context, drawID, winnerID string, closedAt time.Time) error
	ClosedDraws(ctx context.Context) ([]models.Winner, error)
}

// Publisher receives lifecycle events after a successful write.
// Implementations handle their own failures.
type Publisher interface {
	DrawCreated(ctx context.Context, draw *models.RaffleDraw)
	MembersEntered(ctx context.Context, draw *models.RaffleDraw, members []*models.Member)
	DrawClosed(ctx context.Context, draw *models.RaffleDraw, winner *models.Member)
}

// RaffleService enforces the lifecycle of raffle draws: creation, member
// entry while open, and a single closing that picks the winner.
//
// The service holds no state between calls and takes no locks; two
// concurrent writers to the same draw can race between the check and the
// write.
type RaffleService struct {
	store     Store
	publisher Publisher
	selector  Selector
	now       func() time.Time
	newID     func() string
}

// NewRaffleService creates a RaffleService. A nil publisher disables events.
func NewRaffleService(store Store, publisher Publisher) *RaffleService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &RaffleService{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// CreateDraw creates a new open draw with no members.
func (s *RaffleService) CreateDraw(ctx context.Context, name string) (*models.RaffleDraw, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: draw name is required", models.ErrInvalidInput)
	}

	existing, err := s.store.DrawByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrDrawAlreadyExists, name)
	}

	draw := &models.RaffleDraw{
		ID:        s.newID(),
		Name:      name,
		Status:    models.StatusOpen,
		CreatedAt: s.now(),
		Members:   []*models.Member{},
	}
	if err := s.store.CreateDraw(ctx, draw); err != nil {
		return nil, err
	}

	s.publisher.DrawCreated(ctx, draw)
	return draw, nil
}

// Draw returns the named draw with its members.
func (s *RaffleService) Draw(ctx context.Context, name string) (*models.RaffleDraw, error) {
	return s.drawByName(ctx, name)
}

// EnterMember adds one member to an open draw. Emails are unique per draw,
// ignoring case.
func (s *RaffleService) EnterMember(ctx context.Context, drawName, memberName, memberEmail string) (*models.Member, error) {
	if err := validateMember(models.MemberInput{Name: memberName, Email: memberEmail}); err != nil {
		return nil, err
	}

	draw, err := s.openDraw(ctx, drawName)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.MemberExists(ctx, draw.ID, memberEmail)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", models.ErrDuplicateMember, memberEmail)
	}

	member := s.newMember(draw.ID, models.MemberInput{Name: memberName, Email: memberEmail})
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, err
	}

	s.publisher.MembersEntered(ctx, draw, []*models.Member{member})
	return member, nil
}

// EnterMembers adds a batch of members to an open draw. Every entry is
// checked against the rest of the batch and against the draw's existing
// members before anything is written; the first duplicate email fails the
// whole batch.
func (s *RaffleService) EnterMembers(ctx context.Context, drawName string, inputs []models.MemberInput) ([]*models.Member, error) {
	if len(inputs) == 0 {
		return nil, models.ErrNoMembersProvided
	}
	for _, in := range inputs {
		if err := validateMember(in); err != nil {
			return nil, err
		}
	}

	draw, err := s.openDraw(ctx, drawName)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		key := models.EmailKey(in.Email)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateMember, in.Email)
		}
		seen[key] = struct{}{}

		exists, err := s.store.MemberExists(ctx, draw.ID, in.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateMember, in.Email)
		}
	}

	members := make([]*models.Member, 0, len(inputs))
	for _, in := range inputs {
		members = append(members, s.newMember(draw.ID, in))
	}
	if err := s.store.CreateMembers(ctx, members); err != nil {
		return nil, err
	}

	s.publisher.MembersEntered(ctx, draw, members)
	return members, nil
}

// CloseDraw picks a winner among the draw's members and closes the draw.
func (s *RaffleService) CloseDraw(ctx context.Context, drawName string) (*models.Member, error) {
	draw, err := s.openDraw(ctx, drawName)
	if err != nil {
		return nil, err
	}
	if len(draw.Members) == 0 {
		return nil, fmt.Errorf("%w: %q", models.ErrNoMembers, drawName)
	}

	winner, err := Pick(s.selector, draw.Members)
	if err != nil {
		return nil, err
	}

	closedAt := s.now()
	if err := s.store.CloseDraw(ctx, draw.ID, winner.ID, closedAt); err != nil {
		return nil, err
	}
	draw.Status = models.StatusClosed
	draw.ClosedAt = &closedAt
	draw.WinnerMemberID = &winner.ID

	s.publisher.DrawClosed(ctx, draw, winner)
	return winner, nil
}

// ListPastWinners returns the winner of every closed draw. An empty
// history is reported as ErrNoClosedDraws rather than an empty list.
func (s *RaffleService) ListPastWinners(ctx context.Context) ([]models.Winner, error) {
	winners, err := s.store.ClosedDraws(ctx)
	if err != nil {
		return nil, err
	}
	if len(winners) == 0 {
		return nil, models.ErrNoClosedDraws
	}
	return winners, nil
}

func (s *RaffleService) drawByName(ctx context.Context, name string) (*models.RaffleDraw, error) {
	draw, err := s.store.DrawByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if draw == nil {
		return nil, fmt.Errorf("%w: %q", models.ErrDrawNotFound, name)
	}
	return draw, nil
}

func (s *RaffleService) openDraw(ctx context.Context, name string) (*models.RaffleDraw, error) {
	draw, err := s.drawByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if draw.IsClosed() {
		return nil, fmt.Errorf("%w: %q", models.ErrDrawAlreadyClosed, name)
	}
	return draw, nil
}

func (s *RaffleService) newMember(drawID string, in models.MemberInput) *models.Member {
	return &models.Member{
		ID:        s.newID(),
		DrawID:    drawID,
		Name:      in.Name,
		Email:     in.Email,
		CreatedAt: s.now(),
	}
}

func validateMember(in models.MemberInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: member name is required", models.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("%w: member email is required", models.ErrInvalidInput)
	}
	return nil
}

type nopPublisher struct{}

func (nopPublisher) DrawCreated(context.Context, *models.RaffleDraw) {}
func (nopPublisher) MembersEntered(context.Context, *models.RaffleDraw, []*models.Member) {}
func (nopPublisher) DrawClosed(context.Context, *models.RaffleDraw, *models.Member) {}
