package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a raffle draw.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// RaffleDraw is a single raffle event. Members are kept in entry order.
// ClosedAt and WinnerMemberID are set together, exactly once, when the
// draw is closed.
type RaffleDraw struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	ClosedAt       *time.Time `json:"closedAt,omitempty"`
	WinnerMemberID *string    `json:"winnerMemberId,omitempty"`
	Members        []*Member  `json:"members"`
}

// IsClosed reports whether the draw has reached its terminal state.
func (d *RaffleDraw) IsClosed() bool {
	return d.Status == StatusClosed
}

// Member is a participant entered into exactly one draw.
type Member struct {
	ID        string    `json:"id"`
	DrawID    string    `json:"drawId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemberInput is a name/email pair submitted for entry into a draw.
type MemberInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Winner links the winning member of a closed draw to that draw.
// CreatedAt is the member's entry time.
type Winner struct {
	MemberID  string    `json:"id"`
	DrawID    string    `json:"raffleDrawId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// EmailKey is the form emails are compared in for uniqueness within a draw.
func EmailKey(email string) string {
	return strings.ToLower(email)
}
