package models

import "errors"

// Failure kinds returned by the raffle service. Callers classify with
// errors.Is; the wrapped message names the draw or email involved.
var (
	ErrDrawAlreadyExists = errors.New("raffle draw already exists")
	ErrDrawNotFound      = errors.New("raffle draw not found")
	ErrDrawAlreadyClosed = errors.New("raffle draw is already closed")
	ErrNoMembers         = errors.New("raffle draw has no members")
	ErrDuplicateMember   = errors.New("member already exists in this raffle draw")
	ErrNoClosedDraws     = errors.New("no raffle draw has been closed")
	ErrNoMembersProvided = errors.New("no members were provided")
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyInput        = errors.New("no candidates to select a winner from")
)
