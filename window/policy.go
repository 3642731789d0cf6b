package window

import (
	"strings"

	"github.com/pkg/errors"
)

// Policy decides which of several events sharing a key in one batch is kept.
type Policy int

const (
	// FirstWins keeps the first admitted event and drops later duplicates.
	FirstWins Policy = iota
	// LastWins replaces the retained event, keeping the slot of the first arrival.
	LastWins
)

func (p Policy) String() string {
	switch p {
	case FirstWins:
		return "first"
	case LastWins:
		return "last"
	default:
		return "unknown"
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first_wins", "firsttimebatch":
		return FirstWins, nil
	case "last", "last_wins", "timebatch":
		return LastWins, nil
	default:
		return FirstWins, errors.WithMessagef(ErrInvalidConfiguration, "unknown policy %q", s)
	}
}
