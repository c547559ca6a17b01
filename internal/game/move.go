package game

import (
	"fmt"
	"strings"
)

// Move is one of the three hand shapes.
type Move uint8

const (
	Rock Move = iota
	Paper
	Scissors
)

// Moves is the fixed move vocabulary in display order.
var Moves = [...]Move{Rock, Paper, Scissors}

var moveNames = [...]string{"rock", "paper", "scissors"}

// String returns the lowercase move name
func (m Move) String() string {
	if !m.Valid() {
		return fmt.Sprintf("move(%d)", uint8(m))
	}
	return moveNames[m]
}

// Valid reports whether m belongs to the vocabulary
func (m Move) Valid() bool {
	return m <= Scissors
}

// MarshalText encodes the move by name.
func (m Move) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMove, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a move name.
func (m *Move) UnmarshalText(text []byte) error {
	parsed, err := ParseMove(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMove converts a move name into a Move. Matching ignores case and
// surrounding whitespace; the single-letter forms r, p and s are accepted.
func ParseMove(s string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rock", "r":
		return Rock, nil
	case "paper", "p":
		return Paper, nil
	case "scissors", "s":
		return Scissors, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMove, s)
}
