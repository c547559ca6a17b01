package game

import "fmt"

// Outcome is the result of comparing two moves.
type Outcome uint8

const (
	Tie Outcome = iota
	PlayerWins
	AIWins
)

var outcomeLabels = [...]string{"Tie", "Player Wins", "AI Wins"}

func (o Outcome) String() string {
	if int(o) >= len(outcomeLabels) {
		return "Unknown"
	}
	return outcomeLabels[o]
}

// MarshalText encodes the outcome as its display label.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes a display label back into an outcome.
func (o *Outcome) UnmarshalText(text []byte) error {
	for i, label := range outcomeLabels {
		if label == string(text) {
			*o = Outcome(i)
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Inverse returns the outcome seen from the other side of the table.
func (o Outcome) Inverse() Outcome {
	switch o {
	case PlayerWins:
		return AIWins
	case AIWins:
		return PlayerWins
	}
	return o
}

// beats[m] is the move that m defeats.
var beats = [...]Move{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

// Resolve decides a round between the player's move and the AI's move.
// Both moves must be valid.
func Resolve(player, ai Move) Outcome {
	switch {
	case player == ai:
		return Tie
	case beats[player] == ai:
		return PlayerWins
	default:
		return AIWins
	}
}
