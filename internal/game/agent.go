package game

import "math/rand/v2"

// Chooser picks a move for one side of a round.
type Chooser interface {
	ChooseMove() Move
}

// Observer is implemented by choosers that want to see the opponent's moves.
type Observer interface {
	RecordObservedMove(m Move)
}

// Agent is the computer opponent. It picks uniformly at random and keeps a
// log of the moves its opponent played. The log never biases the choice.
//
// An Agent is not safe for concurrent use.
type Agent struct {
	moves    [len(Moves)]Move
	intN     func(n int) int
	observed []Move
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithSource makes the agent draw from src instead of the global generator.
func WithSource(src rand.Source) AgentOption {
	return func(a *Agent) {
		a.intN = rand.New(src).IntN
	}
}

// NewAgent creates an agent over the fixed vocabulary.
func NewAgent(opts ...AgentOption) *Agent {
	a := &Agent{
		moves: Moves,
		intN:  rand.IntN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ChooseMove returns a uniformly random move.
func (a *Agent) ChooseMove() Move {
	return a.moves[a.intN(len(a.moves))]
}

// RecordObservedMove appends m to the observation log.
func (a *Agent) RecordObservedMove(m Move) {
	a.observed = append(a.observed, m)
}

// Observed returns a copy of the observation log.
func (a *Agent) Observed() []Move {
	out := make([]Move, len(a.observed))
	copy(out, a.observed)
	return out
}
