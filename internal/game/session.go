package game

import "fmt"

// Round is one resolved pair of moves.
type Round struct {
	Player Move `json:"player"`
	AI     Move `json:"ai"`
}

// Outcome resolves the round again. Rounds never store their outcome.
func (r Round) Outcome() Outcome {
	return Resolve(r.Player, r.AI)
}

// Frequency counts how often each side played a move.
type Frequency struct {
	Player int `json:"player"`
	AI     int `json:"ai"`
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	PlayerScore int
	AIScore     int
	TieCount    int
	History     []Round
}

// Session tallies scores and keeps the history of every round played.
// PlayerScore + AIScore + TieCount always equals len(History).
//
// A Session is not safe for concurrent use; share it behind a single mutex.
type Session struct {
	ai         Chooser
	exhibition Chooser

	playerScore int
	aiScore     int
	tieCount    int
	history     []Round
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithExhibitionPlayer sets the chooser that plays the human side in
// automated rounds.
func WithExhibitionPlayer(c Chooser) SessionOption {
	return func(s *Session) {
		s.exhibition = c
	}
}

// NewSession creates an empty session against ai. Automated rounds use an
// independent Agent for the player side unless WithExhibitionPlayer is given.
func NewSession(ai Chooser, opts ...SessionOption) *Session {
	s := &Session{ai: ai}
	for _, opt := range opts {
		opt(s)
	}
	if s.exhibition == nil {
		s.exhibition = NewAgent()
	}
	return s
}

// Restore rebuilds a session from a recorded history. Counters are derived
// from the rounds, not trusted from storage.
func Restore(ai Chooser, history []Round, opts ...SessionOption) (*Session, error) {
	s := NewSession(ai, opts...)
	for i, r := range history {
		if !r.Player.Valid() || !r.AI.Valid() {
			return nil, fmt.Errorf("round %d: %w", i, ErrInvalidMove)
		}
		s.record(r.Player, r.AI)
	}
	return s, nil
}

// ResolveRound plays playerMove against the AI and records the round.
// An invalid move is rejected without touching the session.
func (s *Session) ResolveRound(playerMove Move) (Move, Outcome, error) {
	if !playerMove.Valid() {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidMove, uint8(playerMove))
	}

	aiMove := s.ai.ChooseMove()
	if !aiMove.Valid() {
		return 0, 0, fmt.Errorf("%w: ai chose %d", ErrInvalidChoice, uint8(aiMove))
	}
	if obs, ok := s.ai.(Observer); ok {
		obs.RecordObservedMove(playerMove)
	}

	return aiMove, s.record(playerMove, aiMove), nil
}

// ResolveAutomatedRound plays one AI-vs-AI round. If either chooser
// produces a move outside the vocabulary the round is discarded.
func (s *Session) ResolveAutomatedRound() (Move, Move, Outcome, error) {
	playerMove := s.exhibition.ChooseMove()
	if !playerMove.Valid() {
		return 0, 0, 0, fmt.Errorf("%w: exhibition player chose %d", ErrInvalidChoice, uint8(playerMove))
	}
	aiMove := s.ai.ChooseMove()
	if !aiMove.Valid() {
		return 0, 0, 0, fmt.Errorf("%w: ai chose %d", ErrInvalidChoice, uint8(aiMove))
	}
	return playerMove, aiMove, s.record(playerMove, aiMove), nil
}

func (s *Session) record(playerMove, aiMove Move) Outcome {
	outcome := Resolve(playerMove, aiMove)
	s.history = append(s.history, Round{Player: playerMove, AI: aiMove})

	switch outcome {
	case PlayerWins:
		s.playerScore++
	case AIWins:
		s.aiScore++
	default:
		s.tieCount++
	}
	return outcome
}

// Reset zeroes the scores and clears the history. The AI's observation log
// is left alone.
func (s *Session) Reset() {
	s.playerScore = 0
	s.aiScore = 0
	s.tieCount = 0
	s.history = nil
}

// MoveFrequencies tallies the history per move. Every move has an entry.
func (s *Session) MoveFrequencies() map[Move]Frequency {
	freq := make(map[Move]Frequency, len(Moves))
	for _, m := range Moves {
		freq[m] = Frequency{}
	}
	for _, r := range s.history {
		p := freq[r.Player]
		p.Player++
		freq[r.Player] = p

		a := freq[r.AI]
		a.AI++
		freq[r.AI] = a
	}
	return freq
}

func (s *Session) PlayerScore() int { return s.playerScore }
func (s *Session) AIScore() int     { return s.aiScore }
func (s *Session) TieCount() int    { return s.tieCount }

// History returns a copy of the rounds played so far.
func (s *Session) History() []Round {
	out := make([]Round, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		PlayerScore: s.playerScore,
		AIScore:     s.aiScore,
		TieCount:    s.tieCount,
		History:     s.History(),
	}
}
