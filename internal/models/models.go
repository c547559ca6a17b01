package models

import (
	"time"

	"github.com/rps-arena/internal/game"
)

// SessionRecord is the persisted form of a game session
type SessionRecord struct {
	SessionID   string       `json:"session_id"`
	PlayerScore int          `json:"player_score"`
	AIScore     int          `json:"ai_score"`
	TieCount    int          `json:"tie_count"`
	History     []game.Round `json:"history"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Scoreboard is the three score panels
type Scoreboard struct {
	Player int `json:"player"`
	AI     int `json:"ai"`
	Tie    int `json:"tie"`
}

// SessionResponse represents a session as returned by the API
type SessionResponse struct {
	SessionID  string       `json:"session_id"`
	Scores     Scoreboard   `json:"scores"`
	Rounds     int          `json:"rounds"`
	History    []game.Round `json:"history"`
	Exhibition bool         `json:"exhibition"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// PlayRoundRequest represents the request to play a round
type PlayRoundRequest struct {
	Move string `json:"move"`
}

// RoundResult is one resolved round, as returned by the API and streamed to watchers
type RoundResult struct {
	SessionID  string       `json:"session_id"`
	Round      int          `json:"round"`
	PlayerMove game.Move    `json:"player_move"`
	AIMove     game.Move    `json:"ai_move"`
	Outcome    game.Outcome `json:"outcome"`
	Automated  bool         `json:"automated"`
	Scores     Scoreboard   `json:"scores"`
	PlayedAt   time.Time    `json:"played_at"`
}

// MoveCount is one bar pair of the move frequency chart
type MoveCount struct {
	Move   game.Move `json:"move"`
	Player int       `json:"player"`
	AI     int       `json:"ai"`
}

// StatsResponse represents a session's move frequency report
type StatsResponse struct {
	SessionID   string      `json:"session_id"`
	Scores      Scoreboard  `json:"scores"`
	Rounds      int         `json:"rounds"`
	Frequencies []MoveCount `json:"frequencies"`
}

// StartExhibitionRequest represents the request to start AI-vs-AI mode
type StartExhibitionRequest struct {
	IntervalMs int `json:"interval_ms,omitempty"`
}

// ExhibitionResponse reports the exhibition state of a session
type ExhibitionResponse struct {
	SessionID  string `json:"session_id"`
	Running    bool   `json:"running"`
	IntervalMs int64  `json:"interval_ms,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
