package game

import "errors"

var (
	// ErrInvalidMove is returned when a move is outside rock, paper and scissors.
	ErrInvalidMove = errors.New("invalid move")
	// ErrInvalidChoice is returned when a Chooser produces a move outside the vocabulary.
	ErrInvalidChoice = errors.New("chooser returned an invalid move")
)
