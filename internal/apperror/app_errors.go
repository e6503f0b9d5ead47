package apperror

import "errors"

var (
	ErrServerFull    = errors.New("server full")
	ErrWrongPassword = errors.New("wrong password")
	ErrAuthRequired  = errors.New("authentication required")
	ErrUsernameTaken = errors.New("username is already taken")

	ErrWrongStage   = errors.New("message not valid in current stage")
	ErrInvalidColor = errors.New("invalid color")
	ErrColorTaken   = errors.New("color is already taken")
	ErrAlreadyReady = errors.New("player already signaled ready")
	ErrAlreadyVoted = errors.New("player already voted for restart")

	ErrGameFinished = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrInvalidCell  = errors.New("invalid cell coordinates")
	ErrCellOccupied = errors.New("cell is already occupied")
)
