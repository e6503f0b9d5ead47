package gomoku

import (
	"fmt"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

const winningRun = 5

// directions holds one step vector per axis family: vertical, horizontal
// and the two diagonals. Each is scanned both ways from the placed stone.
var directions = [4][2]int{
	{1, 0},
	{0, 1},
	{1, 1},
	{1, -1},
}

// MakeMove validates and applies a stone placement for the given color.
// On a winning move the game is finished in place; otherwise the turn
// passes to the other color.
func MakeMove(gameInstance *entity.Game, color string, row, col int) error {
	if gameInstance.GameOver {
		return apperror.ErrGameFinished
	}

	if err := validateMove(gameInstance, color, row, col); err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}

	gameInstance.Board[row][col] = color

	if IsWinningMove(&gameInstance.Board, row, col) {
		gameInstance.GameOver = true
		gameInstance.Winner = color
		gameInstance.Stage = entity.StageGameOver
		return nil
	}

	gameInstance.CurrentPlayer = entity.OppositeColor(color)

	return nil
}

// validateMove - checks if the move is valid.
func validateMove(gameInstance *entity.Game, color string, row, col int) error {
	if !gameInstance.InBounds(row, col) {
		return fmt.Errorf("%w: (%d,%d)", apperror.ErrInvalidCell, row, col)
	}

	if gameInstance.CurrentPlayer != color {
		return apperror.ErrNotYourTurn
	}

	if gameInstance.Board[row][col] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// IsWinningMove reports whether the stone at (row, col) is part of a run
// of five or more same-colored cells along any axis. Runs longer than
// five still count.
func IsWinningMove(board *entity.Board, row, col int) bool {
	color := board[row][col]
	if color == entity.EmptyCell {
		return false
	}

	for _, dir := range directions {
		count := 1
		count += countRun(board, color, row, col, dir[0], dir[1])
		count += countRun(board, color, row, col, -dir[0], -dir[1])

		if count >= winningRun {
			return true
		}
	}

	return false
}

// countRun counts consecutive same-colored stones from (row, col)
// exclusive, stepping by (dRow, dCol) up to four cells.
func countRun(board *entity.Board, color string, row, col, dRow, dCol int) int {
	count := 0

	for i := 1; i < winningRun; i++ {
		r, c := row+i*dRow, col+i*dCol
		if r < 0 || r >= entity.BoardSize || c < 0 || c >= entity.BoardSize {
			break
		}

		if board[r][c] != color {
			break
		}

		count++
	}

	return count
}
