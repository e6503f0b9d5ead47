package entity

import "time"

// PlayerStatus is the per-username entry of the shared players map.
type PlayerStatus struct {
	Color string `json:"color"`
	Ready bool   `json:"ready"`
}

// GameResult is the archived outcome of a finished game.
type GameResult struct {
	GameID      string            `json:"game_id"`
	Winner      string            `json:"winner"`
	WinnerColor string            `json:"winner_color"`
	Players     map[string]string `json:"players"`
	FinishedAt  time.Time         `json:"finished_at"`
}
