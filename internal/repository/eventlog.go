package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const eventTimeLayout = "2006-01-02 15:04:05"

// Event types recorded in the per-game log.
const (
	EventGameStart        = "game_start"
	EventMove             = "move"
	EventGameEnd          = "game_end"
	EventGameRestart      = "game_restart"
	EventPlayerDisconnect = "player_disconnect"
)

// EventLogger appends one JSON record per line to a game_<id>.json file
// under the configured directory. Every record carries a timestamp, the
// event type and the game id; event-specific fields are merged in.
type EventLogger struct {
	logger *slog.Logger
	dir    string
}

func NewEventLogger(logger *slog.Logger, dir string) (*EventLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create event log directory: %w", err)
	}

	return &EventLogger{
		logger: logger,
		dir:    dir,
	}, nil
}

func (that *EventLogger) Append(gameID, eventType string, fields map[string]any) error {
	record := map[string]any{
		"timestamp":  time.Now().Format(eventTimeLayout),
		"event_type": eventType,
		"game_id":    gameID,
	}

	for key, value := range fields {
		record[key] = value
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal event record: %w", err)
	}

	logFile := filepath.Join(that.dir, "game_"+gameID+".json")

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open event log file: %w", err)
	}
	defer file.Close()

	if _, err = file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("could not write event record: %w", err)
	}

	return nil
}
