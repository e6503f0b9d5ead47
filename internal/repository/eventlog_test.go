package repository

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEventLogger(t *testing.T) (*EventLogger, string) {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	eventLogger, err := NewEventLogger(logger, filepath.Join(dir, "game_logs"))
	require.NoError(t, err)

	return eventLogger, filepath.Join(dir, "game_logs")
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []map[string]any

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())

	return records
}

func TestEventLogger_Append(t *testing.T) {
	t.Run("Creates the log directory and appends one record per line", func(t *testing.T) {
		// Given: a logger rooted in a directory that does not exist yet
		eventLogger, dir := newTestEventLogger(t)

		// When: two events are appended for the same game
		err := eventLogger.Append("20250101120000", EventGameStart, map[string]any{
			"players": map[string]any{"alice": map[string]any{"color": "black"}},
		})
		require.NoError(t, err)

		err = eventLogger.Append("20250101120000", EventMove, map[string]any{
			"player":   "alice",
			"color":    "black",
			"position": []int{7, 7},
		})
		require.NoError(t, err)

		// Then: the per-game file holds both records with the shared fields
		records := readRecords(t, filepath.Join(dir, "game_20250101120000.json"))
		require.Len(t, records, 2)

		assert.Equal(t, EventGameStart, records[0]["event_type"])
		assert.Equal(t, "20250101120000", records[0]["game_id"])
		assert.NotEmpty(t, records[0]["timestamp"])

		assert.Equal(t, EventMove, records[1]["event_type"])
		assert.Equal(t, "alice", records[1]["player"])
		assert.Equal(t, []any{float64(7), float64(7)}, records[1]["position"])
	})

	t.Run("Separate games get separate files", func(t *testing.T) {
		eventLogger, dir := newTestEventLogger(t)

		require.NoError(t, eventLogger.Append("111", EventGameEnd, map[string]any{"winner": "alice"}))
		require.NoError(t, eventLogger.Append("222", EventGameEnd, map[string]any{"winner": "bob"}))

		first := readRecords(t, filepath.Join(dir, "game_111.json"))
		second := readRecords(t, filepath.Join(dir, "game_222.json"))

		require.Len(t, first, 1)
		require.Len(t, second, 1)
		assert.Equal(t, "alice", first[0]["winner"])
		assert.Equal(t, "bob", second[0]["winner"])
	})
}
