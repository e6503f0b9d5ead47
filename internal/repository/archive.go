package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

var ErrResultNotFound = errors.New("game result not found")

// GameArchive persists the outcome of finished games.
type GameArchive interface {
	SaveResult(ctx context.Context, result *entity.GameResult) error
	GetResultByGameID(ctx context.Context, gameID string) (*entity.GameResult, error)
}

type redisArchive struct {
	client *redis.Client
}

func NewRedisArchive(client *redis.Client) GameArchive {
	return &redisArchive{
		client: client,
	}
}

func (that *redisArchive) SaveResult(ctx context.Context, result *entity.GameResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal game result: %w", err)
	}

	resultKey := "result:" + result.GameID
	if err = that.client.Set(ctx, resultKey, resultJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set game result: %w", err)
	}

	return nil
}

func (that *redisArchive) GetResultByGameID(ctx context.Context, gameID string) (*entity.GameResult, error) {
	resultKey := "result:" + gameID

	response, err := that.client.Get(ctx, resultKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrResultNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game result: %w", err)
	}

	var result entity.GameResult
	if err = json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game result: %w", err)
	}

	return &result, nil
}

type sqliteArchive struct {
	db *sql.DB
}

func NewSQLiteArchive(db *sql.DB) GameArchive {
	return &sqliteArchive{
		db: db,
	}
}

func (that *sqliteArchive) SaveResult(ctx context.Context, result *entity.GameResult) error {
	playersJSON, err := json.Marshal(result.Players)
	if err != nil {
		return fmt.Errorf("could not marshal players: %w", err)
	}

	query := `INSERT OR REPLACE INTO results (game_id, winner, winner_color, players, finished_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = that.db.ExecContext(ctx, query,
		result.GameID, result.Winner, result.WinnerColor, string(playersJSON), result.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert game result: %w", err)
	}

	return nil
}

func (that *sqliteArchive) GetResultByGameID(ctx context.Context, gameID string) (*entity.GameResult, error) {
	query := `SELECT game_id, winner, winner_color, players, finished_at FROM results WHERE game_id = ?`

	var result entity.GameResult
	var playersJSON string

	row := that.db.QueryRowContext(ctx, query, gameID)

	err := row.Scan(&result.GameID, &result.Winner, &result.WinnerColor, &playersJSON, &result.FinishedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game result: %w", err)
	}

	if err = json.Unmarshal([]byte(playersJSON), &result.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal players: %w", err)
	}

	return &result, nil
}
