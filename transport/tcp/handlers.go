package tcp

import (
	"context"
	"encoding/json"
	"fmt"
)

func (that *Server) handleAuthentication(_ context.Context, sessionID string, raw []byte) error {
	var msg authenticationMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %w", errMalformedMessage, err)
	}

	notices, err := that.room.Authenticate(sessionID, msg.Username, msg.Password)
	that.fanOut(notices)

	if err != nil {
		return fmt.Errorf("authentication rejected: %w", err)
	}

	return nil
}

func (that *Server) handleSelectColor(_ context.Context, sessionID string, raw []byte) error {
	var msg selectColorMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %w", errMalformedMessage, err)
	}

	notices, err := that.room.SelectColor(sessionID, msg.Color)
	that.fanOut(notices)

	if err != nil {
		return fmt.Errorf("color selection rejected: %w", err)
	}

	return nil
}

func (that *Server) handleReady(_ context.Context, sessionID string, _ []byte) error {
	notices, err := that.room.Ready(sessionID)
	that.fanOut(notices)

	if err != nil {
		return fmt.Errorf("ready signal rejected: %w", err)
	}

	return nil
}

func (that *Server) handleMove(ctx context.Context, sessionID string, raw []byte) error {
	var msg moveMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %w", errMalformedMessage, err)
	}

	notices, err := that.room.Move(ctx, sessionID, msg.Row, msg.Col)
	that.fanOut(notices)

	if err != nil {
		return fmt.Errorf("move rejected: %w", err)
	}

	return nil
}

func (that *Server) handleRestartVote(_ context.Context, sessionID string, _ []byte) error {
	notices, err := that.room.RestartVote(sessionID)
	that.fanOut(notices)

	if err != nil {
		return fmt.Errorf("restart vote rejected: %w", err)
	}

	return nil
}
