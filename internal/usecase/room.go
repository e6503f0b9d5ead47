package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/gomoku"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
)

var ErrUnknownSession = errors.New("unknown session")

const gameIDLayout = "20060102150405"

type eventLogger interface {
	Append(gameID, eventType string, fields map[string]any) error
}

type gameArchive interface {
	SaveResult(ctx context.Context, result *entity.GameResult) error
}

// session is the per-connection record of the registry. Sessions are keyed
// by a generated session id, never by the connection handle.
type session struct {
	clientID      int
	username      string
	authenticated bool
	color         string
	ready         bool
	voted         bool
}

// Notice is one outgoing message addressed to a single session. State is a
// deep-copied snapshot taken under the room lock; the transport serializes
// and delivers it after the lock is released. A nil State is a stage-only
// prompt (the authentication handshake).
type Notice struct {
	SessionID   string
	State       *entity.Game
	Stage       string
	YourColor   string
	ClientID    *int
	AuthSuccess *bool
	Message     string
}

// Room owns the authoritative game state and the session registry. Every
// protocol transition - guard check, mutation, event emission and snapshot
// production - happens under one mutex, so each transition is atomic with
// respect to both connections.
type Room struct {
	logger *slog.Logger

	mu       sync.Mutex
	password string
	game     *entity.Game
	sessions map[string]*session
	gameID   string

	events  eventLogger
	archive gameArchive
}

func NewRoom(logger *slog.Logger, password string, events eventLogger, archive gameArchive) *Room {
	return &Room{
		logger:   logger.With("component", "room"),
		password: password,
		game:     entity.NewGame(),
		sessions: make(map[string]*session),
		events:   events,
		archive:  archive,
	}
}

// Join registers a new connection. The third concurrent connection is
// rejected with ErrServerFull and must be closed by the caller without
// ever entering the registry.
func (that *Room) Join(sessionID string) (*Notice, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.sessions) >= entity.MaxPlayers {
		return nil, apperror.ErrServerFull
	}

	clientID := len(that.sessions)
	that.sessions[sessionID] = &session{clientID: clientID}

	that.logger.Info("client joined", "sessionID", sessionID, "clientID", clientID)

	return &Notice{
		SessionID: sessionID,
		Stage:     entity.StageAuthentication,
		Message:   "please authenticate with the server password and your username",
		ClientID:  &clientID,
	}, nil
}

// Authenticate checks the server password and binds the username. A wrong
// password keeps the connection open and allows another attempt. When both
// sessions are authenticated the stage advances to color selection.
func (that *Room) Authenticate(sessionID, username, password string) ([]Notice, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}

	if sess.authenticated {
		return nil, fmt.Errorf("%w: session is already authenticated", apperror.ErrWrongStage)
	}

	if password != that.password {
		return []Notice{authFailedNotice(sessionID, "wrong password, please try again")}, apperror.ErrWrongPassword
	}

	if username == "" {
		username = fmt.Sprintf("player-%d", sess.clientID+1)
	}

	for id, other := range that.sessions {
		if id != sessionID && other.username == username {
			return []Notice{authFailedNotice(sessionID, "username is already taken, please try again")},
				apperror.ErrUsernameTaken
		}
	}

	sess.authenticated = true
	sess.username = username
	that.game.Players[username] = &entity.PlayerStatus{}

	that.logger.Info("player authenticated", "username", username, "clientID", sess.clientID)

	authSuccess := true
	notices := []Notice{{
		SessionID:   sessionID,
		State:       that.game.Snapshot(),
		AuthSuccess: &authSuccess,
		Message:     "authentication successful",
	}}

	if len(that.sessions) == entity.MaxPlayers && that.allAuthenticated() {
		that.game.Stage = entity.StageColorSelection
		notices = append(notices, that.broadcastLocked()...)
	}

	return notices, nil
}

// SelectColor assigns the requested color if it is unclaimed. Once one side
// has picked, the other connected session is auto-assigned the complement
// and the stage advances to the readiness barrier.
func (that *Room) SelectColor(sessionID, color string) ([]Notice, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}

	if !sess.authenticated {
		return []Notice{authRequiredNotice(sessionID)}, apperror.ErrAuthRequired
	}

	if that.game.Stage != entity.StageColorSelection {
		return nil, fmt.Errorf("%w: stage is %s", apperror.ErrWrongStage, that.game.Stage)
	}

	if !entity.IsValidColor(color) {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidColor, color)
	}

	for _, other := range that.sessions {
		if other.color == color {
			return nil, fmt.Errorf("%w: %s", apperror.ErrColorTaken, color)
		}
	}

	sess.color = color
	that.game.Players[sess.username].Color = color

	// once one side has picked there is no second independent choice: the
	// remaining colorless session gets the complement immediately
	for id, other := range that.sessions {
		if id != sessionID && other.authenticated && other.color == "" {
			other.color = entity.OppositeColor(color)
			that.game.Players[other.username].Color = other.color
		}
	}

	if that.allColored() {
		that.game.Stage = entity.StageWaitingReady
	}

	that.logger.Info("color assigned", "username", sess.username, "color", color)

	return that.broadcastLocked(), nil
}

// Ready marks the session ready; the signal is accepted once. When both
// sessions are ready a fresh round starts.
func (that *Room) Ready(sessionID string) ([]Notice, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}

	if !sess.authenticated {
		return []Notice{authRequiredNotice(sessionID)}, apperror.ErrAuthRequired
	}

	if that.game.Stage != entity.StageWaitingReady {
		return nil, fmt.Errorf("%w: stage is %s", apperror.ErrWrongStage, that.game.Stage)
	}

	if sess.ready {
		return nil, apperror.ErrAlreadyReady
	}

	sess.ready = true
	that.game.Players[sess.username].Ready = true
	that.game.ReadyPlayers = that.readyCount()

	if that.game.ReadyPlayers == entity.MaxPlayers {
		that.startRoundLocked()
	}

	return that.broadcastLocked(), nil
}

// Move validates and applies a stone placement. Rejected moves change
// nothing and produce no reply; the caller only logs them.
func (that *Room) Move(ctx context.Context, sessionID string, row, col int) ([]Notice, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}

	if !sess.authenticated {
		return []Notice{authRequiredNotice(sessionID)}, apperror.ErrAuthRequired
	}

	if !that.game.IsPlaying() {
		return nil, fmt.Errorf("%w: stage is %s", apperror.ErrWrongStage, that.game.Stage)
	}

	if err := gomoku.MakeMove(that.game, sess.color, row, col); err != nil {
		return nil, fmt.Errorf("failed to make move: %w", err)
	}

	that.logEvent(repository.EventMove, map[string]any{
		"player":   sess.username,
		"color":    sess.color,
		"position": []int{row, col},
	})

	if that.game.GameOver {
		that.logger.Info("game finished", "gameID", that.gameID, "winner", sess.username, "color", sess.color)

		that.logEvent(repository.EventGameEnd, map[string]any{
			"winner":       sess.username,
			"winner_color": sess.color,
		})

		that.archiveResultLocked(ctx, sess)
	}

	return that.broadcastLocked(), nil
}

// RestartVote counts one restart vote per session while the game is over.
// When every connected client has voted, the board resets and the stage
// rolls back to color selection.
func (that *Room) RestartVote(sessionID string) ([]Notice, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}

	if !sess.authenticated {
		return []Notice{authRequiredNotice(sessionID)}, apperror.ErrAuthRequired
	}

	if !that.game.IsGameOver() {
		return nil, fmt.Errorf("%w: stage is %s", apperror.ErrWrongStage, that.game.Stage)
	}

	if sess.voted {
		return nil, apperror.ErrAlreadyVoted
	}

	sess.voted = true
	that.game.RestartVotes++

	if that.game.RestartVotes >= len(that.sessions) {
		that.game.ResetRound()
		that.game.ReadyPlayers = 0
		that.game.Stage = entity.StageColorSelection

		for _, other := range that.sessions {
			other.ready = false
			other.color = ""
			other.voted = false

			if status, ok := that.game.Players[other.username]; ok {
				status.Ready = false
				status.Color = ""
			}
		}

		that.logEvent(repository.EventGameRestart, map[string]any{
			"message": "players voted to restart the game",
		})

		that.logger.Info("players voted to restart, back to color selection", "gameID", that.gameID)
	}

	return that.broadcastLocked(), nil
}

// Leave removes the session. A disconnect during play aborts the round and
// rolls the stage back to waiting for players.
func (that *Room) Leave(sessionID string) []Notice {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.sessions[sessionID]
	if !ok {
		return nil
	}

	delete(that.sessions, sessionID)
	that.game.ReadyPlayers = that.readyCount()

	if that.game.IsPlaying() {
		that.logEvent(repository.EventPlayerDisconnect, map[string]any{
			"player": sess.username,
		})

		that.game.Stage = entity.StageWaitingJoin
		that.game.GameStarted = false
	}

	// rebuild the players map from the surviving sessions
	that.game.Players = make(map[string]*entity.PlayerStatus)
	for _, other := range that.sessions {
		if other.username == "" {
			continue
		}
		that.game.Players[other.username] = &entity.PlayerStatus{Color: other.color, Ready: other.ready}
	}

	if len(that.sessions) < entity.MaxPlayers {
		that.game.ResetRound()
		that.game.Stage = entity.StageWaitingJoin
	}

	that.logger.Info("client left", "sessionID", sessionID, "username", sess.username)

	return that.broadcastLocked()
}

// startRoundLocked begins a fresh round: clean board, black to move, new
// game id for the event log. Callers hold the lock.
func (that *Room) startRoundLocked() {
	that.game.ResetRound()
	that.game.GameStarted = true
	that.game.Stage = entity.StagePlaying
	that.gameID = time.Now().Format(gameIDLayout)

	players := make(map[string]any, len(that.sessions))
	for _, sess := range that.sessions {
		sess.voted = false
		players[sess.username] = map[string]any{"color": sess.color}
	}

	that.logEvent(repository.EventGameStart, map[string]any{
		"players": players,
	})

	that.logger.Info("game started", "gameID", that.gameID)
}

func (that *Room) archiveResultLocked(ctx context.Context, winner *session) {
	if that.archive == nil {
		return
	}

	players := make(map[string]string, len(that.sessions))
	for _, sess := range that.sessions {
		players[sess.username] = sess.color
	}

	result := &entity.GameResult{
		GameID:      that.gameID,
		Winner:      winner.username,
		WinnerColor: winner.color,
		Players:     players,
		FinishedAt:  time.Now(),
	}

	if err := that.archive.SaveResult(ctx, result); err != nil {
		that.logger.Error("failed to archive game result", "gameID", that.gameID, "error", err)
	}
}

// broadcastLocked snapshots the game once per recipient, embedding each
// recipient's own color. Callers hold the lock; the snapshots stay valid
// after it is released.
func (that *Room) broadcastLocked() []Notice {
	notices := make([]Notice, 0, len(that.sessions))

	for sessionID, sess := range that.sessions {
		notices = append(notices, Notice{
			SessionID: sessionID,
			State:     that.game.Snapshot(),
			YourColor: sess.color,
		})
	}

	return notices
}

func (that *Room) logEvent(eventType string, fields map[string]any) {
	if that.gameID == "" {
		return
	}

	if err := that.events.Append(that.gameID, eventType, fields); err != nil {
		that.logger.Error("failed to append game event", "gameID", that.gameID, "event", eventType, "error", err)
	}
}

func (that *Room) allAuthenticated() bool {
	for _, sess := range that.sessions {
		if !sess.authenticated {
			return false
		}
	}
	return true
}

func (that *Room) allColored() bool {
	for _, sess := range that.sessions {
		if sess.color == "" {
			return false
		}
	}
	return true
}

func (that *Room) readyCount() int {
	count := 0
	for _, sess := range that.sessions {
		if sess.ready {
			count++
		}
	}
	return count
}

func authFailedNotice(sessionID, message string) Notice {
	authSuccess := false
	return Notice{
		SessionID:   sessionID,
		Stage:       entity.StageAuthentication,
		AuthSuccess: &authSuccess,
		Message:     message,
	}
}

func authRequiredNotice(sessionID string) Notice {
	return authFailedNotice(sessionID, "please authenticate first")
}
