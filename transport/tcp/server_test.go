package tcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) string {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	events, err := repository.NewEventLogger(logger, filepath.Join(t.TempDir(), "game_logs"))
	require.NoError(t, err)

	room := usecase.NewRoom(logger, "secret", events, nil)
	server := New(logger, room)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = server.Serve(ctx, listener)
	}()

	return listener.Addr().String()
}

type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *json.Decoder
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
	})

	return &testClient{t: t, conn: conn, reader: json.NewDecoder(conn)}
}

func (that *testClient) send(message map[string]any) {
	that.t.Helper()

	data, err := json.Marshal(message)
	require.NoError(that.t, err)

	_, err = that.conn.Write(append(data, '\n'))
	require.NoError(that.t, err)
}

func (that *testClient) read() map[string]any {
	that.t.Helper()

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var message map[string]any
	require.NoError(that.t, that.reader.Decode(&message))

	return message
}

// readUntil drains messages until one matches; broadcasts a client is not
// interested in (for example the opponent's intermediate state) are skipped.
func (that *testClient) readUntil(pred func(map[string]any) bool) map[string]any {
	that.t.Helper()

	for i := 0; i < 64; i++ {
		message := that.read()
		if pred(message) {
			return message
		}
	}

	that.t.Fatal("expected message never arrived")
	return nil
}

func stageIs(stage string) func(map[string]any) bool {
	return func(message map[string]any) bool {
		return message["stage"] == stage
	}
}

func boardCell(message map[string]any, row, col int) (string, bool) {
	board, ok := message["board"].([]any)
	if !ok {
		return "", false
	}

	cells, ok := board[row].([]any)
	if !ok {
		return "", false
	}

	cell, ok := cells[col].(string)
	return cell, ok
}

func cellIs(row, col int, color string) func(map[string]any) bool {
	return func(message map[string]any) bool {
		cell, ok := boardCell(message, row, col)
		return ok && cell == color
	}
}

// setupMatch drives two fresh clients through authentication, color
// negotiation and the readiness barrier. The first returned client is black.
func setupMatch(t *testing.T, addr string) (*testClient, *testClient) {
	t.Helper()

	alice := dial(t, addr)
	welcome := alice.read()
	require.Equal(t, entity.StageAuthentication, welcome["stage"])
	require.EqualValues(t, 0, welcome["client_id"])

	bob := dial(t, addr)
	welcome = bob.read()
	require.EqualValues(t, 1, welcome["client_id"])

	alice.send(map[string]any{"type": "authentication", "username": "alice", "password": "secret"})
	bob.send(map[string]any{"type": "authentication", "username": "bob", "password": "secret"})

	alice.readUntil(stageIs(entity.StageColorSelection))
	bob.readUntil(stageIs(entity.StageColorSelection))

	alice.send(map[string]any{"type": "select_color", "color": entity.ColorBlack})

	state := alice.readUntil(stageIs(entity.StageWaitingReady))
	require.Equal(t, entity.ColorBlack, state["your_color"])
	state = bob.readUntil(stageIs(entity.StageWaitingReady))
	require.Equal(t, entity.ColorWhite, state["your_color"])

	alice.send(map[string]any{"type": "ready"})
	alice.readUntil(func(message map[string]any) bool {
		return message["ready_players"] == float64(1)
	})

	bob.send(map[string]any{"type": "ready"})
	alice.readUntil(stageIs(entity.StagePlaying))
	bob.readUntil(stageIs(entity.StagePlaying))

	return alice, bob
}

// playMove submits a move and waits until both clients observe the stone,
// keeping the two scripted players in lockstep.
func playMove(t *testing.T, mover, other *testClient, row, col int, color string) map[string]any {
	t.Helper()

	mover.send(map[string]any{"type": "move", "row": row, "col": col})

	state := mover.readUntil(cellIs(row, col, color))
	other.readUntil(cellIs(row, col, color))

	return state
}

func TestServer_TwoPlayerMatch(t *testing.T) {
	addr := startTestServer(t)

	alice := dial(t, addr)
	welcome := alice.read()
	require.Equal(t, entity.StageAuthentication, welcome["stage"])

	// Given: a wrong password on the first attempt
	alice.send(map[string]any{"type": "authentication", "username": "alice", "password": "wrong"})

	// Then: the failure is explicit and the connection stays open
	reply := alice.read()
	assert.Equal(t, false, reply["auth_success"])

	// When: the second attempt uses the right password
	alice.send(map[string]any{"type": "authentication", "username": "alice", "password": "secret"})

	reply = alice.read()
	assert.Equal(t, true, reply["auth_success"])
	assert.Equal(t, entity.StageWaitingJoin, reply["stage"])
}

func TestServer_FullGameFlow(t *testing.T) {
	addr := startTestServer(t)
	alice, bob := setupMatch(t, addr)

	// When: the scripted match is played out
	playMove(t, alice, bob, 7, 7, entity.ColorBlack)
	playMove(t, bob, alice, 0, 0, entity.ColorWhite)
	playMove(t, alice, bob, 7, 8, entity.ColorBlack)
	playMove(t, bob, alice, 0, 1, entity.ColorWhite)
	playMove(t, alice, bob, 7, 9, entity.ColorBlack)
	playMove(t, bob, alice, 0, 2, entity.ColorWhite)
	playMove(t, alice, bob, 7, 10, entity.ColorBlack)
	playMove(t, bob, alice, 0, 3, entity.ColorWhite)
	final := playMove(t, alice, bob, 7, 11, entity.ColorBlack)

	// Then: the fifth black stone ends the game
	assert.Equal(t, true, final["game_over"])
	assert.Equal(t, entity.ColorBlack, final["winner"])
	assert.Equal(t, entity.StageGameOver, final["stage"])

	// When: both players vote for a rematch
	alice.send(map[string]any{"type": "restart_vote"})
	alice.readUntil(func(message map[string]any) bool {
		return message["restart_votes"] == float64(1)
	})

	bob.send(map[string]any{"type": "restart_vote"})

	// Then: the board resets and color selection starts over
	state := alice.readUntil(stageIs(entity.StageColorSelection))
	assert.Equal(t, float64(0), state["restart_votes"])
	assert.Equal(t, false, state["game_over"])

	cell, ok := boardCell(state, 7, 7)
	require.True(t, ok)
	assert.Equal(t, entity.EmptyCell, cell)

	bob.readUntil(stageIs(entity.StageColorSelection))
}

func TestServer_CapacityLimit(t *testing.T) {
	addr := startTestServer(t)

	first := dial(t, addr)
	first.read()
	second := dial(t, addr)
	second.read()

	// When: a third client connects while two sessions are active
	third := dial(t, addr)

	// Then: it is told the server is full and the connection is closed
	reply := third.read()
	assert.Equal(t, "server full", reply["error"])

	require.NoError(t, third.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1)
	_, err := third.conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestServer_DisconnectDuringPlay(t *testing.T) {
	addr := startTestServer(t)
	alice, bob := setupMatch(t, addr)

	playMove(t, alice, bob, 7, 7, entity.ColorBlack)

	// When: bob's connection drops mid-game
	require.NoError(t, bob.conn.Close())

	// Then: the survivor sees the stage roll back and the board reset
	state := alice.readUntil(stageIs(entity.StageWaitingJoin))
	assert.Equal(t, false, state["game_started"])

	cell, ok := boardCell(state, 7, 7)
	require.True(t, ok)
	assert.Equal(t, entity.EmptyCell, cell)
}

func TestServer_MalformedMessageTearsDownSession(t *testing.T) {
	addr := startTestServer(t)

	client := dial(t, addr)
	client.read()

	// When: the client sends undecodable input
	_, err := client.conn.Write([]byte("{not json\n"))
	require.NoError(t, err)

	// Then: the server tears the session down like a disconnect
	require.NoError(t, client.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1)
	_, err = client.conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}
