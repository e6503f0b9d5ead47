package tcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/pkg"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
)

// maxLineSize bounds a single protocol message.
const maxLineSize = 64 * 1024

var errMalformedMessage = errors.New("malformed message")

type gameRoom interface {
	Join(sessionID string) (*usecase.Notice, error)
	Authenticate(sessionID, username, password string) ([]usecase.Notice, error)
	SelectColor(sessionID, color string) ([]usecase.Notice, error)
	Ready(sessionID string) ([]usecase.Notice, error)
	Move(ctx context.Context, sessionID string, row, col int) ([]usecase.Notice, error)
	RestartVote(sessionID string) ([]usecase.Notice, error)
	Leave(sessionID string) []usecase.Notice
}

// client wraps one accepted connection. Writes are serialized per
// connection: the handling goroutine and fan-outs from the other session
// both write here.
type client struct {
	conn net.Conn
	mu   sync.Mutex
}

func (that *client) writeJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, err = that.conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	return nil
}

type Server struct {
	logger *slog.Logger
	room   gameRoom

	handlers map[string]func(ctx context.Context, sessionID string, raw []byte) error

	connsMutex sync.RWMutex
	conns      map[string]*client
}

func New(logger *slog.Logger, room gameRoom) *Server {
	server := &Server{
		logger:   logger,
		room:     room,
		handlers: make(map[string]func(context.Context, string, []byte) error),
		conns:    make(map[string]*client),
	}

	server.handlers[msgAuthentication] = server.handleAuthentication
	server.handlers[msgSelectColor] = server.handleSelectColor
	server.handlers[msgReady] = server.handleReady
	server.handlers[msgMove] = server.handleMove
	server.handlers[msgRestartVote] = server.handleRestartVote

	return server
}

// Start - starts the TCP game server on the given address.
func (that *Server) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return that.Serve(ctx, listener)
}

// Serve accepts connections until the context is canceled. Each accepted
// connection gets its own goroutine running a blocking read loop.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := that.logger.With("method", "Serve")

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error("failed to close listener", "error", err)
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		go that.handleConn(ctx, conn)
	}
}

// handleConn runs the session lifecycle for one connection: capacity
// check, authentication prompt, read loop, disconnect cleanup.
func (that *Server) handleConn(ctx context.Context, conn net.Conn) {
	log := that.logger.With("method", "handleConn", "remote", conn.RemoteAddr().String())

	sessionID := pkg.GenerateNewSessionID()
	cl := &client{conn: conn}

	welcome, err := that.room.Join(sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrServerFull) {
			log.Info("rejecting connection, server is full")
			if writeErr := cl.writeJSON(errorPayload{Error: "server full"}); writeErr != nil {
				log.Error("failed to send capacity error", "error", writeErr)
			}
		} else {
			log.Error("failed to join", "error", err)
		}

		conn.Close()

		return
	}

	that.addConnection(sessionID, cl)
	log.Info("connection established", "sessionID", sessionID)

	defer func() {
		that.removeConnection(sessionID)
		that.fanOut(that.room.Leave(sessionID))
		conn.Close()
		log.Info("connection closed", "sessionID", sessionID)
	}()

	if err = cl.writeJSON(noticePayload(*welcome)); err != nil {
		log.Error("failed to send authentication prompt", "error", err)
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err = json.Unmarshal(line, &env); err != nil {
			// undecodable input tears the session down like a disconnect
			log.Error("failed to unmarshal message, closing session", "error", err)
			return
		}

		handler, ok := that.handlers[env.Type]
		if !ok {
			log.Warn("unknown message type", "type", env.Type)
			continue
		}

		if err = handler(ctx, sessionID, line); err != nil {
			if errors.Is(err, errMalformedMessage) {
				log.Error("malformed message, closing session", "type", env.Type, "error", err)
				return
			}

			// guard failures are logged server-side only; the sender
			// receives no rejection beyond the auth replies
			log.Warn("message rejected", "type", env.Type, "error", err)
		}
	}

	if err = scanner.Err(); err != nil {
		log.Warn("read loop ended", "error", err)
	}
}

func (that *Server) addConnection(sessionID string, cl *client) {
	that.connsMutex.Lock()
	defer that.connsMutex.Unlock()
	that.conns[sessionID] = cl
}

func (that *Server) removeConnection(sessionID string) {
	that.connsMutex.Lock()
	defer that.connsMutex.Unlock()
	delete(that.conns, sessionID)
}

// fanOut delivers each notice to its addressee. Snapshots were taken under
// the room lock; the slow socket writes happen here, outside it.
func (that *Server) fanOut(notices []usecase.Notice) {
	log := that.logger.With("method", "fanOut")

	for _, notice := range notices {
		that.connsMutex.RLock()
		cl, ok := that.conns[notice.SessionID]
		that.connsMutex.RUnlock()

		if !ok {
			continue
		}

		if err := cl.writeJSON(noticePayload(notice)); err != nil {
			// the recipient's own read loop will observe the broken
			// connection and run the disconnect path
			log.Warn("failed to deliver state update", "sessionID", notice.SessionID, "error", err)
		}
	}
}

func noticePayload(notice usecase.Notice) any {
	if notice.State == nil {
		return promptPayload{
			Stage:       notice.Stage,
			AuthSuccess: notice.AuthSuccess,
			Message:     notice.Message,
			ClientID:    notice.ClientID,
		}
	}

	return statePayload{
		Game:        notice.State,
		YourColor:   notice.YourColor,
		AuthSuccess: notice.AuthSuccess,
		Message:     notice.Message,
	}
}
