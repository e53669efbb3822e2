package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/stipendia/stipendia/internal/auth"
	"github.com/stipendia/stipendia/internal/protocol"
)

// Session owns one client connection. It runs a blocking read/dispatch/write
// loop and holds exactly one piece of mutable state: the authenticated
// identity, set by a successful LOGIN and cleared by LOGOUT.
type Session struct {
	conn       net.Conn
	codec      *protocol.Codec
	dispatcher *Dispatcher
	logger     *slog.Logger
	timeout    time.Duration

	mu       sync.Mutex
	identity auth.Identity
	token    string
	loggedIn bool
}

func newSession(conn net.Conn, dispatcher *Dispatcher, logger *slog.Logger, maxFrame int, timeout time.Duration) *Session {
	return &Session{
		conn:       conn,
		codec:      protocol.NewCodec(conn, maxFrame),
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("remote", conn.RemoteAddr().String())),
		timeout:    timeout,
	}
}

// Identity returns the session's authenticated identity, if any.
func (s *Session) Identity() (auth.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.loggedIn
}

// SetIdentity records a successful authentication for the connection.
func (s *Session) SetIdentity(identity auth.Identity, token string) {
	s.mu.Lock()
	s.identity = identity
	s.token = token
	s.loggedIn = true
	s.mu.Unlock()
}

// ClearIdentity drops the authenticated state and returns the old token.
func (s *Session) ClearIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.token
	s.identity = auth.Identity{}
	s.token = ""
	s.loggedIn = false
	return token
}

// run reads one envelope, dispatches it with a bounded execution context, and
// writes one response, until the client disconnects or a fatal I/O error
// occurs. No command is retried at this layer.
func (s *Session) run(ctx context.Context) {
	defer func() {
		_ = s.conn.Close()
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		req, err := s.codec.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Warn("read request", slog.Any("error", err))
			}
			return
		}

		cmdCtx := ctx
		cancel := func() {}
		if s.timeout > 0 {
			cmdCtx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		resp := s.dispatcher.Dispatch(cmdCtx, s, req)
		cancel()

		if err := s.codec.WriteResponse(resp); err != nil {
			s.logger.Warn("write response", slog.Any("error", err))
			return
		}
	}
}
