package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/stipendia/stipendia/internal/protocol"
)

// Options bounds per-connection resource usage.
type Options struct {
	// MaxFrameBytes caps the size of a single request frame. Zero means
	// protocol.DefaultMaxFrame.
	MaxFrameBytes int
	// CommandTimeout bounds the execution of a single command. Zero means
	// no per-command deadline.
	CommandTimeout time.Duration
}

// Server accepts TCP connections and runs one Session per connection.
type Server struct {
	addr       string
	dispatcher *Dispatcher
	logger     *slog.Logger
	opts       Options

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	draining bool
}

// New builds a Server listening on addr once Serve is called.
func New(addr string, dispatcher *Dispatcher, logger *slog.Logger, opts Options) *Server {
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = protocol.DefaultMaxFrame
	}
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		logger:     logger,
		opts:       opts,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Serve listens and accepts until ctx is cancelled. It returns after every
// active session has drained.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("listening", slog.String("addr", listener.Addr().String()))

	go func() {
		<-ctx.Done()
		_ = listener.Close()
		s.closeConns()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.untrack(conn)
			sess := newSession(conn, s.dispatcher, s.logger, s.opts.MaxFrameBytes, s.opts.CommandTimeout)
			sess.run(ctx)
		}()
	}
}

// track registers a live connection, unless shutdown already started.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// closeConns closes every live connection so sessions blocked in a read
// unblock and the serve loop can drain.
func (s *Server) closeConns() {
	s.mu.Lock()
	s.draining = true
	conns := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Addr returns the bound listener address, or empty before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
