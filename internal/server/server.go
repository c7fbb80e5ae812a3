package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/devninja1/kiosk-app/internal/config"
	"github.com/devninja1/kiosk-app/internal/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type Server struct {
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	running  bool
	wg       sync.WaitGroup

	logger *logger.Logger
}

func NewServer(handler http.Handler, cfg config.ClientServer, logger *logger.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

// Listen binds the listen address. Start calls it when it was not called
// before.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listen()
}

func (s *Server) listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %w", ErrListen, s.server.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr is the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Start serves in a background goroutine. Request contexts derive from ctx.
// A stopped Server cannot be started again.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if err := s.listen(); err != nil {
		s.logger.Err(err).Msg("local api not started")
		return
	}
	s.running = true

	s.server.BaseContext = func(net.Listener) context.Context { return ctx }
	ln := s.listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Info().Str("address", ln.Addr().String()).Msg("local api listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Err(err).Msg("local api stopped serving")
		}
	}()
}

// Stop shuts the server down gracefully and waits for the serve loop. It
// also releases a listener bound by Listen but never served.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		if s.listener != nil {
			_ = s.listener.Close()
			s.listener = nil
		}
		return
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Err(err).Msg("local api shutdown")
	}
	s.wg.Wait()
	s.listener = nil
}
