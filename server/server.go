// Package server exposes the stream fanout over WebSocket. It upgrades HTTP
// requests, authenticates the session from the `i` query parameter and binds
// each socket to a stream.Connection.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/streamfan/errors"
	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// Authenticator resolves a credential string to a user and optional token.
// An invalid or unknown credential yields an anonymous session, not an error;
// errors are reserved for backend failures.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*model.User, *model.AccessToken, error)
}

// AnonymousAuthenticator treats every session as anonymous.
type AnonymousAuthenticator struct{}

// Authenticate implements Authenticator.
func (AnonymousAuthenticator) Authenticate(context.Context, string) (*model.User, *model.AccessToken, error) {
	return nil, nil, nil
}

// Config holds the server's listen and socket options.
type Config struct {
	Addr string
	Path string
	// AllowedOrigins restricts the Origin header on upgrade. Empty allows all.
	AllowedOrigins []string

	ReadBufferSize  int
	WriteBufferSize int

	// MaxChannels and StateRefreshInterval are forwarded to each connection.
	MaxChannels          int
	StateRefreshInterval time.Duration
}

// Server owns the HTTP listener and the set of live clients.
type Server struct {
	config   Config
	bus      *eventbus.Bus
	registry *stream.Registry
	services *stream.Services
	auth     Authenticator
	logger   *slog.Logger
	metrics  *stream.Metrics

	upgrader   websocket.Upgrader
	httpServer *http.Server

	clientsMu sync.Mutex
	clients   map[*client]struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// Options bundles the collaborators for New.
type Options struct {
	Config   Config
	Bus      *eventbus.Bus
	Registry *stream.Registry
	Services *stream.Services
	Auth     Authenticator
	Logger   *slog.Logger
	Metrics  *stream.Metrics
}

// New creates a server. Bus, Registry and Services are required.
func New(opts Options) (*Server, error) {
	if opts.Bus == nil || opts.Registry == nil || opts.Services == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "server", "New", "validate collaborators")
	}

	cfg := opts.Config
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	if cfg.Path == "" {
		cfg.Path = "/streaming"
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 4096
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = 4096
	}

	auth := opts.Auth
	if auth == nil {
		auth = AnonymousAuthenticator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		bus:      opts.Bus,
		registry: opts.Registry,
		services: opts.Services,
		auth:     auth,
		logger:   logger.With("component", "server"),
		metrics:  opts.Metrics,
		clients:  make(map[*client]struct{}),
		shutdown: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s, nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Start begins serving in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, func(w http.ResponseWriter, r *http.Request) {
		s.handleWebSocket(ctx, w, r)
	})

	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: mux,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error("listener failed", "addr", s.config.Addr, "error", err)
		}
	}()

	s.logger.Info("streaming server started", "addr", s.config.Addr, "path", s.config.Path)
	return nil
}

// Stop drains the listener and disposes every live client.
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("listener shutdown failed", "error", err)
		}
	}

	s.clientsMu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "server", "Stop", "wait for clients")
	}
}

func (s *Server) handleWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, token, err := s.auth.Authenticate(r.Context(), r.URL.Query().Get("i"))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(s, ws)
	conn := stream.NewConnection(stream.Options{
		User:                 user,
		Token:                token,
		Bus:                  s.bus,
		Registry:             s.registry,
		Services:             s.services,
		Sender:               c,
		Logger:               s.logger,
		Metrics:              s.metrics,
		MaxChannels:          s.config.MaxChannels,
		StateRefreshInterval: s.config.StateRefreshInterval,
	})
	c.conn = conn

	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	conn.Init(ctx)
	conn.Listen()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.run(ctx)

		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
	}()
}
