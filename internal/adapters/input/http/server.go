// Package http serves the Hue bridge API and the admin API on one
// listener.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

// State of the listener.
type State int

const (
	Stopped State = iota
	Starting
	Listening
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Listening:
		return "listening"
	case Stopping:
		return "stopping"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

type Options struct {
	ListenIP      string
	ListenPort    int
	AllowNonLocal bool
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	// Detector is consulted before binding; nil skips the check.
	Detector *ConflictDetector
}

type Server struct {
	opts   Options
	bridge ports.BridgePort
	admin  ports.AdminPort
	config ports.ConfigPort

	mu       sync.Mutex
	state    State
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

func NewServer(opts Options, bridge ports.BridgePort, admin ports.AdminPort, config ports.ConfigPort) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	return &Server{
		opts:   opts,
		bridge: bridge,
		admin:  admin,
		config: config,
	}
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr is the bound address while listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the port and serves in the background. A port held by
// another Hue emulator or any bind failure is a *model.BindConflictError;
// the server then stays Starting and is not retried.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Stopped {
		return fmt.Errorf("cannot start api server while %s", s.state)
	}
	s.state = Starting

	addr := net.JoinHostPort(s.opts.ListenIP, strconv.Itoa(s.opts.ListenPort))
	var holder *Holder
	if s.opts.Detector != nil && s.opts.ListenPort != 0 {
		holder = s.opts.Detector.Holder(ctx, s.opts.ListenPort)
		if holder != nil && holder.IsHueEmulator() {
			return &model.BindConflictError{
				Addr:   addr,
				Reason: fmt.Sprintf("port is held by %s which looks like the emulated_hue integration; disable it first", holder),
			}
		}
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		conflict := &model.BindConflictError{Addr: addr, Err: err}
		if holder != nil {
			conflict.Reason = "port is held by " + holder.String()
		}
		return conflict
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
	}
	s.done = make(chan struct{})
	s.state = Listening

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).
				Error("Api server stopped unexpectedly.")
		}
	}(s.server, s.done)

	log.With("address", ln.Addr().String()).
		Info("Api server listening.")
	return nil
}

// Shutdown drains open requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Listening {
		s.state = Stopped
		s.mu.Unlock()
		return nil
	}
	s.state = Stopping
	srv, done := s.server, s.done
	s.mu.Unlock()

	err := srv.Shutdown(ctx)
	if err == nil {
		<-done
	}

	s.mu.Lock()
	s.state = Stopped
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("cannot drain api server: %w", err)
	}
	log.Info("Api server stopped.")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).
			Debug("Cannot write response.")
	}
}
