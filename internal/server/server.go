// Package server owns the listener lifecycle of the embedded server: it
// binds the configured port on every local interface plus loopback, runs an
// admission-gated accept loop per listener, and hands accepted connections
// to per-connection handling that dispatches through the router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/embhttp/internal/config"
	"github.com/vyrodovalexey/embhttp/internal/httpio"
	"github.com/vyrodovalexey/embhttp/internal/observability"
	"github.com/vyrodovalexey/embhttp/internal/router"
	"github.com/vyrodovalexey/embhttp/internal/util"
)

// defaultAcceptDeadline bounds each accept call so the loop can notice
// context cancellation.
const defaultAcceptDeadline = 500 * time.Millisecond

// Server accepts connections and dispatches parsed requests through its
// router. The route table must be fully registered before Start; the server
// never mutates it.
type Server struct {
	cfg       config.ServerConfig
	router    *router.Router
	logger    observability.Logger
	metrics   *observability.Metrics
	gate      *AdmissionGate
	limiter   *rate.Limiter
	accessLog *httpio.AccessLogger

	addrs      []string
	listeners  []net.Listener
	wg         sync.WaitGroup
	mu         sync.RWMutex
	running    bool
	stopCh     chan struct{}
	cancelFunc context.CancelFunc
}

// New creates a server for the given configuration and route table.
// Metrics may be nil.
func New(cfg config.ServerConfig, rtr *router.Router, logger observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		cfg:       cfg,
		router:    rtr,
		logger:    logger,
		metrics:   metrics,
		gate:      NewAdmissionGate(cfg.GetEffectiveAdmissionCapacity(), metrics),
		accessLog: httpio.NewAccessLogger(logger),
		stopCh:    make(chan struct{}),
	}
	if cfg.AcceptRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst)
	}
	return s
}

// SetListenAddresses overrides interface discovery with an explicit address
// list. Intended for embedding and tests.
func (s *Server) SetListenAddresses(addrs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrs = addrs
}

// Gate returns the server's admission gate.
func (s *Server) Gate() *AdmissionGate {
	return s.gate
}

// Addrs returns the bound listener addresses. Valid after Start.
func (s *Server) Addrs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addrs := make([]string, 0, len(s.listeners))
	for _, l := range s.listeners {
		addrs = append(addrs, l.Addr().String())
	}
	return addrs
}

// Start binds all listen addresses and launches one accept loop per
// listener. It returns once the loops are running; use Stop to halt them.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	addrs := s.addrs
	if len(addrs) == 0 {
		discovered, err := listenAddresses(s.cfg.Port)
		if err != nil {
			return fmt.Errorf("discovering listen addresses: %w", err)
		}
		addrs = discovered
	}

	serverCtx, cancel := context.WithCancel(ctx)

	var listeners []net.Listener
	lc := &net.ListenConfig{}
	for _, addr := range addrs {
		l, err := lc.Listen(serverCtx, "tcp", addr)
		if err != nil {
			for _, bound := range listeners {
				_ = bound.Close()
			}
			cancel()
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		listeners = append(listeners, l)
	}

	s.listeners = listeners
	s.cancelFunc = cancel
	s.running = true
	s.stopCh = make(chan struct{})

	s.logger.Info("starting server",
		observability.Int("listeners", len(listeners)),
		observability.Int("admissionCapacity", s.gate.Capacity()),
		observability.Float64("acceptRate", s.cfg.AcceptRate),
		observability.Duration("readTimeout", s.cfg.GetEffectiveReadTimeout()),
		observability.Duration("writeTimeout", s.cfg.GetEffectiveWriteTimeout()),
	)

	for _, l := range listeners {
		s.wg.Add(1)
		go func(l net.Listener) {
			defer s.wg.Done()
			s.acceptLoop(serverCtx, l)
		}(l)
		s.logger.Info("listening", observability.String("address", l.Addr().String()))
	}

	return nil
}

// acceptLoop accepts connections on one listener. Each iteration holds an
// admission permit while the accept is pending; the permit is released as
// soon as the accept returns, so the gate bounds pending accepts rather
// than in-flight request processing.
func (s *Server) acceptLoop(ctx context.Context, l net.Listener) {
	for {
		if err := s.checkShutdown(ctx); err != nil {
			return
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
		}

		if err := s.gate.Acquire(ctx); err != nil {
			return
		}

		if err := setAcceptDeadline(l, defaultAcceptDeadline); err != nil {
			s.logger.Warn("failed to set accept deadline", observability.Error(err))
		}

		conn, err := l.Accept()
		s.gate.Release()

		if err != nil {
			if shouldContinueOnError(ctx, s.stopCh, err) {
				continue
			}
			if ctx.Err() == nil {
				s.logger.Debug("accept loop stopping", observability.Error(err))
			}
			return
		}

		s.metrics.RecordConnection()
		s.spawnConnectionHandler(ctx, conn)
	}
}

// checkShutdown reports whether the accept loop should stop.
func (s *Server) checkShutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return util.ErrServerClosed
	default:
		return nil
	}
}

// shouldContinueOnError determines whether the accept loop should continue
// after an accept error.
func shouldContinueOnError(ctx context.Context, stopCh chan struct{}, err error) bool {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}

	select {
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	default:
		return !errors.Is(err, net.ErrClosed)
	}
}

// setAcceptDeadline sets the accept deadline when the listener supports it.
func setAcceptDeadline(l net.Listener, deadline time.Duration) error {
	switch v := l.(type) {
	case *net.TCPListener:
		return v.SetDeadline(time.Now().Add(deadline))
	case interface{ SetDeadline(time.Time) error }:
		return v.SetDeadline(time.Now().Add(deadline))
	default:
		return nil
	}
}

// spawnConnectionHandler hands an accepted connection to its own goroutine
// so handling one connection never blocks acceptance of the next.
func (s *Server) spawnConnectionHandler(ctx context.Context, conn net.Conn) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handleConnection(ctx, conn)
	}()
}

// Stop halts the accept loops and waits for in-flight connection handlers
// up to the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	for _, l := range s.listeners {
		if err := l.Close(); err != nil {
			s.logger.Debug("error closing listener", observability.Error(err))
		}
	}
	s.mu.Unlock()

	timeout := s.cfg.GetEffectiveShutdownTimeout()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("server stopped")
		return nil
	case <-shutdownCtx.Done():
		s.logger.Warn("graceful shutdown timed out")
		return shutdownCtx.Err()
	}
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// listenAddresses returns one host:port per local interface address, plus a
// loopback binding on the same port.
func listenAddresses(port int) ([]string, error) {
	portStr := fmt.Sprintf("%d", port)

	seen := make(map[string]bool)
	var addrs []string
	add := func(host string) {
		addr := net.JoinHostPort(host, portStr)
		if !seen[addr] {
			seen[addr] = true
			addrs = append(addrs, addr)
		}
	}

	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, a := range ifaceAddrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP == nil {
			continue
		}
		add(ipNet.IP.String())
	}

	add("127.0.0.1")

	return addrs, nil
}
