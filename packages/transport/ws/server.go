package ws

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/abdul-hamid-achik/suitecast/packages/logx"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is one connected observer
type Session struct {
	ID         string
	RemoteAddr string
	Verbosity  int
	Query      url.Values
	Channel    *Outbound
}

// SessionHandler runs the work an observer asked for. It owns the session's
// channel until it returns; the server closes the channel afterwards. A
// handler that cannot finish the run calls Channel.Abort instead.
type SessionHandler func(ctx context.Context, s *Session)

type Server struct {
	handler          SessionHandler
	authToken        string
	allowedOrigins   map[string]bool
	allowedHosts     map[string]bool
	defaultVerbosity int
	queueSize        int

	// ctx is the parent of every session context; Shutdown cancels it
	ctx    context.Context
	cancel context.CancelFunc

	active   atomic.Int32
	sessions sync.WaitGroup
}

type ServerOption func(*Server)

// WithAuthToken requires observers to present token
func WithAuthToken(token string) ServerOption {
	return func(s *Server) {
		s.authToken = token
	}
}

// WithAllowedOrigins restricts browser origins allowed to connect
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed == "" {
				continue
			}
			s.allowedOrigins[trimmed] = true
			if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
				s.allowedHosts[parsed.Host] = true
			}
		}
	}
}

// WithDefaultVerbosity sets the verbosity used when the observer sends none
func WithDefaultVerbosity(v int) ServerOption {
	return func(s *Server) {
		s.defaultVerbosity = v
	}
}

// WithQueueSize sets the per-connection outbound buffer
func WithQueueSize(n int) ServerOption {
	return func(s *Server) {
		s.queueSize = n
	}
}

func NewServer(handler SessionHandler, opts ...ServerOption) *Server {
	s := &Server{
		handler:        handler,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		queueSize:      DefaultQueueSize,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
}

// ActiveSessions returns the number of observers currently connected
func (s *Server) ActiveSessions() int {
	return int(s.active.Load())
}

// Wait blocks until every running session has finished
func (s *Server) Wait() {
	s.sessions.Wait()
}

// Shutdown cancels the context of every running session and waits for them
// to return, or for ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	finished := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	log := logx.WithComponent("ws")

	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	verbosity := s.defaultVerbosity
	if v := r.URL.Query().Get("verbosity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid verbosity", http.StatusBadRequest)
			return
		}
		verbosity = n
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade failed")
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()
	s.active.Add(1)
	defer s.active.Add(-1)

	session := &Session{
		ID:         uuid.NewString(),
		RemoteAddr: r.RemoteAddr,
		Verbosity:  verbosity,
		Query:      r.URL.Query(),
		Channel:    NewOutbound(conn, s.queueSize),
	}
	log = log.WithField("session", session.ID)
	log.WithField("remote", r.RemoteAddr).Info("observer connected")

	// Control frames are only processed while someone reads. Observers send
	// nothing else, so anything read is discarded.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.handler(ctx, session)

	if err := session.Channel.Close(); err != nil {
		log.WithError(err).Warn("observer left before the run finished")
	}
	log.Info("session finished")
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	host := parsed.Hostname()
	return parsed.Host == r.Host || host == "localhost" || host == "127.0.0.1" || host == "::1"
}
