// Package server runs the chat command pipeline: it decodes socket events
// into forms, dispatches them to command handlers and emits the replies.
package server

import (
	"time"

	"github.com/presbrey/flex/hooks"
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/config"
	"github.com/presbrey/flex/irc/history"
	"github.com/presbrey/flex/irc/session"
	"github.com/presbrey/flex/logging"
	"github.com/presbrey/flex/syncmap"
	"github.com/rs/zerolog"
)

// Metrics receives event and socket counts
type Metrics interface {
	ObserveEvent(event, outcome string)
	ObserveReply(event string)
	SocketOpened()
	SocketClosed()
}

type nopMetrics struct{}

func (nopMetrics) ObserveEvent(string, string) {}
func (nopMetrics) ObserveReply(string)         {}
func (nopMetrics) SocketOpened()               {}
func (nopMetrics) SocketClosed()               {}

// Server represents the chat server
type Server struct {
	config    *config.Config
	startTime time.Time
	sessions  *session.Sessions
	sockets   *syncmap.Map[session.ClientID, Socket]
	validator *irc.Validator
	handlers  map[string]HandlerFunc
	before    *hooks.Registry[*Context]
	after     *hooks.Registry[*Context]
	history   history.Recorder
	metrics   Metrics
	log       zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithRecorder persists topics and channel messages to rec
func WithRecorder(rec history.Recorder) Option {
	return func(s *Server) { s.history = rec }
}

// WithMetrics reports event counts to m
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server with empty session stores
func NewServer(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	srv := &Server{
		config:    cfg,
		startTime: time.Now(),
		sessions:  session.New(),
		sockets:   syncmap.New[session.ClientID, Socket](),
		validator: irc.NewValidator(irc.Limits{
			MaxNicknameSize: cfg.Limits.MaxNicknameSize,
			MaxChannelSize:  cfg.Limits.MaxChannelSize,
			Reserved:        cfg.Limits.ReservedNicknames,
		}),
		before:  hooks.NewRegistry[*Context](),
		after:   hooks.NewRegistry[*Context](),
		history: history.Nop{},
		metrics: nopMetrics{},
		log:     logging.With("server"),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.registerHandlers()
	srv.registerDefaultHooks()

	return srv
}

// Config returns the server configuration
func (s *Server) Config() *config.Config {
	return s.config
}

// Sessions exposes the live stores
func (s *Server) Sessions() *session.Sessions {
	return s.sessions
}

// History returns the recorder topics and messages are written to
func (s *Server) History() history.Recorder {
	return s.history
}

// Before returns the hooks run ahead of every handler. A hook error skips
// the handler.
func (s *Server) Before() *hooks.Registry[*Context] {
	return s.before
}

// After returns the hooks run once every event is finished
func (s *Server) After() *hooks.Registry[*Context] {
	return s.after
}

// Uptime returns how long the server has been running
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Name is the origin of server-generated replies
func (s *Server) Name() string {
	return s.config.Server.Name
}

// Connect creates an unregistered client for sock
func (s *Server) Connect(sock Socket) session.ClientID {
	id := clientID(sock)
	s.sessions.Clients.Insert(id, session.NewClient(id, sock.RemoteHost()))
	s.sockets.Insert(id, sock)
	s.metrics.SocketOpened()

	s.log.Debug().Str("client", string(id)).Str("host", sock.RemoteHost()).Msg("client connected")
	return id
}

// Disconnect removes every trace of the client carried by sock. It is a
// no-op once the client has quit.
func (s *Server) Disconnect(sock Socket) {
	if s.cleanup(sock, nil) {
		s.log.Debug().Str("client", sock.ID()).Msg("client disconnected")
	}
}

// Shutdown closes every socket
func (s *Server) Shutdown() {
	for _, sock := range s.sockets.Range() {
		(*sock).Close()
	}
}
