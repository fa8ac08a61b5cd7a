package server

import (
	"github.com/presbrey/flex/irc/session"
	"github.com/presbrey/flex/irc/transport"
)

// Socket is the connection capability handlers emit through.
// *transport.Socket satisfies it.
type Socket interface {
	ID() string
	RemoteHost() string
	Emit(event string, payload any) error
	// EmitTo reaches every socket in room, this one included
	EmitTo(room, event string, payload any) error
	// BroadcastTo reaches every socket in room except this one
	BroadcastTo(room, event string, payload any) error
	Join(room string)
	Leave(room string)
	Close() error
}

var _ Socket = (*transport.Socket)(nil)

// clientID maps a socket to the client it carries
func clientID(sock Socket) session.ClientID {
	return session.ClientID(sock.ID())
}

func (s *Server) socket(id session.ClientID) (Socket, bool) {
	var sock Socket
	ok := s.sockets.View(id, func(v *Socket) {
		sock = *v
	})
	return sock, ok
}

// OnConnect implements transport.Handler
func (s *Server) OnConnect(sock *transport.Socket) {
	s.Connect(sock)
}

// OnEvent implements transport.Handler
func (s *Server) OnEvent(sock *transport.Socket, event string, data []byte) {
	s.HandleEvent(sock, event, data)
}

// OnDisconnect implements transport.Handler
func (s *Server) OnDisconnect(sock *transport.Socket) {
	s.Disconnect(sock)
}
