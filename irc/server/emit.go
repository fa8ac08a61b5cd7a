package server

import (
	"github.com/presbrey/flex/irc"
)

// Emit sends r to sock. Transport failures are logged and dropped.
func (s *Server) Emit(sock Socket, r irc.Reply) {
	if err := sock.Emit(r.Event(), r); err != nil {
		s.log.Debug().Err(err).Str("socket", sock.ID()).Str("event", r.Event()).Msg("emit failed")
		return
	}
	s.metrics.ObserveReply(r.Event())
}

// EmitTo sends r to every socket in room, sock included
func (s *Server) EmitTo(sock Socket, room string, r irc.Reply) {
	if err := sock.EmitTo(room, r.Event(), r); err != nil {
		s.log.Debug().Err(err).Str("room", room).Str("event", r.Event()).Msg("emit failed")
	}
	s.metrics.ObserveReply(r.Event())
}

// Broadcast sends r to every socket in room except sock
func (s *Server) Broadcast(sock Socket, room string, r irc.Reply) {
	if err := sock.BroadcastTo(room, r.Event(), r); err != nil {
		s.log.Debug().Err(err).Str("room", room).Str("event", r.Event()).Msg("broadcast failed")
	}
	s.metrics.ObserveReply(r.Event())
}
