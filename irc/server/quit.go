package server

import (
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/session"
)

func handleQuit(ctx *Context, f *irc.QuitForm) {
	if c, ok := ctx.Client(); ok && c.Registered {
		ctx.Reply(irc.Quit{Relay: irc.NewRelay(c.Hostmask()), Message: f.Message})
	}
	ctx.Server.cleanup(ctx.Socket, f.Message)
	ctx.Socket.Close()
}

func handlePing(ctx *Context, f *irc.PingForm) {
	ctx.Reply(irc.Pong{Relay: irc.NewRelay(ctx.Server.Name()), Token: f.Token})
}

// cleanup removes the client carried by sock from every store, telling each
// peer once. It reports false when the client was already gone.
func (s *Server) cleanup(sock Socket, message *string) bool {
	id := clientID(sock)
	c, ok := s.sessions.Clients.Remove(id)
	if !ok {
		return false
	}

	peers := make(map[session.ClientID]struct{})
	for key := range c.Channels {
		ref, ok := s.sessions.Channels.GetMut(key)
		if !ok {
			continue
		}
		ch := ref.Value()
		if ch.RemoveMember(id) {
			for member := range ch.Members {
				peers[member] = struct{}{}
			}
		}
		sock.Leave(ch.Room())
		if ch.Empty() {
			ref.Delete()
		}
		ref.Release()
	}

	if c.Registered {
		relay := irc.Quit{Relay: irc.NewRelay(c.Hostmask()), Message: message}
		for peer := range peers {
			if ps, ok := s.socket(peer); ok {
				s.Emit(ps, relay)
			}
		}
	}

	if c.Nickname != "" {
		s.sessions.ReleaseNickname(c.Nickname, id)
	}
	if c.Token != "" {
		s.sessions.Tokens.Remove(c.Token)
	}
	s.sessions.Silences.Remove(id)
	s.sockets.Remove(id)
	s.metrics.SocketClosed()

	if c.Registered {
		s.log.Info().Str("client", string(id)).Str("nickname", c.Nickname).Msg("client quit")
	}
	return true
}
