package server

import (
	"crypto/subtle"

	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/session"
)

// handleConnect registers in one step: nickname, user fields and password
func handleConnect(ctx *Context, f *irc.ConnectForm) {
	c, ok := ctx.Client()
	if !ok {
		return
	}
	if c.Registered {
		ctx.Error(irc.ERR_ALREADYREGISTERED)
		return
	}
	if !claimNickname(ctx, c, f.Nickname) {
		return
	}

	ctx.Server.sessions.Clients.Update(ctx.ClientID, func(c *session.Client) {
		c.Username = f.Username
		c.Realname = f.Realname
		if f.Password != nil {
			c.Password = *f.Password
		}
	})
	completeRegistration(ctx)
}

func handlePass(ctx *Context, f *irc.PassForm) {
	c, ok := ctx.Client()
	if !ok {
		return
	}
	if c.Registered {
		ctx.Error(irc.ERR_ALREADYREGISTERED)
		return
	}

	ctx.Server.sessions.Clients.Update(ctx.ClientID, func(c *session.Client) {
		c.Password = f.Password
	})
	completeRegistration(ctx)
}

func handleUser(ctx *Context, f *irc.UserForm) {
	c, ok := ctx.Client()
	if !ok {
		return
	}
	if c.Registered {
		ctx.Error(irc.ERR_ALREADYREGISTERED)
		return
	}

	ctx.Server.sessions.Clients.Update(ctx.ClientID, func(c *session.Client) {
		c.Username = f.Username
		c.Realname = f.Realname
	})
	completeRegistration(ctx)
}

// handleNick sets the first nickname or renames a registered client
func handleNick(ctx *Context, f *irc.NickForm) {
	c, ok := ctx.Client()
	if !ok || c.Nickname == f.Nickname {
		return
	}
	if !claimNickname(ctx, c, f.Nickname) {
		return
	}
	if !c.Registered {
		completeRegistration(ctx)
		return
	}

	srv := ctx.Server
	for key := range c.Channels {
		srv.sessions.Channels.Update(key, func(ch *session.Channel) {
			ch.Rename(ctx.ClientID, f.Nickname)
		})
	}

	relay := irc.Nick{Relay: irc.NewRelay(c.Hostmask()), Nickname: f.Nickname}
	srv.Emit(ctx.Socket, relay)
	for _, peer := range srv.peers(c, true) {
		srv.Emit(peer, relay)
	}

	srv.log.Info().Str("client", string(c.ID)).Str("from", c.Nickname).Str("to", f.Nickname).Msg("nickname changed")
}

// claimNickname moves the client to nickname, replying 433 when another
// client owns it
func claimNickname(ctx *Context, c session.Client, nickname string) bool {
	sessions := ctx.Server.sessions
	if !sessions.ClaimNickname(nickname, c.ID) {
		ctx.Error(irc.ERR_NICKNAMEINUSE, nickname)
		return false
	}

	sessions.Clients.Update(c.ID, func(c *session.Client) {
		c.Nickname = nickname
	})
	if c.Nickname != "" && irc.Casefold(c.Nickname) != irc.Casefold(nickname) {
		sessions.ReleaseNickname(c.Nickname, c.ID)
	}
	return true
}

// completeRegistration welcomes the client once nickname and username are
// both known and the connection password matches
func completeRegistration(ctx *Context) {
	srv := ctx.Server
	c, ok := ctx.Client()
	if !ok || c.Registered || c.Nickname == "" || c.Username == "" {
		return
	}

	if want := srv.config.Server.Password; want != "" &&
		subtle.ConstantTimeCompare([]byte(c.Password), []byte(want)) != 1 {
		ctx.Error(irc.ERR_PASSWDMISMATCH)
		return
	}

	var token string
	srv.sessions.Clients.Update(ctx.ClientID, func(c *session.Client) {
		c.Registered = true
		c.Password = ""
		token = c.IssueToken()
	})
	srv.sessions.Tokens.Insert(token, ctx.ClientID)

	ctx.Reply(irc.NewWelcome(srv.Name(), srv.config.Server.Network, c.Nickname, token))
	srv.log.Info().
		Str("client", string(c.ID)).
		Str("nickname", c.Nickname).
		Str("host", c.Host).
		Msg("client registered")
}

// peers returns the sockets sharing at least one channel with c, each once
func (s *Server) peers(c session.Client, excludeSelf bool) []Socket {
	seen := make(map[session.ClientID]struct{})
	for key := range c.Channels {
		s.sessions.Channels.View(key, func(ch *session.Channel) {
			for id := range ch.Members {
				seen[id] = struct{}{}
			}
		})
	}
	if excludeSelf {
		delete(seen, c.ID)
	}

	out := make([]Socket, 0, len(seen))
	for id := range seen {
		if sock, ok := s.socket(id); ok {
			out = append(out, sock)
		}
	}
	return out
}
