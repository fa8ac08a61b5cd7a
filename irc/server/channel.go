package server

import (
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/session"
)

func handleJoin(ctx *Context, f *irc.JoinForm) {
	c, ok := ctx.Client()
	if !ok {
		return
	}
	for i, name := range f.Channels {
		joinChannel(ctx, c, name, f.Key(i))
	}
}

// joinChannel admits c to name, creating the channel if needed. Room and
// client membership change under the channel guard so they never disagree
// with the channel's member set.
func joinChannel(ctx *Context, c session.Client, name, key string) {
	srv := ctx.Server
	ref, created := srv.sessions.Channels.Upsert(irc.Casefold(name), func() session.Channel {
		return session.NewChannel(name)
	})
	ch := ref.Value()

	if ch.IsMember(c.ID) {
		ref.Release()
		return
	}
	if !created {
		if code := admit(ch, c, key); code != 0 {
			channel := ch.Name
			ref.Release()
			ctx.Error(code, channel)
			return
		}
	}

	ch.ConsumeInvite(c.ID)
	ch.AddMember(c.ID, c.Nickname)
	ctx.Socket.Join(ch.Room())
	srv.sessions.Clients.Update(c.ID, func(c *session.Client) {
		c.Channels[ch.Key()] = struct{}{}
	})

	channel, room := ch.Name, ch.Room()
	topic := ch.Topic
	names := ch.Names()
	ref.Release()

	srv.EmitTo(ctx.Socket, room, irc.Join{Relay: irc.NewRelay(c.Hostmask()), Channel: channel})
	if !topic.IsEmpty() {
		ctx.Reply(irc.NewTopicIs(srv.Name(), c.Nickname, channel, topic.Text))
		ctx.Reply(irc.NewTopicWhoTime(srv.Name(), c.Nickname, channel, topic.UpdatedBy, topic.UpdatedAt))
	}
	ctx.Reply(irc.NewNamReply(srv.Name(), c.Nickname, channel, names))
	ctx.Numeric(irc.RPL_ENDOFNAMES, channel)

	srv.log.Debug().Str("client", string(c.ID)).Str("channel", channel).Bool("created", created).Msg("joined channel")
}

// admit returns the error code keeping c out of an existing channel, or 0
func admit(ch *session.Channel, c session.Client, key string) irc.Code {
	switch {
	case ch.IsBanned(c.Hostmask()) || ch.IsBanned(c.RealHostmask()):
		return irc.ERR_BANNEDFROMCHAN
	case ch.Modes.Has(session.ModeInviteOnly) && !ch.IsInvited(c.ID) && !c.IsOper():
		return irc.ERR_INVITEONLYCHAN
	case ch.Modes.Has(session.ModeKey) && ch.Modes.Param(session.ModeKey) != key:
		return irc.ERR_BADCHANNELKEY
	case ch.Modes.Has(session.ModeLimit) && len(ch.Members) >= ch.Modes.Limit():
		return irc.ERR_CHANNELISFULL
	}
	return 0
}

func handlePart(ctx *Context, f *irc.PartForm) {
	c, ok := ctx.Client()
	if !ok {
		return
	}
	partChannels(ctx.Server, ctx.Socket, c, f.Channels, f.Message)
}

// handleSapart forces another client out of channels
func handleSapart(ctx *Context, f *irc.SapartForm) {
	srv := ctx.Server
	c, ok := ctx.Client()
	if !ok {
		return
	}
	if !c.IsOper() {
		ctx.Error(irc.ERR_NOPRIVILEGES)
		return
	}

	id, ok := srv.sessions.LookupNickname(f.Nickname)
	if !ok {
		ctx.Error(irc.ERR_NOSUCHNICK, f.Nickname)
		return
	}
	victim, ok := srv.sessions.Snapshot(id)
	if !ok {
		return
	}
	sock, ok := srv.socket(id)
	if !ok {
		return
	}

	partChannels(srv, sock, victim, f.Channels, nil)
	srv.log.Info().Str("oper", c.Nickname).Str("target", victim.Nickname).Strs("channels", f.Channels).Msg("forced part")
}

// partChannels removes c from each named channel it belongs to. Missing
// channels and channels c is not in are skipped.
func partChannels(srv *Server, sock Socket, c session.Client, channels []string, message *string) {
	for _, name := range channels {
		key := irc.Casefold(name)
		ref, ok := srv.sessions.Channels.GetMut(key)
		if !ok {
			continue
		}
		ch := ref.Value()
		if !ch.IsMember(c.ID) {
			ref.Release()
			continue
		}

		// relayed before removal so the leaving client sees it too
		srv.EmitTo(sock, ch.Room(), irc.Part{
			Relay:   irc.NewRelay(c.Hostmask()),
			Channel: ch.Name,
			Message: message,
		})

		ch.RemoveMember(c.ID)
		sock.Leave(ch.Room())
		srv.sessions.Clients.Update(c.ID, func(c *session.Client) {
			delete(c.Channels, key)
		})
		if ch.Empty() {
			ref.Delete()
		}
		ref.Release()
	}
}
