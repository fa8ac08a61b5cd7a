package server

import (
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/session"
)

// handleInvite lets a client past +i once. The invite is only recorded;
// joining is up to the target.
func handleInvite(ctx *Context, f *irc.InviteForm) {
	srv := ctx.Server
	c, ok := ctx.Client()
	if !ok {
		return
	}

	targetID, ok := srv.sessions.LookupNickname(f.Nickname)
	if !ok {
		ctx.Error(irc.ERR_NOSUCHNICK, f.Nickname)
		return
	}

	key := irc.Casefold(f.Channel)
	var code irc.Code
	var args []any
	channel := f.Channel
	exists := srv.sessions.Channels.View(key, func(ch *session.Channel) {
		channel = ch.Name
		switch {
		case !ch.IsMember(c.ID):
			code, args = irc.ERR_NOTONCHANNEL, []any{ch.Name}
		case ch.IsMember(targetID):
			code, args = irc.ERR_USERONCHANNEL, []any{f.Nickname, ch.Name}
		case ch.Modes.Has(session.ModeInviteOnly) && !ch.IsOp(c.ID):
			code, args = irc.ERR_CHANOPRIVSNEEDED, []any{ch.Name}
		}
	})
	if !exists {
		ctx.Error(irc.ERR_NOSUCHCHANNEL, f.Channel)
		return
	}
	if code != 0 {
		ctx.Error(code, args...)
		return
	}

	// the channel may have emptied since the checks
	if !srv.sessions.Channels.Update(key, func(ch *session.Channel) {
		ch.Invite(targetID)
	}) {
		return
	}

	ctx.Reply(irc.NewInviting(srv.Name(), c.Nickname, f.Nickname, channel))
	if sock, ok := srv.socket(targetID); ok {
		srv.Emit(sock, irc.Invite{
			Relay:    irc.NewRelay(c.Hostmask()),
			Nickname: f.Nickname,
			Channel:  channel,
		})
	}
}

// handleKick removes a member. Global operators carry NoKick and stay put.
func handleKick(ctx *Context, f *irc.KickForm) {
	srv := ctx.Server
	c, ok := ctx.Client()
	if !ok {
		return
	}

	// victim state is read before the channel guard is taken
	victimID, victimExists := srv.sessions.LookupNickname(f.Nickname)
	var victim session.Client
	var victimSock Socket
	if victimExists {
		victim, victimExists = srv.sessions.Snapshot(victimID)
		victimSock, _ = srv.socket(victimID)
	}

	key := irc.Casefold(f.Channel)
	ref, ok := srv.sessions.Channels.GetMut(key)
	if !ok {
		ctx.Error(irc.ERR_NOSUCHCHANNEL, f.Channel)
		return
	}
	ch := ref.Value()

	var refusal irc.Reply
	switch {
	case !ch.IsMember(c.ID):
		refusal = irc.NewNumeric(srv.Name(), c.Nickname, irc.ERR_NOTONCHANNEL, ch.Name)
	case !ch.IsOp(c.ID) && !c.IsOper():
		refusal = irc.NewNumeric(srv.Name(), c.Nickname, irc.ERR_CHANOPRIVSNEEDED, ch.Name)
	case !victimExists:
		refusal = irc.NewNumeric(srv.Name(), c.Nickname, irc.ERR_NOSUCHNICK, f.Nickname)
	case !ch.IsMember(victimID):
		refusal = irc.NewNumeric(srv.Name(), c.Nickname, irc.ERR_USERNOTINCHANNEL, f.Nickname, ch.Name)
	case victim.NoKick:
		refusal = irc.NewCannotKickGlobops(srv.Name(), c.Nickname, ch.Name, victim.Nickname)
	}
	if refusal != nil {
		ref.Release()
		ctx.Fail(refusal)
		return
	}

	srv.EmitTo(ctx.Socket, ch.Room(), irc.Kick{
		Relay:    irc.NewRelay(c.Hostmask()),
		Channel:  ch.Name,
		Nickname: victim.Nickname,
		Reason:   f.Reason,
	})

	ch.RemoveMember(victimID)
	if victimSock != nil {
		victimSock.Leave(ch.Room())
	}
	srv.sessions.Clients.Update(victimID, func(c *session.Client) {
		delete(c.Channels, key)
	})
	channel := ch.Name
	if ch.Empty() {
		ref.Delete()
	}
	ref.Release()

	srv.log.Debug().Str("channel", channel).Str("by", c.Nickname).Str("victim", victim.Nickname).Msg("kicked")
}
