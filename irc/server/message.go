package server

import (
	"context"

	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/history"
	"github.com/presbrey/flex/irc/session"
)

// handleMessage relays PRIVMSG and NOTICE. NOTICE never answers with an
// error.
func handleMessage(ctx *Context, f *irc.MessageForm) {
	srv := ctx.Server
	c, ok := ctx.Client()
	if !ok {
		return
	}
	refuse := func(code irc.Code, args ...any) {
		if f.Notice {
			ctx.Outcome = OutcomeError
			return
		}
		ctx.Error(code, args...)
	}

	if irc.IsChannelName(f.Target) {
		var channel, room string
		canSpeak := false
		if !srv.sessions.Channels.View(irc.Casefold(f.Target), func(ch *session.Channel) {
			channel, room = ch.Name, ch.Room()
			canSpeak = ch.CanSpeak(c.ID)
		}) {
			refuse(irc.ERR_NOSUCHCHANNEL, f.Target)
			return
		}
		if !canSpeak {
			refuse(irc.ERR_CANNOTSENDTOCHAN, channel)
			return
		}

		srv.Broadcast(ctx.Socket, room, irc.Message{
			Relay:  irc.NewRelay(c.Hostmask()),
			Notice: f.Notice,
			Target: channel,
			Text:   f.Text,
		})

		rctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := srv.history.RecordMessage(rctx, history.MessageLog{
			Channel: channel,
			Sender:  c.Hostmask(),
			Text:    f.Text,
			Notice:  f.Notice,
		}); err != nil {
			srv.log.Warn().Err(err).Str("channel", channel).Msg("recording message failed")
		}
		return
	}

	targetID, ok := srv.sessions.LookupNickname(f.Target)
	if !ok {
		refuse(irc.ERR_NOSUCHNICK, f.Target)
		return
	}
	if srv.silenced(targetID, c.Nickname) {
		return
	}
	sock, ok := srv.socket(targetID)
	if !ok {
		return
	}
	srv.Emit(sock, irc.Message{
		Relay:  irc.NewRelay(c.Hostmask()),
		Notice: f.Notice,
		Target: f.Target,
		Text:   f.Text,
	})
}
