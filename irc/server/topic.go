package server

import (
	"context"
	"strings"
	"time"

	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/history"
	"github.com/presbrey/flex/irc/session"
)

const recordTimeout = 5 * time.Second

// handleTopic queries the topic when none is given, unsets it when blank and
// sets it otherwise
func handleTopic(ctx *Context, f *irc.TopicForm) {
	if f.Topic == nil {
		queryTopic(ctx, f.Channel)
		return
	}

	srv := ctx.Server
	c, ok := ctx.Client()
	if !ok {
		return
	}

	key := irc.Casefold(f.Channel)
	ref, ok := srv.sessions.Channels.GetMut(key)
	if !ok {
		ctx.Error(irc.ERR_NOSUCHCHANNEL, f.Channel)
		return
	}
	ch := ref.Value()

	var code irc.Code
	switch {
	case !ch.IsMember(c.ID):
		code = irc.ERR_NOTONCHANNEL
	case ch.Modes.Has(session.ModeTopicLock) && !ch.IsOp(c.ID) && !c.IsOper():
		code = irc.ERR_CHANOPRIVSNEEDED
	}
	if code != 0 {
		channel := ch.Name
		ref.Release()
		ctx.Error(code, channel)
		return
	}

	// blank unsets; anything else is kept as sent
	text := *f.Topic
	by := c.Hostmask()
	now := time.Now()
	if strings.TrimSpace(text) == "" {
		text = ""
		ch.Topic.Unset(by, now)
	} else {
		ch.Topic.Set(text, by, now)
	}
	channel, room := ch.Name, ch.Room()
	ref.Release()

	srv.EmitTo(ctx.Socket, room, irc.Topic{
		Relay:   irc.NewRelay(by),
		Channel: channel,
		Topic:   text,
	})

	rctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := srv.history.RecordTopic(rctx, history.TopicChange{
		Channel:   channel,
		Text:      text,
		UpdatedBy: by,
	}); err != nil {
		srv.log.Warn().Err(err).Str("channel", channel).Msg("recording topic failed")
	}
}

func queryTopic(ctx *Context, name string) {
	srv := ctx.Server
	var topic session.Topic
	var channel string
	member := false
	if !srv.sessions.Channels.View(irc.Casefold(name), func(ch *session.Channel) {
		channel = ch.Name
		topic = ch.Topic
		member = ch.IsMember(ctx.ClientID)
	}) {
		ctx.Error(irc.ERR_NOSUCHCHANNEL, name)
		return
	}
	if !member {
		ctx.Error(irc.ERR_NOTONCHANNEL, channel)
		return
	}

	if topic.IsEmpty() {
		ctx.Numeric(irc.RPL_NOTOPIC, channel)
		return
	}
	nick := ctx.target()
	ctx.Reply(irc.NewTopicIs(srv.Name(), nick, channel, topic.Text))
	ctx.Reply(irc.NewTopicWhoTime(srv.Name(), nick, channel, topic.UpdatedBy, topic.UpdatedAt))
}
