package server

import (
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/session"
)

// ChannelInfo is the public summary of one channel
type ChannelInfo struct {
	Name  string `json:"name"`
	Users int    `json:"users"`
	Topic string `json:"topic"`
}

// Channels summarises every channel currently in the store. The result is
// not an atomic snapshot across channels.
func (s *Server) Channels() []ChannelInfo {
	var out []ChannelInfo
	for _, ch := range s.sessions.Channels.Range() {
		out = append(out, ChannelInfo{
			Name:  ch.Name,
			Users: len(ch.Members),
			Topic: ch.Topic.Text,
		})
	}
	return out
}

// handleList streams 321, one 322 per channel and 323 to the caller only
func handleList(ctx *Context, _ *irc.ListForm) {
	srv := ctx.Server
	nick := ctx.target()

	ctx.Numeric(irc.RPL_LISTSTART)
	for _, info := range srv.Channels() {
		ctx.Reply(irc.NewListEntry(srv.Name(), nick, info.Name, info.Users, info.Topic))
	}
	ctx.Numeric(irc.RPL_LISTEND)
}

func handleNames(ctx *Context, f *irc.NamesForm) {
	srv := ctx.Server
	var channel string
	var names []string
	if !srv.sessions.Channels.View(irc.Casefold(f.Channel), func(ch *session.Channel) {
		channel = ch.Name
		names = ch.Names()
	}) {
		ctx.Error(irc.ERR_NOSUCHCHANNEL, f.Channel)
		return
	}

	ctx.Reply(irc.NewNamReply(srv.Name(), ctx.target(), channel, names))
	ctx.Numeric(irc.RPL_ENDOFNAMES, channel)
}
