package server

import (
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/session"
)

func handleSilence(ctx *Context, f *irc.SilenceForm) {
	srv := ctx.Server
	add, nick, ok := f.Change()
	if !ok {
		var entries []string
		srv.sessions.Silences.View(ctx.ClientID, func(list *session.SilenceList) {
			entries = list.Nicknames()
		})
		for _, entry := range entries {
			ctx.Numeric(irc.RPL_SILELIST, entry)
		}
		ctx.Numeric(irc.RPL_ENDOFSILELIST)
		return
	}

	if add {
		limit := srv.config.Limits.MaxSilences
		if limit <= 0 {
			limit = irc.DefaultMaxSilences
		}
		ref, _ := srv.sessions.Silences.Upsert(ctx.ClientID, session.NewSilenceList)
		list := *ref.Value()
		if !list.Has(nick) && len(list) >= limit {
			ref.Release()
			ctx.Error(irc.ERR_SILELISTFULL, nick)
			return
		}
		list.Add(nick)
		ref.Release()
	} else {
		ref, ok := srv.sessions.Silences.GetMut(ctx.ClientID)
		if ok {
			list := *ref.Value()
			list.Remove(nick)
			if len(list) == 0 {
				ref.Delete()
			}
			ref.Release()
		}
	}

	c, _ := ctx.Client()
	change := "-" + nick
	if add {
		change = "+" + nick
	}
	ctx.Reply(irc.Silence{Relay: irc.NewRelay(c.Hostmask()), Nickname: change})
}

// silenced reports whether id ignores messages from nickname
func (s *Server) silenced(id session.ClientID, nickname string) bool {
	found := false
	s.sessions.Silences.View(id, func(list *session.SilenceList) {
		found = list.Has(nickname)
	})
	return found
}
