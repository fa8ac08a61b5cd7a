package server

import (
	"strconv"
	"strings"

	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/session"
)

// modeResult collects the changes MODE applied and the errors it hit
type modeResult struct {
	modes   strings.Builder
	args    []string
	sign    rune
	unknown []rune
	absent  []string
}

func (r *modeResult) applied(add bool, mode rune, arg string) {
	sign := '-'
	if add {
		sign = '+'
	}
	if sign != r.sign {
		r.modes.WriteRune(sign)
		r.sign = sign
	}
	r.modes.WriteRune(mode)
	if arg != "" {
		r.args = append(r.args, arg)
	}
}

// handleMode shows the channel modes or changes them. Changes need channel
// operator status or operator privileges.
func handleMode(ctx *Context, f *irc.ModeForm) {
	srv := ctx.Server
	if f.Modes == nil {
		var channel, modes string
		if !srv.sessions.Channels.View(irc.Casefold(f.Channel), func(ch *session.Channel) {
			channel = ch.Name
			modes = ch.Modes.String()
		}) {
			ctx.Error(irc.ERR_NOSUCHCHANNEL, f.Channel)
			return
		}
		ctx.Reply(irc.NewChannelModeIs(srv.Name(), ctx.target(), channel, modes))
		return
	}

	c, ok := ctx.Client()
	if !ok {
		return
	}
	ref, ok := srv.sessions.Channels.GetMut(irc.Casefold(f.Channel))
	if !ok {
		ctx.Error(irc.ERR_NOSUCHCHANNEL, f.Channel)
		return
	}
	ch := ref.Value()
	if !ch.IsOp(c.ID) && !c.IsOper() {
		channel := ch.Name
		ref.Release()
		ctx.Error(irc.ERR_CHANOPRIVSNEEDED, channel)
		return
	}

	res := applyModes(ch, *f.Modes, f.Args)
	channel, room := ch.Name, ch.Room()
	ref.Release()

	for _, mode := range res.unknown {
		ctx.Error(irc.ERR_UNKNOWNMODE, mode)
	}
	for _, nick := range res.absent {
		ctx.Error(irc.ERR_USERNOTINCHANNEL, nick, channel)
	}
	if res.modes.Len() == 0 {
		return
	}

	srv.EmitTo(ctx.Socket, room, irc.Mode{
		Relay:   irc.NewRelay(c.Hostmask()),
		Channel: channel,
		Modes:   res.modes.String(),
		Args:    res.args,
	})
}

// applyModes walks a validated mode string such as "+kl-i", taking
// parameters from args in order. Changes missing a parameter are skipped.
func applyModes(ch *session.Channel, modes string, args []string) *modeResult {
	res := &modeResult{}
	next := func() (string, bool) {
		if len(args) == 0 {
			return "", false
		}
		arg := args[0]
		args = args[1:]
		return arg, true
	}

	add := true
	for _, mode := range modes {
		switch mode {
		case '+', '-':
			add = mode == '+'

		case session.ModeInviteOnly, session.ModeTopicLock, session.ModeNoExternal, session.ModeModerated:
			if add == ch.Modes.Has(mode) {
				continue
			}
			if add {
				ch.Modes.Set(mode, "")
			} else {
				ch.Modes.Unset(mode)
			}
			res.applied(add, mode, "")

		case session.ModeKey:
			if !add {
				if ch.Modes.Has(mode) {
					ch.Modes.Unset(mode)
					res.applied(false, mode, "")
				}
				continue
			}
			if key, ok := next(); ok && key != "" {
				ch.Modes.Set(mode, key)
				res.applied(true, mode, key)
			}

		case session.ModeLimit:
			if !add {
				if ch.Modes.Has(mode) {
					ch.Modes.Unset(mode)
					res.applied(false, mode, "")
				}
				continue
			}
			arg, ok := next()
			if !ok {
				continue
			}
			if n, err := strconv.Atoi(arg); err == nil && n > 0 {
				ch.Modes.Set(mode, strconv.Itoa(n))
				res.applied(true, mode, strconv.Itoa(n))
			}

		case session.ModeBan:
			arg, ok := next()
			if !ok {
				continue
			}
			mask := irc.NormalizeMask(arg)
			if add && ch.Modes.AddMask(mode, mask) || !add && ch.Modes.RemoveMask(mode, mask) {
				res.applied(add, mode, mask)
			}

		case session.ModeOp, session.ModeVoice:
			nick, ok := next()
			if !ok {
				continue
			}
			_, m, found := ch.MemberByNick(nick)
			if !found {
				res.absent = append(res.absent, nick)
				continue
			}
			if mode == session.ModeOp {
				m.Op = add
			} else {
				m.Voice = add
			}
			res.applied(add, mode, m.Nickname)

		default:
			res.unknown = append(res.unknown, mode)
		}
	}
	return res
}
