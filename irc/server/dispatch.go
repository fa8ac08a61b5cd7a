package server

import (
	"errors"
	"strings"

	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/session"
)

// Event outcomes reported to Metrics
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeInvalid  = "invalid"
	OutcomeUnknown  = "unknown"
	OutcomeRejected = "rejected"
)

var errNotRegistered = errors.New("client not registered")

// HandlerFunc runs one decoded command
type HandlerFunc func(ctx *Context, form irc.Form)

// handle adapts a handler taking its concrete form type
func handle[F irc.Form](fn func(*Context, F)) HandlerFunc {
	return func(ctx *Context, form irc.Form) {
		fn(ctx, form.(F))
	}
}

// Context carries one inbound event through hooks and its handler
type Context struct {
	Server   *Server
	Socket   Socket
	ClientID session.ClientID
	Command  string
	Form     irc.Form
	Outcome  string
}

// Client returns a copy of the caller's client
func (ctx *Context) Client() (session.Client, bool) {
	return ctx.Server.sessions.Snapshot(ctx.ClientID)
}

// Reply sends r to the caller
func (ctx *Context) Reply(r irc.Reply) {
	ctx.Server.Emit(ctx.Socket, r)
}

// Numeric sends a templated numeric to the caller
func (ctx *Context) Numeric(code irc.Code, args ...any) {
	ctx.Reply(irc.NewNumeric(ctx.Server.Name(), ctx.target(), code, args...))
}

// Error sends an error numeric to the caller and marks the event failed
func (ctx *Context) Error(code irc.Code, args ...any) {
	ctx.Fail(irc.NewNumeric(ctx.Server.Name(), ctx.target(), code, args...))
}

// Fail sends a prepared error reply to the caller and marks the event failed
func (ctx *Context) Fail(r irc.Reply) {
	ctx.Outcome = OutcomeError
	ctx.Server.log.Debug().
		Str("client", string(ctx.ClientID)).
		Str("command", ctx.Command).
		Str("reply", r.Event()).
		Msg("command refused")
	ctx.Reply(r)
}

// target is the nickname numerics are addressed to, "*" before NICK
func (ctx *Context) target() string {
	nick := ""
	ctx.Server.sessions.Clients.View(ctx.ClientID, func(c *session.Client) {
		nick = c.Nickname
	})
	if nick == "" {
		return "*"
	}
	return nick
}

func (s *Server) registerHandlers() {
	s.handlers = map[string]HandlerFunc{
		irc.CmdConnect: handle(handleConnect),
		irc.CmdPass:    handle(handlePass),
		irc.CmdNick:    handle(handleNick),
		irc.CmdUser:    handle(handleUser),
		irc.CmdOper:    handle(handleOper),
		irc.CmdJoin:    handle(handleJoin),
		irc.CmdPart:    handle(handlePart),
		irc.CmdSapart:  handle(handleSapart),
		irc.CmdInvite:  handle(handleInvite),
		irc.CmdKick:    handle(handleKick),
		irc.CmdList:    handle(handleList),
		irc.CmdNames:   handle(handleNames),
		irc.CmdTopic:   handle(handleTopic),
		irc.CmdMode:    handle(handleMode),
		irc.CmdSilence: handle(handleSilence),
		irc.CmdPrivmsg: handle(handleMessage),
		irc.CmdNotice:  handle(handleMessage),
		irc.CmdQuit:    handle(handleQuit),
		irc.CmdPing:    handle(handlePing),
	}
}

// commands a client may send before registration completes
var preRegistration = map[string]bool{
	irc.CmdConnect: true,
	irc.CmdPass:    true,
	irc.CmdNick:    true,
	irc.CmdUser:    true,
	irc.CmdQuit:    true,
	irc.CmdPing:    true,
}

func (s *Server) registerDefaultHooks() {
	s.before.RegisterWithPriority(requireRegistration, -100)
	s.after.Register(s.observeEvent)
}

func requireRegistration(ctx *Context) error {
	if preRegistration[ctx.Command] {
		return nil
	}
	registered := false
	ctx.Server.sessions.Clients.View(ctx.ClientID, func(c *session.Client) {
		registered = c.Registered
	})
	if !registered {
		ctx.Error(irc.ERR_NOTREGISTERED)
		return errNotRegistered
	}
	return nil
}

func (s *Server) observeEvent(ctx *Context) error {
	s.metrics.ObserveEvent(ctx.Command, ctx.Outcome)
	return nil
}

// HandleEvent decodes one inbound event and runs it to completion. Events
// from a single socket must not be handled concurrently.
func (s *Server) HandleEvent(sock Socket, event string, data []byte) {
	ctx := &Context{
		Server:   s,
		Socket:   sock,
		ClientID: clientID(sock),
		Command:  strings.ToUpper(event),
		Outcome:  OutcomeOK,
	}
	defer s.after.RunAll(ctx)

	if !s.sessions.Clients.Has(ctx.ClientID) {
		ctx.Outcome = OutcomeRejected
		return
	}

	form, err := s.validator.Decode(event, data)
	switch {
	case errors.Is(err, irc.ErrUnknownCommand):
		ctx.Error(irc.ERR_UNKNOWNCOMMAND, ctx.Command)
		ctx.Outcome = OutcomeUnknown
		return
	case err != nil:
		s.log.Debug().Err(err).Str("client", string(ctx.ClientID)).Str("command", ctx.Command).Msg("invalid payload")
		ctx.Outcome = OutcomeInvalid
		return
	}

	ctx.Form = form
	ctx.Command = form.Command()

	if err := s.before.Run(ctx); err != nil {
		ctx.Outcome = OutcomeRejected
		return
	}

	s.handlers[ctx.Command](ctx, form)
}
