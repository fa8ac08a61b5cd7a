package server

import (
	"crypto/subtle"
	"strings"

	"github.com/lrstanley/girc"
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/config"
	"github.com/presbrey/flex/irc/session"
	"golang.org/x/crypto/bcrypt"
)

// handleOper grants operator status. An unknown account and a host outside
// the account's masks both answer 491; only a bad password answers 464.
func handleOper(ctx *Context, f *irc.OperForm) {
	c, ok := ctx.Client()
	if !ok {
		return
	}

	op, ok := ctx.Server.config.Operator(f.Name)
	if !ok || !hostAllowed(op, c) {
		ctx.Error(irc.ERR_NOOPERHOST)
		return
	}
	if !checkPassword(op.Password, f.Password) {
		ctx.Server.log.Warn().Str("client", string(c.ID)).Str("oper", op.Name).Msg("operator password mismatch")
		ctx.Error(irc.ERR_PASSWDMISMATCH)
		return
	}

	global := op.IsGlobal()
	ctx.Server.sessions.Clients.Update(ctx.ClientID, func(c *session.Client) {
		c.Oper = &session.OperType{Name: op.Name, Global: global}
		c.NoKick = global
		if op.VHost != "" {
			c.VHost = op.VHost
		}
	})

	ctx.Numeric(irc.RPL_YOUREOPER)
	ctx.Server.log.Info().
		Str("client", string(c.ID)).
		Str("nickname", c.Nickname).
		Str("oper", op.Name).
		Bool("global", global).
		Msg("client is now an operator")
}

// hostAllowed matches the account's masks against user@host and the bare
// host. An account without masks admits nobody.
func hostAllowed(op config.Operator, c session.Client) bool {
	userHost := irc.Casefold(c.Username + "@" + c.Host)
	host := irc.Casefold(c.Host)
	for _, mask := range op.Hosts {
		mask = irc.Casefold(mask)
		if girc.Glob(userHost, mask) || girc.Glob(host, mask) {
			return true
		}
	}
	return false
}

// checkPassword accepts a bcrypt hash or a plain text secret
func checkPassword(stored, supplied string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
