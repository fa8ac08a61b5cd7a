package irc

import (
	"fmt"
	"strings"

	"github.com/lrstanley/girc"
)

// ParseHostmask parses a hostmask (nick!user@host)
func ParseHostmask(hostmask string) (nick, user, host string) {
	nickParts := strings.SplitN(hostmask, "!", 2)
	if len(nickParts) < 2 {
		nick = hostmask
		return
	}
	nick = nickParts[0]

	userHostParts := strings.SplitN(nickParts[1], "@", 2)
	if len(userHostParts) < 2 {
		user = nickParts[1]
		return
	}
	user = userHostParts[0]
	host = userHostParts[1]

	return
}

// FormatHostmask formats a hostmask
func FormatHostmask(nick, user, host string) string {
	if user == "" {
		user = "*"
	}
	if host == "" {
		host = "*"
	}
	return fmt.Sprintf("%s!%s@%s", nick, user, host)
}

// NormalizeMask expands a partial ban mask: "nick" becomes "nick!*@*" and
// "user@host" becomes "*!user@host"
func NormalizeMask(mask string) string {
	switch {
	case strings.Contains(mask, "!"):
		nick, user, host := ParseHostmask(mask)
		return FormatHostmask(nick, user, host)
	case strings.Contains(mask, "@"):
		return "*!" + mask
	default:
		return mask + "!*@*"
	}
}

// MatchMask reports whether hostmask matches the glob mask, ignoring case
func MatchMask(mask, hostmask string) bool {
	return girc.Glob(Casefold(hostmask), Casefold(mask))
}
