package session

import (
	"sort"

	"github.com/presbrey/flex/irc"
)

// SilenceList is the set of nicknames a client ignores, keyed by casefolded
// nickname
type SilenceList map[string]string

// NewSilenceList returns an empty list
func NewSilenceList() SilenceList {
	return make(SilenceList)
}

// Add silences nickname. It reports false if already present.
func (s SilenceList) Add(nickname string) bool {
	key := irc.Casefold(nickname)
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = nickname
	return true
}

// Remove unsilences nickname and reports whether it was present
func (s SilenceList) Remove(nickname string) bool {
	key := irc.Casefold(nickname)
	if _, ok := s[key]; !ok {
		return false
	}
	delete(s, key)
	return true
}

func (s SilenceList) Has(nickname string) bool {
	_, ok := s[irc.Casefold(nickname)]
	return ok
}

// Nicknames returns the silenced nicknames as they were added, sorted
func (s SilenceList) Nicknames() []string {
	out := make([]string, 0, len(s))
	for _, nick := range s {
		out = append(out, nick)
	}
	sort.Strings(out)
	return out
}
