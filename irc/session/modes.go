package session

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/presbrey/flex/irc"
)

// Channel mode letters
const (
	ModeInviteOnly rune = 'i'
	ModeTopicLock  rune = 't'
	ModeNoExternal rune = 'n'
	ModeModerated  rune = 'm'
	ModeKey        rune = 'k'
	ModeLimit      rune = 'l'
	ModeBan        rune = 'b'
	ModeOp         rune = 'o'
	ModeVoice      rune = 'v'
)

// AppliedMode is the value of one set mode: a parameter for k and l, a mask
// list for b, nothing for plain flags
type AppliedMode struct {
	Param string
	Masks []string
}

// ChannelModes maps a mode letter to its applied value
type ChannelModes map[rune]AppliedMode

// DefaultChannelModes returns +nt
func DefaultChannelModes() ChannelModes {
	return ChannelModes{
		ModeNoExternal: {},
		ModeTopicLock:  {},
	}
}

func (m ChannelModes) Set(mode rune, param string) {
	m[mode] = AppliedMode{Param: param, Masks: m[mode].Masks}
}

func (m ChannelModes) Unset(mode rune) {
	delete(m, mode)
}

func (m ChannelModes) Has(mode rune) bool {
	_, ok := m[mode]
	return ok
}

func (m ChannelModes) Param(mode rune) string {
	return m[mode].Param
}

// Limit returns the +l member limit, or 0 when unlimited
func (m ChannelModes) Limit() int {
	if !m.Has(ModeLimit) {
		return 0
	}
	n, err := strconv.Atoi(m.Param(ModeLimit))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// AddMask adds mask to a list mode. It reports false if already present.
func (m ChannelModes) AddMask(mode rune, mask string) bool {
	am := m[mode]
	if slices.ContainsFunc(am.Masks, func(s string) bool { return irc.Casefold(s) == irc.Casefold(mask) }) {
		return false
	}
	am.Masks = append(am.Masks, mask)
	m[mode] = am
	return true
}

// RemoveMask removes mask from a list mode, unsetting the mode once empty
func (m ChannelModes) RemoveMask(mode rune, mask string) bool {
	am, ok := m[mode]
	if !ok {
		return false
	}
	i := slices.IndexFunc(am.Masks, func(s string) bool { return irc.Casefold(s) == irc.Casefold(mask) })
	if i < 0 {
		return false
	}
	am.Masks = slices.Delete(slices.Clone(am.Masks), i, i+1)
	if len(am.Masks) == 0 {
		delete(m, mode)
		return true
	}
	m[mode] = am
	return true
}

func (m ChannelModes) Masks(mode rune) []string {
	return slices.Clone(m[mode].Masks)
}

// String renders the flag and parameter modes as "+iklnt key 10". List modes
// are omitted.
func (m ChannelModes) String() string {
	letters := make([]rune, 0, len(m))
	for mode := range m {
		if mode == ModeBan {
			continue
		}
		letters = append(letters, mode)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })

	var b strings.Builder
	b.WriteByte('+')
	var params []string
	for _, mode := range letters {
		b.WriteRune(mode)
		if p := m[mode].Param; p != "" {
			params = append(params, p)
		}
	}
	if len(params) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(params, " "))
	}
	return b.String()
}
