package session

import (
	"sort"
	"time"

	"github.com/presbrey/flex/irc"
)

// Member is one client's membership of a channel
type Member struct {
	Nickname string
	Op       bool
	Voice    bool
}

// Prefix returns the NAMES prefix for the member's highest role
func (m *Member) Prefix() string {
	switch {
	case m.Op:
		return "@"
	case m.Voice:
		return "+"
	}
	return ""
}

// Channel represents a chat channel. A channel with no members must not
// remain in the store.
type Channel struct {
	Name      string
	Members   map[ClientID]*Member
	Topic     Topic
	Invites   map[ClientID]struct{}
	Modes     ChannelModes
	CreatedAt time.Time
}

// NewChannel creates an empty channel with the default modes
func NewChannel(name string) Channel {
	return Channel{
		Name:      name,
		Members:   make(map[ClientID]*Member),
		Invites:   make(map[ClientID]struct{}),
		Modes:     DefaultChannelModes(),
		CreatedAt: time.Now(),
	}
}

// Key returns the casefolded store key of the channel
func (c *Channel) Key() string {
	return irc.Casefold(c.Name)
}

// Room returns the broadcast room of the channel
func (c *Channel) Room() string {
	return Room(c.Name)
}

// Room returns the broadcast room for a channel name
func Room(channel string) string {
	return "channel:" + irc.Casefold(channel)
}

// AddMember adds id; the first member of a channel becomes an operator
func (c *Channel) AddMember(id ClientID, nickname string) *Member {
	m := &Member{Nickname: nickname, Op: len(c.Members) == 0}
	c.Members[id] = m
	return m
}

// RemoveMember removes id and reports whether it was a member
func (c *Channel) RemoveMember(id ClientID) bool {
	if _, ok := c.Members[id]; !ok {
		return false
	}
	delete(c.Members, id)
	delete(c.Invites, id)
	return true
}

func (c *Channel) Member(id ClientID) (*Member, bool) {
	m, ok := c.Members[id]
	return m, ok
}

func (c *Channel) IsMember(id ClientID) bool {
	_, ok := c.Members[id]
	return ok
}

// IsOp reports whether id is a channel operator
func (c *Channel) IsOp(id ClientID) bool {
	m, ok := c.Members[id]
	return ok && m.Op
}

// CanSpeak reports whether id may talk under +m
func (c *Channel) CanSpeak(id ClientID) bool {
	m, ok := c.Members[id]
	if !ok {
		return !c.Modes.Has(ModeNoExternal) && !c.Modes.Has(ModeModerated)
	}
	if c.Modes.Has(ModeModerated) {
		return m.Op || m.Voice
	}
	return true
}

// MemberByNick finds a member by nickname, ignoring case
func (c *Channel) MemberByNick(nickname string) (ClientID, *Member, bool) {
	folded := irc.Casefold(nickname)
	for id, m := range c.Members {
		if irc.Casefold(m.Nickname) == folded {
			return id, m, true
		}
	}
	return "", nil, false
}

// Rename updates the nickname cached on a membership
func (c *Channel) Rename(id ClientID, nickname string) {
	if m, ok := c.Members[id]; ok {
		m.Nickname = nickname
	}
}

// Names returns the prefixed member nicknames in sorted order
func (c *Channel) Names() []string {
	names := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		names = append(names, m.Prefix()+m.Nickname)
	}
	sort.Strings(names)
	return names
}

// Invite lets id bypass +i once
func (c *Channel) Invite(id ClientID) {
	c.Invites[id] = struct{}{}
}

func (c *Channel) IsInvited(id ClientID) bool {
	_, ok := c.Invites[id]
	return ok
}

// ConsumeInvite removes the invite for id and reports whether there was one
func (c *Channel) ConsumeInvite(id ClientID) bool {
	if _, ok := c.Invites[id]; !ok {
		return false
	}
	delete(c.Invites, id)
	return true
}

// IsBanned reports whether hostmask matches any +b mask
func (c *Channel) IsBanned(hostmask string) bool {
	for _, mask := range c.Modes.Masks(ModeBan) {
		if irc.MatchMask(mask, hostmask) {
			return true
		}
	}
	return false
}

// Empty reports whether the channel has no members
func (c *Channel) Empty() bool {
	return len(c.Members) == 0
}
