// Package session holds the live chat state: clients, channels and the
// per-feature indices shared by every command handler.
package session

import (
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/syncmap"
)

// Sessions is the set of stores for one running server
type Sessions struct {
	Clients   *syncmap.Map[ClientID, Client]
	Nicknames *syncmap.Map[string, ClientID] // casefolded nickname
	Channels  *syncmap.Map[string, Channel]  // casefolded channel name
	Silences  *syncmap.Map[ClientID, SilenceList]
	Tokens    *syncmap.Map[string, ClientID]
}

// New creates empty stores
func New() *Sessions {
	return &Sessions{
		Clients:   syncmap.New[ClientID, Client](),
		Nicknames: syncmap.New[string, ClientID](),
		Channels:  syncmap.New[string, Channel](),
		Silences:  syncmap.New[ClientID, SilenceList](),
		Tokens:    syncmap.New[string, ClientID](),
	}
}

// ClaimNickname reserves nickname for id. Claiming a nickname id already
// owns, in any case, succeeds.
func (s *Sessions) ClaimNickname(nickname string, id ClientID) bool {
	key := irc.Casefold(nickname)
	if s.Nicknames.InsertNew(key, id) {
		return true
	}
	owned := false
	s.Nicknames.View(key, func(owner *ClientID) {
		owned = *owner == id
	})
	return owned
}

// ReleaseNickname frees nickname if id still owns it
func (s *Sessions) ReleaseNickname(nickname string, id ClientID) bool {
	ref, ok := s.Nicknames.GetMut(irc.Casefold(nickname))
	if !ok {
		return false
	}
	defer ref.Release()

	if *ref.Value() != id {
		return false
	}
	ref.Delete()
	return true
}

// LookupNickname returns the owner of nickname
func (s *Sessions) LookupNickname(nickname string) (ClientID, bool) {
	var id ClientID
	ok := s.Nicknames.View(irc.Casefold(nickname), func(owner *ClientID) {
		id = *owner
	})
	return id, ok
}

// Snapshot returns a copy of the client, channel set included, taken under
// the client's read guard
func (s *Sessions) Snapshot(id ClientID) (Client, bool) {
	var c Client
	ok := s.Clients.View(id, func(v *Client) {
		c = *v
		c.Channels = make(map[string]struct{}, len(v.Channels))
		for k := range v.Channels {
			c.Channels[k] = struct{}{}
		}
	})
	return c, ok
}

// Authenticate resolves a session token to its client
func (s *Sessions) Authenticate(token string) (ClientID, bool) {
	if token == "" {
		return "", false
	}
	var id ClientID
	ok := s.Tokens.View(token, func(v *ClientID) {
		id = *v
	})
	return id, ok
}

// RemoveChannelIfEmpty deletes the channel under key when it has no members
func (s *Sessions) RemoveChannelIfEmpty(key string) bool {
	ref, ok := s.Channels.GetMut(key)
	if !ok {
		return false
	}
	defer ref.Release()

	if !ref.Value().Empty() {
		return false
	}
	ref.Delete()
	return true
}
