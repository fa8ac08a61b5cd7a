package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicSetUnset(t *testing.T) {
	var topic Topic
	assert.True(t, topic.IsEmpty())

	before := time.Now()
	topic.Set("hello", "alice!al@host", time.Now())
	assert.False(t, topic.IsEmpty())
	assert.Equal(t, "hello", topic.Text)
	assert.Equal(t, "alice!al@host", topic.UpdatedBy)
	assert.False(t, topic.UpdatedAt.Before(before))

	topic.Unset("bob!b@host", time.Now())
	assert.True(t, topic.IsEmpty())
	assert.Equal(t, "bob!b@host", topic.UpdatedBy)
}

func TestChannelModes(t *testing.T) {
	m := DefaultChannelModes()
	assert.True(t, m.Has(ModeNoExternal))
	assert.True(t, m.Has(ModeTopicLock))
	assert.Equal(t, "+nt", m.String())

	m.Set(ModeKey, "secret")
	m.Set(ModeLimit, "10")
	assert.Equal(t, 10, m.Limit())
	assert.Equal(t, "secret", m.Param(ModeKey))
	assert.Equal(t, "+klnt secret 10", m.String())

	m.Unset(ModeLimit)
	assert.Equal(t, 0, m.Limit())

	m.Set(ModeLimit, "junk")
	assert.Equal(t, 0, m.Limit())

	assert.True(t, m.AddMask(ModeBan, "*!*@bad.host"))
	assert.False(t, m.AddMask(ModeBan, "*!*@BAD.host"))
	assert.Equal(t, []string{"*!*@bad.host"}, m.Masks(ModeBan))
	assert.NotContains(t, m.String(), "bad.host")

	assert.True(t, m.RemoveMask(ModeBan, "*!*@bad.host"))
	assert.False(t, m.Has(ModeBan))
	assert.False(t, m.RemoveMask(ModeBan, "*!*@bad.host"))
}

func TestChannelMembership(t *testing.T) {
	ch := NewChannel("#General")
	assert.Equal(t, "#general", ch.Key())
	assert.Equal(t, "channel:#general", ch.Room())
	assert.True(t, ch.Empty())

	first := ch.AddMember("a", "alice")
	second := ch.AddMember("b", "bob")
	assert.True(t, first.Op)
	assert.False(t, second.Op)

	second.Voice = true
	assert.Equal(t, []string{"+bob", "@alice"}, ch.Names())

	id, m, ok := ch.MemberByNick("BOB")
	require.True(t, ok)
	assert.Equal(t, ClientID("b"), id)
	assert.Equal(t, "bob", m.Nickname)

	ch.Rename("b", "robert")
	_, _, ok = ch.MemberByNick("bob")
	assert.False(t, ok)

	assert.True(t, ch.RemoveMember("a"))
	assert.False(t, ch.RemoveMember("a"))
	assert.False(t, ch.Empty())
}

func TestChannelInvitesAndBans(t *testing.T) {
	ch := NewChannel("#a")
	ch.Invite("x")
	assert.True(t, ch.IsInvited("x"))
	assert.True(t, ch.ConsumeInvite("x"))
	assert.False(t, ch.ConsumeInvite("x"))

	ch.Modes.AddMask(ModeBan, "*!*@*.evil.net")
	assert.True(t, ch.IsBanned("mal!m@box.evil.net"))
	assert.False(t, ch.IsBanned("ok!o@good.net"))
}

func TestChannelCanSpeak(t *testing.T) {
	ch := NewChannel("#a")
	ch.AddMember("op", "op")
	ch.AddMember("u", "user")

	assert.True(t, ch.CanSpeak("u"))
	assert.False(t, ch.CanSpeak("outsider"), "+n blocks outsiders")

	ch.Modes.Set(ModeModerated, "")
	assert.False(t, ch.CanSpeak("u"))
	assert.True(t, ch.CanSpeak("op"))

	ch.Members["u"].Voice = true
	assert.True(t, ch.CanSpeak("u"))
}

func TestSilenceList(t *testing.T) {
	s := NewSilenceList()
	assert.True(t, s.Add("Spammer"))
	assert.False(t, s.Add("spammer"))
	assert.True(t, s.Has("SPAMMER"))
	assert.Equal(t, []string{"Spammer"}, s.Nicknames())
	assert.True(t, s.Remove("spammer"))
	assert.False(t, s.Remove("spammer"))
}

func TestClient(t *testing.T) {
	c := NewClient(NewClientID(), "10.0.0.1")
	c.Nickname = "alice"
	c.Username = "al"
	assert.Equal(t, "alice!al@10.0.0.1", c.Hostmask())

	c.VHost = "staff.flex"
	assert.Equal(t, "alice!al@staff.flex", c.Hostmask())
	assert.Equal(t, "alice!al@10.0.0.1", c.RealHostmask())

	assert.False(t, c.IsOper())
	c.Oper = &OperType{Name: "admin", Global: true}
	assert.True(t, c.IsOper())

	tok := c.IssueToken()
	assert.NotEmpty(t, tok)
	assert.Equal(t, tok, c.RevokeToken())
	assert.Empty(t, c.Token)
}

func TestNicknameClaims(t *testing.T) {
	s := New()

	assert.True(t, s.ClaimNickname("Alice", "a"))
	assert.True(t, s.ClaimNickname("alice", "a"), "owner may reclaim in another case")
	assert.False(t, s.ClaimNickname("ALICE", "b"))

	id, ok := s.LookupNickname("aLiCe")
	require.True(t, ok)
	assert.Equal(t, ClientID("a"), id)

	assert.False(t, s.ReleaseNickname("alice", "b"))
	assert.True(t, s.ReleaseNickname("alice", "a"))
	_, ok = s.LookupNickname("alice")
	assert.False(t, ok)
}

func TestNicknameClaimRace(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id ClientID) {
			defer wg.Done()
			if s.ClaimNickname("contested", id) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(NewClientID())
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestSnapshotIsolation(t *testing.T) {
	s := New()
	c := NewClient("a", "host")
	c.Channels["#x"] = struct{}{}
	s.Clients.Insert("a", c)

	snap, ok := s.Snapshot("a")
	require.True(t, ok)
	snap.Channels["#y"] = struct{}{}

	s.Clients.View("a", func(v *Client) {
		assert.Len(t, v.Channels, 1)
	})
}

func TestClientQueriesOnCopies(t *testing.T) {
	s := New()
	c := NewClient("a", "10.0.0.1")
	c.Nickname, c.Username = "alice", "al"
	c.Channels["#go"] = struct{}{}
	s.Clients.Insert("a", c)

	snapshot := func() Client {
		c, _ := s.Snapshot("a")
		return c
	}
	assert.True(t, snapshot().IsMember("#go"))
	assert.False(t, snapshot().IsOper())
	assert.Equal(t, "alice!al@10.0.0.1", snapshot().Hostmask())
	assert.Equal(t, []string{"#go"}, snapshot().ChannelKeys())
}

func TestRemoveChannelIfEmpty(t *testing.T) {
	s := New()
	ch := NewChannel("#a")
	ch.AddMember("x", "x")
	s.Channels.Insert(ch.Key(), ch)

	assert.False(t, s.RemoveChannelIfEmpty("#a"))

	s.Channels.Update("#a", func(c *Channel) { c.RemoveMember("x") })
	assert.True(t, s.RemoveChannelIfEmpty("#a"))
	assert.False(t, s.Channels.Has("#a"))
}

func TestAuthenticate(t *testing.T) {
	s := New()
	_, ok := s.Authenticate("")
	assert.False(t, ok)

	s.Tokens.Insert("tok", "a")
	id, ok := s.Authenticate("tok")
	assert.True(t, ok)
	assert.Equal(t, ClientID("a"), id)
}
