package server

import (
	"testing"
	"time"

	"github.com/presbrey/flex/irc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicRoundTrip(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	bob := h.register("bob")
	join(h, alice, "#go")
	join(h, bob, "#go")
	alice.take()
	bob.take()

	before := time.Now()
	h.send(alice, "TOPIC", map[string]any{"channel": "#GO", "topic": "gophers only"})

	for _, sock := range []*fakeSocket{alice, bob} {
		events := sock.take()
		require.Len(t, events, 1)
		relay := events[0].Payload.(irc.Topic)
		assert.Equal(t, "#go", relay.Channel)
		assert.Equal(t, "gophers only", relay.Topic)
		assert.Equal(t, "alice!alice@10.0.0.5", relay.Origin)
	}

	ch, _ := h.channel("#go")
	assert.Equal(t, "gophers only", ch.Topic.Text)
	assert.Equal(t, "alice!alice@10.0.0.5", ch.Topic.UpdatedBy)
	assert.False(t, ch.Topic.UpdatedAt.Before(before))

	h.send(bob, "TOPIC", map[string]any{"channel": "#go"})
	events := bob.take()
	require.Len(t, events, 2)
	is := events[0].Payload.(irc.TopicIs)
	assert.Equal(t, "#go :gophers only", is.Text)
	who := events[1].Payload.(irc.TopicWhoTime)
	assert.Equal(t, "alice!alice@10.0.0.5", who.SetBy)
	assert.Equal(t, ch.Topic.UpdatedAt.Unix(), who.SetAt)

	require.Len(t, h.rec.topics, 1)
	assert.Equal(t, "#go", h.rec.topics[0].Channel)
	assert.Equal(t, "alice!alice@10.0.0.5", h.rec.topics[0].UpdatedBy)
}

func TestTopicUnset(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	join(h, alice, "#go")
	h.send(alice, "TOPIC", map[string]any{"channel": "#go", "topic": "first"})
	alice.take()

	h.send(alice, "TOPIC", map[string]any{"channel": "#go", "topic": "   "})
	relay := alice.take()[0].Payload.(irc.Topic)
	assert.Empty(t, relay.Topic)

	ch, _ := h.channel("#go")
	assert.True(t, ch.Topic.IsEmpty())
	assert.Equal(t, "alice!alice@10.0.0.5", ch.Topic.UpdatedBy)

	h.send(alice, "TOPIC", map[string]any{"channel": "#go"})
	events := alice.take()
	require.Len(t, events, 1)
	n := events[0].Payload.(irc.Numeric)
	assert.Equal(t, irc.RPL_NOTOPIC, n.Code)
	assert.Equal(t, "#go :No topic is set", n.Text)
}

func TestTopicKeepsSurroundingWhitespace(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	join(h, alice, "#go")
	alice.take()

	const padded = "  padded topic "
	h.send(alice, "TOPIC", map[string]any{"channel": "#go", "topic": padded})
	relay := alice.take()[0].Payload.(irc.Topic)
	assert.Equal(t, padded, relay.Topic)

	ch, _ := h.channel("#go")
	assert.Equal(t, padded, ch.Topic.Text)

	h.send(alice, "TOPIC", map[string]any{"channel": "#go"})
	events := alice.take()
	require.Len(t, events, 2)
	assert.Equal(t, padded, events[0].Payload.(irc.TopicIs).Topic)

	require.Len(t, h.rec.topics, 1)
	assert.Equal(t, padded, h.rec.topics[0].Text)
}

func TestTopicLock(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	bob := h.register("bob")
	join(h, alice, "#go")
	join(h, bob, "#go")
	alice.take()
	bob.take()

	h.send(bob, "TOPIC", map[string]any{"channel": "#go", "topic": "mine"})
	assert.Equal(t, []string{"ERR_CHANOPRIVSNEEDED"}, bob.names())
	assert.Empty(t, alice.names())
	bob.take()

	h.send(alice, "MODE", map[string]any{"channel": "#go", "modes": "-t"})
	alice.take()
	bob.take()

	h.send(bob, "TOPIC", map[string]any{"channel": "#go", "topic": "mine"})
	assert.Equal(t, []string{"TOPIC"}, alice.names())
	ch, _ := h.channel("#go")
	assert.Equal(t, "mine", ch.Topic.Text)
}

func TestTopicErrors(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	bob := h.register("bob")
	join(h, alice, "#go")
	alice.take()

	h.send(bob, "TOPIC", map[string]any{"channel": "#nowhere"})
	h.send(bob, "TOPIC", map[string]any{"channel": "#nowhere", "topic": "x"})
	h.send(bob, "TOPIC", map[string]any{"channel": "#go"})
	h.send(bob, "TOPIC", map[string]any{"channel": "#go", "topic": "x"})
	assert.Equal(t, []string{
		"ERR_NOSUCHCHANNEL", "ERR_NOSUCHCHANNEL",
		"ERR_NOTONCHANNEL", "ERR_NOTONCHANNEL",
	}, bob.names())
	assert.Empty(t, h.rec.topics)
}
