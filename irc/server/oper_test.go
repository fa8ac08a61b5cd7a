package server

import (
	"testing"

	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/irc/config"
	"github.com/presbrey/flex/irc/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestOper(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	h := newHarness(t, func(cfg *config.Config) {
		cfg.Operators = []config.Operator{
			{Name: "root", Password: string(hash), Hosts: []string{"alice@10.0.0.*"}, VHost: "staff.flex", Type: "global"},
			{Name: "remote", Password: "pw", Hosts: []string{"*@192.168.*"}},
			{Name: "nohosts", Password: "pw"},
		}
	})
	alice := h.register("alice")

	tests := []struct {
		name     string
		account  string
		password string
		want     string
	}{
		{"unknown account", "nobody", "pw", "ERR_NOOPERHOST"},
		{"host outside masks", "remote", "pw", "ERR_NOOPERHOST"},
		{"no host masks", "nohosts", "pw", "ERR_NOOPERHOST"},
		{"wrong password", "root", "wrong", "ERR_PASSWDMISMATCH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.send(alice, "OPER", map[string]any{"name": tt.account, "password": tt.password})
			assert.Equal(t, []string{tt.want}, alice.names())
			alice.take()
			assert.False(t, h.client(alice).IsOper())
		})
	}

	h.send(alice, "OPER", map[string]any{"name": "ROOT", "password": "hunter2"})
	assert.Equal(t, []string{"RPL_YOUREOPER"}, alice.names())

	c := h.client(alice)
	require.True(t, c.IsOper())
	assert.Equal(t, "root", c.Oper.Name)
	assert.True(t, c.Oper.Global)
	assert.True(t, c.NoKick)
	assert.Equal(t, "alice!alice@staff.flex", c.Hostmask())
	assert.Equal(t, "alice!alice@10.0.0.5", c.RealHostmask())
}

func TestLocalOperatorCanBeKicked(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Operators = []config.Operator{{Name: "local", Password: "pw", Hosts: []string{"10.0.0.5"}, Type: "local"}}
	})
	alice := h.register("alice")
	bob := h.register("bob")
	join(h, alice, "#go")
	join(h, bob, "#go")
	h.send(bob, "OPER", map[string]any{"name": "local", "password": "pw"})
	require.Len(t, bob.find("RPL_YOUREOPER"), 1)
	assert.False(t, h.client(bob).NoKick)
	alice.take()
	bob.take()

	h.send(alice, "KICK", map[string]any{"channel": "#go", "nickname": "bob"})
	require.Len(t, bob.find(irc.CmdKick), 1)
	assert.False(t, h.client(bob).IsMember("#go"))
}

func TestHostAllowed(t *testing.T) {
	c := session.NewClient(session.NewClientID(), "10.1.2.3")
	c.Username = "alice"
	assert.True(t, hostAllowed(config.Operator{Hosts: []string{"ALICE@10.1.*"}}, c))
	assert.True(t, hostAllowed(config.Operator{Hosts: []string{"10.1.2.3"}}, c))
	assert.False(t, hostAllowed(config.Operator{Hosts: []string{"bob@*"}}, c))
	assert.False(t, hostAllowed(config.Operator{}, c))
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, checkPassword(string(hash), "s3cret"))
	assert.False(t, checkPassword(string(hash), "nope"))
	assert.True(t, checkPassword("plain", "plain"))
	assert.False(t, checkPassword("plain", "Plain"))
}
