package irc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, event, data string) (Form, error) {
	t.Helper()
	return NewValidator(DefaultLimits()).Decode(event, []byte(data))
}

func TestDecodeUnknownCommand(t *testing.T) {
	_, err := decode(t, "WHOWAS", `{}`)
	assert.True(t, errors.Is(err, ErrUnknownCommand))
}

func TestDecodeConnect(t *testing.T) {
	form, err := decode(t, "CONNECT", `{"nickname":"alice","username":"al","realname":"Alice A","password":"pw"}`)
	require.NoError(t, err)

	f, ok := form.(*ConnectForm)
	require.True(t, ok)
	assert.Equal(t, "alice", f.Nickname)
	assert.Equal(t, "al", f.Username)
	require.NotNil(t, f.Password)
	assert.Equal(t, "pw", *f.Password)
	assert.Equal(t, CmdConnect, f.Command())
}

func TestDecodeConnectReservedNickname(t *testing.T) {
	_, err := decode(t, "CONNECT", `{"nickname":"flex","username":"u","realname":"r"}`)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "nickname", verr.Field)
	assert.Contains(t, verr.Error(), "flex")
}

func TestDecodeConnectBlankRealname(t *testing.T) {
	_, err := decode(t, "CONNECT", `{"nickname":"alice","username":"u","realname":"  "}`)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "realname", verr.Field)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := decode(t, "NICK", `{"nickname":`)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestDecodeJoinLenient(t *testing.T) {
	form, err := decode(t, "JOIN", `{"channels":["#a","","#general","nothash"],"keys":["k1"]}`)
	require.NoError(t, err)

	f := form.(*JoinForm)
	assert.Equal(t, []string{"#a", "#general"}, f.Channels)
	assert.Equal(t, "k1", f.Key(0))
	assert.Equal(t, "", f.Key(1))

	form, err = decode(t, "JOIN", `{"channels":["bad","#secret","#open"],"keys":["x","sesame"]}`)
	require.NoError(t, err)
	f = form.(*JoinForm)
	assert.Equal(t, []string{"#secret", "#open"}, f.Channels)
	assert.Equal(t, "sesame", f.Key(0), "keys stay paired with their channel")
	assert.Equal(t, "", f.Key(1))

	_, err = decode(t, "JOIN", `{"channels":["nothash"]}`)
	assert.Error(t, err, "JOIN needs at least one valid channel")
}

func TestDecodePartLenient(t *testing.T) {
	form, err := decode(t, "PART", `{"channels":["bad"]}`)
	require.NoError(t, err)
	assert.Empty(t, form.(*PartForm).Channels)

	_, err = decode(t, "PART", `{"channels":["#a"],"message":""}`)
	assert.Error(t, err, "present message must pass the string filter")
}

func TestDecodeTopic(t *testing.T) {
	form, err := decode(t, "TOPIC", `{"channel":"#a"}`)
	require.NoError(t, err)
	assert.Nil(t, form.(*TopicForm).Topic)

	form, err = decode(t, "TOPIC", `{"channel":"#a","topic":""}`)
	require.NoError(t, err)
	require.NotNil(t, form.(*TopicForm).Topic)
	assert.Equal(t, "", *form.(*TopicForm).Topic)

	_, err = decode(t, "TOPIC", `{"channel":"a","topic":"x"}`)
	assert.Error(t, err)
}

func TestDecodeSilence(t *testing.T) {
	form, err := decode(t, "SILENCE", `{"nickname":"+bob"}`)
	require.NoError(t, err)
	add, nick, ok := form.(*SilenceForm).Change()
	assert.True(t, ok)
	assert.True(t, add)
	assert.Equal(t, "bob", nick)

	form, err = decode(t, "SILENCE", `{}`)
	require.NoError(t, err)
	_, _, ok = form.(*SilenceForm).Change()
	assert.False(t, ok)

	_, err = decode(t, "SILENCE", `{"nickname":"bob"}`)
	assert.Error(t, err)
}

func TestDecodeMessageTargets(t *testing.T) {
	form, err := decode(t, "PRIVMSG", `{"target":"#chan","text":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, CmdPrivmsg, form.Command())

	form, err = decode(t, "notice", `{"target":"bob","text":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, CmdNotice, form.Command())
	assert.True(t, form.(*MessageForm).Notice)

	_, err = decode(t, "PRIVMSG", `{"target":"bad nick","text":"hi"}`)
	assert.Error(t, err)

	_, err = decode(t, "PRIVMSG", `{"target":"bob","text":""}`)
	assert.Error(t, err)
}

func TestDecodeMode(t *testing.T) {
	form, err := decode(t, "MODE", `{"channel":"#a","modes":"+kl","args":["key","10"]}`)
	require.NoError(t, err)
	f := form.(*ModeForm)
	assert.Equal(t, "+kl", *f.Modes)
	assert.Equal(t, []string{"key", "10"}, f.Args)

	_, err = decode(t, "MODE", `{"channel":"#a","modes":"kl"}`)
	assert.Error(t, err)
}

func TestDecodeEmptyPayloads(t *testing.T) {
	form, err := decode(t, "LIST", ``)
	require.NoError(t, err)
	assert.Equal(t, CmdList, form.Command())

	form, err = decode(t, "PING", `null`)
	require.NoError(t, err)
	assert.Nil(t, form.(*PingForm).Token)

	_, err = decode(t, "OPER", `{}`)
	assert.Error(t, err)
}

func TestCommandsCoverForms(t *testing.T) {
	v := NewValidator(DefaultLimits())
	for _, name := range Commands() {
		_, err := v.Decode(name, nil)
		assert.False(t, errors.Is(err, ErrUnknownCommand), name)
	}
}

func TestNumericFormat(t *testing.T) {
	assert.Equal(t, "001", RPL_WELCOME.String())
	assert.Equal(t, "ERR_NOOPERHOST", ERR_NOOPERHOST.Name())
	assert.Equal(t, "#a :Cannot join channel (+i)", ERR_INVITEONLYCHAN.Format("#a"))
	assert.Equal(t, "x :is unknown mode char to me", ERR_UNKNOWNMODE.Format('x'))
	assert.Equal(t, "#a bob :Cannot kick global operators", ERR_CANNOTKICKGLOBOPS.Format("#a", "bob"))
	assert.True(t, ERR_PASSWDMISMATCH.IsError())
	assert.False(t, RPL_YOUREOPER.IsError())

	n := NewNumeric("flex.local", "alice", ERR_NOSUCHNICK, "bob")
	assert.Equal(t, "ERR_NOSUCHNICK", n.Event())
	assert.Equal(t, "bob :No such nick/channel", n.Text)
	assert.NotEmpty(t, n.Tags["msgid"])
	assert.NotEmpty(t, n.Tags["time"])

	w := NewWelcome("flex.local", "Flex", "alice", "tok")
	assert.Equal(t, "Welcome to the Flex Network, alice", w.Text)
	assert.Equal(t, "RPL_WELCOME", w.Event())
	assert.Equal(t, "tok", w.Token)
}
