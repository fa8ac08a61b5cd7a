package irc

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeTagFormat is the layout of the "time" tag
const TimeTagFormat = "2006-01-02T15:04:05.000Z"

// Tags is the metadata attached to every outbound event
type Tags map[string]string

// DefaultTags returns a fresh "time" and "msgid" pair
func DefaultTags() Tags {
	return Tags{
		"time":  time.Now().UTC().Format(TimeTagFormat),
		"msgid": uuid.NewString(),
	}
}

// Reply is an outbound event
type Reply interface {
	Event() string
}

// Numeric is the common body of numeric replies and errors
type Numeric struct {
	Origin string `json:"origin"`
	Tags   Tags   `json:"tags"`
	Code   Code   `json:"code"`
	Name   string `json:"name"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

// Event is the registered numeric name, e.g. "ERR_NOSUCHNICK"
func (n Numeric) Event() string { return n.Name }

// NewNumeric builds a numeric for target with the code's template applied
func NewNumeric(origin, target string, code Code, args ...any) Numeric {
	return Numeric{
		Origin: origin,
		Tags:   DefaultTags(),
		Code:   code,
		Name:   code.Name(),
		Target: target,
		Text:   code.Format(args...),
	}
}

// Welcome is RPL_WELCOME with the session token issued at registration
type Welcome struct {
	Numeric
	Token string `json:"token"`
}

// NewWelcome greets nickname on network
func NewWelcome(origin, network, nickname, token string) Welcome {
	return Welcome{
		Numeric: NewNumeric(origin, nickname, RPL_WELCOME, network, nickname),
		Token:   token,
	}
}

// ListEntry is one RPL_LIST line
type ListEntry struct {
	Numeric
	Channel string `json:"channel"`
	Users   int    `json:"users"`
	Topic   string `json:"topic"`
}

// NewListEntry describes one channel for LIST
func NewListEntry(origin, target, channel string, users int, topic string) ListEntry {
	return ListEntry{
		Numeric: NewNumeric(origin, target, RPL_LIST, channel, users, topic),
		Channel: channel,
		Users:   users,
		Topic:   topic,
	}
}

// ChannelModeIs answers a MODE query
type ChannelModeIs struct {
	Numeric
	Channel string `json:"channel"`
	Modes   string `json:"modes"`
}

// NewChannelModeIs reports the modes of channel
func NewChannelModeIs(origin, target, channel, modes string) ChannelModeIs {
	return ChannelModeIs{
		Numeric: NewNumeric(origin, target, RPL_CHANNELMODEIS, channel, modes),
		Channel: channel,
		Modes:   modes,
	}
}

// TopicIs carries the current topic text
type TopicIs struct {
	Numeric
	Channel string `json:"channel"`
	Topic   string `json:"topic"`
}

// NewTopicIs builds RPL_TOPIC
func NewTopicIs(origin, target, channel, topic string) TopicIs {
	return TopicIs{
		Numeric: NewNumeric(origin, target, RPL_TOPIC, channel, topic),
		Channel: channel,
		Topic:   topic,
	}
}

// TopicWhoTime tells who set the topic and when, in unix seconds
type TopicWhoTime struct {
	Numeric
	Channel string `json:"channel"`
	SetBy   string `json:"set_by"`
	SetAt   int64  `json:"set_at"`
}

// NewTopicWhoTime builds RPL_TOPICWHOTIME
func NewTopicWhoTime(origin, target, channel, setBy string, setAt time.Time) TopicWhoTime {
	return TopicWhoTime{
		Numeric: NewNumeric(origin, target, RPL_TOPICWHOTIME, channel, setBy, setAt.Unix()),
		Channel: channel,
		SetBy:   setBy,
		SetAt:   setAt.Unix(),
	}
}

// Inviting confirms an INVITE to the inviter
type Inviting struct {
	Numeric
	Channel  string `json:"channel"`
	Nickname string `json:"nickname"`
}

// NewInviting builds RPL_INVITING
func NewInviting(origin, target, nickname, channel string) Inviting {
	return Inviting{
		Numeric:  NewNumeric(origin, target, RPL_INVITING, nickname, channel),
		Channel:  channel,
		Nickname: nickname,
	}
}

// NamReply lists channel members with their prefixes
type NamReply struct {
	Numeric
	Channel string   `json:"channel"`
	Names   []string `json:"names"`
}

// NewNamReply uses "=" as the public channel symbol
func NewNamReply(origin, target, channel string, names []string) NamReply {
	return NamReply{
		Numeric: NewNumeric(origin, target, RPL_NAMREPLY, "=", channel, strings.Join(names, " ")),
		Channel: channel,
		Names:   names,
	}
}

// CannotKickGlobops refuses a KICK aimed at a global operator
type CannotKickGlobops struct {
	Numeric
	Channel  string `json:"channel"`
	Nickname string `json:"nickname"`
}

// NewCannotKickGlobops builds ERR_CANNOTKICKGLOBOPS
func NewCannotKickGlobops(origin, target, channel, nickname string) CannotKickGlobops {
	return CannotKickGlobops{
		Numeric:  NewNumeric(origin, target, ERR_CANNOTKICKGLOBOPS, channel, nickname),
		Channel:  channel,
		Nickname: nickname,
	}
}

// Relay is the common body of events relayed from one client to others
type Relay struct {
	Origin string `json:"origin"`
	Tags   Tags   `json:"tags"`
}

// NewRelay stamps fresh tags on an event from origin
func NewRelay(origin string) Relay {
	return Relay{Origin: origin, Tags: DefaultTags()}
}

// Join announces a new channel member
type Join struct {
	Relay
	Channel string `json:"channel"`
}

// Part announces a member leaving
type Part struct {
	Relay
	Channel string  `json:"channel"`
	Message *string `json:"message,omitempty"`
}

// Kick announces a member being removed by another
type Kick struct {
	Relay
	Channel  string  `json:"channel"`
	Nickname string  `json:"nickname"`
	Reason   *string `json:"reason,omitempty"`
}

// Topic announces a topic change; an empty Topic means unset
type Topic struct {
	Relay
	Channel string `json:"channel"`
	Topic   string `json:"topic"`
}

// Mode announces applied channel mode changes
type Mode struct {
	Relay
	Channel string   `json:"channel"`
	Modes   string   `json:"modes"`
	Args    []string `json:"args,omitempty"`
}

// Nick announces a nickname change
type Nick struct {
	Relay
	Nickname string `json:"nickname"`
}

// Quit announces a client leaving the server
type Quit struct {
	Relay
	Message *string `json:"message,omitempty"`
}

// Invite is delivered to the invited client
type Invite struct {
	Relay
	Nickname string `json:"nickname"`
	Channel  string `json:"channel"`
}

// Message is a relayed PRIVMSG or NOTICE
type Message struct {
	Relay
	Notice bool   `json:"-"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

// Pong answers PING, echoing the token
type Pong struct {
	Relay
	Token *string `json:"token,omitempty"`
}

// Silence confirms a silence list change, Nickname carries the +/- prefix
type Silence struct {
	Relay
	Nickname string `json:"nickname"`
}

func (Join) Event() string    { return CmdJoin }
func (Part) Event() string    { return CmdPart }
func (Kick) Event() string    { return CmdKick }
func (Topic) Event() string   { return CmdTopic }
func (Mode) Event() string    { return CmdMode }
func (Nick) Event() string    { return CmdNick }
func (Quit) Event() string    { return CmdQuit }
func (Invite) Event() string  { return CmdInvite }
func (Pong) Event() string    { return "PONG" }
func (Silence) Event() string { return CmdSilence }

func (m Message) Event() string {
	if m.Notice {
		return CmdNotice
	}
	return CmdPrivmsg
}
