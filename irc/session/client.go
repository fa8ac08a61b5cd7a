package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/presbrey/flex/irc"
)

// ClientID identifies one socket for its whole lifetime
type ClientID string

// NewClientID returns a random ClientID
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

// OperType is the operator class granted by OPER
type OperType struct {
	Name   string
	Global bool
}

// Client represents a connected chat user
type Client struct {
	ID          ClientID
	Nickname    string
	Username    string
	Realname    string
	Host        string
	VHost       string
	Password    string
	Registered  bool
	Oper        *OperType
	NoKick      bool
	Channels    map[string]struct{} // casefolded channel names
	Token       string
	ConnectedAt time.Time
}

// NewClient creates an unregistered client connected from host
func NewClient(id ClientID, host string) Client {
	return Client{
		ID:          id,
		Host:        host,
		Channels:    make(map[string]struct{}),
		ConnectedAt: time.Now(),
	}
}

// DisplayHost returns the virtual host when one is set
func (c Client) DisplayHost() string {
	if c.VHost != "" {
		return c.VHost
	}
	return c.Host
}

// Hostmask returns nick!user@host using the display host
func (c Client) Hostmask() string {
	return irc.FormatHostmask(c.Nickname, c.Username, c.DisplayHost())
}

// RealHostmask returns nick!user@host using the connecting host
func (c Client) RealHostmask() string {
	return irc.FormatHostmask(c.Nickname, c.Username, c.Host)
}

// IsOper reports whether the client has operator privileges
func (c Client) IsOper() bool {
	return c.Oper != nil
}

// IsMember reports whether the client joined the casefolded channel key
func (c Client) IsMember(key string) bool {
	_, ok := c.Channels[key]
	return ok
}

// IssueToken replaces the session token with a fresh one
func (c *Client) IssueToken() string {
	c.Token = uuid.NewString()
	return c.Token
}

// RevokeToken clears the session token
func (c *Client) RevokeToken() string {
	token := c.Token
	c.Token = ""
	return token
}

// ChannelKeys returns a copy of the channel membership set
func (c Client) ChannelKeys() []string {
	keys := make([]string, 0, len(c.Channels))
	for k := range c.Channels {
		keys = append(keys, k)
	}
	return keys
}
