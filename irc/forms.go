package irc

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// Inbound command names
const (
	CmdConnect = "CONNECT"
	CmdPass    = "PASS"
	CmdNick    = "NICK"
	CmdUser    = "USER"
	CmdOper    = "OPER"
	CmdJoin    = "JOIN"
	CmdPart    = "PART"
	CmdSapart  = "SAPART"
	CmdInvite  = "INVITE"
	CmdKick    = "KICK"
	CmdList    = "LIST"
	CmdNames   = "NAMES"
	CmdTopic   = "TOPIC"
	CmdMode    = "MODE"
	CmdSilence = "SILENCE"
	CmdPrivmsg = "PRIVMSG"
	CmdNotice  = "NOTICE"
	CmdQuit    = "QUIT"
	CmdPing    = "PING"
)

// ErrUnknownCommand is returned by Decode for events without a form
var ErrUnknownCommand = errors.New("unknown command")

// Form is a decoded and validated command payload
type Form interface {
	Command() string
}

// lenient forms drop invalid list entries before tag validation
type lenient interface {
	filter(v *Validator)
}

// ConnectForm registers in one step
type ConnectForm struct {
	Nickname string  `json:"nickname" validate:"nickname"`
	Username string  `json:"username" validate:"stringfilter"`
	Realname string  `json:"realname" validate:"stringfilter"`
	Password *string `json:"password,omitempty"`
}

// PassForm supplies the connection password
type PassForm struct {
	Password string `json:"password" validate:"required"`
}

// NickForm sets or changes the nickname
type NickForm struct {
	Nickname string `json:"nickname" validate:"nickname"`
}

// UserForm supplies username and realname
type UserForm struct {
	Username string `json:"username" validate:"stringfilter"`
	Realname string `json:"realname" validate:"stringfilter"`
}

// OperForm requests operator privileges
type OperForm struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// JoinForm joins channels; Keys pair with Channels by index
type JoinForm struct {
	Channels []string `json:"channels" validate:"min=1"`
	Keys     []string `json:"keys,omitempty"`
}

// Key returns the key supplied for the i-th channel, if any
func (f *JoinForm) Key(i int) string {
	if i < len(f.Keys) {
		return f.Keys[i]
	}
	return ""
}

// PartForm leaves channels
type PartForm struct {
	Channels []string `json:"channels"`
	Message  *string  `json:"message,omitempty" validate:"omitempty,stringfilter"`
}

// SapartForm makes an operator part another client
type SapartForm struct {
	Nickname string   `json:"nickname" validate:"nickname"`
	Channels []string `json:"channels"`
}

// InviteForm invites a client to a channel
type InviteForm struct {
	Nickname string `json:"nickname" validate:"nickname"`
	Channel  string `json:"channel" validate:"channel"`
}

// KickForm removes a member from a channel
type KickForm struct {
	Channel  string  `json:"channel" validate:"channel"`
	Nickname string  `json:"nickname" validate:"nickname"`
	Reason   *string `json:"reason,omitempty" validate:"omitempty,stringfilter"`
}

// ListForm lists every channel
type ListForm struct{}

// NamesForm lists the members of one channel
type NamesForm struct {
	Channel string `json:"channel" validate:"channel"`
}

// TopicForm queries the topic when Topic is nil and unsets it when blank
type TopicForm struct {
	Channel string  `json:"channel" validate:"channel"`
	Topic   *string `json:"topic,omitempty" validate:"omitempty,topic"`
}

// ModeForm queries channel modes when Modes is nil
type ModeForm struct {
	Channel string   `json:"channel" validate:"channel"`
	Modes   *string  `json:"modes,omitempty" validate:"omitempty,modes"`
	Args    []string `json:"args,omitempty"`
}

// SilenceForm lists the silence list when Nickname is nil
type SilenceForm struct {
	Nickname *string `json:"nickname,omitempty" validate:"omitempty,silence"`
}

// Change splits the +nick / -nick argument. ok is false for a list request.
func (f *SilenceForm) Change() (add bool, nickname string, ok bool) {
	if f.Nickname == nil {
		return false, "", false
	}
	s := *f.Nickname
	return s[0] == '+', s[1:], true
}

// MessageForm carries PRIVMSG and NOTICE
type MessageForm struct {
	Notice bool   `json:"-"`
	Target string `json:"target" validate:"target"`
	Text   string `json:"text" validate:"stringfilter"`
}

// QuitForm disconnects with an optional message
type QuitForm struct {
	Message *string `json:"message,omitempty" validate:"omitempty,stringfilter"`
}

// PingForm asks for a PONG
type PingForm struct {
	Token *string `json:"token,omitempty"`
}

func (*ConnectForm) Command() string { return CmdConnect }
func (*PassForm) Command() string    { return CmdPass }
func (*NickForm) Command() string    { return CmdNick }
func (*UserForm) Command() string    { return CmdUser }
func (*OperForm) Command() string    { return CmdOper }
func (*JoinForm) Command() string    { return CmdJoin }
func (*PartForm) Command() string    { return CmdPart }
func (*SapartForm) Command() string  { return CmdSapart }
func (*InviteForm) Command() string  { return CmdInvite }
func (*KickForm) Command() string    { return CmdKick }
func (*ListForm) Command() string    { return CmdList }
func (*NamesForm) Command() string   { return CmdNames }
func (*TopicForm) Command() string   { return CmdTopic }
func (*ModeForm) Command() string    { return CmdMode }
func (*SilenceForm) Command() string { return CmdSilence }
func (*QuitForm) Command() string    { return CmdQuit }
func (*PingForm) Command() string    { return CmdPing }

func (f *MessageForm) Command() string {
	if f.Notice {
		return CmdNotice
	}
	return CmdPrivmsg
}

// filter drops invalid channels together with the key at the same index
func (f *JoinForm) filter(v *Validator) {
	channels := make([]string, 0, len(f.Channels))
	var keys []string
	for i, name := range f.Channels {
		if _, err := v.Channel(name); err != nil {
			continue
		}
		channels = append(channels, name)
		if i < len(f.Keys) {
			keys = append(keys, f.Keys[i])
		}
	}
	f.Channels, f.Keys = channels, keys
}

func (f *PartForm) filter(v *Validator)   { f.Channels = v.Channels(f.Channels) }
func (f *SapartForm) filter(v *Validator) { f.Channels = v.Channels(f.Channels) }

var forms = map[string]func() Form{
	CmdConnect: func() Form { return &ConnectForm{} },
	CmdPass:    func() Form { return &PassForm{} },
	CmdNick:    func() Form { return &NickForm{} },
	CmdUser:    func() Form { return &UserForm{} },
	CmdOper:    func() Form { return &OperForm{} },
	CmdJoin:    func() Form { return &JoinForm{} },
	CmdPart:    func() Form { return &PartForm{} },
	CmdSapart:  func() Form { return &SapartForm{} },
	CmdInvite:  func() Form { return &InviteForm{} },
	CmdKick:    func() Form { return &KickForm{} },
	CmdList:    func() Form { return &ListForm{} },
	CmdNames:   func() Form { return &NamesForm{} },
	CmdTopic:   func() Form { return &TopicForm{} },
	CmdMode:    func() Form { return &ModeForm{} },
	CmdSilence: func() Form { return &SilenceForm{} },
	CmdPrivmsg: func() Form { return &MessageForm{} },
	CmdNotice:  func() Form { return &MessageForm{Notice: true} },
	CmdQuit:    func() Form { return &QuitForm{} },
	CmdPing:    func() Form { return &PingForm{} },
}

// Commands returns the names of every decodable command
func Commands() []string {
	names := make([]string, 0, len(forms))
	for name := range forms {
		names = append(names, name)
	}
	return names
}

// Validator decodes command payloads and binds each field to its rule
type Validator struct {
	limits   Limits
	validate *validator.Validate
	checks   map[string]func(string) error
}

// NewValidator creates a Validator with the given limits. Zero fields fall
// back to the defaults.
func NewValidator(limits Limits) *Validator {
	v := &Validator{
		limits:   limits.withDefaults(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		checks:   make(map[string]func(string) error),
	}

	// report json field names
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.register("channel", func(s string) error { _, err := v.Channel(s); return err })
	v.register("nickname", func(s string) error { _, err := v.Nickname(s); return err })
	v.register("stringfilter", func(s string) error { _, err := ValidateStringFilter(s); return err })
	v.register("topic", func(s string) error { _, err := ValidateTopic(s); return err })
	v.register("modes", func(s string) error { _, err := ValidateModeString(s); return err })
	v.register("target", func(s string) error { _, err := v.Target(s); return err })
	v.register("silence", func(s string) error { _, _, err := v.Silence(s); return err })

	return v
}

func (v *Validator) register(tag string, fn func(string) error) {
	v.checks[tag] = fn
	// only fails on an invalid tag name
	_ = v.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && fn(s) == nil
	})
}

// Decode parses data as the payload of event and validates it. Unknown events
// return ErrUnknownCommand; anything else that fails is a *ValidationError.
func (v *Validator) Decode(event string, data []byte) (Form, error) {
	newForm, ok := forms[strings.ToUpper(event)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, event)
	}
	form := newForm()

	data = bytes.TrimSpace(data)
	if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, form); err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
	}

	if l, ok := form.(lenient); ok {
		l.filter(v)
	}

	if err := v.validate.Struct(form); err != nil {
		return nil, v.translate(err)
	}
	return form, nil
}

// translate turns the first validator failure into a *ValidationError,
// reusing the rule's own message when there is one
func (v *Validator) translate(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := errs[0]

	value := fe.Value()
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr && !rv.IsNil() {
		value = rv.Elem().Interface()
	}

	if fn, ok := v.checks[fe.Tag()]; ok {
		if s, ok := value.(string); ok {
			var verr *ValidationError
			if errors.As(fn(s), &verr) {
				out := *verr
				out.Field = fe.Field()
				return &out
			}
		}
	}

	return &ValidationError{
		Field:  fe.Field(),
		Value:  fmt.Sprint(value),
		Reason: fmt.Sprintf("failed %s", fe.Tag()),
	}
}
