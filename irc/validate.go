package irc

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lrstanley/girc"
)

const (
	MaxChannelSize         = 30
	DefaultMaxNicknameSize = 30
	MaxStringFilterSize    = 1024
	MaxTopicSize           = 100
	DefaultMaxSilences     = 15
)

// DefaultReservedNicknames can never be claimed by a client
var DefaultReservedNicknames = []string{"flex"}

// ValidationError reports a payload field that failed validation
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid payload: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Casefold returns the RFC1459 lowercase form used for nickname and channel keys
func Casefold(s string) string {
	return girc.ToRFC1459(s)
}

// IsChannelName reports whether s looks like a channel rather than a nickname
func IsChannelName(s string) bool {
	return strings.HasPrefix(s, "#")
}

// ValidateChannel accepts names of 1 to MaxChannelSize bytes starting with '#'
func ValidateChannel(s string) (string, error) {
	return validateChannel(s, MaxChannelSize)
}

func validateChannel(s string, max int) (string, error) {
	if len(s) < 1 || len(s) > max {
		return "", &ValidationError{Field: "channel", Value: s, Reason: fmt.Sprintf("length must be between 1 and %d", max)}
	}
	if !IsChannelName(s) {
		return "", &ValidationError{Field: "channel", Value: s, Reason: "must start with #"}
	}
	return s, nil
}

// ValidateChannels keeps the valid channel names in order and drops the rest
func ValidateChannels(in []string) []string {
	return filter(in, ValidateChannel)
}

// ValidateStringFilter accepts free text that is non-blank and at most
// MaxStringFilterSize bytes
func ValidateStringFilter(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", &ValidationError{Field: "text", Value: s, Reason: "must not be empty"}
	}
	if len(s) > MaxStringFilterSize {
		return "", &ValidationError{Field: "text", Value: s[:32] + "...", Reason: fmt.Sprintf("longer than %d bytes", MaxStringFilterSize)}
	}
	return s, nil
}

// ValidateOptStringFilter is ValidateStringFilter for optional fields
func ValidateOptStringFilter(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v, err := ValidateStringFilter(*s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ValidateTopic accepts a topic that is blank or shorter than MaxTopicSize.
// A blank topic unsets the channel topic.
func ValidateTopic(s string) (string, error) {
	if strings.TrimSpace(s) == "" || len(s) < MaxTopicSize {
		return s, nil
	}
	return "", &ValidationError{Field: "topic", Value: s[:32] + "...", Reason: fmt.Sprintf("must be shorter than %d bytes", MaxTopicSize)}
}

// ValidateModeString accepts one or more groups of [+-] followed by letters
func ValidateModeString(s string) (string, error) {
	if s == "" || (s[0] != '+' && s[0] != '-') {
		return "", &ValidationError{Field: "modes", Value: s, Reason: "must start with + or -"}
	}
	letters := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+' || c == '-':
			if i > 0 && letters == 0 {
				return "", &ValidationError{Field: "modes", Value: s, Reason: "empty mode group"}
			}
			letters = 0
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			letters++
		default:
			return "", &ValidationError{Field: "modes", Value: s, Reason: fmt.Sprintf("unexpected %q", c)}
		}
	}
	if letters == 0 {
		return "", &ValidationError{Field: "modes", Value: s, Reason: "empty mode group"}
	}
	return s, nil
}

func filter(in []string, fn func(string) (string, error)) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v, err := fn(s); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Limits configures the rules of a Validator
type Limits struct {
	MaxNicknameSize int
	MaxChannelSize  int
	Reserved        []string
}

// DefaultLimits returns the stock nickname and channel rules
func DefaultLimits() Limits {
	return Limits{
		MaxNicknameSize: DefaultMaxNicknameSize,
		MaxChannelSize:  MaxChannelSize,
		Reserved:        DefaultReservedNicknames,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxNicknameSize <= 0 {
		l.MaxNicknameSize = DefaultMaxNicknameSize
	}
	if l.MaxChannelSize <= 0 || l.MaxChannelSize > MaxChannelSize {
		l.MaxChannelSize = MaxChannelSize
	}
	if l.Reserved == nil {
		l.Reserved = DefaultReservedNicknames
	}
	return l
}

// Nickname checks charset through girc, then size and the reserved list
func (v *Validator) Nickname(s string) (string, error) {
	if len(s) == 0 || len(s) > v.limits.MaxNicknameSize {
		return "", &ValidationError{Field: "nickname", Value: s, Reason: fmt.Sprintf("length must be between 1 and %d", v.limits.MaxNicknameSize)}
	}
	if !girc.IsValidNick(s) {
		return "", &ValidationError{Field: "nickname", Value: s, Reason: "contains invalid characters"}
	}
	folded := Casefold(s)
	if slices.ContainsFunc(v.limits.Reserved, func(r string) bool { return Casefold(r) == folded }) {
		return "", &ValidationError{Field: "nickname", Value: s, Reason: fmt.Sprintf("nickname %s is reserved", s)}
	}
	return s, nil
}

// Nicknames keeps the valid nicknames in order and drops the rest
func (v *Validator) Nicknames(in []string) []string {
	return filter(in, v.Nickname)
}

// Channel applies the configured channel size limit
func (v *Validator) Channel(s string) (string, error) {
	return validateChannel(s, v.limits.MaxChannelSize)
}

// Channels is the lenient batch form of Channel
func (v *Validator) Channels(in []string) []string {
	return filter(in, v.Channel)
}

// Silence parses a "+nick" or "-nick" silence change
func (v *Validator) Silence(s string) (add bool, nickname string, err error) {
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return false, "", &ValidationError{Field: "nickname", Value: s, Reason: "must be prefixed with + or -"}
	}
	nick, err := v.Nickname(s[1:])
	if err != nil {
		return false, "", err
	}
	return s[0] == '+', nick, nil
}

// Target accepts either a channel or a nickname
func (v *Validator) Target(s string) (string, error) {
	if IsChannelName(s) {
		return v.Channel(s)
	}
	return v.Nickname(s)
}

// Limits returns the rules this Validator enforces
func (v *Validator) Limits() Limits {
	return v.limits
}
