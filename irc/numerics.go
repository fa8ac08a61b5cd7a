package irc

import "fmt"

// Code is a numeric reply code
type Code int

const (
	RPL_WELCOME       Code = 1
	RPL_SILELIST      Code = 271
	RPL_ENDOFSILELIST Code = 272
	RPL_LISTSTART     Code = 321
	RPL_LIST          Code = 322
	RPL_LISTEND       Code = 323
	RPL_CHANNELMODEIS Code = 324
	RPL_NOTOPIC       Code = 331
	RPL_TOPIC         Code = 332
	RPL_TOPICWHOTIME  Code = 333
	RPL_INVITING      Code = 341
	RPL_NAMREPLY      Code = 353
	RPL_ENDOFNAMES    Code = 366
	RPL_YOUREOPER     Code = 381

	ERR_NOSUCHNICK        Code = 401
	ERR_NOSUCHCHANNEL     Code = 403
	ERR_CANNOTSENDTOCHAN  Code = 404
	ERR_UNKNOWNCOMMAND    Code = 421
	ERR_NICKNAMEINUSE     Code = 433
	ERR_USERNOTINCHANNEL  Code = 441
	ERR_NOTONCHANNEL      Code = 442
	ERR_USERONCHANNEL     Code = 443
	ERR_NOTREGISTERED     Code = 451
	ERR_ALREADYREGISTERED Code = 462
	ERR_PASSWDMISMATCH    Code = 464
	ERR_CHANNELISFULL     Code = 471
	ERR_UNKNOWNMODE       Code = 472
	ERR_INVITEONLYCHAN    Code = 473
	ERR_BANNEDFROMCHAN    Code = 474
	ERR_BADCHANNELKEY     Code = 475
	ERR_CANNOTKICKGLOBOPS Code = 480
	ERR_NOPRIVILEGES      Code = 481
	ERR_CHANOPRIVSNEEDED  Code = 482
	ERR_NOOPERHOST        Code = 491
	ERR_SILELISTFULL      Code = 511
)

// NumericInfo is the registered name and text template of a code
type NumericInfo struct {
	Name     string
	Template string
}

// Numerics maps every code this server emits to its name and template.
// Clients match on these strings, so they must not change.
var Numerics = map[Code]NumericInfo{
	RPL_WELCOME:       {"RPL_WELCOME", "Welcome to the %s Network, %s"},
	RPL_SILELIST:      {"RPL_SILELIST", "%s"},
	RPL_ENDOFSILELIST: {"RPL_ENDOFSILELIST", ":End of Silence List"},
	RPL_LISTSTART:     {"RPL_LISTSTART", "Channel :Users  Name"},
	RPL_LIST:          {"RPL_LIST", "%s %d :%s"},
	RPL_LISTEND:       {"RPL_LISTEND", ":End of /LIST"},
	RPL_CHANNELMODEIS: {"RPL_CHANNELMODEIS", "%s %s"},
	RPL_NOTOPIC:       {"RPL_NOTOPIC", "%s :No topic is set"},
	RPL_TOPIC:         {"RPL_TOPIC", "%s :%s"},
	RPL_TOPICWHOTIME:  {"RPL_TOPICWHOTIME", "%s %s %d"},
	RPL_INVITING:      {"RPL_INVITING", "%s %s"},
	RPL_NAMREPLY:      {"RPL_NAMREPLY", "%s %s :%s"},
	RPL_ENDOFNAMES:    {"RPL_ENDOFNAMES", "%s :End of /NAMES list"},
	RPL_YOUREOPER:     {"RPL_YOUREOPER", ":You are now an IRC operator"},

	ERR_NOSUCHNICK:        {"ERR_NOSUCHNICK", "%s :No such nick/channel"},
	ERR_NOSUCHCHANNEL:     {"ERR_NOSUCHCHANNEL", "%s :No such channel"},
	ERR_CANNOTSENDTOCHAN:  {"ERR_CANNOTSENDTOCHAN", "%s :Cannot send to channel"},
	ERR_UNKNOWNCOMMAND:    {"ERR_UNKNOWNCOMMAND", "%s :Unknown command"},
	ERR_NICKNAMEINUSE:     {"ERR_NICKNAMEINUSE", "%s :Nickname is already in use"},
	ERR_USERNOTINCHANNEL:  {"ERR_USERNOTINCHANNEL", "%s %s :They aren't on that channel"},
	ERR_NOTONCHANNEL:      {"ERR_NOTONCHANNEL", "%s :You're not on that channel"},
	ERR_USERONCHANNEL:     {"ERR_USERONCHANNEL", "%s %s :is already on channel"},
	ERR_NOTREGISTERED:     {"ERR_NOTREGISTERED", ":You have not registered"},
	ERR_ALREADYREGISTERED: {"ERR_ALREADYREGISTERED", ":You may not reregister"},
	ERR_PASSWDMISMATCH:    {"ERR_PASSWDMISMATCH", ":Password incorrect"},
	ERR_CHANNELISFULL:     {"ERR_CHANNELISFULL", "%s :Cannot join channel (+l)"},
	ERR_UNKNOWNMODE:       {"ERR_UNKNOWNMODE", "%c :is unknown mode char to me"},
	ERR_INVITEONLYCHAN:    {"ERR_INVITEONLYCHAN", "%s :Cannot join channel (+i)"},
	ERR_BANNEDFROMCHAN:    {"ERR_BANNEDFROMCHAN", "%s :Cannot join channel (+b)"},
	ERR_BADCHANNELKEY:     {"ERR_BADCHANNELKEY", "%s :Cannot join channel (+k)"},
	ERR_CANNOTKICKGLOBOPS: {"ERR_CANNOTKICKGLOBOPS", "%s %s :Cannot kick global operators"},
	ERR_NOPRIVILEGES:      {"ERR_NOPRIVILEGES", ":Permission Denied- You're not an IRC operator"},
	ERR_CHANOPRIVSNEEDED:  {"ERR_CHANOPRIVSNEEDED", "%s :You're not channel operator"},
	ERR_NOOPERHOST:        {"ERR_NOOPERHOST", ":No O-lines for your host"},
	ERR_SILELISTFULL:      {"ERR_SILELISTFULL", "%s :Your silence list is full"},
}

// String returns the zero-padded three digit form, e.g. "001"
func (c Code) String() string {
	return fmt.Sprintf("%03d", int(c))
}

// Name returns the registered name, or the digits for unknown codes
func (c Code) Name() string {
	if info, ok := Numerics[c]; ok {
		return info.Name
	}
	return c.String()
}

// Format renders the code's template with args
func (c Code) Format(args ...any) string {
	info, ok := Numerics[c]
	if !ok {
		return fmt.Sprint(args...)
	}
	return fmt.Sprintf(info.Template, args...)
}

// IsError reports whether c is in the 400-599 error range
func (c Code) IsError() bool {
	return c >= 400 && c < 600
}
