package onebot

import (
	"regexp"
	"strings"
)

const (
	MessageTypeGroup   = "group"
	MessageTypePrivate = "private"

	postTypeMessage = "message"
)

// Event carries the envelope fields every OneBot v11 push shares.
type Event struct {
	Time     int64  `json:"time"`
	SelfID   int64  `json:"self_id"`
	PostType string `json:"post_type"`
}

// MessageEvent is a OneBot v11 message push (group or private chat).
type MessageEvent struct {
	Event
	MessageType string `json:"message_type"`
	SubType     string `json:"sub_type"`
	MessageID   int64  `json:"message_id"`
	GroupID     int64  `json:"group_id,omitempty"`
	UserID      int64  `json:"user_id"`
	RawMessage  string `json:"raw_message"`
	Sender      Sender `json:"sender"`
}

type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"`
}

// ChatTarget identifies the conversation a reply should go to.
type ChatTarget struct {
	MessageType string
	GroupID     int64
	UserID      int64
}

// Target returns where replies to this event belong.
func (e *MessageEvent) Target() ChatTarget {
	return ChatTarget{
		MessageType: e.MessageType,
		GroupID:     e.GroupID,
		UserID:      e.UserID,
	}
}

var cqCodeRe = regexp.MustCompile(`\[CQ:[^\]]*\]`)

// PlainText strips CQ segments (at-mentions, faces, images) out of the raw
// message and unescapes CQ entities, leaving the human-typed text.
func (e *MessageEvent) PlainText() string {
	text := cqCodeRe.ReplaceAllString(e.RawMessage, "")
	return strings.TrimSpace(UnescapeCQ(text))
}

var cqUnescaper = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&#44;", ",", "&amp;", "&")

// UnescapeCQ reverses OneBot's CQ-code entity escaping.
func UnescapeCQ(s string) string {
	return cqUnescaper.Replace(s)
}
