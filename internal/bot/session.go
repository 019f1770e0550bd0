package bot

import "context"

// Replier delivers command output back into the chat that triggered it.
type Replier interface {
	ReplyText(ctx context.Context, text string) error
	ReplyImage(ctx context.Context, path string) error
}

// Session carries one inbound command invocation: the conversation it came
// from, the message text, and the way back.
type Session struct {
	key     string
	text    string
	replier Replier
}

func NewSession(key, text string, replier Replier) *Session {
	return &Session{key: key, text: text, replier: replier}
}

// Key identifies the conversation ("group:<id>" or "user:<id>"). Commands
// use it to keep per-conversation state.
func (s *Session) Key() string { return s.key }

// Text is the full message text, command word included.
func (s *Session) Text() string { return s.text }

func (s *Session) ReplyText(ctx context.Context, text string) error {
	return s.replier.ReplyText(ctx, text)
}

func (s *Session) ReplyImage(ctx context.Context, path string) error {
	return s.replier.ReplyImage(ctx, path)
}
