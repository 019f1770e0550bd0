package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/heyao-tools/heyaobot/internal/onebot"
)

// Handler is a chat command implementation. Name and Aliases are matched
// against the first word of each message, case-insensitively and with an
// optional leading slash.
type Handler interface {
	Name() string
	Aliases() []string
	Handle(ctx context.Context, sess *Session)
}

// PlatformClient is the slice of the OneBot client the gateway needs;
// narrowed to an interface so dispatch can be tested without a socket.
type PlatformClient interface {
	Run(ctx context.Context, handler onebot.MessageHandler) error
	SendMessage(ctx context.Context, target onebot.ChatTarget, segments ...onebot.Segment) error
}

// Gateway routes inbound message events to registered command handlers.
type Gateway struct {
	client   PlatformClient
	logger   *zap.Logger
	commands map[string]Handler
}

func NewGateway(client PlatformClient, logger *zap.Logger) *Gateway {
	return &Gateway{
		client:   client,
		logger:   logger,
		commands: make(map[string]Handler),
	}
}

// Register adds a handler under its name and every alias.
func (g *Gateway) Register(h Handler) {
	g.commands[strings.ToLower(h.Name())] = h
	for _, alias := range h.Aliases() {
		g.commands[strings.ToLower(alias)] = h
	}
}

// Run drives the event stream until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	return g.client.Run(ctx, g.handleMessage)
}

func (g *Gateway) handleMessage(ctx context.Context, ev *onebot.MessageEvent) {
	text := ev.PlainText()
	word := commandWord(text)
	if word == "" {
		return
	}
	h, ok := g.commands[strings.ToLower(word)]
	if !ok {
		return
	}
	sess := NewSession(sessionKey(ev), text, &onebotReplier{client: g.client, target: ev.Target()})
	// Each invocation runs on its own goroutine so a slow lookup never
	// stalls the websocket read loop.
	go g.invoke(ctx, h, sess)
}

func (g *Gateway) invoke(ctx context.Context, h Handler, sess *Session) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("command handler panicked",
				zap.String("command", h.Name()),
				zap.String("session", sess.Key()),
				zap.Any("panic", r))
			if err := sess.ReplyText(ctx, "处理命令时发生内部错误，请稍后再试。"); err != nil {
				g.logger.Error("failed to report handler panic", zap.Error(err))
			}
		}
	}()
	g.logger.Info("dispatching command",
		zap.String("command", h.Name()),
		zap.String("session", sess.Key()))
	h.Handle(ctx, sess)
}

// commandWord extracts the first whitespace-delimited token, minus an
// optional leading slash.
func commandWord(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "/")
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		return text[:i]
	}
	return text
}

func sessionKey(ev *onebot.MessageEvent) string {
	if ev.MessageType == onebot.MessageTypeGroup {
		return fmt.Sprintf("group:%d", ev.GroupID)
	}
	return fmt.Sprintf("user:%d", ev.UserID)
}

type onebotReplier struct {
	client PlatformClient
	target onebot.ChatTarget
}

func (r *onebotReplier) ReplyText(ctx context.Context, text string) error {
	return r.client.SendMessage(ctx, r.target, onebot.Text(text))
}

func (r *onebotReplier) ReplyImage(ctx context.Context, path string) error {
	seg, err := onebot.Image(path)
	if err != nil {
		return fmt.Errorf("package image attachment: %w", err)
	}
	return r.client.SendMessage(ctx, r.target, seg)
}
