package heyao

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/heyao-tools/heyaobot/internal/bot"
)

const (
	commandName  = "heyao"
	usageMessage = "请提供订单号。用法：/heyao <订单号>"
)

var commandAliases = []string{"河妖", "查订单"}

// OrderAPI is the lookup boundary; satisfied by *Client.
type OrderAPI interface {
	Query(ctx context.Context, orderID string) (*QueryResponse, error)
}

// Plugin implements the /heyao command: look an order up, draw the
// notification image, deliver it into the chat.
type Plugin struct {
	api      OrderAPI
	renderer *ImageRenderer
	images   PointerStore
	logger   *zap.Logger
}

func New(api OrderAPI, renderer *ImageRenderer, images PointerStore, logger *zap.Logger) *Plugin {
	return &Plugin{
		api:      api,
		renderer: renderer,
		images:   images,
		logger:   logger,
	}
}

func (p *Plugin) Name() string { return commandName }

func (p *Plugin) Aliases() []string { return commandAliases }

// Handle runs one order query end to end. Every failure mode gets its own
// chat reply; the session never goes silent.
func (p *Plugin) Handle(ctx context.Context, sess *bot.Session) {
	orderID, ok := orderArgument(sess.Text())
	if !ok {
		p.logger.Warn("order query without an order id", zap.String("session", sess.Key()))
		p.reply(ctx, sess, usageMessage)
		return
	}

	p.logger.Info("order query received",
		zap.String("order_id", orderID),
		zap.String("session", sess.Key()))
	p.reply(ctx, sess, fmt.Sprintf("正在查询订单号：%s...", orderID))

	resp, err := p.api.Query(ctx, orderID)
	if err != nil {
		p.reply(ctx, sess, fmt.Sprintf("查询订单 %s 时出错，请检查日志或稍后再试。", orderID))
		return
	}

	details, err := ExtractOrderDetails(resp, orderID)
	if err != nil {
		p.replyExtractionError(ctx, sess, orderID, err)
		return
	}
	p.logger.Info("order details parsed",
		zap.String("order_id", orderID),
		zap.Int("fields", len(details)))

	path, report, err := p.renderer.Render(details)
	if err != nil {
		// The previous image, if any, stays on disk and in the store.
		p.logger.Error("image generation failed", zap.String("order_id", orderID), zap.Error(err))
		p.reply(ctx, sess, fmt.Sprintf("成功获取订单信息，但在生成图片时失败。(订单号: %s)", orderID))
		return
	}
	logDegradedFields(p.logger, orderID, report)

	p.replacePrevious(ctx, sess.Key(), path)

	if err := sess.ReplyImage(ctx, path); err != nil {
		// The file and the pointer both stay: the image exists even though
		// this delivery did not go through.
		p.logger.Error("image delivery failed",
			zap.String("order_id", orderID),
			zap.String("path", path),
			zap.Error(err))
		p.reply(ctx, sess, "生成图片成功，但发送时遇到问题。")
		return
	}
	p.logger.Info("order notification delivered",
		zap.String("order_id", orderID),
		zap.String("path", path))
}

// replacePrevious deletes the session's previous image, if it still exists,
// and records path as the new one. It runs only after a successful render,
// so a failed generation never costs the last good image.
func (p *Plugin) replacePrevious(ctx context.Context, key, path string) {
	prev, err := p.images.Last(ctx, key)
	if err != nil {
		p.logger.Warn("previous image lookup failed", zap.String("session", key), zap.Error(err))
	} else if prev != "" && prev != path {
		if _, err := os.Stat(prev); err == nil {
			if err := os.Remove(prev); err != nil {
				p.logger.Error("deleting previous image failed", zap.String("path", prev), zap.Error(err))
			} else {
				p.logger.Info("deleted previous image", zap.String("path", prev))
			}
		}
	}
	if err := p.images.Set(ctx, key, path); err != nil {
		p.logger.Warn("recording last image failed", zap.String("session", key), zap.Error(err))
	}
}

func (p *Plugin) replyExtractionError(ctx context.Context, sess *bot.Session, orderID string, err error) {
	var notFound *NotFoundError
	var malformed *MalformedResponseError
	switch {
	case errors.As(err, &notFound):
		p.logger.Warn("order lookup returned no results",
			zap.String("order_id", orderID),
			zap.String("reason", notFound.Reason))
		p.reply(ctx, sess, fmt.Sprintf("查询失败：%s (订单号: %s)", notFound.Reason, orderID))
	case errors.As(err, &malformed):
		p.logger.Warn("order lookup content malformed",
			zap.String("order_id", orderID),
			zap.String("detail", malformed.Detail))
		p.reply(ctx, sess, fmt.Sprintf("查询成功，但未能解析订单详细信息。(订单号: %s)", orderID))
	default:
		p.logger.Error("unexpected extraction failure", zap.String("order_id", orderID), zap.Error(err))
		p.reply(ctx, sess, fmt.Sprintf("处理API响应时发生错误。(订单号: %s)", orderID))
	}
}

func (p *Plugin) reply(ctx context.Context, sess *bot.Session, text string) {
	if err := sess.ReplyText(ctx, text); err != nil {
		p.logger.Error("text reply failed", zap.String("session", sess.Key()), zap.Error(err))
	}
}

// orderArgument splits the command text on the first whitespace run and
// returns the trimmed remainder.
func orderArgument(text string) (string, bool) {
	text = strings.TrimSpace(text)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return "", false
	}
	arg := strings.TrimSpace(text[i:])
	if arg == "" {
		return "", false
	}
	return arg, true
}

func logDegradedFields(logger *zap.Logger, orderID string, report []FieldResult) {
	for _, f := range report {
		if f.Status != DrawOK {
			logger.Warn("field drawn degraded",
				zap.String("order_id", orderID),
				zap.String("field", f.Field),
				zap.String("status", string(f.Status)))
		}
	}
}
