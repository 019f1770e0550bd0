package heyao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://i.qz.fkw.com/appAjax/wxAppConnectionQuery.jsp?cmd=search"

	wxappAid = "3086825"
	wxappID  = "101"
	itemID   = "103"

	queryTimeout = 15 * time.Second
)

// Client talks to the WeChat mini-app connection-query endpoint that backs
// the Heyao order lookup.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

func NewClient(logger *zap.Logger) *Client {
	return &Client{
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: queryTimeout},
		logger:   logger,
	}
}

type contentField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Query posts a lookup for orderID (matched against the v2 field) and
// decodes the response. Transport errors, non-200 statuses and undecodable
// bodies all come back as errors; an empty result list does not.
func (c *Client) Query(ctx context.Context, orderID string) (*QueryResponse, error) {
	contentList, err := json.Marshal([]contentField{{Key: "v2", Value: orderID}})
	if err != nil {
		return nil, fmt.Errorf("encode contentList: %w", err)
	}
	form := url.Values{
		"wxappAid":    {wxappAid},
		"wxappId":     {wxappID},
		"itemId":      {itemID},
		"contentList": {string(contentList)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Info("querying order api", zap.String("order_id", orderID))
	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			c.logger.Error("order api request timed out",
				zap.String("order_id", orderID),
				zap.Duration("timeout", queryTimeout))
		} else {
			c.logger.Error("order api request failed", zap.String("order_id", orderID), zap.Error(err))
		}
		return nil, fmt.Errorf("query order %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("reading order api response failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("read response for order %s: %w", orderID, err)
	}
	c.logger.Info("order api responded",
		zap.String("order_id", orderID),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("order api returned non-200 status",
			zap.String("order_id", orderID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("query order %s: unexpected status %d", orderID, resp.StatusCode)
	}

	var out QueryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		c.logger.Error("decoding order api response failed",
			zap.String("order_id", orderID),
			zap.Error(err),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("decode response for order %s: %w", orderID, err)
	}
	return &out, nil
}
