package heyao

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NotFoundError reports a response that carried no result records. Reason is
// the user-facing explanation derived from the response's own error, code
// and msg fields.
type NotFoundError struct {
	OrderID string
	Reason  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no results for order %s: %s", e.OrderID, e.Reason)
}

// MalformedResponseError reports a result record whose content is missing or
// not the expected key/value mapping.
type MalformedResponseError struct {
	OrderID string
	Detail  string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed content for order %s: %s", e.OrderID, e.Detail)
}

const fallbackNotFoundReason = "未找到订单信息或API返回格式不正确。"

// ExtractOrderDetails pulls the first result record's display fields out of
// a decoded response. An empty result list yields a NotFoundError; a record
// whose content is absent or not a non-empty string map yields a
// MalformedResponseError.
func ExtractOrderDetails(resp *QueryResponse, orderID string) (OrderDetails, error) {
	if resp == nil {
		return nil, &MalformedResponseError{OrderID: orderID, Detail: "nil response"}
	}
	if len(resp.QueryDataList) == 0 {
		return nil, &NotFoundError{OrderID: orderID, Reason: notFoundReason(resp, orderID)}
	}

	raw := resp.QueryDataList[0].Content
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, &MalformedResponseError{OrderID: orderID, Detail: "first record has no content"}
	}
	var details OrderDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, &MalformedResponseError{
			OrderID: orderID,
			Detail:  fmt.Sprintf("content is not a string map: %v", err),
		}
	}
	if len(details) == 0 {
		return nil, &MalformedResponseError{OrderID: orderID, Detail: "content map is empty"}
	}
	return details, nil
}

// notFoundReason picks the most specific explanation the response offers:
// an explicit error field first, then the not-found code, then the raw msg,
// then a generic fallback.
func notFoundReason(resp *QueryResponse, orderID string) string {
	if resp.Error != "" {
		return "API错误: " + resp.Error
	}
	if resp.Code != nil && *resp.Code == -1 {
		return fmt.Sprintf("未找到订单 %s 的信息。", orderID)
	}
	if resp.Msg != "" {
		return resp.Msg
	}
	return fallbackNotFoundReason
}
