// Package upstream 提供调用远端生成服务的 JSON-over-HTTP 辅助函数，
// 统一把传输错误与非 2xx 响应映射为 types.Error。
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/BaSui01/technoflow/types"
)

const (
	// maxErrorBody caps how much of an error response is kept in the message.
	maxErrorBody = 2048
	// maxResponseBody caps a decoded 2xx response.
	maxResponseBody = 8 << 20
)

// DoJSON sends body as JSON (when non-nil) and decodes a 2xx response into out.
// Non-2xx responses and transport failures come back as *types.Error with the
// retryable flag set for 429, 5xx and network errors.
func DoJSON(ctx context.Context, client *http.Client, provider, method, endpoint string, header http.Header, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return types.NewError(types.ErrUpstreamError, provider+" request failed").
			WithCause(err).
			WithRetryable(ctx.Err() == nil).
			WithProvider(provider)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(provider, resp.StatusCode, errBody)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return types.NewError(types.ErrUpstreamError, "failed to decode "+provider+" response").
			WithCause(err).
			WithHTTPStatus(resp.StatusCode).
			WithProvider(provider)
	}
	return nil
}

func statusError(provider string, status int, body []byte) *types.Error {
	msg := fmt.Sprintf("%s error: status=%d body=%s", provider, status, string(body))
	var e *types.Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = types.NewError(types.ErrAuthentication, msg)
	case status == http.StatusTooManyRequests:
		e = types.NewError(types.ErrRateLimited, msg).WithRetryable(true)
	case status >= 500:
		e = types.NewError(types.ErrUpstreamError, msg).WithRetryable(true)
	default:
		e = types.NewError(types.ErrUpstreamError, msg)
	}
	return e.WithHTTPStatus(status).WithProvider(provider)
}
