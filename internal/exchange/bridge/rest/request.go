package rest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
)

const recvWindow = "5000"

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any, token string, out envelope) error {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyStr = string(payload)
		bodyReader = bytes.NewReader(payload)
	}

	urlStr := c.baseURL + path
	query := ""
	if len(params) > 0 {
		query = params.Encode()
		urlStr += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if c.apiKey != "" {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		signBase := timestamp + c.apiKey + recvWindow + query + bodyStr

		req.Header.Set("X-NCTB-API-KEY", c.apiKey)
		req.Header.Set("X-NCTB-SIGN", sign(c.secret, signBase))
		req.Header.Set("X-NCTB-TIMESTAMP", timestamp)
		req.Header.Set("X-NCTB-RECV-WINDOW", recvWindow)
	}
	if token != "" {
		req.Header.Set("X-NCTB-SESSION", token)
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, exception.ErrTransientIO, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %w", method, path, exception.ErrTransientIO, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, exception.ErrSessionClosed)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s %s: %w: status %s", method, path, exception.ErrTransientIO, resp.Status)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	if retCode, retMsg := out.status(); retCode != 0 {
		return &APIError{Code: retCode, Message: retMsg}
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}

	return nil
}

// APIError is a non-zero retCode in the bridge envelope.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge error: %s (code=%d)", e.Message, e.Code)
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
