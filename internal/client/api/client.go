// Package api is the typed HTTP client for the community hub backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arc_community_backend/internal/client/session"
	"arc_community_backend/internal/common"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Client issues authenticated requests using the token held by the session.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	logger  *zap.Logger
}

// New creates a client for baseURL (scheme and host, without /api).
// A nil httpClient gets a client with a 15 second timeout.
func New(baseURL string, sess *session.Session, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		session: sess,
		logger:  logger.Named("APIClient"),
	}
}

type envelope struct {
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	Data       json.RawMessage    `json:"data"`
	Pagination *common.Pagination `json:"pagination"`
}

// Message renders err for display. API errors show the server message and
// any string details.
func Message(err error) string {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if d, ok := apiErr.Details.(string); ok && d != "" {
			return apiErr.Message + ": " + d
		}
		return apiErr.Message
	}
	return err.Error()
}

// do sends one request. body is JSON-encoded when non-nil, and out receives
// the envelope's data when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*common.Pagination, error) {
	target := c.baseURL + "/api" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	c.logger.Debug("API call", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return env.Pagination, nil
}

func decodeError(status int, raw []byte) error {
	apiErr := &common.APIError{StatusCode: status}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
