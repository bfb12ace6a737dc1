// Package authority talks to the remote service that owns activity state.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"example.com/roster/internal/roster"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Reply is the interpreted response to a signup or withdraw request.
type Reply struct {
	Status int
	// Message and Detail are the "message" and "detail" body fields, empty
	// when absent.
	Message string
	Detail  string
	// Decoded is false when the body was not a JSON object.
	Decoded bool
}

// OK reports whether the authority accepted the request.
func (r Reply) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger overrides the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client calls the authority's REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a Client for the authority at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActivities fetches the full roster.
func (c *Client) ListActivities(ctx context.Context) (roster.Snapshot, error) {
	const op = "list activities"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/activities", nil)
	if err != nil {
		return roster.Snapshot{}, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req, op)
	if err != nil {
		return roster.Snapshot{}, err
	}
	if status < 200 || status >= 300 {
		reply := decodeReply(status, body)
		return roster.Snapshot{}, &StatusError{Status: status, Detail: reply.Detail}
	}

	var activities map[string]roster.Activity
	if err := json.Unmarshal(body, &activities); err != nil {
		return roster.Snapshot{}, fmt.Errorf("%w: %s: %v", ErrDecode, op, err)
	}
	return roster.NewSnapshot(activities), nil
}

// Signup asks the authority to enroll email in the named activity. The error
// is non-nil only when the request could not complete.
func (c *Client) Signup(ctx context.Context, activity, email string) (Reply, error) {
	return c.mutate(ctx, "signup", http.MethodPost, "/activities/"+url.PathEscape(activity)+"/signup", email)
}

// Withdraw asks the authority to remove email from the named activity.
func (c *Client) Withdraw(ctx context.Context, activity, email string) (Reply, error) {
	return c.mutate(ctx, "withdraw", http.MethodDelete, "/activities/"+url.PathEscape(activity)+"/participants", email)
}

func (c *Client) mutate(ctx context.Context, op, method, path, email string) (Reply, error) {
	query := url.Values{"email": []string{email}}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return Reply{}, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req, op)
	if err != nil {
		return Reply{}, err
	}
	reply := decodeReply(status, body)
	c.logger.Debug("authority replied", "op", op, "status", status, "decoded", reply.Decoded)
	return reply, nil
}

func (c *Client) do(req *http.Request, op string) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return 0, nil, fmt.Errorf("%s: %w: over %d bytes", op, ErrTooLarge, maxBodyBytes)
	}
	return resp.StatusCode, body, nil
}

func decodeReply(status int, body []byte) Reply {
	reply := Reply{Status: status}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return reply
	}
	reply.Decoded = true
	reply.Message = textField(fields["message"])
	reply.Detail = textField(fields["detail"])
	return reply
}

// textField flattens a body field into display text. Validation errors arrive
// as a list of {"msg": ...} objects and are joined.
func textField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			var entry struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(item, &entry); err == nil && entry.Msg != "" {
				parts = append(parts, entry.Msg)
				continue
			}
			if text := textField(item); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "; ")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
