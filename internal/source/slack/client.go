package slack

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://slack.com/api"

// Options configures the Slack adapter.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	return o
}

// APIError is a Slack response with ok=false.
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return "slack api error: " + e.Code
}

// authErrors are the error codes Slack returns for rejected tokens.
var authErrors = map[string]bool{
	"invalid_auth":     true,
	"not_authed":       true,
	"account_inactive": true,
	"token_revoked":    true,
	"token_expired":    true,
}

type userProfile struct {
	RealName    string `json:"real_name"`
	DisplayName string `json:"display_name"`
}

type message struct {
	Type        string       `json:"type"`
	Subtype     string       `json:"subtype,omitempty"`
	TS          string       `json:"ts"`
	ThreadTS    string       `json:"thread_ts,omitempty"`
	Text        string       `json:"text"`
	User        string       `json:"user"`
	UserProfile *userProfile `json:"user_profile,omitempty"`
	ReplyCount  int          `json:"reply_count,omitempty"`
}

func (m message) authorName() string {
	if m.UserProfile != nil {
		if m.UserProfile.DisplayName != "" {
			return m.UserProfile.DisplayName
		}
		if m.UserProfile.RealName != "" {
			return m.UserProfile.RealName
		}
	}
	return m.User
}

func (m message) isThreadParent() bool {
	return m.ThreadTS != "" && m.ThreadTS == m.TS && m.ReplyCount > 0
}

func (m message) isReply() bool {
	return m.ThreadTS != "" && m.ThreadTS != m.TS
}

type envelope struct {
	OK               bool   `json:"ok"`
	Error            string `json:"error,omitempty"`
	HasMore          bool   `json:"has_more,omitempty"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type messagesResponse struct {
	envelope
	Messages []message `json:"messages"`
}

type authTestResponse struct {
	envelope
	UserID string `json:"user_id"`
	TeamID string `json:"team_id"`
	URL    string `json:"url"`
}

type client struct {
	http *resty.Client
}

func newClient(opts Options, token string) *client {
	c := resty.New()
	c.SetBaseURL(opts.BaseURL)
	c.SetTimeout(opts.Timeout)
	c.SetAuthToken(token)
	return &client{http: c}
}

func (c *client) get(ctx context.Context, method string, params map[string]string, out interface{ result() *envelope }) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get("/" + method)
	if err != nil {
		return fmt.Errorf("failed to call Slack API %s: %w", method, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("Slack API %s error: status %d", method, resp.StatusCode())
	}
	if env := out.result(); !env.OK {
		return &APIError{Code: env.Error}
	}
	return nil
}

func (e *envelope) result() *envelope { return e }

func (c *client) authTest(ctx context.Context) (*authTestResponse, error) {
	var out authTestResponse
	if err := c.get(ctx, "auth.test", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type historyQuery struct {
	channel   string
	cursor    string
	limit     int
	oldest    string
	latest    string
	inclusive bool
}

func (c *client) history(ctx context.Context, q historyQuery) (*messagesResponse, error) {
	params := map[string]string{
		"channel": q.channel,
		"limit":   strconv.Itoa(q.limit),
	}
	if q.cursor != "" {
		params["cursor"] = q.cursor
	}
	if q.oldest != "" {
		params["oldest"] = q.oldest
	}
	if q.latest != "" {
		params["latest"] = q.latest
	}
	if q.inclusive {
		params["inclusive"] = "true"
	}
	var out messagesResponse
	if err := c.get(ctx, "conversations.history", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) replies(ctx context.Context, channel, threadTS, cursor string) (*messagesResponse, error) {
	params := map[string]string{
		"channel": channel,
		"ts":      threadTS,
		"limit":   "200",
	}
	if cursor != "" {
		params["cursor"] = cursor
	}
	var out messagesResponse
	if err := c.get(ctx, "conversations.replies", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// formatTS converts a time to a Slack timestamp.
func formatTS(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// parseTS converts a Slack timestamp like "1234567890.123456" to time.Time.
func parseTS(ts string) time.Time {
	parts := strings.SplitN(ts, ".", 2)
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nsec int64
	if len(parts) == 2 {
		frac := parts[1]
		for len(frac) < 6 {
			frac += "0"
		}
		if len(frac) > 6 {
			frac = frac[:6]
		}
		if us, err := strconv.ParseInt(frac, 10, 64); err == nil {
			nsec = us * 1000
		}
	}
	if sec > math.MaxInt64/int64(time.Second) {
		return time.Time{}
	}
	return time.Unix(sec, nsec).UTC()
}
