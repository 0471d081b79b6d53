package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	defaultVersion = "2022-06-28"
)

// Client is a thin Notion REST client bound to one access token.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

func newClient(opts Options, limiter *rate.Limiter, token string) *Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetAuthToken(token)
	client.SetHeader("Notion-Version", opts.Version)
	client.SetHeader("Content-Type", "application/json")
	client.SetRetryCount(opts.RetryCount)
	client.SetRetryWaitTime(opts.RetryWaitTime)
	client.SetRetryMaxWaitTime(opts.RetryMaxWaitTime)
	client.AddRetryCondition(retryable)
	return &Client{http: client, limiter: limiter}
}

// retryable retries rate limits and server errors.
func retryable(resp *resty.Response, err error) bool {
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// IsNotFound reports whether err is a Notion 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err is a Notion 401 or 403.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	apiErr := &APIError{}
	req := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to call Notion API %s: %w", path, err)
	}
	if resp.IsError() {
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode()
		}
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("status %d", resp.StatusCode())
		}
		return apiErr
	}
	return nil
}

// Me returns the bot user behind the token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Search lists pages and databases, most recently edited first.
func (c *Client) Search(ctx context.Context, cursor string, pageSize int) (*listResponse[Object], error) {
	body := searchRequest{
		StartCursor: cursor,
		PageSize:    pageSize,
		Sort:        &searchSort{Direction: "descending", Timestamp: "last_edited_time"},
	}
	var out listResponse[Object]
	if err := c.do(ctx, http.MethodPost, "/search", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPage fetches a page by id.
func (c *Client) GetPage(ctx context.Context, id string) (*Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodGet, "/pages/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDatabase fetches a database by id.
func (c *Client) GetDatabase(ctx context.Context, id string) (*Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodGet, "/databases/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBlock fetches a single block by id.
func (c *Client) GetBlock(ctx context.Context, id string) (*Block, error) {
	var out Block
	if err := c.do(ctx, http.MethodGet, "/blocks/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListChildren returns one page of a block's children.
func (c *Client) ListChildren(ctx context.Context, blockID, cursor string) (*listResponse[Block], error) {
	query := map[string]string{"page_size": "100"}
	if cursor != "" {
		query["start_cursor"] = cursor
	}
	var out listResponse[Block]
	if err := c.do(ctx, http.MethodGet, "/blocks/"+blockID+"/children", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListComments returns one page of comments on a page or block.
func (c *Client) ListComments(ctx context.Context, blockID, cursor string) (*listResponse[Comment], error) {
	query := map[string]string{"block_id": blockID, "page_size": "100"}
	if cursor != "" {
		query["start_cursor"] = cursor
	}
	var out listResponse[Comment]
	if err := c.do(ctx, http.MethodGet, "/comments", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Options configures the Notion adapter.
type Options struct {
	BaseURL           string
	Version           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxBlockDepth     int
	RetryCount        int // Retries for 429 and 5xx responses; negative disables
	RetryWaitTime     time.Duration
	RetryMaxWaitTime  time.Duration
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Version == "" {
		o.Version = defaultVersion
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 3
	}
	if o.MaxBlockDepth <= 0 {
		o.MaxBlockDepth = 5
	}
	if o.RetryCount == 0 {
		o.RetryCount = 3
	} else if o.RetryCount < 0 {
		o.RetryCount = 0
	}
	if o.RetryWaitTime <= 0 {
		o.RetryWaitTime = 500 * time.Millisecond
	}
	if o.RetryMaxWaitTime <= 0 {
		o.RetryMaxWaitTime = 10 * time.Second
	}
	if o.RetryMaxWaitTime < o.RetryWaitTime {
		o.RetryMaxWaitTime = o.RetryWaitTime
	}
	return o
}
