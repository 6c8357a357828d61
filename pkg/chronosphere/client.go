// Package chronosphere is a client of the Chronosphere configuration API (config/v1).
package chronosphere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
	"github.com/giantswarm/chronosphere-sync/pkg/metrics"
)

const (
	apiPrefix = "/api/v1/config"

	// TokenHeader carries the API token on every request.
	TokenHeader = "API-Token"

	DefaultMaxRetries      = 3
	DefaultTimeout         = 30 * time.Second
	defaultPageSize        = 200
	backoffInitialInterval = 500 * time.Millisecond
	backoffMaxInterval     = 10 * time.Second

	maxErrorBodySize = 4096
)

// Object is a configuration object as exchanged with the API.
type Object = map[string]any

// API is the set of configuration API operations used to reconcile assets.
type API interface {
	Get(ctx context.Context, kind asset.Kind, slug string) (Object, error)
	Create(ctx context.Context, kind asset.Kind, obj Object) (Object, error)
	Update(ctx context.Context, kind asset.Kind, slug string, obj Object) (Object, error)
	List(ctx context.Context, kind asset.Kind) ([]string, error)
	Ping(ctx context.Context) error
}

// HTTPClient interface for making HTTP requests (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled default HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the timeout of a single HTTP request on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxRetries sets how many times a retryable request is sent again.
func WithMaxRetries(maxRetries uint64) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithBackOff replaces the exponential backoff between retries. It is called once per request.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = newBackOff
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// Client implements API over HTTP with bounded exponential retries.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient HTTPClient
	timeout    time.Duration
	maxRetries uint64
	newBackOff func() backoff.BackOff
	userAgent  string
}

var _ API = (*Client)(nil)

// TenantURL returns the API base URL of a tenant.
func TenantURL(tenant string) string {
	return fmt.Sprintf("https://%s.chronosphere.io", tenant)
}

// New creates a Client for the API at baseURL.
func New(baseURL string, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    u,
		token:      token,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		userAgent:  "chronosphere-sync",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		httpClient := cleanhttp.DefaultPooledClient()
		httpClient.Timeout = c.timeout
		c.httpClient = httpClient
	}
	if c.newBackOff == nil {
		c.newBackOff = defaultBackOff
	}

	return c, nil
}

func defaultBackOff() backoff.BackOff {
	bf := backoff.NewExponentialBackOff()
	bf.InitialInterval = backoffInitialInterval
	bf.MaxInterval = backoffMaxInterval
	return bf
}

// Get returns the object of a kind with the given slug. A missing object is an APIError with code 404.
func (c *Client) Get(ctx context.Context, kind asset.Kind, slug string) (Object, error) {
	var envelope map[string]json.RawMessage
	if err := c.do(ctx, kind, http.MethodGet, objectPath(kind, slug), nil, nil, &envelope); err != nil {
		return nil, err
	}
	return unwrap(kind, envelope)
}

// Create creates an object. It fails with a 409 APIError when the slug is taken.
func (c *Client) Create(ctx context.Context, kind asset.Kind, obj Object) (Object, error) {
	var envelope map[string]json.RawMessage
	body := map[string]any{kind.Singular(): obj}
	if err := c.do(ctx, kind, http.MethodPost, collectionPath(kind), nil, body, &envelope); err != nil {
		return nil, err
	}
	return unwrap(kind, envelope)
}

// Update replaces the object with the given slug.
func (c *Client) Update(ctx context.Context, kind asset.Kind, slug string, obj Object) (Object, error) {
	var envelope map[string]json.RawMessage
	body := map[string]any{kind.Singular(): obj}
	if err := c.do(ctx, kind, http.MethodPut, objectPath(kind, slug), nil, body, &envelope); err != nil {
		return nil, err
	}
	return unwrap(kind, envelope)
}

type pageInfo struct {
	NextToken string `json:"next_token"`
}

// List returns the slugs of every object of a kind, following pagination.
func (c *Client) List(ctx context.Context, kind asset.Kind) ([]string, error) {
	var slugs []string
	token := ""
	seen := map[string]bool{}
	for {
		query := url.Values{}
		query.Set("page.max_size", strconv.Itoa(defaultPageSize))
		if token != "" {
			query.Set("page.token", token)
		}

		var page map[string]json.RawMessage
		if err := c.do(ctx, kind, http.MethodGet, collectionPath(kind), query, nil, &page); err != nil {
			return nil, err
		}

		var objects []struct {
			Slug string `json:"slug"`
		}
		if raw, ok := page[kind.Plural()]; ok {
			if err := json.Unmarshal(raw, &objects); err != nil {
				return nil, fmt.Errorf("failed to decode %s list: %w", kind.Plural(), err)
			}
		}
		for _, obj := range objects {
			slugs = append(slugs, obj.Slug)
		}

		var info pageInfo
		if raw, ok := page["page"]; ok {
			if err := json.Unmarshal(raw, &info); err != nil {
				return nil, fmt.Errorf("failed to decode page of %s list: %w", kind.Plural(), err)
			}
		}
		if info.NextToken == "" {
			return slugs, nil
		}
		if seen[info.NextToken] {
			return nil, fmt.Errorf("%s list returned page token %q twice", kind.Plural(), info.NextToken)
		}
		seen[info.NextToken] = true
		token = info.NextToken
	}
}

// Ping checks that the API is reachable and accepts the token.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("page.max_size", "1")
	return c.do(ctx, asset.KindTeam, http.MethodGet, collectionPath(asset.KindTeam), query, nil, nil)
}

// do sends a request and decodes the JSON response into out. Throttling, server errors and transport
// errors are retried, other error responses are returned at once as APIError.
func (c *Client) do(ctx context.Context, kind asset.Kind, method, path string, query url.Values, body any, out any) error {
	logger := log.FromContext(ctx)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	attempt := 0
	operation := func() error {
		attempt++
		return c.send(ctx, method, path, query, payload, out)
	}
	notify := func(err error, wait time.Duration) {
		metrics.APIRetries.WithLabelValues(kind.String()).Inc()
		logger.V(1).Info("retrying request", "method", method, "path", path, "attempt", attempt, "wait", wait.String(), "error", err.Error())
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return backoff.Permanent(errors.WithStack(err))
	}
	req.Header.Set(TokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return errors.WithStack(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	metrics.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		if apiErr.Retryable() {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode %s %s response: %w", method, path, err))
	}
	return nil
}

func decodeError(resp *http.Response) APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	apiErr := APIError{Code: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
	} else if text := strings.TrimSpace(string(data)); text != "" {
		apiErr.Message = text
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func unwrap(kind asset.Kind, envelope map[string]json.RawMessage) (Object, error) {
	raw, ok := envelope[kind.Singular()]
	if !ok {
		return nil, fmt.Errorf("response has no %q object", kind.Singular())
	}

	var obj Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind.Singular(), err)
	}
	return obj, nil
}

func collectionPath(kind asset.Kind) string {
	return apiPrefix + "/" + kind.Resource()
}

func objectPath(kind asset.Kind, slug string) string {
	return collectionPath(kind) + "/" + url.PathEscape(slug)
}
