// Package rawg is a client for the RAWG video game database API.
package rawg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/timmy/rawgdex/internal/logger"
	"github.com/timmy/rawgdex/internal/pager"
)

const (
	DefaultBaseURL  = "https://api.rawg.io/api"
	DefaultPageSize = 20
	DefaultTimeout  = 15 * time.Second
)

// Config holds client settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	PageSize int
	// RateLimit is the steady request rate per second. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// Observer is told about every finished request.
type Observer interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}

// Client issues one GET per call. It never retries.
type Client struct {
	http     *resty.Client
	base     *url.URL
	key      string
	pageSize int
	limiter  *rate.Limiter
	obs      Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithObserver reports request outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.obs = o
		}
	}
}

// New creates a RAWG client.
// Parameters:
//   - cfg: base URL, key, timeout, default page size and rate limit.
//   - opts: optional observer.
//
// Returns:
//   - *Client: ready client.
//   - error: the base URL is not absolute.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", cfg.BaseURL)
	}

	httpClient := resty.New()
	httpClient.SetTimeout(cfg.Timeout)
	httpClient.SetHeader("Accept", "application/json")
	httpClient.SetHeader("User-Agent", "rawgdex")

	c := &Client{
		http:     httpClient,
		base:     base,
		key:      cfg.APIKey,
		pageSize: cfg.PageSize,
		obs:      nopObserver{},
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PageSize returns the default page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchPage loads one page of a list endpoint.
//
// A page cursor sets the page query parameter on endpoint. A token cursor is
// the absolute next URL from a previous envelope with the API key removed; it
// must point at the configured host and gets the key applied again. When the envelope has
// no next URL but its count says more rows exist, HasMore stays true so the
// list can fall back to asking for the next page number.
func FetchPage[T any](ctx context.Context, c *Client, endpoint string, query url.Values, cursor pager.Cursor) (pager.Page[T], error) {
	target, q, pageNum, err := c.resolve(endpoint, query, cursor)
	if err != nil {
		logger.CtxError(ctx, "Bad RAWG request URL for %s: %v", endpoint, err)
		return pager.Page[T]{}, err
	}

	var env Envelope[T]
	if err := c.get(ctx, endpoint, target, q, &env); err != nil {
		return pager.Page[T]{}, err
	}

	next, err := withoutKey(env.Next)
	if err != nil {
		logger.CtxWarn(ctx, "RAWG returned an unparsable next URL for %s", endpoint)
		return pager.Page[T]{}, &FetchError{Kind: KindDecode, Endpoint: endpoint, Err: err}
	}
	page := pager.Page[T]{Items: env.Results, Next: pager.Token(next)}
	if page.Items == nil {
		page.Items = []T{}
	}
	if page.Next.IsNone() && pageNum > 0 && len(env.Results) > 0 {
		size, _ := strconv.Atoi(q.Get("page_size"))
		if size <= 0 {
			size = c.pageSize
		}
		page.HasMore = pageNum*size < env.Count
	}
	return page, nil
}

// resolve turns endpoint and cursor into the URL to request and its query.
// The returned page number is zero for token cursors.
func (c *Client) resolve(endpoint string, query url.Values, cursor pager.Cursor) (*url.URL, url.Values, int, error) {
	if token, ok := cursor.TokenValue(); ok {
		u, err := url.Parse(token)
		if err != nil {
			return nil, nil, 0, &FetchError{Kind: KindBadRequestURL, Endpoint: endpoint, Err: err}
		}
		if !u.IsAbs() || u.Host != c.base.Host {
			return nil, nil, 0, &FetchError{
				Kind:     KindBadRequestURL,
				Endpoint: endpoint,
				Err:      fmt.Errorf("next url host %q does not match %q", u.Host, c.base.Host),
			}
		}
		q := u.Query()
		q.Del("key")
		u.RawQuery = ""
		return u, q, 0, nil
	}

	q := cloneValues(query)
	n, ok := cursor.PageValue()
	if !ok {
		n = 1
	}
	q.Set("page", strconv.Itoa(n))
	if q.Get("page_size") == "" {
		q.Set("page_size", strconv.Itoa(c.pageSize))
	}
	return c.base.JoinPath(endpoint), q, n, nil
}

// getJSON requests endpoint relative to the base URL and decodes the body
// into out.
func (c *Client) getJSON(ctx context.Context, label, endpoint string, query url.Values, out any) error {
	return c.get(ctx, label, c.base.JoinPath(endpoint), cloneValues(query), out)
}

func (c *Client) get(ctx context.Context, label string, target *url.URL, query url.Values, out any) error {
	start := time.Now()
	err := c.do(ctx, label, target, query, out)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	c.obs.ObserveRequest(label, outcome, elapsed)

	logger.With(logger.Fields{
		logger.FieldEndpoint: label,
		logger.FieldOutcome:  outcome,
	}).WithDuration(elapsed.Milliseconds()).Debug(ctx, "RAWG request finished")
	return err
}

func (c *Client) do(ctx context.Context, label string, target *url.URL, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &FetchError{Kind: KindTransport, Endpoint: label, Err: err}
		}
	}
	if c.key != "" {
		query.Set("key", c.key)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(target.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return &FetchError{Kind: KindTransport, Endpoint: label, Err: err}
	}

	if !resp.IsSuccess() {
		var body struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body(), &body)
		detail := body.Detail
		if detail == "" {
			detail = body.Error
		}
		return &FetchError{Kind: KindStatus, Endpoint: label, Status: resp.StatusCode(), Detail: detail}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldEndpoint: label,
			"bytes":              len(resp.Body()),
		}).Warnf("RAWG response did not match schema: %v", err)
		return &FetchError{Kind: KindDecode, Endpoint: label, Status: resp.StatusCode(), Err: err}
	}
	return nil
}

// withoutKey removes the key parameter RAWG echoes in next URLs, so tokens
// can be shown to clients and logged.
func withoutKey(next string) (string, error) {
	if next == "" {
		return "", nil
	}
	u, err := url.Parse(next)
	if err != nil {
		return "", errors.New("next url does not parse")
	}
	q := u.Query()
	if !q.Has("key") {
		return next, nil
	}
	q.Del("key")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
