// Package prismic is a small read-only client for the Prismic REST API v2:
// master-ref lookup, predicate search and next_page continuation.
package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/eringen/spacetraveling/logger"
)

// Config configures a Client. Only Endpoint is required.
type Config struct {
	Endpoint      string        // API root, e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken   string        // optional, sent as access_token
	Timeout       time.Duration // per attempt (default 10s)
	MaxTries      uint          // attempts per call including the first (default 3)
	RetryInterval time.Duration // initial backoff (default 200ms)
	RefTTL        time.Duration // master ref cache lifetime (default 30s)
	HTTPClient    *http.Client  // optional; Timeout is ignored when set
}

func (c *Config) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxTries == 0 {
		c.MaxTries = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	if c.RefTTL == 0 {
		c.RefTTL = 30 * time.Second
	}
}

// Client queries one Prismic repository. It is safe for concurrent use.
type Client struct {
	cfg      Config
	endpoint *url.URL
	http     *http.Client
	refs     *refCache
}

// New creates a Client for cfg.Endpoint.
func New(cfg Config) (*Client, error) {
	cfg.setDefaults()
	endpoint, err := url.Parse(strings.TrimSuffix(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("prismic: invalid endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("prismic: endpoint must be an absolute URL, got %q", cfg.Endpoint)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &loggingTransport{inner: http.DefaultTransport},
		}
	}
	c := &Client{cfg: cfg, endpoint: endpoint, http: httpClient}
	c.refs = newRefCache(cfg.RefTTL, c.loadMasterRef)
	return c, nil
}

// Query describes a document search.
type Query struct {
	Ref        string // empty means the master ref
	Predicates []Predicate
	Fetch      []string // field projection, e.g. "posts.title"
	Orderings  []Ordering
	PageSize   int
	Page       int
	Lang       string
}

// MasterRef returns the ref of the currently published content.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	return c.refs.Get(ctx)
}

func (c *Client) loadMasterRef(ctx context.Context) (string, error) {
	var info apiInfo
	if err := c.getJSON(ctx, c.apiURL("", nil), &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", errors.New("prismic: repository has no master ref")
}

// Query runs a search and returns one page of results. A search on the
// cached master ref that answers 404 means the ref was superseded by a new
// publication: the cache is dropped and the search retried once.
func (c *Client) Query(ctx context.Context, q Query) (Response, error) {
	if q.Ref != "" {
		return c.search(ctx, q.Ref, q)
	}
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return Response{}, err
	}
	resp, err := c.search(ctx, ref, q)
	if !errors.Is(err, ErrNotFound) {
		return resp, err
	}
	logger.Warn("prismic master ref rejected, reloading", logger.Fields{"ref": ref})
	c.refs.Invalidate()
	if ref, err = c.MasterRef(ctx); err != nil {
		return Response{}, err
	}
	return c.search(ctx, ref, q)
}

func (c *Client) search(ctx context.Context, ref string, q Query) (Response, error) {
	v := url.Values{}
	v.Set("ref", ref)
	if len(q.Predicates) > 0 {
		v.Set("q", encodePredicates(q.Predicates))
	}
	if len(q.Fetch) > 0 {
		v.Set("fetch", strings.Join(q.Fetch, ","))
	}
	if len(q.Orderings) > 0 {
		v.Set("orderings", encodeOrderings(q.Orderings))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Lang != "" {
		v.Set("lang", q.Lang)
	}

	var resp Response
	if err := c.getJSON(ctx, c.apiURL("/documents/search", v), &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// FetchPage follows a next_page URL returned by a previous search. The URL is
// used as given; it must point at the configured repository host.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (Response, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Response{}, fmt.Errorf("prismic: invalid page url: %w", err)
	}
	if u.Scheme != c.endpoint.Scheme || u.Host != c.endpoint.Host {
		return Response{}, fmt.Errorf("prismic: page url %q is not on %s", pageURL, c.endpoint.Host)
	}
	if c.cfg.AccessToken != "" && !u.Query().Has("access_token") {
		q := u.Query()
		q.Set("access_token", c.cfg.AccessToken)
		u.RawQuery = q.Encode()
	}

	var resp Response
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (c *Client) apiURL(rel string, q url.Values) string {
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + rel
	if c.cfg.AccessToken != "" {
		if q == nil {
			q = url.Values{}
		}
		q.Set("access_token", c.cfg.AccessToken)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// getJSON GETs rawURL into out, retrying with exponential backoff while the
// failure is ErrUpstreamUnavailable.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	op := func() (struct{}, error) {
		err := c.fetchOnce(ctx, rawURL, out)
		if err == nil || errors.Is(err, ErrUpstreamUnavailable) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("prismic request retry", logger.Fields{
				"url":   redactURL(mustParse(rawURL)),
				"error": err.Error(),
				"next":  next.String(),
			})
		}),
	)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrUpstreamUnavailable) {
		err = fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return err
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status=%d body=%s", ErrUpstreamUnavailable, resp.StatusCode, snippet(resp.Body))
	default:
		return fmt.Errorf("prismic: status=%d body=%s", resp.StatusCode, snippet(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("prismic: decode response: %w", err)
	}
	return nil
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 2048))
	return string(b)
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
