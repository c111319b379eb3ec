package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunescope/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Endpoint identifies a provider endpoint for quota, cache, and routing
// purposes.
type Endpoint struct {
	Name string        // cost table identity, e.g. "playlists.list"
	Path string        // path under the API base, e.g. "/playlists"
	TTL  time.Duration // cache lifetime for responses
}

// TokenSource supplies a valid access token for outbound requests.
// Implemented by [auth.Session].
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// StatusError is a non-2xx provider response that is neither a quota nor an
// auth failure. Services map it onto resource-specific sentinels.
type StatusError struct {
	Code    int
	Reason  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube API error %d (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube API error %d: %s", e.Code, e.Message)
}

// Config collects gateway dependencies.
type Config struct {
	BaseURL    string
	Session    TokenSource
	Ledger     *Ledger
	Cache      *Cache
	HTTPClient *http.Client
	Logger     *log.Logger

	// RequestsPerSecond paces outbound calls client-side. Defaults to 5.
	RequestsPerSecond float64
	// MaxAttempts bounds retries for transient failures. Defaults to 3.
	MaxAttempts int
}

// Gateway composes the session, ledger, and cache into one admission-
// controlled call path.
type Gateway struct {
	baseURL     string
	session     TokenSource
	ledger      *Ledger
	cache       *Cache
	httpClient  *http.Client
	logger      *log.Logger
	limiter     *rate.Limiter
	group       singleflight.Group
	maxAttempts int
	backoffBase time.Duration
}

// New creates a gateway from cfg.
func New(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Gateway{
		baseURL:     cfg.BaseURL,
		session:     cfg.Session,
		ledger:      cfg.Ledger,
		cache:       cfg.Cache,
		httpClient:  cfg.HTTPClient,
		logger:      cfg.Logger,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		maxAttempts: cfg.MaxAttempts,
		backoffBase: 500 * time.Millisecond,
	}
}

// Call performs one admission-controlled request: cache lookup, then quota
// reservation, then an authenticated fetch with retry, then cache store.
//
// Concurrent calls with the same fingerprint share a single in-flight fetch.
func (g *Gateway) Call(ctx context.Context, ep Endpoint, params url.Values) ([]byte, error) {
	fp := Fingerprint(ep.Name, params)

	if payload, ok, err := g.cache.Get(fp); err != nil {
		g.logger.Warn("cache read failed", "endpoint", ep.Name, "err", err)
	} else if ok {
		g.logger.Debug("cache hit", "endpoint", ep.Name)
		return payload, nil
	}

	v, err, _ := g.group.Do(fp, func() (any, error) {
		// A waiter that lost the race to the leader finds the entry here.
		if payload, ok, _ := g.cache.Get(fp); ok {
			return payload, nil
		}

		if err := g.ledger.Reserve(ep.Name); err != nil {
			return nil, err
		}

		payload, err := g.fetch(ctx, ep, params)
		if err != nil {
			return nil, err
		}

		if err := g.cache.Put(fp, payload, ep.TTL); err != nil {
			g.logger.Warn("cache write failed", "endpoint", ep.Name, "err", err)
		}

		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

// listPage is the provider's list-response envelope.
type listPage struct {
	Items         []json.RawMessage `json:"items"`
	NextPageToken string            `json:"nextPageToken"`
}

// CallPaged follows continuation tokens for a list endpoint, stitching items
// into one ordered sequence until no token remains or maxItems is reached.
//
// Each page is its own quota reservation and cache entry, so a cached page is
// reusable across sweeps. Cancellation is checked at page boundaries only.
// On a mid-sweep failure the pages fetched so far are returned alongside the
// error; committed ledger and cache state stays valid.
func (g *Gateway) CallPaged(ctx context.Context, ep Endpoint, params url.Values, maxItems int) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0, maxItems)

	pageParams := url.Values{}
	for k, v := range params {
		pageParams[k] = append([]string(nil), v...)
	}

	for {
		select {
		case <-ctx.Done():
			return items, ctx.Err()
		default:
		}

		payload, err := g.Call(ctx, ep, pageParams)
		if err != nil {
			return items, err
		}

		var page listPage
		if err := json.Unmarshal(payload, &page); err != nil {
			return items, fmt.Errorf("%w: %s page: %v", shared.ErrMalformedResponse, ep.Name, err)
		}

		for _, item := range page.Items {
			items = append(items, item)
			if maxItems > 0 && len(items) >= maxItems {
				return items, nil
			}
		}

		if page.NextPageToken == "" {
			return items, nil
		}
		pageParams.Set("pageToken", page.NextPageToken)
	}
}

// fetch performs the authenticated request with bounded retry. Transient
// failures (network errors, 5xx, provider rate-limit signals) back off
// exponentially with jitter; quota exhaustion and auth failures return
// immediately.
func (g *Gateway) fetch(ctx context.Context, ep Endpoint, params url.Values) ([]byte, error) {
	var lastErr error
	backoff := g.backoffBase

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		token, err := g.session.Token(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := g.doRequest(ctx, ep, params, token)
		if err == nil {
			return payload, nil
		}
		if !retryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt < g.maxAttempts {
			wait := withJitter(backoff)
			g.logger.Debug("transient failure, backing off", "endpoint", ep.Name, "attempt", attempt, "wait", wait, "err", err)
			if !sleep(ctx, wait) {
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("%w: %s: retries exhausted: %v", shared.ErrTransientNetwork, ep.Name, lastErr)
}

func (g *Gateway) doRequest(ctx context.Context, ep Endpoint, params url.Values, token *oauth2.Token) ([]byte, error) {
	apiURL := g.baseURL + ep.Path
	if encoded := params.Encode(); encoded != "" {
		apiURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	return nil, g.classifyFailure(resp.StatusCode, body)
}

// apiErrorBody is the provider's error envelope.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// classifyFailure maps a non-2xx response onto the error taxonomy. The
// provider reports both quota exhaustion and per-user rate limiting as 403,
// distinguished by reason; only the latter is retryable.
func (g *Gateway) classifyFailure(status int, body []byte) error {
	var parsed apiErrorBody
	reason, message := "", ""
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Code != 0 {
		message = parsed.Error.Message
		if len(parsed.Error.Errors) > 0 {
			reason = parsed.Error.Errors[0].Reason
		}
	}

	switch reason {
	case "quotaExceeded", "dailyLimitExceeded":
		return fmt.Errorf("%w: provider signalled exhaustion: %s", shared.ErrQuotaExceeded, message)
	case "rateLimitExceeded", "userRateLimitExceeded":
		return &transientError{err: &StatusError{Code: status, Reason: reason, Message: message}}
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: provider rejected token: %s", shared.ErrAuthExpired, message)
	case status == http.StatusTooManyRequests || status >= 500:
		return &transientError{err: &StatusError{Code: status, Reason: reason, Message: message}}
	}

	return &StatusError{Code: status, Reason: reason, Message: message}
}

// transientError marks a failure as safe to retry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func retryable(err error) bool {
	_, ok := err.(*transientError)
	return ok
}

// withJitter spreads a backoff delay across [d/2, 3d/2).
func withJitter(d time.Duration) time.Duration {
	half := int64(d / 2)
	return time.Duration(half + rand.Int63n(int64(d)))
}

// sleep waits for the duration or until the context is cancelled. Returns
// false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
