package imports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	log "github.com/geoknoesis/cimshacl/internal/logging"
)

const acceptHeader = "text/turtle, application/rdf+xml;q=0.9, application/n-triples;q=0.8, application/ld+json;q=0.7, */*;q=0.1"

// HTTPFetcher retrieves remote documents with a per-attempt timeout, bounded
// retries on transport errors, 5xx and 429, and a shared rate limit.
type HTTPFetcher struct {
	Client  *http.Client
	Timeout time.Duration
	Retries int
	// InitialInterval is the first retry delay; later delays grow exponentially.
	InitialInterval time.Duration
	Limiter         *rate.Limiter
	UserAgent       string
	MaxBytes        int64
	Cache           *Cache
}

// HTTPConfig configures NewHTTPFetcher.
type HTTPConfig struct {
	Timeout       time.Duration
	Retries       int
	RatePerSecond float64
	Burst         int
	UserAgent     string
	CacheEntries  int
}

// NewHTTPFetcher builds a fetcher from cfg.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	f := &HTTPFetcher{
		Client:          &http.Client{},
		Timeout:         cfg.Timeout,
		Retries:         cfg.Retries,
		InitialInterval: 500 * time.Millisecond,
		UserAgent:       cfg.UserAgent,
		Cache:           NewCache(cfg.CacheEntries),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		f.Limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return f
}

// Fetch retrieves target, serving it from the cache when still fresh.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (*Payload, error) {
	if payload, ok := f.Cache.Get(target); ok {
		cacheHits.Inc()
		log.Ctx(ctx).Debug().Str("target", target).Msg("import served from cache")
		return payload, nil
	}

	policy := backoff.NewExponentialBackOff()
	if f.InitialInterval > 0 {
		policy.InitialInterval = f.InitialInterval
	}
	retries := f.Retries
	if retries < 0 {
		retries = 0
	}
	attempt := 0
	return backoff.RetryWithData(func() (*Payload, error) {
		attempt++
		payload, err := f.fetchOnce(ctx, target)
		if err != nil && attempt <= retries {
			log.Ctx(ctx).Debug().Err(err).Str("target", target).Int("attempt", attempt).Msg("retrying import fetch")
		}
		return payload, err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, target string) (*Payload, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
	}

	reqCtx := ctx
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(&FetchError{Target: target, Err: err})
	}
	req.Header.Set("Accept", acceptHeader)
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, backoff.Permanent(ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response within %s: %w", f.Timeout, err)
		}
		return nil, &FetchError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &FetchError{Target: target, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, backoff.Permanent(&FetchError{Target: target, Status: resp.StatusCode})
	}

	content, err := readBounded(resp.Body, f.MaxBytes)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, backoff.Permanent(ctxErr)
		}
		return nil, &FetchError{Target: target, Status: resp.StatusCode, Err: err}
	}
	payload := &Payload{
		Content:     content,
		ContentType: resp.Header.Get("Content-Type"),
		Location:    resp.Request.URL.String(),
	}
	if f.Cache.Store(target, req, resp, payload) {
		log.Ctx(ctx).Debug().Str("target", target).Msg("import cached")
	}
	return payload, nil
}
