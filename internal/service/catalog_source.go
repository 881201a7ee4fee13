package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/user/gunvortv/internal/config"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/metrics"
)

// Resource remote catalog document kind
type Resource string

const (
	ResourceContent     Resource = "content"
	ResourceCreators    Resource = "creators"
	ResourceCollections Resource = "collections"
)

// maxDocumentSize upper bound for one catalog document
const maxDocumentSize = 32 << 20

// FetchError upstream catalog fetch failure
type FetchError struct {
	Resource   Resource
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d from %s", e.Resource, e.StatusCode, e.URL)
	}
	if e.URL == "" {
		return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("fetch %s from %s: %v", e.Resource, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CatalogSource returns raw catalog documents.
// A nil document with a nil error means the resource is not configured.
type CatalogSource interface {
	Fetch(ctx context.Context, resource Resource) ([]byte, error)
}

// HTTPCatalogSource reads catalog documents from object storage over HTTP
type HTTPCatalogSource struct {
	client  *http.Client
	urls    map[Resource]string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPCatalogSource creates the remote catalog source
func NewHTTPCatalogSource(cfg config.CatalogConfig) *HTTPCatalogSource {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	metrics.CatalogBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "catalog-source",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a caller giving up is not an upstream failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("from", from.String()).Str("to", to.String()).Msg("[CatalogSource] circuit breaker state change")
			metrics.CatalogBreakerState.Set(breakerStateValue(to))
		},
	})

	return &HTTPCatalogSource{
		client: &http.Client{},
		urls: map[Resource]string{
			ResourceContent:     cfg.ContentURL,
			ResourceCreators:    cfg.CreatorsURL,
			ResourceCollections: cfg.CollectionsURL,
		},
		timeout: timeout,
		cb:      cb,
	}
}

// Fetch downloads one document, bounded by the fetch timeout
func (s *HTTPCatalogSource) Fetch(ctx context.Context, resource Resource) ([]byte, error) {
	url := s.urls[resource]
	if url == "" {
		return nil, nil
	}

	start := time.Now()
	body, err := s.cb.Execute(func() ([]byte, error) {
		return s.get(ctx, resource, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordCatalogFetch(string(resource), "breaker_open", time.Since(start))
			return nil, &FetchError{Resource: resource, URL: url, Err: err}
		}
		metrics.RecordCatalogFetch(string(resource), "error", time.Since(start))
		return nil, err
	}

	metrics.RecordCatalogFetch(string(resource), "ok", time.Since(start))
	return body, nil
}

func (s *HTTPCatalogSource) get(ctx context.Context, resource Resource, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Resource: resource, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Resource: resource, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Resource: resource, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, &FetchError{Resource: resource, URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
