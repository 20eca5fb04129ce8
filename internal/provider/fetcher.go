package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxPayloadBytes caps a single provider response.
const maxPayloadBytes = 4 << 20

// Target is one document to fetch from a provider: a path and query relative
// to the provider endpoint, plus the station identity for sources whose
// payload carries none.
type Target struct {
	Path    string
	Query   url.Values
	Station *StationRef
}

// Source is a configured provider
type Source struct {
	Name     string
	Kind     Kind
	Endpoint string
	Interval time.Duration
	Targets  []Target
}

// Fetcher pulls payloads from provider HTTP endpoints
type Fetcher struct {
	httpClient *http.Client
	headers    http.Header
	logger     *slog.Logger
}

// NewFetcher creates a fetcher whose requests give up after timeout
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: http.Header{"Accept": {"application/json"}},
		logger:  logger,
	}
}

// Fetch downloads every target of src. Payloads from targets that succeeded
// are returned alongside the joined errors of those that failed.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]Payload, error) {
	targets := src.Targets
	if len(targets) == 0 {
		targets = []Target{{}}
	}

	var (
		payloads []Payload
		errs     []error
	)
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		u, err := targetURL(src.Endpoint, t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		raw, err := f.get(ctx, u)
		if err != nil {
			f.logger.Warn("provider fetch failed", "provider", src.Name, "url", redactURL(u), "error", err)
			errs = append(errs, err)
			continue
		}
		p, err := DecodePayload(raw, t.Station)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", redactURL(u), err))
			continue
		}
		payloads = append(payloads, p)
	}
	return payloads, errors.Join(errs...)
}

func (f *Fetcher) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range f.headers {
		req.Header[k] = v
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider API error: status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func targetURL(endpoint string, t Target) (string, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("bad endpoint: %w", stripURL(err))
	}
	if t.Path != "" {
		base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(t.Path, "/")
	}
	if len(t.Query) > 0 {
		q := base.Query()
		for k, vs := range t.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		base.RawQuery = q.Encode()
	}
	return base.String(), nil
}

// redactURL keeps scheme, host and path. Query strings and userinfo carry
// provider credentials (token=, key=) and never reach logs or errors.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
}

// stripURL replaces the URL inside transport errors with its redacted form.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s %s: %w", uerr.Op, redactURL(uerr.URL), uerr.Err)
	}
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
