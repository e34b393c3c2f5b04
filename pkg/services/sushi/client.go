// Package sushi fetches COUNTER 5 reports from SUSHI endpoints.
package sushi

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/services/readers/sushi5"
)

const (
	UserAgent    = "counter-atlas/1.0"
	dateLayout   = "2006-01-02"
	maxBodyBytes = 64 << 20
)

// Endpoint identifies a provider and the credentials it expects.
type Endpoint struct {
	URL         string
	RequestorID string
	CustomerID  string
	APIKey      string
	Platform    string
	Insecure    bool
}

// Request selects a report and its date range. Begin and End are widened to
// whole months.
type Request struct {
	Report string
	Begin  time.Time
	End    time.Time
}

type Client struct {
	endpoint Endpoint
	http     *http.Client
	attempts int
	delay    time.Duration
	dump     io.Writer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithRetry retries retryable SUSHI exceptions up to attempts tries in total,
// waiting delay between tries.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(cl *Client) {
		if attempts > 0 {
			cl.attempts = attempts
		}
		cl.delay = delay
	}
}

// WithDump copies every raw response body to w.
func WithDump(w io.Writer) Option {
	return func(cl *Client) { cl.dump = w }
}

func NewClient(endpoint Endpoint, opts ...Option) (*Client, error) {
	if endpoint.URL == "" {
		return nil, fmt.Errorf("sushi endpoint url is required")
	}
	if _, err := url.Parse(endpoint.URL); err != nil {
		return nil, fmt.Errorf("invalid sushi endpoint url: %w", err)
	}

	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 2 * time.Minute},
		attempts: 1,
	}
	if endpoint.Insecure {
		c.http.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ReportURL builds the request URL for req.
func (c *Client) ReportURL(req Request) (string, error) {
	if strings.TrimSpace(req.Report) == "" {
		return "", fmt.Errorf("report id is required")
	}
	if req.Begin.IsZero() || req.End.IsZero() {
		return "", fmt.Errorf("begin and end dates are required")
	}
	period, err := domain.NewPeriod(req.Begin, req.End)
	if err != nil {
		return "", fmt.Errorf("invalid report period: %w", err)
	}

	base, err := url.Parse(strings.TrimRight(c.endpoint.URL, "/") + "/reports/" + strings.ToLower(req.Report))
	if err != nil {
		return "", fmt.Errorf("invalid sushi endpoint url: %w", err)
	}

	q := base.Query()
	q.Set("customer_id", c.endpoint.CustomerID)
	q.Set("requestor_id", c.endpoint.RequestorID)
	q.Set("begin_date", period.Start.Format(dateLayout))
	q.Set("end_date", period.End.Format(dateLayout))
	if c.endpoint.APIKey != "" {
		q.Set("api_key", c.endpoint.APIKey)
	}
	if c.endpoint.Platform != "" {
		q.Set("platform", c.endpoint.Platform)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Fetch downloads and parses a report. Retryable exceptions (service busy,
// report queued) are retried according to WithRetry; the last error is
// returned once attempts run out.
func (c *Client) Fetch(ctx context.Context, req Request) (*domain.Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("report", req.Report).Logger()

	target, err := c.ReportURL(req)
	if err != nil {
		return nil, &domain.IngestError{Op: "fetch", Source: c.endpoint.URL, Err: err}
	}

	for attempt := 1; ; attempt++ {
		raw, err := c.fetchOnce(ctx, target)
		if err == nil {
			return sushi5.New(c.endpoint.URL).Convert(logger.WithContext(ctx), raw)
		}
		if !domain.IsRetryable(err) || attempt >= c.attempts {
			return nil, err
		}

		logger.Info().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", c.delay).
			Msg("sushi service asked to retry")

		timer := time.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &domain.IngestError{Op: "fetch", Source: c.endpoint.URL, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, target string) (*sushi5.Raw, error) {
	logger := zerolog.Ctx(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.IngestError{Op: "fetch", Source: c.endpoint.URL, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.IngestError{Op: "fetch", Source: c.endpoint.URL, Err: err}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close response body")
		}
	}(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.IngestError{Op: "read", Source: c.endpoint.URL, Err: err}
	}
	if c.dump != nil {
		if _, err := c.dump.Write(body); err != nil {
			logger.Warn().Err(err).Msg("failed to dump sushi response")
		}
	}
	logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("sushi response")

	raw, err := sushi5.Decode(bytes.NewReader(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))), c.endpoint.URL)
	if err != nil {
		// Exceptions are reported whatever the status; anything else from a
		// failed request is the HTTP failure itself.
		var pe *domain.ParseError
		if resp.StatusCode >= http.StatusBadRequest && errors.As(err, &pe) {
			return nil, &domain.IngestError{
				Op:     "fetch",
				Source: c.endpoint.URL,
				Err:    fmt.Errorf("unexpected status %s", resp.Status),
			}
		}
		return nil, err
	}
	return raw, nil
}
