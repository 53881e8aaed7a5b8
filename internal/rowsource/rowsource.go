// Package rowsource fetches scraped portfolio rows from the row server.
//
// The server answers GET {base}/portfolio, optionally filtered with the
// quarter and fy query parameters, with a JSON array of row arrays.
package rowsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/seenimoa/investorfolio/pkg/models"
)

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Fetcher is what the viewer needs from a row source.
type Fetcher interface {
	Fetch(ctx context.Context, q *models.Quarter) ([]models.PortfolioRow, error)
}

// Options configures a Client.
type Options struct {
	Timeout        time.Duration
	RequestsPerSec float64 // 0 disables limiting
	HTTPClient     *http.Client
	Logger         logrus.FieldLogger
}

// Client fetches rows from one row server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// New creates a client for the row server at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse row source URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("row source URL %q must be absolute", baseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{baseURL: u, http: hc, limiter: limiter, log: log}, nil
}

// PortfolioURL returns the request URL for q. A nil q fetches the server's
// default row set without query parameters.
func (c *Client) PortfolioURL(q *models.Quarter) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/portfolio"
	if q != nil {
		v := url.Values{}
		v.Set("quarter", q.Quarter.String())
		v.Set("fy", strconv.Itoa(q.FinancialYear))
		u.RawQuery = v.Encode()
	}
	return u.String()
}

// Fetch downloads and decodes the rows for q.
func (c *Client) Fetch(ctx context.Context, q *models.Quarter) ([]models.PortfolioRow, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := c.PortfolioURL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	var rows []models.PortfolioRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows from %s: %w", target, err)
	}
	if rows == nil {
		rows = []models.PortfolioRow{}
	}

	c.log.WithFields(logrus.Fields{
		"url":     target,
		"rows":    len(rows),
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Debug("fetched portfolio rows")
	return rows, nil
}

// FetchOrEmpty fetches rows from f and turns any failure into an empty row
// set, so the caller can show its "no data" state.
func FetchOrEmpty(ctx context.Context, f Fetcher, q *models.Quarter, log logrus.FieldLogger) []models.PortfolioRow {
	rows, err := f.Fetch(ctx, q)
	if err != nil {
		entry := log.WithError(err)
		if q != nil {
			entry = entry.WithField("quarter", q.String())
		}
		entry.Error("fetching portfolio rows failed")
		return []models.PortfolioRow{}
	}
	return rows
}
