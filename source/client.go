package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/truvi/booking-etl/processor"
)

const bookingsPath = "api/bookings"

// PageInfo is the pagination envelope returned with every bookings page.
type PageInfo struct {
	Page    int
	PerPage int
	Total   int
}

// LastPage reports whether this page completes the result set. The
// arithmetic check is the authoritative predicate; a partial final page
// does not imply fewer items than per_page.
func (p PageInfo) LastPage() bool {
	return p.Page*p.PerPage >= p.Total
}

// Client fetches booking pages from the upstream REST API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base_url %q", baseURL)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}, nil
}

type pageEnvelope struct {
	Results json.RawMessage `json:"results"`
	Page    flexInt         `json:"page"`
	PerPage flexInt         `json:"per_page"`
	Total   flexInt         `json:"total"`
}

// flexInt tolerates endpoints that serialize pagination counters as
// strings instead of numbers.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %q", s)
	}
	*f = flexInt(n)
	return nil
}

// FetchPage issues one GET against the bookings endpoint with the given
// query parameters and returns the page batch plus pagination metadata.
// A non-2xx status fails the call; there is no retry.
func (c *Client) FetchPage(ctx context.Context, params map[string]interface{}) (*processor.Batch, PageInfo, error) {
	endpoint := c.baseURL.JoinPath(bookingsPath)
	q := endpoint.Query()
	for key, value := range params {
		q.Set(key, fmt.Sprint(value))
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, PageInfo{}, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, PageInfo{}, errors.Wrap(err, "failed to fetch bookings page")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, PageInfo{}, errors.Errorf("unexpected status %d fetching %s", resp.StatusCode, endpoint.Path)
	}

	var envelope pageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, PageInfo{}, errors.Wrap(err, "failed to decode bookings response")
	}

	batch := &processor.Batch{}
	if len(envelope.Results) > 0 {
		if err := json.Unmarshal(envelope.Results, batch); err != nil {
			return nil, PageInfo{}, errors.Wrap(err, "failed to decode results")
		}
	}

	info := PageInfo{
		Page:    int(envelope.Page),
		PerPage: int(envelope.PerPage),
		Total:   int(envelope.Total),
	}
	c.logger.Debug("fetched bookings page",
		zap.Int("page", info.Page),
		zap.Int("rows", batch.NumRows()),
		zap.Int("total", info.Total))
	return batch, info, nil
}
