// Package csvsource implements the remote record source: CSV snapshots
// fetched over HTTP (or read from a local path) and decoded into typed rows.
package csvsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/majindogo/agri-survey-etl/internal/domain"
)

// Client fetches CSV record sources. Each fetch is a single request scoped
// to the call; the client holds no connection state between calls.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a CSV source client with the given request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchMappings retrieves and decodes the field-to-station mapping records.
func (c *Client) FetchMappings(ctx context.Context, location string) ([]domain.StationMapping, error) {
	recs, err := fetchRecords[domain.StationMapping](ctx, c, location)
	if err != nil {
		return nil, fmt.Errorf("station mappings from %s: %w", location, err)
	}
	c.logger.Info("station mappings fetched", "location", location, "rows", len(recs))
	return recs, nil
}

// FetchMessages retrieves and decodes the raw weather-station messages.
func (c *Client) FetchMessages(ctx context.Context, location string) ([]domain.StationMessage, error) {
	recs, err := fetchRecords[domain.StationMessage](ctx, c, location)
	if err != nil {
		return nil, fmt.Errorf("station messages from %s: %w", location, err)
	}
	c.logger.Info("station messages fetched", "location", location, "rows", len(recs))
	return recs, nil
}

func fetchRecords[T any](ctx context.Context, c *Client, location string) ([]T, error) {
	data, err := c.fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.ErrEmptySource
	}

	var recs []T
	if err := csvutil.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrEmptySource
	}
	return recs, nil
}

// fetch reads the raw bytes at a location. Locations with an http or https
// scheme are fetched over the network; anything else is treated as a local
// file path.
func (c *Client) fetch(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}
