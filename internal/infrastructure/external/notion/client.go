package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
	"github.com/mikaelzzzz/flexge-notion-sync/pkg/circuitbreaker"
	"github.com/mikaelzzzz/flexge-notion-sync/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"
	queryPageSize  = 100
)

// ClientConfig contains configuration for the Notion API client.
type ClientConfig struct {
	// BaseURL is the Notion API base URL (overridable for tests)
	BaseURL string

	// Token is the integration token sent as a Bearer header
	Token string

	// DatabaseID is the weekly report database
	DatabaseID string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token, databaseID string) ClientConfig {
	return ClientConfig{
		BaseURL:    defaultBaseURL,
		Token:      token,
		DatabaseID: databaseID,
		Timeout:    30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Notion API client. It implements sync.TargetProvider.
type Client struct {
	config  ClientConfig
	http    *http.Client
	logger  *slog.Logger
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	mapper  *Mapper
}

// NewClient creates a new Notion API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}

	c := &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  config.Logger,
		retrier: retry.TargetAPIRetrier(),
		mapper:  NewMapper(),
	}
	c.breaker = circuitbreaker.TargetAPIBreaker(func(name string, from, to circuitbreaker.State) {
		config.Logger.Warn("circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	})
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CreatePage creates the weekly report page for one student and returns its
// reference.
func (c *Client) CreatePage(ctx context.Context, rec student.Record, epoch syncdomain.Epoch) (syncdomain.PageRef, error) {
	body := CreatePageRequestDTO{
		Parent:     ParentDTO{DatabaseID: c.config.DatabaseID},
		Properties: c.mapper.PropertiesFromRecord(rec, epoch),
	}

	var page PageDTO
	if err := c.doRequest(ctx, http.MethodPost, "/pages", body, &page); err != nil {
		return "", fmt.Errorf("create page for %s: %w", rec.ID, err)
	}
	if page.ID == "" {
		return "", fmt.Errorf("create page for %s: response carried no page id", rec.ID)
	}

	return syncdomain.PageRef(page.ID), nil
}

// UpdatePage overwrites the visible properties of an existing page. The week
// label is not touched: a page never migrates between epochs.
func (c *Client) UpdatePage(ctx context.Context, ref syncdomain.PageRef, rec student.Record) error {
	props := c.mapper.PropertiesFromRecord(rec, syncdomain.Epoch{})
	delete(props, PropWeek)

	body := UpdatePageRequestDTO{Properties: props}
	if err := c.doRequest(ctx, http.MethodPatch, "/pages/"+url.PathEscape(ref.String()), body, nil); err != nil {
		return fmt.Errorf("update page %s: %w", ref, err)
	}
	return nil
}

// ArchivePage archives a page at the end of its week.
func (c *Client) ArchivePage(ctx context.Context, ref syncdomain.PageRef) error {
	archived := true
	body := UpdatePageRequestDTO{Archived: &archived}
	if err := c.doRequest(ctx, http.MethodPatch, "/pages/"+url.PathEscape(ref.String()), body, nil); err != nil {
		return fmt.Errorf("archive page %s: %w", ref, err)
	}
	return nil
}

// ListCurrentEpochPages returns every live page carrying the epoch's label,
// draining cursor pagination. Pages with unreadable properties are logged
// and skipped rather than failing the listing.
func (c *Client) ListCurrentEpochPages(ctx context.Context, epoch syncdomain.Epoch) ([]syncdomain.PageSnapshot, error) {
	path := "/databases/" + url.PathEscape(c.config.DatabaseID) + "/query"

	var snapshots []syncdomain.PageSnapshot
	cursor := ""

	for {
		body := QueryRequestDTO{
			Filter: &FilterDTO{
				Property: PropWeek,
				Select:   SelectDTO{Name: epoch.Label()},
			},
			PageSize:    queryPageSize,
			StartCursor: cursor,
		}

		var resp QueryResponseDTO
		if err := c.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
			return nil, fmt.Errorf("query pages for %s: %w", epoch.Label(), err)
		}

		for _, page := range resp.Results {
			if page.Archived {
				continue
			}
			snap, err := c.mapper.SnapshotFromPage(page)
			if err != nil {
				c.logger.Warn("skipping unreadable page", "page_id", page.ID, "error", err)
				continue
			}
			snapshots = append(snapshots, snap)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return snapshots, nil
}

// IsHealthy checks if the Notion API accepts the configured token.
func (c *Client) IsHealthy(ctx context.Context) bool {
	path := "/databases/" + url.PathEscape(c.config.DatabaseID) + "/query"
	body := QueryRequestDTO{PageSize: 1}
	var resp QueryResponseDTO
	return c.doSingleRequest(ctx, http.MethodPost, path, body, &resp) == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a request with circuit breaking and retries.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doSingleRequest(ctx, method, path, body, result)
		})
	})
}

// doSingleRequest performs a single request and classifies failures.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal body: %w", err))
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Notion-Version", notionVersion)

	if c.config.Debug {
		c.logger.Debug("notion api request", "method", method, "path", path)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if err := classifyStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
	}

	return nil
}

// classifyStatus maps an HTTP status to a retryable or permanent error.
func classifyStatus(status int, body []byte) error {
	switch {
	case status < 400:
		return nil

	case status == http.StatusUnauthorized:
		return retry.Permanent(shared.WrapError("notion", "request", shared.ErrUnauthorized,
			"integration token rejected", apiError(status, body)))

	case status == http.StatusForbidden:
		return retry.Permanent(shared.WrapError("notion", "request", shared.ErrForbidden,
			"access denied", apiError(status, body)))

	case status == http.StatusTooManyRequests:
		return retry.Retryable(shared.WrapError("notion", "request", shared.ErrRateLimited,
			"rate limit exceeded", apiError(status, body)))

	case status >= 500:
		return retry.Retryable(shared.WrapError("notion", "request", shared.ErrExternalService,
			"server error", apiError(status, body)))

	default:
		return retry.Permanent(apiError(status, body))
	}
}

// apiError parses an error body, falling back to the bare status code.
func apiError(status int, body []byte) error {
	apiErr := &APIErrorDTO{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Message == "" && apiErr.Code == "") {
		apiErr.Message = fmt.Sprintf("status %d", status)
	}
	return apiErr
}
