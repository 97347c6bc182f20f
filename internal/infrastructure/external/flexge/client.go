package flexge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
	"github.com/mikaelzzzz/flexge-notion-sync/pkg/circuitbreaker"
	"github.com/mikaelzzzz/flexge-notion-sync/pkg/retry"
	"github.com/mikaelzzzz/flexge-notion-sync/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Flexge API client.
type ClientConfig struct {
	// BaseURL is the partner API students endpoint base URL
	BaseURL string

	// APIKey is sent as the x-api-key header on every request
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL, apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Flexge partner API client. It implements sync.SourceProvider.
type Client struct {
	config  ClientConfig
	http    *http.Client
	logger  *slog.Logger
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	mapper  *Mapper

	// now is swappable for tests that pin the week window.
	now func() time.Time
}

// NewClient creates a new Flexge API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	c := &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  config.Logger,
		retrier: retry.SourceAPIRetrier(),
		mapper:  NewMapper(),
		now:     time.Now,
	}
	c.breaker = circuitbreaker.SourceAPIBreaker(func(name string, from, to circuitbreaker.State) {
		config.Logger.Warn("circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	})
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// FetchCurrentRoster returns a complete snapshot of every student with study
// time inside the current UTC week. Pagination is fully drained before the
// snapshot is returned, and each student's level is resolved via a separate
// overview call.
func (c *Client) FetchCurrentRoster(ctx context.Context) ([]student.Record, error) {
	fetchedAt := c.now().UTC()
	weekStart, weekEnd := timeutil.WeekRangeUTC(fetchedAt)

	docs, err := c.listAllStudents(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}

	records := make([]student.Record, 0, len(docs))
	for _, doc := range docs {
		courseName, err := c.currentCourseName(ctx, doc.ID)
		if err != nil {
			if shared.IsAuthError(err) {
				return nil, fmt.Errorf("fetch overview for %s: %w", doc.ID, err)
			}
			// A broken overview degrades that one student to an
			// unknown level instead of losing the whole snapshot.
			c.logger.Warn("overview fetch failed, level unknown",
				"student_id", doc.ID, "error", err)
			courseName = ""
		}
		records = append(records, c.mapper.RecordFromDTO(doc, courseName, fetchedAt))
	}

	c.logger.Debug("roster assembled",
		"students", len(records),
		"week_start", timeutil.FormatAPITime(weekStart))
	return records, nil
}

// listAllStudents drains the paginated students listing for the week window.
func (c *Client) listAllStudents(ctx context.Context, weekStart, weekEnd time.Time) ([]StudentDTO, error) {
	var all []StudentDTO
	page := 1

	for {
		resp, err := c.listStudentsPage(ctx, page, weekStart, weekEnd)
		if err != nil {
			return nil, fmt.Errorf("students page %d: %w", page, err)
		}

		all = append(all, resp.Docs...)

		if len(resp.Docs) == 0 || (resp.Pages > 0 && page >= resp.Pages) {
			break
		}
		page++
	}

	return all, nil
}

// listStudentsPage fetches one page of students studied inside the window.
func (c *Client) listStudentsPage(ctx context.Context, page int, weekStart, weekEnd time.Time) (*StudentsPageDTO, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("isPlacementTestOnly", "false")
	params.Set("studiedTimeRange[from]", timeutil.FormatAPITime(weekStart))
	params.Set("studiedTimeRange[to]", timeutil.FormatAPITime(weekEnd))

	var response StudentsPageDTO
	if err := c.doRequest(ctx, "?"+params.Encode(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// currentCourseName resolves a student's level via the overview endpoint.
func (c *Client) currentCourseName(ctx context.Context, studentID string) (string, error) {
	path := "/" + url.PathEscape(studentID) + "/overview"

	var response OverviewDTO
	if err := c.doRequest(ctx, path, &response); err != nil {
		return "", err
	}
	return response.CurrentCourseName(), nil
}

// IsHealthy checks if the Flexge API is reachable with the configured key.
func (c *Client) IsHealthy(ctx context.Context) bool {
	params := url.Values{}
	params.Set("page", "1")
	var response StudentsPageDTO
	return c.doSingleRequest(ctx, "?"+params.Encode(), &response) == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a GET with circuit breaking and retries.
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doSingleRequest(ctx, path, result)
		})
	})
}

// doSingleRequest performs a single GET request and classifies failures.
func (c *Client) doSingleRequest(ctx context.Context, path string, result interface{}) error {
	fullURL := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)

	if c.config.Debug {
		c.logger.Debug("flexge api request", "path", path)
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

	if err := c.classifyStatus(resp.StatusCode, respBody); err != nil {
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
// Credential failures are permanent and surfaced as auth errors so a run
// aborts instead of burning through the roster with a bad key.
func (c *Client) classifyStatus(status int, body []byte) error {
	switch {
	case status < 400:
		return nil

	case status == http.StatusUnauthorized:
		return retry.Permanent(shared.WrapError("flexge", "request", shared.ErrUnauthorized,
			"api key rejected", apiError(status, body)))

	case status == http.StatusForbidden:
		return retry.Permanent(shared.WrapError("flexge", "request", shared.ErrForbidden,
			"access denied", apiError(status, body)))

	case status == http.StatusTooManyRequests:
		return retry.Retryable(shared.WrapError("flexge", "request", shared.ErrRateLimited,
			"rate limit exceeded", apiError(status, body)))

	case status >= 500:
		return retry.Retryable(shared.WrapError("flexge", "request", shared.ErrExternalService,
			"server error", apiError(status, body)))

	default:
		return retry.Permanent(apiError(status, body))
	}
}

// apiError parses an error body, falling back to the bare status code.
func apiError(status int, body []byte) error {
	apiErr := &APIErrorDTO{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("status %d", status)
	}
	return apiErr
}
