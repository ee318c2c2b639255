package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"pexelscraper/pkg/config"
	errs "pexelscraper/pkg/errors"
	"pexelscraper/pkg/logger"
)

// Client represents a Pexels API client
type Client struct {
	http   *resty.Client
	logger logger.Logger
}

// Option customizes a Client
type Option func(*resty.Client)

// WithRetryWait overrides the wait between API retries
func WithRetryWait(wait, maxWait time.Duration) Option {
	return func(c *resty.Client) {
		c.SetRetryWaitTime(wait)
		c.SetRetryMaxWaitTime(maxWait)
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(userAgent string) Option {
	return func(c *resty.Client) {
		c.SetHeader("User-Agent", userAgent)
	}
}

// NewClient creates a new Pexels API client. The API key is sent verbatim in
// the Authorization header. Responses with status 429 or 5xx, and transport
// failures, are retried up to cfg.MaxRetries times.
func NewClient(cfg config.PexelsConfig, log logger.Logger, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &errs.Error{Type: errs.ErrorTypeAuth, Message: "Pexels API key is required"}
	}
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Authorization", cfg.APIKey)
	client.SetHeader("Accept", "application/json")
	client.SetRetryCount(cfg.MaxRetries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(8 * time.Second)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled)
		}
		return res != nil && errs.IsRetryableStatusCode(res.StatusCode())
	})

	c := &Client{http: client, logger: log}
	client.OnAfterResponse(c.logResponse)
	client.OnError(func(req *resty.Request, err error) {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":   req.URL,
			"error": err.Error(),
		})
	})

	for _, opt := range opts {
		opt(client)
	}

	return c, nil
}

func (c *Client) logResponse(_ *resty.Client, res *resty.Response) error {
	logger.LogRequest(c.logger, res.Request.Method, res.Request.URL, res.StatusCode(), res.Time().Milliseconds())
	logger.LogRateLimit(c.logger, res.Header().Get(headerRateLimitRemaining), res.Header().Get(headerRateLimitLimit))
	return nil
}

// Transport returns the round tripper behind the API client so image
// downloads can share its connection pool.
func (c *Client) Transport() http.RoundTripper {
	if t := c.http.GetClient().Transport; t != nil {
		return t
	}
	return http.DefaultTransport
}

// Search fetches one page of photos matching query. perPage is clamped to
// [1, MaxPerPage]. Any non-2xx status left after retries is returned as a
// classified *errors.Error.
func (c *Client) Search(ctx context.Context, query string, page, perPage int) (*SearchResponse, error) {
	perPage = ClampPerPage(perPage)

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    query,
			"per_page": strconv.Itoa(perPage),
			"page":     strconv.Itoa(page),
		}).
		Get(SearchEndpoint)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.NewNetworkError("search request failed", err)
	}

	if !res.IsSuccess() {
		apiErr := errs.FromStatusCode(res.StatusCode(), statusMessage(res))
		c.logger.ErrorWithFields("search request rejected", map[string]interface{}{
			"status": res.StatusCode(),
			"query":  query,
			"page":   page,
			"error":  apiErr.Message,
		})
		return nil, apiErr
	}

	var result SearchResponse
	if err := json.Unmarshal(res.Body(), &result); err != nil {
		bodyPreview := string(res.Body())
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse search response", map[string]interface{}{
			"status":       res.StatusCode(),
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return nil, errs.NewParsingError("failed to parse search response", err)
	}

	logger.LogSearch(c.logger, query, page, perPage, len(result.Photos))
	return &result, nil
}

// statusMessage extracts a readable reason from a failed response
func statusMessage(res *resty.Response) string {
	var body errorResponse
	if err := json.Unmarshal(res.Body(), &body); err == nil && body.Error != "" {
		return body.Error
	}
	return fmt.Sprintf("search returned status %d", res.StatusCode())
}
