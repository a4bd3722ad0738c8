// Package backend is the HTTP client for the black-box restaurant
// backend API. Response bodies are decoded defensively: the gateway
// never trusts the backend to return the documented shape.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "orderfront/internal/errors"
	"orderfront/internal/models"
	"orderfront/internal/observability"
)

const maxBodySize = 4 << 20 // 4MB

type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Menu fetches the catalog. A syntactically valid but non-array body
// is treated as an empty catalog rather than an error.
func (c *Client) Menu(ctx context.Context) ([]models.MenuItem, error) {
	body, err := c.get(ctx, "/api/menu", nil)
	if err != nil {
		return nil, err
	}

	var items []models.MenuItem
	if err := json.Unmarshal(body, &items); err != nil {
		c.logger.Warn("menu response is not an array, treating as empty", "error", err)
		return []models.MenuItem{}, nil
	}
	return items, nil
}

// SubmitOrder posts the cart snapshot and returns the created order.
func (c *Client) SubmitOrder(ctx context.Context, sub models.OrderSubmission) (*models.Order, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, apperrors.UpstreamWrap(err, "encode order submission")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.UpstreamWrap(err, "build order request")
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Message string        `json:"message"`
		Order   *models.Order `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.UpstreamWrap(err, "decode order response")
	}
	if resp.Order == nil || resp.Order.OrderNumber == "" {
		return nil, apperrors.Upstream("order response carries no order number")
	}
	return resp.Order, nil
}

// Analytics fetches the filtered sales snapshot. An explicit error
// field in an otherwise well-formed payload is surfaced as an
// upstream error carrying the backend's message.
func (c *Client) Analytics(ctx context.Context, dateFilter, categoryFilter string) (*models.AnalyticsSnapshot, error) {
	query := url.Values{}
	query.Set("date", dateFilter)
	query.Set("category", categoryFilter)

	body, err := c.get(ctx, "/api/analytics", query)
	if err != nil {
		return nil, err
	}

	var resp struct {
		models.AnalyticsSnapshot
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.UpstreamWrap(err, "decode analytics response")
	}
	if resp.Error != "" {
		return nil, apperrors.Upstream(resp.Error)
	}

	snapshot := resp.AnalyticsSnapshot
	if snapshot.Items == nil {
		snapshot.Items = []models.AnalyticsItem{}
	}
	return &snapshot, nil
}

// Health probes the backend with a cheap menu request. Used by the
// startup warm-up.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.Menu(ctx)
	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperrors.UpstreamWrap(err, "build request")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	ctx, span := observability.StartSpan(req.Context(), fmt.Sprintf("backend %s %s", req.Method, req.URL.Path))
	defer span.Finish()
	span.SetTag("http.method", req.Method)
	span.SetTag("http.url", req.URL.String())

	start := time.Now()
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		span.SetError(err)
		return nil, apperrors.UpstreamWrap(err, fmt.Sprintf("call %s %s", req.Method, req.URL.Path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperrors.UpstreamWrap(err, "read response body")
	}

	c.logger.Debug("backend call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetError(fmt.Errorf("HTTP %d", resp.StatusCode))
		if msg := errorMessage(body); msg != "" {
			return nil, apperrors.Upstream(msg)
		}
		return nil, apperrors.Upstream(fmt.Sprintf("backend returned HTTP %d", resp.StatusCode))
	}
	return body, nil
}

// errorMessage extracts the backend's {"error": "..."} message, if any.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}
