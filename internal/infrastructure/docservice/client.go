// Package docservice is a thin client for the external document renderer.
// The application never produces PDF bytes itself: report handlers post a
// JSON payload here and stream the rendered artifact back to the caller.
package docservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"powderbook/internal/core/apperror"
)

// Config holds renderer connection settings.
type Config struct {
	// BaseURL of the renderer, e.g. "http://docservice:8090"
	BaseURL string

	// Timeout for a single render call. Rendering a large annual report
	// can take a few seconds; default is 30s.
	Timeout time.Duration
}

// Client talks to the document renderer over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a renderer client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RenderRequest is the payload sent to the renderer.
type RenderRequest struct {
	// Template name understood by the renderer:
	// "monthly_report", "annual_report", "purchase_order".
	Template string `json:"template"`

	// CompanyName for the document header.
	CompanyName string `json:"companyName"`

	// Data is the report summary produced by the reports service.
	Data any `json:"data"`
}

// Render posts a payload and returns the rendered PDF bytes.
func (c *Client) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if c.baseURL == "" {
		return nil, &apperror.AppError{
			Code:       apperror.CodeInternal,
			Message:    "document renderer is not configured",
			HTTPStatus: http.StatusServiceUnavailable,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		appErr := &apperror.AppError{
			Code:       apperror.CodeInternal,
			Message:    "document renderer unavailable",
			HTTPStatus: http.StatusBadGateway,
		}
		return nil, appErr.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// renderer errors are JSON; keep the first chunk for diagnostics
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		appErr := &apperror.AppError{
			Code:       apperror.CodeInternal,
			Message:    "document render failed",
			HTTPStatus: http.StatusBadGateway,
		}
		return nil, appErr.
			WithDetail("status", resp.StatusCode).
			WithDetail("response", string(msg))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered document: %w", err)
	}
	return pdf, nil
}
