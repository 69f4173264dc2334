// Package invoice calls the external invoice rendering service. Rendering
// is best effort: a completed sale never fails because the renderer is
// down, callers only log and carry a warning back to the terminal.
package invoice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"posdesk/internal/domain"
)

type Renderer interface {
	Render(ctx context.Context, tx domain.Transaction) (*RenderResult, error)
}

type RenderResult struct {
	InvoiceURL string `json:"invoice_url"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client is a resty-backed implementation of Renderer.
type Client struct {
	httpClient *resty.Client
}

func NewClient(baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(5 * time.Second)

	return &Client{httpClient: httpClient}
}

func (c *Client) Render(ctx context.Context, tx domain.Transaction) (*RenderResult, error) {
	result := new(RenderResult)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(tx).
		SetResult(result).
		SetError(apiErr).
		Post("/render")
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", tx.Number, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("render invoice %s: status %d: %s", tx.Number, resp.StatusCode(), apiErr.Error)
	}
	return result, nil
}
