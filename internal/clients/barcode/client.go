// Package barcode looks up product metadata for unknown barcodes from an
// external catalog service. Results are advisory auto-fill data only.
package barcode

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"posdesk/internal/domain"
)

type Lookup interface {
	Lookup(ctx context.Context, code string) (*domain.BarcodeInfo, error)
}

// ErrNotFound reports that the catalog has no entry for the code.
var ErrNotFound = fmt.Errorf("barcode not found")

type apiError struct {
	Error string `json:"error"`
}

// Client is a resty-backed implementation of Lookup.
type Client struct {
	httpClient *resty.Client
}

func NewClient(baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(4 * time.Second)

	return &Client{httpClient: httpClient}
}

func (c *Client) Lookup(ctx context.Context, code string) (*domain.BarcodeInfo, error) {
	result := new(domain.BarcodeInfo)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("code", code).
		SetResult(result).
		SetError(apiErr).
		Get("/lookup")
	if err != nil {
		return nil, fmt.Errorf("lookup barcode %s: %w", code, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("lookup barcode %s: status %d: %s", code, resp.StatusCode(), apiErr.Error)
	}
	result.Barcode = code
	return result, nil
}
