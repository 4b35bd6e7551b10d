// Package catalog is a thin client for the external product backend. The
// core only uses it to resolve a product id into display metadata when the
// shopper adds to cart; search, ranking and pricing live on the other side.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"punchout-catalog/internal/domain"
	cartsvc "punchout-catalog/internal/service/cart"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type productResponse struct {
	SupplierPartID string `json:"supplierPartId"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Brand          string `json:"brand"`
	PartNumber     string `json:"partNumber"`
	UnspscCode     string `json:"unspscCode"`
}

func (c *Client) Resolve(ctx context.Context, productID string) (*cartsvc.ProductInfo, error) {
	u := c.baseURL + "/products/" + url.PathEscape(productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrNotFound
	default:
		return nil, fmt.Errorf("catalog status %d", resp.StatusCode)
	}

	var p productResponse
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", productID, err)
	}
	return &cartsvc.ProductInfo{
		SupplierPartID: p.SupplierPartID,
		Name:           p.Name,
		Description:    p.Description,
		Brand:          p.Brand,
		PartNumber:     p.PartNumber,
		UnspscCode:     p.UnspscCode,
	}, nil
}
