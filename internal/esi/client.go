package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "pricing-core/1.0 (eve market appraisal service)"

// Client is a rate-limited ESI HTTP client. ESI documents an error-free
// ceiling of roughly 20 requests/second for market endpoints; the limiter
// paces every outgoing request against that budget regardless of how many
// goroutines are fetching.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient creates an ESI client. reqPerSec bounds the sustained request
// rate; timeout applies per request.
func NewClient(baseURL string, timeout time.Duration, reqPerSec int) *Client {
	if reqPerSec <= 0 {
		reqPerSec = 20
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), reqPerSec),
	}
}

// get performs a rate-limited GET and returns the response. The caller owns
// the body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

// getJSON fetches a URL and decodes the JSON body into dst.
func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ESI %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

// FetchTypeOrders fetches all order book pages for one type in a region.
// Page count comes from the X-Pages header on the first response; maxPages
// caps the follow-up fetches even when ESI reports more, to bound memory and
// cycle latency. A 404 means the type has no order book and returns an empty
// slice without error. Follow-up pages are fetched sequentially.
func (c *Client) FetchTypeOrders(ctx context.Context, regionID, typeID int32, maxPages int) ([]MarketOrder, error) {
	url := fmt.Sprintf("%s/markets/%d/orders/?datasource=tranquility&order_type=all&type_id=%d&page=1",
		c.baseURL, regionID, typeID)

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ESI %d for type %d page 1", resp.StatusCode, typeID)
	}

	totalPages := 1
	if p := resp.Header.Get("X-Pages"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			totalPages = n
		}
	}
	if maxPages > 0 && totalPages > maxPages {
		log.Printf("ESI: type %d has %d order pages, limiting to %d", typeID, totalPages, maxPages)
		totalPages = maxPages
	}

	var orders []MarketOrder
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("decode orders for type %d: %w", typeID, err)
	}

	for page := 2; page <= totalPages; page++ {
		pageURL := fmt.Sprintf("%s/markets/%d/orders/?datasource=tranquility&order_type=all&type_id=%d&page=%d",
			c.baseURL, regionID, typeID, page)

		var pageOrders []MarketOrder
		if err := c.getJSON(ctx, pageURL, &pageOrders); err != nil {
			// A torn tail page still leaves page 1..n-1 usable; stop here
			// rather than throwing the whole type away.
			log.Printf("ESI: fetch page %d for type %d failed: %v", page, typeID, err)
			break
		}
		if len(pageOrders) == 0 {
			break
		}
		orders = append(orders, pageOrders...)
	}

	return orders, nil
}

// FetchType fetches reference data for a single type. Used for validation and
// diagnostics only; pricing metadata comes from the local catalog.
func (c *Client) FetchType(ctx context.Context, typeID int32) (*TypeInfo, error) {
	url := fmt.Sprintf("%s/universe/types/%d/?datasource=tranquility", c.baseURL, typeID)

	var info TypeInfo
	if err := c.getJSON(ctx, url, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// HealthCheck pings ESI to verify connectivity.
func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.get(ctx, c.baseURL+"/status/?datasource=tranquility")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
