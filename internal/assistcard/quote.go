package assistcard

import "context"

// QuoteProducts prices available products for an itinerary. Read-only on
// the provider side; callers may retry by re-quoting.
func (c *Client) QuoteProducts(ctx context.Context, req QuoteProductRequest) (*QuoteProductResponse, error) {
	req.IssuingPoint = c.point

	var resp QuoteProductResponse
	if err := c.call(ctx, pathQuoteProduct, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QuoteAddons prices addons for a selected product/rate.
func (c *Client) QuoteAddons(ctx context.Context, req QuoteAddonsRequest) (*QuoteAddonsResponse, error) {
	req.IssuingPoint = c.point

	var resp QuoteAddonsResponse
	if err := c.call(ctx, pathQuoteAddons, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
