package assistcard

import "context"

// CancelVoucher voids one issued voucher at the provider.
func (c *Client) CancelVoucher(ctx context.Context, req CancelVoucherRequest) (*CancelVoucherResponse, error) {
	req.IssuingPoint = c.point

	var resp CancelVoucherResponse
	if err := c.call(ctx, pathCancel, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RectifyValidity moves an issued voucher's coverage window.
func (c *Client) RectifyValidity(ctx context.Context, req RectifyValidityRequest) (*RectifyValidityResponse, error) {
	req.IssuingPoint = c.point

	var resp RectifyValidityResponse
	if err := c.call(ctx, pathRectify, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
