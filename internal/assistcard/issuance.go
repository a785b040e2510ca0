package assistcard

import "context"

// IssueVouchers charges the tokenized card and creates provider-side
// vouchers. This call is irreversible on success and is never retried
// automatically: a timeout here must be treated as possibly-charged.
// All failure classes mean nothing was charged and the caller may roll
// back local state safely.
func (c *Client) IssueVouchers(ctx context.Context, req IssuanceRequest) (*IssuanceResponse, error) {
	req.IssuingPoint = c.point

	var resp IssuanceResponse
	if err := c.call(ctx, pathIssuance, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
