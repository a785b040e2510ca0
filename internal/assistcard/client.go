package assistcard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-insurance-service/internal/config"
	"github.com/spec-kit/travel-insurance-service/internal/observability"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// dateLayout is the provider's wire date format.
const dateLayout = "2006/01/02"

// newValidator builds the shared shape validator. Field names in validation
// errors use the json tag so callers see wire names (cardNumber, cvv).
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("acdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("tokenized", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) > 6 && strings.HasPrefix(s, "{{{") && strings.HasSuffix(s, "}}}")
	})
	return v
}

// Client talks to the Assistcard API. It is a stateless request/response
// mapper: shapes are validated on both sides of every network call, fixed
// issuing-point codes are injected from configuration, and provider error
// envelopes are translated into typed local errors.
type Client struct {
	baseURL    string
	point      IssuingPoint
	httpClient *http.Client
	tokens     *TokenManager
	validate   *validator.Validate
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewClient constructs the API client.
func NewClient(cfg config.AssistcardConfig, tokens *TokenManager, logger *zap.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		point: IssuingPoint{
			CountryCode: cfg.CountryCode,
			AgencyCode:  cfg.AgencyCode,
			BranchCode:  cfg.BranchCode,
		},
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout()},
		tokens:     tokens,
		validate:   newValidator(),
		logger:     logger,
		metrics:    metrics,
	}
}

// Tokens exposes the token manager (tests use Clear).
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// validateRequest rejects malformed local payloads before they reach the
// network.
func (c *Client) validateRequest(req any) error {
	if err := c.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		details := map[string]any{}
		if ok := errorsAs(err, &verrs); ok {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return apperrors.NewValidationError("invalid request payload", details)
	}
	return nil
}

// errorsAs is a tiny indirection so validateRequest stays readable.
func errorsAs(err error, target *validator.ValidationErrors) bool {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		*target = verrs
		return true
	}
	return false
}

// postJSON performs one authenticated call and decodes the success payload
// into out. A malformed remote response never reaches calling code untyped.
func (c *Client) postJSON(ctx context.Context, path, token string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordExternalCall(path, 0, time.Since(start))
		c.logger.Warn("assistcard call failed before response",
			zap.String("path", path), zap.Error(err))
		return newNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordExternalCall(path, resp.StatusCode, time.Since(start))
		return newNetworkError(err)
	}
	c.metrics.RecordExternalCall(path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		_ = json.Unmarshal(raw, &env)
		apiErr := newProviderError(resp.StatusCode, env)
		c.logger.Warn("assistcard call rejected",
			zap.String("path", path),
			zap.Int("provider_status", resp.StatusCode),
			zap.String("trace_id", apiErr.TraceID),
			zap.String("provider_code", apiErr.ProviderCode),
		)
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{
			Message:        "malformed provider response: " + err.Error(),
			ProviderStatus: resp.StatusCode,
			Status:         http.StatusBadGateway,
		}
	}
	if err := c.validate.Struct(out); err != nil {
		return &APIError{
			Message:        "provider response failed shape validation: " + err.Error(),
			ProviderStatus: resp.StatusCode,
			Status:         http.StatusBadGateway,
		}
	}
	return nil
}

// call acquires a valid bearer token and performs the request.
func (c *Client) call(ctx context.Context, path string, in, out any) error {
	if err := c.validateRequest(in); err != nil {
		return err
	}
	token, err := c.tokens.GetValidToken(ctx)
	if err != nil {
		return err
	}
	return c.postJSON(ctx, path, token, in, out)
}
