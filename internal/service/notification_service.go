package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/travel-insurance-service/internal/config"
	"github.com/spec-kit/travel-insurance-service/internal/events"
)

// NotificationService reacts to domain events: voucher emails on issuance,
// operator alerts when an issuance needs manual reconciliation.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotifyConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPolicyIssued, n.handlePolicyIssued)
	n.dispatcher.Subscribe(events.EventPolicyCancelled, n.handlePolicyCancelled)
	n.dispatcher.Subscribe(events.EventIssuanceReconciliationRequired, n.handleReconciliationRequired)
}

func (n *NotificationService) handlePolicyIssued(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PolicyIssuedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("PolicyIssued", zap.String("user_id", event.UserID), zap.Any("payload", payload))
	n.sendEmailStub(ctx, payload.CustomerEmail, "your travel insurance vouchers", payload.VoucherCodes)
	return nil
}

func (n *NotificationService) handlePolicyCancelled(_ context.Context, event events.Event) error {
	n.logger.Info("PolicyCancelled", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

// handleReconciliationRequired pages operators: money moved at the provider
// without a matching local record.
func (n *NotificationService) handleReconciliationRequired(_ context.Context, event events.Event) error {
	n.logger.Error("IssuanceReconciliationRequired",
		zap.String("user_id", event.UserID),
		zap.Any("payload", event.Payload),
	)
	return nil
}

func (n *NotificationService) sendEmailStub(_ context.Context, to, subject string, voucherCodes []string) {
	// Real delivery is handled by an external mailer; log the intent.
	n.logger.Info("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Strings("voucher_codes", voucherCodes),
	)
}
