package services

import (
	"context"
	"encoding/json"
	"time"

	"chatbill/internal/config"
	"chatbill/internal/gateway"
	"chatbill/internal/models/db_models"
	"chatbill/internal/models/response_models"
	"chatbill/internal/repositories"
	"chatbill/pkg/utils"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

// PaymentService is the request-facing side of billing: interactive payment
// setup, plan-change/cancellation reservations and status reads. It only ever
// touches the Next* scheduling fields; billing outcomes belong to the
// reconciler.
type PaymentServiceInterface interface {
	CreateIntent(ctx context.Context, email, plan string) (*response_models.CreateIntentResponse, error)
	SetBillingEnabled(ctx context.Context, email string, enabled bool) error
	ReservePlanChange(ctx context.Context, email, newPlan string) error
	ReserveCancellation(ctx context.Context, email string) error
	GetBillingStatus(ctx context.Context, email string) (*response_models.BillingStatus, error)
	ProcessWebhook(ctx context.Context, payload []byte, signature string) error
}

type PaymentService struct {
	accountRepo repositories.AccountRepository
	billingRepo repositories.BillingRepository
	gateway     gateway.Client
	cfg         *config.Config
	logger      *zap.Logger
}

func NewPaymentService(
	accountRepo repositories.AccountRepository,
	billingRepo repositories.BillingRepository,
	gatewayClient gateway.Client,
	cfg *config.Config,
	logger *zap.Logger,
) PaymentServiceInterface {
	return &PaymentService{
		accountRepo: accountRepo,
		billingRepo: billingRepo,
		gateway:     gatewayClient,
		cfg:         cfg,
		logger:      logger,
	}
}

func (p *PaymentService) CreateIntent(ctx context.Context, email, plan string) (*response_models.CreateIntentResponse, error) {
	amount, ok := config.PriceFor(plan)
	if !ok {
		return nil, utils.ErrUnknownPlan
	}

	account, err := p.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}

	gctx, cancel := context.WithTimeout(ctx, p.cfg.GatewayTimeout)
	defer cancel()

	intent, err := p.gateway.CreateIntent(gctx, amount, email)
	if err != nil {
		p.logger.Error("payment intent creation failed",
			zap.String("email", email), zap.Error(err))
		return nil, err
	}

	if err := p.accountRepo.SaveCustomerID(ctx, email, intent.CustomerID); err != nil {
		p.logger.Warn("failed to persist customer id",
			zap.String("email", email), zap.Error(err))
	}

	// Short fuse: the reconciler confirms the outcome on its next pass.
	due := time.Now().Add(time.Minute)
	dueUnix := due.Unix()
	record := &db_models.PaymentRecord{
		Email:           email,
		Plan:            db_models.PlanTier(plan),
		Amount:          amount,
		Succeeded:       false,
		TransactionID:   &intent.IntentID,
		Message:         "payment pending",
		ProcessedBy:     db_models.ProcessedByPayment,
		NextProcessDate: &dueUnix,
	}
	if err := p.billingRepo.RecordIntentPending(ctx, email, db_models.ProcessPayment, due, record); err != nil {
		p.logger.Error("failed to record pending intent",
			zap.String("email", email), zap.Error(err))
		return nil, utils.ErrDatabaseError
	}

	return &response_models.CreateIntentResponse{
		ClientSecret: intent.ClientSecret,
		IntentID:     intent.IntentID,
	}, nil
}

func (p *PaymentService) SetBillingEnabled(ctx context.Context, email string, enabled bool) error {
	account, err := p.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if account == nil {
		return utils.ErrAccountNotFound
	}
	if err := p.accountRepo.SetBillingEnabled(ctx, email, enabled); err != nil {
		return utils.ErrDatabaseError
	}

	// A halted subscription has no due date left. Re-enabling puts a short
	// fuse on it so the reconciler settles the lapsed period promptly.
	if enabled && account.NextProcessDate == nil {
		due := time.Now().Add(time.Minute)
		if err := p.accountRepo.MarkPendingSetup(ctx, email, db_models.ProcessPayment, due); err != nil {
			return utils.ErrDatabaseError
		}
	}
	return nil
}

func (p *PaymentService) ReservePlanChange(ctx context.Context, email, newPlan string) error {
	if _, ok := config.PriceFor(newPlan); !ok {
		return utils.ErrUnknownPlan
	}

	account, err := p.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if account == nil {
		return utils.ErrAccountNotFound
	}

	if err := p.accountRepo.ReservePlanChange(ctx, email, db_models.PlanTier(newPlan)); err != nil {
		return utils.ErrDatabaseError
	}

	p.logger.Info("plan change reserved",
		zap.String("email", email),
		zap.String("from", string(account.Plan)),
		zap.String("to", newPlan))
	return nil
}

func (p *PaymentService) ReserveCancellation(ctx context.Context, email string) error {
	account, err := p.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if account == nil {
		return utils.ErrAccountNotFound
	}

	if err := p.accountRepo.ReserveCancellation(ctx, email); err != nil {
		return utils.ErrDatabaseError
	}

	p.logger.Info("cancellation reserved", zap.String("email", email))
	return nil
}

func (p *PaymentService) GetBillingStatus(ctx context.Context, email string) (*response_models.BillingStatus, error) {
	account, err := p.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}

	status := &response_models.BillingStatus{
		Plan:            string(account.Plan),
		PaymentStatus:   account.PaymentStatus,
		NextProcessType: string(account.NextProcessType),
	}
	if account.NextProcessDate != nil {
		formatted := time.Unix(*account.NextProcessDate, 0).UTC().Format(time.RFC3339)
		status.NextProcessDate = &formatted
	}
	if account.NextPlan != nil {
		plan := string(*account.NextPlan)
		status.NextPlan = &plan
	}
	return status, nil
}

// ProcessWebhook verifies and applies a Stripe event. Unknown event types are
// acknowledged and ignored.
func (p *PaymentService) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, p.cfg.WebhookSecretKey)
	if err != nil {
		return err
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return err
		}
		if intent.Customer == nil {
			return nil
		}
		return p.activateByCustomerID(ctx, intent.Customer.ID)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		if sub.Customer == nil {
			return nil
		}
		return p.haltByCustomerID(ctx, sub.Customer.ID)

	default:
		p.logger.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		return nil
	}
}

func (p *PaymentService) activateByCustomerID(ctx context.Context, customerID string) error {
	account, err := p.accountRepo.FindByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	if account == nil {
		p.logger.Warn("webhook for unknown customer", zap.String("customer_id", customerID))
		return nil
	}

	now := time.Now()
	if err := p.accountRepo.SetBillingEnabled(ctx, account.Email, true); err != nil {
		return err
	}
	if err := p.billingRepo.ApplyPaymentSuccess(ctx, account.Email, now, p.cfg.NextProcessDate(now)); err != nil {
		return err
	}
	p.logger.Info("billing activated via webhook", zap.String("email", account.Email))
	return nil
}

func (p *PaymentService) haltByCustomerID(ctx context.Context, customerID string) error {
	account, err := p.accountRepo.FindByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	if account == nil {
		p.logger.Warn("webhook for unknown customer", zap.String("customer_id", customerID))
		return nil
	}

	if err := p.billingRepo.HaltSubscription(ctx, account.Email); err != nil {
		return err
	}
	p.logger.Info("subscription halted via webhook", zap.String("email", account.Email))
	return nil
}
