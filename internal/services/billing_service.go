package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatbill/internal/config"
	"chatbill/internal/gateway"
	"chatbill/internal/models/db_models"
	"chatbill/internal/repositories"

	"go.uber.org/zap"
)

// PassResult counts one reconciliation pass.
type PassResult struct {
	Due       int `json:"due"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type ReconcileReport struct {
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	Cancellations PassResult `json:"cancellations"`
	PlanChanges   PassResult `json:"plan_changes"`
	Payments      PassResult `json:"payments"`
}

type BillingServiceInterface interface {
	// Reconcile runs the three billing passes over due accounts. Per-account
	// failures stay inside their iteration; only a failed due-list query
	// aborts a pass, and the remaining passes still run.
	Reconcile(ctx context.Context, now time.Time) (*ReconcileReport, error)
}

type BillingService struct {
	repo    repositories.BillingRepository
	gateway gateway.Client
	mail    IMailService
	cfg     *config.Config
	logger  *zap.Logger
}

func NewBillingService(
	repo repositories.BillingRepository,
	gatewayClient gateway.Client,
	mailService IMailService,
	cfg *config.Config,
	logger *zap.Logger,
) BillingServiceInterface {
	return &BillingService{
		repo:    repo,
		gateway: gatewayClient,
		mail:    mailService,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *BillingService) Reconcile(ctx context.Context, now time.Time) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: now}
	s.logger.Info("reconciliation started", zap.Time("now", now))

	var errs []error
	if err := s.runCancellations(ctx, now, &report.Cancellations); err != nil {
		errs = append(errs, err)
	}
	if err := s.runPlanChanges(ctx, now, &report.PlanChanges); err != nil {
		errs = append(errs, err)
	}
	if err := s.runPayments(ctx, now, &report.Payments); err != nil {
		errs = append(errs, err)
	}

	report.FinishedAt = time.Now()
	s.logger.Info("reconciliation finished",
		zap.Int("cancellations", report.Cancellations.Due),
		zap.Int("plan_changes", report.PlanChanges.Due),
		zap.Int("payments", report.Payments.Due),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))

	return report, errors.Join(errs...)
}

// runCancellations resets due cancellations to the Free plan. No gateway call
// is involved; the ledger row and the account reset commit atomically.
func (s *BillingService) runCancellations(ctx context.Context, now time.Time, result *PassResult) error {
	accounts, err := s.repo.DueCancellations(ctx, now)
	if err != nil {
		s.logger.Error("cancellation pass aborted", zap.Error(err))
		return fmt.Errorf("list due cancellations: %w", err)
	}
	result.Due = len(accounts)
	s.logger.Info("cancellation pass", zap.String("pass", "cancellation"), zap.Int("due", len(accounts)))

	for _, acc := range accounts {
		record := &db_models.PaymentRecord{
			Email:       acc.Email,
			Plan:        acc.Plan,
			Amount:      0,
			Succeeded:   false,
			ProcessedBy: db_models.ProcessedByCancellation,
			Message:     "plan cancelled",
		}
		if err := s.repo.CancelToFree(ctx, acc.Email, record); err != nil {
			result.Failed++
			s.logger.Error("cancellation failed",
				zap.String("pass", "cancellation"), zap.String("email", acc.Email), zap.Error(err))
			continue
		}
		result.Succeeded++
		s.logger.Info("plan cancelled",
			zap.String("pass", "cancellation"),
			zap.String("email", acc.Email),
			zap.String("plan", string(acc.Plan)))
	}
	return nil
}

func (s *BillingService) runPlanChanges(ctx context.Context, now time.Time, result *PassResult) error {
	accounts, err := s.repo.DuePlanChanges(ctx, now)
	if err != nil {
		s.logger.Error("plan change pass aborted", zap.Error(err))
		return fmt.Errorf("list due plan changes: %w", err)
	}
	result.Due = len(accounts)
	s.logger.Info("plan change pass", zap.String("pass", "plan_change"), zap.Int("due", len(accounts)))

	for _, acc := range accounts {
		if acc.NextPlan == nil {
			// Should not happen: plan_change always pairs with a target plan.
			result.Skipped++
			s.logger.Warn("plan change without target plan",
				zap.String("pass", "plan_change"), zap.String("email", acc.Email))
			continue
		}
		newPlan := *acc.NextPlan

		amount, ok := config.PriceFor(string(newPlan))
		if !ok {
			// Operator error, not a billing failure: no state change, no ledger row.
			result.Skipped++
			s.logger.Warn("unknown plan, skipping account",
				zap.String("pass", "plan_change"),
				zap.String("email", acc.Email),
				zap.String("plan", string(newPlan)))
			continue
		}

		chargeResult, chargeErr := s.charge(ctx, acc.Email, amount)
		succeeded := chargeErr == nil && chargeResult.Succeeded

		message := fmt.Sprintf("plan change from %s to %s", acc.Plan, newPlan)
		if chargeErr != nil {
			message = chargeErr.Error()
		} else if !succeeded {
			message = chargeResult.Message
		}

		record := &db_models.PaymentRecord{
			Email:           acc.Email,
			Plan:            newPlan,
			Amount:          amount,
			Succeeded:       succeeded,
			TransactionID:   transactionID(chargeResult),
			Message:         message,
			ProcessedBy:     db_models.ProcessedByPlanChange,
			NextProcessDate: acc.NextProcessDate,
		}
		// Once the gateway has answered, persisting the outcome must not be
		// torn down by the tick deadline expiring mid-batch. The ledger row
		// commits on its own before any account mutation, so a charge that
		// moved money is never lost to a later update failure.
		pctx := context.WithoutCancel(ctx)
		if err := s.repo.AppendRecord(pctx, record); err != nil {
			result.Failed++
			s.logger.Error("ledger append failed, account untouched",
				zap.String("pass", "plan_change"), zap.String("email", acc.Email), zap.Error(err))
			continue
		}

		if succeeded {
			nextDue := s.cfg.NextProcessDate(now)
			if err := s.repo.ApplyPlanChangeSuccess(pctx, acc.Email, newPlan, now, nextDue); err != nil {
				result.Failed++
				s.logger.Error("charge committed but account update failed",
					zap.String("pass", "plan_change"),
					zap.String("email", acc.Email),
					zap.String("transaction_id", chargeResult.TransactionID),
					zap.Error(err))
				continue
			}
			result.Succeeded++
			s.logger.Info("plan changed",
				zap.String("pass", "plan_change"),
				zap.String("email", acc.Email),
				zap.String("from", string(acc.Plan)),
				zap.String("to", string(newPlan)),
				zap.Int64("amount", amount),
				zap.Time("next_due", nextDue))
		} else {
			result.Failed++
			s.logger.Warn("plan change charge failed, change abandoned",
				zap.String("pass", "plan_change"),
				zap.String("email", acc.Email),
				zap.String("reason", message))
			if err := s.repo.AbandonPlanChange(pctx, acc.Email); err != nil {
				s.logger.Error("failed to abandon plan change",
					zap.String("pass", "plan_change"), zap.String("email", acc.Email), zap.Error(err))
			}
		}
	}
	return nil
}

func (s *BillingService) runPayments(ctx context.Context, now time.Time, result *PassResult) error {
	accounts, err := s.repo.DueRecurringPayments(ctx, now, config.LedgerDedupeWindow)
	if err != nil {
		s.logger.Error("payment pass aborted", zap.Error(err))
		return fmt.Errorf("list due payments: %w", err)
	}
	result.Due = len(accounts)
	s.logger.Info("payment pass", zap.String("pass", "payment"), zap.Int("due", len(accounts)))

	for _, acc := range accounts {
		amount, ok := config.PriceFor(string(acc.Plan))
		if !ok {
			result.Skipped++
			s.logger.Warn("unknown plan, skipping account",
				zap.String("pass", "payment"),
				zap.String("email", acc.Email),
				zap.String("plan", string(acc.Plan)))
			continue
		}

		// Recheck the guard right before charging. The due list already excludes
		// recent ledger activity, but a manual trigger can race a scheduled tick
		// between that query and this point.
		if recent, err := s.repo.RecentRecordExists(ctx, acc.Email, now, config.LedgerDedupeWindow); err == nil && recent {
			result.Skipped++
			s.logger.Info("recent ledger activity, skipping account",
				zap.String("pass", "payment"), zap.String("email", acc.Email))
			continue
		}

		chargeResult, chargeErr := s.charge(ctx, acc.Email, amount)
		succeeded := chargeErr == nil && chargeResult.Succeeded

		message := "recurring subscription payment"
		if chargeErr != nil {
			message = chargeErr.Error()
		} else if !succeeded {
			message = chargeResult.Message
		}

		nextDue := s.cfg.NextProcessDate(now)
		record := &db_models.PaymentRecord{
			Email:         acc.Email,
			Plan:          acc.Plan,
			Amount:        amount,
			Succeeded:     succeeded,
			TransactionID: transactionID(chargeResult),
			Message:       message,
			ProcessedBy:   db_models.ProcessedByAutoSub,
		}
		if succeeded {
			due := nextDue.Unix()
			record.NextProcessDate = &due
		}
		// Outcome persistence is detached from the tick deadline, same as the
		// plan change pass.
		pctx := context.WithoutCancel(ctx)
		if err := s.repo.AppendRecord(pctx, record); err != nil {
			result.Failed++
			s.logger.Error("ledger append failed, account untouched",
				zap.String("pass", "payment"), zap.String("email", acc.Email), zap.Error(err))
			continue
		}

		if succeeded {
			if err := s.repo.ApplyPaymentSuccess(pctx, acc.Email, now, nextDue); err != nil {
				result.Failed++
				s.logger.Error("charge committed but account update failed",
					zap.String("pass", "payment"),
					zap.String("email", acc.Email),
					zap.String("transaction_id", chargeResult.TransactionID),
					zap.Error(err))
				continue
			}
			result.Succeeded++
			s.logger.Info("subscription renewed",
				zap.String("pass", "payment"),
				zap.String("email", acc.Email),
				zap.String("plan", string(acc.Plan)),
				zap.Int64("amount", amount),
				zap.Time("next_due", nextDue))
		} else {
			result.Failed++
			s.logger.Warn("recurring payment failed, subscription halted",
				zap.String("pass", "payment"),
				zap.String("email", acc.Email),
				zap.String("reason", message))
			if err := s.repo.HaltSubscription(pctx, acc.Email); err != nil {
				s.logger.Error("failed to halt subscription",
					zap.String("pass", "payment"), zap.String("email", acc.Email), zap.Error(err))
				continue
			}
			s.notifyPaymentFailure(acc, message)
		}
	}
	return nil
}

// charge resolves the processor customer and bills the stored payment method.
// The whole gateway interaction is bounded by the configured timeout; a
// timed-out call counts as failed, never as succeeded.
func (s *BillingService) charge(ctx context.Context, email string, amount int64) (gateway.ChargeResult, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	customerID, err := s.gateway.FindOrCreateCustomer(gctx, email)
	if err != nil {
		return gateway.ChargeResult{}, err
	}
	if err := s.repo.SaveCustomerID(ctx, email, customerID); err != nil {
		s.logger.Warn("failed to persist customer id",
			zap.String("email", email), zap.Error(err))
	}

	return s.gateway.Charge(gctx, customerID, amount, "jpy")
}

func (s *BillingService) notifyPaymentFailure(acc db_models.Account, reason string) {
	if s.mail == nil {
		return
	}
	if err := s.mail.SendPaymentFailure(acc.Email, string(acc.Plan), reason); err != nil {
		s.logger.Warn("payment failure notification not sent",
			zap.String("email", acc.Email), zap.Error(err))
	}
}

func transactionID(result gateway.ChargeResult) *string {
	if result.TransactionID == "" {
		return nil
	}
	id := result.TransactionID
	return &id
}
