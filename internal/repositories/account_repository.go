package repositories

import (
	"context"
	"errors"
	"time"

	"chatbill/internal/models/db_models"

	"gorm.io/gorm"
)

type AccountRepository interface {
	Insert(ctx context.Context, account *db_models.Account) error
	FindByEmail(ctx context.Context, email string) (*db_models.Account, error)
	FindByCustomerID(ctx context.Context, customerID string) (*db_models.Account, error)

	RecordFailedLogin(ctx context.Context, email string, attempts int, at time.Time) error
	ResetLoginAttempts(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error

	UpdatePreferences(ctx context.Context, email string, updates map[string]interface{}) error
	IncrementMonthlyCost(ctx context.Context, email string, delta int64) error

	SaveCustomerID(ctx context.Context, email, customerID string) error
	MarkPendingSetup(ctx context.Context, email string, processType db_models.ProcessType, due time.Time) error
	SetBillingEnabled(ctx context.Context, email string, enabled bool) error
	ReservePlanChange(ctx context.Context, email string, newPlan db_models.PlanTier) error
	ReserveCancellation(ctx context.Context, email string) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (a *accountRepository) Insert(ctx context.Context, account *db_models.Account) error {
	return a.db.WithContext(ctx).Create(account).Error
}

func (a *accountRepository) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (a *accountRepository) FindByCustomerID(ctx context.Context, customerID string) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "customer_id = ?", customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (a *accountRepository) RecordFailedLogin(ctx context.Context, email string, attempts int, at time.Time) error {
	return a.updateByEmail(ctx, email, map[string]interface{}{
		"login_attempts":    attempts,
		"last_attempt_time": at.Unix(),
	})
}

func (a *accountRepository) ResetLoginAttempts(ctx context.Context, email string) error {
	return a.updateByEmail(ctx, email, map[string]interface{}{
		"login_attempts":    0,
		"last_attempt_time": nil,
	})
}

func (a *accountRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return a.updateByEmail(ctx, email, map[string]interface{}{
		"password_hash": passwordHash,
	})
}

func (a *accountRepository) UpdatePreferences(ctx context.Context, email string, updates map[string]interface{}) error {
	return a.updateByEmail(ctx, email, updates)
}

func (a *accountRepository) IncrementMonthlyCost(ctx context.Context, email string, delta int64) error {
	return a.updateByEmail(ctx, email, map[string]interface{}{
		"monthly_cost": gorm.Expr("monthly_cost + ?", delta),
	})
}

func (a *accountRepository) SaveCustomerID(ctx context.Context, email, customerID string) error {
	return a.updateByEmail(ctx, email, map[string]interface{}{
		"customer_id": customerID,
	})
}

// MarkPendingSetup puts a short fuse on a fresh interactive payment so the
// reconciler picks the account up on its next pass.
func (a *accountRepository) MarkPendingSetup(ctx context.Context, email string, processType db_models.ProcessType, due time.Time) error {
	return a.updateByEmail(ctx, email, map[string]interface{}{
		"next_process_type": processType,
		"next_process_date": due.Unix(),
	})
}

func (a *accountRepository) SetBillingEnabled(ctx context.Context, email string, enabled bool) error {
	updates := map[string]interface{}{
		"payment_status": enabled,
	}
	if enabled {
		updates["next_process_type"] = db_models.ProcessPayment
	} else {
		updates["next_process_type"] = db_models.ProcessNone
		updates["next_process_date"] = nil
	}
	return a.updateByEmail(ctx, email, updates)
}

// ReservePlanChange only schedules the change; the reconciler performs it on
// the account's existing next process date.
func (a *accountRepository) ReservePlanChange(ctx context.Context, email string, newPlan db_models.PlanTier) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db_models.Account{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"next_plan":         newPlan,
				"next_process_type": db_models.ProcessPlanChange,
			}).Error
	})
}

func (a *accountRepository) ReserveCancellation(ctx context.Context, email string) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db_models.Account{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"next_process_type": db_models.ProcessCancel,
				"next_plan":         nil,
			}).Error
	})
}

func (a *accountRepository) updateByEmail(ctx context.Context, email string, updates map[string]interface{}) error {
	return a.db.WithContext(ctx).
		Model(&db_models.Account{}).
		Where("email = ?", email).
		Updates(updates).Error
}
