package repositories

import (
	"context"
	"time"

	"chatbill/internal/models/db_models"

	"gorm.io/gorm"
)

// BillingRepository is the reconciler's view of the account store and the
// payment ledger. Every mutation is a closed, strongly-typed operation; the
// reconciler never builds column sets dynamically.
type BillingRepository interface {
	DueCancellations(ctx context.Context, now time.Time) ([]db_models.Account, error)
	DuePlanChanges(ctx context.Context, now time.Time) ([]db_models.Account, error)
	// DueRecurringPayments excludes accounts with any ledger activity inside
	// the guard window, so overlapping reconciliation runs cannot double-charge.
	DueRecurringPayments(ctx context.Context, now time.Time, guard time.Duration) ([]db_models.Account, error)

	// CancelToFree writes the cancellation ledger row and resets the account
	// in a single transaction; both commit or neither does.
	CancelToFree(ctx context.Context, email string, record *db_models.PaymentRecord) error

	AppendRecord(ctx context.Context, record *db_models.PaymentRecord) error
	// RecentRecordExists anchors the window on the caller's now so manual and
	// scheduled reconciliations agree on guard behavior.
	RecentRecordExists(ctx context.Context, email string, now time.Time, within time.Duration) (bool, error)

	ApplyPlanChangeSuccess(ctx context.Context, email string, newPlan db_models.PlanTier, now, nextDue time.Time) error
	AbandonPlanChange(ctx context.Context, email string) error
	ApplyPaymentSuccess(ctx context.Context, email string, now, nextDue time.Time) error
	HaltSubscription(ctx context.Context, email string) error

	SaveCustomerID(ctx context.Context, email, customerID string) error

	// RecordIntentPending marks an account for reconciler pickup after an
	// interactive payment setup and writes the pending ledger row atomically.
	RecordIntentPending(ctx context.Context, email string, processType db_models.ProcessType, due time.Time, record *db_models.PaymentRecord) error
}

type billingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &billingRepository{
		db: db,
	}
}

func (b *billingRepository) DueCancellations(ctx context.Context, now time.Time) ([]db_models.Account, error) {
	var accounts []db_models.Account
	err := b.db.WithContext(ctx).
		Where("next_process_type = ? AND next_process_date IS NOT NULL AND next_process_date <= ?",
			db_models.ProcessCancel, now.Unix()).
		Find(&accounts).Error
	return accounts, err
}

func (b *billingRepository) DuePlanChanges(ctx context.Context, now time.Time) ([]db_models.Account, error) {
	var accounts []db_models.Account
	err := b.db.WithContext(ctx).
		Where("next_process_type = ? AND payment_status = ? AND next_process_date IS NOT NULL AND next_process_date <= ?",
			db_models.ProcessPlanChange, true, now.Unix()).
		Find(&accounts).Error
	return accounts, err
}

func (b *billingRepository) DueRecurringPayments(ctx context.Context, now time.Time, guard time.Duration) ([]db_models.Account, error) {
	var accounts []db_models.Account
	err := b.db.WithContext(ctx).
		Where("next_process_type = ? AND payment_status = ? AND next_process_date IS NOT NULL AND next_process_date <= ?",
			db_models.ProcessPayment, true, now.Unix()).
		Where("NOT EXISTS (SELECT 1 FROM payment_records WHERE payment_records.email = accounts.email AND payment_records.created_at >= ?)",
			now.Add(-guard).Unix()).
		Find(&accounts).Error
	return accounts, err
}

func (b *billingRepository) CancelToFree(ctx context.Context, email string, record *db_models.PaymentRecord) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(&db_models.Account{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"plan":              db_models.PlanFree,
				"payment_status":    false,
				"monthly_cost":      0,
				"next_process_type": db_models.ProcessNone,
				"next_process_date": nil,
				"next_plan":         nil,
			}).Error
	})
}

func (b *billingRepository) AppendRecord(ctx context.Context, record *db_models.PaymentRecord) error {
	return b.db.WithContext(ctx).Create(record).Error
}

func (b *billingRepository) RecentRecordExists(ctx context.Context, email string, now time.Time, within time.Duration) (bool, error) {
	var count int64
	err := b.db.WithContext(ctx).
		Model(&db_models.PaymentRecord{}).
		Where("email = ? AND created_at >= ?", email, now.Add(-within).Unix()).
		Count(&count).Error
	return count > 0, err
}

func (b *billingRepository) ApplyPlanChangeSuccess(ctx context.Context, email string, newPlan db_models.PlanTier, now, nextDue time.Time) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db_models.Account{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"plan":              newPlan,
				"next_plan":         nil,
				"next_process_type": db_models.ProcessPayment,
				"monthly_cost":      0,
				"next_process_date": nextDue.Unix(),
				"last_payment_date": now.Unix(),
			}).Error
	})
}

// AbandonPlanChange drops a failed plan change; it is not retried.
func (b *billingRepository) AbandonPlanChange(ctx context.Context, email string) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db_models.Account{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"payment_status":    false,
				"next_process_type": db_models.ProcessNone,
				"next_plan":         nil,
			}).Error
	})
}

func (b *billingRepository) ApplyPaymentSuccess(ctx context.Context, email string, now, nextDue time.Time) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db_models.Account{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"last_payment_date": now.Unix(),
				"next_process_date": nextDue.Unix(),
				"payment_status":    true,
				"monthly_cost":      0,
			}).Error
	})
}

// HaltSubscription stops auto-billing entirely; the user must re-enable
// billing before any further charge is attempted.
func (b *billingRepository) HaltSubscription(ctx context.Context, email string) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db_models.Account{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"payment_status":    false,
				"next_process_date": nil,
				"next_process_type": db_models.ProcessNone,
			}).Error
	})
}

func (b *billingRepository) RecordIntentPending(ctx context.Context, email string, processType db_models.ProcessType, due time.Time, record *db_models.PaymentRecord) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(&db_models.Account{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"next_process_type": processType,
				"next_process_date": due.Unix(),
			}).Error
	})
}

func (b *billingRepository) SaveCustomerID(ctx context.Context, email, customerID string) error {
	return b.db.WithContext(ctx).
		Model(&db_models.Account{}).
		Where("email = ?", email).
		Update("customer_id", customerID).Error
}
