package services

import (
	"context"
	"time"

	"chatbill/internal/gateway"
	"chatbill/internal/models/db_models"
)

// In-memory doubles for the repository and gateway interfaces. Each one keeps
// a call log so tests can assert on exactly which mutations happened.

type fakeBillingRepo struct {
	dueCancellations []db_models.Account
	duePlanChanges   []db_models.Account
	duePayments      []db_models.Account

	cancelListErr error
	appendErr     error
	planApplyErr  error
	payApplyErr   error
	recentExists    bool
	recentCheckedAt time.Time

	records   []db_models.PaymentRecord
	cancelled []string
	abandoned []string
	halted    []string

	planApplied map[string]db_models.PlanTier
	payApplied  map[string]time.Time
	customerIDs map[string]string

	intentEmail string
	intentType  db_models.ProcessType
	intentDue   time.Time
}

func newFakeBillingRepo() *fakeBillingRepo {
	return &fakeBillingRepo{
		planApplied: make(map[string]db_models.PlanTier),
		payApplied:  make(map[string]time.Time),
		customerIDs: make(map[string]string),
	}
}

func (f *fakeBillingRepo) DueCancellations(ctx context.Context, now time.Time) ([]db_models.Account, error) {
	return f.dueCancellations, f.cancelListErr
}

func (f *fakeBillingRepo) DuePlanChanges(ctx context.Context, now time.Time) ([]db_models.Account, error) {
	return f.duePlanChanges, nil
}

func (f *fakeBillingRepo) DueRecurringPayments(ctx context.Context, now time.Time, guard time.Duration) ([]db_models.Account, error) {
	return f.duePayments, nil
}

func (f *fakeBillingRepo) CancelToFree(ctx context.Context, email string, record *db_models.PaymentRecord) error {
	f.records = append(f.records, *record)
	f.cancelled = append(f.cancelled, email)
	return nil
}

func (f *fakeBillingRepo) AppendRecord(ctx context.Context, record *db_models.PaymentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeBillingRepo) RecentRecordExists(ctx context.Context, email string, now time.Time, within time.Duration) (bool, error) {
	f.recentCheckedAt = now
	return f.recentExists, nil
}

func (f *fakeBillingRepo) ApplyPlanChangeSuccess(ctx context.Context, email string, newPlan db_models.PlanTier, now, nextDue time.Time) error {
	if f.planApplyErr != nil {
		return f.planApplyErr
	}
	f.planApplied[email] = newPlan
	return nil
}

func (f *fakeBillingRepo) AbandonPlanChange(ctx context.Context, email string) error {
	f.abandoned = append(f.abandoned, email)
	return nil
}

func (f *fakeBillingRepo) ApplyPaymentSuccess(ctx context.Context, email string, now, nextDue time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.payApplyErr != nil {
		return f.payApplyErr
	}
	f.payApplied[email] = nextDue
	return nil
}

func (f *fakeBillingRepo) HaltSubscription(ctx context.Context, email string) error {
	f.halted = append(f.halted, email)
	return nil
}

func (f *fakeBillingRepo) SaveCustomerID(ctx context.Context, email, customerID string) error {
	f.customerIDs[email] = customerID
	return nil
}

func (f *fakeBillingRepo) RecordIntentPending(ctx context.Context, email string, processType db_models.ProcessType, due time.Time, record *db_models.PaymentRecord) error {
	f.intentEmail = email
	f.intentType = processType
	f.intentDue = due
	f.records = append(f.records, *record)
	return nil
}

type chargeCall struct {
	customerID string
	amount     int64
	currency   string
}

type fakeGateway struct {
	customerErr error
	chargeFn    func(customerID string, amount int64) (gateway.ChargeResult, error)
	intentFn    func(amount int64, email string) (gateway.IntentResult, error)
	charges     []chargeCall
}

func (f *fakeGateway) FindOrCreateCustomer(ctx context.Context, email string) (string, error) {
	if f.customerErr != nil {
		return "", f.customerErr
	}
	return "cus_test", nil
}

func (f *fakeGateway) Charge(ctx context.Context, customerID string, amount int64, currency string) (gateway.ChargeResult, error) {
	f.charges = append(f.charges, chargeCall{customerID: customerID, amount: amount, currency: currency})
	if f.chargeFn != nil {
		return f.chargeFn(customerID, amount)
	}
	return gateway.ChargeResult{Succeeded: true, TransactionID: "pi_test", Message: "succeeded"}, nil
}

func (f *fakeGateway) CreateIntent(ctx context.Context, amount int64, email string) (gateway.IntentResult, error) {
	if f.intentFn != nil {
		return f.intentFn(amount, email)
	}
	return gateway.IntentResult{ClientSecret: "cs_test", IntentID: "pi_test", CustomerID: "cus_test"}, nil
}

type fakeMail struct {
	failureNotices []string
	resetTokens    []string
	unlockTokens   []string
}

func (f *fakeMail) SendPaymentFailure(to, plan, reason string) error {
	f.failureNotices = append(f.failureNotices, to)
	return nil
}

func (f *fakeMail) SendPasswordReset(to, token string) error {
	f.resetTokens = append(f.resetTokens, token)
	return nil
}

func (f *fakeMail) SendUnlockNotice(to, token string) error {
	f.unlockTokens = append(f.unlockTokens, token)
	return nil
}

type fakeAccountRepo struct {
	accounts map[string]*db_models.Account

	prefs          map[string]map[string]interface{}
	costDelta      map[string]int64
	reservedPlan   map[string]db_models.PlanTier
	reservedCancel []string
	billingEnabled map[string]bool
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts:       make(map[string]*db_models.Account),
		prefs:          make(map[string]map[string]interface{}),
		costDelta:      make(map[string]int64),
		reservedPlan:   make(map[string]db_models.PlanTier),
		billingEnabled: make(map[string]bool),
	}
}

func (f *fakeAccountRepo) Insert(ctx context.Context, account *db_models.Account) error {
	f.accounts[account.Email] = account
	return nil
}

func (f *fakeAccountRepo) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	return f.accounts[email], nil
}

func (f *fakeAccountRepo) FindByCustomerID(ctx context.Context, customerID string) (*db_models.Account, error) {
	for _, acc := range f.accounts {
		if acc.CustomerID != nil && *acc.CustomerID == customerID {
			return acc, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountRepo) RecordFailedLogin(ctx context.Context, email string, attempts int, at time.Time) error {
	if acc := f.accounts[email]; acc != nil {
		acc.LoginAttempts = attempts
		unix := at.Unix()
		acc.LastAttemptTime = &unix
	}
	return nil
}

func (f *fakeAccountRepo) ResetLoginAttempts(ctx context.Context, email string) error {
	if acc := f.accounts[email]; acc != nil {
		acc.LoginAttempts = 0
		acc.LastAttemptTime = nil
	}
	return nil
}

func (f *fakeAccountRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	if acc := f.accounts[email]; acc != nil {
		acc.PasswordHash = passwordHash
	}
	return nil
}

func (f *fakeAccountRepo) UpdatePreferences(ctx context.Context, email string, updates map[string]interface{}) error {
	merged := f.prefs[email]
	if merged == nil {
		merged = make(map[string]interface{})
		f.prefs[email] = merged
	}
	for k, v := range updates {
		merged[k] = v
	}
	return nil
}

func (f *fakeAccountRepo) IncrementMonthlyCost(ctx context.Context, email string, delta int64) error {
	f.costDelta[email] += delta
	return nil
}

func (f *fakeAccountRepo) SaveCustomerID(ctx context.Context, email, customerID string) error {
	if acc := f.accounts[email]; acc != nil {
		acc.CustomerID = &customerID
	}
	return nil
}

func (f *fakeAccountRepo) MarkPendingSetup(ctx context.Context, email string, processType db_models.ProcessType, due time.Time) error {
	if acc := f.accounts[email]; acc != nil {
		acc.NextProcessType = processType
		unix := due.Unix()
		acc.NextProcessDate = &unix
	}
	return nil
}

func (f *fakeAccountRepo) SetBillingEnabled(ctx context.Context, email string, enabled bool) error {
	f.billingEnabled[email] = enabled
	return nil
}

func (f *fakeAccountRepo) ReservePlanChange(ctx context.Context, email string, newPlan db_models.PlanTier) error {
	f.reservedPlan[email] = newPlan
	return nil
}

func (f *fakeAccountRepo) ReserveCancellation(ctx context.Context, email string) error {
	f.reservedCancel = append(f.reservedCancel, email)
	return nil
}
