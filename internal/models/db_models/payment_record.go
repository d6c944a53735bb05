package db_models

import "gorm.io/datatypes"

// ProcessedBy tags which reconciliation path created a ledger row.
type ProcessedBy string

const (
	ProcessedByPayment      ProcessedBy = "payment"
	ProcessedByPlanChange   ProcessedBy = "plan_change"
	ProcessedByCancellation ProcessedBy = "cancellation"
	ProcessedByAutoSub      ProcessedBy = "auto_subscription"
)

// PaymentRecord is the append-only billing ledger. Rows are created, never
// updated or deleted; CreatedAt doubles as the dedupe-guard timestamp for
// recurring payments.
type PaymentRecord struct {
	BaseModel
	Email           string `gorm:"index"`
	Plan            PlanTier
	Amount          int64
	Succeeded       bool
	TransactionID   *string
	Message         string
	ProcessedBy     ProcessedBy
	NextProcessDate *int64
	Metadata        datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
