package db_models

import "gorm.io/datatypes"

type PlanTier string

const (
	PlanFree     PlanTier = "Free"
	PlanLight    PlanTier = "Light"
	PlanStandard PlanTier = "Standard"
	PlanPro      PlanTier = "Pro"
	PlanExpert   PlanTier = "Expert"
)

// ProcessType marks the billing action the reconciler owes an account.
// The empty value means nothing is pending; it always pairs with a nil
// NextProcessDate.
type ProcessType string

const (
	ProcessNone       ProcessType = ""
	ProcessCancel     ProcessType = "cancel"
	ProcessPlanChange ProcessType = "plan_change"
	ProcessPayment    ProcessType = "payment"
)

type Account struct {
	BaseModel
	UserName     string
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	Role         string `gorm:"default:'user'"`

	// Billing state. Mutated only by the reconciler and by the reservation
	// endpoints (which touch the Next* fields, never billing outcomes).
	Plan            PlanTier `gorm:"default:'Free'"`
	PaymentStatus   bool     `gorm:"default:false"`
	MonthlyCost     int64    `gorm:"default:0"`
	NextProcessDate *int64   `gorm:"index"`
	NextProcessType ProcessType
	NextPlan        *PlanTier
	CustomerID      *string `gorm:"index"`
	LastPaymentDate *int64

	// Login lockout
	LoginAttempts   int `gorm:"default:0"`
	LastAttemptTime *int64

	// Chat preferences
	SelectedModel        string `gorm:"default:'gpt-4o-mini'"`
	IsDarkMode           bool   `gorm:"default:false"`
	ChatHistoryMaxLength int    `gorm:"default:1000"`
	InputTextLength      int    `gorm:"default:200"`
	SortOrder            string `gorm:"default:'created_at ASC'"`

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
