package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// PlanDetails describes one subscription tier. Prices are JPY (zero-decimal
// currency, stored as whole yen).
type PlanDetails struct {
	Price  int64
	Points int
}

// SubscriptionPlans is the static plan catalog. A plan name missing from this
// map is an operator configuration error, never a crash.
var SubscriptionPlans = map[string]PlanDetails{
	"Free":     {Price: 0, Points: 1000},
	"Light":    {Price: 980, Points: 5000},
	"Standard": {Price: 1980, Points: 15000},
	"Pro":      {Price: 2980, Points: 30000},
	"Expert":   {Price: 3980, Points: 50000},
}

// PriceFor resolves the billing amount for a plan name.
func PriceFor(plan string) (int64, bool) {
	details, ok := SubscriptionPlans[plan]
	if !ok {
		return 0, false
	}
	return details.Price, true
}

const (
	MaxLoginAttempts = 3
	LockoutTime      = 15 * time.Minute
	PasswordResetTTL = time.Hour

	// LedgerDedupeWindow guards recurring payments against double-firing from
	// overlapping scheduler invocations.
	LedgerDedupeWindow = 5 * time.Minute

	DefaultInputLength   = 200
	DefaultHistoryLength = 1000
	DefaultSortOrder     = "created_at ASC"
	DefaultModel         = "gpt-4o-mini"
)

var AvailableModels = []string{"gpt-4", "gpt-3.5-turbo", "gpt-4o-mini"}

type Config struct {
	Environment Environment

	PostgresURL string
	JWTSecret   string

	StripeSecretKey  string
	WebhookSecretKey string
	GatewayTimeout   time.Duration

	SchedulerInterval time.Duration
	// ReconcileTimeout bounds one whole reconciliation pass. Sized well above
	// worst-case batch time; accounts are processed sequentially and every
	// gateway call may take up to GatewayTimeout.
	ReconcileTimeout time.Duration
}

func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Environment:      EnvDevelopment,
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecretKey: os.Getenv("WEBHOOK_SECRET_KEY"),
		GatewayTimeout:   30 * time.Second,
	}

	if env := os.Getenv("APP_ENV"); env == string(EnvProduction) {
		cfg.Environment = EnvProduction
	}

	cfg.SchedulerInterval = time.Minute
	if raw := os.Getenv("SCHEDULER_INTERVAL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			cfg.SchedulerInterval = time.Duration(minutes) * time.Minute
		}
	}

	cfg.ReconcileTimeout = 30 * time.Minute
	if raw := os.Getenv("RECONCILE_TIMEOUT_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			cfg.ReconcileTimeout = time.Duration(minutes) * time.Minute
		}
	}

	return cfg
}

// NextProcessDate computes the next billing due date. Production bills on
// calendar months; development uses a short interval so a full billing cycle
// can be exercised in minutes.
func (c *Config) NextProcessDate(now time.Time) time.Time {
	if c.Environment == EnvProduction {
		return now.AddDate(0, 1, 0)
	}
	return now.Add(3 * time.Minute)
}
