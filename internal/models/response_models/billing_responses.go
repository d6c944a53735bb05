package response_models

type CreateIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	IntentID     string `json:"payment_intent_id"`
}

type BillingStatus struct {
	Plan            string  `json:"plan"`
	PaymentStatus   bool    `json:"payment_status"`
	NextProcessDate *string `json:"next_process_date"` // ISO 8601, null when nothing pending
	NextProcessType string  `json:"next_process_type"`
	NextPlan        *string `json:"next_plan"`
}

type SchedulerStatus struct {
	State        string `json:"state"`
	TickInterval string `json:"tick_interval"`
}
