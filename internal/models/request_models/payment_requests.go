package request_models

type CreateIntentRequest struct {
	Plan string `json:"plan" binding:"required"`
}

type EnableBillingRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type ReservePlanChangeRequest struct {
	NewPlan string `json:"new_plan" binding:"required"`
}
