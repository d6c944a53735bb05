package controllers

import (
	"io"
	"net/http"

	"chatbill/internal/models/request_models"
	"chatbill/internal/services"
	"chatbill/pkg/utils"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	paymentService services.PaymentServiceInterface
}

func NewPaymentController(paymentService services.PaymentServiceInterface) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// CreateIntent godoc
// @Summary Start interactive payment setup for a plan
// @Tags Payments
// @Success 200 {object} utils.APIResponse
// @Router /payments/create-intent [post]
func (p *PaymentController) CreateIntent(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		utils.RespondError(c, http.StatusUnauthorized, "Missing auth context")
		return
	}

	var req request_models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	resp, err := p.paymentService.CreateIntent(c.Request.Context(), email, req.Plan)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resp, "")
}

func (p *PaymentController) EnableBilling(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		utils.RespondError(c, http.StatusUnauthorized, "Missing auth context")
		return
	}

	var req request_models.EnableBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := p.paymentService.SetBillingEnabled(c.Request.Context(), email, *req.Enabled); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Payment status updated successfully")
}

func (p *PaymentController) ReservePlanChange(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		utils.RespondError(c, http.StatusUnauthorized, "Missing auth context")
		return
	}

	var req request_models.ReservePlanChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := p.paymentService.ReservePlanChange(c.Request.Context(), email, req.NewPlan); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Plan change reserved")
}

func (p *PaymentController) ReserveCancellation(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		utils.RespondError(c, http.StatusUnauthorized, "Missing auth context")
		return
	}

	if err := p.paymentService.ReserveCancellation(c.Request.Context(), email); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Cancellation reserved")
}

func (p *PaymentController) GetStatus(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		utils.RespondError(c, http.StatusUnauthorized, "Missing auth context")
		return
	}

	status, err := p.paymentService.GetBillingStatus(c.Request.Context(), email)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, status, "")
}

// StripeWebhook verifies the event signature before touching any state.
// Always acknowledges verified events to avoid retry storms.
func (p *PaymentController) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := p.paymentService.ProcessWebhook(c.Request.Context(), payload, signature); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	c.Status(http.StatusOK)
}
