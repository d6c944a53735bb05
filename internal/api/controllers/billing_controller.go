package controllers

import (
	"time"

	"chatbill/internal/models/response_models"
	"chatbill/internal/scheduler"
	"chatbill/internal/services"
	"chatbill/pkg/utils"

	"github.com/gin-gonic/gin"
)

// BillingController exposes the operator surface: a synchronous manual
// reconciliation trigger and the scheduler state, for diagnostics.
type BillingController struct {
	billingService services.BillingServiceInterface
	supervisor     *scheduler.Supervisor
}

func NewBillingController(billingService services.BillingServiceInterface, supervisor *scheduler.Supervisor) *BillingController {
	return &BillingController{
		billingService: billingService,
		supervisor:     supervisor,
	}
}

// RunReconciliation godoc
// @Summary Run one reconciliation pass now
// @Tags Billing
// @Success 200 {object} utils.APIResponse
// @Router /admin/billing/run [post]
func (b *BillingController) RunReconciliation(c *gin.Context) {
	report, err := b.billingService.Reconcile(c.Request.Context(), time.Now())
	if err != nil {
		// The report still carries whatever did process.
		utils.RespondSuccess(c, report, "Reconciliation completed with errors: "+err.Error())
		return
	}

	utils.RespondSuccess(c, report, "Reconciliation completed")
}

func (b *BillingController) SchedulerStatus(c *gin.Context) {
	utils.RespondSuccess(c, response_models.SchedulerStatus{
		State:        b.supervisor.State().String(),
		TickInterval: b.supervisor.Interval().String(),
	}, "")
}
