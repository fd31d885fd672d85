package controllers

import (
	"errors"
	"net/http"

	"civic-portal/checkout"
	"civic-portal/middleware"
	"civic-portal/repository"
	"civic-portal/services"
	"civic-portal/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WorkflowController exposes the certificate-application and
// grievance-upgrade flows. A request drives the flow through review,
// payment and confirmation; the handler blocks while the checkout provider
// waits for the browser-side outcome, so these routes are long-polled by
// the UI.
type WorkflowController struct {
	Runner *workflow.Runner
	Apps   repository.ApplicationRepository
	Logger *zap.Logger
}

type certificateApplyRequest struct {
	CertificateType string            `json:"certificate_type" binding:"required"`
	ApplicationID   string            `json:"application_id" binding:"required"`
	Customer        services.Customer `json:"customer" binding:"required"`
	FormData        map[string]string `json:"form_data"`
}

// ApplyCertificate runs the certificate application payment flow.
func (wc *WorkflowController) ApplyCertificate(c *gin.Context) {
	var req certificateApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flow, err := workflow.CertificateFlow(req.CertificateType, req.ApplicationID, req.FormData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wc.run(c, flow, req.Customer)
}

type grievanceUpgradeRequest struct {
	Customer services.Customer `json:"customer" binding:"required"`
}

// UpgradeGrievance runs the priority-upgrade payment flow for a grievance.
func (wc *WorkflowController) UpgradeGrievance(c *gin.Context) {
	var req grievanceUpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wc.run(c, workflow.GrievanceUpgradeFlow(c.Param("id")), req.Customer)
}

func (wc *WorkflowController) run(c *gin.Context, flow workflow.Flow, customer services.Customer) {
	result, err := wc.Runner.Run(c.Request.Context(), workflow.RunRequest{
		Flow:        flow,
		Customer:    customer,
		UserID:      middleware.GetUserID(c),
		BearerToken: middleware.BearerToken(c),
	})
	if err != nil {
		status := http.StatusBadGateway
		var se *services.ServiceError
		if errors.As(err, &se) {
			status = se.StatusCode
		}
		resp := gin.H{"error": err.Error()}
		if result != nil {
			resp["state"] = result.State
		}
		c.JSON(status, resp)
		return
	}

	resp := gin.H{
		"state": result.State,
		"fees":  result.Fees,
	}
	if result.Order != nil {
		resp["order_id"] = result.Order.ID
	}
	if result.State == checkout.StateConfirmation {
		resp["payment_id"] = result.PaymentID
		resp["status"] = result.Status
		resp["receipt_number"] = result.ReceiptNumber
	}
	c.JSON(http.StatusOK, resp)
}

// ListApplications returns the citizen's locally recorded applications.
// This is the optimistic list; the backend remains authoritative.
func (wc *WorkflowController) ListApplications(c *gin.Context) {
	apps, err := wc.Apps.ListApplicationsByUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		wc.Logger.Error("Failed to list applications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list applications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}
