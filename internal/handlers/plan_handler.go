package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jcastellanos/aguadora-api/internal/services"
)

type PlanHandler struct {
	planService *services.PlanService
}

func NewPlanHandler(planService *services.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// @Summary Get Plan
// @Description Get an installment plan with its payments
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Success 200 {object} models.PlanResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /plans/{plan_id} [get]
func (h *PlanHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("plan_id"), 10, 32)
	plan, err := h.planService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan.ToResponse()})
}

// @Summary List Connection Plans
// @Description Get all plans of one connection
// @Tags Plans
// @Accept json
// @Produce json
// @Param connection_id path int true "Connection ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connections/{connection_id}/plans [get]
func (h *PlanHandler) ByConnection(c *gin.Context) {
	connectionID, _ := strconv.ParseUint(c.Param("connection_id"), 10, 32)
	plans, err := h.planService.FindByConnection(c.Request.Context(), uint(connectionID))
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for i := range plans {
		responses = append(responses, plans[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"plans": responses})
}

type CreatePlanRequest struct {
	ConnectionID      uint            `json:"connection_id" binding:"required"`
	PlanType          string          `json:"plan_type" binding:"required"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	InstallmentCount  int             `json:"installment_count"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	StartDate         string          `json:"start_date"`
}

// @Summary Create Plan
// @Description Open an installment plan for a connection
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body CreatePlanRequest true "Plan Data"
// @Success 201 {object} models.PlanResponse
// @Security BearerAuth
// @Router /plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	var req CreatePlanRequest
	if err := BindNestedOrFlat(c, "plan", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate := time.Now()
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date debe tener formato AAAA-MM-DD"})
			return
		}
		startDate = parsed
	}

	plan, err := h.planService.Create(c.Request.Context(), services.CreatePlanInput{
		ConnectionID:      req.ConnectionID,
		PlanType:          req.PlanType,
		TotalAmount:       req.TotalAmount,
		InstallmentCount:  req.InstallmentCount,
		InstallmentAmount: req.InstallmentAmount,
		StartDate:         startDate,
	}, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"plan": plan.ToResponse()})
}

type RecordInstallmentRequest struct {
	InstallmentNumber int             `json:"installment_number" binding:"required"`
	PaymentDate       string          `json:"payment_date"`
	PayerName         string          `json:"payer_name" binding:"required"`
	PayerIdentity     string          `json:"payer_identity"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	Notes             *string         `json:"notes"`
}

// @Summary Record Installment Payment
// @Description Record a payment against one installment of a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Param request body RecordInstallmentRequest true "Payment Data"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /plans/{plan_id}/payments [post]
func (h *PlanHandler) RecordPayment(c *gin.Context) {
	planID, _ := strconv.ParseUint(c.Param("plan_id"), 10, 32)

	var req RecordInstallmentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var paymentDate time.Time
	if req.PaymentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment_date debe tener formato AAAA-MM-DD"})
			return
		}
		paymentDate = parsed
	}

	payment, err := h.planService.RecordPayment(c.Request.Context(), services.RecordInstallmentPaymentInput{
		PlanID:            uint(planID),
		InstallmentNumber: req.InstallmentNumber,
		PaymentDate:       paymentDate,
		PayerName:         req.PayerName,
		PayerIdentity:     req.PayerIdentity,
		AmountPaid:        req.AmountPaid,
		Notes:             req.Notes,
	}, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment":        payment,
		"receipt_number": payment.ReceiptNumber,
	})
}

// @Summary Delete Installment Payment
// @Description Remove a recorded installment payment
// @Tags Plans
// @Accept json
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /plans/payments/{payment_id} [delete]
func (h *PlanHandler) DeletePayment(c *gin.Context) {
	paymentID, _ := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	if err := h.planService.DeletePayment(c.Request.Context(), uint(paymentID), currentActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pago eliminado"})
}

type CancelPlanRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// @Summary Cancel Plan
// @Description Cancel a plan with a mandatory reason
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Param request body CancelPlanRequest true "Cancellation Reason"
// @Success 200 {object} models.PlanResponse
// @Security BearerAuth
// @Router /plans/{plan_id}/cancel [post]
func (h *PlanHandler) Cancel(c *gin.Context) {
	planID, _ := strconv.ParseUint(c.Param("plan_id"), 10, 32)

	var req CancelPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La razón de cancelación es obligatoria"})
		return
	}

	plan, err := h.planService.Cancel(c.Request.Context(), uint(planID), req.Reason, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan.ToResponse()})
}

// @Summary Reactivate Plan
// @Description Return a cancelled plan to service
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Success 200 {object} models.PlanResponse
// @Security BearerAuth
// @Router /plans/{plan_id}/reactivate [post]
func (h *PlanHandler) Reactivate(c *gin.Context) {
	planID, _ := strconv.ParseUint(c.Param("plan_id"), 10, 32)
	plan, err := h.planService.Reactivate(c.Request.Context(), uint(planID), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan.ToResponse()})
}

// @Summary Delete Plan
// @Description Soft delete a plan, cancelling it first if active
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /plans/{plan_id} [delete]
func (h *PlanHandler) Delete(c *gin.Context) {
	planID, _ := strconv.ParseUint(c.Param("plan_id"), 10, 32)
	if err := h.planService.Delete(c.Request.Context(), uint(planID), currentActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan eliminado"})
}
