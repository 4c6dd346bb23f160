package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	reportService  *services.ReportService
}

func NewPaymentHandler(paymentService *services.PaymentService, reportService *services.ReportService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, reportService: reportService}
}

// @Summary List Connection Payments
// @Description Get the monthly-payment history of one connection
// @Tags Payments
// @Accept json
// @Produce json
// @Param connection_id path int true "Connection ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connections/{connection_id}/payments [get]
func (h *PaymentHandler) ByConnection(c *gin.Context) {
	connectionID, _ := strconv.ParseUint(c.Param("connection_id"), 10, 32)
	payments, err := h.paymentService.FindByConnection(c.Request.Context(), uint(connectionID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

type RecordMonthlyPaymentRequest struct {
	ConnectionID  uint               `json:"connection_id" binding:"required"`
	Months        []models.PaidMonth `json:"months" binding:"required"`
	PayerName     string             `json:"payer_name" binding:"required"`
	PayerIdentity string             `json:"payer_identity"`
	FeePerMonth   *decimal.Decimal   `json:"fee_per_month"`
	PaymentDate   string             `json:"payment_date"`
	Notes         *string            `json:"notes"`
}

// @Summary Record Monthly Payment
// @Description Record one payment covering one or more months
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body RecordMonthlyPaymentRequest true "Payment Data"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req RecordMonthlyPaymentRequest
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

	payment, err := h.paymentService.RecordPayment(c.Request.Context(), services.RecordMonthlyPaymentInput{
		ConnectionID:  req.ConnectionID,
		Months:        req.Months,
		PayerName:     req.PayerName,
		PayerIdentity: req.PayerIdentity,
		FeePerMonth:   req.FeePerMonth,
		PaymentDate:   paymentDate,
		Notes:         req.Notes,
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

// @Summary Monthly Payment Receipt
// @Description Download the PDF receipt of a monthly payment
// @Tags Payments
// @Produce application/pdf
// @Param payment_id path int true "Payment ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /payments/{payment_id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	paymentID, _ := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	data, filename, err := h.reportService.GenerateMonthlyReceiptPDF(c.Request.Context(), uint(paymentID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

type OtherPaymentHandler struct {
	otherPaymentService *services.OtherPaymentService
	reportService       *services.ReportService
}

func NewOtherPaymentHandler(otherPaymentService *services.OtherPaymentService, reportService *services.ReportService) *OtherPaymentHandler {
	return &OtherPaymentHandler{otherPaymentService: otherPaymentService, reportService: reportService}
}

// @Summary List Connection Other Payments
// @Description Get the ad-hoc payment history of one connection
// @Tags OtherPayments
// @Accept json
// @Produce json
// @Param connection_id path int true "Connection ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connections/{connection_id}/other_payments [get]
func (h *OtherPaymentHandler) ByConnection(c *gin.Context) {
	connectionID, _ := strconv.ParseUint(c.Param("connection_id"), 10, 32)
	payments, err := h.otherPaymentService.FindByConnection(c.Request.Context(), uint(connectionID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"other_payments": payments})
}

type RecordOtherPaymentRequest struct {
	ConnectionID  uint            `json:"connection_id" binding:"required"`
	Concept       string          `json:"concept" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date"`
	PayerName     string          `json:"payer_name" binding:"required"`
	PayerIdentity string          `json:"payer_identity"`
	Notes         *string         `json:"notes"`
}

// @Summary Record Other Payment
// @Description Record an ad-hoc payment (reconnection, repair, fine)
// @Tags OtherPayments
// @Accept json
// @Produce json
// @Param request body RecordOtherPaymentRequest true "Payment Data"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /other_payments [post]
func (h *OtherPaymentHandler) Create(c *gin.Context) {
	var req RecordOtherPaymentRequest
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

	payment, err := h.otherPaymentService.Record(c.Request.Context(), services.RecordOtherPaymentInput{
		ConnectionID:  req.ConnectionID,
		Concept:       req.Concept,
		Amount:        req.Amount,
		PaymentDate:   paymentDate,
		PayerName:     req.PayerName,
		PayerIdentity: req.PayerIdentity,
		Notes:         req.Notes,
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

// @Summary Delete Other Payment
// @Description Soft delete an ad-hoc payment; its receipt number stays reserved
// @Tags OtherPayments
// @Accept json
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /other_payments/{payment_id} [delete]
func (h *OtherPaymentHandler) Delete(c *gin.Context) {
	paymentID, _ := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	if err := h.otherPaymentService.Delete(c.Request.Context(), uint(paymentID), currentActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pago eliminado"})
}

// @Summary Other Payment Receipt
// @Description Download the PDF receipt of an ad-hoc payment
// @Tags OtherPayments
// @Produce application/pdf
// @Param payment_id path int true "Payment ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /other_payments/{payment_id}/receipt [get]
func (h *OtherPaymentHandler) Receipt(c *gin.Context) {
	paymentID, _ := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	data, filename, err := h.reportService.GenerateOtherReceiptPDF(c.Request.Context(), uint(paymentID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}
