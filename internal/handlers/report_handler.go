package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jcastellanos/aguadora-api/internal/services"
)

type ReportHandler struct {
	reportService    *services.ReportService
	statusJobService *services.StatusJobService
}

func NewReportHandler(reportService *services.ReportService, statusJobService *services.StatusJobService) *ReportHandler {
	return &ReportHandler{reportService: reportService, statusJobService: statusJobService}
}

// @Summary Delinquency Report
// @Description Download the delinquency report as CSV
// @Tags Reports
// @Produce text/csv
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/delinquency [get]
func (h *ReportHandler) DelinquencyCSV(c *gin.Context) {
	buf, err := h.reportService.GenerateDelinquencyCSV(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	filename := "morosidad_" + time.Now().Format("2006-01-02") + ".csv"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// @Summary Delinquency List
// @Description Delinquent connections with owed months and amounts, as JSON
// @Tags Reports
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /reports/delinquency/rows [get]
func (h *ReportHandler) DelinquencyRows(c *gin.Context) {
	rows, err := h.reportService.DelinquentRows(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

// @Summary Monthly Income Report
// @Description Download the income report of one month as XLSX
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/monthly_income [get]
func (h *ReportHandler) MonthlyIncomeXLSX(c *gin.Context) {
	now := time.Now()
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month debe estar entre 1 y 12"})
		return
	}

	data, filename, err := h.reportService.GenerateMonthlyIncomeXLSX(c.Request.Context(), year, month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// @Summary Installment Payment Receipt
// @Description Download the PDF receipt of an installment payment
// @Tags Reports
// @Produce application/pdf
// @Param payment_id path int true "Plan Payment ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /plans/payments/{payment_id}/receipt [get]
func (h *ReportHandler) PlanReceipt(c *gin.Context) {
	paymentID, _ := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	data, filename, err := h.reportService.GeneratePlanReceiptPDF(c.Request.Context(), uint(paymentID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

// @Summary Recompute Payment Statuses
// @Description Run the payment-status sweep over all connections (Admin)
// @Tags Reports
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /reports/recompute_statuses [post]
func (h *ReportHandler) RecomputeStatuses(c *gin.Context) {
	if err := h.statusJobService.RecomputeAll(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Estados de pago recalculados"})
}
