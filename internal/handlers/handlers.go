package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jcastellanos/aguadora-api/internal/middleware"
	"github.com/jcastellanos/aguadora-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Owner        *OwnerHandler
	Connection   *ConnectionHandler
	Plan         *PlanHandler
	Payment      *PaymentHandler
	OtherPayment *OtherPaymentHandler
	Settings     *SettingsHandler
	Notification *NotificationHandler
	Report       *ReportHandler
	Audit        *AuditHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(svcs.StatusJob),
		Auth:         NewAuthHandler(svcs.Auth),
		User:         NewUserHandler(svcs.User),
		Owner:        NewOwnerHandler(svcs.Owner),
		Connection:   NewConnectionHandler(svcs.Connection, svcs.PaymentStatus),
		Plan:         NewPlanHandler(svcs.Plan),
		Payment:      NewPaymentHandler(svcs.Payment, svcs.Report),
		OtherPayment: NewOtherPaymentHandler(svcs.OtherPayment, svcs.Report),
		Settings:     NewSettingsHandler(svcs.BillingPolicy),
		Notification: NewNotificationHandler(svcs.Notification),
		Report:       NewReportHandler(svcs.Report, svcs.StatusJob),
		Audit:        NewAuditHandler(svcs.Audit),
	}
}

// respondError maps service errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// currentActor returns the authenticated user's ID as the nullable
// actor reference the services expect.
func currentActor(c *gin.Context) *uint {
	id := middleware.GetUserID(c)
	if id == 0 {
		return nil
	}
	return &id
}
