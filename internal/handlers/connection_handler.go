package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
	"github.com/jcastellanos/aguadora-api/internal/services"
)

type ConnectionHandler struct {
	connectionService *services.ConnectionService
	statusService     *services.PaymentStatusService
}

func NewConnectionHandler(connectionService *services.ConnectionService, statusService *services.PaymentStatusService) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService, statusService: statusService}
}

// @Summary List Connections
// @Description Get a paginated list of water connections
// @Tags Connections
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by operational status"
// @Param payment_status query string false "Filter by payment status token"
// @Param community query string false "Filter by community"
// @Param search_term query string false "Search by owner name or identity"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connections [get]
func (h *ConnectionHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Filters["status"] = c.Query("status")
	query.Filters["payment_status"] = c.Query("payment_status")
	query.Filters["community"] = c.Query("community")
	query.Filters["search_term"] = c.Query("search_term")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	connections, total, err := h.connectionService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for i := range connections {
		responses = append(responses, connections[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"connections": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Connection
// @Description Get a water connection with its owner and owed months
// @Tags Connections
// @Accept json
// @Produce json
// @Param connection_id path int true "Connection ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /connections/{connection_id} [get]
func (h *ConnectionHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("connection_id"), 10, 32)
	connection, err := h.connectionService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paja no encontrada"})
		return
	}

	owed, err := h.statusService.OwedMonths(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	owedMonths := make([]string, 0, len(owed))
	for _, m := range owed {
		owedMonths = append(owedMonths, m.String())
	}

	c.JSON(http.StatusOK, gin.H{
		"connection":  connection.ToResponse(),
		"owed_months": owedMonths,
	})
}

// @Summary Create Connection
// @Description Register a new water connection for an owner
// @Tags Connections
// @Accept json
// @Produce json
// @Param request body models.Connection true "Connection Data"
// @Success 201 {object} models.ConnectionResponse
// @Security BearerAuth
// @Router /connections [post]
func (h *ConnectionHandler) Create(c *gin.Context) {
	var connection models.Connection
	if err := BindNestedOrFlat(c, "connection", &connection); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.connectionService.Create(c.Request.Context(), &connection, currentActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"connection": connection.ToResponse()})
}

type UpdateConnectionRequest struct {
	Community string  `json:"community"`
	Note      *string `json:"note"`
}

// @Summary Update Connection
// @Description Update a water connection's descriptive fields
// @Tags Connections
// @Accept json
// @Produce json
// @Param connection_id path int true "Connection ID"
// @Param request body UpdateConnectionRequest true "Connection Data"
// @Success 200 {object} models.ConnectionResponse
// @Security BearerAuth
// @Router /connections/{connection_id} [put]
func (h *ConnectionHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("connection_id"), 10, 32)

	connection, err := h.connectionService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paja no encontrada"})
		return
	}

	var req UpdateConnectionRequest
	if err := BindNestedOrFlat(c, "connection", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Community != "" {
		connection.Community = req.Community
	}
	if req.Note != nil {
		connection.Note = req.Note
	}

	if err := h.connectionService.Update(c.Request.Context(), connection, currentActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"connection": connection.ToResponse()})
}

// @Summary Suspend Connection
// @Description Mark a connection operationally suspended
// @Tags Connections
// @Accept json
// @Produce json
// @Param connection_id path int true "Connection ID"
// @Success 200 {object} models.ConnectionResponse
// @Security BearerAuth
// @Router /connections/{connection_id}/suspend [post]
func (h *ConnectionHandler) Suspend(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("connection_id"), 10, 32)
	connection, err := h.connectionService.Suspend(c.Request.Context(), uint(id), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection": connection.ToResponse()})
}

// @Summary Activate Connection
// @Description Return a suspended connection to service
// @Tags Connections
// @Accept json
// @Produce json
// @Param connection_id path int true "Connection ID"
// @Success 200 {object} models.ConnectionResponse
// @Security BearerAuth
// @Router /connections/{connection_id}/activate [post]
func (h *ConnectionHandler) Activate(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("connection_id"), 10, 32)
	connection, err := h.connectionService.Activate(c.Request.Context(), uint(id), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection": connection.ToResponse()})
}

// @Summary Delete Connection
// @Description Soft delete a connection, cancelling its active plans
// @Tags Connections
// @Accept json
// @Produce json
// @Param connection_id path int true "Connection ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /connections/{connection_id} [delete]
func (h *ConnectionHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("connection_id"), 10, 32)
	if err := h.connectionService.Delete(c.Request.Context(), uint(id), currentActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Paja eliminada"})
}
