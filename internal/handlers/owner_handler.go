package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
	"github.com/jcastellanos/aguadora-api/internal/services"
)

type OwnerHandler struct {
	ownerService *services.OwnerService
}

func NewOwnerHandler(ownerService *services.OwnerService) *OwnerHandler {
	return &OwnerHandler{ownerService: ownerService}
}

// @Summary List Owners
// @Description Get a paginated list of property owners
// @Tags Owners
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param community query string false "Filter by community"
// @Param search_term query string false "Search by name or identity"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /owners [get]
func (h *OwnerHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Filters["community"] = c.Query("community")
	query.Filters["search_term"] = c.Query("search_term")

	owners, total, err := h.ownerService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for i := range owners {
		responses = append(responses, owners[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"owners": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Owner
// @Description Get a property owner by ID, with connections
// @Tags Owners
// @Accept json
// @Produce json
// @Param owner_id path int true "Owner ID"
// @Success 200 {object} models.OwnerResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /owners/{owner_id} [get]
func (h *OwnerHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("owner_id"), 10, 32)
	owner, err := h.ownerService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Propietario no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner.ToResponse()})
}

// @Summary Create Owner
// @Description Register a new property owner
// @Tags Owners
// @Accept json
// @Produce json
// @Param request body models.Owner true "Owner Data"
// @Success 201 {object} models.OwnerResponse
// @Security BearerAuth
// @Router /owners [post]
func (h *OwnerHandler) Create(c *gin.Context) {
	var owner models.Owner
	if err := BindNestedOrFlat(c, "owner", &owner); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ownerService.Create(c.Request.Context(), &owner, currentActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"owner": owner.ToResponse()})
}

// @Summary Update Owner
// @Description Update an existing property owner
// @Tags Owners
// @Accept json
// @Produce json
// @Param owner_id path int true "Owner ID"
// @Param request body models.Owner true "Owner Data"
// @Success 200 {object} models.OwnerResponse
// @Security BearerAuth
// @Router /owners/{owner_id} [put]
func (h *OwnerHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("owner_id"), 10, 32)
	var owner models.Owner
	if err := BindNestedOrFlat(c, "owner", &owner); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	owner.ID = uint(id)

	if err := h.ownerService.Update(c.Request.Context(), &owner, currentActor(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"owner": owner.ToResponse()})
}

// @Summary Delete Owner
// @Description Soft delete a property owner without connections
// @Tags Owners
// @Accept json
// @Produce json
// @Param owner_id path int true "Owner ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /owners/{owner_id} [delete]
func (h *OwnerHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("owner_id"), 10, 32)
	if err := h.ownerService.Delete(c.Request.Context(), uint(id), currentActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Propietario eliminado"})
}
