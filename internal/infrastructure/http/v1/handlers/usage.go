package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/domain/usage"
	"powderbook/internal/infrastructure/http/v1/dto"
)

// UsageHandler handles powder usage endpoints.
type UsageHandler struct {
	*BaseHandler
	service *usage.Service
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(base *BaseHandler, service *usage.Service) *UsageHandler {
	return &UsageHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /usages
func (h *UsageHandler) List(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.UsageListFilter
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	filter := usage.ListFilter{
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	if req.PowderID != "" {
		powderID, err := id.Parse(req.PowderID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid powderId"))
			return
		}
		filter.PowderID = &powderID
	}
	if req.SupplierID != "" {
		supplierID, err := id.Parse(req.SupplierID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid supplierId"))
			return
		}
		filter.SupplierID = &supplierID
	}
	if req.ClientID != "" {
		clientID, err := id.Parse(req.ClientID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid clientId"))
			return
		}
		filter.ClientID = &clientID
	}

	result, err := h.service.List(c.Request.Context(), companyID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromUsages(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /usages/:id
func (h *UsageHandler) Get(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	usageID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	u, err := h.service.Get(c.Request.Context(), companyID, usageID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUsage(u))
}

// Create handles POST /usages - records a consumption with FIFO allocation.
func (h *UsageHandler) Create(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.CreateUsageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	powderID, err := id.Parse(req.PowderID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid powderId"))
		return
	}
	supplierID, err := id.Parse(req.SupplierID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid supplierId"))
		return
	}

	input := usage.CreateInput{
		CompanyID:  companyID,
		PowderID:   powderID,
		SupplierID: supplierID,
		QuantityKg: req.QuantityKg,
		UsedAt:     req.UsedAt,
		Comment:    req.Comment,
		CreatedBy:  h.UserID(c),
	}
	if req.ClientID != nil && *req.ClientID != "" {
		clientID, err := id.Parse(*req.ClientID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid clientId"))
			return
		}
		input.ClientID = &clientID
	}

	u, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromUsage(*u)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Update handles PUT /usages/:id - reverses and replays the allocation.
func (h *UsageHandler) Update(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	usageID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.EditUsageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	powderID, err := id.Parse(req.PowderID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid powderId"))
		return
	}
	supplierID, err := id.Parse(req.SupplierID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid supplierId"))
		return
	}

	input := usage.EditInput{
		CompanyID:  companyID,
		UsageID:    usageID,
		PowderID:   powderID,
		SupplierID: supplierID,
		QuantityKg: req.QuantityKg,
		UsedAt:     req.UsedAt,
		Comment:    req.Comment,
		UpdatedBy:  h.UserID(c),
	}
	if req.ClientID != nil && *req.ClientID != "" {
		clientID, err := id.Parse(*req.ClientID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid clientId"))
			return
		}
		input.ClientID = &clientID
	}

	u, err := h.service.Edit(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromUsage(*u))
}

// Delete handles DELETE /usages/:id - cancels the usage and restores stock.
func (h *UsageHandler) Delete(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	usageID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), companyID, usageID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Trail handles GET /usages/:id/trail - which batches this usage consumed.
func (h *UsageHandler) Trail(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	usageID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.Trail(c.Request.Context(), companyID, usageID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"usageId": usageID.String(),
		"entries": dto.FromTrailEntries(entries),
	})
}

// RegisterRoutes registers usage routes.
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	usages := rg.Group("/usages")
	{
		usages.GET("", h.List)
		usages.GET("/:id", h.Get)
		usages.GET("/:id/trail", h.Trail)
		usages.POST("", h.Create)
		usages.PUT("/:id", h.Update)
		usages.DELETE("/:id", h.Delete)
	}
}
