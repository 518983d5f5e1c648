package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/domain/ledger"
	"powderbook/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock batch endpoints.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /stock
func (h *StockHandler) List(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.StockListFilter
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	filter := ledger.BatchFilter{
		OnlyAvailable: req.OnlyAvailable,
		FromDate:      req.FromDate,
		ToDate:        req.ToDate,
		Limit:         req.Limit,
		Offset:        req.Offset,
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

	result, err := h.service.ListBatches(c.Request.Context(), companyID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromStockBatches(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /stock/:id
func (h *StockHandler) Get(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	batchID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	batch, err := h.service.GetBatch(c.Request.Context(), companyID, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStockBatch(batch))
}

// Create handles POST /stock
func (h *StockHandler) Create(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.AddStockRequest
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

	batch, err := h.service.AddStock(c.Request.Context(), ledger.AddStockInput{
		CompanyID:  companyID,
		PowderID:   powderID,
		SupplierID: supplierID,
		QtyKg:      req.QtyKg,
		RatePerKg:  req.RatePerKg,
		ReceivedAt: req.ReceivedAt,
		Note:       req.Note,
		CreatedBy:  h.UserID(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromStockBatch(*batch)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Update handles PUT /stock/:id
func (h *StockHandler) Update(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	batchID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.EditStockRequest
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

	batch, err := h.service.EditBatch(c.Request.Context(), ledger.EditStockInput{
		CompanyID:  companyID,
		BatchID:    batchID,
		PowderID:   powderID,
		SupplierID: supplierID,
		QtyKg:      req.QtyKg,
		RatePerKg:  req.RatePerKg,
		ReceivedAt: req.ReceivedAt,
		Note:       req.Note,
		UpdatedBy:  h.UserID(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockBatch(*batch))
}

// Delete handles DELETE /stock/:id
func (h *StockHandler) Delete(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	batchID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteBatch(c.Request.Context(), companyID, batchID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Available handles GET /stock/available - total remaining quantity across
// all batches of a powder.
func (h *StockHandler) Available(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	powderID, err := id.Parse(c.Query("powderId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("powderId is required"))
		return
	}

	var supplierID *id.ID
	if raw := c.Query("supplierId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid supplierId"))
			return
		}
		supplierID = &parsed
	}

	total, err := h.service.TotalAvailable(c.Request.Context(), companyID, powderID, supplierID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"powderId":    powderID.String(),
		"availableKg": total,
	})
}

// RegisterRoutes registers stock routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock")
	{
		stock.GET("", h.List)
		stock.GET("/available", h.Available)
		stock.GET("/:id", h.Get)
		stock.POST("", h.Create)
		stock.PUT("/:id", h.Update)
		stock.DELETE("/:id", h.Delete)
	}
}
