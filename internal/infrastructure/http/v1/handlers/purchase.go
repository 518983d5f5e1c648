package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/domain/auth"
	"powderbook/internal/domain/purchase"
	"powderbook/internal/infrastructure/docservice"
	"powderbook/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler handles purchase order endpoints.
type PurchaseHandler struct {
	*BaseHandler
	service  *purchase.Service
	auth     *auth.Service
	renderer *docservice.Client
}

// NewPurchaseHandler creates a new purchase order handler.
func NewPurchaseHandler(base *BaseHandler, service *purchase.Service, authService *auth.Service, renderer *docservice.Client) *PurchaseHandler {
	return &PurchaseHandler{
		BaseHandler: base,
		service:     service,
		auth:        authService,
		renderer:    renderer,
	}
}

// List handles GET /purchase-orders
func (h *PurchaseHandler) List(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.OrderListFilter
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	filter := purchase.ListFilter{
		Status:   req.Status,
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	if req.SupplierID != "" {
		supplierID, err := id.Parse(req.SupplierID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid supplierId"))
			return
		}
		filter.SupplierID = &supplierID
	}

	result, err := h.service.List(c.Request.Context(), companyID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromOrders(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /purchase-orders/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Get(c.Request.Context(), companyID, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromOrder(order))
}

// Create handles POST /purchase-orders
func (h *PurchaseHandler) Create(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	supplierID, err := id.Parse(req.SupplierID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid supplierId"))
		return
	}

	input := purchase.CreateInput{
		CompanyID:  companyID,
		SupplierID: supplierID,
		ExpectedAt: req.ExpectedAt,
		Comment:    req.Comment,
		CreatedBy:  h.UserID(c),
	}
	for _, item := range req.Items {
		powderID, err := id.Parse(item.PowderID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid powderId in items"))
			return
		}
		input.Items = append(input.Items, purchase.CreateItemInput{
			PowderID:  powderID,
			QtyKg:     item.QtyKg,
			RatePerKg: item.RatePerKg,
		})
	}

	order, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromOrder(*order)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Cancel handles POST /purchase-orders/:id/cancel
func (h *PurchaseHandler) Cancel(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Cancel(c.Request.Context(), companyID, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(*order))
}

// Deliver handles POST /purchase-orders/:id/deliver - marks the order
// completed and books its items into stock.
func (h *PurchaseHandler) Deliver(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Deliver(c.Request.Context(), companyID, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromOrder(*order)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// History handles GET /purchase-orders/:id/history
func (h *PurchaseHandler) History(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), companyID, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orderId": orderID.String(),
		"events":  dto.FromOrderHistory(entries),
	})
}

// Pdf handles GET /purchase-orders/:id/pdf - streams a rendered order document.
func (h *PurchaseHandler) Pdf(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Get(ctx, companyID, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	company, err := h.auth.GetCompany(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	pdf, err := h.renderer.Render(ctx, docservice.RenderRequest{
		Template:    "purchase_order",
		CompanyName: company.Name,
		Data:        dto.FromOrder(order),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	filename := fmt.Sprintf("order-%s.pdf", order.Number)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// RegisterRoutes registers purchase order routes.
func (h *PurchaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/purchase-orders")
	{
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.GET("/:id/history", h.History)
		orders.GET("/:id/pdf", h.Pdf)
		orders.POST("", h.Create)
		orders.POST("/:id/cancel", h.Cancel)
		orders.POST("/:id/deliver", h.Deliver)
	}
}
