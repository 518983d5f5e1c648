package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/domain/activity"
	"powderbook/internal/infrastructure/http/v1/dto"
)

// ActivityHandler handles activity log endpoints.
type ActivityHandler struct {
	*BaseHandler
	service *activity.Service
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(base *BaseHandler, service *activity.Service) *ActivityHandler {
	return &ActivityHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /activity
func (h *ActivityHandler) List(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.ActivityListFilter
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	filter := activity.ListFilter{
		EventTypes: req.EventTypes,
		RefType:    req.RefType,
		FromDate:   req.FromDate,
		ToDate:     req.ToDate,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if req.RefID != "" {
		refID, err := id.Parse(req.RefID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid refId"))
			return
		}
		filter.RefID = &refID
	}

	result, err := h.service.List(c.Request.Context(), companyID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromActivityEvents(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterRoutes registers activity log routes.
func (h *ActivityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/activity", h.List)
}
