package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"powderbook/internal/domain/auth"
	"powderbook/internal/domain/reports"
	"powderbook/internal/infrastructure/docservice"
	"powderbook/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles dashboard, analysis and report endpoints.
type ReportsHandler struct {
	*BaseHandler
	service  *reports.Service
	auth     *auth.Service
	renderer *docservice.Client
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service, authService *auth.Service, renderer *docservice.Client) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
		auth:        authService,
		renderer:    renderer,
	}
}

// Kpis handles GET /dashboard/kpis
func (h *ReportsHandler) Kpis(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	kpis, err := h.service.Kpis(c.Request.Context(), companyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, kpis)
}

// Inventory handles GET /dashboard/inventory - remaining stock per powder.
func (h *ReportsHandler) Inventory(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	rows, err := h.service.InventoryByPowder(c.Request.Context(), companyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// UsageAnalysis handles GET /analysis/usage
func (h *ReportsHandler) UsageAnalysis(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	filter, ok := h.bindAnalysisFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.UsageAnalysis(c.Request.Context(), companyID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// StockAnalysis handles GET /analysis/stock
func (h *ReportsHandler) StockAnalysis(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	filter, ok := h.bindAnalysisFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.StockAnalysis(c.Request.Context(), companyID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *ReportsHandler) bindAnalysisFilter(c *gin.Context) (reports.AnalysisFilter, bool) {
	var req dto.AnalysisFilterRequest
	if !h.BindQuery(c, &req) {
		return reports.AnalysisFilter{}, false
	}
	req.Defaults()

	return reports.AnalysisFilter{
		PowderName: req.PowderName,
		FromDate:   req.FromDate,
		ToDate:     req.ToDate,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}, true
}

// Monthly handles GET /reports/monthly
func (h *ReportsHandler) Monthly(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.MonthlyReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	summary, err := h.service.Monthly(c.Request.Context(), companyID, req.Year, req.Month)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// MonthlyPdf handles GET /reports/monthly/pdf
func (h *ReportsHandler) MonthlyPdf(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.MonthlyReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	summary, err := h.service.Monthly(ctx, companyID, req.Year, req.Month)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.renderPdf(c, "monthly_report", summary,
		fmt.Sprintf("monthly-%04d-%02d.pdf", req.Year, req.Month))
}

// Annual handles GET /reports/annual
func (h *ReportsHandler) Annual(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.AnnualReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	summary, err := h.service.Annual(c.Request.Context(), companyID, req.Year)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// AnnualPdf handles GET /reports/annual/pdf
func (h *ReportsHandler) AnnualPdf(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.AnnualReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	summary, err := h.service.Annual(ctx, companyID, req.Year)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.renderPdf(c, "annual_report", summary,
		fmt.Sprintf("annual-%04d.pdf", req.Year))
}

// Conservation handles GET /reports/conservation - verifies that consumed
// stock equals the live trail total.
func (h *ReportsHandler) Conservation(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	check, err := h.service.CheckConservation(c.Request.Context(), companyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

func (h *ReportsHandler) renderPdf(c *gin.Context, template string, data any, filename string) {
	ctx := c.Request.Context()

	company, err := h.auth.GetCompany(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	pdf, err := h.renderer.Render(ctx, docservice.RenderRequest{
		Template:    template,
		CompanyName: company.Name,
		Data:        data,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// RegisterRoutes registers dashboard, analysis and report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	dashboard := rg.Group("/dashboard")
	{
		dashboard.GET("/kpis", h.Kpis)
		dashboard.GET("/inventory", h.Inventory)
	}

	analysis := rg.Group("/analysis")
	{
		analysis.GET("/usage", h.UsageAnalysis)
		analysis.GET("/stock", h.StockAnalysis)
	}

	reportGroup := rg.Group("/reports")
	{
		reportGroup.GET("/monthly", h.Monthly)
		reportGroup.GET("/monthly/pdf", h.MonthlyPdf)
		reportGroup.GET("/annual", h.Annual)
		reportGroup.GET("/annual/pdf", h.AnnualPdf)
		reportGroup.GET("/conservation", h.Conservation)
	}
}
