package dto

import (
	"time"
)

// AnalysisFilterRequest selects rows for the analysis views.
type AnalysisFilterRequest struct {
	PaginationRequest
	PowderName string     `form:"powderName"`
	FromDate   *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"toDate" time_format:"2006-01-02"`
}

// MonthlyReportRequest selects the month for the monthly summary.
type MonthlyReportRequest struct {
	Year  int `form:"year" binding:"required,min=2000,max=2100"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// AnnualReportRequest selects the year for the annual summary.
type AnnualReportRequest struct {
	Year int `form:"year" binding:"required,min=2000,max=2100"`
}
