package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/middleware"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

func (h *ReportsHandler) Monthly(c *gin.Context) {
	var q dto.YearQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.Monthly(c.Request.Context(), middleware.CompanyID(c), q.Year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) ExpensesByCategory(c *gin.Context) {
	var q dto.DateRangeQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.ExpensesByCategory(c.Request.Context(), middleware.CompanyID(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) ProfitLoss(c *gin.Context) {
	var q dto.DateRangeQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.ProfitLoss(c.Request.Context(), middleware.CompanyID(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VAT godoc
// @Summary Monthly VAT position
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param companyId path string true "Company ID"
// @Param period query string true "Month as YYYY-MM"
// @Success 200 {object} dto.VATReport
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/companies/{companyId}/reports/vat [get]
func (h *ReportsHandler) VAT(c *gin.Context) {
	var q dto.PeriodQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.VAT(c.Request.Context(), middleware.CompanyID(c), q.Period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context(), middleware.CompanyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
