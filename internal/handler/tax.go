package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

// TaxHandler serves the VAT rate tables. None of its routes are company
// scoped.
type TaxHandler struct{ svc service.TaxService }

func NewTaxHandler(svc service.TaxService) *TaxHandler { return &TaxHandler{svc: svc} }

// ListRates godoc
// @Summary VAT rates of every EU member state
// @Tags tax
// @Produce json
// @Security BearerAuth
// @Param date query string false "Effective date (YYYY-MM-DD), defaults to today"
// @Success 200 {array} dto.CountryRatesResponse
// @Router /v1/tax/rates [get]
func (h *TaxHandler) ListRates(c *gin.Context) {
	date, ok := ratesDate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.ListRates(c.Request.Context(), date))
}

func (h *TaxHandler) CountryRates(c *gin.Context) {
	date, ok := ratesDate(c)
	if !ok {
		return
	}
	resp, err := h.svc.CountryRates(c.Request.Context(), c.Param("country"), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TaxHandler) Calculate(c *gin.Context) {
	var req dto.CalculateTaxRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Calculate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TaxHandler) Treatment(c *gin.Context) {
	var req dto.TreatmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Treatment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func ratesDate(c *gin.Context) (time.Time, bool) {
	var q dto.RatesQuery
	if !bindQuery(c, &q) {
		return time.Time{}, false
	}
	if q.Date == "" {
		return time.Now(), true
	}
	d, _ := time.Parse(time.DateOnly, q.Date)
	return d, true
}
