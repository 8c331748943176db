package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/middleware"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

type EFacturaHandler struct{ svc service.EFacturaService }

func NewEFacturaHandler(svc service.EFacturaService) *EFacturaHandler {
	return &EFacturaHandler{svc: svc}
}

func (h *EFacturaHandler) GetConfig(c *gin.Context) {
	resp, err := h.svc.GetConfig(c.Request.Context(), middleware.CompanyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EFacturaHandler) UpdateConfig(c *gin.Context) {
	var req dto.EFacturaConfigRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateConfig(c.Request.Context(), middleware.CompanyID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EFacturaHandler) Validate(c *gin.Context) {
	id, ok := pathID(c, "invoiceId")
	if !ok {
		return
	}
	resp, err := h.svc.Validate(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EFacturaHandler) XML(c *gin.Context) {
	id, ok := pathID(c, "invoiceId")
	if !ok {
		return
	}
	data, filename, err := h.svc.XML(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, filename, "application/xml", data)
}

// Submit godoc
// @Summary Queue an issued invoice for upload to ANAF
// @Tags efactura
// @Produce json
// @Security BearerAuth
// @Param companyId path string true "Company ID"
// @Param invoiceId path string true "Invoice ID"
// @Success 202 {object} dto.SubmissionResponse
// @Failure 409 {object} apierror.APIError "disabled, not issued or already submitted"
// @Failure 422 {object} apierror.APIError "received invoices are not reported"
// @Router /v1/companies/{companyId}/efactura/invoices/{invoiceId}/submit [post]
func (h *EFacturaHandler) Submit(c *gin.Context) {
	id, ok := pathID(c, "invoiceId")
	if !ok {
		return
	}
	resp, err := h.svc.Submit(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *EFacturaHandler) Status(c *gin.Context) {
	id, ok := pathID(c, "invoiceId")
	if !ok {
		return
	}
	resp, err := h.svc.Status(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EFacturaHandler) Submissions(c *gin.Context) {
	var filter dto.SubmissionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Submissions(c.Request.Context(), middleware.CompanyID(c), filter.Status, filter.Pagination)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EFacturaHandler) Logs(c *gin.Context) {
	var filter dto.LogFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Logs(c.Request.Context(), middleware.CompanyID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
