package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/middleware"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

type InvoicesHandler struct{ svc service.InvoiceService }

func NewInvoicesHandler(svc service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{svc: svc}
}

// Create godoc
// @Summary Create a draft invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param companyId path string true "Company ID"
// @Param body body dto.CreateInvoiceRequest true "Invoice"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 409 {object} apierror.APIError "duplicate number or closed period"
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/companies/{companyId}/invoices [post]
func (h *InvoicesHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.CompanyID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InvoicesHandler) List(c *gin.Context) {
	var filter dto.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.CompanyID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoicesHandler) Get(c *gin.Context) {
	h.transition(c, h.svc.Get, http.StatusOK)
}

func (h *InvoicesHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), middleware.CompanyID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoicesHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CompanyID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Issue godoc
// @Summary Issue a draft invoice
// @Description Issuing locks the invoice. Companies with e-Factura auto-submit
// @Description enabled get the invoice queued for ANAF.
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param companyId path string true "Company ID"
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/companies/{companyId}/invoices/{id}/issue [post]
func (h *InvoicesHandler) Issue(c *gin.Context) {
	h.transition(c, h.svc.Issue, http.StatusOK)
}

func (h *InvoicesHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel, http.StatusOK)
}

func (h *InvoicesHandler) Pay(c *gin.Context) {
	h.transition(c, h.svc.Pay, http.StatusOK)
}

func (h *InvoicesHandler) PDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, filename, err := h.svc.PDF(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, filename, "application/pdf", data)
}

// Send queues the invoice PDF for delivery by email.
func (h *InvoicesHandler) Send(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SendInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Send(c.Request.Context(), middleware.CompanyID(c), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.MessageResponse{Message: "Invoice queued for delivery"})
}

// transition runs a single-invoice operation addressed by the :id parameter.
func (h *InvoicesHandler) transition(
	c *gin.Context,
	action func(ctx context.Context, companyID, id uuid.UUID) (*dto.InvoiceResponse, error),
	status int,
) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := action(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, resp)
}
