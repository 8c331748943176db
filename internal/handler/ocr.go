package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/middleware"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

type OCRHandler struct{ svc service.OCRService }

func NewOCRHandler(svc service.OCRService) *OCRHandler { return &OCRHandler{svc: svc} }

// Enhance extracts structured receipt fields from raw OCR text. Nothing is
// persisted.
func (h *OCRHandler) Enhance(c *gin.Context) {
	var req dto.EnhanceOCRRequest
	if !bindAndValidate(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.svc.Enhance(c.Request.Context(), req))
}

func (h *OCRHandler) CreateExpense(c *gin.Context) {
	var req dto.OCRExpenseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateExpense(c.Request.Context(), middleware.CompanyID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
