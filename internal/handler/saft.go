package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/middleware"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

type SAFTHandler struct{ svc service.SAFTService }

func NewSAFTHandler(svc service.SAFTService) *SAFTHandler { return &SAFTHandler{svc: svc} }

// Generate godoc
// @Summary Generate the D406 SAF-T file for a month
// @Description A generation that fails validation is kept with its error
// @Description codes and answered with 422.
// @Tags saft
// @Produce json
// @Security BearerAuth
// @Param companyId path string true "Company ID"
// @Param period query string true "Month as YYYY-MM"
// @Success 201 {object} dto.SAFTExportResponse
// @Failure 422 {object} dto.SAFTExportResponse
// @Router /v1/companies/{companyId}/saft/d406 [post]
func (h *SAFTHandler) Generate(c *gin.Context) {
	var q dto.PeriodQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.Generate(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), q.Period)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp.Status == service.SAFTFailed {
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SAFTHandler) List(c *gin.Context) {
	var p dto.Pagination
	if !bindQuery(c, &p) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.CompanyID(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SAFTHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	file, err := h.svc.Download(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, file.Filename, "application/xml", file.Data)
}
