package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/middleware"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

type PeriodsHandler struct{ svc service.PeriodService }

func NewPeriodsHandler(svc service.PeriodService) *PeriodsHandler {
	return &PeriodsHandler{svc: svc}
}

func (h *PeriodsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), middleware.CompanyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Close godoc
// @Summary Close an accounting month
// @Description Documents dated inside a closed month can no longer be
// @Description created, changed or deleted.
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Param companyId path string true "Company ID"
// @Param period path string true "Month as YYYY-MM"
// @Success 200 {object} dto.PeriodResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/companies/{companyId}/periods/{period}/close [post]
func (h *PeriodsHandler) Close(c *gin.Context) {
	resp, err := h.svc.Close(c.Request.Context(), middleware.CompanyID(c), c.Param("period"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PeriodsHandler) Reopen(c *gin.Context) {
	resp, err := h.svc.Reopen(c.Request.Context(), middleware.CompanyID(c), c.Param("period"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
