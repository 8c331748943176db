package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/middleware"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

type BankHandler struct{ svc service.BankService }

func NewBankHandler(svc service.BankService) *BankHandler { return &BankHandler{svc: svc} }

func (h *BankHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateBankAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateAccount(c.Request.Context(), middleware.CompanyID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BankHandler) ListAccounts(c *gin.Context) {
	resp, err := h.svc.ListAccounts(c.Request.Context(), middleware.CompanyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BankHandler) GetAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetAccount(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BankHandler) UpdateAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBankAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateAccount(c.Request.Context(), middleware.CompanyID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BankHandler) DeleteAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(c.Request.Context(), middleware.CompanyID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Account deactivated"})
}

// Import godoc
// @Summary Import a bank statement
// @Description Accepts CSV and OFX statements. Transactions already
// @Description on file are skipped.
// @Tags bank
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param companyId path string true "Company ID"
// @Param id path string true "Bank account ID"
// @Param file formData file true "Statement"
// @Success 200 {object} dto.ImportResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/companies/{companyId}/bank/accounts/{id}/import [post]
func (h *BankHandler) Import(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	file, ok := readUpload(c)
	if !ok {
		return
	}
	resp, err := h.svc.Import(c.Request.Context(), middleware.CompanyID(c), id, file.Filename, file.Data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BankHandler) Balance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Balance(c.Request.Context(), middleware.CompanyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BankHandler) ListTransactions(c *gin.Context) {
	var filter dto.TransactionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListTransactions(c.Request.Context(), middleware.CompanyID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BankHandler) Match(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.MatchTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Match(c.Request.Context(), middleware.CompanyID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
