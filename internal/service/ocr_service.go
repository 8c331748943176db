package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/ocr"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/tax"
)

const (
	defaultExpenseCategory = "general"
	unknownVendor          = "Necunoscut"
)

type OCRService interface {
	Enhance(ctx context.Context, req dto.EnhanceOCRRequest) ocr.Result
	// CreateExpense records a pending expense from receipt text. A receipt
	// without a recognisable total is rejected.
	CreateExpense(ctx context.Context, companyID uuid.UUID, req dto.OCRExpenseRequest) (*dto.OCRExpenseResponse, error)
}

type ocrService struct {
	expenses ExpenseService
}

func NewOCRService(expenses ExpenseService) OCRService {
	return &ocrService{expenses: expenses}
}

func (s *ocrService) Enhance(_ context.Context, req dto.EnhanceOCRRequest) ocr.Result {
	return ocr.Extract(req.Text, language(req.Language))
}

func (s *ocrService) CreateExpense(ctx context.Context, companyID uuid.UUID, req dto.OCRExpenseRequest) (*dto.OCRExpenseResponse, error) {
	res := ocr.Extract(req.Text, language(req.Language))
	if !res.Total.Valid {
		return nil, fmt.Errorf("no total found in receipt text: %w", apierror.ErrUnprocessable)
	}

	date := today()
	if res.Date != nil {
		date = *res.Date
	}
	total := res.Total.Decimal
	var net, vat decimal.Decimal
	switch {
	case res.VATAmount.Valid && res.VATAmount.Decimal.LessThan(total):
		vat = res.VATAmount.Decimal
		net = total.Sub(vat)
	case res.VATRate.Valid:
		net, vat = tax.ExtractVAT(total, res.VATRate.Decimal)
	default:
		net = total
	}

	vendor := res.VendorName
	if vendor == "" {
		vendor = unknownVendor
	}
	create := dto.CreateExpenseRequest{
		VendorName:    vendor,
		Category:      orDefault(req.Category, defaultExpenseCategory),
		Description:   "Bon importat prin OCR",
		Amount:        net,
		VATAmount:     vat,
		ExpenseDate:   date.Format(time.DateOnly),
		PaymentMethod: res.PaymentMethod,
		ReceiptNumber: truncate(res.ReceiptNumber, 40),
	}
	if res.VendorCUIOK {
		create.VendorCUI = res.VendorCUI
	}

	exp, err := s.expenses.Create(ctx, companyID, create, model.SourceOCR)
	if err != nil {
		return nil, err
	}
	return &dto.OCRExpenseResponse{Expense: *exp, Extraction: res}, nil
}

func language(s string) ocr.Language {
	if s == "" {
		return ocr.LangAuto
	}
	return ocr.Language(s)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
