package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

type ExpenseService interface {
	// Create records an expense; source is model.SourceManual or
	// model.SourceOCR.
	Create(ctx context.Context, companyID uuid.UUID, req dto.CreateExpenseRequest, source string) (*dto.ExpenseResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter dto.ExpenseFilter) (dto.ListResponse[dto.ExpenseResponse], error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*dto.ExpenseResponse, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req dto.UpdateExpenseRequest) (*dto.ExpenseResponse, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	Approve(ctx context.Context, companyID, id uuid.UUID) (*dto.ExpenseResponse, error)
	Reject(ctx context.Context, companyID, id uuid.UUID) (*dto.ExpenseResponse, error)
	UploadDocument(ctx context.Context, companyID, id uuid.UUID, filename, contentType string, data []byte) (*dto.ExpenseResponse, error)
	Document(ctx context.Context, companyID, id uuid.UUID) (*dto.ExpenseDocument, error)
}

type expenseService struct {
	repo    repository.ExpenseRepository
	periods PeriodService
	storage infra.Storage
}

func NewExpenseService(repo repository.ExpenseRepository, periods PeriodService, storage infra.Storage) ExpenseService {
	return &expenseService{repo: repo, periods: periods, storage: storage}
}

func (s *expenseService) Create(ctx context.Context, companyID uuid.UUID, req dto.CreateExpenseRequest, source string) (*dto.ExpenseResponse, error) {
	date, err := parseDate(req.ExpenseDate)
	if err != nil {
		return nil, err
	}
	if err := s.periods.EnsureOpen(ctx, companyID, date); err != nil {
		return nil, err
	}
	if req.Amount.IsNegative() || req.VATAmount.IsNegative() {
		return nil, fmt.Errorf("amounts must not be negative: %w", apierror.ErrUnprocessable)
	}
	vendorCUI, err := normalizePartnerCUI(req.VendorCUI, "")
	if err != nil {
		return nil, err
	}

	e := &model.Expense{
		CompanyID:     companyID,
		VendorName:    req.VendorName,
		VendorCUI:     vendorCUI,
		Category:      strings.ToLower(strings.TrimSpace(req.Category)),
		Description:   req.Description,
		Amount:        req.Amount.Round(2),
		VATAmount:     req.VATAmount.Round(2),
		Currency:      strings.ToUpper(orDefault(req.Currency, defaultCurrency)),
		ExpenseDate:   date,
		PaymentMethod: req.PaymentMethod,
		ReceiptNumber: req.ReceiptNumber,
		Status:        model.ExpensePending,
		Source:        orDefault(source, model.SourceManual),
	}
	e.Total = e.Amount.Add(e.VATAmount)

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	resp := toExpenseResponse(e)
	return &resp, nil
}

func (s *expenseService) List(ctx context.Context, companyID uuid.UUID, filter dto.ExpenseFilter) (dto.ListResponse[dto.ExpenseResponse], error) {
	expenses, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return dto.ListResponse[dto.ExpenseResponse]{}, err
	}
	out := make([]dto.ExpenseResponse, len(expenses))
	for i := range expenses {
		out[i] = toExpenseResponse(&expenses[i])
	}
	return dto.NewListResponse(out, total, filter.Pagination), nil
}

func (s *expenseService) Get(ctx context.Context, companyID, id uuid.UUID) (*dto.ExpenseResponse, error) {
	e, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("expense", err)
	}
	resp := toExpenseResponse(e)
	return &resp, nil
}

func (s *expenseService) Update(ctx context.Context, companyID, id uuid.UUID, req dto.UpdateExpenseRequest) (*dto.ExpenseResponse, error) {
	e, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("expense", err)
	}
	if e.Status == model.ExpenseApproved {
		return nil, fmt.Errorf("approved expenses cannot be changed: %w", apierror.ErrConflict)
	}
	if err := s.periods.EnsureOpen(ctx, companyID, e.ExpenseDate); err != nil {
		return nil, err
	}
	if req.ExpenseDate != nil {
		if e.ExpenseDate, err = parseDate(*req.ExpenseDate); err != nil {
			return nil, err
		}
		if err := s.periods.EnsureOpen(ctx, companyID, e.ExpenseDate); err != nil {
			return nil, err
		}
	}
	if req.VendorCUI != nil {
		if e.VendorCUI, err = normalizePartnerCUI(*req.VendorCUI, ""); err != nil {
			return nil, err
		}
	}
	setIf(&e.VendorName, req.VendorName)
	setIf(&e.Description, req.Description)
	setIf(&e.PaymentMethod, req.PaymentMethod)
	setIf(&e.ReceiptNumber, req.ReceiptNumber)
	if req.Category != nil {
		e.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Currency != nil {
		e.Currency = strings.ToUpper(*req.Currency)
	}
	if req.Amount != nil {
		e.Amount = req.Amount.Round(2)
	}
	if req.VATAmount != nil {
		e.VATAmount = req.VATAmount.Round(2)
	}
	if e.Amount.IsNegative() || e.VATAmount.IsNegative() {
		return nil, fmt.Errorf("amounts must not be negative: %w", apierror.ErrUnprocessable)
	}
	e.Total = e.Amount.Add(e.VATAmount)

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	resp := toExpenseResponse(e)
	return &resp, nil
}

func (s *expenseService) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	e, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return notFound("expense", err)
	}
	if err := s.periods.EnsureOpen(ctx, companyID, e.ExpenseDate); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return notFound("expense", err)
	}
	if e.DocumentKey != nil {
		if err := s.storage.Delete(ctx, *e.DocumentKey); err != nil {
			log.Warn().Err(err).Str("key", *e.DocumentKey).Msg("failed to delete expense document")
		}
	}
	return nil
}

func (s *expenseService) Approve(ctx context.Context, companyID, id uuid.UUID) (*dto.ExpenseResponse, error) {
	return s.review(ctx, companyID, id, model.ExpenseApproved)
}

func (s *expenseService) Reject(ctx context.Context, companyID, id uuid.UUID) (*dto.ExpenseResponse, error) {
	return s.review(ctx, companyID, id, model.ExpenseRejected)
}

func (s *expenseService) review(ctx context.Context, companyID, id uuid.UUID, status string) (*dto.ExpenseResponse, error) {
	e, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("expense", err)
	}
	if e.Status != model.ExpensePending {
		return nil, fmt.Errorf("expense is already %s: %w", e.Status, apierror.ErrConflict)
	}
	if err := s.periods.EnsureOpen(ctx, companyID, e.ExpenseDate); err != nil {
		return nil, err
	}
	e.Status = status
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	resp := toExpenseResponse(e)
	return &resp, nil
}

func (s *expenseService) UploadDocument(ctx context.Context, companyID, id uuid.UUID, filename, contentType string, data []byte) (*dto.ExpenseResponse, error) {
	e, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("expense", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty: %w", apierror.ErrInvalid)
	}

	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	key := fmt.Sprintf("%s/expenses/%s/%s", companyID, id, name)
	if err := s.storage.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store document: %v: %w", err, apierror.ErrUnavailable)
	}

	previous := e.DocumentKey
	e.DocumentKey = &key
	e.DocumentContentType = &contentType
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	if previous != nil && *previous != key {
		if err := s.storage.Delete(ctx, *previous); err != nil {
			log.Warn().Err(err).Str("key", *previous).Msg("failed to delete replaced expense document")
		}
	}
	resp := toExpenseResponse(e)
	return &resp, nil
}

func (s *expenseService) Document(ctx context.Context, companyID, id uuid.UUID) (*dto.ExpenseDocument, error) {
	e, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("expense", err)
	}
	if e.DocumentKey == nil {
		return nil, fmt.Errorf("expense has no document: %w", apierror.ErrNotFound)
	}
	data, err := s.storage.Get(ctx, *e.DocumentKey)
	if errors.Is(err, infra.ErrObjectNotFound) {
		return nil, fmt.Errorf("document missing from storage: %w", apierror.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	ct := "application/octet-stream"
	if e.DocumentContentType != nil && *e.DocumentContentType != "" {
		ct = *e.DocumentContentType
	}
	return &dto.ExpenseDocument{Data: data, ContentType: ct, Filename: path.Base(*e.DocumentKey)}, nil
}

func toExpenseResponse(e *model.Expense) dto.ExpenseResponse {
	return dto.ExpenseResponse{
		ID:            e.ID.String(),
		VendorName:    e.VendorName,
		VendorCUI:     e.VendorCUI,
		Category:      e.Category,
		Description:   e.Description,
		Amount:        e.Amount,
		VATAmount:     e.VATAmount,
		Total:         e.Total,
		Currency:      e.Currency,
		ExpenseDate:   e.ExpenseDate.Format(time.DateOnly),
		PaymentMethod: e.PaymentMethod,
		ReceiptNumber: e.ReceiptNumber,
		HasDocument:   e.DocumentKey != nil,
		Status:        e.Status,
		Source:        e.Source,
		CreatedAt:     e.CreatedAt,
	}
}
