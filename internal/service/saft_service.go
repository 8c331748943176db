package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/saft"
)

const (
	SAFTGenerated = "generated"
	SAFTFailed    = "failed"
)

type SAFTService interface {
	// Generate builds the D406 file for a month. A failed generation is
	// persisted too and returned with status "failed".
	Generate(ctx context.Context, companyID, userID uuid.UUID, period string) (*dto.SAFTExportResponse, error)
	List(ctx context.Context, companyID uuid.UUID, p dto.Pagination) (dto.ListResponse[dto.SAFTExportResponse], error)
	Download(ctx context.Context, companyID, id uuid.UUID) (*dto.SAFTFile, error)
}

type saftService struct {
	repo      repository.SAFTRepository
	users     repository.UserRepository
	companies repository.CompanyRepository
	invoices  repository.InvoiceRepository
	bank      repository.BankRepository
	storage   infra.Storage
}

func NewSAFTService(
	repo repository.SAFTRepository,
	users repository.UserRepository,
	companies repository.CompanyRepository,
	invoices repository.InvoiceRepository,
	bank repository.BankRepository,
	storage infra.Storage,
) SAFTService {
	return &saftService{repo: repo, users: users, companies: companies, invoices: invoices, bank: bank, storage: storage}
}

func (s *saftService) Generate(ctx context.Context, companyID, userID uuid.UUID, period string) (*dto.SAFTExportResponse, error) {
	from, to, err := saft.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), apierror.ErrInvalid)
	}
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, notFound("company", err)
	}

	in := saft.Input{Period: period, Now: time.Now().UTC()}
	// an unknown user leaves Company nil, which the generator reports as E001
	if _, err := s.users.FindByID(ctx, userID); err == nil {
		in.Company = &saft.Company{
			CUI:        company.CUI,
			Name:       company.Name,
			Street:     company.Address,
			City:       company.City,
			County:     company.County,
			PostalCode: company.PostalCode,
			Phone:      company.Phone,
			Email:      company.Email,
			IBAN:       company.IBAN,
			BankName:   company.BankName,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if in.Sales, err = s.saftInvoices(ctx, companyID, model.DirectionIssued, from, to); err != nil {
		return nil, err
	}
	if in.Purchases, err = s.saftInvoices(ctx, companyID, model.DirectionReceived, from, to); err != nil {
		return nil, err
	}
	if in.Payments, err = s.payments(ctx, companyID, from, to); err != nil {
		return nil, err
	}

	res := saft.Generate(in)
	export := &model.SAFTExport{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Period:        period,
		Status:        SAFTFailed,
		Hash:          res.Hash,
		Size:          res.Size,
		InvoiceCount:  res.Summary.InvoiceCount,
		TotalSales:    res.Summary.TotalSales,
		TotalPurchase: res.Summary.TotalPurchases,
		VATCollected:  res.Summary.VATCollected,
		VATDeductible: res.Summary.VATDeductible,
		Errors:        res.Errors,
		Warnings:      res.Warnings,
		CreatedBy:     userID,
	}
	if res.Success {
		key := fmt.Sprintf("%s/saft/%s/%s.xml", companyID, period, export.ID)
		if err := s.storage.Put(ctx, key, res.XML, "application/xml"); err != nil {
			return nil, fmt.Errorf("store D406 xml: %w", err)
		}
		export.XMLKey = &key
		export.Status = SAFTGenerated
	}
	if err := s.repo.Create(ctx, export); err != nil {
		return nil, err
	}

	log.Info().Str("company_id", companyID.String()).Str("period", period).Str("status", export.Status).
		Int("invoices", export.InvoiceCount).Int("warnings", len(res.Warnings)).Msg("saft export generated")
	return toSAFTResponse(export), nil
}

// saftInvoices loads the month's non-cancelled invoices of one direction.
func (s *saftService) saftInvoices(ctx context.Context, companyID uuid.UUID, direction string, from, to time.Time) ([]saft.Invoice, error) {
	invoices, err := s.invoices.ListInRange(ctx, companyID, direction, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]saft.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status == model.InvoiceCancelled {
			continue
		}
		si := saft.Invoice{
			ID:          inv.ID.String(),
			Number:      inv.Series + inv.Number,
			Type:        inv.Type,
			Date:        inv.IssueDate,
			CreatedAt:   inv.CreatedAt,
			Description: inv.Notes,
			Net:         inv.Subtotal,
			VAT:         inv.VATAmount,
			Gross:       inv.Total,
			Currency:    inv.Currency,
		}
		if len(inv.Lines) > 0 {
			si.Description = inv.Lines[0].Description
		}
		if p := inv.Partner; p != nil {
			si.PartnerCUI = p.CUI
			si.PartnerName = p.Name
			si.PartnerAddress = p.Address
			si.PartnerCity = p.City
			si.PartnerCountry = p.Country
		}
		out = append(out, si)
	}
	return out, nil
}

// payments turns the month's bank lines into D406 payments.
func (s *saftService) payments(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]saft.Payment, error) {
	accounts, err := s.bank.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	currency := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		currency[a.ID] = a.Currency
	}

	txs, err := s.bank.ListTransactionsInRange(ctx, companyID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]saft.Payment, 0, len(txs))
	for _, tx := range txs {
		p := saft.Payment{
			ID:          tx.ID.String(),
			Reference:   tx.Reference,
			Description: tx.Description,
			Method:      defaultPaymentMethod,
			Date:        tx.BookingDate,
			Amount:      tx.Amount,
			Currency:    currency[tx.AccountID],
		}
		if p.Currency == "" {
			p.Currency = defaultCurrency
		}
		if tx.MatchedInvoiceID != nil {
			p.InvoiceID = tx.MatchedInvoiceID.String()
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *saftService) List(ctx context.Context, companyID uuid.UUID, p dto.Pagination) (dto.ListResponse[dto.SAFTExportResponse], error) {
	exports, total, err := s.repo.List(ctx, companyID, p)
	if err != nil {
		return dto.ListResponse[dto.SAFTExportResponse]{}, err
	}
	data := make([]dto.SAFTExportResponse, 0, len(exports))
	for i := range exports {
		data = append(data, *toSAFTResponse(&exports[i]))
	}
	return dto.NewListResponse(data, total, p), nil
}

func (s *saftService) Download(ctx context.Context, companyID, id uuid.UUID) (*dto.SAFTFile, error) {
	export, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, notFound("saft export", err)
	}
	if export.Status != SAFTGenerated || export.XMLKey == nil {
		return nil, fmt.Errorf("saft export has no file: %w", apierror.ErrNotFound)
	}
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, notFound("company", err)
	}
	data, err := s.storage.Get(ctx, *export.XMLKey)
	if errors.Is(err, infra.ErrObjectNotFound) {
		return nil, fmt.Errorf("saft file missing from storage: %w", apierror.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &dto.SAFTFile{
		Filename: fmt.Sprintf("D406_%s_%s.xml", company.CUI, export.Period),
		Data:     data,
	}, nil
}

func toSAFTResponse(e *model.SAFTExport) *dto.SAFTExportResponse {
	errs, warnings := e.Errors, e.Warnings
	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return &dto.SAFTExportResponse{
		ID:            e.ID.String(),
		Period:        e.Period,
		Status:        e.Status,
		Hash:          e.Hash,
		Size:          e.Size,
		InvoiceCount:  e.InvoiceCount,
		TotalSales:    e.TotalSales,
		TotalPurchase: e.TotalPurchase,
		VATCollected:  e.VATCollected,
		VATDeductible: e.VATDeductible,
		VATBalance:    e.VATCollected.Sub(e.VATDeductible),
		Errors:        errs,
		Warnings:      warnings,
		CreatedAt:     e.CreatedAt,
	}
}
