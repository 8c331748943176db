package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/statement"
)

type BankService interface {
	CreateAccount(ctx context.Context, companyID uuid.UUID, req dto.CreateBankAccountRequest) (*dto.BankAccountResponse, error)
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]dto.BankAccountResponse, error)
	GetAccount(ctx context.Context, companyID, id uuid.UUID) (*dto.BankAccountResponse, error)
	UpdateAccount(ctx context.Context, companyID, id uuid.UUID, req dto.UpdateBankAccountRequest) (*dto.BankAccountResponse, error)
	// DeleteAccount deactivates the account; its transactions stay.
	DeleteAccount(ctx context.Context, companyID, id uuid.UUID) error
	Import(ctx context.Context, companyID, accountID uuid.UUID, filename string, data []byte) (*dto.ImportResponse, error)
	ListTransactions(ctx context.Context, companyID uuid.UUID, filter dto.TransactionFilter) (dto.ListResponse[dto.BankTransactionResponse], error)
	Balance(ctx context.Context, companyID, accountID uuid.UUID) (*dto.BalanceResponse, error)
	Match(ctx context.Context, companyID, txID uuid.UUID, req dto.MatchTransactionRequest) (*dto.MatchResponse, error)
}

type bankService struct {
	repo     repository.BankRepository
	invoices repository.InvoiceRepository
}

func NewBankService(repo repository.BankRepository, invoices repository.InvoiceRepository) BankService {
	return &bankService{repo: repo, invoices: invoices}
}

func (s *bankService) CreateAccount(ctx context.Context, companyID uuid.UUID, req dto.CreateBankAccountRequest) (*dto.BankAccountResponse, error) {
	a := &model.BankAccount{
		CompanyID:      companyID,
		Name:           req.Name,
		IBAN:           normalizeIBAN(req.IBAN),
		BankName:       req.BankName,
		Currency:       strings.ToUpper(orDefault(req.Currency, defaultCurrency)),
		OpeningBalance: req.OpeningBalance.Round(2),
		Active:         true,
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	resp := toAccountResponse(a)
	return &resp, nil
}

func (s *bankService) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]dto.BankAccountResponse, error) {
	accounts, err := s.repo.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BankAccountResponse, len(accounts))
	for i := range accounts {
		out[i] = toAccountResponse(&accounts[i])
	}
	return out, nil
}

func (s *bankService) GetAccount(ctx context.Context, companyID, id uuid.UUID) (*dto.BankAccountResponse, error) {
	a, err := s.repo.FindAccount(ctx, companyID, id)
	if err != nil {
		return nil, notFound("bank account", err)
	}
	resp := toAccountResponse(a)
	return &resp, nil
}

func (s *bankService) UpdateAccount(ctx context.Context, companyID, id uuid.UUID, req dto.UpdateBankAccountRequest) (*dto.BankAccountResponse, error) {
	a, err := s.repo.FindAccount(ctx, companyID, id)
	if err != nil {
		return nil, notFound("bank account", err)
	}
	setIf(&a.Name, req.Name)
	setIf(&a.BankName, req.BankName)
	setIf(&a.Active, req.Active)
	if req.OpeningBalance != nil {
		a.OpeningBalance = req.OpeningBalance.Round(2)
	}
	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}
	resp := toAccountResponse(a)
	return &resp, nil
}

func (s *bankService) DeleteAccount(ctx context.Context, companyID, id uuid.UUID) error {
	a, err := s.repo.FindAccount(ctx, companyID, id)
	if err != nil {
		return notFound("bank account", err)
	}
	a.Active = false
	return s.repo.UpdateAccount(ctx, a)
}

func (s *bankService) Import(ctx context.Context, companyID, accountID uuid.UUID, filename string, data []byte) (*dto.ImportResponse, error) {
	a, err := s.repo.FindAccount(ctx, companyID, accountID)
	if err != nil {
		return nil, notFound("bank account", err)
	}
	if !a.Active {
		return nil, fmt.Errorf("bank account is inactive: %w", apierror.ErrConflict)
	}

	format, err := statement.DetectFormat(filename, data[:min(len(data), 512)])
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apierror.ErrUnprocessable)
	}
	parsed, err := statement.Parse(filename, bytes.NewReader(data))
	if errors.Is(err, statement.ErrUnsupportedFormat) || (err == nil && len(parsed) == 0) {
		return nil, fmt.Errorf("no transactions found in %s: %w", filename, apierror.ErrUnprocessable)
	}
	if err != nil {
		return nil, fmt.Errorf("parse statement: %v: %w", err, apierror.ErrUnprocessable)
	}

	txs := make([]model.BankTransaction, 0, len(parsed))
	for i, p := range parsed {
		ref := strings.TrimSpace(p.Reference)
		if ref == "" {
			ref = fmt.Sprintf("%s-%d-%s", p.BookingDate.Format("20060102"), i, p.Amount.StringFixed(2))
		}
		txs = append(txs, model.BankTransaction{
			CompanyID:    companyID,
			AccountID:    accountID,
			BookingDate:  p.BookingDate,
			Amount:       p.Amount.Round(2),
			Description:  p.Description,
			Counterparty: p.Counterparty,
			Reference:    truncateRef(ref),
		})
	}

	imported, err := s.repo.InsertTransactions(ctx, txs)
	if err != nil {
		return nil, err
	}
	log.Info().Str("account_id", accountID.String()).Str("format", string(format)).
		Int("total", len(txs)).Int("imported", imported).Msg("bank statement imported")
	return &dto.ImportResponse{
		Format:   string(format),
		Total:    len(txs),
		Imported: imported,
		Skipped:  len(txs) - imported,
	}, nil
}

func (s *bankService) ListTransactions(ctx context.Context, companyID uuid.UUID, filter dto.TransactionFilter) (dto.ListResponse[dto.BankTransactionResponse], error) {
	txs, total, err := s.repo.ListTransactions(ctx, companyID, filter)
	if err != nil {
		return dto.ListResponse[dto.BankTransactionResponse]{}, err
	}
	out := make([]dto.BankTransactionResponse, len(txs))
	for i := range txs {
		out[i] = toTransactionResponse(&txs[i])
	}
	return dto.NewListResponse(out, total, filter.Pagination), nil
}

func (s *bankService) Balance(ctx context.Context, companyID, accountID uuid.UUID) (*dto.BalanceResponse, error) {
	a, err := s.repo.FindAccount(ctx, companyID, accountID)
	if err != nil {
		return nil, notFound("bank account", err)
	}
	totals, err := s.repo.SumTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &dto.BalanceResponse{
		AccountID:        a.ID.String(),
		Currency:         a.Currency,
		OpeningBalance:   a.OpeningBalance,
		Movements:        totals.Sum,
		Balance:          a.OpeningBalance.Add(totals.Sum),
		TransactionCount: totals.Count,
	}, nil
}

// Match links a transaction to an invoice. A credit equal to an issued
// invoice's total, or a debit equal to a received invoice's total, settles
// the invoice.
func (s *bankService) Match(ctx context.Context, companyID, txID uuid.UUID, req dto.MatchTransactionRequest) (*dto.MatchResponse, error) {
	tx, err := s.repo.FindTransaction(ctx, companyID, txID)
	if err != nil {
		return nil, notFound("transaction", err)
	}
	if tx.MatchedInvoiceID != nil {
		return nil, fmt.Errorf("transaction is already matched: %w", apierror.ErrConflict)
	}
	invoiceID, err := parseUUID("invoice_id", req.InvoiceID)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoices.FindByID(ctx, companyID, invoiceID)
	if err != nil {
		return nil, notFound("invoice", err)
	}
	if inv.Status == model.InvoiceDraft || inv.Status == model.InvoiceCancelled {
		return nil, fmt.Errorf("cannot match a %s invoice: %w", inv.Status, apierror.ErrConflict)
	}

	settles := (inv.Direction == model.DirectionIssued && tx.Amount.Equal(inv.Total)) ||
		(inv.Direction == model.DirectionReceived && tx.Amount.Neg().Equal(inv.Total))
	var paidAt *time.Time
	if settles && inv.Status == model.InvoiceIssued {
		booked := tx.BookingDate
		paidAt = &booked
	}

	if err := s.repo.Match(ctx, tx.ID, inv.ID, paidAt); err != nil {
		return nil, stale("transaction or invoice", err)
	}
	tx.MatchedInvoiceID = &inv.ID
	if paidAt != nil {
		inv.Status = model.InvoicePaid
		log.Info().Str("invoice_id", inv.ID.String()).Str("transaction_id", tx.ID.String()).
			Msg("invoice settled by bank transaction")
	}

	return &dto.MatchResponse{Transaction: toTransactionResponse(tx), InvoiceStatus: inv.Status}, nil
}

func normalizeIBAN(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

func truncateRef(ref string) string {
	if len(ref) > 80 {
		return ref[:80]
	}
	return ref
}

func toAccountResponse(a *model.BankAccount) dto.BankAccountResponse {
	return dto.BankAccountResponse{
		ID:             a.ID.String(),
		Name:           a.Name,
		IBAN:           a.IBAN,
		BankName:       a.BankName,
		Currency:       a.Currency,
		OpeningBalance: a.OpeningBalance,
		Active:         a.Active,
	}
}

func toTransactionResponse(t *model.BankTransaction) dto.BankTransactionResponse {
	return dto.BankTransactionResponse{
		ID:               t.ID.String(),
		AccountID:        t.AccountID.String(),
		BookingDate:      t.BookingDate.Format(time.DateOnly),
		Amount:           t.Amount,
		Description:      t.Description,
		Counterparty:     t.Counterparty,
		Reference:        t.Reference,
		MatchedInvoiceID: idString(t.MatchedInvoiceID),
		CreatedAt:        t.CreatedAt,
	}
}
