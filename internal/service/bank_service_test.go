package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

const statementCSV = "Data tranzactiei,Detalii,Debit,Credit\n" +
	"2025-03-05,Incasare,,250.00\n" +
	"2025-03-06,Plata furnizor,100.00,\n"

func (e *env) account(t *testing.T) *dto.BankAccountResponse {
	t.Helper()
	a, err := e.bank.CreateAccount(e.ctx, e.co.ID, dto.CreateBankAccountRequest{
		Name:           "Cont curent",
		IBAN:           "ro49 aaaa 1b31 0075 9384 0000",
		BankName:       "Banca Transilvania",
		OpeningBalance: dec("1000"),
	})
	require.NoError(t, err)
	return a
}

func TestBankCreateAccount(t *testing.T) {
	e := newEnv(t)
	a := e.account(t)
	assert.Equal(t, "RO49AAAA1B31007593840000", a.IBAN)
	assert.Equal(t, "RON", a.Currency)
	assert.True(t, a.Active)

	list, err := e.bank.ListAccounts(e.ctx, e.co.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBankImport_SkipsDuplicates(t *testing.T) {
	e := newEnv(t)
	a := e.account(t)
	id := mustUUID(t, a.ID)

	res, err := e.bank.Import(e.ctx, e.co.ID, id, "extras.csv", []byte(statementCSV))
	require.NoError(t, err)
	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Skipped)

	again, err := e.bank.Import(e.ctx, e.co.ID, id, "extras.csv", []byte(statementCSV))
	require.NoError(t, err)
	assert.Zero(t, again.Imported)
	assert.Equal(t, 2, again.Skipped)

	bal, err := e.bank.Balance(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "150.00", bal.Movements.StringFixed(2))
	assert.Equal(t, "1150.00", bal.Balance.StringFixed(2))
	assert.EqualValues(t, 2, bal.TransactionCount)
}

func TestBankImport_Rejections(t *testing.T) {
	e := newEnv(t)
	a := e.account(t)
	id := mustUUID(t, a.ID)

	_, err := e.bank.Import(e.ctx, e.co.ID, id, "extras.bin", []byte("nimic de citit"))
	assert.ErrorIs(t, err, apierror.ErrUnprocessable)

	inactive := false
	_, err = e.bank.UpdateAccount(e.ctx, e.co.ID, id, dto.UpdateBankAccountRequest{Active: &inactive})
	require.NoError(t, err)
	_, err = e.bank.Import(e.ctx, e.co.ID, id, "extras.csv", []byte(statementCSV))
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestBankMatch_SettlesInvoice(t *testing.T) {
	e := newEnv(t)
	a := e.account(t)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")

	csv := "Data tranzactiei,Detalii,Debit,Credit\n2025-09-20,Incasare DI0001,,1210.00\n"
	_, err := e.bank.Import(e.ctx, e.co.ID, mustUUID(t, a.ID), "extras.csv", []byte(csv))
	require.NoError(t, err)

	txs, err := e.bank.ListTransactions(e.ctx, e.co.ID, dto.TransactionFilter{Matched: "false", Pagination: firstPage})
	require.NoError(t, err)
	require.Len(t, txs.Data, 1)
	txID := mustUUID(t, txs.Data[0].ID)

	res, err := e.bank.Match(e.ctx, e.co.ID, txID, dto.MatchTransactionRequest{InvoiceID: inv.ID})
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, res.InvoiceStatus)
	require.NotNil(t, res.Transaction.MatchedInvoiceID)
	assert.Equal(t, inv.ID, *res.Transaction.MatchedInvoiceID)

	got, err := e.invoice.Get(e.ctx, e.co.ID, mustUUID(t, inv.ID))
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, got.Status)

	_, err = e.bank.Match(e.ctx, e.co.ID, txID, dto.MatchTransactionRequest{InvoiceID: inv.ID})
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestBankMatch_PartialAmountKeepsInvoiceOpen(t *testing.T) {
	e := newEnv(t)
	a := e.account(t)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")

	csv := "Data tranzactiei,Detalii,Debit,Credit\n2025-09-20,Avans,,500.00\n"
	_, err := e.bank.Import(e.ctx, e.co.ID, mustUUID(t, a.ID), "extras.csv", []byte(csv))
	require.NoError(t, err)
	txs, err := e.bank.ListTransactions(e.ctx, e.co.ID, dto.TransactionFilter{Pagination: firstPage})
	require.NoError(t, err)
	require.Len(t, txs.Data, 1)

	res, err := e.bank.Match(e.ctx, e.co.ID, mustUUID(t, txs.Data[0].ID), dto.MatchTransactionRequest{InvoiceID: inv.ID})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceIssued, res.InvoiceStatus)
}

func TestBankMatch_DraftInvoice(t *testing.T) {
	e := newEnv(t)
	a := e.account(t)
	draft, err := e.invoice.Create(e.ctx, e.co.ID, e.invoiceReq("0009", "2025-09-01"))
	require.NoError(t, err)

	_, err = e.bank.Import(e.ctx, e.co.ID, mustUUID(t, a.ID), "extras.csv", []byte(statementCSV))
	require.NoError(t, err)
	txs, err := e.bank.ListTransactions(e.ctx, e.co.ID, dto.TransactionFilter{Pagination: firstPage})
	require.NoError(t, err)
	require.NotEmpty(t, txs.Data)

	_, err = e.bank.Match(e.ctx, e.co.ID, mustUUID(t, txs.Data[0].ID), dto.MatchTransactionRequest{InvoiceID: draft.ID})
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

// snapshotInvoices serves a copy of an invoice read earlier, as a request
// racing with another one would see it.
type snapshotInvoices struct {
	repository.InvoiceRepository
	inv *model.Invoice
}

func (r snapshotInvoices) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Invoice, error) {
	if id == r.inv.ID {
		cp := *r.inv
		return &cp, nil
	}
	return r.InvoiceRepository.FindByID(ctx, companyID, id)
}

func TestBankMatch_InvoiceCancelledMeanwhile(t *testing.T) {
	e := newEnv(t)
	a := e.account(t)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")
	invID := mustUUID(t, inv.ID)

	csv := "Data tranzactiei,Detalii,Debit,Credit\n2025-09-20,Incasare DI0001,,1210.00\n"
	_, err := e.bank.Import(e.ctx, e.co.ID, mustUUID(t, a.ID), "extras.csv", []byte(csv))
	require.NoError(t, err)
	txs, err := e.bank.ListTransactions(e.ctx, e.co.ID, dto.TransactionFilter{Pagination: firstPage})
	require.NoError(t, err)
	require.Len(t, txs.Data, 1)
	txID := mustUUID(t, txs.Data[0].ID)

	seen, err := e.invoicesR.FindByID(e.ctx, e.co.ID, invID)
	require.NoError(t, err)
	_, err = e.invoice.Cancel(e.ctx, e.co.ID, invID)
	require.NoError(t, err)

	bank := NewBankService(e.bankR, snapshotInvoices{InvoiceRepository: e.invoicesR, inv: seen})
	_, err = bank.Match(e.ctx, e.co.ID, txID, dto.MatchTransactionRequest{InvoiceID: inv.ID})
	require.ErrorIs(t, err, apierror.ErrConflict)

	unmatched, err := e.bank.ListTransactions(e.ctx, e.co.ID, dto.TransactionFilter{Matched: "false", Pagination: firstPage})
	require.NoError(t, err)
	assert.Len(t, unmatched.Data, 1)
	got, err := e.invoice.Get(e.ctx, e.co.ID, invID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceCancelled, got.Status)
}

func TestInvoicePay_LosesToConcurrentCancel(t *testing.T) {
	e := newEnv(t)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")
	invID := mustUUID(t, inv.ID)

	seen, err := e.invoicesR.FindByID(e.ctx, e.co.ID, invID)
	require.NoError(t, err)
	_, err = e.invoice.Cancel(e.ctx, e.co.ID, invID)
	require.NoError(t, err)

	svc := NewInvoiceService(snapshotInvoices{InvoiceRepository: e.invoicesR, inv: seen}, e.partnersR, e.companies, e.periods, e.auto, e.queue)
	_, err = svc.Pay(e.ctx, e.co.ID, invID)
	require.ErrorIs(t, err, apierror.ErrConflict)

	got, err := e.invoice.Get(e.ctx, e.co.ID, invID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceCancelled, got.Status)
	assert.Nil(t, got.PaidAt)
}
