package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

// september books one issued sale, one cancelled sale, one received invoice
// and three expenses with different statuses.
func september(t *testing.T) *env {
	t.Helper()
	e := newEnv(t)

	req := e.invoiceReq("0001", "2025-09-01")
	req.DueDate = "2025-09-30"
	inv, err := e.invoice.Create(e.ctx, e.co.ID, req)
	require.NoError(t, err)
	_, err = e.invoice.Issue(e.ctx, e.co.ID, mustUUID(t, inv.ID))
	require.NoError(t, err)

	cancelled := e.issuedInvoice(t, "0002", "2025-09-10")
	_, err = e.invoice.Cancel(e.ctx, e.co.ID, mustUUID(t, cancelled.ID))
	require.NoError(t, err)

	purchase := e.invoiceReq("F100", "2025-09-05")
	purchase.Direction = model.DirectionReceived
	purchase.Lines = []dto.InvoiceLineRequest{line("Materiale", "1", "200")}
	received, err := e.invoice.Create(e.ctx, e.co.ID, purchase)
	require.NoError(t, err)
	_, err = e.invoice.Issue(e.ctx, e.co.ID, mustUUID(t, received.ID))
	require.NoError(t, err)

	approved, err := e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-06", "birotica", "100", "21"), "")
	require.NoError(t, err)
	_, err = e.expense.Approve(e.ctx, e.co.ID, mustUUID(t, approved.ID))
	require.NoError(t, err)

	_, err = e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-07", "transport", "50", "0"), "")
	require.NoError(t, err)

	rejected, err := e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-08", "protocol", "30", "0"), "")
	require.NoError(t, err)
	_, err = e.expense.Reject(e.ctx, e.co.ID, mustUUID(t, rejected.ID))
	require.NoError(t, err)
	return e
}

var septemberRange = dto.DateRangeQuery{From: "2025-09-01", To: "2025-09-30"}

func TestReportMonthly(t *testing.T) {
	e := september(t)

	r, err := e.report.Monthly(e.ctx, e.co.ID, 2025)
	require.NoError(t, err)
	require.Len(t, r.Months, 12)

	sep := r.Months[8]
	assert.Equal(t, "2025-09", sep.Month)
	assert.Equal(t, "1000.00", sep.Revenue.StringFixed(2))
	assert.Equal(t, "150.00", sep.Expenses.StringFixed(2), "pending and approved count at net")
	assert.Equal(t, "850.00", sep.Profit.StringFixed(2))
	assert.True(t, r.Months[0].Revenue.IsZero())
	assert.Equal(t, "850.00", r.TotalProfit.StringFixed(2))

	_, err = e.report.Monthly(e.ctx, e.co.ID, 1999)
	assert.ErrorIs(t, err, apierror.ErrInvalid)
}

func TestReportExpensesByCategory(t *testing.T) {
	e := september(t)

	r, err := e.report.ExpensesByCategory(e.ctx, e.co.ID, septemberRange)
	require.NoError(t, err)
	assert.Equal(t, "150.00", r.Total.StringFixed(2))
	require.Len(t, r.Categories, 2)
	assert.Equal(t, "birotica", r.Categories[0].Category)
	assert.Equal(t, "66.67", r.Categories[0].Share.StringFixed(2))
	assert.Equal(t, "transport", r.Categories[1].Category)
	assert.Equal(t, 1, r.Categories[1].Count)

	_, err = e.report.ExpensesByCategory(e.ctx, e.co.ID, dto.DateRangeQuery{From: "2025-09-30", To: "2025-09-01"})
	assert.ErrorIs(t, err, apierror.ErrInvalid)
}

func TestReportProfitLoss(t *testing.T) {
	e := september(t)

	r, err := e.report.ProfitLoss(e.ctx, e.co.ID, septemberRange)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", r.Revenue.StringFixed(2))
	assert.Equal(t, "150.00", r.Expenses.StringFixed(2))
	assert.Equal(t, "850.00", r.GrossProfit.StringFixed(2))
	assert.Equal(t, "85.00", r.MarginPct.StringFixed(2))
}

func TestReportVAT(t *testing.T) {
	e := september(t)

	r, err := e.report.VAT(e.ctx, e.co.ID, "2025-09")
	require.NoError(t, err)
	assert.Equal(t, "210.00", r.Collected.StringFixed(2))
	// 42 from the received invoice plus 21 from the approved expense
	assert.Equal(t, "63.00", r.Deductible.StringFixed(2))
	assert.Equal(t, "147.00", r.Balance.StringFixed(2))
	assert.Equal(t, "payable", r.Position)

	require.Len(t, r.ByRate, 1)
	assert.Equal(t, "21.00", r.ByRate[0].Rate.StringFixed(2))
	assert.Equal(t, "1000.00", r.ByRate[0].TaxableOut.StringFixed(2))
	assert.Equal(t, "300.00", r.ByRate[0].TaxableIn.StringFixed(2))

	empty, err := e.report.VAT(e.ctx, e.co.ID, "2025-10")
	require.NoError(t, err)
	assert.Equal(t, "refundable", empty.Position)
	assert.Empty(t, empty.ByRate)

	_, err = e.report.VAT(e.ctx, e.co.ID, "septembrie")
	assert.ErrorIs(t, err, apierror.ErrInvalid)
}

func TestReportDashboard(t *testing.T) {
	e := september(t)
	a := e.account(t)
	_, err := e.bank.Import(e.ctx, e.co.ID, mustUUID(t, a.ID), "extras.csv", []byte(statementCSV))
	require.NoError(t, err)

	r, err := e.report.Dashboard(e.ctx, e.co.ID)
	require.NoError(t, err)
	assert.Equal(t, "1210.00", r.Receivables.StringFixed(2))
	assert.EqualValues(t, 1, r.OverdueCount)
	assert.Equal(t, "1150.00", r.BankBalance.StringFixed(2))
	assert.EqualValues(t, 1, r.PendingExpenses)
}
