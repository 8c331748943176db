package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// ReportService aggregates in Go over date-ranged queries. Revenue is the
// net of issued, non-cancelled invoices; expenses are the net of pending and
// approved expenses.
type ReportService interface {
	Monthly(ctx context.Context, companyID uuid.UUID, year int) (*dto.MonthlyReport, error)
	ExpensesByCategory(ctx context.Context, companyID uuid.UUID, q dto.DateRangeQuery) (*dto.ExpensesByCategoryReport, error)
	ProfitLoss(ctx context.Context, companyID uuid.UUID, q dto.DateRangeQuery) (*dto.ProfitLossReport, error)
	VAT(ctx context.Context, companyID uuid.UUID, period string) (*dto.VATReport, error)
	Dashboard(ctx context.Context, companyID uuid.UUID) (*dto.DashboardReport, error)
}

type reportService struct {
	invoices repository.InvoiceRepository
	expenses repository.ExpenseRepository
	bank     repository.BankRepository
}

func NewReportService(invoices repository.InvoiceRepository, expenses repository.ExpenseRepository, bank repository.BankRepository) ReportService {
	return &reportService{invoices: invoices, expenses: expenses, bank: bank}
}

// countedExpenses are the statuses that count as costs.
var countedExpenses = []string{model.ExpensePending, model.ExpenseApproved}

func parseRange(q dto.DateRangeQuery) (time.Time, time.Time, error) {
	from, err := parseDate(q.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(q.To)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to is before from: %w", apierror.ErrInvalid)
	}
	return from, to, nil
}

// revenue lists issued invoices in range, leaving cancelled ones out.
func (s *reportService) revenue(ctx context.Context, companyID uuid.UUID, direction string, from, to time.Time) ([]model.Invoice, error) {
	all, err := s.invoices.ListInRange(ctx, companyID, direction, from, to)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, inv := range all {
		if inv.Status != model.InvoiceCancelled {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *reportService) Monthly(ctx context.Context, companyID uuid.UUID, year int) (*dto.MonthlyReport, error) {
	if year < 2000 || year > 2100 {
		return nil, fmt.Errorf("year %d out of range: %w", year, apierror.ErrInvalid)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	invoices, err := s.revenue(ctx, companyID, model.DirectionIssued, from, to)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListInRange(ctx, companyID, from, to, countedExpenses...)
	if err != nil {
		return nil, err
	}

	rev := make(map[time.Month]decimal.Decimal, 12)
	exp := make(map[time.Month]decimal.Decimal, 12)
	for _, inv := range invoices {
		m := inv.IssueDate.Month()
		rev[m] = rev[m].Add(inv.Subtotal)
	}
	for _, e := range expenses {
		m := e.ExpenseDate.Month()
		exp[m] = exp[m].Add(e.Amount)
	}

	report := &dto.MonthlyReport{Year: year, Months: make([]dto.MonthlyRow, 0, 12)}
	for m := time.January; m <= time.December; m++ {
		row := dto.MonthlyRow{
			Month:    fmt.Sprintf("%d-%02d", year, int(m)),
			Revenue:  rev[m],
			Expenses: exp[m],
			Profit:   rev[m].Sub(exp[m]),
		}
		report.Months = append(report.Months, row)
		report.TotalRevenue = report.TotalRevenue.Add(row.Revenue)
		report.TotalExpenses = report.TotalExpenses.Add(row.Expenses)
	}
	report.TotalProfit = report.TotalRevenue.Sub(report.TotalExpenses)
	return report, nil
}

func (s *reportService) ExpensesByCategory(ctx context.Context, companyID uuid.UUID, q dto.DateRangeQuery) (*dto.ExpensesByCategoryReport, error) {
	from, to, err := parseRange(q)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListInRange(ctx, companyID, from, to, countedExpenses...)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]*dto.CategoryRow)
	total := decimal.Zero
	for _, e := range expenses {
		row, ok := byCategory[e.Category]
		if !ok {
			row = &dto.CategoryRow{Category: e.Category}
			byCategory[e.Category] = row
		}
		row.Total = row.Total.Add(e.Amount)
		row.Count++
		total = total.Add(e.Amount)
	}

	rows := make([]dto.CategoryRow, 0, len(byCategory))
	for _, row := range byCategory {
		if !total.IsZero() {
			row.Share = row.Total.Mul(hundred).Div(total).Round(2)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Total.Cmp(rows[j].Total); c != 0 {
			return c > 0
		}
		return rows[i].Category < rows[j].Category
	})

	return &dto.ExpensesByCategoryReport{From: q.From, To: q.To, Total: total, Categories: rows}, nil
}

func (s *reportService) ProfitLoss(ctx context.Context, companyID uuid.UUID, q dto.DateRangeQuery) (*dto.ProfitLossReport, error) {
	from, to, err := parseRange(q)
	if err != nil {
		return nil, err
	}
	invoices, err := s.revenue(ctx, companyID, model.DirectionIssued, from, to)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListInRange(ctx, companyID, from, to, countedExpenses...)
	if err != nil {
		return nil, err
	}

	report := &dto.ProfitLossReport{From: q.From, To: q.To}
	for _, inv := range invoices {
		report.Revenue = report.Revenue.Add(inv.Subtotal)
	}
	for _, e := range expenses {
		report.Expenses = report.Expenses.Add(e.Amount)
	}
	report.GrossProfit = report.Revenue.Sub(report.Expenses)
	if !report.Revenue.IsZero() {
		report.MarginPct = report.GrossProfit.Mul(hundred).Div(report.Revenue).Round(2)
	}
	return report, nil
}

func (s *reportService) VAT(ctx context.Context, companyID uuid.UUID, period string) (*dto.VATReport, error) {
	start, err := time.Parse(PeriodLayout, period)
	if err != nil {
		return nil, fmt.Errorf("period must be YYYY-MM: %w", apierror.ErrInvalid)
	}
	end := start.AddDate(0, 1, -1)

	issued, err := s.revenue(ctx, companyID, model.DirectionIssued, start, end)
	if err != nil {
		return nil, err
	}
	received, err := s.revenue(ctx, companyID, model.DirectionReceived, start, end)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListInRange(ctx, companyID, start, end, model.ExpenseApproved)
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*dto.VATRateRow)
	row := func(rate decimal.Decimal) *dto.VATRateRow {
		key := rate.StringFixed(2)
		r, ok := rows[key]
		if !ok {
			r = &dto.VATRateRow{Rate: rate}
			rows[key] = r
		}
		return r
	}

	report := &dto.VATReport{Period: period}
	for _, inv := range issued {
		for _, l := range inv.Lines {
			r := row(l.VATRate)
			r.Collected = r.Collected.Add(l.VAT)
			r.TaxableOut = r.TaxableOut.Add(l.Net)
			report.Collected = report.Collected.Add(l.VAT)
		}
	}
	for _, inv := range received {
		for _, l := range inv.Lines {
			r := row(l.VATRate)
			r.Deductible = r.Deductible.Add(l.VAT)
			r.TaxableIn = r.TaxableIn.Add(l.Net)
			report.Deductible = report.Deductible.Add(l.VAT)
		}
	}
	for _, e := range expenses {
		r := row(impliedRate(e.Amount, e.VATAmount))
		r.Deductible = r.Deductible.Add(e.VATAmount)
		r.TaxableIn = r.TaxableIn.Add(e.Amount)
		report.Deductible = report.Deductible.Add(e.VATAmount)
	}

	report.Balance = report.Collected.Sub(report.Deductible)
	report.Position = "refundable"
	if report.Balance.IsPositive() {
		report.Position = "payable"
	}
	report.ByRate = make([]dto.VATRateRow, 0, len(rows))
	for _, r := range rows {
		report.ByRate = append(report.ByRate, *r)
	}
	sort.Slice(report.ByRate, func(i, j int) bool { return report.ByRate[i].Rate.GreaterThan(report.ByRate[j].Rate) })
	return report, nil
}

// impliedRate recovers the VAT rate of an expense from its amounts, rounded
// to a whole percent.
func impliedRate(net, vat decimal.Decimal) decimal.Decimal {
	if net.IsZero() || vat.IsZero() {
		return decimal.Zero
	}
	return vat.Mul(hundred).Div(net).Round(0)
}

func (s *reportService) Dashboard(ctx context.Context, companyID uuid.UUID) (*dto.DashboardReport, error) {
	report := &dto.DashboardReport{}
	now := today()

	outstanding, err := s.invoices.ListOutstanding(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, inv := range outstanding {
		report.Receivables = report.Receivables.Add(inv.Total)
		if inv.DueDate != nil && inv.DueDate.Before(now) {
			report.OverdueCount++
		}
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	invoices, err := s.revenue(ctx, companyID, model.DirectionIssued, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		report.MonthRevenue = report.MonthRevenue.Add(inv.Subtotal)
	}
	expenses, err := s.expenses.ListInRange(ctx, companyID, monthStart, monthEnd, countedExpenses...)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		report.MonthExpenses = report.MonthExpenses.Add(e.Amount)
	}

	accounts, err := s.bank.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if !a.Active {
			continue
		}
		totals, err := s.bank.SumTransactions(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		report.BankBalance = report.BankBalance.Add(a.OpeningBalance).Add(totals.Sum)
	}

	if report.PendingExpenses, err = s.expenses.CountByStatus(ctx, companyID, model.ExpensePending); err != nil {
		return nil, err
	}
	return report, nil
}
