package dto

import "github.com/shopspring/decimal"

// ─── Filter ──────────────────────────────────────────────────────────────────

type DateRangeQuery struct {
	From string `form:"from" validate:"required,datetime=2006-01-02"`
	To   string `form:"to"   validate:"required,datetime=2006-01-02"`
}

type YearQuery struct {
	Year int `form:"year" validate:"required,min=2000,max=2100"`
}

// PeriodQuery selects one accounting month.
type PeriodQuery struct {
	Period string `form:"period" validate:"required,period"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MonthlyRow struct {
	Month    string          `json:"month"` // YYYY-MM
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

type MonthlyReport struct {
	Year          int             `json:"year"`
	Months        []MonthlyRow    `json:"months"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
}

type CategoryRow struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Share    decimal.Decimal `json:"share"` // percent of the overall total
}

type ExpensesByCategoryReport struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryRow   `json:"categories"`
}

type ProfitLossReport struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Revenue     decimal.Decimal `json:"revenue"`
	Expenses    decimal.Decimal `json:"expenses"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	MarginPct   decimal.Decimal `json:"margin_pct"`
}

type VATRateRow struct {
	Rate       decimal.Decimal `json:"rate"`
	Collected  decimal.Decimal `json:"collected"`
	Deductible decimal.Decimal `json:"deductible"`
	TaxableOut decimal.Decimal `json:"taxable_out"`
	TaxableIn  decimal.Decimal `json:"taxable_in"`
}

type VATReport struct {
	Period     string          `json:"period"`
	Collected  decimal.Decimal `json:"collected"`
	Deductible decimal.Decimal `json:"deductible"`
	Balance    decimal.Decimal `json:"balance"`
	// Position is "payable" when Balance is positive, otherwise "refundable"
	Position string       `json:"position"`
	ByRate   []VATRateRow `json:"by_rate"`
}

type DashboardReport struct {
	Receivables     decimal.Decimal `json:"receivables"`
	OverdueCount    int64           `json:"overdue_count"`
	MonthRevenue    decimal.Decimal `json:"month_revenue"`
	MonthExpenses   decimal.Decimal `json:"month_expenses"`
	BankBalance     decimal.Decimal `json:"bank_balance"`
	PendingExpenses int64           `json:"pending_expenses"`
}
