// Package saft builds the monthly SAF-T D406 declaration (Standard Audit
// File for Tax, Romanian schema 2.0) from a company's invoices and payments.
package saft

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Namespace       = "urn:OECD:StandardAuditFile-Taxation/RO_2.0"
	namespaceXSI    = "http://www.w3.org/2001/XMLSchema-instance"
	softwareName    = "DocumentIulia.ro"
	softwareID      = "DOCUMENTIULIA-ERP-V1"
	softwareVersion = "1.0.0"
)

// MaxFileSize is the upload limit ANAF enforces for one D406 file.
var MaxFileSize = 500 << 20

var ErrInvalidPeriod = errors.New("period must be YYYY-MM")

// Company is the reporting entity.
type Company struct {
	CUI        string
	Name       string
	Street     string
	City       string
	County     string
	PostalCode string
	Phone      string
	Email      string
	IBAN       string
	BankName   string
}

// Invoice is one sales or purchase invoice in the reported month.
type Invoice struct {
	ID             string
	Number         string
	Type           string
	Date           time.Time
	CreatedAt      time.Time
	PartnerCUI     string
	PartnerName    string
	PartnerAddress string
	PartnerCity    string
	PartnerCountry string
	Description    string
	Net            decimal.Decimal
	VAT            decimal.Decimal
	Gross          decimal.Decimal
	Currency       string
}

// Payment is a booked bank or cash movement in the reported month.
type Payment struct {
	ID          string
	Reference   string
	InvoiceID   string
	Description string
	Method      string
	Date        time.Time
	Amount      decimal.Decimal
	Currency    string
}

type Input struct {
	Company   *Company
	Period    string
	Sales     []Invoice
	Purchases []Invoice
	Payments  []Payment
	Now       time.Time
}

type Summary struct {
	InvoiceCount   int             `json:"invoice_count"`
	CustomerCount  int             `json:"customer_count"`
	SupplierCount  int             `json:"supplier_count"`
	PaymentCount   int             `json:"payment_count"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalPurchases decimal.Decimal `json:"total_purchases"`
	VATCollected   decimal.Decimal `json:"vat_collected"`
	VATDeductible  decimal.Decimal `json:"vat_deductible"`
	VATBalance     decimal.Decimal `json:"vat_balance"`
}

// Result carries the rendered file, or the error codes that prevented it.
// Errors are prefixed with their ANAF-style code (E001, E002, ...).
type Result struct {
	Success  bool
	XML      []byte
	Size     int
	Hash     string
	Period   string
	Errors   []string
	Warnings []string
	Summary  Summary
}

// ParsePeriod returns the first and last day of a YYYY-MM month.
func ParsePeriod(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	return start, start.AddDate(0, 1, -1), nil
}

// Generate renders the D406 file for in.Period.
func Generate(in Input) Result {
	res := Result{Period: in.Period, Errors: []string{}, Warnings: []string{}}

	if in.Company == nil {
		res.Errors = append(res.Errors, "E001: Utilizator inexistent")
		return res
	}
	if in.Company.CUI == "" {
		res.Errors = append(res.Errors, "E002: CUI/CIF lipsă - obligatoriu pentru SAF-T D406")
	}
	if in.Company.Name == "" {
		res.Errors = append(res.Errors, "E003: Denumire companie lipsă")
	}
	if len(res.Errors) > 0 {
		return res
	}

	start, end, err := ParsePeriod(in.Period)
	if err != nil {
		res.Errors = append(res.Errors, "E999: Eroare internă - "+err.Error())
		return res
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	customers := partners(in.Sales)
	suppliers := partners(in.Purchases)

	file := auditFile{
		XmlnsN1:        Namespace,
		XmlnsXSI:       namespaceXSI,
		SchemaLocation: Namespace + " SAF-T_RO_2.0.xsd",
		Header:         buildHeader(in.Company, in.Period, start, end, now),
		MasterFiles: masterFilesXML{
			Accounts:  accountsXML{Accounts: ledgerAccounts},
			Customers: buildCustomers(customers),
			Suppliers: buildSuppliers(suppliers),
			TaxTable:  buildTaxTable(start),
		},
		LedgerEntries: buildLedger(in, in.Period),
		SourceDocuments: sourceDocumentsXML{
			Sales:     buildInvoices(in.Sales, true, now),
			Purchases: buildInvoices(in.Purchases, false, now),
			Payments:  buildPayments(in.Payments),
		},
	}

	body, err := xml.MarshalIndent(file, "", "  ")
	if err != nil {
		res.Errors = append(res.Errors, "E999: Eroare internă - "+err.Error())
		return res
	}
	out := append([]byte(xml.Header), body...)

	if len(out) > MaxFileSize {
		res.Errors = append(res.Errors, fmt.Sprintf("E100: Fișier XML prea mare (%.2f MB). Limită ANAF: %d MB",
			float64(len(out))/(1<<20), MaxFileSize>>20))
	}

	sum := sha256.Sum256(out)
	res.XML = out
	res.Size = len(out)
	res.Hash = hex.EncodeToString(sum[:])
	res.Warnings = append(res.Warnings, sequenceGaps(in.Sales)...)
	res.Warnings = append(res.Warnings, missingPartnerIDs(in.Sales, in.Purchases)...)
	res.Summary = summarize(in, len(customers), len(suppliers))
	res.Success = len(res.Errors) == 0
	return res
}

func summarize(in Input, customers, suppliers int) Summary {
	s := Summary{
		InvoiceCount:  len(in.Sales) + len(in.Purchases),
		CustomerCount: customers,
		SupplierCount: suppliers,
		PaymentCount:  len(in.Payments),
	}
	for _, inv := range in.Sales {
		s.TotalSales = s.TotalSales.Add(inv.Gross)
		s.VATCollected = s.VATCollected.Add(inv.VAT)
	}
	for _, inv := range in.Purchases {
		s.TotalPurchases = s.TotalPurchases.Add(inv.Gross)
		s.VATDeductible = s.VATDeductible.Add(inv.VAT)
	}
	s.TotalSales = s.TotalSales.Round(2)
	s.TotalPurchases = s.TotalPurchases.Round(2)
	s.VATCollected = s.VATCollected.Round(2)
	s.VATDeductible = s.VATDeductible.Round(2)
	s.VATBalance = s.VATCollected.Sub(s.VATDeductible)
	return s
}

type partner struct {
	id, name, address, city, country string
}

// partners deduplicates invoice counterparties by CUI, keeping first-seen
// order. Counterparties without a CUI are left out.
func partners(invoices []Invoice) []partner {
	seen := map[string]bool{}
	var out []partner
	for _, inv := range invoices {
		if inv.PartnerCUI == "" || seen[inv.PartnerCUI] {
			continue
		}
		seen[inv.PartnerCUI] = true
		name := inv.PartnerName
		if name == "" {
			name = "Necunoscut"
		}
		out = append(out, partner{inv.PartnerCUI, name, inv.PartnerAddress, inv.PartnerCity, orRO(inv.PartnerCountry)})
	}
	return out
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// sequenceGaps reports holes in the numeric suffixes of sales invoice numbers.
func sequenceGaps(sales []Invoice) []string {
	var nums []int
	for _, inv := range sales {
		m := trailingDigits.FindStringSubmatch(inv.Number)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	var out []string
	for i := 1; i < len(nums); i++ {
		if nums[i]-nums[i-1] > 1 {
			out = append(out, fmt.Sprintf("W020: Posibilă lipsă în seria de facturi între %d și %d", nums[i-1], nums[i]))
		}
	}
	return out
}

func missingPartnerIDs(sales, purchases []Invoice) []string {
	var out []string
	for _, inv := range append(append([]Invoice{}, sales...), purchases...) {
		if inv.PartnerCUI == "" {
			out = append(out, fmt.Sprintf("W030: Factura %s nu are CUI partener", inv.Number))
		}
	}
	return out
}

// taxCode classifies an invoice by its effective VAT rate.
func taxCode(net, vat decimal.Decimal) (string, decimal.Decimal) {
	if net.IsZero() || vat.LessThanOrEqual(decimal.Zero) {
		return "Z", decimal.Zero
	}
	rate := vat.Div(net).Mul(decimal.NewFromInt(100)).Round(2)
	switch {
	case rate.LessThan(decimal.NewFromInt(1)):
		return "Z", rate
	case rate.GreaterThanOrEqual(decimal.NewFromInt(4)) && rate.LessThanOrEqual(decimal.NewFromInt(6)):
		return "R2", rate
	case rate.GreaterThanOrEqual(decimal.NewFromInt(8)) && rate.LessThanOrEqual(decimal.NewFromInt(12)):
		return "R1", rate
	default:
		return "S", rate
	}
}

// invoiceType maps an invoice type to its SAF-T document code.
func invoiceType(t string) string {
	switch t {
	case "credit_note":
		return "NC"
	case "debit_note":
		return "ND"
	default:
		return "FT"
	}
}

func paymentType(method string) string {
	switch method {
	case "cash":
		return "RC"
	case "card":
		return "CC"
	default:
		return "TB"
	}
}

func orRO(country string) string {
	if country == "" {
		return "RO"
	}
	return country
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func date(t time.Time) string { return t.Format(time.DateOnly) }
