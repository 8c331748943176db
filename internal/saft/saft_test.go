package saft

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleInput() Input {
	day := func(d int) time.Time { return time.Date(2025, 9, d, 0, 0, 0, 0, time.UTC) }
	return Input{
		Company: &Company{CUI: "18547290", Name: "Documentiulia SRL", Street: "Str. Victoriei 10", City: "București", IBAN: "RO49AAAA1B31007593840000"},
		Period:  "2025-09",
		Now:     time.Date(2025, 10, 2, 10, 0, 0, 0, time.UTC),
		Sales: []Invoice{
			{ID: "s1", Number: "DI-0001", Date: day(1), PartnerCUI: "14399840", PartnerName: "Client SA", Net: dec("100"), VAT: dec("21"), Gross: dec("121")},
			{ID: "s2", Number: "DI-0002", Date: day(3), PartnerCUI: "14399840", PartnerName: "Client SA", Net: dec("200"), VAT: dec("22"), Gross: dec("222")},
			{ID: "s3", Number: "DI-0005", Date: day(9), PartnerName: "Persoana Fizica", Net: dec("50"), VAT: dec("10.50"), Gross: dec("60.50")},
		},
		Purchases: []Invoice{
			{ID: "p1", Number: "F-77", Type: "standard", Date: day(4), PartnerCUI: "1590082", PartnerName: "Furnizor SRL", Net: dec("80"), VAT: dec("16.80"), Gross: dec("96.80")},
		},
		Payments: []Payment{
			{ID: "t1", Reference: "BT-1", InvoiceID: "s1", Date: day(5), Amount: dec("121"), Method: "transfer"},
			{ID: "t2", Date: day(6), Amount: dec("-30"), Method: "cash"},
		},
	}
}

func TestParsePeriod(t *testing.T) {
	start, end, err := ParsePeriod("2024-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), end)

	_, _, err = ParsePeriod("2024-13")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestGenerate_CompanyErrors(t *testing.T) {
	res := Generate(Input{Period: "2025-09"})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "E001"))

	res = Generate(Input{Company: &Company{}, Period: "2025-09"})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Errors[0], "E002"))
	assert.True(t, strings.HasPrefix(res.Errors[1], "E003"))
	assert.Nil(t, res.XML)

	res = Generate(Input{Company: &Company{CUI: "18547290", Name: "X"}, Period: "sept"})
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "E999"))
}

func TestGenerate_Document(t *testing.T) {
	res := Generate(sampleInput())
	require.True(t, res.Success, res.Errors)

	s := string(res.XML)
	assert.True(t, strings.HasPrefix(s, "<?xml"))
	assert.Contains(t, s, `<n1:AuditFile xmlns:n1="urn:OECD:StandardAuditFile-Taxation/RO_2.0"`)
	assert.Contains(t, s, "<n1:AuditFileVersion>2.0</n1:AuditFileVersion>")
	assert.Contains(t, s, "<n1:AuditFileDateCreated>2025-10-02</n1:AuditFileDateCreated>")
	assert.Contains(t, s, "<n1:SelectionStartDate>2025-09-01</n1:SelectionStartDate>")
	assert.Contains(t, s, "<n1:SelectionEndDate>2025-09-30</n1:SelectionEndDate>")
	assert.Contains(t, s, "<n1:TaxAccountingBasis>A</n1:TaxAccountingBasis>")
	assert.Contains(t, s, "<n1:IBANNumber>RO49AAAA1B31007593840000</n1:IBANNumber>")
	assert.Equal(t, len(ledgerAccounts), strings.Count(s, "<n1:Account>"))

	// customers deduplicated by CUI, the CUI-less buyer left out
	assert.Equal(t, 1, strings.Count(s, "<n1:Customer>"))
	assert.Equal(t, 1, strings.Count(s, "<n1:Supplier>"))

	// September 2025 is after the rate change: 21 standard, 11 and 5 reduced
	assert.Contains(t, s, "<n1:TaxPercentage>21.00</n1:TaxPercentage>")
	assert.Contains(t, s, "<n1:TaxCode>R2</n1:TaxCode>")

	assert.Contains(t, s, "<n1:CustomerInfo>\n")
	assert.Contains(t, s, "<n1:CustomerID>14399840</n1:CustomerID>")
	assert.Contains(t, s, "<n1:SupplierID>1590082</n1:SupplierID>")
	assert.Contains(t, s, "<n1:PaymentType>RC</n1:PaymentType>")
	assert.Contains(t, s, "<n1:AccountID>5311</n1:AccountID>")
	assert.Contains(t, s, "<n1:PaymentRefNo>BT-1</n1:PaymentRefNo>")

	var root struct{ XMLName xml.Name }
	require.NoError(t, xml.Unmarshal(res.XML, &root))

	sum := sha256.Sum256(res.XML)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Hash)
	assert.Equal(t, len(res.XML), res.Size)
}

func TestGenerate_SummaryAndWarnings(t *testing.T) {
	res := Generate(sampleInput())

	assert.Equal(t, 4, res.Summary.InvoiceCount)
	assert.Equal(t, 1, res.Summary.CustomerCount)
	assert.Equal(t, 1, res.Summary.SupplierCount)
	assert.Equal(t, "403.50", res.Summary.TotalSales.StringFixed(2))
	assert.Equal(t, "96.80", res.Summary.TotalPurchases.StringFixed(2))
	assert.Equal(t, "53.50", res.Summary.VATCollected.StringFixed(2))
	assert.Equal(t, "16.80", res.Summary.VATDeductible.StringFixed(2))
	assert.Equal(t, "36.70", res.Summary.VATBalance.StringFixed(2))

	assert.Contains(t, res.Warnings, "W020: Posibilă lipsă în seria de facturi între 2 și 5")
	assert.Contains(t, res.Warnings, "W030: Factura DI-0005 nu are CUI partener")
}

func TestGenerate_TooLarge(t *testing.T) {
	old := MaxFileSize
	MaxFileSize = 100
	defer func() { MaxFileSize = old }()

	res := Generate(sampleInput())
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.True(t, strings.HasPrefix(res.Errors[0], "E100"))
}

func TestTaxCode(t *testing.T) {
	code, rate := taxCode(dec("100"), dec("21"))
	assert.Equal(t, "S", code)
	assert.Equal(t, "21.00", rate.StringFixed(2))

	code, _ = taxCode(dec("100"), dec("11"))
	assert.Equal(t, "R1", code)
	code, _ = taxCode(dec("100"), dec("9"))
	assert.Equal(t, "R1", code)
	code, _ = taxCode(dec("100"), dec("5"))
	assert.Equal(t, "R2", code)
	code, _ = taxCode(dec("100"), decimal.Zero)
	assert.Equal(t, "Z", code)
}

func TestInvoiceAndPaymentTypes(t *testing.T) {
	assert.Equal(t, "NC", invoiceType("credit_note"))
	assert.Equal(t, "ND", invoiceType("debit_note"))
	assert.Equal(t, "FT", invoiceType("standard"))
	assert.Equal(t, "RC", paymentType("cash"))
	assert.Equal(t, "CC", paymentType("card"))
	assert.Equal(t, "TB", paymentType("transfer"))
}
