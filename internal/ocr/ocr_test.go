package ocr

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReceipt = `SC EXEMPLU COMERT SRL
C.I.F.: RO18547290
Str. Victoriei 10, Bucuresti
BON FISCAL 0042
PAINE ALBA    2,00 X 3,50    7,00
LAPTE         8,99
TOTAL         15,99
TVA A-11,00%  1,58
TOTAL DE PLATA 15,99 RON
CARD
Data: 07.11.2025 Ora: 14:32:10`

func TestCleanText_DigitConfusions(t *testing.T) {
	assert.Equal(t, "Total 1250", CleanText("Total l250"))
	assert.Equal(t, "10,50", CleanText("1O,50"))
	assert.Equal(t, "05.11", CleanText("O5.11"))
	assert.Equal(t, "121", CleanText("12|"))
	assert.Equal(t, "111", CleanText("1|1"))
	// letters next to digits inside words stay untouched
	assert.Equal(t, "RO18547290", CleanText("RO18547290"))
	assert.Equal(t, "5lei", CleanText("5lei"))
}

func TestCleanText_Whitespace(t *testing.T) {
	got := CleanText("  LAPTE\t\t8,99  \r\n\r\n\r\nTOTAL   8,99 ")
	assert.Equal(t, "LAPTE  8,99\nTOTAL  8,99", got)
}

func TestFixDiacritics(t *testing.T) {
	assert.Equal(t, "Județul Brașov", FixDiacritics("Judetul Brasov"))
	assert.Equal(t, "BUCUREȘTI", FixDiacritics("BUCURESTI"))
	// cedilla forms become comma-below
	assert.Equal(t, "Timișoara, țară", FixDiacritics("Timişoara, ţară"))
	assert.Equal(t, "Bucuresti", Fold("București"))
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1.234,56":  "1234.56",
		"1,234.56":  "1234.56",
		"1234,5":    "1234.5",
		"45,50 RON": "45.5",
		"12.30 lei": "12.3",
		"1.234":     "1234",
		"1 234,00":  "1234",
		"0,99":      "0.99",
	}
	for in, want := range cases {
		got, ok := ParseAmount(in)
		require.True(t, ok, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s -> %s", in, got)
	}
	_, ok := ParseAmount("abc")
	assert.False(t, ok)
	_, ok = ParseAmount("")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"07.11.2025", "7/11/2025", "07-11-25", "2025-11-07", "2025.11.07", "7 noiembrie 2025", "07 nov. 2025"} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"31.02.2025", "01.13.2025", "01.01.1999", "01.01.2031", "01.01.75"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestExtractDates_Fragmented(t *testing.T) {
	dates := ExtractDates("BON 025. 11.07 17 CASA 2")
	require.Len(t, dates, 1)
	assert.Equal(t, time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC), dates[0])
}

func TestExtractTime(t *testing.T) {
	got, ok := ExtractTime("Ora 9:05")
	require.True(t, ok)
	assert.Equal(t, "09:05:00", got)
	_, ok = ExtractTime("scor 99:99")
	assert.False(t, ok)
}

func TestVoteTotal(t *testing.T) {
	d := decimal.RequireFromString
	got, repeated := voteTotal([]decimal.Decimal{d("12.50"), d("45.20"), d("12.50")})
	assert.True(t, repeated)
	assert.True(t, got.Equal(d("12.50")))

	got, repeated = voteTotal([]decimal.Decimal{d("8.00"), d("45.20"), d("12.50")})
	assert.False(t, repeated)
	assert.True(t, got.Equal(d("45.20")))

	got, _ = voteTotal([]decimal.Decimal{d("3.00"), d("7.50")})
	assert.True(t, got.Equal(d("7.50")))
}

func TestIsYearOrID(t *testing.T) {
	assert.True(t, isYearOrID(decimal.NewFromInt(2025)))
	assert.True(t, isYearOrID(decimal.NewFromInt(1903289)))
	assert.False(t, isYearOrID(decimal.RequireFromString("123456.78")))
	assert.False(t, isYearOrID(decimal.RequireFromString("45.50")))
}

func TestExtract_Receipt(t *testing.T) {
	res := Extract(sampleReceipt, LangAuto)

	assert.Equal(t, LangRO, res.Language)
	assert.Equal(t, "EXEMPLU COMERT SRL", res.VendorName)
	assert.Equal(t, "18547290", res.VendorCUI)
	assert.True(t, res.VendorCUIOK)
	require.NotNil(t, res.Date)
	assert.Equal(t, "2025-11-07", res.Date.Format(time.DateOnly))
	assert.Equal(t, "14:32:10", res.Time)
	assert.Equal(t, "0042", res.ReceiptNumber)
	require.True(t, res.Total.Valid)
	assert.Equal(t, "15.99", res.Total.Decimal.StringFixed(2))
	require.True(t, res.VATAmount.Valid)
	assert.Equal(t, "1.58", res.VATAmount.Decimal.StringFixed(2))
	require.True(t, res.VATRate.Valid)
	assert.Equal(t, "11", res.VATRate.Decimal.String())
	assert.Equal(t, "card", res.PaymentMethod)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "PAINE ALBA", res.Items[0].Name)
	assert.Equal(t, "7.00", res.Items[0].Price.StringFixed(2))
	assert.Equal(t, "LAPTE", res.Items[1].Name)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Greater(t, res.Overall, ReviewThreshold)
	assert.Contains(t, res.Text, "București")
}

func TestExtract_ClientCUIIsNotVendor(t *testing.T) {
	text := "FACTURA NR 1234\nCLIENT C.U.I.: RO14399840\nFurnizor CUI: 18547290\nTOTAL 100,00"
	res := Extract(text, LangRO)
	assert.Equal(t, "14399840", res.ClientCUI)
	assert.Equal(t, "18547290", res.VendorCUI)
}

func TestExtract_InvalidCUIWarns(t *testing.T) {
	res := Extract("CUI: 12345678\nTOTAL 10,00", LangRO)
	assert.Equal(t, "12345678", res.VendorCUI)
	assert.False(t, res.VendorCUIOK)
	assert.Contains(t, res.Warnings, "vendor CUI failed checksum validation")
}

func TestExtract_LowConfidenceNeedsReview(t *testing.T) {
	res := Extract("ceva text ilizibil", LangAuto)
	assert.False(t, res.Total.Valid)
	assert.Equal(t, StatusReviewRequired, res.Status)
}

func TestExtract_GermanTotal(t *testing.T) {
	res := Extract("RECHNUNG\nMWST 19% 3,80\nGESAMT EUR 23,80", LangAuto)
	assert.Equal(t, LangDE, res.Language)
	require.True(t, res.Total.Valid)
	assert.Equal(t, "23.80", res.Total.Decimal.StringFixed(2))
	require.True(t, res.VATRate.Valid)
	assert.Equal(t, "19", res.VATRate.Decimal.String())
}
