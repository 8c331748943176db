package tax

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRomanianRates_ChangeOnAugustFirst2025(t *testing.T) {
	before := RomanianRates(time.Date(2025, 7, 31, 12, 0, 0, 0, time.UTC))
	after := RomanianRates(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, before.Standard.Equal(d("19")))
	assert.True(t, before.Reduced[0].Equal(d("9")))
	assert.True(t, after.Standard.Equal(d("21")))
	assert.True(t, after.Reduced[0].Equal(d("11")))
	assert.True(t, after.Reduced[1].Equal(d("5")))
}

func TestCarryRomanianRate(t *testing.T) {
	july := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	sept := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "21", CarryRomanianRate(decimal.NewFromInt(19), july, sept).String())
	assert.Equal(t, "11", CarryRomanianRate(decimal.NewFromInt(9), july, sept).String())
	assert.Equal(t, "5", CarryRomanianRate(decimal.NewFromInt(5), july, sept).String())
	assert.Equal(t, "9", CarryRomanianRate(decimal.NewFromInt(11), sept, july).String())
	assert.Equal(t, "20", CarryRomanianRate(decimal.NewFromInt(20), july, sept).String(), "not a Romanian slot")
	assert.Equal(t, "19", CarryRomanianRate(decimal.NewFromInt(19), july, july).String())
}

func TestRomanianRates_LocalMidnightCountsAsSameDay(t *testing.T) {
	bucharest := time.FixedZone("EEST", 3*3600)
	p := RomanianRates(time.Date(2025, 8, 1, 0, 30, 0, 0, bucharest))
	assert.True(t, p.Standard.Equal(d("21")))
}

func TestLookup(t *testing.T) {
	de, err := Lookup("de")
	require.NoError(t, err)
	assert.Equal(t, "Germany", de.Name)

	gr, err := Lookup("EL")
	require.NoError(t, err)
	assert.Equal(t, "GR", gr.Code)

	_, err = Lookup("US")
	assert.ErrorIs(t, err, ErrUnknownCountry)
	assert.Len(t, Countries(), 27)
}

func TestStandardRate_PerCountry(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	want := map[string]string{
		"AT": "20", "BE": "21", "HU": "27", "LU": "17", "FI": "25.5",
		"EE": "24", "RO": "21", "SK": "23", "DE": "19", "IE": "23",
	}
	for code, rate := range want {
		got, err := StandardRate(code, now)
		require.NoError(t, err)
		assert.True(t, got.Equal(d(rate)), "%s: got %s", code, got)
	}
}

func TestRate_Kinds(t *testing.T) {
	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	r, err := Rate("RO", RateReduced, date)
	require.NoError(t, err)
	assert.True(t, r.Equal(d("11")))
	r, err = Rate("RO", RateReduced2, date)
	require.NoError(t, err)
	assert.True(t, r.Equal(d("5")))
	r, err = Rate("IE", RateParking, date)
	require.NoError(t, err)
	assert.True(t, r.Equal(d("13.5")))
	r, err = Rate("FR", RateSuperReduced, date)
	require.NoError(t, err)
	assert.True(t, r.Equal(d("2.1")))
	r, err = Rate("DE", RateZero, date)
	require.NoError(t, err)
	assert.True(t, r.IsZero())

	_, err = Rate("DK", RateReduced, date)
	assert.ErrorIs(t, err, ErrNoSuchRate)
	_, err = Rate("US", RateStandard, date)
	assert.ErrorIs(t, err, ErrUnknownCountry)
}

func TestIsValidRomanianRate(t *testing.T) {
	aug := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, IsValidRomanianRate(d("21"), aug))
	assert.True(t, IsValidRomanianRate(d("11"), aug))
	assert.True(t, IsValidRomanianRate(decimal.Zero, aug))
	assert.False(t, IsValidRomanianRate(d("19"), aug))
	assert.False(t, IsValidRomanianRate(d("9"), aug))
}

func TestDetermineTreatment(t *testing.T) {
	date := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	t.Run("domestic", func(t *testing.T) {
		tr, err := DetermineTreatment(TreatmentInput{SupplierCountry: "RO", CustomerCountry: "RO", Date: date})
		require.NoError(t, err)
		assert.Equal(t, SchemeDomestic, tr.Scheme)
		assert.True(t, tr.Rate.Equal(d("21")))
	})

	t.Run("intra-EU B2B is reverse charge", func(t *testing.T) {
		tr, err := DetermineTreatment(TreatmentInput{
			SupplierCountry: "RO", CustomerCountry: "DE",
			SupplierVATID: "RO18547290", CustomerVATID: "DE123456789",
			SupplyType: SupplyServices, Date: date,
		})
		require.NoError(t, err)
		assert.Equal(t, SchemeReverseCharge, tr.Scheme)
		assert.True(t, tr.ReverseCharge)
		assert.True(t, tr.Rate.IsZero())
		assert.Equal(t, CategoryReverseCharge, tr.Category)
	})

	t.Run("B2C digital uses customer rate", func(t *testing.T) {
		tr, err := DetermineTreatment(TreatmentInput{
			SupplierCountry: "RO", CustomerCountry: "HU",
			SupplierVATID: "RO18547290", SupplyType: SupplyDigital, Date: date,
		})
		require.NoError(t, err)
		assert.Equal(t, SchemeOSS, tr.Scheme)
		assert.True(t, tr.Rate.Equal(d("27")))
		assert.Equal(t, "HU", tr.RateCountry)
	})

	t.Run("B2C goods without OSS registration stay at origin", func(t *testing.T) {
		tr, err := DetermineTreatment(TreatmentInput{
			SupplierCountry: "RO", CustomerCountry: "FR", SupplyType: SupplyGoods, Date: date,
		})
		require.NoError(t, err)
		assert.Equal(t, SchemeDomestic, tr.Scheme)
		assert.True(t, tr.Rate.Equal(d("21")))
	})

	t.Run("B2C goods with OSS registration use destination", func(t *testing.T) {
		tr, err := DetermineTreatment(TreatmentInput{
			SupplierCountry: "RO", CustomerCountry: "FR", SupplyType: SupplyGoods,
			OSSRegistered: true, Date: date,
		})
		require.NoError(t, err)
		assert.Equal(t, SchemeDistanceSale, tr.Scheme)
		assert.True(t, tr.Rate.Equal(d("20")))
	})

	t.Run("non-EU customer is export", func(t *testing.T) {
		tr, err := DetermineTreatment(TreatmentInput{SupplierCountry: "RO", CustomerCountry: "US", Date: date})
		require.NoError(t, err)
		assert.Equal(t, SchemeExport, tr.Scheme)
		assert.True(t, tr.Rate.IsZero())
	})

	t.Run("non-EU supplier is rejected", func(t *testing.T) {
		_, err := DetermineTreatment(TreatmentInput{SupplierCountry: "CH", CustomerCountry: "RO"})
		assert.ErrorIs(t, err, ErrUnknownCountry)
	})
}

func TestIsReverseCharge(t *testing.T) {
	assert.True(t, IsReverseCharge("RO", "DE", "RO1", "DE1"))
	assert.False(t, IsReverseCharge("RO", "RO", "RO1", "RO2"))
	assert.False(t, IsReverseCharge("RO", "DE", "RO1", ""))
	assert.False(t, IsReverseCharge("RO", "US", "RO1", "US1"))
}

func TestCalculate(t *testing.T) {
	vat, gross := Calculate(d("100"), d("21"))
	assert.Equal(t, "21", vat.String())
	assert.Equal(t, "121", gross.String())

	vat, gross = Calculate(d("33.33"), d("19"))
	assert.Equal(t, "6.33", vat.String())
	assert.Equal(t, "39.66", gross.String())

	net, vat := ExtractVAT(d("121"), d("21"))
	assert.Equal(t, "100", net.String())
	assert.Equal(t, "21", vat.String())
}
