// Package tax holds the EU VAT rate tables and the rules that pick a VAT
// treatment for a supply (domestic, reverse charge, OSS, export).
package tax

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCountry = errors.New("country is not an EU member state")
	ErrNoSuchRate     = errors.New("country has no rate of that kind")
)

// Category is the EN16931 VAT category code.
type Category string

const (
	CategoryStandard      Category = "S"
	CategoryZero          Category = "Z"
	CategoryExempt        Category = "E"
	CategoryReverseCharge Category = "AE"
	CategoryIntraEU       Category = "K"
	CategoryExport        Category = "G"
)

// RatePeriod is a set of rates effective from a given day (inclusive).
type RatePeriod struct {
	From         time.Time
	Standard     decimal.Decimal
	Reduced      []decimal.Decimal
	SuperReduced *decimal.Decimal
	Parking      *decimal.Decimal
}

// Country describes an EU member state's VAT regime over time.
type Country struct {
	Code     string
	Name     string
	Currency string
	Periods  []RatePeriod
}

// At returns the rate period effective on date.
func (c Country) At(date time.Time) RatePeriod {
	// compare calendar days, not instants, so a local midnight is not
	// pushed into the previous day by its UTC offset
	date = day(date.Year(), date.Month(), date.Day())
	p := c.Periods[0]
	for _, candidate := range c.Periods {
		if !date.Before(candidate.From) {
			p = candidate
		}
	}
	return p
}

// RomaniaRateChange is the day Legea 141/2025 moved the standard rate to 21%
// and merged the 9% reduced rate into 11%.
var RomaniaRateChange = day(2025, time.August, 1)

var countries = map[string]Country{
	"AT": single("AT", "Austria", "EUR", "20", "10", "13"),
	"BE": single("BE", "Belgium", "EUR", "21", "6", "12"),
	"BG": single("BG", "Bulgaria", "BGN", "20", "9"),
	"HR": single("HR", "Croatia", "EUR", "25", "5", "13"),
	"CY": single("CY", "Cyprus", "EUR", "19", "5", "9"),
	"CZ": single("CZ", "Czechia", "CZK", "21", "12"),
	"DK": single("DK", "Denmark", "DKK", "25"),
	"EE": {
		Code: "EE", Name: "Estonia", Currency: "EUR",
		Periods: []RatePeriod{
			{From: day(2024, time.January, 1), Standard: d("22"), Reduced: ds("9", "5")},
			{From: day(2025, time.July, 1), Standard: d("24"), Reduced: ds("9", "13")},
		},
	},
	"FI": {
		Code: "FI", Name: "Finland", Currency: "EUR",
		Periods: []RatePeriod{
			{From: day(2013, time.January, 1), Standard: d("24"), Reduced: ds("10", "14")},
			{From: day(2024, time.September, 1), Standard: d("25.5"), Reduced: ds("10", "14")},
		},
	},
	"FR": withSuper(single("FR", "France", "EUR", "20", "5.5", "10"), "2.1"),
	"DE": single("DE", "Germany", "EUR", "19", "7"),
	"GR": single("GR", "Greece", "EUR", "24", "6", "13"),
	"HU": single("HU", "Hungary", "HUF", "27", "5", "18"),
	"IE": withParking(withSuper(single("IE", "Ireland", "EUR", "23", "9", "13.5"), "4.8"), "13.5"),
	"IT": withSuper(single("IT", "Italy", "EUR", "22", "5", "10"), "4"),
	"LV": single("LV", "Latvia", "EUR", "21", "5", "12"),
	"LT": single("LT", "Lithuania", "EUR", "21", "5", "9"),
	"LU": withParking(withSuper(single("LU", "Luxembourg", "EUR", "17", "8"), "3"), "14"),
	"MT": single("MT", "Malta", "EUR", "18", "5", "7"),
	"NL": single("NL", "Netherlands", "EUR", "21", "9"),
	"PL": single("PL", "Poland", "PLN", "23", "5", "8"),
	"PT": withParking(single("PT", "Portugal", "EUR", "23", "6", "13"), "13"),
	"RO": {
		Code: "RO", Name: "Romania", Currency: "RON",
		Periods: []RatePeriod{
			{From: day(2017, time.January, 1), Standard: d("19"), Reduced: ds("9", "5")},
			{From: RomaniaRateChange, Standard: d("21"), Reduced: ds("11", "5")},
		},
	},
	"SK": {
		Code: "SK", Name: "Slovakia", Currency: "EUR",
		Periods: []RatePeriod{
			{From: day(2011, time.January, 1), Standard: d("20"), Reduced: ds("10")},
			{From: day(2025, time.January, 1), Standard: d("23"), Reduced: ds("5", "19")},
		},
	},
	"SI": single("SI", "Slovenia", "EUR", "22", "5", "9.5"),
	"ES": withSuper(single("ES", "Spain", "EUR", "21", "10"), "4"),
	"SE": single("SE", "Sweden", "SEK", "25", "6", "12"),
}

// Lookup returns the VAT regime of an EU member state by ISO-3166 alpha-2 code.
// Greece is also accepted under its VAT prefix "EL".
func Lookup(code string) (Country, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "EL" {
		code = "GR"
	}
	c, ok := countries[code]
	if !ok {
		return Country{}, ErrUnknownCountry
	}
	return c, nil
}

// IsEU reports whether code names an EU member state.
func IsEU(code string) bool {
	_, err := Lookup(code)
	return err == nil
}

// Countries returns all member states sorted by code.
func Countries() []Country {
	out := make([]Country, 0, len(countries))
	for _, c := range countries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// StandardRate returns the standard rate of a country on a date.
func StandardRate(code string, date time.Time) (decimal.Decimal, error) {
	c, err := Lookup(code)
	if err != nil {
		return decimal.Zero, err
	}
	return c.At(date).Standard, nil
}

// RateKind selects one of a country's rates.
type RateKind string

const (
	RateStandard     RateKind = "standard"
	RateReduced      RateKind = "reduced"   // first listed reduced rate
	RateReduced2     RateKind = "reduced_2" // second listed reduced rate
	RateSuperReduced RateKind = "super_reduced"
	RateParking      RateKind = "parking"
	RateZero         RateKind = "zero"
)

// Rate returns the rate of the given kind effective in a country on date.
func Rate(code string, kind RateKind, date time.Time) (decimal.Decimal, error) {
	c, err := Lookup(code)
	if err != nil {
		return decimal.Zero, err
	}
	p := c.At(date)
	switch kind {
	case RateStandard, "":
		return p.Standard, nil
	case RateZero:
		return decimal.Zero, nil
	case RateReduced:
		if len(p.Reduced) > 0 {
			return p.Reduced[0], nil
		}
	case RateReduced2:
		if len(p.Reduced) > 1 {
			return p.Reduced[1], nil
		}
	case RateSuperReduced:
		if p.SuperReduced != nil {
			return *p.SuperReduced, nil
		}
	case RateParking:
		if p.Parking != nil {
			return *p.Parking, nil
		}
	}
	return decimal.Zero, ErrNoSuchRate
}

// RomanianRates returns the Romanian rates effective on date.
func RomanianRates(date time.Time) RatePeriod {
	return countries["RO"].At(date)
}

// IsValidRomanianRate reports whether rate is a legal Romanian VAT rate on
// date (standard, one of the reduced rates, or zero).
func IsValidRomanianRate(rate decimal.Decimal, date time.Time) bool {
	if rate.IsZero() {
		return true
	}
	p := RomanianRates(date)
	if rate.Equal(p.Standard) {
		return true
	}
	for _, r := range p.Reduced {
		if rate.Equal(r) {
			return true
		}
	}
	return false
}

// CarryRomanianRate maps a rate that was legal on from to the rate in the
// same slot (standard or n-th reduced) on to. Rates that fill no slot on
// from come back unchanged.
func CarryRomanianRate(rate decimal.Decimal, from, to time.Time) decimal.Decimal {
	old, cur := RomanianRates(from), RomanianRates(to)
	if rate.Equal(old.Standard) {
		return cur.Standard
	}
	for i, r := range old.Reduced {
		if rate.Equal(r) && i < len(cur.Reduced) {
			return cur.Reduced[i]
		}
	}
	return rate
}

func single(code, name, currency, standard string, reduced ...string) Country {
	return Country{
		Code: code, Name: name, Currency: currency,
		Periods: []RatePeriod{{From: day(2000, time.January, 1), Standard: d(standard), Reduced: ds(reduced...)}},
	}
}

func withSuper(c Country, rate string) Country {
	v := d(rate)
	for i := range c.Periods {
		c.Periods[i].SuperReduced = &v
	}
	return c
}

func withParking(c Country, rate string) Country {
	v := d(rate)
	for i := range c.Periods {
		c.Periods[i].Parking = &v
	}
	return c
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ds(ss ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(ss))
	for _, s := range ss {
		out = append(out, d(s))
	}
	return out
}
