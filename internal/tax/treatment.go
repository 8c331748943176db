package tax

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SupplyType classifies what is being sold. Digital, telecom and broadcast
// services sold to consumers are taxed at the customer's rate under OSS.
type SupplyType string

const (
	SupplyGoods     SupplyType = "goods"
	SupplyServices  SupplyType = "services"
	SupplyDigital   SupplyType = "digital"
	SupplyTelecom   SupplyType = "telecom"
	SupplyBroadcast SupplyType = "broadcast"
)

// Scheme names the rule that produced a Treatment.
type Scheme string

const (
	SchemeDomestic      Scheme = "domestic"
	SchemeReverseCharge Scheme = "reverse_charge"
	SchemeOSS           Scheme = "oss"
	SchemeDistanceSale  Scheme = "distance_sale"
	SchemeExport        Scheme = "export"
)

// TreatmentInput describes the parties and the supply.
type TreatmentInput struct {
	SupplierCountry string
	CustomerCountry string
	SupplierVATID   string
	CustomerVATID   string
	SupplyType      SupplyType
	// OSSRegistered switches B2C goods sales to the destination rate.
	OSSRegistered bool
	Date          time.Time
}

// Treatment is the VAT outcome for a supply.
type Treatment struct {
	Scheme        Scheme          `json:"scheme"`
	Category      Category        `json:"category"`
	Rate          decimal.Decimal `json:"rate"`
	RateCountry   string          `json:"rate_country"`
	ReverseCharge bool            `json:"reverse_charge"`
	Note          string          `json:"note,omitempty"`
}

// DetermineTreatment applies the EU place-of-supply rules.
func DetermineTreatment(in TreatmentInput) (Treatment, error) {
	supplier := normCountry(in.SupplierCountry)
	customer := normCountry(in.CustomerCountry)
	if customer == "" {
		customer = supplier
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	supplierRegime, err := Lookup(supplier)
	if err != nil {
		return Treatment{}, err
	}

	if supplier == customer {
		return Treatment{
			Scheme:      SchemeDomestic,
			Category:    CategoryStandard,
			Rate:        supplierRegime.At(in.Date).Standard,
			RateCountry: supplier,
		}, nil
	}

	if !IsEU(customer) {
		return Treatment{
			Scheme:      SchemeExport,
			Category:    CategoryExport,
			Rate:        decimal.Zero,
			RateCountry: customer,
			Note:        "Scutit cu drept de deducere (export)",
		}, nil
	}

	if isB2B(in) {
		return Treatment{
			Scheme:        SchemeReverseCharge,
			Category:      CategoryReverseCharge,
			Rate:          decimal.Zero,
			RateCountry:   customer,
			ReverseCharge: true,
			Note:          "Taxare inversă",
		}, nil
	}

	customerRegime, _ := Lookup(customer)
	switch in.SupplyType {
	case SupplyDigital, SupplyTelecom, SupplyBroadcast:
		return Treatment{
			Scheme:      SchemeOSS,
			Category:    CategoryStandard,
			Rate:        customerRegime.At(in.Date).Standard,
			RateCountry: customer,
			Note:        "OSS",
		}, nil
	}

	if in.SupplyType == SupplyGoods && in.OSSRegistered {
		return Treatment{
			Scheme:      SchemeDistanceSale,
			Category:    CategoryStandard,
			Rate:        customerRegime.At(in.Date).Standard,
			RateCountry: customer,
			Note:        "OSS",
		}, nil
	}

	return Treatment{
		Scheme:      SchemeDomestic,
		Category:    CategoryStandard,
		Rate:        supplierRegime.At(in.Date).Standard,
		RateCountry: supplier,
	}, nil
}

// IsReverseCharge is the intra-EU B2B test: both parties identified for VAT
// and located in different member states.
func IsReverseCharge(supplierCountry, customerCountry, supplierVATID, customerVATID string) bool {
	s, c := normCountry(supplierCountry), normCountry(customerCountry)
	if s == c || !IsEU(s) || !IsEU(c) {
		return false
	}
	return strings.TrimSpace(supplierVATID) != "" && strings.TrimSpace(customerVATID) != ""
}

func isB2B(in TreatmentInput) bool {
	return strings.TrimSpace(in.SupplierVATID) != "" && strings.TrimSpace(in.CustomerVATID) != ""
}

func normCountry(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "EL" {
		return "GR"
	}
	return c
}

var hundred = decimal.NewFromInt(100)

// Calculate returns the VAT and gross amounts for a net amount at rate
// percent, rounded half away from zero to 2 decimals.
func Calculate(net, rate decimal.Decimal) (vat, gross decimal.Decimal) {
	vat = net.Mul(rate).Div(hundred).Round(2)
	gross = net.Round(2).Add(vat)
	return vat, gross
}

// ExtractVAT splits a gross amount that already includes VAT at rate percent.
func ExtractVAT(gross, rate decimal.Decimal) (net, vat decimal.Decimal) {
	net = gross.Mul(hundred).Div(hundred.Add(rate)).Round(2)
	vat = gross.Sub(net)
	return net, vat
}
