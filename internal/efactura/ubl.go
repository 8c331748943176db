// Package efactura renders invoices as UBL 2.1 XML following the Romanian
// CIUS-RO profile accepted by the ANAF e-Factura system, and checks the
// fields ANAF rejects when missing.
package efactura

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/cui"
)

const (
	NamespaceInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NamespaceCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	CustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:efactura.mfinante.ro:CIUS-RO:1.0.1"
	ProfileID       = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"
)

// TypeCode maps an invoice type to its UNTDID 1001 code. Unknown types are
// commercial invoices.
func TypeCode(invoiceType string) string {
	switch invoiceType {
	case "credit_note":
		return "381"
	case "debit_note":
		return "383"
	case "corrective":
		return "384"
	case "self_billing":
		return "389"
	default:
		return "380"
	}
}

// PaymentMeansCode maps a payment method to its UNTDID 4461 code. Bank
// transfer is the default.
func PaymentMeansCode(method string) string {
	switch method {
	case "cash":
		return "10"
	case "debit_transfer":
		return "31"
	case "card", "bank_card":
		return "48"
	case "direct_debit":
		return "49"
	default:
		return "30"
	}
}

// Party is a seller or buyer as printed on the invoice.
type Party struct {
	Name       string
	CUI        string
	RegCom     string
	Street     string
	City       string
	County     string
	PostalCode string
	Country    string
	Email      string
	Phone      string
	VATPayer   bool
}

// Line is one invoiced item. Net amounts are quantity times unit price.
type Line struct {
	Name         string
	Description  string
	SellerItemID string
	Quantity     decimal.Decimal
	Unit         string
	UnitPrice    decimal.Decimal
	VATRate      decimal.Decimal
	VATCategory  string
}

// Document is everything needed to render one e-Factura XML.
type Document struct {
	Number        string
	Type          string
	IssueDate     time.Time
	DueDate       time.Time
	Currency      string
	Note          string
	PaymentMethod string
	IBAN          string
	BankName      string
	Prepaid       decimal.Decimal
	Seller        Party
	Buyer         Party
	Lines         []Line
}

// Totals are the monetary totals the XML carries.
type Totals struct {
	LineExtension decimal.Decimal
	TaxAmount     decimal.Decimal
	TaxInclusive  decimal.Decimal
	Payable       decimal.Decimal
	Subtotals     []TaxGroup
}

type TaxGroup struct {
	Category string
	Rate     decimal.Decimal
	Taxable  decimal.Decimal
	Tax      decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals groups lines by VAT category and rate. VAT is computed per
// group on the rounded taxable base, as EN16931 rule BR-CO-17 requires.
func ComputeTotals(doc Document) Totals {
	groups := map[string]*TaxGroup{}
	var keys []string
	lineExt := decimal.Zero
	for _, l := range doc.Lines {
		net := l.Quantity.Mul(l.UnitPrice).Round(2)
		lineExt = lineExt.Add(net)
		cat := category(l)
		k := cat + "|" + l.VATRate.StringFixed(2)
		g, ok := groups[k]
		if !ok {
			g = &TaxGroup{Category: cat, Rate: l.VATRate, Taxable: decimal.Zero}
			groups[k] = g
			keys = append(keys, k)
		}
		g.Taxable = g.Taxable.Add(net)
	}
	sort.Strings(keys)

	t := Totals{LineExtension: lineExt, TaxAmount: decimal.Zero}
	for _, k := range keys {
		g := groups[k]
		g.Tax = g.Taxable.Mul(g.Rate).Div(hundred).Round(2)
		t.TaxAmount = t.TaxAmount.Add(g.Tax)
		t.Subtotals = append(t.Subtotals, *g)
	}
	t.TaxInclusive = lineExt.Add(t.TaxAmount)
	t.Payable = t.TaxInclusive.Sub(doc.Prepaid)
	return t
}

func category(l Line) string {
	if l.VATCategory != "" {
		return l.VATCategory
	}
	if l.VATRate.IsZero() {
		return "Z"
	}
	return "S"
}

// CleanCUI strips everything but letters and digits and drops the RO prefix.
func CleanCUI(raw string) string {
	return cui.Clean(raw)
}

// Build renders doc as CIUS-RO UBL XML, including the XML declaration.
func Build(doc Document) ([]byte, error) {
	if doc.Currency == "" {
		doc.Currency = "RON"
	}
	totals := ComputeTotals(doc)
	cur := doc.Currency

	inv := invoiceXML{
		XmlnsCAC:        NamespaceCAC,
		XmlnsCBC:        NamespaceCBC,
		CustomizationID: CustomizationID,
		ProfileID:       ProfileID,
		ID:              doc.Number,
		IssueDate:       doc.IssueDate.Format(time.DateOnly),
		InvoiceTypeCode: TypeCode(doc.Type),
		Note:            doc.Note,
		Currency:        cur,
		Supplier:        partyBlock{Party: buildParty(doc.Seller, true)},
		Customer:        partyBlock{Party: buildParty(doc.Buyer, false)},
		PaymentMeans:    buildPaymentMeans(doc),
	}
	if !doc.DueDate.IsZero() {
		inv.DueDate = doc.DueDate.Format(time.DateOnly)
		days := int(doc.DueDate.Sub(doc.IssueDate).Hours() / 24)
		inv.PaymentTerms = &paymentTermsXML{Note: fmt.Sprintf("Scadent in %d zile de la data emiterii", days)}
	}

	tt := taxTotalXML{TaxAmount: amount(totals.TaxAmount, cur)}
	for _, g := range totals.Subtotals {
		sub := taxSubtotalXML{
			TaxableAmount: amount(g.Taxable, cur),
			TaxAmount:     amount(g.Tax, cur),
			TaxCategory: taxCategoryXML{
				ID:        g.Category,
				Percent:   g.Rate.StringFixed(2),
				TaxScheme: taxSchemeXML{ID: "VAT"},
			},
		}
		if reason := exemptionReason(g.Category); reason != "" {
			sub.TaxCategory.ExemptionReasonCode = reason
		}
		tt.Subtotals = append(tt.Subtotals, sub)
	}
	inv.TaxTotal = tt

	inv.Monetary = monetaryXML{
		LineExtension: amount(totals.LineExtension, cur),
		TaxExclusive:  amount(totals.LineExtension, cur),
		TaxInclusive:  amount(totals.TaxInclusive, cur),
		Payable:       amount(totals.Payable, cur),
	}
	if !doc.Prepaid.IsZero() {
		p := amount(doc.Prepaid, cur)
		inv.Monetary.Prepaid = &p
	}

	for i, l := range doc.Lines {
		unit := l.Unit
		if unit == "" {
			unit = "H87"
		}
		name := l.Name
		if name == "" {
			name = l.Description
		}
		line := invoiceLineXML{
			ID:            fmt.Sprintf("%d", i+1),
			Quantity:      quantityXML{UnitCode: unit, Value: l.Quantity.StringFixed(2)},
			LineExtension: amount(l.Quantity.Mul(l.UnitPrice), cur),
			Item: itemXML{
				Name:     name,
				Category: taxCategoryXML{ID: category(l), Percent: l.VATRate.StringFixed(2), TaxScheme: taxSchemeXML{ID: "VAT"}},
			},
			Price: priceXML{PriceAmount: amount(l.UnitPrice, cur)},
		}
		if l.Description != "" && l.Description != name {
			line.Item.Description = l.Description
		}
		if l.SellerItemID != "" {
			line.Item.SellersItemID = &idXML{ID: l.SellerItemID}
		}
		inv.Lines = append(inv.Lines, line)
	}

	out, err := xml.MarshalIndent(inv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal ubl: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func exemptionReason(cat string) string {
	switch cat {
	case "AE":
		return "VATEX-EU-AE"
	case "K":
		return "VATEX-EU-IC"
	case "G":
		return "VATEX-EU-G"
	default:
		return ""
	}
}

func buildParty(p Party, seller bool) partyXML {
	id := CleanCUI(p.CUI)
	country := strings.ToUpper(p.Country)
	if country == "" {
		country = "RO"
	}
	px := partyXML{
		PartyName: nameXML{Name: p.Name},
		PostalAddress: addressXML{
			Street:      p.Street,
			City:        p.City,
			PostalZone:  p.PostalCode,
			Subentity:   countrySubentity(country, p.County),
			CountryCode: countryXML{Code: country},
		},
		LegalEntity: legalEntityXML{RegistrationName: orNA(p.Name), CompanyID: p.RegCom},
	}
	if id != "" {
		px.EndpointID = &endpointXML{SchemeID: "9947", Value: id}
		px.Identification = &idXML{ID: id}
		if p.VATPayer || seller {
			taxID := id
			if p.VATPayer && country == "RO" {
				taxID = "RO" + id
			}
			px.TaxScheme = &partyTaxSchemeXML{CompanyID: taxID, TaxScheme: taxSchemeXML{ID: "VAT"}}
		}
	}
	if p.Email != "" || p.Phone != "" {
		px.Contact = &contactXML{Telephone: p.Phone, Email: p.Email}
	}
	return px
}

// countrySubentity formats Romanian counties as ISO 3166-2 codes (RO-B, RO-CJ).
func countrySubentity(country, county string) string {
	county = strings.TrimSpace(county)
	if country != "RO" || county == "" {
		return county
	}
	up := strings.ToUpper(county)
	if strings.HasPrefix(up, "RO-") {
		return up
	}
	if len(up) <= 2 {
		return "RO-" + up
	}
	return county
}

func buildPaymentMeans(doc Document) paymentMeansXML {
	pm := paymentMeansXML{Code: PaymentMeansCode(doc.PaymentMethod)}
	if doc.IBAN != "" {
		pm.PayeeAccount = &financialAccountXML{ID: strings.ReplaceAll(doc.IBAN, " ", ""), Name: doc.BankName}
	}
	return pm
}

func amount(v decimal.Decimal, currency string) amountXML {
	return amountXML{Currency: currency, Value: v.StringFixed(2)}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

type invoiceXML struct {
	XMLName         xml.Name         `xml:"urn:oasis:names:specification:ubl:schema:xsd:Invoice-2 Invoice"`
	XmlnsCAC        string           `xml:"xmlns:cac,attr"`
	XmlnsCBC        string           `xml:"xmlns:cbc,attr"`
	CustomizationID string           `xml:"cbc:CustomizationID"`
	ProfileID       string           `xml:"cbc:ProfileID"`
	ID              string           `xml:"cbc:ID"`
	IssueDate       string           `xml:"cbc:IssueDate"`
	DueDate         string           `xml:"cbc:DueDate,omitempty"`
	InvoiceTypeCode string           `xml:"cbc:InvoiceTypeCode"`
	Note            string           `xml:"cbc:Note,omitempty"`
	Currency        string           `xml:"cbc:DocumentCurrencyCode"`
	Supplier        partyBlock       `xml:"cac:AccountingSupplierParty"`
	Customer        partyBlock       `xml:"cac:AccountingCustomerParty"`
	PaymentMeans    paymentMeansXML  `xml:"cac:PaymentMeans"`
	PaymentTerms    *paymentTermsXML `xml:"cac:PaymentTerms,omitempty"`
	TaxTotal        taxTotalXML      `xml:"cac:TaxTotal"`
	Monetary        monetaryXML      `xml:"cac:LegalMonetaryTotal"`
	Lines           []invoiceLineXML `xml:"cac:InvoiceLine"`
}

type partyBlock struct {
	Party partyXML `xml:"cac:Party"`
}

type partyXML struct {
	EndpointID     *endpointXML       `xml:"cbc:EndpointID,omitempty"`
	Identification *idXML             `xml:"cac:PartyIdentification,omitempty"`
	PartyName      nameXML            `xml:"cac:PartyName"`
	PostalAddress  addressXML         `xml:"cac:PostalAddress"`
	TaxScheme      *partyTaxSchemeXML `xml:"cac:PartyTaxScheme,omitempty"`
	LegalEntity    legalEntityXML     `xml:"cac:PartyLegalEntity"`
	Contact        *contactXML        `xml:"cac:Contact,omitempty"`
}

type endpointXML struct {
	SchemeID string `xml:"schemeID,attr"`
	Value    string `xml:",chardata"`
}

type idXML struct {
	ID string `xml:"cbc:ID"`
}

type nameXML struct {
	Name string `xml:"cbc:Name"`
}

type addressXML struct {
	Street      string     `xml:"cbc:StreetName,omitempty"`
	City        string     `xml:"cbc:CityName,omitempty"`
	PostalZone  string     `xml:"cbc:PostalZone,omitempty"`
	Subentity   string     `xml:"cbc:CountrySubentity,omitempty"`
	CountryCode countryXML `xml:"cac:Country"`
}

type countryXML struct {
	Code string `xml:"cbc:IdentificationCode"`
}

type partyTaxSchemeXML struct {
	CompanyID string       `xml:"cbc:CompanyID"`
	TaxScheme taxSchemeXML `xml:"cac:TaxScheme"`
}

type taxSchemeXML struct {
	ID string `xml:"cbc:ID"`
}

type legalEntityXML struct {
	RegistrationName string `xml:"cbc:RegistrationName"`
	CompanyID        string `xml:"cbc:CompanyID,omitempty"`
}

type contactXML struct {
	Telephone string `xml:"cbc:Telephone,omitempty"`
	Email     string `xml:"cbc:ElectronicMail,omitempty"`
}

type paymentMeansXML struct {
	Code         string               `xml:"cbc:PaymentMeansCode"`
	PayeeAccount *financialAccountXML `xml:"cac:PayeeFinancialAccount,omitempty"`
}

type financialAccountXML struct {
	ID   string `xml:"cbc:ID"`
	Name string `xml:"cbc:Name,omitempty"`
}

type paymentTermsXML struct {
	Note string `xml:"cbc:Note"`
}

type amountXML struct {
	Currency string `xml:"currencyID,attr"`
	Value    string `xml:",chardata"`
}

type quantityXML struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}

type taxTotalXML struct {
	TaxAmount amountXML        `xml:"cbc:TaxAmount"`
	Subtotals []taxSubtotalXML `xml:"cac:TaxSubtotal"`
}

type taxSubtotalXML struct {
	TaxableAmount amountXML      `xml:"cbc:TaxableAmount"`
	TaxAmount     amountXML      `xml:"cbc:TaxAmount"`
	TaxCategory   taxCategoryXML `xml:"cac:TaxCategory"`
}

type taxCategoryXML struct {
	ID                  string       `xml:"cbc:ID"`
	Percent             string       `xml:"cbc:Percent"`
	ExemptionReasonCode string       `xml:"cbc:TaxExemptionReasonCode,omitempty"`
	TaxScheme           taxSchemeXML `xml:"cac:TaxScheme"`
}

type monetaryXML struct {
	LineExtension amountXML  `xml:"cbc:LineExtensionAmount"`
	TaxExclusive  amountXML  `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusive  amountXML  `xml:"cbc:TaxInclusiveAmount"`
	Prepaid       *amountXML `xml:"cbc:PrepaidAmount,omitempty"`
	Payable       amountXML  `xml:"cbc:PayableAmount"`
}

type invoiceLineXML struct {
	ID            string      `xml:"cbc:ID"`
	Quantity      quantityXML `xml:"cbc:InvoicedQuantity"`
	LineExtension amountXML   `xml:"cbc:LineExtensionAmount"`
	Item          itemXML     `xml:"cac:Item"`
	Price         priceXML    `xml:"cac:Price"`
}

type itemXML struct {
	Description   string         `xml:"cbc:Description,omitempty"`
	Name          string         `xml:"cbc:Name"`
	SellersItemID *idXML         `xml:"cac:SellersItemIdentification,omitempty"`
	Category      taxCategoryXML `xml:"cac:ClassifiedTaxCategory"`
}

type priceXML struct {
	PriceAmount amountXML `xml:"cbc:PriceAmount"`
}
