package saft

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/tax"
)

type ledgerAccount struct {
	ID          string `xml:"n1:AccountID"`
	Description string `xml:"n1:AccountDescription"`
	StandardID  string `xml:"n1:StandardAccountID"`
	Type        string `xml:"n1:AccountType"`
}

// ledgerAccounts is the subset of the Romanian chart of accounts the
// generated entries post to.
var ledgerAccounts = []ledgerAccount{
	{"401", "Furnizori", "401", "L"},
	{"4111", "Clienti", "4111", "A"},
	{"4423", "TVA de plata", "4423", "L"},
	{"4426", "TVA deductibila", "4426", "A"},
	{"4427", "TVA colectata", "4427", "L"},
	{"5121", "Conturi la banci in lei", "5121", "A"},
	{"5311", "Casa in lei", "5311", "A"},
	{"601", "Cheltuieli cu materiile prime", "601", "E"},
	{"607", "Cheltuieli privind marfurile", "607", "E"},
	{"628", "Alte cheltuieli cu serviciile", "628", "E"},
	{"641", "Cheltuieli cu salariile personalului", "641", "E"},
	{"701", "Venituri din vanzarea produselor", "701", "R"},
	{"704", "Venituri din servicii prestate", "704", "R"},
	{"707", "Venituri din vanzarea marfurilor", "707", "R"},
}

type auditFile struct {
	XMLName         xml.Name           `xml:"n1:AuditFile"`
	XmlnsN1         string             `xml:"xmlns:n1,attr"`
	XmlnsXSI        string             `xml:"xmlns:xsi,attr"`
	SchemaLocation  string             `xml:"xsi:schemaLocation,attr"`
	Header          headerXML          `xml:"n1:Header"`
	MasterFiles     masterFilesXML     `xml:"n1:MasterFiles"`
	LedgerEntries   ledgerEntriesXML   `xml:"n1:GeneralLedgerEntries"`
	SourceDocuments sourceDocumentsXML `xml:"n1:SourceDocuments"`
}

type headerXML struct {
	Version         string       `xml:"n1:AuditFileVersion"`
	Country         string       `xml:"n1:AuditFileCountry"`
	DateCreated     string       `xml:"n1:AuditFileDateCreated"`
	SoftwareCompany string       `xml:"n1:SoftwareCompanyName"`
	SoftwareID      string       `xml:"n1:SoftwareID"`
	SoftwareVersion string       `xml:"n1:SoftwareVersion"`
	Company         companyXML   `xml:"n1:Company"`
	Currency        string       `xml:"n1:DefaultCurrencyCode"`
	Selection       selectionXML `xml:"n1:SelectionCriteria"`
	Basis           string       `xml:"n1:TaxAccountingBasis"`
	Comment         string       `xml:"n1:HeaderComment"`
}

type companyXML struct {
	RegistrationNumber string          `xml:"n1:RegistrationNumber"`
	Name               string          `xml:"n1:Name"`
	Address            addressXML      `xml:"n1:Address"`
	Contact            contactXML      `xml:"n1:Contact"`
	TaxRegistration    taxRegXML       `xml:"n1:TaxRegistration"`
	BankAccount        *bankAccountXML `xml:"n1:BankAccount,omitempty"`
}

type addressXML struct {
	Street     string `xml:"n1:StreetName,omitempty"`
	Detail     string `xml:"n1:AddressDetail,omitempty"`
	City       string `xml:"n1:City"`
	PostalCode string `xml:"n1:PostalCode,omitempty"`
	Region     string `xml:"n1:Region,omitempty"`
	Country    string `xml:"n1:Country"`
}

type contactXML struct {
	Telephone string `xml:"n1:Telephone,omitempty"`
	Email     string `xml:"n1:Email,omitempty"`
}

type taxRegXML struct {
	Number    string `xml:"n1:TaxRegistrationNumber"`
	Type      string `xml:"n1:TaxType"`
	Authority string `xml:"n1:TaxAuthority"`
}

type bankAccountXML struct {
	IBAN     string `xml:"n1:IBANNumber"`
	Name     string `xml:"n1:BankAccountName,omitempty"`
	Currency string `xml:"n1:CurrencyCode"`
}

type selectionXML struct {
	StartDate   string `xml:"n1:SelectionStartDate"`
	EndDate     string `xml:"n1:SelectionEndDate"`
	PeriodStart string `xml:"n1:PeriodStart"`
	PeriodEnd   string `xml:"n1:PeriodEnd"`
}

type masterFilesXML struct {
	Accounts  accountsXML  `xml:"n1:GeneralLedgerAccounts"`
	Customers customersXML `xml:"n1:Customers"`
	Suppliers suppliersXML `xml:"n1:Suppliers"`
	TaxTable  taxTableXML  `xml:"n1:TaxTable"`
}

type accountsXML struct {
	Accounts []ledgerAccount `xml:"n1:Account"`
}

type customersXML struct {
	Count     int           `xml:"n1:NumberOfEntries"`
	Customers []customerXML `xml:"n1:Customer"`
}

type customerXML struct {
	ID        string     `xml:"n1:CustomerID"`
	AccountID string     `xml:"n1:AccountID"`
	TaxID     string     `xml:"n1:CustomerTaxID"`
	Name      string     `xml:"n1:CompanyName"`
	Address   addressXML `xml:"n1:BillingAddress"`
	SelfBill  string     `xml:"n1:SelfBillingIndicator"`
}

type suppliersXML struct {
	Count     int           `xml:"n1:NumberOfEntries"`
	Suppliers []supplierXML `xml:"n1:Supplier"`
}

type supplierXML struct {
	ID        string     `xml:"n1:SupplierID"`
	AccountID string     `xml:"n1:AccountID"`
	TaxID     string     `xml:"n1:SupplierTaxID"`
	Name      string     `xml:"n1:CompanyName"`
	Address   addressXML `xml:"n1:BillingAddress"`
	SelfBill  string     `xml:"n1:SelfBillingIndicator"`
}

type taxTableXML struct {
	Entries []taxEntryXML `xml:"n1:TaxTableEntry"`
}

type taxEntryXML struct {
	Type    string        `xml:"n1:TaxType"`
	Code    string        `xml:"n1:TaxCode"`
	Details taxDetailsXML `xml:"n1:TaxCodeDetails"`
}

type taxDetailsXML struct {
	Code        string `xml:"n1:TaxCode"`
	Description string `xml:"n1:Description"`
	Percentage  string `xml:"n1:TaxPercentage"`
	Country     string `xml:"n1:Country"`
	Standard    string `xml:"n1:StandardTaxCode"`
	BaseRate    string `xml:"n1:BaseRate"`
}

type ledgerEntriesXML struct {
	Count       int         `xml:"n1:NumberOfEntries"`
	TotalDebit  string      `xml:"n1:TotalDebit"`
	TotalCredit string      `xml:"n1:TotalCredit"`
	Journal     *journalXML `xml:"n1:Journal,omitempty"`
}

type journalXML struct {
	ID           string           `xml:"n1:JournalID"`
	Description  string           `xml:"n1:Description"`
	Type         string           `xml:"n1:Type"`
	Transactions []journalLineXML `xml:"n1:Transaction"`
}

type journalLineXML struct {
	JournalID     string    `xml:"n1:JournalID"`
	Description   string    `xml:"n1:Description"`
	Debit         amountXML `xml:"n1:DebitAmount"`
	Credit        amountXML `xml:"n1:CreditAmount"`
	AccountID     string    `xml:"n1:AccountID"`
	CustomerID    string    `xml:"n1:CustomerID,omitempty"`
	SupplierID    string    `xml:"n1:SupplierID,omitempty"`
	TransactionID string    `xml:"n1:TransactionID"`
	Date          string    `xml:"n1:TransactionDate"`
}

type amountXML struct {
	Amount   string `xml:"n1:Amount"`
	Currency string `xml:"n1:CurrencyCode,omitempty"`
}

type sourceDocumentsXML struct {
	Sales     invoicesXML `xml:"n1:SalesInvoices"`
	Purchases invoicesXML `xml:"n1:PurchaseInvoices"`
	Payments  paymentsXML `xml:"n1:Payments"`
}

type invoicesXML struct {
	Count       int          `xml:"n1:NumberOfEntries"`
	TotalDebit  string       `xml:"n1:TotalDebit"`
	TotalCredit string       `xml:"n1:TotalCredit"`
	Invoices    []invoiceXML `xml:"n1:Invoice"`
}

type invoiceXML struct {
	Number          string         `xml:"n1:InvoiceNo"`
	CustomerID      string         `xml:"n1:CustomerInfo>n1:CustomerID,omitempty"`
	SupplierID      string         `xml:"n1:SupplierInfo>n1:SupplierID,omitempty"`
	Period          string         `xml:"n1:Period"`
	Date            string         `xml:"n1:InvoiceDate"`
	Type            string         `xml:"n1:InvoiceType"`
	SourceID        string         `xml:"n1:SourceID"`
	PostingDate     string         `xml:"n1:GLPostingDate"`
	TransactionID   string         `xml:"n1:TransactionID"`
	SystemEntryDate string         `xml:"n1:SystemEntryDate"`
	Line            invoiceLineXML `xml:"n1:Line"`
	Totals          totalsXML      `xml:"n1:DocumentTotals"`
}

type invoiceLineXML struct {
	Number      int        `xml:"n1:LineNumber"`
	AccountID   string     `xml:"n1:AccountID"`
	Description string     `xml:"n1:ProductDescription"`
	Quantity    string     `xml:"n1:Quantity"`
	Unit        string     `xml:"n1:UnitOfMeasure"`
	UnitPrice   string     `xml:"n1:UnitPrice"`
	TaxPoint    string     `xml:"n1:TaxPointDate"`
	Debit       *amountXML `xml:"n1:DebitAmount,omitempty"`
	Credit      *amountXML `xml:"n1:CreditAmount,omitempty"`
	Tax         lineTaxXML `xml:"n1:Tax"`
}

type lineTaxXML struct {
	Type       string    `xml:"n1:TaxType"`
	Code       string    `xml:"n1:TaxCode"`
	Percentage string    `xml:"n1:TaxPercentage"`
	Base       string    `xml:"n1:TaxBase"`
	Amount     amountXML `xml:"n1:TaxAmount"`
}

type totalsXML struct {
	TaxPayable string            `xml:"n1:TaxPayable"`
	NetTotal   string            `xml:"n1:NetTotal"`
	GrossTotal string            `xml:"n1:GrossTotal"`
	Currency   *totalCurrencyXML `xml:"n1:Currency,omitempty"`
}

type totalCurrencyXML struct {
	Code         string `xml:"n1:CurrencyCode"`
	Amount       string `xml:"n1:CurrencyAmount,omitempty"`
	ExchangeRate string `xml:"n1:ExchangeRate,omitempty"`
}

type paymentsXML struct {
	Count       int          `xml:"n1:NumberOfEntries"`
	TotalDebit  string       `xml:"n1:TotalDebit"`
	TotalCredit string       `xml:"n1:TotalCredit"`
	Payments    []paymentXML `xml:"n1:Payment"`
}

type paymentXML struct {
	RefNo         string         `xml:"n1:PaymentRefNo"`
	Period        string         `xml:"n1:Period"`
	TransactionID string         `xml:"n1:TransactionID"`
	Date          string         `xml:"n1:TransactionDate"`
	Type          string         `xml:"n1:PaymentType"`
	Description   string         `xml:"n1:Description"`
	SystemID      string         `xml:"n1:SystemID"`
	Totals        totalsXML      `xml:"n1:DocumentTotals"`
	Line          paymentLineXML `xml:"n1:Line"`
}

type paymentLineXML struct {
	Number           int       `xml:"n1:LineNumber"`
	AccountID        string    `xml:"n1:AccountID"`
	SourceDocumentID string    `xml:"n1:SourceDocumentID,omitempty"`
	Debit            amountXML `xml:"n1:DebitAmount"`
}

func buildHeader(c *Company, period string, start, end, now time.Time) headerXML {
	company := companyXML{
		RegistrationNumber: c.CUI,
		Name:               c.Name,
		Address: addressXML{
			Street:     c.Street,
			City:       c.City,
			PostalCode: c.PostalCode,
			Region:     c.County,
			Country:    "RO",
		},
		Contact:         contactXML{Telephone: c.Phone, Email: c.Email},
		TaxRegistration: taxRegXML{Number: c.CUI, Type: "TVA", Authority: "ANAF"},
	}
	if c.IBAN != "" {
		company.BankAccount = &bankAccountXML{IBAN: c.IBAN, Name: c.BankName, Currency: "RON"}
	}
	return headerXML{
		Version:         "2.0",
		Country:         "RO",
		DateCreated:     date(now),
		SoftwareCompany: softwareName,
		SoftwareID:      softwareID,
		SoftwareVersion: softwareVersion,
		Company:         company,
		Currency:        "RON",
		Selection: selectionXML{
			StartDate:   date(start),
			EndDate:     date(end),
			PeriodStart: period,
			PeriodEnd:   period,
		},
		Basis:   "A",
		Comment: fmt.Sprintf("SAF-T D406 generat pentru perioada %s conform Ordinului 1783/2021", period),
	}
}

func buildCustomers(ps []partner) customersXML {
	out := customersXML{Count: len(ps)}
	for _, p := range ps {
		out.Customers = append(out.Customers, customerXML{
			ID: p.id, AccountID: "4111", TaxID: p.id, Name: p.name, SelfBill: "0",
			Address: addressXML{Detail: p.address, City: p.city, Country: p.country},
		})
	}
	return out
}

func buildSuppliers(ps []partner) suppliersXML {
	out := suppliersXML{Count: len(ps)}
	for _, p := range ps {
		out.Suppliers = append(out.Suppliers, supplierXML{
			ID: p.id, AccountID: "401", TaxID: p.id, Name: p.name, SelfBill: "0",
			Address: addressXML{Detail: p.address, City: p.city, Country: p.country},
		})
	}
	return out
}

// buildTaxTable lists the Romanian rates in force at the start of the period.
func buildTaxTable(start time.Time) taxTableXML {
	rates := tax.RomanianRates(start)
	entry := func(code, description string, pct decimal.Decimal) taxEntryXML {
		return taxEntryXML{Type: "TVA", Code: code, Details: taxDetailsXML{
			Code: code, Description: description, Percentage: money(pct),
			Country: "RO", Standard: code, BaseRate: "100.00",
		}}
	}
	t := taxTableXML{Entries: []taxEntryXML{
		entry("S", fmt.Sprintf("TVA standard %s%%", rates.Standard), rates.Standard),
	}}
	for i, r := range rates.Reduced {
		code := fmt.Sprintf("R%d", i+1)
		t.Entries = append(t.Entries, entry(code, fmt.Sprintf("TVA redus %s%%", r), r))
	}
	t.Entries = append(t.Entries,
		entry("Z", "TVA 0% - export/intracomunitar", decimal.Zero),
		entry("E", "Scutit de TVA", decimal.Zero),
	)
	return t
}

func buildLedger(in Input, period string) ledgerEntriesXML {
	var lines []journalLineXML
	debit, credit := decimal.Zero, decimal.Zero
	zero := amountXML{Amount: "0.00"}
	for _, inv := range in.Sales {
		credit = credit.Add(inv.Gross)
		lines = append(lines, journalLineXML{
			JournalID: "VZ", Description: "Factura vanzare " + inv.Number,
			Debit: zero, Credit: amountXML{Amount: money(inv.Gross)},
			AccountID: "4111", CustomerID: inv.PartnerCUI, TransactionID: inv.ID, Date: date(inv.Date),
		})
	}
	for _, inv := range in.Purchases {
		debit = debit.Add(inv.Gross)
		lines = append(lines, journalLineXML{
			JournalID: "CP", Description: "Factura achizitie " + inv.Number,
			Debit: amountXML{Amount: money(inv.Gross)}, Credit: zero,
			AccountID: "401", SupplierID: inv.PartnerCUI, TransactionID: inv.ID, Date: date(inv.Date),
		})
	}
	for _, p := range in.Payments {
		debit = debit.Add(p.Amount.Abs())
		credit = credit.Add(p.Amount.Abs())
	}
	out := ledgerEntriesXML{Count: len(lines), TotalDebit: money(debit), TotalCredit: money(credit)}
	if len(lines) > 0 {
		out.Journal = &journalXML{ID: "GEN", Description: "Registru jurnal " + period, Type: "GEN", Transactions: lines}
	}
	return out
}

func buildInvoices(invoices []Invoice, sales bool, now time.Time) invoicesXML {
	total := decimal.Zero
	out := invoicesXML{Count: len(invoices)}
	for _, inv := range invoices {
		total = total.Add(inv.Gross)
		out.Invoices = append(out.Invoices, buildInvoice(inv, sales, now))
	}
	if sales {
		out.TotalDebit, out.TotalCredit = "0.00", money(total)
	} else {
		out.TotalDebit, out.TotalCredit = money(total), "0.00"
	}
	return out
}

func buildInvoice(inv Invoice, sales bool, now time.Time) invoiceXML {
	cur := inv.Currency
	if cur == "" {
		cur = "RON"
	}
	code, rate := taxCode(inv.Net, inv.VAT)
	desc := inv.Description
	if desc == "" {
		desc = "Servicii/Produse"
	}
	entered := inv.CreatedAt
	if entered.IsZero() {
		entered = now
	}
	number := inv.Number
	if number == "" {
		number = inv.ID
	}

	x := invoiceXML{
		Number:          number,
		Period:          inv.Date.Format("2006-01"),
		Date:            date(inv.Date),
		Type:            invoiceType(inv.Type),
		SourceID:        softwareName,
		PostingDate:     date(inv.Date),
		TransactionID:   inv.ID,
		SystemEntryDate: date(entered),
		Line: invoiceLineXML{
			Number:      1,
			Description: desc,
			Quantity:    "1",
			Unit:        "BUC",
			UnitPrice:   money(inv.Net),
			TaxPoint:    date(inv.Date),
			Tax: lineTaxXML{
				Type:       "TVA",
				Code:       code,
				Percentage: money(rate),
				Base:       money(inv.Net),
				Amount:     amountXML{Amount: money(inv.VAT), Currency: cur},
			},
		},
		Totals: totalsXML{
			TaxPayable: money(inv.VAT),
			NetTotal:   money(inv.Net),
			GrossTotal: money(inv.Gross),
			Currency:   &totalCurrencyXML{Code: cur, Amount: money(inv.Gross), ExchangeRate: "1.0000"},
		},
	}
	gross := &amountXML{Amount: money(inv.Gross), Currency: cur}
	if sales {
		x.CustomerID = inv.PartnerCUI
		x.Line.AccountID = "4111"
		x.Line.Credit = gross
	} else {
		x.SupplierID = inv.PartnerCUI
		x.Line.AccountID = "401"
		x.Line.Debit = gross
	}
	return x
}

func buildPayments(payments []Payment) paymentsXML {
	total := decimal.Zero
	out := paymentsXML{Count: len(payments)}
	for _, p := range payments {
		amt := p.Amount.Abs()
		total = total.Add(amt)
		ref := p.Reference
		if ref == "" {
			ref = p.ID
		}
		desc := p.Description
		if desc == "" {
			desc = "Plată"
		}
		cur := p.Currency
		if cur == "" {
			cur = "RON"
		}
		account := "5121"
		if p.Method == "cash" {
			account = "5311"
		}
		out.Payments = append(out.Payments, paymentXML{
			RefNo:         ref,
			Period:        p.Date.Format("2006-01"),
			TransactionID: p.ID,
			Date:          date(p.Date),
			Type:          paymentType(p.Method),
			Description:   desc,
			SystemID:      softwareName,
			Totals: totalsXML{
				TaxPayable: "0.00",
				NetTotal:   money(amt),
				GrossTotal: money(amt),
				Currency:   &totalCurrencyXML{Code: cur},
			},
			Line: paymentLineXML{
				Number:           1,
				AccountID:        account,
				SourceDocumentID: p.InvoiceID,
				Debit:            amountXML{Amount: money(amt)},
			},
		})
	}
	out.TotalDebit = money(total)
	out.TotalCredit = money(total)
	return out
}
