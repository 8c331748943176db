package efactura

import (
	"strings"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/cui"
)

// ValidationResult lists blocking errors and non-blocking warnings.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks the fields ANAF requires before an upload is attempted.
func Validate(doc Document) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	switch {
	case blank(doc.Seller.CUI):
		res.Errors = append(res.Errors, "Seller CUI/CIF is required")
	case strings.ToUpper(doc.Seller.Country) == "RO" || doc.Seller.Country == "":
		if err := cui.Validate(doc.Seller.CUI); err != nil {
			res.Errors = append(res.Errors, "Seller CUI/CIF is invalid: "+err.Error())
		}
	}
	if blank(doc.Seller.Street) || blank(doc.Seller.City) {
		res.Errors = append(res.Errors, "Seller address is required")
	}
	if blank(doc.Buyer.Name) {
		res.Errors = append(res.Errors, "Buyer name is required")
	}
	if blank(doc.Number) {
		res.Errors = append(res.Errors, "Invoice number is required")
	}
	if doc.IssueDate.IsZero() {
		res.Errors = append(res.Errors, "Issue date is required")
	}
	if len(doc.Lines) == 0 {
		res.Errors = append(res.Errors, "At least one invoice line is required")
	}
	for _, l := range doc.Lines {
		if l.Quantity.IsZero() {
			res.Errors = append(res.Errors, "Invoice line quantity must not be zero")
			break
		}
	}

	if blank(doc.Buyer.CUI) {
		res.Warnings = append(res.Warnings, "Buyer CUI/CIF is recommended for B2B invoices")
	}
	if blank(doc.Buyer.Street) {
		res.Warnings = append(res.Warnings, "Buyer address is recommended")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
