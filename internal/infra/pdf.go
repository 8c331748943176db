package infra

// pdf.go renders an A4 invoice with go-pdf/fpdf. Core fonts carry no
// comma-below glyphs, so text is folded to ASCII before it is written.

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/ocr"
)

var invoiceTitles = map[string]string{
	"standard":     "FACTURA",
	"credit_note":  "FACTURA STORNO",
	"debit_note":   "NOTA DE DEBIT",
	"corrective":   "FACTURA CORECTIVA",
	"self_billing": "AUTOFACTURA",
}

// RenderInvoicePDF returns the PDF bytes of an invoice. inv must have Lines
// and Partner loaded.
func RenderInvoicePDF(inv *model.Invoice, company *model.Company) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30
	tr := ocr.Fold

	// ── Header ───────────────────────────────────────────────────────────────
	title := invoiceTitles[inv.Type]
	if title == "" {
		title = "FACTURA"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	number := inv.Number
	if inv.Series != "" {
		number = inv.Series + " " + inv.Number
	}
	pdf.CellFormat(contentW, 6, tr("Nr. "+number+" din "+inv.IssueDate.Format("02.01.2006")), "", 1, "C", false, 0, "")
	if inv.DueDate != nil {
		pdf.CellFormat(contentW, 5, "Scadenta: "+inv.DueDate.Format("02.01.2006"), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	// ── Parties ──────────────────────────────────────────────────────────────
	half := contentW / 2
	top := pdf.GetY()
	seller := partyLines(company.Name, company.CUI, company.RegCom, company.Address, company.City, company.IBAN)
	var buyer []string
	if inv.Partner != nil {
		p := inv.Partner
		buyer = partyLines(p.Name, p.CUI, p.RegCom, p.Address, p.City, p.IBAN)
	}
	if inv.Direction == model.DirectionReceived {
		seller, buyer = buyer, seller
	}
	writeParty(pdf, 15, top, half-4, "Furnizor", seller)
	sellerBottom := pdf.GetY()
	writeParty(pdf, 15+half, top, half-4, "Cumparator", buyer)
	pdf.SetY(max(sellerBottom, pdf.GetY()) + 4)

	// ── Lines ────────────────────────────────────────────────────────────────
	widths := []float64{8, contentW - 8 - 14 - 16 - 24 - 14 - 24 - 24, 14, 16, 24, 14, 24, 24}
	headers := []string{"Nr", "Denumire", "UM", "Cant.", "Pret unitar", "TVA %", "Valoare", "TVA"}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for i, l := range inv.Lines {
		desc := tr(l.Description)
		if len(desc) > 48 {
			desc = desc[:47] + "."
		}
		cells := []string{
			fmt.Sprintf("%d", i+1), desc, l.Unit, l.Quantity.String(),
			l.UnitPrice.StringFixed(2), l.VATRate.String(), l.Net.StringFixed(2), l.VAT.StringFixed(2),
		}
		for j, c := range cells {
			align := "R"
			if j == 1 {
				align = "L"
			} else if j == 0 || j == 2 {
				align = "C"
			}
			pdf.CellFormat(widths[j], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.Ln(3)
	labelW := contentW - 40
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(labelW, 6, "Total fara TVA:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, inv.Subtotal.StringFixed(2)+" "+inv.Currency, "", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 6, "TVA:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, inv.VATAmount.StringFixed(2)+" "+inv.Currency, "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelW, 7, "TOTAL DE PLATA:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, inv.Total.StringFixed(2)+" "+inv.Currency, "", 1, "R", false, 0, "")

	if inv.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(contentW, 4, tr(inv.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

func partyLines(name, cui, regCom, address, city, iban string) []string {
	out := []string{name}
	if cui != "" {
		out = append(out, "CUI: "+cui)
	}
	if regCom != "" {
		out = append(out, "Reg. Com.: "+regCom)
	}
	if address != "" || city != "" {
		out = append(out, address+", "+city)
	}
	if iban != "" {
		out = append(out, "IBAN: "+iban)
	}
	return out
}

func writeParty(pdf *fpdf.Fpdf, x, y, w float64, label string, lines []string) {
	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(w, 5, label, "B", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range lines {
		pdf.CellFormat(w, 5, ocr.Fold(l), "", 2, "L", false, 0, "")
	}
}
