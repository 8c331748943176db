package statement

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/ocr"
)

type column int

const (
	colDate column = iota
	colDescription
	colAmount
	colDebit
	colCredit
	colCounterparty
	colReference
)

// headerAliases are matched against folded, lower-cased header cells.
var headerAliases = map[string]column{
	"data":                      colDate,
	"data tranzactiei":          colDate,
	"data operatiunii":          colDate,
	"data inregistrarii":        colDate,
	"data contabila":            colDate,
	"data valutei":              colDate,
	"date":                      colDate,
	"booking date":              colDate,
	"descriere":                 colDescription,
	"detalii":                   colDescription,
	"detalii tranzactie":        colDescription,
	"explicatie":                colDescription,
	"description":               colDescription,
	"suma":                      colAmount,
	"valoare":                   colAmount,
	"amount":                    colAmount,
	"debit":                     colDebit,
	"credit":                    colCredit,
	"beneficiar":                colCounterparty,
	"ordonator":                 colCounterparty,
	"beneficiar/ordonator":      colCounterparty,
	"nume beneficiar/ordonator": colCounterparty,
	"partener":                  colCounterparty,
	"counterparty":              colCounterparty,
	"referinta":                 colReference,
	"nr. referinta":             colReference,
	"id tranzactie":             colReference,
	"reference":                 colReference,
}

var dateLayouts = []string{"02.01.2006", "02/01/2006", "2006-01-02", "02-01-2006", "2.1.2006"}

// ParseCSV reads a delimited statement export. Preamble lines before the
// header row are skipped, as are rows whose first date cell does not parse
// (totals, footers). The encoding is detected before parsing.
func ParseCSV(r io.Reader) ([]Transaction, error) {
	utf8r, err := NewUTF8Reader(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = delimiter(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	var (
		idx map[column]int
		out []Transaction
	)
	for _, row := range rows {
		if idx == nil {
			idx = mapHeader(row)
			continue
		}
		tx, ok := parseRow(row, idx)
		if ok {
			out = append(out, tx)
		}
	}
	if idx == nil {
		return nil, fmt.Errorf("%w: no header row with a date and amount column", ErrUnsupportedFormat)
	}
	return out, nil
}

func delimiter(raw []byte) rune {
	switch {
	case bytes.ContainsRune(raw, ';'):
		return ';'
	case bytes.ContainsRune(raw, '\t'):
		return '\t'
	default:
		return ','
	}
}

// mapHeader returns nil unless row has a date column and either an amount
// column or a debit/credit pair.
func mapHeader(row []string) map[column]int {
	idx := map[column]int{}
	for i, cell := range row {
		key := strings.ToLower(strings.TrimSpace(ocr.Fold(cell)))
		if c, ok := headerAliases[key]; ok {
			if _, seen := idx[c]; !seen {
				idx[c] = i
			}
		}
	}
	_, hasDate := idx[colDate]
	_, hasAmount := idx[colAmount]
	_, hasDebit := idx[colDebit]
	_, hasCredit := idx[colCredit]
	if !hasDate || !(hasAmount || (hasDebit && hasCredit)) {
		return nil
	}
	return idx
}

func parseRow(row []string, idx map[column]int) (Transaction, bool) {
	cell := func(c column) string {
		i, ok := idx[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, ok := parseDate(cell(colDate))
	if !ok {
		return Transaction{}, false
	}

	var amount decimal.Decimal
	if _, has := idx[colAmount]; has {
		amount, ok = ocr.ParseAmount(cell(colAmount))
		if !ok {
			return Transaction{}, false
		}
	} else {
		credit, cok := ocr.ParseAmount(cell(colCredit))
		debit, dok := ocr.ParseAmount(cell(colDebit))
		if !cok && !dok {
			return Transaction{}, false
		}
		amount = credit.Sub(debit.Abs())
	}

	tx := Transaction{
		BookingDate:  date,
		Amount:       amount,
		Description:  cell(colDescription),
		Counterparty: cell(colCounterparty),
		Reference:    cell(colReference),
	}
	if tx.Reference == "" {
		tx.Reference = syntheticReference(tx)
	}
	return tx, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// syntheticReference derives a stable id for exports that carry none, so a
// re-imported file is recognised as duplicate.
func syntheticReference(tx Transaction) string {
	h := sha256.Sum256([]byte(tx.BookingDate.Format(time.DateOnly) + "|" + tx.Amount.StringFixed(2) + "|" + tx.Description + "|" + tx.Counterparty))
	return "csv-" + hex.EncodeToString(h[:8])
}
