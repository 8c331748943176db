package statement

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityTag = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)`)
	unclosedTag = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// fixOFX repairs the SGML quirks some banks emit and ofxgo rejects.
func fixOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n\ufeff")
	content = severityTag.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTag.ReplaceAllString(content, "$1>")
}

// ParseOFX reads bank and credit card statements from an OFX/QFX document.
func ParseOFX(r io.Reader) ([]Transaction, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ofx: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(fixOFX(string(raw))))
	if err != nil {
		return nil, fmt.Errorf("parse ofx: %w", err)
	}

	var out []Transaction
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, tx := range stmt.BankTranList.Transactions {
			out = append(out, convertOFX(tx))
		}
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, tx := range stmt.BankTranList.Transactions {
			out = append(out, convertOFX(tx))
		}
	}
	return out, nil
}

func convertOFX(tx ofxgo.Transaction) Transaction {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		amount = decimal.Zero
	}
	description := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" {
		if description == "" {
			description = strings.TrimSpace(string(tx.Memo))
		} else {
			description += " " + strings.TrimSpace(string(tx.Memo))
		}
	}
	counterparty := ""
	if tx.Payee != nil {
		counterparty = strings.TrimSpace(string(tx.Payee.Name))
	}
	return Transaction{
		BookingDate:  tx.DtPosted.Time,
		Amount:       amount,
		Description:  description,
		Counterparty: counterparty,
		Reference:    string(tx.FiTID),
	}
}
