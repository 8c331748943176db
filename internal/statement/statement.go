// Package statement parses bank statements exported by Romanian banks into
// a common transaction shape. OFX/QFX files and delimited CSV exports are
// supported.
package statement

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedFormat = errors.New("unsupported statement format")

type Format string

const (
	FormatOFX Format = "ofx"
	FormatCSV Format = "csv"
)

// Transaction is one booked statement line. Amount is signed: credits are
// positive and debits negative.
type Transaction struct {
	BookingDate  time.Time
	Amount       decimal.Decimal
	Description  string
	Counterparty string
	Reference    string
}

// DetectFormat picks a parser from the file name, falling back to sniffing
// the first bytes for an OFX header.
func DetectFormat(filename string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ofx", ".qfx":
		return FormatOFX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(trimmed, []byte("OFXHEADER")) || bytes.Contains(head, []byte("<OFX>")) {
		return FormatOFX, nil
	}
	if bytes.ContainsAny(head, ";,\t") {
		return FormatCSV, nil
	}
	return "", ErrUnsupportedFormat
}

// Parse detects the format of r and parses it.
func Parse(filename string, r io.Reader) ([]Transaction, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF {
		return nil, err
	}
	format, err := DetectFormat(filename, head)
	if err != nil {
		return nil, err
	}
	if format == FormatOFX {
		return ParseOFX(br)
	}
	return ParseCSV(br)
}
