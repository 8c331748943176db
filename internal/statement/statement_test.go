package statement

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>Info
</STATUS>
<DTSERVER>20250315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>RON
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250301120000[0:GMT]
<DTEND>20250331120000[0:GMT]
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250305120000[0:GMT]
<TRNAMT>1190.00
<FITID>BT-0001
<NAME>CLIENT SA
<MEMO>Plata factura DI-0001
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250310120000[0:GMT]
<TRNAMT>-45.50
<FITID>BT-0002
<NAME>COMISION
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1144.50
<DTASOF>20250331120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseOFX(t *testing.T) {
	txs, err := ParseOFX(strings.NewReader("\n\n" + sampleOFX))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "BT-0001", txs[0].Reference)
	assert.Equal(t, "1190.00", txs[0].Amount.StringFixed(2))
	assert.Equal(t, "CLIENT SA Plata factura DI-0001", txs[0].Description)
	assert.Equal(t, 2025, txs[0].BookingDate.Year())
	assert.Equal(t, time.March, txs[0].BookingDate.Month())
	assert.Equal(t, 5, txs[0].BookingDate.Day())

	assert.Equal(t, "-45.50", txs[1].Amount.StringFixed(2))
	assert.Equal(t, "COMISION", txs[1].Description)
}

func TestParseCSV_AmountColumnWithPreamble(t *testing.T) {
	csv := "Extras de cont;RO49AAAA1B31007593840000\n" +
		"Perioada;01.03.2025 - 31.03.2025\n" +
		"Dată;Descriere;Beneficiar/Ordonator;Sumă;Referință\n" +
		"05.03.2025;Incasare factura;CLIENT SA;1.190,00;REF1\n" +
		"10.03.2025;Comision;BANCA;-45,50;REF2\n" +
		"Sold final;;;1.144,50;\n"

	txs, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), txs[0].BookingDate)
	assert.Equal(t, "1190.00", txs[0].Amount.StringFixed(2))
	assert.Equal(t, "CLIENT SA", txs[0].Counterparty)
	assert.Equal(t, "REF1", txs[0].Reference)
	assert.Equal(t, "-45.50", txs[1].Amount.StringFixed(2))
}

func TestParseCSV_DebitCreditColumns(t *testing.T) {
	csv := "Data tranzactiei,Detalii,Debit,Credit\n" +
		"2025-03-05,Incasare,,250.00\n" +
		"2025-03-06,Plata furnizor,100.00,\n"

	txs, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "250.00", txs[0].Amount.StringFixed(2))
	assert.Equal(t, "-100.00", txs[1].Amount.StringFixed(2))
	// no reference column: a stable synthetic one is derived
	assert.True(t, strings.HasPrefix(txs[0].Reference, "csv-"))

	again, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, txs[0].Reference, again[0].Reference)
	assert.NotEqual(t, txs[0].Reference, txs[1].Reference)
}

func TestParseCSV_NoHeader(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("a;b;c\n1;2;3\n"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNewUTF8Reader_Windows1250(t *testing.T) {
	// "Sumă;Plată" encoded as Windows-1250, where ă is 0xE3
	in := []byte{'S', 'u', 'm', 0xE3, ';', 'P', 'l', 'a', 't', 0xE3, '\n'}
	r, err := NewUTF8Reader(bytes.NewReader(in))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), "Sum"))
	assert.NotContains(t, string(got), "�")
}

func TestNewUTF8Reader_StripsBOM(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Dată;Sumă\n")...)
	r, err := NewUTF8Reader(bytes.NewReader(in))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Dată;Sumă\n", string(got))
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("extras.OFX", nil)
	require.NoError(t, err)
	assert.Equal(t, FormatOFX, f)

	f, err = DetectFormat("upload", []byte("OFXHEADER:100\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatOFX, f)

	f, err = DetectFormat("upload", []byte("Data;Suma\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = DetectFormat("scan.pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParse_DispatchesOnContent(t *testing.T) {
	txs, err := Parse("statement", strings.NewReader(sampleOFX))
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
