package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankrec-engine/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"estratto.csv":        FormatCSV,
		"ESTRATTO.CSV":        FormatCSV,
		"movimenti.xlsx":      FormatXLSX,
		"legacy.XLS":          FormatXLSX,
		"camt053.xml":         FormatCAMT,
		"rendicontazione.txt": FormatFixedWidth,
		"path/to/Report.Txt":  FormatFixedWidth,
	}
	for name, want := range cases {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"statement.pdf", "noextension", ""} {
		_, err := DetectFormat(name)
		var rejected *domain.FormatRejectedError
		assert.True(t, errors.As(err, &rejected), name)
	}
}

func TestForFile(t *testing.T) {
	p, f, err := ForFile("a.xml")
	require.NoError(t, err)
	assert.Equal(t, FormatCAMT, f)
	assert.IsType(t, &CAMTParser{}, p)
	assert.Equal(t, domain.SourceCBIXML, f.Source())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw       string
		dec, thou string
		want      string
		wantErr   bool
	}{
		{"1.234,56", ",", ".", "1234.56", false},
		{"-45,00", ",", ".", "-45", false},
		{"45,00-", ",", ".", "-45", false},
		{"(12,10)", ",", ".", "-12.1", false},
		{"€ 1.000,00", ",", ".", "1000", false},
		{"+7,5", ",", ".", "7.5", false},
		{"1,234.56", ".", ",", "1234.56", false},
		{"12.50", ",", "", "", true},
		{"", ",", ".", "", true},
		{"abc", ".", ",", "", true},
		{"1000,00", ",", ".", "1000", false},
		{"12.345.678,9", ",", ".", "12345678.9", false},
		{"-45.00", ",", ".", "", true},
		{"1.5", ",", ".", "", true},
		{"12.34,00", ",", ".", "", true},
		{"1.2.3", ",", ".", "", true},
		{"1.234.", ",", ".", "", true},
		{"45,", ",", ".", "", true},
		{"1,2,3", ",", ".", "", true},
		{"1,23.45", ".", ",", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.raw, tt.dec, tt.thou)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%s: got %s", tt.raw, got)
	}
}

func TestGoDateLayout(t *testing.T) {
	layout, err := GoDateLayout("DD/MM/YYYY")
	require.NoError(t, err)
	assert.Equal(t, "02/01/2006", layout)

	layout, err = GoDateLayout("ddmmyy")
	require.NoError(t, err)
	assert.Equal(t, "020106", layout)

	layout, err = GoDateLayout("2006-01-02")
	require.NoError(t, err)
	assert.Equal(t, "2006-01-02", layout)

	_, err = GoDateLayout("DD-MMM-YYYY")
	assert.Error(t, err)
}

func TestDelimitedParser_DefaultProfile(t *testing.T) {
	content := "\xEF\xBB\xBFData;Valuta;Importo;Descrizione;Saldo;Riferimento\n" +
		"10/01/2025;09/01/2025;-45,00;BONIFICO ACME SRL FATT 12;1.955,00;REF001\n" +
		"\n" +
		"11/01/2025;;1.200,50;\"INCASSO; CLIENTE ROSSI\";;\n"

	rows, errs, err := NewDelimitedParser().Parse([]byte(content), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, date(2025, 1, 10), first.TransactionDate)
	require.NotNil(t, first.ValueDate)
	assert.Equal(t, date(2025, 1, 9), *first.ValueDate)
	assert.True(t, decimal.NewFromInt(-45).Equal(first.Amount))
	require.NotNil(t, first.Balance)
	assert.True(t, decimal.NewFromInt(1955).Equal(*first.Balance))
	assert.Equal(t, "REF001", first.Reference)
	assert.Equal(t, "BONIFICO ACME SRL FATT 12", first.Description)

	second := rows[1]
	assert.Nil(t, second.ValueDate)
	assert.Nil(t, second.Balance)
	assert.Equal(t, "INCASSO; CLIENTE ROSSI", second.Description)
	assert.True(t, decimal.RequireFromString("1200.50").Equal(second.Amount))
}

func TestDelimitedParser_PartialFailure(t *testing.T) {
	var b strings.Builder
	b.WriteString("Data;Valuta;Importo;Descrizione;Saldo;Riferimento\n")
	for i := 1; i <= 8; i++ {
		b.WriteString("1" + string(rune('0'+i)) + "/01/2025;;-10,00;PAGAMENTO;;\n")
	}
	b.WriteString("32/13/2025;;-10,00;DATA ERRATA;;\n")
	b.WriteString("15/01/2025;;dieci;IMPORTO ERRATO;;\n")

	rows, errs, err := NewDelimitedParser().Parse([]byte(b.String()), DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, rows, 8)
	require.Len(t, errs, 2)
	assert.Equal(t, "date", errs[0].Field)
	assert.Equal(t, 10, errs[0].Row)
	assert.Equal(t, "amount", errs[1].Field)
	assert.Equal(t, 11, errs[1].Row)
}

func TestDelimitedParser_CustomProfile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimited = DelimitedProfile{
		Name:             "us-export",
		Delimiter:        ",",
		DecimalSeparator: ".",
		DateFormat:       "YYYY-MM-DD",
		HeaderRows:       0,
		Columns:          ColumnMap{Date: 1, Amount: 0, Description: 2},
	}

	rows, errs, err := NewDelimitedParser().Parse([]byte("-12.34,2025-02-01,Coffee\n"), cfg)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, date(2025, 2, 1), rows[0].TransactionDate)
	assert.True(t, decimal.RequireFromString("-12.34").Equal(rows[0].Amount))
	assert.Equal(t, "", rows[0].Reference)
}

func TestDelimitedParser_RejectsForeignDecimalPoint(t *testing.T) {
	content := "Data;Valuta;Importo;Descrizione;Saldo;Riferimento\n" +
		"10/01/2025;;-45.00;ACME SRL FATTURA 123;;\n" +
		"11/01/2025;;-45,00;ACME SRL FATTURA 124;;\n"

	rows, errs, err := NewDelimitedParser().Parse([]byte(content), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, decimal.NewFromInt(-45).Equal(rows[0].Amount))

	require.Len(t, errs, 1)
	assert.Equal(t, "amount", errs[0].Field)
}

func TestDelimitedParser_InvalidProfile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimited.Delimiter = ";;"

	_, _, err := NewDelimitedParser().Parse([]byte("x"), cfg)
	assert.Error(t, err)
}

func TestDelimitedParser_MissingColumns(t *testing.T) {
	content := "Data;Valuta;Importo\n10/01/2025;10/01/2025\n"

	rows, errs, err := NewDelimitedParser().Parse([]byte(content), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.Len(t, errs, 1)
	assert.Equal(t, "amount", errs[0].Field)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
delimited:
  bank-b:
    delimiter: ","
    decimal_separator: "."
    thousands_separator: ","
    date_format: MM/DD/YYYY
    header_rows: 2
    columns:
      date: 0
      amount: 3
      description: 1
      reference: 2
fixed_width:
  cbi-implied:
    record_type: {start: 1, end: 3}
    movement_type: "62"
    transaction_date: {start: 19, end: 25}
    sign: {start: 25, end: 26}
    amount: {start: 26, end: 41}
    description: {start: 86, end: 120}
    date_format: DDMMYY
    implied_decimals: 2
    debit_marker: D
    credit_marker: C
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)

	cfg, err := profiles.Config("bank-b", "cbi-implied")
	require.NoError(t, err)
	assert.Equal(t, "bank-b", cfg.Delimited.Name)
	assert.Equal(t, 2, cfg.Delimited.HeaderRows)
	require.NotNil(t, cfg.Delimited.Columns.Reference)
	assert.Equal(t, 2, *cfg.Delimited.Columns.Reference)
	assert.Nil(t, cfg.Delimited.Columns.Balance)
	assert.Equal(t, 2, cfg.FixedWidth.ImpliedDecimals)

	// built-ins survive the merge
	_, err = profiles.Config(DefaultProfileName, DefaultFixedWidthName)
	assert.NoError(t, err)

	_, err = profiles.Config("unknown", "")
	assert.Error(t, err)
}

func TestLoadProfiles_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
delimited:
  broken:
    delimiter: ","
    decimal_separator: ","
    date_format: DD/MM/YYYY
    columns: {date: 0, amount: 1, description: 2}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadProfiles(path)
	assert.Error(t, err)
}
