package parser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cbiRecord lays out a 120-column record with fields at zero-based offsets
func cbiRecord(recordType string, fields map[int]string) string {
	b := []byte(strings.Repeat(" ", 120))
	copy(b[1:], recordType)
	for pos, v := range fields {
		copy(b[pos:], v)
	}
	return string(b)
}

func cbiMovement(valueDate, bookingDate, sign, amount, ref, desc string) string {
	return cbiRecord("62", map[int]string{
		3:  "0000001",
		10: "001",
		13: valueDate,
		19: bookingDate,
		25: sign,
		26: strings.Repeat("0", 15-len(amount)) + amount,
		61: ref,
		86: desc,
	})
}

func cbiContinuation(text string) string {
	return cbiRecord("63", map[int]string{3: "0000001", 10: "001", 13: text})
}

func TestFixedWidthParser_Parse(t *testing.T) {
	lines := []string{
		cbiRecord("RH", map[int]string{3: "03069"}),
		cbiRecord("61", map[int]string{3: "0000001"}),
		cbiMovement("090125", "100125", "D", "45,00", "BNKREF0001", "BONIFICO ACME SRL"),
		cbiContinuation("FATT 12 DEL 02/01/2025"),
		cbiMovement("999999", "999999", "X", "45,00", "BNKREF0002", "RIGA ERRATA"),
		cbiContinuation("CONTINUAZIONE SCARTATA"),
		cbiMovement("110125", "110125", "C", "1200,50", "", "INCASSO ROSSI"),
		cbiRecord("64", map[int]string{3: "0000001"}),
		cbiRecord("EF", nil),
	}
	content := strings.Join(lines, "\r\n") + "\r\n"

	rows, errs, err := NewFixedWidthParser().Parse([]byte(content), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// each bad field of the rejected movement is reported; its continuation is not
	require.Len(t, errs, 2)
	assert.Equal(t, 5, errs[0].Row)
	assert.Equal(t, "date", errs[0].Field)
	assert.Equal(t, "sign", errs[1].Field)

	debit := rows[0]
	assert.Equal(t, date(2025, 1, 10), debit.TransactionDate)
	require.NotNil(t, debit.ValueDate)
	assert.Equal(t, date(2025, 1, 9), *debit.ValueDate)
	assert.True(t, decimal.NewFromInt(-45).Equal(debit.Amount))
	assert.Equal(t, "BNKREF0001", debit.Reference)
	assert.Equal(t, "BONIFICO ACME SRL FATT 12 DEL 02/01/2025", debit.Description)

	credit := rows[1]
	assert.True(t, decimal.RequireFromString("1200.50").Equal(credit.Amount))
	assert.Equal(t, "", credit.Reference)
	assert.Equal(t, "INCASSO ROSSI", credit.Description)
}

func TestFixedWidthParser_ShortLine(t *testing.T) {
	content := " 62000000100109012510012\n"

	rows, errs, err := NewFixedWidthParser().Parse([]byte(content), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, rows)

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"date", "sign", "amount"}, fields)
}

func TestFixedWidthParser_OrphanContinuation(t *testing.T) {
	rows, errs, err := NewFixedWidthParser().Parse([]byte(cbiContinuation("SENZA MOVIMENTO")), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.Len(t, errs, 1)
	assert.Equal(t, "record_type", errs[0].Field)
}

func TestFixedWidthParser_ImpliedDecimals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FixedWidth.ImpliedDecimals = 2

	line := cbiMovement("010225", "010225", "D", "4500", "", "COMMISSIONI")
	rows, errs, err := NewFixedWidthParser().Parse([]byte(line), cfg)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.True(t, decimal.NewFromInt(-45).Equal(rows[0].Amount))
}

func TestFixedWidthParser_MultiByteDescription(t *testing.T) {
	base := cbiMovement("010225", "010225", "D", "45,00", "", "")[:86]

	t.Run("character straddling the range end is dropped", func(t *testing.T) {
		// "È" occupies bytes 119 and 120; the description range ends at 120
		line := base + strings.Repeat("A", 33) + "ÈXYZ"

		rows, errs, err := NewFixedWidthParser().Parse([]byte(line), DefaultConfig())
		require.NoError(t, err)
		assert.Empty(t, errs)
		require.Len(t, rows, 1)
		assert.True(t, utf8.ValidString(rows[0].Description))
		assert.Equal(t, strings.Repeat("A", 33), rows[0].Description)
	})

	t.Run("accented characters inside the range are kept", func(t *testing.T) {
		line := base + "CAFFÈ PERÙ"

		rows, _, err := NewFixedWidthParser().Parse([]byte(line), DefaultConfig())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "CAFFÈ PERÙ", rows[0].Description)
	})

	t.Run("range starting inside a character skips its tail", func(t *testing.T) {
		// "é" occupies bytes 0 and 1
		got, ok := slice("éABC", FieldRange{Start: 1, End: 4})
		require.True(t, ok)
		assert.Equal(t, "AB", got)
	})
}
