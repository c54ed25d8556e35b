package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"bankrec-engine/internal/domain"
	"bankrec-engine/pkg/logger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DelimitedParser reads delimited text exports driven by a DelimitedProfile
type DelimitedParser struct{}

func NewDelimitedParser() *DelimitedParser {
	return &DelimitedParser{}
}

// Parse reads the file record by record, skipping header rows and blank lines
func (p *DelimitedParser) Parse(content []byte, cfg Config) ([]domain.RawRow, []domain.ParseError, error) {
	profile := cfg.Delimited
	if err := profile.Validate(); err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	reader.Comma = []rune(profile.Delimiter)[0]
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var (
		rows    []domain.RawRow
		errs    []domain.ParseError
		lineNum int
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				logger.GetLogger().WithError(err).WithField("line", perr.Line).Warn("Failed to read CSV row, skipping")
				errs = append(errs, domain.ParseError{Row: perr.Line, Field: "record", Message: perr.Err.Error()})
				continue
			}
			return nil, nil, &domain.ContainerError{Format: string(FormatCSV), Err: err}
		}

		if lineNum <= profile.HeaderRows || blankRecord(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		row, perr := parseFields(func(i int) (string, bool) {
			if i < 0 || i >= len(record) {
				return "", false
			}
			return record[i], true
		}, profile, line)
		if perr != nil {
			logger.GetLogger().WithField("line", line).WithField("field", perr.Field).Warn("Failed to parse record, skipping")
			errs = append(errs, *perr)
			continue
		}
		rows = append(rows, *row)
	}

	return rows, errs, nil
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseFields maps one tabular record through the profile's column map.
// It is shared by the delimited and spreadsheet parsers.
func parseFields(cell func(int) (string, bool), profile DelimitedProfile, row int) (*domain.RawRow, *domain.ParseError) {
	cols := profile.Columns

	dateStr, ok := cell(cols.Date)
	if !ok || strings.TrimSpace(dateStr) == "" {
		return nil, &domain.ParseError{Row: row, Field: "date", Message: "missing transaction date"}
	}
	date, err := ParseDate(dateStr, profile.DateFormat)
	if err != nil {
		return nil, &domain.ParseError{Row: row, Field: "date", Message: err.Error(), Value: dateStr}
	}

	amountStr, ok := cell(cols.Amount)
	if !ok || strings.TrimSpace(amountStr) == "" {
		return nil, &domain.ParseError{Row: row, Field: "amount", Message: "missing amount"}
	}
	amount, err := ParseAmount(amountStr, profile.DecimalSeparator, profile.ThousandsSeparator)
	if err != nil {
		return nil, &domain.ParseError{Row: row, Field: "amount", Message: err.Error(), Value: amountStr}
	}

	description, _ := cell(cols.Description)
	result := &domain.RawRow{
		Row:             row,
		TransactionDate: date,
		Description:     cleanText(description),
		Amount:          amount,
	}

	// optional columns are dropped when unreadable
	if cols.ValueDate != nil {
		if s, ok := cell(*cols.ValueDate); ok && strings.TrimSpace(s) != "" {
			if vd, err := ParseDate(s, profile.DateFormat); err == nil {
				result.ValueDate = &vd
			} else {
				logger.GetLogger().WithField("row", row).WithField("value", s).Debug("Ignoring unreadable value date")
			}
		}
	}
	if cols.Balance != nil {
		if s, ok := cell(*cols.Balance); ok && strings.TrimSpace(s) != "" {
			if bal, err := ParseAmount(s, profile.DecimalSeparator, profile.ThousandsSeparator); err == nil {
				result.Balance = &bal
			} else {
				logger.GetLogger().WithField("row", row).WithField("value", s).Debug("Ignoring unreadable balance")
			}
		}
	}
	if cols.Reference != nil {
		if s, ok := cell(*cols.Reference); ok {
			result.Reference = strings.TrimSpace(s)
		}
	}

	return result, nil
}

func fieldError(row int, field, format string, args ...interface{}) domain.ParseError {
	return domain.ParseError{Row: row, Field: field, Message: fmt.Sprintf(format, args...)}
}
