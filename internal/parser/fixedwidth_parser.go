package parser

import (
	"bufio"
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"bankrec-engine/internal/domain"
	"bankrec-engine/pkg/logger"
)

// FixedWidthParser reads positional statement files driven by a FixedWidthLayout.
// Movement records open a transaction; continuation records extend its description.
type FixedWidthParser struct{}

func NewFixedWidthParser() *FixedWidthParser {
	return &FixedWidthParser{}
}

func (p *FixedWidthParser) Parse(content []byte, cfg Config) ([]domain.RawRow, []domain.ParseError, error) {
	layout := cfg.FixedWidth
	if err := layout.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		rows    []domain.RawRow
		errs    []domain.ParseError
		current *domain.RawRow
		// set while continuation lines belong to a rejected movement
		orphaned bool
	)

	flush := func() {
		if current != nil {
			current.Description = cleanText(current.Description)
			rows = append(rows, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		recordType, ok := slice(line, layout.RecordType)
		if !ok {
			errs = append(errs, fieldError(lineNum, "record_type", "line too short for record type"))
			continue
		}

		switch strings.TrimSpace(recordType) {
		case layout.MovementType:
			flush()
			row, lineErrs := p.parseMovement(line, layout, lineNum)
			if len(lineErrs) > 0 {
				logger.GetLogger().WithField("line", lineNum).WithField("errors", len(lineErrs)).Warn("Failed to parse movement record, skipping")
				errs = append(errs, lineErrs...)
				orphaned = true
				continue
			}
			current = row
			orphaned = false

		case layout.ContinuationType:
			if layout.ContinuationType == "" {
				continue
			}
			if current == nil {
				if !orphaned {
					errs = append(errs, fieldError(lineNum, "record_type", "continuation record without a preceding movement"))
				}
				continue
			}
			if extra, ok := slice(line, layout.ContinuationText); ok {
				current.Description += " " + extra
			}

		default:
			// headers, balances and trailers carry no movements
			flush()
			orphaned = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &domain.ContainerError{Format: string(FormatFixedWidth), Err: err}
	}
	flush()

	return rows, errs, nil
}

// parseMovement validates every field of a movement record independently
// and reports each failure.
func (p *FixedWidthParser) parseMovement(line string, layout FixedWidthLayout, lineNum int) (*domain.RawRow, []domain.ParseError) {
	var errs []domain.ParseError
	row := &domain.RawRow{Row: lineNum}

	if s, ok := slice(line, layout.TransactionDate); !ok {
		errs = append(errs, fieldError(lineNum, "date", "line too short for booking date"))
	} else if d, err := ParseDate(s, layout.DateFormat); err != nil {
		errs = append(errs, domain.ParseError{Row: lineNum, Field: "date", Message: err.Error(), Value: s})
	} else {
		row.TransactionDate = d
	}

	var negative bool
	if s, ok := slice(line, layout.Sign); !ok {
		errs = append(errs, fieldError(lineNum, "sign", "line too short for sign"))
	} else {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case strings.ToUpper(layout.DebitMarker):
			negative = true
		case strings.ToUpper(layout.CreditMarker):
		default:
			errs = append(errs, domain.ParseError{Row: lineNum, Field: "sign", Message: "unknown debit/credit marker", Value: s})
		}
	}

	if s, ok := slice(line, layout.Amount); !ok {
		errs = append(errs, fieldError(lineNum, "amount", "line too short for amount"))
	} else if amount, err := p.amount(s, layout); err != nil {
		errs = append(errs, domain.ParseError{Row: lineNum, Field: "amount", Message: err.Error(), Value: s})
	} else if negative {
		row.Amount = amount.Abs().Neg()
	} else {
		row.Amount = amount.Abs()
	}

	if len(errs) > 0 {
		return nil, errs
	}

	// optional fields are only trusted when they parse
	if layout.ValueDate.valid() {
		if s, ok := slice(line, layout.ValueDate); ok {
			if d, err := ParseDate(s, layout.DateFormat); err == nil {
				row.ValueDate = &d
			}
		}
	}
	if layout.Reference.valid() {
		if s, ok := slice(line, layout.Reference); ok {
			row.Reference = s
		}
	}
	if s, ok := slice(line, layout.Description); ok {
		row.Description = s
	}

	return row, nil
}

func (p *FixedWidthParser) amount(s string, layout FixedWidthLayout) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if layout.ImpliedDecimals > 0 && !strings.Contains(s, layout.DecimalSeparator) {
		d, err := ParseAmount(s, ".", "")
		if err != nil {
			return decimal.Zero, err
		}
		return d.Shift(int32(-layout.ImpliedDecimals)), nil
	}
	return ParseAmount(s, layout.DecimalSeparator, "")
}

// slice returns the trimmed text in r. Lines shorter than r.Start fail;
// lines ending inside r are clipped. Offsets are bytes; a multi-byte character
// straddling either edge of r is dropped so the result stays valid UTF-8.
func slice(line string, r FieldRange) (string, bool) {
	if r.Start >= len(line) {
		return "", false
	}
	start, end := r.Start, min(r.End, len(line))
	for start < end && !utf8.RuneStart(line[start]) {
		start++
	}
	for end > start && end < len(line) && !utf8.RuneStart(line[end]) {
		end--
	}
	return strings.TrimSpace(line[start:end]), true
}
