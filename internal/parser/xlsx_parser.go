package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bankrec-engine/internal/domain"
	"bankrec-engine/pkg/logger"
)

// largest serial excelize accepts (9999-12-31)
const maxExcelSerial = 2958465

// XLSXParser reads the first worksheet of a spreadsheet export
type XLSXParser struct{}

func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

func (p *XLSXParser) Parse(content []byte, cfg Config) ([]domain.RawRow, []domain.ParseError, error) {
	profile := cfg.Delimited
	if err := profile.Validate(); err != nil {
		return nil, nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, &domain.ContainerError{Format: string(FormatXLSX), Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &domain.ContainerError{Format: string(FormatXLSX), Err: fmt.Errorf("workbook has no sheets")}
	}

	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, &domain.ContainerError{Format: string(FormatXLSX), Err: err}
	}

	var (
		rows []domain.RawRow
		errs []domain.ParseError
	)

	for i, record := range records {
		rowNum := i + 1
		if rowNum <= profile.HeaderRows || blankRecord(record) {
			continue
		}

		// numeric cells come through raw: serial dates and dot-decimal amounts
		cells := append([]string(nil), record...)
		cols := profile.Columns
		p.normalizeCell(f, sheets[0], cells, rowNum, cols.Date, profile, true)
		p.normalizeCell(f, sheets[0], cells, rowNum, cols.Amount, profile, false)
		if cols.ValueDate != nil {
			p.normalizeCell(f, sheets[0], cells, rowNum, *cols.ValueDate, profile, true)
		}
		if cols.Balance != nil {
			p.normalizeCell(f, sheets[0], cells, rowNum, *cols.Balance, profile, false)
		}

		row, perr := parseFields(func(idx int) (string, bool) {
			if idx < 0 || idx >= len(cells) {
				return "", false
			}
			return cells[idx], true
		}, profile, rowNum)
		if perr != nil {
			logger.GetLogger().WithField("row", rowNum).WithField("field", perr.Field).Warn("Failed to parse spreadsheet row, skipping")
			errs = append(errs, *perr)
			continue
		}
		rows = append(rows, *row)
	}

	return rows, errs, nil
}

// normalizeCell rewrites numeric cells into the profile's textual formats
// so the shared tabular mapping can read them. Text cells are left alone.
func (p *XLSXParser) normalizeCell(f *excelize.File, sheet string, record []string, rowNum, idx int, profile DelimitedProfile, isDate bool) {
	if idx < 0 || idx >= len(record) {
		return
	}
	raw := strings.TrimSpace(record[idx])
	if raw == "" {
		return
	}

	name, err := excelize.CoordinatesToCellName(idx+1, rowNum)
	if err != nil {
		return
	}
	cellType, err := f.GetCellType(sheet, name)
	if err != nil {
		return
	}

	layout, _ := GoDateLayout(profile.DateFormat)
	switch cellType {
	case excelize.CellTypeDate:
		if t, err := time.Parse("2006-01-02", raw[:min(len(raw), 10)]); err == nil {
			record[idx] = t.Format(layout)
		}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if isDate {
			serial, err := strconv.ParseFloat(raw, 64)
			if err != nil || serial < 1 || serial > maxExcelSerial {
				return
			}
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				record[idx] = t.Format(layout)
			}
			return
		}
		if d, err := decimal.NewFromString(raw); err == nil {
			record[idx] = formatAmount(d, profile)
		}
	}
}

// formatAmount renders d with the profile separators and no grouping
func formatAmount(d decimal.Decimal, profile DelimitedProfile) string {
	s := d.String()
	if profile.DecimalSeparator != "." {
		s = strings.Replace(s, ".", profile.DecimalSeparator, 1)
	}
	return s
}
