package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/xmlpath.v2"

	"bankrec-engine/internal/domain"
	"bankrec-engine/pkg/logger"
)

const notProvided = "NOTPROVIDED"

var (
	camtStatement = xmlpath.MustCompile("//BkToCstmrStmt")
	camtEntry     = xmlpath.MustCompile("//Ntry")

	entryAmount       = xmlpath.MustCompile("Amt")
	entryIndicator    = xmlpath.MustCompile("CdtDbtInd")
	entryReversal     = xmlpath.MustCompile("RvslInd")
	entryBookingDate  = xmlpath.MustCompile("BookgDt/Dt")
	entryBookingTime  = xmlpath.MustCompile("BookgDt/DtTm")
	entryValueDate    = xmlpath.MustCompile("ValDt/Dt")
	entryValueTime    = xmlpath.MustCompile("ValDt/DtTm")
	entryUnstructured = xmlpath.MustCompile("NtryDtls/TxDtls/RmtInf/Ustrd")
	entryAdditional   = xmlpath.MustCompile("AddtlNtryInf")
	entryServicerRef  = xmlpath.MustCompile("AcctSvcrRef")
	entryEndToEndID   = xmlpath.MustCompile("NtryDtls/TxDtls/Refs/EndToEndId")
	entryRef          = xmlpath.MustCompile("NtryRef")
	entryCreditor     = xmlpath.MustCompile("NtryDtls/TxDtls/RltdPties/Cdtr/Nm")
	entryDebtor       = xmlpath.MustCompile("NtryDtls/TxDtls/RltdPties/Dbtr/Nm")
)

// CAMTParser reads ISO 20022 camt.053 bank-to-customer statements
type CAMTParser struct{}

func NewCAMTParser() *CAMTParser {
	return &CAMTParser{}
}

func (p *CAMTParser) Parse(content []byte, _ Config) ([]domain.RawRow, []domain.ParseError, error) {
	root, err := xmlpath.Parse(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	if err != nil {
		return nil, nil, &domain.ContainerError{Format: string(FormatCAMT), Err: err}
	}
	if !camtStatement.Exists(root) {
		return nil, nil, &domain.ContainerError{
			Format: string(FormatCAMT),
			Err:    fmt.Errorf("document has no BkToCstmrStmt statement"),
		}
	}

	var (
		rows []domain.RawRow
		errs []domain.ParseError
	)

	iter := camtEntry.Iter(root)
	for entryNum := 1; iter.Next(); entryNum++ {
		row, perr := p.parseEntry(iter.Node(), entryNum)
		if perr != nil {
			logger.GetLogger().WithField("entry", entryNum).WithField("field", perr.Field).Warn("Failed to parse statement entry, skipping")
			errs = append(errs, *perr)
			continue
		}
		rows = append(rows, *row)
	}

	return rows, errs, nil
}

func (p *CAMTParser) parseEntry(node *xmlpath.Node, entryNum int) (*domain.RawRow, *domain.ParseError) {
	amountStr := text(entryAmount, node)
	if amountStr == "" {
		return nil, &domain.ParseError{Row: entryNum, Field: "amount", Message: "missing Amt"}
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, &domain.ParseError{Row: entryNum, Field: "amount", Message: "invalid Amt", Value: amountStr}
	}
	amount = amount.Abs()

	indicator := strings.ToUpper(text(entryIndicator, node))
	switch indicator {
	case "CRDT":
	case "DBIT":
		amount = amount.Neg()
	default:
		return nil, &domain.ParseError{Row: entryNum, Field: "credit_debit", Message: "missing or unknown CdtDbtInd", Value: indicator}
	}
	if strings.EqualFold(text(entryReversal, node), "true") {
		amount = amount.Neg()
	}

	booking, bookingErr := entryDate(node, entryBookingDate, entryBookingTime)
	value, valueErr := entryDate(node, entryValueDate, entryValueTime)
	if bookingErr != nil && valueErr != nil {
		return nil, &domain.ParseError{Row: entryNum, Field: "date", Message: "missing or invalid BookgDt and ValDt"}
	}

	row := &domain.RawRow{
		Row:         entryNum,
		Amount:      amount,
		Description: p.description(node, indicator),
		Reference:   p.reference(node),
	}
	if bookingErr == nil {
		row.TransactionDate = booking
	} else {
		row.TransactionDate = value
	}
	if valueErr == nil {
		row.ValueDate = &value
	}
	return row, nil
}

func (p *CAMTParser) description(node *xmlpath.Node, indicator string) string {
	var parts []string
	iter := entryUnstructured.Iter(node)
	for iter.Next() {
		if s := cleanText(iter.Node().String()); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if s := cleanText(text(entryAdditional, node)); s != "" {
		return s
	}
	// the counterparty is the creditor of a debit and the debtor of a credit
	if indicator == "DBIT" {
		return cleanText(text(entryCreditor, node))
	}
	return cleanText(text(entryDebtor, node))
}

func (p *CAMTParser) reference(node *xmlpath.Node) string {
	if s := text(entryServicerRef, node); s != "" {
		return s
	}
	if s := text(entryEndToEndID, node); s != "" && !strings.EqualFold(s, notProvided) {
		return s
	}
	return text(entryRef, node)
}

func entryDate(node *xmlpath.Node, datePath, dateTimePath *xmlpath.Path) (time.Time, error) {
	if s := text(datePath, node); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, err
		}
		return toDay(t), nil
	}
	s := text(dateTimePath, node)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04:05.000"} {
		if t, err := time.Parse(layout, s); err == nil {
			return toDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date time %q", s)
}

func text(path *xmlpath.Path, node *xmlpath.Node) string {
	s, ok := path.String(node)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
