package parser

import (
	"path/filepath"
	"strings"

	"bankrec-engine/internal/domain"
)

// Parser turns the raw bytes of a statement file into normalized rows.
// Row-level problems are collected and returned alongside the good rows;
// the error return is reserved for content the format cannot read at all.
type Parser interface {
	Parse(content []byte, cfg Config) ([]domain.RawRow, []domain.ParseError, error)
}

// Format is a supported statement file format
type Format string

const (
	FormatCSV        Format = "CSV"
	FormatXLSX       Format = "XLSX"
	FormatCAMT       Format = "CBI_XML"
	FormatFixedWidth Format = "CBI_TXT"
)

var extensions = map[string]Format{
	".csv":  FormatCSV,
	".xlsx": FormatXLSX,
	".xls":  FormatXLSX,
	".xml":  FormatCAMT,
	".txt":  FormatFixedWidth,
}

// Source returns the import source recorded on persisted transactions
func (f Format) Source() domain.ImportSource {
	return domain.ImportSource(f)
}

// DetectFormat picks the format from the file extension, case-insensitively
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", &domain.FormatRejectedError{Filename: filename, Extension: ext}
}

// ForFormat returns the parser for f
func ForFormat(f Format) (Parser, error) {
	switch f {
	case FormatCSV:
		return NewDelimitedParser(), nil
	case FormatXLSX:
		return NewXLSXParser(), nil
	case FormatCAMT:
		return NewCAMTParser(), nil
	case FormatFixedWidth:
		return NewFixedWidthParser(), nil
	}
	return nil, &domain.FormatRejectedError{Extension: string(f)}
}

// ForFile combines DetectFormat and ForFormat
func ForFile(filename string) (Parser, Format, error) {
	f, err := DetectFormat(filename)
	if err != nil {
		return nil, "", err
	}
	p, err := ForFormat(f)
	if err != nil {
		return nil, "", err
	}
	return p, f, nil
}
