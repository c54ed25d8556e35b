package parser

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"bankrec-engine/pkg/logger"
)

const (
	DefaultProfileName    = "cbi-portal"
	DefaultFixedWidthName = "cbi-rh"
)

// ColumnMap holds zero-based column indices. Optional columns are nil when absent.
type ColumnMap struct {
	Date        int  `yaml:"date" json:"date"`
	Amount      int  `yaml:"amount" json:"amount"`
	Description int  `yaml:"description" json:"description"`
	ValueDate   *int `yaml:"value_date,omitempty" json:"value_date,omitempty"`
	Balance     *int `yaml:"balance,omitempty" json:"balance,omitempty"`
	Reference   *int `yaml:"reference,omitempty" json:"reference,omitempty"`
}

// DelimitedProfile describes one bank's delimited or spreadsheet export
type DelimitedProfile struct {
	Name               string    `yaml:"name" json:"name"`
	Delimiter          string    `yaml:"delimiter" json:"delimiter"`
	DecimalSeparator   string    `yaml:"decimal_separator" json:"decimal_separator"`
	ThousandsSeparator string    `yaml:"thousands_separator" json:"thousands_separator"`
	DateFormat         string    `yaml:"date_format" json:"date_format"`
	HeaderRows         int       `yaml:"header_rows" json:"header_rows"`
	Columns            ColumnMap `yaml:"columns" json:"columns"`
}

// Validate checks that the profile can drive a parser
func (p DelimitedProfile) Validate() error {
	if len([]rune(p.Delimiter)) != 1 {
		return fmt.Errorf("profile %q: delimiter must be a single character, got %q", p.Name, p.Delimiter)
	}
	if p.DecimalSeparator != "." && p.DecimalSeparator != "," {
		return fmt.Errorf("profile %q: decimal separator must be '.' or ',', got %q", p.Name, p.DecimalSeparator)
	}
	if p.ThousandsSeparator != "" && p.ThousandsSeparator == p.DecimalSeparator {
		return fmt.Errorf("profile %q: thousands and decimal separator are both %q", p.Name, p.DecimalSeparator)
	}
	if p.Delimiter == p.DecimalSeparator {
		return fmt.Errorf("profile %q: delimiter and decimal separator are both %q", p.Name, p.Delimiter)
	}
	if _, err := GoDateLayout(p.DateFormat); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	if p.HeaderRows < 0 {
		return fmt.Errorf("profile %q: header rows must not be negative", p.Name)
	}

	c := p.Columns
	indices := map[string]*int{
		"date":        &c.Date,
		"amount":      &c.Amount,
		"description": &c.Description,
		"value_date":  c.ValueDate,
		"balance":     c.Balance,
		"reference":   c.Reference,
	}
	for name, idx := range indices {
		if idx != nil && *idx < 0 {
			return fmt.Errorf("profile %q: column %s has negative index %d", p.Name, name, *idx)
		}
	}
	return nil
}

// FieldRange is a zero-based, end-exclusive column range of a fixed-width record
type FieldRange struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

func (r FieldRange) valid() bool {
	return r.Start >= 0 && r.End > r.Start
}

// FixedWidthLayout describes a bank-specific positional record layout
type FixedWidthLayout struct {
	Name             string     `yaml:"name" json:"name"`
	RecordType       FieldRange `yaml:"record_type" json:"record_type"`
	MovementType     string     `yaml:"movement_type" json:"movement_type"`
	ContinuationType string     `yaml:"continuation_type" json:"continuation_type"`
	ContinuationText FieldRange `yaml:"continuation_text" json:"continuation_text"`
	ValueDate        FieldRange `yaml:"value_date" json:"value_date"`
	TransactionDate  FieldRange `yaml:"transaction_date" json:"transaction_date"`
	Sign             FieldRange `yaml:"sign" json:"sign"`
	Amount           FieldRange `yaml:"amount" json:"amount"`
	Reference        FieldRange `yaml:"reference" json:"reference"`
	Description      FieldRange `yaml:"description" json:"description"`
	DateFormat       string     `yaml:"date_format" json:"date_format"`
	DecimalSeparator string     `yaml:"decimal_separator" json:"decimal_separator"`
	ImpliedDecimals  int        `yaml:"implied_decimals" json:"implied_decimals"`
	DebitMarker      string     `yaml:"debit_marker" json:"debit_marker"`
	CreditMarker     string     `yaml:"credit_marker" json:"credit_marker"`
}

// Validate checks the layout ranges and markers
func (l FixedWidthLayout) Validate() error {
	required := map[string]FieldRange{
		"record_type":      l.RecordType,
		"transaction_date": l.TransactionDate,
		"sign":             l.Sign,
		"amount":           l.Amount,
		"description":      l.Description,
	}
	for name, r := range required {
		if !r.valid() {
			return fmt.Errorf("layout %q: invalid range for %s: [%d,%d)", l.Name, name, r.Start, r.End)
		}
	}
	if l.MovementType == "" {
		return fmt.Errorf("layout %q: movement record type is required", l.Name)
	}
	if l.DebitMarker == "" || l.CreditMarker == "" || l.DebitMarker == l.CreditMarker {
		return fmt.Errorf("layout %q: distinct debit and credit markers are required", l.Name)
	}
	if l.ImpliedDecimals < 0 {
		return fmt.Errorf("layout %q: implied decimals must not be negative", l.Name)
	}
	if _, err := GoDateLayout(l.DateFormat); err != nil {
		return fmt.Errorf("layout %q: %w", l.Name, err)
	}
	return nil
}

func intPtr(i int) *int { return &i }

// DefaultProfile returns the corporate banking portal export profile:
// semicolon separated, Italian number and date formats, one header row.
func DefaultProfile() DelimitedProfile {
	return DelimitedProfile{
		Name:               DefaultProfileName,
		Delimiter:          ";",
		DecimalSeparator:   ",",
		ThousandsSeparator: ".",
		DateFormat:         "DD/MM/YYYY",
		HeaderRows:         1,
		Columns: ColumnMap{
			Date:        0,
			ValueDate:   intPtr(1),
			Amount:      2,
			Description: 3,
			Balance:     intPtr(4),
			Reference:   intPtr(5),
		},
	}
}

// DefaultFixedWidthLayout returns the CBI "RH" statement layout (120-column records,
// type 62 movements followed by optional type 63 description continuations).
func DefaultFixedWidthLayout() FixedWidthLayout {
	return FixedWidthLayout{
		Name:             DefaultFixedWidthName,
		RecordType:       FieldRange{Start: 1, End: 3},
		MovementType:     "62",
		ContinuationType: "63",
		ContinuationText: FieldRange{Start: 13, End: 120},
		ValueDate:        FieldRange{Start: 13, End: 19},
		TransactionDate:  FieldRange{Start: 19, End: 25},
		Sign:             FieldRange{Start: 25, End: 26},
		Amount:           FieldRange{Start: 26, End: 41},
		Reference:        FieldRange{Start: 61, End: 77},
		Description:      FieldRange{Start: 86, End: 120},
		DateFormat:       "DDMMYY",
		DecimalSeparator: ",",
		DebitMarker:      "D",
		CreditMarker:     "C",
	}
}

// Config is the per-import parser configuration
type Config struct {
	Delimited  DelimitedProfile `json:"delimited"`
	FixedWidth FixedWidthLayout `json:"fixed_width"`
}

// DefaultConfig returns the built-in profiles
func DefaultConfig() Config {
	return Config{Delimited: DefaultProfile(), FixedWidth: DefaultFixedWidthLayout()}
}

// Profiles is the named set of bank profiles available to imports
type Profiles struct {
	Delimited  map[string]DelimitedProfile `yaml:"delimited"`
	FixedWidth map[string]FixedWidthLayout `yaml:"fixed_width"`
}

// DefaultProfiles returns a registry holding only the built-in profiles
func DefaultProfiles() *Profiles {
	return &Profiles{
		Delimited:  map[string]DelimitedProfile{DefaultProfileName: DefaultProfile()},
		FixedWidth: map[string]FixedWidthLayout{DefaultFixedWidthName: DefaultFixedWidthLayout()},
	}
}

// LoadProfiles reads a YAML profile file and merges it over the built-in defaults.
// An empty path yields the defaults.
func LoadProfiles(path string) (*Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var fromFile Profiles
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for name, p := range fromFile.Delimited {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles.Delimited[name] = p
	}
	for name, l := range fromFile.FixedWidth {
		l.Name = name
		if err := l.Validate(); err != nil {
			return nil, err
		}
		profiles.FixedWidth[name] = l
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"file":        path,
		"delimited":   len(fromFile.Delimited),
		"fixed_width": len(fromFile.FixedWidth),
	}).Info("Loaded bank profiles")

	return profiles, nil
}

// Config resolves a parser configuration. Empty names select the defaults.
func (p *Profiles) Config(delimited, fixedWidth string) (Config, error) {
	cfg := DefaultConfig()

	if name := strings.TrimSpace(delimited); name != "" {
		prof, ok := p.Delimited[name]
		if !ok {
			return Config{}, fmt.Errorf("unknown delimited profile %q", name)
		}
		cfg.Delimited = prof
	}
	if name := strings.TrimSpace(fixedWidth); name != "" {
		layout, ok := p.FixedWidth[name]
		if !ok {
			return Config{}, fmt.Errorf("unknown fixed-width layout %q", name)
		}
		cfg.FixedWidth = layout
	}
	return cfg, nil
}
