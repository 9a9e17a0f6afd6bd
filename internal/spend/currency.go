package spend

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseCurrency is the currency every aggregate is reported in
const BaseCurrency = "INR"

// defaultRates are units of INR per unit of foreign currency
var defaultRates = map[string]float64{
	"INR": 1,
	"USD": 83,
	"EUR": 90,
	"GBP": 105,
	"AUD": 55,
	"SGD": 62,
	"AED": 22.6,
}

var indianEnglish = language.MustParse("en-IN")

// Converter converts amounts into INR from a fixed rate table.
// It is read-only after construction and safe for concurrent use.
type Converter struct {
	rates map[string]float64
}

// RateFile is the YAML layout of a currency rate table
type RateFile struct {
	Base  string             `yaml:"base"`
	Rates map[string]float64 `yaml:"rates"`
}

// NewConverter builds a converter from the compiled defaults overlaid with rates
func NewConverter(rates map[string]float64) *Converter {
	merged := make(map[string]float64, len(defaultRates)+len(rates))
	for k, v := range defaultRates {
		merged[k] = v
	}
	for k, v := range rates {
		if v > 0 {
			merged[strings.ToUpper(strings.TrimSpace(k))] = v
		}
	}
	return &Converter{rates: merged}
}

// LoadConverter reads a rate table from a YAML file. An empty path yields the defaults.
func LoadConverter(path string) (*Converter, error) {
	if path == "" {
		return NewConverter(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	return ParseRates(data)
}

// ParseRates builds a converter from YAML rate table bytes
func ParseRates(data []byte) (*Converter, error) {
	var rf RateFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}
	if rf.Base != "" && !strings.EqualFold(rf.Base, BaseCurrency) {
		return nil, fmt.Errorf("rates base must be %s, got %q", BaseCurrency, rf.Base)
	}
	return NewConverter(rf.Rates), nil
}

// Rate returns the INR rate for code; unknown codes convert at 1
func (c *Converter) Rate(code string) float64 {
	if r, ok := c.rates[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return r
	}
	return 1
}

// ToINR converts amount from code into INR
func (c *Converter) ToINR(amount float64, code string) float64 {
	return amount * c.Rate(code)
}

// FormatINR renders v with the rupee sign, Indian digit grouping and two decimals
func FormatINR(v float64) string {
	return message.NewPrinter(indianEnglish).Sprintf("₹%.2f", v)
}
