package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var frPrinter = message.NewPrinter(language.French)

// nbsp separates thousands and units so amounts never wrap.
const nbsp = "\u00a0"

// FormatFCFA renders an amount with French digit grouping and the FCFA
// suffix, e.g. "912 915 FCFA".
func FormatFCFA(amount int64) string {
	return FormatInt(amount) + nbsp + DefaultCurrency
}

// FormatInt renders an integer with French digit grouping.
func FormatInt(n int64) string {
	return normalizeSpaces(frPrinter.Sprint(number.Decimal(n)))
}

// FormatPercent renders a percentage with one decimal and a decimal
// comma, e.g. "4,2 %".
func FormatPercent(p float64) string {
	rounded, _ := decimal.NewFromFloat(p).Round(1).Float64()
	s := frPrinter.Sprint(number.Decimal(rounded, number.MinFractionDigits(1), number.MaxFractionDigits(1)))
	return normalizeSpaces(s) + nbsp + "%"
}

// normalizeSpaces maps the CLDR grouping separators onto one character.
func normalizeSpaces(s string) string {
	return strings.NewReplacer("\u202f", nbsp, "\u2009", nbsp).Replace(s)
}
