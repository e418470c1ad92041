// Package format renders amounts and durations for terminal display.
package format

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultGlyph is the currency prefix used when none is configured.
const DefaultGlyph = "Rs."

var printer = message.NewPrinter(language.English)

// Money formats amount with thousands grouping behind glyph, e.g.
// "Rs. 1,234" or "Rs. 1,234.5".  Whole amounts drop the fraction and
// fractional amounts keep at most two decimals without trailing zeros.
func Money(glyph string, amount float64) string {
	if glyph == "" {
		glyph = DefaultGlyph
	}
	return glyph + " " + Number(amount)
}

// Number formats amount with grouping and no currency glyph.
func Number(amount float64) string {
	rounded := math.Round(amount*100) / 100
	if rounded == math.Trunc(rounded) {
		return printer.Sprintf("%.0f", rounded)
	}
	s := printer.Sprintf("%.2f", rounded)
	return strings.TrimRight(s, "0")
}
