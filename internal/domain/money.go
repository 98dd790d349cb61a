package domain

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"KRW": "₩",
	"INR": "₹",
	"TRY": "₺",
}

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatAmount renders an integer minor-unit amount as currency text, e.g.
// FormatAmount(500, "usd") == "$5.00". Amounts are divided by 100 and shown
// with two decimals and digit grouping; unknown or non-ISO codes fall back to
// the upper-cased code as prefix.
func FormatAmount(minor int64, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}

	prefix := code + " "
	if symbol, ok := currencySymbols[code]; ok {
		prefix = symbol
	}

	return prefix + moneyPrinter.Sprintf("%.2f", float64(minor)/100)
}
