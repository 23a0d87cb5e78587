package reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Indian-locale printer: lakh/crore digit grouping (1,23,456.78).
var printer = message.NewPrinter(language.MustParse("en-IN"))

// Amount renders a money value with Indian digit grouping, two decimals.
func Amount(v float64) string {
	return printer.Sprintf("%.2f", v)
}
