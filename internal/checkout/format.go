package checkout

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var display = message.NewPrinter(language.English)

// FormatAmount renders a value with thousands separators for display,
// rounded to at most two fraction digits. Formatting happens only at the
// presentation boundary; all arithmetic stays on decimal.Decimal. The
// value is never routed through float64, which loses integer precision
// past 2^53.
func FormatAmount(d decimal.Decimal) string {
	s := d.Round(2).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var grouped string
	if n, err := strconv.ParseUint(intPart, 10, 64); err == nil {
		grouped = display.Sprintf("%v", number.Decimal(n))
	} else {
		grouped = groupThousands(intPart)
	}

	out := grouped
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// groupThousands handles integer parts too wide for uint64. Input is a
// plain digit string.
func groupThousands(s string) string {
	var b strings.Builder
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
