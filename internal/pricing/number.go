package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// trailingFractionRe matches a 1-2 digit group after the final separator,
// e.g. the ",00" in "1 490,00" or the ".99" in "10.99".
var trailingFractionRe = regexp.MustCompile(`[.,](\d{1,2})$`)

var separatorStripper = strings.NewReplacer(".", "", ",", "", " ", "", " ", "")

// NormalizeNumber parses a localized numeric literal into a canonical
// decimal. The input may contain digits plus comma, period and space
// separators only.
//
// The bias is deliberate: a trailing 1-2 digit group after a separator is
// the fractional part, every other separator is a thousands separator.
// "1.234" therefore parses as 1234, not 1.234. This ambiguity is inherent
// to the inputs and the bias must not change without revisiting every
// downstream consumer.
func NormalizeNumber(token string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return decimal.Decimal{}, false
	}

	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == ',' || r == ' ' || r == ' ':
		default:
			return decimal.Decimal{}, false
		}
	}
	if !hasDigit {
		return decimal.Decimal{}, false
	}

	if m := trailingFractionRe.FindStringSubmatch(s); m != nil {
		intPart := separatorStripper.Replace(s[:len(s)-len(m[0])])
		if intPart == "" {
			intPart = "0"
		}
		d, err := decimal.NewFromString(intPart + "." + m[1])
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}

	d, err := decimal.NewFromString(separatorStripper.Replace(s))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
