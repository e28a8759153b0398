// Package normalize holds the pure conversions shared by every source
// adapter: raw price text to a fixed-point amount and raw condition text
// to the canonical vocabulary.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/pkg/market"
)

// conditionMap translates retailer condition wording (including the
// German terms used by rebuy and medimops) to the canonical enum.
var conditionMap = map[string]market.Condition{
	"new":        market.ConditionMint,
	"neu":        market.ConditionMint,
	"like new":   market.ConditionNearMint,
	"wie neu":    market.ConditionNearMint,
	"very fine":  market.ConditionExcellent,
	"fine":       market.ConditionVeryGood,
	"sehr gut":   market.ConditionVeryGood,
	"good":       market.ConditionGood,
	"gut":        market.ConditionGood,
	"fair":       market.ConditionFair,
	"akzeptabel": market.ConditionFair,
	"poor":       market.ConditionPoor,
}

// ParseCondition maps free-form condition text to the canonical enum,
// defaulting to good when the wording is unknown.
func ParseCondition(raw string) market.Condition {
	if c, ok := conditionMap[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c
	}
	return market.ConditionGood
}

// ParsePrice extracts a fixed-point amount from raw price text such as
// "24,99 €" or "EUR 1.234,56". Text without a parseable amount returns
// ok=false; it is never coerced to zero.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Decimal{}, false
	}

	// The last separator is the decimal mark; earlier ones group thousands.
	lastDot := strings.LastIndexByte(cleaned, '.')
	lastComma := strings.LastIndexByte(cleaned, ',')
	sep := lastDot
	if lastComma > sep {
		sep = lastComma
	}

	digits := func(s string) string {
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", "")
	}

	var canonical string
	if sep == -1 {
		canonical = cleaned
	} else {
		intPart := digits(cleaned[:sep])
		fracPart := cleaned[sep+1:]
		if strings.ContainsAny(fracPart, ".,") {
			return decimal.Decimal{}, false
		}
		if intPart == "" {
			intPart = "0"
		}
		canonical = intPart + "." + fracPart
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
