package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMarkupPercent is applied when no markup configuration is supplied
const DefaultMarkupPercent = 30.0

// pricePattern is one locale convention for writing an amount
type pricePattern struct {
	name string
	re   *regexp.Regexp
}

// PriceNormalizer parses free-text price strings across the punctuation
// conventions the source mixes freely (US, European, plain decimal)
type PriceNormalizer struct {
	patterns []pricePattern
}

// NewPriceNormalizer creates a normalizer with patterns ordered by specificity
func NewPriceNormalizer() *PriceNormalizer {
	return &PriceNormalizer{
		patterns: []pricePattern{
			// US/UK: $1,234.56
			{"us_uk", regexp.MustCompile(`(?i)(US\s?\$|[$£€])?\s*([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?)`)},
			// European: €1.234,56 or €1 234,56
			{"european", regexp.MustCompile(`(?i)(US\s?\$|[$£€])?\s*([0-9]{1,3}(?:[.\s][0-9]{3})+(?:,[0-9]{1,2})?)`)},
			// Plain decimal: 1234.56 or 1234,56, optional symbol
			{"simple", regexp.MustCompile(`(?i)(US\s?\$|[$£€])?\s*([0-9]+(?:[.,][0-9]{1,2})?)`)},
		},
	}
}

// Parse extracts the first price-like amount from text. Unparsable or
// absent input yields zero, which downstream treats as "no price found".
// The second return is the currency symbol seen next to the amount, if any.
func (pn *PriceNormalizer) Parse(text string) (float64, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ""
	}

	for _, pattern := range pn.patterns {
		matches := pattern.re.FindStringSubmatch(text)
		if matches == nil {
			continue
		}

		currency := symbolToCurrency(matches[1])
		cleaned := cleanNumberString(matches[2], pattern.name)

		if value, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return value, currency
		}
	}

	return 0, ""
}

// cleanNumberString converts a locale-specific number into standard decimal form
func cleanNumberString(numberStr, locale string) string {
	switch locale {
	case "us_uk":
		return strings.ReplaceAll(numberStr, ",", "")

	case "european":
		// 1.234,56 -> 1234.56
		temp := strings.NewReplacer(".", "", " ", "", " ", "").Replace(numberStr)
		return strings.ReplaceAll(temp, ",", ".")

	case "simple":
		if strings.Contains(numberStr, ",") && !strings.Contains(numberStr, ".") {
			return strings.ReplaceAll(numberStr, ",", ".")
		}
		return numberStr

	default:
		return numberStr
	}
}

// symbolToCurrency maps a matched currency symbol to an ISO code
func symbolToCurrency(symbol string) string {
	switch strings.ToUpper(strings.TrimSpace(symbol)) {
	case "$", "US$", "US $":
		return "USD"
	case "£":
		return "GBP"
	case "€":
		return "EUR"
	default:
		return ""
	}
}

// MarkupEngine computes the retail price from the source price.
//
// Rounding policy: psychological pricing. The marked-up amount is raised to
// the next whole unit minus one cent, so every retail price ends in .99
// (10.00 at 30% markup retails at 12.99). This is the single policy used
// everywhere; there is no plain-rounding variant.
type MarkupEngine struct {
	percent float64
}

// NewMarkupEngine creates a markup engine; a non-positive percent falls back
// to the default of 30
func NewMarkupEngine(percent float64) *MarkupEngine {
	if percent <= 0 {
		percent = DefaultMarkupPercent
	}
	return &MarkupEngine{percent: percent}
}

// Percent returns the configured markup percentage
func (e *MarkupEngine) Percent() float64 {
	return e.percent
}

// Retail applies the markup and psychological rounding to a source price.
// Zero in, zero out: a missing source price is a signal for the caller's
// floor policy, not something to be priced here.
func (e *MarkupEngine) Retail(original float64) float64 {
	if original <= 0 {
		return 0
	}

	marked := math.Round(original*(1+e.percent/100)*100) / 100
	return math.Ceil(marked) - 0.01
}
