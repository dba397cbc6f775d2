// Package format renders donation amounts for the operator surface.
package format

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported lists the locales the operator surface is rendered in. The first
// entry is the fallback.
var Supported = []language.Tag{
	language.English,
	language.Spanish,
	language.Catalan,
	language.German,
	language.French,
	language.Indonesian,
}

var matcher = language.NewMatcher(Supported)

// suffixSymbol lists the base languages that write the symbol after the number.
var suffixSymbol = map[string]bool{"es": true, "ca": true, "de": true, "fr": true}

// MatchLocale picks the best supported locale for the candidates, which may
// be BCP 47 tags or Accept-Language headers. Unparseable values are skipped.
func MatchLocale(candidates ...string) language.Tag {
	var tags []language.Tag
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if parsed, _, err := language.ParseAcceptLanguage(c); err == nil {
			tags = append(tags, parsed...)
		}
	}
	if len(tags) == 0 {
		return Supported[0]
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Supported[0]
	}
	return Supported[index]
}

// LocaleForCountry maps an ISO 3166 country code to a supported locale.
func LocaleForCountry(country string) language.Tag {
	region, err := language.ParseRegion(strings.TrimSpace(country))
	if err != nil {
		return Supported[0]
	}
	tag, err := language.Compose(language.Und, region)
	if err != nil {
		return Supported[0]
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return Supported[0]
	}
	return Supported[index]
}

// Amount renders an amount held in hundredths of code in tag's conventions,
// e.g. "$1,234.50" or "1.234,50 €". The currency's own scale decides the
// decimals shown. Unknown codes fall back to two decimals and the code.
func Amount(tag language.Tag, minor int64, code string) string {
	p := message.NewPrinter(tag)
	code = strings.ToUpper(strings.TrimSpace(code))

	unit, err := currency.ParseISO(code)
	if err != nil {
		return p.Sprintf("%.2f", float64(minor)/100) + " " + code
	}

	scale, _ := currency.Standard.Rounding(unit)
	value := float64(minor) / 100
	number := p.Sprintf(fmt.Sprintf("%%.%df", scale), value)
	symbol := p.Sprint(currency.NarrowSymbol(unit))

	base, _ := tag.Base()
	if suffixSymbol[base.String()] {
		return number + " " + symbol
	}
	return symbol + number
}
