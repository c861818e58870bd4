package billing

import (
	"regexp"
	"strings"
)

// vatFormats holds the VAT number format of every country that uses VAT,
// keyed by ISO code. Numbers are matched after normalization, without the
// country prefix.
var vatFormats = map[string]*regexp.Regexp{
	"AT": regexp.MustCompile(`^U\d{8}$`),
	"BE": regexp.MustCompile(`^[01]?\d{9}$`),
	"BG": regexp.MustCompile(`^\d{9,10}$`),
	"CH": regexp.MustCompile(`^E?\d{9}(MWST|TVA|IVA)?$`),
	"CY": regexp.MustCompile(`^\d{8}[A-Z]$`),
	"CZ": regexp.MustCompile(`^\d{8,10}$`),
	"DE": regexp.MustCompile(`^\d{9}$`),
	"DK": regexp.MustCompile(`^\d{8}$`),
	"EE": regexp.MustCompile(`^\d{9}$`),
	"ES": regexp.MustCompile(`^[0-9A-Z]\d{7}[0-9A-Z]$`),
	"FI": regexp.MustCompile(`^\d{8}$`),
	"FR": regexp.MustCompile(`^[0-9A-Z]{2}\d{9}$`),
	"GB": regexp.MustCompile(`^(\d{9}|\d{12}|GD\d{3}|HA\d{3})$`),
	"GR": regexp.MustCompile(`^\d{9}$`),
	"HR": regexp.MustCompile(`^\d{11}$`),
	"HU": regexp.MustCompile(`^\d{8}$`),
	"IE": regexp.MustCompile(`^(\d{7}[A-W][A-I]?|\d[A-Z+*]\d{5}[A-W])$`),
	"IT": regexp.MustCompile(`^\d{11}$`),
	"LT": regexp.MustCompile(`^(\d{9}|\d{12})$`),
	"LU": regexp.MustCompile(`^\d{8}$`),
	"LV": regexp.MustCompile(`^\d{11}$`),
	"MT": regexp.MustCompile(`^\d{8}$`),
	"NL": regexp.MustCompile(`^\d{9}B\d{2}$`),
	"NO": regexp.MustCompile(`^\d{9}(MVA)?$`),
	"PL": regexp.MustCompile(`^\d{10}$`),
	"PT": regexp.MustCompile(`^\d{9}$`),
	"RO": regexp.MustCompile(`^\d{2,10}$`),
	"RS": regexp.MustCompile(`^\d{9}$`),
	"RU": regexp.MustCompile(`^(\d{10}|\d{12})$`),
	"SE": regexp.MustCompile(`^\d{10}01$`),
	"SI": regexp.MustCompile(`^\d{8}$`),
	"SK": regexp.MustCompile(`^\d{10}$`),
}

// vatPrefixes lists the prefixes a VAT number may carry for a country when it
// differs from the ISO code.
var vatPrefixes = map[string][]string{
	"GR": {"EL", "GR"},
	"CH": {"CHE", "CH"},
}

// vatSeparators are stripped from user input before matching.
var vatSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "_", "")

// IsCountryUsingVAT reports whether the named country appears in the VAT
// reference table. Unknown names yield false.
func IsCountryUsingVAT(countryName string) bool {
	code, ok := GetCountryCodeFromName(countryName)
	if !ok {
		return false
	}
	_, uses := vatFormats[code]
	return uses
}

// IsValidVATFormat checks vatNumber against the named country's VAT format.
// Any value, including the empty string, is valid for a country that does
// not use VAT.
func IsValidVATFormat(countryName, vatNumber string) bool {
	code, ok := GetCountryCodeFromName(countryName)
	if !ok {
		return true
	}
	format, uses := vatFormats[code]
	if !uses {
		return true
	}
	return format.MatchString(normalizeVAT(code, vatNumber))
}

func normalizeVAT(code, vatNumber string) string {
	n := strings.ToUpper(vatSeparators.Replace(strings.TrimSpace(vatNumber)))

	prefixes, ok := vatPrefixes[code]
	if !ok {
		prefixes = []string{code}
	}
	for _, p := range prefixes {
		if rest, found := strings.CutPrefix(n, p); found {
			return rest
		}
	}
	return n
}
