package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCountryCodeFromName(t *testing.T) {
	tests := []struct {
		name     string
		wantCode string
		wantOK   bool
	}{
		{"Germany", "DE", true},
		{"United States", "US", true},
		{"Greece", "GR", true},
		{"germany", "", false},
		{"Atlantis", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := GetCountryCodeFromName(tt.name)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOK, ok)

			// Repeated lookups are stable.
			again, okAgain := GetCountryCodeFromName(tt.name)
			assert.Equal(t, code, again)
			assert.Equal(t, ok, okAgain)
		})
	}
}

func TestCountryTableIsBijective(t *testing.T) {
	for name, code := range countryCodes {
		back, ok := GetCountryNameFromCode(code)
		assert.True(t, ok, "code %s missing inverse", code)
		assert.Equal(t, name, back, "code %s is shared by two names", code)
	}
}

func TestVATCountriesAreKnownCountries(t *testing.T) {
	for code := range vatFormats {
		_, ok := GetCountryNameFromCode(code)
		assert.True(t, ok, "VAT table references unknown code %s", code)
	}
}

func TestIsCountryUsingVAT(t *testing.T) {
	assert.True(t, IsCountryUsingVAT("Germany"))
	assert.True(t, IsCountryUsingVAT("Switzerland"))
	assert.True(t, IsCountryUsingVAT("United Kingdom"))
	assert.False(t, IsCountryUsingVAT("United States"))
	assert.False(t, IsCountryUsingVAT("Japan"))
	assert.False(t, IsCountryUsingVAT("Atlantis"))
	assert.False(t, IsCountryUsingVAT(""))
}

func TestIsValidVATFormat_NonVATCountriesAcceptAnything(t *testing.T) {
	inputs := []string{"", "anything", "DE123456789", "!!!"}
	for name, code := range countryCodes {
		if _, uses := vatFormats[code]; uses {
			continue
		}
		for _, vat := range inputs {
			assert.True(t, IsValidVATFormat(name, vat), "%s with %q", name, vat)
		}
	}
	assert.True(t, IsValidVATFormat("Atlantis", "x"))
}

func TestIsValidVATFormat(t *testing.T) {
	tests := []struct {
		country string
		vat     string
		want    bool
	}{
		{"Germany", "DE123456789", true},
		{"Germany", "123456789", true},
		{"Germany", "de 123 456 789", true},
		{"Germany", "DE12345678", false},
		{"Germany", "", false},
		{"Austria", "ATU12345678", true},
		{"Austria", "AT12345678", false},
		{"Greece", "EL123456789", true},
		{"Greece", "GR123456789", true},
		{"Netherlands", "NL123456789B01", true},
		{"Netherlands", "NL123456789", false},
		{"France", "FRXX123456789", true},
		{"Switzerland", "CHE-123.456.789 MWST", true},
		{"Sweden", "SE123456789001", true},
		{"Sweden", "SE123456789002", false},
		{"United Kingdom", "GB123456789", true},
		{"United Kingdom", "GBGD123", true},
		{"Ireland", "IE1234567T", true},
		{"Spain", "ESX1234567X", true},
	}

	for _, tt := range tests {
		t.Run(tt.country+"/"+tt.vat, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidVATFormat(tt.country, tt.vat))
		})
	}
}

func TestIsStateRequired(t *testing.T) {
	assert.True(t, IsStateRequired("United States"))
	assert.True(t, IsStateRequired("Canada"))
	assert.False(t, IsStateRequired("Germany"))
	assert.False(t, IsStateRequired(""))
}
