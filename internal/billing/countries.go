// Package billing holds billing-detail validation and transforms, and thin
// wrappers over the organization billing endpoints.
package billing

// countryCodes maps English country names, exactly as shown in the billing
// form's country picker, to ISO 3166-1 alpha-2 codes.
var countryCodes = map[string]string{
	"Afghanistan":                      "AF",
	"Albania":                          "AL",
	"Algeria":                          "DZ",
	"Andorra":                          "AD",
	"Angola":                           "AO",
	"Antigua and Barbuda":              "AG",
	"Argentina":                        "AR",
	"Armenia":                          "AM",
	"Australia":                        "AU",
	"Austria":                          "AT",
	"Azerbaijan":                       "AZ",
	"Bahamas":                          "BS",
	"Bahrain":                          "BH",
	"Bangladesh":                       "BD",
	"Barbados":                         "BB",
	"Belarus":                          "BY",
	"Belgium":                          "BE",
	"Belize":                           "BZ",
	"Benin":                            "BJ",
	"Bhutan":                           "BT",
	"Bolivia":                          "BO",
	"Bosnia and Herzegovina":           "BA",
	"Botswana":                         "BW",
	"Brazil":                           "BR",
	"Brunei":                           "BN",
	"Bulgaria":                         "BG",
	"Burkina Faso":                     "BF",
	"Burundi":                          "BI",
	"Cambodia":                         "KH",
	"Cameroon":                         "CM",
	"Canada":                           "CA",
	"Cape Verde":                       "CV",
	"Central African Republic":         "CF",
	"Chad":                             "TD",
	"Chile":                            "CL",
	"China":                            "CN",
	"Colombia":                         "CO",
	"Comoros":                          "KM",
	"Congo":                            "CG",
	"Costa Rica":                       "CR",
	"Croatia":                          "HR",
	"Cuba":                             "CU",
	"Cyprus":                           "CY",
	"Czech Republic":                   "CZ",
	"Democratic Republic of the Congo": "CD",
	"Denmark":                          "DK",
	"Djibouti":                         "DJ",
	"Dominica":                         "DM",
	"Dominican Republic":               "DO",
	"Ecuador":                          "EC",
	"Egypt":                            "EG",
	"El Salvador":                      "SV",
	"Equatorial Guinea":                "GQ",
	"Eritrea":                          "ER",
	"Estonia":                          "EE",
	"Eswatini":                         "SZ",
	"Ethiopia":                         "ET",
	"Fiji":                             "FJ",
	"Finland":                          "FI",
	"France":                           "FR",
	"Gabon":                            "GA",
	"Gambia":                           "GM",
	"Georgia":                          "GE",
	"Germany":                          "DE",
	"Ghana":                            "GH",
	"Greece":                           "GR",
	"Grenada":                          "GD",
	"Guatemala":                        "GT",
	"Guinea":                           "GN",
	"Guinea-Bissau":                    "GW",
	"Guyana":                           "GY",
	"Haiti":                            "HT",
	"Honduras":                         "HN",
	"Hong Kong":                        "HK",
	"Hungary":                          "HU",
	"Iceland":                          "IS",
	"India":                            "IN",
	"Indonesia":                        "ID",
	"Iran":                             "IR",
	"Iraq":                             "IQ",
	"Ireland":                          "IE",
	"Israel":                           "IL",
	"Italy":                            "IT",
	"Ivory Coast":                      "CI",
	"Jamaica":                          "JM",
	"Japan":                            "JP",
	"Jordan":                           "JO",
	"Kazakhstan":                       "KZ",
	"Kenya":                            "KE",
	"Kiribati":                         "KI",
	"Kosovo":                           "XK",
	"Kuwait":                           "KW",
	"Kyrgyzstan":                       "KG",
	"Laos":                             "LA",
	"Latvia":                           "LV",
	"Lebanon":                          "LB",
	"Lesotho":                          "LS",
	"Liberia":                          "LR",
	"Libya":                            "LY",
	"Liechtenstein":                    "LI",
	"Lithuania":                        "LT",
	"Luxembourg":                       "LU",
	"Macau":                            "MO",
	"Madagascar":                       "MG",
	"Malawi":                           "MW",
	"Malaysia":                         "MY",
	"Maldives":                         "MV",
	"Mali":                             "ML",
	"Malta":                            "MT",
	"Marshall Islands":                 "MH",
	"Mauritania":                       "MR",
	"Mauritius":                        "MU",
	"Mexico":                           "MX",
	"Micronesia":                       "FM",
	"Moldova":                          "MD",
	"Monaco":                           "MC",
	"Mongolia":                         "MN",
	"Montenegro":                       "ME",
	"Morocco":                          "MA",
	"Mozambique":                       "MZ",
	"Myanmar":                          "MM",
	"Namibia":                          "NA",
	"Nauru":                            "NR",
	"Nepal":                            "NP",
	"Netherlands":                      "NL",
	"New Zealand":                      "NZ",
	"Nicaragua":                        "NI",
	"Niger":                            "NE",
	"Nigeria":                          "NG",
	"North Korea":                      "KP",
	"North Macedonia":                  "MK",
	"Norway":                           "NO",
	"Oman":                             "OM",
	"Pakistan":                         "PK",
	"Palau":                            "PW",
	"Palestine":                        "PS",
	"Panama":                           "PA",
	"Papua New Guinea":                 "PG",
	"Paraguay":                         "PY",
	"Peru":                             "PE",
	"Philippines":                      "PH",
	"Poland":                           "PL",
	"Portugal":                         "PT",
	"Puerto Rico":                      "PR",
	"Qatar":                            "QA",
	"Romania":                          "RO",
	"Russia":                           "RU",
	"Rwanda":                           "RW",
	"Saint Kitts and Nevis":            "KN",
	"Saint Lucia":                      "LC",
	"Saint Vincent and the Grenadines": "VC",
	"Samoa":                            "WS",
	"San Marino":                       "SM",
	"Sao Tome and Principe":            "ST",
	"Saudi Arabia":                     "SA",
	"Senegal":                          "SN",
	"Serbia":                           "RS",
	"Seychelles":                       "SC",
	"Sierra Leone":                     "SL",
	"Singapore":                        "SG",
	"Slovakia":                         "SK",
	"Slovenia":                         "SI",
	"Solomon Islands":                  "SB",
	"Somalia":                          "SO",
	"South Africa":                     "ZA",
	"South Korea":                      "KR",
	"South Sudan":                      "SS",
	"Spain":                            "ES",
	"Sri Lanka":                        "LK",
	"Sudan":                            "SD",
	"Suriname":                         "SR",
	"Sweden":                           "SE",
	"Switzerland":                      "CH",
	"Syria":                            "SY",
	"Taiwan":                           "TW",
	"Tajikistan":                       "TJ",
	"Tanzania":                         "TZ",
	"Thailand":                         "TH",
	"Timor-Leste":                      "TL",
	"Togo":                             "TG",
	"Tonga":                            "TO",
	"Trinidad and Tobago":              "TT",
	"Tunisia":                          "TN",
	"Turkey":                           "TR",
	"Turkmenistan":                     "TM",
	"Tuvalu":                           "TV",
	"Uganda":                           "UG",
	"Ukraine":                          "UA",
	"United Arab Emirates":             "AE",
	"United Kingdom":                   "GB",
	"United States":                    "US",
	"Uruguay":                          "UY",
	"Uzbekistan":                       "UZ",
	"Vanuatu":                          "VU",
	"Vatican City":                     "VA",
	"Venezuela":                        "VE",
	"Vietnam":                          "VN",
	"Yemen":                            "YE",
	"Zambia":                           "ZM",
	"Zimbabwe":                         "ZW",
}

// countryNames is the inverse of countryCodes.
var countryNames = func() map[string]string {
	m := make(map[string]string, len(countryCodes))
	for name, code := range countryCodes {
		m[code] = name
	}
	return m
}()

// statesRequiredCountries lists countries whose addresses must carry a state
// or province.
var statesRequiredCountries = map[string]bool{
	"US": true,
	"CA": true,
}

// GetCountryCodeFromName returns the ISO code for an exact country name match.
// The second result is false when the name is unknown.
func GetCountryCodeFromName(name string) (string, bool) {
	code, ok := countryCodes[name]
	return code, ok
}

// GetCountryNameFromCode is the inverse of GetCountryCodeFromName.
func GetCountryNameFromCode(code string) (string, bool) {
	name, ok := countryNames[code]
	return name, ok
}

// IsStateRequired reports whether addresses in the named country need a state.
func IsStateRequired(countryName string) bool {
	code, ok := GetCountryCodeFromName(countryName)
	return ok && statesRequiredCountries[code]
}
