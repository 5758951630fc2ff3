// Package catalog holds the static pick lists of the admin form: countries
// with their wine regions and the common grape varieties offered as
// suggestions.
package catalog

import "strings"

// OtherRegion is the catch-all region entry present in every country.
const OtherRegion = "Overig…"

// DefaultCountry is preselected on a fresh form.
const DefaultCountry = "France"

type country struct {
	name    string
	regions []string
}

var countries = []country{
	{"France", []string{"Bordeaux", "Burgundy", "Champagne", "Loire", "Rhône", "Alsace", "Languedoc", "Provence", OtherRegion}},
	{"Italy", []string{"Toscana", "Piemonte", "Veneto", "Sicilia", "Puglia", "Abruzzo", "Friuli", OtherRegion}},
	{"Spain", []string{"Rioja", "Ribera del Duero", "Rías Baixas", "Priorat", "Cava", OtherRegion}},
	{"Germany", []string{"Mosel", "Rheingau", "Pfalz", "Nahe", "Baden", "Franken", OtherRegion}},
	{"Austria", []string{"Wachau", "Kamptal", "Kremstal", "Burgenland", "Steiermark", OtherRegion}},
	{"Portugal", []string{"Douro", "Dão", "Vinho Verde", "Alentejo", "Bairrada", OtherRegion}},
	{"USA", []string{"Napa Valley", "Sonoma", "Willamette Valley", "Walla Walla", "Finger Lakes", OtherRegion}},
	{"Argentina", []string{"Mendoza", "Salta", "Patagonia", OtherRegion}},
	{"Chile", []string{"Maipo", "Colchagua", "Casablanca", "Aconcagua", OtherRegion}},
	{"South Africa", []string{"Stellenbosch", "Swartland", "Paarl", "Walker Bay", "Hemel-en-Aarde", OtherRegion}},
	{"Australia", []string{"Barossa", "McLaren Vale", "Yarra Valley", "Margaret River", "Hunter Valley", OtherRegion}},
	{"New Zealand", []string{"Marlborough", "Central Otago", "Hawke's Bay", "Martinborough", OtherRegion}},
}

var whiteGrapes = []string{
	"Chardonnay", "Sauvignon Blanc", "Riesling", "Chenin Blanc", "Pinot Grigio",
	"Gewürztraminer", "Grüner Veltliner", "Albariño", "Viognier",
}

var redGrapes = []string{
	"Pinot Noir", "Merlot", "Cabernet Sauvignon", "Syrah", "Grenache",
	"Tempranillo", "Sangiovese", "Malbec",
}

// Countries returns the country names in display order.
func Countries() []string {
	out := make([]string, len(countries))
	for i, c := range countries {
		out[i] = c.name
	}
	return out
}

// Regions returns the regions of a country. Unknown countries only offer
// OtherRegion.
func Regions(name string) []string {
	for _, c := range countries {
		if c.name == name {
			return append([]string(nil), c.regions...)
		}
	}
	return []string{OtherRegion}
}

// IsOther reports whether region is the catch-all entry, which asks for a
// free-text region instead.
func IsOther(region string) bool {
	return region != "" && strings.HasPrefix(strings.ToLower(region), "overig")
}

// ResolveRegion returns the region to persist: the selected region, or the
// free-text one when the catch-all is selected ("Overig" if that is empty).
func ResolveRegion(selected, other string) string {
	if !IsOther(selected) {
		return selected
	}
	if other = strings.TrimSpace(other); other != "" {
		return other
	}
	return "Overig"
}

// HasRegion reports whether region is listed for country.
func HasRegion(countryName, region string) bool {
	for _, r := range Regions(countryName) {
		if r == region {
			return true
		}
	}
	return false
}

// GrapeSuggestions returns the white then red varieties offered for
// autocompletion.
func GrapeSuggestions() []string {
	out := make([]string, 0, len(whiteGrapes)+len(redGrapes))
	out = append(out, whiteGrapes...)
	return append(out, redGrapes...)
}
