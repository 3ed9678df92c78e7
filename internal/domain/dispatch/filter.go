package dispatch

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical CRM filter literals used when a slug is unknown
const (
	DefaultCity        = "CATALÃO"
	DefaultServiceType = "SUPORTE (RÁDIO/FIBRA)"
)

// Default server-side search selecting open orders: no closure date yet
const (
	DefaultSearchField = "data_fechamento"
	DefaultSearchValue = "null"
)

// FilterSlugs are the user-facing filter values of a batch export
type FilterSlugs struct {
	City        string
	ServiceType string
}

// SearchFilter is the field/value pair sent to the CRM record search
type SearchFilter struct {
	Field string
	Value string
}

// DefaultSearchFilter selects orders that have not been closed
func DefaultSearchFilter() SearchFilter {
	return SearchFilter{Field: DefaultSearchField, Value: DefaultSearchValue}
}

// FilterCriteria selects the orders of a batch export
type FilterCriteria struct {
	City        string       `json:"city"`
	ServiceType string       `json:"service_type"`
	Search      SearchFilter `json:"-"`
}

// FilterCatalog maps slugs to canonical CRM literals
type FilterCatalog struct {
	cities       map[string]string
	serviceTypes map[string]string
	search       SearchFilter
}

// NewFilterCatalog returns the catalog of known cities and service types
func NewFilterCatalog() *FilterCatalog {
	return &FilterCatalog{
		cities: map[string]string{
			"catalao":      DefaultCity,
			"goiandira":    "GOIANDIRA",
			"ouvidor":      "OUVIDOR",
			"tres-ranchos": "TRÊS RANCHOS",
			"davinopolis":  "DAVINÓPOLIS",
			"campo-alegre": "CAMPO ALEGRE DE GOIÁS",
		},
		serviceTypes: map[string]string{
			"suporte":     DefaultServiceType,
			"instalacao":  "INSTALAÇÃO",
			"mudanca":     "MUDANÇA DE ENDEREÇO",
			"retirada":    "RETIRADA DE EQUIPAMENTO",
			"viabilidade": "VIABILIDADE TÉCNICA",
		},
		search: DefaultSearchFilter(),
	}
}

// WithSearch returns a copy of the catalog using a different default search
func (c *FilterCatalog) WithSearch(search SearchFilter) *FilterCatalog {
	cp := *c
	if search.Field != "" {
		cp.search = search
	}
	return &cp
}

// City resolves a city slug; unknown slugs yield DefaultCity
func (c *FilterCatalog) City(slug string) string {
	if v, ok := c.cities[NormalizeSlug(slug)]; ok {
		return v
	}
	return DefaultCity
}

// ServiceType resolves a service type slug; unknown slugs yield DefaultServiceType
func (c *FilterCatalog) ServiceType(slug string) string {
	if v, ok := c.serviceTypes[NormalizeSlug(slug)]; ok {
		return v
	}
	return DefaultServiceType
}

// Resolve turns user slugs into filter criteria. It never fails.
func (c *FilterCatalog) Resolve(slugs FilterSlugs) FilterCriteria {
	return FilterCriteria{
		City:        c.City(slugs.City),
		ServiceType: c.ServiceType(slugs.ServiceType),
		Search:      c.search,
	}
}

// CitySlugs lists the known city slugs
func (c *FilterCatalog) CitySlugs() []string {
	return keys(c.cities)
}

// ServiceTypeSlugs lists the known service type slugs
func (c *FilterCatalog) ServiceTypeSlugs() []string {
	return keys(c.serviceTypes)
}

// NormalizeSlug strips accents, lower-cases and joins words with "-", so
// "Três Ranchos", "tres_ranchos" and "tres-ranchos" are the same slug.
func NormalizeSlug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		plain = s
	}
	plain = cases.Lower(language.BrazilianPortuguese).String(plain)
	fields := strings.FieldsFunc(plain, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	return strings.Join(fields, "-")
}

func keys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
