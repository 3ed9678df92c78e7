package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "catalao", want: "catalao"},
		{in: "Catalão", want: "catalao"},
		{in: "  CATALÃO ", want: "catalao"},
		{in: "Três Ranchos", want: "tres-ranchos"},
		{in: "tres_ranchos", want: "tres-ranchos"},
		{in: "tres--ranchos", want: "tres-ranchos"},
		{in: "Instalação", want: "instalacao"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSlug(tt.in))
		})
	}
}

func TestFilterCatalog_Resolve(t *testing.T) {
	catalog := NewFilterCatalog()

	t.Run("known slugs map to CRM literals", func(t *testing.T) {
		c := catalog.Resolve(FilterSlugs{City: "ouvidor", ServiceType: "instalacao"})
		assert.Equal(t, "OUVIDOR", c.City)
		assert.Equal(t, "INSTALAÇÃO", c.ServiceType)
		assert.Equal(t, DefaultSearchFilter(), c.Search)
	})

	t.Run("accented input resolves", func(t *testing.T) {
		assert.Equal(t, "TRÊS RANCHOS", catalog.City("Três Ranchos"))
		assert.Equal(t, "MUDANÇA DE ENDEREÇO", catalog.ServiceType("Mudança"))
	})

	t.Run("unknown city resolves to the default", func(t *testing.T) {
		assert.Equal(t, DefaultCity, catalog.City("xyz"))
	})

	t.Run("unknown service type resolves to the default", func(t *testing.T) {
		assert.Equal(t, DefaultServiceType, catalog.ServiceType("xyz"))
	})

	t.Run("empty slugs resolve to defaults", func(t *testing.T) {
		c := catalog.Resolve(FilterSlugs{})
		assert.Equal(t, DefaultCity, c.City)
		assert.Equal(t, DefaultServiceType, c.ServiceType)
	})
}

func TestFilterCatalog_WithSearch(t *testing.T) {
	base := NewFilterCatalog()
	custom := base.WithSearch(SearchFilter{Field: "status", Value: "A"})

	assert.Equal(t, SearchFilter{Field: "status", Value: "A"}, custom.Resolve(FilterSlugs{}).Search)
	assert.Equal(t, DefaultSearchFilter(), base.Resolve(FilterSlugs{}).Search)

	same := base.WithSearch(SearchFilter{})
	assert.Equal(t, DefaultSearchFilter(), same.Resolve(FilterSlugs{}).Search)
}

func TestFilterCatalog_Slugs(t *testing.T) {
	catalog := NewFilterCatalog()
	assert.Contains(t, catalog.CitySlugs(), "catalao")
	assert.Contains(t, catalog.ServiceTypeSlugs(), "suporte")
	assert.IsIncreasing(t, catalog.CitySlugs())
}

func TestOrderRecord_MatchesCriteria(t *testing.T) {
	criteria := FilterCriteria{City: "CATALÃO", ServiceType: "INSTALAÇÃO"}

	match := OrderRecord{OrderID: "1", City: Known("CATALÃO"), ServiceType: Known("INSTALAÇÃO")}
	assert.True(t, match.MatchesCriteria(criteria))

	otherCity := OrderRecord{OrderID: "2", City: Known("OUVIDOR"), ServiceType: Known("INSTALAÇÃO")}
	assert.False(t, otherCity.MatchesCriteria(criteria))

	caseDiffers := OrderRecord{OrderID: "3", City: Known("Catalão"), ServiceType: Known("INSTALAÇÃO")}
	assert.False(t, caseDiffers.MatchesCriteria(criteria))

	unset := NewOrderRecord("4")
	assert.False(t, unset.MatchesCriteria(criteria))
}
