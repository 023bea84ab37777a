package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseProductSort(t *testing.T) {
	assert.Equal(t, SortPriceAsc, ParseProductSort("price_asc"))
	assert.Equal(t, SortPriceDesc, ParseProductSort("price_desc"))
	assert.Equal(t, SortRating, ParseProductSort("rating"))
	assert.Equal(t, SortNewest, ParseProductSort(""))
	assert.Equal(t, SortNewest, ParseProductSort("popularity"))
}

func TestProductQuery_WhereDoesNotAlias(t *testing.T) {
	base := ProductQuery{Filters: make([]ProductFilter, 0, 4)}
	base = base.Where(TextFilter{Term: "mug"})

	a := base.Where(CategoryFilter{CategoryID: uuid.New()})
	b := base.Where(BrandFilter{Brand: "acme"})

	assert.Len(t, base.Filters, 1)
	assert.IsType(t, CategoryFilter{}, a.Filters[1])
	assert.IsType(t, BrandFilter{}, b.Filters[1])
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, ProductQuery{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, ProductQuery{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 0, ProductQuery{Page: 0, Limit: 20}.Offset())
	assert.Equal(t, 10, OrderQuery{Page: 2, Limit: 10}.Offset())
}
