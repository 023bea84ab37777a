package repository

import (
	"storefront/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductFilter is one condition of a catalog query. Filters in a query are combined with AND.
// The concrete types below are the complete set; storage adapters switch on them.
type ProductFilter interface {
	productFilter()
}

// TextFilter matches the term against name, description and SKU, ignoring case.
type TextFilter struct {
	Term string
}

// CategoryFilter keeps products of one category.
type CategoryFilter struct {
	CategoryID uuid.UUID
}

// PriceRangeFilter bounds the effective price. A nil bound is open.
type PriceRangeFilter struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// StockStatusFilter keeps products with the given stock label.
type StockStatusFilter struct {
	Status entity.StockStatus
}

// BrandFilter keeps products whose brand attribute equals Brand, ignoring case.
type BrandFilter struct {
	Brand string
}

// StatusFilter keeps products in the given lifecycle status.
type StatusFilter struct {
	Status entity.ProductStatus
}

func (TextFilter) productFilter()        {}
func (CategoryFilter) productFilter()    {}
func (PriceRangeFilter) productFilter()  {}
func (StockStatusFilter) productFilter() {}
func (BrandFilter) productFilter()       {}
func (StatusFilter) productFilter()      {}

// ProductSort orders catalog results.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortRating    ProductSort = "rating" // Average rating, then featured first.
)

// ParseProductSort maps a query value to a sort key, defaulting to SortNewest.
func ParseProductSort(s string) ProductSort {
	switch ProductSort(s) {
	case SortPriceAsc, SortPriceDesc, SortRating:
		return ProductSort(s)
	default:
		return SortNewest
	}
}

// ProductQuery is a typed catalog query. Page is 1-based.
type ProductQuery struct {
	Filters []ProductFilter
	Sort    ProductSort
	Page    int
	Limit   int
}

// Where appends filters and returns the query for chaining.
func (q ProductQuery) Where(filters ...ProductFilter) ProductQuery {
	q.Filters = append(append([]ProductFilter(nil), q.Filters...), filters...)

	return q
}

// Offset returns the number of rows skipped before the requested page.
func (q ProductQuery) Offset() int {
	return offset(q.Page, q.Limit)
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}

	return (page - 1) * limit
}
