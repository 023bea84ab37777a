// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockStatus is the merchandising stock label shown to customers.
type StockStatus string

const (
	StockStatusInStock     StockStatus = "IN_STOCK"
	StockStatusOutOfStock  StockStatus = "OUT_OF_STOCK"
	StockStatusOnBackorder StockStatus = "ON_BACKORDER"
)

// IsValid checks if the StockStatus is a known value.
func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusInStock, StockStatusOutOfStock, StockStatusOnBackorder:
		return true
	default:
		return false
	}
}

// ProductStatus is the lifecycle state of a product in the catalog.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// IsValid checks if the ProductStatus is a known value.
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	default:
		return false
	}
}

// Product is a sellable catalog item. Cart and order lines reference it but never own it.
type Product struct {
	ID            uuid.UUID          `json:"id"`
	CategoryID    *uuid.UUID         `json:"category_id,omitempty"`
	Category      *Category          `json:"category,omitempty"`
	Name          string             `json:"name"`
	Slug          string             `json:"slug"`
	SKU           string             `json:"sku"`
	Description   string             `json:"description"`
	RegularPrice  decimal.Decimal    `json:"regular_price"`
	SalePrice     *decimal.Decimal   `json:"sale_price,omitempty"`
	StockStatus   StockStatus        `json:"stock_status"`
	StockQuantity *int               `json:"stock_quantity,omitempty"`
	ManageStock   bool               `json:"manage_stock"`
	Status        ProductStatus      `json:"status"`
	IsFeatured    bool               `json:"is_featured"`
	Images        []ProductImage     `json:"images"`
	Attributes    []ProductAttribute `json:"attributes,omitempty"`
	AverageRating float64            `json:"average_rating"` // Derived from reviews at read time.
	ReviewCount   int                `json:"review_count"`   // Derived from reviews at read time.
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ProductImage is one picture of a product. Exactly one image should carry IsMain.
type ProductImage struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text"`
	IsMain    bool      `json:"is_main"`
	SortOrder int       `json:"sort_order"`
}

// ProductAttribute is a free-form name/value pair such as brand=Acme.
type ProductAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AttributeBrand is the attribute name the catalog brand filter matches on.
const AttributeBrand = "brand"

// EffectivePrice returns the sale price when it is set and positive, otherwise the regular price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.IsPositive() {
		return *p.SalePrice
	}

	return p.RegularPrice
}

// IsAvailable reports whether the product may be put into a cart.
func (p *Product) IsAvailable() bool {
	return p.Status == ProductStatusActive
}

// CanSupply reports whether qty units can be held in a cart line.
// Products that do not manage stock accept any quantity; a managed product
// without a recorded quantity is treated as having none.
func (p *Product) CanSupply(qty int) bool {
	if !p.ManageStock {
		return true
	}

	if p.StockQuantity == nil {
		return false
	}

	return *p.StockQuantity >= qty
}

// MainImage returns the primary display image, falling back to the first by sort order.
func (p *Product) MainImage() *ProductImage {
	var first *ProductImage

	for i := range p.Images {
		img := &p.Images[i]
		if img.IsMain {
			return img
		}

		if first == nil || img.SortOrder < first.SortOrder {
			first = img
		}
	}

	return first
}

// WithMainImageOnly returns a shallow copy that carries only the main image, as used in list views.
func (p *Product) WithMainImageOnly() *Product {
	cp := *p
	cp.Images = nil

	if img := p.MainImage(); img != nil {
		cp.Images = []ProductImage{*img}
	}

	return &cp
}
