package usecase

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListProductsInput holds catalog filters. Zero-valued fields do not filter.
type ListProductsInput struct {
	Search      string
	CategoryID  *uuid.UUID
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	StockStatus entity.StockStatus
	Brand       string
	Status      entity.ProductStatus // Only honoured for back-office listings.
	Sort        string
	PageRequest
}

// ProductInput is the full set of writable product fields.
type ProductInput struct {
	CategoryID    *uuid.UUID
	Name          string
	Slug          string
	SKU           string
	Description   string
	RegularPrice  decimal.Decimal
	SalePrice     *decimal.Decimal
	StockStatus   entity.StockStatus
	StockQuantity *int
	ManageStock   bool
	Status        entity.ProductStatus
	IsFeatured    bool
	Images        []entity.ProductImage
	Attributes    []entity.ProductAttribute
}

// CategoryInput creates a category.
type CategoryInput struct {
	ParentID    *uuid.UUID
	Name        string
	Slug        string
	Description string
}

// ReviewInput rates a product.
type ReviewInput struct {
	Rating  int
	Comment string
}

// CatalogUsecase serves product and category reads plus the back-office catalog writes.
type CatalogUsecase interface {
	// ListProducts returns active products matching every filter.
	ListProducts(ctx context.Context, input *ListProductsInput) (*Page[*entity.Product], error)

	// ListAllProducts is the back-office listing; it honours input.Status and shows every status otherwise.
	ListAllProducts(ctx context.Context, input *ListProductsInput) (*Page[*entity.Product], error)

	// GetProduct resolves an active product by UUID or slug.
	GetProduct(ctx context.Context, idOrSlug string) (*entity.Product, error)

	ListCategories(ctx context.Context) ([]*entity.Category, error)
	CreateCategory(ctx context.Context, input *CategoryInput) (*entity.Category, error)

	CreateProduct(ctx context.Context, input *ProductInput) (*entity.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input *ProductInput) (*entity.Product, error)

	// ArchiveProduct hides the product from the storefront while existing order lines keep referencing it.
	ArchiveProduct(ctx context.Context, productID uuid.UUID) error

	// AddReview records the caller's single review of a product.
	AddReview(ctx context.Context, userID, productID uuid.UUID, input *ReviewInput) (*entity.Review, error)
}
