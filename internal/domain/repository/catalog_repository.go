package repository

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for catalog persistence.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateProduct  = errors.New("product slug or sku already exists")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category name or slug already exists")
	ErrDuplicateReview   = errors.New("user already reviewed this product")
)

// ProductRepository reads and writes catalog products.
// Reads return AverageRating and ReviewCount computed from reviews.
type ProductRepository interface {
	// FindByID retrieves a product with all images and attributes.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)

	// FindBySlug retrieves a product by its unique slug.
	FindBySlug(ctx context.Context, slug string) (*entity.Product, error)

	// List returns one page of products matching every filter in q, along with the total match count.
	// Listed products carry only their main image.
	List(ctx context.Context, q ProductQuery) ([]*entity.Product, int64, error)

	// Create persists a product together with its images and attributes.
	Create(ctx context.Context, product *entity.Product) error

	// Update replaces the product's fields, images and attributes.
	Update(ctx context.Context, product *entity.Product) error
}

// CategoryRepository reads and writes categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]*entity.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	Create(ctx context.Context, category *entity.Category) error
}

// ReviewRepository persists product reviews.
type ReviewRepository interface {
	// Create stores a review, returning ErrDuplicateReview if the user already reviewed the product.
	Create(ctx context.Context, review *entity.Review) error
}
