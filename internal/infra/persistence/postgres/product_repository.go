package postgres

import (
	"context"
	"strings"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	// effectivePriceExpr mirrors entity.Product.EffectivePrice in SQL.
	effectivePriceExpr = "CASE WHEN products.sale_price IS NOT NULL AND products.sale_price > 0 THEN products.sale_price ELSE products.regular_price END"

	ratingsJoin = "LEFT JOIN (SELECT product_id, AVG(rating)::float8 AS average_rating, COUNT(*) AS review_count " +
		"FROM reviews GROUP BY product_id) AS ratings ON ratings.product_id = products.id"

	productColumnsWithRatings = "products.*, COALESCE(ratings.average_rating, 0) AS average_rating, COALESCE(ratings.review_count, 0) AS review_count"
)

// productRepository implements the repository.ProductRepository interface.
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository is the constructor for productRepository.
func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// FindByID retrieves a product with its category, images, attributes and rating.
func (repo *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	return repo.findOne(ctx, "products.id = ?", id)
}

// FindBySlug retrieves a product by its unique slug.
func (repo *productRepository) FindBySlug(ctx context.Context, slug string) (*entity.Product, error) {
	return repo.findOne(ctx, "products.slug = ?", slug)
}

func (repo *productRepository) findOne(ctx context.Context, query string, arg any) (*entity.Product, error) {
	var productM model.ProductModel

	if err := repo.db.WithContext(ctx).
		Scopes(withRatings, withProductDetails).
		Where(query, arg).
		First(&productM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProductNotFound
		}

		return nil, errors.Wrap(err, "failed to find product")
	}

	return toProductDomain(&productM), nil
}

// List returns one page of matching products and the total match count.
func (repo *productRepository) List(ctx context.Context, q repository.ProductQuery) ([]*entity.Product, int64, error) {
	filters := productFilterScopes(q.Filters)

	var total int64
	if err := repo.db.WithContext(ctx).
		Model(&model.ProductModel{}).
		Scopes(filters...).
		Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count products")
	}

	if total == 0 {
		return []*entity.Product{}, 0, nil
	}

	var productModels []*model.ProductModel
	if err := repo.db.WithContext(ctx).
		Scopes(withRatings, withProductDetails).
		Scopes(filters...).
		Scopes(productSortScope(q.Sort)).
		Limit(q.Limit).
		Offset(q.Offset()).
		Find(&productModels).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to list products")
	}

	products := make([]*entity.Product, 0, len(productModels))
	for _, productM := range productModels {
		products = append(products, toProductDomain(productM).WithMainImageOnly())
	}

	return products, total, nil
}

// Create persists a product together with its images and attributes.
func (repo *productRepository) Create(ctx context.Context, product *entity.Product) error {
	productM := fromProductDomain(product)

	if err := repo.db.WithContext(ctx).Omit("Category").Create(productM).Error; err != nil {
		return mapProductWriteError(err, "failed to create product")
	}

	product.CreatedAt = productM.CreatedAt
	product.UpdatedAt = productM.UpdatedAt

	return nil
}

// Update replaces the product row, then its images and attributes.
func (repo *productRepository) Update(ctx context.Context, product *entity.Product) error {
	productM := fromProductDomain(product)
	db := repo.db.WithContext(ctx)

	result := db.Model(&model.ProductModel{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"category_id":    productM.CategoryID,
			"name":           productM.Name,
			"slug":           productM.Slug,
			"sku":            productM.SKU,
			"description":    productM.Description,
			"regular_price":  productM.RegularPrice,
			"sale_price":     productM.SalePrice,
			"stock_status":   productM.StockStatus,
			"stock_quantity": productM.StockQuantity,
			"manage_stock":   productM.ManageStock,
			"status":         productM.Status,
			"is_featured":    productM.IsFeatured,
		})
	if result.Error != nil {
		return mapProductWriteError(result.Error, "failed to update product")
	}

	if result.RowsAffected == 0 {
		return repository.ErrProductNotFound
	}

	if err := db.Where("product_id = ?", product.ID).Delete(&model.ProductImageModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to clear product images")
	}

	if err := db.Where("product_id = ?", product.ID).Delete(&model.ProductAttributeModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to clear product attributes")
	}

	if len(productM.Images) > 0 {
		if err := db.Create(&productM.Images).Error; err != nil {
			return errors.Wrap(err, "failed to store product images")
		}
	}

	if len(productM.Attributes) > 0 {
		if err := db.Create(&productM.Attributes).Error; err != nil {
			return errors.Wrap(err, "failed to store product attributes")
		}
	}

	return nil
}

func mapProductWriteError(err error, msg string) error {
	switch {
	case isUniqueConstraintViolation(err):
		return repository.ErrDuplicateProduct
	case isForeignKeyConstraintViolation(err):
		return repository.ErrCategoryNotFound
	default:
		return errors.Wrap(err, msg)
	}
}

// --- Scopes ---

func withRatings(db *gorm.DB) *gorm.DB {
	return db.Model(&model.ProductModel{}).Select(productColumnsWithRatings).Joins(ratingsJoin)
}

func withProductDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Attributes")
}

func productFilterScopes(filters []repository.ProductFilter) []func(*gorm.DB) *gorm.DB {
	scopes := make([]func(*gorm.DB) *gorm.DB, 0, len(filters))
	for _, f := range filters {
		scopes = append(scopes, productFilterScope(f))
	}

	return scopes
}

func productFilterScope(filter repository.ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch f := filter.(type) {
		case repository.TextFilter:
			pattern := containsPattern(f.Term)

			return db.Where("(products.name ILIKE ? OR products.description ILIKE ? OR products.sku ILIKE ?)", pattern, pattern, pattern)
		case repository.CategoryFilter:
			return db.Where("products.category_id = ?", f.CategoryID)
		case repository.PriceRangeFilter:
			if f.Min != nil {
				db = db.Where(effectivePriceExpr+" >= ?", *f.Min)
			}
			if f.Max != nil {
				db = db.Where(effectivePriceExpr+" <= ?", *f.Max)
			}

			return db
		case repository.StockStatusFilter:
			return db.Where("products.stock_status = ?", string(f.Status))
		case repository.BrandFilter:
			return db.Where(
				"EXISTS (SELECT 1 FROM product_attributes pa WHERE pa.product_id = products.id AND LOWER(pa.name) = ? AND LOWER(pa.value) = LOWER(?))",
				entity.AttributeBrand, f.Brand,
			)
		case repository.StatusFilter:
			return db.Where("products.status = ?", string(f.Status))
		default:
			_ = db.AddError(errors.Errorf("unsupported product filter %T", filter))

			return db
		}
	}
}

func productSortScope(sort repository.ProductSort) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch sort {
		case repository.SortPriceAsc:
			db = db.Order(effectivePriceExpr + " ASC")
		case repository.SortPriceDesc:
			db = db.Order(effectivePriceExpr + " DESC")
		case repository.SortRating:
			db = db.Order("average_rating DESC").Order("products.is_featured DESC")
		}

		return db.Order("products.created_at DESC").Order("products.id")
	}
}

// containsPattern builds an ILIKE pattern that matches term literally.
func containsPattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)

	return "%" + escaped + "%"
}

// --- Mapper Functions ---

func toProductDomain(data *model.ProductModel) *entity.Product {
	if data == nil {
		return nil
	}

	product := &entity.Product{
		ID:            data.ID,
		CategoryID:    data.CategoryID,
		Category:      toCategoryDomain(data.Category),
		Name:          data.Name,
		Slug:          data.Slug,
		Description:   data.Description,
		RegularPrice:  data.RegularPrice,
		SalePrice:     data.SalePrice,
		StockStatus:   entity.StockStatus(data.StockStatus),
		StockQuantity: data.StockQuantity,
		ManageStock:   data.ManageStock,
		Status:        entity.ProductStatus(data.Status),
		IsFeatured:    data.IsFeatured,
		AverageRating: data.AverageRating,
		ReviewCount:   data.ReviewCount,
		Images:        make([]entity.ProductImage, 0, len(data.Images)),
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}

	if data.SKU != nil {
		product.SKU = *data.SKU
	}

	for _, img := range data.Images {
		product.Images = append(product.Images, entity.ProductImage{
			ID:        img.ID,
			ProductID: img.ProductID,
			URL:       img.URL,
			AltText:   img.AltText,
			IsMain:    img.IsMain,
			SortOrder: img.SortOrder,
		})
	}

	for _, attr := range data.Attributes {
		product.Attributes = append(product.Attributes, entity.ProductAttribute{Name: attr.Name, Value: attr.Value})
	}

	return product
}

func fromProductDomain(data *entity.Product) *model.ProductModel {
	if data == nil {
		return nil
	}

	productM := &model.ProductModel{
		ID:            data.ID,
		CategoryID:    data.CategoryID,
		Name:          data.Name,
		Slug:          data.Slug,
		Description:   data.Description,
		RegularPrice:  data.RegularPrice,
		SalePrice:     data.SalePrice,
		StockStatus:   string(data.StockStatus),
		StockQuantity: data.StockQuantity,
		ManageStock:   data.ManageStock,
		Status:        string(data.Status),
		IsFeatured:    data.IsFeatured,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}

	// Blank SKUs are stored as NULL so the unique index ignores them.
	if sku := strings.TrimSpace(data.SKU); sku != "" {
		productM.SKU = &sku
	}

	for _, img := range data.Images {
		productM.Images = append(productM.Images, model.ProductImageModel{
			ID:        img.ID,
			ProductID: data.ID,
			URL:       img.URL,
			AltText:   img.AltText,
			IsMain:    img.IsMain,
			SortOrder: img.SortOrder,
		})
	}

	for _, attr := range data.Attributes {
		productM.Attributes = append(productM.Attributes, model.ProductAttributeModel{
			ProductID: data.ID,
			Name:      attr.Name,
			Value:     attr.Value,
		})
	}

	return productM
}
