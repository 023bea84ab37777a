package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryModel mirrors the 'categories' table.
type CategoryModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:varchar(100);uniqueIndex;not null"`
	Slug        string     `gorm:"type:varchar(120);uniqueIndex;not null"`
	Description string     `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (CategoryModel) TableName() string {
	return "categories"
}

// ProductModel mirrors the 'products' table. Prices are numeric(12,2).
type ProductModel struct {
	ID            uuid.UUID        `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	CategoryID    *uuid.UUID       `gorm:"type:uuid;index"`
	Name          string           `gorm:"type:varchar(200);not null"`
	Slug          string           `gorm:"type:varchar(220);uniqueIndex;not null"`
	SKU           *string          `gorm:"column:sku;type:varchar(64);uniqueIndex"`
	Description   string           `gorm:"type:text"`
	RegularPrice  decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	SalePrice     *decimal.Decimal `gorm:"type:numeric(12,2)"`
	StockStatus   string           `gorm:"type:varchar(20);not null;default:IN_STOCK"`
	StockQuantity *int
	ManageStock   bool   `gorm:"not null;default:false"`
	Status        string `gorm:"type:varchar(20);not null;default:DRAFT;index"`
	IsFeatured    bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Category   *CategoryModel          `gorm:"foreignKey:CategoryID"`
	Images     []ProductImageModel     `gorm:"foreignKey:ProductID"`
	Attributes []ProductAttributeModel `gorm:"foreignKey:ProductID"`

	// Filled by the rating subquery on reads; never written.
	AverageRating float64 `gorm:"->;-:migration"`
	ReviewCount   int     `gorm:"->;-:migration"`
}

// TableName explicitly sets the table name for GORM.
func (ProductModel) TableName() string {
	return "products"
}

// ProductImageModel mirrors the 'product_images' table.
type ProductImageModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	URL       string    `gorm:"column:url;type:varchar(500);not null"`
	AltText   string    `gorm:"type:varchar(200)"`
	IsMain    bool      `gorm:"not null;default:false"`
	SortOrder int       `gorm:"not null;default:0"`
}

// TableName explicitly sets the table name for GORM.
func (ProductImageModel) TableName() string {
	return "product_images"
}

// ProductAttributeModel mirrors the 'product_attributes' table.
type ProductAttributeModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(100);not null;index:idx_product_attributes_name_value"`
	Value     string    `gorm:"type:varchar(255);not null;index:idx_product_attributes_name_value"`
}

// TableName explicitly sets the table name for GORM.
func (ProductAttributeModel) TableName() string {
	return "product_attributes"
}

// ReviewModel mirrors the 'reviews' table. One review per user and product.
type ReviewModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (ReviewModel) TableName() string {
	return "reviews"
}
