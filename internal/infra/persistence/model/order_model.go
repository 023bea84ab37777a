package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel mirrors the 'orders' table.
type OrderModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	OrderNumber    string          `gorm:"type:varchar(32);uniqueIndex;not null"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status         string          `gorm:"type:varchar(20);not null;default:PENDING;index"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	ShippingAmount decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Notes          string          `gorm:"type:text"`
	TrackingNumber string          `gorm:"type:varchar(100)"`
	CreatedAt      time.Time       `gorm:"index"`
	UpdatedAt      time.Time

	Items           []OrderItemModel      `gorm:"foreignKey:OrderID"`
	ShippingAddress *ShippingAddressModel `gorm:"foreignKey:OrderID"`
	Customer        *UserModel            `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel mirrors the 'order_items' table. Price is the unit price snapshot.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  int             `gorm:"not null;check:quantity > 0"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time

	Product *ProductModel `gorm:"foreignKey:ProductID"`
}

// TableName explicitly sets the table name for GORM.
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ShippingAddressModel mirrors the 'shipping_addresses' table, one row per order.
type ShippingAddressModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	OrderID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	FullName     string    `gorm:"type:varchar(100);not null"`
	Phone        string    `gorm:"type:varchar(30)"`
	AddressLine1 string    `gorm:"type:varchar(255);not null"`
	AddressLine2 string    `gorm:"type:varchar(255)"`
	City         string    `gorm:"type:varchar(100);not null"`
	State        string    `gorm:"type:varchar(100)"`
	PostalCode   string    `gorm:"type:varchar(20);not null"`
	Country      string    `gorm:"type:varchar(2);not null"`
}

// TableName explicitly sets the table name for GORM.
func (ShippingAddressModel) TableName() string {
	return "shipping_addresses"
}
