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
	"gorm.io/gorm/clause"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository is the constructor for orderRepository.
func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order row, its items and its shipping address.
func (repo *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	orderM := fromOrderDomain(order)
	db := repo.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Create(orderM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateOrderNumber
		}

		return errors.Wrap(err, "failed to create order")
	}

	if len(orderM.Items) > 0 {
		if err := db.Omit(clause.Associations).Create(&orderM.Items).Error; err != nil {
			if isForeignKeyConstraintViolation(err) {
				return repository.ErrProductNotFound
			}

			return errors.Wrap(err, "failed to create order items")
		}
	}

	if orderM.ShippingAddress != nil {
		if err := db.Create(orderM.ShippingAddress).Error; err != nil {
			return errors.Wrap(err, "failed to create shipping address")
		}
	}

	order.CreatedAt = orderM.CreatedAt
	order.UpdatedAt = orderM.UpdatedAt

	return nil
}

// FindByID returns the order with items and their products, shipping address and customer.
func (repo *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var orderM model.OrderModel

	if err := repo.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id")
		}).
		Preload("Items.Product").
		Preload("Items.Product.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("ShippingAddress").
		Preload("Customer").
		Where("id = ?", id).
		First(&orderM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOrderNotFound
		}

		return nil, errors.Wrap(err, "failed to find order")
	}

	return toOrderDomain(&orderM), nil
}

func (repo *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var orderM model.OrderModel

	if err := repo.db.WithContext(ctx).
		Scopes(forUpdate).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id")
		}).
		Where("id = ?", id).
		First(&orderM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOrderNotFound
		}

		return nil, errors.Wrap(err, "failed to lock order")
	}

	return toOrderDomain(&orderM), nil
}

// List returns one page of orders, newest first, with the total match count.
func (repo *orderRepository) List(ctx context.Context, q repository.OrderQuery) ([]*entity.Order, int64, error) {
	filter := orderQueryScope(q)

	var total int64
	if err := repo.db.WithContext(ctx).
		Model(&model.OrderModel{}).
		Scopes(filter).
		Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count orders")
	}

	if total == 0 {
		return []*entity.Order{}, 0, nil
	}

	var orderModels []*model.OrderModel
	if err := repo.db.WithContext(ctx).
		Model(&model.OrderModel{}).
		Scopes(filter).
		Preload("Items").
		Preload("Customer").
		Order("orders.created_at DESC").
		Order("orders.id").
		Limit(q.Limit).
		Offset(q.Offset()).
		Find(&orderModels).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to list orders")
	}

	orders := make([]*entity.Order, 0, len(orderModels))
	for _, orderM := range orderModels {
		orders = append(orders, toOrderDomain(orderM))
	}

	return orders, total, nil
}

func orderQueryScope(q repository.OrderQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.UserID != nil {
			db = db.Where("orders.user_id = ?", *q.UserID)
		}

		if q.Status != "" {
			db = db.Where("orders.status = ?", string(q.Status))
		}

		if term := strings.TrimSpace(q.Search); term != "" {
			pattern := containsPattern(term)
			db = db.Where(
				"(orders.order_number ILIKE ? OR EXISTS (SELECT 1 FROM users u WHERE u.id = orders.user_id AND (u.email ILIKE ? OR u.name ILIKE ?)))",
				pattern, pattern, pattern,
			)
		}

		return db
	}
}

// Update writes status, tracking number and notes.
func (repo *orderRepository) Update(ctx context.Context, order *entity.Order) error {
	return repo.updateColumns(ctx, order.ID, map[string]any{
		"status":          string(order.Status),
		"tracking_number": order.TrackingNumber,
		"notes":           order.Notes,
	})
}

func (repo *orderRepository) UpdateTotals(ctx context.Context, order *entity.Order) error {
	return repo.updateColumns(ctx, order.ID, map[string]any{
		"subtotal":     order.Subtotal,
		"total_amount": order.TotalAmount,
	})
}

func (repo *orderRepository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	result := repo.db.WithContext(ctx).
		Model(&model.OrderModel{}).
		Where("id = ?", id).
		Updates(columns)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update order")
	}

	if result.RowsAffected == 0 {
		return repository.ErrOrderNotFound
	}

	return nil
}

// SaveShippingAddress upserts on order_id so an order keeps a single address row.
func (repo *orderRepository) SaveShippingAddress(ctx context.Context, address *entity.ShippingAddress) error {
	addressM := fromShippingAddressDomain(address)
	if addressM.ID == uuid.Nil {
		addressM.ID = uuid.New()
	}

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"full_name", "phone", "address_line1", "address_line2",
				"city", "state", "postal_code", "country",
			}),
		}).
		Create(addressM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrOrderNotFound
		}

		return errors.Wrap(err, "failed to save shipping address")
	}

	return nil
}

func (repo *orderRepository) CreateItem(ctx context.Context, item *entity.OrderItem) error {
	itemM := fromOrderItemDomain(item)

	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(itemM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrProductNotFound
		}

		return errors.Wrap(err, "failed to create order item")
	}

	item.CreatedAt = itemM.CreatedAt

	return nil
}

func (repo *orderRepository) UpdateItem(ctx context.Context, item *entity.OrderItem) error {
	result := repo.db.WithContext(ctx).
		Model(&model.OrderItemModel{}).
		Where("id = ? AND order_id = ?", item.ID, item.OrderID).
		Updates(map[string]any{
			"quantity": item.Quantity,
			"price":    item.Price,
			"total":    item.Total,
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update order item")
	}

	if result.RowsAffected == 0 {
		return repository.ErrOrderItemNotFound
	}

	return nil
}

func (repo *orderRepository) DeleteItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Delete(&model.OrderItemModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete order item")
	}

	if result.RowsAffected == 0 {
		return repository.ErrOrderItemNotFound
	}

	return nil
}

// --- Mapper Functions ---

func toOrderDomain(data *model.OrderModel) *entity.Order {
	order := &entity.Order{
		ID:              data.ID,
		OrderNumber:     data.OrderNumber,
		UserID:          data.UserID,
		Status:          entity.OrderStatus(data.Status),
		Subtotal:        data.Subtotal,
		ShippingAmount:  data.ShippingAmount,
		TotalAmount:     data.TotalAmount,
		Notes:           data.Notes,
		TrackingNumber:  data.TrackingNumber,
		Items:           make([]*entity.OrderItem, 0, len(data.Items)),
		ShippingAddress: toShippingAddressDomain(data.ShippingAddress),
		Customer:        toUserDomain(data.Customer),
		CreatedAt:       data.CreatedAt,
		UpdatedAt:       data.UpdatedAt,
	}

	for i := range data.Items {
		itemM := &data.Items[i]
		item := &entity.OrderItem{
			ID:        itemM.ID,
			OrderID:   itemM.OrderID,
			ProductID: itemM.ProductID,
			Quantity:  itemM.Quantity,
			Price:     itemM.Price,
			Total:     itemM.Total,
			CreatedAt: itemM.CreatedAt,
		}
		if itemM.Product != nil {
			item.Product = toProductDomain(itemM.Product).WithMainImageOnly()
		}
		order.Items = append(order.Items, item)
	}

	return order
}

func fromOrderDomain(data *entity.Order) *model.OrderModel {
	orderM := &model.OrderModel{
		ID:             data.ID,
		OrderNumber:    data.OrderNumber,
		UserID:         data.UserID,
		Status:         string(data.Status),
		Subtotal:       data.Subtotal,
		ShippingAmount: data.ShippingAmount,
		TotalAmount:    data.TotalAmount,
		Notes:          data.Notes,
		TrackingNumber: data.TrackingNumber,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}

	for _, item := range data.Items {
		orderM.Items = append(orderM.Items, *fromOrderItemDomain(item))
	}

	if data.ShippingAddress != nil {
		orderM.ShippingAddress = fromShippingAddressDomain(data.ShippingAddress)
	}

	return orderM
}

func fromOrderItemDomain(data *entity.OrderItem) *model.OrderItemModel {
	return &model.OrderItemModel{
		ID:        data.ID,
		OrderID:   data.OrderID,
		ProductID: data.ProductID,
		Quantity:  data.Quantity,
		Price:     data.Price,
		Total:     data.Total,
		CreatedAt: data.CreatedAt,
	}
}

func toShippingAddressDomain(data *model.ShippingAddressModel) *entity.ShippingAddress {
	if data == nil {
		return nil
	}

	return &entity.ShippingAddress{
		ID:           data.ID,
		OrderID:      data.OrderID,
		FullName:     data.FullName,
		Phone:        data.Phone,
		AddressLine1: data.AddressLine1,
		AddressLine2: data.AddressLine2,
		City:         data.City,
		State:        data.State,
		PostalCode:   data.PostalCode,
		Country:      data.Country,
	}
}

func fromShippingAddressDomain(data *entity.ShippingAddress) *model.ShippingAddressModel {
	return &model.ShippingAddressModel{
		ID:           data.ID,
		OrderID:      data.OrderID,
		FullName:     data.FullName,
		Phone:        data.Phone,
		AddressLine1: data.AddressLine1,
		AddressLine2: data.AddressLine2,
		City:         data.City,
		State:        data.State,
		PostalCode:   data.PostalCode,
		Country:      data.Country,
	}
}
