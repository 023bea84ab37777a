package postgres

import (
	"context"

	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository is the constructor for cartRepository.
func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepository{db: db}
}

// FindByUser returns the user's lines, newest first, each with its product's main image.
func (repo *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.CartItem, error) {
	var itemModels []*model.CartItemModel

	if err := repo.db.WithContext(ctx).
		Scopes(withCartProduct).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id").
		Find(&itemModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find cart items")
	}

	items := make([]*entity.CartItem, 0, len(itemModels))
	for _, itemM := range itemModels {
		items = append(items, toCartItemDomain(itemM))
	}

	return items, nil
}

// FindByIDAndUserForUpdate locks the line with SELECT ... FOR UPDATE on the primary.
func (repo *cartRepository) FindByIDAndUserForUpdate(ctx context.Context, id, userID uuid.UUID) (*entity.CartItem, error) {
	return repo.findOne(repo.db.WithContext(ctx).Scopes(forUpdate), "id = ? AND user_id = ?", id, userID)
}

func (repo *cartRepository) FindByUserAndProductForUpdate(ctx context.Context, userID, productID uuid.UUID) (*entity.CartItem, error) {
	return repo.findOne(repo.db.WithContext(ctx).Scopes(forUpdate), "user_id = ? AND product_id = ?", userID, productID)
}

func (repo *cartRepository) findOne(db *gorm.DB, query string, args ...any) (*entity.CartItem, error) {
	var itemM model.CartItemModel

	if err := db.Where(query, args...).First(&itemM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCartItemNotFound
		}

		return nil, errors.Wrap(err, "failed to find cart item")
	}

	return toCartItemDomain(&itemM), nil
}

// AddQuantity inserts the line or adds to its quantity in one statement.
func (repo *cartRepository) AddQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*entity.CartItem, error) {
	itemM := model.CartItemModel{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}

	if err := repo.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"quantity":   gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
					"updated_at": gorm.Expr("EXCLUDED.updated_at"),
				}),
			},
			clause.Returning{},
		).
		Create(&itemM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return nil, repository.ErrProductNotFound
		}
		if isCheckConstraintViolation(err) {
			return nil, domainerrors.ErrValidationFailed.WrapMessage("quantity must be positive")
		}

		return nil, errors.Wrap(err, "failed to upsert cart item")
	}

	return toCartItemDomain(&itemM), nil
}

func (repo *cartRepository) SetQuantity(ctx context.Context, id, userID uuid.UUID, quantity int) error {
	result := repo.db.WithContext(ctx).
		Model(&model.CartItemModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("quantity", quantity)

	if result.Error != nil {
		if isCheckConstraintViolation(result.Error) {
			return domainerrors.ErrValidationFailed.WrapMessage("quantity must be positive")
		}

		return errors.Wrap(result.Error, "failed to update cart item quantity")
	}

	if result.RowsAffected == 0 {
		return repository.ErrCartItemNotFound
	}

	return nil
}

func (repo *cartRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.CartItemModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete cart item")
	}

	if result.RowsAffected == 0 {
		return repository.ErrCartItemNotFound
	}

	return nil
}

func (repo *cartRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItemModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to clear cart")
	}

	return nil
}

// forUpdate adds FOR UPDATE and pins the read to the write connection.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(dbresolver.Write, clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func withCartProduct(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Product").
		Preload("Product.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		})
}

func toCartItemDomain(data *model.CartItemModel) *entity.CartItem {
	item := &entity.CartItem{
		ID:        data.ID,
		UserID:    data.UserID,
		ProductID: data.ProductID,
		Quantity:  data.Quantity,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}

	if data.Product != nil {
		item.Product = toProductDomain(data.Product).WithMainImageOnly()
	}

	return item
}
