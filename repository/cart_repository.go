package repository

import (
	"context"

	"delivery-marketplace/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository defines cart persistence. ReplaceItems expects to run inside a transaction.
type CartRepository interface {
	FindByUser(ctx context.Context, userID uint) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error)
	ReplaceItems(ctx context.Context, cart *models.Cart, items []models.CartItem) error
	DeleteItemsForMenuItems(ctx context.Context, menuItemIDs []uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUser(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("menu_item_id asc") }).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Omit("Items").Create(cart).Error
}

// GetOrCreate inserts an empty cart unless the user already has one, then returns the stored row.
// Concurrent callers converge on the same cart instead of tripping the user_id unique index.
func (r *cartRepository) GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	err := r.db.WithContext(ctx).Omit("Items").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error
	if err != nil {
		return nil, err
	}

	var stored models.Cart
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("menu_item_id asc") }).
		Where("user_id = ?", userID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ReplaceItems deletes every line of the cart, inserts items and bumps the version.
func (r *cartRepository) ReplaceItems(ctx context.Context, cart *models.Cart, items []models.CartItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].CartID = cart.ID
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}
	cart.Version++
	if err := db.Model(&models.Cart{}).Where("id = ?", cart.ID).Update("version", cart.Version).Error; err != nil {
		return err
	}
	cart.Items = items
	return nil
}

func (r *cartRepository) DeleteItemsForMenuItems(ctx context.Context, menuItemIDs []uint) error {
	if len(menuItemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("menu_item_id IN ?", menuItemIDs).Delete(&models.CartItem{}).Error
}
