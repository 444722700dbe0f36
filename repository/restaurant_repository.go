package repository

import (
	"context"

	"delivery-marketplace/models"

	"gorm.io/gorm"
)

// RestaurantFilter narrows restaurant listings.
type RestaurantFilter struct {
	Cuisine  string
	Search   string
	OpenOnly bool
	IDs      []uint
}

// MenuFilter narrows menu listings.
type MenuFilter struct {
	Category      string
	VegOnly       bool
	AvailableOnly bool
}

// RestaurantRepository covers restaurants and their menu items.
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *models.Restaurant) error
	FindByID(ctx context.Context, id uint) (*models.Restaurant, error)
	List(ctx context.Context, filter RestaurantFilter) ([]models.Restaurant, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error

	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	FindMenuItem(ctx context.Context, id uint) (*models.MenuItem, error)
	FindMenuItems(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error)
	ListMenu(ctx context.Context, restaurantID uint, filter MenuFilter) ([]models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id uint, fields map[string]interface{}) error
	DeleteMenuItem(ctx context.Context, id uint) error
	DeleteMenu(ctx context.Context, restaurantID uint) ([]uint, error)
}

type restaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	return r.db.WithContext(ctx).Omit("Owner", "MenuItems").Create(restaurant).Error
}

func (r *restaurantRepository) FindByID(ctx context.Context, id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, id).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepository) List(ctx context.Context, filter RestaurantFilter) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	query := r.db.WithContext(ctx).Order("id asc")
	if filter.Cuisine != "" {
		query = query.Where("cuisine LIKE ?", "%"+filter.Cuisine+"%")
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.OpenOnly {
		query = query.Where("is_open = ?", true)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []models.Restaurant{}, nil
		}
		query = query.Where("id IN ?", filter.IDs)
	}
	if err := query.Find(&restaurants).Error; err != nil {
		return nil, err
	}
	return restaurants, nil
}

func (r *restaurantRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Restaurant{}).Where("id = ?", id).Updates(fields).Error
}

func (r *restaurantRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Restaurant{}, id).Error
}

func (r *restaurantRepository) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *restaurantRepository) FindMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindMenuItems loads the given items keyed by id; missing ids are simply absent.
func (r *restaurantRepository) FindMenuItems(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error) {
	out := make(map[uint]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.MenuItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *restaurantRepository) ListMenu(ctx context.Context, restaurantID uint, filter MenuFilter) ([]models.MenuItem, error) {
	var items []models.MenuItem
	query := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("id asc")
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.VegOnly {
		query = query.Where("is_veg = ?", true)
	}
	if filter.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *restaurantRepository) UpdateMenuItem(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Updates(fields).Error
}

func (r *restaurantRepository) DeleteMenuItem(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.MenuItem{}, id).Error
}

// DeleteMenu removes every menu item of the restaurant and returns their ids.
func (r *restaurantRepository) DeleteMenu(ctx context.Context, restaurantID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("restaurant_id = ?", restaurantID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.MenuItem{}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
