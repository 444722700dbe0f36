package repository

import (
	"context"
	"time"

	"delivery-marketplace/models"

	"gorm.io/gorm"
)

// OrderFilter narrows order listings. Zero values are ignored.
type OrderFilter struct {
	CustomerID   uint
	RestaurantID uint
	DriverID     uint
	Status       models.OrderStatus
	Unassigned   bool
	OldestFirst  bool
}

// OrderRepository defines order, history and delivery persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	CountByRestaurant(ctx context.Context, restaurantID uint) (int64, error)
	CompareAndSetStatus(ctx context.Context, id uint, from models.OrderStatus, fields map[string]interface{}) (bool, error)
	AddHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	MarkDelivered(ctx context.Context, orderID uint, at time.Time) error
	CompletedDeliveries(ctx context.Context, driverID uint) ([]models.Delivery, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order with its items and history rows in one statement group.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Customer", "Restaurant", "Driver", "Delivery").Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Delivery").
		Preload("Restaurant").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).Preload("Items").Preload("Restaurant")
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.RestaurantID != 0 {
		query = query.Where("restaurant_id = ?", filter.RestaurantID)
	}
	if filter.DriverID != 0 {
		query = query.Where("driver_id = ?", filter.DriverID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Unassigned {
		query = query.Where("driver_id IS NULL")
	}
	if filter.OldestFirst {
		query = query.Order("created_at asc").Order("id asc")
	} else {
		query = query.Order("created_at desc").Order("id desc")
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) CountByRestaurant(ctx context.Context, restaurantID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("restaurant_id = ?", restaurantID).Count(&count).Error
	return count, err
}

// CompareAndSetStatus updates the order only while it is still in status from.
// It reports false when another writer got there first.
func (r *orderRepository) CompareAndSetStatus(ctx context.Context, id uint, from models.OrderStatus, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) AddHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *orderRepository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

// MarkDelivered stamps delivered_at once.
func (r *orderRepository) MarkDelivered(ctx context.Context, orderID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Delivery{}).
		Where("order_id = ? AND delivered_at IS NULL", orderID).
		Update("delivered_at", at).Error
}

func (r *orderRepository) CompletedDeliveries(ctx context.Context, driverID uint) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND delivered_at IS NOT NULL", driverID).
		Order("delivered_at desc").
		Find(&deliveries).Error
	return deliveries, err
}
