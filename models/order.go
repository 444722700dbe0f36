package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a food delivery order
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusAccepted  OrderStatus = "ACCEPTED"
	StatusOngoing   OrderStatus = "ONGOING"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus rejects anything outside the canonical enumeration.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case StatusPending, StatusAccepted, StatusOngoing, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// PaymentMethod is recorded with the order; no payment is processed.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
)

type Order struct {
	ID              uint                 `json:"id" gorm:"primaryKey"`
	CustomerID      uint                 `json:"customer_id" gorm:"not null;index"`
	Customer        *User                `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID    uint                 `json:"restaurant_id" gorm:"not null;index"`
	Restaurant      *Restaurant          `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	DriverID        *uint                `json:"driver_id" gorm:"index"`
	Driver          *User                `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Status          OrderStatus          `json:"status" gorm:"type:varchar(16);not null;index"`
	Total           decimal.Decimal      `json:"total" gorm:"type:decimal(10,2);not null"`
	DeliveryAddress string               `json:"delivery_address" gorm:"not null"`
	PaymentMethod   PaymentMethod        `json:"payment_method" gorm:"type:varchar(8);not null"`
	Notes           string               `json:"notes"`
	EstimatedTime   int                  `json:"estimated_time_minutes"`
	Items           []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery        *Delivery            `json:"delivery,omitempty" gorm:"foreignKey:OrderID"`
	AcceptedAt      *time.Time           `json:"accepted_at,omitempty"`
	PickedUpAt      *time.Time           `json:"picked_up_at,omitempty"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	CancelledAt     *time.Time           `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	OrderID    uint            `json:"order_id" gorm:"not null;index"`
	MenuItemID uint            `json:"menu_item_id" gorm:"not null"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"` // snapshot price at time of order
	Name       string          `json:"name"`                                     // snapshot name
}

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Delivery exists once a driver has taken the order.
type Delivery struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"not null;uniqueIndex"`
	DriverID    uint            `json:"driver_id" gorm:"not null;index"`
	Fee         decimal.Decimal `json:"fee" gorm:"type:decimal(10,2);not null"`
	AssignedAt  time.Time       `json:"assigned_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
