package models

import "time"

// Cart is at most one per user. Version increases on every replace.
type Cart struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"user_id" gorm:"not null;uniqueIndex"`
	Version   int        `json:"version" gorm:"not null"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	CartID     uint `json:"cart_id" gorm:"not null;uniqueIndex:idx_cart_menu_item"`
	MenuItemID uint `json:"menu_item_id" gorm:"not null;uniqueIndex:idx_cart_menu_item"`
	Quantity   int  `json:"quantity" gorm:"not null"`
}
