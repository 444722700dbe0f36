package service

import (
	"context"
	"errors"
	"fmt"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/models"
	"delivery-marketplace/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CartLine is one submitted cart entry.
type CartLine struct {
	MenuItemID uint
	Quantity   int
}

// ReplaceCartInput is a full cart submission. ExpectedVersion, when set, must match the stored version.
type ReplaceCartInput struct {
	Items           []CartLine
	ExpectedVersion *int
}

// CartLineView is a cart entry priced at the current menu price.
type CartLineView struct {
	MenuItemID   uint            `json:"menu_item_id"`
	RestaurantID uint            `json:"restaurant_id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price" swaggertype:"string"`
	LineTotal    decimal.Decimal `json:"line_total" swaggertype:"string"`
	Available    bool            `json:"available"`
}

// CartView is what callers see. Items is never nil.
type CartView struct {
	Version  int             `json:"version"`
	Items    []CartLineView  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal" swaggertype:"string"`
}

// CartService reads and replaces a user's cart.
type CartService struct {
	store *repository.Store
	log   *logrus.Logger
}

func NewCartService(store *repository.Store, log *logrus.Logger) *CartService {
	return &CartService{store: store, log: log}
}

// GetCart returns the user's cart; a user who never had one gets an empty cart.
func (s *CartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	cart, err := s.store.Carts.FindByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &CartView{Items: []CartLineView{}, Subtotal: decimal.Zero}, nil
	}
	if err != nil {
		return nil, apperrors.FromStore(err, "cart")
	}
	return s.view(ctx, s.store, cart)
}

// ReplaceCart swaps the whole cart for in.Items in one transaction. An empty list empties the cart.
func (s *CartService) ReplaceCart(ctx context.Context, userID uint, in ReplaceCartInput) (*CartView, error) {
	if err := validateCartLines(in.Items); err != nil {
		return nil, err
	}

	var out *CartView
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		ids := make([]uint, 0, len(in.Items))
		for _, line := range in.Items {
			ids = append(ids, line.MenuItemID)
		}
		menu, err := tx.Restaurants.FindMenuItems(ctx, ids)
		if err != nil {
			return err
		}
		fields := map[string]string{}
		for i, line := range in.Items {
			item, ok := menu[line.MenuItemID]
			switch {
			case !ok:
				fields[fmt.Sprintf("items[%d].menu_item_id", i)] = "menu item does not exist"
			case !item.IsAvailable:
				fields[fmt.Sprintf("items[%d].menu_item_id", i)] = "menu item is not available"
			}
		}
		if len(fields) > 0 {
			return apperrors.Validation("invalid cart", fields)
		}

		cart, err := tx.Carts.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != cart.Version {
			return apperrors.Conflict(fmt.Sprintf("cart was modified (version %d, expected %d)", cart.Version, *in.ExpectedVersion))
		}

		items := make([]models.CartItem, 0, len(in.Items))
		for _, line := range in.Items {
			items = append(items, models.CartItem{MenuItemID: line.MenuItemID, Quantity: line.Quantity})
		}
		if err := tx.Carts.ReplaceItems(ctx, cart, items); err != nil {
			return err
		}
		out, err = s.view(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "cart")
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "lines": len(out.Items), "version": out.Version}).Debug("cart replaced")
	return out, nil
}

func validateCartLines(lines []CartLine) error {
	fields := map[string]string{}
	seen := make(map[uint]bool, len(lines))
	for i, line := range lines {
		if line.MenuItemID == 0 {
			fields[fmt.Sprintf("items[%d].menu_item_id", i)] = "is required"
		}
		if line.Quantity < 1 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		}
		if seen[line.MenuItemID] {
			fields[fmt.Sprintf("items[%d].menu_item_id", i)] = "appears more than once"
		}
		seen[line.MenuItemID] = true
	}
	if len(fields) > 0 {
		return apperrors.Validation("invalid cart", fields)
	}
	return nil
}

func (s *CartService) view(ctx context.Context, store *repository.Store, cart *models.Cart) (*CartView, error) {
	ids := make([]uint, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.MenuItemID)
	}
	menu, err := store.Restaurants.FindMenuItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &CartView{Version: cart.Version, Items: make([]CartLineView, 0, len(cart.Items)), Subtotal: decimal.Zero}
	for _, item := range cart.Items {
		line := CartLineView{MenuItemID: item.MenuItemID, Quantity: item.Quantity, Price: decimal.Zero, LineTotal: decimal.Zero}
		if m, ok := menu[item.MenuItemID]; ok {
			line.RestaurantID = m.RestaurantID
			line.Name = m.Name
			line.Price = m.Price
			line.LineTotal = m.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			line.Available = m.IsAvailable
			view.Subtotal = view.Subtotal.Add(line.LineTotal)
		}
		view.Items = append(view.Items, line)
	}
	return view, nil
}
