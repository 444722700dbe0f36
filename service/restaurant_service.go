package service

import (
	"context"
	"strings"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/auth"
	"delivery-marketplace/models"
	"delivery-marketplace/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RestaurantInput creates a restaurant.
type RestaurantInput struct {
	Name        string
	Cuisine     string
	Address     string
	Description string
}

// RestaurantUpdate changes only the fields that are set.
type RestaurantUpdate struct {
	Name        *string
	Cuisine     *string
	Address     *string
	Description *string
	IsOpen      *bool
}

// MenuItemInput adds an item to a menu.
type MenuItemInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	IsVeg       bool
}

// MenuItemUpdate changes only the fields that are set.
type MenuItemUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	IsVeg       *bool
	IsAvailable *bool
}

// StaffMember is a user holding a role at a restaurant.
type StaffMember struct {
	UserID uint        `json:"user_id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// RestaurantService manages restaurants, their menus and their staff.
type RestaurantService struct {
	store *repository.Store
	log   *logrus.Logger
}

func NewRestaurantService(store *repository.Store, log *logrus.Logger) *RestaurantService {
	return &RestaurantService{store: store, log: log}
}

// Create opens a restaurant owned by the caller, who becomes its RESTAURANT_ADMIN.
func (s *RestaurantService) Create(ctx context.Context, ident auth.Identity, in RestaurantInput) (*models.Restaurant, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.Validation("invalid restaurant", map[string]string{"name": "is required"})
	}
	restaurant := &models.Restaurant{
		OwnerID:     ident.UserID,
		Name:        strings.TrimSpace(in.Name),
		Cuisine:     in.Cuisine,
		Address:     in.Address,
		Description: in.Description,
		IsOpen:      true,
	}
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		if err := tx.Restaurants.Create(ctx, restaurant); err != nil {
			return err
		}
		_, err := tx.Roles.Grant(ctx, ident.UserID, models.RoleRestaurantAdmin, &restaurant.ID)
		return err
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	s.log.WithFields(logrus.Fields{"restaurant_id": restaurant.ID, "owner_id": ident.UserID}).Info("restaurant created")
	return restaurant, nil
}

func (s *RestaurantService) List(ctx context.Context, filter repository.RestaurantFilter) ([]models.Restaurant, error) {
	restaurants, err := s.store.Restaurants.List(ctx, filter)
	if err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	return restaurants, nil
}

// Get returns the restaurant with its full menu.
func (s *RestaurantService) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	restaurant, err := s.store.Restaurants.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	items, err := s.store.Restaurants.ListMenu(ctx, id, repository.MenuFilter{})
	if err != nil {
		return nil, apperrors.FromStore(err, "menu")
	}
	restaurant.MenuItems = items
	return restaurant, nil
}

// ListMine returns the restaurants the caller works at. Admins and holders of unscoped
// restaurant roles see every restaurant.
func (s *RestaurantService) ListMine(ctx context.Context, ident auth.Identity) ([]models.Restaurant, error) {
	grants, err := s.store.Roles.GetRoles(ctx, ident.UserID)
	if err != nil {
		return nil, apperrors.FromStore(err, "roles")
	}
	ids := []uint{}
	for _, g := range grants {
		switch {
		case g.Role == models.RoleAdmin:
			return s.List(ctx, repository.RestaurantFilter{})
		case g.Role.IsRestaurantRole() && g.RestaurantID == nil:
			return s.List(ctx, repository.RestaurantFilter{})
		case g.Role.IsRestaurantRole():
			ids = append(ids, *g.RestaurantID)
		}
	}
	return s.List(ctx, repository.RestaurantFilter{IDs: ids})
}

func (s *RestaurantService) Update(ctx context.Context, id uint, in RestaurantUpdate) (*models.Restaurant, error) {
	if _, err := s.store.Restaurants.FindByID(ctx, id); err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Validation("invalid restaurant", map[string]string{"name": "must not be empty"})
		}
		fields["name"] = name
	}
	if in.Cuisine != nil {
		fields["cuisine"] = *in.Cuisine
	}
	if in.Address != nil {
		fields["address"] = *in.Address
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.IsOpen != nil {
		fields["is_open"] = *in.IsOpen
	}
	if len(fields) > 0 {
		if err := s.store.Restaurants.Update(ctx, id, fields); err != nil {
			return nil, apperrors.FromStore(err, "restaurant")
		}
	}
	restaurant, err := s.store.Restaurants.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	return restaurant, nil
}

// Delete removes a restaurant that has never received an order, together with its menu,
// the cart lines pointing at that menu and every role scoped to it.
func (s *RestaurantService) Delete(ctx context.Context, id uint) error {
	if _, err := s.store.Restaurants.FindByID(ctx, id); err != nil {
		return apperrors.FromStore(err, "restaurant")
	}

	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		orders, err := tx.Orders.CountByRestaurant(ctx, id)
		if err != nil {
			return err
		}
		if orders > 0 {
			return apperrors.Conflict("restaurant has orders and cannot be deleted; close it instead")
		}

		itemIDs, err := tx.Restaurants.DeleteMenu(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Carts.DeleteItemsForMenuItems(ctx, itemIDs); err != nil {
			return err
		}
		if _, err := tx.Roles.DeleteByRestaurant(ctx, id); err != nil {
			return err
		}
		return tx.Restaurants.Delete(ctx, id)
	})
	if err != nil {
		return apperrors.FromStore(err, "restaurant")
	}
	s.log.WithField("restaurant_id", id).Info("restaurant deleted")
	return nil
}

// Menu lists a restaurant's items.
func (s *RestaurantService) Menu(ctx context.Context, restaurantID uint, filter repository.MenuFilter) ([]models.MenuItem, error) {
	if _, err := s.store.Restaurants.FindByID(ctx, restaurantID); err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	items, err := s.store.Restaurants.ListMenu(ctx, restaurantID, filter)
	if err != nil {
		return nil, apperrors.FromStore(err, "menu")
	}
	return items, nil
}

func (s *RestaurantService) AddMenuItem(ctx context.Context, restaurantID uint, in MenuItemInput) (*models.MenuItem, error) {
	if _, err := s.store.Restaurants.FindByID(ctx, restaurantID); err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "is required"
	}
	if !in.Price.IsPositive() {
		fields["price"] = "must be greater than 0"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid menu item", fields)
	}

	item := &models.MenuItem{
		RestaurantID: restaurantID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Price:        in.Price.Round(2),
		Category:     in.Category,
		IsVeg:        in.IsVeg,
		IsAvailable:  true,
	}
	if err := s.store.Restaurants.CreateMenuItem(ctx, item); err != nil {
		return nil, apperrors.FromStore(err, "menu item")
	}
	return item, nil
}

// menuItemOf loads an item and hides items of other restaurants.
func (s *RestaurantService) menuItemOf(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error) {
	item, err := s.store.Restaurants.FindMenuItem(ctx, itemID)
	if err != nil {
		return nil, apperrors.FromStore(err, "menu item")
	}
	if item.RestaurantID != restaurantID {
		return nil, apperrors.NotFound("menu item")
	}
	return item, nil
}

func (s *RestaurantService) UpdateMenuItem(ctx context.Context, restaurantID, itemID uint, in MenuItemUpdate) (*models.MenuItem, error) {
	if _, err := s.menuItemOf(ctx, restaurantID, itemID); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperrors.Validation("invalid menu item", map[string]string{"name": "must not be empty"})
		}
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return nil, apperrors.Validation("invalid menu item", map[string]string{"price": "must be greater than 0"})
		}
		fields["price"] = in.Price.Round(2)
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.IsVeg != nil {
		fields["is_veg"] = *in.IsVeg
	}
	if in.IsAvailable != nil {
		fields["is_available"] = *in.IsAvailable
	}
	if len(fields) > 0 {
		if err := s.store.Restaurants.UpdateMenuItem(ctx, itemID, fields); err != nil {
			return nil, apperrors.FromStore(err, "menu item")
		}
	}
	return s.menuItemOf(ctx, restaurantID, itemID)
}

// DeleteMenuItem removes the item and any cart lines holding it. Past orders keep their snapshot.
func (s *RestaurantService) DeleteMenuItem(ctx context.Context, restaurantID, itemID uint) error {
	if _, err := s.menuItemOf(ctx, restaurantID, itemID); err != nil {
		return err
	}
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		if err := tx.Carts.DeleteItemsForMenuItems(ctx, []uint{itemID}); err != nil {
			return err
		}
		return tx.Restaurants.DeleteMenuItem(ctx, itemID)
	})
	return apperrors.FromStore(err, "menu item")
}

// ListStaff returns every grant scoped to the restaurant.
func (s *RestaurantService) ListStaff(ctx context.Context, restaurantID uint) ([]StaffMember, error) {
	if _, err := s.store.Restaurants.FindByID(ctx, restaurantID); err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	grants, err := s.store.Roles.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, apperrors.FromStore(err, "roles")
	}
	staff := make([]StaffMember, 0, len(grants))
	for _, g := range grants {
		member := StaffMember{UserID: g.UserID, Role: g.Role}
		if user, err := s.store.Users.FindByID(ctx, g.UserID); err == nil {
			member.Name = user.Name
			member.Email = user.Email
		}
		staff = append(staff, member)
	}
	return staff, nil
}

// AddStaff grants a restaurant role to the account registered under email.
func (s *RestaurantService) AddStaff(ctx context.Context, restaurantID uint, email string, role models.Role) (*StaffMember, error) {
	if !role.IsRestaurantRole() {
		return nil, apperrors.Validation("invalid role", map[string]string{"role": "must be RESTAURANT_ADMIN or RESTAURANT_EMPLOYEE"})
	}
	if _, err := s.store.Restaurants.FindByID(ctx, restaurantID); err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	user, err := s.store.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	if _, err := s.store.Roles.Grant(ctx, user.ID, role, &restaurantID); err != nil {
		return nil, apperrors.FromStore(err, "role grant")
	}
	s.log.WithFields(logrus.Fields{"restaurant_id": restaurantID, "user_id": user.ID, "role": role}).Info("staff added")
	return &StaffMember{UserID: user.ID, Name: user.Name, Email: user.Email, Role: role}, nil
}

// RemoveStaff revokes every role the user holds at the restaurant. The owner cannot be removed.
func (s *RestaurantService) RemoveStaff(ctx context.Context, restaurantID, userID uint) error {
	restaurant, err := s.store.Restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		return apperrors.FromStore(err, "restaurant")
	}
	if restaurant.OwnerID == userID {
		return apperrors.Validation("cannot remove the owner", map[string]string{"user_id": "is the restaurant owner"})
	}
	grants, err := s.store.Roles.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return apperrors.FromStore(err, "roles")
	}

	removed := 0
	err = s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		for _, g := range grants {
			if g.UserID != userID {
				continue
			}
			if err := tx.Roles.Revoke(ctx, userID, g.Role, &restaurantID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return apperrors.FromStore(err, "role grant")
	}
	if removed == 0 {
		return apperrors.NotFound("staff member")
	}
	return nil
}
