package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/auth"
	"delivery-marketplace/authz"
	"delivery-marketplace/events"
	"delivery-marketplace/models"
	"delivery-marketplace/repository"
	"delivery-marketplace/statemachine"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	baseEstimateMinutes    = 30
	perLineEstimateMinutes = 5
)

// OrderLine is one requested line. Price, when given, must equal the current menu price.
type OrderLine struct {
	MenuItemID uint
	Quantity   int
	Price      *decimal.Decimal
}

// PlaceOrderInput is a new order. Total, when given, must equal the computed total.
type PlaceOrderInput struct {
	RestaurantID    uint
	Items           []OrderLine
	DeliveryAddress string
	PaymentMethod   string
	Total           *decimal.Decimal
	Notes           string
}

// TransitionInput requests a status change. DriverID lets an admin assign a driver on pickup.
type TransitionInput struct {
	Status   string
	Note     string
	DriverID *uint
}

// OrderSummary aggregates a listing.
type OrderSummary struct {
	Count    int                        `json:"count"`
	ByStatus map[models.OrderStatus]int `json:"by_status"`
	Revenue  decimal.Decimal            `json:"revenue" swaggertype:"string"`
}

// Earnings totals a driver's completed deliveries.
type Earnings struct {
	Deliveries int             `json:"completed_deliveries"`
	Total      decimal.Decimal `json:"total_earnings" swaggertype:"string"`
}

// OrderService runs order creation and the order lifecycle.
type OrderService struct {
	store       *repository.Store
	publisher   events.Publisher
	deliveryFee decimal.Decimal
	log         *logrus.Logger
	now         func() time.Time
}

func NewOrderService(store *repository.Store, publisher events.Publisher, deliveryFee decimal.Decimal, log *logrus.Logger) *OrderService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &OrderService{store: store, publisher: publisher, deliveryFee: deliveryFee, log: log, now: time.Now}
}

// PlaceOrder creates a PENDING order with price snapshots. Order, items and the first
// history row are written together or not at all.
func (s *OrderService) PlaceOrder(ctx context.Context, ident auth.Identity, in PlaceOrderInput) (*models.Order, error) {
	method, err := validateOrderInput(in)
	if err != nil {
		return nil, err
	}

	restaurant, err := s.store.Restaurants.FindByID(ctx, in.RestaurantID)
	if err != nil {
		return nil, apperrors.FromStore(err, "restaurant")
	}
	if !restaurant.IsOpen {
		return nil, apperrors.Validation("restaurant is currently closed", map[string]string{"restaurant_id": "restaurant is closed"})
	}

	ids := make([]uint, 0, len(in.Items))
	for _, line := range in.Items {
		ids = append(ids, line.MenuItemID)
	}
	menu, err := s.store.Restaurants.FindMenuItems(ctx, ids)
	if err != nil {
		return nil, apperrors.FromStore(err, "menu item")
	}

	fields := map[string]string{}
	items := make([]models.OrderItem, 0, len(in.Items))
	total := decimal.Zero
	for i, line := range in.Items {
		key := fmt.Sprintf("items[%d]", i)
		item, ok := menu[line.MenuItemID]
		switch {
		case !ok || item.RestaurantID != restaurant.ID:
			fields[key+".menu_item_id"] = "not on this restaurant's menu"
			continue
		case !item.IsAvailable:
			fields[key+".menu_item_id"] = fmt.Sprintf("'%s' is not available", item.Name)
			continue
		case line.Price != nil && !line.Price.Equal(item.Price):
			fields[key+".price"] = "does not match current price " + item.Price.StringFixed(2)
			continue
		}
		orderItem := models.OrderItem{MenuItemID: item.ID, Quantity: line.Quantity, Price: item.Price, Name: item.Name}
		total = total.Add(orderItem.LineTotal())
		items = append(items, orderItem)
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid order items", fields)
	}
	if in.Total != nil && !in.Total.Equal(total) {
		return nil, apperrors.Validation("total mismatch", map[string]string{"total": "does not match computed total " + total.StringFixed(2)})
	}

	order := &models.Order{
		CustomerID:      ident.UserID,
		RestaurantID:    restaurant.ID,
		Status:          statemachine.InitialStatus,
		Total:           total,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		PaymentMethod:   method,
		Notes:           in.Notes,
		EstimatedTime:   baseEstimateMinutes + perLineEstimateMinutes*len(items),
		Items:           items,
		StatusHistory: []models.OrderStatusHistory{{
			ToStatus:  statemachine.InitialStatus,
			ChangedBy: ident.UserID,
			Note:      "Order placed by customer",
		}},
	}
	err = s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		return tx.Orders.Create(ctx, order)
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "order")
	}

	s.log.WithFields(logrus.Fields{"order_id": order.ID, "customer_id": ident.UserID, "restaurant_id": restaurant.ID, "total": total.StringFixed(2)}).Info("order placed")
	s.publish(ctx, order, "", ident.UserID)
	order.Restaurant = restaurant
	return order, nil
}

func validateOrderInput(in PlaceOrderInput) (models.PaymentMethod, error) {
	fields := map[string]string{}
	if in.RestaurantID == 0 {
		fields["restaurant_id"] = "is required"
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		fields["delivery_address"] = "is required"
	}
	method := models.PaymentMethod(strings.ToUpper(strings.TrimSpace(in.PaymentMethod)))
	switch method {
	case "":
		method = models.PaymentCash
	case models.PaymentCash, models.PaymentCard:
	default:
		fields["payment_method"] = "must be one of CASH CARD"
	}
	if len(in.Items) == 0 {
		fields["items"] = "must contain at least 1 item"
	}
	seen := make(map[uint]bool, len(in.Items))
	for i, line := range in.Items {
		if line.Quantity < 1 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		}
		if seen[line.MenuItemID] {
			fields[fmt.Sprintf("items[%d].menu_item_id", i)] = "appears more than once"
		}
		seen[line.MenuItemID] = true
	}
	if len(fields) > 0 {
		return "", apperrors.Validation("invalid order", fields)
	}
	return method, nil
}

// actorsFor works out in which capacities the caller relates to the order. No capacity means
// the caller may not even see it.
func (s *OrderService) actorsFor(ctx context.Context, ident auth.Identity, order *models.Order) ([]statemachine.Actor, []models.UserRole, error) {
	grants, err := s.store.Roles.GetRoles(ctx, ident.UserID)
	if err != nil {
		return nil, nil, apperrors.FromStore(err, "roles")
	}

	var actors []statemachine.Actor
	if order.CustomerID == ident.UserID {
		actors = append(actors, statemachine.ActorCustomer)
	}
	if authz.Allowed(grants, []models.Role{models.RoleRestaurantAdmin, models.RoleRestaurantEmployee}, &order.RestaurantID) {
		actors = append(actors, statemachine.ActorRestaurant)
	}
	switch {
	case order.DriverID != nil && *order.DriverID == ident.UserID:
		actors = append(actors, statemachine.ActorDriver)
	case order.DriverID == nil && order.Status == models.StatusAccepted && models.HasRole(grants, models.RoleDriver, nil):
		actors = append(actors, statemachine.ActorDriver)
	}
	if models.HasRole(grants, models.RoleAdmin, nil) {
		actors = append(actors, statemachine.ActorAdmin)
	}
	return actors, grants, nil
}

func hasActor(actors []statemachine.Actor, a statemachine.Actor) bool {
	for _, x := range actors {
		if x == a {
			return true
		}
	}
	return false
}

// Transition moves an order along the lifecycle on behalf of the caller.
func (s *OrderService) Transition(ctx context.Context, ident auth.Identity, orderID uint, in TransitionInput) (*models.Order, error) {
	to, ok := models.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !ok {
		return nil, apperrors.Validation("invalid status", map[string]string{"status": "must be one of PENDING ACCEPTED ONGOING COMPLETED CANCELLED"})
	}

	order, err := s.store.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.FromStore(err, "order")
	}
	actors, grants, err := s.actorsFor(ctx, ident, order)
	if err != nil {
		return nil, err
	}
	if len(actors) == 0 {
		return nil, apperrors.NotFound("order")
	}
	if err := statemachine.CanTransition(order.Status, to, actors...); err != nil {
		return nil, err
	}

	from := order.Status
	now := s.now()
	fields := statemachine.Apply(order, to, now)

	var driverID uint
	if to == models.StatusOngoing {
		driverID, err = s.assignDriver(ctx, ident, order, actors, grants, in.DriverID)
		if err != nil {
			return nil, err
		}
		fields["driver_id"] = driverID
	}

	note := in.Note
	if note == "" {
		note = fmt.Sprintf("%s → %s", from, to)
	}
	err = s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		updated, err := tx.Orders.CompareAndSetStatus(ctx, order.ID, from, fields)
		if err != nil {
			return err
		}
		if !updated {
			return apperrors.Conflict("order status was changed by another request")
		}
		if err := tx.Orders.AddHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  ident.UserID,
			Note:       note,
		}); err != nil {
			return err
		}
		switch to {
		case models.StatusOngoing:
			return tx.Orders.CreateDelivery(ctx, &models.Delivery{
				OrderID:    order.ID,
				DriverID:   driverID,
				Fee:        s.deliveryFee,
				AssignedAt: now,
			})
		case models.StatusCompleted:
			return tx.Orders.MarkDelivered(ctx, order.ID, now)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "order")
	}

	s.log.WithFields(logrus.Fields{"order_id": order.ID, "from": from, "to": to, "by": ident.UserID}).Info("order status changed")
	if to == models.StatusOngoing {
		order.DriverID = &driverID
	}
	s.publish(ctx, order, from, ident.UserID)

	fresh, err := s.store.Orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, apperrors.FromStore(err, "order")
	}
	return fresh, nil
}

// assignDriver picks the driver for a pickup: the caller acting as driver, or the driver an admin names.
func (s *OrderService) assignDriver(ctx context.Context, ident auth.Identity, order *models.Order, actors []statemachine.Actor, grants []models.UserRole, requested *uint) (uint, error) {
	var driverID uint
	switch {
	case requested != nil && hasActor(actors, statemachine.ActorAdmin):
		roles, err := s.store.Roles.GetRoles(ctx, *requested)
		if err != nil {
			return 0, apperrors.FromStore(err, "roles")
		}
		if !models.HasRole(roles, models.RoleDriver, nil) {
			return 0, apperrors.Validation("invalid driver", map[string]string{"driver_id": "user is not a driver"})
		}
		driverID = *requested
	case hasActor(actors, statemachine.ActorDriver) && models.HasRole(grants, models.RoleDriver, nil):
		driverID = ident.UserID
	case order.DriverID != nil:
		driverID = *order.DriverID
	default:
		return 0, apperrors.Validation("driver required", map[string]string{"driver_id": "is required to start a delivery"})
	}

	if order.DriverID != nil && *order.DriverID != driverID {
		return 0, apperrors.Conflict("order is already assigned to another driver")
	}
	return driverID, nil
}

func (s *OrderService) publish(ctx context.Context, order *models.Order, from models.OrderStatus, by uint) {
	event := events.OrderStatusEvent{
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		DriverID:     order.DriverID,
		From:         from,
		To:           order.Status,
		ChangedBy:    by,
		At:           s.now().UTC(),
	}
	if err := s.publisher.PublishOrderStatus(context.WithoutCancel(ctx), event); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("order event not published")
	}
}

// GetOrder returns the order when the caller is its customer, works at its restaurant,
// is (or may become) its driver, or is an admin.
func (s *OrderService) GetOrder(ctx context.Context, ident auth.Identity, orderID uint) (*models.Order, error) {
	order, err := s.store.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.FromStore(err, "order")
	}
	actors, _, err := s.actorsFor(ctx, ident, order)
	if err != nil {
		return nil, err
	}
	if len(actors) == 0 {
		return nil, apperrors.NotFound("order")
	}
	return order, nil
}

func parseStatusFilter(status string) (models.OrderStatus, error) {
	if status == "" {
		return "", nil
	}
	st, ok := models.ParseOrderStatus(strings.ToUpper(status))
	if !ok {
		return "", apperrors.Validation("invalid status filter", map[string]string{"status": "unknown status"})
	}
	return st, nil
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	orders, err := s.store.Orders.List(ctx, filter)
	if err != nil {
		return nil, apperrors.FromStore(err, "order")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID uint, status string) ([]models.Order, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, repository.OrderFilter{CustomerID: customerID, Status: st})
}

// ListRestaurantOrders returns a restaurant's orders with a per-status summary.
func (s *OrderService) ListRestaurantOrders(ctx context.Context, restaurantID uint, status string) ([]models.Order, OrderSummary, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, OrderSummary{}, err
	}
	if _, err := s.store.Restaurants.FindByID(ctx, restaurantID); err != nil {
		return nil, OrderSummary{}, apperrors.FromStore(err, "restaurant")
	}
	orders, err := s.list(ctx, repository.OrderFilter{RestaurantID: restaurantID, Status: st})
	if err != nil {
		return nil, OrderSummary{}, err
	}
	return orders, Summarize(orders), nil
}

// ListAvailableForDrivers returns accepted orders nobody has picked up, oldest first.
func (s *OrderService) ListAvailableForDrivers(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, repository.OrderFilter{Status: models.StatusAccepted, Unassigned: true, OldestFirst: true})
}

func (s *OrderService) ListDriverDeliveries(ctx context.Context, driverID uint) ([]models.Order, error) {
	return s.list(ctx, repository.OrderFilter{DriverID: driverID})
}

// DriverEarnings sums the fees of the driver's completed deliveries.
func (s *OrderService) DriverEarnings(ctx context.Context, driverID uint) (Earnings, error) {
	deliveries, err := s.store.Orders.CompletedDeliveries(ctx, driverID)
	if err != nil {
		return Earnings{}, apperrors.FromStore(err, "delivery")
	}
	out := Earnings{Deliveries: len(deliveries), Total: decimal.Zero}
	for _, d := range deliveries {
		out.Total = out.Total.Add(d.Fee)
	}
	return out, nil
}

// ListAllOrders is the admin view with optional filters.
func (s *OrderService) ListAllOrders(ctx context.Context, status string, customerID, restaurantID uint) ([]models.Order, OrderSummary, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, OrderSummary{}, err
	}
	orders, err := s.list(ctx, repository.OrderFilter{Status: st, CustomerID: customerID, RestaurantID: restaurantID})
	if err != nil {
		return nil, OrderSummary{}, err
	}
	return orders, Summarize(orders), nil
}

// Summarize counts orders per status; revenue counts completed orders only.
func Summarize(orders []models.Order) OrderSummary {
	summary := OrderSummary{Count: len(orders), ByStatus: map[models.OrderStatus]int{}, Revenue: decimal.Zero}
	for _, o := range orders {
		summary.ByStatus[o.Status]++
		if o.Status == models.StatusCompleted {
			summary.Revenue = summary.Revenue.Add(o.Total)
		}
	}
	return summary
}
