package statemachine

import (
	"strings"
	"time"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/models"
)

// Actor is the capacity in which a caller acts on a particular order.
type Actor string

const (
	ActorCustomer   Actor = "customer"   // placed the order
	ActorRestaurant Actor = "restaurant" // staff of the order's restaurant
	ActorDriver     Actor = "driver"     // self-assigning or assigned driver
	ActorAdmin      Actor = "admin"
)

// InitialStatus is the only status an order can be created in, by its customer.
const InitialStatus = models.StatusPending

// Transition defines a valid state change and who can perform it
type Transition struct {
	From   models.OrderStatus `json:"from"`
	To     models.OrderStatus `json:"to"`
	Actors []Actor            `json:"actors"`
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	{From: models.StatusPending, To: models.StatusAccepted, Actors: []Actor{ActorRestaurant, ActorAdmin}},
	{From: models.StatusPending, To: models.StatusCancelled, Actors: []Actor{ActorCustomer, ActorRestaurant, ActorAdmin}},
	{From: models.StatusAccepted, To: models.StatusCancelled, Actors: []Actor{ActorCustomer, ActorRestaurant, ActorAdmin}},
	{From: models.StatusAccepted, To: models.StatusOngoing, Actors: []Actor{ActorDriver, ActorAdmin}},
	{From: models.StatusOngoing, To: models.StatusCompleted, Actors: []Actor{ActorDriver, ActorAdmin}},
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

var transitionMap = func() map[transitionKey]map[Actor]bool {
	m := make(map[transitionKey]map[Actor]bool)
	for _, t := range validTransitions {
		actors := make(map[Actor]bool, len(t.Actors))
		for _, a := range t.Actors {
			actors[a] = true
		}
		m[transitionKey{t.From, t.To}] = actors
	}
	return m
}()

// IsLegal reports whether from → to appears in the table at all.
func IsLegal(from, to models.OrderStatus) bool {
	_, ok := transitionMap[transitionKey{from, to}]
	return ok
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	nexts := []models.OrderStatus{}
	for _, t := range validTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

// CanTransition checks the pair first and the caller second: a pair outside the table is an
// InvalidTransition whoever asks; a legal pair none of actors may trigger is Forbidden.
func CanTransition(from, to models.OrderStatus, actors ...Actor) error {
	allowed, ok := transitionMap[transitionKey{from, to}]
	if !ok {
		var next []string
		for _, s := range ValidTransitionsFrom(from) {
			next = append(next, string(s))
		}
		return apperrors.InvalidTransition(string(from), string(to), next...)
	}
	for _, a := range actors {
		if allowed[a] {
			return nil
		}
	}
	return apperrors.Forbidden(describeForbidden(from, to, allowed))
}

func describeForbidden(from, to models.OrderStatus, allowed map[Actor]bool) string {
	var names []string
	for _, t := range validTransitions {
		if t.From == from && t.To == to {
			for _, a := range t.Actors {
				if allowed[a] {
					names = append(names, string(a))
				}
			}
		}
	}
	return string(from) + " → " + string(to) + " may only be triggered by: " + strings.Join(names, ", ")
}

// Apply moves the order to status to and stamps that state's timestamp the first time it is entered.
// It returns the column updates to persist. Callers must have checked CanTransition.
func Apply(order *models.Order, to models.OrderStatus, at time.Time) map[string]interface{} {
	fields := map[string]interface{}{"status": to}
	order.Status = to

	stamp := func(column string, field **time.Time) {
		if *field == nil {
			t := at
			*field = &t
			fields[column] = t
		}
	}
	switch to {
	case models.StatusAccepted:
		stamp("accepted_at", &order.AcceptedAt)
	case models.StatusOngoing:
		stamp("picked_up_at", &order.PickedUpAt)
	case models.StatusCompleted:
		stamp("completed_at", &order.CompletedAt)
	case models.StatusCancelled:
		stamp("cancelled_at", &order.CancelledAt)
	}
	return fields
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
