package service

import (
	"context"
	"testing"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCartWithoutCart(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, "cust@example.com", models.RoleCustomer)

	cart, err := f.carts.GetCart(context.Background(), customer.UserID)
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Subtotal.IsZero())
}

func TestReplaceCartWithEmptyListEmptiesCart(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com")
	customer := f.user(t, "cust@example.com", models.RoleCustomer)
	_, items := f.restaurant(t, owner)
	ctx := context.Background()

	full := ReplaceCartInput{Items: []CartLine{
		{MenuItemID: items[0].ID, Quantity: 1},
		{MenuItemID: items[1].ID, Quantity: 2},
		{MenuItemID: items[2].ID, Quantity: 3},
	}}
	cart, err := f.carts.ReplaceCart(ctx, customer.UserID, full)
	require.NoError(t, err)
	require.Len(t, cart.Items, 3)
	assert.True(t, cart.Subtotal.Equal(decimal.RequireFromString("42")), "subtotal %s", cart.Subtotal)

	cart, err = f.carts.ReplaceCart(ctx, customer.UserID, ReplaceCartInput{Items: []CartLine{}})
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)

	got, err := f.carts.GetCart(ctx, customer.UserID)
	require.NoError(t, err)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
	assert.Equal(t, 2, got.Version)
}

func TestReplaceCartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com")
	customer := f.user(t, "cust@example.com", models.RoleCustomer)
	_, items := f.restaurant(t, owner)
	ctx := context.Background()
	in := ReplaceCartInput{Items: []CartLine{{MenuItemID: items[1].ID, Quantity: 2}, {MenuItemID: items[0].ID, Quantity: 1}}}

	first, err := f.carts.ReplaceCart(ctx, customer.UserID, in)
	require.NoError(t, err)
	second, err := f.carts.ReplaceCart(ctx, customer.UserID, in)
	require.NoError(t, err)

	stored, err := f.carts.GetCart(ctx, customer.UserID)
	require.NoError(t, err)
	assert.ElementsMatch(t, lineKeys(first.Items), lineKeys(second.Items))
	assert.ElementsMatch(t, lineKeys(first.Items), lineKeys(stored.Items))
}

func lineKeys(lines []CartLineView) []CartLine {
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, CartLine{MenuItemID: l.MenuItemID, Quantity: l.Quantity})
	}
	return out
}

func TestReplaceCartValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com")
	customer := f.user(t, "cust@example.com", models.RoleCustomer)
	r, items := f.restaurant(t, owner)
	ctx := context.Background()

	unavailable := false
	_, err := f.restaurants.UpdateMenuItem(ctx, r.ID, items[2].ID, MenuItemUpdate{IsAvailable: &unavailable})
	require.NoError(t, err)

	tests := []struct {
		name  string
		lines []CartLine
	}{
		{"zero quantity", []CartLine{{MenuItemID: items[0].ID, Quantity: 0}}},
		{"duplicate item", []CartLine{{MenuItemID: items[0].ID, Quantity: 1}, {MenuItemID: items[0].ID, Quantity: 2}}},
		{"unknown item", []CartLine{{MenuItemID: 9999, Quantity: 1}}},
		{"unavailable item", []CartLine{{MenuItemID: items[2].ID, Quantity: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.carts.ReplaceCart(ctx, customer.UserID, ReplaceCartInput{Items: tt.lines})
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestReplaceCartExpectedVersion(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com")
	customer := f.user(t, "cust@example.com", models.RoleCustomer)
	_, items := f.restaurant(t, owner)
	ctx := context.Background()

	zero := 0
	cart, err := f.carts.ReplaceCart(ctx, customer.UserID, ReplaceCartInput{
		Items:           []CartLine{{MenuItemID: items[0].ID, Quantity: 1}},
		ExpectedVersion: &zero,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Version)

	_, err = f.carts.ReplaceCart(ctx, customer.UserID, ReplaceCartInput{
		Items:           []CartLine{{MenuItemID: items[1].ID, Quantity: 1}},
		ExpectedVersion: &zero,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, err := f.carts.GetCart(ctx, customer.UserID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, items[0].ID, stored.Items[0].MenuItemID)
}

func TestDeletingMenuItemDropsCartLines(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com")
	customer := f.user(t, "cust@example.com", models.RoleCustomer)
	r, items := f.restaurant(t, owner)
	ctx := context.Background()

	_, err := f.carts.ReplaceCart(ctx, customer.UserID, ReplaceCartInput{Items: []CartLine{
		{MenuItemID: items[0].ID, Quantity: 1},
		{MenuItemID: items[1].ID, Quantity: 1},
	}})
	require.NoError(t, err)

	require.NoError(t, f.restaurants.DeleteMenuItem(ctx, r.ID, items[0].ID))

	cart, err := f.carts.GetCart(ctx, customer.UserID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, items[1].ID, cart.Items[0].MenuItemID)
}

func TestReplaceCartAdoptsCartCreatedConcurrently(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com")
	customer := f.user(t, "cust@example.com", models.RoleCustomer)
	_, items := f.restaurant(t, owner)
	ctx := context.Background()

	// A parallel first submission already inserted the user's cart row.
	require.NoError(t, f.store.Carts.Create(ctx, &models.Cart{UserID: customer.UserID}))

	cart, err := f.carts.ReplaceCart(ctx, customer.UserID, ReplaceCartInput{Items: []CartLine{{MenuItemID: items[0].ID, Quantity: 2}}})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Version)
}
