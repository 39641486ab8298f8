package api

import (
	"context"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
)

// Cart returns the signed-in user's cart.
func (c *Client) Cart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, request{method: http.MethodGet, path: "cart/", resource: "cart"}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartItem adds quantity of a product, merging with an existing line.
func (c *Client) AddCartItem(ctx context.Context, line domain.CartLine) error {
	return c.do(ctx, request{method: http.MethodPost, path: "cart/add_item/", body: line, resource: "cart/add_item"}, nil)
}

// UpdateCartItem sets a line's quantity.
func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	return c.do(ctx, request{
		method: http.MethodPut, path: itemPath("cart/update_item/", itemID, ""),
		body: map[string]int{"quantity": quantity}, resource: "cart/update_item",
	}, nil)
}

// RemoveCartItem deletes a line.
func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: itemPath("cart/remove_item/", itemID, ""), resource: "cart/remove_item"}, nil)
}

// ClearCart deletes every line.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "cart/clear/", resource: "cart/clear"}, nil)
}
