package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/utafrali/storefront/internal/domain"
)

// Favorites lists the signed-in user's favorites.
func (c *Client) Favorites(ctx context.Context) ([]domain.Favorite, error) {
	var out list[domain.Favorite]
	err := c.do(ctx, request{method: http.MethodGet, path: "favorites/", resource: "favorites"}, &out)
	return out, err
}

// ToggleFavorite flips a product's favorite state and returns the new one.
func (c *Client) ToggleFavorite(ctx context.Context, productID int64) (domain.ToggleResult, error) {
	var res domain.ToggleResult
	err := c.do(ctx, request{
		method: http.MethodPost, path: "favorites/toggle/",
		body: map[string]int64{"product_id": productID}, resource: "favorites/toggle",
	}, &res)
	return res, err
}

// RemoveFavorite drops a product from the favorites.
func (c *Client) RemoveFavorite(ctx context.Context, productID int64) error {
	return c.do(ctx, request{
		method: http.MethodDelete, path: "favorites/remove/" + strconv.FormatInt(productID, 10) + "/", resource: "favorites/remove",
	}, nil)
}
