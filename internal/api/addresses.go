package api

import (
	"context"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
)

// Addresses lists the signed-in user's shipping addresses.
func (c *Client) Addresses(ctx context.Context) ([]domain.Address, error) {
	var out list[domain.Address]
	err := c.do(ctx, request{method: http.MethodGet, path: "addresses/", resource: "addresses"}, &out)
	return out, err
}

// CreateAddress saves a new address.
func (c *Client) CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	var a domain.Address
	if err := c.do(ctx, request{method: http.MethodPost, path: "addresses/", body: in, resource: "addresses"}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAddress replaces an address.
func (c *Client) UpdateAddress(ctx context.Context, id int64, in domain.AddressInput) (*domain.Address, error) {
	var a domain.Address
	if err := c.do(ctx, request{method: http.MethodPut, path: itemPath("addresses/", id, ""), body: in, resource: "addresses"}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAddress removes an address.
func (c *Client) DeleteAddress(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: itemPath("addresses/", id, ""), resource: "addresses"}, nil)
}
