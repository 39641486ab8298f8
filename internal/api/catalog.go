package api

import (
	"context"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
)

// Categories lists the product categories.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out list[domain.Category]
	err := c.do(ctx, request{method: http.MethodGet, path: "categories/", resource: "categories"}, &out)
	return out, err
}

// Products lists active products. The filter is sent as query parameters
// unchanged.
func (c *Client) Products(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var out list[domain.Product]
	err := c.do(ctx, request{method: http.MethodGet, path: "products/", query: f.Query(), resource: "products"}, &out)
	return out, err
}

// Product fetches one product. An unknown id yields a NOT_FOUND error.
func (c *Client) Product(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: itemPath("products/", id, ""), resource: "products"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// AdminProducts lists every product including inactive ones.
func (c *Client) AdminProducts(ctx context.Context) ([]domain.Product, error) {
	var out list[domain.Product]
	err := c.do(ctx, request{method: http.MethodGet, path: "admin/products/", resource: "admin/products"}, &out)
	return out, err
}

// CreateProduct adds a product.
func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, request{method: http.MethodPost, path: "admin/products/", body: in, resource: "admin/products"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct replaces a product's editable fields.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, request{method: http.MethodPut, path: itemPath("admin/products/", id, ""), body: in, resource: "admin/products"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: itemPath("admin/products/", id, ""), resource: "admin/products"}, nil)
}
