package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/domain"
)

// Orders lists the signed-in user's orders, newest first. An empty status
// lists all of them.
func (c *Client) Orders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	var out list[domain.Order]
	err := c.do(ctx, request{method: http.MethodGet, path: "orders/", query: statusQuery(status), resource: "orders"}, &out)
	return out, err
}

// Order fetches one order.
func (c *Client) Order(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: itemPath("orders/", id, ""), resource: "orders"}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder places an order for the given lines.
func (c *Client) CreateOrder(ctx context.Context, in domain.CreateOrderInput) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, request{method: http.MethodPost, path: "orders/", body: in, resource: "orders"}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// OrderAction posts a customer status action: pay, cancel or confirm.
func (c *Client) OrderAction(ctx context.Context, id int64, action domain.OrderAction) error {
	return c.do(ctx, request{
		method: http.MethodPost, path: itemPath("orders/", id, string(action)), resource: "orders/" + string(action),
	}, nil)
}

// PayOrder marks a pending order paid.
func (c *Client) PayOrder(ctx context.Context, id int64) error {
	return c.OrderAction(ctx, id, domain.ActionPay)
}

// CancelOrder cancels a pending or paid order.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	return c.OrderAction(ctx, id, domain.ActionCancel)
}

// ConfirmOrder confirms receipt of a shipped order.
func (c *Client) ConfirmOrder(ctx context.Context, id int64) error {
	return c.OrderAction(ctx, id, domain.ActionConfirm)
}

// AdminOrders lists every customer's orders.
func (c *Client) AdminOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	var out list[domain.Order]
	err := c.do(ctx, request{method: http.MethodGet, path: "admin/orders/", query: statusQuery(status), resource: "admin/orders"}, &out)
	return out, err
}

// ShipOrder marks a paid order shipped with its tracking number.
func (c *Client) ShipOrder(ctx context.Context, id int64, in domain.ShipInput) error {
	return c.do(ctx, request{
		method: http.MethodPost, path: itemPath("admin/orders/", id, "ship"), body: in, resource: "admin/orders/ship",
	}, nil)
}

func statusQuery(status domain.OrderStatus) url.Values {
	if status == "" {
		return nil
	}
	return url.Values{"status": {string(status)}}
}
