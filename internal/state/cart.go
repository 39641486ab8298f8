package state

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/fixture"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// Cart owns the signed-in user's cart lines. TotalCount and TotalPrice are
// always derived from the lines.
type Cart struct {
	opts Options
	api  CartAPI

	mu      sync.RWMutex
	cart    *domain.Cart
	loading tracker

	// mock backend: the fixture cart and the catalog new lines are built from
	mockCart    *domain.Cart
	mockCatalog []domain.Product
}

// NewCart creates an empty cart container.
func NewCart(opts Options, client CartAPI) *Cart {
	set := fixture.MustLoad()
	return &Cart{
		opts:        opts,
		api:         client,
		cart:        &domain.Cart{},
		mockCart:    set.Cart,
		mockCatalog: set.Products,
	}
}

// Snapshot returns a copy of the cart with settled totals.
func (c *Cart) Snapshot() *domain.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Clone()
}

// Items returns a copy of the lines.
func (c *Cart) Items() []domain.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CloneCartItems(c.cart.Items)
}

// TotalCount is the sum of line quantities.
func (c *Cart) TotalCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.ItemCount()
}

// TotalPrice is the sum of line subtotals.
func (c *Cart) TotalPrice() domain.Money {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.TotalAmount()
}

// Loading reports whether a cart fetch is in flight.
func (c *Cart) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading.loading()
}

// FetchCart loads the cart. Failures are logged and keep the current lines.
func (c *Cart) FetchCart(ctx context.Context) {
	if err := c.reload(ctx); err != nil {
		c.opts.log().WarnContext(ctx, "failed to fetch cart", slog.String("error", err.Error()))
	}
}

func (c *Cart) reload(ctx context.Context) error {
	c.mu.Lock()
	gen := c.loading.begin()
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading.end()
		c.mu.Unlock()
	}()

	var (
		cart *domain.Cart
		err  error
	)
	if c.opts.mock() {
		c.mu.RLock()
		cart = c.mockCart.Clone()
		c.mu.RUnlock()
	} else if cart, err = c.api.Cart(ctx); err != nil {
		return err
	}

	c.checkTotals(ctx, cart)
	cart.Settle()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading.current(gen) {
		c.cart = cart
	}
	return nil
}

// checkTotals logs when the server's totals disagree with the lines.
func (c *Cart) checkTotals(ctx context.Context, cart *domain.Cart) {
	if cart.TotalCount != cart.ItemCount() || !cart.TotalPrice.Equal(cart.TotalAmount()) {
		c.opts.log().WarnContext(ctx, "cart totals drift from lines",
			slog.Int("server_count", cart.TotalCount),
			slog.Int("derived_count", cart.ItemCount()),
			slog.String("server_price", cart.TotalPrice.String()),
			slog.String("derived_price", cart.TotalAmount().String()),
		)
	}
}

// AddItem adds qty units of a product, merging into an existing line.
func (c *Cart) AddItem(ctx context.Context, productID int64, qty int) error {
	line := domain.CartLine{ProductID: productID, Quantity: qty}
	if err := validator.Check(line); err != nil {
		return err
	}
	if c.opts.mock() {
		return c.mutateMock(func(cart *domain.Cart) error {
			return c.mockAdd(cart, line)
		})
	}
	if err := c.api.AddCartItem(ctx, line); err != nil {
		return err
	}
	c.refetch(ctx)
	return nil
}

func (c *Cart) mockAdd(cart *domain.Cart, line domain.CartLine) error {
	i := slices.IndexFunc(c.mockCatalog, func(p domain.Product) bool { return p.ID == line.ProductID })
	if i < 0 {
		return apperrors.NotFound("product", strconv.FormatInt(line.ProductID, 10))
	}
	product := &c.mockCatalog[i]

	if j := cart.FindProductIndex(line.ProductID); j >= 0 {
		item := &cart.Items[j]
		if item.Quantity+line.Quantity > item.Product.Stock {
			return apperrors.InvalidInput("库存不足")
		}
		item.Quantity += line.Quantity
		item.Recompute()
		return nil
	}

	if !product.InStock(line.Quantity) {
		return apperrors.InvalidInput("库存不足")
	}
	item := domain.CartItem{
		ID:        cart.NextItemID(),
		ProductID: product.ID,
		Product:   product.Snapshot(),
		Quantity:  line.Quantity,
		CreatedAt: domain.NewTime(c.opts.now()),
	}
	item.Recompute()
	cart.Items = append(cart.Items, item)
	return nil
}

// UpdateQuantity sets a line's quantity. Quantities below one are rejected;
// use RemoveItem to drop a line.
func (c *Cart) UpdateQuantity(ctx context.Context, itemID int64, qty int) error {
	if qty < 1 {
		return apperrors.Validation("quantity must be at least 1",
			map[string]string{"quantity": "must be greater than or equal to 1"})
	}
	if c.opts.mock() {
		return c.mutateMock(func(cart *domain.Cart) error {
			i := cart.FindItemIndex(itemID)
			if i < 0 {
				return apperrors.NotFound("cart item", strconv.FormatInt(itemID, 10))
			}
			item := &cart.Items[i]
			if qty > item.Product.Stock {
				return apperrors.InvalidInput("库存不足")
			}
			item.Quantity = qty
			item.Recompute()
			return nil
		})
	}
	if err := c.api.UpdateCartItem(ctx, itemID, qty); err != nil {
		return err
	}
	c.refetch(ctx)
	return nil
}

// RemoveItem deletes a line.
func (c *Cart) RemoveItem(ctx context.Context, itemID int64) error {
	if c.opts.mock() {
		return c.mutateMock(func(cart *domain.Cart) error {
			i := cart.FindItemIndex(itemID)
			if i < 0 {
				return apperrors.NotFound("cart item", strconv.FormatInt(itemID, 10))
			}
			cart.Items = slices.Delete(cart.Items, i, i+1)
			return nil
		})
	}
	if err := c.api.RemoveCartItem(ctx, itemID); err != nil {
		return err
	}
	c.refetch(ctx)
	return nil
}

// Clear deletes every line.
func (c *Cart) Clear(ctx context.Context) error {
	if c.opts.mock() {
		return c.mutateMock(func(cart *domain.Cart) error {
			cart.Items = []domain.CartItem{}
			return nil
		})
	}
	if err := c.api.ClearCart(ctx); err != nil {
		return err
	}
	c.refetch(ctx)
	return nil
}

// mutateMock applies fn to a copy of the mock cart and, when it succeeds,
// commits the copy as both the mock backend and the local state.
func (c *Cart) mutateMock(fn func(cart *domain.Cart) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.mockCart.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.Settle()
	c.mockCart = next
	c.cart = next.Clone()
	// a fetch that started before this write must not overwrite it
	c.loading.gen++
	return nil
}

// refetch reloads after a successful write. The write already happened, so
// a failed reload is only logged.
func (c *Cart) refetch(ctx context.Context) {
	if err := c.reload(ctx); err != nil {
		c.opts.log().WarnContext(ctx, "failed to reload cart after update", slog.String("error", err.Error()))
	}
}
