package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/fixture"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// OrderResult is the outcome of FetchOrder. Found is false for an unknown
// id; Err is set only when the lookup itself failed.
type OrderResult struct {
	Order *domain.Order
	Found bool
	Err   error
}

// Orders owns the order list, the order being viewed and the admin order
// list. Status actions are checked against the local copy before anything
// is sent, and a successful action leaves the local copy at the target
// status flagged Pending until the next fetch.
type Orders struct {
	opts Options
	api  OrderAPI

	mu      sync.RWMutex
	orders  []domain.Order
	status  domain.OrderStatus
	current OrderResult
	admin   []domain.Order
	list    tracker
	detail  tracker
	changes broadcaster[domain.OrderStatusChange]

	// mock backend
	mockOrders    []domain.Order
	mockProducts  []domain.Product
	mockAddresses []domain.Address
}

// NewOrders creates an empty order container.
func NewOrders(opts Options, client OrderAPI) *Orders {
	set := fixture.MustLoad()
	return &Orders{
		opts:          opts,
		api:           client,
		mockOrders:    set.Orders,
		mockProducts:  set.Products,
		mockAddresses: set.Addresses,
	}
}

// Subscribe registers fn for every status change made through this
// container. The returned func unsubscribes.
func (o *Orders) Subscribe(fn func(domain.OrderStatusChange)) func() {
	return o.changes.subscribe(fn)
}

// Orders returns a copy of the loaded list.
func (o *Orders) Orders() []domain.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return domain.CloneOrders(o.orders)
}

// Current returns the order detail last loaded by FetchOrder.
func (o *Orders) Current() OrderResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	res := o.current
	res.Order = res.Order.Clone()
	return res
}

// AdminOrders returns a copy of the admin list.
func (o *Orders) AdminOrders() []domain.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return domain.CloneOrders(o.admin)
}

// Loading reports whether an order fetch is in flight.
func (o *Orders) Loading() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.list.loading() || o.detail.loading()
}

// FetchOrders loads the orders with the given status, or all of them for
// an empty status. Failures are logged and keep the previous list.
func (o *Orders) FetchOrders(ctx context.Context, status domain.OrderStatus) {
	if err := o.reload(ctx, status); err != nil {
		o.opts.log().WarnContext(ctx, "failed to fetch orders",
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orders) reload(ctx context.Context, status domain.OrderStatus) error {
	o.mu.Lock()
	gen := o.list.begin()
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.list.end()
		o.mu.Unlock()
	}()

	var (
		orders []domain.Order
		err    error
	)
	if o.opts.mock() {
		orders = o.mockList(status)
	} else if orders, err = o.api.Orders(ctx, status); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.list.current(gen) {
		o.orders = orders
		o.status = status
	}
	return nil
}

func (o *Orders) mockList(status domain.OrderStatus) []domain.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]domain.Order, 0, len(o.mockOrders))
	for _, ord := range o.mockOrders {
		if status == "" || ord.Status.Canonical() == status.Canonical() {
			out = append(out, *ord.Clone())
		}
	}
	return out
}

// FetchOrder loads one order. An unknown id resolves to a result with Found
// false rather than an error.
func (o *Orders) FetchOrder(ctx context.Context, id int64) OrderResult {
	o.mu.Lock()
	gen := o.detail.begin()
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.detail.end()
		o.mu.Unlock()
	}()

	var (
		ord *domain.Order
		err error
	)
	if o.opts.mock() {
		ord, err = o.mockFind(id)
	} else {
		ord, err = o.api.Order(ctx, id)
	}

	var res OrderResult
	switch {
	case err == nil:
		res = OrderResult{Order: ord, Found: true}
	case apperrors.IsNotFound(err):
	default:
		o.opts.log().WarnContext(ctx, "failed to fetch order",
			slog.Int64("order_id", id),
			slog.String("error", err.Error()),
		)
		return OrderResult{Err: err}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.detail.current(gen) {
		o.current = res
	}
	res.Order = res.Order.Clone()
	return res
}

func (o *Orders) mockFind(id int64) (*domain.Order, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for i := range o.mockOrders {
		if o.mockOrders[i].ID == id {
			return o.mockOrders[i].Clone(), nil
		}
	}
	return nil, apperrors.NotFound("order", strconv.FormatInt(id, 10))
}

// CreateOrder places an order and reloads the list so the new order can be
// opened. Mock mode answers with the placeholder id.
func (o *Orders) CreateOrder(ctx context.Context, addressID int64, lines []domain.OrderLine) (domain.OrderRef, error) {
	in := domain.CreateOrderInput{AddressID: addressID, Items: lines}
	if err := validator.Check(in); err != nil {
		return domain.OrderRef{}, err
	}

	var ref domain.OrderRef
	if o.opts.mock() {
		ord, err := o.mockCreate(in)
		if err != nil {
			return domain.OrderRef{}, err
		}
		ref = domain.OrderRef{ID: ord.ID, OrderNo: ord.OrderNo}
	} else {
		ord, err := o.api.CreateOrder(ctx, in)
		if err != nil {
			return domain.OrderRef{}, err
		}
		ref = domain.OrderRef{ID: ord.ID, OrderNo: ord.OrderNo}
	}

	o.mu.RLock()
	status := o.status
	o.mu.RUnlock()
	if err := o.reload(ctx, status); err != nil {
		o.opts.log().WarnContext(ctx, "failed to reload orders after create", slog.String("error", err.Error()))
	}

	o.opts.log().InfoContext(ctx, "order created",
		slog.Int64("order_id", ref.ID),
		slog.String("order_no", ref.OrderNo),
	)
	return ref, nil
}

// mockCreate builds a pending order from the fixture catalog the way the
// server would, taking stock as it goes. The first order gets the
// placeholder id and later ones the next free id above it, so every created
// order stays listed.
func (o *Orders) mockCreate(in domain.CreateOrderInput) (*domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ai := slices.IndexFunc(o.mockAddresses, func(a domain.Address) bool { return a.ID == in.AddressID })
	if ai < 0 {
		return nil, apperrors.NotFound("address", strconv.FormatInt(in.AddressID, 10))
	}

	products := domain.CloneProducts(o.mockProducts)
	ord := domain.Order{
		ID:           o.nextMockOrderID(),
		OrderNo:      "MOCK" + strings.ToUpper(uuid.NewString()[:8]),
		Status:       domain.StatusPending,
		ShippingInfo: domain.ShippingFrom(&o.mockAddresses[ai]),
		CreatedAt:    domain.NewTime(o.opts.now()),
		TotalAmount:  domain.Zero,
	}
	ord.StatusDisplay = ord.Status.Display()

	for n, line := range in.Items {
		pi := slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == line.ProductID })
		if pi < 0 {
			return nil, apperrors.NotFound("product", strconv.FormatInt(line.ProductID, 10))
		}
		p := &products[pi]
		if !p.InStock(line.Quantity) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("商品 %s 库存不足", p.Name))
		}
		p.Stock -= line.Quantity

		item := domain.OrderItem{
			ID:          int64(n + 1),
			ProductID:   p.ID,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    line.Quantity,
			Subtotal:    p.Price.Mul(line.Quantity),
		}
		if p.MainImage != nil {
			item.ProductImage = p.MainImage.URL
		}
		ord.Items = append(ord.Items, item)
		ord.TotalAmount = ord.TotalAmount.Add(item.Subtotal)
	}

	o.mockProducts = products
	o.mockOrders = append([]domain.Order{ord}, o.mockOrders...)
	return ord.Clone(), nil
}

// nextMockOrderID must be called with o.mu held.
func (o *Orders) nextMockOrderID() int64 {
	id := fixture.PlaceholderOrderID
	for slices.ContainsFunc(o.mockOrders, func(x domain.Order) bool { return x.ID == id }) {
		id++
	}
	return id
}

// Checkout orders every line of the cart and reloads the cart afterwards,
// since the server drops ordered products from it.
func (o *Orders) Checkout(ctx context.Context, addressID int64, cart *Cart) (domain.OrderRef, error) {
	items := cart.Items()
	if len(items) == 0 {
		return domain.OrderRef{}, apperrors.InvalidInput("cart is empty")
	}
	ref, err := o.CreateOrder(ctx, addressID, domain.LinesFromCart(items))
	if err != nil {
		return domain.OrderRef{}, err
	}
	if o.opts.mock() {
		if err := cart.Clear(ctx); err != nil {
			o.opts.log().WarnContext(ctx, "failed to clear mock cart after checkout", slog.String("error", err.Error()))
		}
	} else {
		cart.FetchCart(ctx)
	}
	return ref, nil
}

// PayOrder pays a pending order.
func (o *Orders) PayOrder(ctx context.Context, id int64) error {
	return o.transition(ctx, id, domain.ActionPay, func(ctx context.Context) error {
		return o.api.PayOrder(ctx, id)
	})
}

// CancelOrder cancels a pending or paid order.
func (o *Orders) CancelOrder(ctx context.Context, id int64) error {
	return o.transition(ctx, id, domain.ActionCancel, func(ctx context.Context) error {
		return o.api.CancelOrder(ctx, id)
	})
}

// ConfirmOrder confirms receipt of a shipped order.
func (o *Orders) ConfirmOrder(ctx context.Context, id int64) error {
	return o.transition(ctx, id, domain.ActionConfirm, func(ctx context.Context) error {
		return o.api.ConfirmOrder(ctx, id)
	})
}

// FetchAdminOrders loads every customer's orders. Failures are logged.
func (o *Orders) FetchAdminOrders(ctx context.Context, status domain.OrderStatus) {
	var (
		orders []domain.Order
		err    error
	)
	if o.opts.mock() {
		orders = o.mockList(status)
	} else if orders, err = o.api.AdminOrders(ctx, status); err != nil {
		o.opts.log().WarnContext(ctx, "failed to fetch admin orders", slog.String("error", err.Error()))
		return
	}

	o.mu.Lock()
	o.admin = orders
	o.mu.Unlock()
}

// ShipOrder ships a paid order with its tracking number.
func (o *Orders) ShipOrder(ctx context.Context, id int64, trackingNo string) error {
	in := domain.ShipInput{TrackingNo: trackingNo}
	if err := validator.Check(in); err != nil {
		return err
	}
	return o.transition(ctx, id, domain.ActionShip, func(ctx context.Context) error {
		return o.api.ShipOrder(ctx, id, in)
	}, func(ord *domain.Order) { ord.TrackingNo = trackingNo })
}

// transition checks action against the local copy of order id, performs it
// and moves every local copy to the target status, flagged Pending. An
// invalid source status is a CONFLICT error and nothing changes.
func (o *Orders) transition(ctx context.Context, id int64, action domain.OrderAction, call func(context.Context) error, extra ...func(*domain.Order)) error {
	ord, ok := o.lookup(id)
	if !ok {
		return apperrors.NotFound("order", strconv.FormatInt(id, 10))
	}
	if err := ord.CheckAction(action); err != nil {
		return err
	}

	now := o.opts.now()
	if o.opts.mock() {
		if err := o.mockApply(id, action, now, extra); err != nil {
			return err
		}
	} else if err := call(ctx); err != nil {
		return err
	}

	change := domain.OrderStatusChange{OrderID: id, OrderNo: ord.OrderNo, From: ord.Status, To: action.Target()}

	o.mu.Lock()
	o.forEachCopy(id, func(local *domain.Order) {
		if err := local.Apply(action, now); err != nil {
			o.opts.log().WarnContext(ctx, "local order diverged during action",
				slog.Int64("order_id", id),
				slog.String("action", string(action)),
				slog.String("error", err.Error()),
			)
			return
		}
		for _, fn := range extra {
			fn(local)
		}
		local.Pending = true
	})
	o.mu.Unlock()

	o.opts.log().InfoContext(ctx, "order status changed",
		slog.Int64("order_id", id),
		slog.String("from", string(change.From)),
		slog.String("to", string(change.To)),
	)
	o.changes.publish(change)
	return nil
}

// lookup finds a local copy of order id.
func (o *Orders) lookup(id int64) (*domain.Order, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var found *domain.Order
	o.forEachCopy(id, func(ord *domain.Order) {
		if found == nil {
			found = ord.Clone()
		}
	})
	return found, found != nil
}

// forEachCopy calls fn on every local copy of order id. Callers hold mu.
func (o *Orders) forEachCopy(id int64, fn func(*domain.Order)) {
	if c := o.current.Order; c != nil && c.ID == id {
		fn(c)
	}
	for i := range o.orders {
		if o.orders[i].ID == id {
			fn(&o.orders[i])
		}
	}
	for i := range o.admin {
		if o.admin[i].ID == id {
			fn(&o.admin[i])
		}
	}
}

func (o *Orders) mockApply(id int64, action domain.OrderAction, now time.Time, extra []func(*domain.Order)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := slices.IndexFunc(o.mockOrders, func(x domain.Order) bool { return x.ID == id })
	if i < 0 {
		return apperrors.NotFound("order", strconv.FormatInt(id, 10))
	}
	if err := o.mockOrders[i].Apply(action, now); err != nil {
		return err
	}
	if action == domain.ActionCancel {
		for _, item := range o.mockOrders[i].Items {
			if pi := slices.IndexFunc(o.mockProducts, func(p domain.Product) bool { return p.ID == item.ProductID }); pi >= 0 {
				o.mockProducts[pi].Stock += item.Quantity
			}
		}
	}
	for _, fn := range extra {
		fn(&o.mockOrders[i])
	}
	return nil
}
