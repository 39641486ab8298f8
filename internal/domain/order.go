package domain

import (
	"fmt"
	"slices"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order statuses. Processing is a legacy alias the API may send for paid.
const (
	StatusPending    OrderStatus = "pending"
	StatusPaid       OrderStatus = "paid"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

var statusDisplay = map[OrderStatus]string{
	StatusPending:   "待支付",
	StatusPaid:      "已支付",
	StatusShipped:   "已发货",
	StatusCompleted: "已完成",
	StatusCancelled: "已取消",
}

// ValidStatuses returns the canonical statuses.
func ValidStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusPaid, StatusShipped, StatusCompleted, StatusCancelled}
}

// AllowedTransitions defines which status transitions are valid. The graph
// only moves forward.
func AllowedTransitions() map[OrderStatus][]OrderStatus {
	return map[OrderStatus][]OrderStatus{
		StatusPending:   {StatusPaid, StatusCancelled},
		StatusPaid:      {StatusShipped, StatusCancelled},
		StatusShipped:   {StatusCompleted},
		StatusCompleted: {},
		StatusCancelled: {},
	}
}

// Canonical maps the processing alias onto paid.
func (s OrderStatus) Canonical() OrderStatus {
	if s == StatusProcessing {
		return StatusPaid
	}
	return s
}

// Valid reports whether s is a known status or alias.
func (s OrderStatus) Valid() bool {
	_, ok := statusDisplay[s.Canonical()]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	next, ok := AllowedTransitions()[s.Canonical()]
	return ok && len(next) == 0
}

// CanTransitionTo checks if s may move to target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return slices.Contains(AllowedTransitions()[s.Canonical()], target.Canonical())
}

// Display is the label the API returns as status_display.
func (s OrderStatus) Display() string {
	return statusDisplay[s.Canonical()]
}

// OrderAction is a client-initiated status change.
type OrderAction string

// Order actions and the endpoint segment each one posts to.
const (
	ActionPay     OrderAction = "pay"
	ActionCancel  OrderAction = "cancel"
	ActionConfirm OrderAction = "confirm"
	ActionShip    OrderAction = "ship"
)

// Target returns the status an action moves the order to.
func (a OrderAction) Target() OrderStatus {
	switch a {
	case ActionPay:
		return StatusPaid
	case ActionCancel:
		return StatusCancelled
	case ActionConfirm:
		return StatusCompleted
	case ActionShip:
		return StatusShipped
	default:
		return ""
	}
}

// OrderItem is a purchased line. ProductID is zero when the product has
// since been deleted.
type OrderItem struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product,omitempty"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image,omitempty"`
	Price        Money  `json:"price"`
	Quantity     int    `json:"quantity"`
	Subtotal     Money  `json:"subtotal"`
}

// ShippingInfo is the address snapshot taken when the order was placed.
// The API flattens it into the order object.
type ShippingInfo struct {
	Name     string `json:"shipping_name"`
	Phone    string `json:"shipping_phone"`
	Province string `json:"shipping_province"`
	City     string `json:"shipping_city"`
	District string `json:"shipping_district"`
	Address  string `json:"shipping_address"`
}

// ShippingFrom snapshots an address.
func ShippingFrom(a *Address) ShippingInfo {
	return ShippingInfo{
		Name:     a.RecipientName,
		Phone:    a.Phone,
		Province: a.Province,
		City:     a.City,
		District: a.District,
		Address:  a.Address,
	}
}

// Order is a placed order.
type Order struct {
	ID            int64       `json:"id"`
	OrderNo       string      `json:"order_no"`
	Status        OrderStatus `json:"status"`
	StatusDisplay string      `json:"status_display,omitempty"`
	TotalAmount   Money       `json:"total_amount"`
	ShippingInfo
	TrackingNo  string      `json:"tracking_no,omitempty"`
	Items       []OrderItem `json:"items"`
	CreatedAt   Time        `json:"created_at"`
	PaidAt      Time        `json:"paid_at"`
	ShippedAt   Time        `json:"shipped_at"`
	CompletedAt Time        `json:"completed_at"`

	// Pending marks a client-side transition the server has acknowledged
	// but that no authoritative fetch has confirmed yet.
	Pending bool `json:"-"`
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	return o.Status.CanTransitionTo(target)
}

// CheckAction returns a CONFLICT error when a is not valid from the current
// status.
func (o *Order) CheckAction(a OrderAction) error {
	target := a.Target()
	if target == "" {
		return apperrors.InvalidInput(fmt.Sprintf("unknown order action %q", a))
	}
	if !o.CanTransitionTo(target) {
		return apperrors.Conflict(fmt.Sprintf("order %s cannot %s while %s", o.OrderNo, a, o.Status))
	}
	return nil
}

// Apply performs a on the order, stamping the matching timestamp.
func (o *Order) Apply(a OrderAction, now time.Time) error {
	if err := o.CheckAction(a); err != nil {
		return err
	}
	target := a.Target()
	o.Status = target
	o.StatusDisplay = target.Display()
	switch target {
	case StatusPaid:
		o.PaidAt = NewTime(now)
	case StatusShipped:
		o.ShippedAt = NewTime(now)
	case StatusCompleted:
		o.CompletedAt = NewTime(now)
	}
	return nil
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}

// CloneOrders deep-copies an order list.
func CloneOrders(in []Order) []Order {
	if in == nil {
		return nil
	}
	out := make([]Order, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}

// OrderLine is one requested product in a new order.
type OrderLine struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=1"`
}

// CreateOrderInput is the body of POST orders/.
type CreateOrderInput struct {
	AddressID int64       `json:"address_id" validate:"required,gt=0"`
	Items     []OrderLine `json:"items" validate:"required,min=1,dive"`
}

// OrderRef identifies a newly created order.
type OrderRef struct {
	ID      int64  `json:"id"`
	OrderNo string `json:"order_no,omitempty"`
}

// LinesFromCart turns cart lines into order lines.
func LinesFromCart(items []CartItem) []OrderLine {
	lines := make([]OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// ShipInput is the body of the admin ship action.
type ShipInput struct {
	TrackingNo string `json:"tracking_no" validate:"required,max=50"`
}

// OrderStatusChange is broadcast when a client action moves an order.
type OrderStatusChange struct {
	OrderID int64       `json:"order_id"`
	OrderNo string      `json:"order_no"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}
