package domain

import "slices"

// ProductSnapshot is the read-only product copy carried by a cart line. It is
// not linked to the catalog's Product.
type ProductSnapshot struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Price        Money  `json:"price"`
	Stock        int    `json:"stock"`
	CategoryName string `json:"category_name,omitempty"`
	MainImage    *Image `json:"main_image,omitempty"`
}

// CartItem is one line of the cart.
type CartItem struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product"`
	Product   ProductSnapshot `json:"product_detail"`
	Quantity  int             `json:"quantity"`
	Subtotal  Money           `json:"subtotal"`
	CreatedAt Time            `json:"created_at"`
}

// UnitPrice is the price of one unit at the time the line was read.
func (i *CartItem) UnitPrice() Money {
	return i.Product.Price
}

// Recompute sets Subtotal to UnitPrice*Quantity rounded to two decimals.
func (i *CartItem) Recompute() {
	i.Subtotal = i.UnitPrice().Mul(i.Quantity)
}

// Cart is the body of GET cart/. TotalPrice and TotalCount are the server's
// figures; the client derives its own with TotalAmount and ItemCount.
type Cart struct {
	ID         int64      `json:"id"`
	Items      []CartItem `json:"items"`
	TotalPrice Money      `json:"total_price"`
	TotalCount int        `json:"total_count"`
}

// TotalAmount sums the line subtotals.
func (c *Cart) TotalAmount() Money {
	total := Zero
	for i := range c.Items {
		total = total.Add(c.Items[i].Subtotal)
	}
	return total
}

// ItemCount sums the line quantities.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the line with the given id, or -1.
func (c *Cart) FindItemIndex(itemID int64) int {
	return slices.IndexFunc(c.Items, func(it CartItem) bool { return it.ID == itemID })
}

// FindProductIndex returns the index of the line holding productID, or -1.
func (c *Cart) FindProductIndex(productID int64) int {
	return slices.IndexFunc(c.Items, func(it CartItem) bool { return it.ProductID == productID })
}

// NextItemID returns an id greater than every line id.
func (c *Cart) NextItemID() int64 {
	var max int64
	for _, it := range c.Items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

// Settle recomputes the server-side totals from the lines.
func (c *Cart) Settle() {
	c.TotalCount = c.ItemCount()
	c.TotalPrice = c.TotalAmount()
}

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = CloneCartItems(c.Items)
	return &cp
}

// CloneCartItems deep-copies cart lines.
func CloneCartItems(in []CartItem) []CartItem {
	if in == nil {
		return nil
	}
	out := slices.Clone(in)
	for i := range out {
		if img := out[i].Product.MainImage; img != nil {
			c := *img
			out[i].Product.MainImage = &c
		}
	}
	return out
}

// CartLine is the body of cart/add_item/.
type CartLine struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=1"`
}
