package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func init() {
	register("categories", command{summary: "list product categories", run: (*cli).categories})
	register("products", command{summary: "list products, filtered and sorted", run: (*cli).products})
	register("product", command{summary: "show one product", run: (*cli).product})

	register("cart", command{summary: "show the cart", auth: true, run: (*cli).cart})
	register("cart-add", command{summary: "add a product to the cart", auth: true, run: (*cli).cartAdd})
	register("cart-update", command{summary: "set the quantity of a cart line", auth: true, run: (*cli).cartUpdate})
	register("cart-remove", command{summary: "remove a cart line", auth: true, run: (*cli).cartRemove})
	register("cart-clear", command{summary: "empty the cart", auth: true, run: (*cli).cartClear})

	register("orders", command{summary: "list your orders", auth: true, run: (*cli).orders})
	register("order", command{summary: "show one order", auth: true, run: (*cli).order})
	register("checkout", command{summary: "order everything in the cart", auth: true, run: (*cli).checkout})
	register("pay", command{summary: "pay a pending order", auth: true, run: orderAction(domain.ActionPay)})
	register("cancel", command{summary: "cancel a pending or paid order", auth: true, run: orderAction(domain.ActionCancel)})
	register("confirm", command{summary: "confirm receipt of a shipped order", auth: true, run: orderAction(domain.ActionConfirm)})
}

// sortOrders maps the sort labels shown to shoppers onto the ordering
// parameter. The English keys are shorthands for the same choices.
var sortOrders = map[string]string{
	"默认排序":   "",
	"价格从低到高": "price",
	"价格从高到低": "-price",
	"评分最高":   "-rating",
	"最新上架":   "-created_at",

	"default":    "",
	"price-asc":  "price",
	"price-desc": "-price",
	"rating":     "-rating",
	"newest":     "-created_at",
}

func sortLabels() string {
	labels := make([]string, 0, len(sortOrders))
	for label := range sortOrders {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}

func (c *cli) categories(args []string) error {
	if err := parse(c.flags("categories", ""), args); err != nil {
		return err
	}
	c.app.Catalog.FetchCategories(c.ctx)
	list := c.app.Catalog.Categories()
	rows := make([][]string, 0, len(list))
	for _, cat := range list {
		rows = append(rows, []string{id(cat.ID), cat.Name, cat.Slug})
	}
	return c.table(list, "ID\tNAME\tSLUG", rows)
}

func (c *cli) products(args []string) error {
	fs := c.flags("products", "[-category NAME] [-search TEXT] [-sort LABEL]")
	var f domain.ProductFilter
	fs.StringVar(&f.Category, "category", "", "category name")
	fs.StringVar(&f.Search, "search", "", "text to search for")
	label := fs.String("sort", "", "one of: "+sortLabels())
	if err := parse(fs, args); err != nil {
		return err
	}
	ordering, ok := sortOrders[*label]
	if !ok {
		return apperrors.InvalidInput(fmt.Sprintf("unknown sort %q, use one of: %s", *label, sortLabels()))
	}
	f.Ordering = ordering

	c.app.Catalog.FetchProducts(c.ctx, f)
	list := c.app.Catalog.Products()
	return c.table(list, productHeader, productRows(list))
}

func (c *cli) product(args []string) error {
	fs := c.flags("product", "-id ID")
	productID := fs.Int64("id", 0, "product id")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}

	res := c.app.Catalog.FetchProduct(c.ctx, *productID)
	if res.Err != nil {
		return res.Err
	}
	if !res.Found {
		return apperrors.NotFound("product", id(*productID))
	}
	p := res.Product
	if err := c.table(p, productHeader, productRows([]domain.Product{*p})); err != nil {
		return err
	}
	if !c.dump && p.Description != "" {
		fmt.Fprintln(c.out, p.Description)
	}
	return nil
}

func (c *cli) cart(args []string) error {
	if err := parse(c.flags("cart", ""), args); err != nil {
		return err
	}
	c.app.Cart.FetchCart(c.ctx)
	return c.showCart()
}

func (c *cli) showCart() error {
	items := c.app.Cart.Items()
	if c.dump {
		dumper.Fdump(c.out, c.app.Cart.Snapshot())
		return nil
	}
	rows := make([][]string, 0, len(items)+1)
	for i := range items {
		it := &items[i]
		rows = append(rows, []string{
			id(it.ID), id(it.ProductID), it.Product.Name,
			it.UnitPrice().String(), strconv.Itoa(it.Quantity), it.Subtotal.String(),
		})
	}
	rows = append(rows, []string{"", "", "TOTAL", "", strconv.Itoa(c.app.Cart.TotalCount()), c.app.Cart.TotalPrice().String()})
	return c.table(nil, "ITEM\tPRODUCT\tNAME\tPRICE\tQTY\tSUBTOTAL", rows)
}

func (c *cli) cartAdd(args []string) error {
	fs := c.flags("cart-add", "-product ID [-qty N]")
	productID := fs.Int64("product", 0, "product id")
	qty := fs.Int("qty", 1, "quantity to add")
	if err := parse(fs, args, "product"); err != nil {
		return err
	}

	if err := c.app.Cart.AddItem(c.ctx, *productID, *qty); err != nil {
		return err
	}
	return c.showCart()
}

func (c *cli) cartUpdate(args []string) error {
	fs := c.flags("cart-update", "-item ID -qty N")
	itemID := fs.Int64("item", 0, "cart line id")
	qty := fs.Int("qty", 0, "new quantity")
	if err := parse(fs, args, "item", "qty"); err != nil {
		return err
	}

	c.app.Cart.FetchCart(c.ctx)
	if err := c.app.Cart.UpdateQuantity(c.ctx, *itemID, *qty); err != nil {
		return err
	}
	return c.showCart()
}

func (c *cli) cartRemove(args []string) error {
	fs := c.flags("cart-remove", "-item ID")
	itemID := fs.Int64("item", 0, "cart line id")
	if err := parse(fs, args, "item"); err != nil {
		return err
	}

	c.app.Cart.FetchCart(c.ctx)
	if err := c.app.Cart.RemoveItem(c.ctx, *itemID); err != nil {
		return err
	}
	return c.showCart()
}

func (c *cli) cartClear(args []string) error {
	if err := parse(c.flags("cart-clear", ""), args); err != nil {
		return err
	}
	if err := c.app.Cart.Clear(c.ctx); err != nil {
		return err
	}
	c.say(nil, "cart cleared")
	return nil
}

// statusFlag parses an optional order status filter.
func statusFlag(s string) (domain.OrderStatus, error) {
	status := domain.OrderStatus(s)
	if s != "" && !status.Valid() {
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", s))
	}
	return status, nil
}

func (c *cli) orders(args []string) error {
	fs := c.flags("orders", "[-status STATUS]")
	s := fs.String("status", "", "pending, paid, shipped, completed or cancelled")
	if err := parse(fs, args); err != nil {
		return err
	}
	status, err := statusFlag(*s)
	if err != nil {
		return err
	}

	c.app.Orders.FetchOrders(c.ctx, status)
	list := c.app.Orders.Orders()
	return c.table(list, orderHeader, orderRows(list))
}

func (c *cli) order(args []string) error {
	fs := c.flags("order", "-id ID")
	orderID := fs.Int64("id", 0, "order id")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}

	res := c.app.Orders.FetchOrder(c.ctx, *orderID)
	if res.Err != nil {
		return res.Err
	}
	if !res.Found {
		return apperrors.NotFound("order", id(*orderID))
	}
	return c.showOrder(res.Order)
}

func (c *cli) showOrder(o *domain.Order) error {
	if err := c.table(o, orderHeader, orderRows([]domain.Order{*o})); err != nil || c.dump {
		return err
	}
	fmt.Fprintf(c.out, "\nship to %s %s, %s %s %s %s\n",
		o.ShippingInfo.Name, o.ShippingInfo.Phone,
		o.ShippingInfo.Province, o.ShippingInfo.City, o.ShippingInfo.District, o.ShippingInfo.Address)
	rows := make([][]string, 0, len(o.Items))
	for _, it := range o.Items {
		rows = append(rows, []string{it.ProductName, it.Price.String(), strconv.Itoa(it.Quantity), it.Subtotal.String()})
	}
	return c.table(nil, "PRODUCT\tPRICE\tQTY\tSUBTOTAL", rows)
}

func (c *cli) checkout(args []string) error {
	fs := c.flags("checkout", "[-address ID]")
	addressID := fs.Int64("address", 0, "shipping address id, the default address when omitted")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *addressID == 0 {
		c.app.Addresses.FetchAddresses(c.ctx)
		def, ok := c.app.Addresses.DefaultAddress()
		if !ok {
			return apperrors.InvalidInput("no default address, pass -address")
		}
		*addressID = def.ID
	}

	c.app.Cart.FetchCart(c.ctx)
	ref, err := c.app.Orders.Checkout(c.ctx, *addressID, c.app.Cart)
	if err != nil {
		return err
	}
	c.say(ref, "order %s placed (id %d)", ref.OrderNo, ref.ID)
	return nil
}

// orderAction runs a customer status change after loading the order, so
// the transition is checked against its current status.
func orderAction(action domain.OrderAction) func(c *cli, args []string) error {
	return func(c *cli, args []string) error {
		name := string(action)
		fs := c.flags(name, "-id ID")
		orderID := fs.Int64("id", 0, "order id")
		if err := parse(fs, args, "id"); err != nil {
			return err
		}

		res := c.app.Orders.FetchOrder(c.ctx, *orderID)
		if res.Err != nil {
			return res.Err
		}

		var err error
		switch action {
		case domain.ActionPay:
			err = c.app.Orders.PayOrder(c.ctx, *orderID)
		case domain.ActionCancel:
			err = c.app.Orders.CancelOrder(c.ctx, *orderID)
		case domain.ActionConfirm:
			err = c.app.Orders.ConfirmOrder(c.ctx, *orderID)
		}
		if err != nil {
			return err
		}

		cur := c.app.Orders.Current()
		c.say(cur.Order, "order %d is now %s", *orderID, action.Target().Display())
		return nil
	}
}
