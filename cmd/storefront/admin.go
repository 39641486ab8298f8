package main

import (
	"github.com/utafrali/storefront/internal/domain"
)

func init() {
	register("admin-products", command{summary: "list every product, inactive included", admin: true, run: (*cli).adminProducts})
	register("admin-product-add", command{summary: "create a product", admin: true, run: (*cli).adminProductAdd})
	register("admin-product-update", command{summary: "replace a product's fields", admin: true, run: (*cli).adminProductUpdate})
	register("admin-product-delete", command{summary: "delete a product", admin: true, run: (*cli).adminProductDelete})
	register("admin-orders", command{summary: "list every customer's orders", admin: true, run: (*cli).adminOrders})
	register("ship", command{summary: "ship a paid order", admin: true, run: (*cli).ship})
}

// productInput parses the product form shared by add and update.
func (c *cli) productInput(name string, args []string, withID bool) (int64, domain.ProductInput, error) {
	fs := c.flags(name, "-category ID -name NAME -price AMOUNT [-original-price AMOUNT] [-stock N] ...")
	var productID *int64
	if withID {
		productID = fs.Int64("id", 0, "product id")
	}
	var in domain.ProductInput
	fs.Int64Var(&in.CategoryID, "category", 0, "category id")
	fs.StringVar(&in.Name, "name", "", "product name")
	fs.StringVar(&in.Description, "description", "", "description")
	price := fs.String("price", "", "price, e.g. 99.00")
	original := fs.String("original-price", "", "price before discount")
	fs.IntVar(&in.Stock, "stock", 0, "units in stock")
	fs.BoolVar(&in.IsHotSale, "hot", false, "flag as hot sale")
	fs.BoolVar(&in.IsActive, "active", true, "list the product in the catalog")

	required := []string{"category", "name", "price"}
	if withID {
		required = append(required, "id")
	}
	if err := parse(fs, args, required...); err != nil {
		return 0, in, err
	}

	var err error
	if in.Price, err = domain.NewMoney(*price); err != nil {
		return 0, in, err
	}
	if *original != "" {
		m, err := domain.NewMoney(*original)
		if err != nil {
			return 0, in, err
		}
		in.OriginalPrice = &m
	}
	if withID {
		return *productID, in, nil
	}
	return 0, in, nil
}

func (c *cli) adminProducts(args []string) error {
	if err := parse(c.flags("admin-products", ""), args); err != nil {
		return err
	}
	c.app.Catalog.FetchAllProducts(c.ctx)
	list := c.app.Catalog.AllProducts()
	rows := productRows(list)
	for i := range list {
		if !list[i].IsActive {
			rows[i][1] += " (inactive)"
		}
	}
	return c.table(list, productHeader, rows)
}

func (c *cli) adminProductAdd(args []string) error {
	_, in, err := c.productInput("admin-product-add", args, false)
	if err != nil {
		return err
	}
	p, err := c.app.Catalog.CreateProduct(c.ctx, in)
	if err != nil {
		return err
	}
	c.say(p, "product %d created", p.ID)
	return nil
}

func (c *cli) adminProductUpdate(args []string) error {
	productID, in, err := c.productInput("admin-product-update", args, true)
	if err != nil {
		return err
	}
	p, err := c.app.Catalog.UpdateProduct(c.ctx, productID, in)
	if err != nil {
		return err
	}
	c.say(p, "product %d updated", p.ID)
	return nil
}

func (c *cli) adminProductDelete(args []string) error {
	fs := c.flags("admin-product-delete", "-id ID")
	productID := fs.Int64("id", 0, "product id")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}

	if err := c.app.Catalog.DeleteProduct(c.ctx, *productID); err != nil {
		return err
	}
	c.say(nil, "product %d deleted", *productID)
	return nil
}

func (c *cli) adminOrders(args []string) error {
	fs := c.flags("admin-orders", "[-status STATUS]")
	s := fs.String("status", "", "pending, paid, shipped, completed or cancelled")
	if err := parse(fs, args); err != nil {
		return err
	}
	status, err := statusFlag(*s)
	if err != nil {
		return err
	}

	c.app.Orders.FetchAdminOrders(c.ctx, status)
	list := c.app.Orders.AdminOrders()
	return c.table(list, orderHeader, orderRows(list))
}

func (c *cli) ship(args []string) error {
	fs := c.flags("ship", "-id ID -tracking NO")
	orderID := fs.Int64("id", 0, "order id")
	tracking := fs.String("tracking", "", "carrier tracking number")
	if err := parse(fs, args, "id", "tracking"); err != nil {
		return err
	}

	c.app.Orders.FetchAdminOrders(c.ctx, "")
	if err := c.app.Orders.ShipOrder(c.ctx, *orderID, *tracking); err != nil {
		return err
	}
	c.say(nil, "order %d shipped with tracking number %s", *orderID, *tracking)
	return nil
}
