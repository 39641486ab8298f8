package main

import (
	"flag"
	"slices"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func init() {
	register("addresses", command{summary: "list shipping addresses", auth: true, run: (*cli).addresses})
	register("address-add", command{summary: "add a shipping address", auth: true, run: (*cli).addressAdd})
	register("address-update", command{summary: "edit a shipping address", auth: true, run: (*cli).addressUpdate})
	register("address-default", command{summary: "make an address the default", auth: true, run: (*cli).addressDefault})
	register("address-delete", command{summary: "delete a shipping address", auth: true, run: (*cli).addressDelete})

	register("favorites", command{summary: "list favorite products", auth: true, run: (*cli).favorites})
	register("favorite", command{summary: "toggle a product's favorite flag", auth: true, run: (*cli).favorite})
	register("unfavorite", command{summary: "remove a product from favorites", auth: true, run: (*cli).unfavorite})
}

// addressFlags binds the editable address fields onto in.
func addressFlags(fs *flag.FlagSet, in *domain.AddressInput) {
	fs.StringVar(&in.RecipientName, "name", "", "recipient name")
	fs.StringVar(&in.Phone, "phone", "", "mobile number")
	fs.StringVar(&in.Province, "province", "", "province")
	fs.StringVar(&in.City, "city", "", "city")
	fs.StringVar(&in.District, "district", "", "district")
	fs.StringVar(&in.Address, "address", "", "street address")
	fs.BoolVar(&in.IsDefault, "default", false, "make this the default address")
}

func (c *cli) addresses(args []string) error {
	if err := parse(c.flags("addresses", ""), args); err != nil {
		return err
	}
	c.app.Addresses.FetchAddresses(c.ctx)
	list := c.app.Addresses.List()
	return c.table(list, addressHeader, addressRows(list))
}

func (c *cli) addressAdd(args []string) error {
	fs := c.flags("address-add", "-name N -phone P -province P -city C -district D -address A [-default]")
	var in domain.AddressInput
	addressFlags(fs, &in)
	if err := parse(fs, args, "name", "phone", "province", "city", "district", "address"); err != nil {
		return err
	}

	c.app.Addresses.FetchAddresses(c.ctx)
	a, err := c.app.Addresses.CreateAddress(c.ctx, in)
	if err != nil {
		return err
	}
	c.say(a, "address %d added", a.ID)
	return nil
}

// loadAddress fetches the address book and returns address id from it.
func (c *cli) loadAddress(addressID int64) (domain.Address, error) {
	c.app.Addresses.FetchAddresses(c.ctx)
	list := c.app.Addresses.List()
	i := slices.IndexFunc(list, func(a domain.Address) bool { return a.ID == addressID })
	if i < 0 {
		return domain.Address{}, apperrors.NotFound("address", id(addressID))
	}
	return list[i], nil
}

func (c *cli) addressUpdate(args []string) error {
	fs := c.flags("address-update", "-id ID [-name N] [-phone P] ... [-default]")
	addressID := fs.Int64("id", 0, "address id")
	var set domain.AddressInput
	addressFlags(fs, &set)
	if err := parse(fs, args, "id"); err != nil {
		return err
	}

	existing, err := c.loadAddress(*addressID)
	if err != nil {
		return err
	}
	// Fields left off the command line keep their current value.
	in := domain.InputOf(existing)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			in.RecipientName = set.RecipientName
		case "phone":
			in.Phone = set.Phone
		case "province":
			in.Province = set.Province
		case "city":
			in.City = set.City
		case "district":
			in.District = set.District
		case "address":
			in.Address = set.Address
		case "default":
			in.IsDefault = set.IsDefault
		}
	})

	a, err := c.app.Addresses.UpdateAddress(c.ctx, *addressID, in)
	if err != nil {
		return err
	}
	c.say(a, "address %d updated", a.ID)
	return nil
}

func (c *cli) addressDefault(args []string) error {
	fs := c.flags("address-default", "-id ID")
	addressID := fs.Int64("id", 0, "address id")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}

	c.app.Addresses.FetchAddresses(c.ctx)
	if err := c.app.Addresses.SetDefault(c.ctx, *addressID); err != nil {
		return err
	}
	list := c.app.Addresses.List()
	return c.table(list, addressHeader, addressRows(list))
}

func (c *cli) addressDelete(args []string) error {
	fs := c.flags("address-delete", "-id ID")
	addressID := fs.Int64("id", 0, "address id")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}

	if err := c.app.Addresses.DeleteAddress(c.ctx, *addressID); err != nil {
		return err
	}
	c.say(nil, "address %d deleted", *addressID)
	return nil
}

func (c *cli) favorites(args []string) error {
	if err := parse(c.flags("favorites", ""), args); err != nil {
		return err
	}
	c.app.Favorites.FetchFavorites(c.ctx)
	items := c.app.Favorites.Items()
	products := make([]domain.Product, 0, len(items))
	for _, it := range items {
		products = append(products, it.Product)
	}
	return c.table(items, productHeader, productRows(products))
}

func (c *cli) favorite(args []string) error {
	fs := c.flags("favorite", "-product ID")
	productID := fs.Int64("product", 0, "product id")
	if err := parse(fs, args, "product"); err != nil {
		return err
	}

	c.app.Favorites.FetchFavorites(c.ctx)
	on, err := c.app.Favorites.Toggle(c.ctx, *productID)
	if err != nil {
		return err
	}
	if on {
		c.say(nil, "product %d added to favorites", *productID)
	} else {
		c.say(nil, "product %d removed from favorites", *productID)
	}
	return nil
}

func (c *cli) unfavorite(args []string) error {
	fs := c.flags("unfavorite", "-product ID")
	productID := fs.Int64("product", 0, "product id")
	if err := parse(fs, args, "product"); err != nil {
		return err
	}

	c.app.Favorites.FetchFavorites(c.ctx)
	if err := c.app.Favorites.Remove(c.ctx, *productID); err != nil {
		return err
	}
	c.say(nil, "product %d removed from favorites", *productID)
	return nil
}
