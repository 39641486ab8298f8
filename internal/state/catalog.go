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
)

// ProductResult is the outcome of FetchProduct. Found is false for an
// unknown id; Err is set only when the lookup itself failed.
type ProductResult struct {
	Product *domain.Product
	Found   bool
	Err     error
}

// Catalog owns the category list, the current product listing and the
// product detail being viewed.
type Catalog struct {
	opts Options
	api  CatalogAPI

	mu         sync.RWMutex
	categories []domain.Category
	products   []domain.Product
	filter     domain.ProductFilter
	current    ProductResult
	all        []domain.Product
	favorited  map[int64]bool
	list       tracker
	detail     tracker

	// mock catalog, standing in for the server in mock mode
	fixtures   []domain.Product
	fixtureCat []domain.Category
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts Options, client CatalogAPI) *Catalog {
	set := fixture.MustLoad()
	return &Catalog{
		opts:       opts,
		api:        client,
		favorited:  make(map[int64]bool),
		fixtures:   set.Products,
		fixtureCat: set.Categories,
	}
}

// WatchFavorites keeps IsFavorited on cached products in step with f. The
// returned func stops watching.
func (c *Catalog) WatchFavorites(f *Favorites) func() {
	return f.Subscribe(c.applyFavorite)
}

func (c *Catalog) applyFavorite(change domain.FavoriteChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.favorited[change.ProductID] = change.IsFavorited
	for i := range c.products {
		if c.products[i].ID == change.ProductID {
			c.products[i].IsFavorited = change.IsFavorited
		}
	}
	if p := c.current.Product; p != nil && p.ID == change.ProductID {
		p.IsFavorited = change.IsFavorited
	}
}

// Categories returns a copy of the loaded categories.
func (c *Catalog) Categories() []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.categories)
}

// Products returns a copy of the current listing.
func (c *Catalog) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CloneProducts(c.products)
}

// Filter returns the filter of the current listing.
func (c *Catalog) Filter() domain.ProductFilter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// Current returns the product detail last loaded by FetchProduct.
func (c *Catalog) Current() ProductResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := c.current
	res.Product = res.Product.Clone()
	return res
}

// AllProducts returns the admin listing.
func (c *Catalog) AllProducts() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CloneProducts(c.all)
}

// Loading reports whether any catalog fetch is in flight.
func (c *Catalog) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.loading() || c.detail.loading()
}

// FetchCategories loads the categories. Failures are logged.
func (c *Catalog) FetchCategories(ctx context.Context) {
	var (
		cats []domain.Category
		err  error
	)
	if c.opts.mock() {
		c.mu.RLock()
		cats = slices.Clone(c.fixtureCat)
		c.mu.RUnlock()
	} else if cats, err = c.api.Categories(ctx); err != nil {
		c.opts.log().WarnContext(ctx, "failed to fetch categories", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	c.categories = cats
	c.mu.Unlock()
}

// FetchProducts loads the listing for f. Only the newest call is applied
// when several overlap. Failures are logged and keep the previous listing.
func (c *Catalog) FetchProducts(ctx context.Context, f domain.ProductFilter) {
	c.mu.Lock()
	gen := c.list.begin()
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.list.end()
		c.mu.Unlock()
	}()

	var (
		products []domain.Product
		err      error
	)
	if c.opts.mock() {
		products, err = c.mockProducts(f)
	} else {
		products, err = c.api.Products(ctx, f)
	}
	if err != nil {
		c.opts.log().WarnContext(ctx, "failed to fetch products",
			slog.String("category", f.Category),
			slog.String("ordering", f.Ordering),
			slog.String("error", err.Error()),
		)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.list.current(gen) {
		c.opts.log().DebugContext(ctx, "discarding stale product listing", slog.Uint64("generation", gen))
		return
	}
	for i := range products {
		if fav, ok := c.favorited[products[i].ID]; ok {
			products[i].IsFavorited = fav
		}
	}
	c.products = products
	c.filter = f
}

func (c *Catalog) mockProducts(f domain.ProductFilter) ([]domain.Product, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	active := make([]domain.Product, 0, len(c.fixtures))
	for _, p := range c.fixtures {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return f.Apply(active), nil
}

// FetchProduct loads one product. An unknown id resolves to a result with
// Found false rather than an error.
func (c *Catalog) FetchProduct(ctx context.Context, id int64) ProductResult {
	c.mu.Lock()
	gen := c.detail.begin()
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.detail.end()
		c.mu.Unlock()
	}()

	var (
		p   *domain.Product
		err error
	)
	if c.opts.mock() {
		p, err = c.mockProduct(id)
	} else {
		p, err = c.api.Product(ctx, id)
	}

	var res ProductResult
	switch {
	case err == nil:
		res = ProductResult{Product: p, Found: true}
	case apperrors.IsNotFound(err):
		res = ProductResult{}
	default:
		c.opts.log().WarnContext(ctx, "failed to fetch product",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
		return ProductResult{Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Found {
		if fav, ok := c.favorited[id]; ok {
			res.Product.IsFavorited = fav
		}
	}
	if c.detail.current(gen) {
		c.current = res
	}
	res.Product = res.Product.Clone()
	return res
}

func (c *Catalog) mockProduct(id int64) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.fixtures {
		if c.fixtures[i].ID == id {
			return c.fixtures[i].Clone(), nil
		}
	}
	return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
}

// FetchAllProducts loads the admin listing, inactive products included.
func (c *Catalog) FetchAllProducts(ctx context.Context) {
	var (
		products []domain.Product
		err      error
	)
	if c.opts.mock() {
		c.mu.RLock()
		products = domain.CloneProducts(c.fixtures)
		c.mu.RUnlock()
	} else if products, err = c.api.AdminProducts(ctx); err != nil {
		c.opts.log().WarnContext(ctx, "failed to fetch admin products", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	c.all = products
	c.mu.Unlock()
}

// CreateProduct adds a product. The listings are not touched; refetch to
// see it.
func (c *Catalog) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !c.opts.mock() {
		return c.api.CreateProduct(ctx, in)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var next int64
	for _, p := range c.fixtures {
		next = max(next, p.ID)
	}
	p := domain.Product{ID: next + 1, CreatedAt: domain.NewTime(c.opts.now())}
	in.Apply(&p)
	p.CategoryName = c.categoryName(in.CategoryID)
	c.fixtures = append(c.fixtures, p)
	return p.Clone(), nil
}

// UpdateProduct replaces a product's editable fields.
func (c *Catalog) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !c.opts.mock() {
		return c.api.UpdateProduct(ctx, id, in)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.fixtures, func(p domain.Product) bool { return p.ID == id })
	if i < 0 {
		return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	in.Apply(&c.fixtures[i])
	c.fixtures[i].CategoryName = c.categoryName(in.CategoryID)
	return c.fixtures[i].Clone(), nil
}

// DeleteProduct removes a product.
func (c *Catalog) DeleteProduct(ctx context.Context, id int64) error {
	if !c.opts.mock() {
		return c.api.DeleteProduct(ctx, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.fixtures, func(p domain.Product) bool { return p.ID == id })
	if i < 0 {
		return apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	c.fixtures = slices.Delete(c.fixtures, i, i+1)
	return nil
}

func (c *Catalog) categoryName(id int64) string {
	for _, cat := range c.fixtureCat {
		if cat.ID == id {
			return cat.Name
		}
	}
	return ""
}
