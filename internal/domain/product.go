package domain

import (
	"cmp"
	"net/url"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// Category groups products in the catalog.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Icon string `json:"icon,omitempty"`
}

// Image is a product picture.
type Image struct {
	ID     int64  `json:"id,omitempty"`
	URL    string `json:"image"`
	IsMain bool   `json:"is_main,omitempty"`
}

// Product is a catalog entry. The client never changes it, except for
// IsFavorited which follows the user's favorites.
type Product struct {
	ID            int64           `json:"id"`
	CategoryID    int64           `json:"category,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         Money           `json:"price"`
	OriginalPrice *Money          `json:"original_price"`
	Stock         int             `json:"stock"`
	IsHotSale     bool            `json:"is_hot_sale"`
	Rating        decimal.Decimal `json:"rating"`
	Reviews       int             `json:"reviews"`
	Color         string          `json:"color,omitempty"`
	Size          string          `json:"size,omitempty"`
	Material      string          `json:"material,omitempty"`
	Weight        string          `json:"weight,omitempty"`
	Length        string          `json:"length,omitempty"`
	Compatibility string          `json:"compatibility,omitempty"`
	IsActive      bool            `json:"is_active"`
	Images        []Image         `json:"images"`
	MainImage     *Image          `json:"main_image"`
	IsFavorited   bool            `json:"is_favorited,omitempty"`
	CreatedAt     Time            `json:"created_at"`
}

// DiscountPercentage returns round((original-price)/original*100) when the
// product is sold below its original price.
func (p *Product) DiscountPercentage() (int, bool) {
	if p.OriginalPrice == nil || !p.OriginalPrice.GreaterThan(p.Price) {
		return 0, false
	}
	orig := p.OriginalPrice.Decimal()
	pct := orig.Sub(p.Price.Decimal()).Div(orig).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart()), true
}

// InStock reports whether qty units can be ordered.
func (p *Product) InStock(qty int) bool {
	return qty <= p.Stock
}

// Snapshot returns the denormalized copy stored on cart lines.
func (p *Product) Snapshot() ProductSnapshot {
	s := ProductSnapshot{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Stock:        p.Stock,
		CategoryName: p.CategoryName,
	}
	if p.MainImage != nil {
		img := *p.MainImage
		s.MainImage = &img
	}
	return s
}

// Clone returns a deep copy of p.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	if p.OriginalPrice != nil {
		orig := *p.OriginalPrice
		c.OriginalPrice = &orig
	}
	if p.MainImage != nil {
		img := *p.MainImage
		c.MainImage = &img
	}
	c.Images = slices.Clone(p.Images)
	return &c
}

// CloneProducts deep-copies a product list.
func CloneProducts(in []Product) []Product {
	if in == nil {
		return nil
	}
	out := make([]Product, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}

// Product list orderings understood by the API.
const (
	OrderingPriceAsc  = "price"
	OrderingPriceDesc = "-price"
	OrderingRating    = "-rating"
	OrderingNewest    = "-created_at"
)

var orderings = []string{OrderingPriceAsc, OrderingPriceDesc, OrderingRating, OrderingNewest}

// ProductFilter narrows a product listing. Fields are forwarded verbatim.
type ProductFilter struct {
	Category string `json:"category__name,omitempty"`
	Search   string `json:"search,omitempty"`
	Ordering string `json:"ordering,omitempty"`
}

// Validate rejects orderings the API does not support.
func (f ProductFilter) Validate() error {
	if f.Ordering != "" && !slices.Contains(orderings, f.Ordering) {
		return apperrors.Validation("invalid ordering", map[string]string{
			"ordering": "must be one of price, -price, -rating, -created_at",
		})
	}
	return nil
}

// Query encodes the filter as API query parameters.
func (f ProductFilter) Query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category__name", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Ordering != "" {
		q.Set("ordering", f.Ordering)
	}
	return q
}

// ProductFilterFromQuery is the inverse of Query.
func ProductFilterFromQuery(q url.Values) ProductFilter {
	return ProductFilter{
		Category: q.Get("category__name"),
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
	}
}

// Match reports whether p passes the category and search parts of f. Search
// is a case-insensitive substring match on name and description.
func (f ProductFilter) Match(p *Product) bool {
	if f.Category != "" && p.CategoryName != f.Category {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}

// Apply filters and orders a copy of list the way the products endpoint
// does. Ties keep their original order.
func (f ProductFilter) Apply(list []Product) []Product {
	out := make([]Product, 0, len(list))
	for i := range list {
		if f.Match(&list[i]) {
			out = append(out, *list[i].Clone())
		}
	}

	var less func(a, b Product) int
	switch f.Ordering {
	case OrderingPriceAsc:
		less = func(a, b Product) int { return a.Price.Decimal().Cmp(b.Price.Decimal()) }
	case OrderingPriceDesc:
		less = func(a, b Product) int { return b.Price.Decimal().Cmp(a.Price.Decimal()) }
	case OrderingRating:
		less = func(a, b Product) int { return b.Rating.Cmp(a.Rating) }
	case OrderingNewest:
		less = func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt.Time) }
	default:
		less = func(a, b Product) int { return cmp.Compare(a.ID, b.ID) }
	}
	slices.SortStableFunc(out, less)
	return out
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	CategoryID    int64  `json:"category" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description,omitempty"`
	Price         Money  `json:"price"`
	OriginalPrice *Money `json:"original_price,omitempty"`
	Stock         int    `json:"stock" validate:"gte=0"`
	IsHotSale     bool   `json:"is_hot_sale"`
	IsActive      bool   `json:"is_active"`
}

// Validate checks the input, including the price which the validator tags
// cannot express.
func (in ProductInput) Validate() error {
	if err := validator.Check(in); err != nil {
		return err
	}
	if !in.Price.IsPositive() {
		return apperrors.Validation("price must be positive", map[string]string{"price": "must be greater than 0"})
	}
	return nil
}

// Apply copies the input onto p.
func (in ProductInput) Apply(p *Product) {
	p.CategoryID = in.CategoryID
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.OriginalPrice = nil
	if in.OriginalPrice != nil {
		orig := *in.OriginalPrice
		p.OriginalPrice = &orig
	}
	p.Stock = in.Stock
	p.IsHotSale = in.IsHotSale
	p.IsActive = in.IsActive
}
