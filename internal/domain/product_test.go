package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func moneyPtr(s string) *Money {
	m := MustMoney(s)
	return &m
}

func TestProduct_DiscountPercentage(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		original *Money
		want     int
		ok       bool
	}{
		{"no original", "99.00", nil, 0, false},
		{"same price", "99.00", moneyPtr("99.00"), 0, false},
		{"higher price", "120.00", moneyPtr("99.00"), 0, false},
		{"rounds to nearest", "199.00", moneyPtr("299.00"), 33, true},
		{"half off", "50.00", moneyPtr("100.00"), 50, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &Product{Price: MustMoney(tc.price), OriginalPrice: tc.original}
			got, ok := p.DiscountPercentage()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProduct_CloneIsDeep(t *testing.T) {
	p := &Product{
		ID:            1,
		OriginalPrice: moneyPtr("10"),
		MainImage:     &Image{URL: "main"},
		Images:        []Image{{ID: 1, URL: "a"}},
	}
	c := p.Clone()
	c.Images[0].URL = "changed"
	c.MainImage.URL = "changed"
	*c.OriginalPrice = MustMoney("1")

	assert.Equal(t, "a", p.Images[0].URL)
	assert.Equal(t, "main", p.MainImage.URL)
	assert.Equal(t, "10.00", p.OriginalPrice.String())
}

func TestProduct_Snapshot(t *testing.T) {
	p := &Product{ID: 5, Name: "运动鞋", Price: MustMoney("599"), Stock: 80, CategoryName: "鞋类", MainImage: &Image{URL: "x"}}
	s := p.Snapshot()
	assert.Equal(t, int64(5), s.ID)
	assert.Equal(t, "599.00", s.Price.String())
	s.MainImage.URL = "y"
	assert.Equal(t, "x", p.MainImage.URL)
}

func TestProductFilter_Query(t *testing.T) {
	f := ProductFilter{Category: "男装", Search: "衬衫", Ordering: OrderingPriceDesc}
	q := f.Query()
	assert.Equal(t, "男装", q.Get("category__name"))
	assert.Equal(t, "衬衫", q.Get("search"))
	assert.Equal(t, "-price", q.Get("ordering"))
	assert.Equal(t, f, ProductFilterFromQuery(q))

	assert.Empty(t, ProductFilter{}.Query().Encode())
}

func TestProductFilter_Validate(t *testing.T) {
	assert.NoError(t, ProductFilter{Ordering: OrderingRating}.Validate())
	err := ProductFilter{Ordering: "name"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestProductInput_Validate(t *testing.T) {
	in := ProductInput{CategoryID: 1, Name: "格子衬衫", Price: MustMoney("189"), Stock: 70}
	assert.NoError(t, in.Validate())

	in.Price = Zero
	err := in.Validate()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "price")

	in = ProductInput{Price: MustMoney("1")}
	require.ErrorAs(t, in.Validate(), &appErr)
	assert.Contains(t, appErr.Fields, "category")
	assert.Contains(t, appErr.Fields, "name")
}

func filterFixture() []Product {
	return []Product{
		{ID: 1, Name: "经典白色T恤", CategoryName: "男装", Price: MustMoney("99"), Rating: MustMoney("4.8").Decimal()},
		{ID: 2, Name: "牛仔夹克", CategoryName: "男装", Price: MustMoney("299"), Rating: MustMoney("4.6").Decimal()},
		{ID: 3, Name: "黑色连衣裙", CategoryName: "女装", Price: MustMoney("399"), Rating: MustMoney("4.9").Decimal(), Description: "优雅"},
	}
}

func ids(list []Product) []int64 {
	out := make([]int64, len(list))
	for i, p := range list {
		out[i] = p.ID
	}
	return out
}

func TestProductFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter ProductFilter
		want   []int64
	}{
		{"no filter", ProductFilter{}, []int64{1, 2, 3}},
		{"category", ProductFilter{Category: "男装"}, []int64{1, 2}},
		{"search description", ProductFilter{Search: "优雅"}, []int64{3}},
		{"price asc", ProductFilter{Ordering: OrderingPriceAsc}, []int64{1, 2, 3}},
		{"price desc", ProductFilter{Ordering: OrderingPriceDesc}, []int64{3, 2, 1}},
		{"rating", ProductFilter{Ordering: OrderingRating}, []int64{3, 1, 2}},
		{"category and price desc", ProductFilter{Category: "男装", Ordering: OrderingPriceDesc}, []int64{2, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(tc.filter.Apply(filterFixture())))
		})
	}
}
