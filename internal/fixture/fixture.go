// Package fixture holds the canned data used in mock mode and served by the
// mock API. Every accessor returns a fresh copy, so callers may mutate it.
package fixture

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
)

//go:embed data/*.json
var files embed.FS

// Canned credentials handed out by mock-mode login.
const (
	AccessToken  = "mock-access-token"
	RefreshToken = "mock-refresh-token"
)

// PlaceholderOrderID is the id mock mode reports for a newly created order.
const PlaceholderOrderID int64 = 999

// Set is a complete, independent copy of the fixture data.
type Set struct {
	User       *domain.User
	Categories []domain.Category
	Products   []domain.Product
	Cart       *domain.Cart
	Orders     []domain.Order
	Addresses  []domain.Address
}

// Load decodes a fresh copy of every fixture file.
func Load() (*Set, error) {
	s := &Set{User: &domain.User{}, Cart: &domain.Cart{}}
	for name, dst := range map[string]any{
		"user.json":       s.User,
		"categories.json": &s.Categories,
		"products.json":   &s.Products,
		"cart.json":       s.Cart,
		"orders.json":     &s.Orders,
		"addresses.json":  &s.Addresses,
	} {
		if err := decode(name, dst); err != nil {
			return nil, err
		}
	}
	for i := range s.Orders {
		s.Orders[i].StatusDisplay = s.Orders[i].Status.Display()
	}
	return s, nil
}

// MustLoad is Load for callers that treat a broken fixture as a bug.
func MustLoad() *Set {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

func decode(name string, dst any) error {
	data, err := files.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return nil
}

// Tokens returns the canned token pair.
func Tokens() domain.TokenPair {
	return domain.TokenPair{Access: AccessToken, Refresh: RefreshToken}
}

// User returns the canned signed-in user.
func User() *domain.User { return MustLoad().User }

// Categories returns the fixture categories.
func Categories() []domain.Category { return MustLoad().Categories }

// Products returns the fixture catalog.
func Products() []domain.Product { return MustLoad().Products }

// Cart returns the fixture cart.
func Cart() *domain.Cart { return MustLoad().Cart }

// Orders returns the fixture orders.
func Orders() []domain.Order { return MustLoad().Orders }

// Addresses returns the fixture addresses.
func Addresses() []domain.Address { return MustLoad().Addresses }

// Product looks up a fixture product by id.
func Product(id int64) (*domain.Product, bool) {
	for _, p := range Products() {
		if p.ID == id {
			return &p, true
		}
	}
	return nil, false
}
