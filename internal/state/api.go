package state

import (
	"context"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
)

// SessionAPI is the part of the API the session uses.
type SessionAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.TokenPair, error)
	Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error)
	VerifyRegister(ctx context.Context, in domain.EmailCode) (*domain.EmailLoginResult, error)
	SendEmailCode(ctx context.Context, email string) (string, error)
	EmailLogin(ctx context.Context, in domain.EmailCode) (*domain.EmailLoginResult, error)
	SendResetCode(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, in domain.PasswordReset) error
	Me(ctx context.Context) (*domain.User, error)
	UpdateMe(ctx context.Context, in domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, in domain.PasswordChange) error
}

// CatalogAPI is the part of the API the catalog uses.
type CatalogAPI interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Products(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
	AdminProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// CartAPI is the part of the API the cart uses.
type CartAPI interface {
	Cart(ctx context.Context) (*domain.Cart, error)
	AddCartItem(ctx context.Context, line domain.CartLine) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

// OrderAPI is the part of the API the order container uses.
type OrderAPI interface {
	Orders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	Order(ctx context.Context, id int64) (*domain.Order, error)
	CreateOrder(ctx context.Context, in domain.CreateOrderInput) (*domain.Order, error)
	PayOrder(ctx context.Context, id int64) error
	CancelOrder(ctx context.Context, id int64) error
	ConfirmOrder(ctx context.Context, id int64) error
	AdminOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	ShipOrder(ctx context.Context, id int64, in domain.ShipInput) error
}

// AddressAPI is the part of the API the address book uses.
type AddressAPI interface {
	Addresses(ctx context.Context) ([]domain.Address, error)
	CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error)
	UpdateAddress(ctx context.Context, id int64, in domain.AddressInput) (*domain.Address, error)
	DeleteAddress(ctx context.Context, id int64) error
}

// FavoriteAPI is the part of the API the favorites container uses.
type FavoriteAPI interface {
	Favorites(ctx context.Context) ([]domain.Favorite, error)
	ToggleFavorite(ctx context.Context, productID int64) (domain.ToggleResult, error)
	RemoveFavorite(ctx context.Context, productID int64) error
}

var (
	_ SessionAPI  = (*api.Client)(nil)
	_ CatalogAPI  = (*api.Client)(nil)
	_ CartAPI     = (*api.Client)(nil)
	_ OrderAPI    = (*api.Client)(nil)
	_ AddressAPI  = (*api.Client)(nil)
	_ FavoriteAPI = (*api.Client)(nil)
)

var _ api.TokenSource = (*Session)(nil)
