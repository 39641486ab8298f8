package state

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mockOpts() Options {
	return Options{Mode: config.ModeMock, Logger: testLogger(), Now: func() time.Time { return testNow }}
}

func liveOpts() Options {
	return Options{Mode: config.ModeLive, Logger: testLogger(), Now: func() time.Time { return testNow }}
}

// --- Mock API ---

// mockAPI implements every container API with testify/mock.
type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Login(ctx context.Context, creds domain.Credentials) (domain.TokenPair, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.TokenPair), args.Error(1)
}

func (m *mockAPI) Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAPI) VerifyRegister(ctx context.Context, in domain.EmailCode) (*domain.EmailLoginResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmailLoginResult), args.Error(1)
}

func (m *mockAPI) SendEmailCode(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockAPI) EmailLogin(ctx context.Context, in domain.EmailCode) (*domain.EmailLoginResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmailLoginResult), args.Error(1)
}

func (m *mockAPI) SendResetCode(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockAPI) ResetPassword(ctx context.Context, in domain.PasswordReset) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockAPI) Me(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAPI) UpdateMe(ctx context.Context, in domain.ProfileUpdate) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAPI) ChangePassword(ctx context.Context, in domain.PasswordChange) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockAPI) Categories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockAPI) Products(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockAPI) Product(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockAPI) AdminProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockAPI) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockAPI) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockAPI) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) Cart(ctx context.Context) (*domain.Cart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockAPI) AddCartItem(ctx context.Context, line domain.CartLine) error {
	return m.Called(ctx, line).Error(0)
}

func (m *mockAPI) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	return m.Called(ctx, itemID, quantity).Error(0)
}

func (m *mockAPI) RemoveCartItem(ctx context.Context, itemID int64) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *mockAPI) ClearCart(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockAPI) Orders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockAPI) Order(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockAPI) CreateOrder(ctx context.Context, in domain.CreateOrderInput) (*domain.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockAPI) PayOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) CancelOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) ConfirmOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) AdminOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockAPI) ShipOrder(ctx context.Context, id int64, in domain.ShipInput) error {
	return m.Called(ctx, id, in).Error(0)
}

func (m *mockAPI) Addresses(ctx context.Context) ([]domain.Address, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockAPI) CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *mockAPI) UpdateAddress(ctx context.Context, id int64, in domain.AddressInput) (*domain.Address, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *mockAPI) DeleteAddress(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) Favorites(ctx context.Context) ([]domain.Favorite, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Favorite), args.Error(1)
}

func (m *mockAPI) ToggleFavorite(ctx context.Context, productID int64) (domain.ToggleResult, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.ToggleResult), args.Error(1)
}

func (m *mockAPI) RemoveFavorite(ctx context.Context, productID int64) error {
	return m.Called(ctx, productID).Error(0)
}

// newMockAPI returns a mock that fails the test on unexpected calls.
func newMockAPI(t *testing.T) *mockAPI {
	m := &mockAPI{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
