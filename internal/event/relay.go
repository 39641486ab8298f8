package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/logger"
)

// DefaultPublishTimeout bounds a single relayed publish.
const DefaultPublishTimeout = 5 * time.Second

// FavoriteSource is implemented by state.Favorites.
type FavoriteSource interface {
	Subscribe(fn func(domain.FavoriteChange)) func()
}

// OrderSource is implemented by state.Orders.
type OrderSource interface {
	Subscribe(fn func(domain.OrderStatusChange)) func()
}

// Relay forwards container change notifications to a Producer. Publishing
// happens on the notifying goroutine; failures are logged and never reach
// the container.
type Relay struct {
	producer *Producer
	logger   *slog.Logger
	timeout  time.Duration
	userID   func() string
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithTimeout overrides DefaultPublishTimeout.
func WithTimeout(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithUser tags every event with the id returned by fn, typically the
// signed-in user.
func WithUser(fn func() string) RelayOption {
	return func(r *Relay) { r.userID = fn }
}

// NewRelay creates a relay publishing through p.
func NewRelay(p *Producer, logger *slog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		producer: p,
		logger:   logger,
		timeout:  DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Watch subscribes to both sources. Either may be nil. The returned func
// unsubscribes from all of them.
func (r *Relay) Watch(favorites FavoriteSource, orders OrderSource) func() {
	var stops []func()
	if favorites != nil {
		stops = append(stops, favorites.Subscribe(r.FavoriteChanged))
	}
	if orders != nil {
		stops = append(stops, orders.Subscribe(r.OrderStatusChanged))
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// FavoriteChanged publishes one favorite flip.
func (r *Relay) FavoriteChanged(change domain.FavoriteChange) {
	ctx, cancel := r.context()
	defer cancel()
	if err := r.producer.PublishFavoriteChanged(ctx, change); err != nil {
		r.logger.WarnContext(ctx, "failed to relay favorite change",
			slog.Int64("product_id", change.ProductID),
			slog.String("error", err.Error()),
		)
	}
}

// OrderStatusChanged publishes one order status change.
func (r *Relay) OrderStatusChanged(change domain.OrderStatusChange) {
	ctx, cancel := r.context()
	defer cancel()
	if err := r.producer.PublishOrderStatusChanged(ctx, change); err != nil {
		r.logger.WarnContext(ctx, "failed to relay order status change",
			slog.Int64("order_id", change.OrderID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Relay) context() (context.Context, context.CancelFunc) {
	ctx := logger.WithCorrelationID(context.Background(), uuid.NewString())
	if r.userID != nil {
		if id := r.userID(); id != "" {
			ctx = logger.WithUserID(ctx, id)
		}
	}
	return context.WithTimeout(ctx, r.timeout)
}
