// Package event relays storefront activity (favorite flips and order status
// changes) to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront activity events.
var (
	TopicFavoriteChanged    = pkgkafka.Topic("favorite", "changed")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeOrder   = "order"
)

// SourceStorefront identifies events raised by the storefront client.
const SourceStorefront = "storefront-client"

// FavoriteChangedData is the payload for a favorite.changed event.
type FavoriteChangedData struct {
	ProductID   int64  `json:"product_id"`
	IsFavorited bool   `json:"is_favorited"`
	UserID      string `json:"user_id,omitempty"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID int64  `json:"order_id"`
	OrderNo string `json:"order_no"`
	From    string `json:"from"`
	To      string `json:"to"`
	UserID  string `json:"user_id,omitempty"`
}

// Publisher is the part of pkgkafka.Producer the event producer uses.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront activity events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishFavoriteChanged publishes a favorite.changed event.
func (p *Producer) PublishFavoriteChanged(ctx context.Context, change domain.FavoriteChange) error {
	data := FavoriteChangedData{
		ProductID:   change.ProductID,
		IsFavorited: change.IsFavorited,
		UserID:      logger.UserIDFromContext(ctx),
	}
	aggregateID := strconv.FormatInt(change.ProductID, 10)

	event, err := pkgkafka.NewEvent(TopicFavoriteChanged, aggregateID, AggregateTypeProduct, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create favorite.changed event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicFavoriteChanged, event); err != nil {
		return fmt.Errorf("publish favorite.changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published favorite.changed event",
		slog.Int64("product_id", change.ProductID),
		slog.Bool("is_favorited", change.IsFavorited),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, change domain.OrderStatusChange) error {
	data := OrderStatusChangedData{
		OrderID: change.OrderID,
		OrderNo: change.OrderNo,
		From:    string(change.From),
		To:      string(change.To),
		UserID:  logger.UserIDFromContext(ctx),
	}
	aggregateID := strconv.FormatInt(change.OrderID, 10)

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, aggregateID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.Int64("order_id", change.OrderID),
		slog.String("from", string(change.From)),
		slog.String("to", string(change.To)),
	)

	return nil
}
