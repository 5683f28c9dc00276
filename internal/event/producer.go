package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topic constants for storefront events.
const (
	TopicCartUpdated   = "storefront.cart.updated"
	TopicOrderPlaced   = "storefront.order.placed"
	TopicOrderCanceled = "storefront.order.canceled"
	TopicOrderDeleted  = "storefront.order.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceStorefront identifies events published by this process.
const SourceStorefront = "storefront"

// Publisher publishes storefront domain events.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, userID string, cart domain.Cart) error
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
	PublishOrderCanceled(ctx context.Context, userID, orderID string) error
	PublishOrderDeleted(ctx context.Context, userID, orderID string) error
}

// EventSink is the transport the producer writes to. *pkgkafka.Producer
// satisfies it.
type EventSink interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID      string          `json:"user_id"`
	Items       []CartItemData  `json:"items"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

// OrderChangedData is the payload for order.canceled and order.deleted events.
type OrderChangedData struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	sink   EventSink
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(sink EventSink, logger *slog.Logger) *Producer {
	return &Producer{
		sink:   sink,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, userID string, cart domain.Cart) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ProductID: item.ProductRef,
			Name:      item.Product.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	data := CartUpdatedData{
		UserID:      userID,
		Items:       items,
		ItemCount:   cart.ItemCount(),
		TotalAmount: cart.TotalAmount(),
	}

	// An anonymous cart is still one aggregate per process.
	aggregateID := userID
	if aggregateID == "" {
		aggregateID = "anonymous"
	}
	return p.publish(ctx, TopicCartUpdated, aggregateID, AggregateTypeCart, userID, data)
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	summary := order.Summary()
	data := OrderPlacedData{
		OrderID:     order.ID,
		UserID:      order.User.ID,
		ItemCount:   summary.ItemCount,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
	}
	return p.publish(ctx, TopicOrderPlaced, order.ID, AggregateTypeOrder, order.User.ID, data)
}

// PublishOrderCanceled publishes an order.canceled event.
func (p *Producer) PublishOrderCanceled(ctx context.Context, userID, orderID string) error {
	data := OrderChangedData{OrderID: orderID, UserID: userID}
	return p.publish(ctx, TopicOrderCanceled, orderID, AggregateTypeOrder, userID, data)
}

// PublishOrderDeleted publishes an order.deleted event.
func (p *Producer) PublishOrderDeleted(ctx context.Context, userID, orderID string) error {
	data := OrderChangedData{OrderID: orderID, UserID: userID}
	return p.publish(ctx, TopicOrderDeleted, orderID, AggregateTypeOrder, userID, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType, userID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithMetadata("user_id", userID)

	if err := p.sink.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// NopPublisher discards every event. It is used when no brokers are
// configured.
type NopPublisher struct{}

func (NopPublisher) PublishCartUpdated(context.Context, string, domain.Cart) error { return nil }
func (NopPublisher) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }
func (NopPublisher) PublishOrderCanceled(context.Context, string, string) error { return nil }
func (NopPublisher) PublishOrderDeleted(context.Context, string, string) error { return nil }
