package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type recordingSink struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (s *recordingSink) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, published{topic: topic, event: event})
	return nil
}

func (s *recordingSink) all() []published {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]published(nil), s.sent...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleCart() domain.Cart {
	return domain.Cart{Items: []domain.LineItem{
		{
			ProductRef: "p-1",
			Product:    domain.ProductSnapshot{ID: "p-1", Name: "Mug"},
			Quantity:   2,
			UnitPrice:  decimal.RequireFromString("12.5"),
		},
	}}
}

func TestProducer_PublishCartUpdated(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(sink, discardLogger())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, p.PublishCartUpdated(ctx, "u-1", sampleCart()))

	sent := sink.all()
	require.Len(t, sent, 1)
	assert.Equal(t, TopicCartUpdated, sent[0].topic)

	ev := sent[0].event
	assert.Equal(t, TopicCartUpdated, ev.EventType)
	assert.Equal(t, "u-1", ev.AggregateID)
	assert.Equal(t, AggregateTypeCart, ev.AggregateType)
	assert.Equal(t, SourceStorefront, ev.Source)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "u-1", ev.Metadata["user_id"])

	var data CartUpdatedData
	require.NoError(t, ev.UnmarshalData(&data))
	assert.Equal(t, 2, data.ItemCount)
	assert.True(t, decimal.NewFromInt(25).Equal(data.TotalAmount))
	require.Len(t, data.Items, 1)
	assert.Equal(t, "p-1", data.Items[0].ProductID)
}

func TestProducer_AnonymousCart(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(sink, discardLogger())

	require.NoError(t, p.PublishCartUpdated(context.Background(), "", domain.Cart{}))

	ev := sink.all()[0].event
	assert.Equal(t, "anonymous", ev.AggregateID)
	assert.Empty(t, ev.Metadata)
}

func TestProducer_OrderEvents(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(sink, discardLogger())
	ctx := context.Background()

	order := &domain.Order{
		ID:          "o-1",
		User:        domain.OrderUser{ID: "u-1"},
		Items:       []domain.OrderItem{{Quantity: 3}},
		TotalAmount: decimal.NewFromInt(30),
		Status:      domain.StatusPending,
	}
	require.NoError(t, p.PublishOrderPlaced(ctx, order))
	require.NoError(t, p.PublishOrderCanceled(ctx, "u-1", "o-1"))
	require.NoError(t, p.PublishOrderDeleted(ctx, "u-1", "o-1"))

	sent := sink.all()
	require.Len(t, sent, 3)
	assert.Equal(t, TopicOrderPlaced, sent[0].topic)
	assert.Equal(t, TopicOrderCanceled, sent[1].topic)
	assert.Equal(t, TopicOrderDeleted, sent[2].topic)
	for _, s := range sent {
		assert.Equal(t, "o-1", s.event.AggregateID)
		assert.Equal(t, AggregateTypeOrder, s.event.AggregateType)
	}

	var placed OrderPlacedData
	require.NoError(t, sent[0].event.UnmarshalData(&placed))
	assert.Equal(t, 3, placed.ItemCount)
	assert.Equal(t, domain.StatusPending, placed.Status)
}

func TestProducer_SinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	p := NewProducer(sink, discardLogger())

	err := p.PublishOrderDeleted(context.Background(), "u-1", "o-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), TopicOrderDeleted)
}

func TestProducer_OverKafkaProducer(t *testing.T) {
	// The pkg/kafka producer satisfies EventSink.
	var _ EventSink = (*pkgkafka.Producer)(nil)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	ctx := context.Background()
	assert.NoError(t, p.PublishCartUpdated(ctx, "u-1", sampleCart()))
	assert.NoError(t, p.PublishOrderPlaced(ctx, &domain.Order{}))
	assert.NoError(t, p.PublishOrderCanceled(ctx, "u-1", "o-1"))
	assert.NoError(t, p.PublishOrderDeleted(ctx, "u-1", "o-1"))
}

// --- relay ---

type staticCart struct {
	mu   sync.Mutex
	cart domain.Cart
}

func (s *staticCart) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

func (s *staticCart) set(c domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = c
}

func TestCartRelay_PublishesSnapshots(t *testing.T) {
	sink := &recordingSink{}
	cart := &staticCart{}
	relay := NewCartRelay(cart, NewProducer(sink, discardLogger()), func() string { return "u-1" }, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go relay.Run(ctx)

	cart.set(sampleCart())
	relay.Notify()

	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-relay.Done()

	var data CartUpdatedData
	require.NoError(t, sink.all()[0].event.UnmarshalData(&data))
	assert.Equal(t, 2, data.ItemCount)
	assert.Equal(t, "u-1", data.UserID)
}

func TestCartRelay_DrainsOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	relay := NewCartRelay(&staticCart{}, NewProducer(sink, discardLogger()), func() string { return "" }, discardLogger())

	relay.Notify()
	relay.Notify()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay.Run(ctx)

	assert.Len(t, sink.all(), 2)
}

func TestCartRelay_FullQueueKeepsNewest(t *testing.T) {
	sink := &recordingSink{}
	cart := &staticCart{}
	relay := NewCartRelay(cart, NewProducer(sink, discardLogger()), func() string { return "" }, discardLogger())

	for i := 0; i < cap(relay.queue)+5; i++ {
		relay.Notify()
	}
	cart.set(sampleCart())
	relay.Notify()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay.Run(ctx)

	sent := sink.all()
	require.Len(t, sent, cap(relay.queue))
	var last CartUpdatedData
	require.NoError(t, sent[len(sent)-1].event.UnmarshalData(&last))
	assert.Equal(t, 2, last.ItemCount)
}

func TestCartRelay_PublishErrorIsLoggedNotFatal(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	relay := NewCartRelay(&staticCart{}, NewProducer(sink, discardLogger()), func() string { return "" }, discardLogger())

	relay.Notify()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() { relay.Run(ctx) })
}
