package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// CartSource is the read side of the cart aggregate.
type CartSource interface {
	Snapshot() domain.Cart
}

// CartRelay publishes a cart.updated event for every cart change. It is
// registered as a cart observer; Notify only takes a snapshot and queues it,
// so a slow broker never holds up a cart mutation. When the queue is full the
// oldest pending snapshot is dropped, since a newer one supersedes it.
type CartRelay struct {
	cart      CartSource
	publisher Publisher
	userID    func() string
	logger    *slog.Logger
	timeout   time.Duration

	queue chan domain.Cart
	done  chan struct{}
	once  sync.Once
}

// NewCartRelay creates a relay. userID returns the visitor the cart belongs
// to, or "" when nobody is signed in.
func NewCartRelay(cart CartSource, publisher Publisher, userID func() string, logger *slog.Logger) *CartRelay {
	return &CartRelay{
		cart:      cart,
		publisher: publisher,
		userID:    userID,
		logger:    logger,
		timeout:   5 * time.Second,
		queue:     make(chan domain.Cart, 16),
		done:      make(chan struct{}),
	}
}

// Notify is the cart observer callback.
func (r *CartRelay) Notify() {
	snap := r.cart.Snapshot()
	for {
		select {
		case r.queue <- snap:
			return
		default:
		}
		select {
		case <-r.queue:
		default:
		}
	}
}

// Run publishes queued snapshots until ctx is cancelled, then drains what is
// left.
func (r *CartRelay) Run(ctx context.Context) {
	defer r.once.Do(func() { close(r.done) })
	for {
		select {
		case snap := <-r.queue:
			r.publish(ctx, snap)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

// Done is closed when Run returns.
func (r *CartRelay) Done() <-chan struct{} {
	return r.done
}

func (r *CartRelay) drain() {
	for {
		select {
		case snap := <-r.queue:
			r.publish(context.Background(), snap)
		default:
			return
		}
	}
}

func (r *CartRelay) publish(ctx context.Context, snap domain.Cart) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.publisher.PublishCartUpdated(ctx, r.userID(), snap); err != nil {
		r.logger.WarnContext(ctx, "failed to publish cart.updated event",
			slog.String("error", err.Error()),
			slog.Int("item_count", snap.ItemCount()),
		)
	}
}
