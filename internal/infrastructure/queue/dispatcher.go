package queue

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/pkg/metrics"
	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	defaultTimeout = 5 * time.Second
)

// DeliveryGuard claims the single notification slot for a parcel, so a
// retried collection cannot page an admin twice. Backed by Redis.
type DeliveryGuard interface {
	FirstDelivery(ctx context.Context, parcelID string) (bool, error)
}

// Dispatcher delivers admin collection notifications to the external
// notifier on a fixed set of workers, sharded by parcel id so repeated
// events for one parcel stay ordered. Enqueueing never blocks the
// collection commit beyond the channel buffer.
type Dispatcher struct {
	workers  []chan domain.AdminNotification
	notifier ports.AdminNotifier
	guard    DeliveryGuard
	timeout  time.Duration
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers. If
// numWorkers <= 0, defaultWorkers is used; timeout bounds each notifier
// call.
func NewDispatcher(numWorkers int, notifier ports.AdminNotifier, guard DeliveryGuard, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	d := &Dispatcher{
		workers:  make([]chan domain.AdminNotification, numWorkers),
		notifier: notifier,
		guard:    guard,
		timeout:  timeout,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AdminNotification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a notification to the worker responsible for its parcel.
func (d *Dispatcher) Enqueue(n domain.AdminNotification) {
	d.workers[d.shardIndex(n.ParcelID)] <- n
}

// shardIndex maps a parcel id deterministically to a worker index.
func (d *Dispatcher) shardIndex(parcelID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(parcelID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AdminNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, id, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, n domain.AdminNotification) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if d.guard != nil {
		first, err := d.guard.FirstDelivery(callCtx, n.ParcelID)
		if err != nil {
			d.log.Warn().Err(err).Str("parcel_id", n.ParcelID).Msg("notification dedup check failed, delivering anyway")
		} else if !first {
			metrics.NotificationsTotal.WithLabelValues("deduplicated").Inc()
			d.log.Debug().Str("parcel_id", n.ParcelID).Msg("duplicate admin notification skipped")
			return
		}
	}

	if err := d.notifier.NotifyCollection(callCtx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("parcel_id", n.ParcelID).
			Int("worker_id", workerID).
			Msg("admin notification delivery failed")
		return
	}

	metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
	d.log.Info().
		Str("parcel_id", n.ParcelID).
		Str("payment_status", string(n.PaymentStatus)).
		Msg("admin notified of collection")
}
