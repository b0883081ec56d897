package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/corepass/hallpass/internal/api/metrics"
	"github.com/corepass/hallpass/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 5 * time.Second
)

// Dispatcher routes pass notifications to a fixed set of workers using
// consistent hashing on the author, so one student's notifications reach the
// broker in the order they happened.
type Dispatcher struct {
	workers   []chan ports.PassEvent
	publisher ports.EventPublisher
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher ports.EventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan ports.PassEvent, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.PassEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify hands the event to the worker responsible for its author. It never
// blocks: when that worker's channel is full the event is dropped.
func (d *Dispatcher) Notify(event ports.PassEvent) {
	idx := d.shardIndex(event.Author)
	select {
	case d.workers[idx] <- event:
		metrics.NotifyQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.NotificationsDroppedTotal.Inc()
		d.log.Warn().
			Str("kind", string(event.Kind)).
			Str("pass_id", event.PassID).
			Int("worker_id", idx).
			Msg("notification queue full, dropping event")
	}
}

// shardIndex maps an author deterministically to a worker index.
func (d *Dispatcher) shardIndex(author string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(author))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.PassEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.NotifyQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.publish(ctx, id, event)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, worker int, event ports.PassEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	err := d.publisher.Publish(ctx, event)
	metrics.NotificationPublishDuration.WithLabelValues(string(event.Kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.NotificationsPublishedTotal.WithLabelValues(string(event.Kind), "error").Inc()
		d.log.Error().Err(err).
			Str("kind", string(event.Kind)).
			Str("pass_id", event.PassID).
			Int("worker_id", worker).
			Msg("notification publish failed")
		return
	}
	metrics.NotificationsPublishedTotal.WithLabelValues(string(event.Kind), "ok").Inc()
}
