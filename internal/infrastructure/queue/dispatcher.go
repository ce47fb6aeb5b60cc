package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/api/metrics"
	"github.com/minicrm/crm-api/internal/core/domain"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrQueueFull is returned by Publish when the target worker's buffer is full.
var ErrQueueFull = errors.New("event queue full")

// Sink delivers a single event to its final destination (the broker, or the
// log when no broker is configured).
type Sink interface {
	Send(ctx context.Context, event domain.Event) error
}

// Dispatcher routes domain events to a fixed set of workers using consistent
// hashing on the event key, so events about the same person leave in order.
// It implements ports.EventPublisher without blocking the request path.
type Dispatcher struct {
	workers []chan domain.Event
	sink    Sink
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink Sink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Event, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Event, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// after flushing whatever is already buffered.
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

// Publish hands the event to the worker responsible for its key. It never
// blocks; when the buffer is full the event is dropped and ErrQueueFull returned.
func (d *Dispatcher) Publish(_ context.Context, event domain.Event) error {
	idx := d.shardIndex(event.Key())
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "dropped").Inc()
		return ErrQueueFull
	}
}

// shardIndex maps an event key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Event) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.flush(id, ch)
			return
		case event := <-ch:
			metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, event)
		}
	}
}

// flush drains the buffer on shutdown with a context that is no longer cancelled.
func (d *Dispatcher) flush(id int, ch <-chan domain.Event) {
	ctx := context.Background()
	for {
		select {
		case event := <-ch:
			d.deliver(ctx, id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, event domain.Event) {
	if err := d.sink.Send(ctx, event); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		d.log.Error().Err(err).
			Str("type", string(event.Type)).
			Int("worker_id", id).
			Msg("event delivery failed")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "ok").Inc()
}

// LogSink writes events to the logger. It stands in for the broker when none is
// configured.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Send(_ context.Context, event domain.Event) error {
	s.Log.Info().
		Str("type", string(event.Type)).
		Str("email", event.Email).
		Str("user_id", event.UserID).
		Str("client_id", event.ClientID).
		Msg("domain event")
	return nil
}
