package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/api/metrics"
	"github.com/northwind/backoffice/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	deliverTimeout = 10 * time.Second
)

// ErrStopped is returned by Send once the dispatcher has begun shutting down.
var ErrStopped = errors.New("mail dispatcher stopped")

type message struct {
	to, subject, body string
}

// MailDispatcher moves email delivery off the request path. Messages are
// routed to a fixed set of workers by hashing the recipient, so mail for one
// address is delivered in the order it was sent. Messages accepted before
// shutdown are still delivered.
type MailDispatcher struct {
	workers []chan message
	sender  ports.EmailSender
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ ports.EmailSender = (*MailDispatcher)(nil)

// NewMailDispatcher creates a MailDispatcher with numWorkers sharded workers
// that deliver through sender. If numWorkers <= 0, defaultWorkers is used.
func NewMailDispatcher(numWorkers int, sender ports.EmailSender, log zerolog.Logger) *MailDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &MailDispatcher{
		workers: make([]chan message, numWorkers),
		sender:  sender,
		log:     log,
		done:    make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled the dispatcher
// stops accepting mail and workers exit once their queues are drained.
func (d *MailDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		d.mu.Lock()
		d.stopped = true
		close(d.done)
		for _, ch := range d.workers {
			close(ch)
		}
		d.mu.Unlock()
	}()
}

// Wait blocks until every worker has drained its queue or ctx expires.
func (d *MailDispatcher) Wait(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send enqueues a message for the worker owning its recipient. It blocks only
// while that worker's buffer is full.
func (d *MailDispatcher) Send(ctx context.Context, to, subject, body string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	idx := d.shardIndex(to)
	depth := metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx))
	depth.Inc()
	select {
	case d.workers[idx] <- message{to: to, subject: subject, body: body}:
		return nil
	case <-ctx.Done():
		depth.Dec()
		return ctx.Err()
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *MailDispatcher) shardIndex(to string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(to))
	return int(h.Sum32() % uint32(len(d.workers)))
}

// runWorker delivers until its channel is closed. Deliveries use a context
// detached from ctx so queued mail survives shutdown.
func (d *MailDispatcher) runWorker(ctx context.Context, id int, ch <-chan message) {
	defer d.wg.Done()
	depth := metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id))
	base := context.WithoutCancel(ctx)
	for m := range ch {
		depth.Dec()
		sendCtx, cancel := context.WithTimeout(base, deliverTimeout)
		err := d.sender.Send(sendCtx, m.to, m.subject, m.body)
		cancel()
		if err != nil {
			metrics.MailDeliveriesTotal.WithLabelValues("failed").Inc()
			d.log.Error().Err(err).
				Str("to", m.to).
				Int("worker_id", id).
				Msg("email delivery failed")
			continue
		}
		metrics.MailDeliveriesTotal.WithLabelValues("sent").Inc()
	}
}
