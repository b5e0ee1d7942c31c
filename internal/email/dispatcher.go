package email

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/metrics"
)

var (
	ErrQueueFull        = errors.New("email queue is full")
	ErrDispatcherClosed = errors.New("email dispatcher is closed")
)

const sendTimeout = 15 * time.Second

type message struct {
	// ctx is detached from the request so the send outlives the response,
	// but keeps its values (request id) for logging.
	ctx     context.Context
	to      string
	subject string
	body    string
}

// Dispatcher is an asynchronous Sender: Send only enqueues, a fixed pool of
// workers delivers through the wrapped Sender and logs failures.
type Dispatcher struct {
	sender  Sender
	queue   chan message
	workers int
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan message, queueSize),
		workers: workers,
		logger:  logger.With("component", "email_dispatcher"),
	}
}

// Start launches the workers. They run until Close drains the queue.
func (d *Dispatcher) Start() {
	d.logger.Info("email dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for msg := range d.queue {
				metrics.EmailQueueDepth.Dec()
				d.deliver(msg)
			}
		}()
	}
}

// Send enqueues the email without waiting for delivery.
func (d *Dispatcher) Send(ctx context.Context, to, subject, body string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	msg := message{ctx: context.WithoutCancel(ctx), to: to, subject: subject, body: body}
	select {
	case d.queue <- msg:
		metrics.EmailQueueDepth.Inc()
		return nil
	default:
		metrics.EmailsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Close stops accepting emails and waits until queued ones are delivered
// or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("email dispatcher drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(msg message) {
	ctx, cancel := context.WithTimeout(msg.ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.sender.Send(ctx, msg.to, msg.subject, msg.body)
	metrics.EmailSendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		d.logger.ErrorContext(ctx, "email delivery failed", "to", msg.to, "subject", msg.subject, "error", err)
		return
	}
	metrics.EmailsTotal.WithLabelValues("sent").Inc()
	d.logger.InfoContext(ctx, "email sent", "to", msg.to, "subject", msg.subject)
}
