package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type DispatcherOptions struct {
	Buffer      int
	Workers     int
	MaxAttempts int
	Backoff     time.Duration // first retry delay, doubled after each failure
	SendTimeout time.Duration
}

// Dispatcher queues messages in memory and delivers them through a Sender
// with bounded retries. When the queue is full the message is dropped.
type Dispatcher struct {
	sender Sender
	logger *logrus.Logger
	opts   DispatcherOptions

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup
	stop   chan struct{}
	halt   sync.Once
}

func NewDispatcher(sender Sender, logger *logrus.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 5 * time.Second
	}
	return &Dispatcher{
		sender: sender,
		logger: logger,
		opts:   opts,
		queue:  make(chan Message, opts.Buffer),
		stop:   make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *Dispatcher) Notify(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped(msg, "dispatcher closed")
		return
	}
	select {
	case d.queue <- msg:
	default:
		d.dropped(msg, "queue full")
	}
}

// Close stops accepting messages and waits for queued ones to be delivered
// until ctx is done. Pending retries are abandoned when ctx expires.
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
		return nil
	case <-ctx.Done():
		d.halt.Do(func() { close(d.stop) })
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	backoff := d.opts.Backoff
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
		err := d.sender.Send(ctx, msg)
		cancel()
		if err == nil {
			return
		}

		entry := d.logger.WithFields(logrus.Fields{
			"kind":           msg.Kind,
			"reservation_id": msg.ReservationID,
			"attempt":        attempt,
		}).WithError(err)

		if attempt >= d.opts.MaxAttempts {
			entry.Error("notification delivery failed")
			return
		}
		entry.Warn("notification delivery failed, retrying")

		select {
		case <-time.After(backoff):
		case <-d.stop:
			return
		}
		backoff *= 2
	}
}

func (d *Dispatcher) dropped(msg Message, reason string) {
	d.logger.WithFields(logrus.Fields{
		"kind":           msg.Kind,
		"reservation_id": msg.ReservationID,
		"reason":         reason,
	}).Warn("notification dropped")
}
