// Package delivery sends notification codes in the background so that a slow
// or failing sender never blocks or fails the request that produced the code.
package delivery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Message is one unit of work handed to a Sender.
type Message struct {
	Channel string
	Address string
	Code    string
	Purpose string
	UserID  string
}

// Sender performs the actual delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Config controls buffering and the per-send deadline.
type Config struct {
	BufferSize  int
	SendTimeout time.Duration
}

// Dispatcher is a buffered queue drained by a single worker goroutine.
// Enqueue never blocks: when the buffer is full the message is dropped and
// counted.
type Dispatcher struct {
	sender  Sender
	logger  *zap.Logger
	timeout time.Duration

	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(cfg Config, sender Sender, logger *zap.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sender:  sender,
		logger:  logger,
		timeout: cfg.SendTimeout,
		ch:      make(chan Message, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.send(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.send(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(msg Message) {
	if d.sender == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Warn("notification delivery failed",
			zap.String("user_id", msg.UserID),
			zap.String("channel", msg.Channel),
			zap.String("purpose", msg.Purpose),
			zap.Error(err),
		)
	}
}

// Enqueue schedules msg for delivery. It reports false when the message was
// dropped because the buffer is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(msg Message) bool {
	if d == nil || d.closed.Load() {
		return false
	}
	select {
	case d.ch <- msg:
		return true
	case <-d.done:
		return false
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification dropped, delivery queue full",
			zap.String("user_id", msg.UserID),
			zap.String("purpose", msg.Purpose),
		)
		return false
	}
}

// Close stops accepting messages and waits until queued ones are sent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
