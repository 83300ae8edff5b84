package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cryptotopup/internal/model"
	"cryptotopup/internal/repository"
)

const (
	eventBatchSize     = 10
	eventFlushInterval = time.Second
)

// EventLogger records payment audit events without blocking the caller.
type EventLogger interface {
	Record(ctx context.Context, event model.PaymentEvent)
	// Close flushes pending events and stops the worker.
	Close()
}

type eventLogger struct {
	repo repository.PaymentEventRepository

	mu     sync.RWMutex
	closed bool
	events chan model.PaymentEvent
	done   chan struct{}
}

// NewEventLogger starts the async audit worker.
func NewEventLogger(repo repository.PaymentEventRepository) EventLogger {
	l := &eventLogger{
		repo:   repo,
		events: make(chan model.PaymentEvent, 100),
		done:   make(chan struct{}),
	}
	go l.worker(context.Background())
	return l
}

func (l *eventLogger) worker(ctx context.Context) {
	defer close(l.done)

	batch := make([]model.PaymentEvent, 0, eventBatchSize)
	ticker := time.NewTicker(eventFlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := l.repo.CreateBatch(ctx, batch); err != nil {
			slog.Error("failed to write payment events", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-l.events:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= eventBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (l *eventLogger) Record(ctx context.Context, event model.PaymentEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.closed {
		select {
		case l.events <- event:
			return
		default:
		}
	}

	// channel full or worker stopped: write synchronously
	if err := l.repo.Create(context.WithoutCancel(ctx), &event); err != nil {
		slog.ErrorContext(ctx, "failed to write payment event", "order_id", event.OrderID, "event", event.Event, "error", err)
	}
}

func (l *eventLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.events)
	l.mu.Unlock()
	<-l.done
}

func paymentEvent(payment *model.CryptoPayment, eventType model.PaymentEventType, err error) model.PaymentEvent {
	event := model.PaymentEvent{Event: eventType}
	if payment != nil {
		event.PaymentID = payment.ID
		event.OrderID = payment.OrderID
		event.Status = payment.Status
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	return event
}
