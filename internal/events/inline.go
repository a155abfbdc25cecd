package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InlineDispatcher hands events to a Handler in a background goroutine of
// the same process. It is used when no broker is configured.
type InlineDispatcher struct {
	handler Handler
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewInlineDispatcher(handler Handler, timeout time.Duration, log *zap.Logger) *InlineDispatcher {
	return &InlineDispatcher{handler: handler, timeout: timeout, log: log}
}

// Publish never blocks on the handler. The request context is not used for
// delivery since it ends with the request.
func (d *InlineDispatcher) Publish(_ context.Context, eventType string, payload interface{}) error {
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.handler.Handle(ctx, env); err != nil {
			d.log.Error("inline event handler failed",
				zap.String("type", env.Type), zap.String("id", env.ID), zap.Error(err))
		}
	}()
	return nil
}

// Close waits for in-flight deliveries.
func (d *InlineDispatcher) Close() error {
	d.wg.Wait()
	return nil
}
