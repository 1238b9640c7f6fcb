package notification

import (
	"context"

	"go.uber.org/zap"
)

// WorkerPool delivers messages in the background so a request never waits
// on the SMS gateway.
type WorkerPool struct {
	size   int
	jobs   chan Message
	sender Sender
	log    *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, sender Sender, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:   size,
		jobs:   make(chan Message, size), // Buffered channel
		sender: sender,
		log:    log,
	}
}

// Run launches the workers and blocks until ctx is done and every worker
// has returned.
func (wp *WorkerPool) Run(ctx context.Context) error {
	done := make(chan struct{}, wp.size)
	for i := 0; i < wp.size; i++ {
		go func(id int) {
			wp.worker(ctx, id)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < wp.size; i++ {
		<-done
	}
	return nil
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case msg := <-wp.jobs:
			if err := wp.sender.Send(ctx, msg); err != nil {
				wp.log.Error("error sending message", zap.Int("worker", id), zap.String("to", msg.To), zap.Error(err))
			}
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a message. It blocks while the queue is full, until ctx
// is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, msg Message) error {
	select {
	case wp.jobs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
