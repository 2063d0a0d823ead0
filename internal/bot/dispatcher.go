package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xaenox/shop-bot/internal/reporting"
)

// Dispatcher runs tasks one at a time per chat and at most limit at a time overall.
type Dispatcher struct {
	sem    *semaphore.Weighted
	mu     sync.Mutex
	queues map[int64][]func(ctx context.Context)
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewDispatcher(limit int, logger *zap.Logger) *Dispatcher {
	if limit <= 0 {
		limit = 1
	}
	return &Dispatcher{
		sem:    semaphore.NewWeighted(int64(limit)),
		queues: make(map[int64][]func(ctx context.Context)),
		logger: logger,
	}
}

// Submit queues task behind earlier tasks of chatID.
func (d *Dispatcher) Submit(ctx context.Context, chatID int64, task func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue, running := d.queues[chatID]
	d.queues[chatID] = append(queue, task)
	if running {
		return
	}
	d.wg.Add(1)
	go d.drain(ctx, chatID)
}

// Wait blocks until every queued task finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) drain(ctx context.Context, chatID int64) {
	defer d.wg.Done()
	for {
		task, ok := d.next(chatID)
		if !ok {
			return
		}
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.logger.Warn("Dropping queued updates", zap.Int64("chat_id", chatID), zap.Error(err))
			d.mu.Lock()
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		d.run(ctx, chatID, task)
		d.sem.Release(1)
	}
}

// next pops the head of the chat queue. The queue entry is removed once
// empty so the following Submit starts a new drain.
func (d *Dispatcher) next(chatID int64) (func(ctx context.Context), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	queue := d.queues[chatID]
	if len(queue) == 0 {
		delete(d.queues, chatID)
		return nil, false
	}
	task := queue[0]
	if len(queue) == 1 {
		// keep the key so concurrent Submits append instead of spawning
		d.queues[chatID] = queue[:0]
	} else {
		d.queues[chatID] = queue[1:]
	}
	return task, true
}

func (d *Dispatcher) run(ctx context.Context, chatID int64, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic while handling update",
				zap.Int64("chat_id", chatID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			reporting.CapturePanic(ctx, r, chatID)
		}
	}()
	task(ctx)
}
