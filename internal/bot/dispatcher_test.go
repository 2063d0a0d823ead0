package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	d := NewDispatcher(4, zap.NewNop())
	ctx := context.Background()

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := 0; i < 20; i++ {
		for _, chat := range []int64{1, 2} {
			i, chat := i, chat
			d.Submit(ctx, chat, func(context.Context) {
				time.Sleep(time.Millisecond)
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
			})
		}
	}
	d.Wait()

	for _, chat := range []int64{1, 2} {
		assert.Len(t, got[chat], 20)
		for i, v := range got[chat] {
			assert.Equal(t, i, v)
		}
	}
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	d := NewDispatcher(2, zap.NewNop())
	ctx := context.Background()

	var running, peak int32
	for chat := int64(1); chat <= 6; chat++ {
		d.Submit(ctx, chat, func(context.Context) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		})
	}
	d.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestDispatcherRecoversFromPanics(t *testing.T) {
	d := NewDispatcher(1, zap.NewNop())
	ctx := context.Background()

	var ran bool
	d.Submit(ctx, 1, func(context.Context) { panic("boom") })
	d.Submit(ctx, 1, func(context.Context) { ran = true })
	d.Wait()

	assert.True(t, ran)
}

func TestDispatcherDropsWorkAfterCancel(t *testing.T) {
	d := NewDispatcher(1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	d.Submit(context.Background(), 1, func(context.Context) { <-release })

	var ran int32
	cancel()
	d.Submit(ctx, 2, func(context.Context) { atomic.StoreInt32(&ran, 1) })
	close(release)
	d.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}
