package latch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadersShareWritersExclude(t *testing.T) {
	t.Parallel()
	l := NewLatch()

	l.Acquire(ModeRead)
	assert.True(t, l.TryAcquire(ModeRead), "读锁可共享")
	assert.False(t, l.TryAcquire(ModeWrite), "持读锁时拿不到写锁")
	l.Release(ModeRead)
	l.Release(ModeRead)

	l.Acquire(ModeWrite)
	assert.False(t, l.TryAcquire(ModeRead), "持写锁时拿不到读锁")
	assert.False(t, l.TryAcquire(ModeWrite))
	l.Release(ModeWrite)

	assert.True(t, l.TryAcquire(ModeWrite))
	l.Release(ModeWrite)
}

func TestWriteBlocksUntilReadersDrain(t *testing.T) {
	t.Parallel()
	l := NewLatch()

	l.Acquire(ModeRead)
	acquired := make(chan struct{})
	go func() {
		l.Acquire(ModeWrite)
		close(acquired)
		l.Release(ModeWrite)
	}()

	select {
	case <-acquired:
		t.Fatal("写锁不应在读锁释放前就绪")
	default:
	}

	l.Release(ModeRead)
	<-acquired

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire(ModeRead)
			l.Release(ModeRead)
		}()
	}
	wg.Wait()
}
