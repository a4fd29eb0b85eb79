package index

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xindex/basic"
)

func TestConcurrentDisjointInserts(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	const (
		workers = 8
		perW    = int64(100)
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int64) {
			defer wg.Done()
			for i := int64(0); i < perW; i++ {
				k := w*perW + i + 1
				ok, err := tree.Insert(basic.Int64Key(k), ridOf(k))
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}(int64(w))
	}
	wg.Wait()

	assert.Equal(t, seq(1, workers*perW), collectScan(t, tree))
	checkInvariants(t, tree)
}

func TestConcurrentGetAndInsert(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	const n = int64(300)
	done := make(chan struct{})

	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func(r int) {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for k := int64(1); k <= n; k++ {
					var rids []basic.RID
					found, err := tree.GetValue(basic.Int64Key(k), &rids)
					if !assert.NoError(t, err) {
						return
					}
					// 读到的值必须完整，不存在撕裂槽位
					if found && !assert.Equal(t, ridOf(k), rids[0], "torn read at key %d", k) {
						return
					}
				}
			}
		}(r)
	}

	for k := int64(1); k <= n; k++ {
		ok, err := tree.Insert(basic.Int64Key(k), ridOf(k))
		require.NoError(t, err)
		require.True(t, ok)
	}
	close(done)
	readers.Wait()

	assert.Equal(t, seq(1, n), collectScan(t, tree))
	checkInvariants(t, tree)
}

func TestConcurrentInsertAndRemove(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	// 先铺一批常驻键
	const n = int64(200)
	for k := int64(1); k <= n; k++ {
		insertKey(t, tree, k)
	}

	// 一半goroutine插入新键，另一半删除自己的旧键区段
	var wg sync.WaitGroup
	for w := int64(0); w < 4; w++ {
		wg.Add(1)
		go func(w int64) {
			defer wg.Done()
			for i := int64(0); i < 50; i++ {
				k := n + w*50 + i + 1
				ok, err := tree.Insert(basic.Int64Key(k), ridOf(k))
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}(w)
	}
	for w := int64(0); w < 4; w++ {
		wg.Add(1)
		go func(w int64) {
			defer wg.Done()
			for i := int64(0); i < 50; i++ {
				k := w*50 + i + 1
				assert.NoError(t, tree.Remove(basic.Int64Key(k)))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, seq(n+1, n+200), collectScan(t, tree))
	checkInvariants(t, tree)
}

func TestConcurrentScanDuringWrites(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	const n = int64(200)
	for k := int64(1); k <= n; k++ {
		insertKey(t, tree, k)
	}

	done := make(chan struct{})
	var scanners sync.WaitGroup
	for s := 0; s < 3; s++ {
		scanners.Add(1)
		go func() {
			defer scanners.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				it, err := tree.Begin()
				if !assert.NoError(t, err) {
					return
				}
				// 键序单调即可，写入者并发改动下不要求快照
				prev := int64(-1 << 62)
				for ; !it.IsEnd(); it.Next() {
					k := basic.Int64FromKey(it.Key())
					if !assert.Greater(t, k, prev) {
						it.Drop()
						return
					}
					prev = k
				}
			}
		}()
	}

	for k := n + 1; k <= n+100; k++ {
		ok, err := tree.Insert(basic.Int64Key(k), ridOf(k))
		require.NoError(t, err)
		require.True(t, ok)
	}
	for k := int64(1); k <= 50; k++ {
		require.NoError(t, tree.Remove(basic.Int64Key(k)))
	}
	close(done)
	scanners.Wait()

	assert.Equal(t, seq(51, n+100), collectScan(t, tree))
	checkInvariants(t, tree)
}

func TestConcurrentSameKeyInsert(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	// 同一键的并发插入恰有一次成功
	const attempts = 16
	var wg sync.WaitGroup
	succeeded := make(chan basic.RID, attempts)
	for w := 0; w < attempts; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rid := basic.RID{PageNo: uint32(w), SlotNo: 1}
			ok, err := tree.Insert(basic.Int64Key(99), rid)
			assert.NoError(t, err)
			if ok {
				succeeded <- rid
			}
		}(w)
	}
	wg.Wait()
	close(succeeded)

	var winners []basic.RID
	for rid := range succeeded {
		winners = append(winners, rid)
	}
	require.Len(t, winners, 1)

	rid, found := lookupKey(t, tree, 99)
	require.True(t, found)
	assert.Equal(t, winners[0], rid)
}
