package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xindex/basic"
)

func TestIteratorFullScan(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	const n = int64(100)
	for i := int64(0); i < n; i++ {
		insertKey(t, tree, (i*37+5)%n+1)
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	keys := drainIterator(t, it)
	assert.Equal(t, seq(1, n), keys)
	assert.True(t, it.IsEnd())
	assert.True(t, it.Equals(tree.End()))
}

func TestIteratorValues(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	for k := int64(1); k <= 10; k++ {
		insertKey(t, tree, k)
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	for k := int64(1); !it.IsEnd(); it.Next() {
		assert.Equal(t, k, basic.Int64FromKey(it.Key()))
		assert.Equal(t, ridOf(k), it.Value())
		k++
	}
}

func TestIteratorBeginAt(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	for _, k := range []int64{2, 4, 6, 8, 10, 12, 14} {
		insertKey(t, tree, k)
	}

	t.Run("命中现有键", func(t *testing.T) {
		it, err := tree.BeginAt(basic.Int64Key(6))
		require.NoError(t, err)
		assert.Equal(t, []int64{6, 8, 10, 12, 14}, drainIterator(t, it))
	})

	t.Run("落在间隙", func(t *testing.T) {
		it, err := tree.BeginAt(basic.Int64Key(7))
		require.NoError(t, err)
		assert.Equal(t, []int64{8, 10, 12, 14}, drainIterator(t, it))
	})

	t.Run("小于全部键", func(t *testing.T) {
		it, err := tree.BeginAt(basic.Int64Key(-5))
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4, 6, 8, 10, 12, 14}, drainIterator(t, it))
	})

	t.Run("大于全部键", func(t *testing.T) {
		it, err := tree.BeginAt(basic.Int64Key(100))
		require.NoError(t, err)
		assert.True(t, it.IsEnd())
	})
}

func TestIteratorEquality(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	assert.True(t, tree.End().Equals(tree.End()))

	begin, err := tree.Begin()
	require.NoError(t, err)
	assert.True(t, begin.Equals(tree.End()), "empty tree begin == end")

	insertKey(t, tree, 1)

	a, err := tree.Begin()
	require.NoError(t, err)
	b, err := tree.BeginAt(basic.Int64Key(1))
	require.NoError(t, err)
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(tree.End()))
	a.Drop()
	b.Drop()
}

func TestIteratorDropReleasesLatch(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t, 4, 4)

	for k := int64(1); k <= 10; k++ {
		insertKey(t, tree, k)
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	it.Next()
	it.Drop()
	assert.True(t, it.IsEnd())

	// 游标释放后写操作可以继续
	insertKey(t, tree, 11)
	assert.Equal(t, seq(1, 11), collectScan(t, tree))
}
