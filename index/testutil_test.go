package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/buffer_pool"
	"github.com/zhukovaskychina/xindex/storage/pages"
)

const testPageSize = 4096

// newTestTree 建立落在临时目录数据文件上的测试树
func newTestTree(t *testing.T, leafMaxSize, internalMaxSize int) *BPlusTree {
	t.Helper()

	disk, err := buffer_pool.NewDiskManager(filepath.Join(t.TempDir(), "index.ibd"), testPageSize)
	require.NoError(t, err)
	pool, err := buffer_pool.NewBufferPool(256, disk)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	headerPageNo := disk.AllocatePage()
	tree, err := NewBPlusTree(t.Name(), headerPageNo, pool,
		basic.CompareInt64, basic.Int64KeySize, leafMaxSize, internalMaxSize)
	require.NoError(t, err)
	return tree
}

func ridOf(k int64) basic.RID {
	return basic.RID{PageNo: uint32(k), SlotNo: uint32(k % 7)}
}

func insertKey(t *testing.T, tree *BPlusTree, k int64) {
	t.Helper()
	ok, err := tree.Insert(basic.Int64Key(k), ridOf(k))
	require.NoError(t, err)
	require.True(t, ok, "insert %d", k)
}

func removeKey(t *testing.T, tree *BPlusTree, k int64) {
	t.Helper()
	require.NoError(t, tree.Remove(basic.Int64Key(k)))
}

func lookupKey(t *testing.T, tree *BPlusTree, k int64) (basic.RID, bool) {
	t.Helper()
	var rids []basic.RID
	found, err := tree.GetValue(basic.Int64Key(k), &rids)
	require.NoError(t, err)
	if !found {
		return basic.RID{}, false
	}
	require.Len(t, rids, 1)
	return rids[0], true
}

// collectScan 从头扫描整棵树并返回全部键
func collectScan(t *testing.T, tree *BPlusTree) []int64 {
	t.Helper()
	it, err := tree.Begin()
	require.NoError(t, err)
	return drainIterator(t, it)
}

func drainIterator(t *testing.T, it *Iterator) []int64 {
	t.Helper()
	var keys []int64
	for ; !it.IsEnd(); it.Next() {
		keys = append(keys, basic.Int64FromKey(it.Key()))
	}
	require.NoError(t, it.Err())
	return keys
}

func seq(from, to int64) []int64 {
	out := make([]int64, 0, to-from+1)
	for k := from; k <= to; k++ {
		out = append(out, k)
	}
	return out
}

// subtreeInfo 子树遍历结果
type subtreeInfo struct {
	minKey []byte
	maxKey []byte
	height int
	leaves []uint32
}

// checkInvariants 校验结构不变式
//
//	I1 叶内键严格递增
//	I2 内部节点的路由区间 [key_i, key_{i+1}) 覆盖对应子树的全部键
//	I3 所有根到叶路径等长
//	I4 非根节点占用在 [min_size, max_size-1] 之间
//	I5 next链自最左叶子起按键升序恰好遍历每个叶子一次
func checkInvariants(t *testing.T, tree *BPlusTree) {
	t.Helper()

	rootPageNo, err := tree.RootPageNo()
	require.NoError(t, err)
	if rootPageNo == basic.InvalidPageNo {
		return
	}

	info := walkSubtree(t, tree, rootPageNo, true)

	// I5 链表与树遍历一致
	require.NotEmpty(t, info.leaves)
	chain := make([]uint32, 0, len(info.leaves))
	for pageNo := info.leaves[0]; pageNo != basic.InvalidPageNo; {
		chain = append(chain, pageNo)
		guard, err := tree.pool.FetchBasicGuard(pageNo)
		require.NoError(t, err)
		leaf := tree.leafView(guard.Data())
		require.True(t, leaf.IsLeaf())
		next := leaf.NextPageNo()
		guard.Drop()
		pageNo = next
	}
	require.Equal(t, info.leaves, chain, "leaf chain must visit every leaf once in order")
}

func walkSubtree(t *testing.T, tree *BPlusTree, pageNo uint32, isRoot bool) subtreeInfo {
	t.Helper()

	guard, err := tree.pool.FetchBasicGuard(pageNo)
	require.NoError(t, err)
	defer guard.Drop()

	node := pages.NewBTreePage(guard.Data())
	size := node.Size()

	// I4
	if !isRoot {
		require.GreaterOrEqual(t, size, node.MinSize(), "page %d underflow", pageNo)
		require.LessOrEqual(t, size, node.MaxSize()-1, "page %d overflow", pageNo)
	}

	if node.IsLeaf() {
		leaf := tree.leafView(guard.Data())
		require.Greater(t, size, 0, "leaf %d empty at rest", pageNo)
		for i := 1; i < size; i++ {
			require.Negative(t, tree.compare(leaf.KeyAt(i-1), leaf.KeyAt(i)),
				"leaf %d keys not strictly increasing at slot %d", pageNo, i)
		}
		return subtreeInfo{
			minKey: tree.copyKey(leaf.KeyAt(0)),
			maxKey: tree.copyKey(leaf.KeyAt(size - 1)),
			height: 1,
			leaves: []uint32{pageNo},
		}
	}

	internal := tree.internalView(guard.Data())
	require.GreaterOrEqual(t, size, 2, "internal %d too small", pageNo)
	for i := 2; i < size; i++ {
		require.Negative(t, tree.compare(internal.KeyAt(i-1), internal.KeyAt(i)),
			"internal %d separators not strictly increasing at slot %d", pageNo, i)
	}

	var info subtreeInfo
	for i := 0; i < size; i++ {
		child := walkSubtree(t, tree, internal.ChildAt(i), false)

		// I2 子树键域落在 [key_i, key_{i+1}) 内
		if i >= 1 {
			require.LessOrEqual(t, tree.compare(internal.KeyAt(i), child.minKey), 0,
				"internal %d child %d violates lower bound", pageNo, i)
		}
		if i+1 < size {
			require.Negative(t, tree.compare(child.maxKey, internal.KeyAt(i+1)),
				"internal %d child %d violates upper bound", pageNo, i)
		}

		if i == 0 {
			info.minKey = child.minKey
			info.height = child.height
		} else {
			// I3
			require.Equal(t, info.height, child.height, "internal %d children heights differ", pageNo)
		}
		info.maxKey = child.maxKey
		info.leaves = append(info.leaves, child.leaves...)
	}
	info.height++
	return info
}
