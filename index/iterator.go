package index

import (
	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/buffer_pool"
	"github.com/zhukovaskychina/xindex/storage/pages"
)

// Iterator 叶子链表上的前向游标，终点哨兵为 (InvalidPageNo, -1)
//
// 游标在两次前进之间只持有当前叶子的读锁。前进时先在锁内取出next页号
// 再释放当前叶子，因此并发合并腾空的叶子不会令游标悬空：被腾空的叶子
// size为0且next保留，游标跳过它继续前进；页面被回收复用为非叶子类型时
// 通过kind检测终止扫描。
type Iterator struct {
	pool   *buffer_pool.BufferPool
	tree   *BPlusTree
	guard  *buffer_pool.ReadGuard
	pageNo uint32
	slot   int
	err    error
}

var _ basic.KVIterator = (*Iterator)(nil)

// End 终点游标
func (t *BPlusTree) End() *Iterator {
	return &Iterator{pool: t.pool, tree: t, pageNo: basic.InvalidPageNo, slot: -1}
}

// Begin 定位到全树最小键
func (t *BPlusTree) Begin() (*Iterator, error) {
	guard, err := t.descendLeftmost()
	if err != nil {
		return nil, err
	}
	if guard == nil {
		return t.End(), nil
	}
	it := &Iterator{pool: t.pool, tree: t, guard: guard, pageNo: guard.PageNo(), slot: 0}
	// 最左叶子静止时非空，防御空叶
	it.skipExhausted()
	return it, nil
}

// BeginAt 定位到最小的键 >= key 的槽位，沿next链跨叶查找
func (t *BPlusTree) BeginAt(key []byte) (*Iterator, error) {
	if err := t.checkKey(key); err != nil {
		return nil, err
	}

	headerGuard, err := t.pool.FetchReadGuard(t.headerPageNo)
	if err != nil {
		return nil, err
	}
	rootPageNo := pages.NewHeaderPage(headerGuard.Data()).RootPageNo()
	if rootPageNo == basic.InvalidPageNo {
		headerGuard.Drop()
		return t.End(), nil
	}

	// 先放头页再锁根，避免与根生长的头页回取成环
	headerGuard.Drop()
	guard, err := t.pool.FetchReadGuard(rootPageNo)
	if err != nil {
		return nil, err
	}

	for !pages.NewBTreePage(guard.Data()).IsLeaf() {
		internal := t.internalView(guard.Data())
		childNo := internal.ChildAt(t.binaryFindInternal(internal, key))
		childGuard, err := t.pool.FetchReadGuard(childNo)
		guard.Drop()
		if err != nil {
			return nil, err
		}
		guard = childGuard
	}

	leaf := t.leafView(guard.Data())
	pos := t.binaryFindLeaf(leaf, key)
	slot := pos + 1
	if pos >= 0 && t.compare(leaf.KeyAt(pos), key) == 0 {
		slot = pos
	}

	it := &Iterator{pool: t.pool, tree: t, guard: guard, pageNo: guard.PageNo(), slot: slot}
	it.skipExhausted()
	return it, nil
}

// descendLeftmost 沿child_0读蟹行到最左叶子，空树返回nil
func (t *BPlusTree) descendLeftmost() (*buffer_pool.ReadGuard, error) {
	headerGuard, err := t.pool.FetchReadGuard(t.headerPageNo)
	if err != nil {
		return nil, err
	}
	rootPageNo := pages.NewHeaderPage(headerGuard.Data()).RootPageNo()
	if rootPageNo == basic.InvalidPageNo {
		headerGuard.Drop()
		return nil, nil
	}

	headerGuard.Drop()
	guard, err := t.pool.FetchReadGuard(rootPageNo)
	if err != nil {
		return nil, err
	}

	for !pages.NewBTreePage(guard.Data()).IsLeaf() {
		childNo := t.internalView(guard.Data()).ChildAt(0)
		childGuard, err := t.pool.FetchReadGuard(childNo)
		guard.Drop()
		if err != nil {
			return nil, err
		}
		guard = childGuard
	}
	return guard, nil
}

// IsEnd 是否到达终点
func (it *Iterator) IsEnd() bool {
	return it.guard == nil
}

// Err 返回令扫描提前终止的缓冲池错误
func (it *Iterator) Err() error {
	return it.err
}

// Key 当前槽位的键，返回副本
func (it *Iterator) Key() []byte {
	leaf := it.tree.leafView(it.guard.Data())
	return it.tree.copyKey(leaf.KeyAt(it.slot))
}

// Value 当前槽位的RID
func (it *Iterator) Value() basic.RID {
	leaf := it.tree.leafView(it.guard.Data())
	return leaf.ValueAt(it.slot)
}

// Next 前进一个槽位，越过叶尾时沿next链表切换叶子
func (it *Iterator) Next() {
	if it.IsEnd() {
		return
	}
	it.slot++
	it.skipExhausted()
}

// skipExhausted 槽位越界时前进到下一个可读叶子，链表耗尽则变为终点
func (it *Iterator) skipExhausted() {
	for !it.IsEnd() {
		node := pages.NewBTreePage(it.guard.Data())
		if !node.IsLeaf() {
			// 页面已被回收复用，扫描终止
			it.becomeEnd()
			return
		}
		leaf := it.tree.leafView(it.guard.Data())
		if it.slot < leaf.Size() {
			return
		}

		// 释放当前叶子之前先取出next页号
		nextPageNo := leaf.NextPageNo()
		it.guard.Drop()
		it.guard = nil
		if nextPageNo == basic.InvalidPageNo {
			it.becomeEnd()
			return
		}

		guard, err := it.pool.FetchReadGuard(nextPageNo)
		if err != nil {
			it.err = err
			it.becomeEnd()
			return
		}
		it.guard = guard
		it.pageNo = nextPageNo
		it.slot = 0
	}
}

func (it *Iterator) becomeEnd() {
	if it.guard != nil {
		it.guard.Drop()
		it.guard = nil
	}
	it.pageNo = basic.InvalidPageNo
	it.slot = -1
}

// Equals 两游标相等当且仅当同为终点或指向同一叶子的同一槽位
func (it *Iterator) Equals(other *Iterator) bool {
	if it.IsEnd() || other.IsEnd() {
		return it.IsEnd() && other.IsEnd()
	}
	return it.pageNo == other.pageNo && it.slot == other.slot
}

// Drop 提前终止扫描时释放持有的叶子读锁
func (it *Iterator) Drop() {
	it.becomeEnd()
}
