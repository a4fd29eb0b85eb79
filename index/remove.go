package index

import (
	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/buffer_pool"
	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/storage/pages"
)

// Remove 删除键，键不存在时为空操作
func (t *BPlusTree) Remove(key []byte) error {
	if err := t.checkKey(key); err != nil {
		return err
	}

	ctx := NewContext()
	defer ctx.Release()

	headerGuard, err := t.pool.FetchWriteGuard(t.headerPageNo)
	if err != nil {
		return err
	}
	ctx.headerGuard = headerGuard

	header := pages.NewHeaderPage(headerGuard.Data())
	if header.RootPageNo() == basic.InvalidPageNo {
		return nil
	}
	ctx.rootPageNo = header.RootPageNo()
	ctx.ReleaseHeader()

	// 写下降，安全节点为占用高于下限的内部节点
	x := ctx.rootPageNo
	for {
		guard, err := t.pool.FetchWriteGuard(x)
		if err != nil {
			return err
		}
		ctx.PushBack(guard)
		node := pages.NewBTreePage(guard.Data())
		if node.IsLeaf() {
			break
		}
		internal := t.internalView(guard.Data())
		if internal.Size() > internal.MinSize() {
			ctx.ReleaseAllButLast()
		}
		x = internal.ChildAt(t.binaryFindInternal(internal, key))
	}

	leaf := t.leafView(ctx.Back().Data())
	pos := t.binaryFindLeaf(leaf, key)
	if pos < 0 || t.compare(leaf.KeyAt(pos), key) != 0 {
		return nil
	}
	leaf.ShiftLeft(pos)

	// 自底向上的下溢级联：借位即止，合并后父节点可能继续下溢
	for ctx.Len() > 1 {
		cur := pages.NewBTreePage(ctx.Back().Data())
		if cur.Size() >= cur.MinSize() {
			break
		}

		parentGuard := ctx.At(ctx.Len() - 2)
		parent := t.internalView(parentGuard.Data())
		idx := parent.ChildIndex(ctx.Back().PageNo())
		if idx < 0 {
			t.corrupted("page %d not found among children of parent %d", ctx.Back().PageNo(), parentGuard.PageNo())
		}

		merged, freedNo, err := t.rebalance(ctx.Back(), parent, idx)
		if err != nil {
			return err
		}
		if !merged {
			break
		}
		ctx.PopBack()
		if !t.pool.DeletePage(freedNo) {
			// 页面仍被扫描者pin住，留待其释放，内容已标记为空
			logger.Warnf("index %s: freed page %d still pinned", t.name, freedNo)
		}
	}

	// 根收缩：仅当保留后缀一路到根时才可能发生
	if ctx.Len() == 1 && ctx.Back().PageNo() == ctx.rootPageNo {
		t.shrinkRoot(ctx)
	}
	return nil
}

// shrinkRoot 单子根下放，空根叶子销毁
func (t *BPlusTree) shrinkRoot(ctx *Context) {
	root := pages.NewBTreePage(ctx.Back().Data())
	oldRootNo := ctx.Back().PageNo()

	var newRootNo uint32
	switch {
	case !root.IsLeaf() && root.Size() == 1:
		newRootNo = t.internalView(ctx.Back().Data()).ChildAt(0)
	case root.IsLeaf() && root.Size() == 0:
		newRootNo = basic.InvalidPageNo
	default:
		return
	}

	headerGuard, err := t.pool.FetchWriteGuard(t.headerPageNo)
	if err != nil {
		logger.Errorf("index %s: root shrink aborted, header fetch failed: %v", t.name, err)
		return
	}
	pages.NewHeaderPage(headerGuard.Data()).SetRootPageNo(newRootNo)
	headerGuard.Drop()

	ctx.PopBack()
	if !t.pool.DeletePage(oldRootNo) {
		logger.Warnf("index %s: freed root page %d still pinned", t.name, oldRootNo)
	}
	logger.Debugf("index %s: root shrank from %d to %d", t.name, oldRootNo, newRootNo)
}

// rebalance 修复下溢节点：优先与左兄弟配对，左兄弟不存在时与右兄弟配对
// 兄弟占用高于下限时借位，否则合并
// 返回是否发生了合并以及被腾空待释放的页号
func (t *BPlusTree) rebalance(curGuard *buffer_pool.WriteGuard, parent *pages.InternalPage, idx int) (bool, uint32, error) {
	if idx == 0 && parent.Size() < 2 {
		t.corrupted("internal page with %d children during rebalance", parent.Size())
	}

	// 父节点写锁在手，兄弟不会被并发摘除
	siblingIdx := idx - 1
	if idx == 0 {
		siblingIdx = idx + 1
	}
	siblingGuard, err := t.pool.FetchWriteGuard(parent.ChildAt(siblingIdx))
	if err != nil {
		return false, basic.InvalidPageNo, err
	}
	defer siblingGuard.Drop()

	if pages.NewBTreePage(curGuard.Data()).IsLeaf() {
		cur := t.leafView(curGuard.Data())
		sibling := t.leafView(siblingGuard.Data())
		if idx > 0 {
			if sibling.Size() > sibling.MinSize() {
				t.borrowLeafFromLeft(sibling, cur, parent, idx)
				return false, basic.InvalidPageNo, nil
			}
			t.mergeLeaves(sibling, cur, parent, idx)
			return true, curGuard.PageNo(), nil
		}
		if sibling.Size() > sibling.MinSize() {
			t.borrowLeafFromRight(cur, sibling, parent, idx+1)
			return false, basic.InvalidPageNo, nil
		}
		t.mergeLeaves(cur, sibling, parent, idx+1)
		return true, siblingGuard.PageNo(), nil
	}

	cur := t.internalView(curGuard.Data())
	sibling := t.internalView(siblingGuard.Data())
	if idx > 0 {
		if sibling.Size() > sibling.MinSize() {
			t.borrowInternalFromLeft(sibling, cur, parent, idx)
			return false, basic.InvalidPageNo, nil
		}
		t.mergeInternals(sibling, cur, parent, idx)
		return true, curGuard.PageNo(), nil
	}
	if sibling.Size() > sibling.MinSize() {
		t.borrowInternalFromRight(cur, sibling, parent, idx+1)
		return false, basic.InvalidPageNo, nil
	}
	t.mergeInternals(cur, sibling, parent, idx+1)
	return true, siblingGuard.PageNo(), nil
}

// borrowLeafFromLeft 左兄弟末尾的键值对旋转到当前叶子头部
// 新分隔键为旋转后右侧节点的首键
func (t *BPlusTree) borrowLeafFromLeft(left, cur *pages.LeafPage, parent *pages.InternalPage, sepIdx int) {
	last := left.Size() - 1
	cur.ShiftRight(0)
	cur.SetKeyAt(0, left.KeyAt(last))
	cur.SetValueAt(0, left.ValueAt(last))
	left.IncreaseSize(-1)
	parent.SetKeyAt(sepIdx, cur.KeyAt(0))
}

// borrowLeafFromRight 右兄弟首键值对旋转到当前叶子末尾
func (t *BPlusTree) borrowLeafFromRight(cur, right *pages.LeafPage, parent *pages.InternalPage, sepIdx int) {
	size := cur.Size()
	cur.IncreaseSize(1)
	cur.SetKeyAt(size, right.KeyAt(0))
	cur.SetValueAt(size, right.ValueAt(0))
	right.ShiftLeft(0)
	parent.SetKeyAt(sepIdx, right.KeyAt(0))
}

// borrowInternalFromLeft 父分隔键下沉到当前节点，左兄弟末位键上旋为新分隔键
func (t *BPlusTree) borrowInternalFromLeft(left, cur *pages.InternalPage, parent *pages.InternalPage, sepIdx int) {
	last := left.Size() - 1
	cur.ShiftRight(0)
	cur.SetChildAt(0, left.ChildAt(last))
	cur.SetKeyAt(1, parent.KeyAt(sepIdx))
	parent.SetKeyAt(sepIdx, left.KeyAt(last))
	left.IncreaseSize(-1)
}

// borrowInternalFromRight 父分隔键下沉到当前节点末尾，右兄弟槽位1的键上旋
func (t *BPlusTree) borrowInternalFromRight(cur, right *pages.InternalPage, parent *pages.InternalPage, sepIdx int) {
	size := cur.Size()
	cur.IncreaseSize(1)
	cur.SetKeyAt(size, parent.KeyAt(sepIdx))
	cur.SetChildAt(size, right.ChildAt(0))
	parent.SetKeyAt(sepIdx, right.KeyAt(1))
	right.ShiftLeft(0)
}

// mergeLeaves 右叶子并入左叶子并从叶子链表摘除
// 右叶子size清零但next保留，让仍停留在其上的扫描者能够继续前进
func (t *BPlusTree) mergeLeaves(left, right *pages.LeafPage, parent *pages.InternalPage, sepIdx int) {
	lsize, rsize := left.Size(), right.Size()
	for i := 0; i < rsize; i++ {
		left.SetKeyAt(lsize+i, right.KeyAt(i))
		left.SetValueAt(lsize+i, right.ValueAt(i))
	}
	left.SetSize(lsize + rsize)
	left.SetNextPageNo(right.NextPageNo())
	right.SetSize(0)
	parent.ShiftLeft(sepIdx)
}

// mergeInternals 父分隔键下拉为合并节点的首个非哨兵键，右节点整体并入左节点
func (t *BPlusTree) mergeInternals(left, right *pages.InternalPage, parent *pages.InternalPage, sepIdx int) {
	lsize, rsize := left.Size(), right.Size()
	left.SetKeyAt(lsize, parent.KeyAt(sepIdx))
	left.SetChildAt(lsize, right.ChildAt(0))
	for i := 1; i < rsize; i++ {
		left.SetKeyAt(lsize+i, right.KeyAt(i))
		left.SetChildAt(lsize+i, right.ChildAt(i))
	}
	left.SetSize(lsize + rsize)
	right.SetSize(0)
	parent.ShiftLeft(sepIdx)
}
