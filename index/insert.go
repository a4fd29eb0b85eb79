package index

import (
	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/buffer_pool"
	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/storage/pages"
)

// Insert 插入键值对，键已存在时返回false且不做任何修改
func (t *BPlusTree) Insert(key []byte, rid basic.RID) (bool, error) {
	if err := t.checkKey(key); err != nil {
		return false, err
	}

	ctx := NewContext()
	defer ctx.Release()

	headerGuard, err := t.pool.FetchWriteGuard(t.headerPageNo)
	if err != nil {
		return false, err
	}
	ctx.headerGuard = headerGuard

	header := pages.NewHeaderPage(headerGuard.Data())
	if header.RootPageNo() == basic.InvalidPageNo {
		// 空树，新建根叶子
		rootNo, err := t.newLeafRoot(key, rid)
		if err != nil {
			return false, err
		}
		header.SetRootPageNo(rootNo)
		logger.Debugf("index %s: new root leaf %d", t.name, rootNo)
		return true, nil
	}

	ctx.rootPageNo = header.RootPageNo()
	ctx.ReleaseHeader()

	// 写下降，遇到可再吸收一个分隔键的安全节点时释放其上全部祖先
	x := ctx.rootPageNo
	for {
		guard, err := t.pool.FetchWriteGuard(x)
		if err != nil {
			return false, err
		}
		ctx.PushBack(guard)
		node := pages.NewBTreePage(guard.Data())
		if node.IsLeaf() {
			break
		}
		internal := t.internalView(guard.Data())
		if internal.Size() < internal.MaxSize()-1 {
			ctx.ReleaseAllButLast()
		}
		x = internal.ChildAt(t.binaryFindInternal(internal, key))
	}

	leaf := t.leafView(ctx.Back().Data())
	pos := t.binaryFindLeaf(leaf, key)
	if pos >= 0 && t.compare(leaf.KeyAt(pos), key) == 0 {
		// 唯一键冲突
		return false, nil
	}
	leaf.ShiftRight(pos + 1)
	leaf.SetKeyAt(pos+1, key)
	leaf.SetValueAt(pos+1, rid)

	// 自底向上的分裂级联：最深节点写满才分裂
	// 最顶端之下被保留的祖先都未通过安全性测试，吸收一个分隔键后写满，在下一轮继续分裂
	for ctx.Len() > 1 {
		node := pages.NewBTreePage(ctx.Back().Data())
		if node.Size() < node.MaxSize() {
			break
		}
		midKey, rightNo, err := t.splitNode(ctx.Back())
		if err != nil {
			return false, err
		}
		ctx.PopBack()
		parent := t.internalView(ctx.Back().Data())
		t.insertIntoInternal(parent, midKey, rightNo)
	}

	// 保留的最顶端节点写满意味着路径上没有安全节点，该节点即根，树长高
	// 旧根的写锁持有到头页改指新根之后才释放
	top := pages.NewBTreePage(ctx.Back().Data())
	if top.Size() == top.MaxSize() {
		oldRootNo := ctx.Back().PageNo()
		midKey, rightNo, err := t.splitNode(ctx.Back())
		if err != nil {
			return false, err
		}

		newRootGuard, newRootNo, err := t.pool.NewPageGuarded()
		if err != nil {
			return false, err
		}
		rootGuard := newRootGuard.UpgradeWrite()
		newRoot := t.internalView(rootGuard.Data())
		newRoot.Init(t.internalMaxSize)
		newRoot.SetSize(2)
		newRoot.SetChildAt(0, oldRootNo)
		newRoot.SetKeyAt(1, midKey)
		newRoot.SetChildAt(1, rightNo)
		rootGuard.Drop()

		headerGuard, err := t.pool.FetchWriteGuard(t.headerPageNo)
		if err != nil {
			return false, err
		}
		pages.NewHeaderPage(headerGuard.Data()).SetRootPageNo(newRootNo)
		headerGuard.Drop()
		logger.Debugf("index %s: root grew to %d", t.name, newRootNo)
	}

	return true, nil
}

// newLeafRoot 以单个键值对创建根叶子
func (t *BPlusTree) newLeafRoot(key []byte, rid basic.RID) (uint32, error) {
	newGuard, pageNo, err := t.pool.NewPageGuarded()
	if err != nil {
		return basic.InvalidPageNo, err
	}
	guard := newGuard.UpgradeWrite()
	defer guard.Drop()

	leaf := t.leafView(guard.Data())
	leaf.Init(t.leafMaxSize)
	leaf.SetSize(1)
	leaf.SetKeyAt(0, key)
	leaf.SetValueAt(0, rid)
	return pageNo, nil
}

// splitNode 将写满的节点对半分裂，返回上推的分隔键与新建右兄弟页号
//
// 叶子分裂：右半slots整体搬迁，分隔键为右节点首键，并接入叶子链表
// 内部分裂：槽位lsize的键上推且不落入右节点，由右节点槽位0哨兵取代
func (t *BPlusTree) splitNode(g *buffer_pool.WriteGuard) ([]byte, uint32, error) {
	newGuard, rightNo, err := t.pool.NewPageGuarded()
	if err != nil {
		return nil, basic.InvalidPageNo, err
	}
	rightGuard := newGuard.UpgradeWrite()
	defer rightGuard.Drop()

	var midKey []byte
	if pages.NewBTreePage(g.Data()).IsLeaf() {
		left := t.leafView(g.Data())
		right := t.leafView(rightGuard.Data())
		right.Init(t.leafMaxSize)
		right.SetNextPageNo(left.NextPageNo())
		left.SetNextPageNo(rightNo)

		size := left.Size()
		lsize := size / 2
		right.SetSize(size - lsize)
		for i := lsize; i < size; i++ {
			right.SetKeyAt(i-lsize, left.KeyAt(i))
			right.SetValueAt(i-lsize, left.ValueAt(i))
		}
		left.SetSize(lsize)
		midKey = t.copyKey(right.KeyAt(0))
	} else {
		left := t.internalView(g.Data())
		right := t.internalView(rightGuard.Data())
		right.Init(t.internalMaxSize)

		size := left.Size()
		lsize := size / 2
		midKey = t.copyKey(left.KeyAt(lsize))
		right.SetSize(size - lsize)
		for i := lsize; i < size; i++ {
			if i > lsize {
				right.SetKeyAt(i-lsize, left.KeyAt(i))
			}
			right.SetChildAt(i-lsize, left.ChildAt(i))
		}
		left.SetSize(lsize)
	}
	return midKey, rightNo, nil
}

// insertIntoInternal 向内部节点写入 (分隔键, 右子页号)
// 调用方保证该节点尚未写满
func (t *BPlusTree) insertIntoInternal(parent *pages.InternalPage, key []byte, childNo uint32) {
	pos := t.binaryFindInternal(parent, key)
	parent.ShiftRight(pos + 1)
	parent.SetKeyAt(pos+1, key)
	parent.SetChildAt(pos+1, childNo)
}
