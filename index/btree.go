package index

import (
	"fmt"

	jerrors "github.com/juju/errors"

	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/buffer_pool"
	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/storage/pages"
)

// BPlusTree 磁盘驻留的并发B+树，唯一键二级索引
//
// 并发协议为带乐观释放的蟹行加锁：下降顺序恒为自根向叶，
// 子节点先加锁、父节点后释放；写下降在遇到安全节点时立即释放其上全部祖先。
// 读路径同一时刻最多持有两把页锁。
type BPlusTree struct {
	name            string
	headerPageNo    uint32
	pool            *buffer_pool.BufferPool
	compare         basic.Compare
	keySize         int
	leafMaxSize     int
	internalMaxSize int
}

// NewBPlusTree 在给定头页上构建B+树
// 头页未初始化时写入魔数并将根页号置为无效，已初始化时沿用现有根
// leafMaxSize/internalMaxSize为0时按页面容量推导
func NewBPlusTree(name string, headerPageNo uint32, pool *buffer_pool.BufferPool,
	compare basic.Compare, keySize int, leafMaxSize int, internalMaxSize int) (*BPlusTree, error) {

	if compare == nil || keySize <= 0 {
		return nil, jerrors.Trace(basic.ErrInvalidConfig)
	}

	pageSize := pool.PageSize()
	leafCap := pages.LeafCapacity(pageSize, keySize)
	internalCap := pages.InternalCapacity(pageSize, keySize)
	if leafMaxSize == 0 {
		leafMaxSize = leafCap
	}
	if internalMaxSize == 0 {
		internalMaxSize = internalCap
	}
	if leafMaxSize < 2 || leafMaxSize > leafCap {
		return nil, jerrors.Annotatef(basic.ErrInvalidConfig, "leaf max size %d out of range [2,%d]", leafMaxSize, leafCap)
	}
	if internalMaxSize < 3 || internalMaxSize > internalCap {
		return nil, jerrors.Annotatef(basic.ErrInvalidConfig, "internal max size %d out of range [3,%d]", internalMaxSize, internalCap)
	}

	t := &BPlusTree{
		name:            name,
		headerPageNo:    headerPageNo,
		pool:            pool,
		compare:         compare,
		keySize:         keySize,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}

	guard, err := pool.FetchWriteGuard(headerPageNo)
	if err != nil {
		return nil, err
	}
	defer guard.Drop()

	header := pages.NewHeaderPage(guard.Data())
	if !header.IsInit() {
		header.Init()
		logger.Infof("index %s created, header page %d", name, headerPageNo)
	}
	return t, nil
}

// Name 索引名
func (t *BPlusTree) Name() string {
	return t.name
}

func (t *BPlusTree) leafView(data []byte) *pages.LeafPage {
	return pages.NewLeafPage(data, t.keySize)
}

func (t *BPlusTree) internalView(data []byte) *pages.InternalPage {
	return pages.NewInternalPage(data, t.keySize)
}

// IsEmpty 树是否为空
func (t *BPlusTree) IsEmpty() (bool, error) {
	guard, err := t.pool.FetchReadGuard(t.headerPageNo)
	if err != nil {
		return false, err
	}
	defer guard.Drop()
	return pages.NewHeaderPage(guard.Data()).RootPageNo() == basic.InvalidPageNo, nil
}

// RootPageNo 当前根页号
func (t *BPlusTree) RootPageNo() (uint32, error) {
	guard, err := t.pool.FetchReadGuard(t.headerPageNo)
	if err != nil {
		return basic.InvalidPageNo, err
	}
	defer guard.Drop()
	return pages.NewHeaderPage(guard.Data()).RootPageNo(), nil
}

// GetValue 点查，命中时向result追加一个RID
func (t *BPlusTree) GetValue(key []byte, result *[]basic.RID) (bool, error) {
	if err := t.checkKey(key); err != nil {
		return false, err
	}

	headerGuard, err := t.pool.FetchReadGuard(t.headerPageNo)
	if err != nil {
		return false, err
	}
	rootPageNo := pages.NewHeaderPage(headerGuard.Data()).RootPageNo()
	if rootPageNo == basic.InvalidPageNo {
		headerGuard.Drop()
		return false, nil
	}

	// 头页先放再锁根：根生长在持有根写锁期间回取头页写锁，
	// 持头等根会与之成环死锁
	headerGuard.Drop()
	guard, err := t.pool.FetchReadGuard(rootPageNo)
	if err != nil {
		return false, err
	}

	for !pages.NewBTreePage(guard.Data()).IsLeaf() {
		internal := t.internalView(guard.Data())
		childNo := internal.ChildAt(t.binaryFindInternal(internal, key))
		childGuard, err := t.pool.FetchReadGuard(childNo)
		guard.Drop()
		if err != nil {
			return false, err
		}
		guard = childGuard
	}
	defer guard.Drop()

	leaf := t.leafView(guard.Data())
	pos := t.binaryFindLeaf(leaf, key)
	if pos < 0 || t.compare(leaf.KeyAt(pos), key) != 0 {
		return false, nil
	}
	*result = append(*result, leaf.ValueAt(pos))
	return true, nil
}

// binaryFindLeaf 叶子内查找最大的下标r使key_at(r) <= key，不存在返回-1
func (t *BPlusTree) binaryFindLeaf(leaf *pages.LeafPage, key []byte) int {
	l, r := 0, leaf.Size()-1
	for l < r {
		mid := (l + r + 1) >> 1
		if t.compare(leaf.KeyAt(mid), key) <= 0 {
			l = mid
		} else {
			r = mid - 1
		}
	}
	if r >= 0 && t.compare(leaf.KeyAt(r), key) > 0 {
		r = -1
	}
	return r
}

// binaryFindInternal 内部节点在槽位[1,size)上查找最大的下标r使key_at(r) <= key
// key小于全部分隔键时返回0，即沿child_0下降；槽位0的键视为负无穷
func (t *BPlusTree) binaryFindInternal(node *pages.InternalPage, key []byte) int {
	l, r := 1, node.Size()-1
	for l < r {
		mid := (l + r + 1) >> 1
		if t.compare(node.KeyAt(mid), key) <= 0 {
			l = mid
		} else {
			r = mid - 1
		}
	}
	if r < 1 || t.compare(node.KeyAt(r), key) > 0 {
		r = 0
	}
	return r
}

func (t *BPlusTree) checkKey(key []byte) error {
	if len(key) != t.keySize {
		return fmt.Errorf("%w: got %d want %d", basic.ErrKeySizeMismatch, len(key), t.keySize)
	}
	return nil
}

func (t *BPlusTree) copyKey(key []byte) []byte {
	out := make([]byte, t.keySize)
	copy(out, key)
	return out
}

func (t *BPlusTree) corrupted(format string, args ...interface{}) {
	panic(fmt.Sprintf("index %s: %s", t.name, fmt.Sprintf(format, args...)))
}
