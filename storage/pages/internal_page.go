package pages

import (
	"github.com/zhukovaskychina/xindex/util"
)

// InternalPage 内部节点页视图
// 槽位i存放 (key_i, child_i)，槽位0的key为哨兵，永不读取
// 对于i>=1，child_i子树内所有键 >= key_i，child_{i-1}子树内所有键 < key_i
type InternalPage struct {
	BTreePage
	keySize int
}

// NewInternalPage 将页面字节解释为内部节点页
func NewInternalPage(data []byte, keySize int) *InternalPage {
	return &InternalPage{BTreePage: BTreePage{data: data}, keySize: keySize}
}

// Init 初始化内部节点页
func (p *InternalPage) Init(maxSize int) {
	p.initNode(PageKindInternal, maxSize)
}

// InternalCapacity 按页面大小计算内部节点槽位容量
func InternalCapacity(pageSize, keySize int) int {
	return (pageSize - InternalSlotsOffset) / (keySize + ChildPtrSize)
}

func (p *InternalPage) slotOffset(i int) int {
	return InternalSlotsOffset + i*(p.keySize+ChildPtrSize)
}

// KeyAt 读取槽位i的键，返回页面内字节的切片视图
func (p *InternalPage) KeyAt(i int) []byte {
	off := p.slotOffset(i)
	return p.data[off : off+p.keySize]
}

// SetKeyAt 写入槽位i的键
func (p *InternalPage) SetKeyAt(i int, key []byte) {
	copy(p.data[p.slotOffset(i):], key[:p.keySize])
}

// ChildAt 读取槽位i的子页号
func (p *InternalPage) ChildAt(i int) uint32 {
	off := p.slotOffset(i) + p.keySize
	return util.ReadUB4Byte2UInt32(p.data[off : off+4])
}

// SetChildAt 写入槽位i的子页号
func (p *InternalPage) SetChildAt(i int, pageNo uint32) {
	util.WriteUB4(p.data, p.slotOffset(i)+p.keySize, pageNo)
}

// ShiftRight 槽位[pos, size)整体右移一位并扩容
// 调用后槽位pos为未定义内容，等待写入
func (p *InternalPage) ShiftRight(pos int) {
	size := p.Size()
	p.IncreaseSize(1)
	copy(p.data[p.slotOffset(pos+1):p.slotOffset(size+1)], p.data[p.slotOffset(pos):p.slotOffset(size)])
}

// ShiftLeft 槽位[pos+1, size)整体左移一位并缩容，槽位pos被覆盖
func (p *InternalPage) ShiftLeft(pos int) {
	size := p.Size()
	copy(p.data[p.slotOffset(pos):p.slotOffset(size-1)], p.data[p.slotOffset(pos+1):p.slotOffset(size)])
	p.IncreaseSize(-1)
}

// ChildIndex 返回页号等于child的槽位下标，不存在返回-1
func (p *InternalPage) ChildIndex(child uint32) int {
	for i := 0; i < p.Size(); i++ {
		if p.ChildAt(i) == child {
			return i
		}
	}
	return -1
}
