package pages

import (
	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/util"
)

// LeafPage 叶子节点页视图
// 槽位i存放 (key_i, rid_i)，键严格递增
// next_page_no串联起按键升序的叶子链表，最右叶子为InvalidPageNo
type LeafPage struct {
	BTreePage
	keySize int
}

// NewLeafPage 将页面字节解释为叶子节点页
func NewLeafPage(data []byte, keySize int) *LeafPage {
	return &LeafPage{BTreePage: BTreePage{data: data}, keySize: keySize}
}

// Init 初始化叶子节点页
func (p *LeafPage) Init(maxSize int) {
	p.initNode(PageKindLeaf, maxSize)
	p.SetNextPageNo(basic.InvalidPageNo)
}

// LeafCapacity 按页面大小计算叶子节点槽位容量
func LeafCapacity(pageSize, keySize int) int {
	return (pageSize - LeafSlotsOffset) / (keySize + basic.RIDSize)
}

func (p *LeafPage) slotOffset(i int) int {
	return LeafSlotsOffset + i*(p.keySize+basic.RIDSize)
}

// KeyAt 读取槽位i的键，返回页面内字节的切片视图
func (p *LeafPage) KeyAt(i int) []byte {
	off := p.slotOffset(i)
	return p.data[off : off+p.keySize]
}

// SetKeyAt 写入槽位i的键
func (p *LeafPage) SetKeyAt(i int, key []byte) {
	copy(p.data[p.slotOffset(i):], key[:p.keySize])
}

// ValueAt 读取槽位i的RID
func (p *LeafPage) ValueAt(i int) basic.RID {
	off := p.slotOffset(i) + p.keySize
	return basic.RIDFromBytes(p.data[off : off+basic.RIDSize])
}

// SetValueAt 写入槽位i的RID
func (p *LeafPage) SetValueAt(i int, rid basic.RID) {
	copy(p.data[p.slotOffset(i)+p.keySize:], rid.Bytes())
}

// NextPageNo 右兄弟页号
func (p *LeafPage) NextPageNo() uint32 {
	return util.ReadUB4Byte2UInt32(p.data[LeafNextOffset : LeafNextOffset+4])
}

// SetNextPageNo 设置右兄弟页号
func (p *LeafPage) SetNextPageNo(pageNo uint32) {
	util.WriteUB4(p.data, LeafNextOffset, pageNo)
}

// ShiftRight 槽位[pos, size)整体右移一位并扩容
// 调用后槽位pos为未定义内容，等待写入
func (p *LeafPage) ShiftRight(pos int) {
	size := p.Size()
	p.IncreaseSize(1)
	copy(p.data[p.slotOffset(pos+1):p.slotOffset(size+1)], p.data[p.slotOffset(pos):p.slotOffset(size)])
}

// ShiftLeft 槽位[pos+1, size)整体左移一位并缩容，槽位pos被覆盖
func (p *LeafPage) ShiftLeft(pos int) {
	size := p.Size()
	copy(p.data[p.slotOffset(pos):p.slotOffset(size-1)], p.data[p.slotOffset(pos+1):p.slotOffset(size)])
	p.IncreaseSize(-1)
}
