package pages

import (
	"fmt"

	"github.com/zhukovaskychina/xindex/util"
)

// BTreePage 节点页公共头视图，内部节点与叶子节点共享
// kind字段驱动运行期分发，两种节点不共享行为抽象
type BTreePage struct {
	data []byte
}

// NewBTreePage 将页面字节解释为节点页
func NewBTreePage(data []byte) *BTreePage {
	return &BTreePage{data: data}
}

// Kind 节点类型
func (p *BTreePage) Kind() uint16 {
	return util.ReadUB2Byte2Int(p.data[NodeKindOffset : NodeKindOffset+2])
}

// IsLeaf 是否为叶子节点
func (p *BTreePage) IsLeaf() bool {
	return p.Kind() == PageKindLeaf
}

// Size 已占用槽位数
func (p *BTreePage) Size() int {
	return int(util.ReadUB2Byte2Int(p.data[NodeSizeOffset : NodeSizeOffset+2]))
}

// SetSize 设置已占用槽位数
func (p *BTreePage) SetSize(size int) {
	if size < 0 || size > p.MaxSize() {
		panic(fmt.Sprintf("pages: node size %d out of range [0,%d]", size, p.MaxSize()))
	}
	util.WriteUB2(p.data, NodeSizeOffset, uint16(size))
}

// IncreaseSize 槽位数增减
func (p *BTreePage) IncreaseSize(delta int) {
	p.SetSize(p.Size() + delta)
}

// MaxSize 槽位容量
func (p *BTreePage) MaxSize() int {
	return int(util.ReadUB2Byte2Int(p.data[NodeMaxSizeOffset : NodeMaxSizeOffset+2]))
}

// MinSize 非根节点的最小占用
func (p *BTreePage) MinSize() int {
	return (p.MaxSize() + 1) / 2
}

func (p *BTreePage) initNode(kind uint16, maxSize int) {
	util.WriteUB2(p.data, NodeKindOffset, kind)
	util.WriteUB2(p.data, NodeSizeOffset, 0)
	util.WriteUB2(p.data, NodeMaxSizeOffset, uint16(maxSize))
	util.WriteUB2(p.data, 6, 0)
}
