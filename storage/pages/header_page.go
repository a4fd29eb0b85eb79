package pages

import (
	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/util"
)

// HeaderPage 索引头页视图，每棵树恰有一页
// 所有访问器直接读写页面字节，不做影子拷贝
type HeaderPage struct {
	data []byte
}

// NewHeaderPage 将页面字节解释为头页
func NewHeaderPage(data []byte) *HeaderPage {
	return &HeaderPage{data: data}
}

// Init 初始化头页，根页号置为无效
func (h *HeaderPage) Init() {
	copy(h.data[HeaderMagicOffset:], HeaderMagic[:])
	h.SetRootPageNo(basic.InvalidPageNo)
}

// IsInit 判断头页是否已初始化
func (h *HeaderPage) IsInit() bool {
	for i, b := range HeaderMagic {
		if h.data[HeaderMagicOffset+i] != b {
			return false
		}
	}
	return true
}

// RootPageNo 读取当前根页号
func (h *HeaderPage) RootPageNo() uint32 {
	return util.ReadUB4Byte2UInt32(h.data[HeaderRootOffset : HeaderRootOffset+4])
}

// SetRootPageNo 更新根页号
func (h *HeaderPage) SetRootPageNo(pageNo uint32) {
	util.WriteUB4(h.data, HeaderRootOffset, pageNo)
}
