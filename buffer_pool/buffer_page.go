package buffer_pool

import (
	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/latch"
)

// BufferPage 缓冲帧控制块
// 元数据(pageNo/pinCount/dirty)由缓冲池互斥量保护
// content由lock保护，guard在持有pin期间加解锁
type BufferPage struct {
	pageNo   uint32
	content  []byte
	pinCount int
	dirty    bool
	lock     *latch.Latch
}

// NewBufferPage 创建一个空闲缓冲帧
func NewBufferPage(pageSize int) *BufferPage {
	return &BufferPage{
		pageNo:  basic.InvalidPageNo,
		content: make([]byte, pageSize),
		lock:    latch.NewLatch(),
	}
}

// PageNo 当前装载的页号
func (bp *BufferPage) PageNo() uint32 {
	return bp.pageNo
}

// Content 页面内容
func (bp *BufferPage) Content() []byte {
	return bp.content
}

// Latch 页面锁
func (bp *BufferPage) Latch() *latch.Latch {
	return bp.lock
}

func (bp *BufferPage) reset(pageNo uint32) {
	bp.pageNo = pageNo
	bp.dirty = false
	bp.pinCount = 0
	for i := range bp.content {
		bp.content[i] = 0
	}
}
