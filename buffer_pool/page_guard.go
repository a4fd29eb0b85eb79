package buffer_pool

import (
	"github.com/zhukovaskychina/xindex/latch"
)

// 页面guard：构造即pin并按模式加锁，Drop解锁并unpin
// Drop幂等，任何退出路径都必须调用

// ReadGuard 共享锁guard
type ReadGuard struct {
	pool    *BufferPool
	frame   *BufferPage
	frameId int
	pageNo  uint32
	dropped bool
}

// PageNo 页号
func (g *ReadGuard) PageNo() uint32 {
	return g.pageNo
}

// Data 页面字节
func (g *ReadGuard) Data() []byte {
	return g.frame.content
}

// Drop 释放读锁并unpin
func (g *ReadGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.frame.lock.Release(latch.ModeRead)
	g.pool.unpin(g.frameId, false)
}

// WriteGuard 排他锁guard，Drop时将页面标脏
type WriteGuard struct {
	pool    *BufferPool
	frame   *BufferPage
	frameId int
	pageNo  uint32
	dropped bool
}

// PageNo 页号
func (g *WriteGuard) PageNo() uint32 {
	return g.pageNo
}

// Data 页面字节
func (g *WriteGuard) Data() []byte {
	return g.frame.content
}

// Drop 释放写锁、标脏并unpin
func (g *WriteGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.frame.lock.Release(latch.ModeWrite)
	g.pool.unpin(g.frameId, true)
}

// BasicGuard 只pin不加锁的guard
type BasicGuard struct {
	pool    *BufferPool
	frame   *BufferPage
	frameId int
	pageNo  uint32
	dropped bool
}

// PageNo 页号
func (g *BasicGuard) PageNo() uint32 {
	return g.pageNo
}

// Data 页面字节
// 未加锁，读到的内容可能正被并发修改，仅限调试遍历使用
func (g *BasicGuard) Data() []byte {
	return g.frame.content
}

// Drop unpin
func (g *BasicGuard) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.pool.unpin(g.frameId, false)
}

// UpgradeWrite 升级为写guard，pin转移到新guard
func (g *BasicGuard) UpgradeWrite() *WriteGuard {
	if g.dropped {
		panic("buffer_pool: upgrade of dropped guard")
	}
	g.dropped = true
	g.frame.lock.Acquire(latch.ModeWrite)
	return &WriteGuard{pool: g.pool, frame: g.frame, frameId: g.frameId, pageNo: g.pageNo}
}
