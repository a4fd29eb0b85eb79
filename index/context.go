package index

import (
	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/buffer_pool"
)

// Context 单次写操作的下降上下文
// writeSet自顶向下保存仍被持有的祖先写guard，构成下降路径的连续后缀
// 头页guard在读出根页号后立即释放，根更新时再重新获取
type Context struct {
	headerGuard *buffer_pool.WriteGuard
	writeSet    []*buffer_pool.WriteGuard
	rootPageNo  uint32
}

// NewContext 创建下降上下文
func NewContext() *Context {
	return &Context{rootPageNo: basic.InvalidPageNo}
}

// ReleaseHeader 释放头页guard
func (c *Context) ReleaseHeader() {
	if c.headerGuard != nil {
		c.headerGuard.Drop()
		c.headerGuard = nil
	}
}

// PushBack 记录新下降到的节点guard
func (c *Context) PushBack(g *buffer_pool.WriteGuard) {
	c.writeSet = append(c.writeSet, g)
}

// Len 仍被持有的节点guard数量
func (c *Context) Len() int {
	return len(c.writeSet)
}

// Back 当前最深的节点guard
func (c *Context) Back() *buffer_pool.WriteGuard {
	return c.writeSet[len(c.writeSet)-1]
}

// At 第i个节点guard，0为最浅
func (c *Context) At(i int) *buffer_pool.WriteGuard {
	return c.writeSet[i]
}

// PopBack 释放并移除最深的节点guard
func (c *Context) PopBack() {
	last := len(c.writeSet) - 1
	c.writeSet[last].Drop()
	c.writeSet[last] = nil
	c.writeSet = c.writeSet[:last]
}

// ReleaseAllButLast 当前节点已证明安全，自顶向下释放所有祖先
func (c *Context) ReleaseAllButLast() {
	for len(c.writeSet) > 1 {
		c.writeSet[0].Drop()
		c.writeSet = c.writeSet[1:]
	}
}

// Release 释放所有仍被持有的guard，所有退出路径都必须经过这里
func (c *Context) Release() {
	c.ReleaseHeader()
	for _, g := range c.writeSet {
		g.Drop()
	}
	c.writeSet = nil
}
