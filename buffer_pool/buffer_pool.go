package buffer_pool

import (
	"fmt"

	"sync"

	jerrors "github.com/juju/errors"

	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/latch"
	"github.com/zhukovaskychina/xindex/logger"
)

// BufferPool 缓冲池管理器
// 固定数量的缓冲帧装载磁盘页，页面访问全部经由guard进行
// guard构造时pin并加锁，Drop时解锁并unpin，淘汰只发生在pin归零的帧上
type BufferPool struct {
	mu         sync.Mutex
	pageSize   int
	frames     []*BufferPage
	pageTable  map[uint32]int // 页号 -> 帧下标
	freeFrames []int
	replacer   *LRUReplacer
	disk       *DiskManager
	closed     bool
}

// NewBufferPool 创建缓冲池
func NewBufferPool(poolPages int, disk *DiskManager) (*BufferPool, error) {
	if poolPages <= 0 {
		return nil, jerrors.Trace(ErrInvalidConfig)
	}

	bp := &BufferPool{
		pageSize:   disk.PageSize(),
		frames:     make([]*BufferPage, poolPages),
		pageTable:  make(map[uint32]int),
		freeFrames: make([]int, 0, poolPages),
		replacer:   NewLRUReplacer(),
		disk:       disk,
	}
	for i := 0; i < poolPages; i++ {
		bp.frames[i] = NewBufferPage(bp.pageSize)
		bp.freeFrames = append(bp.freeFrames, i)
	}
	return bp, nil
}

// PageSize 页面大小
func (bp *BufferPool) PageSize() int {
	return bp.pageSize
}

// takeFrameLocked 取一个可用帧，必要时淘汰，调用方必须持有bp.mu
func (bp *BufferPool) takeFrameLocked() (int, error) {
	if n := len(bp.freeFrames); n > 0 {
		frameId := bp.freeFrames[n-1]
		bp.freeFrames = bp.freeFrames[:n-1]
		return frameId, nil
	}

	frameId, ok := bp.replacer.Victim()
	if !ok {
		return -1, jerrors.Trace(ErrBufferPoolFull)
	}

	victim := bp.frames[frameId]
	if victim.dirty {
		if err := bp.disk.WritePage(victim.pageNo, victim.content); err != nil {
			// 淘汰失败的帧放回淘汰器，避免丢帧
			bp.replacer.Unpin(frameId)
			return -1, jerrors.Annotatef(err, "evict page %d", victim.pageNo)
		}
		victim.dirty = false
	}
	delete(bp.pageTable, victim.pageNo)
	return frameId, nil
}

// fetchFrame 装载页面并pin住所在帧
func (bp *BufferPool) fetchFrame(pageNo uint32) (*BufferPage, int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil, -1, jerrors.Trace(ErrPoolClosed)
	}

	if frameId, ok := bp.pageTable[pageNo]; ok {
		frame := bp.frames[frameId]
		frame.pinCount++
		if frame.pinCount == 1 {
			bp.replacer.Pin(frameId)
		}
		return frame, frameId, nil
	}

	frameId, err := bp.takeFrameLocked()
	if err != nil {
		return nil, -1, err
	}
	frame := bp.frames[frameId]
	frame.reset(pageNo)
	if err := bp.disk.ReadPage(pageNo, frame.content); err != nil {
		bp.freeFrames = append(bp.freeFrames, frameId)
		return nil, -1, err
	}

	bp.pageTable[pageNo] = frameId
	frame.pinCount = 1
	bp.replacer.Pin(frameId)
	return frame, frameId, nil
}

// newPageFrame 分配一个新页并pin住所在帧
func (bp *BufferPool) newPageFrame() (*BufferPage, int, uint32, error) {
	pageNo := bp.disk.AllocatePage()

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil, -1, 0, jerrors.Trace(ErrPoolClosed)
	}

	frameId, err := bp.takeFrameLocked()
	if err != nil {
		bp.disk.DeallocatePage(pageNo)
		return nil, -1, 0, err
	}
	frame := bp.frames[frameId]
	frame.reset(pageNo)
	frame.dirty = true
	bp.pageTable[pageNo] = frameId
	frame.pinCount = 1
	bp.replacer.Pin(frameId)
	return frame, frameId, pageNo, nil
}

// unpin guard释放时回调
func (bp *BufferPool) unpin(frameId int, markDirty bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frame := bp.frames[frameId]
	if frame.pinCount <= 0 {
		panic(fmt.Sprintf("buffer_pool: unpin of frame %d with pin count %d", frameId, frame.pinCount))
	}
	if markDirty {
		frame.dirty = true
	}
	frame.pinCount--
	if frame.pinCount == 0 {
		bp.replacer.Unpin(frameId)
	}
}

// FetchReadGuard pin住页面并获取读锁
func (bp *BufferPool) FetchReadGuard(pageNo uint32) (*ReadGuard, error) {
	frame, frameId, err := bp.fetchFrame(pageNo)
	if err != nil {
		return nil, err
	}
	frame.lock.Acquire(latch.ModeRead)
	return &ReadGuard{pool: bp, frame: frame, frameId: frameId, pageNo: pageNo}, nil
}

// FetchWriteGuard pin住页面并获取写锁
func (bp *BufferPool) FetchWriteGuard(pageNo uint32) (*WriteGuard, error) {
	frame, frameId, err := bp.fetchFrame(pageNo)
	if err != nil {
		return nil, err
	}
	frame.lock.Acquire(latch.ModeWrite)
	return &WriteGuard{pool: bp, frame: frame, frameId: frameId, pageNo: pageNo}, nil
}

// FetchBasicGuard 只pin不加锁，供调试遍历使用
func (bp *BufferPool) FetchBasicGuard(pageNo uint32) (*BasicGuard, error) {
	frame, frameId, err := bp.fetchFrame(pageNo)
	if err != nil {
		return nil, err
	}
	return &BasicGuard{pool: bp, frame: frame, frameId: frameId, pageNo: pageNo}, nil
}

// NewPageGuarded 分配新页，返回未加锁的guard与新页号
func (bp *BufferPool) NewPageGuarded() (*BasicGuard, uint32, error) {
	frame, frameId, pageNo, err := bp.newPageFrame()
	if err != nil {
		return nil, 0, err
	}
	return &BasicGuard{pool: bp, frame: frame, frameId: frameId, pageNo: pageNo}, pageNo, nil
}

// DeletePage 释放页面，仅当页面未被pin住时成功
// 调用方需保证没有并发路径还能路由到该页
func (bp *BufferPool) DeletePage(pageNo uint32) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameId, ok := bp.pageTable[pageNo]; ok {
		frame := bp.frames[frameId]
		if frame.pinCount > 0 {
			return false
		}
		delete(bp.pageTable, pageNo)
		bp.replacer.Pin(frameId)
		frame.reset(basic.InvalidPageNo)
		bp.freeFrames = append(bp.freeFrames, frameId)
	}
	bp.disk.DeallocatePage(pageNo)
	return true
}

// FlushAllPages 写出所有脏页
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageNo, frameId := range bp.pageTable {
		frame := bp.frames[frameId]
		if !frame.dirty {
			continue
		}
		if err := bp.disk.WritePage(pageNo, frame.content); err != nil {
			return jerrors.Annotatef(err, "flush page %d", pageNo)
		}
		frame.dirty = false
	}
	return nil
}

// Close 刷出脏页并关闭底层文件
func (bp *BufferPool) Close() error {
	if err := bp.FlushAllPages(); err != nil {
		return err
	}

	bp.mu.Lock()
	bp.closed = true
	bp.mu.Unlock()

	if err := bp.disk.Sync(); err != nil {
		logger.Errorf("sync data file failed: %v", err)
		return err
	}
	return bp.disk.Close()
}
