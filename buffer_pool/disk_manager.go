package buffer_pool

import (
	"io"
	"os"
	"sync"

	"github.com/OneOfOne/xxhash"
	jerrors "github.com/juju/errors"

	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/util"
)

// ChecksumSize 页面持久化时附加的xxhash64校验和长度
const ChecksumSize = 8

// DiskManager 单文件页式存储
// 文件按 pageSize+ChecksumSize 定长分槽，页号即槽号
// 每页写出时追加内容的xxhash64，读入时校验
type DiskManager struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	pageSize   int
	nextPageNo uint32
	freeList   []uint32 // 被释放等待复用的页号，仅驻留内存
}

// NewDiskManager 打开或创建数据文件
func NewDiskManager(filePath string, pageSize int) (*DiskManager, error) {
	existed, err := util.PathExists(filePath)
	if err != nil {
		return nil, jerrors.Annotatef(err, "probe data file %s", filePath)
	}

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, jerrors.Annotatef(err, "open data file %s", filePath)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, jerrors.Annotatef(err, "stat data file %s", filePath)
	}

	d := &DiskManager{
		file:       file,
		filePath:   filePath,
		pageSize:   pageSize,
		nextPageNo: uint32(stat.Size() / int64(pageSize+ChecksumSize)),
	}
	if existed {
		logger.Debugf("disk manager reopened %s, %d pages on disk", filePath, d.nextPageNo)
	} else {
		logger.Infof("disk manager created data file %s", filePath)
	}
	return d, nil
}

// pageChecksum 页面内容的xxhash64校验和
// 每个磁盘槽位在pageSize字节内容之后携带ChecksumSize字节的大端trailer，
// WritePage写出时计算，ReadPage读入时必须与重算结果一致
func pageChecksum(content []byte) uint64 {
	h := xxhash.New64()
	h.Write(content)
	return h.Sum64()
}

// PageSize 页面大小
func (d *DiskManager) PageSize() int {
	return d.pageSize
}

func (d *DiskManager) slotOffset(pageNo uint32) int64 {
	return int64(pageNo) * int64(d.pageSize+ChecksumSize)
}

// AllocatePage 分配一个页号，优先复用已释放的页
func (d *DiskManager) AllocatePage() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n := len(d.freeList); n > 0 {
		pageNo := d.freeList[n-1]
		d.freeList = d.freeList[:n-1]
		return pageNo
	}
	pageNo := d.nextPageNo
	d.nextPageNo++
	return pageNo
}

// DeallocatePage 释放页号供后续分配复用
func (d *DiskManager) DeallocatePage(pageNo uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freeList = append(d.freeList, pageNo)
}

// ReadPage 读入一页并校验，未落盘过的页返回全零内容
func (d *DiskManager) ReadPage(pageNo uint32, buf []byte) error {
	if pageNo == basic.InvalidPageNo {
		return jerrors.Trace(ErrInvalidPageNo)
	}

	slot := make([]byte, d.pageSize+ChecksumSize)
	n, err := d.file.ReadAt(slot, d.slotOffset(pageNo))
	if err == io.EOF && n == 0 {
		// 分配后尚未刷出的页
		for i := range buf[:d.pageSize] {
			buf[i] = 0
		}
		return nil
	}
	if err != nil && err != io.EOF {
		return jerrors.Annotatef(err, "read page %d from %s", pageNo, d.filePath)
	}

	content := slot[:d.pageSize]
	stored := util.ReadUB8Byte2Long(slot[d.pageSize:])
	if stored != pageChecksum(content) {
		if stored == 0 && isZeroPage(content) {
			// 文件空洞，同样视为未落盘的页
			copy(buf, content)
			return nil
		}
		logger.Errorf("checksum mismatch on page %d of %s", pageNo, d.filePath)
		return jerrors.Annotatef(ErrPageCorrupted, "page %d", pageNo)
	}

	copy(buf, content)
	return nil
}

// WritePage 写出一页并附加校验和
func (d *DiskManager) WritePage(pageNo uint32, buf []byte) error {
	if pageNo == basic.InvalidPageNo {
		return jerrors.Trace(ErrInvalidPageNo)
	}

	slot := make([]byte, d.pageSize+ChecksumSize)
	copy(slot, buf[:d.pageSize])
	util.WriteUB8(slot, d.pageSize, pageChecksum(slot[:d.pageSize]))

	if _, err := d.file.WriteAt(slot, d.slotOffset(pageNo)); err != nil {
		return jerrors.Annotatef(err, "write page %d to %s", pageNo, d.filePath)
	}
	return nil
}

// Sync 落盘
func (d *DiskManager) Sync() error {
	return jerrors.Trace(d.file.Sync())
}

// Close 关闭数据文件
func (d *DiskManager) Close() error {
	return jerrors.Trace(d.file.Close())
}

func isZeroPage(content []byte) bool {
	for _, b := range content {
		if b != 0 {
			return false
		}
	}
	return true
}
