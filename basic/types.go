package basic

import (
	"github.com/zhukovaskychina/xindex/util"
)

// InvalidPageNo 无效页号哨兵值
const InvalidPageNo uint32 = 0xFFFFFFFF

// RIDSize RID在叶子槽位中的固定宽度
const RIDSize = 8

// RID 行记录定位符，指向数据页中的一行
type RID struct {
	PageNo uint32
	SlotNo uint32
}

// Bytes 序列化为8字节大端
func (r RID) Bytes() []byte {
	buff := make([]byte, RIDSize)
	util.WriteUB4(buff, 0, r.PageNo)
	util.WriteUB4(buff, 4, r.SlotNo)
	return buff
}

// RIDFromBytes 从8字节大端反序列化
func RIDFromBytes(buff []byte) RID {
	return RID{
		PageNo: util.ReadUB4Byte2UInt32(buff[0:4]),
		SlotNo: util.ReadUB4Byte2UInt32(buff[4:8]),
	}
}

// Compare 三路比较器，a<b返回负数，a==b返回0，a>b返回正数
// 键为定宽字节串，排序语义由外部提供
type Compare func(a, b []byte) int

// KVIterator 键值对前向迭代器
type KVIterator interface {
	IsEnd() bool
	Next()
	Key() []byte
	Value() RID
}
