package basic

import (
	"bytes"

	"github.com/zhukovaskychina/xindex/util"
)

// CompareBytes 无符号字节串比较器
func CompareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Int64KeySize int64键的固定宽度
const Int64KeySize = 8

// Int64Key 将int64编码为保序的8字节键
// 符号位取反后按大端排列，字节序比较与数值比较一致
func Int64Key(v int64) []byte {
	return util.ConvertULong8Bytes(uint64(v) ^ (1 << 63))
}

// Int64FromKey 还原Int64Key编码的键
func Int64FromKey(key []byte) int64 {
	return int64(util.ReadUB8Byte2Long(key) ^ (1 << 63))
}

// CompareInt64 Int64Key编码键的比较器
func CompareInt64(a, b []byte) int {
	return bytes.Compare(a, b)
}
