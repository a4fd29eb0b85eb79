package util

// 大端字节序读写工具，页面编码统一使用大端

func ReadUB2Byte2Int(buff []byte) uint16 {
	return uint16(buff[0])<<8 | uint16(buff[1])
}

func ReadUB4Byte2UInt32(buff []byte) uint32 {
	return uint32(buff[0])<<24 | uint32(buff[1])<<16 | uint32(buff[2])<<8 | uint32(buff[3])
}

func ReadUB8Byte2Long(buff []byte) uint64 {
	var result uint64
	for i := 0; i < 8; i++ {
		result = result<<8 | uint64(buff[i])
	}
	return result
}

func ConvertUInt2Bytes(i uint16) []byte {
	return []byte{byte(i >> 8), byte(i)}
}

func ConvertUInt4Bytes(i uint32) []byte {
	return []byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)}
}

func ConvertULong8Bytes(i uint64) []byte {
	return []byte{
		byte(i >> 56), byte(i >> 48), byte(i >> 40), byte(i >> 32),
		byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i),
	}
}

// WriteUB2 在指定偏移处写入2字节大端整数
func WriteUB2(buff []byte, offset int, i uint16) {
	buff[offset] = byte(i >> 8)
	buff[offset+1] = byte(i)
}

// WriteUB4 在指定偏移处写入4字节大端整数
func WriteUB4(buff []byte, offset int, i uint32) {
	buff[offset] = byte(i >> 24)
	buff[offset+1] = byte(i >> 16)
	buff[offset+2] = byte(i >> 8)
	buff[offset+3] = byte(i)
}

// WriteUB8 在指定偏移处写入8字节大端整数
func WriteUB8(buff []byte, offset int, i uint64) {
	for j := 0; j < 8; j++ {
		buff[offset+j] = byte(i >> uint(56-8*j))
	}
}
