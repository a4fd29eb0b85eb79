package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBigEndianRoundTrip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint16(0xBEEF), ReadUB2Byte2Int(ConvertUInt2Bytes(0xBEEF)))
	assert.Equal(t, uint32(0xDEADBEEF), ReadUB4Byte2UInt32(ConvertUInt4Bytes(0xDEADBEEF)))
	assert.Equal(t, uint64(0x0123456789ABCDEF), ReadUB8Byte2Long(ConvertULong8Bytes(0x0123456789ABCDEF)))
}

func TestWriteAtOffset(t *testing.T) {
	t.Parallel()

	buff := make([]byte, 16)
	WriteUB2(buff, 1, 0x1234)
	WriteUB4(buff, 4, 0xCAFEBABE)
	WriteUB8(buff, 8, 0x1122334455667788)

	assert.Equal(t, uint16(0x1234), ReadUB2Byte2Int(buff[1:3]))
	assert.Equal(t, uint32(0xCAFEBABE), ReadUB4Byte2UInt32(buff[4:8]))
	assert.Equal(t, uint64(0x1122334455667788), ReadUB8Byte2Long(buff[8:16]))
}
