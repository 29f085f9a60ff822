package blockio

import (
	"testing"

	"github.com/bobbimanners/prodosort/prodos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newDevice(t *testing.T, totalBlocks uint) *BlockIO {
	t.Helper()
	buf := make([]byte, totalBlocks*prodos.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)
	return New(stream, totalBlocks)
}

func TestReadWrite_RoundTrips(t *testing.T) {
	dev := newDevice(t, 10)
	data := make([]byte, prodos.BlockSize)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, dev.Write(5, data))

	got, err := dev.Read(5)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRead_OutOfRangeReturnsIoError(t *testing.T) {
	dev := newDevice(t, 10)
	_, err := dev.Read(10)
	require.Error(t, err)
	var ioErr *IoError
	require.ErrorAs(t, err, &ioErr)
	assert.EqualValues(t, 10, ioErr.Block)
}

func TestWrite_OutOfRangeReturnsIoError(t *testing.T) {
	dev := newDevice(t, 10)
	err := dev.Write(10, make([]byte, prodos.BlockSize))
	require.Error(t, err)
}

func TestWrite_WrongSizeIsRejected(t *testing.T) {
	dev := newDevice(t, 10)
	err := dev.Write(0, make([]byte, 10))
	require.Error(t, err)
}

func TestWrite_SuppressedForLibraryDirectories(t *testing.T) {
	dev := newDevice(t, 10)
	original := make([]byte, prodos.BlockSize)
	for i := range original {
		original[i] = 0xFF
	}
	require.NoError(t, dev.Write(3, original))

	dev.SuppressWritesFor = "LIB"
	newData := make([]byte, prodos.BlockSize) // all zero
	err := dev.Write(3, newData)
	require.NoError(t, err) // reports success...

	got, err := dev.Read(3)
	require.NoError(t, err)
	assert.Equal(t, original, got) // ...but the write never actually happened.
}

func TestWrite_NotSuppressedForUnrelatedNames(t *testing.T) {
	dev := newDevice(t, 10)
	dev.SuppressWritesFor = "GAMES"
	data := make([]byte, prodos.BlockSize)
	data[0] = 0x42
	require.NoError(t, dev.Write(3, data))

	got, err := dev.Read(3)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), got[0])
}
