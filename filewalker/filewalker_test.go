package filewalker

import (
	"encoding/binary"
	"testing"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/blockio"
	"github.com/bobbimanners/prodosort/prodos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newDevice(t *testing.T, totalBlocks uint) *blockio.BlockIO {
	t.Helper()
	buf := make([]byte, totalBlocks*prodos.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)
	return blockio.New(stream, totalBlocks)
}

func writePointers(t *testing.T, dev *blockio.BlockIO, block prodos.BlockNumber, pointers []prodos.BlockNumber) {
	t.Helper()
	data := make([]byte, prodos.BlockSize)
	for i, ptr := range pointers {
		data[i] = byte(ptr)
		data[i+256] = byte(ptr >> 8)
	}
	require.NoError(t, dev.Write(block, data))
}

func TestWalk_Seedling(t *testing.T) {
	dev := newDevice(t, 10)
	reachable := bitmap.New(10)
	w := New(dev, reachable, nil)

	n, err := w.Walk(5, prodos.StorageSeedling)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, reachable.IsSet(5))
}

func TestWalk_Sapling_CountsKeyBlockPlusLeaves(t *testing.T) {
	dev := newDevice(t, 20)
	writePointers(t, dev, 5, []prodos.BlockNumber{6, 7, 8})
	reachable := bitmap.New(20)
	w := New(dev, reachable, nil)

	n, err := w.Walk(5, prodos.StorageSapling)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n) // key block + 3 leaves
	for _, b := range []prodos.BlockNumber{5, 6, 7, 8} {
		assert.True(t, reachable.IsSet(uint(b)), "block %d reachable", b)
	}
}

// TestWalk_Sapling_FullIndexReports257Blocks verifies that a sapling with
// all 256 leaf pointers non-zero reports blocks_used = 257.
func TestWalk_Sapling_FullIndexReports257Blocks(t *testing.T) {
	dev := newDevice(t, 512)
	full := make([]prodos.BlockNumber, 256)
	for i := range full {
		full[i] = prodos.BlockNumber(256 + i)
	}
	writePointers(t, dev, 255, full)

	reachable := bitmap.New(512)
	w := New(dev, reachable, nil)

	n, err := w.Walk(255, prodos.StorageSapling)
	require.NoError(t, err)
	assert.EqualValues(t, 257, n)
}

func TestWalk_Tree_RecursesThroughSaplings(t *testing.T) {
	dev := newDevice(t, 30)
	// Master index at block 5 names two saplings at 10 and 15.
	writePointers(t, dev, 5, []prodos.BlockNumber{10, 15})
	writePointers(t, dev, 10, []prodos.BlockNumber{11, 12})
	writePointers(t, dev, 15, []prodos.BlockNumber{16})

	reachable := bitmap.New(30)
	w := New(dev, reachable, nil)

	n, err := w.Walk(5, prodos.StorageTree)
	require.NoError(t, err)
	// master(1) + sapling10(1+2) + sapling15(1+1) = 1+3+2 = 6
	assert.EqualValues(t, 6, n)
	for _, b := range []prodos.BlockNumber{5, 10, 11, 12, 15, 16} {
		assert.True(t, reachable.IsSet(uint(b)))
	}
}

func TestWalk_Fork_RecursesIntoDataAndResourceForks(t *testing.T) {
	dev := newDevice(t, 20)
	keyBlock := prodos.BlockNumber(5)
	data := make([]byte, prodos.BlockSize)
	// Data fork: seedling at block 6.
	data[0x000] = byte(prodos.StorageSeedling)
	binary.LittleEndian.PutUint16(data[0x001:0x003], 6)
	// Resource fork: seedling at block 7.
	data[0x100] = byte(prodos.StorageSeedling)
	binary.LittleEndian.PutUint16(data[0x101:0x103], 7)
	require.NoError(t, dev.Write(keyBlock, data))

	reachable := bitmap.New(20)
	w := New(dev, reachable, nil)

	n, err := w.Walk(keyBlock, prodos.StorageExtended)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n) // fork key + data seedling + resource seedling
	for _, b := range []prodos.BlockNumber{5, 6, 7} {
		assert.True(t, reachable.IsSet(uint(b)))
	}
}

func TestWalk_WarnsOnSharedBlock(t *testing.T) {
	dev := newDevice(t, 10)
	reachable := bitmap.New(10)
	reachable.Set(5) // already claimed by an earlier file

	w := New(dev, reachable, nil)
	_, err := w.Walk(5, prodos.StorageSeedling)
	require.NoError(t, err)
	require.Len(t, w.Warnings, 1)
	assert.Contains(t, w.Warnings[0].Message, "already reachable")
}

func TestWalk_WarnsOnBlockMarkedFreeButInUse(t *testing.T) {
	dev := newDevice(t, 10)
	reachable := bitmap.New(10)
	freeList := bitmap.New(10)
	freeList.Set(5)

	w := New(dev, reachable, freeList)
	_, err := w.Walk(5, prodos.StorageSeedling)
	require.NoError(t, err)
	require.Len(t, w.Warnings, 1)
	assert.Contains(t, w.Warnings[0].Message, "marked free but is in use")
}
