package prodos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newEntry() EntryBytes {
	return make(EntryBytes, DirectoryEntrySize)
}

func TestStorageTypeAndLength_RoundTrips(t *testing.T) {
	e := newEntry()
	e.SetStorageTypeAndLength(StorageSeedling, 5)
	assert.Equal(t, StorageSeedling, e.StorageType())
	assert.Equal(t, 5, e.NameLength())
}

func TestIsEmpty_TrueOnlyWhenTypeLenIsZero(t *testing.T) {
	e := newEntry()
	assert.True(t, e.IsEmpty())
	e.SetStorageTypeAndLength(StorageSeedling, 1)
	assert.False(t, e.IsEmpty())
}

// TestIsEmpty_IgnoresOtherFields verifies that a slot with type_len == 0 but
// non-zero other fields is still treated as empty.
func TestIsEmpty_IgnoresOtherFields(t *testing.T) {
	e := newEntry()
	e.SetFileType(0x04)
	e.SetKeyPointer(99)
	e.SetBlocksUsed(3)
	assert.True(t, e.IsEmpty())
}

func TestKeyPointer_RoundTrips(t *testing.T) {
	e := newEntry()
	e.SetKeyPointer(0x1234)
	assert.EqualValues(t, 0x1234, e.KeyPointer())
}

func TestBlocksUsed_RoundTrips(t *testing.T) {
	e := newEntry()
	e.SetBlocksUsed(257)
	assert.EqualValues(t, 257, e.BlocksUsed())
}

func TestEOF_RoundTrips24Bits(t *testing.T) {
	e := newEntry()
	e.SetEOF(0xABCDEF)
	assert.EqualValues(t, 0xABCDEF, e.EOF())
}

func TestAuxType_RoundTrips(t *testing.T) {
	e := newEntry()
	e.SetAuxType(0xBEEF)
	assert.EqualValues(t, 0xBEEF, e.AuxType())
}

func TestHeaderPointer_RoundTrips(t *testing.T) {
	e := newEntry()
	e.SetHeaderPointer(2)
	assert.EqualValues(t, 2, e.HeaderPointer())
}

func TestCreationAndModificationTime_DoNotAlias(t *testing.T) {
	e := newEntry()
	e.SetCreationTime([4]byte{1, 2, 3, 4})
	e.SetModificationTime([4]byte{5, 6, 7, 8})
	assert.Equal(t, [4]byte{1, 2, 3, 4}, e.CreationTime())
	assert.Equal(t, [4]byte{5, 6, 7, 8}, e.ModificationTime())
}

func TestRawName_RoundTrips(t *testing.T) {
	e := newEntry()
	var name [15]byte
	copy(name[:], "HELLO")
	e.SetRawName(name)
	assert.Equal(t, name, e.RawName())
}

func TestDirectoryHeaderFields_RoundTrip(t *testing.T) {
	e := newEntry()
	e.SetEntrySize(DirectoryEntrySize)
	e.SetEntriesPerBlock(EntriesPerBlock)
	e.SetFileCount(7)
	e.SetParentPointer(6)
	e.SetParentEntryNumber(3)
	e.SetParentEntryLength(DirectoryEntrySize)

	assert.Equal(t, byte(DirectoryEntrySize), e.EntrySize())
	assert.Equal(t, byte(EntriesPerBlock), e.EntriesPerBlock())
	assert.EqualValues(t, 7, e.FileCount())
	assert.EqualValues(t, 6, e.ParentPointer())
	assert.EqualValues(t, 6, e.BitmapPointer())
	assert.Equal(t, byte(3), e.ParentEntryNumber())
	assert.Equal(t, byte(DirectoryEntrySize), e.ParentEntryLength())
}

func TestEntryBytes_MutatesUnderlyingSlice(t *testing.T) {
	buf := make([]byte, DirectoryEntrySize)
	e := EntryBytes(buf)
	e.SetFileType(0x06)
	assert.Equal(t, byte(0x06), buf[16])
}
