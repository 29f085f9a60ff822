package prodos

import "encoding/binary"

// EntryBytes is a single 39-byte directory slot — either a directory header
// or a file/subdirectory entry, both of which overlay the same byte layout
// for the fields they share. It's backed by a slice into the
// in-memory image of a directory block; mutating it mutates that block.
type EntryBytes []byte

// NameLength returns the low nibble of byte 0: the length of the name, 0-15.
func (e EntryBytes) NameLength() int {
	return int(e[0] & 0x0f)
}

// StorageType returns the high nibble of byte 0.
func (e EntryBytes) StorageType() StorageType {
	return StorageType(e[0] >> 4)
}

// SetStorageTypeAndLength packs the storage type nibble and name length
// nibble back into byte 0.
func (e EntryBytes) SetStorageTypeAndLength(t StorageType, length int) {
	e[0] = byte(t)<<4 | byte(length&0x0f)
}

// IsEmpty reports whether this slot is unused. ProDOS does not distinguish
// "never used" from "deleted" at the storage-type level, so typ_len == 0 is
// the sole test for an empty slot.
func (e EntryBytes) IsEmpty() bool {
	return e[0] == 0
}

// RawName returns the raw 15 name bytes, exactly as stored on disk (before
// any case-bitmap decoding).
func (e EntryBytes) RawName() [15]byte {
	var name [15]byte
	copy(name[:], e[1:16])
	return name
}

func (e EntryBytes) SetRawName(name [15]byte) {
	copy(e[1:16], name[:])
}

// Version and MinVersion double as the 15-bit case bitmap when this is a
// file/subdirectory entry or directory header.
func (e EntryBytes) Version() byte    { return e[28] }
func (e EntryBytes) MinVersion() byte { return e[29] }

func (e EntryBytes) SetVersion(v byte)    { e[28] = v }
func (e EntryBytes) SetMinVersion(v byte) { e[29] = v }

func (e EntryBytes) Access() byte     { return e[30] }
func (e EntryBytes) SetAccess(a byte) { e[30] = a }

func (e EntryBytes) CreationTime() [4]byte {
	var t [4]byte
	copy(t[:], e[24:28])
	return t
}

func (e EntryBytes) SetCreationTime(t [4]byte) {
	copy(e[24:28], t[:])
}

////////////////////////////////////////////////////////////////////////////////
// Fields specific to a file/subdirectory entry (offsets 16-38).

func (e EntryBytes) FileType() byte     { return e[16] }
func (e EntryBytes) SetFileType(t byte) { e[16] = t }

func (e EntryBytes) KeyPointer() BlockNumber {
	return BlockNumber(binary.LittleEndian.Uint16(e[17:19]))
}

func (e EntryBytes) SetKeyPointer(b BlockNumber) {
	binary.LittleEndian.PutUint16(e[17:19], uint16(b))
}

func (e EntryBytes) BlocksUsed() uint16 {
	return binary.LittleEndian.Uint16(e[19:21])
}

func (e EntryBytes) SetBlocksUsed(n uint16) {
	binary.LittleEndian.PutUint16(e[19:21], n)
}

// EOF returns the 3-byte little-endian end-of-file byte offset.
func (e EntryBytes) EOF() uint32 {
	return uint32(e[21]) | uint32(e[22])<<8 | uint32(e[23])<<16
}

func (e EntryBytes) SetEOF(n uint32) {
	e[21] = byte(n)
	e[22] = byte(n >> 8)
	e[23] = byte(n >> 16)
}

func (e EntryBytes) AuxType() uint16 {
	return binary.LittleEndian.Uint16(e[31:33])
}

func (e EntryBytes) SetAuxType(n uint16) {
	binary.LittleEndian.PutUint16(e[31:33], n)
}

func (e EntryBytes) ModificationTime() [4]byte {
	var t [4]byte
	copy(t[:], e[33:37])
	return t
}

func (e EntryBytes) SetModificationTime(t [4]byte) {
	copy(e[33:37], t[:])
}

// HeaderPointer returns the key-block of the directory this entry lives in.
func (e EntryBytes) HeaderPointer() BlockNumber {
	return BlockNumber(binary.LittleEndian.Uint16(e[37:39]))
}

func (e EntryBytes) SetHeaderPointer(b BlockNumber) {
	binary.LittleEndian.PutUint16(e[37:39], uint16(b))
}

////////////////////////////////////////////////////////////////////////////////
// Fields specific to a directory header (offsets 16-38 reinterpreted).

func (e EntryBytes) EntrySize() byte           { return e[31] }
func (e EntryBytes) EntriesPerBlock() byte     { return e[32] }
func (e EntryBytes) SetEntrySize(v byte)       { e[31] = v }
func (e EntryBytes) SetEntriesPerBlock(v byte) { e[32] = v }

func (e EntryBytes) FileCount() uint16 {
	return binary.LittleEndian.Uint16(e[33:35])
}

func (e EntryBytes) SetFileCount(n uint16) {
	binary.LittleEndian.PutUint16(e[33:35], n)
}

// ParentPointer is the parent directory's key-block for a subdirectory
// header, or the bitmap pointer block for a volume directory header.
func (e EntryBytes) ParentPointer() BlockNumber {
	return BlockNumber(binary.LittleEndian.Uint16(e[35:37]))
}

func (e EntryBytes) SetParentPointer(b BlockNumber) {
	binary.LittleEndian.PutUint16(e[35:37], uint16(b))
}

func (e EntryBytes) ParentEntryNumber() byte    { return e[37] }
func (e EntryBytes) SetParentEntryNumber(n byte) { e[37] = n }

func (e EntryBytes) ParentEntryLength() byte     { return e[38] }
func (e EntryBytes) SetParentEntryLength(n byte) { e[38] = n }

// BitmapPointer is an alias for ParentPointer: on the volume directory header
// it names the block where the free-list begins.
func (e EntryBytes) BitmapPointer() BlockNumber {
	return e.ParentPointer()
}
