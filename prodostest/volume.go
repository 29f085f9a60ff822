// Package prodostest builds small, valid ProDOS volume images entirely in
// memory for use by the engine's own tests, and (LoadCompressedImage) loads
// an RLE8+gzip-compressed image as a single contiguous in-memory ProDOS
// volume this repo's BlockIO reads straight off of via bytesextra. The
// repository itself holds no compressed fixture images.
package prodostest

import (
	"encoding/binary"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/blockio"
	"github.com/bobbimanners/prodosort/prodos"
	"github.com/xaionaro-go/bytesextra"
)

// EntrySpec describes one directory entry to place in a synthetic volume,
// in the exact order it should occupy the next free slot — callers control
// ordering directly so that scenarios like "files C, A, B in that literal
// order, then sorted by name" are reproducible.
type EntrySpec struct {
	Name             string
	IsDir            bool
	Type             byte
	Contents         []byte // written as a single seedling block; nil is fine
	CreationTime     [4]byte
	ModificationTime [4]byte
	BlocksUsedOverride uint16 // 0 means "compute from the seedling's 1 block"
	Subdir           *DirSpec
}

// DirSpec describes one subdirectory's own entries.
type DirSpec struct {
	Entries []EntrySpec
}

// VolumeSpec describes an entire synthetic volume to build.
type VolumeSpec struct {
	Name        string
	TotalBlocks uint
	Entries     []EntrySpec

	// FreeBlocksOverride, if non-nil, replaces the computed free-list bits
	// for these block numbers (true = mark free), letting a test set up an
	// inconsistent free-list deliberately — e.g. a block that's actually
	// reachable from a live file but incorrectly marked free.
	FreeBlocksOverride map[uint]bool
}

// builder bump-allocates blocks for a volume being constructed. Blocks
// 0-1 are the boot blocks, 2-5 are the fixed 4-block volume directory, and
// the free-list immediately follows; everything after that is handed out to
// directories and files in the order they're built.
type builder struct {
	image       []byte
	next        prodos.BlockNumber
	freeListAt  prodos.BlockNumber
	freeListLen int
}

func (b *builder) block(n prodos.BlockNumber) []byte {
	off := int(n) * prodos.BlockSize
	return b.image[off : off+prodos.BlockSize]
}

func (b *builder) alloc() prodos.BlockNumber {
	n := b.next
	b.next++
	return n
}

// Build constructs a complete, internally consistent volume image: a
// correctly chained 4-block volume directory (with file_count,
// header_pointer, and block accounting all correct) and one seedling block
// per file entry, any number of levels of subdirectories, and a free-list
// reflecting exactly the blocks actually used — unless overridden via
// FreeBlocksOverride.
func Build(spec VolumeSpec) []byte {
	freeListLen := int((spec.TotalBlocks + 4095) / 4096)
	b := &builder{
		image:       make([]byte, spec.TotalBlocks*prodos.BlockSize),
		next:        prodos.BlockNumber(6 + freeListLen),
		freeListAt:  6,
		freeListLen: freeListLen,
	}

	volDirBlocks := []prodos.BlockNumber{2, 3, 4, 5}
	b.writeDirectory(volDirBlocks, prodos.StorageVolumeDirectoryHeader, spec.Name, 0, 0, b.freeListAt, spec.Entries)

	free := bitmap.New(spec.TotalBlocks)
	for i := uint(b.next); i < spec.TotalBlocks; i++ {
		free.Set(i)
	}
	for block, isFree := range spec.FreeBlocksOverride {
		if isFree {
			free.Set(block)
		} else {
			free.Clear(block)
		}
	}
	raw := free.ToBytes()
	for i := 0; i < freeListLen; i++ {
		copy(b.block(b.freeListAt+prodos.BlockNumber(i)), raw[i*prodos.BlockSize:(i+1)*prodos.BlockSize])
	}

	return b.image
}

// writeDirectory lays out one directory's fixed set of blocks (already
// allocated by the caller — 4 for the volume directory, and for every
// subdirectory this builder creates as many as blocksNeededForEntries
// reports for its entry count) and its entries, recursing into any
// subdirectory entries to allocate and write their own block chains.
func (b *builder) writeDirectory(blocks []prodos.BlockNumber, headerType prodos.StorageType, name string, parentEntryNum, parentEntryLen byte, parentOrBitmapPointer prodos.BlockNumber, entries []EntrySpec) {
	for i, blockNum := range blocks {
		block := b.block(blockNum)
		var prev, next uint16
		if i > 0 {
			prev = uint16(blocks[i-1])
		}
		if i+1 < len(blocks) {
			next = uint16(blocks[i+1])
		}
		binary.LittleEndian.PutUint16(block[0:2], prev)
		binary.LittleEndian.PutUint16(block[2:4], next)
	}

	header := prodos.EntryBytes(b.block(blocks[0])[4 : 4+prodos.DirectoryEntrySize])
	nameBytes := toRawName(name)
	header.SetStorageTypeAndLength(headerType, len(name))
	header.SetRawName(nameBytes)
	header.SetEntrySize(prodos.DirectoryEntrySize)
	header.SetEntriesPerBlock(prodos.EntriesPerBlock)
	header.SetParentPointer(parentOrBitmapPointer)
	header.SetParentEntryNumber(parentEntryNum)
	header.SetParentEntryLength(parentEntryLen)

	const keyBlockCapacity = prodos.EntriesPerBlock - 1
	for slotIdx, spec := range entries {
		var blockPos, slotInBlock int
		if slotIdx < keyBlockCapacity {
			blockPos = 0
			slotInBlock = slotIdx + 1
		} else {
			remaining := slotIdx - keyBlockCapacity
			blockPos = 1 + remaining/prodos.EntriesPerBlock
			slotInBlock = remaining % prodos.EntriesPerBlock
		}
		if blockPos >= len(blocks) {
			break // caller allocated too few blocks for this many entries
		}
		off := 4 + slotInBlock*prodos.DirectoryEntrySize
		entry := prodos.EntryBytes(b.block(blocks[blockPos])[off : off+prodos.DirectoryEntrySize])
		b.writeEntry(entry, blocks[0], blocks[blockPos], slotInBlock, spec)
	}
	header.SetFileCount(uint16(len(entries)))
}

func (b *builder) writeEntry(entry prodos.EntryBytes, parentKeyBlock, containingBlock prodos.BlockNumber, slotInBlock int, spec EntrySpec) {
	name := toRawName(spec.Name)

	if spec.IsDir {
		subKey := b.alloc()
		entry.SetStorageTypeAndLength(prodos.StorageSubdirectory, len(spec.Name))
		entry.SetRawName(name)
		entry.SetKeyPointer(subKey)
		entry.SetHeaderPointer(parentKeyBlock)
		entry.SetCreationTime(spec.CreationTime)
		entry.SetModificationTime(spec.ModificationTime)
		entry.SetAccess(prodos.DefaultFileAccess)

		sub := spec.Subdir
		if sub == nil {
			sub = &DirSpec{}
		}
		subBlocks := []prodos.BlockNumber{subKey}
		for i := 1; i < blocksNeededForEntries(len(sub.Entries)); i++ {
			subBlocks = append(subBlocks, b.alloc())
		}
		entry.SetBlocksUsed(uint16(len(subBlocks)))
		b.writeDirectory(subBlocks, prodos.StorageSubdirectoryHeader, spec.Name, byte(slotInBlock+1), prodos.DirectoryEntrySize, containingBlock, sub.Entries)
		return
	}

	keyBlock := b.alloc()
	copy(b.block(keyBlock), spec.Contents)

	blocksUsed := spec.BlocksUsedOverride
	if blocksUsed == 0 {
		blocksUsed = 1
	}

	entry.SetStorageTypeAndLength(prodos.StorageSeedling, len(spec.Name))
	entry.SetRawName(name)
	entry.SetFileType(spec.Type)
	entry.SetKeyPointer(keyBlock)
	entry.SetBlocksUsed(blocksUsed)
	entry.SetEOF(uint32(len(spec.Contents)))
	entry.SetCreationTime(spec.CreationTime)
	entry.SetModificationTime(spec.ModificationTime)
	entry.SetAccess(prodos.DefaultFileAccess)
	entry.SetHeaderPointer(parentKeyBlock)
}

// blocksNeededForEntries mirrors sortengine.blocksNeeded's capacity rule (12
// slots in the key block, 13 in every continuation block) so that a
// synthetic subdirectory with more than 12 entries gets enough blocks
// allocated for all of them up front, the same way a real ProDOS directory
// that grew past one block would.
func blocksNeededForEntries(n int) int {
	if n <= 0 {
		return 1
	}
	const keyBlockCapacity = prodos.EntriesPerBlock - 1
	if n <= keyBlockCapacity {
		return 1
	}
	remaining := n - keyBlockCapacity
	return 1 + (remaining+prodos.EntriesPerBlock-1)/prodos.EntriesPerBlock
}

func toRawName(name string) [15]byte {
	var out [15]byte
	copy(out[:], name)
	return out
}

// OpenBlockIO wraps a synthetic volume's bytes in an in-memory
// io.ReadWriteSeeker and a ready-to-use BlockIO, the same as
// LoadCompressedImage but without a compression round-trip.
func OpenBlockIO(image []byte) *blockio.BlockIO {
	stream := bytesextra.NewReadWriteSeeker(image)
	return blockio.New(stream, uint(len(image))/prodos.BlockSize)
}
