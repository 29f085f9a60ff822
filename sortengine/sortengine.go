// Package sortengine rebuilds one directory's block layout in a
// user-chosen sort order, compacting the holes left by deleted entries.
package sortengine

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/blockio"
	"github.com/bobbimanners/prodosort/datetime"
	"github.com/bobbimanners/prodosort/dirreader"
	prodoserrors "github.com/bobbimanners/prodosort/errors"
	"github.com/bobbimanners/prodosort/namecase"
	"github.com/bobbimanners/prodosort/prodos"
	"github.com/noxer/bytewriter"
)

// slot locates one live entry by its position in the original directory
// image: which block (by index into img.Blocks, 0-based) and which 0-based
// slot within that block. bytes() always reads from a snapshot of the
// pre-sort block images, never from img.Data directly — once the rebuild
// below starts overwriting img.Data block by block, a later destination
// block could otherwise source an entry from an earlier block that's
// already been replaced with its rebuilt contents.
type slot struct {
	blockPos int
	slotNum  int
	order    int // original position, for stable tie-breaking
}

func (s slot) bytes(original map[prodos.BlockNumber][]byte, img *dirreader.Image) prodos.EntryBytes {
	block := original[img.Blocks[s.blockPos]]
	off := 4 + s.slotNum*prodos.DirectoryEntrySize
	return prodos.EntryBytes(block[off : off+prodos.DirectoryEntrySize])
}

// Engine rebuilds a directory image's block layout according to an ordered
// list of sort keys.
type Engine struct {
	Device    *blockio.BlockIO
	Reachable *bitmap.Bitmap
	FreeList  *bitmap.Bitmap
}

func New(device *blockio.BlockIO, reachable, freeList *bitmap.Bitmap) *Engine {
	return &Engine{Device: device, Reachable: reachable, FreeList: freeList}
}

// Result reports what Sort did, for the driver's "not writing" vs. trimmed-N
// reporting.
type Result struct {
	BlocksTrimmed int
}

// Sort rebuilds img's directory blocks in place according to keys (up to 4,
// applied in the order given — later keys dominate because each pass is a
// stable sort over the whole vector) and, if write is true, stages the
// rebuilt blocks and flushes them through the device in block-number order.
// It always performs the in-memory rebuild (so callers in "not writing" mode
// can still inspect the would-be layout), but only calls Device.Write when
// write is true. A device I/O failure while updating a relocated
// subdirectory's parent pointer is fatal, matching every other device I/O
// failure in the engine.
func (e *Engine) Sort(img *dirreader.Image, keys []byte, write bool) (*Result, error) {
	entries := collectLiveSlots(img)

	original := make(map[prodos.BlockNumber][]byte, len(img.Blocks))
	for _, blockNum := range img.Blocks {
		buf := make([]byte, len(img.Data[blockNum]))
		copy(buf, img.Data[blockNum])
		original[blockNum] = buf
	}

	for _, key := range keys {
		if key == '.' {
			continue // compaction only, no reordering
		}
		cmp := comparator(original, img, key)
		sort.SliceStable(entries, func(i, j int) bool { return cmp(entries[i], entries[j]) })
	}

	neededBlocks := blocksNeeded(len(entries))
	if img.KeyBlock == prodos.VolumeDirectoryKeyBlock && neededBlocks < prodos.VolumeDirectoryMinBlocks {
		neededBlocks = prodos.VolumeDirectoryMinBlocks
	}
	if neededBlocks > len(img.Blocks) {
		neededBlocks = len(img.Blocks) // can't grow past the blocks we read
	}

	entryIdx := 0
	for blockPos := 0; blockPos < neededBlocks; blockPos++ {
		blockNum := img.Blocks[blockPos]
		newBlock := make([]byte, prodos.BlockSize)

		oldBlock := img.Data[blockNum]
		copy(newBlock[0:2], oldBlock[0:2]) // previous-block pointer is unchanged

		next := uint16(0)
		if blockPos+1 < neededBlocks {
			next = uint16(img.Blocks[blockPos+1])
		}
		binary.LittleEndian.PutUint16(newBlock[2:4], next)

		w := bytewriter.New(newBlock[4:])
		capacity := prodos.EntriesPerBlock - 1
		if blockPos == 0 {
			// Slot 0 of the key block is the header; copy it verbatim.
			w.Write(oldBlock[4 : 4+prodos.DirectoryEntrySize])
		} else {
			capacity = prodos.EntriesPerBlock
		}

		for i := 0; i < capacity; i++ {
			dstSlot := i
			if blockPos == 0 {
				dstSlot = i + 1
			}
			if entryIdx < len(entries) {
				src := entries[entryIdx].bytes(original, img)
				if err := e.copyEntry(src, blockNum, dstSlot, write); err != nil {
					return nil, prodoserrors.NewFatalError(prodoserrors.IOOrStructuralFailure, err)
				}
				w.Write(src)
				entryIdx++
			} else {
				w.Write(make([]byte, prodos.DirectoryEntrySize))
			}
		}

		img.Data[blockNum] = newBlock
	}

	trimmed := e.trim(img, neededBlocks)

	if write {
		cache := blockio.NewStagingCache(img.Blocks[:neededBlocks])
		for _, blockNum := range img.Blocks[:neededBlocks] {
			cache.Put(blockNum, img.Data[blockNum])
		}
		if err := cache.Flush(e.Device.Write); err != nil {
			return nil, err
		}
	}

	return &Result{BlocksTrimmed: trimmed}, nil
}

// copyEntry updates a subdirectory's parent-pointer fields to point at its
// new destination slot, and (if write is enabled) flushes that update
// immediately — before the caller moves on to the next entry — rather than
// waiting for the whole directory to be staged. Read and Write failures are
// returned to the caller rather than swallowed, since a subdirectory header
// left with a stale parent pointer would corrupt the volume's directory
// tree.
func (e *Engine) copyEntry(entry prodos.EntryBytes, destBlock prodos.BlockNumber, destSlot int, write bool) error {
	if entry.StorageType() != prodos.StorageSubdirectory {
		return nil
	}
	subdirKey := entry.KeyPointer()
	header, err := e.Device.Read(subdirKey)
	if err != nil {
		return err
	}
	headerEntry := prodos.EntryBytes(header[4 : 4+prodos.DirectoryEntrySize])
	headerEntry.SetParentPointer(destBlock)
	headerEntry.SetParentEntryNumber(byte(destSlot + 1)) // on-disk entry numbers are 1-based
	headerEntry.SetParentEntryLength(prodos.DirectoryEntrySize)

	if write {
		return e.Device.Write(subdirKey, header)
	}
	return nil
}

// trim releases trailing blocks that ended up empty after the rebuild,
// never below the volume-directory floor.
func (e *Engine) trim(img *dirreader.Image, neededBlocks int) int {
	trimmed := len(img.Blocks) - neededBlocks
	if trimmed <= 0 {
		return 0
	}

	if neededBlocks > 0 {
		last := img.Blocks[neededBlocks-1]
		block := img.Data[last]
		binary.LittleEndian.PutUint16(block[2:4], 0)
	}

	for _, blockNum := range img.Blocks[neededBlocks:] {
		e.FreeList.Set(uint(blockNum))
		e.Reachable.Clear(uint(blockNum))
		delete(img.Data, blockNum)
	}
	img.Blocks = img.Blocks[:neededBlocks]
	return trimmed
}

// blocksNeeded computes how many directory blocks hold n entries: 12 in the
// key block (slot 0 is the header), 13 in every continuation block.
func blocksNeeded(n int) int {
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

func collectLiveSlots(img *dirreader.Image) []slot {
	var entries []slot
	order := 0
	for blockPos, blockNum := range img.Blocks {
		data := img.Data[blockNum]
		start := 0
		if blockPos == 0 {
			start = 1
		}
		for s := start; s < prodos.EntriesPerBlock; s++ {
			off := 4 + s*prodos.DirectoryEntrySize
			entry := prodos.EntryBytes(data[off : off+prodos.DirectoryEntrySize])
			if entry.IsEmpty() {
				continue
			}
			entries = append(entries, slot{blockPos: blockPos, slotNum: s, order: order})
			order++
		}
	}
	return entries
}

// comparator builds the less-than function for one sort key letter.
// Lowercase is ascending, uppercase is descending, except 'd'/'D' which mean
// directories-first/directories-last. original is the pre-sort snapshot of
// every block taken at the start of Sort, so that a later pass reading an
// entry's fields never sees a destination block this same call already
// rebuilt.
func comparator(original map[prodos.BlockNumber][]byte, img *dirreader.Image, key byte) func(a, b slot) bool {
	switch key {
	case 'n':
		return nameCmp(original, img, false, false)
	case 'N':
		return nameCmp(original, img, false, true)
	case 'i':
		return nameCmp(original, img, true, false)
	case 'I':
		return nameCmp(original, img, true, true)
	case 't':
		return fieldCmp(original, img, func(e prodos.EntryBytes) int { return int(e.FileType()) }, false)
	case 'T':
		return fieldCmp(original, img, func(e prodos.EntryBytes) int { return int(e.FileType()) }, true)
	case 'b':
		return fieldCmp(original, img, func(e prodos.EntryBytes) int { return int(e.BlocksUsed()) }, false)
	case 'B':
		return fieldCmp(original, img, func(e prodos.EntryBytes) int { return int(e.BlocksUsed()) }, true)
	case 'e':
		return fieldCmp(original, img, func(e prodos.EntryBytes) int { return int(e.EOF()) }, false)
	case 'E':
		return fieldCmp(original, img, func(e prodos.EntryBytes) int { return int(e.EOF()) }, true)
	case 'c':
		return timeCmp(original, img, true, false)
	case 'C':
		return timeCmp(original, img, true, true)
	case 'm':
		return timeCmp(original, img, false, false)
	case 'M':
		return timeCmp(original, img, false, true)
	case 'd':
		return dirFirstCmp(original, img, true)
	case 'D':
		return dirFirstCmp(original, img, false)
	default:
		return func(a, b slot) bool { return a.order < b.order }
	}
}

func nameCmp(original map[prodos.BlockNumber][]byte, img *dirreader.Image, caseInsensitive, descending bool) func(a, b slot) bool {
	return func(a, b slot) bool {
		na := decodeName(a.bytes(original, img))
		nb := decodeName(b.bytes(original, img))
		if caseInsensitive {
			na = strings.ToLower(na)
			nb = strings.ToLower(nb)
		}
		if descending {
			return na > nb
		}
		return na < nb
	}
}

func decodeName(e prodos.EntryBytes) string {
	return namecase.Decode(e.RawName(), e.NameLength(), e.Version(), e.MinVersion())
}

func fieldCmp(original map[prodos.BlockNumber][]byte, img *dirreader.Image, field func(prodos.EntryBytes) int, descending bool) func(a, b slot) bool {
	return func(a, b slot) bool {
		va, vb := field(a.bytes(original, img)), field(b.bytes(original, img))
		if va == vb {
			return a.order < b.order
		}
		if descending {
			return va > vb
		}
		return va < vb
	}
}

func timeCmp(original map[prodos.BlockNumber][]byte, img *dirreader.Image, creation, descending bool) func(a, b slot) bool {
	return func(a, b slot) bool {
		ea, eb := a.bytes(original, img), b.bytes(original, img)
		var ta, tb [4]byte
		if creation {
			ta, tb = ea.CreationTime(), eb.CreationTime()
		} else {
			ta, tb = ea.ModificationTime(), eb.ModificationTime()
		}
		cmp := compareDateTime(ta, tb)
		if cmp == 0 {
			return a.order < b.order
		}
		if descending {
			return cmp > 0
		}
		return cmp < 0
	}
}

// compareDateTime orders two on-disk timestamps chronologically (not by raw
// byte value, which doesn't sort correctly across the legacy/ProDOS-2.5
// encodings); a zero "no date" sorts before every real date.
func compareDateTime(a, b [4]byte) int {
	da, aok := datetime.Parse(a)
	db, bok := datetime.Parse(b)
	if !aok && !bok {
		return 0
	}
	if !aok {
		return -1
	}
	if !bok {
		return 1
	}
	for _, pair := range [][2]int{
		{da.Year, db.Year}, {da.Month, db.Month}, {da.Day, db.Day},
		{da.Hour, db.Hour}, {da.Minute, db.Minute},
	} {
		if pair[0] != pair[1] {
			return pair[0] - pair[1]
		}
	}
	return 0
}

func dirFirstCmp(original map[prodos.BlockNumber][]byte, img *dirreader.Image, first bool) func(a, b slot) bool {
	return func(a, b slot) bool {
		aIsDir := a.bytes(original, img).StorageType() == prodos.StorageSubdirectory
		bIsDir := b.bytes(original, img).StorageType() == prodos.StorageSubdirectory
		if aIsDir != bIsDir {
			if first {
				return aIsDir
			}
			return bIsDir
		}
		return a.order < b.order
	}
}
