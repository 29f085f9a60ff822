// Package filewalker traverses a file's on-disk block layout — seedling,
// sapling, tree, or extended (forked) — counting its blocks and marking each
// one reachable.
package filewalker

import (
	"fmt"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/blockio"
	"github.com/bobbimanners/prodosort/prodos"
)

// Label identifies what kind of block was visited, for warning messages.
type Label string

const (
	LabelData      Label = "Data"
	LabelTreeIndex Label = "Tree index"
	LabelForkKey   Label = "Fork key"
)

// Warning records a shared-block or lost-block condition: a visited block
// was already reachable from an earlier file, or was marked free on the
// volume free-list even though it's in active use.
type Warning struct {
	Block   prodos.BlockNumber
	Label   Label
	Message string
}

// Walker counts and marks the blocks belonging to one file, given its
// storage type and key-block.
type Walker struct {
	Device     *blockio.BlockIO
	Reachable  *bitmap.Bitmap
	FreeList   *bitmap.Bitmap
	Warnings   []Warning
}

func New(device *blockio.BlockIO, reachable, freeList *bitmap.Bitmap) *Walker {
	return &Walker{Device: device, Reachable: reachable, FreeList: freeList}
}

// mark records that `block` belongs to the file currently being walked. It
// emits a Warning (but does not fail the walk) if the block was already
// reachable from an earlier file, or if the volume free-list claims it's
// free.
func (w *Walker) mark(block prodos.BlockNumber, label Label) {
	if w.Reachable.IsSet(uint(block)) {
		w.Warnings = append(w.Warnings, Warning{
			Block: block, Label: label,
			Message: fmt.Sprintf("%s block %d is already reachable from another file", label, block),
		})
	}
	if w.FreeList != nil && w.FreeList.IsSet(uint(block)) {
		w.Warnings = append(w.Warnings, Warning{
			Block: block, Label: label,
			Message: fmt.Sprintf("%s block %d is marked free but is in use", label, block),
		})
	}
	w.Reachable.Set(uint(block))
}

// Walk counts the blocks used by a file with the given storage type and
// key-block, marking every block it visits reachable. It returns the total
// block count FileWalker computed, which DirReader cross-checks against the
// entry's stored blocks_used.
func (w *Walker) Walk(keyBlock prodos.BlockNumber, storageType prodos.StorageType) (uint32, error) {
	switch storageType {
	case prodos.StorageSeedling:
		return w.seedling(keyBlock)
	case prodos.StorageSapling:
		return w.sapling(keyBlock)
	case prodos.StorageTree:
		return w.tree(keyBlock)
	case prodos.StorageExtended:
		return w.fork(keyBlock)
	default:
		return 0, fmt.Errorf("unsupported storage type %#x for file walk", storageType)
	}
}

func (w *Walker) seedling(keyBlock prodos.BlockNumber) (uint32, error) {
	w.mark(keyBlock, LabelData)
	return 1, nil
}

// sapling reads the key block as an index of up to 256 two-byte pointers:
// the low half of each pointer lives in bytes 0-255, the high half in bytes
// 256-511.
func (w *Walker) sapling(keyBlock prodos.BlockNumber) (uint32, error) {
	w.mark(keyBlock, LabelData)
	data, err := w.Device.Read(keyBlock)
	if err != nil {
		return 0, err
	}

	count := uint32(1)
	for i := 0; i < 256; i++ {
		ptr := prodos.BlockNumber(uint16(data[i]) | uint16(data[i+256])<<8)
		if ptr != 0 {
			w.mark(ptr, LabelData)
			count++
		}
	}
	return count, nil
}

// tree reads the key block as a master index of up to 256 sapling index
// block pointers and recurses into each.
func (w *Walker) tree(keyBlock prodos.BlockNumber) (uint32, error) {
	w.mark(keyBlock, LabelTreeIndex)
	data, err := w.Device.Read(keyBlock)
	if err != nil {
		return 0, err
	}

	count := uint32(1)
	for i := 0; i < 256; i++ {
		ptr := prodos.BlockNumber(uint16(data[i]) | uint16(data[i+256])<<8)
		if ptr == 0 {
			continue
		}
		saplingCount, err := w.sapling(ptr)
		if err != nil {
			return 0, err
		}
		count += saplingCount
	}
	return count, nil
}

// fork reads the key block as two 256-byte mini-records (offsets 0 and 256),
// each naming a storage type, key-block, and block count for the data and
// resource forks respectively, per ProDOS Technical Note #25.
func (w *Walker) fork(keyBlock prodos.BlockNumber) (uint32, error) {
	w.mark(keyBlock, LabelForkKey)
	data, err := w.Device.Read(keyBlock)
	if err != nil {
		return 0, err
	}

	count := uint32(1)
	for _, off := range [2]int{0x000, 0x100} {
		forkType := prodos.StorageType(data[off])
		forkKeyBlock := prodos.BlockNumber(uint16(data[off+1]) | uint16(data[off+2])<<8)

		var forkCount uint32
		switch forkType {
		case prodos.StorageSeedling:
			forkCount, err = w.seedling(forkKeyBlock)
		case prodos.StorageSapling:
			forkCount, err = w.sapling(forkKeyBlock)
		case prodos.StorageTree:
			forkCount, err = w.tree(forkKeyBlock)
		default:
			err = fmt.Errorf("invalid storage type %#x for fork at offset %#x", forkType, off)
		}
		if err != nil {
			return 0, err
		}
		count += forkCount
	}
	return count, nil
}
