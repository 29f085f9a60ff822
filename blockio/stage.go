package blockio

import (
	"sort"

	"github.com/boljen/go-bitmap"
	"github.com/bobbimanners/prodosort/prodos"
)

// StagingCache buffers a directory's rewritten blocks in memory and flushes
// them to the device in block-number order: every destination block is
// staged in memory, then emitted in block-number order of the original
// directory, so an interrupted flush never leaves the chain pointers
// inconsistent. It's a write-behind buffer for exactly the blocks of one
// directory.
type StagingCache struct {
	dirty   bitmap.Bitmap
	blocks  []prodos.BlockNumber
	data    map[prodos.BlockNumber][]byte
	indexOf map[prodos.BlockNumber]int
}

// NewStagingCache creates a cache pre-seeded with the block numbers that make
// up one directory, in their original on-disk order.
func NewStagingCache(blocks []prodos.BlockNumber) *StagingCache {
	indexOf := make(map[prodos.BlockNumber]int, len(blocks))
	for i, b := range blocks {
		indexOf[b] = i
	}
	return &StagingCache{
		dirty:   bitmap.New(len(blocks)),
		blocks:  blocks,
		data:    make(map[prodos.BlockNumber][]byte, len(blocks)),
		indexOf: indexOf,
	}
}

// Put stages new contents for a block that's part of this directory.
func (c *StagingCache) Put(block prodos.BlockNumber, contents []byte) {
	idx, ok := c.indexOf[block]
	if !ok {
		// A block not in the original set (e.g. the cache is being reused
		// across a resize); append it so it still flushes in a stable order.
		idx = len(c.blocks)
		c.blocks = append(c.blocks, block)
		c.indexOf[block] = idx
		grown := bitmap.New(len(c.blocks))
		for i := 0; i < idx; i++ {
			grown.Set(i, c.dirty.Get(i))
		}
		c.dirty = grown
	}
	buf := make([]byte, len(contents))
	copy(buf, contents)
	c.data[block] = buf
	c.dirty.Set(idx, true)
}

// Flush writes every staged, dirty block through `write`, in ascending
// block-number order — not insertion order — so that an interrupted run
// never writes a later block before an earlier one it depends on.
func (c *StagingCache) Flush(write func(block prodos.BlockNumber, data []byte) error) error {
	ordered := make([]prodos.BlockNumber, 0, len(c.blocks))
	for i, b := range c.blocks {
		if c.dirty.Get(i) {
			ordered = append(ordered, b)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, b := range ordered {
		if err := write(b, c.data[b]); err != nil {
			return err
		}
	}
	return nil
}
