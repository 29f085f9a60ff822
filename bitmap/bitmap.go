// Package bitmap implements the two volume-sized bit arrays the engine needs
// during a traversal: the on-disk free-list and the in-memory reachable-list
// built while walking the live file tree.
//
// Bits are addressed MSB-first within each byte, matching the ProDOS on-disk
// free-list layout exactly: bit 7 of byte i/8 represents block i - (i mod 8)
// + 0, per the ProDOS Technical Reference Manual's volume bitmap description.
// This package uses boljen/go-bitmap as the backing store but never lets the
// library's own (LSB-oriented) indexing leak — every access goes through the
// MSB-first index math below, and serialization to/from on-disk bytes goes
// through ToBytes/FromBytes, which apply that math explicitly.
package bitmap

import "github.com/boljen/go-bitmap"

// Bitmap is a single volume-sized bit array with MSB-first addressing.
type Bitmap struct {
	bits    bitmap.Bitmap
	size    uint
	Changed bool
}

// New creates a Bitmap with room for `size` bits, all initially clear.
func New(size uint) *Bitmap {
	return &Bitmap{
		bits: bitmap.New(int(size)),
		size: size,
	}
}

// Size returns the number of addressable bits.
func (b *Bitmap) Size() uint {
	return b.size
}

func (b *Bitmap) IsSet(i uint) bool {
	return b.bits.Get(int(i))
}

func (b *Bitmap) Set(i uint) {
	if !b.bits.Get(int(i)) {
		b.Changed = true
	}
	b.bits.Set(int(i), true)
}

func (b *Bitmap) Clear(i uint) {
	if b.bits.Get(int(i)) {
		b.Changed = true
	}
	b.bits.Set(int(i), false)
}

// Count returns the number of set bits in [0, limit).
func (b *Bitmap) Count(limit uint) uint {
	var n uint
	for i := uint(0); i < limit; i++ {
		if b.bits.Get(int(i)) {
			n++
		}
	}
	return n
}

// ByteSize is the number of bytes needed to hold `size` bits, rounded up to
// a whole number of 512-byte blocks to match the on-disk free-list's
// length: ceil(total_blocks / 8) rounded up to a block boundary.
func ByteSize(size uint) uint {
	bytes := (size + 7) / 8
	const blockSize = 512
	return ((bytes + blockSize - 1) / blockSize) * blockSize
}

// FromBytes loads a Bitmap from its on-disk MSB-first byte representation.
func FromBytes(raw []byte, size uint) *Bitmap {
	b := New(size)
	b.LoadBytes(raw)
	return b
}

// LoadBytes overwrites this Bitmap's contents in place from an on-disk
// MSB-first byte representation, without disturbing any other reference to
// the same *Bitmap — unlike FromBytes, which allocates a new instance,
// TraversalDriver needs to populate the free-list bitmap after every other
// component has already been constructed against its pointer.
func (b *Bitmap) LoadBytes(raw []byte) {
	for i := uint(0); i < b.size; i++ {
		byteIdx := i / 8
		set := false
		if int(byteIdx) < len(raw) {
			bit := byte(0x80 >> (i % 8))
			set = raw[byteIdx]&bit != 0
		}
		b.bits.Set(int(i), set)
	}
	b.Changed = false
}

// ToBytes serializes the Bitmap back to its on-disk MSB-first byte
// representation, padded to a whole number of blocks per ByteSize.
func (b *Bitmap) ToBytes() []byte {
	out := make([]byte, ByteSize(b.size))
	for i := uint(0); i < b.size; i++ {
		if !b.bits.Get(int(i)) {
			continue
		}
		byteIdx := i / 8
		bit := byte(0x80 >> (i % 8))
		out[byteIdx] |= bit
	}
	return out
}

