// Package namecase implements the four filename case transforms ProDOS
// stores as a 15-bit bitmap overlaid on a directory entry's version and
// min_version bytes.
//
// When the high bit of version is set, the remaining 15 bits of the
// version:min_version pair map one-to-one onto the 15 name bytes — bit 6 of
// version is the first character, descending through bit 0 of min_version
// for the fifteenth. A set bit means "lowercase this character". When the
// high bit is clear, the name is literal uppercase ASCII and carries no case
// information at all.
package namecase

import "unicode"

// Transform selects which of the four case rules Encode applies.
type Transform int

const (
	// Lower lowercases every alphabetic character.
	Lower Transform = iota
	// Upper clears the case bitmap entirely; the stored name is taken to be
	// literal uppercase ASCII.
	Upper
	// Initial uppercases the first alphabetic character and lowercases the
	// rest ("Read.me").
	Initial
	// Camel uppercases every alphabetic character immediately following a
	// non-alphabetic one, and lowercases the rest ("Read.Me").
	Camel
)

// Encode computes the version/min_version byte pair that records `transform`
// applied to `name` (the raw, un-cased 15-byte on-disk name, of which only
// the first `length` bytes are meaningful). It does not touch the name bytes
// themselves — ProDOS only ever stores uppercase ASCII on disk; case is
// carried entirely in the bitmap.
func Encode(name [15]byte, length int, transform Transform) (version, minVersion byte) {
	if transform == Upper {
		return 0, 0
	}

	var bits [15]bool
	capsNext := true // Both Initial and Camel start expecting a capital.
	for i := 0; i < length && i < 15; i++ {
		if !isAlpha(name[i]) {
			if transform == Camel {
				capsNext = true
			}
			continue
		}
		switch transform {
		case Lower:
			bits[i] = true
		case Initial:
			bits[i] = !capsNext
			capsNext = false
		case Camel:
			bits[i] = !capsNext
			capsNext = false
		}
	}

	// version starts at 0x01 and is shifted left 7 times, so the bit that
	// started at position 0 ends up as the bitmap-present flag in bit 7;
	// each shift ORs in one more bit of `bits`.
	version = 0x01
	for i := 0; i < 7; i++ {
		version <<= 1
		if bits[i] {
			version |= 1
		}
	}

	minVersion = 0
	for i := 7; i < 15; i++ {
		minVersion <<= 1
		if bits[i] {
			minVersion |= 1
		}
	}
	return version, minVersion
}

// Decode reverses the on-disk representation into a display string. When the
// high bit of version is clear the name is returned unchanged (uppercase).
func Decode(name [15]byte, length int, version, minVersion byte) string {
	out := make([]byte, length)
	if version&0x80 == 0 {
		copy(out, name[:length])
		return string(out)
	}

	bitmap := version << 1
	idx := 0
	for i := 0; i < 7 && idx < length; i++ {
		out[idx] = applyBit(name[idx], bitmap&0x80 != 0)
		idx++
		bitmap <<= 1
	}
	bitmap = minVersion
	for i := 0; i < 8 && idx < length; i++ {
		out[idx] = applyBit(name[idx], bitmap&0x80 != 0)
		idx++
		bitmap <<= 1
	}
	return string(out)
}

func applyBit(c byte, lower bool) byte {
	if lower && isAlpha(c) {
		return byte(unicode.ToLower(rune(c)))
	}
	return c
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// ApplyToString is a convenience helper used by tests and the end-to-end
// scenarios: it case-folds a plain Go string by running it through Encode
// and then Decode, returning the display string that bitmap produces.
func ApplyToString(name string, transform Transform) string {
	var name15 [15]byte
	n := copy(name15[:], name)
	version, minVersion := Encode(name15, n, transform)
	return Decode(name15, n, version, minVersion)
}
