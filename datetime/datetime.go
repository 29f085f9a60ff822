// Package datetime parses and emits the two ProDOS directory-entry date/time
// encodings: the legacy format used by ProDOS 1.0-2.4.2, and the new format
// introduced in ProDOS 2.5.
package datetime

// DateTime is a decoded ProDOS timestamp. Month and Day are 1-based, as
// ProDOS stores them.
type DateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	// IsPD25Format records which on-disk encoding this value was parsed
	// from (or should be emitted as, if unchanged). Emit's `pd25` argument
	// overrides this when a format conversion is requested.
	IsPD25Format bool
}

// IsZero reports whether this is ProDOS's "no date" sentinel: all four bytes
// zero. A zero date-and-time is preserved as "no date" rather than decoded
// into year 1900/whatever falls out of the bit math.
func (dt DateTime) IsZero() bool {
	return dt == DateTime{}
}

// Parse decodes a 4-byte on-disk timestamp. The second return value is false
// for the zero sentinel, in which case the DateTime is the zero value and
// must not be interpreted as a real date.
func Parse(raw [4]byte) (DateTime, bool) {
	if raw == ([4]byte{}) {
		return DateTime{}, false
	}

	d := uint(raw[0]) | uint(raw[1])<<8
	t := uint(raw[2]) | uint(raw[3])<<8

	// New format is recognized by any of the top three bits of the time
	// word being set.
	if t&0xe000 == 0 {
		year := (d & 0xfe00) >> 9
		month := (d & 0x01e0) >> 5
		day := d & 0x001f
		hour := (t & 0x1f00) >> 8
		minute := t & 0x003f

		// ProDOS-8 Technical Note #48: 00-39 -> 2000-2039, 40-99 -> 1940-1999.
		var fullYear uint
		if year < 40 {
			fullYear = year + 2000
		} else {
			fullYear = year + 1900
		}
		return DateTime{
			Year:         int(fullYear),
			Month:        int(month),
			Day:          int(day),
			Hour:         int(hour),
			Minute:       int(minute),
			IsPD25Format: false,
		}, true
	}

	year := t & 0x0fff
	month := ((t & 0xf000) >> 12) - 1
	day := (d & 0xf800) >> 11
	hour := (d & 0x07c0) >> 6
	minute := d & 0x003f
	return DateTime{
		Year:         int(year),
		Month:        int(month),
		Day:          int(day),
		Hour:         int(hour),
		Minute:       int(minute),
		IsPD25Format: true,
	}, true
}

// Emit encodes dt back into its 4-byte on-disk form, in legacy format if
// pd25 is false or ProDOS 2.5+ format if true. Legacy emission clamps the
// year to [1940, 2039], the last range it can represent.
func Emit(dt DateTime, pd25 bool) [4]byte {
	if dt.IsZero() {
		return [4]byte{}
	}

	var d, t uint
	if !pd25 {
		year := dt.Year
		if year > 2039 {
			year = 2039
		}
		if year < 1940 {
			year = 1940
		}
		if year >= 2000 {
			year -= 2000
		} else if year >= 1900 {
			year -= 1900
		}
		d = uint(year)<<9 | uint(dt.Month)<<5 | uint(dt.Day)
		t = uint(dt.Hour)<<8 | uint(dt.Minute)
	} else {
		t = uint(dt.Month+1)<<12 | uint(dt.Year)
		d = uint(dt.Day)<<11 | uint(dt.Hour)<<6 | uint(dt.Minute)
	}

	return [4]byte{
		byte(d),
		byte(d >> 8),
		byte(t),
		byte(t >> 8),
	}
}

// EmitPreservingFormat is the round-trip helper for when no date-format
// conversion was requested: it emits using whichever format the
// value was originally parsed from, tracked by DateTime.IsPD25Format.
func EmitPreservingFormat(dt DateTime) [4]byte {
	return Emit(dt, dt.IsPD25Format)
}
