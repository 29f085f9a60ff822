// Package dirreader reads one directory's full block chain, validates its
// header, applies the configured name-case and date-format transforms to
// each entry, cross-checks block accounting against filewalker, and queues
// any subdirectories it finds.
package dirreader

import (
	"fmt"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/blockio"
	"github.com/bobbimanners/prodosort/datetime"
	"github.com/bobbimanners/prodosort/errors"
	"github.com/bobbimanners/prodosort/filewalker"
	"github.com/bobbimanners/prodosort/namecase"
	"github.com/bobbimanners/prodosort/prodos"
)

// Finding records one cross-check discrepancy DirReader detected, with the
// severity the driver should treat it at.
type Finding struct {
	Severity errors.Severity
	Message  string
	// Fixed records whether FixMode applied a repair for this finding
	// before Read returned.
	Fixed bool
}

// Image is everything DirReader assembled about one directory: its block
// images (in on-disk chain order, key-block first), and the subdirectory
// key-blocks it discovered for the work-queue.
type Image struct {
	KeyBlock   prodos.BlockNumber
	Name       string
	Blocks     []prodos.BlockNumber
	Data       map[prodos.BlockNumber][]byte
	Subdirs    []prodos.BlockNumber
	Findings   []Finding
	EntryCount int
}

// toTransform maps a prodos.NameCaseTransform option onto the namecase
// package's own enum; kept here (rather than in package prodos) so that
// prodos stays a leaf package with no sibling imports.
func toTransform(t prodos.NameCaseTransform) (namecase.Transform, bool) {
	switch t {
	case prodos.NameCaseLower:
		return namecase.Lower, true
	case prodos.NameCaseUpper:
		return namecase.Upper, true
	case prodos.NameCaseInitial:
		return namecase.Initial, true
	case prodos.NameCaseCamel:
		return namecase.Camel, true
	default:
		return 0, false
	}
}

// Reader reads and validates one directory's block chain.
type Reader struct {
	Device    *blockio.BlockIO
	Reachable *bitmap.Bitmap
	FreeList  *bitmap.Bitmap
	Session   *prodos.Session
}

func New(device *blockio.BlockIO, reachable, freeList *bitmap.Bitmap, session *prodos.Session) *Reader {
	return &Reader{Device: device, Reachable: reachable, FreeList: freeList, Session: session}
}

// Read walks the entire block chain of the directory at keyBlock, applying
// transforms and cross-checks in place, and returns the resulting Image.
// It never writes to the device itself; SortEngine and the fix-mode repairs
// below only mutate the in-memory block images in img.Data, which the
// caller is responsible for flushing if write mode is enabled.
func (r *Reader) Read(keyBlock prodos.BlockNumber) (*Image, error) {
	img := &Image{KeyBlock: keyBlock, Data: make(map[prodos.BlockNumber][]byte)}

	header, err := r.Device.Read(keyBlock)
	if err != nil {
		return nil, fmt.Errorf("reading directory key block %d: %w", keyBlock, err)
	}

	headerEntry := prodos.EntryBytes(header[4 : 4+prodos.DirectoryEntrySize])
	if !headerEntry.StorageType().IsDirectoryHeader() {
		return nil, fmt.Errorf("block %d: %w (storage type %#x)", keyBlock, errors.ErrBadDirectoryHeader, headerEntry.StorageType())
	}
	if headerEntry.EntrySize() != prodos.DirectoryEntrySize {
		return nil, fmt.Errorf("block %d: %w", keyBlock, errors.ErrBadEntrySize)
	}
	if headerEntry.EntriesPerBlock() != prodos.EntriesPerBlock {
		return nil, fmt.Errorf("block %d: %w", keyBlock, errors.ErrBadEntriesPerBlock)
	}
	img.Name = headerName(headerEntry)

	block := header
	blockNum := keyBlock
	nonEmpty := 0
	first := true
	for {
		img.Blocks = append(img.Blocks, blockNum)
		img.Data[blockNum] = block
		r.markDirectoryBlock(img, blockNum)

		startSlot := 0
		if first {
			startSlot = 1 // slot 0 of the key block is the header itself.
		}
		for slot := startSlot; slot < prodos.EntriesPerBlock; slot++ {
			off := 4 + slot*prodos.DirectoryEntrySize
			entry := prodos.EntryBytes(block[off : off+prodos.DirectoryEntrySize])
			if entry.IsEmpty() {
				continue
			}
			nonEmpty++
			r.processEntry(img, entry, blockNum)
		}

		next := prodos.BlockNumber(uint16(block[2]) | uint16(block[3])<<8)
		if next == 0 {
			break
		}
		var err error
		block, err = r.Device.Read(next)
		if err != nil {
			return nil, fmt.Errorf("reading directory block %d: %w", next, err)
		}
		blockNum = next
		first = false
	}

	img.EntryCount = nonEmpty
	r.checkFileCount(img, headerEntry, nonEmpty)
	return img, nil
}

// processEntry applies the configured name-case/date transforms, invokes
// FileWalker (or queues the subdirectory), and cross-checks blocks_used and
// header_pointer against what the walk actually found.
func (r *Reader) processEntry(img *Image, entry prodos.EntryBytes, containingBlock prodos.BlockNumber) {
	if transform, ok := toTransform(r.Session.Options.NameCase); ok {
		name := entry.RawName()
		length := entry.NameLength()
		version, minVersion := namecase.Encode(name, length, transform)
		entry.SetVersion(version)
		entry.SetMinVersion(minVersion)
	}

	r.rewriteDate(entry)

	if entry.HeaderPointer() != img.KeyBlock {
		r.finding(img, errors.NonFatal,
			fmt.Sprintf("entry in block %d has header_pointer %d, expected %d",
				containingBlock, entry.HeaderPointer(), img.KeyBlock),
			func() { entry.SetHeaderPointer(img.KeyBlock) })
	}

	storageType := entry.StorageType()
	if storageType == prodos.StorageSubdirectory {
		img.Subdirs = append(img.Subdirs, entry.KeyPointer())
	}

	walkable := storageType == prodos.StorageSeedling || storageType == prodos.StorageSapling ||
		storageType == prodos.StorageTree || storageType == prodos.StorageExtended
	if !walkable {
		return
	}

	walker := filewalker.New(r.Device, r.Reachable, r.FreeList)
	blocksUsed, err := walker.Walk(entry.KeyPointer(), storageType)
	for _, w := range walker.Warnings {
		r.finding(img, errors.Warn, w.Message, nil)
	}
	if err != nil {
		r.finding(img, errors.NonFatal, fmt.Sprintf("walking entry key block %d: %s", entry.KeyPointer(), err), nil)
		return
	}

	if uint32(entry.BlocksUsed()) != blocksUsed {
		r.finding(img, errors.NonFatal,
			fmt.Sprintf("entry key block %d has blocks_used %d, FileWalker counted %d",
				entry.KeyPointer(), entry.BlocksUsed(), blocksUsed),
			func() { entry.SetBlocksUsed(uint16(blocksUsed)) })
	}
}

// markDirectoryBlock records that blockNum belongs to the directory chain
// currently being read: a directory block counts as reachable just as a
// file's data blocks do, so that reachable-list + free-list accounts for
// every block on the volume.
func (r *Reader) markDirectoryBlock(img *Image, blockNum prodos.BlockNumber) {
	if r.Reachable.IsSet(uint(blockNum)) {
		r.finding(img, errors.Warn, fmt.Sprintf("directory block %d is already reachable from another directory or file", blockNum), nil)
	}
	if r.FreeList.IsSet(uint(blockNum)) {
		r.finding(img, errors.Warn, fmt.Sprintf("directory block %d is marked free but is in use", blockNum), nil)
	}
	r.Reachable.Set(uint(blockNum))
}

func (r *Reader) rewriteDate(entry prodos.EntryBytes) {
	if r.Session.Options.DateFormat == prodos.DateFormatUnchanged {
		return
	}
	dt, ok := datetime.Parse(entry.ModificationTime())
	if !ok {
		return
	}
	var out [4]byte
	if r.Session.Options.DateFormat == prodos.DateFormatNew {
		out = datetime.Emit(dt, true)
	} else {
		out = datetime.Emit(dt, false)
	}
	entry.SetModificationTime(out)
}

// checkFileCount validates that file_count in the header equals the number
// of non-empty slots across every block of the directory.
func (r *Reader) checkFileCount(img *Image, header prodos.EntryBytes, actual int) {
	if int(header.FileCount()) != actual {
		r.finding(img, errors.NonFatal,
			fmt.Sprintf("directory %d has file_count %d, counted %d non-empty entries",
				img.KeyBlock, header.FileCount(), actual),
			func() { header.SetFileCount(uint16(actual)) })
	}
}

// finding records a cross-check discrepancy and, depending on fix mode,
// applies `fix` immediately. A nil fix means there's nothing to repair
// (e.g. a Warn-severity shared-block report).
func (r *Reader) finding(img *Image, severity errors.Severity, message string, fix func()) {
	fixed := false
	if fix != nil {
		switch r.Session.Options.FixMode {
		case prodos.FixAlways:
			fix()
			fixed = true
		case prodos.FixAsk:
			if r.Session.Prompt != nil && r.Session.Prompt(message) {
				fix()
				fixed = true
			}
		case prodos.FixNever:
			// Leave it; the directory is a pure observer.
		}
	}
	img.Findings = append(img.Findings, Finding{Severity: severity, Message: message, Fixed: fixed})
}

// StatusLine formats the per-entry stdout status line: storage code letter,
// name, blocks, EOF, type, aux, access mask, creation time, modification
// time.
func StatusLine(entry prodos.EntryBytes, name string) string {
	return fmt.Sprintf("%c %-15s %5d blocks  eof=%-8d type=$%02x aux=$%04x access=$%02x  c=%s m=%s",
		entry.StorageType().Letter(), name, entry.BlocksUsed(), entry.EOF(),
		entry.FileType(), entry.AuxType(), entry.Access(),
		formatDate(entry.CreationTime()), formatDate(entry.ModificationTime()))
}

func formatDate(raw [4]byte) string {
	dt, ok := datetime.Parse(raw)
	if !ok {
		return "<no date>"
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute)
}
