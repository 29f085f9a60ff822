// Package traversal drives the whole repair/sort/compaction run: it owns
// the subdirectory work-queue, invokes DirReader and (when configured)
// SortEngine for each queued directory, and runs FreeListReconciler once
// the queue drains in whole-volume mode.
package traversal

import (
	stderrors "errors"
	"fmt"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/blockio"
	"github.com/bobbimanners/prodosort/dirreader"
	"github.com/bobbimanners/prodosort/errors"
	"github.com/bobbimanners/prodosort/freelist"
	"github.com/bobbimanners/prodosort/prodos"
	"github.com/bobbimanners/prodosort/sortengine"
)

// Driver ties the engine together for one run.
type Driver struct {
	Device    *blockio.BlockIO
	Session   *prodos.Session
	Reachable *bitmap.Bitmap
	FreeList  *bitmap.Bitmap

	// FreeListStart and FreeListBlocks locate the on-disk free-list, read
	// from the volume directory header's bitmap pointer; both are zero
	// until Run has read the volume directory at least once.
	FreeListStart  prodos.BlockNumber
	FreeListBlocks int

	reader  *dirreader.Reader
	sorter  *sortengine.Engine
	tally   errors.Tally
	queue   []prodos.BlockNumber
}

func NewDriver(device *blockio.BlockIO, session *prodos.Session, reachable, freeList *bitmap.Bitmap) *Driver {
	return &Driver{
		Device:    device,
		Session:   session,
		Reachable: reachable,
		FreeList:  freeList,
		reader:    dirreader.New(device, reachable, freeList, session),
		sorter:    sortengine.New(device, reachable, freeList),
	}
}

// Run starts a traversal at startBlock, honoring the configured scope:
// ScopeDirectory processes only startBlock; ScopeSubtree and ScopeVolume
// recurse into every discovered subdirectory; ScopeVolume also runs
// FreeListReconciler once the queue drains.
func (d *Driver) Run(startBlock prodos.BlockNumber) error {
	// The free list is loaded unconditionally, regardless of scope, because
	// DirReader and FileWalker cross-check every visited block against it
	// for "marked free but in use" warnings even on a single-directory run.
	// Reconciliation and the free-list rewrite, below, are whole-volume-only.
	if err := d.loadFreeListGeometry(); err != nil {
		return errors.NewFatalError(errors.IOOrStructuralFailure, err)
	}
	d.Reachable.Set(0)
	d.Reachable.Set(1)
	for i := 0; i < d.FreeListBlocks; i++ {
		d.Reachable.Set(uint(d.FreeListStart) + uint(i))
	}

	d.queue = []prodos.BlockNumber{startBlock}
	for len(d.queue) > 0 {
		keyBlock := d.queue[0]
		d.queue = d.queue[1:]

		if err := d.processDirectory(keyBlock); err != nil {
			var fatal *errors.FatalError
			if stderrors.As(err, &fatal) {
				return err
			}
			d.tally.Add(errors.NonFatal)
			d.Session.Out.Error(false, err.Error())
			continue
		}
	}

	if d.Session.Options.Scope == prodos.ScopeVolume {
		return d.reconcileFreeList()
	}
	d.Session.Out.Status(d.tally.String())
	return nil
}

// processDirectory implements the per-directory state machine: Read, then
// (if sort keys are configured, write mode is on, and the directory is not
// left holding an unrepaired non-fatal finding under FixNever) Sort and
// Write and Trim, otherwise report "not writing". Subdirectories it
// discovers are folded into the work-queue unless the scope is a single
// directory.
func (d *Driver) processDirectory(keyBlock prodos.BlockNumber) error {
	img, err := d.reader.Read(keyBlock)
	if err != nil {
		return fmt.Errorf("directory %d: %w", keyBlock, err)
	}

	unrepaired := false
	for _, f := range img.Findings {
		d.tally.Add(f.Severity)
		d.Session.Out.Error(false, f.Message)
		if f.Severity == errors.NonFatal && !f.Fixed {
			unrepaired = true
		}
	}

	opts := d.Session.Options
	if len(opts.SortKeys) > 0 && opts.Write && !(opts.FixMode == prodos.FixNever && unrepaired) {
		d.Device.SuppressWritesFor = img.Name
		result, err := d.sorter.Sort(img, opts.SortKeys, true)
		d.Device.SuppressWritesFor = ""
		if err != nil {
			return fmt.Errorf("sorting directory %d (%s): %w", keyBlock, img.Name, err)
		}
		if result.BlocksTrimmed > 0 {
			d.Session.Out.Status(fmt.Sprintf("directory %d (%s): trimmed %d block(s)", keyBlock, img.Name, result.BlocksTrimmed))
		}
	} else {
		d.Session.Out.Status(fmt.Sprintf("directory %d (%s): not writing", keyBlock, img.Name))
	}

	if d.Session.Options.Scope != prodos.ScopeDirectory {
		d.enqueueChildren(img.Subdirs)
	}
	return nil
}

// enqueueChildren folds a directory's freshly discovered subdirectories
// into the work-queue: the first child is pushed to the head of the queue
// (displacing whatever was there), and each subsequent sibling is inserted
// immediately after the previous one. Applied breadth-first across
// directories, this produces an overall depth-first visitation order.
func (d *Driver) enqueueChildren(children []prodos.BlockNumber) {
	insertAt := -1
	for i, child := range children {
		if i == 0 {
			d.queue = append([]prodos.BlockNumber{child}, d.queue...)
			insertAt = 0
			continue
		}
		insertAt++
		rest := make([]prodos.BlockNumber, 0, len(d.queue)+1)
		rest = append(rest, d.queue[:insertAt]...)
		rest = append(rest, child)
		rest = append(rest, d.queue[insertAt:]...)
		d.queue = rest
	}
}

// loadFreeListGeometry reads the volume directory header to locate the
// free-list's start block (the bitmap pointer at offset 0x27 of the volume
// directory key-block), its length in blocks, and loads its current
// contents into d.FreeList so every component sharing that bitmap pointer
// sees the on-disk state.
func (d *Driver) loadFreeListGeometry() error {
	header, err := d.Device.Read(prodos.VolumeDirectoryKeyBlock)
	if err != nil {
		return fmt.Errorf("reading volume directory header: %w", err)
	}
	headerEntry := prodos.EntryBytes(header[4 : 4+prodos.DirectoryEntrySize])
	if headerEntry.StorageType() != prodos.StorageVolumeDirectoryHeader {
		return fmt.Errorf("block 2: %w", errors.ErrVolumeDirectoryCorrupt)
	}
	d.FreeListStart = headerEntry.BitmapPointer()
	d.FreeListBlocks = int((d.Device.TotalBlocks + 4095) / 4096)

	raw := make([]byte, 0, d.FreeListBlocks*prodos.BlockSize)
	for i := 0; i < d.FreeListBlocks; i++ {
		block, err := d.Device.Read(d.FreeListStart + prodos.BlockNumber(i))
		if err != nil {
			return fmt.Errorf("reading free-list block %d: %w", i, err)
		}
		raw = append(raw, block...)
	}
	d.FreeList.LoadBytes(raw)
	return nil
}

// reconcileFreeList runs FreeListReconciler after the whole walk completes,
// optionally zeroes the resulting free blocks, and writes the free-list
// back to disk only if it changed.
func (d *Driver) reconcileFreeList() error {
	reconciler := freelist.New(d.Device, d.FreeList, d.Reachable, d.Device.TotalBlocks, d.Session.Options.FixMode, d.Session.Prompt)
	result := reconciler.Reconcile()

	if result.Findings != nil {
		for _, finding := range result.Findings.Errors {
			d.tally.Add(errors.NonFatal)
			d.Session.Out.Error(false, finding.Error())
		}
	}
	d.Session.Out.Status(fmt.Sprintf("free blocks: %d", result.FreeBlocks))

	if d.Session.Options.ZeroFree {
		if err := reconciler.ZeroFreeBlocks(); err != nil {
			return errors.NewFatalError(errors.IOOrStructuralFailure, err)
		}
	}

	if d.FreeList.Changed {
		if err := d.writeFreeList(); err != nil {
			return errors.NewFatalError(errors.IOOrStructuralFailure, err)
		}
	}

	d.Session.Out.Status(d.tally.String())
	return nil
}

func (d *Driver) writeFreeList() error {
	raw := d.FreeList.ToBytes()
	for i := 0; i < d.FreeListBlocks; i++ {
		off := i * prodos.BlockSize
		end := off + prodos.BlockSize
		if end > len(raw) {
			end = len(raw)
		}
		block := make([]byte, prodos.BlockSize)
		copy(block, raw[off:end])
		if err := d.Device.Write(d.FreeListStart+prodos.BlockNumber(i), block); err != nil {
			return fmt.Errorf("writing free-list block %d: %w", i, err)
		}
	}
	return nil
}
