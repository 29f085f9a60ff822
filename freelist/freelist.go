// Package freelist reconciles the volume free-list against the
// reachable-list built while walking the live file tree, and optionally
// zeroes every block the reconciled free-list marks free.
package freelist

import (
	"fmt"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/blockio"
	"github.com/bobbimanners/prodosort/prodos"
	"github.com/hashicorp/go-multierror"
)

// Reconciler diffs a volume's free-list against its reachable-list.
type Reconciler struct {
	Device      *blockio.BlockIO
	FreeList    *bitmap.Bitmap
	Reachable   *bitmap.Bitmap
	TotalBlocks uint
	FixMode     prodos.FixMode
	Prompt      prodos.Prompt
}

func New(device *blockio.BlockIO, freeList, reachable *bitmap.Bitmap, totalBlocks uint, fixMode prodos.FixMode, prompt prodos.Prompt) *Reconciler {
	return &Reconciler{
		Device:      device,
		FreeList:    freeList,
		Reachable:   reachable,
		TotalBlocks: totalBlocks,
		FixMode:     fixMode,
		Prompt:      prompt,
	}
}

// Result reports the outcome of one reconciliation pass.
type Result struct {
	FreeBlocks int
	// Findings accumulates one entry per block whose free/reachable bits
	// disagreed with the invariant that every block is exactly one of
	// reachable or free, whether or not it was fixed.
	Findings *multierror.Error
}

// Reconcile walks every in-range block and compares its free-list bit
// against its reachable bit. A block marked both free and reachable is "in
// use but marked free" (fix: clear the free bit); a block marked neither is
// "unused but not marked free" (fix: set the free bit). Each disagreement is
// merged into Result.Findings regardless of fix mode, so the caller always
// has a full account of what was found.
func (r *Reconciler) Reconcile() *Result {
	result := &Result{}

	for i := uint(0); i < r.TotalBlocks; i++ {
		free := r.FreeList.IsSet(i)
		reachable := r.Reachable.IsSet(i)

		switch {
		case free && reachable:
			msg := fmt.Sprintf("block %d used, marked free", i)
			result.Findings = multierror.Append(result.Findings, fmt.Errorf("%s", msg))
			if r.applyFix(msg) {
				r.FreeList.Clear(i)
			}
		case !free && !reachable:
			msg := fmt.Sprintf("block %d unused, not marked free", i)
			result.Findings = multierror.Append(result.Findings, fmt.Errorf("%s", msg))
			if r.applyFix(msg) {
				r.FreeList.Set(i)
			}
		}
	}

	for i := uint(0); i < r.TotalBlocks; i++ {
		if r.FreeList.IsSet(i) {
			result.FreeBlocks++
		}
	}
	return result
}

func (r *Reconciler) applyFix(message string) bool {
	switch r.FixMode {
	case prodos.FixAlways:
		return true
	case prodos.FixAsk:
		return r.Prompt != nil && r.Prompt(message)
	default:
		return false
	}
}

// ZeroFreeBlocks writes 512 zero bytes through BlockIO to every block the
// (now-reconciled) free-list marks free.
func (r *Reconciler) ZeroFreeBlocks() error {
	zero := make([]byte, prodos.BlockSize)
	for i := uint(0); i < r.TotalBlocks; i++ {
		if !r.FreeList.IsSet(i) {
			continue
		}
		if err := r.Device.Write(prodos.BlockNumber(i), zero); err != nil {
			return fmt.Errorf("zeroing block %d: %w", i, err)
		}
	}
	return nil
}
