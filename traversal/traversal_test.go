package traversal

import (
	"testing"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/prodos"
	"github.com/bobbimanners/prodosort/prodostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func newSession(totalBlocks uint, opts prodos.RunOptions) *prodos.Session {
	return &prodos.Session{
		TotalBlocks: totalBlocks,
		Options:     opts,
		Out:         prodos.StdReporter{Out: &discard{}},
	}
}

// TestRun_WholeVolume_AccountsForEveryBlock verifies that after a
// whole-volume traversal, count(reachable) + count(free) equals
// total_blocks.
func TestRun_WholeVolume_AccountsForEveryBlock(t *testing.T) {
	const total = 280
	image := prodostest.Build(prodostest.VolumeSpec{
		Name:        "TEST.VOL",
		TotalBlocks: total,
		Entries: []prodostest.EntrySpec{
			{Name: "HELLO", IsDir: true, Subdir: &prodostest.DirSpec{
				Entries: []prodostest.EntrySpec{
					{Name: "C", Type: 0x04, Contents: []byte("1")},
					{Name: "A", Type: 0x04, Contents: []byte("2")},
					{Name: "B", Type: 0x04, Contents: []byte("3")},
				},
			}},
		},
	})

	dev := prodostest.OpenBlockIO(image)
	reachable := bitmap.New(dev.TotalBlocks)
	freeList := bitmap.New(dev.TotalBlocks)
	session := newSession(dev.TotalBlocks, prodos.RunOptions{
		Scope:   prodos.ScopeVolume,
		FixMode: prodos.FixAlways,
	})

	driver := NewDriver(dev, session, reachable, freeList)
	err := driver.Run(prodos.VolumeDirectoryKeyBlock)
	require.NoError(t, err)

	assert.EqualValues(t, total, reachable.Count(total)+freeList.Count(total))
}

// TestRun_ScopeDirectory_DoesNotDescendIntoSubdirectories verifies that
// ScopeDirectory processes only the starting directory.
func TestRun_ScopeDirectory_DoesNotDescendIntoSubdirectories(t *testing.T) {
	const total = 280
	image := prodostest.Build(prodostest.VolumeSpec{
		Name:        "TEST.VOL",
		TotalBlocks: total,
		Entries: []prodostest.EntrySpec{
			{Name: "HELLO", IsDir: true, Subdir: &prodostest.DirSpec{
				Entries: []prodostest.EntrySpec{
					{Name: "INNER", Type: 0x04, Contents: []byte("1")},
				},
			}},
		},
	})

	dev := prodostest.OpenBlockIO(image)
	reachable := bitmap.New(dev.TotalBlocks)
	freeList := bitmap.New(dev.TotalBlocks)
	session := newSession(dev.TotalBlocks, prodos.RunOptions{
		Scope:   prodos.ScopeDirectory,
		FixMode: prodos.FixNever,
	})

	driver := NewDriver(dev, session, reachable, freeList)
	err := driver.Run(prodos.VolumeDirectoryKeyBlock)
	require.NoError(t, err)

	// The subdirectory's own key block was never visited, so it's not
	// marked reachable by this run (only by Build's own bookkeeping, which
	// the reachable bitmap here never sees).
	volHeader, err := dev.Read(prodos.VolumeDirectoryKeyBlock)
	require.NoError(t, err)
	topEntry := prodos.EntryBytes(volHeader[4+prodos.DirectoryEntrySize : 4+2*prodos.DirectoryEntrySize])
	assert.False(t, reachable.IsSet(uint(topEntry.KeyPointer())))
}

// TestRun_Subtree_DescendsIntoSubdirectories verifies ScopeSubtree recurses.
func TestRun_Subtree_DescendsIntoSubdirectories(t *testing.T) {
	const total = 280
	image := prodostest.Build(prodostest.VolumeSpec{
		Name:        "TEST.VOL",
		TotalBlocks: total,
		Entries: []prodostest.EntrySpec{
			{Name: "HELLO", IsDir: true, Subdir: &prodostest.DirSpec{
				Entries: []prodostest.EntrySpec{
					{Name: "INNER", Type: 0x04, Contents: []byte("1")},
				},
			}},
		},
	})

	dev := prodostest.OpenBlockIO(image)
	reachable := bitmap.New(dev.TotalBlocks)
	freeList := bitmap.New(dev.TotalBlocks)
	session := newSession(dev.TotalBlocks, prodos.RunOptions{
		Scope:   prodos.ScopeSubtree,
		FixMode: prodos.FixNever,
	})

	driver := NewDriver(dev, session, reachable, freeList)
	err := driver.Run(prodos.VolumeDirectoryKeyBlock)
	require.NoError(t, err)

	volHeader, err := dev.Read(prodos.VolumeDirectoryKeyBlock)
	require.NoError(t, err)
	topEntry := prodos.EntryBytes(volHeader[4+prodos.DirectoryEntrySize : 4+2*prodos.DirectoryEntrySize])
	assert.True(t, reachable.IsSet(uint(topEntry.KeyPointer())))
}

// TestRun_NoSortKeys_DoesNotWriteEvenWhenWriteEnabled verifies the
// traversal's state machine: SortEngine is the sole write path, so
// configuring no sort keys means the directory is never rewritten even
// with -w.
func TestRun_NoSortKeys_DoesNotWriteEvenWhenWriteEnabled(t *testing.T) {
	const total = 280
	image := prodostest.Build(prodostest.VolumeSpec{
		Name:        "TEST.VOL",
		TotalBlocks: total,
		Entries: []prodostest.EntrySpec{
			{Name: "C", Type: 0x04, Contents: []byte("1"), BlocksUsedOverride: 7},
		},
	})
	before := make([]byte, len(image))
	copy(before, image)

	dev := prodostest.OpenBlockIO(image)
	reachable := bitmap.New(dev.TotalBlocks)
	freeList := bitmap.New(dev.TotalBlocks)
	session := newSession(dev.TotalBlocks, prodos.RunOptions{
		Scope:   prodos.ScopeDirectory,
		FixMode: prodos.FixAlways,
		Write:   true,
		// SortKeys intentionally empty.
	})

	driver := NewDriver(dev, session, reachable, freeList)
	err := driver.Run(prodos.VolumeDirectoryKeyBlock)
	require.NoError(t, err)

	assert.Equal(t, before, image, "no sort keys means SortEngine never runs, so the on-disk image is untouched")
}
