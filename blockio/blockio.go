// Package blockio implements BlockIO, the lowest layer of the engine: block
// reads and writes against an open device handle.
//
// Writes are suppressed — and report success — whenever the current
// directory's name matches "LIB" or "LIBRARIES" case-sensitively. That's a
// deliberate policy safety valve: library directories are a common casualty
// of an interrupted sort, not a workaround for a bug here.
package blockio

import (
	"fmt"
	"io"

	prodoserrors "github.com/bobbimanners/prodosort/errors"
	"github.com/bobbimanners/prodosort/prodos"
)

// IoError reports a failed read or write against a specific block.
type IoError struct {
	Block prodos.BlockNumber
	Err   error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("block %d: %s", e.Block, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// SuppressedDirectoryNames lists the directory names (case-sensitive) whose
// writes BlockIO silently drops.
var SuppressedDirectoryNames = map[string]bool{
	"LIB":       true,
	"LIBRARIES": true,
}

// BlockIO wraps a device stream to expose it as 512-byte block storage. The
// device handle is opened once per session and held for the run's duration.
type BlockIO struct {
	stream      io.ReadWriteSeeker
	TotalBlocks uint

	// SuppressWritesFor, when non-empty, names the directory currently being
	// processed; if it matches SuppressedDirectoryNames, Write becomes a
	// silent no-op that still reports success.
	SuppressWritesFor string
}

// New creates a BlockIO over an already-open device stream with a known
// total block count.
func New(stream io.ReadWriteSeeker, totalBlocks uint) *BlockIO {
	return &BlockIO{stream: stream, TotalBlocks: totalBlocks}
}

func (d *BlockIO) checkRange(block prodos.BlockNumber) error {
	if uint(block) >= d.TotalBlocks {
		return &IoError{
			Block: block,
			Err:   fmt.Errorf("%w: %d not in [0, %d)", prodoserrors.ErrOutOfRange, block, d.TotalBlocks),
		}
	}
	return nil
}

func (d *BlockIO) seekToBlock(block prodos.BlockNumber) error {
	offset := int64(block) * prodos.BlockSize
	_, err := d.stream.Seek(offset, io.SeekStart)
	return err
}

// Read reads exactly one 512-byte block.
func (d *BlockIO) Read(block prodos.BlockNumber) ([]byte, error) {
	if err := d.checkRange(block); err != nil {
		return nil, err
	}
	if err := d.seekToBlock(block); err != nil {
		return nil, &IoError{Block: block, Err: err}
	}

	buffer := make([]byte, prodos.BlockSize)
	if _, err := io.ReadFull(d.stream, buffer); err != nil {
		return nil, &IoError{Block: block, Err: err}
	}
	return buffer, nil
}

// Write writes exactly one 512-byte block. `data` must be exactly BlockSize
// bytes. Writes are suppressed (and report success) per
// SuppressWritesFor/SuppressedDirectoryNames.
func (d *BlockIO) Write(block prodos.BlockNumber, data []byte) error {
	if len(data) != prodos.BlockSize {
		return &IoError{
			Block: block,
			Err:   fmt.Errorf("data must be exactly %d bytes, got %d", prodos.BlockSize, len(data)),
		}
	}
	if SuppressedDirectoryNames[d.SuppressWritesFor] {
		return nil
	}
	if err := d.checkRange(block); err != nil {
		return err
	}
	if err := d.seekToBlock(block); err != nil {
		return &IoError{Block: block, Err: err}
	}
	if _, err := d.stream.Write(data); err != nil {
		return &IoError{Block: block, Err: err}
	}
	return nil
}
