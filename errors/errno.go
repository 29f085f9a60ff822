// Sentinel error values for the ProDOS repair engine: the handful of
// conditions that recur across BlockIO, DirReader, FileWalker, and
// FreeListReconciler and don't need a unique message every time they occur.

package errors

import "fmt"

type ProdosError string

const ErrBadDirectoryHeader = ProdosError("directory header failed validation")
const ErrBadEntrySize = ProdosError("entry_size is not 0x27")
const ErrBadEntriesPerBlock = ProdosError("entries_per_block is not 0x0d")
const ErrBadStorageType = ProdosError("unexpected storage type nibble")
const ErrVolumeDirectoryCorrupt = ProdosError("volume directory header is unreadable or invalid")
const ErrDeviceIO = ProdosError("input/output error on block device")
const ErrOutOfRange = ProdosError("block number out of range")
const ErrAllocationFailed = ProdosError("memory allocation failed")
const ErrBadArgument = ProdosError("invalid argument")

func (e ProdosError) Error() string {
	return string(e)
}

func (e ProdosError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", string(e), message),
		originalError: e,
	}
}

func (e ProdosError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", string(e), err.Error()),
		originalError: err,
	}
}
