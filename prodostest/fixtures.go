package prodostest

import (
	"bytes"
	"io"
	"testing"

	"github.com/bobbimanners/prodosort/prodos"
	"github.com/bobbimanners/prodosort/utilities/compression"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// LoadCompressedImage decompresses an RLE8+gzip fixture image (produced by
// compression.CompressImage) and wraps it as an in-memory io.ReadWriteSeeker.
// Kept separate from Build so that hand-authored binary fixtures (captured
// from a real volume) can exercise the engine alongside the synthetic
// volumes Build produces.
func LoadCompressedImage(t *testing.T, compressed []byte, totalBlocks uint) io.ReadWriteSeeker {
	require.Greater(t, len(compressed), 0, "compressed fixture is empty")

	raw, err := compression.DecompressImageToBytes(bytes.NewReader(compressed))
	require.NoError(t, err)
	require.Equal(t, totalBlocks*prodos.BlockSize, uint(len(raw)), "decompressed fixture is the wrong size")

	return bytesextra.NewReadWriteSeeker(raw)
}
