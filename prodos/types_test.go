package prodos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDirectoryHeader(t *testing.T) {
	assert.True(t, StorageVolumeDirectoryHeader.IsDirectoryHeader())
	assert.True(t, StorageSubdirectoryHeader.IsDirectoryHeader())
	assert.False(t, StorageSeedling.IsDirectoryHeader())
	assert.False(t, StorageSubdirectory.IsDirectoryHeader())
}

func TestLetter_OneCharacterPerStorageType(t *testing.T) {
	cases := map[StorageType]byte{
		StorageSeedling:   'S',
		StorageSapling:    'A',
		StorageTree:       'T',
		StoragePascalArea: 'P',
		StorageExtended:   'X',
		StorageSubdirectory: 'D',
	}
	for st, want := range cases {
		assert.Equal(t, want, st.Letter(), "storage type %#x", byte(st))
	}
	assert.Equal(t, byte('?'), StorageDeleted.Letter())
}
