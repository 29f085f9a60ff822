package dirreader

import "github.com/bobbimanners/prodosort/prodos"

// headerName extracts a directory header's own raw name as uppercase ASCII
// — ProDOS never stores a lowercase byte on disk regardless of the case
// bitmap — so BlockIO's write-suppression check ("LIB"/"LIBRARIES") can
// compare against it directly without going through namecase.
func headerName(headerEntry prodos.EntryBytes) string {
	raw := headerEntry.RawName()
	return string(raw[:headerEntry.NameLength()])
}
