// Package geometry identifies which of the well-known ProDOS volume sizes a
// device matches, purely for the descriptive banner cmd/prodosort prints at
// the start of a whole-volume run. It never gates behaviour — the engine
// always trusts the on-disk total_blocks field, never the guessed form
// factor. Ported from disko's disks/disks.go gocsv+go:embed table, trimmed to
// the read-side lookup; the formatting/image-creation half of that file has
// no home here since creating new images is out of scope.
package geometry

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry describes one well-known ProDOS volume size.
type Geometry struct {
	Slug        string `csv:"slug"`
	Name        string `csv:"name"`
	FormFactor  string `csv:"form_factor"`
	TotalBlocks uint   `csv:"total_blocks"`
}

//go:embed volume-geometries.csv
var rawCSV string

var byBlockCount map[uint]Geometry

func init() {
	byBlockCount = make(map[uint]Geometry)
	err := gocsv.UnmarshalToCallback(strings.NewReader(rawCSV), func(row Geometry) error {
		if _, exists := byBlockCount[row.TotalBlocks]; exists {
			return fmt.Errorf("duplicate geometry entry for %d blocks", row.TotalBlocks)
		}
		byBlockCount[row.TotalBlocks] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Describe returns a human-readable description of a volume with the given
// total block count, for the startup banner. It reports "unrecognized
// volume size" for anything not in the table rather than guessing.
func Describe(totalBlocks uint) string {
	g, ok := byBlockCount[totalBlocks]
	if !ok {
		return fmt.Sprintf("unrecognized volume size (%d blocks, %d bytes)", totalBlocks, totalBlocks*512)
	}
	return fmt.Sprintf("%s (%s, %d blocks)", g.Name, g.FormFactor, totalBlocks)
}
