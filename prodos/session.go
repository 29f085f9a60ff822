package prodos

import (
	"fmt"
	"io"
)

// FixMode is the three-valued policy governing how structural
// inconsistencies are repaired: prompt, always repair, or leave alone.
type FixMode int

const (
	// FixAsk prompts the user for each inconsistency via the injected
	// Prompt callback.
	FixAsk FixMode = iota
	// FixAlways repairs every inconsistency without prompting.
	FixAlways
	// FixNever leaves every inconsistency in place; a directory left with
	// an unrepaired inconsistency is not rewritten.
	FixNever
)

// Scope selects how much of the volume TraversalDriver covers.
type Scope int

const (
	// ScopeDirectory processes only the starting directory.
	ScopeDirectory Scope = iota
	// ScopeSubtree recurses into the starting directory's descendants.
	ScopeSubtree
	// ScopeVolume recurses the whole volume from the volume directory
	// (block 2) and runs free-list reconciliation at the end.
	ScopeVolume
)

// NameCaseTransform identifies which of the four namecase.Transform values
// (if any) RunOptions requests; it's duplicated here rather than imported
// from package namecase so that prodos stays a leaf package with no
// sibling imports.
type NameCaseTransform int

const (
	NameCaseNone NameCaseTransform = iota
	NameCaseLower
	NameCaseUpper
	NameCaseInitial
	NameCaseCamel
)

// DateFormat selects the on-disk date/time encoding DirReader re-emits.
type DateFormat int

const (
	// DateFormatUnchanged leaves a timestamp exactly as read; DirReader
	// skips re-emitting it entirely.
	DateFormatUnchanged DateFormat = iota
	DateFormatLegacy
	DateFormatNew
)

// RunOptions is built directly from parsed CLI flags; nothing in the core
// engine reads a flag string directly.
type RunOptions struct {
	SortKeys   []byte // up to 4 keys; empty means no sort
	NameCase   NameCaseTransform
	DateFormat DateFormat
	FixMode    FixMode
	Scope      Scope
	Write      bool
	ZeroFree   bool
}

// Prompt is injected by the driver to ask the user whether to apply a fix
// when FixMode is FixAsk. It returns true to apply the fix.
type Prompt func(description string) bool

// Session threads the volume size, option flags, fix prompt, and reporter
// explicitly through the components that need them, rather than holding any
// of it as package-level state; the device handle and both bitmaps are
// passed to each component separately. It's created once at the start of a
// traversal and discarded at the end; no state persists between runs.
type Session struct {
	TotalBlocks uint
	Options     RunOptions
	Prompt      Prompt

	// Out receives every status and error line; Options stays read-only
	// after construction.
	Out Reporter
}

// Reporter is the line-oriented status/error sink every component writes
// through, rather than calling fmt.Println directly: every error emits a
// single line prefixed with "** " for fatal or two spaces for non-fatal.
type Reporter interface {
	Status(line string)
	Error(fatal bool, line string)
}

// StdReporter is the default Reporter, writing directly to an injected
// io.Writer (stdout in cmd/prodosort) with no further formatting layer —
// straight to the stream, not through a logging library.
type StdReporter struct {
	Out io.Writer
}

func (r StdReporter) Status(line string) {
	fmt.Fprintln(r.Out, line)
}

func (r StdReporter) Error(fatal bool, line string) {
	if fatal {
		fmt.Fprintln(r.Out, "** "+line)
	} else {
		fmt.Fprintln(r.Out, "  "+line)
	}
}
