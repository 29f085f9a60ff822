package prodos

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdReporter_PrefixesFatalAndNonFatalDifferently(t *testing.T) {
	var buf bytes.Buffer
	r := StdReporter{Out: &buf}

	r.Error(true, "disk is unreadable")
	r.Error(false, "file_count mismatch")
	r.Status("directory 2: not writing")

	assert.Equal(t, "** disk is unreadable\n  file_count mismatch\ndirectory 2: not writing\n", buf.String())
}
