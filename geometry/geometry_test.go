package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe_KnownSizes(t *testing.T) {
	assert.Contains(t, Describe(280), "140K")
	assert.Contains(t, Describe(1600), "800K")
}

func TestDescribe_UnknownSize(t *testing.T) {
	assert.Contains(t, Describe(999), "unrecognized volume size")
}
