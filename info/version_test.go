package info

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullVersion(t *testing.T) {
	Set("dbinit", "v1.2.3", "AGPL")

	full := FullVersion()
	assert.Contains(t, full, "dbinit v1.2.3")
	assert.Contains(t, full, "major version "+MajorVersion)
	assert.Contains(t, full, "Licensed under the AGPL license.")
	assert.Contains(t, Version(), "v1.2.3")
}
