package locale

import (
	"testing"

	"golang.org/x/text/language"
)

func mustTag(t *testing.T, s string) language.Tag {
	t.Helper()

	tag, err := language.Parse(s)
	if err != nil {
		t.Fatalf("failed to parse %q: %s", s, err)
	}
	return tag
}
