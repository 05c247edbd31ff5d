package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"read", "write"},
		DedupeAndTrim([]string{" read ", "write", "read", "", "   "}))

	assert.Empty(t, DedupeAndTrim([]string{"", "  "}))
	assert.Nil(t, DedupeAndTrim(nil))

	// Case-sensitive: different cases survive.
	assert.Equal(t, []string{"Read", "read"},
		DedupeAndTrim([]string{"Read", "read"}))
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t, []string{"admin", "user"},
		DedupeAndTrimLower([]string{" ADMIN ", "user", "Admin"}))

	assert.Nil(t, DedupeAndTrimLower(nil))
}
