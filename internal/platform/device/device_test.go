package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	assert.Equal(t, "Chrome on Windows 10", Summarize(chromeUA))
	assert.Equal(t, "unknown", Summarize(""))
	assert.Equal(t, "unknown", Summarize("???"))
}
