package banner

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrint(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	Print(&buf, "v1.2.0", "abc-123", "./plugins")
	out := buf.String()
	assert.Contains(t, out, "mainurlhunter v1.2.0 | run abc-123")
	assert.Contains(t, out, "plugins: ./plugins")
}
