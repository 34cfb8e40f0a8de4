package output

import (
	"bytes"
	"fmt"

	"github.com/selimozcann/mainurlhunter/internal/fsutil"
)

// WriteHTMLFile renders the report and replaces path atomically, so a failed
// render never leaves a truncated report behind.
func WriteHTMLFile(path string, data PageData) error {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write html report: %w", err)
	}
	return nil
}
