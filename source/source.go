package source

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// Read acquires the patch text for one invocation. Priority order: an
// explicit file argument, a stdin pipe, then the system clipboard.
func Read(fileArg string) ([]byte, error) {
	if fileArg != "" {
		data, err := os.ReadFile(fileArg)
		if err != nil {
			return nil, fmt.Errorf("failed to read patch file: %w", err)
		}
		return data, nil
	}

	if isPiped() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return data, nil
	}

	text, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return []byte(text), nil
}

// WriteClipboard copies text to the system clipboard.
func WriteClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	return nil
}

// isPiped reports whether stdin carries piped data rather than a terminal.
func isPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) == 0
}
