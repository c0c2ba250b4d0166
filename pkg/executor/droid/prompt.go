package droid

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// ProjectContextFile is the per-directory context file prepended to prompts.
	ProjectContextFile = "DROID.md"

	MaxProjectContextSize     = 1024 * 1024
	MaxProjectContextFileSize = 10 * 1024 * 1024
)

// ReadProjectContext loads DROID.md from dir. It returns the usable context
// (empty when absent or rejected) and a warning when the file was truncated or
// skipped. Failures never abort a run.
func ReadProjectContext(dir string) (content string, warning string) {
	path := filepath.Join(dir, ProjectContextFile)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ""
		}
		return "", fmt.Sprintf("Failed to read %s metadata: %v", ProjectContextFile, err)
	}

	fileSize := info.Size()
	if fileSize > MaxProjectContextFileSize {
		return "", fmt.Sprintf("%s is %d bytes, exceeding the absolute maximum of %d bytes and will be skipped.",
			ProjectContextFile, fileSize, MaxProjectContextFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Sprintf("Failed to open %s: %v", ProjectContextFile, err)
	}
	defer f.Close()

	// Read a few bytes past the limit so a split rune at the boundary can be
	// detected without loading the whole file.
	buf, err := io.ReadAll(io.LimitReader(f, MaxProjectContextSize+4))
	if err != nil {
		return "", fmt.Sprintf("Failed to read %s: %v", ProjectContextFile, err)
	}
	if len(buf) == 0 {
		return "", ""
	}

	if len(buf) <= MaxProjectContextSize {
		if !utf8.Valid(buf) {
			return "", ProjectContextFile + " contains invalid UTF-8 and was skipped."
		}
		text := string(buf)
		if strings.TrimSpace(text) == "" {
			return "", ""
		}
		return text, ""
	}

	prefix := validPrefix(buf[:MaxProjectContextSize])
	if len(prefix) == 0 {
		return "", ProjectContextFile + " contains invalid UTF-8 and was skipped."
	}
	return string(prefix), fmt.Sprintf("%s is %d bytes, exceeding the %d byte limit and was truncated to %d bytes.",
		ProjectContextFile, fileSize, MaxProjectContextSize, len(prefix))
}

// validPrefix returns the longest prefix of b that is valid UTF-8.
func validPrefix(b []byte) []byte {
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		i += size
	}
	return b[:i]
}

// ComposePrompt prepends the project context, when present, to instruction.
func ComposePrompt(context, instruction string) string {
	if context == "" {
		return instruction
	}
	return "<system_prompt>\n" + context + "\n</system_prompt>\n\n" + instruction
}
