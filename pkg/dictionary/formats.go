// Package dictionary supplies the keys of a search: it reads line sources into
// a Corpus, keeps an exact-key index next to them, and builds the prefix tree.
package dictionary

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents the kinds of input files
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatText               // One key per line
)

// FormatInfo contains metadata about a file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	// Extensions lists the accepted extensions. Empty means any.
	Extensions []string
}

// sniffSize is how much of a file is inspected for binary content.
const sniffSize = 1024

var supportedFormats = map[FileFormat]FormatInfo{
	FormatText: {
		Format:      FormatText,
		Description: "Plain text, one key per line",
	},
}

// ValidateFileFormat checks if a file matches the expected format
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if !fileInfo.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", filename)
	}

	formatInfo, exists := supportedFormats[expectedFormat]
	if !exists {
		return fmt.Errorf("unknown format: %v", expectedFormat)
	}

	if len(formatInfo.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(filename))
		validExt := false
		for _, validExtension := range formatInfo.Extensions {
			if ext == validExtension {
				validExt = true
				break
			}
		}
		if !validExt {
			return fmt.Errorf("file %s has invalid extension %s for format %s (expected: %v)",
				filename, ext, formatInfo.Description, formatInfo.Extensions)
		}
	}

	switch expectedFormat {
	case FormatText:
		return validateTextFormat(filename)
	}
	return nil
}

// validateTextFormat rejects files whose first bytes contain NUL, which no
// line-oriented text has.
func validateTextFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	buffer := make([]byte, sniffSize)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read from text file %s: %w", filename, err)
	}
	if bytes.IndexByte(buffer[:n], 0) >= 0 {
		return fmt.Errorf("file %s looks binary", filename)
	}

	log.Debugf("Text file %s validated", filename)
	return nil
}
