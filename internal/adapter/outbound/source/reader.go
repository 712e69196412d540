// Package source reads target documents from disk and validates them before
// any scanning starts.
package source

import (
	"bytes"
	"context"
	"os"
	"unicode/utf8"

	"markupcheck/internal/domain/errors/checkerr"
	"markupcheck/internal/port/outbound"
)

// DefaultMaxFileSize bounds the size of a single document.
const DefaultMaxFileSize = 10 * 1024 * 1024

//nolint:gochecknoglobals // constant byte sequence
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Limits bounds what the reader accepts.
type Limits struct {
	MaxFileSize int64
}

// FileReader reads documents from the local filesystem.
type FileReader struct {
	limits Limits
}

// NewFileReader creates a reader. A non-positive MaxFileSize selects
// DefaultMaxFileSize.
func NewFileReader(limits Limits) *FileReader {
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = DefaultMaxFileSize
	}
	return &FileReader{limits: limits}
}

var _ outbound.SourceReader = (*FileReader)(nil)

// Read loads and validates the document at path.
func (r *FileReader) Read(ctx context.Context, path string) (*outbound.Source, error) {
	if err := checkerr.TimeoutFromContext(ctx, "read"); err != nil {
		return nil, err.WithPath(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, checkerr.NewIOError(path, err).WithOperation("stat")
	}
	if info.IsDir() {
		return nil, checkerr.NewCheckError(checkerr.ErrorCategoryIO, "target is a directory").
			WithPath(path).
			WithSeverity(checkerr.ErrorSeverityCritical).
			WithSuggestion("Pass the HTML file itself, not its directory")
	}
	if info.Size() > r.limits.MaxFileSize {
		return nil, checkerr.NewResourceLimitError("file too large to check").
			WithPath(path).
			WithDetails("file_size", info.Size()).
			WithDetails("max_size", r.limits.MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, checkerr.NewIOError(path, err).WithOperation("read")
	}

	src := &outbound.Source{Path: path, Content: content, Size: info.Size()}
	if bytes.HasPrefix(content, utf8BOM) {
		src.Content = content[len(utf8BOM):]
		src.BOMStripped = true
	}

	if cerr := validateEncoding(src.Content); cerr != nil {
		return nil, cerr.WithPath(path)
	}
	return src, nil
}

const binarySampleRunes = 32

// validateEncoding rejects content that is not UTF-8 text.
func validateEncoding(content []byte) *checkerr.CheckError {
	if i := bytes.IndexByte(content, 0); i >= 0 {
		return checkerr.NewEncodingError("invalid source: contains null bytes").
			WithLine(lineAt(content, i)).
			WithDetails("byte_position", i).
			WithSuggestion("Remove null bytes from the document")
	}

	if !utf8.Valid(content) {
		i := firstInvalid(content)
		return checkerr.NewEncodingError("invalid encoding: document contains non-UTF8 bytes").
			WithLine(lineAt(content, i)).
			WithDetails("byte_position", i)
	}

	// More than 10% control characters means this is not a text document.
	// Short documents are measured against binarySampleRunes so that a single
	// stray escape does not tip the ratio.
	control, total := 0, 0
	for _, r := range string(content) {
		total++
		if r < 32 && r != '\n' && r != '\r' && r != '\t' && r != '\f' {
			control++
		}
	}
	if control*10 > max(total, binarySampleRunes) {
		return checkerr.NewEncodingError("invalid source: content looks binary").
			WithDetails("control_chars", control).
			WithDetails("total_chars", total)
	}
	return nil
}

func firstInvalid(content []byte) int {
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(content)
}

func lineAt(content []byte, offset int) int {
	return bytes.Count(content[:offset], []byte("\n")) + 1
}
