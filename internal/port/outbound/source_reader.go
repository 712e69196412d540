package outbound

import "context"

// SourceReader loads a target document into memory.
type SourceReader interface {
	// Read returns the validated document at path. Failures are returned as
	// *checkerr.CheckError values.
	Read(ctx context.Context, path string) (*Source, error)
}

// Source is a document ready to be checked.
type Source struct {
	Path    string
	Content []byte
	// Size is the size on disk, before a byte order mark was removed.
	Size int64
	// BOMStripped is set when a leading UTF-8 byte order mark was removed.
	BOMStripped bool
}

// Empty reports whether the document holds only whitespace.
func (s *Source) Empty() bool {
	for _, b := range s.Content {
		switch b {
		case ' ', '\t', '\n', '\r', '\f':
		default:
			return false
		}
	}
	return true
}
