// Package extract turns file bytes into plain text for the content index.
//
// Extraction is a dispatch table keyed on MIME type first and file
// extension as fallback. Each extractor is a pure function from a file to
// text; a format with no extractor yields ErrUnsupportedFormat, which the
// processor treats as "no content", never as a task failure.
package extract

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFormat marks a file with no matching extractor. Callers
// index such files by metadata alone.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DefaultMIMEType is used when neither the extension nor the content
// reveals a type.
const DefaultMIMEType = "application/octet-stream"

// textExtensions are code and plain-text formats handled by the text
// extractor even when the platform MIME table does not know them.
var textExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".cpp": true, ".c": true, ".h": true, ".cs": true,
	".php": true, ".rb": true, ".go": true, ".rs": true, ".swift": true,
	".kt": true, ".scala": true, ".css": true, ".scss": true, ".sass": true,
	".less": true, ".json": true, ".xml": true, ".yaml": true, ".yml": true,
	".ini": true, ".cfg": true, ".conf": true, ".log": true, ".sql": true,
	".sh": true, ".bash": true, ".zsh": true, ".txt": true, ".csv": true,
	".tsv": true,
}

// IsTextExtension reports whether ext (with leading dot, lowercase) is in
// the plain-text/code class used by the size-gate policy.
func IsTextExtension(ext string) bool {
	return textExtensions[ext]
}

// GuessMIME determines a file's MIME type: extension table first, content
// sniff as fallback, octet-stream as the default.
func GuessMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			// Strip parameters like "; charset=utf-8"
			if mediaType, _, err := mime.ParseMediaType(t); err == nil {
				return mediaType
			}
			return t
		}
	}
	if detected, err := mimetype.DetectFile(path); err == nil {
		return detected.String()
	}
	return DefaultMIMEType
}

// Extract dispatches to the extractor for the file's declared MIME type or
// extension and returns the extracted plain text. Unknown formats return
// ErrUnsupportedFormat.
func Extract(path, mimeType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case mimeType == "application/pdf" || ext == ".pdf":
		return extractPDF(path)
	case ext == ".docx":
		return extractDOCX(path)
	case ext == ".xlsx" || ext == ".xlsm":
		return extractXLSX(path)
	case ext == ".pptx":
		return extractPPTX(path)
	case ext == ".html" || ext == ".htm" || ext == ".xhtml":
		return extractHTML(path)
	case ext == ".md" || ext == ".markdown":
		return extractMarkdown(path)
	case strings.HasPrefix(mimeType, "text/") || textExtensions[ext]:
		return extractText(path)
	default:
		return "", ErrUnsupportedFormat
	}
}
