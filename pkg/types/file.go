package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// PathIdentity derives a stable identity for a file from its path.
// Identical paths always yield identical identities; a rename produces a
// new identity. The value is the hex-encoded SHA-256 of the path bytes.
func PathIdentity(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// hiddenPrefixes marks names excluded from indexing: dotfiles, dunder
// names, and transient office lock files.
var hiddenPrefixes = []string{".", "__", "~$"}

// IsHiddenName reports whether a base name is excluded from indexing.
func IsHiddenName(name string) bool {
	for _, prefix := range hiddenPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// FileMetadata is an immutable snapshot of a file's attributes taken at
// processing time. The next processing of the same identity supersedes the
// snapshot; snapshots are never merged. Timestamps are ISO-8601 strings so
// they round-trip through store attributes unchanged.
type FileMetadata struct {
	Identity   string `json:"identity"`
	Name       string `json:"name"`
	Extension  string `json:"extension"`
	Path       string `json:"path"`
	ParentDir  string `json:"parent_dir"`
	SizeBytes  int64  `json:"size_bytes"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	AccessedAt string `json:"accessed_at"`
	MIMEType   string `json:"mime_type"`
}

// Document renders the metadata as the text that is embedded into the
// metadata collection, so file names, paths and types are all searchable.
func (m *FileMetadata) Document() string {
	return fmt.Sprintf("File: %s (%s)\nPath: %s\nParent Dir: %s\nSize: %d bytes\nModified At: %s\nType: %s",
		m.Name, m.Extension, m.Path, m.ParentDir, m.SizeBytes, m.ModifiedAt, m.MIMEType)
}

// Attributes flattens the metadata into the structured attributes stored
// alongside the embedded document. Get filters match against these keys.
func (m *FileMetadata) Attributes() map[string]string {
	return map[string]string{
		"identity":    m.Identity,
		"name":        m.Name,
		"extension":   m.Extension,
		"path":        m.Path,
		"parent_dir":  m.ParentDir,
		"size_bytes":  fmt.Sprintf("%d", m.SizeBytes),
		"created_at":  m.CreatedAt,
		"modified_at": m.ModifiedAt,
		"accessed_at": m.AccessedAt,
		"mime_type":   m.MIMEType,
	}
}

// MetadataFromAttributes rebuilds a FileMetadata from store attributes.
// Missing keys yield zero values; SizeBytes parses leniently because store
// attributes are untyped strings.
func MetadataFromAttributes(attrs map[string]string) *FileMetadata {
	m := &FileMetadata{
		Identity:   attrs["identity"],
		Name:       attrs["name"],
		Extension:  attrs["extension"],
		Path:       attrs["path"],
		ParentDir:  attrs["parent_dir"],
		CreatedAt:  attrs["created_at"],
		ModifiedAt: attrs["modified_at"],
		AccessedAt: attrs["accessed_at"],
		MIMEType:   attrs["mime_type"],
	}
	if s, ok := attrs["size_bytes"]; ok {
		_, _ = fmt.Sscanf(s, "%d", &m.SizeBytes)
	}
	return m
}

// Validate checks if the metadata snapshot is internally consistent.
func (m *FileMetadata) Validate() error {
	if m.Identity == "" {
		return ErrMissingIdentity
	}
	if m.Path == "" {
		return ErrMissingPath
	}
	if m.SizeBytes < 0 {
		return ErrNegativeSize
	}
	return nil
}
