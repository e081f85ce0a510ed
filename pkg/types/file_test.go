package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPathIdentity_Deterministic verifies the same path always yields the
// same identity.
func TestPathIdentity_Deterministic(t *testing.T) {
	paths := []string{
		"/tmp/report.pdf",
		"/tmp/notes.md",
		"relative/path.txt",
		"/tmp/with space.docx",
		"",
	}

	for _, p := range paths {
		first := PathIdentity(p)
		second := PathIdentity(p)
		assert.Equal(t, first, second, "identity must be stable for %q", p)
		assert.Len(t, first, 64, "identity is hex SHA-256")
	}
}

// TestPathIdentity_DistinctPaths verifies distinct paths yield distinct
// identities.
func TestPathIdentity_DistinctPaths(t *testing.T) {
	seen := make(map[string]string)
	paths := []string{
		"/tmp/a.txt",
		"/tmp/b.txt",
		"/tmp/a.txt.bak",
		"/tmp/sub/a.txt",
		"/tmp/A.txt",
	}

	for _, p := range paths {
		id := PathIdentity(p)
		prev, dup := seen[id]
		require.False(t, dup, "identity collision between %q and %q", p, prev)
		seen[id] = p
	}
}

func TestFileMetadata_AttributesRoundTrip(t *testing.T) {
	meta := &FileMetadata{
		Identity:   PathIdentity("/docs/report.pdf"),
		Name:       "report.pdf",
		Extension:  ".pdf",
		Path:       "/docs/report.pdf",
		ParentDir:  "/docs",
		SizeBytes:  1048576,
		CreatedAt:  "2025-06-01T08:30:00Z",
		ModifiedAt: "2025-06-02T10:15:00Z",
		AccessedAt: "2025-06-03T09:00:00Z",
		MIMEType:   "application/pdf",
	}
	require.NoError(t, meta.Validate())

	got := MetadataFromAttributes(meta.Attributes())
	assert.Equal(t, meta, got)
}

func TestFileMetadata_Validate(t *testing.T) {
	tests := []struct {
		name    string
		meta    FileMetadata
		wantErr error
	}{
		{
			name:    "missing identity",
			meta:    FileMetadata{Path: "/tmp/a.txt"},
			wantErr: ErrMissingIdentity,
		},
		{
			name:    "missing path",
			meta:    FileMetadata{Identity: "abc"},
			wantErr: ErrMissingPath,
		},
		{
			name:    "negative size",
			meta:    FileMetadata{Identity: "abc", Path: "/tmp/a.txt", SizeBytes: -1},
			wantErr: ErrNegativeSize,
		},
		{
			name: "valid",
			meta: FileMetadata{Identity: "abc", Path: "/tmp/a.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileTask_Validate(t *testing.T) {
	assert.NoError(t, FileTask{Kind: TaskIndex, Path: "/a"}.Validate())
	assert.ErrorIs(t, FileTask{Kind: TaskKind("rename"), Path: "/a"}.Validate(), ErrUnknownTaskKind)
	assert.ErrorIs(t, FileTask{Kind: TaskMove, OldPath: "/a"}.Validate(), ErrIncompleteMove)
	assert.NoError(t, FileTask{Kind: TaskMove, OldPath: "/a", NewPath: "/b"}.Validate())
	assert.ErrorIs(t, FileTask{Kind: TaskDelete}.Validate(), ErrMissingPath)
}

func TestOutcome_Succeeded(t *testing.T) {
	assert.True(t, OutcomeSuccess.Succeeded())
	assert.True(t, OutcomeSkipped.Succeeded())
	assert.True(t, OutcomeHidden.Succeeded())
	assert.True(t, OutcomeTooLarge.Succeeded())
	assert.False(t, OutcomeFailure.Succeeded())
}
