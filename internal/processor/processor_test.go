package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fileindex-mcp/internal/embedder"
	"github.com/dshills/fileindex-mcp/internal/recovery"
	"github.com/dshills/fileindex-mcp/internal/store"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

func newTestStore(t *testing.T) *store.Memory {
	t.Helper()
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	return store.NewMemory(emb)
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcess_IndexSuccess(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)
	path := writeTemp(t, "report.txt", "quarterly report body")

	outcome := proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: path})
	require.Equal(t, types.OutcomeSuccess, outcome)

	identity := types.PathIdentity(path)
	metas, err := st.Get(context.Background(), store.CollectionMetadata, map[string]string{"identity": identity})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "report.txt", metas[0].Attributes["name"])
	assert.Equal(t, store.MetaKey(identity), metas[0].Key)

	contents, err := st.Get(context.Background(), store.CollectionContent, map[string]string{"identity": identity})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, "quarterly report body", contents[0].Text)
}

func TestProcess_HiddenFiles(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)
	dir := t.TempDir()

	for _, name := range []string{".env", "__pycache__cache.txt", "~$draft.docx"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		outcome := proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: path})
		assert.Equal(t, types.OutcomeHidden, outcome, name)
	}

	// Nothing reached the store.
	records, err := st.Get(context.Background(), store.CollectionMetadata, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcess_SizeGateBoundary(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)
	dir := t.TempDir()

	// Sparse files keep the test fast; only the stat size matters for the
	// gate, and the unparsable body degrades to metadata-only indexing.
	atLimit := filepath.Join(dir, "exact.pdf")
	f, err := os.Create(atLimit)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(SizeLimitPDF))
	require.NoError(t, f.Close())

	overLimit := filepath.Join(dir, "over.pdf")
	f, err = os.Create(overLimit)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(SizeLimitPDF+1))
	require.NoError(t, f.Close())

	assert.Equal(t, types.OutcomeSuccess,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: atLimit}),
		"a file exactly at the limit is indexed")
	assert.Equal(t, types.OutcomeTooLarge,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: overLimit}),
		"one byte over the limit is rejected")
}

func TestSizeLimitFor(t *testing.T) {
	assert.Equal(t, int64(SizeLimitPDF), SizeLimitFor(".pdf"))
	assert.Equal(t, int64(SizeLimitOffice), SizeLimitFor(".docx"))
	assert.Equal(t, int64(SizeLimitOffice), SizeLimitFor(".xlsx"))
	assert.Equal(t, int64(SizeLimitOffice), SizeLimitFor(".pptx"))
	assert.Equal(t, int64(SizeLimitText), SizeLimitFor(".txt"))
	assert.Equal(t, int64(SizeLimitText), SizeLimitFor(".go"))
	assert.Equal(t, int64(SizeLimitDefault), SizeLimitFor(".sqlite"))
	assert.Equal(t, int64(SizeLimitDefault), SizeLimitFor(""))
}

func TestProcess_ChangeDetection(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)
	path := writeTemp(t, "stable.txt", "unchanging content")

	first := proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: path})
	require.Equal(t, types.OutcomeSuccess, first)

	second := proc.Process(context.Background(), types.FileTask{Kind: types.TaskUpdate, Path: path})
	assert.Equal(t, types.OutcomeSkipped, second, "unchanged file is skipped on re-index")
}

func TestProcess_MissingFile(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)

	outcome := proc.Process(context.Background(), types.FileTask{
		Kind: types.TaskIndex,
		Path: filepath.Join(t.TempDir(), "never-existed.txt"),
	})
	assert.Equal(t, types.OutcomeFailure, outcome)
}

func TestProcess_Directory(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)

	outcome := proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: t.TempDir()})
	assert.Equal(t, types.OutcomeFailure, outcome)
}

func TestProcess_Delete(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)
	path := writeTemp(t, "doomed.txt", "to be removed")

	require.Equal(t, types.OutcomeSuccess,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: path}))
	require.Equal(t, types.OutcomeSuccess,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskDelete, Path: path}))

	identity := types.PathIdentity(path)
	metas, err := st.Get(context.Background(), store.CollectionMetadata, map[string]string{"identity": identity})
	require.NoError(t, err)
	assert.Empty(t, metas)

	// Deleting an unindexed path is a no-op, not an error.
	assert.Equal(t, types.OutcomeSuccess,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskDelete, Path: path}))
}

func TestProcess_Move(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)
	dir := t.TempDir()

	oldPath := filepath.Join(dir, "before.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("moving target"), 0o644))
	require.Equal(t, types.OutcomeSuccess,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: oldPath}))

	newPath := filepath.Join(dir, "after.txt")
	require.NoError(t, os.Rename(oldPath, newPath))

	outcome := proc.Process(context.Background(), types.FileTask{
		Kind:    types.TaskMove,
		OldPath: oldPath,
		NewPath: newPath,
	})
	require.Equal(t, types.OutcomeSuccess, outcome)

	oldRecords, err := st.Get(context.Background(), store.CollectionMetadata,
		map[string]string{"identity": types.PathIdentity(oldPath)})
	require.NoError(t, err)
	assert.Empty(t, oldRecords, "old identity is gone after a move")

	newRecords, err := st.Get(context.Background(), store.CollectionMetadata,
		map[string]string{"identity": types.PathIdentity(newPath)})
	require.NoError(t, err)
	require.Len(t, newRecords, 1)
	assert.Equal(t, "after.txt", newRecords[0].Attributes["name"])
}

func TestProcess_MalformedTask(t *testing.T) {
	proc := New(newTestStore(t), nil)

	assert.Equal(t, types.OutcomeFailure,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex}))
	assert.Equal(t, types.OutcomeFailure,
		proc.Process(context.Background(), types.FileTask{Kind: "vacuum", Path: "/tmp/x"}))
	assert.Equal(t, types.OutcomeFailure,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskMove, OldPath: "/tmp/a"}))
}

func TestProcess_BatchedUpserts(t *testing.T) {
	st := newTestStore(t)
	snapshot := filepath.Join(t.TempDir(), "pending.json")
	batch := recovery.New(snapshot, st)
	proc := New(st, batch)
	path := writeTemp(t, "spooled.txt", "batched body")

	require.Equal(t, types.OutcomeSuccess,
		proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: path}))

	// Nothing is in the store until the batch flushes.
	identity := types.PathIdentity(path)
	metas, err := st.Get(context.Background(), store.CollectionMetadata, map[string]string{"identity": identity})
	require.NoError(t, err)
	assert.Empty(t, metas)
	assert.Equal(t, 2, batch.Pending(), "metadata and content entries are pending")

	require.NoError(t, batch.Flush(context.Background()))

	metas, err = st.Get(context.Background(), store.CollectionMetadata, map[string]string{"identity": identity})
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestProcess_UnsupportedContentDegrades(t *testing.T) {
	st := newTestStore(t)
	proc := New(st, nil)
	dir := t.TempDir()

	path := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0xFF, 0x13, 0x37}, 0o644))

	outcome := proc.Process(context.Background(), types.FileTask{Kind: types.TaskIndex, Path: path})
	require.Equal(t, types.OutcomeSuccess, outcome, "metadata-only indexing on extraction failure")

	identity := types.PathIdentity(path)
	metas, err := st.Get(context.Background(), store.CollectionMetadata, map[string]string{"identity": identity})
	require.NoError(t, err)
	assert.Len(t, metas, 1)

	contents, err := st.Get(context.Background(), store.CollectionContent, map[string]string{"identity": identity})
	require.NoError(t, err)
	assert.Empty(t, contents, "no content record when extraction fails")
}
