// Package processor implements the per-task state machine at the heart of
// the indexing pipeline: classify, size-gate, change-detect, extract,
// upsert or delete against the similarity store.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/fileindex-mcp/internal/extract"
	"github.com/dshills/fileindex-mcp/internal/recovery"
	"github.com/dshills/fileindex-mcp/internal/store"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

// Size limits by extension class, inclusive.
const (
	SizeLimitPDF     = 50_000_000
	SizeLimitOffice  = 20_000_000
	SizeLimitText    = 5_000_000
	SizeLimitDefault = 10_000_000
)

// Processor executes file tasks against the store. Each worker owns one
// Processor instance; the store and the optional recovery batch are the
// only shared resources, both internally synchronized.
type Processor struct {
	store store.Store
	batch *recovery.Log // nil means upserts go straight to the store
}

// New creates a Processor. If batch is non-nil, upserts are spooled through
// the crash-recovery log instead of written directly.
func New(st store.Store, batch *recovery.Log) *Processor {
	return &Processor{store: st, batch: batch}
}

// Process runs one task to a terminal outcome. It never panics for
// ordinary file errors; anything unexpected is reported as OutcomeFailure.
func (p *Processor) Process(ctx context.Context, task types.FileTask) types.Outcome {
	if err := task.Validate(); err != nil {
		log.Printf("malformed task %+v: %v", task, err)
		return types.OutcomeFailure
	}

	switch task.Kind {
	case types.TaskIndex, types.TaskUpdate:
		return p.indexFile(ctx, task.Path)
	case types.TaskDelete:
		return p.deleteFile(ctx, task.Path)
	case types.TaskMove:
		return p.moveFile(ctx, task)
	default:
		return types.OutcomeFailure
	}
}

// indexFile walks the Index/Update state machine for one path.
func (p *Processor) indexFile(ctx context.Context, path string) types.Outcome {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		log.Printf("file does not exist or is a directory: %s", path)
		return types.OutcomeFailure
	}

	name := filepath.Base(path)
	if types.IsHiddenName(name) {
		return types.OutcomeHidden
	}

	ext := strings.ToLower(filepath.Ext(path))
	if info.Size() > SizeLimitFor(ext) {
		log.Printf("skipping large file: %s (%d bytes)", name, info.Size())
		return types.OutcomeTooLarge
	}

	meta := extractMetadata(path, info)

	unchanged, err := p.fileUnchanged(ctx, meta)
	if err != nil {
		log.Printf("change detection for %s: %v", name, err)
		// Fall through and re-index; a stale record is worse than a
		// redundant upsert.
	}
	if unchanged {
		return types.OutcomeSkipped
	}

	content, err := extract.Extract(path, meta.MIMEType)
	if err != nil {
		// Extraction failure degrades to metadata-only indexing.
		if !errors.Is(err, extract.ErrUnsupportedFormat) {
			log.Printf("content extraction for %s: %v", name, err)
		}
		content = ""
	}

	if err := p.upsert(ctx, store.CollectionMetadata, store.MetaKey(meta.Identity), meta.Document(), meta.Attributes()); err != nil {
		log.Printf("metadata upsert for %s: %v", name, err)
		return types.OutcomeFailure
	}
	if content != "" {
		if err := p.upsert(ctx, store.CollectionContent, store.ContentKey(meta.Identity), content, meta.Attributes()); err != nil {
			log.Printf("content upsert for %s: %v", name, err)
			return types.OutcomeFailure
		}
	}

	return types.OutcomeSuccess
}

// deleteFile removes both records for the path's identity. Absent records
// are fine: delete is idempotent.
func (p *Processor) deleteFile(ctx context.Context, path string) types.Outcome {
	identity := types.PathIdentity(path)

	if err := p.store.Delete(ctx, store.CollectionMetadata, store.MetaKey(identity)); err != nil {
		log.Printf("metadata delete for %s: %v", path, err)
		return types.OutcomeFailure
	}
	if err := p.store.Delete(ctx, store.CollectionContent, store.ContentKey(identity)); err != nil {
		log.Printf("content delete for %s: %v", path, err)
		return types.OutcomeFailure
	}
	return types.OutcomeSuccess
}

// moveFile decomposes a rename into delete(old) + index(new). The two
// steps are NOT atomic: a crash in between leaves the old record gone and
// the new one absent until the next full pass. Accepted limitation.
func (p *Processor) moveFile(ctx context.Context, task types.FileTask) types.Outcome {
	if outcome := p.deleteFile(ctx, task.OldPath); outcome == types.OutcomeFailure {
		return types.OutcomeFailure
	}
	return p.indexFile(ctx, task.NewPath)
}

// fileUnchanged checks the stored metadata record for this identity; a
// matching modified timestamp means the last index is still current.
func (p *Processor) fileUnchanged(ctx context.Context, meta *types.FileMetadata) (bool, error) {
	records, err := p.store.Get(ctx, store.CollectionMetadata, map[string]string{"identity": meta.Identity})
	if err != nil {
		return false, fmt.Errorf("lookup identity %s: %w", meta.Identity, err)
	}
	if len(records) == 0 {
		return false, nil
	}
	return records[0].Attributes["modified_at"] == meta.ModifiedAt, nil
}

func (p *Processor) upsert(ctx context.Context, collection, key, text string, attrs map[string]string) error {
	if p.batch != nil {
		return p.batch.Append(ctx, recovery.Entry{
			Collection: collection,
			Key:        key,
			Text:       text,
			Attributes: attrs,
		})
	}
	return p.store.Upsert(ctx, collection, key, text, attrs)
}

// SizeLimitFor returns the inclusive byte limit for an extension
// (lowercase, with leading dot).
func SizeLimitFor(ext string) int64 {
	switch {
	case ext == ".pdf":
		return SizeLimitPDF
	case ext == ".docx" || ext == ".xlsx" || ext == ".pptx":
		return SizeLimitOffice
	case extract.IsTextExtension(ext):
		return SizeLimitText
	default:
		return SizeLimitDefault
	}
}

// extractMetadata snapshots a file's attributes. Timestamps are ISO-8601.
func extractMetadata(path string, info os.FileInfo) *types.FileMetadata {
	created, accessed := statTimes(info)
	return &types.FileMetadata{
		Identity:   types.PathIdentity(path),
		Name:       filepath.Base(path),
		Extension:  strings.ToLower(filepath.Ext(path)),
		Path:       path,
		ParentDir:  filepath.Dir(path),
		SizeBytes:  info.Size(),
		CreatedAt:  created,
		ModifiedAt: info.ModTime().UTC().Format(timeLayout),
		AccessedAt: accessed,
		MIMEType:   extract.GuessMIME(path),
	}
}
