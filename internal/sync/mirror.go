package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/vonshlovens/notion-sync/internal/db"
	"github.com/vonshlovens/notion-sync/internal/markdown"
	"github.com/vonshlovens/notion-sync/internal/schema"
	"github.com/vonshlovens/notion-sync/internal/store"
)

// Mirror receives the content written by a run. *db.DB implements it.
type Mirror interface {
	UpsertItem(ctx context.Context, item *db.ContentItem) error
	UpsertDocument(ctx context.Context, doc *db.ContentDocument) error
	DeleteStale(ctx context.Context, keepItems, keepDocuments []string) (int64, error)
}

var _ Mirror = (*db.DB)(nil)

// pendingMirror collects what a run wrote until the mirror is flushed
type pendingMirror struct {
	items     []*db.ContentItem
	documents []*db.ContentDocument
}

func (p *pendingMirror) document(rel string, data []byte) {
	p.documents = append(p.documents, &db.ContentDocument{
		ID:          db.DocumentID(rel),
		Path:        rel,
		Kind:        strings.TrimSuffix(path.Base(rel), path.Ext(rel)),
		Data:        json.RawMessage(data),
		ContentHash: store.HashContent(data),
	})
}

func (p *pendingMirror) item(rel, collection, pageID string, doc markdown.Document) {
	data, err := doc.Encode()
	if err != nil {
		slog.Warn("failed to encode item for mirror", "path", rel, "error", err)
		return
	}
	p.items = append(p.items, &db.ContentItem{
		ID:          db.ItemID(pageID),
		Path:        rel,
		Collection:  collection,
		Slug:        doc.Front.String(schema.FieldSlug),
		Title:       doc.Front.String(schema.FieldTitle),
		Status:      doc.Front.String(schema.FieldStatus),
		Tags:        doc.Front.Strings("tags"),
		Frontmatter: frontmatterMap(doc.Front),
		Body:        doc.Body,
		ContentHash: store.HashContent(data),
	})
}

func frontmatterMap(rec schema.Record) map[string]any {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// flushMirror upserts everything written in this run. With prune set, rows
// for content no longer produced are deleted.
func (e *Engine) flushMirror(ctx context.Context, prune bool) error {
	var keepItems, keepDocs []string
	for _, it := range e.pending.items {
		if err := e.mirror.UpsertItem(ctx, it); err != nil {
			return err
		}
		keepItems = append(keepItems, it.Path)
	}
	for _, doc := range e.pending.documents {
		if err := e.mirror.UpsertDocument(ctx, doc); err != nil {
			return err
		}
		keepDocs = append(keepDocs, doc.Path)
	}

	var removed int64
	if prune {
		n, err := e.mirror.DeleteStale(ctx, keepItems, keepDocs)
		if err != nil {
			return fmt.Errorf("failed to delete stale rows: %w", err)
		}
		removed = n
	}

	e.printf("mirror: %d items, %d documents upserted, %d stale rows removed",
		len(keepItems), len(keepDocs), removed)
	return nil
}

func (e *Engine) queueItem(rel, collection, pageID string, doc markdown.Document) {
	if e.mirror != nil {
		e.pending.item(rel, collection, pageID, doc)
	}
}

func (e *Engine) queueDocument(rel string, data []byte) {
	if e.mirror != nil {
		e.pending.document(rel, data)
	}
}
