package db

import (
	"context"
	"encoding/json"
	"fmt"
)

// UpsertItem inserts or updates a collection item. Rows are keyed by the
// source page, so a renamed item moves its row to the new path; a different
// page that held that path before loses its row.
func (db *DB) UpsertItem(ctx context.Context, item *ContentItem) error {
	frontmatterJSON, err := json.Marshal(item.Frontmatter)
	if err != nil {
		return fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteDisplacedItemSQL, item.Path, item.ID); err != nil {
		return fmt.Errorf("failed to free path %s: %w", item.Path, err)
	}
	_, err = tx.Exec(ctx, upsertItemSQL,
		item.ID, item.Path, item.Collection, item.Slug, item.Title,
		item.Status, tags, frontmatterJSON, item.Body, item.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.Path, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

const deleteDisplacedItemSQL = `DELETE FROM content_items WHERE path = $1 AND id <> $2`

const upsertItemSQL = `
	INSERT INTO content_items (
		id, path, collection, slug, title, status, tags,
		frontmatter, body, content_hash
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)
	ON CONFLICT (id) DO UPDATE SET
		path = EXCLUDED.path,
		collection = EXCLUDED.collection,
		slug = EXCLUDED.slug,
		title = EXCLUDED.title,
		status = EXCLUDED.status,
		tags = EXCLUDED.tags,
		frontmatter = EXCLUDED.frontmatter,
		body = EXCLUDED.body,
		content_hash = EXCLUDED.content_hash,
		synced_at = NOW()
	WHERE content_items.content_hash <> EXCLUDED.content_hash
		OR content_items.path <> EXCLUDED.path
`

// UpsertDocument inserts or updates a JSON config document
func (db *DB) UpsertDocument(ctx context.Context, doc *ContentDocument) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO content_documents (
			id, path, kind, data, content_hash
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (path) DO UPDATE SET
			kind = EXCLUDED.kind,
			data = EXCLUDED.data,
			content_hash = EXCLUDED.content_hash,
			synced_at = NOW()
		WHERE content_documents.content_hash <> EXCLUDED.content_hash
	`,
		doc.ID, doc.Path, doc.Kind, []byte(doc.Data), doc.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.Path, err)
	}
	return nil
}

// GetAllItemPaths returns all item paths in the mirror
func (db *DB) GetAllItemPaths(ctx context.Context) ([]string, error) {
	return db.paths(ctx, "SELECT path FROM content_items ORDER BY path")
}

// GetAllDocumentPaths returns all document paths in the mirror
func (db *DB) GetAllDocumentPaths(ctx context.Context) ([]string, error) {
	return db.paths(ctx, "SELECT path FROM content_documents ORDER BY path")
}

func (db *DB) paths(ctx context.Context, query string) ([]string, error) {
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

// DeleteStale removes the items and documents whose paths are not in keep
func (db *DB) DeleteStale(ctx context.Context, keepItems, keepDocuments []string) (int64, error) {
	if keepItems == nil {
		keepItems = []string{}
	}
	if keepDocuments == nil {
		keepDocuments = []string{}
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	items, err := tx.Exec(ctx, "DELETE FROM content_items WHERE NOT (path = ANY($1))", keepItems)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale items: %w", err)
	}
	docs, err := tx.Exec(ctx, "DELETE FROM content_documents WHERE NOT (path = ANY($1))", keepDocuments)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale documents: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return items.RowsAffected() + docs.RowsAffected(), nil
}

// MissingPaths returns the mirrored paths that have no local counterpart,
// in the order of mirrored
func MissingPaths(mirrored, local []string) []string {
	have := make(map[string]bool, len(local))
	for _, p := range local {
		have[p] = true
	}
	var missing []string
	for _, p := range mirrored {
		if !have[p] {
			missing = append(missing, p)
		}
	}
	return missing
}
