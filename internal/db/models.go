package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ContentItem is one published collection item
type ContentItem struct {
	ID          uuid.UUID      `db:"id"`
	Path        string         `db:"path"`
	Collection  string         `db:"collection"`
	Slug        string         `db:"slug"`
	Title       string         `db:"title"`
	Status      string         `db:"status"`
	Tags        []string       `db:"tags"`
	Frontmatter map[string]any `db:"frontmatter"`
	Body        string         `db:"body"`
	ContentHash string         `db:"content_hash"`
	SyncedAt    time.Time      `db:"synced_at"`
}

// ContentDocument is one JSON config document, such as config/site.json
type ContentDocument struct {
	ID          uuid.UUID       `db:"id"`
	Path        string          `db:"path"`
	Kind        string          `db:"kind"`
	Data        json.RawMessage `db:"data"`
	ContentHash string          `db:"content_hash"`
	SyncedAt    time.Time       `db:"synced_at"`
}

// SyncStatus represents the state of the mirror
type SyncStatus struct {
	Connected      bool
	LastSyncTime   *time.Time
	TotalItems     int
	TotalDocuments int
	Collections    map[string]int
}

// ItemID derives the row id of an item from its source page id, so the
// same page keeps its row across renames.
func ItemID(pageID string) uuid.UUID {
	if id, err := uuid.Parse(pageID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("notion-sync:item:"+pageID))
}

// DocumentID derives the row id of a document from its content path
func DocumentID(path string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("notion-sync:document:"+path))
}
