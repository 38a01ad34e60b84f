package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vonshlovens/notion-sync/internal/classify"
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/schema"
	"github.com/vonshlovens/notion-sync/internal/store"
)

// Image folders of config assets
const (
	siteAssetPrefix   = "site"
	authorAssetPrefix = "authors"
)

// rows returns every row of a container's database in remote order
func (e *Engine) rows(ctx context.Context, c Container) ([]notion.Page, error) {
	dbID, err := e.findDatabase(ctx, c)
	if err != nil {
		return nil, err
	}
	rows, err := notion.QueryAll(ctx, e.api, dbID, notion.QueryRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", c.Title, err)
	}
	return rows, nil
}

// SyncSiteConfig writes config/site.json from the first row of the site
// config database.
func (e *Engine) SyncSiteConfig(ctx context.Context) error {
	rows, err := e.rows(ctx, SiteContainer)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %q has no rows", ErrContainerNotFound, SiteContainer.Title)
	}
	if len(rows) > 1 {
		slog.Warn("site config has several rows, using the first", "rows", len(rows))
	}

	s := schema.Get(schema.KindSite)
	rec, err := e.classifier.ReadRow(ctx, rows[0], s)
	if err != nil {
		return err
	}
	e.classifier.ResolveFiles(ctx, &rec, s, siteAssetPrefix, siteAssetPrefix)

	return e.writeJSON(store.SiteFile, store.ConfigDocument(rec))
}

// SyncInjection writes config/injection.json: the enabled snippets grouped
// by location.
func (e *Engine) SyncInjection(ctx context.Context) error {
	rows, err := e.rows(ctx, InjectionContainer)
	if err != nil {
		return err
	}

	s := schema.Get(schema.KindInjection)
	head := []schema.Record{}
	body := []schema.Record{}
	for _, row := range rows {
		rec, err := e.classifier.ReadRow(ctx, row, s)
		if err != nil {
			return err
		}
		if !rec.Bool(schema.FieldEnabled, true) {
			continue
		}
		if rec.String("code") == "" {
			slog.Debug("skipping empty injection", "name", rec.String("name"))
			continue
		}

		snippet := schema.Record{Fields: []schema.Field{
			{Name: "name", Value: rec.Get("name")},
			{Name: "kind", Value: rec.Get("kind")},
			{Name: "code", Value: rec.Get("code")},
		}}
		if rec.String("location") == "body" {
			body = append(body, snippet)
		} else {
			head = append(head, snippet)
		}
	}

	var doc store.Object
	doc.Set("head", head)
	doc.Set("body", body)
	return e.writeJSON(store.InjectionFile, doc)
}

// SyncAdvanced writes config/advanced.json, a flat key to value map
func (e *Engine) SyncAdvanced(ctx context.Context) error {
	rows, err := e.rows(ctx, AdvancedContainer)
	if err != nil {
		return err
	}

	s := schema.Get(schema.KindAdvanced)
	var doc store.Object
	for _, row := range rows {
		rec, err := e.classifier.ReadRow(ctx, row, s)
		if err != nil {
			return err
		}
		key := rec.String("key")
		if key == "" {
			continue
		}
		if _, dup := doc.Get(key); dup {
			slog.Warn("duplicate advanced config key, last row wins", "key", key)
		}
		doc.Set(key, rec.String("value"))
	}
	return e.writeJSON(store.AdvancedFile, doc)
}

// SyncAuthors writes config/authors.json with avatars materialized
func (e *Engine) SyncAuthors(ctx context.Context) error {
	rows, err := e.rows(ctx, AuthorsContainer)
	if err != nil {
		return err
	}

	s := schema.Get(schema.KindAuthor)
	authors := []schema.Record{}
	seen := make(map[string]bool)
	for _, row := range rows {
		rec, err := e.classifier.ReadRow(ctx, row, s)
		if err != nil {
			return err
		}
		username := rec.String("username")
		if username == "" {
			slog.Warn("skipping author without username", "name", rec.String("name"))
			continue
		}
		if seen[username] {
			slog.Warn("skipping duplicate author", "username", username)
			continue
		}
		seen[username] = true

		e.classifier.ResolveFiles(ctx, &rec, s, authorAssetPrefix, username)
		authors = append(authors, rec)
	}
	return e.writeJSON(store.AuthorsFile, authors)
}

// SyncHomeSections writes config/sections.json. Every database on the home
// page is one section; databases that cannot be classified are skipped.
func (e *Engine) SyncHomeSections(ctx context.Context) error {
	b, err := e.findContainer(ctx, HomeContainer)
	if err != nil {
		return err
	}

	ids := []string{b.ID}
	if b.Type == notion.BlockChildPage {
		dbs, err := e.databasesIn(ctx, b.ID)
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, db := range dbs {
			ids = append(ids, db.ID)
		}
	}

	sections, err := e.classifyAll(ctx, ids)
	if err != nil {
		return err
	}
	return e.writeJSON(store.SectionsFile, sections)
}

// classifyAll classifies databases in order, dropping unrecognized ones
func (e *Engine) classifyAll(ctx context.Context, ids []string) ([]classify.Section, error) {
	sections := []classify.Section{}
	for _, id := range ids {
		sec, err := e.classifier.Classify(ctx, id)
		if err != nil {
			return nil, err
		}
		if sec == nil {
			continue
		}
		sections = append(sections, *sec)
	}
	return sections, nil
}
