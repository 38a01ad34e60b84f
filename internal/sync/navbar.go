package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/vonshlovens/notion-sync/internal/markdown"
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/schema"
	"github.com/vonshlovens/notion-sync/internal/store"
)

// SyncNavbarPages writes pages/<slug>.md for every navbar page. The
// container is either a page whose child pages are the navbar pages, or a
// database with one row per page.
func (e *Engine) SyncNavbarPages(ctx context.Context) error {
	b, err := e.findContainer(ctx, NavbarContainer)
	if err != nil {
		return err
	}

	var pages []*item
	if b.Type == notion.BlockChildDatabase {
		pages, err = e.navbarRows(ctx, b.ID)
	} else {
		pages, err = e.navbarChildPages(ctx, b.ID)
	}
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(pages))
	for _, p := range pages {
		body, err := e.converter.PageMarkdown(ctx, p.id, store.PagesDir, p.slug)
		if err != nil {
			return fmt.Errorf("failed to render page %s: %w", p.slug, err)
		}
		rel := path.Join(store.PagesDir, p.slug+store.MarkdownExt)
		doc := markdown.Document{Front: p.rec, Body: body}
		if err := e.writeMarkdown(rel, doc); err != nil {
			return err
		}
		keep[rel] = true
		e.queueItem(rel, store.PagesDir, p.id, doc)
	}
	return e.prune(store.PagesDir, keep)
}

func (e *Engine) navbarRows(ctx context.Context, dbID string) ([]*item, error) {
	rows, err := notion.QueryAll(ctx, e.api, dbID, notion.QueryRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to query navbar pages: %w", err)
	}

	s := schema.Get(schema.KindNavbarPage)
	taken := make(map[string]bool)
	var pages []*item
	for _, row := range rows {
		rec, err := e.classifier.ReadRow(ctx, row, s)
		if err != nil {
			return nil, err
		}
		if p := newPage(row.ID, rec, taken); p != nil {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

func (e *Engine) navbarChildPages(ctx context.Context, pageID string) ([]*item, error) {
	blocks, err := notion.ChildrenAll(ctx, e.api, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list navbar pages: %w", err)
	}

	s := schema.Get(schema.KindNavbarPage)
	taken := make(map[string]bool)
	var pages []*item
	for _, b := range blocks {
		if b.Type != notion.BlockChildPage {
			continue
		}
		rec := schema.ReadAll(notion.Properties{"title": notion.Title(b.Title())}, s)
		rec.Set("order", schema.Number(len(pages)+1))
		if p := newPage(b.ID, rec, taken); p != nil {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

func newPage(id string, rec schema.Record, taken map[string]bool) *item {
	title := rec.String(schema.FieldTitle)
	slug := markdown.Slugify(rec.String(schema.FieldSlug))
	if slug == "" {
		slug = markdown.Slugify(title)
	}
	if slug == "" {
		slog.Warn("skipping navbar page without title", "page", id)
		return nil
	}
	slug = uniqueSlug(slug, taken)
	rec.Set(schema.FieldSlug, schema.String(slug))
	return &item{id: id, rec: rec, slug: slug}
}
