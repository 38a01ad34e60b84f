package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vonshlovens/notion-sync/internal/markdown"
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/schema"
	"github.com/vonshlovens/notion-sync/internal/store"
)

const defaultDownloadWorkers = 4

// collectionTarget is a collection to sync: the title of its container and
// the slug naming its output directory.
type collectionTarget struct {
	Name string
	Slug string
}

// item is one row on its way to a Markdown file
type item struct {
	id   string
	rec  schema.Record
	slug string
	body string
}

// readCollectionSettings reads the collection settings rows, with the slug
// field resolved.
func (e *Engine) readCollectionSettings(ctx context.Context) ([]schema.Record, error) {
	rows, err := e.rows(ctx, CollectionsContainer)
	if err != nil {
		return nil, err
	}

	s := schema.Get(schema.KindCollectionSettings)
	taken := make(map[string]bool)
	var out []schema.Record
	for _, row := range rows {
		rec, err := e.classifier.ReadRow(ctx, row, s)
		if err != nil {
			return nil, err
		}
		name := rec.String("name")
		slug := markdown.Slugify(rec.String(schema.FieldSlug))
		if slug == "" {
			slug = markdown.Slugify(name)
		}
		if slug == "" {
			slog.Warn("skipping collection without name", "page", row.ID)
			continue
		}
		if taken[slug] {
			slog.Warn("skipping duplicate collection", "slug", slug, "name", name)
			continue
		}
		taken[slug] = true
		rec.Set(schema.FieldSlug, schema.String(slug))
		out = append(out, rec)
	}
	return out, nil
}

// SyncCollectionSettings writes config/collections.json, keyed by slug, and
// records the enabled collections for the collection steps.
func (e *Engine) SyncCollectionSettings(ctx context.Context) error {
	recs, err := e.readCollectionSettings(ctx)
	if err != nil {
		if !errors.Is(err, ErrContainerNotFound) {
			e.settingsFailed = true
		}
		return err
	}

	var doc store.Object
	targets := []collectionTarget{}
	for _, rec := range recs {
		slug := rec.String(schema.FieldSlug)
		doc.Set(slug, store.ConfigDocument(rec))
		if rec.Bool(schema.FieldEnabled, true) {
			targets = append(targets, collectionTarget{Name: rec.String("name"), Slug: slug})
		}
	}
	e.collections = targets

	return e.writeJSON(store.CollectionsFile, doc)
}

// collectionTargets returns the collections to sync: the enabled rows of
// the collection settings, or sync.collections when there is no settings
// database.
func (e *Engine) collectionTargets(ctx context.Context) ([]collectionTarget, error) {
	if e.collections != nil {
		return e.collections, nil
	}
	if e.settingsFailed {
		// already reported by the collections step
		return nil, nil
	}

	recs, err := e.readCollectionSettings(ctx)
	if err == nil {
		var targets []collectionTarget
		for _, rec := range recs {
			if rec.Bool(schema.FieldEnabled, true) {
				targets = append(targets, collectionTarget{Name: rec.String("name"), Slug: rec.String(schema.FieldSlug)})
			}
		}
		return targets, nil
	}
	if !errors.Is(err, ErrContainerNotFound) {
		return nil, err
	}

	if len(e.cfg.Collections) == 0 {
		slog.Debug("no collection settings and no configured collections")
		return nil, nil
	}
	var targets []collectionTarget
	for _, name := range e.cfg.Collections {
		if slug := markdown.Slugify(name); slug != "" {
			targets = append(targets, collectionTarget{Name: name, Slug: slug})
		}
	}
	return targets, nil
}

// SyncCollection writes one Markdown file per published item to
// <slug>/<item>.md and removes the files of items no longer published.
func (e *Engine) SyncCollection(ctx context.Context, t collectionTarget) error {
	c := Container{Title: t.Name, Aliases: []string{t.Slug}}
	b, err := e.findContainer(ctx, c)
	if err != nil {
		return err
	}

	itemsDB := b.ID
	var sectionDBs []string
	if b.Type == notion.BlockChildPage {
		dbs, err := e.databasesIn(ctx, b.ID)
		if err != nil {
			return err
		}
		if len(dbs) == 0 {
			return fmt.Errorf("%w: collection page %q holds no database", ErrContainerNotFound, t.Name)
		}
		itemsDB, sectionDBs = splitCollectionPage(dbs)
	}

	rows, err := notion.QueryAll(ctx, e.api, itemsDB, notion.QueryRequest{})
	if err != nil {
		return fmt.Errorf("failed to query collection %q: %w", t.Name, err)
	}

	items, err := e.publishedItems(ctx, t, rows)
	if err != nil {
		return err
	}
	if err := e.materializeItems(ctx, t, items); err != nil {
		return err
	}

	keep := make(map[string]bool, len(items))
	for _, it := range items {
		rel := path.Join(t.Slug, it.slug+store.MarkdownExt)
		doc := markdown.Document{Front: it.rec, Body: it.body}
		if err := e.writeMarkdown(rel, doc); err != nil {
			return err
		}
		keep[rel] = true
		e.queueItem(rel, t.Slug, it.id, doc)
	}
	if err := e.prune(t.Slug, keep); err != nil {
		return err
	}

	sections, err := e.classifyAll(ctx, sectionDBs)
	if err != nil {
		return err
	}
	e.sections[t.Slug] = sections
	return nil
}

// publishedItems reads the rows in remote order, keeps the published ones
// and assigns each a unique slug.
func (e *Engine) publishedItems(ctx context.Context, t collectionTarget, rows []notion.Page) ([]*item, error) {
	s := schema.Get(schema.KindCollectionItem)
	taken := make(map[string]bool)
	var items []*item
	for _, row := range rows {
		rec, err := e.classifier.ReadRow(ctx, row, s)
		if err != nil {
			return nil, err
		}
		if status := rec.String(schema.FieldStatus); status != schema.StatusPublished {
			slog.Debug("skipping unpublished item", "collection", t.Slug, "page", row.ID, "status", status)
			continue
		}
		title := rec.String(schema.FieldTitle)
		if title == "" {
			slog.Warn("skipping item without title", "collection", t.Slug, "page", row.ID)
			continue
		}

		slug := markdown.Slugify(rec.String(schema.FieldSlug))
		if slug == "" {
			slug = markdown.Slugify(title)
		}
		if slug == "" {
			slug = notion.CompactID(row.ID)
		}
		slug = uniqueSlug(slug, taken)
		rec.Set(schema.FieldSlug, schema.String(slug))

		items = append(items, &item{id: row.ID, rec: rec, slug: slug})
	}
	return items, nil
}

// materializeItems downloads thumbnails and renders bodies with at most
// sync.download_workers items in flight. Items keep their order.
func (e *Engine) materializeItems(ctx context.Context, t collectionTarget, items []*item) error {
	if len(items) == 0 {
		return nil
	}
	workers := e.cfg.DownloadWorkers
	if workers < 1 {
		workers = defaultDownloadWorkers
	}

	var bar *progressbar.ProgressBar
	if e.progress {
		bar = progressbar.NewOptions(len(items),
			progressbar.OptionSetDescription("Syncing "+t.Slug),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
	}

	s := schema.Get(schema.KindCollectionItem)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, it := range items {
		g.Go(func() error {
			e.classifier.ResolveFiles(gctx, &it.rec, s, t.Slug, it.slug)
			body, err := e.converter.PageMarkdown(gctx, it.id, t.Slug, it.slug)
			if err != nil {
				return fmt.Errorf("failed to render %s/%s: %w", t.Slug, it.slug, err)
			}
			it.body = body
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	if bar != nil {
		bar.Finish()
	}
	return err
}

// writeCollectionSections writes config/collection-sections.json, mapping
// each collection slug to its extra sections. Entries of collections whose
// step failed are kept from the previous file, and so are the entries of
// collections not synced at all when steps are filtered.
func (e *Engine) writeCollectionSections() error {
	merged := make(map[string]json.RawMessage)
	if len(e.cfg.Only) > 0 || len(e.failedSlugs) > 0 {
		data, err := os.ReadFile(e.store.Path(store.CollectionSectionsFile))
		if err == nil {
			var existing map[string]json.RawMessage
			if err := json.Unmarshal(data, &existing); err != nil {
				slog.Warn("ignoring unreadable collection sections", "error", err)
			}
			for slug, raw := range existing {
				if len(e.cfg.Only) > 0 || e.failedSlugs[slug] {
					merged[slug] = raw
				}
			}
		}
	}

	for slug, sections := range e.sections {
		raw, err := store.EncodeJSON(sections)
		if err != nil {
			return fmt.Errorf("failed to encode sections of %s: %w", slug, err)
		}
		merged[slug] = raw
	}

	slugs := make([]string, 0, len(merged))
	for slug := range merged {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var doc store.Object
	for _, slug := range slugs {
		doc.Set(slug, merged[slug])
	}
	return e.writeJSON(store.CollectionSectionsFile, doc)
}
