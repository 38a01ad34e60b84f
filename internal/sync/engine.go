// Package sync pulls content from a Notion workspace into the local content
// store. Each step locates one well-known container under the root page,
// reads its rows through the schema registry and replaces the matching
// output files.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vonshlovens/notion-sync/internal/classify"
	"github.com/vonshlovens/notion-sync/internal/config"
	"github.com/vonshlovens/notion-sync/internal/markdown"
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/store"
)

// Step names, as matched by sync.only patterns
const (
	StepSite        = "site"
	StepCollections = "collections"
	StepInjection   = "injection"
	StepAdvanced    = "advanced"
	StepHome        = "home"
	StepAuthors     = "authors"
	StepNavbar      = "navbar"
)

// CollectionStep names the step syncing one collection
func CollectionStep(slug string) string {
	return "collection/" + slug
}

// Options configures an Engine
type Options struct {
	API        notion.API
	RootPageID string
	Store      *store.Store
	// Images materializes file fields and body images. Nil keeps remote URLs.
	Images markdown.ImageResolver
	Sync   config.SyncConfig
	// Out receives progress lines. Nil discards them.
	Out io.Writer
	// Progress shows a progress bar on stderr for collection items
	Progress bool
	// Mirror, when set, receives every written item and document after a
	// run of SyncAll.
	Mirror Mirror
}

// Engine runs the sync steps
type Engine struct {
	api        notion.API
	rootID     string
	store      *store.Store
	classifier *classify.Classifier
	converter  *markdown.Converter
	cfg        config.SyncConfig
	out        io.Writer
	progress   bool
	mirror     Mirror

	rootChildren   []notion.Block
	collections    []collectionTarget
	settingsFailed bool
	sections       map[string][]classify.Section
	failedSlugs    map[string]bool
	stats          *StepResult
	pending        pendingMirror
}

// NewEngine creates a sync engine
func NewEngine(opts Options) (*Engine, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("notion API client is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	rootID, err := notion.NormalizeID(opts.RootPageID)
	if err != nil {
		return nil, fmt.Errorf("invalid root page id: %w", err)
	}
	for _, p := range opts.Sync.Only {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid sync.only pattern %q", p)
		}
	}

	images := opts.Images
	if images == nil {
		images = markdown.RemoteImages{}
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	return &Engine{
		api:        opts.API,
		rootID:     rootID,
		store:      opts.Store,
		classifier: classify.New(opts.API, images),
		converter:  markdown.NewConverter(opts.API, images),
		cfg:        opts.Sync,
		out:        out,
		progress:   opts.Progress,
		mirror:     opts.Mirror,
		sections:   make(map[string][]classify.Section),
	}, nil
}

// StepResult is the outcome of one step
type StepResult struct {
	Name      string
	Skipped   bool
	Err       error
	Written   int
	Unchanged int
	Removed   int
	Duration  time.Duration
}

// Report summarizes a run of SyncAll
type Report struct {
	Steps    []StepResult
	Started  time.Time
	Finished time.Time
}

// Failed returns the names of the steps that failed
func (r *Report) Failed() []string {
	var names []string
	for _, s := range r.Steps {
		if s.Err != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

// Written returns the number of files whose bytes changed
func (r *Report) Written() int {
	n := 0
	for _, s := range r.Steps {
		n += s.Written
	}
	return n
}

// Selected reports whether a step passes the sync.only filter
func (e *Engine) Selected(step string) bool {
	if len(e.cfg.Only) == 0 {
		return true
	}
	for _, p := range e.cfg.Only {
		if ok, _ := doublestar.Match(p, step); ok {
			return true
		}
	}
	return false
}

func (e *Engine) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format+"\n", args...)
}

// reset clears the per-run caches so a long-lived engine sees fresh data
func (e *Engine) reset() {
	e.rootChildren = nil
	e.collections = nil
	e.settingsFailed = false
	e.sections = make(map[string][]classify.Section)
	e.failedSlugs = make(map[string]bool)
	e.pending = pendingMirror{}
}

// SyncAll runs every selected step in order. A failing step is reported and
// the remaining steps still run; the returned error joins every failure.
// Missing containers skip their step without failing the run.
func (e *Engine) SyncAll(ctx context.Context) (*Report, error) {
	e.reset()
	report := &Report{Started: time.Now()}
	var errs []error

	run := func(name string, fn func(context.Context) error) error {
		if !e.Selected(name) {
			slog.Debug("step not selected", "step", name)
			return nil
		}
		res := e.runStep(ctx, name, fn)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, res.Err))
		}
		report.Steps = append(report.Steps, res)
		return res.Err
	}

	run(StepSite, e.SyncSiteConfig)
	run(StepCollections, e.SyncCollectionSettings)
	run(StepInjection, e.SyncInjection)
	run(StepAdvanced, e.SyncAdvanced)
	run(StepHome, e.SyncHomeSections)
	run(StepAuthors, e.SyncAuthors)

	targets, err := e.collectionTargets(ctx)
	if err != nil {
		e.printf("collections: %v", err)
		errs = append(errs, fmt.Errorf("%s: %w", StepCollections, err))
	}
	ranCollection := false
	for _, t := range targets {
		name := CollectionStep(t.Slug)
		if !e.Selected(name) {
			continue
		}
		ranCollection = true
		if err := run(name, func(ctx context.Context) error { return e.SyncCollection(ctx, t) }); err != nil {
			e.failedSlugs[t.Slug] = true
		}
	}
	if ranCollection {
		if err := e.writeCollectionSections(); err != nil {
			errs = append(errs, fmt.Errorf("collection sections: %w", err))
		}
	}

	run(StepNavbar, e.SyncNavbarPages)

	failed := report.Failed()
	if e.mirror != nil {
		if err := e.flushMirror(ctx, len(errs) == 0 && len(e.cfg.Only) == 0); err != nil {
			e.printf("mirror: %v", err)
			errs = append(errs, fmt.Errorf("mirror: %w", err))
		}
	}

	report.Finished = time.Now()
	if st := e.store.State; st != nil {
		st.SetLastFullSync(report.Finished, failed)
		if err := st.Save(); err != nil {
			slog.Warn("failed to save state", "error", err)
		}
	}

	e.printf("sync finished: %d steps, %d files written, %d failed (%s)",
		len(report.Steps), report.Written(), len(failed),
		report.Finished.Sub(report.Started).Round(time.Millisecond))

	return report, errors.Join(errs...)
}

func (e *Engine) runStep(ctx context.Context, name string, fn func(context.Context) error) StepResult {
	e.printf("syncing %s...", name)
	res := &StepResult{Name: name}
	e.stats = res
	defer func() { e.stats = nil }()

	start := time.Now()
	err := fn(ctx)
	res.Duration = time.Since(start)

	switch {
	case errors.Is(err, ErrContainerNotFound):
		res.Skipped = true
		slog.Warn("container not found, skipping step", "step", name, "error", err)
		e.printf("  skipped: %v", err)
	case err != nil:
		res.Err = err
		slog.Error("sync step failed", "step", name, "error", err)
		e.printf("  failed: %v", err)
	default:
		e.printf("  %d written, %d unchanged, %d removed", res.Written, res.Unchanged, res.Removed)
	}
	return *res
}

// writeJSON writes a config document and queues it for the mirror
func (e *Engine) writeJSON(rel string, v any) error {
	data, err := store.EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", rel, err)
	}
	changed, err := e.store.WriteFile(rel, data)
	if err != nil {
		return err
	}
	e.count(changed)
	e.queueDocument(rel, data)
	return nil
}

// writeMarkdown writes one item or page document
func (e *Engine) writeMarkdown(rel string, doc markdown.Document) error {
	changed, err := e.store.WriteMarkdown(rel, doc)
	if err != nil {
		return err
	}
	e.count(changed)
	return nil
}

// prune removes stale Markdown files of dir
func (e *Engine) prune(dir string, keep map[string]bool) error {
	removed, err := e.store.Prune(dir, store.MarkdownExt, keep)
	if e.stats != nil {
		e.stats.Removed += len(removed)
	}
	for _, rel := range removed {
		slog.Info("removed stale file", "path", rel)
	}
	return err
}

func (e *Engine) count(changed bool) {
	if e.stats == nil {
		return
	}
	if changed {
		e.stats.Written++
	} else {
		e.stats.Unchanged++
	}
}

// uniqueSlug returns slug, or slug-2, slug-3... when already taken
func uniqueSlug(slug string, taken map[string]bool) string {
	candidate := slug
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", slug, n)
	}
	taken[candidate] = true
	return candidate
}
