package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vonshlovens/notion-sync/internal/assets"
	"github.com/vonshlovens/notion-sync/internal/config"
	"github.com/vonshlovens/notion-sync/internal/db"
	"github.com/vonshlovens/notion-sync/internal/markdown"
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/notion/notiontest"
	"github.com/vonshlovens/notion-sync/internal/schema"
	"github.com/vonshlovens/notion-sync/internal/store"
)

type fixture struct {
	fake     *notiontest.Fake
	root     string
	projects string
	alpha    string
	beta     string
	authors  string
	assetURL string
}

// newFixture builds a workspace with every well-known container and a
// Projects database holding one published and one draft row.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	fake := notiontest.New()
	fake.PageSize = 2
	root := fake.AddRoot("My Site")

	site := fake.AddDatabase(root, "Site Config")
	fake.AddRow(site, notion.Properties{
		"Site Name":   notion.Title("My Site"),
		"Description": notion.RichTextValue("A portfolio"),
		"Show Search": notion.Checkbox(false),
		"Logo":        notion.Files(notion.ExternalFile("logo", srv.URL+"/logo.svg")),
	})

	colls := fake.AddDatabase(root, "Collections")
	fake.AddRow(colls, notion.Properties{
		"Name":           notion.Title("Projects"),
		"Items Per Page": notion.Number(6),
	})

	inj := fake.AddDatabase(root, "Code Injection")
	fake.AddRow(inj, notion.Properties{
		"Name":     notion.Title("Analytics"),
		"Location": notion.Select("Head"),
	}, notion.Code("html", "<script>track()</script>"))
	fake.AddRow(inj, notion.Properties{
		"Name":    notion.Title("Disabled"),
		"Enabled": notion.Checkbox(false),
		"Code":    notion.RichTextValue("<style></style>"),
	})

	adv := fake.AddDatabase(root, "Advanced Config")
	fake.AddRow(adv, notion.Properties{"Key": notion.Title("analytics_id"), "Value": notion.RichTextValue("G-123")})

	home := fake.AddPage(root, "Home")
	hero := fake.AddDatabase(home, "Hero")
	fake.AddRow(hero, notion.Properties{
		"title":        notion.Title("Hello"),
		"section_type": notion.Select("Info"),
		"Description":  notion.RichTextValue("Welcome"),
	})
	latest := fake.AddDatabase(home, "Latest")
	fake.AddRow(latest, notion.Properties{
		"Name":            notion.Title("Latest projects"),
		"Collection Name": notion.Select("projects"),
	})
	fake.AddDatabase(home, "Scratch")

	authors := fake.AddDatabase(root, "Authors")
	fake.AddRow(authors, notion.Properties{"Name": notion.Title("Ada"), "Username": notion.RichTextValue("ada")})

	projects := fake.AddDatabase(root, "Projects")
	alpha := fake.AddRow(projects, notion.Properties{
		"Name":        notion.Title("Alpha"),
		"Description": notion.RichTextValue("First project"),
		"Link":        notion.URL("https://alpha.dev"),
		"Thumbnail":   notion.Files(notion.ExternalFile("alpha", srv.URL+"/alpha.png?sig=1")),
		"Tags":        notion.MultiSelect("go", "cli"),
		"Status":      notion.Select("Published"),
	}, notion.Paragraph("Alpha body"))
	beta := fake.AddRow(projects, notion.Properties{
		"Name":   notion.Title("Beta"),
		"Status": notion.Select("Draft"),
	}, notion.Paragraph("Beta body"))

	navbar := fake.AddPage(root, "Navbar Pages")
	fake.AddPage(navbar, "About Us", notion.Paragraph("About body"))

	return &fixture{
		fake:     fake,
		root:     root,
		projects: projects,
		alpha:    alpha,
		beta:     beta,
		authors:  authors,
		assetURL: srv.URL,
	}
}

type harness struct {
	engine  *Engine
	content string
	public  string
	out     *bytes.Buffer
}

func newHarness(t *testing.T, f *fixture, cfg config.SyncConfig, mirror Mirror) *harness {
	t.Helper()
	content := t.TempDir()
	public := t.TempDir()
	state, err := store.NewStateTracker(t.TempDir(), content)
	if err != nil {
		t.Fatalf("NewStateTracker failed: %v", err)
	}
	out := &bytes.Buffer{}
	e, err := NewEngine(Options{
		API:        f.fake,
		RootPageID: f.root,
		Store:      store.New(content, state),
		Images:     assets.New(public, nil, state),
		Sync:       cfg,
		Out:        out,
		Mirror:     mirror,
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return &harness{engine: e, content: content, public: public, out: out}
}

func readDoc(t *testing.T, path string) markdown.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	doc, err := markdown.Parse(data)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return doc
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
}

func TestSyncAll_EndToEnd(t *testing.T) {
	f := newFixture(t)
	h := newHarness(t, f, config.SyncConfig{DownloadWorkers: 2}, nil)

	report, err := h.engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll failed: %v\n%s", err, h.out)
	}
	if len(report.Failed()) != 0 {
		t.Errorf("failed steps: %v", report.Failed())
	}

	// Exactly one Markdown file for the published row
	entries, err := os.ReadDir(filepath.Join(h.content, "projects"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "alpha.md" {
		t.Fatalf("projects dir = %v, want only alpha.md", entries)
	}

	doc := readDoc(t, filepath.Join(h.content, "projects", "alpha.md"))
	checks := map[string]string{
		"title":       "Alpha",
		"slug":        "alpha",
		"description": "First project",
		"link":        "https://alpha.dev",
		"thumbnail":   "/images/projects/alpha-thumbnail.png",
		"status":      "published",
	}
	for field, want := range checks {
		if got := doc.Front.String(field); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
	if !reflect.DeepEqual(doc.Front.Strings("tags"), []string{"go", "cli"}) {
		t.Errorf("tags = %v", doc.Front.Strings("tags"))
	}
	if strings.TrimSpace(doc.Body) != "Alpha body" {
		t.Errorf("body = %q", doc.Body)
	}
	thumb, err := os.ReadFile(filepath.Join(h.public, "images", "projects", "alpha-thumbnail.png"))
	if err != nil || string(thumb) != "image:/alpha.png" {
		t.Errorf("thumbnail file = %q, %v", thumb, err)
	}

	var site map[string]any
	readJSON(t, filepath.Join(h.content, store.SiteFile), &site)
	if site["site_name"] != "My Site" || site["show_search"] != "false" || site["show_theme_toggle"] != "true" {
		t.Errorf("site.json = %v", site)
	}
	if site["logo"] != "/images/site/site-logo.svg" {
		t.Errorf("logo = %v", site["logo"])
	}

	var colls map[string]map[string]any
	readJSON(t, filepath.Join(h.content, store.CollectionsFile), &colls)
	if p, ok := colls["projects"]; !ok || p["items_per_page"] != float64(6) || p["enabled"] != "true" {
		t.Errorf("collections.json = %v", colls)
	}

	data, err := os.ReadFile(filepath.Join(h.content, store.InjectionFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"code": "<script>track()</script>"`) {
		t.Errorf("injection.json should keep markup unescaped:\n%s", data)
	}
	var inj map[string][]map[string]any
	readJSON(t, filepath.Join(h.content, store.InjectionFile), &inj)
	if len(inj["head"]) != 1 || len(inj["body"]) != 0 || inj["head"][0]["name"] != "Analytics" {
		t.Errorf("injection.json = %v", inj)
	}

	var adv map[string]string
	readJSON(t, filepath.Join(h.content, store.AdvancedFile), &adv)
	if adv["analytics_id"] != "G-123" {
		t.Errorf("advanced.json = %v", adv)
	}

	var sections []map[string]any
	readJSON(t, filepath.Join(h.content, store.SectionsFile), &sections)
	if len(sections) != 2 || sections[0]["type"] != "info" || sections[1]["type"] != "dynamic" {
		t.Fatalf("sections.json = %v", sections)
	}
	if sections[0]["enabled"] != true {
		t.Errorf("sections keep typed booleans, got %v", sections[0]["enabled"])
	}

	var authors []map[string]any
	readJSON(t, filepath.Join(h.content, store.AuthorsFile), &authors)
	if len(authors) != 1 || authors[0]["username"] != "ada" || authors[0]["avatar"] != "" {
		t.Errorf("authors.json = %v", authors)
	}

	page := readDoc(t, filepath.Join(h.content, "pages", "about-us.md"))
	if page.Front.String("title") != "About Us" || page.Front.Number("order", 0) != 1 || strings.TrimSpace(page.Body) != "About body" {
		t.Errorf("navbar page = %+v", page)
	}

	if !strings.Contains(h.out.String(), "syncing collection/projects...") {
		t.Errorf("progress output missing collection step:\n%s", h.out)
	}
}

func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	return files
}

func TestSyncAll_Idempotent(t *testing.T) {
	f := newFixture(t)
	h := newHarness(t, f, config.SyncConfig{DownloadWorkers: 4}, nil)

	if _, err := h.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("first SyncAll failed: %v", err)
	}
	first := snapshot(t, h.content)

	report, err := h.engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("second SyncAll failed: %v", err)
	}
	second := snapshot(t, h.content)

	if !reflect.DeepEqual(first, second) {
		t.Error("second run changed the content tree")
	}
	if report.Written() != 0 {
		t.Errorf("second run wrote %d files, want 0", report.Written())
	}
	if _, ok := first[store.SiteFile]; !ok {
		t.Errorf("snapshot lacks %s: %v", store.SiteFile, first)
	}
}

func TestSyncAll_WorkerCountKeepsOutput(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.fake.AddRow(f.projects, notion.Properties{
			"Name":   notion.Title("Same Name"),
			"Status": notion.Select("published"),
		}, notion.Paragraph("copy"))
	}

	sequential := newHarness(t, f, config.SyncConfig{DownloadWorkers: 1}, nil)
	parallel := newHarness(t, f, config.SyncConfig{DownloadWorkers: 8}, nil)
	if _, err := sequential.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("sequential SyncAll failed: %v", err)
	}
	if _, err := parallel.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("parallel SyncAll failed: %v", err)
	}

	a, b := snapshot(t, sequential.content), snapshot(t, parallel.content)
	if !reflect.DeepEqual(a, b) {
		t.Error("worker count changed the output")
	}
	for _, name := range []string{"same-name", "same-name-2", "same-name-5"} {
		if _, ok := a["projects/"+name+".md"]; !ok {
			t.Errorf("missing projects/%s.md", name)
		}
	}
}

func TestSyncCollection_DraftThenPublished(t *testing.T) {
	f := newFixture(t)
	cfg := config.SyncConfig{DownloadWorkers: 1, Only: []string{"collection/*"}}
	h := newHarness(t, f, cfg, nil)

	if _, err := h.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	beta := filepath.Join(h.content, "projects", "beta.md")
	if _, err := os.Stat(beta); !os.IsNotExist(err) {
		t.Fatal("draft item should not be written")
	}

	f.fake.Page(f.beta).Properties["Status"] = notion.Select("Published")
	if _, err := h.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}

	doc := readDoc(t, beta)
	var names []string
	for _, field := range doc.Front.Fields {
		names = append(names, field.Name)
	}
	if want := schema.Get(schema.KindCollectionItem).Names(); !reflect.DeepEqual(names, want) {
		t.Errorf("frontmatter keys = %v, want %v", names, want)
	}
	if doc.Front.String("description") != "" || doc.Front.Number("priority", -1) != 0 || doc.Front.String("thumbnail") != "" {
		t.Errorf("defaults not applied: %+v", doc.Front.Fields)
	}

	// Back to draft: the file is pruned
	f.fake.Page(f.beta).Properties["Status"] = notion.Select("Archived")
	report, err := h.engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if _, err := os.Stat(beta); !os.IsNotExist(err) {
		t.Error("unpublished item should be pruned")
	}
	if len(report.Steps) != 1 || report.Steps[0].Removed != 1 {
		t.Errorf("steps = %+v", report.Steps)
	}
}

func TestSyncAll_MissingContainersAreSkipped(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Bare")
	blog := fake.AddDatabase(root, "Blog")
	fake.AddRow(blog, notion.Properties{"Title": notion.Title("Hello World"), "Status": notion.Select("published")})

	f := &fixture{fake: fake, root: root}
	h := newHarness(t, f, config.SyncConfig{Collections: []string{"Blog"}}, nil)

	report, err := h.engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("missing containers should not fail the run: %v", err)
	}

	skipped := 0
	for _, s := range report.Steps {
		if s.Skipped {
			skipped++
		}
	}
	if skipped != 7 {
		t.Errorf("skipped %d steps, want 7: %+v", skipped, report.Steps)
	}
	if _, err := os.Stat(filepath.Join(h.content, "blog", "hello-world.md")); err != nil {
		t.Errorf("configured collection not synced: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.content, store.SiteFile)); !os.IsNotExist(err) {
		t.Error("site.json should not be written without a site container")
	}
}

func TestSyncAll_FailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.fake.QueryErrors[f.authors] = notiontest.FailAfter{Err: boom}

	h := newHarness(t, f, config.SyncConfig{}, nil)
	report, err := h.engine.SyncAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("SyncAll error = %v, want boom", err)
	}
	if !reflect.DeepEqual(report.Failed(), []string{StepAuthors}) {
		t.Errorf("failed = %v", report.Failed())
	}
	for _, rel := range []string{store.SiteFile, store.SectionsFile, "projects/alpha.md", "pages/about-us.md"} {
		if _, err := os.Stat(filepath.Join(h.content, rel)); err != nil {
			t.Errorf("%s not written after sibling failure: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(h.content, store.AuthorsFile)); !os.IsNotExist(err) {
		t.Error("authors.json should not be written")
	}
}

func TestSyncAll_PaginationFailureAbortsCollection(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.fake.AddRow(f.projects, notion.Properties{"Name": notion.Title("Extra"), "Status": notion.Select("published")})
	}
	boom := errors.New("cursor expired")
	f.fake.QueryErrors[f.projects] = notiontest.FailAfter{Pages: 1, Err: boom}

	h := newHarness(t, f, config.SyncConfig{}, nil)
	_, err := h.engine.SyncAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("SyncAll error = %v, want %v", err, boom)
	}
	if _, err := os.Stat(filepath.Join(h.content, "projects")); !os.IsNotExist(err) {
		t.Error("no item should be written when the listing fails")
	}
}

func TestSyncCollection_PageContainer(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Site")
	colls := fake.AddDatabase(root, "Collections")
	fake.AddRow(colls, notion.Properties{"Name": notion.Title("Journal"), "Slug": notion.RichTextValue("blog")})

	page := fake.AddPage(root, "Journal")
	intro := fake.AddDatabase(page, "Intro")
	fake.AddRow(intro, notion.Properties{"title": notion.Title("Gap"), "section_type": notion.Select("spacer"), "Height": notion.Number(24)})
	posts := fake.AddDatabase(page, "Posts")
	fake.AddRow(posts, notion.Properties{"Name": notion.Title("First Post"), "Status": notion.Select("published"), "Slug": notion.RichTextValue("First!")})

	f := &fixture{fake: fake, root: root}
	h := newHarness(t, f, config.SyncConfig{}, nil)
	if _, err := h.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(h.content, "blog", "first.md")); err != nil {
		t.Errorf("item not written from the Posts table: %v", err)
	}

	var extra map[string][]map[string]any
	readJSON(t, filepath.Join(h.content, store.CollectionSectionsFile), &extra)
	if len(extra["blog"]) != 1 || extra["blog"][0]["type"] != "gap" || extra["blog"][0]["height"] != float64(24) {
		t.Errorf("collection-sections.json = %v", extra)
	}
}

func TestSyncAll_FailedCollectionKeepsSections(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Site")
	colls := fake.AddDatabase(root, "Collections")
	fake.AddRow(colls, notion.Properties{"Name": notion.Title("Journal"), "Slug": notion.RichTextValue("blog")})

	page := fake.AddPage(root, "Journal")
	intro := fake.AddDatabase(page, "Intro")
	fake.AddRow(intro, notion.Properties{"title": notion.Title("Gap"), "section_type": notion.Select("spacer"), "Height": notion.Number(24)})
	posts := fake.AddDatabase(page, "Posts")
	fake.AddRow(posts, notion.Properties{"Name": notion.Title("First Post"), "Status": notion.Select("published")})

	h := newHarness(t, &fixture{fake: fake, root: root}, config.SyncConfig{}, nil)
	if _, err := h.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("first SyncAll failed: %v", err)
	}
	sectionsPath := filepath.Join(h.content, store.CollectionSectionsFile)
	before, err := os.ReadFile(sectionsPath)
	if err != nil {
		t.Fatal(err)
	}

	fake.QueryErrors[posts] = notiontest.FailAfter{Err: errors.New("transient 502")}
	report, err := h.engine.SyncAll(context.Background())
	if err == nil {
		t.Fatal("expected the blog collection to fail")
	}
	if got := report.Failed(); !reflect.DeepEqual(got, []string{CollectionStep("blog")}) {
		t.Errorf("failed steps = %v", got)
	}

	after, err := os.ReadFile(sectionsPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(before) {
		t.Errorf("collection sections changed after a failed step\nbefore: %s\nafter: %s", before, after)
	}
	if _, err := os.Stat(filepath.Join(h.content, "blog", "first-post.md")); err != nil {
		t.Errorf("item from the previous run was removed: %v", err)
	}
}

type recordingMirror struct {
	items     []string
	documents []string
	keepItems []string
	keepDocs  []string
	pruned    bool
}

func (m *recordingMirror) UpsertItem(_ context.Context, item *db.ContentItem) error {
	m.items = append(m.items, item.Path)
	return nil
}

func (m *recordingMirror) UpsertDocument(_ context.Context, doc *db.ContentDocument) error {
	m.documents = append(m.documents, doc.Kind)
	return nil
}

func (m *recordingMirror) DeleteStale(_ context.Context, keepItems, keepDocuments []string) (int64, error) {
	m.pruned = true
	m.keepItems, m.keepDocs = keepItems, keepDocuments
	return 0, nil
}

func TestSyncAll_Mirror(t *testing.T) {
	f := newFixture(t)
	m := &recordingMirror{}
	h := newHarness(t, f, config.SyncConfig{}, m)

	if _, err := h.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if !reflect.DeepEqual(m.items, []string{"projects/alpha.md", "pages/about-us.md"}) {
		t.Errorf("items = %v", m.items)
	}
	wantDocs := []string{"site", "collections", "injection", "advanced", "sections", "authors", "collection-sections"}
	if !reflect.DeepEqual(m.documents, wantDocs) {
		t.Errorf("documents = %v, want %v", m.documents, wantDocs)
	}
	if !m.pruned || len(m.keepItems) != 2 || len(m.keepDocs) != len(wantDocs) {
		t.Errorf("DeleteStale not called with the run's paths: %+v", m)
	}

	// A filtered run never prunes the mirror
	m2 := &recordingMirror{}
	h2 := newHarness(t, f, config.SyncConfig{Only: []string{"site"}}, m2)
	if _, err := h2.engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if m2.pruned || !reflect.DeepEqual(m2.documents, []string{"site"}) {
		t.Errorf("filtered mirror = %+v", m2)
	}
}

func TestNewEngine_Validation(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Site")
	st := store.New(t.TempDir(), nil)

	tests := []struct {
		name string
		opts Options
	}{
		{"no api", Options{RootPageID: root, Store: st}},
		{"no store", Options{API: fake, RootPageID: root}},
		{"bad root", Options{API: fake, RootPageID: "nope", Store: st}},
		{"bad pattern", Options{API: fake, RootPageID: root, Store: st, Sync: config.SyncConfig{Only: []string{"collection/["}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine(tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSelected(t *testing.T) {
	e := &Engine{cfg: config.SyncConfig{Only: []string{"site", "collection/*"}}}
	tests := map[string]bool{
		StepSite:                  true,
		StepAuthors:               false,
		CollectionStep("blog"):    true,
		CollectionStep("a/b"):     false,
		StepCollections:           false,
		CollectionStep("gallery"): true,
	}
	for step, want := range tests {
		if got := e.Selected(step); got != want {
			t.Errorf("Selected(%q) = %v, want %v", step, got, want)
		}
	}

	all := &Engine{}
	if !all.Selected(StepNavbar) {
		t.Error("an empty filter selects every step")
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := make(map[string]bool)
	got := []string{
		uniqueSlug("post", taken),
		uniqueSlug("post", taken),
		uniqueSlug("post-2", taken),
		uniqueSlug("post", taken),
	}
	want := []string{"post", "post-2", "post-2-2", "post-3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("uniqueSlug sequence = %v, want %v", got, want)
	}
}

func TestContainerMatches(t *testing.T) {
	if !SiteContainer.Matches("  site config ") || !SiteContainer.Matches("Site Settings") {
		t.Error("title match should ignore case and surrounding space")
	}
	if SiteContainer.Matches("Site") {
		t.Error("partial titles must not match")
	}
}

func TestSplitCollectionPage(t *testing.T) {
	table := func(id, title string) notion.Block {
		return notion.Block{ID: id, Type: notion.BlockChildDatabase, ChildDatabase: &notion.TitleBlock{Title: title}}
	}

	items, sections := splitCollectionPage([]notion.Block{table("a", "Hero"), table("b", "items"), table("c", "Footer")})
	if items != "b" || !reflect.DeepEqual(sections, []string{"a", "c"}) {
		t.Errorf("named table: items=%q sections=%v", items, sections)
	}

	items, sections = splitCollectionPage([]notion.Block{table("a", "Entries list"), table("b", "Other")})
	if items != "a" || !reflect.DeepEqual(sections, []string{"b"}) {
		t.Errorf("first table: items=%q sections=%v", items, sections)
	}
}
