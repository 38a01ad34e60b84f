// Package notiontest provides an in-memory Notion workspace implementing
// notion.API and notion.Writer, for tests that need a remote fixture.
package notiontest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vonshlovens/notion-sync/internal/notion"
)

var fixedTime = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

// Fake is an in-memory workspace. Ids are deterministic so repeated syncs of
// the same fixture produce identical output.
type Fake struct {
	mu sync.Mutex

	// PageSize bounds every list response; defaults to 100.
	PageSize int

	pages    map[string]*notion.Page
	rows     map[string][]string
	children map[string][]notion.Block
	titles   map[string]string

	// QueryErrors and ChildErrors force an error for a container id, after
	// the given number of successful page fetches.
	QueryErrors map[string]FailAfter
	ChildErrors map[string]FailAfter

	calls  map[string]int
	nextID int
}

// FailAfter makes the fetch of a container fail once Pages pages were served
type FailAfter struct {
	Pages int
	Err   error
}

// New creates an empty workspace
func New() *Fake {
	return &Fake{
		pages:       make(map[string]*notion.Page),
		rows:        make(map[string][]string),
		children:    make(map[string][]notion.Block),
		titles:      make(map[string]string),
		QueryErrors: make(map[string]FailAfter),
		ChildErrors: make(map[string]FailAfter),
		calls:       make(map[string]int),
	}
}

func (f *Fake) newID() string {
	f.nextID++
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("notiontest-"+strconv.Itoa(f.nextID))).String()
}

// AddRoot registers a top-level page and returns its id
func (f *Fake) AddRoot(title string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.pages[id] = &notion.Page{
		Object:         "page",
		ID:             id,
		CreatedTime:    fixedTime,
		LastEditedTime: fixedTime,
		Properties:     notion.Properties{"title": notion.Title(title)},
	}
	return id
}

// AddPage adds a child page under parentID with optional content blocks
func (f *Fake) AddPage(parentID, title string, blocks ...notion.Block) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.pages[id] = &notion.Page{
		Object:         "page",
		ID:             id,
		CreatedTime:    fixedTime,
		LastEditedTime: fixedTime,
		Parent:         notion.PageParent(parentID),
		Properties:     notion.Properties{"title": notion.Title(title)},
	}
	f.children[parentID] = append(f.children[parentID], notion.Block{
		Object:      "block",
		ID:          id,
		Type:        notion.BlockChildPage,
		HasChildren: len(blocks) > 0,
		ChildPage:   &notion.TitleBlock{Title: title},
	})
	f.appendBlocks(id, blocks)
	return id
}

// AddDatabase adds an empty child database under parentID
func (f *Fake) AddDatabase(parentID, title string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addDatabase(parentID, title)
}

func (f *Fake) addDatabase(parentID, title string) string {
	id := f.newID()
	f.titles[id] = title
	f.rows[id] = nil
	f.children[parentID] = append(f.children[parentID], notion.Block{
		Object:        "block",
		ID:            id,
		Type:          notion.BlockChildDatabase,
		ChildDatabase: &notion.TitleBlock{Title: title},
	})
	return id
}

// AddRow adds a row to a database, with optional page content
func (f *Fake) AddRow(databaseID string, props notion.Properties, blocks ...notion.Block) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addRow(databaseID, props, blocks)
}

func (f *Fake) addRow(databaseID string, props notion.Properties, blocks []notion.Block) string {
	id := f.newID()
	f.pages[id] = &notion.Page{
		Object:         "page",
		ID:             id,
		CreatedTime:    fixedTime,
		LastEditedTime: fixedTime,
		Parent:         notion.DatabaseParent(databaseID),
		Properties:     props,
	}
	f.rows[databaseID] = append(f.rows[databaseID], id)
	f.appendBlocks(id, blocks)
	return id
}

// AddBlocks appends content blocks to a page or block
func (f *Fake) AddBlocks(parentID string, blocks ...notion.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendBlocks(parentID, blocks)
}

func (f *Fake) appendBlocks(parentID string, blocks []notion.Block) {
	for _, b := range blocks {
		if b.ID == "" {
			b.ID = f.newID()
		}
		b.Object = "block"
		kids := b.Children
		b.Children = nil
		b.HasChildren = len(kids) > 0
		f.children[parentID] = append(f.children[parentID], b)
		if len(kids) > 0 {
			f.appendBlocks(b.ID, kids)
		}
	}
}

// Calls returns how many list requests were made for a container id
func (f *Fake) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// Title returns the title of a database created in the workspace
func (f *Fake) Title(databaseID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.titles[databaseID]
}

// Rows returns the row ids of a database in insertion order
func (f *Fake) Rows(databaseID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.rows[databaseID]...)
}

// Page returns a stored page
func (f *Fake) Page(id string) *notion.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[id]
}

// Children returns the stored direct children of a block
func (f *Fake) Children(id string) []notion.Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notion.Block(nil), f.children[id]...)
}

func (f *Fake) pageSize() int {
	if f.PageSize <= 0 {
		return notion.DefaultPageSize
	}
	return f.PageSize
}

func (f *Fake) window(id string, total int, cursor string, fail map[string]FailAfter) (start, end int, next *string, err error) {
	served := f.calls[id]
	f.calls[id]++
	if fa, ok := fail[id]; ok && served >= fa.Pages {
		return 0, 0, nil, fa.Err
	}
	if cursor != "" {
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 || start > total {
			return 0, 0, nil, &notion.APIError{Status: 400, Code: "validation_error", Message: "invalid start_cursor"}
		}
	}
	end = min(start+f.pageSize(), total)
	if end < total {
		c := strconv.Itoa(end)
		next = &c
	}
	return start, end, next, nil
}

// QueryDatabase implements notion.API
func (f *Fake) QueryDatabase(_ context.Context, databaseID string, req *notion.QueryRequest) (*notion.PageList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids, ok := f.rows[databaseID]
	if !ok {
		return nil, &notion.APIError{Status: 404, Code: "object_not_found", Message: "database " + databaseID}
	}
	cursor := ""
	if req != nil {
		cursor = req.StartCursor
	}
	start, end, next, err := f.window(databaseID, len(ids), cursor, f.QueryErrors)
	if err != nil {
		return nil, err
	}
	out := &notion.PageList{NextCursor: next, HasMore: next != nil, Results: []notion.Page{}}
	for _, id := range ids[start:end] {
		out.Results = append(out.Results, *f.pages[id])
	}
	return out, nil
}

// ListBlockChildren implements notion.API
func (f *Fake) ListBlockChildren(_ context.Context, blockID, cursor string) (*notion.BlockList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kids := f.children[blockID]
	start, end, next, err := f.window(blockID, len(kids), cursor, f.ChildErrors)
	if err != nil {
		return nil, err
	}
	out := &notion.BlockList{NextCursor: next, HasMore: next != nil, Results: []notion.Block{}}
	out.Results = append(out.Results, kids[start:end]...)
	return out, nil
}

// RetrievePage implements notion.API
func (f *Fake) RetrievePage(_ context.Context, pageID string) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok {
		return nil, &notion.APIError{Status: 404, Code: "object_not_found", Message: "page " + pageID}
	}
	cp := *p
	return &cp, nil
}

// CreateDatabase implements notion.Writer
func (f *Fake) CreateDatabase(_ context.Context, req *notion.CreateDatabaseRequest) (*notion.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Parent.PageID == "" {
		return nil, fmt.Errorf("database parent must be a page")
	}
	title := notion.PlainText(req.Title)
	id := f.addDatabase(req.Parent.PageID, title)
	return &notion.Database{Object: "database", ID: id, Title: req.Title, Parent: req.Parent}, nil
}

// CreatePage implements notion.Writer
func (f *Fake) CreatePage(_ context.Context, req *notion.CreatePageRequest) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.Parent.DatabaseID != "" {
		if _, ok := f.rows[req.Parent.DatabaseID]; !ok {
			return nil, &notion.APIError{Status: 404, Code: "object_not_found", Message: "database " + req.Parent.DatabaseID}
		}
		id := f.addRow(req.Parent.DatabaseID, req.Properties, req.Children)
		cp := *f.pages[id]
		return &cp, nil
	}

	title := ""
	if t, ok := req.Properties["title"].(notion.TitleProperty); ok {
		title = notion.PlainText(t.Title)
	}
	id := f.newID()
	f.pages[id] = &notion.Page{
		Object:         "page",
		ID:             id,
		CreatedTime:    fixedTime,
		LastEditedTime: fixedTime,
		Parent:         req.Parent,
		Properties:     req.Properties,
	}
	f.children[req.Parent.PageID] = append(f.children[req.Parent.PageID], notion.Block{
		Object:    "block",
		ID:        id,
		Type:      notion.BlockChildPage,
		ChildPage: &notion.TitleBlock{Title: title},
	})
	f.appendBlocks(id, req.Children)
	cp := *f.pages[id]
	return &cp, nil
}

// AppendBlockChildren implements notion.Writer
func (f *Fake) AppendBlockChildren(_ context.Context, blockID string, children []notion.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendBlocks(blockID, children)
	return nil
}
