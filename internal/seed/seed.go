// Package seed populates an empty workspace root with every well-known
// container and a few sample rows, so a fresh site syncs end to end.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"

	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/schema"
)

// ErrRootNotEmpty is returned when the root already holds pages or databases
var ErrRootNotEmpty = errors.New("root page is not empty")

// Seeder creates the sample workspace
type Seeder struct {
	API    notion.API
	Writer notion.Writer
	// Out receives progress lines. Nil discards them.
	Out io.Writer
}

// Result counts what Seed created
type Result struct {
	Databases int
	Pages     int
	Rows      int
}

// New creates a seeder
func New(api notion.API, w notion.Writer, out io.Writer) *Seeder {
	if out == nil {
		out = io.Discard
	}
	return &Seeder{API: api, Writer: w, Out: out}
}

func (s *Seeder) printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format+"\n", args...)
}

// Seed creates the sample workspace under rootID. It refuses to touch a root
// that already has child pages or databases.
func (s *Seeder) Seed(ctx context.Context, rootID string) (*Result, error) {
	if s.Out == nil {
		s.Out = io.Discard
	}
	id, err := notion.NormalizeID(rootID)
	if err != nil {
		return nil, fmt.Errorf("invalid root page id: %w", err)
	}

	blocks, err := notion.ChildrenAll(ctx, s.API, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list root children: %w", err)
	}
	for _, b := range blocks {
		if b.Type == notion.BlockChildPage || b.Type == notion.BlockChildDatabase {
			return nil, fmt.Errorf("%w: found %q", ErrRootNotEmpty, b.Title())
		}
	}

	res := &Result{}
	for _, c := range Workspace() {
		s.printf("creating %s...", c.Title)
		if err := s.createContainer(ctx, id, c, res); err != nil {
			return res, fmt.Errorf("failed to create %q: %w", c.Title, err)
		}
	}
	s.printf("seed finished: %d databases, %d pages, %d rows", res.Databases, res.Pages, res.Rows)
	return res, nil
}

func (s *Seeder) createContainer(ctx context.Context, rootID string, c Container, res *Result) error {
	if c.Kind != "" {
		return s.createTable(ctx, rootID, Table{Title: c.Title, Kind: c.Kind, Rows: c.Rows}, res)
	}

	pageID, err := s.createPage(ctx, rootID, Page{Title: c.Title}, res)
	if err != nil {
		return err
	}
	for _, t := range c.Tables {
		if err := s.createTable(ctx, pageID, t, res); err != nil {
			return err
		}
	}
	for _, p := range c.Pages {
		if _, err := s.createPage(ctx, pageID, p, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) createPage(ctx context.Context, parentID string, p Page, res *Result) (string, error) {
	page, err := s.Writer.CreatePage(ctx, &notion.CreatePageRequest{
		Parent:     notion.PageParent(parentID),
		Properties: notion.Properties{"title": notion.Title(p.Title)},
		Children:   p.Body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create page %q: %w", p.Title, err)
	}
	res.Pages++
	slog.Debug("created page", "title", p.Title, "id", page.ID)
	return page.ID, nil
}

func (s *Seeder) createTable(ctx context.Context, parentID string, t Table, res *Result) error {
	sch := schema.Get(t.Kind)
	if sch == nil {
		return fmt.Errorf("unknown kind %q", t.Kind)
	}

	db, err := s.Writer.CreateDatabase(ctx, &notion.CreateDatabaseRequest{
		Parent:     notion.PageParent(parentID),
		Title:      notion.Text(t.Title),
		IsInline:   true,
		Properties: Columns(sch),
	})
	if err != nil {
		return fmt.Errorf("failed to create database %q: %w", t.Title, err)
	}
	res.Databases++
	slog.Debug("created database", "title", t.Title, "kind", t.Kind, "id", db.ID)

	for i, row := range t.Rows {
		props, body, err := Properties(sch, row)
		if err != nil {
			return fmt.Errorf("row %d of %q: %w", i+1, t.Title, err)
		}
		if _, err := s.Writer.CreatePage(ctx, &notion.CreatePageRequest{
			Parent:     notion.DatabaseParent(db.ID),
			Properties: props,
			Children:   body,
		}); err != nil {
			return fmt.Errorf("failed to create row %d of %q: %w", i+1, t.Title, err)
		}
		res.Rows++
	}
	return nil
}

// ColumnName returns the property name a field is created under: the
// first alias spelling the canonical name in display case, else the
// canonical name. Either way the reader resolves it.
func ColumnName(e schema.Entry) string {
	for _, a := range e.Aliases {
		if schema.OptionKey(a) == e.Name {
			return a
		}
	}
	return e.Name
}

// Columns derives the database columns of a schema. Code block fields have
// no column; their content goes in the row body.
func Columns(s schema.Schema) map[string]notion.PropertySchema {
	cols := make(map[string]notion.PropertySchema, len(s))
	for _, e := range s {
		if e.Remote == schema.RemoteCodeBlock {
			continue
		}
		col := notion.PropertySchema{Type: notion.PropertyType(e.Remote)}
		opts := e.Options
		if e.Name == schema.FieldSectionType {
			opts = nil
			for _, k := range schema.SectionKinds {
				opts = append(opts, string(k))
			}
		}
		for _, o := range opts {
			col.Options = append(col.Options, notion.Option{Name: o})
		}
		cols[ColumnName(e)] = col
	}
	return cols
}

// Properties converts a sample row into property values. Code block fields
// become a code block in the returned body, ahead of the row's own body.
func Properties(s schema.Schema, row Row) (notion.Properties, []notion.Block, error) {
	known := make(map[string]bool, len(s))
	props := notion.Properties{}
	var body []notion.Block
	for _, e := range s {
		known[e.Name] = true
		v, ok := row.Values[e.Name]
		if !ok {
			continue
		}
		if e.Remote == schema.RemoteCodeBlock {
			code, ok := v.(string)
			if !ok {
				return nil, nil, fmt.Errorf("field %s: want string, got %T", e.Name, v)
			}
			body = append(body, notion.Code(codeLanguage(row), code))
			continue
		}
		p, err := propertyValue(e, v)
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", e.Name, err)
		}
		props[ColumnName(e)] = p
	}

	var unknown []string
	for name := range row.Values {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, fmt.Errorf("unknown fields %v", unknown)
	}
	return props, append(body, row.Body...), nil
}

func propertyValue(e schema.Entry, v any) (notion.PropertyValue, error) {
	switch e.Remote {
	case schema.RemoteTitle, schema.RemoteRichText, schema.RemoteSelect, schema.RemoteURL, schema.RemoteEmail:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		switch e.Remote {
		case schema.RemoteTitle:
			return notion.Title(str), nil
		case schema.RemoteRichText:
			return notion.RichTextValue(str), nil
		case schema.RemoteSelect:
			return notion.Select(str), nil
		case schema.RemoteURL:
			return notion.URL(str), nil
		default:
			return notion.Email(str), nil
		}
	case schema.RemoteCheckbox:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", v)
		}
		return notion.Checkbox(b), nil
	case schema.RemoteNumber:
		switch n := v.(type) {
		case int:
			return notion.Number(float64(n)), nil
		case float64:
			return notion.Number(n), nil
		}
		return nil, fmt.Errorf("want number, got %T", v)
	case schema.RemoteMultiSelect:
		list, ok := v.([]string)
		if !ok {
			return nil, fmt.Errorf("want []string, got %T", v)
		}
		return notion.MultiSelect(list...), nil
	case schema.RemoteFiles:
		var urls []string
		switch f := v.(type) {
		case string:
			urls = []string{f}
		case []string:
			urls = f
		default:
			return nil, fmt.Errorf("want file URL, got %T", v)
		}
		files := make([]notion.File, 0, len(urls))
		for _, u := range urls {
			files = append(files, notion.ExternalFile(path.Base(u), u))
		}
		return notion.Files(files...), nil
	}
	return nil, fmt.Errorf("unsupported property type %s", e.Remote)
}

// codeLanguage maps a snippet kind onto a code block language
func codeLanguage(row Row) string {
	switch row.Values["kind"] {
	case "css":
		return "css"
	case "js":
		return "javascript"
	}
	return "html"
}
