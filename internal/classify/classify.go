// Package classify decides which kind of section a database holds and reads
// database rows into typed records.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vonshlovens/notion-sync/internal/markdown"
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/schema"
)

// SectionAssetPrefix is the image folder of section assets
const SectionAssetPrefix = "sections"

// Section is one typed block of page content
type Section struct {
	ID      string
	Kind    schema.Kind
	Enabled bool
	Title   string
	Fields  schema.Record
}

// Record flattens the section into its output shape: id, type and enabled
// first, then the kind's own fields.
func (s Section) Record() schema.Record {
	rec := schema.Record{Fields: []schema.Field{
		{Name: "id", Value: schema.String(s.ID)},
		{Name: "type", Value: schema.String(string(s.Kind))},
		{Name: schema.FieldEnabled, Value: schema.Bool(s.Enabled)},
	}}
	for _, f := range s.Fields.Fields {
		if f.Name == schema.FieldSectionType || f.Name == schema.FieldEnabled {
			continue
		}
		rec.Fields = append(rec.Fields, f)
	}
	return rec
}

func (s Section) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// Classifier reads section databases. Images may be nil, in which case file
// fields keep their remote URLs.
type Classifier struct {
	API    notion.API
	Images markdown.ImageResolver
}

// New creates a classifier
func New(api notion.API, images markdown.ImageResolver) *Classifier {
	if images == nil {
		images = markdown.RemoteImages{}
	}
	return &Classifier{API: api, Images: images}
}

// inference is one structural rule. Rules are tried in order and the first
// match wins, so a database matching several rules takes the earliest.
type inference struct {
	kind     schema.Kind
	requires []string
}

var inferences = []inference{
	{schema.KindDynamic, []string{schema.FieldCollectionName}},
	{schema.KindInfo, []string{schema.FieldTitle, schema.FieldDescription}},
}

// Detect returns the section kind of a row: its explicit section_type when
// recognized, else the first structural rule whose fields are all present.
func Detect(props notion.Properties) (schema.Kind, bool) {
	if raw := schema.AsString(schema.Read(props, schema.SectionTypeEntry)); raw != "" {
		if k, ok := schema.ParseSectionKind(raw); ok {
			return k, true
		}
		slog.Debug("unrecognized section type, inferring from properties", "section_type", raw)
	}

	for _, rule := range inferences {
		s := schema.Get(rule.kind)
		matched := true
		for _, name := range rule.requires {
			e, ok := s.Lookup(name)
			if !ok || !schema.Present(props, e) {
				matched = false
				break
			}
		}
		if matched {
			return rule.kind, true
		}
	}
	return "", false
}

// Classify reads the section held by a database. A database that is empty
// or whose kind cannot be determined yields nil without error; only fetch
// failures are errors.
func (c *Classifier) Classify(ctx context.Context, databaseID string) (*Section, error) {
	list, err := c.API.QueryDatabase(ctx, databaseID, &notion.QueryRequest{PageSize: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to query section %s: %w", databaseID, err)
	}
	if len(list.Results) == 0 {
		slog.Debug("section database is empty", "database", databaseID)
		return nil, nil
	}
	row := list.Results[0]

	kind, ok := Detect(row.Properties)
	if !ok {
		slog.Warn("skipping unrecognized section", "database", databaseID)
		return nil, nil
	}

	s := schema.Get(kind)
	rec, err := c.ReadRow(ctx, row, s)
	if err != nil {
		return nil, err
	}

	id := notion.CompactID(databaseID)
	c.ResolveFiles(ctx, &rec, s, SectionAssetPrefix, id)

	return &Section{
		ID:      id,
		Kind:    kind,
		Enabled: rec.Bool(schema.FieldEnabled, true),
		Title:   rec.String(schema.FieldTitle),
		Fields:  rec,
	}, nil
}

// ReadRow resolves every field of a schema from a row. Code block fields
// not authored as properties are read from the row's page body.
func (c *Classifier) ReadRow(ctx context.Context, row notion.Page, s schema.Schema) (schema.Record, error) {
	rec := schema.ReadAll(row.Properties, s)

	var blocks []notion.Block
	fetched := false
	for _, e := range s {
		if e.Remote != schema.RemoteCodeBlock || schema.Present(row.Properties, e) {
			continue
		}
		if !fetched {
			var err error
			if blocks, err = notion.ChildrenAll(ctx, c.API, row.ID); err != nil {
				return rec, fmt.Errorf("failed to read body of %s: %w", row.ID, err)
			}
			fetched = true
		}
		if code, ok := firstCode(blocks); ok {
			rec.Set(e.Name, schema.String(code))
		}
	}
	return rec, nil
}

func firstCode(blocks []notion.Block) (string, bool) {
	for _, b := range blocks {
		if b.Type == notion.BlockCode && b.Code != nil {
			return notion.PlainText(b.Code.RichText), true
		}
	}
	return "", false
}

// ResolveFiles materializes the downloadable file fields of a record under
// prefix. Assets are named <hint>-<field>, with an index for lists.
// Non-download file fields keep their remote URLs.
func (c *Classifier) ResolveFiles(ctx context.Context, rec *schema.Record, s schema.Schema, prefix, hint string) {
	schema.ResolveFiles(rec, s, func(e schema.Entry, i int, f notion.File) string {
		if !e.Download {
			return f.URL()
		}
		name := hint + "-" + e.Name
		if e.Local == schema.LocalStrings {
			name += "-" + strconv.Itoa(i+1)
		}
		return c.Images.Materialize(ctx, f, prefix, name)
	})
}
