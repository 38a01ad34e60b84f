package notion

import (
	"encoding/json"
	"strings"
	"time"
)

// RichText is a single run of formatted text
type RichText struct {
	Type        string       `json:"type"`
	PlainText   string       `json:"plain_text"`
	Href        *string      `json:"href,omitempty"`
	Annotations Annotations  `json:"annotations"`
	Text        *TextContent `json:"text,omitempty"`
}

// TextContent is the payload of a "text" rich text run
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a hyperlink target
type Link struct {
	URL string `json:"url"`
}

// Annotations holds the inline styling of a rich text run
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// Text builds a single plain rich text run, used when creating content
func Text(s string) []RichText {
	if s == "" {
		return []RichText{}
	}
	return []RichText{{
		Type:      "text",
		PlainText: s,
		Text:      &TextContent{Content: s},
	}}
}

// PlainText concatenates the plain text of every run
func PlainText(runs []RichText) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.content())
	}
	return sb.String()
}

// content returns the plain text of a run, falling back to the text payload
// for runs built locally that never round-tripped through the API.
func (r RichText) content() string {
	if r.PlainText != "" {
		return r.PlainText
	}
	if r.Text != nil {
		return r.Text.Content
	}
	return ""
}

// File is a file reference; hosted files carry a time-limited signed URL
type File struct {
	Name     string      `json:"name,omitempty"`
	Type     string      `json:"type"`
	File     *FileObject `json:"file,omitempty"`
	External *FileObject `json:"external,omitempty"`
}

// FileObject holds the URL of a hosted or external file
type FileObject struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// URL returns whichever of the hosted or external URLs is present
func (f File) URL() string {
	switch {
	case f.Type == "external" && f.External != nil:
		return f.External.URL
	case f.Type == "file" && f.File != nil:
		return f.File.URL
	case f.File != nil:
		return f.File.URL
	case f.External != nil:
		return f.External.URL
	}
	return ""
}

// ExternalFile builds an external file reference
func ExternalFile(name, url string) File {
	return File{Name: name, Type: "external", External: &FileObject{URL: url}}
}

// Parent identifies the container of a page or database
type Parent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
}

// PageParent returns a parent reference to a page
func PageParent(id string) Parent {
	return Parent{Type: "page_id", PageID: id}
}

// DatabaseParent returns a parent reference to a database
func DatabaseParent(id string) Parent {
	return Parent{Type: "database_id", DatabaseID: id}
}

// Page is a page or a database row
type Page struct {
	Object         string     `json:"object"`
	ID             string     `json:"id"`
	CreatedTime    time.Time  `json:"created_time"`
	LastEditedTime time.Time  `json:"last_edited_time"`
	Archived       bool       `json:"archived"`
	URL            string     `json:"url,omitempty"`
	Parent         Parent     `json:"parent"`
	Properties     Properties `json:"properties"`
}

// Database is the metadata of a database container
type Database struct {
	Object string     `json:"object"`
	ID     string     `json:"id"`
	Title  []RichText `json:"title"`
	Parent Parent     `json:"parent"`
}

// PageList is one page of database query results
type PageList struct {
	Results    []Page  `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// BlockList is one page of block children
type BlockList struct {
	Results    []Block `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// Sort orders database query results
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// QueryRequest is the body of a database query
type QueryRequest struct {
	StartCursor string          `json:"start_cursor,omitempty"`
	PageSize    int             `json:"page_size,omitempty"`
	Sorts       []Sort          `json:"sorts,omitempty"`
}

// CreateDatabaseRequest is the body used to create a database under a page
type CreateDatabaseRequest struct {
	Parent     Parent                    `json:"parent"`
	Title      []RichText                `json:"title"`
	IsInline   bool                      `json:"is_inline,omitempty"`
	Properties map[string]PropertySchema `json:"properties"`
}

// CreatePageRequest is the body used to create a page or database row
type CreatePageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
	Children   []Block    `json:"children,omitempty"`
}

// PropertySchema declares one database column when creating a database
type PropertySchema struct {
	Type    PropertyType
	Options []Option
}

// MarshalJSON encodes the column as {"type": "<type>", "<type>": {...}}
func (s PropertySchema) MarshalJSON() ([]byte, error) {
	var payload any = struct{}{}
	if s.Type == PropertySelect || s.Type == PropertyMultiSelect {
		opts := s.Options
		if opts == nil {
			opts = []Option{}
		}
		payload = map[string]any{"options": opts}
	}
	return json.Marshal(map[string]any{"type": s.Type, string(s.Type): payload})
}
