// Package schema declares how remote properties map onto the local content
// model, and reads typed values out of a property bag.
package schema

import (
	"fmt"
	"strings"
)

// RemoteType is the property type a field is authored as
type RemoteType string

const (
	RemoteTitle       RemoteType = "title"
	RemoteRichText    RemoteType = "rich_text"
	RemoteCheckbox    RemoteType = "checkbox"
	RemoteSelect      RemoteType = "select"
	RemoteMultiSelect RemoteType = "multi_select"
	RemoteURL         RemoteType = "url"
	RemoteNumber      RemoteType = "number"
	RemoteFiles       RemoteType = "files"
	RemoteEmail       RemoteType = "email"
	// RemoteCodeBlock fields live in the first code block of the row's page
	// body rather than in a property.
	RemoteCodeBlock RemoteType = "code_block"
)

// LocalType is the type a field takes in the local content model
type LocalType int

const (
	LocalString LocalType = iota
	LocalNumber
	LocalBool
	LocalStrings
)

func (t LocalType) String() string {
	switch t {
	case LocalString:
		return "string"
	case LocalNumber:
		return "number"
	case LocalBool:
		return "boolean"
	case LocalStrings:
		return "string[]"
	default:
		return "unknown"
	}
}

// Normalizer post-processes a resolved string value
type Normalizer string

const (
	NormalizeNone        Normalizer = ""
	NormalizeAspectRatio Normalizer = "aspect_ratio"
	NormalizeLower       Normalizer = "lower"
)

// Entry describes one field of one content kind
type Entry struct {
	Name     string
	Remote   RemoteType
	Local    LocalType
	Required bool
	Default  Value
	// Aliases are legacy or alternate property names, tried in order after Name.
	Aliases   []string
	Download  bool
	FullText  bool
	Options   []string
	Normalize Normalizer
}

// Candidates returns the property names to try, canonical name first
func (e Entry) Candidates() []string {
	return append([]string{e.Name}, e.Aliases...)
}

// Schema is the ordered field list of one content kind
type Schema []Entry

// Lookup finds an entry by canonical name
func (s Schema) Lookup(name string) (Entry, bool) {
	for _, e := range s {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Title returns the entry holding the record's display name
func (s Schema) Title() (Entry, bool) {
	for _, e := range s {
		if e.Remote == RemoteTitle {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns the canonical field names in order
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for _, e := range s {
		names = append(names, e.Name)
	}
	return names
}

// Validate checks the structural invariants of a schema: unique names and
// exactly one title entry.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s))
	titles := 0
	for _, e := range s {
		if e.Name == "" {
			return fmt.Errorf("entry with empty name")
		}
		key := strings.ToLower(e.Name)
		if seen[key] {
			return fmt.Errorf("duplicate field %q", e.Name)
		}
		seen[key] = true
		if e.Remote == RemoteTitle {
			titles++
		}
		if e.Download && e.Remote != RemoteFiles {
			return fmt.Errorf("field %q: download requires a files field", e.Name)
		}
	}
	if titles != 1 {
		return fmt.Errorf("expected exactly one title field, found %d", titles)
	}
	return nil
}
