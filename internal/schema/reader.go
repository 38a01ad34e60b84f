package schema

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/vonshlovens/notion-sync/internal/notion"
)

// Read resolves one field from a property bag. Candidates are tried in
// order (canonical name, then aliases) and the first one that yields a
// value wins. When none does, the entry default is used. Read never fails:
// missing or malformed properties degrade to the default.
func Read(props notion.Properties, e Entry) Value {
	var v Value
	for _, name := range e.Candidates() {
		p, ok := props[name]
		if !ok {
			continue
		}
		if v = coerce(decode(p, e.FullText), e.Local); v != nil {
			break
		}
	}
	if v == nil {
		v = e.Default
	}
	if v == nil {
		return nil
	}
	if len(e.Options) > 0 {
		v = matchOptions(v, e)
	}
	return normalize(v, e.Normalize)
}

// ReadAll resolves every field of a schema, in schema order
func ReadAll(props notion.Properties, s Schema) Record {
	rec := Record{Fields: make([]Field, 0, len(s))}
	for _, e := range s {
		rec.Fields = append(rec.Fields, Field{Name: e.Name, Value: Read(props, e)})
	}
	return rec
}

// Present reports whether any candidate name of the entry is in the bag
func Present(props notion.Properties, e Entry) bool {
	for _, name := range e.Candidates() {
		if _, ok := props[name]; ok {
			return true
		}
	}
	return false
}

// ResolveFiles replaces raw file values with the references returned by
// resolve. Single-valued fields keep the first file only.
func ResolveFiles(rec *Record, s Schema, resolve func(e Entry, index int, f notion.File) string) {
	for _, e := range s {
		files, ok := rec.Get(e.Name).(Files)
		if !ok {
			continue
		}
		if e.Local == LocalStrings {
			refs := make(Strings, 0, len(files))
			for i, f := range files {
				refs = append(refs, resolve(e, i, f))
			}
			rec.Set(e.Name, refs)
			continue
		}
		rec.Set(e.Name, String(resolve(e, 0, files[0])))
	}
}

// decode extracts a value by the property's actual type tag. Empty text,
// empty lists and null payloads decode to nil.
func decode(p notion.PropertyValue, fullText bool) Value {
	switch p := p.(type) {
	case notion.TitleProperty:
		return text(p.Title, false)
	case notion.RichTextProperty:
		return text(p.RichText, fullText)
	case notion.CheckboxProperty:
		return Bool(p.Checkbox)
	case notion.SelectProperty:
		return option(p.Select)
	case notion.StatusProperty:
		return option(p.Status)
	case notion.MultiSelectProperty:
		if len(p.MultiSelect) == 0 {
			return nil
		}
		names := make(Strings, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			names = append(names, o.Name)
		}
		return names
	case notion.URLProperty:
		return optional(p.URL)
	case notion.EmailProperty:
		return optional(p.Email)
	case notion.NumberProperty:
		if p.Number == nil {
			return nil
		}
		return Number(*p.Number)
	case notion.FilesProperty:
		if len(p.Files) == 0 {
			return nil
		}
		return Files(p.Files)
	case notion.UnknownProperty:
		return nil
	}
	return nil
}

func text(runs []notion.RichText, full bool) Value {
	if len(runs) == 0 {
		return nil
	}
	if !full {
		runs = runs[:1]
	}
	s := notion.PlainText(runs)
	if s == "" {
		return nil
	}
	return String(s)
}

func option(o *notion.Option) Value {
	if o == nil || o.Name == "" {
		return nil
	}
	return String(o.Name)
}

func optional(s *string) Value {
	if s == nil || *s == "" {
		return nil
	}
	return String(*s)
}

// coerce converts a decoded value to the entry's local type. Values that
// cannot be converted are treated as absent. File values pass through for
// later materialization.
func coerce(v Value, local LocalType) Value {
	if v == nil {
		return nil
	}
	if f, ok := v.(Files); ok {
		return f
	}
	switch local {
	case LocalString:
		return String(AsString(v))
	case LocalNumber:
		switch v := v.(type) {
		case Number:
			return v
		case String:
			n, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
			if err != nil {
				return nil
			}
			return Number(n)
		}
	case LocalBool:
		switch v := v.(type) {
		case Bool:
			return v
		case String:
			// Older workspaces stored flags as text
			switch strings.ToLower(strings.TrimSpace(string(v))) {
			case "true", "yes", "on", "1":
				return Bool(true)
			case "false", "no", "off", "0":
				return Bool(false)
			}
		case Number:
			return Bool(v != 0)
		}
	case LocalStrings:
		switch v := v.(type) {
		case Strings:
			return v
		case String:
			var out Strings
			for _, part := range strings.Split(string(v), ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			if len(out) == 0 {
				return nil
			}
			return out
		}
	}
	return nil
}

// matchOptions maps values onto their declared option spelling. Values
// outside the option list are kept as-is.
func matchOptions(v Value, e Entry) Value {
	match := func(s string) string {
		key := OptionKey(s)
		for _, o := range e.Options {
			if OptionKey(o) == key {
				return o
			}
		}
		slog.Debug("value outside declared options", "field", e.Name, "value", s)
		return s
	}
	switch v := v.(type) {
	case String:
		return String(match(string(v)))
	case Strings:
		out := make(Strings, len(v))
		for i, s := range v {
			out[i] = match(s)
		}
		return out
	}
	return v
}

// OptionKey folds case, spaces and hyphens so "In Review", "in-review" and
// "in_review" compare equal.
func OptionKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

var ratioPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*[:/xX×]\s*(\d+(?:\.\d+)?)$`)

// aspectRatioText rewrites "16:9", "16x9" and "16 / 9" as "16/9".
// Anything else is returned trimmed.
func aspectRatioText(s string) string {
	s = strings.TrimSpace(s)
	m := ratioPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[1] + "/" + m[2]
}

func normalize(v Value, n Normalizer) Value {
	s, ok := v.(String)
	if !ok {
		return v
	}
	switch n {
	case NormalizeAspectRatio:
		return String(aspectRatioText(string(s)))
	case NormalizeLower:
		return String(strings.ToLower(strings.TrimSpace(string(s))))
	}
	return v
}
