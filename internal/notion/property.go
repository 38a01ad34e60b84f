package notion

import (
	"encoding/json"
	"fmt"
)

// PropertyType is the type tag of a page property
type PropertyType string

const (
	PropertyTitle       PropertyType = "title"
	PropertyRichText    PropertyType = "rich_text"
	PropertyCheckbox    PropertyType = "checkbox"
	PropertySelect      PropertyType = "select"
	PropertyStatus      PropertyType = "status"
	PropertyMultiSelect PropertyType = "multi_select"
	PropertyURL         PropertyType = "url"
	PropertyNumber      PropertyType = "number"
	PropertyEmail       PropertyType = "email"
	PropertyFiles       PropertyType = "files"
)

// PropertyValue is a decoded property. The set of implementations is closed:
// callers switch over the concrete types below.
type PropertyValue interface {
	Type() PropertyType
	payload() any
}

// Option is a select, status or multi-select choice
type Option struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type TitleProperty struct{ Title []RichText }

type RichTextProperty struct{ RichText []RichText }

type CheckboxProperty struct{ Checkbox bool }

// SelectProperty holds the selected option, nil when nothing is selected
type SelectProperty struct{ Select *Option }

// StatusProperty is the dedicated status column type
type StatusProperty struct{ Status *Option }

type MultiSelectProperty struct{ MultiSelect []Option }

type URLProperty struct{ URL *string }

type NumberProperty struct{ Number *float64 }

type EmailProperty struct{ Email *string }

type FilesProperty struct{ Files []File }

// UnknownProperty keeps property types the sync does not understand, and
// properties whose payload failed to decode.
type UnknownProperty struct {
	Kind PropertyType
	Raw  json.RawMessage
}

func (TitleProperty) Type() PropertyType       { return PropertyTitle }
func (RichTextProperty) Type() PropertyType    { return PropertyRichText }
func (CheckboxProperty) Type() PropertyType    { return PropertyCheckbox }
func (SelectProperty) Type() PropertyType      { return PropertySelect }
func (StatusProperty) Type() PropertyType      { return PropertyStatus }
func (MultiSelectProperty) Type() PropertyType { return PropertyMultiSelect }
func (URLProperty) Type() PropertyType         { return PropertyURL }
func (NumberProperty) Type() PropertyType      { return PropertyNumber }
func (EmailProperty) Type() PropertyType       { return PropertyEmail }
func (FilesProperty) Type() PropertyType       { return PropertyFiles }
func (p UnknownProperty) Type() PropertyType   { return p.Kind }

func (p TitleProperty) payload() any       { return nonNilRuns(p.Title) }
func (p RichTextProperty) payload() any    { return nonNilRuns(p.RichText) }
func (p CheckboxProperty) payload() any    { return p.Checkbox }
func (p SelectProperty) payload() any      { return p.Select }
func (p StatusProperty) payload() any      { return p.Status }
func (p URLProperty) payload() any         { return p.URL }
func (p NumberProperty) payload() any      { return p.Number }
func (p EmailProperty) payload() any       { return p.Email }
func (p UnknownProperty) payload() any     { return p.Raw }
func (p MultiSelectProperty) payload() any {
	if p.MultiSelect == nil {
		return []Option{}
	}
	return p.MultiSelect
}
func (p FilesProperty) payload() any {
	if p.Files == nil {
		return []File{}
	}
	return p.Files
}

func nonNilRuns(runs []RichText) []RichText {
	if runs == nil {
		return []RichText{}
	}
	return runs
}

// Properties is the property bag of a page, keyed by property name
type Properties map[string]PropertyValue

// UnmarshalJSON decodes every property into its concrete type. A property
// that fails to decode is kept as UnknownProperty rather than failing the page.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Properties, len(raw))
	for name, msg := range raw {
		out[name] = decodeProperty(msg)
	}
	*p = out
	return nil
}

// MarshalJSON encodes properties in the shape the API accepts on create
func (p Properties) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p))
	for name, v := range p {
		if u, ok := v.(UnknownProperty); ok {
			out[name] = u.Raw
			continue
		}
		b, err := json.Marshal(map[string]any{"type": v.Type(), string(v.Type()): v.payload()})
		if err != nil {
			return nil, fmt.Errorf("failed to encode property %q: %w", name, err)
		}
		out[name] = b
	}
	return json.Marshal(out)
}

func decodeProperty(msg json.RawMessage) PropertyValue {
	var head struct {
		Type PropertyType `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return UnknownProperty{Raw: msg}
	}

	var (
		v   PropertyValue
		err error
	)
	switch head.Type {
	case PropertyTitle:
		var body struct {
			Title []RichText `json:"title"`
		}
		err = json.Unmarshal(msg, &body)
		v = TitleProperty{Title: body.Title}
	case PropertyRichText:
		var body struct {
			RichText []RichText `json:"rich_text"`
		}
		err = json.Unmarshal(msg, &body)
		v = RichTextProperty{RichText: body.RichText}
	case PropertyCheckbox:
		var body struct {
			Checkbox bool `json:"checkbox"`
		}
		err = json.Unmarshal(msg, &body)
		v = CheckboxProperty{Checkbox: body.Checkbox}
	case PropertySelect:
		var body struct {
			Select *Option `json:"select"`
		}
		err = json.Unmarshal(msg, &body)
		v = SelectProperty{Select: namedOption(body.Select)}
	case PropertyStatus:
		var body struct {
			Status *Option `json:"status"`
		}
		err = json.Unmarshal(msg, &body)
		v = StatusProperty{Status: namedOption(body.Status)}
	case PropertyMultiSelect:
		var body struct {
			MultiSelect []Option `json:"multi_select"`
		}
		err = json.Unmarshal(msg, &body)
		v = MultiSelectProperty{MultiSelect: body.MultiSelect}
	case PropertyURL:
		var body struct {
			URL *string `json:"url"`
		}
		err = json.Unmarshal(msg, &body)
		v = URLProperty{URL: nonEmpty(body.URL)}
	case PropertyNumber:
		var body struct {
			Number *float64 `json:"number"`
		}
		err = json.Unmarshal(msg, &body)
		v = NumberProperty{Number: body.Number}
	case PropertyEmail:
		var body struct {
			Email *string `json:"email"`
		}
		err = json.Unmarshal(msg, &body)
		v = EmailProperty{Email: nonEmpty(body.Email)}
	case PropertyFiles:
		var body struct {
			Files []File `json:"files"`
		}
		err = json.Unmarshal(msg, &body)
		v = FilesProperty{Files: body.Files}
	default:
		return UnknownProperty{Kind: head.Type, Raw: msg}
	}
	if err != nil {
		return UnknownProperty{Kind: head.Type, Raw: msg}
	}
	return v
}

// namedOption treats an option without a name as an unset select. Typed
// clients encode a null select that way.
func namedOption(o *Option) *Option {
	if o == nil || o.Name == "" {
		return nil
	}
	return o
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Helpers for building property values when creating pages.

func Title(s string) TitleProperty { return TitleProperty{Title: Text(s)} }

func RichTextValue(s string) RichTextProperty { return RichTextProperty{RichText: Text(s)} }

func Checkbox(b bool) CheckboxProperty { return CheckboxProperty{Checkbox: b} }

func Select(name string) SelectProperty {
	if name == "" {
		return SelectProperty{}
	}
	return SelectProperty{Select: &Option{Name: name}}
}

func MultiSelect(names ...string) MultiSelectProperty {
	opts := make([]Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, Option{Name: n})
	}
	return MultiSelectProperty{MultiSelect: opts}
}

func URL(s string) URLProperty {
	if s == "" {
		return URLProperty{}
	}
	return URLProperty{URL: &s}
}

func Email(s string) EmailProperty {
	if s == "" {
		return EmailProperty{}
	}
	return EmailProperty{Email: &s}
}

func Number(n float64) NumberProperty { return NumberProperty{Number: &n} }

func Files(files ...File) FilesProperty { return FilesProperty{Files: files} }
