package schema

import "testing"

func TestRegistry_SchemasValid(t *testing.T) {
	for _, k := range Kinds() {
		s := Get(k)
		if len(s) == 0 {
			t.Errorf("kind %s has no schema", k)
			continue
		}
		if err := s.Validate(); err != nil {
			t.Errorf("kind %s: %v", k, err)
		}
		for _, e := range s {
			if e.Download && e.Remote != RemoteFiles {
				t.Errorf("%s.%s: download on non-files field", k, e.Name)
			}
		}
	}
}

func TestRegistry_SectionsCarryDiscriminator(t *testing.T) {
	for _, k := range SectionKinds {
		s := Get(k)
		if _, ok := s.Lookup(FieldSectionType); !ok {
			t.Errorf("section %s lacks %s", k, FieldSectionType)
		}
		if e, ok := s.Lookup(FieldEnabled); !ok || e.Default != Bool(true) {
			t.Errorf("section %s: enabled should default to true", k)
		}
	}
}

func TestGet_UnknownKind(t *testing.T) {
	if s := Get("carousel_of_doom"); s != nil {
		t.Errorf("unknown kind returned %d entries", len(s))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{"ok", Schema{{Name: "title", Remote: RemoteTitle}, {Name: "x", Remote: RemoteURL}}, false},
		{"no title", Schema{{Name: "x", Remote: RemoteURL}}, true},
		{"two titles", Schema{{Name: "a", Remote: RemoteTitle}, {Name: "b", Remote: RemoteTitle}}, true},
		{"duplicate", Schema{{Name: "title", Remote: RemoteTitle}, {Name: "Title", Remote: RemoteRichText}}, true},
		{"download on url", Schema{{Name: "title", Remote: RemoteTitle}, {Name: "x", Remote: RemoteURL, Download: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseSectionKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
		ok    bool
	}{
		{"info", KindInfo, true},
		{"Info", KindInfo, true},
		{"Video Embed", KindVideoEmbed, true},
		{"video-embed", KindVideoEmbed, true},
		{"text", KindInfo, true},
		{"Contact", KindMailto, true},
		{"spacer", KindGap, true},
		{"", "", false},
		{"hero", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSectionKind(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSectionKind(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
