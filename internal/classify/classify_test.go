package classify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/notion/notiontest"
	"github.com/vonshlovens/notion-sync/internal/schema"
)

type recordingImages struct {
	names []string
}

func (r *recordingImages) Materialize(_ context.Context, f notion.File, prefix, hint string) string {
	r.names = append(r.names, prefix+"/"+hint)
	return "/images/" + prefix + "/" + hint + ".png"
}

func TestClassify_FallsBackToDynamic(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Home")
	db := fake.AddDatabase(root, "Latest Projects")
	fake.AddRow(db, notion.Properties{
		"Name":            notion.Title("Latest work"),
		"Collection Name": notion.Select("projects"),
		"Limit":           notion.Number(6),
	})

	sec, err := New(fake, nil).Classify(context.Background(), db)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if sec == nil || sec.Kind != schema.KindDynamic {
		t.Fatalf("section = %+v, want dynamic", sec)
	}
	if sec.Fields.String(schema.FieldCollectionName) != "projects" {
		t.Errorf("collection_name = %q", sec.Fields.String(schema.FieldCollectionName))
	}
	if sec.Fields.Number("limit", 0) != 6 || sec.Fields.String("layout") != "grid" {
		t.Errorf("fields = %+v", sec.Fields.Fields)
	}
	if !sec.Enabled || sec.Title != "Latest work" || sec.ID != notion.CompactID(db) {
		t.Errorf("section header = %+v", sec)
	}
}

func TestClassify_ExplicitTypeAndFiles(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Home")
	db := fake.AddDatabase(root, "About")
	fake.AddRow(db, notion.Properties{
		"title":        notion.Title("About me"),
		"section_type": notion.Select("Info"),
		"enabled":      notion.Checkbox(false),
		"Image":        notion.Files(notion.ExternalFile("me", "https://cdn.example.com/me.png")),
		"aspect_ratio": notion.Select("4:3"),
	})

	images := &recordingImages{}
	sec, err := New(fake, images).Classify(context.Background(), db)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if sec == nil || sec.Kind != schema.KindInfo {
		t.Fatalf("section = %+v, want info", sec)
	}
	if sec.Enabled {
		t.Error("enabled should be false")
	}

	id := notion.CompactID(db)
	if want := "/images/sections/" + id + "-image.png"; sec.Fields.String("image") != want {
		t.Errorf("image = %q, want %q", sec.Fields.String("image"), want)
	}
	if sec.Fields.String("aspect_ratio") != "4/3" || sec.Fields.String("image_position") != "right" {
		t.Errorf("fields = %+v", sec.Fields.Fields)
	}

	data, err := json.Marshal(sec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out["type"] != "info" || out["enabled"] != false || out["id"] != id {
		t.Errorf("section JSON = %s", data)
	}
	if _, ok := out["section_type"]; ok {
		t.Error("section_type should not be repeated in the output")
	}
}

func TestClassify_HTMLReadsCodeBlock(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Home")
	db := fake.AddDatabase(root, "Widget")
	fake.AddRow(db, notion.Properties{
		"title":        notion.Title("Widget"),
		"section_type": notion.Select("html"),
	}, notion.Paragraph("ignored"), notion.Code("html", "<div>hi</div>"))

	sec, err := New(fake, nil).Classify(context.Background(), db)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if sec == nil || sec.Fields.String("html") != "<div>hi</div>" {
		t.Fatalf("section = %+v", sec)
	}
}

func TestClassify_SkipsUnrecognizedAndEmpty(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Home")

	empty := fake.AddDatabase(root, "Empty")
	sec, err := New(fake, nil).Classify(context.Background(), empty)
	if err != nil || sec != nil {
		t.Errorf("empty database = %+v, %v; want nil, nil", sec, err)
	}

	odd := fake.AddDatabase(root, "Odd")
	fake.AddRow(odd, notion.Properties{"Name": notion.Title("Only a title")})
	sec, err = New(fake, nil).Classify(context.Background(), odd)
	if err != nil || sec != nil {
		t.Errorf("unrecognized database = %+v, %v; want nil, nil", sec, err)
	}
}

func TestClassify_QueryErrorPropagates(t *testing.T) {
	fake := notiontest.New()
	root := fake.AddRoot("Home")
	db := fake.AddDatabase(root, "Broken")
	boom := errors.New("boom")
	fake.QueryErrors[db] = notiontest.FailAfter{Err: boom}

	if _, err := New(fake, nil).Classify(context.Background(), db); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		props notion.Properties
		want  schema.Kind
		ok    bool
	}{
		{"explicit", notion.Properties{"Section Type": notion.Select("Video")}, schema.KindVideoEmbed, true},
		{"explicit wins over structure", notion.Properties{"type": notion.Select("gap"), "collection": notion.Select("blog")}, schema.KindGap, true},
		{"unknown tag falls back", notion.Properties{"section_type": notion.Select("hero"), "Title": notion.Title("x"), "Description": notion.RichTextValue("y")}, schema.KindInfo, true},
		{"dynamic beats info", notion.Properties{"Name": notion.Title("x"), "description": notion.RichTextValue("y"), "collection_name": notion.Select("blog")}, schema.KindDynamic, true},
		{"nothing", notion.Properties{"Name": notion.Title("x")}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.props)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Detect = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
