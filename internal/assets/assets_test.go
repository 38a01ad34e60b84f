package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/store"
)

func TestMaterialize_Downloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	public := t.TempDir()
	st, err := store.NewStateTracker(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("NewStateTracker failed: %v", err)
	}
	m := New(public, srv.Client(), st)

	file := notion.File{Type: "file", File: &notion.FileObject{URL: srv.URL + "/secure/Cover.PNG?X-Amz-Signature=abc"}}
	got := m.Materialize(context.Background(), file, "projects", "My Project")

	if got != "/images/projects/my-project.png" {
		t.Fatalf("Materialize = %q", got)
	}
	data, err := os.ReadFile(filepath.Join(public, "images", "projects", "my-project.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("downloaded file = %q, %v", data, err)
	}

	asset := st.GetAsset(got)
	if asset == nil || asset.Source != srv.URL+"/secure/Cover.PNG" {
		t.Errorf("asset state = %+v", asset)
	}
}

func TestMaterialize_FallsBackToRemoteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer srv.Close()

	public := t.TempDir()
	m := New(public, srv.Client(), nil)

	src := srv.URL + "/expired.png?sig=old"
	got := m.Materialize(context.Background(), notion.ExternalFile("x", src), "blog", "post")
	if got != src {
		t.Errorf("Materialize = %q, want original URL %q", got, src)
	}
	if _, err := os.Stat(filepath.Join(public, "images", "blog", "post.png")); !os.IsNotExist(err) {
		t.Error("no file should be written on failure")
	}
}

func TestMaterialize_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	src := srv.URL + "/gone.jpg"
	srv.Close()

	m := New(t.TempDir(), nil, nil)
	if got := m.Materialize(context.Background(), notion.ExternalFile("x", src), "site", "logo"); got != src {
		t.Errorf("Materialize = %q, want %q", got, src)
	}
	if got := m.Materialize(context.Background(), notion.File{}, "site", "logo"); got != "" {
		t.Errorf("empty file reference = %q, want empty", got)
	}
}

func TestExt(t *testing.T) {
	tests := map[string]string{
		"https://x/a.png":               ".png",
		"https://x/a.JPEG?sig=1":        ".jpeg",
		"https://x/noext":               DefaultExt,
		"https://x/a.tar.gz":            ".gz",
		"https://x/weird.ext-with-dash": DefaultExt,
		"https://x/dir.v2/file":         DefaultExt,
	}
	for in, want := range tests {
		if got := Ext(in); got != want {
			t.Errorf("Ext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocalName(t *testing.T) {
	if got := LocalName("Home Sections", "Hero Image", "https://x/a.webp"); got != "images/home-sections/hero-image.webp" {
		t.Errorf("LocalName = %q", got)
	}
	if got := LocalName("site", "", "https://x/a.webp"); filepath.Ext(got) != ".webp" || len(filepath.Base(got)) != 12+len(".webp") {
		t.Errorf("LocalName with empty hint = %q", got)
	}
}
