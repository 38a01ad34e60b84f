package notion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestClient(t *testing.T, r http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{
		BaseURL:       srv.URL,
		Token:         "secret_test",
		PageSize:      2,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})
}

func TestClient_QueryDatabase(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/databases/{id}/query", func(w http.ResponseWriter, req *http.Request) {
		if got := req.Header.Get("Authorization"); got != "Bearer secret_test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := req.Header.Get("Notion-Version"); got != DefaultVersion {
			t.Errorf("Notion-Version = %q", got)
		}
		if chi.URLParam(req, "id") != "db1" {
			t.Errorf("database id = %q", chi.URLParam(req, "id"))
		}

		var body QueryRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
			return
		}
		if body.PageSize != 2 {
			t.Errorf("page_size = %d, want 2", body.PageSize)
		}

		w.Header().Set("Content-Type", "application/json")
		if body.StartCursor == "" {
			w.Write([]byte(`{"results":[{"object":"page","id":"a","properties":{}},{"object":"page","id":"b","properties":{}}],"next_cursor":"c2","has_more":true}`))
			return
		}
		w.Write([]byte(`{"results":[{"object":"page","id":"c","properties":{}}],"next_cursor":null,"has_more":false}`))
	})

	c := newTestClient(t, r)
	rows, err := QueryAll(context.Background(), c, "db1", QueryRequest{})
	if err != nil {
		t.Fatalf("QueryAll failed: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != "a" || rows[2].ID != "c" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestClient_ListBlockChildren(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/blocks/{id}/children", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("page_size") != "2" {
			t.Errorf("page_size = %q", req.URL.Query().Get("page_size"))
		}
		w.Write([]byte(`{"results":[{"object":"block","id":"b1","type":"child_database","child_database":{"title":"Projects"}}],"next_cursor":null}`))
	})

	c := newTestClient(t, r)
	list, err := c.ListBlockChildren(context.Background(), "root", "")
	if err != nil {
		t.Fatalf("ListBlockChildren failed: %v", err)
	}
	if len(list.Results) != 1 || list.Results[0].Title() != "Projects" {
		t.Errorf("unexpected children: %+v", list.Results)
	}
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/pages/{id}", func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`))
			return
		}
		w.Write([]byte(`{"object":"page","id":"p1","properties":{"title":{"type":"title","title":[{"plain_text":"Home"}]}}}`))
	})

	c := newTestClient(t, r)
	page, err := c.RetrievePage(context.Background(), "p1")
	if err != nil {
		t.Fatalf("RetrievePage failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if page.ID != "p1" {
		t.Errorf("page id = %q", page.ID)
	}
}

func TestClient_NotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/pages/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"object":"error","status":404,"code":"object_not_found","message":"Could not find page"}`))
	})

	c := newTestClient(t, r)
	_, err := c.RetrievePage(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "object_not_found" {
		t.Errorf("expected APIError with code object_not_found, got %v", err)
	}
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/pages/{id}", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	c := newTestClient(t, r)
	_, err := c.RetrievePage(context.Background(), "p1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_CreatePageNotRetriedOnServerError(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Post("/pages", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	c := newTestClient(t, r)
	_, err := c.CreatePage(context.Background(), &CreatePageRequest{
		Parent:     PageParent("root"),
		Properties: Properties{"title": Title("Post")},
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("create was sent %d times, want 1", calls.Load())
	}
}

func TestClient_CreatePageRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Post("/pages", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Parent     Parent                                `json:"parent"`
			Properties map[string]map[string]json.RawMessage `json:"properties"`
			Children   []Block                               `json:"children"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("attempt %d: bad body: %v", calls.Load()+1, err)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`))
			return
		}

		if body.Parent.DatabaseID != "db1" {
			t.Errorf("parent = %+v", body.Parent)
		}
		if _, ok := body.Properties["Name"]["title"]; !ok {
			t.Errorf("Name not sent as a title: %v", body.Properties)
		}
		if _, ok := body.Properties["Link"]; ok {
			t.Errorf("empty url should be left out, got %s", body.Properties["Link"]["url"])
		}
		if len(body.Children) != 1 || body.Children[0].Type != BlockParagraph || body.Children[0].Object != "block" {
			t.Errorf("unexpected children: %+v", body.Children)
		}
		w.Write([]byte(`{"object":"page","id":"p9","parent":{"type":"database_id","database_id":"db1"},"properties":{"Name":{"id":"title","type":"title","title":[{"type":"text","text":{"content":"Post"},"plain_text":"Post"}]}}}`))
	})

	c := newTestClient(t, r)
	page, err := c.CreatePage(context.Background(), &CreatePageRequest{
		Parent:     DatabaseParent("db1"),
		Properties: Properties{"Name": Title("Post"), "Link": URL("")},
		Children:   []Block{Paragraph("body")},
	})
	if err != nil {
		t.Fatalf("CreatePage failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if page.ID != "p9" || page.Parent.DatabaseID != "db1" {
		t.Errorf("unexpected page: %+v", page)
	}
	if title, ok := page.Properties["Name"].(TitleProperty); !ok || PlainText(title.Title) != "Post" {
		t.Errorf("Name = %#v", page.Properties["Name"])
	}
}

func TestClient_AppendBlockChildren(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/blocks/{id}/children", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != "page1" {
			t.Errorf("block id = %q", chi.URLParam(req, "id"))
		}
		var body struct {
			Children []Block `json:"children"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if len(body.Children) != 2 || body.Children[0].Type != BlockHeading2 || body.Children[1].Type != BlockCode {
			t.Errorf("unexpected children: %+v", body.Children)
		}
		if body.Children[1].Code == nil || body.Children[1].Code.Language != "go" {
			t.Errorf("code payload lost: %+v", body.Children[1].Code)
		}
		w.Write([]byte(`{"object":"list","results":[]}`))
	})

	c := newTestClient(t, r)
	err := c.AppendBlockChildren(context.Background(), "page1", []Block{Heading(2, "Usage"), Code("go", "fmt.Println()")})
	if err != nil {
		t.Fatalf("AppendBlockChildren failed: %v", err)
	}
}

func TestClient_RetrievePageEmptyValues(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/pages/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"object":"page","id":"p1","properties":{
			"Kind":{"id":"a","type":"select","select":null},
			"Link":{"id":"b","type":"url","url":null},
			"Tags":{"id":"c","type":"multi_select","multi_select":[{"name":"go"}]}
		}}`))
	})

	c := newTestClient(t, r)
	page, err := c.RetrievePage(context.Background(), "p1")
	if err != nil {
		t.Fatalf("RetrievePage failed: %v", err)
	}
	if kind, ok := page.Properties["Kind"].(SelectProperty); !ok || kind.Select != nil {
		t.Errorf("Kind = %#v, want unset select", page.Properties["Kind"])
	}
	if link, ok := page.Properties["Link"].(URLProperty); !ok || link.URL != nil {
		t.Errorf("Link = %#v, want unset url", page.Properties["Link"])
	}
	if tags, ok := page.Properties["Tags"].(MultiSelectProperty); !ok || len(tags.MultiSelect) != 1 || tags.MultiSelect[0].Name != "go" {
		t.Errorf("Tags = %#v", page.Properties["Tags"])
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"598337872cf94fdf8782e53db20768a5", "59833787-2cf9-4fdf-8782-e53db20768a5", false},
		{"59833787-2cf9-4fdf-8782-e53db20768a5", "59833787-2cf9-4fdf-8782-e53db20768a5", false},
		{"https://www.notion.so/My-Site-598337872cf94fdf8782e53db20768a5", "59833787-2cf9-4fdf-8782-e53db20768a5", false},
		{"https://www.notion.so/My-Site-598337872cf94fdf8782e53db20768a5?pvs=4", "59833787-2cf9-4fdf-8782-e53db20768a5", false},
		{"not-an-id", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if got := CompactID("59833787-2CF9-4fdf-8782-e53db20768a5"); got != "598337872cf94fdf8782e53db20768a5" {
		t.Errorf("CompactID = %q", got)
	}
}
