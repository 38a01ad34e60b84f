package notion

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

// pagedAPI serves rows in fixed-size pages with chained cursors
type pagedAPI struct {
	sizes    []int
	failPage int
	err      error
	requests []string
}

func (p *pagedAPI) QueryDatabase(_ context.Context, _ string, req *QueryRequest) (*PageList, error) {
	p.requests = append(p.requests, req.StartCursor)

	page := 0
	if req.StartCursor != "" {
		n, err := strconv.Atoi(req.StartCursor[len("cursor-"):])
		if err != nil {
			return nil, err
		}
		page = n
	}
	if p.err != nil && page == p.failPage {
		return nil, p.err
	}

	offset := 0
	for i := 0; i < page; i++ {
		offset += p.sizes[i]
	}
	list := &PageList{}
	for i := 0; i < p.sizes[page]; i++ {
		list.Results = append(list.Results, Page{ID: "row-" + strconv.Itoa(offset+i)})
	}
	if page+1 < len(p.sizes) {
		c := "cursor-" + strconv.Itoa(page+1)
		list.NextCursor = &c
		list.HasMore = true
	}
	return list, nil
}

func (p *pagedAPI) ListBlockChildren(context.Context, string, string) (*BlockList, error) {
	return &BlockList{}, nil
}

func (p *pagedAPI) RetrievePage(context.Context, string) (*Page, error) {
	return nil, ErrNotFound
}

func TestQueryAll_ConcatenatesPagesInOrder(t *testing.T) {
	api := &pagedAPI{sizes: []int{10, 10, 4}}

	rows, err := QueryAll(context.Background(), api, "db", QueryRequest{})
	if err != nil {
		t.Fatalf("QueryAll failed: %v", err)
	}

	if len(rows) != 24 {
		t.Fatalf("expected 24 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if want := "row-" + strconv.Itoa(i); row.ID != want {
			t.Errorf("rows[%d] = %q, want %q", i, row.ID, want)
		}
	}

	wantCursors := []string{"", "cursor-1", "cursor-2"}
	if len(api.requests) != len(wantCursors) {
		t.Fatalf("expected %d requests, got %d", len(wantCursors), len(api.requests))
	}
	for i, c := range wantCursors {
		if api.requests[i] != c {
			t.Errorf("request %d cursor = %q, want %q", i, api.requests[i], c)
		}
	}
}

func TestQueryAll_PropagatesPageError(t *testing.T) {
	boom := errors.New("boom")
	api := &pagedAPI{sizes: []int{10, 10, 4}, failPage: 1, err: boom}

	rows, err := QueryAll(context.Background(), api, "db", QueryRequest{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
	if rows != nil {
		t.Errorf("expected no partial results, got %d rows", len(rows))
	}
}

func TestPaginate_StuckCursor(t *testing.T) {
	_, err := Paginate(context.Background(), func(_ context.Context, cursor string) ([]int, string, error) {
		return []int{1}, "same", nil
	})
	if err == nil {
		t.Fatal("expected an error for a cursor that never advances")
	}
}

func TestPaginate_SinglePage(t *testing.T) {
	calls := 0
	got, err := Paginate(context.Background(), func(_ context.Context, cursor string) ([]string, string, error) {
		calls++
		return []string{"a", "b"}, "", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || len(got) != 2 {
		t.Errorf("calls = %d, results = %v", calls, got)
	}
}
