package notion

import (
	"context"
	"fmt"
)

// Paginate follows continuation cursors until the remote reports no more
// results. Results are returned in the order the remote provides them. The
// first failed page aborts the whole fetch: a truncated collection would
// silently drop content.
func Paginate[T any](ctx context.Context, fetch func(ctx context.Context, cursor string) (items []T, next string, err error)) ([]T, error) {
	var all []T
	cursor := ""
	for {
		items, next, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		if next == cursor {
			return nil, fmt.Errorf("pagination cursor did not advance: %q", next)
		}
		cursor = next
	}
}

// QueryAll returns every row of a database
func QueryAll(ctx context.Context, api API, databaseID string, req QueryRequest) ([]Page, error) {
	return Paginate(ctx, func(ctx context.Context, cursor string) ([]Page, string, error) {
		r := req
		r.StartCursor = cursor
		list, err := api.QueryDatabase(ctx, databaseID, &r)
		if err != nil {
			return nil, "", fmt.Errorf("failed to query database %s: %w", databaseID, err)
		}
		return list.Results, nextCursor(list.NextCursor), nil
	})
}

// ChildrenAll returns every direct child block of a page or block
func ChildrenAll(ctx context.Context, api API, blockID string) ([]Block, error) {
	return Paginate(ctx, func(ctx context.Context, cursor string) ([]Block, string, error) {
		list, err := api.ListBlockChildren(ctx, blockID, cursor)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list children of %s: %w", blockID, err)
		}
		return list.Results, nextCursor(list.NextCursor), nil
	})
}

// nextCursor maps an absent cursor to "", which ends pagination
func nextCursor(cursor *string) string {
	if cursor == nil {
		return ""
	}
	return *cursor
}
