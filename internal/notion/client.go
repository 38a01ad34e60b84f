// Package notion is a small client for the parts of the Notion API the sync
// needs: database queries, block children, and the create calls used by seeding.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jomei/notionapi"
)

const (
	DefaultBaseURL  = "https://api.notion.com/v1"
	DefaultVersion  = "2022-06-28"
	DefaultPageSize = 100
)

// ErrNotFound is matched by API errors with status 404
var ErrNotFound = errors.New("notion: object not found")

// API is the read side of the remote source
type API interface {
	QueryDatabase(ctx context.Context, databaseID string, req *QueryRequest) (*PageList, error)
	ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error)
	RetrievePage(ctx context.Context, pageID string) (*Page, error)
}

// Writer is the write side, used only by the seeder
type Writer interface {
	CreateDatabase(ctx context.Context, req *CreateDatabaseRequest) (*Database, error)
	CreatePage(ctx context.Context, req *CreatePageRequest) (*Page, error)
	AppendBlockChildren(ctx context.Context, blockID string, children []Block) error
}

// APIError is a non-2xx response from the API
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: %d %s: %s", e.Status, e.Code, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// ClientOptions configures a Client
type ClientOptions struct {
	BaseURL       string
	Token         string
	Version       string
	PageSize      int
	HTTPClient    *http.Client
	RetryAttempts int
	RetryDelay    time.Duration
}

// Client adapts notionapi to the API and Writer interfaces. Retries and the
// base URL live in the HTTP transport underneath it.
type Client struct {
	api      *notionapi.Client
	pageSize int
}

// NewClient creates a client; zero options fall back to the public API defaults
func NewClient(opts ClientOptions) *Client {
	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	timeout := 30 * time.Second
	var base http.RoundTripper
	if opts.HTTPClient != nil {
		timeout = opts.HTTPClient.Timeout
		base = opts.HTTPClient.Transport
	}

	httpClient := &http.Client{
		Transport: newTransport(base, opts.BaseURL, opts.RetryAttempts, delay, timeout),
	}

	// The transport has already spent the retry budget by the time a 429
	// reaches notionapi, so its own loop gets a single attempt.
	api := notionapi.NewClient(notionapi.Token(opts.Token),
		notionapi.WithHTTPClient(httpClient),
		notionapi.WithVersion(version),
		notionapi.WithRetry(1),
	)
	return &Client{api: api, pageSize: pageSize}
}

// QueryDatabase returns one page of rows
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req *QueryRequest) (*PageList, error) {
	body := &notionapi.DatabaseQueryRequest{PageSize: c.pageSize}
	if req != nil {
		body.StartCursor = notionapi.Cursor(req.StartCursor)
		if req.PageSize > 0 {
			body.PageSize = req.PageSize
		}
		for _, s := range req.Sorts {
			body.Sorts = append(body.Sorts, notionapi.SortObject{
				Property:  s.Property,
				Timestamp: notionapi.TimestampType(s.Timestamp),
				Direction: notionapi.SortOrder(s.Direction),
			})
		}
	}

	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), body)
	if err != nil {
		return nil, apiError(err)
	}

	out := &PageList{HasMore: resp.HasMore, NextCursor: cursorPtr(string(resp.NextCursor))}
	if err := recode(resp.Results, &out.Results); err != nil {
		return nil, fmt.Errorf("failed to convert rows of %s: %w", databaseID, err)
	}
	return out, nil
}

// ListBlockChildren returns one page of a block's children
func (c *Client) ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error) {
	resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(blockID), &notionapi.Pagination{
		StartCursor: notionapi.Cursor(cursor),
		PageSize:    c.pageSize,
	})
	if err != nil {
		return nil, apiError(err)
	}

	out := &BlockList{HasMore: resp.HasMore, NextCursor: cursorPtr(resp.NextCursor)}
	if err := recode(resp.Results, &out.Results); err != nil {
		return nil, fmt.Errorf("failed to convert children of %s: %w", blockID, err)
	}
	return out, nil
}

// RetrievePage fetches a single page with its properties
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	resp, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return nil, apiError(err)
	}
	return fromPage(resp)
}

// CreateDatabase creates a database under a page
func (c *Client) CreateDatabase(ctx context.Context, req *CreateDatabaseRequest) (*Database, error) {
	var body notionapi.DatabaseCreateRequest
	if err := recode(req, &body); err != nil {
		return nil, fmt.Errorf("failed to encode database request: %w", err)
	}

	resp, err := c.api.Database.Create(ctx, &body)
	if err != nil {
		return nil, apiError(err)
	}

	out := &Database{Object: string(resp.Object), ID: string(resp.ID)}
	if err := recode(resp.Parent, &out.Parent); err != nil {
		return nil, fmt.Errorf("failed to convert database %s: %w", resp.ID, err)
	}
	if err := recode(resp.Title, &out.Title); err != nil {
		return nil, fmt.Errorf("failed to convert database %s: %w", resp.ID, err)
	}
	return out, nil
}

// CreatePage creates a page under a page or a row in a database
func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*Page, error) {
	body := &notionapi.PageCreateRequest{}
	if err := recode(req.Parent, &body.Parent); err != nil {
		return nil, fmt.Errorf("failed to encode page parent: %w", err)
	}
	if err := recode(req.Properties.withoutEmpty(), &body.Properties); err != nil {
		return nil, fmt.Errorf("failed to encode page properties: %w", err)
	}
	children, err := toBlocks(req.Children)
	if err != nil {
		return nil, err
	}
	body.Children = children

	resp, err := c.api.Page.Create(ctx, body)
	if err != nil {
		return nil, apiError(err)
	}
	return fromPage(resp)
}

// AppendBlockChildren appends blocks to the end of a page or block
func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []Block) error {
	blocks, err := toBlocks(children)
	if err != nil {
		return err
	}
	_, err = c.api.Block.AppendChildren(ctx, notionapi.BlockID(blockID), &notionapi.AppendBlockChildrenRequest{
		Children: blocks,
	})
	return apiError(err)
}

// apiError maps notionapi failures onto APIError so callers can match
// statuses without importing notionapi.
func apiError(err error) error {
	var nerr *notionapi.Error
	if errors.As(err, &nerr) {
		return &APIError{Status: nerr.Status, Code: string(nerr.Code), Message: nerr.Message}
	}
	var rerr *notionapi.RateLimitedError
	if errors.As(err, &rerr) {
		return &APIError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: rerr.Message}
	}
	return err
}

func cursorPtr(cursor string) *string {
	if cursor == "" {
		return nil
	}
	return &cursor
}
