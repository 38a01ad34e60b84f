// Package assets downloads remote files into the public directory so the
// site does not depend on time-limited signed URLs.
package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/vonshlovens/notion-sync/internal/markdown"
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/store"
)

// DefaultExt is used when the remote URL carries no usable extension
const DefaultExt = ".jpg"

// ImagesDir is the folder under the public directory holding assets
const ImagesDir = "images"

const maxAssetBytes = 50 << 20

// Materializer downloads remote files to deterministic local paths
type Materializer struct {
	HTTP      *http.Client
	PublicDir string
	State     *store.StateTracker
}

// New creates a materializer writing under publicDir
func New(publicDir string, client *http.Client, state *store.StateTracker) *Materializer {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Materializer{HTTP: client, PublicDir: publicDir, State: state}
}

// Materialize downloads f to <public>/images/<prefix>/<slug(hint)><ext> and
// returns its web path. On any failure it logs a warning and returns the
// original URL. Files are re-downloaded on every call.
func (m *Materializer) Materialize(ctx context.Context, f notion.File, prefix, hint string) string {
	src := f.URL()
	if src == "" {
		return ""
	}

	rel := LocalName(prefix, hint, src)
	if err := m.download(ctx, src, filepath.Join(m.PublicDir, filepath.FromSlash(rel))); err != nil {
		slog.Warn("asset download failed, keeping remote URL", "url", redact(src), "error", err)
		return src
	}
	return "/" + rel
}

// LocalName derives the public-relative path of an asset:
// images/<prefix>/<slug><ext>.
func LocalName(prefix, hint, src string) string {
	name := markdown.Slugify(hint)
	if name == "" {
		name = store.ShortHash([]byte(src))
	}
	return path.Join(ImagesDir, markdown.Slugify(prefix), name+Ext(src))
}

// Ext returns the lowercased extension of a URL path, or DefaultExt
func Ext(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return DefaultExt
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) < 2 || len(ext) > 6 {
		return DefaultExt
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return DefaultExt
		}
	}
	return ext
}

func (m *Materializer) download(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) > maxAssetBytes {
		return fmt.Errorf("asset exceeds %d bytes", maxAssetBytes)
	}

	if err := store.WriteAtomic(dest, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if m.State != nil {
		rel, err := filepath.Rel(m.PublicDir, dest)
		if err != nil {
			rel = dest
		}
		m.State.RecordAsset("/"+filepath.ToSlash(rel), &store.AssetState{
			Source:    redact(src),
			Hash:      store.HashContent(data),
			SizeBytes: int64(len(data)),
		})
	}
	return nil
}

// redact drops the query string, which carries the signature of hosted files
func redact(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	u.RawQuery = ""
	return u.String()
}
