// Package store writes the local content tree. Every write replaces the
// whole file, so rerunning a sync over unchanged remote data reproduces the
// same bytes.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vonshlovens/notion-sync/internal/markdown"
	"github.com/vonshlovens/notion-sync/internal/schema"
)

// Content layout relative to the content root
const (
	ConfigDir              = "config"
	PagesDir               = "pages"
	SiteFile               = "config/site.json"
	CollectionsFile        = "config/collections.json"
	InjectionFile          = "config/injection.json"
	AdvancedFile           = "config/advanced.json"
	SectionsFile           = "config/sections.json"
	CollectionSectionsFile = "config/collection-sections.json"
	AuthorsFile            = "config/authors.json"
	MarkdownExt            = ".md"
)

// Store is a content root on disk
type Store struct {
	Root  string
	State *StateTracker
}

// New creates a store rooted at dir
func New(root string, state *StateTracker) *Store {
	return &Store{Root: root, State: state}
}

// Path returns the absolute path of a content-relative path
func (s *Store) Path(rel string) string {
	return filepath.Join(s.Root, filepath.FromSlash(rel))
}

// WriteFile replaces a file atomically. It reports whether the bytes on disk
// changed; an identical file is left untouched.
func (s *Store) WriteFile(rel string, data []byte) (bool, error) {
	path := s.Path(rel)
	hash := HashContent(data)

	if matchesHash(path, hash) {
		s.track(rel, hash, len(data))
		return false, nil
	}

	if err := WriteAtomic(path, data); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	s.track(rel, hash, len(data))
	return true, nil
}

// WriteJSON encodes v with two-space indentation and a trailing newline
func (s *Store) WriteJSON(rel string, v any) (bool, error) {
	data, err := EncodeJSON(v)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", rel, err)
	}
	return s.WriteFile(rel, data)
}

// WriteMarkdown writes a frontmatter document
func (s *Store) WriteMarkdown(rel string, doc markdown.Document) (bool, error) {
	data, err := doc.Encode()
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", rel, err)
	}
	return s.WriteFile(rel, data)
}

// Remove deletes a content file if it exists
func (s *Store) Remove(rel string) error {
	if err := os.Remove(s.Path(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	if s.State != nil {
		s.State.RemoveFileState(rel)
	}
	return nil
}

// List returns the content-relative paths of files with the given extension
// directly inside dir, sorted.
func (s *Store) List(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(s.Path(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		out = append(out, filepath.ToSlash(filepath.Join(dir, e.Name())))
	}
	sort.Strings(out)
	return out, nil
}

// Prune removes files with the given extension in dir that are not in keep.
// It returns the removed paths.
func (s *Store) Prune(dir, ext string, keep map[string]bool) ([]string, error) {
	files, err := s.List(dir, ext)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, rel := range files {
		if keep[rel] {
			continue
		}
		if err := s.Remove(rel); err != nil {
			return removed, err
		}
		removed = append(removed, rel)
	}
	return removed, nil
}

func (s *Store) track(rel, hash string, size int) {
	if s.State == nil {
		return
	}
	s.State.SetFileState(rel, &FileState{Hash: hash, SizeBytes: int64(size)})
}

// EncodeJSON renders the store's JSON format: two-space indentation, no HTML
// escaping, trailing newline.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteAtomic writes data to a temp file next to path and renames it over
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// ConfigDocument returns a copy of rec with booleans written as "true" or
// "false". The config files keep text flags for older renderers; in memory
// they stay typed.
func ConfigDocument(rec schema.Record) schema.Record {
	out := schema.Record{Fields: make([]schema.Field, len(rec.Fields))}
	for i, f := range rec.Fields {
		if b, ok := f.Value.(schema.Bool); ok {
			f.Value = schema.String(schema.AsString(b))
		}
		out.Fields[i] = f
	}
	return out
}

