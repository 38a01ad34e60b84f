package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vonshlovens/notion-sync/internal/markdown"
)

// BrokenRef is a local image link whose file is missing
type BrokenRef struct {
	File string
	Ref  string
}

// Inventory summarizes the content tree on disk
type Inventory struct {
	// Markdown counts .md files per top-level directory
	Markdown map[string]int
	// Files lists every .md file, slash-separated and sorted
	Files []string
	// Documents lists the JSON files under config/
	Documents []string
	Broken    []BrokenRef
}

// Inspect walks the content tree, counting files and checking that every
// local image referenced from Markdown exists under publicDir. Remote
// links are not checked.
func (s *Store) Inspect(publicDir string) (*Inventory, error) {
	inv := &Inventory{Markdown: make(map[string]int)}

	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch path.Ext(rel) {
		case ".json":
			if strings.HasPrefix(rel, ConfigDir+"/") {
				inv.Documents = append(inv.Documents, rel)
			}
		case MarkdownExt:
			dir, _, found := strings.Cut(rel, "/")
			if !found {
				dir = "."
			}
			inv.Markdown[dir]++
			inv.Files = append(inv.Files, rel)

			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", rel, err)
			}
			doc, err := markdown.Parse(data)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", rel, err)
			}
			refs := markdown.ImageRefs([]byte(doc.Body))
			for _, name := range []string{"thumbnail", "image", "avatar"} {
				if v := doc.Front.String(name); v != "" {
					refs = append(refs, v)
				}
			}
			for _, ref := range refs {
				if !strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "//") {
					continue
				}
				local := filepath.Join(publicDir, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
				if _, err := os.Stat(local); errors.Is(err, fs.ErrNotExist) {
					inv.Broken = append(inv.Broken, BrokenRef{File: rel, Ref: ref})
				}
			}
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return inv, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(inv.Documents)
	sort.Strings(inv.Files)
	return inv, nil
}

// Items returns the total number of Markdown files
func (inv *Inventory) Items() int {
	n := 0
	for _, c := range inv.Markdown {
		n += c
	}
	return n
}
