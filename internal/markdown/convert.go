// Package markdown turns Notion block trees into Markdown documents and
// reads and writes the frontmatter files of the content store.
package markdown

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vonshlovens/notion-sync/internal/notion"
)

// ImageResolver turns a remote image into the reference to embed. It must
// not fail: on error it returns the remote URL.
type ImageResolver interface {
	Materialize(ctx context.Context, f notion.File, prefix, hint string) string
}

// RemoteImages embeds remote URLs as-is
type RemoteImages struct{}

func (RemoteImages) Materialize(_ context.Context, f notion.File, _, _ string) string {
	return f.URL()
}

// Converter renders block trees. Nested children are fetched through API.
type Converter struct {
	API    notion.API
	Images ImageResolver
}

// NewConverter creates a converter. A nil resolver embeds remote URLs.
func NewConverter(api notion.API, images ImageResolver) *Converter {
	if images == nil {
		images = RemoteImages{}
	}
	return &Converter{API: api, Images: images}
}

// PageMarkdown fetches every block of a page and renders it
func (c *Converter) PageMarkdown(ctx context.Context, pageID, prefix, slug string) (string, error) {
	blocks, err := notion.ChildrenAll(ctx, c.API, pageID)
	if err != nil {
		return "", err
	}
	return c.Render(ctx, blocks, prefix, slug)
}

// Render converts blocks to Markdown in document order. Images are routed
// through the resolver and named after slug; prefix selects their folder.
func (c *Converter) Render(ctx context.Context, blocks []notion.Block, prefix, slug string) (string, error) {
	r := &renderer{c: c, ctx: ctx, prefix: prefix, slug: slug}
	out, err := r.blocks(blocks, 0)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

type renderer struct {
	c      *Converter
	ctx    context.Context
	prefix string
	slug   string
	images int
}

// children returns a block's subtree, fetching it when it was not loaded
func (r *renderer) children(b notion.Block) ([]notion.Block, error) {
	if len(b.Children) > 0 || !b.HasChildren || r.c.API == nil {
		return b.Children, nil
	}
	if b.Type == notion.BlockChildPage || b.Type == notion.BlockChildDatabase {
		return nil, nil
	}
	return notion.ChildrenAll(r.ctx, r.c.API, b.ID)
}

func (r *renderer) blocks(blocks []notion.Block, depth int) (string, error) {
	var sb strings.Builder
	number := 0
	var prev notion.BlockType

	for _, b := range blocks {
		if b.Type == notion.BlockNumberedListItem {
			number++
		} else {
			number = 0
		}

		text, err := r.block(b, depth, number)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		if sb.Len() > 0 {
			if isListItem(prev) && isListItem(b.Type) {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString(text)
		prev = b.Type
	}
	return sb.String(), nil
}

func isListItem(t notion.BlockType) bool {
	return t == notion.BlockBulletedListItem || t == notion.BlockNumberedListItem || t == notion.BlockToDo
}

func (r *renderer) block(b notion.Block, depth, number int) (string, error) {
	if !hasPayload(b) {
		slog.Debug("skipping block without payload", "type", b.Type, "id", b.ID)
		return "", nil
	}
	indent := strings.Repeat("  ", depth)

	switch b.Type {
	case notion.BlockParagraph:
		return r.withChildren(indent+RichText(b.RichText()), b, depth+1)
	case notion.BlockHeading1:
		return r.withChildren("# "+RichText(b.RichText()), b, 0)
	case notion.BlockHeading2:
		return r.withChildren("## "+RichText(b.RichText()), b, 0)
	case notion.BlockHeading3:
		return r.withChildren("### "+RichText(b.RichText()), b, 0)

	case notion.BlockBulletedListItem, notion.BlockNumberedListItem, notion.BlockToDo:
		marker := "- "
		switch {
		case b.Type == notion.BlockNumberedListItem:
			marker = strconv.Itoa(number) + ". "
		case b.ToDo != nil && b.ToDo.Checked:
			marker = "- [x] "
		case b.ToDo != nil:
			marker = "- [ ] "
		}
		line := indent + marker + RichText(b.RichText())
		nested, err := r.nested(b, depth+1)
		if err != nil || nested == "" {
			return line, err
		}
		return line + "\n" + nested, nil

	case notion.BlockToggle:
		nested, err := r.nested(b, 0)
		if err != nil {
			return "", err
		}
		return "<details>\n<summary>" + RichText(b.RichText()) + "</summary>\n\n" + nested + "\n\n</details>", nil

	case notion.BlockQuote:
		text, err := r.withChildren(RichText(b.RichText()), b, 0)
		return quote(text), err

	case notion.BlockCallout:
		text := RichText(b.RichText())
		if b.Callout.Icon != nil && b.Callout.Icon.Emoji != "" {
			text = b.Callout.Icon.Emoji + " " + text
		}
		text, err := r.withChildren(text, b, 0)
		return quote(text), err

	case notion.BlockCode:
		lang := b.Code.Language
		if lang == "plain text" {
			lang = ""
		}
		return "```" + lang + "\n" + notion.PlainText(b.Code.RichText) + "\n```", nil

	case notion.BlockImage:
		r.images++
		hint := r.slug + "-" + strconv.Itoa(r.images)
		src := r.c.Images.Materialize(r.ctx, b.Image.Source(), r.prefix, hint)
		if src == "" {
			return "", nil
		}
		return "![" + notion.PlainText(b.Image.Caption) + "](" + src + ")", nil

	case notion.BlockVideo:
		return link(notion.PlainText(b.Video.Caption), b.Video.Source().URL()), nil
	case notion.BlockEmbed:
		return link(notion.PlainText(b.Embed.Caption), b.Embed.URL), nil
	case notion.BlockBookmark:
		return link(notion.PlainText(b.Bookmark.Caption), b.Bookmark.URL), nil

	case notion.BlockDivider:
		return "---", nil

	case notion.BlockTable:
		rows, err := r.children(b)
		if err != nil {
			return "", err
		}
		return table(b.Table, rows), nil

	case notion.BlockChildPage, notion.BlockChildDatabase:
		return "", nil
	}

	slog.Debug("skipping unsupported block", "type", b.Type, "id", b.ID)
	return "", nil
}

// hasPayload guards the payload dereferences in block
func hasPayload(b notion.Block) bool {
	switch b.Type {
	case notion.BlockCallout:
		return b.Callout != nil
	case notion.BlockCode:
		return b.Code != nil
	case notion.BlockImage:
		return b.Image != nil
	case notion.BlockVideo:
		return b.Video != nil
	case notion.BlockEmbed:
		return b.Embed != nil
	case notion.BlockBookmark:
		return b.Bookmark != nil
	}
	return true
}

func (r *renderer) nested(b notion.Block, depth int) (string, error) {
	kids, err := r.children(b)
	if err != nil {
		return "", fmt.Errorf("failed to render children of %s: %w", b.ID, err)
	}
	if len(kids) == 0 {
		return "", nil
	}
	return r.blocks(kids, depth)
}

// withChildren appends the rendered children of b below head as separate
// paragraphs
func (r *renderer) withChildren(head string, b notion.Block, depth int) (string, error) {
	nested, err := r.nested(b, depth)
	if err != nil || nested == "" {
		return head, err
	}
	if strings.TrimSpace(head) == "" {
		return nested, nil
	}
	return head + "\n\n" + nested, nil
}

func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
			continue
		}
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

func link(text, url string) string {
	if url == "" {
		return ""
	}
	if text == "" {
		text = url
	}
	return "[" + text + "](" + url + ")"
}

func table(t *notion.TableBlock, rows []notion.Block) string {
	var lines []string
	width := 0
	if t != nil {
		width = t.TableWidth
	}

	cells := func(row notion.Block) []string {
		var out []string
		if row.TableRow != nil {
			for _, c := range row.TableRow.Cells {
				out = append(out, strings.ReplaceAll(RichText(c), "|", `\|`))
			}
		}
		for len(out) < width {
			out = append(out, "")
		}
		return out
	}

	header := make([]string, width)
	start := 0
	if t != nil && t.HasColumnHeader && len(rows) > 0 {
		header = cells(rows[0])
		start = 1
	}
	if len(header) == 0 {
		return ""
	}
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(header, " | ")+" |", "| "+strings.Join(sep, " | ")+" |")
	for _, row := range rows[start:] {
		lines = append(lines, "| "+strings.Join(cells(row), " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

// RichText renders formatted runs as inline Markdown. Surrounding
// whitespace stays outside the emphasis markers.
func RichText(runs []notion.RichText) string {
	var sb strings.Builder
	for _, run := range runs {
		text := notion.PlainText([]notion.RichText{run})
		if text == "" {
			continue
		}
		core := strings.TrimSpace(text)
		if core == "" {
			sb.WriteString(text)
			continue
		}
		lead := text[:strings.Index(text, core)]
		trail := text[len(lead)+len(core):]

		a := run.Annotations
		if a.Code {
			core = "`" + core + "`"
		}
		if a.Bold {
			core = "**" + core + "**"
		}
		if a.Italic {
			core = "_" + core + "_"
		}
		if a.Strikethrough {
			core = "~~" + core + "~~"
		}
		if href := runHref(run); href != "" {
			core = "[" + core + "](" + href + ")"
		}
		sb.WriteString(lead + core + trail)
	}
	return sb.String()
}

func runHref(run notion.RichText) string {
	if run.Href != nil {
		return *run.Href
	}
	if run.Text != nil && run.Text.Link != nil {
		return run.Text.Link.URL
	}
	return ""
}
