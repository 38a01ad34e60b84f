package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vonshlovens/notion-sync/internal/schema"
)

// frontmatterRegex matches YAML frontmatter between --- delimiters
var frontmatterRegex = regexp.MustCompile(`(?s)^---\n(.*?\n)?---(?:\n|$)`)

// Document is a Markdown file with a frontmatter header
type Document struct {
	Front schema.Record
	Body  string
}

// Encode renders the document. Frontmatter keys keep record order; strings
// are double-quoted and lists use flow style, so every value reads as JSON.
func (d Document) Encode() ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range d.Front.Fields {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name},
			valueNode(f.Value),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	if len(node.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
		}
	}
	buf.WriteString("---\n")

	body := strings.TrimSpace(d.Body)
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func valueNode(v schema.Value) *yaml.Node {
	switch v := v.(type) {
	case schema.String:
		return quoted(string(v))
	case schema.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: schema.AsString(v)}
	case schema.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatBool(bool(v))}
	case schema.Strings:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, s := range v {
			seq.Content = append(seq.Content, quoted(s))
		}
		return seq
	case schema.Files:
		return quoted(schema.AsString(v))
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: s}
}

// Parse splits content into frontmatter and body. Content without a header
// is all body.
func Parse(content []byte) (Document, error) {
	match := frontmatterRegex.FindSubmatch(content)
	if match == nil {
		return Document{Body: string(content)}, nil
	}

	body := strings.TrimPrefix(string(content[len(match[0]):]), "\n")
	doc := Document{Body: body}

	var root yaml.Node
	if err := yaml.Unmarshal(match[1], &root); err != nil {
		return doc, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if len(root.Content) == 0 {
		return doc, nil
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return doc, fmt.Errorf("frontmatter is not a mapping")
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		doc.Front.Set(m.Content[i].Value, nodeValue(m.Content[i+1]))
	}
	return doc, nil
}

func nodeValue(n *yaml.Node) schema.Value {
	switch n.Kind {
	case yaml.SequenceNode:
		out := schema.Strings{}
		for _, item := range n.Content {
			out = append(out, item.Value)
		}
		return out
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil
		case "!!bool":
			b, _ := strconv.ParseBool(n.Value)
			return schema.Bool(b)
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				return schema.String(n.Value)
			}
			return schema.Number(f)
		}
		return schema.String(n.Value)
	}
	return nil
}
