package seed

import (
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/schema"
	"github.com/vonshlovens/notion-sync/internal/sync"
)

// Container is a root-level container. With Kind set it is a database of
// that kind; otherwise a page holding Tables then Pages.
type Container struct {
	Title  string
	Kind   schema.Kind
	Rows   []Row
	Tables []Table
	Pages  []Page
}

// Table is a database created inside a page
type Table struct {
	Title string
	Kind  schema.Kind
	Rows  []Row
}

// Page is a plain child page
type Page struct {
	Title string
	Body  []notion.Block
}

// Row holds field values keyed by canonical name: string, int, float64,
// bool, []string, or file URLs for file fields.
type Row struct {
	Values map[string]any
	Body   []notion.Block
}

func row(values map[string]any, body ...notion.Block) Row {
	return Row{Values: values, Body: body}
}

// Workspace returns the sample containers in creation order
func Workspace() []Container {
	return []Container{
		{
			Title: sync.SiteContainer.Title,
			Kind:  schema.KindSite,
			Rows: []Row{row(map[string]any{
				"site_name":         "My Portfolio",
				"description":       "Notes, projects and experiments.",
				"footer_text":       "Built from a Notion workspace.",
				"email":             "hello@example.com",
				"show_theme_toggle": true,
				"show_search":       true,
				"enable_rss":        true,
				"accent_color":      "#2563eb",
				"github":            "https://github.com/example",
			})},
		},
		{
			Title: sync.CollectionsContainer.Title,
			Kind:  schema.KindCollectionSettings,
			Rows: []Row{
				row(map[string]any{
					"name":           "Projects",
					"slug":           "projects",
					"description":    "Things I have built.",
					"layout":         "grid",
					"items_per_page": 9,
					"sort_by":        "priority",
				}),
				row(map[string]any{
					"name":           "Blog",
					"slug":           "blog",
					"description":    "Writing about software.",
					"layout":         "list",
					"items_per_page": 10,
					"sort_by":        "title",
					"show_author":    true,
				}),
			},
		},
		{
			Title: sync.InjectionContainer.Title,
			Kind:  schema.KindInjection,
			Rows: []Row{
				row(map[string]any{
					"name":     "Analytics",
					"location": "head",
					"kind":     "html",
					"code":     `<script defer data-domain="example.com" src="https://plausible.io/js/script.js"></script>`,
				}),
				row(map[string]any{
					"name":     "Custom styles",
					"location": "head",
					"kind":     "css",
					"code":     "<style>:root { --radius: 12px; }</style>",
					"enabled":  false,
				}),
			},
		},
		{
			Title: sync.AdvancedContainer.Title,
			Kind:  schema.KindAdvanced,
			Rows: []Row{
				row(map[string]any{"key": "analytics_id", "value": "G-XXXXXXXXXX"}),
				row(map[string]any{"key": "default_og_image", "value": "/og.png"}),
			},
		},
		{
			Title: sync.HomeContainer.Title,
			Tables: []Table{
				{Title: "Hero", Kind: schema.KindInfo, Rows: []Row{row(map[string]any{
					"section_type":   "info",
					"title":          "Hi, I build things",
					"description":    "Developer writing about tools, systems and the web.",
					"button_text":    "See my work",
					"button_link":    "/projects",
					"image_position": "right",
					"aspect_ratio":   "16:9",
				})}},
				{Title: "Latest Projects", Kind: schema.KindDynamic, Rows: []Row{row(map[string]any{
					"section_type":    "dynamic",
					"title":           "Latest projects",
					"collection_name": "projects",
					"limit":           3,
					"layout":          "grid",
				})}},
				{Title: "Newsletter", Kind: schema.KindNewsletter, Rows: []Row{row(map[string]any{
					"section_type": "newsletter",
					"title":        "Stay in the loop",
					"description":  "One email a month, no spam.",
					"form_action":  "https://example.com/subscribe",
				})}},
				{Title: "Contact", Kind: schema.KindMailto, Rows: []Row{row(map[string]any{
					"section_type": "mailto",
					"title":        "Say hello",
					"email":        "hello@example.com",
				})}},
			},
		},
		{
			Title: sync.AuthorsContainer.Title,
			Kind:  schema.KindAuthor,
			Rows: []Row{row(map[string]any{
				"name":     "Ada Lovelace",
				"username": "ada",
				"bio":      "Writes about engines and notes.",
				"website":  "https://example.com",
			})},
		},
		{
			Title: "Projects",
			Kind:  schema.KindCollectionItem,
			Rows: []Row{
				row(map[string]any{
					"title":       "Notion Sync",
					"slug":        "notion-sync",
					"description": "Pulls structured content from Notion into a static site.",
					"thumbnail":   "https://picsum.photos/seed/notion-sync/800/450.jpg",
					"tags":        []string{"go", "cli"},
					"link":        "https://github.com/example/notion-sync",
					"priority":    1,
					"author":      "ada",
					"status":      "published",
				},
					notion.Heading(2, "Overview"),
					notion.Paragraph("A one-way sync from a Notion workspace to Markdown and JSON."),
					notion.BulletedItem("Typed schemas with legacy aliases"),
					notion.BulletedItem("Local copies of every image"),
				),
				row(map[string]any{
					"title":       "Static Site",
					"description": "The site this content renders into.",
					"tags":        []string{"web"},
					"priority":    2,
					"status":      "published",
				}, notion.Paragraph("Rendered from the synced content tree.")),
				row(map[string]any{
					"title":  "Secret Project",
					"status": "draft",
				}, notion.Paragraph("Not ready yet.")),
			},
		},
		{
			Title: "Blog",
			Tables: []Table{
				{Title: "Posts", Kind: schema.KindCollectionItem, Rows: []Row{
					row(map[string]any{
						"title":       "Hello World",
						"description": "The first post.",
						"tags":        []string{"meta"},
						"author":      "ada",
						"status":      "published",
					},
						notion.Paragraph("Welcome to the blog."),
						notion.Code("go", `fmt.Println("hello")`),
					),
				}},
				{Title: "Spacer", Kind: schema.KindGap, Rows: []Row{row(map[string]any{
					"section_type": "gap",
					"title":        "Spacer",
					"height":       32,
				})}},
			},
		},
		{
			Title: sync.NavbarContainer.Title,
			Pages: []Page{
				{Title: "About", Body: []notion.Block{
					notion.Heading(1, "About"),
					notion.Paragraph("This site is written in Notion and synced to Markdown."),
				}},
				{Title: "Uses", Body: []notion.Block{
					notion.BulletedItem("Go"),
					notion.BulletedItem("Notion"),
				}},
			},
		},
	}
}
