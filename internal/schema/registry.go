package schema

import (
	"fmt"
	"strings"
)

// Kind names a content kind with its own schema
type Kind string

const (
	KindInfo       Kind = "info"
	KindDynamic    Kind = "dynamic"
	KindHTML       Kind = "html"
	KindIframe     Kind = "iframe"
	KindVideoEmbed Kind = "video_embed"
	KindMedia      Kind = "media"
	KindMailto     Kind = "mailto"
	KindNewsletter Kind = "newsletter"
	KindGap        Kind = "gap"

	KindCollectionItem     Kind = "collection_item"
	KindAuthor             Kind = "author"
	KindSite               Kind = "site"
	KindCollectionSettings Kind = "collection_settings"
	KindInjection          Kind = "injection"
	KindAdvanced           Kind = "advanced"
	KindNavbarPage         Kind = "navbar_page"
)

// SectionKinds lists the section variants in declaration order. Structural
// inference walks this order, so it doubles as the tie-break.
var SectionKinds = []Kind{
	KindInfo, KindDynamic, KindHTML, KindIframe, KindVideoEmbed,
	KindMedia, KindMailto, KindNewsletter, KindGap,
}

// Shared field names
const (
	FieldSectionType    = "section_type"
	FieldEnabled        = "enabled"
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldCollectionName = "collection_name"
	FieldSlug           = "slug"
	FieldStatus         = "status"
	FieldThumbnail      = "thumbnail"
)

// StatusPublished is the only collection item status that gets synced
const StatusPublished = "published"

var sectionKindAliases = map[string]Kind{
	"text":    KindInfo,
	"embed":   KindIframe,
	"video":   KindVideoEmbed,
	"contact": KindMailto,
	"spacer":  KindGap,
}

// ParseSectionKind maps an authored section type onto a section kind,
// tolerating case, spaces, hyphens and a few legacy names.
func ParseSectionKind(raw string) (Kind, bool) {
	key := OptionKey(raw)
	if key == "" {
		return "", false
	}
	for _, k := range SectionKinds {
		if string(k) == key {
			return k, true
		}
	}
	if k, ok := sectionKindAliases[key]; ok {
		return k, true
	}
	if k, ok := sectionKindAliases[strings.ReplaceAll(key, "_", "")]; ok {
		return k, true
	}
	return "", false
}

// IsSection reports whether k is a section variant
func IsSection(k Kind) bool {
	for _, s := range SectionKinds {
		if s == k {
			return true
		}
	}
	return false
}

// Get returns the schema of a kind. Unknown kinds yield nil, which callers
// treat as nothing to sync.
func Get(k Kind) Schema {
	return registry[k]
}

// Kinds returns every registered kind, sections first
func Kinds() []Kind {
	out := append([]Kind(nil), SectionKinds...)
	return append(out, KindCollectionItem, KindAuthor, KindSite,
		KindCollectionSettings, KindInjection, KindAdvanced, KindNavbarPage)
}

// SectionTypeEntry is the discriminator field carried by every section table
var SectionTypeEntry = Entry{
	Name:    FieldSectionType,
	Remote:  RemoteSelect,
	Local:   LocalString,
	Aliases: []string{"Section Type", "sectionType", "type", "Type"},
}

// EnabledEntry is the on/off switch carried by every section table
var EnabledEntry = Entry{
	Name:    FieldEnabled,
	Remote:  RemoteCheckbox,
	Local:   LocalBool,
	Default: Bool(true),
	Aliases: []string{"Enabled", "enable", "visible"},
}

func section(fields ...Entry) Schema {
	return append(Schema{SectionTypeEntry, EnabledEntry}, fields...)
}

var (
	titleEntry = Entry{Name: FieldTitle, Remote: RemoteTitle, Local: LocalString, Required: true, Aliases: []string{"Title", "Name", "name"}}

	descriptionEntry = Entry{Name: FieldDescription, Remote: RemoteRichText, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"Description", "content", "Content"}}

	aspectRatio = func(def string) Entry {
		e := Entry{Name: "aspect_ratio", Remote: RemoteSelect, Local: LocalString, Normalize: NormalizeAspectRatio, Aliases: []string{"Aspect Ratio", "aspectRatio", "ratio"}}
		if def != "" {
			e.Default = String(def)
		}
		return e
	}
)

var registry = map[Kind]Schema{
	KindInfo: section(
		titleEntry,
		descriptionEntry,
		Entry{Name: "image", Remote: RemoteFiles, Local: LocalString, Download: true, Aliases: []string{"Image", "picture"}},
		Entry{Name: "image_position", Remote: RemoteSelect, Local: LocalString, Default: String("right"), Options: []string{"left", "right"}, Normalize: NormalizeLower, Aliases: []string{"Image Position", "imagePosition"}},
		Entry{Name: "button_text", Remote: RemoteRichText, Local: LocalString, Aliases: []string{"Button Text", "buttonText"}},
		Entry{Name: "button_link", Remote: RemoteURL, Local: LocalString, Aliases: []string{"Button Link", "buttonLink", "link"}},
		aspectRatio("16/9"),
	),
	KindDynamic: section(
		titleEntry,
		descriptionEntry,
		Entry{Name: FieldCollectionName, Remote: RemoteSelect, Local: LocalString, Required: true, Aliases: []string{"Collection Name", "collectionName", "collection", "Collection"}},
		Entry{Name: "limit", Remote: RemoteNumber, Local: LocalNumber, Default: Number(3), Aliases: []string{"Limit", "count"}},
		Entry{Name: "layout", Remote: RemoteSelect, Local: LocalString, Default: String("grid"), Options: []string{"grid", "list", "carousel"}, Normalize: NormalizeLower, Aliases: []string{"Layout"}},
		Entry{Name: "show_view_all", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(true), Aliases: []string{"Show View All", "showViewAll"}},
	),
	KindHTML: section(
		titleEntry,
		Entry{Name: "html", Remote: RemoteCodeBlock, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"HTML", "code", "Code"}},
		Entry{Name: "full_width", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(false), Aliases: []string{"Full Width", "fullWidth"}},
	),
	KindIframe: section(
		titleEntry,
		Entry{Name: "url", Remote: RemoteURL, Local: LocalString, Required: true, Aliases: []string{"URL", "Url", "src"}},
		Entry{Name: "height", Remote: RemoteNumber, Local: LocalNumber, Default: Number(500), Aliases: []string{"Height"}},
		aspectRatio(""),
		Entry{Name: "allow_fullscreen", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(true), Aliases: []string{"Allow Fullscreen", "allowFullscreen"}},
	),
	KindVideoEmbed: section(
		titleEntry,
		Entry{Name: "url", Remote: RemoteURL, Local: LocalString, Required: true, Aliases: []string{"URL", "Video URL", "videoUrl"}},
		Entry{Name: "autoplay", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(false), Aliases: []string{"Autoplay"}},
		aspectRatio("16/9"),
	),
	KindMedia: section(
		titleEntry,
		Entry{Name: "media", Remote: RemoteFiles, Local: LocalStrings, Download: true, Default: Strings{}, Aliases: []string{"Media", "images", "Images", "files"}},
		Entry{Name: "caption", Remote: RemoteRichText, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"Caption"}},
		aspectRatio("auto"),
		Entry{Name: "layout", Remote: RemoteSelect, Local: LocalString, Default: String("single"), Options: []string{"single", "grid", "carousel"}, Normalize: NormalizeLower, Aliases: []string{"Layout"}},
	),
	KindMailto: section(
		titleEntry,
		descriptionEntry,
		Entry{Name: "email", Remote: RemoteEmail, Local: LocalString, Required: true, Aliases: []string{"Email", "mail"}},
		Entry{Name: "button_text", Remote: RemoteRichText, Local: LocalString, Default: String("Get in touch"), Aliases: []string{"Button Text", "buttonText"}},
		Entry{Name: "subject", Remote: RemoteRichText, Local: LocalString, Default: String(""), Aliases: []string{"Subject"}},
	),
	KindNewsletter: section(
		titleEntry,
		descriptionEntry,
		Entry{Name: "form_action", Remote: RemoteURL, Local: LocalString, Required: true, Aliases: []string{"Form Action", "formAction", "action"}},
		Entry{Name: "button_text", Remote: RemoteRichText, Local: LocalString, Default: String("Subscribe"), Aliases: []string{"Button Text", "buttonText"}},
		Entry{Name: "placeholder", Remote: RemoteRichText, Local: LocalString, Default: String("you@example.com"), Aliases: []string{"Placeholder"}},
	),
	KindGap: section(
		titleEntry,
		Entry{Name: "height", Remote: RemoteNumber, Local: LocalNumber, Default: Number(48), Aliases: []string{"Height", "size"}},
	),

	KindCollectionItem: {
		titleEntry,
		Entry{Name: FieldSlug, Remote: RemoteRichText, Local: LocalString, Default: String(""), Aliases: []string{"Slug"}},
		descriptionEntry,
		Entry{Name: FieldThumbnail, Remote: RemoteFiles, Local: LocalString, Download: true, Default: String(""), Aliases: []string{"Thumbnail", "image", "Image", "cover"}},
		Entry{Name: "tags", Remote: RemoteMultiSelect, Local: LocalStrings, Default: Strings{}, Aliases: []string{"Tags"}},
		Entry{Name: "link", Remote: RemoteURL, Local: LocalString, Default: String(""), Aliases: []string{"Link", "url", "URL"}},
		Entry{Name: "priority", Remote: RemoteNumber, Local: LocalNumber, Default: Number(0), Aliases: []string{"Priority", "order", "Order"}},
		Entry{Name: "author", Remote: RemoteRichText, Local: LocalString, Default: String(""), Aliases: []string{"Author", "author_username"}},
		Entry{Name: FieldStatus, Remote: RemoteSelect, Local: LocalString, Default: String("draft"), Options: []string{"draft", "in_review", "published", "archived"}, Aliases: []string{"Status"}},
	},
	KindAuthor: {
		Entry{Name: "name", Remote: RemoteTitle, Local: LocalString, Required: true, Aliases: []string{"Name", "title"}},
		Entry{Name: "username", Remote: RemoteRichText, Local: LocalString, Required: true, Aliases: []string{"Username", "handle"}},
		Entry{Name: "avatar", Remote: RemoteFiles, Local: LocalString, Download: true, Default: String(""), Aliases: []string{"Avatar", "photo"}},
		Entry{Name: "bio", Remote: RemoteRichText, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"Bio"}},
		Entry{Name: "website", Remote: RemoteURL, Local: LocalString, Default: String(""), Aliases: []string{"Website"}},
		Entry{Name: "email", Remote: RemoteEmail, Local: LocalString, Default: String(""), Aliases: []string{"Email"}},
	},
	KindSite: {
		Entry{Name: "site_name", Remote: RemoteTitle, Local: LocalString, Required: true, Aliases: []string{"Site Name", "siteName", "Name", "title"}},
		Entry{Name: FieldDescription, Remote: RemoteRichText, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"Description"}},
		Entry{Name: "logo", Remote: RemoteFiles, Local: LocalString, Download: true, Default: String(""), Aliases: []string{"Logo"}},
		Entry{Name: "favicon", Remote: RemoteFiles, Local: LocalString, Download: true, Default: String(""), Aliases: []string{"Favicon"}},
		Entry{Name: "footer_text", Remote: RemoteRichText, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"Footer Text", "footerText", "footer"}},
		Entry{Name: "email", Remote: RemoteEmail, Local: LocalString, Default: String(""), Aliases: []string{"Email", "contact_email"}},
		Entry{Name: "show_theme_toggle", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(true), Aliases: []string{"Show Theme Toggle", "showThemeToggle"}},
		Entry{Name: "show_search", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(true), Aliases: []string{"Show Search", "showSearch"}},
		Entry{Name: "enable_rss", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(false), Aliases: []string{"Enable RSS", "enableRss", "rss"}},
		Entry{Name: "accent_color", Remote: RemoteRichText, Local: LocalString, Default: String(""), Aliases: []string{"Accent Color", "accentColor"}},
		Entry{Name: "github", Remote: RemoteURL, Local: LocalString, Default: String(""), Aliases: []string{"GitHub", "Github"}},
		Entry{Name: "twitter", Remote: RemoteURL, Local: LocalString, Default: String(""), Aliases: []string{"Twitter", "X"}},
		Entry{Name: "linkedin", Remote: RemoteURL, Local: LocalString, Default: String(""), Aliases: []string{"LinkedIn", "Linkedin"}},
	},
	KindCollectionSettings: {
		Entry{Name: "name", Remote: RemoteTitle, Local: LocalString, Required: true, Aliases: []string{"Name", "title", "Title"}},
		Entry{Name: FieldSlug, Remote: RemoteRichText, Local: LocalString, Default: String(""), Aliases: []string{"Slug"}},
		Entry{Name: FieldDescription, Remote: RemoteRichText, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"Description"}},
		Entry{Name: "show_in_navbar", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(true), Aliases: []string{"Show In Navbar", "Show in Navbar", "showInNavbar"}},
		Entry{Name: "layout", Remote: RemoteSelect, Local: LocalString, Default: String("grid"), Options: []string{"grid", "list"}, Normalize: NormalizeLower, Aliases: []string{"Layout"}},
		Entry{Name: "items_per_page", Remote: RemoteNumber, Local: LocalNumber, Default: Number(9), Aliases: []string{"Items Per Page", "itemsPerPage"}},
		Entry{Name: "sort_by", Remote: RemoteSelect, Local: LocalString, Default: String("priority"), Options: []string{"priority", "title"}, Aliases: []string{"Sort By", "sortBy"}},
		Entry{Name: "show_author", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(false), Aliases: []string{"Show Author", "showAuthor"}},
		Entry{Name: FieldEnabled, Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(true), Aliases: []string{"Enabled"}},
	},
	KindInjection: {
		Entry{Name: "name", Remote: RemoteTitle, Local: LocalString, Required: true, Aliases: []string{"Name", "title"}},
		Entry{Name: "location", Remote: RemoteSelect, Local: LocalString, Default: String("head"), Options: []string{"head", "body"}, Normalize: NormalizeLower, Aliases: []string{"Location", "placement"}},
		Entry{Name: "kind", Remote: RemoteSelect, Local: LocalString, Default: String("html"), Options: []string{"html", "css", "js"}, Normalize: NormalizeLower, Aliases: []string{"Kind", "Type", "type"}},
		Entry{Name: "code", Remote: RemoteCodeBlock, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"Code"}},
		Entry{Name: FieldEnabled, Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(true), Aliases: []string{"Enabled"}},
	},
	KindAdvanced: {
		Entry{Name: "key", Remote: RemoteTitle, Local: LocalString, Required: true, Aliases: []string{"Key", "Name", "name"}},
		Entry{Name: "value", Remote: RemoteRichText, Local: LocalString, Default: String(""), FullText: true, Aliases: []string{"Value"}},
	},
	KindNavbarPage: {
		titleEntry,
		Entry{Name: FieldSlug, Remote: RemoteRichText, Local: LocalString, Default: String(""), Aliases: []string{"Slug"}},
		descriptionEntry,
		Entry{Name: "order", Remote: RemoteNumber, Local: LocalNumber, Default: Number(0), Aliases: []string{"Order", "priority"}},
		Entry{Name: "show_in_navbar", Remote: RemoteCheckbox, Local: LocalBool, Default: Bool(true), Aliases: []string{"Show In Navbar", "showInNavbar"}},
	},
}

func init() {
	for k, s := range registry {
		if err := s.Validate(); err != nil {
			panic(fmt.Sprintf("schema %s: %v", k, err))
		}
	}
}
