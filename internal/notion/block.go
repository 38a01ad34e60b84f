package notion

// BlockType is the type tag of a block
type BlockType string

const (
	BlockParagraph        BlockType = "paragraph"
	BlockHeading1         BlockType = "heading_1"
	BlockHeading2         BlockType = "heading_2"
	BlockHeading3         BlockType = "heading_3"
	BlockBulletedListItem BlockType = "bulleted_list_item"
	BlockNumberedListItem BlockType = "numbered_list_item"
	BlockToDo             BlockType = "to_do"
	BlockToggle           BlockType = "toggle"
	BlockQuote            BlockType = "quote"
	BlockCallout          BlockType = "callout"
	BlockCode             BlockType = "code"
	BlockImage            BlockType = "image"
	BlockVideo            BlockType = "video"
	BlockEmbed            BlockType = "embed"
	BlockBookmark         BlockType = "bookmark"
	BlockDivider          BlockType = "divider"
	BlockChildPage        BlockType = "child_page"
	BlockChildDatabase    BlockType = "child_database"
	BlockTable            BlockType = "table"
	BlockTableRow         BlockType = "table_row"
)

// Block is one node of a page's content tree. Exactly one payload pointer
// is set, matching Type.
type Block struct {
	Object      string    `json:"object,omitempty"`
	ID          string    `json:"id,omitempty"`
	Type        BlockType `json:"type"`
	HasChildren bool      `json:"has_children,omitempty"`

	Paragraph        *TextBlock     `json:"paragraph,omitempty"`
	Heading1         *TextBlock     `json:"heading_1,omitempty"`
	Heading2         *TextBlock     `json:"heading_2,omitempty"`
	Heading3         *TextBlock     `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock     `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock     `json:"numbered_list_item,omitempty"`
	ToDo             *ToDoBlock     `json:"to_do,omitempty"`
	Toggle           *TextBlock     `json:"toggle,omitempty"`
	Quote            *TextBlock     `json:"quote,omitempty"`
	Callout          *CalloutBlock  `json:"callout,omitempty"`
	Code             *CodeBlock     `json:"code,omitempty"`
	Image            *MediaBlock    `json:"image,omitempty"`
	Video            *MediaBlock    `json:"video,omitempty"`
	Embed            *URLBlock      `json:"embed,omitempty"`
	Bookmark         *URLBlock      `json:"bookmark,omitempty"`
	Divider          *struct{}      `json:"divider,omitempty"`
	ChildPage        *TitleBlock    `json:"child_page,omitempty"`
	ChildDatabase    *TitleBlock    `json:"child_database,omitempty"`
	Table            *TableBlock    `json:"table,omitempty"`
	TableRow         *TableRowBlock `json:"table_row,omitempty"`

	// Children is filled locally when a subtree has been fetched.
	Children []Block `json:"-"`
}

type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
}

type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

type CalloutBlock struct {
	RichText []RichText `json:"rich_text"`
	Icon     *Icon      `json:"icon,omitempty"`
}

type Icon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
	Caption  []RichText `json:"caption,omitempty"`
}

// MediaBlock is the payload of image and video blocks
type MediaBlock struct {
	Type     string      `json:"type"`
	File     *FileObject `json:"file,omitempty"`
	External *FileObject `json:"external,omitempty"`
	Caption  []RichText  `json:"caption,omitempty"`
}

// Source returns the media as a file reference
func (m MediaBlock) Source() File {
	return File{Type: m.Type, File: m.File, External: m.External}
}

type URLBlock struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

type TitleBlock struct {
	Title string `json:"title"`
}

type TableBlock struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

type TableRowBlock struct {
	Cells [][]RichText `json:"cells"`
}

// RichText returns the text runs of text-like blocks, nil otherwise
func (b Block) RichText() []RichText {
	switch {
	case b.Paragraph != nil:
		return b.Paragraph.RichText
	case b.Heading1 != nil:
		return b.Heading1.RichText
	case b.Heading2 != nil:
		return b.Heading2.RichText
	case b.Heading3 != nil:
		return b.Heading3.RichText
	case b.BulletedListItem != nil:
		return b.BulletedListItem.RichText
	case b.NumberedListItem != nil:
		return b.NumberedListItem.RichText
	case b.ToDo != nil:
		return b.ToDo.RichText
	case b.Toggle != nil:
		return b.Toggle.RichText
	case b.Quote != nil:
		return b.Quote.RichText
	case b.Callout != nil:
		return b.Callout.RichText
	case b.Code != nil:
		return b.Code.RichText
	}
	return nil
}

// Title returns the title of child_page and child_database blocks
func (b Block) Title() string {
	switch {
	case b.ChildPage != nil:
		return b.ChildPage.Title
	case b.ChildDatabase != nil:
		return b.ChildDatabase.Title
	}
	return ""
}

// Block constructors used when creating content.

func Paragraph(s string) Block {
	return Block{Object: "block", Type: BlockParagraph, Paragraph: &TextBlock{RichText: Text(s)}}
}

func Heading(level int, s string) Block {
	tb := &TextBlock{RichText: Text(s)}
	switch level {
	case 1:
		return Block{Object: "block", Type: BlockHeading1, Heading1: tb}
	case 2:
		return Block{Object: "block", Type: BlockHeading2, Heading2: tb}
	default:
		return Block{Object: "block", Type: BlockHeading3, Heading3: tb}
	}
}

func BulletedItem(s string) Block {
	return Block{Object: "block", Type: BlockBulletedListItem, BulletedListItem: &TextBlock{RichText: Text(s)}}
}

func Code(language, source string) Block {
	return Block{Object: "block", Type: BlockCode, Code: &CodeBlock{RichText: Text(source), Language: language}}
}

func Image(url, caption string) Block {
	return Block{Object: "block", Type: BlockImage, Image: &MediaBlock{
		Type:     "external",
		External: &FileObject{URL: url},
		Caption:  Text(caption),
	}}
}

func Divider() Block {
	return Block{Object: "block", Type: BlockDivider, Divider: &struct{}{}}
}
