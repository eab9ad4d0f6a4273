// Package notion is a thin client for the Notion REST API plus the
// property and block formatting the sync pipeline feeds it.
package notion

// PropType enumerates the Notion database property kinds the sync
// writes.
type PropType string

const (
	TypeTitle       PropType = "title"
	TypeRichText    PropType = "rich_text"
	TypeDate        PropType = "date"
	TypeSelect      PropType = "select"
	TypeMultiSelect PropType = "multi_select"
	TypeStatus      PropType = "status"
	TypeURL         PropType = "url"
	TypeNumber      PropType = "number"
	TypeCheckbox    PropType = "checkbox"
)

// PropValue is one database property assignment, carried as strings
// and formatted into the wire shape by FormatProps.
type PropValue struct {
	Name  string
	Type  PropType
	Value string
}

// RichText is one rich-text segment of a paragraph block.
type RichText struct {
	Type      string       `json:"type"`
	Text      RichTextBody `json:"text"`
	PlainText string       `json:"plain_text,omitempty"`
	Href      string       `json:"href,omitempty"`
}

type RichTextBody struct {
	Content string    `json:"content"`
	Link    *TextLink `json:"link,omitempty"`
}

type TextLink struct {
	URL string `json:"url"`
}

// Block is a paragraph block; the markdown conversion emits nothing
// else.
type Block struct {
	Object    string    `json:"object"`
	Type      string    `json:"type"`
	Paragraph Paragraph `json:"paragraph"`
}

type Paragraph struct {
	RichText []RichText `json:"rich_text"`
}

// Page is the subset of a created page the caller needs back.
type Page struct {
	Object         string `json:"object"`
	ID             string `json:"id"`
	URL            string `json:"url"`
	CreatedTime    string `json:"created_time"`
	LastEditedTime string `json:"last_edited_time"`
}
