package blog

import (
	"bytes"
	"encoding/json"
	"html"
	"strings"

	"github.com/pkg/errors"
)

const renderErrorHTML = "<p>Error displaying content</p>"

// text format bits
const (
	FormatBold      = 1
	FormatItalic    = 2
	FormatUnderline = 4
)

// TextFormat is the bitmask carried by text nodes. Element nodes use a string alignment in the same
// attribute, which reads back as 0.
type TextFormat int

func (f *TextFormat) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = TextFormat(n)
		return nil
	}
	*f = 0
	return nil
}

type Node struct {
	Type     string     `json:"type"`
	Text     string     `json:"text,omitempty"`
	Format   TextFormat `json:"format,omitempty"`
	Tag      string     `json:"tag,omitempty"`
	ListType string     `json:"listType,omitempty"`
	Children []Node     `json:"children,omitempty"`
}

type Document struct {
	Root *Node `json:"root"`
}

var errNoRoot = errors.New("document has no root")

// ParseDocument decodes serialized content, requiring a root node.
func ParseDocument(content string) (Document, error) {
	var doc Document
	dec := json.NewDecoder(strings.NewReader(content))
	if err := dec.Decode(&doc); err != nil {
		return Document{}, errors.Wrap(err, "decoding content")
	}
	if doc.Root == nil {
		return Document{}, errNoRoot
	}
	return doc, nil
}

// RenderHTML converts serialized content to HTML. Unknown node types render their children only.
func RenderHTML(content string) string {
	doc, err := ParseDocument(content)
	if err != nil {
		return renderErrorHTML
	}
	var buf bytes.Buffer
	renderNode(&buf, *doc.Root)
	return buf.String()
}

func renderNode(buf *bytes.Buffer, n Node) {
	if n.Type == "text" {
		text := html.EscapeString(n.Text)
		if n.Format&FormatBold != 0 {
			text = "<strong>" + text + "</strong>"
		}
		if n.Format&FormatItalic != 0 {
			text = "<em>" + text + "</em>"
		}
		if n.Format&FormatUnderline != 0 {
			text = "<u>" + text + "</u>"
		}
		buf.WriteString(text)
		return
	}
	if n.Children == nil {
		return
	}

	var openTag, closeTag string
	switch n.Type {
	case "paragraph":
		openTag, closeTag = "<p>", "</p>"
	case "heading":
		tag := headingTag(n.Tag)
		openTag, closeTag = "<"+tag+` class="font-bold">`, "</"+tag+">"
	case "list":
		tag, class := "ol", "list-decimal"
		if n.ListType == "bullet" {
			class = "list-disc"
		}
		if n.Tag == "ul" || (n.Tag == "" && n.ListType == "bullet") {
			tag = "ul"
		}
		openTag, closeTag = "<"+tag+` class="`+class+` ml-4">`, "</"+tag+">"
	case "listitem":
		openTag, closeTag = "<li>", "</li>"
	}

	buf.WriteString(openTag)
	for _, child := range n.Children {
		renderNode(buf, child)
	}
	buf.WriteString(closeTag)
}

func headingTag(tag string) string {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return tag
	}
	return "h2"
}
