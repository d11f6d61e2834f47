// Package content converts editor documents to HTML, reduces stored HTML to
// a safe subset for display, and extracts plain-text excerpts.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidDocument is returned for editor documents outside the supported schema.
var ErrInvalidDocument = errors.New("invalid document")

// Node types understood by Serialize. They follow the ProseMirror JSON
// format emitted by Tiptap's StarterKit plus the Image and Link extensions.
const (
	NodeDoc            = "doc"
	NodeParagraph      = "paragraph"
	NodeHeading        = "heading"
	NodeBlockquote     = "blockquote"
	NodeBulletList     = "bulletList"
	NodeOrderedList    = "orderedList"
	NodeListItem       = "listItem"
	NodeCodeBlock      = "codeBlock"
	NodeHardBreak      = "hardBreak"
	NodeHorizontalRule = "horizontalRule"
	NodeImage          = "image"
	NodeText           = "text"
)

// Mark types understood by Serialize.
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkStrike    = "strike"
	MarkCode      = "code"
	MarkLink      = "link"
)

// Node is one element of an editor document.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is inline formatting applied to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ParseDocument decodes an editor document and checks that its root is a doc node.
func ParseDocument(raw []byte) (*Node, error) {
	var doc Node
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Type != NodeDoc {
		return nil, fmt.Errorf("%w: root node must be %q, got %q", ErrInvalidDocument, NodeDoc, doc.Type)
	}
	return &doc, nil
}

func (n *Node) stringAttr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	s, _ := n.Attrs[key].(string)
	return s
}

// intAttr reads a numeric attribute. JSON numbers decode as float64.
func (n *Node) intAttr(key string, fallback int) int {
	if n.Attrs == nil {
		return fallback
	}
	switch v := n.Attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func (m Mark) stringAttr(key string) string {
	if m.Attrs == nil {
		return ""
	}
	s, _ := m.Attrs[key].(string)
	return s
}
