package content

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	minHeadingLevel = 1
	maxHeadingLevel = 4
)

// Serialize converts an editor document to HTML. Text is escaped by the HTML
// renderer, so no input can introduce markup of its own. Links with unsafe
// targets lose the link mark and images with unsafe sources are dropped.
func Serialize(doc *Node) (string, error) {
	if doc == nil || doc.Type != NodeDoc {
		return "", fmt.Errorf("%w: root node must be %q", ErrInvalidDocument, NodeDoc)
	}

	nodes, err := buildChildren(doc.Content)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return b.String(), nil
}

// SerializeJSON parses and serializes a raw editor document.
func SerializeJSON(raw []byte) (string, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return "", err
	}
	return Serialize(doc)
}

func buildChildren(children []*Node) ([]*html.Node, error) {
	var out []*html.Node
	for _, child := range children {
		if child == nil {
			continue
		}
		built, err := build(child)
		if err != nil {
			return nil, err
		}
		out = append(out, built...)
	}
	return out, nil
}

func build(n *Node) ([]*html.Node, error) {
	switch n.Type {
	case NodeText:
		if n.Text == "" {
			return nil, nil
		}
		return []*html.Node{applyMarks(n.Text, n.Marks)}, nil
	case NodeHardBreak:
		return []*html.Node{element(atom.Br)}, nil
	case NodeHorizontalRule:
		return []*html.Node{element(atom.Hr)}, nil
	case NodeImage:
		src := strings.TrimSpace(n.stringAttr("src"))
		if !IsSafeImageURL(src) {
			return nil, nil
		}
		img := element(atom.Img, html.Attribute{Key: "src", Val: src})
		if alt := n.stringAttr("alt"); alt != "" {
			img.Attr = append(img.Attr, html.Attribute{Key: "alt", Val: alt})
		}
		if title := n.stringAttr("title"); title != "" {
			img.Attr = append(img.Attr, html.Attribute{Key: "title", Val: title})
		}
		return []*html.Node{img}, nil
	case NodeCodeBlock:
		return buildCodeBlock(n), nil
	}

	var el *html.Node
	switch n.Type {
	case NodeParagraph:
		el = element(atom.P)
	case NodeHeading:
		el = element(headingAtom(n.intAttr("level", minHeadingLevel)))
	case NodeBlockquote:
		el = element(atom.Blockquote)
	case NodeBulletList:
		el = element(atom.Ul)
	case NodeOrderedList:
		el = element(atom.Ol)
		if start := n.intAttr("start", 1); start > 1 {
			el.Attr = append(el.Attr, html.Attribute{Key: "start", Val: strconv.Itoa(start)})
		}
	case NodeListItem:
		el = element(atom.Li)
	default:
		return nil, fmt.Errorf("%w: unsupported node type %q", ErrInvalidDocument, n.Type)
	}

	children, err := buildChildren(n.Content)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		el.AppendChild(c)
	}
	return []*html.Node{el}, nil
}

// buildCodeBlock flattens the block to text. Marks inside code are ignored.
func buildCodeBlock(n *Node) []*html.Node {
	var text strings.Builder
	for _, c := range n.Content {
		if c != nil && c.Type == NodeText {
			text.WriteString(c.Text)
		}
	}

	code := element(atom.Code)
	if lang := strings.ToLower(n.stringAttr("language")); lang != "" {
		class := "language-" + lang
		if languageClass.MatchString(class) {
			code.Attr = append(code.Attr, html.Attribute{Key: "class", Val: class})
		}
	}
	code.AppendChild(&html.Node{Type: html.TextNode, Data: text.String()})

	pre := element(atom.Pre)
	pre.AppendChild(code)
	return []*html.Node{pre}
}

// applyMarks wraps text in one element per known mark, innermost last.
// Unknown marks are ignored rather than rejected so older editor clients
// still serialize.
func applyMarks(text string, marks []Mark) *html.Node {
	node := &html.Node{Type: html.TextNode, Data: text}
	for i := len(marks) - 1; i >= 0; i-- {
		wrapper := markElement(marks[i])
		if wrapper == nil {
			continue
		}
		wrapper.AppendChild(node)
		node = wrapper
	}
	return node
}

func markElement(m Mark) *html.Node {
	switch m.Type {
	case MarkBold:
		return element(atom.Strong)
	case MarkItalic:
		return element(atom.Em)
	case MarkUnderline:
		return element(atom.U)
	case MarkStrike:
		return element(atom.S)
	case MarkCode:
		return element(atom.Code)
	case MarkLink:
		href := strings.TrimSpace(m.stringAttr("href"))
		if !IsSafeLinkURL(href) {
			return nil
		}
		a := element(atom.A, html.Attribute{Key: "href", Val: href})
		if title := m.stringAttr("title"); title != "" {
			a.Attr = append(a.Attr, html.Attribute{Key: "title", Val: title})
		}
		a.Attr = append(a.Attr, html.Attribute{Key: "rel", Val: linkRel})
		return a
	default:
		return nil
	}
}

func headingAtom(level int) atom.Atom {
	level = max(minHeadingLevel, min(level, maxHeadingLevel))
	return [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4}[level-1]
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a, Attr: attrs}
}
