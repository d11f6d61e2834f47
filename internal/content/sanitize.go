package content

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const linkRel = "noopener noreferrer nofollow"

// allowedTags is the rendered vocabulary. Anything else is unwrapped, except
// droppedTags which are removed with their contents.
var allowedTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Hr:         true,
	atom.Strong:     true,
	atom.B:          true,
	atom.Em:         true,
	atom.I:          true,
	atom.U:          true,
	atom.S:          true,
	atom.Del:        true,
	atom.Code:       true,
	atom.Pre:        true,
	atom.Blockquote: true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.A:          true,
	atom.Img:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
}

// headingAlias folds headings below the rendered range into the smallest one.
var headingAlias = map[atom.Atom]atom.Atom{
	atom.H5: atom.H4,
	atom.H6: atom.H4,
}

// containerTags are unwrapped, but their inline content is regrouped into
// paragraphs so sibling containers do not run together.
var containerTags = map[atom.Atom]bool{
	atom.Div:        true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Header:     true,
	atom.Footer:     true,
	atom.Main:       true,
	atom.Aside:      true,
	atom.Nav:        true,
	atom.Figure:     true,
	atom.Figcaption: true,
	atom.Address:    true,
	atom.Details:    true,
	atom.Summary:    true,
	atom.Dialog:     true,
	atom.Center:     true,
	atom.Hgroup:     true,
	atom.Menu:       true,
	atom.Fieldset:   true,
	atom.Legend:     true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Dd:         true,
	atom.Table:      true,
	atom.Caption:    true,
	atom.Thead:      true,
	atom.Tbody:      true,
	atom.Tfoot:      true,
	atom.Tr:         true,
	atom.Td:         true,
	atom.Th:         true,
}

// flowTags are allowed tags whose children may be blocks.
var flowTags = map[atom.Atom]bool{
	atom.Blockquote: true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
}

// blockLevel are allowed tags that cannot sit inside a paragraph.
var blockLevel = map[atom.Atom]bool{
	atom.P:          true,
	atom.Pre:        true,
	atom.Blockquote: true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.Hr:         true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
}

var droppedTags = map[atom.Atom]bool{
	atom.Script:    true,
	atom.Style:     true,
	atom.Iframe:    true,
	atom.Frame:     true,
	atom.Frameset:  true,
	atom.Object:    true,
	atom.Embed:     true,
	atom.Applet:    true,
	atom.Noscript:  true,
	atom.Noembed:   true,
	atom.Template:  true,
	atom.Svg:       true,
	atom.Math:      true,
	atom.Form:      true,
	atom.Textarea:  true,
	atom.Select:    true,
	atom.Title:     true,
	atom.Head:      true,
	atom.Link:      true,
	atom.Meta:      true,
	atom.Base:      true,
	atom.Xmp:       true,
	atom.Plaintext: true,
}

var (
	dimensionAttr = regexp.MustCompile(`^[0-9]{1,4}$`)
	startAttr     = regexp.MustCompile(`^[0-9]{1,6}$`)
	languageClass = regexp.MustCompile(`^language-[a-z0-9+#-]{1,32}$`)
)

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// Fragment is HTML reduced to the allowed subset. Nodes are detached trees
// safe to render or walk.
type Fragment struct {
	Nodes []*html.Node
}

// HTML renders the fragment.
func (f *Fragment) HTML() string {
	var b strings.Builder
	for _, n := range f.Nodes {
		// Render only fails on writer errors; strings.Builder never returns one.
		_ = html.Render(&b, n)
	}
	return b.String()
}

// Render parses stored HTML and keeps only the allowed tags and attributes.
// Link and image URLs are scheme-checked; links get a fixed rel.
func Render(raw string) (*Fragment, error) {
	nodes, err := html.ParseFragment(strings.NewReader(raw), bodyContext)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := &Fragment{}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, clean(n, false)...)
	}
	return out, nil
}

// Sanitize is Render followed by HTML. Unparseable input yields "".
func Sanitize(raw string) string {
	frag, err := Render(raw)
	if err != nil {
		return ""
	}
	return frag.HTML()
}

// clean filters n. inline is set below a tag that only holds phrasing
// content, where no paragraph may be opened.
func clean(n *html.Node, inline bool) []*html.Node {
	switch n.Type {
	case html.TextNode:
		return []*html.Node{{Type: html.TextNode, Data: n.Data}}
	case html.ElementNode:
	default:
		// comments, doctypes and raw nodes never survive
		return nil
	}

	if n.Namespace != "" || droppedTags[n.DataAtom] {
		return nil
	}

	tag := n.DataAtom
	if alias, ok := headingAlias[tag]; ok {
		tag = alias
	}
	childInline := inline || (allowedTags[tag] && !flowTags[tag])

	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, clean(c, childInline)...)
	}

	if containerTags[tag] {
		if inline {
			return spaced(children)
		}
		return paragraphs(children)
	}
	if !allowedTags[tag] {
		return children
	}

	attrs, keep := filterAttrs(n)
	if !keep {
		return nil
	}

	el := &html.Node{Type: html.ElementNode, Data: tag.String(), DataAtom: tag, Attr: attrs}
	if n.DataAtom == atom.A && !hasAttr(attrs, "href") {
		// an anchor without a usable target is just text
		return children
	}
	for _, c := range children {
		el.AppendChild(c)
	}
	return []*html.Node{el}
}

// paragraphs wraps each run of inline nodes in a p, leaving block nodes and
// whitespace-only runs as they are.
func paragraphs(nodes []*html.Node) []*html.Node {
	var out, run []*html.Node
	flush := func() {
		if blank(run) {
			out = append(out, run...)
		} else {
			p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
			for _, c := range run {
				p.AppendChild(c)
			}
			out = append(out, p)
		}
		run = nil
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode && blockLevel[n.DataAtom] {
			flush()
			out = append(out, n)
			continue
		}
		run = append(run, n)
	}
	flush()
	return out
}

func blank(nodes []*html.Node) bool {
	for _, n := range nodes {
		if n.Type != html.TextNode || strings.TrimSpace(n.Data) != "" {
			return false
		}
	}
	return true
}

// spaced ends nodes with a space so the text of an unwrapped container stays
// apart from what follows it.
func spaced(nodes []*html.Node) []*html.Node {
	if len(nodes) == 0 {
		return nil
	}
	if last := nodes[len(nodes)-1]; last.Type == html.TextNode && strings.HasSuffix(last.Data, " ") {
		return nodes
	}
	return append(nodes, &html.Node{Type: html.TextNode, Data: " "})
}

// filterAttrs returns the permitted attributes of n. keep is false when the
// element must be removed entirely (an image without a safe source).
func filterAttrs(n *html.Node) (attrs []html.Attribute, keep bool) {
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		key := strings.ToLower(a.Key)
		val := strings.TrimSpace(a.Val)

		switch n.DataAtom {
		case atom.A:
			switch key {
			case "href":
				if IsSafeLinkURL(val) {
					attrs = append(attrs, html.Attribute{Key: key, Val: val})
				}
			case "title":
				attrs = append(attrs, html.Attribute{Key: key, Val: a.Val})
			}
		case atom.Img:
			switch key {
			case "src":
				if IsSafeImageURL(val) {
					attrs = append(attrs, html.Attribute{Key: key, Val: val})
				}
			case "alt", "title":
				attrs = append(attrs, html.Attribute{Key: key, Val: a.Val})
			case "width", "height":
				if dimensionAttr.MatchString(val) {
					attrs = append(attrs, html.Attribute{Key: key, Val: val})
				}
			}
		case atom.Ol:
			if key == "start" && startAttr.MatchString(val) {
				attrs = append(attrs, html.Attribute{Key: key, Val: val})
			}
		case atom.Code:
			if key == "class" && languageClass.MatchString(val) {
				attrs = append(attrs, html.Attribute{Key: key, Val: val})
			}
		}
	}

	switch n.DataAtom {
	case atom.Img:
		if !hasAttr(attrs, "src") {
			return nil, false
		}
	case atom.A:
		if hasAttr(attrs, "href") {
			attrs = append(attrs, html.Attribute{Key: "rel", Val: linkRel})
		}
	}
	return attrs, true
}

func hasAttr(attrs []html.Attribute, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}
