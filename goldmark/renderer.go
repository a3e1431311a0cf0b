package goldmark

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/concierge"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// parser is safe for concurrent use once built.
var parser = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
).Parser()

type styles struct {
	bold    lipgloss.Style
	italic  lipgloss.Style
	strike  lipgloss.Style
	heading lipgloss.Style
	link    lipgloss.Style
	muted   lipgloss.Style
	code    lipgloss.Style
	border  lipgloss.Style
}

type renderer struct {
	st    styles
	width int
	out   strings.Builder
}

func newRenderer(theme concierge.Theme, width int) *renderer {
	return &renderer{
		width: width,
		st: styles{
			bold:    lipgloss.NewStyle().Bold(true),
			italic:  lipgloss.NewStyle().Italic(true),
			strike:  lipgloss.NewStyle().Strikethrough(true),
			heading: lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
			link:    lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Underline(true),
			muted:   lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
			code:    lipgloss.NewStyle().Background(ansiColor(theme.CodeBg)).Bold(true),
			border:  lipgloss.NewStyle().Foreground(ansiColor(theme.Border)),
		},
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *renderer) render(source []byte) string {
	doc := parser.Parse(text.NewReader(source))
	r.blocks(doc, source, r.width, "")
	return strings.TrimRight(r.out.String(), "\n")
}

// blocks renders the children of node. prefix is written before every
// output line; it carries blockquote gutters.
func (r *renderer) blocks(node ast.Node, source []byte, width int, prefix string) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c, source, width, prefix)
		if c.NextSibling() != nil {
			r.out.WriteString(strings.TrimRight(prefix, " ") + "\n")
		}
	}
}

func (r *renderer) block(node ast.Node, source []byte, width int, prefix string) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		r.lines(prefix, wrap(r.inlines(n, source), width))

	case *ast.Heading:
		r.lines(prefix, wrap(r.st.heading.Render(r.inlines(n, source)), width))

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(source)); lang != "" {
			r.lines(prefix, r.st.muted.Render(lang))
		}
		r.code(n, source, prefix)

	case *ast.CodeBlock:
		r.code(n, source, prefix)

	case *ast.Blockquote:
		gutter := prefix + r.st.border.Render("▎") + " "
		r.blocks(n, source, max(width-2, 10), gutter)

	case *ast.List:
		r.list(n, source, width, prefix, 0)

	case *ast.ThematicBreak:
		r.lines(prefix, r.st.border.Render(strings.Repeat("─", min(width, 40))))

	case *east.Table:
		r.table(n, source, prefix)

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			r.lines(prefix, strings.TrimRight(string(seg.Value(source)), "\n"))
		}

	default:
		r.blocks(node, source, width, prefix)
	}
}

func (r *renderer) code(n ast.Node, source []byte, prefix string) {
	gutter := r.st.muted.Render("│") + " "
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.lines(prefix, gutter+strings.TrimRight(string(seg.Value(source)), "\n"))
	}
}

// lines writes s, which may span several lines, with prefix on each.
func (r *renderer) lines(prefix, s string) {
	for _, line := range strings.Split(s, "\n") {
		r.out.WriteString(prefix + line + "\n")
	}
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func (r *renderer) list(n *ast.List, source []byte, width int, prefix string, depth int) {
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "• "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		indent := strings.Repeat("  ", depth)

		var content []string
		flush := func() {
			if len(content) == 0 {
				return
			}
			r.item(prefix+indent, marker, strings.Join(content, " "), width)
			marker = strings.Repeat(" ", len(marker))
			content = nil
		}
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				content = append(content, r.inlines(in, source))
			case *ast.List:
				flush()
				r.list(in, source, width, prefix, depth+1)
			default:
				flush()
				r.block(ic, source, width-len(indent)-len(marker), prefix+indent+strings.Repeat(" ", len(marker)))
			}
		}
		flush()
	}
}

// item writes one list item, hanging continuation lines under the text.
func (r *renderer) item(prefix, marker, content string, width int) {
	w := max(width-lipgloss.Width(prefix)-lipgloss.Width(marker), 10)
	hang := strings.Repeat(" ", lipgloss.Width(marker))
	for i, line := range strings.Split(wrap(content, w), "\n") {
		if i == 0 {
			r.out.WriteString(prefix + r.st.muted.Render(marker) + line + "\n")
			continue
		}
		r.out.WriteString(prefix + hang + line + "\n")
	}
}

// table renders a GFM table with padded columns. Cells are not wrapped.
func (r *renderer) table(t *east.Table, source []byte, prefix string) {
	var rows [][]string
	header := -1
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		if _, ok := row.(*east.TableHeader); ok {
			header = len(rows)
		}
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			s := r.inlines(cell, source)
			if header == len(rows) {
				s = r.st.bold.Render(s)
			}
			cells = append(cells, s)
		}
		rows = append(rows, cells)
	}

	widths := make([]int, len(t.Alignments))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	sep := " " + r.st.border.Render("│") + " "
	for ri, row := range rows {
		cells := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = pad(cell, widths[i], t.Alignments[i])
		}
		r.lines(prefix, strings.TrimRight(strings.Join(cells, sep), " "))
		if ri == header {
			rules := make([]string, len(widths))
			for i, w := range widths {
				rules[i] = strings.Repeat("─", w)
			}
			r.lines(prefix, r.st.border.Render(strings.Join(rules, "─┼─")))
		}
	}
}

func pad(s string, width int, align east.Alignment) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case east.AlignRight:
		return strings.Repeat(" ", gap) + s
	case east.AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

// inlines collects styled inline text from node's children.
func (r *renderer) inlines(node ast.Node, source []byte) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(c, source, &b)
	}
	return b.String()
}

func (r *renderer) inline(node ast.Node, source []byte, b *strings.Builder) {
	switch n := node.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}

	case *ast.String:
		b.Write(n.Value)

	case *ast.Emphasis:
		inner := r.inlines(n, source)
		if n.Level == 1 {
			b.WriteString(r.st.italic.Render(inner))
		} else {
			b.WriteString(r.st.bold.Render(inner))
		}

	case *east.Strikethrough:
		b.WriteString(r.st.strike.Render(r.inlines(n, source)))

	case *ast.CodeSpan:
		b.WriteString(r.st.code.Render(r.inlines(n, source)))

	case *ast.Link:
		label := r.inlines(n, source)
		url := string(n.Destination)
		b.WriteString(r.st.link.Render(label))
		if label != url {
			b.WriteString(" " + r.st.muted.Render("("+url+")"))
		}

	case *ast.AutoLink:
		b.WriteString(r.st.link.Render(string(n.URL(source))))

	case *ast.Image:
		alt := r.inlines(n, source)
		if alt == "" {
			alt = "image"
		}
		b.WriteString(r.st.muted.Render("[" + alt + "] " + string(n.Destination)))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.inline(c, source, b)
		}
	}
}
