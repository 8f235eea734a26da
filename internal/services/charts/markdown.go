package charts

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// coverRenderer writes a small markdown subset onto the current fpdf page:
// headings, paragraphs, emphasis, code spans, bullet lists and tables.
type coverRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	width     float64
	bold      bool
	italic    bool
	listLevel int
}

func renderCover(pdf *fpdf.Fpdf, family string, width float64, markdown string) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	r := &coverRenderer{
		pdf:    pdf,
		source: source,
		font:   family,
		size:   10,
		width:  width,
	}
	r.updateFont()
	if err := ast.Walk(doc, r.walk); err != nil {
		return err
	}
	return pdf.Error()
}

func (r *coverRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *coverRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			size := 12.0
			switch node.Level {
			case 1:
				size = 18
			case 2:
				size = 14
			}
			r.pdf.SetFont(r.font, "B", size)
		} else {
			r.pdf.Ln(10)
			r.updateFont()
		}
	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			r.pdf.Write(5, string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() {
				r.pdf.Write(5, " ")
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case *ast.CodeSpan:
		if entering {
			r.pdf.Write(5, r.inlineText(node))
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			r.pdf.Ln(5)
			left, _, _, _ := r.pdf.GetMargins()
			r.pdf.SetX(left + float64(r.listLevel)*5)
			r.pdf.Write(5, "- ")
		}
	case *extast.Table:
		if entering {
			r.renderTable(r.tableRows(node))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// inlineText concatenates the literal text beneath n.
func (r *coverRenderer) inlineText(n ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(r.source))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func (r *coverRenderer) tableRows(n *extast.Table) [][]string {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *extast.TableHeader, *extast.TableRow:
			var row []string
			for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
				if _, ok := cell.(*extast.TableCell); ok {
					row = append(row, r.inlineText(cell))
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func (r *coverRenderer) renderTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	numCols := len(rows[0])

	const lineHeight = 6.0
	fontSize := 9.0

	r.pdf.SetFont(r.font, "", fontSize)
	colWidths := r.columnWidths(rows, numCols)

	_, pageHeight := r.pdf.GetPageSize()
	_, _, _, bottom := r.pdf.GetMargins()

	r.pdf.Ln(2)
	for i, row := range rows {
		if r.pdf.GetY()+lineHeight > pageHeight-bottom {
			r.pdf.AddPage()
		}
		if i == 0 {
			r.pdf.SetFont(r.font, "B", fontSize)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(r.font, "", fontSize)
			r.pdf.SetFillColor(255, 255, 255)
		}
		for j := 0; j < numCols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			align := "L"
			if j == numCols-1 && i > 0 {
				align = "R"
			}
			r.pdf.CellFormat(colWidths[j], lineHeight, cell, "1", 0, align, i == 0, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.pdf.Ln(3)
	r.updateFont()
}

// columnWidths sizes each column to its widest cell, scaled down to fit the page.
func (r *coverRenderer) columnWidths(rows [][]string, numCols int) []float64 {
	widths := make([]float64, numCols)
	for _, row := range rows {
		for j := 0; j < numCols && j < len(row); j++ {
			if w := r.pdf.GetStringWidth(row[j]) + 4; w > widths[j] {
				widths[j] = w
			}
		}
	}
	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total > r.width && total > 0 {
		scale := r.width / total
		for j := range widths {
			widths[j] *= scale
		}
	}
	return widths
}
