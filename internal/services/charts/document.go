// Package charts renders equity-vs-benchmark comparison charts and lays them
// out as a paginated PDF document.
package charts

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/krxdigest/internal/interfaces"
)

const (
	pageMargin  = 10.0
	titleHeight = 10.0
	cellGap     = 4.0

	defaultRows    = 2
	defaultColumns = 3

	fontFamily  = "report"
	builtinFont = "Arial"
)

// Options configure the page grid and font.
type Options struct {
	Rows    int
	Columns int
	Font    *Font // optional; required to render Hangul names legibly
}

// Service implements interfaces.ChartRenderer
type Service struct {
	rows    int
	columns int
	font    *Font
	logger  arbor.ILogger
}

// Compile-time assertion
var _ interfaces.ChartRenderer = (*Service)(nil)

// NewService creates a chart document renderer
func NewService(opts Options, logger arbor.ILogger) *Service {
	if opts.Rows <= 0 {
		opts.Rows = defaultRows
	}
	if opts.Columns <= 0 {
		opts.Columns = defaultColumns
	}
	return &Service{
		rows:    opts.Rows,
		columns: opts.Columns,
		font:    opts.Font,
		logger:  logger,
	}
}

// PerPage returns the number of panels on one grid page.
func (s *Service) PerPage() int {
	return s.rows * s.columns
}

// RenderDocument renders an optional cover page followed by the chart grid.
// Unused cells on the last page stay blank.
func (s *Service) RenderDocument(doc interfaces.ChartDocument) ([]byte, error) {
	s.logger.Debug().
		Int("charts", len(doc.Charts)).
		Bool("cover", doc.Cover != "").
		Msg("Rendering chart document")

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("krxdigest", true)

	family := s.registerFont(pdf)

	pageWidth, pageHeight := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin

	if doc.Cover != "" {
		pdf.AddPage()
		if err := renderCover(pdf, family, contentWidth, doc.Cover); err != nil {
			return nil, fmt.Errorf("failed to render cover: %w", err)
		}
	}

	perPage := s.PerPage()
	cellWidth := (contentWidth - cellGap*float64(s.columns-1)) / float64(s.columns)
	cellHeight := (pageHeight - 2*pageMargin - titleHeight - cellGap*float64(s.rows-1)) / float64(s.rows)

	// Grid pages place images explicitly; auto page breaks would split them.
	pdf.SetAutoPageBreak(false, 0)

	for i, panel := range doc.Charts {
		slot := i % perPage
		if slot == 0 {
			heading := doc.Title
			if span := windowLabel(panel.Dates); span != "" {
				heading += "   " + span
			}
			pdf.AddPage()
			pdf.SetFont(family, "B", 12)
			pdf.CellFormat(contentWidth, titleHeight-2, heading, "", 1, "L", false, 0, "")
		}

		x := pageMargin + float64(slot%s.columns)*(cellWidth+cellGap)
		y := pageMargin + titleHeight + float64(slot/s.columns)*(cellHeight+cellGap)

		if len(panel.Dates) < 2 {
			s.placeholder(pdf, family, panel.Title, x, y, cellWidth, cellHeight)
			continue
		}

		png, err := RenderPanel(panel, doc.BenchmarkLabel, s.font.chartFont())
		if err != nil {
			return nil, fmt.Errorf("failed to render chart %q: %w", panel.Title, err)
		}

		name := fmt.Sprintf("chart-%d", i)
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))

		w, h := fit(panelWidth, panelHeight, cellWidth, cellHeight)
		pdf.ImageOptions(name, x+(cellWidth-w)/2, y+(cellHeight-h)/2, w, h, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	if len(doc.Charts) == 0 && doc.Cover == "" {
		pdf.AddPage()
		pdf.SetFont(family, "B", 12)
		pdf.CellFormat(contentWidth, titleHeight-2, doc.Title, "", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to build PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Int("pages", pdf.PageCount()).Msg("Chart document generated")
	return buf.Bytes(), nil
}

// registerFont adds the configured TTF under every style the renderer uses
// and returns the family name to select.
func (s *Service) registerFont(pdf *fpdf.Fpdf) string {
	if s.font == nil || len(s.font.Data) == 0 {
		return builtinFont
	}
	for _, style := range []string{"", "B", "I", "BI"} {
		pdf.AddUTF8FontFromBytes(fontFamily, style, s.font.Data)
	}
	return fontFamily
}

func (s *Service) placeholder(pdf *fpdf.Fpdf, family, title string, x, y, w, h float64) {
	pdf.SetDrawColor(200, 200, 200)
	pdf.Rect(x, y, w, h, "D")
	pdf.SetDrawColor(0, 0, 0)

	pdf.SetFont(family, "B", 10)
	pdf.SetXY(x, y+h/2-6)
	pdf.CellFormat(w, 6, title, "", 2, "C", false, 0, "")
	pdf.SetFont(family, "", 9)
	pdf.CellFormat(w, 6, "insufficient data", "", 0, "C", false, 0, "")
}

// fit scales a srcW x srcH image into a boxW x boxH box, keeping its aspect ratio.
func fit(srcW, srcH int, boxW, boxH float64) (float64, float64) {
	ratio := float64(srcW) / float64(srcH)
	w := boxW
	h := w / ratio
	if h > boxH {
		h = boxH
		w = h * ratio
	}
	return w, h
}
