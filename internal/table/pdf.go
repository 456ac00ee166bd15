package table

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for formats whose capability is disabled
var ErrUnsupported = errors.New("format not supported")

// ErrNoTable means the document parsed but holds no table where one was expected
var ErrNoTable = errors.New("no table found")

// PDFTablePage is the zero-based page inspected for a table. Quiz PDFs carry
// their data on the second page.
const PDFTablePage = 1

// PDFExtractor extracts a table from one page of a PDF document
type PDFExtractor interface {
	// Supported reports whether PDF tables can be extracted at all
	Supported() bool

	// ExtractTable returns the table on the zero-based page pageIndex
	ExtractTable(data []byte, pageIndex int) (*Table, error)
}

// UnsupportedPDF is the PDF capability when extraction is disabled
type UnsupportedPDF struct{}

func (UnsupportedPDF) Supported() bool { return false }

func (UnsupportedPDF) ExtractTable([]byte, int) (*Table, error) {
	return nil, ErrUnsupported
}

// TextPDF extracts tables by grouping the positioned text of a page into rows
// and splitting each row into cells at horizontal gaps.
type TextPDF struct {
	// MinGap is the horizontal gap, in points, that separates two cells
	MinGap float64

	// RowTolerance is the vertical distance, in points, within which glyphs
	// belong to the same row
	RowTolerance float64
}

// NewTextPDF creates a text-layout PDF extractor
func NewTextPDF() *TextPDF {
	return &TextPDF{MinGap: 6, RowTolerance: 2}
}

func (*TextPDF) Supported() bool { return true }

// ExtractTable reads the page at pageIndex. The first row with at least two
// cells is the header; following rows with the same number of cells are data.
// The PDF reader reports malformed documents by panicking; those panics come
// back as errors.
func (p *TextPDF) ExtractTable(data []byte, pageIndex int) (t *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	if n := reader.NumPage(); n <= pageIndex {
		return nil, fmt.Errorf("%w: document has %d pages", ErrNoTable, n)
	}

	page := reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return nil, fmt.Errorf("%w: page %d is empty", ErrNoTable, pageIndex+1)
	}

	lines := make([][]string, 0)
	for _, row := range p.rows(page.Content().Text) {
		if cells := p.cells(row); len(cells) > 0 {
			lines = append(lines, cells)
		}
	}

	return tableFromLines(lines)
}

// rows groups glyphs into lines, top of the page first. Glyphs whose
// baselines differ by at most RowTolerance share a line.
func (p *TextPDF) rows(texts []pdf.Text) [][]pdf.Text {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows [][]pdf.Text
	for _, t := range sorted {
		last := len(rows) - 1
		if last >= 0 && rows[last][0].Y-t.Y <= p.RowTolerance {
			rows[last] = append(rows[last], t)
			continue
		}
		rows = append(rows, []pdf.Text{t})
	}
	return rows
}

// cells splits one row of positioned text into cell strings
func (p *TextPDF) cells(texts []pdf.Text) []string {
	sorted := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []string
	var current strings.Builder
	prevEnd := 0.0

	for i, t := range sorted {
		if i > 0 && t.X-prevEnd > p.MinGap {
			if cell := strings.TrimSpace(current.String()); cell != "" {
				cells = append(cells, cell)
			}
			current.Reset()
		}
		current.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if cell := strings.TrimSpace(current.String()); cell != "" {
		cells = append(cells, cell)
	}

	return cells
}

// tableFromLines takes the first line with two or more cells as the header
// and keeps the following lines of the same width.
func tableFromLines(lines [][]string) (*Table, error) {
	start := -1
	for i, line := range lines {
		if len(line) >= 2 {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrNoTable
	}

	header := lines[start]
	t := &Table{Columns: header}
	for _, line := range lines[start+1:] {
		if len(line) != len(header) {
			continue
		}
		row := make([]any, len(line))
		for i, cell := range line {
			row[i] = cell
		}
		t.Rows = append(t.Rows, row)
	}

	if len(t.Rows) == 0 {
		return nil, ErrNoTable
	}
	return t, nil
}
