package table

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ledongthuc/pdf"
	"github.com/ppiankov/quizrunner/internal/model"
)

// buildPDF writes a minimal document with one page per content stream. All
// pages share a Helvetica font whose glyphs are 500 units wide.
func buildPDF(pages ...string) []byte {
	widths := strings.TrimSpace(strings.Repeat("500 ", 95))

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>",
	}
	for i, content := range pages {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

const coverPage = "BT /F1 18 Tf 72 720 Td (Quarterly data) Tj ET"

const tmTable = "BT /F1 12 Tf " +
	"1 0 0 1 72 700 Tm (name) Tj 1 0 0 1 222 700 Tm (Value) Tj " +
	"1 0 0 1 72 680 Tm (a) Tj 1 0 0 1 222 680 Tm (10) Tj " +
	"1 0 0 1 72 660 Tm (b) Tj 1 0 0 1 222 660 Tm (2.5) Tj ET"

const tdTable = "BT /F1 12 Tf 72 700 Td (name) Tj 150 0 Td (Value) Tj " +
	"-150 -20 Td (a) Tj 150 0 Td (10) Tj " +
	"-150 -20 Td (b) Tj 150 0 Td (2.5) Tj ET"

func TestTextPDF_TableOnSecondPage(t *testing.T) {
	tests := map[string]string{
		"text matrix":    tmTable,
		"line positions": tdTable,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			tbl, err := NewParser(NewTextPDF()).Parse(buildPDF(coverPage, content), model.FormatPDF)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff([]string{"name", "Value"}, tbl.Columns); diff != "" {
				t.Errorf("columns mismatch (-want +got):\n%s", diff)
			}
			sum, ok := tbl.SumColumn("value")
			if !ok || sum != 12.5 {
				t.Errorf("expected 12.5, got %v %v", sum, ok)
			}
		})
	}
}

func TestTextPDF_FirstPageIgnored(t *testing.T) {
	_, err := NewTextPDF().ExtractTable(buildPDF(tmTable), PDFTablePage)
	if !errors.Is(err, ErrNoTable) {
		t.Errorf("expected ErrNoTable for single-page document, got %v", err)
	}

	_, err = NewTextPDF().ExtractTable(buildPDF(tmTable, coverPage), PDFTablePage)
	if !errors.Is(err, ErrNoTable) {
		t.Errorf("expected ErrNoTable when page two has no table, got %v", err)
	}
}

func TestTextPDF_CorruptObjectIsError(t *testing.T) {
	data := buildPDF(coverPage, tmTable)
	// Same length, so the xref offsets stay valid but object 1 is garbage
	data = bytes.Replace(data, []byte("1 0 obj"), []byte("42 garb"), 1)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic escaped ExtractTable: %v", r)
			}
		}()
		_, err = NewParser(NewTextPDF()).Parse(data, model.FormatPDF)
	}()

	if !errors.Is(err, model.ErrParse) {
		t.Errorf("expected parse failure, got %v", err)
	}
}

func TestTextPDF_RowsTopFirst(t *testing.T) {
	p := NewTextPDF()
	texts := []pdf.Text{
		{S: "1", X: 72, Y: 680, W: 6},
		{S: "Value", X: 150, Y: 700.5, W: 30},
		{S: "x", X: 72, Y: 700, W: 6},
		{S: "2", X: 150, Y: 681, W: 6},
	}

	var got [][]string
	for _, row := range p.rows(texts) {
		got = append(got, p.cells(row))
	}

	want := [][]string{{"x", "Value"}, {"1", "2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}
