package table

import (
	"fmt"

	"github.com/ppiankov/quizrunner/internal/model"
)

// Parser turns artifact bytes into a Table according to their format.
// The PDF capability is fixed when the parser is built.
type Parser struct {
	pdf PDFExtractor
}

// NewParser creates a parser. A nil extractor disables PDF support.
func NewParser(pdf PDFExtractor) *Parser {
	if pdf == nil {
		pdf = UnsupportedPDF{}
	}
	return &Parser{pdf: pdf}
}

// NewParserFromConfig picks the PDF capability from configuration
func NewParserFromConfig(cfg *model.Config) *Parser {
	if cfg.Artifacts.PDF {
		return NewParser(NewTextPDF())
	}
	return NewParser(UnsupportedPDF{})
}

// Supports reports whether format can be parsed at all
func (p *Parser) Supports(format model.ArtifactFormat) bool {
	switch format {
	case model.FormatCSV, model.FormatJSON:
		return true
	case model.FormatPDF:
		return p.pdf.Supported()
	default:
		return false
	}
}

// Parse parses data as format. Failures wrap model.ErrParse.
func (p *Parser) Parse(data []byte, format model.ArtifactFormat) (*Table, error) {
	var (
		t   *Table
		err error
	)

	switch format {
	case model.FormatCSV:
		t, err = ParseCSV(data)
	case model.FormatJSON:
		t, err = ParseJSON(data)
	case model.FormatPDF:
		t, err = p.pdf.ExtractTable(data, PDFTablePage)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupported, format)
	}

	if err != nil {
		return nil, model.Fail(model.ErrParse, "", fmt.Errorf("%s: %w", format, err))
	}
	return t, nil
}
