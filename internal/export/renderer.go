package export

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// DejaVu Sans covers Latin, Greek and Cyrillic. CJK and emoji glyphs are not
// in the font and print as blanks.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)

const fontFamily = "DejaVu"

// Renderer paginates a Document into PDF bytes
type Renderer interface {
	Render(doc *Document) ([]byte, error)
}

// PDFRenderer renders A4 portrait pages with an embedded UTF-8 font.
type PDFRenderer struct {
	Title string
}

const (
	pageMargin = 20.0
	lineHeight = 6.0
)

func (r PDFRenderer) Render(doc *Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)

	pdf.SetTitle(r.Title, true)
	pdf.SetCreator("grpprotocol", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Seite %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin

	for _, e := range doc.Elements {
		switch e.Kind {
		case KindTitle:
			pdf.SetFont(fontFamily, "B", 20)
			pdf.MultiCell(0, 10, e.Text, "", "C", false)
			pdf.Ln(4)
		case KindHeading:
			pdf.SetFont(fontFamily, "B", headingSize(e.Level))
			pdf.MultiCell(0, 8, e.Text, "", "L", false)
			pdf.Ln(1)
		case KindParagraph:
			pdf.SetFont(fontFamily, "", 11)
			pdf.MultiCell(0, lineHeight, e.Text, "", "L", false)
		case KindRichText:
			for _, seg := range e.Segments {
				style := ""
				if seg.Mention {
					style = "BU"
				}
				pdf.SetFont(fontFamily, style, 11)
				pdf.Write(lineHeight, seg.Text)
			}
			pdf.SetFont(fontFamily, "", 11)
			pdf.Ln(lineHeight)
		case KindTOCEntry:
			pdf.SetFont(fontFamily, "", 11)
			pdf.CellFormat(0, 7, e.Text, "", 1, "L", false, 0, "")
		case KindSpacer:
			pdf.Ln(e.Height)
		case KindPageBreak:
			pdf.AddPage()
		case KindTable:
			drawTable(pdf, e.Table, contentWidth)
		case KindTOCPlaceholder:
			// not spliced; nothing to draw
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to render pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 14
	default:
		return 12
	}
}

// drawTable prints a grey header row with white bold text, then body rows
// with alternating shading.
func drawTable(pdf *fpdf.Fpdf, t *Table, contentWidth float64) {
	if t == nil || len(t.Header) == 0 {
		return
	}
	widths := t.Widths
	if len(widths) != len(t.Header) {
		widths = make([]float64, len(t.Header))
		for i := range widths {
			widths[i] = contentWidth / float64(len(t.Header))
		}
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "B", 11)
	for i, h := range t.Header {
		pdf.CellFormat(widths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFamily, "", 11)
	for n, row := range t.Rows {
		if n%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(235, 235, 235)
		}
		for i := range t.Header {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(widths[i], 8, cell, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
}
