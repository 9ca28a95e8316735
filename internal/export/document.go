package export

import "github.com/fkhayef/grpprotocol/internal/mention"

// Kind tags an Element
type Kind int

const (
	KindTitle Kind = iota
	KindParagraph
	KindHeading
	KindSpacer
	KindPageBreak
	KindTable
	KindRichText
	KindTOCPlaceholder
	KindTOCEntry
)

// Element is one block of the document in reading order
type Element struct {
	Kind   Kind
	Text   string
	Level  int     // headings: 1..3
	Height float64 // spacers, in mm
	Table  *Table

	Segments []mention.Segment // rich text
}

// Table is a simple grid with a styled header row
type Table struct {
	Header []string
	Rows   [][]string
	Widths []float64 // mm; zero means share the page width evenly
}

// Document is the ordered element list handed to a Renderer. The table of
// contents is only known after all items are laid out, so Build reserves a
// placeholder and SpliceTOC fills it.
type Document struct {
	Elements []Element
	toc      []string
	tocAt    int
}

func (d *Document) add(e Element) { d.Elements = append(d.Elements, e) }

func (d *Document) reserveTOC() {
	d.tocAt = len(d.Elements)
	d.add(Element{Kind: KindTOCPlaceholder})
}

func (d *Document) recordTOC(entry string) { d.toc = append(d.toc, entry) }

// SpliceTOC replaces the placeholder with the heading and the recorded
// entries. Calling it twice is a no-op.
func (d *Document) SpliceTOC() {
	if d.tocAt < 0 || d.tocAt >= len(d.Elements) || d.Elements[d.tocAt].Kind != KindTOCPlaceholder {
		return
	}
	block := []Element{
		{Kind: KindHeading, Level: 2, Text: "Inhaltsverzeichnis"},
		{Kind: KindSpacer, Height: 4},
	}
	for _, entry := range d.toc {
		block = append(block, Element{Kind: KindTOCEntry, Text: entry})
	}

	out := make([]Element, 0, len(d.Elements)+len(block)-1)
	out = append(out, d.Elements[:d.tocAt]...)
	out = append(out, block...)
	out = append(out, d.Elements[d.tocAt+1:]...)
	d.Elements = out
	d.tocAt = -1
}

// TOC returns the entries in the order they were recorded
func (d *Document) TOC() []string {
	out := make([]string, len(d.toc))
	copy(out, d.toc)
	return out
}

// Count returns how many elements of kind k the document holds
func (d *Document) Count(k Kind) int {
	n := 0
	for _, e := range d.Elements {
		if e.Kind == k {
			n++
		}
	}
	return n
}
