package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/fkhayef/grpprotocol/internal/mention"
)

const (
	DateLayout      = "02.01.2006"
	TimestampLayout = "02.01.2006 15:04"
	emptyValue      = "Keine Details"
)

// Attendee is one presence row as printed in the attendance table
type Attendee struct {
	Name    string
	Present bool
}

// Item is one protocol item; Items must already be in position order
type Item struct {
	Name  string
	Value string
}

// Source is everything the pipeline needs to render a protocol. It is built
// from a stored protocol or, for previews, from an unsaved one.
type Source struct {
	GroupName    string
	GroupAddress string
	ProtocolDate time.Time
	GeneratedAt  time.Time
	Attendees    []Attendee
	Items        []Item
}

// Builder lays out a Source as a Document
type Builder struct{}

// Build creates the cover, table of contents, attendance and items sections.
// Item order is taken from src as given.
func (Builder) Build(src Source) *Document {
	doc := &Document{tocAt: -1}
	generated := src.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	doc.add(Element{Kind: KindTitle, Text: "Protokoll für die Gruppe " + src.GroupName})
	doc.add(Element{Kind: KindParagraph, Text: "Datum: " + src.ProtocolDate.Format(DateLayout)})
	doc.add(Element{Kind: KindParagraph, Text: "Erstellt am: " + generated.Format(TimestampLayout)})
	doc.add(Element{Kind: KindSpacer, Height: 6})
	doc.add(Element{Kind: KindHeading, Level: 3, Text: "Gruppeninfo"})
	doc.add(Element{Kind: KindParagraph, Text: src.GroupName})
	if src.GroupAddress != "" {
		doc.add(Element{Kind: KindParagraph, Text: src.GroupAddress})
	}
	doc.add(Element{Kind: KindPageBreak})

	doc.reserveTOC()
	doc.add(Element{Kind: KindPageBreak})

	table := &Table{Header: []string{"Mitarbeiter", "Anwesend?"}, Widths: []float64{120, 40}}
	for _, a := range src.Attendees {
		present := "Nein"
		if a.Present {
			present = "Ja"
		}
		table.Rows = append(table.Rows, []string{a.Name, present})
	}
	doc.add(Element{Kind: KindHeading, Level: 2, Text: "Anwesenheitsliste"})
	doc.add(Element{Kind: KindSpacer, Height: 3})
	doc.add(Element{Kind: KindTable, Table: table})
	doc.add(Element{Kind: KindPageBreak})

	doc.add(Element{Kind: KindHeading, Level: 2, Text: "Protokollpunkte"})
	for i, item := range src.Items {
		entry := fmt.Sprintf("%d. %s", i+1, item.Name)
		doc.recordTOC(entry)
		doc.add(Element{Kind: KindHeading, Level: 3, Text: entry})
		if strings.TrimSpace(item.Value) == "" {
			doc.add(Element{Kind: KindParagraph, Text: emptyValue})
		} else {
			value := strings.ReplaceAll(item.Value, "\r\n", "\n")
			doc.add(Element{Kind: KindRichText, Text: value, Segments: mention.Split(value)})
		}
		doc.add(Element{Kind: KindSpacer, Height: 3})
	}

	doc.SpliceTOC()
	return doc
}
