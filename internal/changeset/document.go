package changeset

import (
	"github.com/wegman-software/poimatch-go/internal/geometry"
)

// Version is the OSM XML schema version written into the document
const Version = "0.6"

// Entry is one item of the document: either a comment or an element
type Entry struct {
	Comment string
	Element *geometry.Element
}

// IsComment reports whether the entry is an annotation
func (e Entry) IsComment() bool {
	return e.Element == nil
}

// Document is the ordered changeset being assembled
type Document struct {
	Generator string
	Header    []string // comments written before every entry
	Entries   []Entry
}

// NewDocument creates an empty document
func NewDocument(generator string) *Document {
	return &Document{Generator: generator}
}

// Append adds entries in order
func (d *Document) Append(entries ...Entry) {
	d.Entries = append(d.Entries, entries...)
}

// Elements returns the elements in document order
func (d *Document) Elements() []*geometry.Element {
	var out []*geometry.Element
	for _, e := range d.Entries {
		if e.Element != nil {
			out = append(out, e.Element)
		}
	}
	return out
}

// Comments returns the annotation texts in document order
func (d *Document) Comments() []string {
	var out []string
	for _, e := range d.Entries {
		if e.IsComment() {
			out = append(out, e.Comment)
		}
	}
	return out
}
