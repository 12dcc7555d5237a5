package changeset

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/osm"

	"github.com/wegman-software/poimatch-go/internal/geometry"
)

const timestampLayout = "2006-01-02T15:04:05Z"

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type xmlNd struct {
	Ref int64 `xml:"ref,attr"`
}

type xmlMember struct {
	Type string `xml:"type,attr"`
	Ref  int64  `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

type xmlNode struct {
	XMLName   xml.Name `xml:"node"`
	Action    string   `xml:"action,attr,omitempty"`
	ID        int64    `xml:"id,attr"`
	Lat       string   `xml:"lat,attr"`
	Lon       string   `xml:"lon,attr"`
	User      string   `xml:"user,attr"`
	UID       int64    `xml:"uid,attr"`
	Version   int      `xml:"version,attr"`
	Timestamp string   `xml:"timestamp,attr"`
	Tags      []xmlTag `xml:"tag"`
}

type xmlWay struct {
	XMLName   xml.Name `xml:"way"`
	Action    string   `xml:"action,attr,omitempty"`
	ID        int64    `xml:"id,attr"`
	User      string   `xml:"user,attr"`
	UID       int64    `xml:"uid,attr"`
	Version   int      `xml:"version,attr"`
	Timestamp string   `xml:"timestamp,attr"`
	Nodes     []xmlNd  `xml:"nd"`
	Tags      []xmlTag `xml:"tag"`
}

type xmlRelation struct {
	XMLName   xml.Name    `xml:"relation"`
	Action    string      `xml:"action,attr,omitempty"`
	ID        int64       `xml:"id,attr"`
	User      string      `xml:"user,attr"`
	UID       int64       `xml:"uid,attr"`
	Version   int         `xml:"version,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Members   []xmlMember `xml:"member"`
	Tags      []xmlTag    `xml:"tag"`
}

// Encode writes the document as indented OSM XML. Comments are written as
// comment tokens in document order.
func Encode(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(bw)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "osm"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "version"}, Value: Version},
			{Name: xml.Name{Local: "generator"}, Value: doc.Generator},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}

	for _, c := range doc.Header {
		if err := enc.EncodeToken(xml.Comment(SanitizeComment(c))); err != nil {
			return err
		}
	}

	for i, e := range doc.Entries {
		if e.IsComment() {
			if err := enc.EncodeToken(xml.Comment(SanitizeComment(e.Comment))); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			continue
		}
		if err := enc.Encode(toXML(e.Element)); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, e.Element.Ref(), err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// SanitizeComment makes text legal inside <!-- -->
func SanitizeComment(text string) string {
	for strings.Contains(text, "--") {
		text = strings.ReplaceAll(text, "--", "- -")
	}
	if strings.HasSuffix(text, "-") {
		text += " "
	}
	return text
}

func toXML(el *geometry.Element) interface{} {
	ts := el.Timestamp.UTC().Format(timestampLayout)
	tags := make([]xmlTag, 0, len(el.Tags))
	for _, t := range el.Tags {
		tags = append(tags, xmlTag{K: t.Key, V: t.Value})
	}

	switch el.Kind {
	case osm.TypeWay:
		nodes := make([]xmlNd, 0, len(el.Nodes))
		for _, n := range el.Nodes {
			nodes = append(nodes, xmlNd{Ref: int64(n)})
		}
		return xmlWay{
			Action: el.Action, ID: el.ID,
			User: el.User, UID: el.UID, Version: el.Version, Timestamp: ts,
			Nodes: nodes, Tags: tags,
		}
	case osm.TypeRelation:
		members := make([]xmlMember, 0, len(el.Members))
		for _, m := range el.Members {
			members = append(members, xmlMember{Type: string(m.Type), Ref: m.Ref, Role: m.Role})
		}
		return xmlRelation{
			Action: el.Action, ID: el.ID,
			User: el.User, UID: el.UID, Version: el.Version, Timestamp: ts,
			Members: members, Tags: tags,
		}
	default:
		return xmlNode{
			Action: el.Action, ID: el.ID,
			Lat: formatCoord(el.Lat), Lon: formatCoord(el.Lon),
			User: el.User, UID: el.UID, Version: el.Version, Timestamp: ts,
			Tags: tags,
		}
	}
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
