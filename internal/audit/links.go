package audit

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/paulmach/osm"

	"github.com/wegman-software/poimatch-go/internal/poi"
	"github.com/wegman-software/poimatch-go/internal/tagger"
)

const josmRemote = "http://localhost:8111/load_object"

// OSMLink returns the osm.org browse URL of an existing element
func OSMLink(kind osm.Type, id int64) string {
	if kind == "" {
		kind = osm.TypeNode
	}
	return fmt.Sprintf("https://osm.org/%s/%d", kind, id)
}

// JOSMLink builds the remote-control URL that loads the element and applies
// the final tags in one click
func JOSMLink(ref string, tags tagger.Tags) string {
	var b strings.Builder
	for _, k := range tags.Keys() {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(tags[k])
	}
	return fmt.Sprintf("%s?new_layer=false&objects=%s&addtags=%s", josmRemote, ref, encodeTags(b.String()))
}

// encodeTags percent-encodes the tag list, leaving unreserved characters and
// "/" as they are. "--" is encoded too so the link can live inside an XML
// comment.
func encodeTags(s string) string {
	enc := strings.NewReplacer("+", "%20", "%2F", "/").Replace(url.QueryEscape(s))
	return strings.ReplaceAll(enc, "--", "%2D%2D")
}

// SeedLine renders the regression-test seed of a record as a JSON object
func SeedLine(rec *poi.Record) (string, error) {
	b, err := json.Marshal(rec.Seed())
	if err != nil {
		return "", fmt.Errorf("marshal test seed: %w", err)
	}
	return string(b), nil
}
