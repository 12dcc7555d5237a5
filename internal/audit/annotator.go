// Package audit renders the reviewer-facing notes of each changeset element:
// links, match quality, a tag diff against the live feature and a test seed.
package audit

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/feature"
	"github.com/wegman-software/poimatch-go/internal/logger"
	"github.com/wegman-software/poimatch-go/internal/phase"
	"github.com/wegman-software/poimatch-go/internal/poi"
	"github.com/wegman-software/poimatch-go/internal/tagger"
)

var errNoRecord = errors.New("no record")

// Annotation is the output for one element
type Annotation struct {
	Comments []string
	Diff     []DiffLine
	Phases   []phase.Result
}

// Annotator produces the comments in a fixed order; each step is isolated
// and a failing step is left out
type Annotator struct {
	cmp Comparator
}

// NewAnnotator creates an annotator
func NewAnnotator() *Annotator {
	return &Annotator{}
}

type step struct {
	name string
	fn   func(*stepInput) (string, bool, error)
}

type stepInput struct {
	rec   *poi.Record
	kind  osm.Type
	id    int64
	final tagger.Tags
	live  tagger.Tags
	diff  []DiffLine
	cmp   Comparator
}

var steps = []step{
	{"osm link", osmLinkNote},
	{"coordinates", coordinatesNote},
	{"distance", distanceNote},
	{"checker", checkerNote},
	{"tag diff", diffNote},
	{"josm link", josmNote},
	{"test seed", seedNote},
}

// Annotate renders the notes for the element kind/id carrying final tags
func (a *Annotator) Annotate(rec *poi.Record, kind osm.Type, id int64, final, live tagger.Tags) Annotation {
	in := &stepInput{rec: rec, kind: kind, id: id, final: final, live: live, cmp: a.cmp}
	var out Annotation

	for _, s := range steps {
		var (
			text string
			ok   bool
		)
		res := phase.Run(s.name, func() error {
			var err error
			text, ok, err = s.fn(in)
			return err
		})
		out.Phases = append(out.Phases, res)
		if res.Err != nil {
			code := ""
			if rec != nil {
				code = rec.Code
			}
			logger.Get().Warn("Annotation failed",
				zap.String("annotation", s.name),
				zap.String("code", code),
				zap.Error(res.Err))
			continue
		}
		if ok {
			out.Comments = append(out.Comments, text)
		}
	}
	out.Diff = in.diff
	return out
}

func osmLinkNote(in *stepInput) (string, bool, error) {
	if in.id <= 0 {
		return "", false, nil
	}
	return " OSM link: " + OSMLink(in.kind, in.id) + " ", true, nil
}

func coordinatesNote(in *stepInput) (string, bool, error) {
	if in.rec == nil {
		return "", false, errNoRecord
	}
	return " Original coordinates: " + in.rec.Geom() + " ", true, nil
}

func distanceNote(in *stepInput) (string, bool, error) {
	if in.rec == nil {
		return "", false, errNoRecord
	}
	if m := in.rec.Match; m != nil && m.Distance != nil {
		return " OSM <-> POI distance: " + strconv.FormatFloat(*m.Distance, 'f', -1, 64) + " m", true, nil
	}
	return " OSM <-> POI distance: Non exist", true, nil
}

func checkerNote(in *stepInput) (string, bool, error) {
	if in.rec == nil {
		return "", false, errNoRecord
	}
	m := in.rec.Match
	if m == nil || m.Good == nil || m.Bad == nil {
		return "", false, nil
	}
	return fmt.Sprintf(" Checker good: %s; bad %s", *m.Good, *m.Bad), true, nil
}

func diffNote(in *stepInput) (string, bool, error) {
	in.diff = Diff(in.cmp, in.final, in.live)
	return RenderDiff(in.diff), true, nil
}

func josmNote(in *stepInput) (string, bool, error) {
	return " JOSM magic link: " + JOSMLink(feature.Ref(in.kind, in.id), in.final) + " ", true, nil
}

func seedNote(in *stepInput) (string, bool, error) {
	if in.rec == nil {
		return "", false, errNoRecord
	}
	line, err := SeedLine(in.rec)
	if err != nil {
		return "", false, err
	}
	return line, true, nil
}
