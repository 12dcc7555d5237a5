package changeset

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wegman-software/poimatch-go/internal/audit"
	"github.com/wegman-software/poimatch-go/internal/config"
	"github.com/wegman-software/poimatch-go/internal/feature"
	"github.com/wegman-software/poimatch-go/internal/logger"
	"github.com/wegman-software/poimatch-go/internal/phase"
	"github.com/wegman-software/poimatch-go/internal/poi"
	"github.com/wegman-software/poimatch-go/internal/tagger"
)

var clock = time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)

func testBuilder(lookup feature.Lookup) *Builder {
	cfg := config.DefaultConfig()
	topts := tagger.OptionsFromConfig(cfg.Tagging)
	topts.Now = func() time.Time { return clock }
	return NewBuilder(Options{
		Identity: cfg.Identity,
		Engine:   tagger.NewEngine(topts),
		Lookup:   lookup,
		RunID:    "run-1",
		Now:      func() time.Time { return clock },
	})
}

func newPOI(code string, lat, lon float64) poi.Record {
	return poi.Record{
		Code:       code,
		Name:       "MOL",
		Lat:        lat,
		Lon:        lon,
		CommonTags: map[string]string{"amenity": "fuel", "brand": "MOL"},
		New:        true,
	}
}

func wayPOI(code string, wayID int64, nodes ...osm.NodeID) poi.Record {
	rec := newPOI(code, 47.5, 19.05)
	rec.New = false
	rec.Match = &poi.Match{Feature: &feature.Feature{
		Kind:    osm.TypeWay,
		ID:      wayID,
		Version: 2,
		Nodes:   nodes,
		Tags:    map[string]string{"amenity": "fuel", "building": "yes"},
	}}
	return rec
}

func nodeStore(ids ...int64) *feature.MemoryStore {
	store := feature.NewMemoryStore()
	for _, id := range ids {
		store.Put(&feature.Feature{Kind: osm.TypeNode, ID: id, Lat: 47.5, Lon: 19.05})
	}
	return store
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestBuildNewPOIsGetSequentialIDs(t *testing.T) {
	records := []poi.Record{
		newPOI("a", 47.1, 19.1),
		newPOI("b", 47.2, 19.2),
		newPOI("c", 47.3, 19.3),
	}

	doc, report := testBuilder(nil).Build(context.Background(), records)
	require.NoError(t, report.Err)
	assert.Equal(t, 3, report.OK)

	var ids []int64
	for _, el := range doc.Elements() {
		ids = append(ids, el.ID)
	}
	assert.Equal(t, []int64{-1, -2, -3}, ids)
}

func TestBuildOrderAnnotationsBeforeElement(t *testing.T) {
	doc, _ := testBuilder(nodeStore(1, 2)).Build(context.Background(), []poi.Record{
		newPOI("a", 47.1, 19.1),
		wayPOI("w", 10, 1, 2, 1),
	})

	var kinds []string
	for _, e := range doc.Entries {
		if e.IsComment() {
			if len(kinds) == 0 || kinds[len(kinds)-1] != "comment" {
				kinds = append(kinds, "comment")
			}
			continue
		}
		kinds = append(kinds, e.Element.Ref())
	}
	assert.Equal(t, []string{"comment", "n-1", "comment", "w10", "n1", "n2"}, kinds)
}

func TestBuildMemberDeduplication(t *testing.T) {
	doc, report := testBuilder(nodeStore(1, 2, 3, 4)).Build(context.Background(), []poi.Record{
		wayPOI("w1", 10, 1, 2, 3, 1),
		wayPOI("w2", 11, 3, 4, 3),
	})
	require.NoError(t, report.Err)

	count := map[int64]int{}
	for _, el := range doc.Elements() {
		if el.Kind == osm.TypeNode {
			count[el.ID]++
		}
	}
	assert.Equal(t, map[int64]int{1: 1, 2: 1, 3: 1, 4: 1}, count)
	assert.Equal(t, 6, report.Elements)
}

func TestBuildDroppedRecordDoesNotClaimMembers(t *testing.T) {
	bad := wayPOI("bad", 10, 1, 2)
	bad.Lat = math.NaN()

	doc, report := testBuilder(nodeStore(1, 2)).Build(context.Background(), []poi.Record{
		bad,
		wayPOI("good", 11, 1, 2),
	})
	assert.Equal(t, 1, report.Dropped)

	var refs []string
	for _, el := range doc.Elements() {
		refs = append(refs, el.Ref())
	}
	assert.Equal(t, []string{"w11", "n1", "n2"}, refs)
}

func TestBuildPartialFailureContainment(t *testing.T) {
	logs := observe(t)

	records := []poi.Record{
		newPOI("a", 47.1, 19.1),
		newPOI("broken", math.NaN(), 19.2),
		newPOI("c", 47.3, 19.3),
	}
	doc, report := testBuilder(nil).Build(context.Background(), records)

	require.NoError(t, report.Err)
	assert.Equal(t, 2, report.OK)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, phase.Failed, report.Records[1].Status)
	assert.Equal(t, "broken", report.Records[1].Code)

	var ids []int64
	for _, el := range doc.Elements() {
		ids = append(ids, el.ID)
	}
	assert.Equal(t, []int64{-1, -2}, ids)

	dropped := logs.FilterMessage("Record dropped").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, int64(1), dropped[0].ContextMap()["index"])
	assert.Equal(t, "broken", dropped[0].ContextMap()["code"])
}

func TestBuildOutsideBBoxIsDropped(t *testing.T) {
	b := testBuilder(nil)
	b.opts.BBox = &config.BBox{MinLon: 16, MinLat: 45.7, MaxLon: 22.9, MaxLat: 48.6, IsSet: true}

	doc, report := b.Build(context.Background(), []poi.Record{
		newPOI("in", 47.5, 19.0),
		newPOI("out", 52.5, 13.4),
	})
	assert.Equal(t, 1, report.Dropped)
	assert.Len(t, doc.Elements(), 1)
}

func TestBuildMissingWayNodesIsPartial(t *testing.T) {
	doc, report := testBuilder(nil).Build(context.Background(), []poi.Record{wayPOI("w", 10)})

	require.NoError(t, report.Err)
	assert.Equal(t, 1, report.Partial)
	assert.Equal(t, phase.Partial, report.Records[0].Status)
	assert.Contains(t, strings.Join(report.Records[0].Reasons, "\n"), "missing nodes on this element")
	require.Len(t, doc.Elements(), 1)
	assert.Equal(t, "w10", doc.Elements()[0].Ref())
}

func TestBuildForbiddenTagNeverSerialized(t *testing.T) {
	rec := newPOI("a", 47.1, 19.1)
	rec.CommonTags["addr:country"] = "HU"
	way := wayPOI("w", 10, 1)
	way.Match.Feature.Tags["addr:country"] = "HU"

	doc, _ := testBuilder(nodeStore(1)).Build(context.Background(), []poi.Record{rec, way})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.NotContains(t, buf.String(), `k="addr:country"`)
}

func TestBuildDiffClassification(t *testing.T) {
	rec := wayPOI("w", 10, 1)
	rec.CommonTags = map[string]string{"amenity": "fuel", "brand": "MOL"}

	sink := &memorySink{}
	b := testBuilder(nodeStore(1))
	b.opts.Audit = sink

	_, report := b.Build(context.Background(), []poi.Record{rec})
	require.Equal(t, 1, report.OK)

	status := map[string]audit.Status{}
	for _, l := range sink.lines["w10"] {
		status[l.Key] = l.Status
	}
	assert.Equal(t, audit.StatusMatch, status["amenity"])
	assert.Equal(t, audit.StatusNew, status["brand"])
	assert.Equal(t, audit.StatusMatch, status["building"])
}

func TestBuildInvalidIdentity(t *testing.T) {
	logs := observe(t)

	b := testBuilder(nil)
	b.opts.Identity.User = ""

	doc, report := b.Build(context.Background(), []poi.Record{newPOI("a", 47, 19)})
	assert.True(t, errors.Is(report.Err, ErrInvalidValue))
	assert.Empty(t, doc.Elements())
	assert.NotEmpty(t, doc.Header)
	assert.Equal(t, 1, logs.FilterMessage("Batch aborted").Len())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.Contains(t, buf.String(), `<osm version="0.6" generator="JOSM">`)
}

func TestBuildCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, report := testBuilder(nil).Build(ctx, []poi.Record{newPOI("a", 47, 19)})
	assert.True(t, errors.Is(report.Err, ErrProcessing))
	assert.Empty(t, doc.Elements())
}

func TestBuildProgress(t *testing.T) {
	b := testBuilder(nil)
	b.Build(context.Background(), []poi.Record{
		newPOI("a", 47, 19),
		newPOI("b", math.Inf(1), 19),
	})
	assert.Equal(t, int64(2), b.Progress().Processed())
	assert.Equal(t, int64(1), b.Progress().Dropped())
	assert.Equal(t, int64(1), b.Progress().Elements())
}

type memorySink struct {
	lines map[string][]audit.DiffLine
}

func (s *memorySink) Write(ref string, lines []audit.DiffLine) error {
	if s.lines == nil {
		s.lines = map[string][]audit.DiffLine{}
	}
	s.lines[ref] = append(s.lines[ref], lines...)
	return nil
}
