package geometry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/poimatch-go/internal/feature"
	"github.com/wegman-software/poimatch-go/internal/phase"
	"github.com/wegman-software/poimatch-go/internal/poi"
)

var (
	clock    = time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	defaults = Defaults{User: "osm_poi_matchmaker", UID: 8635934, Version: 99999}
)

func newResolver(lookup feature.Lookup) (*Resolver, *IDAllocator, *MemberCache) {
	ids := NewIDAllocator()
	members := NewMemberCache()
	return NewResolver(ids, members, lookup, defaults, func() time.Time { return clock }), ids, members
}

func storeWithNodes(ids ...int64) *feature.MemoryStore {
	store := feature.NewMemoryStore()
	for _, id := range ids {
		store.Put(&feature.Feature{
			Kind:    osm.TypeNode,
			ID:      id,
			Version: 3,
			User:    "mapper",
			UID:     12,
			Lat:     47.5,
			Lon:     19.05,
			Tags:    map[string]string{"entrance": "yes"},
		})
	}
	return store
}

func wayRecord(wayID int64, nodes ...osm.NodeID) *poi.Record {
	return &poi.Record{
		Code: "humolfu",
		Lat:  47.5,
		Lon:  19.05,
		Match: &poi.Match{Feature: &feature.Feature{
			Kind:  osm.TypeWay,
			ID:    wayID,
			Nodes: nodes,
		}},
	}
}

func TestIDAllocator(t *testing.T) {
	a := NewIDAllocator()
	for want := int64(-1); want >= -5; want-- {
		if got := a.Next(); got != want {
			t.Errorf("Next() = %d, want %d", got, want)
		}
	}

	mark := a.Peek()
	a.Next()
	a.Next()
	a.Rewind(mark)
	if got := a.Next(); got != -6 {
		t.Errorf("Next() after Rewind = %d, want -6", got)
	}

	a.Rewind(-1)
	if got := a.Peek(); got != -1 {
		t.Errorf("Peek() after Rewind(-1) = %d, want -1", got)
	}
	a.Rewind(5)
	if got := a.Peek(); got != -1 {
		t.Errorf("Rewind to a positive id should be ignored, Peek() = %d", got)
	}
}

func TestResolveNewNodesGetSequentialIDs(t *testing.T) {
	r, _, _ := newResolver(nil)

	for i := 1; i <= 4; i++ {
		res, pr := r.Resolve(context.Background(), &poi.Record{Code: "x", Lat: 47, Lon: 19})
		require.Equal(t, phase.OK, pr.Status)
		assert.Equal(t, int64(-i), res.Element.ID)
		assert.Equal(t, osm.TypeNode, res.Element.Kind)
		assert.Equal(t, ActionModify, res.Element.Action)
		assert.Equal(t, "osm_poi_matchmaker", res.Element.User)
		assert.Equal(t, int64(8635934), res.Element.UID)
		assert.Equal(t, 99999, res.Element.Version)
		assert.Equal(t, clock, res.Element.Timestamp)
	}
}

func TestResolveMatchedNodeKeepsID(t *testing.T) {
	r, ids, _ := newResolver(nil)
	edited := time.Date(2021, 5, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	rec := &poi.Record{
		Code: "humolfu",
		Lat:  47.1,
		Lon:  19.2,
		Match: &poi.Match{Feature: &feature.Feature{
			ID:        123,
			Version:   4,
			User:      "someone",
			UID:       99,
			Timestamp: edited,
		}},
	}
	res, pr := r.Resolve(context.Background(), rec)
	require.Equal(t, phase.OK, pr.Status)

	el := res.Element
	assert.Equal(t, osm.TypeNode, el.Kind)
	assert.Equal(t, int64(123), el.ID)
	assert.Equal(t, "n123", el.Ref())
	assert.Equal(t, 4, el.Version)
	assert.Equal(t, "someone", el.User)
	assert.Equal(t, int64(99), el.UID)
	assert.Equal(t, edited.UTC(), el.Timestamp)
	assert.Equal(t, 47.1, el.Lat)
	assert.Equal(t, 19.2, el.Lon)
	assert.Equal(t, int64(-1), ids.Peek(), "matched records must not consume placeholder ids")
}

func TestResolveInvalidCoordinates(t *testing.T) {
	r, ids, _ := newResolver(nil)

	for _, rec := range []*poi.Record{
		{Code: "nan", Lat: math.NaN(), Lon: 19},
		{Code: "inf", Lat: 47, Lon: math.Inf(1)},
		{Code: "range", Lat: 91, Lon: 19},
	} {
		res, pr := r.Resolve(context.Background(), rec)
		assert.Equal(t, phase.Failed, pr.Status, rec.Code)
		assert.True(t, errors.Is(pr.Err, ErrInvalidCoordinates), rec.Code)
		assert.Nil(t, res.Element, rec.Code)
	}
	assert.Equal(t, int64(-1), ids.Peek())
}

func TestResolveWayMaterializesMembers(t *testing.T) {
	r, _, members := newResolver(storeWithNodes(1, 2, 3))

	res, pr := r.Resolve(context.Background(), wayRecord(10, 1, 2, 3, 1))
	require.Equal(t, phase.OK, pr.Status)

	el := res.Element
	assert.Equal(t, osm.TypeWay, el.Kind)
	assert.Equal(t, "w10", el.Ref())
	assert.Equal(t, []osm.NodeID{1, 2, 3, 1}, el.Nodes)
	assert.Equal(t, []osm.NodeID{1, 2, 3}, res.Pending)
	require.Len(t, res.Materialized, 3)

	n := res.Materialized[0]
	assert.Empty(t, n.Action)
	assert.Equal(t, int64(1), n.ID)
	assert.Equal(t, "mapper", n.User)
	assert.Equal(t, 3, n.Version)
	assert.Equal(t, osm.Tags{{Key: "entrance", Value: "yes"}}, n.Tags)

	assert.Equal(t, 0, members.Len(), "cache is committed by the builder")
}

func TestResolveWaySkipsCachedMembers(t *testing.T) {
	r, _, members := newResolver(storeWithNodes(1, 2, 3, 4))

	first, _ := r.Resolve(context.Background(), wayRecord(10, 1, 2, 3))
	members.Add(first.Pending...)

	second, pr := r.Resolve(context.Background(), wayRecord(11, 3, 4))
	require.Equal(t, phase.OK, pr.Status)
	require.Len(t, second.Materialized, 1)
	assert.Equal(t, int64(4), second.Materialized[0].ID)
	assert.Equal(t, []osm.NodeID{3, 4}, second.Element.Nodes)
}

func TestResolveWayLookupMiss(t *testing.T) {
	r, _, _ := newResolver(storeWithNodes(1))

	res, pr := r.Resolve(context.Background(), wayRecord(10, 1, 2))
	require.Equal(t, phase.OK, pr.Status)
	assert.Equal(t, []osm.NodeID{1, 2}, res.Element.Nodes)
	assert.Equal(t, []osm.NodeID{1, 2}, res.Pending)
	require.Len(t, res.Materialized, 1)
	assert.Equal(t, int64(1), res.Materialized[0].ID)
}

func TestResolveWayLookupError(t *testing.T) {
	failing := feature.LookupFunc(func(context.Context, int64, osm.Type) (*feature.Feature, error) {
		return nil, errors.New("connection refused")
	})
	r, _, _ := newResolver(failing)

	res, pr := r.Resolve(context.Background(), wayRecord(10, 1, 2))
	require.Equal(t, phase.OK, pr.Status)
	assert.Empty(t, res.Materialized)
	assert.Equal(t, []osm.NodeID{1, 2}, res.Element.Nodes)
}

func TestResolveMissingMembers(t *testing.T) {
	r, _, _ := newResolver(nil)

	res, pr := r.Resolve(context.Background(), wayRecord(10))
	assert.Equal(t, phase.Partial, pr.Status)
	assert.True(t, errors.Is(pr.Err, ErrMissingMembers))
	require.NotNil(t, res.Element)
	assert.Equal(t, int64(10), res.Element.ID)
	assert.Empty(t, res.Element.Nodes)

	rel := &poi.Record{Code: "r", Match: &poi.Match{Feature: &feature.Feature{Kind: osm.TypeRelation, ID: 5}}}
	res, pr = r.Resolve(context.Background(), rel)
	assert.Equal(t, phase.Partial, pr.Status)
	assert.Equal(t, "missing nodes on this element", pr.Err.Error())
	assert.Equal(t, "r5", res.Element.Ref())
}

func TestResolveRelationMembers(t *testing.T) {
	r, _, _ := newResolver(nil)

	rec := &poi.Record{
		Code: "r",
		Match: &poi.Match{Feature: &feature.Feature{
			Kind: osm.TypeRelation,
			ID:   7,
			Members: osm.Members{
				{Type: osm.TypeWay, Ref: 100, Role: "outer"},
				{Type: osm.TypeWay, Ref: 101, Role: "inner"},
				{Type: osm.TypeNode, Ref: 5, Role: ""},
			},
		}},
	}

	res, pr := r.Resolve(context.Background(), rec)
	require.Equal(t, phase.OK, pr.Status)
	assert.Equal(t, []Member{
		{Type: osm.TypeWay, Ref: 100, Role: "outer"},
		{Type: osm.TypeWay, Ref: 101, Role: "inner"},
		{Type: osm.TypeNode, Ref: 5, Role: ""},
	}, res.Element.Members)
	assert.Empty(t, res.Materialized)
}
