// Package geometry decides the element kind and id of each record and
// resolves way and relation members against the feature lookup.
package geometry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/config"
	"github.com/wegman-software/poimatch-go/internal/feature"
	"github.com/wegman-software/poimatch-go/internal/logger"
	"github.com/wegman-software/poimatch-go/internal/phase"
	"github.com/wegman-software/poimatch-go/internal/poi"
)

// ActionModify marks elements the reviewer should upload
const ActionModify = "modify"

// PhaseName is the name of the geometry step in phase reports
const PhaseName = "geometry"

// ErrMissingMembers is reported when a way or relation has no member list
var ErrMissingMembers = errors.New("missing nodes on this element")

// ErrInvalidCoordinates is reported for a point without usable coordinates
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Member is one relation member
type Member struct {
	Type osm.Type
	Ref  int64
	Role string
}

// Element is one output element before tags are attached
type Element struct {
	Kind      osm.Type
	Action    string // empty for materialized members
	ID        int64
	User      string
	UID       int64
	Version   int
	Timestamp time.Time
	Lat, Lon  float64 // nodes only
	Nodes     []osm.NodeID
	Members   []Member
	Tags      osm.Tags
}

// Ref returns the short editor reference (n-1, w42, r7)
func (e *Element) Ref() string {
	return feature.Ref(e.Kind, e.ID)
}

// Resolution is the geometry of one record
type Resolution struct {
	Element      *Element
	Materialized []*Element

	// Pending are way nodes first seen by this record. The builder adds them
	// to the member cache once the record is accepted.
	Pending []osm.NodeID
}

// Defaults fill header attributes the matched feature does not carry
type Defaults struct {
	User    string
	UID     int64
	Version int
}

// DefaultsFromConfig converts the identity configuration
func DefaultsFromConfig(id config.Identity) Defaults {
	return Defaults{User: id.User, UID: id.UID, Version: id.Version}
}

// Resolver builds element headers. It shares the allocator and member cache
// of its builder and must be used from one goroutine.
type Resolver struct {
	ids      *IDAllocator
	members  *MemberCache
	lookup   feature.Lookup
	defaults Defaults
	now      func() time.Time
}

// NewResolver creates a resolver. lookup may be nil, in which case no way
// node can be materialized.
func NewResolver(ids *IDAllocator, members *MemberCache, lookup feature.Lookup, defaults Defaults, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		ids:      ids,
		members:  members,
		lookup:   lookup,
		defaults: defaults,
		now:      now,
	}
}

// Resolve decides the element for rec. A Failed result means the record
// cannot be emitted; Partial means the element is emitted with what was
// available.
func (r *Resolver) Resolve(ctx context.Context, rec *poi.Record) (Resolution, phase.Result) {
	var res Resolution
	result := phase.Run(PhaseName, func() error {
		var err error
		res, err = r.resolve(ctx, rec)
		return err
	})
	if result.Status == phase.Failed && res.Element != nil && errors.Is(result.Err, ErrMissingMembers) {
		result.Status = phase.Partial
	}
	return res, result
}

func (r *Resolver) resolve(ctx context.Context, rec *poi.Record) (Resolution, error) {
	f := rec.Feature()

	kind := osm.TypeNode
	if f != nil && f.Kind != "" {
		kind = f.Kind
	}

	switch kind {
	case osm.TypeNode:
		return r.resolveNode(rec, f)
	case osm.TypeWay:
		return r.resolveWay(ctx, f)
	case osm.TypeRelation:
		return r.resolveRelation(f)
	default:
		return Resolution{}, fmt.Errorf("unsupported element kind %q", kind)
	}
}

func (r *Resolver) resolveNode(rec *poi.Record, f *feature.Feature) (Resolution, error) {
	if !validCoordinates(rec.Lat, rec.Lon) {
		return Resolution{}, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, rec.Lat, rec.Lon)
	}

	var id int64
	if f != nil {
		id = f.ID
	} else {
		id = r.ids.Next()
	}

	el := r.header(osm.TypeNode, id, f)
	el.Lat, el.Lon = rec.Lat, rec.Lon
	return Resolution{Element: el}, nil
}

func (r *Resolver) resolveWay(ctx context.Context, f *feature.Feature) (Resolution, error) {
	el := r.header(osm.TypeWay, f.ID, f)
	res := Resolution{Element: el}
	if len(f.Nodes) == 0 {
		return res, ErrMissingMembers
	}

	el.Nodes = append([]osm.NodeID(nil), f.Nodes...)

	seen := make(map[osm.NodeID]struct{})
	for _, n := range f.Nodes {
		if r.members.Has(n) {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		res.Pending = append(res.Pending, n)

		node, err := r.lookupNode(ctx, n)
		if err != nil {
			logger.Get().Warn("Way node unavailable, reference kept",
				zap.Int64("way", f.ID),
				zap.Int64("node", int64(n)),
				zap.Error(err))
			continue
		}
		res.Materialized = append(res.Materialized, r.materialize(node))
	}
	return res, nil
}

func (r *Resolver) resolveRelation(f *feature.Feature) (Resolution, error) {
	el := r.header(osm.TypeRelation, f.ID, f)
	res := Resolution{Element: el}
	if len(f.Members) == 0 {
		return res, ErrMissingMembers
	}

	el.Members = make([]Member, 0, len(f.Members))
	for _, m := range f.Members {
		el.Members = append(el.Members, Member{Type: m.Type, Ref: m.Ref, Role: m.Role})
	}
	return res, nil
}

func (r *Resolver) lookupNode(ctx context.Context, id osm.NodeID) (*feature.Feature, error) {
	if r.lookup == nil {
		return nil, feature.ErrNotFound
	}
	node, err := r.lookup.Lookup(ctx, int64(id), osm.TypeNode)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, feature.ErrNotFound
	}
	return node, nil
}

// header fills the attributes shared by every element kind
func (r *Resolver) header(kind osm.Type, id int64, f *feature.Feature) *Element {
	el := &Element{
		Kind:      kind,
		Action:    ActionModify,
		ID:        id,
		User:      r.defaults.User,
		UID:       r.defaults.UID,
		Version:   r.defaults.Version,
		Timestamp: r.now().UTC(),
	}
	r.fromFeature(el, f)
	return el
}

// materialize turns a looked-up way node into a standalone element with its live tags
func (r *Resolver) materialize(node *feature.Feature) *Element {
	el := &Element{
		Kind:      osm.TypeNode,
		ID:        node.ID,
		User:      r.defaults.User,
		UID:       r.defaults.UID,
		Version:   r.defaults.Version,
		Timestamp: r.now().UTC(),
		Lat:       node.Lat,
		Lon:       node.Lon,
	}
	r.fromFeature(el, node)
	if len(node.Tags) > 0 {
		el.Tags = make(osm.Tags, 0, len(node.Tags))
		for k, v := range node.Tags {
			el.Tags = append(el.Tags, osm.Tag{Key: k, Value: v})
		}
		el.Tags.SortByKeyValue()
	}
	return el
}

func (r *Resolver) fromFeature(el *Element, f *feature.Feature) {
	if f == nil {
		return
	}
	if f.User != "" {
		el.User = f.User
	}
	if f.UID != 0 {
		el.UID = f.UID
	}
	if f.Version > 0 {
		el.Version = f.Version
	}
	if !f.Timestamp.IsZero() {
		el.Timestamp = f.Timestamp.UTC()
	}
}

func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
