// Package feature models previously-existing OSM elements and the lookups
// used to fetch them while a changeset is assembled.
package feature

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/osm"
)

// ErrNotFound is returned by a Lookup when the element is not known
var ErrNotFound = errors.New("feature not found")

// Feature is an existing node, way or relation as fetched from the map dataset
type Feature struct {
	Kind      osm.Type          `json:"kind"` // empty when the matcher did not record one
	ID        int64             `json:"id"`
	Version   int               `json:"version,omitempty"`
	User      string            `json:"user,omitempty"`
	UID       int64             `json:"uid,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Lat       float64           `json:"lat,omitempty"`
	Lon       float64           `json:"lon,omitempty"`
	Nodes     []osm.NodeID      `json:"nodes,omitempty"`   // ways
	Members   osm.Members       `json:"members,omitempty"` // relations
	Tags      map[string]string `json:"tags,omitempty"`
}

// Ref renders the short element reference used by editors: n123, w45, r6
func Ref(kind osm.Type, id int64) string {
	switch kind {
	case osm.TypeWay:
		return fmt.Sprintf("w%d", id)
	case osm.TypeRelation:
		return fmt.Sprintf("r%d", id)
	default:
		return fmt.Sprintf("n%d", id)
	}
}

// Lookup fetches a feature by id and kind
type Lookup interface {
	Lookup(ctx context.Context, id int64, kind osm.Type) (*Feature, error)
}

// LookupFunc adapts a function to the Lookup interface
type LookupFunc func(ctx context.Context, id int64, kind osm.Type) (*Feature, error)

func (f LookupFunc) Lookup(ctx context.Context, id int64, kind osm.Type) (*Feature, error) {
	return f(ctx, id, kind)
}

type key struct {
	kind osm.Type
	id   int64
}

// MemoryStore is an in-memory Lookup, usually filled from an OSM extract
type MemoryStore struct {
	mu       sync.RWMutex
	features map[key]*Feature
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{features: make(map[key]*Feature)}
}

// Put adds or replaces a feature
func (s *MemoryStore) Put(f *Feature) {
	s.mu.Lock()
	s.features[key{kind: f.Kind, id: f.ID}] = f
	s.mu.Unlock()
}

// Len returns the number of stored features
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.features)
}

// Each calls fn for every stored feature until fn returns an error
func (s *MemoryStore) Each(fn func(*Feature) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.features {
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Lookup implements Lookup
func (s *MemoryStore) Lookup(_ context.Context, id int64, kind osm.Type) (*Feature, error) {
	s.mu.RLock()
	f, ok := s.features[key{kind: kind, id: id}]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

// FromNode converts a paulmach/osm node
func FromNode(n *osm.Node) *Feature {
	return &Feature{
		Kind:      osm.TypeNode,
		ID:        int64(n.ID),
		Version:   n.Version,
		User:      n.User,
		UID:       int64(n.UserID),
		Timestamp: n.Timestamp,
		Lat:       n.Lat,
		Lon:       n.Lon,
		Tags:      n.Tags.Map(),
	}
}

// FromWay converts a paulmach/osm way
func FromWay(w *osm.Way) *Feature {
	nodes := make([]osm.NodeID, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		nodes = append(nodes, wn.ID)
	}
	return &Feature{
		Kind:      osm.TypeWay,
		ID:        int64(w.ID),
		Version:   w.Version,
		User:      w.User,
		UID:       int64(w.UserID),
		Timestamp: w.Timestamp,
		Nodes:     nodes,
		Tags:      w.Tags.Map(),
	}
}

// FromRelation converts a paulmach/osm relation
func FromRelation(r *osm.Relation) *Feature {
	members := make(osm.Members, len(r.Members))
	copy(members, r.Members)
	return &Feature{
		Kind:      osm.TypeRelation,
		ID:        int64(r.ID),
		Version:   r.Version,
		User:      r.User,
		UID:       int64(r.UserID),
		Timestamp: r.Timestamp,
		Members:   members,
		Tags:      r.Tags.Map(),
	}
}
