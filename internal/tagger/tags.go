package tagger

import (
	"sort"

	"github.com/paulmach/osm"
)

// Tags is a key/value tag mapping. Layers treat it as immutable and return a copy.
type Tags map[string]string

// Clone returns an independent copy, never nil
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Keys returns the tag keys in sorted order
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToOSM converts the mapping into sorted osm.Tags
func (t Tags) ToOSM() osm.Tags {
	out := make(osm.Tags, 0, len(t))
	for k, v := range t {
		out = append(out, osm.Tag{Key: k, Value: v})
	}
	out.SortByKeyValue()
	return out
}

// Equal reports whether both mappings hold the same pairs
func (t Tags) Equal(other Tags) bool {
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		if w, ok := other[k]; !ok || w != v {
			return false
		}
	}
	return true
}
