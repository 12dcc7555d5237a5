package tagger

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestTagsToOSMSorted(t *testing.T) {
	tags := Tags{"name": "MOL", "amenity": "fuel", "brand": "MOL"}
	got := tags.ToOSM()
	want := osm.Tags{
		{Key: "amenity", Value: "fuel"},
		{Key: "brand", Value: "MOL"},
		{Key: "name", Value: "MOL"},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTagsClone(t *testing.T) {
	var nilTags Tags
	if c := nilTags.Clone(); c == nil {
		t.Error("Clone of nil should return an empty mapping")
	}

	orig := Tags{"a": "1"}
	c := orig.Clone()
	c["a"] = "2"
	if orig["a"] != "1" {
		t.Errorf("original modified: %q", orig["a"])
	}
	if !orig.Equal(Tags{"a": "1"}) || orig.Equal(c) {
		t.Error("Equal mismatch")
	}
}
