package poi

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/poimatch-go/internal/config"
)

func TestScalarTagValue(t *testing.T) {
	tests := []struct {
		name  string
		in    *Scalar
		want  string
		valid bool
	}{
		{"nil", nil, "", false},
		{"whole float", Number(4.0), "4", true},
		{"fraction", Number(22.5), "22.5", true},
		{"nan", Number(math.NaN()), "", false},
		{"string", Text("50 kW"), "50 kW", true},
		{"empty string", Text(""), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.TagValue()
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScalarUnmarshal(t *testing.T) {
	var c Charging
	require.NoError(t, json.Unmarshal([]byte(`{"capacity": 2, "socket_type2_output": "22 kW", "model": null}`), &c))
	require.NotNil(t, c.Capacity)
	assert.True(t, c.Capacity.IsNum)
	assert.Equal(t, 2.0, c.Capacity.Num)
	assert.Equal(t, "22 kW", c.SocketType2Output.Str)
	assert.Nil(t, c.Model)

	assert.Error(t, json.Unmarshal([]byte(`{"capacity": true}`), &c))
}

func TestValidate(t *testing.T) {
	bbox, err := config.ParseBBox("16.1,45.7,22.9,48.6")
	require.NoError(t, err)

	good := &Record{Code: "humolfu", Lat: 47.4979, Lon: 19.0402}
	assert.NoError(t, Validate(good, bbox))
	assert.NoError(t, Validate(good, nil))

	assert.Error(t, Validate(&Record{Lat: 47.5, Lon: 19.0}, bbox), "missing code")
	assert.Error(t, Validate(&Record{Code: "x", Lat: math.NaN(), Lon: 19.0}, nil), "NaN latitude")
	assert.Error(t, Validate(&Record{Code: "x", Lat: 47.5, Lon: math.Inf(1)}, nil), "infinite longitude")
	assert.Error(t, Validate(&Record{Code: "x", Lat: 120, Lon: 19.0}, nil), "latitude out of range")
	assert.Error(t, Validate(&Record{Code: "x", Lat: 52.52, Lon: 13.40}, bbox), "outside bbox")
}

func TestReadJSONLinesSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"code": "humolfu", "name": "MOL", "lat": 47.5, "lon": 19.05, "amenities": {"fuel_lpg": true}}`,
		``,
		`{"code": "broken", "lat": `,
		`{"code": "hububibir", "lat": 47.49, "lon": 19.04, "charging": {"capacity": 12}, "match": {"distance": 12.5, "feature": {"kind": "node", "id": 42, "tags": {"amenity": "bicycle_rental"}}}}`,
	}, "\n")

	records, skipped, err := ReadJSONLines(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 2)

	assert.Equal(t, "MOL", records[0].Name)
	require.NotNil(t, records[0].Amenities.FuelLPG)
	assert.True(t, *records[0].Amenities.FuelLPG)
	assert.Nil(t, records[0].Match)

	require.NotNil(t, records[1].Feature())
	assert.Equal(t, int64(42), records[1].Feature().ID)
	assert.Equal(t, "bicycle_rental", records[1].LiveTags()["amenity"])
	assert.Equal(t, 12.5, *records[1].Match.Distance)
}

func TestCatalogApply(t *testing.T) {
	cat, err := LoadCatalog("testdata/providers.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"hububibir", "humolfu"}, cat.Codes())

	records := []Record{
		{Code: "humolfu", CommonTags: map[string]string{"brand": "MOL Group"}},
		{Code: "unknown", Name: "Somewhere"},
	}
	assert.Equal(t, 1, cat.Apply(records))

	assert.Equal(t, "MOL", records[0].Name)
	assert.Equal(t, "https://www.mol.hu", records[0].URLBase)
	assert.Equal(t, "MOL Group", records[0].CommonTags["brand"], "record tags win")
	assert.Equal(t, "fuel", records[0].CommonTags["amenity"])
	assert.Equal(t, "Somewhere", records[1].Name)
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	_, err := ParseCatalog([]byte("providers:\n  - code: a\n  - code: a\n"))
	assert.Error(t, err)
	_, err = ParseCatalog([]byte("providers:\n  - name: nameless\n"))
	assert.Error(t, err)
}

func TestRecordSeedAndGeom(t *testing.T) {
	r := &Record{Original: "1117 Budapest, Október huszonharmadika utca 18.", Postcode: "1117", City: "Budapest",
		Street: "Október huszonharmadika utca", HouseNumber: "18", Lat: 47.47, Lon: 19.05}
	seed := r.Seed()
	assert.Equal(t, "18", seed.HouseNumber)
	assert.Equal(t, "POINT(19.05 47.47)", r.Geom())
}
