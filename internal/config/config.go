package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// BBox represents a geographic bounding box
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// Contains checks if a point is within the bounding box
func (b *BBox) Contains(lat, lon float64) bool {
	if b == nil || !b.IsSet {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// String renders the box in the same format ParseBBox accepts
func (b *BBox) String() string {
	if b == nil || !b.IsSet {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon > bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be <= maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be <= maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// Tagging controls the configurable parts of tag reconciliation
type Tagging struct {
	AlternativeOpeningHours    bool     // Write freshly computed hours to AlternativeOpeningHoursTag
	AlternativeOpeningHoursTag string   // e.g. "opening_hours:covid19"
	GeneralSourceDate          bool     // One general source date tag instead of source:<host>:date
	GeneralSourceDateTag       string   // Defaults to "source:date"
	ForbiddenTags              []string // Stripped in addition to addr:country
	ScriptFile                 string   // Optional Lua file defining process_tags(tags, poi)
}

// Identity holds the editing identity written into element headers when
// the matched feature does not carry its own
type Identity struct {
	User      string
	UID       int64
	Version   int
	Generator string
}

// Redis settings for the feature cache
type Redis struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Config holds the global configuration for a changeset run
type Config struct {
	// Input settings
	InputFiles   []string
	FeaturesFile string // OSM XML or PBF extract used as feature cache
	CatalogFile  string // Provider catalog YAML
	BBox         *BBox  // Records outside are rejected

	// Output settings
	OutputFile string // "-" writes to stdout
	AuditFile  string // Optional Parquet export of the tag diff

	Tagging  Tagging
	Identity Identity

	// Database settings (feature store only)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSchema   string
	UseDB      bool

	Redis    Redis
	UseRedis bool

	// Logging and metrics
	Verbose         bool
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // Interval for system metrics logging
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BBox:       &BBox{},
		OutputFile: "changeset.osm",
		Tagging: Tagging{
			AlternativeOpeningHours:    false,
			AlternativeOpeningHoursTag: "opening_hours:covid19",
			GeneralSourceDate:          true,
			GeneralSourceDateTag:       "source:date",
		},
		Identity: Identity{
			User:      "osm_poi_matchmaker",
			UID:       8635934,
			Version:   99999,
			Generator: "JOSM",
		},
		DBHost:   "localhost",
		DBPort:   5432,
		DBName:   "osm",
		DBUser:   "postgres",
		DBSchema: "public",
		Redis: Redis{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
		MetricsInterval: 30 * time.Second,
	}
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// Validate checks the settings the tagging engine and header builder depend on
func (c *Config) Validate() error {
	if c.Tagging.AlternativeOpeningHours && c.Tagging.AlternativeOpeningHoursTag == "" {
		return fmt.Errorf("alternative opening hours enabled without a target tag")
	}
	if c.Tagging.GeneralSourceDate && c.Tagging.GeneralSourceDateTag == "" {
		return fmt.Errorf("general source date enabled without a target tag")
	}
	if c.Identity.User == "" {
		return fmt.Errorf("default editing user is required")
	}
	if c.Identity.Version < 1 {
		return fmt.Errorf("default version must be at least 1")
	}
	if c.BBox != nil && c.BBox.IsSet {
		if math.Abs(c.BBox.MinLat) > 90 || math.Abs(c.BBox.MaxLat) > 90 {
			return fmt.Errorf("bbox latitude out of range")
		}
	}
	return nil
}

// ValidateRun additionally checks the inputs a generate run needs
func (c *Config) ValidateRun() error {
	if len(c.InputFiles) == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file is required")
	}
	return c.Validate()
}
