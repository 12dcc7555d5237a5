package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBBox(t *testing.T) {
	bbox, err := ParseBBox("16.1,45.7,22.9,48.6")
	require.NoError(t, err)
	assert.True(t, bbox.IsSet)
	assert.True(t, bbox.Contains(47.5, 19.05))
	assert.False(t, bbox.Contains(52.5, 13.4))

	empty, err := ParseBBox("")
	require.NoError(t, err)
	assert.True(t, empty.Contains(0, 0))

	_, err = ParseBBox("1,2,3")
	assert.Error(t, err)
	_, err = ParseBBox("20,45,10,48")
	assert.Error(t, err)
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "osm_poi_matchmaker", cfg.Identity.User)
	assert.Equal(t, int64(8635934), cfg.Identity.UID)
	assert.Equal(t, 99999, cfg.Identity.Version)
	assert.Empty(t, cfg.Tagging.ForbiddenTags)

	assert.Error(t, cfg.ValidateRun(), "no input files")
}

func TestValidateRejectsMissingTags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tagging.AlternativeOpeningHours = true
	cfg.Tagging.AlternativeOpeningHoursTag = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Tagging.GeneralSourceDateTag = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poimatch.yaml")
	content := `
tagging:
  alternative_opening_hours: true
  alternative_opening_hours_tag: "opening_hours:covid19"
  general_source_date: false
identity:
  user: reviewer
database:
  host: db.internal
bbox: "16.1,45.7,22.9,48.6"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("POIMATCH_DATABASE_PORT", "6543")

	cfg := DefaultConfig()
	require.NoError(t, Load(path, cfg))

	assert.True(t, cfg.Tagging.AlternativeOpeningHours)
	assert.False(t, cfg.Tagging.GeneralSourceDate)
	assert.Equal(t, "source:date", cfg.Tagging.GeneralSourceDateTag)
	assert.Equal(t, "reviewer", cfg.Identity.User)
	assert.Equal(t, 99999, cfg.Identity.Version)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 6543, cfg.DBPort)
	assert.True(t, cfg.BBox.IsSet)
}

func TestLoadWithoutFileKeepsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Load("", cfg))
	assert.Equal(t, DefaultConfig().Identity, cfg.Identity)
	assert.False(t, cfg.BBox.IsSet)
}
