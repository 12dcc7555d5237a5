package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (POIMATCH_TAGGING_GENERAL_SOURCE_DATE=false)
const EnvPrefix = "POIMATCH"

// Load overlays an optional config file and POIMATCH_* environment variables
// onto cfg. Keys mirror the YAML layout:
//
//	tagging:
//	  alternative_opening_hours: true
//	  alternative_opening_hours_tag: opening_hours:covid19
//	identity:
//	  user: osm_poi_matchmaker
//	database:
//	  host: localhost
func Load(path string, cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.Tagging.AlternativeOpeningHours = v.GetBool("tagging.alternative_opening_hours")
	cfg.Tagging.AlternativeOpeningHoursTag = v.GetString("tagging.alternative_opening_hours_tag")
	cfg.Tagging.GeneralSourceDate = v.GetBool("tagging.general_source_date")
	cfg.Tagging.GeneralSourceDateTag = v.GetString("tagging.general_source_date_tag")
	cfg.Tagging.ForbiddenTags = v.GetStringSlice("tagging.forbidden_tags")
	cfg.Tagging.ScriptFile = v.GetString("tagging.script")

	cfg.Identity.User = v.GetString("identity.user")
	cfg.Identity.UID = v.GetInt64("identity.uid")
	cfg.Identity.Version = v.GetInt("identity.version")
	cfg.Identity.Generator = v.GetString("identity.generator")

	cfg.DBHost = v.GetString("database.host")
	cfg.DBPort = v.GetInt("database.port")
	cfg.DBName = v.GetString("database.name")
	cfg.DBUser = v.GetString("database.user")
	cfg.DBPassword = v.GetString("database.password")
	cfg.DBSchema = v.GetString("database.schema")
	cfg.UseDB = v.GetBool("database.enabled")

	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.TTL = v.GetDuration("redis.ttl")
	cfg.UseRedis = v.GetBool("redis.enabled")

	cfg.CatalogFile = v.GetString("catalog")

	bbox, err := ParseBBox(v.GetString("bbox"))
	if err != nil {
		return err
	}
	cfg.BBox = bbox

	return nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("tagging.alternative_opening_hours", cfg.Tagging.AlternativeOpeningHours)
	v.SetDefault("tagging.alternative_opening_hours_tag", cfg.Tagging.AlternativeOpeningHoursTag)
	v.SetDefault("tagging.general_source_date", cfg.Tagging.GeneralSourceDate)
	v.SetDefault("tagging.general_source_date_tag", cfg.Tagging.GeneralSourceDateTag)
	v.SetDefault("tagging.forbidden_tags", cfg.Tagging.ForbiddenTags)
	v.SetDefault("tagging.script", cfg.Tagging.ScriptFile)

	v.SetDefault("identity.user", cfg.Identity.User)
	v.SetDefault("identity.uid", cfg.Identity.UID)
	v.SetDefault("identity.version", cfg.Identity.Version)
	v.SetDefault("identity.generator", cfg.Identity.Generator)

	v.SetDefault("database.host", cfg.DBHost)
	v.SetDefault("database.port", cfg.DBPort)
	v.SetDefault("database.name", cfg.DBName)
	v.SetDefault("database.user", cfg.DBUser)
	v.SetDefault("database.password", cfg.DBPassword)
	v.SetDefault("database.schema", cfg.DBSchema)
	v.SetDefault("database.enabled", cfg.UseDB)

	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.ttl", cfg.Redis.TTL)
	v.SetDefault("redis.enabled", cfg.UseRedis)

	v.SetDefault("catalog", cfg.CatalogFile)
	v.SetDefault("bbox", cfg.BBox.String())
}
