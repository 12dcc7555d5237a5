package poi

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Provider describes one POI type a data source produces
type Provider struct {
	Code       string            `yaml:"code"`
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type,omitempty"`
	URLBase    string            `yaml:"url_base,omitempty"`
	SearchName string            `yaml:"search_name,omitempty"`
	Tags       map[string]string `yaml:"tags,omitempty"`
}

// Catalog indexes providers by code
type Catalog struct {
	Providers []Provider `yaml:"providers"`

	byCode map[string]*Provider
}

// LoadCatalog loads a provider catalog from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	c.byCode = make(map[string]*Provider, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Code == "" {
			return nil, fmt.Errorf("catalog entry %d has no code", i)
		}
		if _, dup := c.byCode[p.Code]; dup {
			return nil, fmt.Errorf("duplicate catalog code %q", p.Code)
		}
		c.byCode[p.Code] = p
	}
	return &c, nil
}

// Get returns the provider for code
func (c *Catalog) Get(code string) (*Provider, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.byCode[code]
	return p, ok
}

// Codes returns all provider codes sorted
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.byCode))
	for code := range c.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Apply fills name, common tags and base URL of records that omit them.
// Record-supplied common tags win over catalog tags key by key.
func (c *Catalog) Apply(records []Record) int {
	filled := 0
	for i := range records {
		r := &records[i]
		p, ok := c.Get(r.Code)
		if !ok {
			continue
		}
		if r.Name == "" {
			r.Name = p.Name
		}
		if r.URLBase == "" {
			r.URLBase = p.URLBase
		}
		if len(p.Tags) > 0 {
			merged := make(map[string]string, len(p.Tags)+len(r.CommonTags))
			for k, v := range p.Tags {
				merged[k] = v
			}
			for k, v := range r.CommonTags {
				merged[k] = v
			}
			r.CommonTags = merged
		}
		filled++
	}
	return filled
}
