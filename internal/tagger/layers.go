package tagger

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wegman-software/poimatch-go/internal/openinghours"
	"github.com/wegman-software/poimatch-go/internal/poi"
)

const (
	keyOpeningHours = "opening_hours"
	keyPhone        = "contact:phone"
	keyWebsite      = "contact:website"
	keyDescription  = "description"
	keyName         = "name"
	keyFixme        = "fixme"

	sameMarker   = "same"
	fixmeNew     = "verify import"
	sourceLayout = "2006-01-02"
)

// LegacyContactKeys are moved under contact:<key>
var LegacyContactKeys = []string{"website", "phone", "email", "facebook", "instagram", "youtube", "pinterest", "fax"}

var errNoRecord = errors.New("no record")

func liveBase(tags Tags, in *Input) (Tags, error) {
	for k, v := range in.Live {
		tags[k] = v
	}
	return tags, nil
}

func commonTags(tags Tags, in *Input) (Tags, error) {
	if in.Record == nil {
		return nil, errNoRecord
	}
	for k, v := range in.Record.CommonTags {
		tags[k] = v
	}
	return tags, nil
}

func fieldOverrides(tags Tags, in *Input) (Tags, error) {
	if in.Record == nil {
		return nil, errNoRecord
	}
	for _, ft := range poi.FieldTags {
		if v := ft.Value(in.Record); v != "" {
			tags[ft.Key] = v
		}
	}
	return tags, nil
}

func openingHours(alt bool, altKey string) func(Tags, *Input) (Tags, error) {
	return func(tags Tags, in *Input) (Tags, error) {
		if in.Record == nil {
			return nil, errNoRecord
		}
		computed := openinghours.Build(in.Record.OpeningHours)
		if computed == "" {
			return tags, nil
		}
		if !alt {
			tags[keyOpeningHours] = computed
			return tags, nil
		}
		switch base := tags[keyOpeningHours]; {
		case base == "":
			tags[keyOpeningHours] = computed
			tags[altKey] = sameMarker
		case base == computed:
			tags[altKey] = sameMarker
		default:
			tags[altKey] = computed
		}
		return tags, nil
	}
}

func phone(tags Tags, in *Input) (Tags, error) {
	if in.Record == nil {
		return nil, errNoRecord
	}
	if in.Record.Phone != "" {
		tags[keyPhone] = in.Record.Phone
	}
	return tags, nil
}

func website(tags Tags, in *Input) (Tags, error) {
	if in.Record == nil {
		return nil, errNoRecord
	}
	u, err := ResolveWebsite(in.Record.URLBase, in.Record.Website)
	if err != nil {
		return nil, err
	}
	tags[keyWebsite] = u
	return tags, nil
}

// ResolveWebsite joins a relative website path onto the provider base URL.
// An absolute website wins; empty inputs give an empty result.
func ResolveWebsite(base, site string) (string, error) {
	base, site = strings.TrimSpace(base), strings.TrimSpace(site)
	if base == "" {
		return site, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	if site == "" {
		return b.String(), nil
	}
	s, err := url.Parse(site)
	if err != nil {
		return "", fmt.Errorf("parse website %q: %w", site, err)
	}
	if s.IsAbs() {
		return s.String(), nil
	}
	return b.ResolveReference(s).String(), nil
}

// SourceHost returns the host part of a provider base URL, "" when unknown
func SourceHost(base string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", nil
	}
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	return u.Host, nil
}

func sourceDate(general bool, generalKey string, now func() time.Time) func(Tags, *Input) (Tags, error) {
	return func(tags Tags, in *Input) (Tags, error) {
		if in.Record == nil {
			return nil, errNoRecord
		}
		host, err := SourceHost(in.Record.URLBase)
		if err != nil {
			return nil, err
		}
		key := generalKey
		if !general {
			if host == "" {
				return tags, nil
			}
			key = "source:" + host + ":date"
		} else if host != "" {
			delete(tags, "source:"+host+":date")
		}
		tags[key] = now().Format(sourceLayout)
		return tags, nil
	}
}

func preserveName(tags Tags, in *Input) (Tags, error) {
	if !in.PreserveName {
		return tags, nil
	}
	if name, ok := in.Live[keyName]; ok {
		tags[keyName] = name
	}
	return tags, nil
}

func legacyContact(tags Tags, _ *Input) (Tags, error) {
	for _, key := range LegacyContactKeys {
		v, ok := tags[key]
		if !ok {
			continue
		}
		delete(tags, key)
		contactKey := "contact:" + key
		if _, exists := tags[contactKey]; exists {
			continue
		}
		if key == "email" || key == "website" {
			v = strings.ToLower(v)
		}
		tags[contactKey] = v
	}
	return tags, nil
}

func description(tags Tags, in *Input) (Tags, error) {
	if in.Record == nil {
		return nil, errNoRecord
	}
	if in.Record.Description != "" {
		tags[keyDescription] = in.Record.Description
	}
	return tags, nil
}

func amenities(tags Tags, in *Input) (Tags, error) {
	if in.Record == nil {
		return nil, errNoRecord
	}
	for _, bt := range poi.YesNoTags {
		if v := bt.Value(in.Record); v != nil {
			if *v {
				tags[bt.Key] = "yes"
			} else {
				tags[bt.Key] = "no"
			}
		}
	}
	for _, st := range poi.EVTags {
		if v, ok := st.Value(in.Record).TagValue(); ok {
			tags[st.Key] = v
		}
	}
	return tags, nil
}

func newFeature(tags Tags, in *Input) (Tags, error) {
	if in.Record != nil && in.Record.New {
		tags[keyFixme] = fixmeNew
	}
	return tags, nil
}

// AlwaysForbidden are stripped from every element whatever the configuration
var AlwaysForbidden = []string{"addr:country"}

// forbidden strips AlwaysForbidden plus the configured extra keys
func forbidden(extra []string) func(Tags, *Input) (Tags, error) {
	keys := append(append([]string(nil), AlwaysForbidden...), extra...)
	return func(tags Tags, _ *Input) (Tags, error) {
		for _, k := range keys {
			delete(tags, k)
		}
		return tags, nil
	}
}
