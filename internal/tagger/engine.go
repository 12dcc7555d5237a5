// Package tagger computes the final tag set of one POI by folding an ordered
// list of override layers over the live tags of the matched feature.
package tagger

import (
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/config"
	"github.com/wegman-software/poimatch-go/internal/logger"
	"github.com/wegman-software/poimatch-go/internal/phase"
	"github.com/wegman-software/poimatch-go/internal/poi"
)

// Input is what one reconciliation reads. It is never modified.
type Input struct {
	Record       *poi.Record
	Live         Tags
	PreserveName bool
}

// NewInput pairs a record with the live tags of its match
func NewInput(rec *poi.Record) *Input {
	return &Input{
		Record:       rec,
		Live:         Tags(rec.LiveTags()),
		PreserveName: rec.PreserveOriginalName,
	}
}

// Layer is one override step. Apply receives a private copy of the mapping.
type Layer struct {
	Name  string
	Apply func(tags Tags, in *Input) (Tags, error)
}

// Options configure the tag layers
type Options struct {
	AltOpeningHours      bool
	AltOpeningHoursTag   string
	GeneralSourceDate    bool
	GeneralSourceDateTag string
	Forbidden            []string // stripped in addition to AlwaysForbidden

	// Script runs after the yes/no layer when set
	Script *Layer

	// Now defaults to time.Now
	Now func() time.Time
}

// OptionsFromConfig maps the tagging configuration onto engine options
func OptionsFromConfig(cfg config.Tagging) Options {
	return Options{
		AltOpeningHours:      cfg.AlternativeOpeningHours,
		AltOpeningHoursTag:   cfg.AlternativeOpeningHoursTag,
		GeneralSourceDate:    cfg.GeneralSourceDate,
		GeneralSourceDateTag: cfg.GeneralSourceDateTag,
		Forbidden:            append([]string(nil), cfg.ForbiddenTags...),
	}
}

// Result is the outcome of one reconciliation
type Result struct {
	Tags   Tags
	Phases []phase.Result
	Status phase.Status
}

// Engine applies the layers in a fixed order
type Engine struct {
	layers []Layer
}

// NewEngine builds the layer list for opts
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GeneralSourceDateTag == "" {
		opts.GeneralSourceDateTag = "source:date"
	}
	if opts.AltOpeningHoursTag == "" {
		opts.AltOpeningHoursTag = "opening_hours:covid19"
	}

	layers := []Layer{
		{Name: "live base", Apply: liveBase},
		{Name: "common tags", Apply: commonTags},
		{Name: "field overrides", Apply: fieldOverrides},
		{Name: "opening hours", Apply: openingHours(opts.AltOpeningHours, opts.AltOpeningHoursTag)},
		{Name: "phone", Apply: phone},
		{Name: "website", Apply: website},
		{Name: "source date", Apply: sourceDate(opts.GeneralSourceDate, opts.GeneralSourceDateTag, opts.Now)},
		{Name: "name preservation", Apply: preserveName},
		{Name: "legacy contact", Apply: legacyContact},
		{Name: "description", Apply: description},
		{Name: "amenities", Apply: amenities},
	}
	if opts.Script != nil {
		layers = append(layers, *opts.Script)
	}
	layers = append(layers,
		Layer{Name: "new feature", Apply: newFeature},
		Layer{Name: "forbidden tags", Apply: forbidden(opts.Forbidden)},
	)
	return &Engine{layers: layers}
}

// Layers returns the layer names in application order
func (e *Engine) Layers() []string {
	names := make([]string, len(e.layers))
	for i, l := range e.layers {
		names[i] = l.Name
	}
	return names
}

// Reconcile folds every layer over an empty mapping. A failing layer is
// skipped and the mapping from before it is carried forward.
func (e *Engine) Reconcile(in *Input) Result {
	tags := Tags{}
	phases := make([]phase.Result, 0, len(e.layers))

	for _, l := range e.layers {
		var next Tags
		res := phase.Run(l.Name, func() error {
			out, err := l.Apply(tags.Clone(), in)
			if err != nil {
				return err
			}
			next = out
			return nil
		})
		if res.Err != nil {
			logger.Get().Warn("Tag layer failed",
				zap.String("layer", l.Name),
				zap.String("code", in.Record.Code),
				zap.Error(res.Err))
		} else if next != nil {
			tags = next
		}
		phases = append(phases, res)
	}

	status := phase.Worst(phases)
	if status == phase.Failed {
		status = phase.Partial
	}
	return Result{Tags: tags, Phases: phases, Status: status}
}
