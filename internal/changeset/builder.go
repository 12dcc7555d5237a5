// Package changeset assembles reconciled POI records into one ordered OSM
// XML changeset for review.
package changeset

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/audit"
	"github.com/wegman-software/poimatch-go/internal/config"
	"github.com/wegman-software/poimatch-go/internal/feature"
	"github.com/wegman-software/poimatch-go/internal/geometry"
	"github.com/wegman-software/poimatch-go/internal/logger"
	"github.com/wegman-software/poimatch-go/internal/phase"
	"github.com/wegman-software/poimatch-go/internal/poi"
	"github.com/wegman-software/poimatch-go/internal/tagger"
)

var (
	// ErrInvalidValue stops a batch whose engine configuration is unusable
	ErrInvalidValue = errors.New("invalid value")
	// ErrProcessing stops a batch that cannot continue, e.g. a cancelled context
	ErrProcessing = errors.New("processing error")
)

// DiffSink receives the tag diff of every emitted element
type DiffSink interface {
	Write(ref string, lines []audit.DiffLine) error
}

// Options configure a Builder
type Options struct {
	Identity config.Identity
	Engine   *tagger.Engine
	Lookup   feature.Lookup
	BBox     *config.BBox
	Audit    DiffSink
	RunID    string
	Now      func() time.Time
}

// Progress counts records while a batch runs; safe to read concurrently
type Progress struct {
	processed atomic.Int64
	dropped   atomic.Int64
	elements  atomic.Int64
}

// Processed returns the number of records handled so far
func (p *Progress) Processed() int64 { return p.processed.Load() }

// Dropped returns the number of records left out of the document
func (p *Progress) Dropped() int64 { return p.dropped.Load() }

// Elements returns the number of elements emitted so far
func (p *Progress) Elements() int64 { return p.elements.Load() }

// RecordReport is the outcome of one record
type RecordReport struct {
	Index   int
	Code    string
	Status  phase.Status
	Reasons []string
}

// Report summarizes one batch
type Report struct {
	RunID    string
	Records  []RecordReport
	OK       int
	Partial  int
	Dropped  int
	Elements int
	Err      error // batch error, nil when every record was visited
}

// Builder drives one pass over a batch. The id allocator and member cache
// are scoped to one Build call.
type Builder struct {
	opts      Options
	annotator *audit.Annotator
	progress  Progress
}

// NewBuilder creates a builder
func NewBuilder(opts Options) *Builder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{opts: opts, annotator: audit.NewAnnotator()}
}

// Progress exposes the live counters of the running batch
func (b *Builder) Progress() *Progress {
	return &b.progress
}

// batch holds the state of one Build call
type batch struct {
	ids      *geometry.IDAllocator
	members  *geometry.MemberCache
	resolver *geometry.Resolver
	engine   *tagger.Engine
}

// Build processes records in order. It always returns a document holding
// every record that could be emitted; a batch error is logged, recorded in
// the report and stops the remaining records.
func (b *Builder) Build(ctx context.Context, records []poi.Record) (*Document, *Report) {
	log := logger.WithRun(b.opts.RunID)
	doc := NewDocument(b.opts.Identity.Generator)
	report := &Report{RunID: b.opts.RunID}

	bt, err := b.newBatch()
	if err != nil {
		report.Err = err
		log.Error("Batch aborted", zap.Error(err))
		b.finish(doc, report, len(records))
		return doc, report
	}

	for i := range records {
		if err := ctx.Err(); err != nil {
			report.Err = fmt.Errorf("%w: stopped before record %d: %v", ErrProcessing, i, err)
			log.Error("Batch stopped", zap.Int("index", i), zap.Error(report.Err))
			break
		}

		rec := &records[i]
		rr := RecordReport{Index: i, Code: rec.Code}

		var entries []Entry
		var pending []osm.NodeID
		mark := bt.ids.Peek()
		res := phase.Run("record", func() error {
			var err error
			entries, pending, rr.Status, rr.Reasons, err = b.buildRecord(ctx, bt, rec)
			return err
		})
		b.progress.processed.Add(1)

		if res.Status == phase.Failed {
			bt.ids.Rewind(mark)
			rr.Status = phase.Failed
			rr.Reasons = append(rr.Reasons, res.Reason())
			report.Dropped++
			b.progress.dropped.Add(1)
			log.Error("Record dropped",
				zap.Int("index", i),
				zap.String("code", rec.Code),
				zap.Error(res.Err))
			report.Records = append(report.Records, rr)
			continue
		}

		bt.members.Add(pending...)
		doc.Append(entries...)

		n := 0
		for _, e := range entries {
			if e.Element != nil {
				n++
			}
		}
		report.Elements += n
		b.progress.elements.Add(int64(n))

		if rr.Status == phase.OK {
			report.OK++
		} else {
			report.Partial++
			log.Warn("Record emitted with partial data",
				zap.Int("index", i),
				zap.String("code", rec.Code),
				zap.Strings("reasons", rr.Reasons))
		}
		report.Records = append(report.Records, rr)
	}

	b.finish(doc, report, len(records))
	log.Info("Batch finished",
		zap.Int("records", len(records)),
		zap.Int("ok", report.OK),
		zap.Int("partial", report.Partial),
		zap.Int("dropped", report.Dropped),
		zap.Int("elements", report.Elements),
		zap.Int("members", bt.memberCount()))
	return doc, report
}

func (b *Builder) newBatch() (*batch, error) {
	id := b.opts.Identity
	if id.User == "" || id.Version <= 0 || id.UID <= 0 {
		return nil, fmt.Errorf("%w: identity user=%q uid=%d version=%d", ErrInvalidValue, id.User, id.UID, id.Version)
	}
	if id.Generator == "" {
		return nil, fmt.Errorf("%w: empty generator", ErrInvalidValue)
	}

	engine := b.opts.Engine
	if engine == nil {
		engine = tagger.NewEngine(tagger.OptionsFromConfig(config.DefaultConfig().Tagging))
	}

	ids := geometry.NewIDAllocator()
	members := geometry.NewMemberCache()
	return &batch{
		ids:      ids,
		members:  members,
		resolver: geometry.NewResolver(ids, members, b.opts.Lookup, geometry.DefaultsFromConfig(id), b.opts.Now),
		engine:   engine,
	}, nil
}

func (bt *batch) memberCount() int {
	if bt == nil {
		return 0
	}
	return bt.members.Len()
}

// buildRecord runs tags, geometry and annotations for one record and returns
// its entries: annotations, the element, then materialized way nodes
func (b *Builder) buildRecord(ctx context.Context, bt *batch, rec *poi.Record) ([]Entry, []osm.NodeID, phase.Status, []string, error) {
	if err := poi.Validate(rec, b.opts.BBox); err != nil {
		return nil, nil, phase.Failed, nil, err
	}

	in := tagger.NewInput(rec)
	tags := bt.engine.Reconcile(in)

	geo, geoResult := bt.resolver.Resolve(ctx, rec)
	if geoResult.Status == phase.Failed {
		return nil, nil, phase.Failed, nil, geoResult.Err
	}

	el := geo.Element
	el.Tags = tags.Tags.ToOSM()

	ann := b.annotator.Annotate(rec, el.Kind, el.ID, tags.Tags, in.Live)

	phases := append([]phase.Result{}, tags.Phases...)
	phases = append(phases, geoResult)
	phases = append(phases, ann.Phases...)

	if b.opts.Audit != nil {
		phases = append(phases, phase.Run("audit export", func() error {
			return b.opts.Audit.Write(el.Ref(), ann.Diff)
		}))
	}

	entries := make([]Entry, 0, len(ann.Comments)+1+len(geo.Materialized))
	for _, c := range ann.Comments {
		entries = append(entries, Entry{Comment: c})
	}
	entries = append(entries, Entry{Element: el})
	for _, m := range geo.Materialized {
		entries = append(entries, Entry{Element: m})
	}

	status := phase.Worst(phases)
	if status == phase.Failed {
		status = phase.Partial
	}
	return entries, geo.Pending, status, phase.Reasons(phases), nil
}

// finish writes the header comments
func (b *Builder) finish(doc *Document, report *Report, total int) {
	if b.opts.RunID != "" {
		doc.Header = append(doc.Header, fmt.Sprintf(" poimatch-go run %s ", b.opts.RunID))
	}
	doc.Header = append(doc.Header, fmt.Sprintf(" records: %d, emitted: %d, dropped: %d, elements: %d ",
		total, report.OK+report.Partial, report.Dropped, report.Elements))
}
