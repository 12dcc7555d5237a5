package feature

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/logger"
)

// LoadStats counts the elements read from an extract
type LoadStats struct {
	Nodes     int64
	Ways      int64
	Relations int64
}

// scanner is the common surface of osmxml.Scanner and osmpbf.Scanner
type scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// LoadFile reads an OSM XML (.osm) or PBF (.pbf) extract into the store
func LoadFile(ctx context.Context, path string, store *MemoryStore) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, fmt.Errorf("failed to open feature extract: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".pbf") {
		return load(osmpbf.New(ctx, f, runtime.NumCPU()), store)
	}
	return LoadXML(ctx, f, store)
}

// LoadXML reads OSM XML from a reader into the store
func LoadXML(ctx context.Context, r io.Reader, store *MemoryStore) (LoadStats, error) {
	return load(osmxml.New(ctx, r), store)
}

func load(sc scanner, store *MemoryStore) (LoadStats, error) {
	defer sc.Close()

	var stats LoadStats
	for sc.Scan() {
		switch o := sc.Object().(type) {
		case *osm.Node:
			store.Put(FromNode(o))
			stats.Nodes++
		case *osm.Way:
			store.Put(FromWay(o))
			stats.Ways++
		case *osm.Relation:
			store.Put(FromRelation(o))
			stats.Relations++
		}
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return stats, fmt.Errorf("failed to scan feature extract: %w", err)
	}

	logger.Get().Info("Feature extract loaded",
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
	)
	return stats, nil
}
