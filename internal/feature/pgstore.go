package feature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/logger"
)

// ScaleCoord converts a float64 lat/lon to scaled integer (× 10^7)
func ScaleCoord(coord float64) int32 {
	return int32(coord * 1e7)
}

// UnscaleCoord converts a scaled integer back to float64
func UnscaleCoord(scaled int32) float64 {
	return float64(scaled) / 1e7
}

// storedMember is the JSONB layout of relation members in planet_osm_rels
type storedMember struct {
	Type string // "n" = node, "w" = way, "r" = relation
	Ref  int64
	Role string
}

func memberType(short string) osm.Type {
	switch short {
	case "w":
		return osm.TypeWay
	case "r":
		return osm.TypeRelation
	default:
		return osm.TypeNode
	}
}

func shortType(t osm.Type) string {
	switch t {
	case osm.TypeWay:
		return "w"
	case osm.TypeRelation:
		return "r"
	default:
		return "n"
	}
}

// PGStore reads features from osm2pgsql slim-mode middle tables
// (planet_osm_nodes, planet_osm_ways, planet_osm_rels)
type PGStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPGStore connects to PostgreSQL
func NewPGStore(ctx context.Context, connString, schema string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to feature database: %w", err)
	}
	logger.Get().Info("Feature database connected", zap.String("schema", schema))
	return &PGStore{pool: pool, schema: schema}, nil
}

// Close releases the pool
func (s *PGStore) Close() {
	s.pool.Close()
}

// EnsureTables creates the middle tables if they don't exist
func (s *PGStore) EnsureTables(ctx context.Context) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS %s.planet_osm_nodes (
			id BIGINT PRIMARY KEY,
			lat INTEGER NOT NULL,
			lon INTEGER NOT NULL,
			tags JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS %s.planet_osm_ways (
			id BIGINT PRIMARY KEY,
			nodes BIGINT[] NOT NULL,
			tags JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS %s.planet_osm_rels (
			id BIGINT PRIMARY KEY,
			members JSONB NOT NULL,
			tags JSONB
		)`,
	}
	for _, sql := range schemas {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(sql, s.schema)); err != nil {
			return fmt.Errorf("failed to create middle table: %w", err)
		}
	}
	return nil
}

// Lookup implements Lookup
func (s *PGStore) Lookup(ctx context.Context, id int64, kind osm.Type) (*Feature, error) {
	switch kind {
	case osm.TypeNode, "":
		return s.getNode(ctx, id)
	case osm.TypeWay:
		return s.getWay(ctx, id)
	case osm.TypeRelation:
		return s.getRelation(ctx, id)
	default:
		return nil, fmt.Errorf("unsupported element kind %q", kind)
	}
}

func (s *PGStore) getNode(ctx context.Context, id int64) (*Feature, error) {
	f := &Feature{Kind: osm.TypeNode}
	var lat, lon int32
	var tagsJSON []byte

	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT id, lat, lon, tags FROM %s.planet_osm_nodes WHERE id = $1", s.schema),
		id,
	).Scan(&f.ID, &lat, &lon, &tagsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}

	f.Lat = UnscaleCoord(lat)
	f.Lon = UnscaleCoord(lon)
	if err := decodeTags(tagsJSON, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *PGStore) getWay(ctx context.Context, id int64) (*Feature, error) {
	f := &Feature{Kind: osm.TypeWay}
	var nodes []int64
	var tagsJSON []byte

	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT id, nodes, tags FROM %s.planet_osm_ways WHERE id = $1", s.schema),
		id,
	).Scan(&f.ID, &nodes, &tagsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("way %d: %w", id, err)
	}

	f.Nodes = make([]osm.NodeID, len(nodes))
	for i, n := range nodes {
		f.Nodes[i] = osm.NodeID(n)
	}
	if err := decodeTags(tagsJSON, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *PGStore) getRelation(ctx context.Context, id int64) (*Feature, error) {
	f := &Feature{Kind: osm.TypeRelation}
	var membersJSON, tagsJSON []byte

	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT id, members, tags FROM %s.planet_osm_rels WHERE id = $1", s.schema),
		id,
	).Scan(&f.ID, &membersJSON, &tagsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("relation %d: %w", id, err)
	}

	var stored []storedMember
	if err := json.Unmarshal(membersJSON, &stored); err != nil {
		return nil, fmt.Errorf("relation %d members: %w", id, err)
	}
	f.Members = make(osm.Members, len(stored))
	for i, m := range stored {
		f.Members[i] = osm.Member{Type: memberType(m.Type), Ref: m.Ref, Role: m.Role}
	}
	if err := decodeTags(tagsJSON, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Upsert writes a feature into the middle tables
func (s *PGStore) Upsert(ctx context.Context, f *Feature) error {
	var tagsJSON []byte
	if len(f.Tags) > 0 {
		tagsJSON, _ = json.Marshal(f.Tags)
	}

	var err error
	switch f.Kind {
	case osm.TypeWay:
		nodes := make([]int64, len(f.Nodes))
		for i, n := range f.Nodes {
			nodes[i] = int64(n)
		}
		_, err = s.pool.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s.planet_osm_ways (id, nodes, tags)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET nodes = $2, tags = $3
		`, s.schema), f.ID, nodes, tagsJSON)
	case osm.TypeRelation:
		stored := make([]storedMember, len(f.Members))
		for i, m := range f.Members {
			stored[i] = storedMember{Type: shortType(m.Type), Ref: m.Ref, Role: m.Role}
		}
		membersJSON, _ := json.Marshal(stored)
		_, err = s.pool.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s.planet_osm_rels (id, members, tags)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET members = $2, tags = $3
		`, s.schema), f.ID, membersJSON, tagsJSON)
	default:
		_, err = s.pool.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s.planet_osm_nodes (id, lat, lon, tags)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET lat = $2, lon = $3, tags = $4
		`, s.schema), f.ID, ScaleCoord(f.Lat), ScaleCoord(f.Lon), tagsJSON)
	}
	return err
}

func decodeTags(raw []byte, f *Feature) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &f.Tags); err != nil {
		return fmt.Errorf("%s %d tags: %w", f.Kind, f.ID, err)
	}
	return nil
}
