// Package store persists import snapshots in SQLite or PostgreSQL.
//
// A snapshot is one run: its summary, the nodes, edges and cross-sections of
// the assembled network and the report entries. Rows keep the indexed columns
// next to the full record as JSON. The complete export document is kept per
// run as zstd compressed JSON.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/compression"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/export"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/json"
)

// Dialect selects the SQL flavour.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store is a snapshot database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
}

// ParseDSN returns the dialect, driver name and driver DSN of dsn.
// postgres:// and postgresql:// URLs use pgx; sqlite:// URLs and bare paths
// use SQLite.
func ParseDSN(dsn string) (Dialect, string, string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, "pgx", dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return DialectSQLite, "sqlite", strings.TrimPrefix(dsn, "sqlite://")
	}
	return DialectSQLite, "sqlite", dsn
}

// Open connects to dsn and creates the tables when missing.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialect, driver, source := ParseDSN(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open snapshot store").
			WithDetail("dialect", string(dialect))
	}
	if dialect == DialectSQLite {
		// A single connection serialises writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to reach snapshot store").
			WithDetail("dialect", string(dialect))
	}

	s := &Store{db: db, dialect: dialect, log: logger.With(zap.String("component", "store"))}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("snapshot store ready", zap.String("dialect", string(dialect)))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the SQL flavour of the store.
func (s *Store) Dialect() Dialect { return s.dialect }

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id     TEXT PRIMARY KEY,
		version    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		nodes      INTEGER NOT NULL,
		edges      INTEGER NOT NULL,
		errors     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS nodes (
		run_id     TEXT NOT NULL,
		name       TEXT NOT NULL,
		node_type  TEXT NOT NULL,
		manhole_id TEXT NOT NULL,
		x          DOUBLE PRECISION,
		y          DOUBLE PRECISION,
		data       TEXT NOT NULL,
		PRIMARY KEY (run_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
		run_id     TEXT NOT NULL,
		name       TEXT NOT NULL,
		kind       TEXT NOT NULL,
		source     TEXT NOT NULL,
		target     TEXT NOT NULL,
		length     DOUBLE PRECISION NOT NULL,
		definition TEXT NOT NULL,
		data       TEXT NOT NULL,
		PRIMARY KEY (run_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS cross_sections (
		run_id     TEXT NOT NULL,
		name       TEXT NOT NULL,
		shape      TEXT NOT NULL,
		material   TEXT NOT NULL,
		width      DOUBLE PRECISION NOT NULL,
		height     DOUBLE PRECISION NOT NULL,
		is_default BOOLEAN NOT NULL,
		PRIMARY KEY (run_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS report_entries (
		run_id     TEXT NOT NULL,
		seq        INTEGER NOT NULL,
		level      TEXT NOT NULL,
		message    TEXT NOT NULL,
		file       TEXT NOT NULL,
		line       INTEGER NOT NULL,
		element    TEXT NOT NULL,
		attr_key   TEXT NOT NULL,
		attr_value TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(run_id, source)`,
	`CREATE INDEX IF NOT EXISTS idx_report_level ON report_entries(run_id, level)`,
}

// documentCodec compresses the stored export documents.
const documentCodec = compression.Zstd

func (s *Store) migrate(ctx context.Context) error {
	blob := "BLOB"
	if s.dialect == DialectPostgres {
		blob = "BYTEA"
	}
	stmts := append(migrations, `CREATE TABLE IF NOT EXISTS documents (
		run_id TEXT PRIMARY KEY,
		codec  TEXT NOT NULL,
		body   `+blob+` NOT NULL
	)`)
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create snapshot tables")
		}
	}
	return nil
}

// bind rewrites ? placeholders to the dialect's form.
func (s *Store) bind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Run summarises one stored snapshot.
type Run struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Version   string    `json:"version" yaml:"version"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Nodes     int       `json:"nodes" yaml:"nodes"`
	Edges     int       `json:"edges" yaml:"edges"`
	Errors    int       `json:"errors" yaml:"errors"`
}

// Save writes the snapshot of one run in a single transaction. Saving a run
// id twice fails.
func (s *Store) Save(ctx context.Context, runID, version string, g *network.Graph, rep *report.Report) error {
	if g == nil {
		return errors.New(errors.ErrorTypeValidation, "network graph is nil")
	}
	if rep == nil {
		rep = &report.Report{}
	}
	doc := export.Build(g, rep)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to begin snapshot transaction")
	}
	if err := s.save(ctx, tx, runID, version, doc, len(rep.Errors())); err != nil {
		tx.Rollback()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to save snapshot").
			WithDetail("run_id", runID)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to commit snapshot").
			WithDetail("run_id", runID)
	}
	s.log.Info("snapshot saved",
		zap.String("run_id", runID),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("edges", len(doc.Edges)))
	return nil
}

func (s *Store) save(ctx context.Context, tx *sql.Tx, runID, version string, doc *export.Document, errCount int) error {
	if _, err := tx.ExecContext(ctx, s.bind(
		`INSERT INTO runs (run_id, version, created_at, nodes, edges, errors) VALUES (?, ?, ?, ?, ?, ?)`),
		runID, version, time.Now().UTC(), len(doc.Nodes), len(doc.Edges), errCount); err != nil {
		return err
	}

	insertNode, err := tx.PrepareContext(ctx, s.bind(
		`INSERT INTO nodes (run_id, name, node_type, manhole_id, x, y, data) VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer insertNode.Close()
	for _, n := range doc.Nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		var x, y sql.NullFloat64
		if n.Geometry != nil {
			x = sql.NullFloat64{Float64: n.Geometry.X, Valid: true}
			y = sql.NullFloat64{Float64: n.Geometry.Y, Valid: true}
		}
		if _, err := insertNode.ExecContext(ctx, runID, n.Name, n.Type, n.ManholeID, x, y, string(data)); err != nil {
			return err
		}
	}

	insertEdge, err := tx.PrepareContext(ctx, s.bind(
		`INSERT INTO edges (run_id, name, kind, source, target, length, definition, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer insertEdge.Close()
	for _, e := range doc.Edges {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := insertEdge.ExecContext(ctx, runID, e.Name, e.Kind, e.Source, e.Target, e.Length, e.Definition, string(data)); err != nil {
			return err
		}
	}

	insertProfile, err := tx.PrepareContext(ctx, s.bind(
		`INSERT INTO cross_sections (run_id, name, shape, material, width, height, is_default) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`))
	if err != nil {
		return err
	}
	defer insertProfile.Close()
	for _, cs := range doc.CrossSections {
		if _, err := insertProfile.ExecContext(ctx, runID, cs.Name, cs.Shape, cs.Material, cs.Width, cs.Height, cs.Default); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	body, err := compression.Compress(raw, documentCodec, compression.Default)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO documents (run_id, codec, body) VALUES (?, ?, ?)`),
		runID, string(documentCodec), body); err != nil {
		return err
	}

	insertEntry, err := tx.PrepareContext(ctx, s.bind(
		`INSERT INTO report_entries (run_id, seq, level, message, file, line, element, attr_key, attr_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer insertEntry.Close()
	for i, e := range doc.Report {
		if _, err := insertEntry.ExecContext(ctx, runID, i, e.Level, e.Message, e.File, e.Line, e.Element, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Runs lists the stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, version, created_at, nodes, edges, errors FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Version, &r.CreatedAt, &r.Nodes, &r.Edges, &r.Errors); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to scan run")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Nodes returns the stored nodes of runID ordered by name.
func (s *Store) Nodes(ctx context.Context, runID string) ([]export.Node, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT data FROM nodes WHERE run_id = ? ORDER BY name`), runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to query nodes")
	}
	defer rows.Close()

	var out []export.Node
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to scan node")
		}
		var n export.Node
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode stored node")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Document returns the complete export document stored for runID.
func (s *Store) Document(ctx context.Context, runID string) (*export.Document, error) {
	var (
		codec string
		body  []byte
	)
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT codec, body FROM documents WHERE run_id = ?`), runID).Scan(&codec, &body)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrorTypeValidation, "no snapshot for run %s", runID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to query document")
	}
	raw, err := compression.Decompress(body, compression.Algorithm(codec))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decompress stored document").
			WithDetail("codec", codec)
	}
	var doc export.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode stored document")
	}
	return &doc, nil
}

// EdgesFrom returns the names of the edges of runID leaving node.
func (s *Store) EdgesFrom(ctx context.Context, runID, node string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.bind(`SELECT name FROM edges WHERE run_id = ? AND source = ? ORDER BY name`), runID, node)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to query edges")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to scan edge")
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ErrorCount returns the number of stored report entries of runID at warn
// level or above.
func (s *Store) ErrorCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.bind(`SELECT COUNT(*) FROM report_entries WHERE run_id = ? AND level IN ('warn', 'error', 'dpanic', 'panic', 'fatal')`),
		runID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeConnection, "failed to count report entries")
	}
	return n, nil
}
