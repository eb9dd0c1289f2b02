// Package mirror keeps a durable copy of a topology store in SQLite and
// rebuilds a store from it.
package mirror

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/martinsuchenak/netcanvas/internal/topology"
)

//go:embed schema.sql
var schemaFS embed.FS

// SchemaVersion is recorded in schema_migrations once the schema is applied.
const SchemaVersion = 1

// DatabaseFile is the file name used inside the data directory.
const DatabaseFile = "netcanvas.db"

// Change is one mirrored event.
type Change struct {
	ID        string              `json:"id"`
	Op        topology.Op         `json:"op"`
	Kind      topology.EntityKind `json:"kind"`
	Name      string              `json:"name"`
	Attribute topology.Attribute  `json:"attribute,omitempty"`
	State     json.RawMessage     `json:"-"`
	CreatedAt time.Time           `json:"created_at"`
}

// Entity is the stored state of one live entity.
type Entity struct {
	Kind      topology.EntityKind `json:"kind"`
	Name      string              `json:"name"`
	State     json.RawMessage     `json:"state"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Sink receives changes from a Dispatcher.
type Sink interface {
	Apply(ctx context.Context, c Change) error
}

// SQLite is a Sink backed by a SQLite database
type SQLite struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the mirror database in dataDir.
func OpenSQLite(dataDir string) (*SQLite, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR IGNORE INTO schema_migrations (version) VALUES (?)`, SchemaVersion)
	return err
}

// Path returns the database file path
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Version returns the highest applied schema version.
func (s *SQLite) Version(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("checking schema version: %w", err)
	}
	return int(v.Int64), nil
}

// Apply records c in the change log and updates the entity table.
func (s *SQLite) Apply(ctx context.Context, c Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO changes (id, op, kind, name, attribute, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Op), string(c.Kind), c.Name, string(c.Attribute), c.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("recording change: %w", err)
	}

	switch c.Op {
	case topology.OpRemoved:
		if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE kind = ? AND name = ?`, string(c.Kind), c.Name); err != nil {
			return fmt.Errorf("deleting %s %s: %w", c.Kind, c.Name, err)
		}
	default:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entities (kind, name, state, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(kind, name) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
		`, string(c.Kind), c.Name, string(c.State), c.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("saving %s %s: %w", c.Kind, c.Name, err)
		}
	}

	return tx.Commit()
}

// Entities returns every stored entity ordered by kind and name.
func (s *SQLite) Entities(ctx context.Context) ([]Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT kind, name, state, updated_at FROM entities ORDER BY kind, name`)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var (
			e     Entity
			kind  string
			state string
		)
		if err := rows.Scan(&kind, &e.Name, &state, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Kind = topology.EntityKind(kind)
		e.State = json.RawMessage(state)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Changes returns the most recent changes, newest first. limit <= 0
// returns all of them.
func (s *SQLite) Changes(ctx context.Context, limit int) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, op, kind, name, attribute, created_at FROM changes ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying changes: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var (
			c                   Change
			op, kind, attribute string
		)
		if err := rows.Scan(&c.ID, &op, &kind, &c.Name, &attribute, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Op = topology.Op(op)
		c.Kind = topology.EntityKind(kind)
		c.Attribute = topology.Attribute(attribute)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceAll swaps the stored entities for entities in one transaction.
// The change log is kept.
func (s *SQLite) ReplaceAll(ctx context.Context, entities []Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entities (kind, name, state, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entities {
		if _, err := stmt.ExecContext(ctx, string(e.Kind), e.Name, string(e.State), e.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("saving %s %s: %w", e.Kind, e.Name, err)
		}
	}

	return tx.Commit()
}
