package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const fileSchema = `
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS index_vectors (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	vector   BLOB NOT NULL
);`

// FileStore persists a FlatIndex to a sqlite file.
type FileStore struct {
	db *sql.DB
}

func OpenFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "create index dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "open index file %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(fileSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "create index schema")
	}
	return &FileStore{db: db}, nil
}

func (s *FileStore) Close() error {
	return s.db.Close()
}

// Save replaces the file contents with idx.
func (s *FileStore) Save(ctx context.Context, idx *FlatIndex) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin index save")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_vectors`); err != nil {
		return eris.Wrap(err, "clear index vectors")
	}
	meta := map[string]string{
		"metric":    string(idx.Metric()),
		"dimension": strconv.Itoa(idx.Dimension()),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO index_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, v); err != nil {
			return eris.Wrapf(err, "write index meta %s", k)
		}
	}
	for pos, e := range idx.Entries() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO index_vectors (id, position, vector) VALUES (?, ?, ?)`,
			e.ID, pos, encodeVector(e.Vector)); err != nil {
			return eris.Wrapf(err, "write vector %s", e.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "commit index save")
}

// Load rebuilds an index from the file. An empty file yields an empty index
// with the given dimension and metric.
func (s *FileStore) Load(ctx context.Context, dimension int, metric Metric) (*FlatIndex, error) {
	meta := map[string]string{}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM index_meta`)
	if err != nil {
		return nil, eris.Wrap(err, "read index meta")
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "scan index meta")
		}
		meta[k] = v
	}
	rows.Close()

	if d, ok := meta["dimension"]; ok {
		stored, err := strconv.Atoi(d)
		if err != nil {
			return nil, eris.Wrapf(err, "bad stored dimension %q", d)
		}
		if stored != dimension {
			return nil, eris.Errorf("index file has dimension %d, want %d", stored, dimension)
		}
	}
	if m, ok := meta["metric"]; ok && Metric(m) != metric {
		return nil, eris.Errorf("index file uses metric %s, want %s", m, metric)
	}

	idx := NewFlatIndex(dimension, metric)
	rows, err = s.db.QueryContext(ctx, `SELECT id, vector FROM index_vectors ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "read index vectors")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, eris.Wrap(err, "scan index vector")
		}
		if err := idx.Upsert(id, decodeVector(blob)); err != nil {
			return nil, eris.Wrapf(err, "load vector %s", id)
		}
	}
	return idx, eris.Wrap(rows.Err(), "iterate index vectors")
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
