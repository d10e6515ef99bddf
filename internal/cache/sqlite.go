package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/itr-cli/internal/model"
)

// Store persists deduplicated datasets in a SQLite database under the
// cache directory, one row per source workbook path. Entries are
// disposable; deleting the database only forces a rebuild.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

const dbFileName = "itr-cache.db"

const migration = `
CREATE TABLE IF NOT EXISTS dataset_cache (
	source_path    TEXT PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	mtime_ns       INTEGER NOT NULL,
	size_bytes     INTEGER NOT NULL,
	record_count   INTEGER NOT NULL,
	cached_at      DATETIME NOT NULL,
	dataset        BLOB NOT NULL
);
`

// OpenStore opens (creating if needed) the cache database in dir.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, eris.Wrap(err, "cache: open db")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: migrate")
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: init zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: init zstd decoder")
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the database and compression resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// Entry is one persisted cache row, minus the dataset blob.
type Entry struct {
	SourcePath    string
	SchemaVersion int
	Fingerprint   Fingerprint
	RecordCount   int
	CachedAt      time.Time
}

// Put serializes and stores the dataset for its source path,
// replacing any previous entry.
func (s *Store) Put(ctx context.Context, ds *model.Dataset, fp Fingerprint) error {
	raw, err := json.Marshal(ds)
	if err != nil {
		return eris.Wrap(err, "cache: marshal dataset")
	}
	blob := s.enc.EncodeAll(raw, nil)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dataset_cache (source_path, schema_version, mtime_ns, size_bytes, record_count, cached_at, dataset)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET
			schema_version = excluded.schema_version,
			mtime_ns       = excluded.mtime_ns,
			size_bytes     = excluded.size_bytes,
			record_count   = excluded.record_count,
			cached_at      = excluded.cached_at,
			dataset        = excluded.dataset`,
		ds.SourcePath, SchemaVersion, fp.MTimeUnixNano, fp.Size, len(ds.Records), time.Now().UTC(), blob,
	)
	return eris.Wrap(err, "cache: put entry")
}

// Get loads the entry and dataset for a source path. Returns
// (nil, nil, nil) when no entry exists.
func (s *Store) Get(ctx context.Context, sourcePath string) (*Entry, *model.Dataset, error) {
	var (
		e    Entry
		blob []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source_path, schema_version, mtime_ns, size_bytes, record_count, cached_at, dataset
		 FROM dataset_cache WHERE source_path = ?`,
		sourcePath,
	).Scan(&e.SourcePath, &e.SchemaVersion, &e.Fingerprint.MTimeUnixNano, &e.Fingerprint.Size, &e.RecordCount, &e.CachedAt, &blob)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "cache: get entry %s", sourcePath)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "cache: decompress entry %s", sourcePath)
	}

	var ds model.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, nil, eris.Wrapf(err, "cache: unmarshal entry %s", sourcePath)
	}

	return &e, &ds, nil
}

// Meta loads the entry metadata without deserializing the dataset.
// Returns (nil, nil) when no entry exists.
func (s *Store) Meta(ctx context.Context, sourcePath string) (*Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT source_path, schema_version, mtime_ns, size_bytes, record_count, cached_at
		 FROM dataset_cache WHERE source_path = ?`,
		sourcePath,
	).Scan(&e.SourcePath, &e.SchemaVersion, &e.Fingerprint.MTimeUnixNano, &e.Fingerprint.Size, &e.RecordCount, &e.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: get entry meta %s", sourcePath)
	}
	return &e, nil
}

// Delete removes the entry for a source path if present.
func (s *Store) Delete(ctx context.Context, sourcePath string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dataset_cache WHERE source_path = ?`, sourcePath)
	return eris.Wrapf(err, "cache: delete entry %s", sourcePath)
}
