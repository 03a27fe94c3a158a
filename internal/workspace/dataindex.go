package workspace

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// DataIndexer stores values of any msgpack-encodable type in SQLite,
// grouped by key and owned by the file they were extracted from. Each file
// also records the content hash it was indexed at.
type DataIndexer[T any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewDataIndexer opens or creates the database at dbPath. The special path
// ":memory:" keeps the index in memory.
func NewDataIndexer[T any](dbPath string) (*DataIndexer[T], error) {
	dsn := dbPath

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}

		dsn = dbPath + "?_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA auto_vacuum=INCREMENTAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			value BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_data_key ON data(key);

		CREATE TABLE IF NOT EXISTS files (
			file_path TEXT NOT NULL,
			data_id INTEGER NOT NULL,
			PRIMARY KEY (file_path, data_id),
			FOREIGN KEY (data_id) REFERENCES data(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_files_path ON files(file_path);

		CREATE TABLE IF NOT EXISTS file_hashes (
			file_path TEXT PRIMARY KEY,
			hash INTEGER NOT NULL
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return &DataIndexer[T]{db: db, dbPath: dbPath}, nil
}

// ReplaceFile drops everything stored for filePath and saves items in its
// place, recording hash as the indexed content hash.
func (idx *DataIndexer[T]) ReplaceFile(filePath string, hash uint64, items map[string][]T) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteFile(tx, filePath); err != nil {
		return err
	}

	dataStmt, err := tx.Prepare("INSERT INTO data (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare data statement: %w", err)
	}
	defer func() { _ = dataStmt.Close() }()

	fileStmt, err := tx.Prepare("INSERT INTO files (file_path, data_id) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare file statement: %w", err)
	}
	defer func() { _ = fileStmt.Close() }()

	for key, list := range items {
		for _, item := range list {
			data, err := msgpack.Marshal(item)
			if err != nil {
				return fmt.Errorf("failed to marshal item: %w", err)
			}

			result, err := dataStmt.Exec(key, data)
			if err != nil {
				return fmt.Errorf("failed to save item: %w", err)
			}

			dataID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}

			if _, err := fileStmt.Exec(filePath, dataID); err != nil {
				return fmt.Errorf("failed to save file association: %w", err)
			}
		}
	}

	// SQLite integers are signed; the hash round-trips through int64.
	if _, err := tx.Exec("INSERT OR REPLACE INTO file_hashes (file_path, hash) VALUES (?, ?)", filePath, int64(hash)); err != nil {
		return fmt.Errorf("failed to save file hash: %w", err)
	}

	return tx.Commit()
}

func deleteFile(tx *sql.Tx, filePath string) error {
	if _, err := tx.Exec(`DELETE FROM data WHERE id IN (SELECT data_id FROM files WHERE file_path = ?)`, filePath); err != nil {
		return fmt.Errorf("failed to delete data: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM files WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("failed to delete file associations: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM file_hashes WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("failed to delete file hash: %w", err)
	}

	return nil
}

// DeleteByFilePaths removes everything stored for the given files.
func (idx *DataIndexer[T]) DeleteByFilePaths(filePaths []string) error {
	if len(filePaths) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, filePath := range filePaths {
		if err := deleteFile(tx, filePath); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Hash returns the content hash filePath was last indexed at.
func (idx *DataIndexer[T]) Hash(filePath string) (uint64, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hash int64

	err := idx.db.QueryRow("SELECT hash FROM file_hashes WHERE file_path = ?", filePath).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("failed to query file hash: %w", err)
	}

	return uint64(hash), true, nil
}

// FilePaths returns every indexed file.
func (idx *DataIndexer[T]) FilePaths() ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query("SELECT file_path FROM file_hashes ORDER BY file_path")
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan file path: %w", err)
		}

		paths = append(paths, p)
	}

	return paths, rows.Err()
}

// GetValues returns all items stored under key.
func (idx *DataIndexer[T]) GetValues(key string) ([]T, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query("SELECT value FROM data WHERE key = ?", key)
	if err != nil {
		return nil, fmt.Errorf("failed to query data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanItems[T](rows)
}

// GetValuesByPath returns all items stored for filePath.
func (idx *DataIndexer[T]) GetValuesByPath(filePath string) ([]T, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query(`
		SELECT d.value FROM data d
		INNER JOIN files f ON d.id = f.data_id
		WHERE f.file_path = ?
		ORDER BY d.id
	`, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to query data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanItems[T](rows)
}

// GetAllValues returns every stored item.
func (idx *DataIndexer[T]) GetAllValues() ([]T, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query("SELECT value FROM data ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanItems[T](rows)
}

func scanItems[T any](rows *sql.Rows) ([]T, error) {
	var items []T

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if len(data) == 0 {
			continue
		}

		var item T
		if err := msgpack.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

// Clear removes every item and file hash.
func (idx *DataIndexer[T]) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.db.Exec("DELETE FROM files; DELETE FROM data; DELETE FROM file_hashes;"); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	return nil
}

// Close checkpoints and closes the database.
func (idx *DataIndexer[T]) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, _ = idx.db.Exec("PRAGMA optimize")

	if idx.dbPath != ":memory:" {
		_, _ = idx.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}

	return idx.db.Close()
}
