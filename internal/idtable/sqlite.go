package idtable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/treebridge/treebridge/internal/tree"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS id_table (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	prefix      TEXT NOT NULL,
	ext_key     TEXT NOT NULL,
	id          TEXT NOT NULL,
	parent_id   TEXT NOT NULL,
	custom_data TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	UNIQUE (prefix, ext_key)
);
CREATE INDEX IF NOT EXISTS idx_id_table_prefix_id ON id_table(prefix, id);
`

// SQLiteTable 把映射持久化到 SQLite 文件，进程重启后映射保持不变。
type SQLiteTable struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite 打开（必要时创建）映射表数据库。path 为 ":memory:" 时使用内存库。
func OpenSQLite(path string) (*SQLiteTable, error) {
	if path == "" {
		return nil, errors.New("idtable: sqlite path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create idtable dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// 单连接串行化写入；同时保证 :memory: 库在所有调用间共享。
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteTable{db: db, now: time.Now}, nil
}

func (t *SQLiteTable) GetID(ctx context.Context, prefix, key string) (Entry, error) {
	row := t.db.QueryRowContext(ctx,
		`SELECT prefix, ext_key, id, parent_id, custom_data FROM id_table WHERE prefix = ? AND ext_key = ?`,
		prefix, key)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

func (t *SQLiteTable) GetKeys(ctx context.Context, prefix string, id tree.ID) ([]Entry, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT prefix, ext_key, id, parent_id, custom_data FROM id_table WHERE prefix = ? AND id = ? ORDER BY seq`,
		prefix, id.String())
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	return collectEntries(rows)
}

func (t *SQLiteTable) Add(ctx context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO id_table (prefix, ext_key, id, parent_id, custom_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (prefix, ext_key) DO NOTHING`,
		entry.Prefix, entry.Key, entry.ID.String(), entry.ParentID.String(), entry.CustomData, t.now().Unix())
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (t *SQLiteTable) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT prefix, ext_key, id, parent_id, custom_data FROM id_table WHERE prefix = ? ORDER BY seq`,
		prefix)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return collectEntries(rows)
}

func (t *SQLiteTable) Close() error {
	return t.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e            Entry
		id, parentID string
	)
	if err := row.Scan(&e.Prefix, &e.Key, &id, &parentID, &e.CustomData); err != nil {
		return Entry{}, err
	}
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return Entry{}, fmt.Errorf("parse id %q: %w", id, err)
	}
	if e.ParentID, err = uuid.Parse(parentID); err != nil {
		return Entry{}, fmt.Errorf("parse parent id %q: %w", parentID, err)
	}
	return e, nil
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
