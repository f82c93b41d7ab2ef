package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists states and objects as JSON rows.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS states (
			id TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			ack INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create states table: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS objects (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create objects table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetState(ctx context.Context, id string) (domain.StateValue, error) {
	var valueStr string
	var ack bool
	var updatedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT value, ack, updated_at FROM states WHERE id = ?
	`, id).Scan(&valueStr, &ack, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.Absent(), nil
	}
	if err != nil {
		return domain.Absent(), fmt.Errorf("failed to get state: %w", err)
	}

	var value any
	if err := json.Unmarshal([]byte(valueStr), &value); err != nil {
		return domain.Absent(), fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return domain.Present(domain.State{
		Val: value,
		Ack: ack,
		Ts:  time.UnixMilli(updatedAt),
	}), nil
}

func (s *SQLiteStore) SetState(ctx context.Context, id string, val any, ack bool) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO states (id, value, ack, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			value = excluded.value,
			ack = excluded.ack,
			updated_at = excluded.updated_at
	`, id, string(data), ack, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) States(ctx context.Context, prefix string) (map[string]domain.State, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, value, ack, updated_at FROM states WHERE substr(id, 1, ?) = ?
	`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	defer rows.Close()

	res := make(map[string]domain.State)
	for rows.Next() {
		var id, valueStr string
		var ack bool
		var updatedAt int64
		if err := rows.Scan(&id, &valueStr, &ack, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(valueStr), &value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state %s: %w", id, err)
		}
		res[id] = domain.State{Val: value, Ack: ack, Ts: time.UnixMilli(updatedAt)}
	}
	return res, rows.Err()
}

func (s *SQLiteStore) GetObject(ctx context.Context, id string) (*domain.Object, error) {
	return getObject(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getObject(ctx context.Context, db queryRower, id string) (*domain.Object, error) {
	var payload string
	err := db.QueryRowContext(ctx, `SELECT payload FROM objects WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	var obj domain.Object
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal object: %w", err)
	}
	return &obj, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putObject(ctx context.Context, db execer, obj domain.Object) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO objects (id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, obj.ID, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutObject(ctx context.Context, obj domain.Object) error {
	return putObject(ctx, s.db, obj)
}

// ExtendObject merges patch into the object inside one transaction.
func (s *SQLiteStore) ExtendObject(ctx context.Context, id string, patch domain.ObjectPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	obj, err := getObject(ctx, tx, id)
	if err != nil {
		return err
	}
	if obj == nil {
		obj = &domain.Object{ID: id}
	}
	if err := putObject(ctx, tx, patch.Apply(*obj)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
