package internal

import (
	"context"
	"database/sql"
	"encoding/json"
)

const (
	// SnapshotKey holds the persisted session snapshot
	SnapshotKey = "sahayak-storage"
	// TokenKey holds the bearer token, separate from the snapshot
	TokenKey = "sahayak-token"
)

// Persistence is the durable store for session identity
type Persistence interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	ClearSnapshot(ctx context.Context) error
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// SQLitePersistence implements Persistence over the kv table
type SQLitePersistence struct {
	db   *sql.DB
	path string
}

// NewSQLitePersistence wraps an open state database
func NewSQLitePersistence(db *sql.DB, path string) *SQLitePersistence {
	return &SQLitePersistence{db: db, path: path}
}

// OpenPersistence opens the state database at path and wraps it
func OpenPersistence(path string) (*SQLitePersistence, error) {
	db, err := OpenStateDB(path)
	if err != nil {
		return nil, err
	}
	return NewSQLitePersistence(db, path), nil
}

// Path returns the database location
func (p *SQLitePersistence) Path() string {
	return p.path
}

// Ping checks that the database is reachable
func (p *SQLitePersistence) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return &StorageError{Path: p.path, Op: "open", Err: err}
	}
	return nil
}

// Entries lists the stored session keys with their last write time
func (p *SQLitePersistence) Entries(ctx context.Context) ([]KeyValuePair, error) {
	pairs, err := QueryKV(ctx, p.db, "sahayak-%")
	if err != nil {
		return nil, &StorageError{Path: p.path, Op: "read", Err: err}
	}
	return pairs, nil
}

// Close closes the underlying database
func (p *SQLitePersistence) Close() error {
	return p.db.Close()
}

// LoadSnapshot returns nil when nothing has been persisted
func (p *SQLitePersistence) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	raw, ok, err := GetKV(ctx, p.db, SnapshotKey)
	if err != nil {
		return nil, &StorageError{Path: p.path, Op: "read", Key: SnapshotKey, Err: err}
	}
	if !ok {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, &StorageError{Path: p.path, Op: "decode", Key: SnapshotKey, Err: err}
	}
	return &snap, nil
}

// SaveSnapshot replaces the persisted snapshot
func (p *SQLitePersistence) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return &StorageError{Path: p.path, Op: "write", Key: SnapshotKey, Err: err}
	}
	if err := PutKV(ctx, p.db, SnapshotKey, string(data)); err != nil {
		return &StorageError{Path: p.path, Op: "write", Key: SnapshotKey, Err: err}
	}
	return nil
}

// ClearSnapshot deletes the persisted snapshot
func (p *SQLitePersistence) ClearSnapshot(ctx context.Context) error {
	if err := DeleteKV(ctx, p.db, SnapshotKey); err != nil {
		return &StorageError{Path: p.path, Op: "delete", Key: SnapshotKey, Err: err}
	}
	return nil
}

// LoadToken returns "" when no token is stored
func (p *SQLitePersistence) LoadToken(ctx context.Context) (string, error) {
	token, _, err := GetKV(ctx, p.db, TokenKey)
	if err != nil {
		return "", &StorageError{Path: p.path, Op: "read", Key: TokenKey, Err: err}
	}
	return token, nil
}

// SaveToken stores the bearer token
func (p *SQLitePersistence) SaveToken(ctx context.Context, token string) error {
	if err := PutKV(ctx, p.db, TokenKey, token); err != nil {
		return &StorageError{Path: p.path, Op: "write", Key: TokenKey, Err: err}
	}
	return nil
}

// ClearToken deletes the bearer token
func (p *SQLitePersistence) ClearToken(ctx context.Context) error {
	if err := DeleteKV(ctx, p.db, TokenKey); err != nil {
		return &StorageError{Path: p.path, Op: "delete", Key: TokenKey, Err: err}
	}
	return nil
}
