package authclient

import (
	"context"
	"database/sql"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// MemoryTokenStorage keeps the token in process memory. Useful for tests and
// short-lived tooling that has no business persisting credentials.
type MemoryTokenStorage struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStorage() *MemoryTokenStorage {
	return &MemoryTokenStorage{}
}

func (m *MemoryTokenStorage) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStorage) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// ClientToken is the single durable row backing silent reauthentication.
// One row per storage key; the SessionStore is its only writer.
type ClientToken struct {
	bun.BaseModel `bun:"table:client_tokens,alias:ct"`

	StorageKey string     `bun:"storage_key,pk"`
	Token      string     `bun:"token,notnull"`
	UpdatedAt  *time.Time `bun:"updated_at"`
}

// BunTokenStorage persists the access token through a bun handle, sharing
// whatever sqlite (or other dialect) database the host application already
// carries.
type BunTokenStorage struct {
	db  *bun.DB
	key string
}

func NewBunTokenStorage(db *bun.DB, storageKey string) *BunTokenStorage {
	return &BunTokenStorage{db: db, key: storageKey}
}

// RegisterTokenModels registers the token model with a bun handle so hosts
// that run fixtures or migrations see it.
func RegisterTokenModels(db *bun.DB) {
	db.RegisterModel((*ClientToken)(nil))
}

// CreateTokenTables creates the backing table when it does not exist yet.
func CreateTokenTables(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*ClientToken)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create client token table")
	}
	return nil
}

func (s *BunTokenStorage) Load(ctx context.Context) (string, error) {
	record := &ClientToken{}
	err := s.db.NewSelect().
		Model(record).
		Where("storage_key = ?", s.key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load stored token")
	}
	return record.Token, nil
}

func (s *BunTokenStorage) Save(ctx context.Context, token string) error {
	now := time.Now()
	record := &ClientToken{
		StorageKey: s.key,
		Token:      token,
		UpdatedAt:  &now,
	}

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (storage_key) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist token")
	}
	return nil
}

func (s *BunTokenStorage) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*ClientToken)(nil)).
		Where("storage_key = ?", s.key).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear stored token")
	}
	return nil
}
