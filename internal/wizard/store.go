package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/apexpos/admin/internal/platform/db"
	"github.com/apexpos/admin/internal/platform/httpx"
)

// ErrDraftNotFound is returned for unknown or expired drafts.
var ErrDraftNotFound = fmt.Errorf("%w: draft", httpx.ErrNotFound)

// DraftStore keeps drafts between requests.
type DraftStore interface {
	Load(ctx context.Context, id string) (Draft, error)
	Save(ctx context.Context, d Draft) error
	Delete(ctx context.Context, id string) error
}

// NewDraftID returns a fresh draft identifier.
func NewDraftID() string {
	return uuid.NewString()
}

// PGStore keeps drafts as JSONB rows in wizard_drafts.
type PGStore struct {
	db  db.Querier
	now func() time.Time
}

// NewPGStore returns a Postgres-backed DraftStore.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{db: q, now: time.Now}
}

func (s *PGStore) Load(ctx context.Context, id string) (Draft, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Draft{}, ErrDraftNotFound
	}
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT payload FROM wizard_drafts WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("wizard: load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("wizard: decode draft: %w", err)
	}
	return d, nil
}

func (s *PGStore) Save(ctx context.Context, d Draft) error {
	if _, err := uuid.Parse(d.ID); err != nil {
		return fmt.Errorf("wizard: save draft: invalid id %q", d.ID)
	}
	d.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wizard_drafts (id, payload, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`, d.ID, raw, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("wizard: save draft: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM wizard_drafts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("wizard: delete draft: %w", err)
	}
	return nil
}

// Purge removes drafts untouched since before and reports how many went.
func (s *PGStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM wizard_drafts WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("wizard: purge drafts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MemoryStore is an in-process DraftStore.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string]Draft
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return d.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.UpdatedAt = time.Now().UTC()
	s.drafts[d.ID] = d.clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}
