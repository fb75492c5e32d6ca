package tokens

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/helioview/portal/internal/common"
	"github.com/helioview/portal/internal/server/models"
)

const (
	shardCount = 32
	tokenBytes = 32
)

type shard struct {
	mu      sync.RWMutex
	records map[string]*models.Token
}

// MemoryRepository is the in-process token store. Records are sharded by
// token hash with one lock per shard, so operations on different tokens
// do not contend while per-token reads and evictions stay serialized.
type MemoryRepository struct {
	ttl    time.Duration
	now    func() time.Time
	shards [shardCount]*shard
}

// NewMemoryRepository constructs an empty store whose tokens live for ttl.
func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	r := &MemoryRepository{ttl: ttl, now: time.Now}
	for i := range r.shards {
		r.shards[i] = &shard{records: make(map[string]*models.Token)}
	}
	return r
}

// WithNow overrides the clock. Test seam.
func (r *MemoryRepository) WithNow(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) shardFor(token string) *shard {
	h := fnv.New32a()
	h.Write([]byte(token))
	return r.shards[h.Sum32()%shardCount]
}

func (r *MemoryRepository) Issue(ctx context.Context, email string) (string, error) {
	token, err := common.MakeRandToken(tokenBytes)
	if err != nil {
		return "", err
	}

	now := r.now()
	rec := &models.Token{
		Token:     token,
		Email:     models.CanonicalEmail(email),
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}

	s := r.shardFor(token)
	s.mu.Lock()
	s.records[token] = rec
	s.mu.Unlock()
	return token, nil
}

func (r *MemoryRepository) Resolve(ctx context.Context, token string) (string, error) {
	s := r.shardFor(token)

	s.mu.RLock()
	rec, ok := s.records[token]
	if ok && !rec.Expired(r.now()) {
		email := rec.Email
		s.mu.RUnlock()
		return email, nil
	}
	s.mu.RUnlock()

	if !ok {
		return "", common.ErrorNotFound
	}

	// Lazy eviction: take the write lock and re-check, since another
	// caller may have already removed or replaced the record.
	s.mu.Lock()
	if rec, ok := s.records[token]; ok && rec.Expired(r.now()) {
		delete(s.records, token)
	}
	s.mu.Unlock()
	return "", common.ErrorNotFound
}

func (r *MemoryRepository) Invalidate(ctx context.Context, token string) error {
	s := r.shardFor(token)
	s.mu.Lock()
	delete(s.records, token)
	s.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Consume(ctx context.Context, token string) (string, error) {
	s := r.shardFor(token)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok {
		return "", common.ErrorNotFound
	}
	delete(s.records, token)
	if rec.Expired(r.now()) {
		return "", common.ErrorNotFound
	}
	return rec.Email, nil
}

func (r *MemoryRepository) InvalidateAll(ctx context.Context, email string) error {
	canonical := models.CanonicalEmail(email)
	for _, s := range r.shards {
		s.mu.Lock()
		for token, rec := range s.records {
			if rec.Email == canonical {
				delete(s.records, token)
			}
		}
		s.mu.Unlock()
	}
	return nil
}

func (r *MemoryRepository) PurgeExpired(ctx context.Context) (int, error) {
	now := r.now()
	purged := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for token, rec := range s.records {
			if rec.Expired(now) {
				delete(s.records, token)
				purged++
			}
		}
		s.mu.Unlock()
	}
	return purged, nil
}
