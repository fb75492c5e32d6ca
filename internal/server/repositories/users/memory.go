package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/helioview/portal/internal/common"
	"github.com/helioview/portal/internal/server/models"
)

// MemoryRepository is the in-process credential store. A single mutex
// guards both maps: the ID index and the email index must never be
// observable in a half-updated state, so every mutation is one critical
// section covering both.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string // canonical email -> user ID
	now     func() time.Time
}

// NewMemoryRepository constructs an empty in-memory credential store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// WithNow overrides the clock. Test seam.
func (r *MemoryRepository) WithNow(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := models.CanonicalEmail(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return nil, common.ErrorAlreadyExists
	}

	stored := cloneUser(user)
	stored.Email = email
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Role == "" {
		stored.Role = models.RoleStaff
	}
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byID[stored.ID] = stored
	r.byEmail[email] = stored.ID
	return cloneUser(stored), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[models.CanonicalEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := models.CanonicalEmail(user.Email)

	existing, found := r.byID[user.ID]
	if user.ID == "" || !found {
		// Insert path.
		if _, taken := r.byEmail[email]; taken {
			return nil, common.ErrorAlreadyExists
		}
		stored := cloneUser(user)
		stored.Email = email
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		now := r.now()
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.Touch(now)
		r.byID[stored.ID] = stored
		r.byEmail[email] = stored.ID
		return cloneUser(stored), nil
	}

	// Update path: re-point the email index inside the same critical
	// section when the email changed.
	if existing.Email != email {
		if _, taken := r.byEmail[email]; taken {
			return nil, common.ErrorAlreadyExists
		}
		delete(r.byEmail, existing.Email)
		r.byEmail[email] = user.ID
	}

	stored := cloneUser(user)
	stored.Email = email
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = existing.UpdatedAt
	stored.Touch(r.now())
	r.byID[user.ID] = stored
	return cloneUser(stored), nil
}

func (r *MemoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[models.CanonicalEmail(email)]
	return ok, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
