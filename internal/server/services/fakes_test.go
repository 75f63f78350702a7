package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/dbx"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/posts"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// memStore mimics the constraints of the postgres schema: unique email,
// unique slug and cascading delete of a user's posts.
type memStore struct {
	mu     sync.Mutex
	now    time.Time
	nextU  int64
	nextP  int64
	users  map[int64]models.User
	posts  map[int64]models.Post
	failOn string
	err    error
}

func newMemStore() *memStore {
	return &memStore{
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users: map[int64]models.User{},
		posts: map[int64]models.Post{},
	}
}

func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *memStore) fail(op string) error {
	if s.failOn == op {
		return s.err
	}
	return nil
}

type fakeManager struct{ store *memStore }

func (m fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeManager) Users(dbx.DBTX) users.Repository              { return fakeUsers{m.store} }
func (m fakeManager) Posts(dbx.DBTX) posts.Repository              { return fakePosts{m.store} }

var _ repomanager.RepositoryManager = fakeManager{}

type fakeUsers struct{ s *memStore }

func (r fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Create"); err != nil {
		return nil, err
	}
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	r.s.nextU++
	c := *u
	c.ID = r.s.nextU
	c.CreatedAt = r.s.tick()
	c.UpdatedAt = c.CreatedAt
	r.s.users[c.ID] = c
	return &c, nil
}

func (r fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r fakeUsers) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r fakeUsers) Update(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return nil, common.ErrNotFound
	}
	for id, other := range r.s.users {
		if id != u.ID && other.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	cur.Name = u.Name
	cur.Email = u.Email
	cur.UpdatedAt = r.s.tick()
	r.s.users[u.ID] = cur
	return &cur, nil
}

func (r fakeUsers) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.users, id)
	for pid, p := range r.s.posts {
		if p.AuthorID == id {
			delete(r.s.posts, pid)
		}
	}
	return nil
}

type fakePosts struct{ s *memStore }

func (r fakePosts) slugTaken(slug string, except int64) bool {
	for id, p := range r.s.posts {
		if id != except && p.Slug == slug {
			return true
		}
	}
	return false
}

func (r fakePosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("posts.Create"); err != nil {
		return nil, err
	}
	if r.slugTaken(p.Slug, 0) {
		return nil, common.ErrAlreadyExists
	}
	if _, ok := r.s.users[p.AuthorID]; !ok {
		return nil, common.ErrReferenceMissing
	}
	r.s.nextP++
	c := *p
	c.ID = r.s.nextP
	c.CreatedAt = r.s.tick()
	c.UpdatedAt = c.CreatedAt
	r.s.posts[c.ID] = c
	return &c, nil
}

func (r fakePosts) GetByID(_ context.Context, id int64) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (r fakePosts) GetByIDForUpdate(ctx context.Context, id int64) (*models.Post, error) {
	return r.GetByID(ctx, id)
}

func (r fakePosts) GetBySlug(_ context.Context, slug string) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.posts {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r fakePosts) list(keep func(models.Post) bool) []models.Post {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Post{}
	for _, p := range r.s.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r fakePosts) ListPublished(context.Context) ([]models.Post, error) {
	return r.list(func(p models.Post) bool { return p.Published }), nil
}

func (r fakePosts) ListByAuthor(_ context.Context, authorID int64) ([]models.Post, error) {
	return r.list(func(p models.Post) bool { return p.AuthorID == authorID }), nil
}

func (r fakePosts) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[p.ID]; !ok {
		return nil, common.ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return nil, common.ErrAlreadyExists
	}
	c := *p
	c.UpdatedAt = r.s.tick()
	r.s.posts[p.ID] = c
	return &c, nil
}

func (r fakePosts) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.posts, id)
	return nil
}

// testEnv wires all services against one memStore. The sqlite handle only
// provides real transactions for dbx.WithTx.
type testEnv struct {
	store *memStore
	users *UserService
	posts *PostService
	auth  *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := newMemStore()
	m := fakeManager{store: store}
	l := logging.NewNopLogger()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	us := NewUserService(db, m, hasher, l)
	as, err := NewAuthService(us, hasher, auth.NewTokenService([]byte("test-secret"), time.Hour, l), l)
	require.NoError(t, err)

	return &testEnv{
		store: store,
		users: us,
		posts: NewPostService(db, m, l),
		auth:  as,
	}
}

func (e *testEnv) mustUser(t *testing.T, email string) *models.SafeUser {
	t.Helper()
	u, err := e.users.Create(context.Background(), CreateUserInput{Email: email, Name: "Test", Password: "password123"})
	require.NoError(t, err)
	return u
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
