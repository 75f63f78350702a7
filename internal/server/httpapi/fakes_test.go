package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

// tokens maps bearer strings to claims.
type fakeAuth struct {
	tokens   map[string]auth.Claim
	register func(services.CreateUserInput) (*services.Session, error)
	login    func(services.LoginInput) (*services.Session, error)
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (auth.Claim, error) {
	c, ok := f.tokens[token]
	if !ok {
		return auth.Claim{}, apperr.Unauthenticated(auth.ErrInvalidToken)
	}
	return c, nil
}

func (f *fakeAuth) Register(_ context.Context, in services.CreateUserInput) (*services.Session, error) {
	return f.register(in)
}

func (f *fakeAuth) Login(_ context.Context, in services.LoginInput) (*services.Session, error) {
	return f.login(in)
}

func (f *fakeAuth) TokenValidity() int { return 3600 }

type fakeUsers struct {
	findByID func(int64) (*models.SafeUser, error)
	update   func(int64, services.UpdateUserInput) (*models.SafeUser, error)
	deleted  []int64
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*models.SafeUser, error) {
	return f.findByID(id)
}

func (f *fakeUsers) Update(_ context.Context, id int64, in services.UpdateUserInput) (*models.SafeUser, error) {
	return f.update(id, in)
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePosts struct {
	posts   map[int64]*models.Post
	created []services.CreatePostInput
	err     error
}

func (f *fakePosts) Create(_ context.Context, in services.CreatePostInput) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	p := &models.Post{ID: 100, Title: in.Title, Slug: services.Slugify(in.Title), Content: in.Content, AuthorID: in.AuthorID}
	return p, nil
}

func (f *fakePosts) FindByID(_ context.Context, id int64) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, apperr.NotFound("post not found")
	}
	return p, nil
}

func (f *fakePosts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, apperr.NotFound("post not found")
}

func (f *fakePosts) FindPublished(context.Context) ([]models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Post{}
	for _, p := range f.posts {
		if p.Published {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePosts) FindByAuthor(_ context.Context, authorID int64) ([]models.Post, error) {
	out := []models.Post{}
	for _, p := range f.posts {
		if p.AuthorID == authorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePosts) Update(_ context.Context, id, actingUserID int64, in services.UpdatePostInput) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperr.NotFound("post not found")
	}
	if p.AuthorID != actingUserID {
		return nil, apperr.Forbidden("you are not the author of this post")
	}
	if in.Title != nil {
		p.Title = *in.Title
	}
	return p, nil
}

func (f *fakePosts) Delete(_ context.Context, id, actingUserID int64) error {
	p, ok := f.posts[id]
	if !ok {
		return apperr.NotFound("post not found")
	}
	if p.AuthorID != actingUserID {
		return apperr.Forbidden("you are not the author of this post")
	}
	delete(f.posts, id)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type testAPI struct {
	handler  http.Handler
	auth     *fakeAuth
	users    *fakeUsers
	posts    *fakePosts
	registry *prometheus.Registry
	limiter  *RateLimiter
}

const (
	aliceToken = "alice-token"
	bobToken   = "bob-token"
)

var errDB = errors.New("connection reset by peer")

func newTestAPI(t *testing.T, pinger Pinger) *testAPI {
	t.Helper()

	alice := &models.SafeUser{ID: 1, Email: "alice@example.com", Name: "Alice", Role: models.RoleUser}

	a := &fakeAuth{
		tokens: map[string]auth.Claim{
			aliceToken: {UserID: 1, Email: "alice@example.com", Role: models.RoleUser},
			bobToken:   {UserID: 2, Email: "bob@example.com", Role: models.RoleUser},
		},
		register: func(in services.CreateUserInput) (*services.Session, error) {
			return &services.Session{Token: "new-token", User: &models.SafeUser{ID: 3, Email: in.Email, Name: in.Name, Role: models.RoleUser}}, nil
		},
		login: func(in services.LoginInput) (*services.Session, error) {
			if in.Email == "alice@example.com" && in.Password == "password123" {
				return &services.Session{Token: aliceToken, User: alice}, nil
			}
			e := apperr.Unauthenticated(errors.New("bad password"))
			e.Message = "invalid email or password"
			return nil, e
		},
	}
	u := &fakeUsers{
		findByID: func(id int64) (*models.SafeUser, error) {
			if id == 1 {
				return alice, nil
			}
			return nil, apperr.NotFound("user not found")
		},
		update: func(id int64, in services.UpdateUserInput) (*models.SafeUser, error) {
			c := *alice
			if in.Name != nil {
				c.Name = *in.Name
			}
			return &c, nil
		},
	}
	p := &fakePosts{posts: map[int64]*models.Post{
		10: {ID: 10, Title: "Public", Slug: "public", Content: "x", Published: true, AuthorID: 1},
		11: {ID: 11, Title: "Draft", Slug: "draft", Content: "x", Published: false, AuthorID: 1},
	}}

	reg := prometheus.NewRegistry()
	limiter := NewRateLimiter(RateLimiterConfig{PerMinute: 1, Burst: 2, CleanupInterval: time.Hour}, logging.NewNopLogger())
	t.Cleanup(limiter.Stop)

	h := NewRouter(RouterDeps{
		Auth:    a,
		Users:   u,
		Posts:   p,
		Pinger:  pinger,
		Metrics: NewMetrics(reg, reg),
		Limiter: limiter,
		Logger:  logging.NewNopLogger(),
	})

	return &testAPI{handler: h, auth: a, users: u, posts: p, registry: reg, limiter: limiter}
}

// do performs a request; token is sent as a Bearer header when non-empty.
func (api *testAPI) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}
