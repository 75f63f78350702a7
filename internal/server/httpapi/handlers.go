package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// Authenticator verifies access tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Claim, error)
}

// AuthService is what the auth handlers need.
type AuthService interface {
	Authenticator
	Register(ctx context.Context, in services.CreateUserInput) (*services.Session, error)
	Login(ctx context.Context, in services.LoginInput) (*services.Session, error)
	TokenValidity() int
}

type UserService interface {
	FindByID(ctx context.Context, id int64) (*models.SafeUser, error)
	Update(ctx context.Context, id int64, in services.UpdateUserInput) (*models.SafeUser, error)
	Delete(ctx context.Context, id int64) error
}

type PostService interface {
	Create(ctx context.Context, in services.CreatePostInput) (*models.Post, error)
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	FindPublished(ctx context.Context) ([]models.Post, error)
	FindByAuthor(ctx context.Context, authorID int64) ([]models.Post, error)
	Update(ctx context.Context, id, actingUserID int64, in services.UpdatePostInput) (*models.Post, error)
	Delete(ctx context.Context, id, actingUserID int64) error
}

// Pinger reports storage liveness for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type handler struct {
	auth         AuthService
	users        UserService
	posts        PostService
	pinger       Pinger
	cookieSecure bool
	logger       logging.Logger
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(r.Context(), w, h.logger, err)
}

// claim returns the verified identity; requireAuth guarantees it exists.
func claim(r *http.Request) auth.Claim {
	c, _ := auth.ClaimFromContext(r.Context())
	return c
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(apperr.FieldError{Field: "id", Message: "must be a positive integer"})
	}
	return id, nil
}

func (h *handler) setSessionCookie(w http.ResponseWriter, token string) {
	maxAge := h.auth.TokenValidity()
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// POST /api/auth/register
func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in services.CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	sess, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusCreated, sess)
}

// POST /api/auth/login
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	sess, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusOK, sess)
}

// POST /api/auth/logout
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/auth/me
func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindByID(r.Context(), claim(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// PATCH /api/users/me
func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var in services.UpdateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), claim(r).UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DELETE /api/users/me
func (h *handler) deleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), claim(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/users/{id}
func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GET /api/posts
func (h *handler) listPublished(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.FindPublished(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// GET /api/posts/mine
func (h *handler) listMine(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.FindByAuthor(r.Context(), claim(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// visible hides drafts from everyone but their author.
func visible(r *http.Request, p *models.Post) bool {
	if p.Published {
		return true
	}
	c, ok := auth.ClaimFromContext(r.Context())
	return ok && c.UserID == p.AuthorID
}

// GET /api/posts/{id}
func (h *handler) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	post, err := h.posts.FindByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !visible(r, post) {
		h.fail(w, r, apperr.NotFound("post not found"))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// GET /api/posts/slug/{slug}
func (h *handler) getPostBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.FindBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !visible(r, post) {
		h.fail(w, r, apperr.NotFound("post not found"))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// POST /api/posts
func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	var in services.CreatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	in.AuthorID = claim(r).UserID

	post, err := h.posts.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// PATCH /api/posts/{id}
func (h *handler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var in services.UpdatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	post, err := h.posts.Update(r.Context(), id, claim(r).UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DELETE /api/posts/{id}
func (h *handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.posts.Delete(r.Context(), id, claim(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /healthz
func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
