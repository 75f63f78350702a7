// Package httpapi is the JSON HTTP boundary of the blog: chi routes,
// cookie or Bearer authentication, request ids, logging, metrics and a
// login rate limiter.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/go-chi/chi/v5"
)

// RouterDeps groups what NewRouter needs. Metrics, Limiter and Pinger are
// optional.
type RouterDeps struct {
	Auth         AuthService
	Users        UserService
	Posts        PostService
	Pinger       Pinger
	Metrics      *Metrics
	Limiter      *RateLimiter
	CookieSecure bool
	Logger       logging.Logger
}

// NewRouter builds the route table.
//
// Middleware order:
//
//	Metrics → RequestID → Logger → Recoverer → authenticate
func NewRouter(deps RouterDeps) http.Handler {
	l := deps.Logger.With("module", "http")
	h := &handler{
		auth:         deps.Auth,
		users:        deps.Users,
		posts:        deps.Posts,
		pinger:       deps.Pinger,
		cookieSecure: deps.CookieSecure,
		logger:       l,
	}

	r := chi.NewRouter()

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(requestID, requestLogger(l), recoverer(l))

	r.Get("/healthz", h.healthz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	loginLimit := func(next http.Handler) http.Handler { return next }
	if deps.Limiter != nil {
		var onLimited func()
		if deps.Metrics != nil {
			onLimited = deps.Metrics.RecordRateLimited
		}
		loginLimit = deps.Limiter.Middleware(onLimited)
	}

	protected := requireAuth(l)

	r.Route("/api", func(r chi.Router) {
		r.Use(authenticate(deps.Auth))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.With(loginLimit).Post("/login", h.login)
			r.Post("/logout", h.logout)
			r.With(protected).Get("/me", h.me)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(protected).Patch("/me", h.updateMe)
			r.With(protected).Delete("/me", h.deleteMe)
			r.Get("/{id}", h.getUser)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.listPublished)
			r.With(protected).Post("/", h.createPost)
			r.With(protected).Get("/mine", h.listMine)
			r.Get("/slug/{slug}", h.getPostBySlug)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getPost)
				r.With(protected).Patch("/", h.updatePost)
				r.With(protected).Delete("/", h.deletePost)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorPayload(w, http.StatusNotFound, errorPayload{Code: "NOT_FOUND", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorPayload(w, http.StatusMethodNotAllowed, errorPayload{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	return r
}
