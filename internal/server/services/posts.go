package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/dbx"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/repomanager"
)

// PostService manages posts. Update and Delete load the post first and then
// compare its author with the acting user: a missing post is NotFound, a
// post owned by someone else is Forbidden.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "post_service"),
	}
}

func postNotFound() error {
	return apperr.NotFound("post not found")
}

func slugConflict(err error) error {
	return apperr.Conflict("a post with the same slug already exists", err)
}

// slugFor validates that title produces a non-empty slug.
func slugFor(title string) (string, []apperr.FieldError) {
	slug := Slugify(title)
	if slug == "" {
		return "", []apperr.FieldError{{Field: "title", Message: "must contain at least one letter or digit"}}
	}
	return slug, nil
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	var slug string
	var extra []apperr.FieldError
	if in.Title != "" {
		slug, extra = slugFor(in.Title)
	}
	if err := validateStruct(in, extra...); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Slug:     slug,
		Content:  in.Content,
		Excerpt:  in.Excerpt,
		AuthorID: in.AuthorID,
	}
	if in.Published != nil {
		post.Published = *in.Published
	}

	post, err := s.repomanager.Posts(s.db).Create(ctx, post)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, slugConflict(err)
		}
		if errors.Is(err, common.ErrReferenceMissing) {
			s.logger.Warn(ctx, "post author does not exist", "author_id", in.AuthorID)
			return nil, apperr.NotFound("author not found")
		}
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	s.logger.Info(ctx, "post created", "post_id", post.ID, "author_id", post.AuthorID, "slug", post.Slug)
	return post, nil
}

func (s *PostService) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, postNotFound()
		}
		return nil, fmt.Errorf("error loading post: %w", err)
	}
	return post, nil
}

func (s *PostService) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	post, err := s.repomanager.Posts(s.db).GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, postNotFound()
		}
		return nil, fmt.Errorf("error loading post: %w", err)
	}
	return post, nil
}

// FindPublished lists published posts in creation order.
func (s *PostService) FindPublished(ctx context.Context) ([]models.Post, error) {
	posts, err := s.repomanager.Posts(s.db).ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// FindByAuthor lists all posts of an author, drafts included.
func (s *PostService) FindByAuthor(ctx context.Context, authorID int64) ([]models.Post, error) {
	posts, err := s.repomanager.Posts(s.db).ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// Update applies a partial update on behalf of actingUserID. A new title
// recomputes the slug.
func (s *PostService) Update(ctx context.Context, id, actingUserID int64, in UpdatePostInput) (*models.Post, error) {
	var slug string
	extra := append(notBlank("title", in.Title), notBlank("content", in.Content)...)
	if in.Title != nil && len(extra) == 0 {
		var fe []apperr.FieldError
		slug, fe = slugFor(*in.Title)
		extra = append(extra, fe...)
	}
	if err := validateStruct(in, extra...); err != nil {
		return nil, err
	}

	var updated *models.Post
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		post, err := s.loadOwned(ctx, repo.GetByIDForUpdate, id, actingUserID)
		if err != nil {
			return err
		}

		if in.Title != nil {
			post.Title = *in.Title
			post.Slug = slug
		}
		if in.Content != nil {
			post.Content = *in.Content
		}
		if in.Excerpt != nil {
			if *in.Excerpt == "" {
				post.Excerpt = nil
			} else {
				post.Excerpt = in.Excerpt
			}
		}
		if in.Published != nil {
			post.Published = *in.Published
		}

		updated, err = repo.Update(ctx, post)
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return slugConflict(err)
			}
			return fmt.Errorf("error updating post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a post owned by actingUserID.
func (s *PostService) Delete(ctx context.Context, id, actingUserID int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		if _, err := s.loadOwned(ctx, repo.GetByIDForUpdate, id, actingUserID); err != nil {
			return err
		}

		if err := repo.Delete(ctx, id); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return postNotFound()
			}
			return fmt.Errorf("error deleting post: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "post deleted", "post_id", id, "user_id", actingUserID)
	return nil
}

// loadOwned loads the post and checks ownership, in that order.
func (s *PostService) loadOwned(ctx context.Context, load func(context.Context, int64) (*models.Post, error), id, actingUserID int64) (*models.Post, error) {
	post, err := load(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, postNotFound()
		}
		return nil, fmt.Errorf("error loading post: %w", err)
	}

	if post.AuthorID != actingUserID {
		s.logger.Warn(ctx, "ownership check failed", "post_id", id, "author_id", post.AuthorID, "user_id", actingUserID)
		return nil, apperr.Forbidden("you are not the author of this post")
	}

	return post, nil
}
