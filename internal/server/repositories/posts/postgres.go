// Package posts provides a PostgreSQL-backed repository for blog posts.
package posts

import (
	"context"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/dbx"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const postColumns = `id, title, slug, content, excerpt, published, author_id, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query :=
		`INSERT INTO posts (title, slug, content, excerpt, published, author_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		post.Title, post.Slug, post.Content, post.Excerpt, post.Published, post.AuthorID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, dbx.Translate(err)
	}

	return post, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query :=
		`SELECT ` + postColumns + ` FROM posts
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends, so
// the ownership check and the following write see the same author.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Post, error) {
	query :=
		`SELECT ` + postColumns + ` FROM posts
		 WHERE id = $1
		 FOR UPDATE
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	query :=
		`SELECT ` + postColumns + ` FROM posts
		 WHERE slug = $1
		 `
	return r.getOne(ctx, query, slug)
}

// ListPublished returns published posts in creation order.
func (r *PostgresRepository) ListPublished(ctx context.Context) ([]models.Post, error) {
	query :=
		`SELECT ` + postColumns + ` FROM posts
		 WHERE published
		 ORDER BY created_at, id
		 `
	return r.list(ctx, query)
}

// ListByAuthor returns drafts and published posts of one author in creation order.
func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID int64) ([]models.Post, error) {
	query :=
		`SELECT ` + postColumns + ` FROM posts
		 WHERE author_id = $1
		 ORDER BY created_at, id
		 `
	return r.list(ctx, query, authorID)
}

// Update writes the mutable fields and refreshes updated_at.
func (r *PostgresRepository) Update(ctx context.Context, post *models.Post) (*models.Post, error) {
	query :=
		`UPDATE posts
		 SET title = $2, slug = $3, content = $4, excerpt = $5, published = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		post.ID, post.Title, post.Slug, post.Content, post.Excerpt, post.Published,
	).Scan(&post.UpdatedAt)
	if err != nil {
		return nil, dbx.Translate(err)
	}

	return post, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return dbx.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.Translate(err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*models.Post, error) {
	p := &models.Post{}
	err := s.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.Published, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, dbx.Translate(err)
	}
	return p, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Translate(err)
	}
	defer rows.Close()

	result := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, dbx.Translate(err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Translate(err)
	}

	return result, nil
}
