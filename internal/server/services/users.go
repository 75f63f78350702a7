// Package services contains server-side business logic: user accounts,
// posts with ownership checks, and the login flow. Every failure a caller
// can act on is returned as an *apperr.Error; anything else is an internal
// error that the boundary logs and hides.
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
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/repomanager"
)

// UserService manages user accounts. Email uniqueness is enforced by the
// store and surfaced as apperr.Conflict on both create and update.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		logger:      l.With("module", "user_service"),
	}
}

// Create registers a user. The role defaults to models.RoleUser.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.SafeUser, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperr.Validation(apperr.FieldError{Field: "password", Message: "must be at most 72 bytes"})
		}
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Email: in.Email, Name: in.Name, PasswordHash: hash, Role: in.Role}
	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperr.Conflict("email already registered", err)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user.Safe(), nil
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*models.SafeUser, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user.Safe(), nil
}

// FindByEmail returns the full record including the password hash. It is
// meant for the login flow only. A missing user is (nil, false, nil).
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error loading user: %w", err)
	}
	return user, true, nil
}

// Update changes name and/or email. The row is locked for the duration of
// the read-modify-write.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*models.SafeUser, error) {
	extra := append(notBlank("name", in.Name), notBlank("email", in.Email)...)
	if err := validateStruct(in, extra...); err != nil {
		return nil, err
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return apperr.NotFound("user not found")
			}
			return fmt.Errorf("error loading user: %w", err)
		}

		if in.Name != nil {
			user.Name = *in.Name
		}
		if in.Email != nil {
			user.Email = *in.Email
		}

		updated, err = repo.Update(ctx, user)
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return apperr.Conflict("email already registered", err)
			}
			return fmt.Errorf("error updating user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated.Safe(), nil
}

// Delete removes the user. Their posts are removed by the store's
// ON DELETE CASCADE rule.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return fmt.Errorf("error deleting user: %w", err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}
